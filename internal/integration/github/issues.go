package github

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/tombee/apibind/internal/api"
)

// ListIssuesOptions filters ListIssues.
type ListIssuesOptions struct {
	// State is open, closed or all. Empty means open.
	State string

	// Labels restricts results to issues carrying every label.
	Labels []string

	// PerPage defaults to, and is capped at, MaxPerPage.
	PerPage int

	// MaxPages bounds the traversal. Zero uses api.DefaultMaxPages.
	MaxPages int
}

// NewIssue is the body of CreateIssue.
type NewIssue struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// ListIssues lists repository issues, following every page.
// GitHub includes pull requests in this listing; see Issue.IsPullRequest.
func (c *Client) ListIssues(ctx context.Context, owner, repo string, opts *ListIssuesOptions) ([]Issue, error) {
	if opts == nil {
		opts = &ListIssuesOptions{}
	}

	path, err := api.BuildURL("/repos/{owner}/{repo}/issues", map[string]string{"owner": owner, "repo": repo})
	if err != nil {
		return nil, err
	}

	perPage := opts.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	path = api.WithQuery(path, map[string]interface{}{
		"state":    opts.State,
		"labels":   strings.Join(opts.Labels, ","),
		"per_page": perPage,
	})

	return listAll[Issue](ctx, c, path, opts.MaxPages)
}

// CreateIssue creates a new GitHub issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, issue *NewIssue) (*Issue, error) {
	if issue == nil || issue.Title == "" {
		return nil, missing("title")
	}

	path, err := api.BuildURL("/repos/{owner}/{repo}/issues", map[string]string{"owner": owner, "repo": repo})
	if err != nil {
		return nil, err
	}

	var out Issue
	if err := c.do(ctx, http.MethodPost, path, issue, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseIssue closes a GitHub issue.
func (c *Client) CloseIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	path, err := issuePath(owner, repo, number)
	if err != nil {
		return nil, err
	}

	var out Issue
	if err := c.do(ctx, http.MethodPatch, path, map[string]string{"state": "closed"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment adds a comment to an issue or pull request.
func (c *Client) AddComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error) {
	if body == "" {
		return nil, missing("body")
	}
	path, err := issuePath(owner, repo, number)
	if err != nil {
		return nil, err
	}

	var out Comment
	if err := c.do(ctx, http.MethodPost, path+"/comments", map[string]string{"body": body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func issuePath(owner, repo string, number int) (string, error) {
	if number <= 0 {
		return "", missing("issue_number")
	}
	return api.BuildURL("/repos/{owner}/{repo}/issues/{issue_number}", map[string]string{
		"owner":        owner,
		"repo":         repo,
		"issue_number": strconv.Itoa(number),
	})
}
