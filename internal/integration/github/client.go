// Package github is a GitHub REST API binding over the shared api.BaseClient.
//
// It is intentionally small: issues, pull requests, repository contents,
// installation repositories and workflow runs. Pair it with an
// app-installation credential to exercise the coalescing token cache.
package github

import (
	"context"
	"log/slog"

	"github.com/tombee/apibind/internal/api"
	"github.com/tombee/apibind/internal/auth"
	"github.com/tombee/apibind/internal/transport"
)

const (
	// DefaultBaseURL is the public GitHub API endpoint.
	DefaultBaseURL = auth.DefaultGitHubBaseURL

	// APIVersion is sent as X-GitHub-Api-Version.
	APIVersion = "2022-11-28"

	// MaxPerPage is the largest page size GitHub accepts.
	MaxPerPage = 100
)

// Config holds the collaborators for a Client.
type Config struct {
	Transport  transport.Transport
	Authorizer auth.Authorizer
	Logger     *slog.Logger
}

// Client is the GitHub binding.
type Client struct {
	*api.BaseClient
}

// New creates a GitHub client.
func New(cfg Config) (*Client, error) {
	base, err := api.NewBaseClient(api.ClientConfig{
		Name:       "github",
		Transport:  cfg.Transport,
		Authorizer: cfg.Authorizer,
		Headers:    defaultHeaders(),
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{BaseClient: base}, nil
}

// Operations returns the list of available operations.
func (c *Client) Operations() []api.OperationInfo {
	return []api.OperationInfo{
		// Issues
		{Name: "list_issues", Description: "List issues with filtering", Category: "issues", Tags: []string{"read", "paginated"}},
		{Name: "create_issue", Description: "Create a new issue", Category: "issues", Tags: []string{"write"}},
		{Name: "close_issue", Description: "Close an issue", Category: "issues", Tags: []string{"write"}},
		{Name: "add_comment", Description: "Add a comment to an issue or PR", Category: "issues", Tags: []string{"write"}},

		// Pull Requests
		{Name: "get_pull", Description: "Get details for a specific pull request", Category: "pulls", Tags: []string{"read"}},

		// Repositories
		{Name: "get_content", Description: "Get file contents from a repository", Category: "repos", Tags: []string{"read"}},
		{Name: "list_installation_repos", Description: "List repositories accessible to the installation", Category: "repos", Tags: []string{"read", "paginated"}},

		// Actions
		{Name: "list_workflow_runs", Description: "List workflow runs", Category: "actions", Tags: []string{"read"}},
	}
}

// defaultHeaders returns default headers for GitHub API requests.
func defaultHeaders() map[string]string {
	return map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": APIVersion,
	}
}

// do issues a request and converts error responses into *GitHubError.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	_, err := c.Do(ctx, method, path, in, out)
	return ParseError(err)
}

// listAll walks Link-header pagination and collects every item.
func listAll[T any](ctx context.Context, c *Client, path string, maxPages int) ([]T, error) {
	p := c.NewLinkPaginator(path, maxPages)
	var all []T
	for {
		var page []T
		ok, err := p.Next(ctx, &page)
		if err != nil {
			return all, ParseError(err)
		}
		if !ok {
			return all, nil
		}
		all = append(all, page...)
	}
}
