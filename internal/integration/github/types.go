package github

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Timestamps shared by most resources.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is the user, bot or organization behind an action.
type Account struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// IsBot reports whether the account is an app bot, such as the one
// installation tokens act as.
func (a Account) IsBot() bool {
	return a.Type == "Bot"
}

type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Issue is an issue or, when PullRequest is set, a pull request seen
// through the issues API.
type Issue struct {
	Timestamps
	ID        int64      `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	User      Account    `json:"user"`
	Labels    []Label    `json:"labels"`
	Assignees []Account  `json:"assignees"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether the issue is a pull request.
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// LabelNames returns the issue's label names in API order.
func (i Issue) LabelNames() []string {
	names := make([]string, len(i.Labels))
	for n, l := range i.Labels {
		names[n] = l.Name
	}
	return names
}

// Comment is an issue or pull request comment.
type Comment struct {
	Timestamps
	ID      int64   `json:"id"`
	Body    string  `json:"body"`
	User    Account `json:"user"`
	HTMLURL string  `json:"html_url"`
}

// PullRequest is the pulls API view of a pull request.
type PullRequest struct {
	Timestamps
	ID        int64      `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	Draft     bool       `json:"draft"`
	HTMLURL   string     `json:"html_url"`
	User      Account    `json:"user"`
	Head      GitRef     `json:"head"`
	Base      GitRef     `json:"base"`
	Merged    bool       `json:"merged"`
	Mergeable *bool      `json:"mergeable,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
}

// GitRef is one side of a pull request.
type GitRef struct {
	Label string `json:"label"`
	Ref   string `json:"ref"`
	SHA   string `json:"sha"`
}

// Repository is a repository as listed for an installation.
type Repository struct {
	Timestamps
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	FullName      string          `json:"full_name"`
	Private       bool            `json:"private"`
	Archived      bool            `json:"archived"`
	DefaultBranch string          `json:"default_branch"`
	Owner         Account         `json:"owner"`
	Permissions   map[string]bool `json:"permissions,omitempty"`
}

// InstallationRepositories is the response of GET /installation/repositories.
type InstallationRepositories struct {
	TotalCount   int          `json:"total_count"`
	Repositories []Repository `json:"repositories"`
}

// WorkflowRun is a GitHub Actions run.
type WorkflowRun struct {
	Timestamps
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	HeadBranch string  `json:"head_branch"`
	HeadSHA    string  `json:"head_sha"`
	Event      string  `json:"event"`
	Status     string  `json:"status"`
	Conclusion *string `json:"conclusion"`
	RunNumber  int     `json:"run_number"`
	HTMLURL    string  `json:"html_url"`
}

type WorkflowRunsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// FileContent is a file from the contents API.
type FileContent struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// Decode returns the file bytes. GitHub wraps base64 content at 60 columns.
func (f *FileContent) Decode() ([]byte, error) {
	switch f.Encoding {
	case "base64":
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
	case "", "none":
		return []byte(f.Content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", f.Encoding)
	}
}
