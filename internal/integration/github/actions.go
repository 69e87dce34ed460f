package github

import (
	"context"
	"net/http"

	"github.com/tombee/apibind/internal/api"
)

// ListWorkflowRunsOptions filters ListWorkflowRuns.
type ListWorkflowRunsOptions struct {
	Branch  string
	Status  string
	Event   string
	PerPage int
}

// ListWorkflowRuns lists the most recent GitHub Actions workflow runs.
// Only the first page is returned; TotalCount reports how many exist.
func (c *Client) ListWorkflowRuns(ctx context.Context, owner, repo string, opts *ListWorkflowRunsOptions) (*WorkflowRunsResponse, error) {
	if opts == nil {
		opts = &ListWorkflowRunsOptions{}
	}

	path, err := api.BuildURL("/repos/{owner}/{repo}/actions/runs", map[string]string{"owner": owner, "repo": repo})
	if err != nil {
		return nil, err
	}

	query := map[string]interface{}{
		"branch": opts.Branch,
		"status": opts.Status,
		"event":  opts.Event,
	}
	if opts.PerPage > 0 {
		query["per_page"] = min(opts.PerPage, MaxPerPage)
	}

	var out WorkflowRunsResponse
	if err := c.do(ctx, http.MethodGet, api.WithQuery(path, query), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
