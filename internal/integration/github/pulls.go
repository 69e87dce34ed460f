package github

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tombee/apibind/internal/api"
)

// GetPull gets details for a specific pull request.
func (c *Client) GetPull(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	if number <= 0 {
		return nil, missing("pull_number")
	}
	path, err := api.BuildURL("/repos/{owner}/{repo}/pulls/{pull_number}", map[string]string{
		"owner":       owner,
		"repo":        repo,
		"pull_number": strconv.Itoa(number),
	})
	if err != nil {
		return nil, err
	}

	var out PullRequest
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
