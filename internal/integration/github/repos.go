package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tombee/apibind/internal/api"
	apierrors "github.com/tombee/apibind/pkg/errors"
)

// GetContent gets a file from a repository. ref may be empty for the
// default branch.
func (c *Client) GetContent(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	if path == "" {
		return nil, missing("path")
	}

	p, err := api.BuildURL("/repos/{owner}/{repo}/contents/", map[string]string{"owner": owner, "repo": repo})
	if err != nil {
		return nil, err
	}
	// Slashes in the file path are path separators, so escape per segment.
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	p = api.WithQuery(p+strings.Join(segments, "/"), map[string]interface{}{"ref": ref})

	var out FileContent
	if err := c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInstallationRepos lists the repositories the current installation
// token can access. It requires an app-installation credential.
func (c *Client) ListInstallationRepos(ctx context.Context, maxPages int) ([]Repository, error) {
	p := c.NewLinkPaginator(api.WithQuery("/installation/repositories", map[string]interface{}{"per_page": MaxPerPage}), maxPages)

	var all []Repository
	for {
		var page InstallationRepositories
		ok, err := p.Next(ctx, &page)
		if err != nil {
			return all, ParseError(err)
		}
		if !ok {
			return all, nil
		}
		all = append(all, page.Repositories...)
	}
}

func missing(field string) error {
	return &apierrors.ValidationError{Field: field, Message: field + " is required"}
}
