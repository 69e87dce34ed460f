package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/itchyny/gojq"

	"github.com/tombee/apibind/internal/transport"
)

// DefaultMaxPages bounds pagination when no limit is configured.
const DefaultMaxPages = 100

var linkRegex = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="([^"]+)"`)

// ParseLinkHeader parses an RFC 5988 Link header into a rel → URL map.
func ParseLinkHeader(header string) map[string]string {
	links := make(map[string]string)
	for _, m := range linkRegex.FindAllStringSubmatch(header, -1) {
		links[m[2]] = m[1]
	}
	return links
}

// LinkPaginator follows `Link: <...>; rel="next"` response headers.
//
//	p := client.NewLinkPaginator("/repos/o/r/issues?per_page=100", 0)
//	for {
//	    var page []Issue
//	    ok, err := p.Next(ctx, &page)
//	    if err != nil || !ok {
//	        break
//	    }
//	}
type LinkPaginator struct {
	client   *BaseClient
	next     string
	pages    int
	maxPages int
}

// NewLinkPaginator starts Link-header pagination at path.
// maxPages <= 0 uses DefaultMaxPages.
func (c *BaseClient) NewLinkPaginator(path string, maxPages int) *LinkPaginator {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &LinkPaginator{client: c, next: path, maxPages: maxPages}
}

// Next fetches the next page into out. It returns false once there are no
// more pages or the page limit is reached; out is untouched in that case.
func (p *LinkPaginator) Next(ctx context.Context, out interface{}) (bool, error) {
	if p.next == "" || p.pages >= p.maxPages {
		return false, nil
	}

	resp, err := p.client.Do(ctx, http.MethodGet, p.next, nil, out)
	if err != nil {
		p.next = ""
		return false, err
	}
	p.pages++
	p.next = ParseLinkHeader(resp.Header("Link"))["next"]
	return true, nil
}

// Pages returns the number of pages fetched so far.
func (p *LinkPaginator) Pages() int {
	return p.pages
}

// CursorConfig describes cursor-based pagination.
type CursorConfig struct {
	// Path is the endpoint path without the cursor parameter.
	Path string

	// Query holds the fixed query parameters.
	Query map[string]interface{}

	// CursorParam is the query parameter carrying the cursor (e.g., "cursor").
	CursorParam string

	// CursorExpr is a jq expression selecting the next cursor from the
	// response body (e.g., ".response_metadata.next_cursor").
	// A null or empty result ends pagination.
	CursorExpr string

	// MaxPages bounds the traversal. Zero uses DefaultMaxPages.
	MaxPages int
}

// CursorPaginator follows an opaque cursor found in each response body.
type CursorPaginator struct {
	client   *BaseClient
	cfg      CursorConfig
	code     *gojq.Code
	cursor   string
	pages    int
	maxPages int
	done     bool
}

// NewCursorPaginator compiles the cursor expression and returns a paginator.
func (c *BaseClient) NewCursorPaginator(cfg CursorConfig) (*CursorPaginator, error) {
	if cfg.CursorParam == "" {
		return nil, fmt.Errorf("cursor parameter is required")
	}
	query, err := gojq.Parse(cfg.CursorExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("cursor expression compilation failed: %w", err)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	return &CursorPaginator{client: c, cfg: cfg, code: code, maxPages: maxPages}, nil
}

// Next fetches the next page into out. It returns false once the cursor is
// exhausted or the page limit is reached.
func (p *CursorPaginator) Next(ctx context.Context, out interface{}) (bool, error) {
	if p.done || p.pages >= p.maxPages {
		return false, nil
	}

	query := make(map[string]interface{}, len(p.cfg.Query)+1)
	for k, v := range p.cfg.Query {
		query[k] = v
	}
	if p.cursor != "" {
		query[p.cfg.CursorParam] = p.cursor
	}

	resp, err := p.client.Do(ctx, http.MethodGet, WithQuery(p.cfg.Path, query), nil, out)
	if err != nil {
		p.done = true
		return false, err
	}
	p.pages++

	cursor, err := p.nextCursor(ctx, resp)
	if err != nil {
		p.done = true
		return true, err
	}
	p.cursor = cursor
	p.done = cursor == ""
	return true, nil
}

// Cursor returns the cursor for the next page, or "" when exhausted.
func (p *CursorPaginator) Cursor() string {
	return p.cursor
}

func (p *CursorPaginator) nextCursor(ctx context.Context, resp *transport.Response) (string, error) {
	if len(resp.Body) == 0 {
		return "", nil
	}

	var data interface{}
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return "", fmt.Errorf("failed to parse response for cursor: %w", err)
	}

	iter := p.code.RunWithContext(ctx, data)
	v, ok := iter.Next()
	if !ok {
		return "", nil
	}
	switch cursor := v.(type) {
	case error:
		return "", fmt.Errorf("cursor expression failed: %w", cursor)
	case nil:
		return "", nil
	case string:
		return cursor, nil
	default:
		return "", fmt.Errorf("cursor expression returned %T, want string", v)
	}
}
