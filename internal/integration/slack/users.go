package slack

import (
	"context"
	"net/http"

	"github.com/tombee/apibind/internal/api"
)

// ListUsers lists workspace members, following next_cursor across pages.
func (c *Client) ListUsers(ctx context.Context, maxPages int) ([]User, error) {
	return listAll(ctx, c, api.CursorConfig{
		Path:     "/users.list",
		Query:    map[string]interface{}{"limit": DefaultPageLimit},
		MaxPages: maxPages,
	}, func(page ListUsersResponse) []User { return page.Members })
}

// GetUser gets user information.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, missing("user")
	}

	var out GetUserResponse
	if err := c.do(ctx, http.MethodGet, api.WithQuery("/users.info", map[string]interface{}{"user": userID}), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
