package slack

import (
	"context"
	"strings"

	"github.com/tombee/apibind/internal/api"
)

// ListConversationsOptions filters ListConversations.
type ListConversationsOptions struct {
	// Types is any of public_channel, private_channel, mpim, im.
	// Empty means public_channel.
	Types []string

	ExcludeArchived bool

	// Limit is the page size. Zero uses DefaultPageLimit.
	Limit int

	// MaxPages bounds the traversal. Zero uses api.DefaultMaxPages.
	MaxPages int
}

// ListConversations lists channels, following next_cursor across pages.
func (c *Client) ListConversations(ctx context.Context, opts *ListConversationsOptions) ([]Channel, error) {
	if opts == nil {
		opts = &ListConversationsOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	query := map[string]interface{}{
		"types": strings.Join(opts.Types, ","),
		"limit": limit,
	}
	if opts.ExcludeArchived {
		query["exclude_archived"] = true
	}

	return listAll(ctx, c, api.CursorConfig{
		Path:     "/conversations.list",
		Query:    query,
		MaxPages: opts.MaxPages,
	}, func(page ListChannelsResponse) []Channel { return page.Channels })
}
