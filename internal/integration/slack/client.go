// Package slack is a Slack Web API binding over the shared api.BaseClient.
//
// Slack reports most failures as HTTP 200 with {"ok": false, "error": ...};
// every call checks the ok field and returns *SlackError when it is false.
package slack

import (
	"context"
	"log/slog"

	"github.com/tombee/apibind/internal/api"
	"github.com/tombee/apibind/internal/auth"
	"github.com/tombee/apibind/internal/transport"
)

const (
	// DefaultBaseURL is the Slack Web API endpoint.
	DefaultBaseURL = "https://slack.com/api"

	// DefaultRequestsPerSecond approximates Slack's tier 3 limit (50+/min).
	DefaultRequestsPerSecond = 0.8

	// DefaultBurst allows short bursts above the steady rate.
	DefaultBurst = 5

	// DefaultPageLimit is the page size for cursor-paginated methods.
	DefaultPageLimit = 200
)

// Config holds the collaborators for a Client.
type Config struct {
	Transport  transport.Transport
	Authorizer auth.Authorizer
	Logger     *slog.Logger
}

// Client is the Slack binding.
type Client struct {
	*api.BaseClient
}

// New creates a Slack client.
func New(cfg Config) (*Client, error) {
	base, err := api.NewBaseClient(api.ClientConfig{
		Name:       "slack",
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

// DefaultRateLimiter returns a limiter matching Slack's default tier.
func DefaultRateLimiter() transport.RateLimiter {
	return transport.NewRateLimiter(DefaultRequestsPerSecond, DefaultBurst)
}

// Operations returns the list of available operations.
func (c *Client) Operations() []api.OperationInfo {
	return []api.OperationInfo{
		// Messages
		{Name: "post_message", Description: "Send a message to a channel", Category: "messages", Tags: []string{"write"}},
		{Name: "update_message", Description: "Update an existing message", Category: "messages", Tags: []string{"write"}},
		{Name: "delete_message", Description: "Delete a message", Category: "messages", Tags: []string{"write", "destructive"}},
		{Name: "add_reaction", Description: "Add a reaction to a message", Category: "messages", Tags: []string{"write"}},

		// Channels
		{Name: "list_conversations", Description: "List conversations", Category: "channels", Tags: []string{"read", "paginated"}},

		// Users
		{Name: "list_users", Description: "List workspace members", Category: "users", Tags: []string{"read", "paginated"}},
		{Name: "get_user", Description: "Get user information", Category: "users", Tags: []string{"read"}},
	}
}

// defaultHeaders returns default headers for Slack API requests.
func defaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
}

// okResponse is implemented by every response type through SlackResponse.
type okResponse interface {
	slackStatus() SlackResponse
}

// do issues a request and checks both the HTTP status and the ok field.
func (c *Client) do(ctx context.Context, method, path string, in interface{}, out okResponse) error {
	resp, err := c.Do(ctx, method, path, in, out)
	if err != nil {
		return ParseError(err)
	}
	return out.slackStatus().err(resp.StatusCode)
}

// listAll walks cursor pagination, checking ok on every page. Items from a
// decoded page are kept even when its cursor cannot be read.
func listAll[P okResponse, T any](ctx context.Context, c *Client, cfg api.CursorConfig, items func(P) []T) ([]T, error) {
	if cfg.CursorParam == "" {
		cfg.CursorParam = "cursor"
	}
	if cfg.CursorExpr == "" {
		cfg.CursorExpr = ".response_metadata.next_cursor"
	}

	p, err := c.NewCursorPaginator(cfg)
	if err != nil {
		return nil, err
	}

	var all []T
	for {
		var page P
		ok, err := p.Next(ctx, &page)
		if ok {
			if serr := page.slackStatus().err(0); serr != nil {
				return all, serr
			}
			all = append(all, items(page)...)
		}
		if err != nil {
			return all, ParseError(err)
		}
		if !ok {
			return all, nil
		}
	}
}
