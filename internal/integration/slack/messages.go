package slack

import (
	"context"
	"net/http"

	apierrors "github.com/tombee/apibind/pkg/errors"
)

// PostMessage sends a message to a Slack channel.
func (c *Client) PostMessage(ctx context.Context, msg *PostMessageRequest) (*PostMessageResponse, error) {
	if msg == nil || msg.Channel == "" {
		return nil, missing("channel")
	}
	if msg.Text == "" {
		return nil, missing("text")
	}

	var out PostMessageResponse
	if err := c.do(ctx, http.MethodPost, "/chat.postMessage", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMessage updates an existing Slack message.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts, text string) (*UpdateMessageResponse, error) {
	if err := required(map[string]string{"channel": channel, "ts": ts, "text": text}); err != nil {
		return nil, err
	}

	var out UpdateMessageResponse
	body := map[string]string{"channel": channel, "ts": ts, "text": text}
	if err := c.do(ctx, http.MethodPost, "/chat.update", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMessage deletes a Slack message.
func (c *Client) DeleteMessage(ctx context.Context, channel, ts string) (*DeleteMessageResponse, error) {
	if err := required(map[string]string{"channel": channel, "ts": ts}); err != nil {
		return nil, err
	}

	var out DeleteMessageResponse
	body := map[string]string{"channel": channel, "ts": ts}
	if err := c.do(ctx, http.MethodPost, "/chat.delete", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddReaction adds an emoji reaction (without colons) to a message.
func (c *Client) AddReaction(ctx context.Context, channel, ts, name string) error {
	if err := required(map[string]string{"channel": channel, "timestamp": ts, "name": name}); err != nil {
		return err
	}

	var out SlackResponse
	body := map[string]string{"channel": channel, "timestamp": ts, "name": name}
	return c.do(ctx, http.MethodPost, "/reactions.add", body, &out)
}

func missing(field string) error {
	return &apierrors.ValidationError{Field: field, Message: field + " is required"}
}

// required reports the first empty field in a stable order.
func required(fields map[string]string) error {
	for _, name := range []string{"channel", "ts", "timestamp", "text", "name", "user"} {
		if v, ok := fields[name]; ok && v == "" {
			return missing(name)
		}
	}
	return nil
}
