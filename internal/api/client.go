// Package api provides the base client shared by every service binding.
//
// A binding builds a path, optionally a JSON body, and calls Do. The base
// client attaches the Authorization header from its auth.Authorizer, merges
// default headers, issues the request through a transport.Transport and
// decodes the JSON response.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tombee/apibind/internal/auth"
	"github.com/tombee/apibind/internal/log"
	"github.com/tombee/apibind/internal/tracing"
	"github.com/tombee/apibind/internal/transport"
	apierrors "github.com/tombee/apibind/pkg/errors"
)

// ClientConfig holds configuration for a BaseClient.
type ClientConfig struct {
	// Name identifies the binding in logs (e.g., "github")
	Name string

	// Transport issues requests. Required.
	Transport transport.Transport

	// Authorizer supplies the Authorization header.
	// Nil sends requests without credentials.
	Authorizer auth.Authorizer

	// Headers are sent with every request. Per-request headers win.
	Headers map[string]string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// BaseClient provides common functionality for API bindings.
type BaseClient struct {
	name       string
	transport  transport.Transport
	authorizer auth.Authorizer
	headers    map[string]string
	logger     *slog.Logger
}

// NewBaseClient creates a new base client.
func NewBaseClient(cfg ClientConfig) (*BaseClient, error) {
	if cfg.Name == "" {
		return nil, &apierrors.ValidationError{Field: "name", Message: "client name is required"}
	}
	if cfg.Transport == nil {
		return nil, &apierrors.ValidationError{Field: "transport", Message: "transport is required"}
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &BaseClient{
		name:       cfg.Name,
		transport:  cfg.Transport,
		authorizer: cfg.Authorizer,
		headers:    headers,
		logger:     log.WithService(log.WithComponent(cfg.Logger, "api"), cfg.Name),
	}, nil
}

// Name returns the binding identifier.
func (c *BaseClient) Name() string {
	return c.name
}

// Transport returns the underlying transport.
func (c *BaseClient) Transport() transport.Transport {
	return c.transport
}

// IssueRequest sends an authenticated request and returns the raw response.
//
// The Authorization header is obtained before anything is sent. If that
// fails the error is returned unchanged (an *errors.ExchangeError for
// dynamic credentials) and the API is never called. A 401 answer invalidates
// the cached token when the authorizer supports it, so the next request
// exchanges again; the 401 itself is still returned as a *transport.TransportError.
func (c *BaseClient) IssueRequest(ctx context.Context, method, path string, body []byte) (*transport.Response, error) {
	return c.issue(ctx, method, path, nil, body)
}

func (c *BaseClient) issue(ctx context.Context, method, path string, extra map[string]string, body []byte) (*transport.Response, error) {
	ctx, _ = tracing.EnsureContext(ctx)

	headers := make(map[string]string, len(c.headers)+len(extra)+1)
	for k, v := range c.headers {
		headers[k] = v
	}
	for k, v := range extra {
		headers[k] = v
	}

	var authorization string
	if c.authorizer != nil {
		var err error
		authorization, err = c.authorizer.Authorization(ctx)
		if err != nil {
			c.logger.Warn("could not authorize request",
				slog.String("method", method),
				log.Error(err),
			)
			return nil, err
		}
		headers["Authorization"] = authorization
	}

	resp, err := c.transport.Execute(ctx, &transport.Request{
		Method:  method,
		URL:     path,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		var tErr *transport.TransportError
		if errors.As(err, &tErr) && tErr.StatusCode == http.StatusUnauthorized {
			if inv, ok := c.authorizer.(auth.Invalidator); ok && authorization != "" {
				inv.Invalidate(authorization)
				c.logger.Info("credential rejected, cached token invalidated",
					slog.String("method", method),
				)
			}
		}
		return nil, err
	}

	return resp, nil
}

// Do JSON-encodes in (nil sends no body), issues the request and decodes the
// response into out (nil discards it). A body that cannot be decoded into out
// is reported as *errors.DecodeError.
func (c *BaseClient) Do(ctx context.Context, method, path string, in, out interface{}) (*transport.Response, error) {
	return c.DoWithHeaders(ctx, method, path, nil, in, out)
}

// DoWithHeaders is Do with additional per-request headers.
func (c *BaseClient) DoWithHeaders(ctx context.Context, method, path string, headers map[string]string, in, out interface{}) (*transport.Response, error) {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.issue(ctx, method, path, headers, body)
	if err != nil {
		return nil, err
	}

	if err := Decode(resp, out); err != nil {
		return resp, err
	}
	return resp, nil
}

// Decode parses a JSON response body into out.
// An empty body or nil out is not an error.
func Decode(resp *transport.Response, out interface{}) error {
	if out == nil || resp == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return apierrors.NewDecodeError(out, resp.StatusCode, resp.Body, err)
	}
	return nil
}
