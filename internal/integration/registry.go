// Package integration opens configured API services: it resolves their
// credentials, builds the authorizer, transport and rate limiter, and hands
// them to the matching binding.
package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/tombee/apibind/internal/api"
	"github.com/tombee/apibind/internal/auth"
	"github.com/tombee/apibind/internal/config"
	"github.com/tombee/apibind/internal/integration/github"
	"github.com/tombee/apibind/internal/integration/slack"
	"github.com/tombee/apibind/internal/log"
	"github.com/tombee/apibind/internal/secrets"
	"github.com/tombee/apibind/internal/transport"
	apierrors "github.com/tombee/apibind/pkg/errors"
	"github.com/tombee/apibind/pkg/httpclient"
)

// Binding is an opened service client.
type Binding interface {
	Name() string
	Operations() []api.OperationInfo
}

// Factory describes how to build one binding.
type Factory struct {
	// BaseURL is used when the service config does not set one.
	BaseURL string

	// RateLimiter returns the limiter applied when the service config has no
	// rate_limit. Nil means unlimited.
	RateLimiter func() transport.RateLimiter

	// New builds the binding over a prepared transport and authorizer.
	New func(tr transport.Transport, authz auth.Authorizer, logger *slog.Logger) (Binding, error)
}

// BuiltinRegistry holds the built-in bindings by name.
var BuiltinRegistry = map[string]Factory{
	"github": {
		BaseURL: github.DefaultBaseURL,
		New: func(tr transport.Transport, authz auth.Authorizer, logger *slog.Logger) (Binding, error) {
			c, err := github.New(github.Config{Transport: tr, Authorizer: authz, Logger: logger})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	},
	"slack": {
		BaseURL:     slack.DefaultBaseURL,
		RateLimiter: slack.DefaultRateLimiter,
		New: func(tr transport.Transport, authz auth.Authorizer, logger *slog.Logger) (Binding, error) {
			c, err := slack.New(slack.Config{Transport: tr, Authorizer: authz, Logger: logger})
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	},
}

// Names returns the built-in binding names in sorted order.
func Names() []string {
	names := make([]string, 0, len(BuiltinRegistry))
	for name := range BuiltinRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deps are shared by every service opened from one configuration.
type Deps struct {
	// HTTPClient carries both API requests and token exchanges (required).
	// Build it with httpclient.New.
	HTTPClient *http.Client

	// Secrets resolves credential references. Nil uses the env, file and
	// keychain backends.
	Secrets *secrets.Resolver

	Logger *slog.Logger
}

// Open builds the binding for service name.
func Open(ctx context.Context, name string, svc config.ServiceConfig, deps Deps) (Binding, error) {
	bindingName := svc.Binding
	if bindingName == "" {
		bindingName = name
	}
	factory, ok := BuiltinRegistry[bindingName]
	if !ok {
		return nil, &apierrors.ConfigError{
			Key:    "services." + name + ".binding",
			Reason: fmt.Sprintf("unknown binding %q (available: %s)", bindingName, strings.Join(Names(), ", ")),
		}
	}
	if deps.HTTPClient == nil {
		return nil, fmt.Errorf("open %s: http client is required", name)
	}
	if deps.Secrets == nil {
		deps.Secrets = secrets.NewDefaultResolver()
	}
	logger := log.WithService(maskedLogger(deps), name)

	baseURL := svc.BaseURL
	if baseURL == "" {
		baseURL = factory.BaseURL
	}

	cred, err := credential(ctx, name, svc.Auth, baseURL, deps.Secrets)
	if err != nil {
		return nil, err
	}

	var authz auth.Authorizer
	if cred != nil {
		authz, err = auth.New(cred, deps.HTTPClient,
			auth.WithName(name),
			auth.WithLogger(log.WithComponent(logger, "auth")),
			auth.WithRefreshSkew(svc.Auth.RefreshSkew),
		)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
	}

	tr, err := transport.NewHTTPTransport(&transport.HTTPTransportConfig{
		BaseURL:     baseURL,
		Client:      deps.HTTPClient,
		Headers:     svc.Headers,
		RetryConfig: svc.Retry,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	switch {
	case svc.RateLimit != nil:
		tr.SetRateLimiter(transport.NewRateLimiter(svc.RateLimit.RequestsPerSecond, svc.RateLimit.Burst))
	case factory.RateLimiter != nil:
		tr.SetRateLimiter(factory.RateLimiter())
	}

	b, err := factory.New(tr, authz, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	logger.Debug("service opened", "binding", bindingName, "base_url", baseURL, "auth", svc.Auth.Type)
	return b, nil
}

// OpenAll opens every service in cfg. A nil deps.HTTPClient is built from cfg.HTTP.
func OpenAll(ctx context.Context, cfg *config.Config, deps Deps) (map[string]Binding, error) {
	if deps.Secrets == nil {
		deps.Secrets = secrets.NewDefaultResolver()
	}
	if deps.HTTPClient == nil {
		httpCfg := cfg.HTTP
		httpCfg.Logger = log.WithComponent(maskedLogger(deps), "http")
		client, err := httpclient.New(httpCfg)
		if err != nil {
			return nil, &apierrors.ConfigError{Key: "http", Reason: "invalid http client configuration", Cause: err}
		}
		deps.HTTPClient = client
	}

	bindings := make(map[string]Binding, len(cfg.Services))
	for _, name := range cfg.ServiceNames() {
		b, err := Open(ctx, name, cfg.Services[name], deps)
		if err != nil {
			return nil, err
		}
		bindings[name] = b
	}
	return bindings, nil
}

// maskedLogger redacts every secret deps.Secrets has resolved.
func maskedLogger(deps Deps) *slog.Logger {
	return slog.New(deps.Secrets.Masker().Handler(log.OrDefault(deps.Logger).Handler()))
}

// credential resolves the secret references in a and returns the matching
// auth.Credential, or nil for unauthenticated services.
func credential(ctx context.Context, name string, a config.AuthConfig, baseURL string, r *secrets.Resolver) (auth.Credential, error) {
	resolve := func(field, ref string) (string, error) {
		v, err := r.Resolve(ctx, ref)
		if err != nil {
			return "", &apierrors.ConfigError{
				Key:    "services." + name + ".auth." + field,
				Reason: "failed to resolve secret",
				Cause:  err,
			}
		}
		return v, nil
	}

	switch a.Type {
	case "", config.AuthNone:
		return nil, nil

	case config.AuthStatic:
		token, err := resolve("token", a.Token)
		if err != nil {
			return nil, err
		}
		return auth.StaticCredential{Token: token, Scheme: a.Scheme}, nil

	case config.AuthAppInstallation:
		pemData, err := resolve("private_key", a.PrivateKey)
		if err != nil {
			return nil, err
		}
		key, err := auth.ParsePrivateKey([]byte(pemData))
		if err != nil {
			return nil, &apierrors.ConfigError{
				Key:    "services." + name + ".auth.private_key",
				Reason: "invalid private key",
				Cause:  err,
			}
		}
		return auth.AppCredential{
			AppID:          a.AppID,
			InstallationID: a.InstallationID,
			PrivateKey:     key,
			BaseURL:        baseURL,
		}, nil

	case config.AuthClientCredentials:
		secret, err := resolve("client_secret", a.ClientSecret)
		if err != nil {
			return nil, err
		}
		return auth.ClientCredentials{
			ClientID:     a.ClientID,
			ClientSecret: secret,
			TokenURL:     a.TokenURL,
			Scopes:       a.Scopes,
		}, nil

	default:
		return nil, &apierrors.ConfigError{
			Key:    "services." + name + ".auth.type",
			Reason: fmt.Sprintf("unsupported auth type %q", a.Type),
		}
	}
}
