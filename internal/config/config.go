// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the apibind YAML configuration: logging, the shared
// HTTP client, and one entry per API service with its credential.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/apibind/internal/log"
	"github.com/tombee/apibind/internal/secrets"
	"github.com/tombee/apibind/internal/transport"
	apierrors "github.com/tombee/apibind/pkg/errors"
	"github.com/tombee/apibind/pkg/httpclient"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Auth types accepted in services.<name>.auth.type.
const (
	AuthNone              = "none"
	AuthStatic            = "static"
	AuthAppInstallation   = "app_installation"
	AuthClientCredentials = "client_credentials"
)

// Config is the root configuration.
type Config struct {
	// Log configures the structured logger.
	Log log.Config `yaml:"log"`

	// HTTP configures the client shared by every service and token exchange.
	HTTP httpclient.Config `yaml:"http"`

	// Services maps a service name to its connection settings.
	Services map[string]ServiceConfig `yaml:"services"`
}

// ServiceConfig describes one API service.
type ServiceConfig struct {
	// Binding selects the integration. Defaults to the service name, so a
	// service called "github" uses the GitHub binding.
	Binding string `yaml:"binding,omitempty"`

	// BaseURL overrides the binding's default API root.
	BaseURL string `yaml:"base_url,omitempty"`

	// RateLimit throttles requests to this service. Nil uses the binding default.
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`

	// Retry enables whole-request retry at the transport layer.
	// Nil means a single attempt.
	Retry *transport.RetryConfig `yaml:"retry,omitempty"`

	// Headers are sent with every request to this service.
	Headers map[string]string `yaml:"headers,omitempty"`

	Auth AuthConfig `yaml:"auth"`
}

// RateLimitConfig is a token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AuthConfig holds a credential. Token, PrivateKey and ClientSecret must be
// secret references; they are resolved when the service is opened.
type AuthConfig struct {
	// Type is none, static, app_installation or client_credentials.
	Type string `yaml:"type"`

	// static
	Token  string `yaml:"token,omitempty"`
	Scheme string `yaml:"scheme,omitempty"`

	// app_installation
	AppID          string `yaml:"app_id,omitempty"`
	InstallationID string `yaml:"installation_id,omitempty"`
	PrivateKey     string `yaml:"private_key,omitempty"`

	// client_credentials
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	TokenURL     string   `yaml:"token_url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`

	// RefreshSkew treats cached tokens as expired this long before their
	// expiry. Zero refreshes only once a token has actually expired.
	RefreshSkew time.Duration `yaml:"refresh_skew,omitempty"`
}

// Default returns a Config with sensible defaults and no services.
func Default() *Config {
	return &Config{
		Log: log.Config{
			Level:  "info",
			Format: log.FormatJSON,
		},
		HTTP:     httpclient.DefaultConfig(),
		Services: map[string]ServiceConfig{},
	}
}

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result. An empty path yields the
// defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &apierrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	return cfg.complete()
}

// Parse is Load for configuration already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &apierrors.ConfigError{
			Key:    "config_file",
			Reason: "failed to parse YAML",
			Cause:  err,
		}
	}

	return cfg.complete()
}

func (c *Config) complete() (*Config, error) {
	c.applyDefaults()
	c.loadFromEnv()

	if err := c.Validate(); err != nil {
		return nil, &apierrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}
	return c, nil
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// applyDefaults fills in zero values, so a file that only lists services
// still produces a usable configuration.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = defaults.HTTP.Timeout
	}
	if c.HTTP.RetryBackoff == 0 {
		c.HTTP.RetryBackoff = defaults.HTTP.RetryBackoff
	}
	if c.HTTP.MaxBackoff == 0 {
		c.HTTP.MaxBackoff = defaults.HTTP.MaxBackoff
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaults.HTTP.UserAgent
	}

	if c.Services == nil {
		c.Services = map[string]ServiceConfig{}
	}
	for name, svc := range c.Services {
		if svc.Binding == "" {
			svc.Binding = name
		}
		if svc.Auth.Type == "" {
			svc.Auth.Type = AuthNone
		}
		if svc.RateLimit != nil && svc.RateLimit.Burst == 0 {
			svc.RateLimit.Burst = 1
		}
		if svc.Retry != nil {
			fillRetryDefaults(svc.Retry)
		}
		c.Services[name] = svc
	}
}

func fillRetryDefaults(r *transport.RetryConfig) {
	d := transport.DefaultRetryConfig()
	if r.MaxAttempts == 0 {
		r.MaxAttempts = d.MaxAttempts
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = d.InitialBackoff
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = d.MaxBackoff
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = d.BackoffFactor
	}
	if len(r.RetryableErrors) == 0 {
		r.RetryableErrors = d.RetryableErrors
	}
}

// loadFromEnv applies environment overrides.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("APIBIND_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = log.Format(strings.ToLower(val))
	}

	if val := os.Getenv("APIBIND_HTTP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HTTP.Timeout = d
		}
	}
	if val := os.Getenv("APIBIND_USER_AGENT"); val != "" {
		c.HTTP.UserAgent = val
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be one of trace, debug, info, warn, error, got %q", c.Log.Level))
	}
	if c.Log.Format != log.FormatJSON && c.Log.Format != log.FormatText {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, "http: "+err.Error())
	}

	for _, name := range c.ServiceNames() {
		errs = append(errs, validateService(name, c.Services[name])...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateService(name string, svc ServiceConfig) []string {
	var errs []string
	key := "services." + name

	if svc.BaseURL != "" {
		if err := validateURL(svc.BaseURL); err != nil {
			errs = append(errs, fmt.Sprintf("%s.base_url %v", key, err))
		}
	}

	if rl := svc.RateLimit; rl != nil {
		if rl.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Sprintf("%s.rate_limit.requests_per_second must be positive, got %v", key, rl.RequestsPerSecond))
		}
		if rl.Burst < 1 {
			errs = append(errs, fmt.Sprintf("%s.rate_limit.burst must be at least 1, got %d", key, rl.Burst))
		}
	}

	if svc.Retry != nil {
		if err := svc.Retry.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s.retry: %v", key, err))
		}
	}

	a := svc.Auth
	akey := key + ".auth"
	switch a.Type {
	case AuthNone:
	case AuthStatic:
		errs = append(errs, requireSecret(akey+".token", a.Token)...)
	case AuthAppInstallation:
		if a.AppID == "" {
			errs = append(errs, akey+".app_id is required for app_installation")
		}
		if a.InstallationID == "" {
			errs = append(errs, akey+".installation_id is required for app_installation")
		}
		errs = append(errs, requireSecret(akey+".private_key", a.PrivateKey)...)
	case AuthClientCredentials:
		if a.ClientID == "" {
			errs = append(errs, akey+".client_id is required for client_credentials")
		}
		errs = append(errs, requireSecret(akey+".client_secret", a.ClientSecret)...)
		if a.TokenURL == "" {
			errs = append(errs, akey+".token_url is required for client_credentials")
		} else if err := validateURL(a.TokenURL); err != nil {
			errs = append(errs, fmt.Sprintf("%s.token_url %v", akey, err))
		}
	default:
		errs = append(errs, fmt.Sprintf("%s.type must be one of none, static, app_installation, client_credentials, got %q", akey, a.Type))
	}

	if a.RefreshSkew < 0 {
		errs = append(errs, fmt.Sprintf("%s.refresh_skew must not be negative, got %v", akey, a.RefreshSkew))
	}

	return errs
}

// requireSecret rejects missing values and literal credentials.
func requireSecret(key, value string) []string {
	if value == "" {
		return []string{key + " is required"}
	}
	if !secrets.IsReference(value) {
		return []string{key + " must be a secret reference (${VAR}, env:VAR, file:/path or keychain:name), not a literal value"}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host, got %q", raw)
	}
	return nil
}

// ServiceNames returns the configured service names in sorted order.
func (c *Config) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service returns the settings for one service.
func (c *Config) Service(name string) (ServiceConfig, error) {
	svc, ok := c.Services[name]
	if !ok {
		return ServiceConfig{}, &apierrors.ConfigError{
			Key:    "services." + name,
			Reason: fmt.Sprintf("service not configured (available: %s)", strings.Join(c.ServiceNames(), ", ")),
		}
	}
	return svc, nil
}
