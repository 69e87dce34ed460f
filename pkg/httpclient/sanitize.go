package httpclient

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameter name fragments whose values are
// redacted from logs. Matching is case-insensitive and by substring, so
// "access_token" and "client_secret" are caught.
var sensitiveParams = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
	"assertion",
	"signature",
}

// sanitizeURL returns u as a string with sensitive query values and any
// userinfo replaced.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	if safe.User != nil {
		safe.User = url.User("[REDACTED]")
	}

	if safe.RawQuery != "" {
		q := safe.Query()
		for param := range q {
			if isSensitiveParam(param) {
				q.Set(param, "[REDACTED]")
			}
		}
		safe.RawQuery = q.Encode()
	}
	return safe.String()
}

func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
