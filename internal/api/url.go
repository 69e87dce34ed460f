package api

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	apierrors "github.com/tombee/apibind/pkg/errors"
)

var placeholderRegex = regexp.MustCompile(`\{([^{}]+)\}`)

// BuildURL substitutes {param} placeholders in a path template.
// Values are path-escaped, so "a/b" becomes "a%2Fb".
// Path templates use {param} syntax (e.g., "/repos/{owner}/{repo}/issues").
func BuildURL(pathTemplate string, params map[string]string) (string, error) {
	var missing []string
	path := placeholderRegex.ReplaceAllStringFunc(pathTemplate, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := params[name]
		if !ok || value == "" {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(value)
	})

	if len(missing) > 0 {
		return "", &apierrors.ValidationError{
			Field:   missing[0],
			Message: fmt.Sprintf("missing required path parameter: %s", strings.Join(missing, ", ")),
		}
	}
	return path, nil
}

// BuildQuery encodes values as a query string including the leading "?".
// Nil values and empty strings are skipped; slices become repeated keys.
// Returns "" when nothing remains.
func BuildQuery(values map[string]interface{}) string {
	q := url.Values{}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := values[key].(type) {
		case nil:
		case string:
			if v != "" {
				q.Add(key, v)
			}
		case []string:
			for _, s := range v {
				q.Add(key, s)
			}
		case fmt.Stringer:
			q.Add(key, v.String())
		default:
			q.Add(key, fmt.Sprint(v))
		}
	}

	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// WithQuery appends query values to path, merging with any query it already has.
func WithQuery(path string, values map[string]interface{}) string {
	query := BuildQuery(values)
	if query == "" {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&" + query[1:]
	}
	return path + query
}
