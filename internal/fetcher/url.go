package fetcher

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL indicates the submitted URL failed validation.
var ErrInvalidURL = errors.New("invalid url")

// NormalizeURL validates a user-submitted URL and returns its canonical form.
//
// Input is trimmed, an https scheme is added when missing, and the host must
// contain at least one dot. Returns an error wrapping ErrInvalidURL when the
// input cannot be turned into a fetchable address.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if !strings.Contains(parsed.Hostname(), ".") {
		return "", fmt.Errorf("%w: malformed domain %q", ErrInvalidURL, parsed.Hostname())
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}

// BaseURL returns the scheme and host of u.
func BaseURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}

// SameDomain reports whether two URLs share a host, ignoring a www prefix.
func SameDomain(a, b string) bool {
	return stripWWW(hostOf(a)) == stripWWW(hostOf(b))
}

func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
