// Package httpkit provides the base-URL normalization, request cloning, and
// TLS-transport helpers shared by the HPKE and pinned-TLS transports, adapted
// from the corpus's infrastructure/httputil package.
package httpkit

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeBaseURL trims whitespace/trailing slash and validates that raw is an
// absolute http(s) URL with no user info, query, or fragment.
func NormalizeBaseURL(raw string) (string, *url.URL, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", nil, fmt.Errorf("base URL is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", nil, fmt.Errorf("base URL must be a valid absolute URL")
	}
	if parsed.User != nil {
		return "", nil, fmt.Errorf("base URL must not include user info")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", nil, fmt.Errorf("base URL scheme must be http or https")
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", nil, fmt.Errorf("base URL must not include query or fragment")
	}

	return trimmed, parsed, nil
}

// ResolveURL resolves ref against base per RFC 3986 (spec §8 round-trip
// property): a relative path is joined onto base's path, an absolute URL is
// returned unchanged. base is treated as a directory — callers pass baseURLs
// like ".../v1" after NormalizeBaseURL has trimmed the trailing slash, and
// RFC 3986's merge step would otherwise drop the last path segment entirely
// (".../v1" + "echo" => ".../echo", not ".../v1/echo").
func ResolveURL(base *url.URL, ref string) (*url.URL, error) {
	parsedRef, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL %q: %w", ref, err)
	}
	dir := *base
	if !strings.HasSuffix(dir.Path, "/") {
		dir.Path += "/"
		if dir.RawPath != "" {
			dir.RawPath += "/"
		}
	}
	return dir.ResolveReference(parsedRef), nil
}
