package urlutil

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

var ErrUnsupportedScheme = errors.New("url scheme must be http or https")

// Normalize rewrites a URL into the canonical form used for frontier and
// link dedup: lowercased scheme and host, sorted query, no fragment, and a
// single trailing-slash rule (empty path becomes "/", deeper paths lose a
// trailing slash). Normalizing twice yields the same string.
func Normalize(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	return NormalizeURL(parsed)
}

// NormalizeURL is Normalize for an already-parsed URL.
func NormalizeURL(u *url.URL) (string, error) {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrUnsupportedScheme
	}
	host := strings.ToLower(u.Host)

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	} else if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	normalized := scheme + "://" + host + path
	if query := sortedQuery(u); query != "" {
		normalized += "?" + query
	}
	return normalized, nil
}

// Query parameters are reordered by key (stable for equal keys) so that
// ?b=2&a=1 and ?a=1&b=2 dedup to the same URL.
func sortedQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return u.RawQuery
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(key))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(value))
		}
	}
	return sb.String()
}

// Resolve resolves a possibly-relative href against a base URL and
// normalizes the result. The fragment is dropped before normalization.
func Resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return NormalizeURL(resolved)
}

// Host returns the lowercased host of a URL without any "www." prefix.
// Used for internal/external classification so www.example.com and
// example.com count as the same site.
func Host(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www."), nil
}

// SameSite reports whether two URLs belong to the same registrable host,
// ignoring a leading "www.".
func SameSite(a, b string) bool {
	hostA, errA := Host(a)
	hostB, errB := Host(b)
	if errA != nil || errB != nil {
		return false
	}
	return hostA != "" && hostA == hostB
}
