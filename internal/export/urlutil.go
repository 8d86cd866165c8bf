package export

import (
	"net/url"
	"strings"
)

// parseAbsolute accepts only URLs with a scheme. Anything else is treated as
// unparseable so callers fall back to the raw text.
func parseAbsolute(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	return u, true
}

func pathOf(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	p := u.EscapedPath()
	if p == "" && u.Host != "" {
		return "/"
	}
	return p
}

// URLPath returns the path of raw, or raw itself when it does not parse.
func URLPath(raw string) string {
	u, ok := parseAbsolute(raw)
	if !ok {
		return raw
	}
	return pathOf(u)
}

// URLPathAndQuery returns the path plus "?query" when a query is present.
func URLPathAndQuery(raw string) string {
	u, ok := parseAbsolute(raw)
	if !ok {
		return raw
	}
	if u.RawQuery == "" {
		return pathOf(u)
	}
	return pathOf(u) + "?" + u.RawQuery
}

// Domain returns the host name of raw without port.
func Domain(raw string) string {
	u, ok := parseAbsolute(raw)
	if !ok || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

type queryPair struct {
	key, value string
}

// queryPairs splits a raw query in its original order, keeping duplicates.
func queryPairs(rawQuery string) []queryPair {
	var out []queryPair
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out = append(out, queryPair{key: unescape(k), value: unescape(v)})
	}
	return out
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}
