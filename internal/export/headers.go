package export

import (
	"strings"

	"github.com/dgnsrekt/netpanel/internal/types"
)

// HeaderLines renders one "name: value" line per header.
func HeaderLines(headers []types.Header) string {
	lines := make([]string, len(headers))
	for i, h := range headers {
		lines[i] = h.Name + ": " + h.Value
	}
	return strings.Join(lines, "\n")
}

// Headers renders the request headers, a blank line, then the response headers.
func Headers(r types.CapturedRequest) string {
	return HeaderLines(r.RequestHeaders) + "\n\n" + HeaderLines(r.ResponseHeaders)
}

// ResponseBody returns the raw response body, or "" when there is none.
func ResponseBody(r types.CapturedRequest) string {
	return r.ResponseBody.OrElse("")
}

// RequestBody returns the raw request body, or "" when there is none.
func RequestBody(r types.CapturedRequest) string {
	return r.RequestBody.OrElse("")
}

func headerValue(headers []types.Header, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
