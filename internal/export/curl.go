package export

import (
	"strings"

	"github.com/dgnsrekt/netpanel/internal/types"
)

const curlContinuation = " \\\n  "

// Curl renders r as a multi-line curl command. Content-Length is left for
// curl to compute.
func Curl(r types.CapturedRequest) string {
	parts := []string{
		"curl " + shellQuote(r.URL),
		"-X " + r.Method,
	}
	for _, h := range r.RequestHeaders {
		if strings.EqualFold(h.Name, "content-length") {
			continue
		}
		parts = append(parts, "-H "+shellQuote(h.Name+": "+h.Value))
	}
	if body, ok := r.RequestBody.Get(); ok {
		parts = append(parts, "--data-raw "+shellQuote(body))
	}
	return strings.Join(parts, curlContinuation)
}

// shellQuote wraps s in single quotes, closing and reopening the quoted
// string around each embedded quote.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
