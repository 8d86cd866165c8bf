package capture

import (
	"net/url"
	"strings"
	"time"

	"github.com/dgnsrekt/netpanel/internal/types"
)

var staticExtensions = map[string]types.ResourceKind{
	".js":    types.KindScript,
	".mjs":   types.KindScript,
	".css":   types.KindStylesheet,
	".png":   types.KindImage,
	".jpg":   types.KindImage,
	".jpeg":  types.KindImage,
	".gif":   types.KindImage,
	".svg":   types.KindImage,
	".ico":   types.KindImage,
	".webp":  types.KindImage,
	".avif":  types.KindImage,
	".woff":  types.KindOther,
	".woff2": types.KindOther,
	".ttf":   types.KindOther,
	".otf":   types.KindOther,
	".eot":   types.KindOther,
}

// normalize builds the log entry for ev. The response body is always absent
// here; it arrives later through Log.completeBody.
func normalize(id string, ev Finished) types.CapturedRequest {
	startedAt := ev.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	elapsed := ev.ElapsedMillis
	if elapsed < 0 {
		elapsed = 0
	}
	size := ev.SizeBytes
	if size < 0 {
		size = 0
	}

	req := types.CapturedRequest{
		ID:              id,
		TabID:           ev.TabID,
		URL:             ev.URL,
		Method:          strings.ToUpper(strings.TrimSpace(ev.Method)),
		Status:          ev.Status,
		StatusText:      ev.StatusText,
		ElapsedMillis:   elapsed,
		SizeBytes:       size,
		MimeType:        ev.MimeType,
		ResourceType:    resourceKind(ev.ResourceType, ev.MimeType, ev.URL),
		RequestHeaders:  append([]types.Header{}, ev.RequestHeaders...),
		ResponseHeaders: append([]types.Header{}, ev.ResponseHeaders...),
		RequestBody:     ev.RequestBody,
		ResponseBody:    types.None[string](),
		StartedAt:       startedAt.UTC().Format(time.RFC3339Nano),
		ServerAddress:   types.TextOf(ev.ServerAddress),
	}
	if body, ok := req.RequestBody.Get(); ok && body == "" {
		req.RequestBody = types.None[string]()
	}
	return req
}

// resourceKind maps the host's tag when there is one and otherwise infers a
// kind from the MIME type and URL extension.
func resourceKind(hostTag, mimeType, rawURL string) types.ResourceKind {
	if hostTag != "" {
		if k, ok := types.ParseResourceKind(hostTag); ok {
			return k
		}
		return types.KindOther
	}
	return inferResourceKind(mimeType, rawURL)
}

func inferResourceKind(mimeType, rawURL string) types.ResourceKind {
	if mimeType != "" {
		return types.KindFetch
	}
	p := urlPath(rawURL)
	if dot := strings.LastIndexByte(p, '.'); dot >= 0 {
		if k, ok := staticExtensions[p[dot:]]; ok {
			return k
		}
	}
	return types.KindFetch
}

func urlPath(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return strings.ToLower(u.Path)
	}
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(p)
}
