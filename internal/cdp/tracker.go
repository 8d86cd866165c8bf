package cdp

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/dgnsrekt/netpanel/internal/capture"
	"github.com/dgnsrekt/netpanel/internal/types"
)

const staleAfter = 5 * time.Minute

type pendingRequest struct {
	tabID        string
	url          string
	method       string
	headers      []types.Header
	body         types.Option[string]
	resourceType string
	started      time.Time
	wallTime     time.Time
	seenAt       time.Time
	response     *network.Response
	dataLength   int64
}

// tracker correlates the per-request CDP events into capture.Finished
// records. It is keyed by CDP request id, which survives redirects.
type tracker struct {
	mu      sync.Mutex
	pending map[network.RequestID]*pendingRequest
	now     func() time.Time
}

func newTracker() *tracker {
	return &tracker{
		pending: make(map[network.RequestID]*pendingRequest),
		now:     time.Now,
	}
}

// requestWillBeSent starts tracking ev. When it is a redirect hop, the
// previous hop is returned as finished.
func (t *tracker) requestWillBeSent(tabID string, ev *network.EventRequestWillBeSent) (capture.Finished, bool) {
	if ev.Request == nil {
		return capture.Finished{}, false
	}
	p := &pendingRequest{
		tabID:        tabID,
		url:          ev.Request.URL,
		method:       ev.Request.Method,
		headers:      headerList(ev.Request.Headers),
		body:         postData(ev.Request),
		resourceType: string(ev.Type),
		seenAt:       t.now(),
	}
	if ev.Timestamp != nil {
		p.started = ev.Timestamp.Time()
	}
	if ev.WallTime != nil {
		p.wallTime = ev.WallTime.Time()
	}

	t.mu.Lock()
	prev, redirected := t.pending[ev.RequestID]
	t.pending[ev.RequestID] = p
	t.mu.Unlock()

	if !redirected || ev.RedirectResponse == nil {
		return capture.Finished{}, false
	}
	prev.response = ev.RedirectResponse
	prev.dataLength = 0
	f := prev.finished(p.started, float64(ev.RedirectResponse.EncodedDataLength))
	return f, true
}

func (t *tracker) responseReceived(ev *network.EventResponseReceived) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.pending[ev.RequestID]; ok {
		p.response = ev.Response
		if ev.Type != "" {
			p.resourceType = string(ev.Type)
		}
	}
}

func (t *tracker) dataReceived(ev *network.EventDataReceived) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.pending[ev.RequestID]; ok {
		p.dataLength += ev.DataLength
	}
}

// loadingFinished stops tracking ev and returns the finished record. The
// caller attaches GetContent.
func (t *tracker) loadingFinished(ev *network.EventLoadingFinished) (capture.Finished, bool) {
	t.mu.Lock()
	p, ok := t.pending[ev.RequestID]
	if ok {
		delete(t.pending, ev.RequestID)
	}
	t.mu.Unlock()
	if !ok {
		return capture.Finished{}, false
	}

	var end time.Time
	if ev.Timestamp != nil {
		end = ev.Timestamp.Time()
	}
	return p.finished(end, ev.EncodedDataLength), true
}

func (t *tracker) loadingFailed(ev *network.EventLoadingFailed) {
	t.mu.Lock()
	p, ok := t.pending[ev.RequestID]
	delete(t.pending, ev.RequestID)
	t.mu.Unlock()
	if ok {
		slog.Debug("Request failed", "url", truncateURL(p.url), "error", ev.ErrorText, "canceled", ev.Canceled)
	}
}

// cleanupStale forgets requests that never finished.
func (t *tracker) cleanupStale() int {
	cutoff := t.now().Add(-staleAfter)
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, p := range t.pending {
		if p.seenAt.Before(cutoff) {
			delete(t.pending, id)
			removed++
		}
	}
	return removed
}

func (t *tracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (p *pendingRequest) finished(end time.Time, encodedLength float64) capture.Finished {
	f := capture.Finished{
		TabID:          p.tabID,
		URL:            p.url,
		Method:         p.method,
		ResourceType:   p.resourceType,
		RequestHeaders: p.headers,
		RequestBody:    p.body,
		StartedAt:      p.wallTime,
		SizeBytes:      p.dataLength,
	}
	if f.SizeBytes == 0 && encodedLength > 0 {
		f.SizeBytes = int64(encodedLength)
	}
	if !p.started.IsZero() && !end.IsZero() {
		f.ElapsedMillis = float64(end.Sub(p.started)) / float64(time.Millisecond)
	}
	if r := p.response; r != nil {
		f.Status = int(r.Status)
		f.StatusText = r.StatusText
		if f.StatusText == "" {
			f.StatusText = http.StatusText(f.Status)
		}
		f.MimeType = r.MimeType
		f.ResponseHeaders = headerList(r.Headers)
		f.ServerAddress = r.RemoteIPAddress
	}
	return f
}

// headerList flattens a CDP header map into name-sorted pairs. CDP folds
// repeated headers into one value separated by newlines; those are split
// back into separate pairs.
func headerList(h network.Headers) []types.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.Header, 0, len(names))
	for _, name := range names {
		value, ok := h[name].(string)
		if !ok {
			continue
		}
		for _, v := range strings.Split(value, "\n") {
			out = append(out, types.Header{Name: name, Value: v})
		}
	}
	return out
}

func postData(r *network.Request) types.Option[string] {
	if !r.HasPostData || len(r.PostDataEntries) == 0 {
		return types.None[string]()
	}
	var decoded []byte
	for _, entry := range r.PostDataEntries {
		if entry == nil || entry.Bytes == "" {
			continue
		}
		b, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			decoded = append(decoded, entry.Bytes...)
		} else {
			decoded = append(decoded, b...)
		}
	}
	return types.TextOf(string(decoded))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
