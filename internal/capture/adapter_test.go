package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/netpanel/internal/types"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource is a synthetic Source that lets tests emit events directly.
type fakeSource struct {
	mu      sync.Mutex
	handler func(Finished)
	err     error
}

func (s *fakeSource) Subscribe(fn func(Finished)) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	s.handler = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.handler = nil
		s.mu.Unlock()
	}, nil
}

func (s *fakeSource) emit(ev Finished) {
	s.mu.Lock()
	fn := s.handler
	s.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func staticBody(body string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return body, nil }
}

// waitForBody polls until the entry's response body has landed.
func waitForBody(t *testing.T, l *Log, id string) types.CapturedRequest {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, ok := l.Get(id)
		if ok && got.ResponseBody.IsPresent() {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("response body for %s did not arrive", id)
		}
		time.Sleep(time.Millisecond)
	}
}

func newStartedAdapter(t *testing.T, opts Options) (*Adapter, *fakeSource) {
	t.Helper()
	src := &fakeSource{}
	a := NewAdapter(src, NewLog(), opts)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return a, src
}

func TestRecordingOffDropsEvents(t *testing.T) {
	a, src := newStartedAdapter(t, Options{Recording: true})

	src.emit(Finished{URL: "https://example.com/a", Method: "get", Status: 200})
	a.SetRecording(false)
	src.emit(Finished{URL: "https://example.com/paused", Method: "GET", Status: 200})
	a.SetRecording(true)
	src.emit(Finished{URL: "https://example.com/b", Method: "GET", Status: 200})
	a.Close()

	var urls []string
	for _, r := range a.Log().Snapshot() {
		urls = append(urls, r.URL)
	}
	want := []string{"https://example.com/a", "https://example.com/b"}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Fatalf("logged URLs mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleRecordingKeepsEntries(t *testing.T) {
	a, src := newStartedAdapter(t, Options{Recording: true})
	src.emit(Finished{URL: "https://example.com/a", Method: "GET"})

	if got := a.ToggleRecording(); got {
		t.Fatalf("ToggleRecording() = %v; want false", got)
	}
	if got := a.Log().Len(); got != 1 {
		t.Fatalf("Len() after pause = %d; want 1", got)
	}
	if got := a.ToggleRecording(); !got {
		t.Fatalf("ToggleRecording() = %v; want true", got)
	}
	a.Close()
}

func TestEntryVisibleBeforeBodyArrives(t *testing.T) {
	a, src := newStartedAdapter(t, Options{Recording: true})

	release := make(chan struct{})
	src.emit(Finished{
		URL:    "https://api.example.com/users",
		Method: "GET",
		Status: 200,
		GetContent: func(ctx context.Context) (string, error) {
			select {
			case <-release:
				return `{"id":1}`, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
	})

	entries := a.Log().Snapshot()
	if len(entries) != 1 {
		t.Fatalf("Snapshot() len = %d; want 1", len(entries))
	}
	if entries[0].ResponseBody.IsPresent() {
		t.Fatalf("ResponseBody present before fetch resolved")
	}

	close(release)
	got := waitForBody(t, a.Log(), entries[0].ID)
	a.Close()

	if body, ok := got.ResponseBody.Get(); !ok || body != `{"id":1}` {
		t.Fatalf("ResponseBody = %q, %v; want %q", body, ok, `{"id":1}`)
	}
}

func blockingBody(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCloseAbortsPendingFetches(t *testing.T) {
	a, src := newStartedAdapter(t, Options{Recording: true, BodyTimeout: 3 * time.Second})
	src.emit(Finished{URL: "https://example.com/hang", Method: "GET", GetContent: blockingBody})

	start := time.Now()
	a.Close()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Close() took %v; want it to abort the pending fetch", elapsed)
	}
	got, _ := a.Log().Get("req-1")
	if got.ResponseBody.IsPresent() {
		t.Fatalf("ResponseBody present after aborted fetch")
	}
}

func TestStartContextCancelsFetches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{}
	a := NewAdapter(src, NewLog(), Options{Recording: true, BodyTimeout: 3 * time.Second})
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Close()

	done := make(chan error, 1)
	src.emit(Finished{URL: "https://example.com/hang", Method: "GET", GetContent: func(ctx context.Context) (string, error) {
		_, err := blockingBody(ctx)
		done <- err
		return "", err
	}})
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("fetch error = %v; want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("fetch still running after Start context was canceled")
	}
}

func TestBodyCompletesAtMostOnce(t *testing.T) {
	log := NewLog()
	var events []EventKind
	log.Observe(func(ev Event) { events = append(events, ev.Kind) })

	a := NewAdapter(nil, log, Options{Recording: true})
	a.Handle(Finished{URL: "https://example.com/x", Method: "GET", GetContent: staticBody("first")})
	waitForBody(t, log, "req-1")
	a.Close()

	if log.completeBody("req-1", "second", false) {
		t.Fatalf("completeBody() = true on an entry that already has a body")
	}
	got, _ := log.Get("req-1")
	if body, _ := got.ResponseBody.Get(); body != "first" {
		t.Fatalf("ResponseBody = %q; want %q", body, "first")
	}
	want := []EventKind{EventAdded, EventCompleted}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestBodyFetchFailureLeavesBodyAbsent(t *testing.T) {
	a := NewAdapter(nil, NewLog(), Options{Recording: true})
	a.Handle(Finished{
		URL:        "https://example.com/broken",
		Method:     "GET",
		GetContent: func(context.Context) (string, error) { return "", errors.New("no resource with given identifier") },
	})
	a.Close()

	got, ok := a.Log().Get("req-1")
	if !ok {
		t.Fatalf("Get(req-1) missing")
	}
	if got.ResponseBody.IsPresent() {
		t.Fatalf("ResponseBody present after failed fetch")
	}
}

func TestIDsAreMonotonicAcrossClear(t *testing.T) {
	a := NewAdapter(nil, NewLog(), Options{Recording: true})
	a.Handle(Finished{URL: "https://example.com/1", Method: "GET"})
	a.Handle(Finished{URL: "https://example.com/2", Method: "GET"})
	a.Clear()
	if !a.Recording() {
		t.Fatalf("Clear() changed recording state")
	}
	a.Handle(Finished{URL: "https://example.com/3", Method: "GET"})
	a.Close()

	entries := a.Log().Snapshot()
	if len(entries) != 1 || entries[0].ID != "req-3" {
		t.Fatalf("Snapshot() = %+v; want single entry req-3", entries)
	}
}

func TestClearBeforeBodyArrivesIgnoresCompletion(t *testing.T) {
	a := NewAdapter(nil, NewLog(), Options{Recording: true})
	release := make(chan struct{})
	a.Handle(Finished{
		URL:    "https://example.com/slow",
		Method: "GET",
		GetContent: func(context.Context) (string, error) {
			<-release
			return "late", nil
		},
	})
	a.Clear()
	close(release)
	a.Close()

	if got := a.Log().Len(); got != 0 {
		t.Fatalf("Len() = %d; want 0", got)
	}
}

func TestLargeBodyIsTruncated(t *testing.T) {
	a := NewAdapter(nil, NewLog(), Options{Recording: true, MaxBodyBytes: 4})
	a.Handle(Finished{URL: "https://example.com/big", Method: "GET", GetContent: staticBody("abcdefgh")})
	got := waitForBody(t, a.Log(), "req-1")
	a.Close()

	if body, _ := got.ResponseBody.Get(); body != "abcd" || !got.BodyTruncated {
		t.Fatalf("ResponseBody = %q truncated=%v; want %q truncated=true", body, got.BodyTruncated, "abcd")
	}
}

func TestStartWithUnavailableSource(t *testing.T) {
	a := NewAdapter(&fakeSource{err: ErrSourceUnavailable}, NewLog(), Options{Recording: true})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v; want nil", err)
	}
	if a.Available() {
		t.Fatalf("Available() = true; want false")
	}
	if got := a.Log().Len(); got != 0 {
		t.Fatalf("Len() = %d; want 0", got)
	}
	a.Close()
}

func TestStartWrapsOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	a := NewAdapter(&fakeSource{err: boom}, NewLog(), Options{})
	err := a.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v; want wrapped %v", err, boom)
	}
	a.Close()
}

func TestNormalize(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := normalize("req-9", Finished{
		URL:            "https://api.example.com/users?page=2",
		Method:         "post",
		Status:         201,
		StatusText:     "Created",
		ElapsedMillis:  -3,
		SizeBytes:      42,
		MimeType:       "application/json",
		ResourceType:   "XHR",
		RequestHeaders: []types.Header{{Name: "Accept", Value: "*/*"}, {Name: "Accept", Value: "text/html"}},
		RequestBody:    types.Some(""),
		StartedAt:      started,
		ServerAddress:  "203.0.113.7",
	})

	if got.Method != "POST" {
		t.Fatalf("Method = %q; want POST", got.Method)
	}
	if got.ElapsedMillis != 0 {
		t.Fatalf("ElapsedMillis = %v; want 0", got.ElapsedMillis)
	}
	if got.ResourceType != types.KindXHR {
		t.Fatalf("ResourceType = %q; want xhr", got.ResourceType)
	}
	if got.RequestBody.IsPresent() {
		t.Fatalf("empty request body should be absent")
	}
	if got.ResponseBody.IsPresent() {
		t.Fatalf("ResponseBody should start absent")
	}
	if got.StartedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("StartedAt = %q", got.StartedAt)
	}
	if addr, ok := got.ServerAddress.Get(); !ok || addr != "203.0.113.7" {
		t.Fatalf("ServerAddress = %q, %v", addr, ok)
	}
	if len(got.RequestHeaders) != 2 {
		t.Fatalf("RequestHeaders = %+v; want duplicates preserved", got.RequestHeaders)
	}
}

func TestResourceKind(t *testing.T) {
	tests := []struct {
		name    string
		hostTag string
		mime    string
		url     string
		want    types.ResourceKind
	}{
		{"host_tag_wins", "Script", "application/json", "https://x.test/a", types.KindScript},
		{"unknown_host_tag", "Font", "", "https://x.test/a.woff2", types.KindOther},
		{"static_js_without_mime", "", "", "https://cdn.x.test/app.js?v=3", types.KindScript},
		{"static_css_without_mime", "", "", "https://cdn.x.test/site.CSS", types.KindStylesheet},
		{"static_image_without_mime", "", "", "https://cdn.x.test/logo.png", types.KindImage},
		{"font_without_mime", "", "", "https://cdn.x.test/f.woff", types.KindOther},
		{"mime_present_is_api_like", "", "application/javascript", "https://cdn.x.test/app.js", types.KindFetch},
		{"json_suffix_is_api_like", "", "", "https://api.x.test/data.json", types.KindFetch},
		{"no_extension_is_api_like", "", "", "https://api.x.test/users", types.KindFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resourceKind(tt.hostTag, tt.mime, tt.url); got != tt.want {
				t.Fatalf("resourceKind(%q, %q, %q) = %q; want %q", tt.hostTag, tt.mime, tt.url, got, tt.want)
			}
		})
	}
}
