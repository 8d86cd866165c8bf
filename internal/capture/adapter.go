package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/netpanel/internal/metrics"
)

const defaultBodyTimeout = 10 * time.Second

// idSequence issues session-scoped request IDs. IDs are never reused, even
// after the log is cleared.
type idSequence struct {
	n atomic.Uint64
}

func (s *idSequence) next() string {
	return "req-" + strconv.FormatUint(s.n.Add(1), 10)
}

// Options configures an Adapter.
type Options struct {
	Recording    bool
	MaxBodyBytes int
	BodyTimeout  time.Duration
	Metrics      *metrics.Metrics
}

// Adapter turns host notifications into log entries while recording is on.
type Adapter struct {
	source  Source
	log     *Log
	ids     idSequence
	metrics *metrics.Metrics

	recording    atomic.Bool
	available    atomic.Bool
	maxBodyBytes int
	bodyTimeout  time.Duration

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	stopParent  func() bool
	fetches     sync.WaitGroup
}

func NewAdapter(source Source, log *Log, opts Options) *Adapter {
	if opts.BodyTimeout <= 0 {
		opts.BodyTimeout = defaultBodyTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		source:       source,
		log:          log,
		metrics:      opts.Metrics,
		maxBodyBytes: opts.MaxBodyBytes,
		bodyTimeout:  opts.BodyTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	a.recording.Store(opts.Recording)
	log.Observe(func(ev Event) {
		a.metrics.SetLogEntries(ev.Len)
	})
	return a
}

// Start subscribes to the source. An unavailable source is not an error: the
// adapter stays usable with an empty log and the condition is logged once.
// Canceling ctx aborts in-flight body fetches.
func (a *Adapter) Start(ctx context.Context) error {
	stop := context.AfterFunc(ctx, a.cancel)
	a.mu.Lock()
	a.stopParent = stop
	a.mu.Unlock()

	if a.source == nil {
		slog.Info("Network capture unavailable, continuing with an empty log")
		return nil
	}

	unsubscribe, err := a.source.Subscribe(a.Handle)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			slog.Info("Network capture unavailable, continuing with an empty log", "reason", err)
			return nil
		}
		return fmt.Errorf("subscribe to capture source: %w", err)
	}

	a.mu.Lock()
	a.unsubscribe = unsubscribe
	a.mu.Unlock()
	a.available.Store(true)
	slog.Info("Network capture started", "recording", a.Recording())
	return nil
}

// Close unsubscribes, aborts in-flight body fetches and waits for them to
// return.
func (a *Adapter) Close() {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	stop := a.stopParent
	a.stopParent = nil
	a.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if stop != nil {
		stop()
	}
	a.available.Store(false)
	a.cancel()
	a.fetches.Wait()
}

// Available reports whether the adapter is subscribed to a live source.
func (a *Adapter) Available() bool {
	return a.available.Load()
}

func (a *Adapter) Recording() bool {
	return a.recording.Load()
}

func (a *Adapter) SetRecording(on bool) {
	if a.recording.Swap(on) != on {
		slog.Info("Recording changed", "recording", on)
	}
}

// ToggleRecording flips recording and returns the new state.
func (a *Adapter) ToggleRecording() bool {
	for {
		cur := a.recording.Load()
		if a.recording.CompareAndSwap(cur, !cur) {
			slog.Info("Recording changed", "recording", !cur)
			return !cur
		}
	}
}

// Clear empties the log without touching the recording state.
func (a *Adapter) Clear() {
	a.log.Clear()
}

// Log returns the log the adapter appends to.
func (a *Adapter) Log() *Log {
	return a.log
}

// Handle processes one host notification. Events that arrive while recording
// is off are dropped for good.
func (a *Adapter) Handle(ev Finished) {
	if !a.Recording() {
		a.metrics.Dropped()
		slog.Debug("Dropped request while paused", "url", truncateURL(ev.URL))
		return
	}

	id := a.ids.next()
	a.log.append(normalize(id, ev))
	a.metrics.Captured()

	if ev.GetContent == nil {
		return
	}

	a.fetches.Add(1)
	go func() {
		defer a.fetches.Done()
		a.fetchBody(id, ev.GetContent)
	}()
}

func (a *Adapter) fetchBody(id string, getContent func(context.Context) (string, error)) {
	ctx, cancel := context.WithTimeout(a.ctx, a.bodyTimeout)
	defer cancel()

	body, err := getContent(ctx)
	if err != nil {
		a.metrics.BodyFetchFailed()
		slog.Debug("Failed to get response body", "request_id", id, "error", err)
		return
	}
	if body == "" {
		return
	}

	kept, truncated, originalSize, bodyHash := truncateBody(body, a.maxBodyBytes)
	if truncated {
		a.metrics.BodyTruncated()
		slog.Warn("Response body truncated due to max size", "request_id", id, "original_size", originalSize, "kept_size", len(kept), "sha256", bodyHash)
	}

	if !a.log.completeBody(id, kept, truncated) {
		slog.Debug("Response body arrived for a missing or completed entry", "request_id", id)
	}
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
