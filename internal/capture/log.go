package capture

import (
	"slices"
	"sync"

	"github.com/dgnsrekt/netpanel/internal/types"
)

// EventKind names a change to the log.
type EventKind string

const (
	EventAdded     EventKind = "request.added"
	EventCompleted EventKind = "request.completed"
	EventCleared   EventKind = "log.cleared"
)

// Event is delivered to observers after the log changes. Request is nil for
// EventCleared.
type Event struct {
	Kind    EventKind              `json:"kind"`
	Request *types.CapturedRequest `json:"request,omitempty"`
	Len     int                    `json:"len"`
}

// Log is the ordered, in-memory record of captured requests. Only the
// capture Adapter mutates it; everything else reads snapshots.
type Log struct {
	mu      sync.RWMutex
	entries []types.CapturedRequest
	index   map[string]int

	observersMu sync.RWMutex
	observers   []func(Event)
}

func NewLog() *Log {
	return &Log{index: make(map[string]int)}
}

// Observe registers fn to run after every change, outside the log's lock.
func (l *Log) Observe(fn func(Event)) {
	l.observersMu.Lock()
	l.observers = append(l.observers, fn)
	l.observersMu.Unlock()
}

func (l *Log) notify(ev Event) {
	l.observersMu.RLock()
	observers := slices.Clone(l.observers)
	l.observersMu.RUnlock()
	for _, fn := range observers {
		fn(ev)
	}
}

func (l *Log) append(req types.CapturedRequest) {
	l.mu.Lock()
	l.index[req.ID] = len(l.entries)
	l.entries = append(l.entries, req)
	n := len(l.entries)
	l.mu.Unlock()

	stored := req.Clone()
	l.notify(Event{Kind: EventAdded, Request: &stored, Len: n})
}

// completeBody sets the response body of id. It returns false when the entry
// is gone or already has a body, so a completion lands at most once.
func (l *Log) completeBody(id, body string, truncated bool) bool {
	l.mu.Lock()
	pos, ok := l.index[id]
	if !ok || l.entries[pos].ResponseBody.IsPresent() {
		l.mu.Unlock()
		return false
	}
	l.entries[pos].ResponseBody = types.Some(body)
	l.entries[pos].BodyTruncated = truncated
	done := l.entries[pos].Clone()
	n := len(l.entries)
	l.mu.Unlock()

	l.notify(Event{Kind: EventCompleted, Request: &done, Len: n})
	return true
}

// Clear empties the log. Issued IDs are never reused.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.index = make(map[string]int)
	l.mu.Unlock()

	l.notify(Event{Kind: EventCleared})
}

// Snapshot returns the entries in insertion order.
func (l *Log) Snapshot() []types.CapturedRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.CapturedRequest, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Clone()
	}
	return out
}

// Get returns the entry with the given id.
func (l *Log) Get(id string) (types.CapturedRequest, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.index[id]
	if !ok {
		return types.CapturedRequest{}, false
	}
	return l.entries[pos].Clone(), true
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
