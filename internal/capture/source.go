package capture

import (
	"context"
	"errors"
	"time"

	"github.com/dgnsrekt/netpanel/internal/types"
)

// ErrSourceUnavailable is returned by a Source that cannot deliver events,
// for example when no browser is reachable.
var ErrSourceUnavailable = errors.New("capture source unavailable")

// Finished describes one finished request as reported by the host.
type Finished struct {
	TabID           string
	URL             string
	Method          string
	Status          int
	StatusText      string
	ElapsedMillis   float64
	SizeBytes       int64
	MimeType        string
	ResourceType    string // host tag, empty when the host has none
	RequestHeaders  []types.Header
	ResponseHeaders []types.Header
	RequestBody     types.Option[string]
	StartedAt       time.Time
	ServerAddress   string

	// GetContent retrieves the decoded response body. Nil when the host
	// cannot provide one.
	GetContent func(ctx context.Context) (string, error)
}

// Source delivers finished-request notifications.
type Source interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(Finished)) (unsubscribe func(), err error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(fn func(Finished)) (func(), error)

func (f SourceFunc) Subscribe(fn func(Finished)) (func(), error) {
	return f(fn)
}
