// Package clipboard writes exported text to the user's clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/mattn/go-isatty"
)

// ErrUnavailable is returned when no clipboard mechanism accepted the text.
var ErrUnavailable = errors.New("clipboard unavailable")

// Writer is the single "write text" capability callers depend on.
type Writer interface {
	WriteText(ctx context.Context, text string) error
}

// Func adapts a function to Writer.
type Func func(ctx context.Context, text string) error

func (f Func) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

// systemWriteAll is swapped out in tests.
var systemWriteAll = clipboard.WriteAll

// isTerminal reports whether w is attached to a terminal that can interpret
// an OSC 52 sequence. Pipes and regular files cannot.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// System writes through the OS clipboard and falls back to an OSC 52 escape
// sequence on a terminal when the OS clipboard is missing or rejects.
type System struct {
	mu       sync.Mutex
	fallback io.Writer
	mode     osc52.Mode
}

// NewSystem returns a System that falls back to fallback. A nil fallback
// disables the OSC 52 path.
func NewSystem(fallback io.Writer) *System {
	return &System{fallback: fallback, mode: muxMode()}
}

// FallbackFromName maps the configured fallback name to a writer.
func FallbackFromName(name string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "osc52":
		return os.Stderr, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown clipboard fallback %q", name)
	}
}

func muxMode() osc52.Mode {
	switch {
	case os.Getenv("TMUX") != "":
		return osc52.TmuxMode
	case strings.HasPrefix(os.Getenv("TERM"), "screen"):
		return osc52.ScreenMode
	default:
		return osc52.DefaultMode
	}
}

// WriteText copies text. It returns nil only once one of the two paths has
// taken the whole text.
func (s *System) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var primaryErr error
	if clipboard.Unsupported {
		primaryErr = errors.New("no system clipboard utility found")
	} else {
		primaryErr = systemWriteAll(text)
	}
	if primaryErr == nil {
		return nil
	}
	slog.Debug("system clipboard write failed", "error", primaryErr)

	if s.fallback == nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, primaryErr)
	}
	if !isTerminal(s.fallback) {
		return fmt.Errorf("%w: %v; osc52: fallback is not a terminal", ErrUnavailable, primaryErr)
	}
	seq := osc52.New(text).Mode(s.mode)
	if _, err := seq.WriteTo(s.fallback); err != nil {
		return fmt.Errorf("%w: system: %v; osc52: %v", ErrUnavailable, primaryErr, err)
	}
	slog.Debug("copied via osc52 fallback", "bytes", len(text))
	return nil
}
