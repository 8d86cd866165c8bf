package clipboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

func stubSystem(t *testing.T, fn func(string) error) {
	t.Helper()
	old := systemWriteAll
	systemWriteAll = fn
	t.Cleanup(func() { systemWriteAll = old })
}

func stubTerminal(t *testing.T) {
	t.Helper()
	old := isTerminal
	isTerminal = func(io.Writer) bool { return true }
	t.Cleanup(func() { isTerminal = old })
}

func TestPrimarySuccessSkipsFallback(t *testing.T) {
	if clipboard.Unsupported {
		t.Skip("no system clipboard utility on this host")
	}
	var got string
	stubSystem(t, func(s string) error { got = s; return nil })

	var fallback bytes.Buffer
	w := NewSystem(&fallback)
	if err := w.WriteText(context.Background(), "hello"); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if got != "hello" || fallback.Len() != 0 {
		t.Fatalf("primary got %q, fallback wrote %d bytes", got, fallback.Len())
	}
}

func TestFallbackOnPrimaryFailure(t *testing.T) {
	stubSystem(t, func(string) error { return errors.New("xclip missing") })
	stubTerminal(t)

	var fallback bytes.Buffer
	w := &System{fallback: &fallback, mode: osc52.DefaultMode}
	if err := w.WriteText(context.Background(), "hello"); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if want := "\x1b]52;c;aGVsbG8=\x07"; fallback.String() != want {
		t.Fatalf("fallback wrote %q; want %q", fallback.String(), want)
	}
}

func TestNoFallbackReportsUnavailable(t *testing.T) {
	stubSystem(t, func(string) error { return errors.New("denied") })

	w := NewSystem(nil)
	if err := w.WriteText(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("WriteText() error = %v; want ErrUnavailable", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestBothPathsFail(t *testing.T) {
	stubSystem(t, func(string) error { return errors.New("denied") })
	stubTerminal(t)

	w := NewSystem(failingWriter{})
	if err := w.WriteText(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("WriteText() error = %v; want ErrUnavailable", err)
	}
}

func TestFallbackToPipeIsUnavailable(t *testing.T) {
	stubSystem(t, func(string) error { return errors.New("xclip missing") })

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	defer r.Close()

	s := NewSystem(w)
	if err := s.WriteText(context.Background(), "hello"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("WriteText() error = %v; want ErrUnavailable", err)
	}
	w.Close()
	if got, _ := io.ReadAll(r); len(got) != 0 {
		t.Fatalf("pipe received %q; want nothing", got)
	}
}

func TestNonFileFallbackIsUnavailable(t *testing.T) {
	stubSystem(t, func(string) error { return errors.New("xclip missing") })

	var fallback bytes.Buffer
	if err := NewSystem(&fallback).WriteText(context.Background(), "hello"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("WriteText() error = %v; want ErrUnavailable", err)
	}
	if fallback.Len() != 0 {
		t.Fatalf("fallback wrote %q; want nothing", fallback.String())
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewSystem(nil).WriteText(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("WriteText() error = %v; want context.Canceled", err)
	}
}

func TestFallbackFromName(t *testing.T) {
	if w, err := FallbackFromName("none"); err != nil || w != nil {
		t.Fatalf("FallbackFromName(none) = %v, %v; want nil, nil", w, err)
	}
	if w, err := FallbackFromName("OSC52"); err != nil || w == nil {
		t.Fatalf("FallbackFromName(OSC52) = %v, %v; want writer", w, err)
	}
	if _, err := FallbackFromName("pbcopy"); err == nil {
		t.Fatalf("FallbackFromName(pbcopy) error = nil; want error")
	}
}

func TestFuncAdapter(t *testing.T) {
	var got string
	var w Writer = Func(func(_ context.Context, s string) error { got = s; return nil })
	if err := w.WriteText(context.Background(), "abc"); err != nil || got != "abc" {
		t.Fatalf("Func.WriteText() = %v, got %q", err, got)
	}
}
