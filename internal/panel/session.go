// Package panel holds one user's view of the capture: the log, the filter,
// the selection and the confirmation message shown after an export.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/netpanel/internal/capture"
	"github.com/dgnsrekt/netpanel/internal/clipboard"
	"github.com/dgnsrekt/netpanel/internal/export"
	"github.com/dgnsrekt/netpanel/internal/filter"
	"github.com/dgnsrekt/netpanel/internal/metrics"
	"github.com/dgnsrekt/netpanel/internal/selection"
	"github.com/dgnsrekt/netpanel/internal/storage"
	"github.com/dgnsrekt/netpanel/internal/types"
	"github.com/google/uuid"
)

const (
	defaultToastTTL = 2 * time.Second
	notifyTimeout   = 5 * time.Second
)

// Capture is the part of the capture adapter a session drives.
type Capture interface {
	Log() *capture.Log
	Recording() bool
	SetRecording(on bool)
	ToggleRecording() bool
	Clear()
	Available() bool
}

// Journal records export actions.
type Journal interface {
	Record(e storage.JournalEntry) error
}

// ArtifactSaver writes export text to a file and returns its path.
type ArtifactSaver interface {
	Write(format, rawURL, text string) (string, error)
}

// Notifier mirrors the confirmation message somewhere outside the panel.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Options wires a Session's collaborators. Everything except Clipboard may
// be nil. Version is reported as the creator of HAR exports.
type Options struct {
	Clipboard clipboard.Writer
	Journal   Journal
	Artifacts ArtifactSaver
	Metrics   *metrics.Metrics
	Notifier  Notifier
	Tabs      func() []types.TabInfo
	ToastTTL  time.Duration
	Version   string
}

// Session is safe for concurrent use.
type Session struct {
	id        string
	capture   Capture
	clipboard clipboard.Writer
	journal   Journal
	artifacts ArtifactSaver
	metrics   *metrics.Metrics
	notifier  Notifier
	tabs      func() []types.TabInfo
	toastTTL  time.Duration
	version   string
	now       func() time.Time
	notifies  sync.WaitGroup

	mu          sync.Mutex
	filter      filter.State
	sel         *selection.State
	toast       string
	toastExpiry time.Time
}

// Status summarizes the session for the control surface.
type Status struct {
	SessionID       string          `json:"session_id"`
	Recording       bool            `json:"recording"`
	SourceAvailable bool            `json:"source_available"`
	Total           int             `json:"total"`
	Visible         int             `json:"visible"`
	Selected        int             `json:"selected"`
	Tabs            []types.TabInfo `json:"tabs"`
}

// SelectionView is the selection as seen through the current filter.
type SelectionView struct {
	IDs        []string `json:"ids"`
	Anchor     string   `json:"anchor,omitempty"`
	Count      int      `json:"count"`
	InView     int      `json:"in_view"`
	VisibleIDs []string `json:"visible_ids"`
}

// Result is the outcome of an export.
type Result struct {
	Format  export.Format `json:"format"`
	Text    string        `json:"text"`
	Count   int           `json:"count"`
	Copied  bool          `json:"copied"`
	Message string        `json:"message,omitempty"`
	SavedTo string        `json:"saved_to,omitempty"`
}

func NewSession(c Capture, opts Options) *Session {
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = defaultToastTTL
	}
	return &Session{
		id:        uuid.NewString(),
		capture:   c,
		clipboard: opts.Clipboard,
		journal:   opts.Journal,
		artifacts: opts.Artifacts,
		metrics:   opts.Metrics,
		notifier:  opts.Notifier,
		tabs:      opts.Tabs,
		toastTTL:  opts.ToastTTL,
		version:   opts.Version,
		now:       time.Now,
		filter:    filter.Default(),
		sel:       selection.New(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() Status {
	log := s.capture.Log().Snapshot()
	s.mu.Lock()
	visible := filter.ComputeVisible(log, s.filter)
	selected := s.sel.Len()
	s.mu.Unlock()

	st := Status{
		SessionID:       s.id,
		Recording:       s.capture.Recording(),
		SourceAvailable: s.capture.Available(),
		Total:           len(log),
		Visible:         len(visible),
		Selected:        selected,
		Tabs:            []types.TabInfo{},
	}
	if s.tabs != nil {
		st.Tabs = s.tabs()
	}
	return st
}

func (s *Session) Recording() bool { return s.capture.Recording() }

func (s *Session) SetRecording(on bool) bool {
	s.capture.SetRecording(on)
	return s.capture.Recording()
}

func (s *Session) ToggleRecording() bool { return s.capture.ToggleRecording() }

// Clear empties the log. Recording state and selection are left alone.
func (s *Session) Clear() { s.capture.Clear() }

// Requests returns the whole log in capture order.
func (s *Session) Requests() []types.CapturedRequest {
	return s.capture.Log().Snapshot()
}

// Visible returns the entries passing the current filter.
func (s *Session) Visible() []types.CapturedRequest {
	log := s.capture.Log().Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.ComputeVisible(log, s.filter)
}

// Request returns one entry by id.
func (s *Session) Request(id string) (types.CapturedRequest, error) {
	r, ok := s.capture.Log().Get(id)
	if !ok {
		return types.CapturedRequest{}, newError(CodeNotFound, fmt.Sprintf("request %q not found", id), nil)
	}
	return r, nil
}

func (s *Session) Filter() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SetFilter replaces the filter. Empty selectors mean "all".
func (s *Session) SetFilter(st filter.State) (filter.State, error) {
	st = st.Normalize()
	if err := st.Validate(); err != nil {
		return filter.State{}, newError(CodeValidation, err.Error(), nil)
	}
	s.mu.Lock()
	s.filter = st
	s.mu.Unlock()
	return st, nil
}

// Select applies a row gesture to id against the current visible order.
func (s *Session) Select(id string, mods selection.Modifiers) (SelectionView, error) {
	if _, ok := s.capture.Log().Get(id); !ok {
		return SelectionView{}, newError(CodeNotFound, fmt.Sprintf("request %q not found", id), nil)
	}
	log := s.capture.Log().Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := filter.ComputeVisible(log, s.filter)
	s.sel.Apply(id, filter.IDs(visible), mods)
	return s.viewLocked(visible), nil
}

// SelectAll toggles between every visible entry and nothing.
func (s *Session) SelectAll() SelectionView {
	log := s.capture.Log().Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := filter.ComputeVisible(log, s.filter)
	s.sel.SelectAll(filter.IDs(visible))
	return s.viewLocked(visible)
}

func (s *Session) ClearSelection() SelectionView {
	log := s.capture.Log().Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Clear()
	return s.viewLocked(filter.ComputeVisible(log, s.filter))
}

func (s *Session) Selection() SelectionView {
	log := s.capture.Log().Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(filter.ComputeVisible(log, s.filter))
}

func (s *Session) viewLocked(visible []types.CapturedRequest) SelectionView {
	anchor, _ := s.sel.Anchor()
	return SelectionView{
		IDs:        s.sel.Selected(),
		Anchor:     anchor,
		Count:      s.sel.Len(),
		InView:     len(selection.Intersect(visible, s.sel)),
		VisibleIDs: filter.IDs(visible),
	}
}

// SelectedVisible returns what an export would operate on right now.
func (s *Session) SelectedVisible() []types.CapturedRequest {
	log := s.capture.Log().Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return selection.Intersect(filter.ComputeVisible(log, s.filter), s.sel)
}

// Formats lists the export formats in menu order.
func (s *Session) Formats() []export.Format {
	return export.AllFormats()
}

// Delivery picks where an export goes. The zero value only formats.
type Delivery struct {
	Copy bool
	Save bool
}

// Preview formats the current selection without copying it.
func (s *Session) Preview(format string) (Result, error) {
	return s.Deliver(context.Background(), format, Delivery{})
}

// Export formats the current selection, copies it to the clipboard and shows
// the confirmation message. Nothing is shown when the copy fails.
func (s *Session) Export(ctx context.Context, format string) (Result, error) {
	return s.Deliver(ctx, format, Delivery{Copy: true})
}

// Save formats the current selection and writes it to an artifact file.
func (s *Session) Save(format string) (Result, error) {
	return s.Deliver(context.Background(), format, Delivery{Save: true})
}

// Deliver formats the current selection once and hands that text to each
// destination in d. A save that cannot happen is rejected before anything is
// copied. The confirmation message is shown only when every requested
// destination took the text.
func (s *Session) Deliver(ctx context.Context, format string, d Delivery) (Result, error) {
	f, reqs, text, err := s.render(format)
	if err != nil {
		return Result{}, err
	}
	if d.Save && s.artifacts == nil {
		s.metrics.Export(string(f), "rejected")
		return Result{}, newError(CodeValidation, "saving exports is not configured", nil)
	}
	res := Result{Format: f, Text: text, Count: len(reqs)}

	if d.Copy {
		if s.clipboard == nil {
			err = clipboard.ErrUnavailable
		} else {
			err = s.clipboard.WriteText(ctx, text)
		}
		if err != nil {
			slog.Error("copy failed", "format", f, "count", len(reqs), "error", err)
			s.metrics.Export(string(f), "copy_failed")
			s.record(f, reqs, text, "copy_failed", err, "")
			return Result{}, newError(CodeCopyFailed, "copy failed", err)
		}
		res.Copied = true
		res.Message = f.CopiedMessage(len(reqs))
		s.metrics.Export(string(f), "ok")
		slog.Info("export copied", "format", f, "count", len(reqs), "bytes", len(text))
	}

	if d.Save {
		path, err := s.artifacts.Write(string(f), reqs[0].URL, text)
		if err != nil {
			s.metrics.Export(string(f), "save_failed")
			s.record(f, reqs, text, "save_failed", err, "")
			return Result{}, fmt.Errorf("save %s export: %w", f, err)
		}
		res.SavedTo = path
		s.metrics.Export(string(f), "saved")
	}

	switch {
	case res.Copied:
		s.showToast(res.Message)
		s.record(f, reqs, text, "ok", nil, res.SavedTo)
	case res.SavedTo != "":
		s.record(f, reqs, text, "saved", nil, res.SavedTo)
	}
	return res, nil
}

func (s *Session) render(format string) (export.Format, []types.CapturedRequest, string, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", nil, "", newError(CodeValidation, err.Error(), nil)
	}
	reqs := s.SelectedVisible()
	text, err := export.Render(f, reqs, export.WithCreatorVersion(s.version))
	switch {
	case errors.Is(err, export.ErrNoRequests):
		s.metrics.Export(string(f), "rejected")
		return "", nil, "", newError(CodeNothingSelected, "no visible requests are selected", nil)
	case errors.Is(err, export.ErrSingleRequest):
		s.metrics.Export(string(f), "rejected")
		return "", nil, "", newError(CodeValidation, fmt.Sprintf("%s exports exactly one request, %d selected", f, len(reqs)), nil)
	case err != nil:
		return "", nil, "", err
	}
	return f, reqs, text, nil
}

func (s *Session) record(f export.Format, reqs []types.CapturedRequest, text, outcome string, cause error, savedTo string) {
	if s.journal == nil {
		return
	}
	e := storage.JournalEntry{
		SessionID:  s.id,
		Format:     string(f),
		RequestIDs: filter.IDs(reqs),
		Bytes:      len(text),
		Outcome:    outcome,
		SavedTo:    savedTo,
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	if err := s.journal.Record(e); err != nil {
		slog.Warn("failed to journal export", "format", f, "error", err)
	}
}

func (s *Session) showToast(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toast = msg
	s.toastExpiry = s.now().Add(s.toastTTL)
	if s.notifier == nil {
		return
	}
	s.notifies.Add(1)
	go func() {
		defer s.notifies.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, msg); err != nil {
			slog.Warn("export notification failed", "error", err)
		}
	}()
}

// Wait blocks until pending notifications have been delivered or failed.
func (s *Session) Wait() {
	s.notifies.Wait()
}

// Toast returns the confirmation message while it is still showing.
func (s *Session) Toast() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toast == "" || !s.now().Before(s.toastExpiry) {
		return "", false
	}
	return s.toast, true
}
