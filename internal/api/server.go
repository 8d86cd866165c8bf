package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/netpanel/internal/export"
	"github.com/dgnsrekt/netpanel/internal/filter"
	"github.com/dgnsrekt/netpanel/internal/metrics"
	"github.com/dgnsrekt/netpanel/internal/panel"
	"github.com/dgnsrekt/netpanel/internal/selection"
	"github.com/dgnsrekt/netpanel/internal/stream"
	"github.com/dgnsrekt/netpanel/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the panel surface the HTTP API drives. *panel.Session
// implements it.
type Service interface {
	Status() panel.Status
	SetRecording(on bool) bool
	ToggleRecording() bool
	Clear()
	Requests() []types.CapturedRequest
	Visible() []types.CapturedRequest
	Request(id string) (types.CapturedRequest, error)
	Filter() filter.State
	SetFilter(st filter.State) (filter.State, error)
	Select(id string, mods selection.Modifiers) (panel.SelectionView, error)
	SelectAll() panel.SelectionView
	ClearSelection() panel.SelectionView
	Selection() panel.SelectionView
	Formats() []export.Format
	Deliver(ctx context.Context, format string, d panel.Delivery) (panel.Result, error)
	Toast() (string, bool)
}

var _ Service = (*panel.Session)(nil)

// Options carries the optional non-JSON endpoints.
type Options struct {
	Broker  *stream.Broker
	Metrics *metrics.Metrics
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Network Panel API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	if opts.Broker != nil {
		router.Get("/api/v1/stream", stream.WSHandler(opts.Broker))
		router.Get("/api/v1/events", stream.SSEHandler(opts.Broker))
	}
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler())
	}

	registerSessionHandlers(api, svc)
	registerRequestHandlers(api, svc)
	registerSelectionHandlers(api, svc)
	registerExportHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *panel.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case panel.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case panel.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case panel.CodeNothingSelected:
			return huma.Error409Conflict(coded.Message)
		case panel.CodeCopyFailed:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
