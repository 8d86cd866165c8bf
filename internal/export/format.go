// Package export turns captured requests into clipboard-ready text.
//
// Every formatter is a pure function of its input. Render looks a format up
// in the registry and enforces its arity.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgnsrekt/netpanel/internal/types"
)

var (
	// ErrNoRequests is returned when there is nothing to export.
	ErrNoRequests = errors.New("no requests to export")
	// ErrSingleRequest is returned when a single-request format gets more than one.
	ErrSingleRequest = errors.New("format accepts exactly one request")
	// ErrUnknownFormat is returned by ParseFormat for unregistered names.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Format names one export representation.
type Format string

const (
	FormatCurl          Format = "curl"
	FormatPostman       Format = "postman"
	FormatMarkdown      Format = "markdown"
	FormatMarkdownTable Format = "markdown-table"
	FormatResponsesJSON Format = "responses-json"
	FormatHeaders       Format = "headers"
	FormatHAR           Format = "har"
	FormatResponseBody  Format = "response-body"
	FormatRequestBody   Format = "request-body"
)

type renderFunc func([]types.CapturedRequest, renderConfig) (string, error)

type descriptor struct {
	label   string
	single  bool
	render  renderFunc
	message func(n int) string
}

type renderConfig struct {
	creatorVersion string
}

// Option adjusts what Render embeds in its output.
type Option func(*renderConfig)

// WithCreatorVersion sets the version reported in the HAR creator block.
func WithCreatorVersion(v string) Option {
	return func(c *renderConfig) { c.creatorVersion = v }
}

func fixed(msg string) func(int) string {
	return func(int) string { return msg }
}

func each(fn func(types.CapturedRequest) string, sep string) renderFunc {
	return func(reqs []types.CapturedRequest, _ renderConfig) (string, error) {
		parts := make([]string, len(reqs))
		for i, r := range reqs {
			parts[i] = fn(r)
		}
		return strings.Join(parts, sep), nil
	}
}

func text(fn func([]types.CapturedRequest) string) renderFunc {
	return func(reqs []types.CapturedRequest, _ renderConfig) (string, error) { return fn(reqs), nil }
}

func plain(fn func([]types.CapturedRequest) (string, error)) renderFunc {
	return func(reqs []types.CapturedRequest, _ renderConfig) (string, error) { return fn(reqs) }
}

func har(reqs []types.CapturedRequest, c renderConfig) (string, error) {
	return HAR(reqs, c.creatorVersion)
}

var order = []Format{
	FormatCurl,
	FormatResponseBody,
	FormatRequestBody,
	FormatHeaders,
	FormatPostman,
	FormatMarkdown,
	FormatMarkdownTable,
	FormatResponsesJSON,
	FormatHAR,
}

var registry = map[Format]descriptor{
	FormatCurl:          {label: "Copy as cURL", render: each(Curl, "\n\n"), message: fixed("cURL copied!")},
	FormatResponseBody:  {label: "Copy Response", single: true, render: each(ResponseBody, ""), message: fixed("Response copied!")},
	FormatRequestBody:   {label: "Copy Request Body", single: true, render: each(RequestBody, ""), message: fixed("Request body copied!")},
	FormatHeaders:       {label: "Copy Headers", single: true, render: each(Headers, ""), message: fixed("Headers copied!")},
	FormatPostman:       {label: "Copy as Postman Collection", render: plain(Postman), message: fixed("Postman collection copied!")},
	FormatMarkdown:      {label: "Copy as Markdown", render: text(Markdown), message: fixed("Markdown copied!")},
	FormatMarkdownTable: {label: "Copy as Markdown Table", render: text(MarkdownTable), message: fixed("Markdown copied!")},
	FormatResponsesJSON: {label: "Copy Responses as JSON", render: plain(ResponsesJSON), message: func(n int) string { return fmt.Sprintf("%d responses copied!", n) }},
	FormatHAR:           {label: "Copy as HAR", render: har, message: fixed("HAR copied!")},
}

// AllFormats lists the registered formats in menu order.
func AllFormats() []Format {
	return append([]Format(nil), order...)
}

// ParseFormat resolves a format name (any case).
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
	return f, nil
}

func (f Format) String() string {
	return string(f)
}

func (f Format) IsValid() bool {
	_, ok := registry[f]
	return ok
}

// Label is the menu text for f.
func (f Format) Label() string {
	return registry[f].label
}

// SingleRequest reports whether f only accepts one request.
func (f Format) SingleRequest() bool {
	return registry[f].single
}

// CopiedMessage is the confirmation shown after n requests were copied as f.
func (f Format) CopiedMessage(n int) string {
	d, ok := registry[f]
	if !ok {
		return "Copied!"
	}
	return d.message(n)
}

// Render formats reqs as f.
func Render(f Format, reqs []types.CapturedRequest, opts ...Option) (string, error) {
	d, ok := registry[f]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if len(reqs) == 0 {
		return "", ErrNoRequests
	}
	if d.single && len(reqs) > 1 {
		return "", fmt.Errorf("%s: %w (got %d)", f, ErrSingleRequest, len(reqs))
	}
	var cfg renderConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	out, err := d.render(reqs, cfg)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", f, err)
	}
	return out, nil
}
