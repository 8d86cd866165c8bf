// Package filter derives the visible subset of a captured-request log.
package filter

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/netpanel/internal/types"
)

// All disables a predicate.
const All = "all"

// ResourceFetch is the compound resource filter matching API-like traffic.
const ResourceFetch = "fetch"

// StatusClass selects responses by their leading status digit.
type StatusClass string

const (
	StatusAll StatusClass = All
	Status2xx StatusClass = "2xx"
	Status3xx StatusClass = "3xx"
	Status4xx StatusClass = "4xx"
	Status5xx StatusClass = "5xx"
)

func (c StatusClass) valid() bool {
	switch c {
	case StatusAll, Status2xx, Status3xx, Status4xx, Status5xx:
		return true
	}
	return false
}

// State is the user's current filter. Every predicate must hold for an entry
// to be visible.
type State struct {
	SearchText   string      `json:"search_text"`
	StatusClass  StatusClass `json:"status_class"`
	Method       string      `json:"method"`
	ResourceType string      `json:"resource_type"`
}

// Default returns the filter a new session starts with: everything except
// that only API-like traffic is shown.
func Default() State {
	return State{
		StatusClass:  StatusAll,
		Method:       All,
		ResourceType: ResourceFetch,
	}
}

// Normalize fills empty selectors with "all".
func (s State) Normalize() State {
	if s.StatusClass == "" {
		s.StatusClass = StatusAll
	}
	if s.Method == "" {
		s.Method = All
	}
	if s.ResourceType == "" {
		s.ResourceType = All
	}
	return s
}

// Validate reports selector values outside their allowed sets.
func (s State) Validate() error {
	if !s.StatusClass.valid() {
		return fmt.Errorf("invalid status class %q", s.StatusClass)
	}
	if s.Method != All && strings.TrimSpace(s.Method) == "" {
		return fmt.Errorf("method filter must be %q or a method token", All)
	}
	if s.ResourceType != All {
		if _, ok := types.ParseResourceKind(s.ResourceType); !ok || s.ResourceType != strings.ToLower(s.ResourceType) {
			return fmt.Errorf("invalid resource type %q", s.ResourceType)
		}
	}
	return nil
}

// Matches reports whether r passes every active predicate.
func (s State) Matches(r types.CapturedRequest) bool {
	if s.SearchText != "" && !strings.Contains(strings.ToLower(r.URL), strings.ToLower(s.SearchText)) {
		return false
	}
	if s.StatusClass != "" && s.StatusClass != StatusAll {
		if r.Status/100 != int(s.StatusClass[0]-'0') {
			return false
		}
	}
	if s.Method != "" && s.Method != All && r.Method != s.Method {
		return false
	}
	return s.matchesResource(r)
}

// matchesResource treats "fetch" as xhr, fetch, or any JSON MIME type. The
// MIME clause also admits entries tagged otherwise.
func (s State) matchesResource(r types.CapturedRequest) bool {
	switch s.ResourceType {
	case "", All:
		return true
	case ResourceFetch:
		return r.ResourceType == types.KindXHR ||
			r.ResourceType == types.KindFetch ||
			strings.Contains(r.MimeType, "json")
	default:
		return string(r.ResourceType) == s.ResourceType
	}
}

// ComputeVisible returns the entries of log that match s, in log order.
func ComputeVisible(log []types.CapturedRequest, s State) []types.CapturedRequest {
	out := make([]types.CapturedRequest, 0, len(log))
	for _, r := range log {
		if s.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// IDs returns the IDs of reqs in order.
func IDs(reqs []types.CapturedRequest) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}
