package types

import "strings"

// ResourceKind is the coarse category of what a request fetched.
type ResourceKind string

const (
	KindDocument   ResourceKind = "document"
	KindScript     ResourceKind = "script"
	KindStylesheet ResourceKind = "stylesheet"
	KindImage      ResourceKind = "image"
	KindFetch      ResourceKind = "fetch"
	KindXHR        ResourceKind = "xhr"
	KindOther      ResourceKind = "other"
)

// ResourceKinds lists every kind in display order.
func ResourceKinds() []ResourceKind {
	return []ResourceKind{KindDocument, KindScript, KindStylesheet, KindImage, KindFetch, KindXHR, KindOther}
}

// ParseResourceKind maps a tag (any case) to a ResourceKind.
func ParseResourceKind(s string) (ResourceKind, bool) {
	k := ResourceKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ResourceKinds() {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Header is a single name/value pair. Order and duplicates are preserved.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CapturedRequest is one finished network exchange recorded in a session log.
// Apart from ResponseBody, which is filled at most once after the entry is
// appended, nothing changes after creation.
type CapturedRequest struct {
	ID              string         `json:"id"`
	TabID           string         `json:"tab_id,omitempty"`
	URL             string         `json:"url"`
	Method          string         `json:"method"`
	Status          int            `json:"status"`
	StatusText      string         `json:"status_text"`
	ElapsedMillis   float64        `json:"elapsed_ms"`
	SizeBytes       int64          `json:"size_bytes"`
	MimeType        string         `json:"mime_type"`
	ResourceType    ResourceKind   `json:"resource_type"`
	RequestHeaders  []Header       `json:"request_headers"`
	ResponseHeaders []Header       `json:"response_headers"`
	RequestBody     Option[string] `json:"request_body"`
	ResponseBody    Option[string] `json:"response_body"`
	BodyTruncated   bool           `json:"body_truncated,omitempty"`
	StartedAt       string         `json:"started_at"`
	ServerAddress   Option[string] `json:"server_address"`
}

// Clone returns a copy that shares no slices with r.
func (r CapturedRequest) Clone() CapturedRequest {
	out := r
	out.RequestHeaders = append([]Header(nil), r.RequestHeaders...)
	out.ResponseHeaders = append([]Header(nil), r.ResponseHeaders...)
	return out
}
