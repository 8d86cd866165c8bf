package export

import (
	"github.com/dgnsrekt/netpanel/internal/types"
)

const defaultCreatorVersion = "dev"

// HARLog is the top-level HAR 1.2 structure.
type HARLog struct {
	Log HARLogInner `json:"log"`
}

type HARLogInner struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HAREntry is a single request/response pair.
type HAREntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
	Cache           struct{}    `json:"cache"`
	Timings         HARTimings  `json:"timings"`
	ServerIPAddress string      `json:"serverIPAddress,omitempty"`
	Comment         string      `json:"comment,omitempty"`
}

type HARRequest struct {
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	HTTPVersion string         `json:"httpVersion"`
	Cookies     []HARNameValue `json:"cookies"`
	Headers     []HARNameValue `json:"headers"`
	QueryString []HARNameValue `json:"queryString"`
	PostData    *HARPostData   `json:"postData,omitempty"`
	HeadersSize int            `json:"headersSize"`
	BodySize    int            `json:"bodySize"`
}

type HARResponse struct {
	Status      int            `json:"status"`
	StatusText  string         `json:"statusText"`
	HTTPVersion string         `json:"httpVersion"`
	Cookies     []HARNameValue `json:"cookies"`
	Headers     []HARNameValue `json:"headers"`
	Content     HARContent     `json:"content"`
	RedirectURL string         `json:"redirectURL"`
	HeadersSize int            `json:"headersSize"`
	BodySize    int64          `json:"bodySize"`
}

type HARContent struct {
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
}

type HARTimings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

type HARNameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type HARPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// BuildHAR converts reqs to a HAR log in input order. An empty version is
// reported as "dev".
func BuildHAR(reqs []types.CapturedRequest, version string) HARLog {
	if version == "" {
		version = defaultCreatorVersion
	}
	entries := make([]HAREntry, 0, len(reqs))
	for _, r := range reqs {
		entries = append(entries, harEntry(r))
	}
	return HARLog{Log: HARLogInner{
		Version: "1.2",
		Creator: HARCreator{Name: "netpanel", Version: version},
		Entries: entries,
	}}
}

// HAR renders reqs as a pretty-printed HAR document.
func HAR(reqs []types.CapturedRequest, version string) (string, error) {
	return marshalIndent(BuildHAR(reqs, version))
}

func harEntry(r types.CapturedRequest) HAREntry {
	entry := HAREntry{
		StartedDateTime: r.StartedAt,
		Time:            r.ElapsedMillis,
		Request:         harRequest(r),
		Response:        harResponse(r),
		Timings:         HARTimings{Send: 0, Wait: r.ElapsedMillis, Receive: 0},
		ServerIPAddress: r.ServerAddress.OrElse(""),
	}
	if r.BodyTruncated {
		entry.Comment = "response body truncated"
	}
	return entry
}

func harRequest(r types.CapturedRequest) HARRequest {
	req := HARRequest{
		Method:      r.Method,
		URL:         r.URL,
		HTTPVersion: "HTTP/1.1",
		Cookies:     []HARNameValue{},
		Headers:     harHeaders(r.RequestHeaders),
		QueryString: []HARNameValue{},
		HeadersSize: -1,
	}
	if u, ok := parseAbsolute(r.URL); ok {
		for _, p := range queryPairs(u.RawQuery) {
			req.QueryString = append(req.QueryString, HARNameValue{Name: p.key, Value: p.value})
		}
	}
	if body, ok := r.RequestBody.Get(); ok {
		mime, _ := headerValue(r.RequestHeaders, "content-type")
		req.PostData = &HARPostData{MimeType: mime, Text: body}
		req.BodySize = len(body)
	}
	return req
}

func harResponse(r types.CapturedRequest) HARResponse {
	location, _ := headerValue(r.ResponseHeaders, "location")
	return HARResponse{
		Status:      r.Status,
		StatusText:  r.StatusText,
		HTTPVersion: "HTTP/1.1",
		Cookies:     []HARNameValue{},
		Headers:     harHeaders(r.ResponseHeaders),
		Content: HARContent{
			Size:     r.SizeBytes,
			MimeType: r.MimeType,
			Text:     r.ResponseBody.OrElse(""),
		},
		RedirectURL: location,
		HeadersSize: -1,
		BodySize:    r.SizeBytes,
	}
}

func harHeaders(headers []types.Header) []HARNameValue {
	out := make([]HARNameValue, len(headers))
	for i, h := range headers {
		out[i] = HARNameValue{Name: h.Name, Value: h.Value}
	}
	return out
}
