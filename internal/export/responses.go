package export

import "github.com/dgnsrekt/netpanel/internal/types"

// ResponseDigest is one element of the responses-as-JSON export.
type ResponseDigest struct {
	URL      string `json:"url"`
	Method   string `json:"method"`
	Status   int    `json:"status"`
	Response any    `json:"response"`
}

// BuildResponses pairs each request with its response body: embedded JSON
// when the body parses, the raw string when it does not, null when absent.
func BuildResponses(reqs []types.CapturedRequest) []ResponseDigest {
	out := make([]ResponseDigest, 0, len(reqs))
	for _, r := range reqs {
		d := ResponseDigest{URL: r.URL, Method: r.Method, Status: r.Status}
		if body, ok := r.ResponseBody.Get(); ok {
			d.Response = jsonOrText(body)
		}
		out = append(out, d)
	}
	return out
}

// ResponsesJSON renders BuildResponses as a pretty-printed array.
func ResponsesJSON(reqs []types.CapturedRequest) (string, error) {
	return marshalIndent(BuildResponses(reqs))
}
