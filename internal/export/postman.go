package export

import (
	"strings"

	"github.com/dgnsrekt/netpanel/internal/types"
)

const (
	postmanCollectionName = "Exported from Network Enhance"
	postmanSchema         = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
)

// PostmanCollection is a Postman Collection v2.1 document.
type PostmanCollection struct {
	Info PostmanInfo   `json:"info"`
	Item []PostmanItem `json:"item"`
}

// PostmanInfo contains collection metadata.
type PostmanInfo struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

// PostmanItem is one request in the collection.
type PostmanItem struct {
	Name     string         `json:"name"`
	Request  PostmanRequest `json:"request"`
	Response []any          `json:"response"`
}

// PostmanRequest describes the request of an item.
type PostmanRequest struct {
	Method string          `json:"method"`
	Header []PostmanHeader `json:"header"`
	URL    PostmanURL      `json:"url"`
	Body   *PostmanBody    `json:"body,omitempty"`
}

// PostmanHeader is a request header.
type PostmanHeader struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PostmanURL is the structured form of a request URL.
type PostmanURL struct {
	Raw      string          `json:"raw"`
	Protocol string          `json:"protocol"`
	Host     []string        `json:"host"`
	Path     []string        `json:"path"`
	Query    []PostmanHeader `json:"query"`
}

// PostmanBody is a raw request body.
type PostmanBody struct {
	Mode    string             `json:"mode"`
	Raw     string             `json:"raw"`
	Options PostmanBodyOptions `json:"options"`
}

type PostmanBodyOptions struct {
	Raw PostmanRawOptions `json:"raw"`
}

type PostmanRawOptions struct {
	Language string `json:"language"`
}

// BuildPostman converts reqs into a collection, one item per request.
func BuildPostman(reqs []types.CapturedRequest) PostmanCollection {
	items := make([]PostmanItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, postmanItem(r))
	}
	return PostmanCollection{
		Info: PostmanInfo{Name: postmanCollectionName, Schema: postmanSchema},
		Item: items,
	}
}

// Postman renders reqs as a pretty-printed collection.
func Postman(reqs []types.CapturedRequest) (string, error) {
	return marshalIndent(BuildPostman(reqs))
}

func postmanItem(r types.CapturedRequest) PostmanItem {
	headers := make([]PostmanHeader, 0, len(r.RequestHeaders))
	for _, h := range r.RequestHeaders {
		if strings.EqualFold(h.Name, "host") || strings.EqualFold(h.Name, "content-length") {
			continue
		}
		headers = append(headers, PostmanHeader{Key: h.Name, Value: h.Value})
	}

	req := PostmanRequest{
		Method: r.Method,
		Header: headers,
		URL:    postmanURL(r.URL),
	}
	if body, ok := r.RequestBody.Get(); ok {
		req.Body = &PostmanBody{
			Mode:    "raw",
			Raw:     body,
			Options: PostmanBodyOptions{Raw: PostmanRawOptions{Language: "json"}},
		}
	}
	return PostmanItem{
		Name:     URLPath(r.URL),
		Request:  req,
		Response: []any{},
	}
}

func postmanURL(raw string) PostmanURL {
	out := PostmanURL{
		Raw:   raw,
		Host:  []string{},
		Path:  []string{},
		Query: []PostmanHeader{},
	}
	u, ok := parseAbsolute(raw)
	if !ok {
		return out
	}
	out.Protocol = u.Scheme
	if host := u.Hostname(); host != "" {
		out.Host = strings.Split(host, ".")
	}
	for _, seg := range strings.Split(pathOf(u), "/") {
		if seg != "" {
			out.Path = append(out.Path, seg)
		}
	}
	for _, p := range queryPairs(u.RawQuery) {
		out.Query = append(out.Query, PostmanHeader{Key: p.key, Value: p.value})
	}
	return out
}
