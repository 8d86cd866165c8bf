package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/netpanel/internal/export"
	"github.com/dgnsrekt/netpanel/internal/filter"
	"github.com/dgnsrekt/netpanel/internal/types"
)

// RequestSummary is one row of the request list.
type RequestSummary struct {
	ID           string             `json:"id"`
	Method       string             `json:"method"`
	URL          string             `json:"url"`
	Domain       string             `json:"domain"`
	Path         string             `json:"path"`
	Status       int                `json:"status"`
	StatusText   string             `json:"status_text"`
	ResourceType types.ResourceKind `json:"resource_type"`
	MimeType     string             `json:"mime_type"`
	SizeBytes    int64              `json:"size_bytes"`
	Size         string             `json:"size"`
	ElapsedMS    float64            `json:"elapsed_ms"`
	Elapsed      string             `json:"elapsed"`
	HasResponse  bool               `json:"has_response"`
	Selected     bool               `json:"selected"`
}

func summarize(r types.CapturedRequest, selected bool) RequestSummary {
	return RequestSummary{
		ID:           r.ID,
		Method:       r.Method,
		URL:          r.URL,
		Domain:       export.Domain(r.URL),
		Path:         export.URLPathAndQuery(r.URL),
		Status:       r.Status,
		StatusText:   r.StatusText,
		ResourceType: r.ResourceType,
		MimeType:     r.MimeType,
		SizeBytes:    r.SizeBytes,
		Size:         export.FormatBytes(r.SizeBytes),
		ElapsedMS:    r.ElapsedMillis,
		Elapsed:      export.FormatElapsed(r.ElapsedMillis),
		HasResponse:  r.ResponseBody.IsPresent(),
		Selected:     selected,
	}
}

func registerRequestHandlers(api huma.API, svc Service) {
	type listRequestsInput struct {
		All bool `query:"all" doc:"Ignore the filter and list the whole log"`
	}
	type listRequestsOutput struct {
		Body struct {
			Total    int              `json:"total"`
			Requests []RequestSummary `json:"requests"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-requests", Method: http.MethodGet, Path: "/api/v1/requests", Summary: "List captured requests passing the filter", Tags: []string{"Requests"}},
		func(ctx context.Context, input *listRequestsInput) (*listRequestsOutput, error) {
			log := svc.Requests()
			rows := log
			if !input.All {
				rows = svc.Visible()
			}
			selected := make(map[string]bool)
			for _, id := range svc.Selection().IDs {
				selected[id] = true
			}
			out := &listRequestsOutput{}
			out.Body.Total = len(log)
			out.Body.Requests = make([]RequestSummary, 0, len(rows))
			for _, r := range rows {
				out.Body.Requests = append(out.Body.Requests, summarize(r, selected[r.ID]))
			}
			return out, nil
		})

	type requestOutput struct {
		Body types.CapturedRequest
	}
	huma.Register(api, huma.Operation{OperationID: "get-request", Method: http.MethodGet, Path: "/api/v1/requests/{request_id}", Summary: "Get one captured request with headers and bodies", Tags: []string{"Requests"}},
		func(ctx context.Context, input *struct {
			RequestID string `path:"request_id"`
		}) (*requestOutput, error) {
			r, err := svc.Request(input.RequestID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &requestOutput{Body: r}, nil
		})

	type clearOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "clear-requests", Method: http.MethodDelete, Path: "/api/v1/requests", Summary: "Clear the captured log", Tags: []string{"Requests"}},
		func(ctx context.Context, input *struct{}) (*clearOutput, error) {
			svc.Clear()
			out := &clearOutput{}
			out.Body.Status = "cleared"
			return out, nil
		})

	type filterOutput struct {
		Body filter.State
	}
	huma.Register(api, huma.Operation{OperationID: "get-filter", Method: http.MethodGet, Path: "/api/v1/filter", Summary: "Get the current filter", Tags: []string{"Filter"}},
		func(ctx context.Context, input *struct{}) (*filterOutput, error) {
			return &filterOutput{Body: svc.Filter()}, nil
		})

	type setFilterInput struct {
		Body struct {
			SearchText   string `json:"search_text,omitempty" doc:"Case-insensitive URL substring"`
			StatusClass  string `json:"status_class,omitempty" doc:"all, 2xx, 3xx, 4xx or 5xx"`
			Method       string `json:"method,omitempty" doc:"all or an HTTP method"`
			ResourceType string `json:"resource_type,omitempty" doc:"all, fetch, xhr, script, stylesheet, image, document or other"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-filter", Method: http.MethodPut, Path: "/api/v1/filter", Summary: "Replace the filter; omitted selectors mean all", Tags: []string{"Filter"}},
		func(ctx context.Context, input *setFilterInput) (*filterOutput, error) {
			st, err := svc.SetFilter(filter.State{
				SearchText:   input.Body.SearchText,
				StatusClass:  filter.StatusClass(input.Body.StatusClass),
				Method:       input.Body.Method,
				ResourceType: input.Body.ResourceType,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			return &filterOutput{Body: st}, nil
		})
}
