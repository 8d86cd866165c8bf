package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/netpanel/internal/export"
	"github.com/dgnsrekt/netpanel/internal/panel"
)

// FormatInfo describes one export format.
type FormatInfo struct {
	Format        export.Format `json:"format"`
	Label         string        `json:"label"`
	SingleRequest bool          `json:"single_request"`
}

func registerExportHandlers(api huma.API, svc Service) {
	type formatsOutput struct {
		Body struct {
			Formats []FormatInfo `json:"formats"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-export-formats", Method: http.MethodGet, Path: "/api/v1/export/formats", Summary: "List export formats in menu order", Tags: []string{"Export"}},
		func(ctx context.Context, input *struct{}) (*formatsOutput, error) {
			out := &formatsOutput{}
			for _, f := range svc.Formats() {
				out.Body.Formats = append(out.Body.Formats, FormatInfo{Format: f, Label: f.Label(), SingleRequest: f.SingleRequest()})
			}
			return out, nil
		})

	type exportInput struct {
		Body struct {
			Format string `json:"format" required:"true" doc:"One of the formats from /api/v1/export/formats"`
			Copy   *bool  `json:"copy,omitempty" doc:"Copy to the clipboard (default true)"`
			Save   bool   `json:"save,omitempty" doc:"Also write the export to an artifact file"`
		}
	}
	type exportOutput struct {
		Body panel.Result
	}
	huma.Register(api, huma.Operation{OperationID: "export-selection", Method: http.MethodPost, Path: "/api/v1/export", Summary: "Format the visible selection and copy it", Tags: []string{"Export"}},
		func(ctx context.Context, input *exportInput) (*exportOutput, error) {
			res, err := svc.Deliver(ctx, input.Body.Format, panel.Delivery{
				Copy: input.Body.Copy == nil || *input.Body.Copy,
				Save: input.Body.Save,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			return &exportOutput{Body: res}, nil
		})
}
