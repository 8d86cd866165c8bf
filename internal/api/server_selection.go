package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/netpanel/internal/panel"
	"github.com/dgnsrekt/netpanel/internal/selection"
)

type selectionOutput struct {
	Body panel.SelectionView
}

func registerSelectionHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "get-selection", Method: http.MethodGet, Path: "/api/v1/selection", Summary: "Get the selection", Tags: []string{"Selection"}},
		func(ctx context.Context, input *struct{}) (*selectionOutput, error) {
			return &selectionOutput{Body: svc.Selection()}, nil
		})

	type selectInput struct {
		Body struct {
			ID    string `json:"id" required:"true" minLength:"1"`
			Shift bool   `json:"shift,omitempty" doc:"Extend from the anchor over the visible rows"`
			Ctrl  bool   `json:"ctrl,omitempty" doc:"Toggle this row"`
			Meta  bool   `json:"meta,omitempty" doc:"Same as ctrl"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "select-request", Method: http.MethodPost, Path: "/api/v1/selection/select", Summary: "Click a row with optional modifiers", Tags: []string{"Selection"}},
		func(ctx context.Context, input *selectInput) (*selectionOutput, error) {
			view, err := svc.Select(input.Body.ID, selection.Modifiers{
				Shift: input.Body.Shift,
				Ctrl:  input.Body.Ctrl,
				Meta:  input.Body.Meta,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			return &selectionOutput{Body: view}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "select-all", Method: http.MethodPost, Path: "/api/v1/selection/all", Summary: "Select every visible row, or deselect if they already are", Tags: []string{"Selection"}},
		func(ctx context.Context, input *struct{}) (*selectionOutput, error) {
			return &selectionOutput{Body: svc.SelectAll()}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "clear-selection", Method: http.MethodDelete, Path: "/api/v1/selection", Summary: "Clear the selection", Tags: []string{"Selection"}},
		func(ctx context.Context, input *struct{}) (*selectionOutput, error) {
			return &selectionOutput{Body: svc.ClearSelection()}, nil
		})
}
