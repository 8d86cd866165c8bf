package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/netpanel/internal/panel"
)

type recordingOutput struct {
	Body struct {
		Recording bool `json:"recording"`
	}
}

func registerSessionHandlers(api huma.API, svc Service) {
	type statusOutput struct {
		Body panel.Status
	}
	huma.Register(api, huma.Operation{OperationID: "get-status", Method: http.MethodGet, Path: "/api/v1/status", Summary: "Recording state, counts and attached tabs", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			return &statusOutput{Body: svc.Status()}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "toggle-recording", Method: http.MethodPost, Path: "/api/v1/recording/toggle", Summary: "Pause or resume recording", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*recordingOutput, error) {
			out := &recordingOutput{}
			out.Body.Recording = svc.ToggleRecording()
			return out, nil
		})

	type setRecordingInput struct {
		Body struct {
			Recording bool `json:"recording" doc:"true records new requests, false drops them"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-recording", Method: http.MethodPut, Path: "/api/v1/recording", Summary: "Set the recording state", Tags: []string{"Session"}},
		func(ctx context.Context, input *setRecordingInput) (*recordingOutput, error) {
			out := &recordingOutput{}
			out.Body.Recording = svc.SetRecording(input.Body.Recording)
			return out, nil
		})

	type toastOutput struct {
		Body struct {
			Active  bool   `json:"active"`
			Message string `json:"message,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-toast", Method: http.MethodGet, Path: "/api/v1/toast", Summary: "Confirmation message of the last export, while it is showing", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*toastOutput, error) {
			out := &toastOutput{}
			out.Body.Message, out.Body.Active = svc.Toast()
			return out, nil
		})
}
