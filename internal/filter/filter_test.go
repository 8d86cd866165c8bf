package filter

import (
	"testing"

	"github.com/dgnsrekt/netpanel/internal/types"
	"github.com/google/go-cmp/cmp"
)

func req(id, method, url string, status int, kind types.ResourceKind, mime string) types.CapturedRequest {
	return types.CapturedRequest{ID: id, Method: method, URL: url, Status: status, ResourceType: kind, MimeType: mime}
}

func sampleLog() []types.CapturedRequest {
	return []types.CapturedRequest{
		req("req-1", "GET", "https://api.example.com/Users?page=2", 200, types.KindXHR, "application/json"),
		req("req-2", "GET", "https://cdn.example.com/app.js", 200, types.KindScript, "application/javascript"),
		req("req-3", "POST", "https://api.example.com/login", 401, types.KindFetch, "application/json"),
		req("req-4", "GET", "https://example.com/", 301, types.KindDocument, "text/html"),
		req("req-5", "GET", "https://api.example.com/health", 503, types.KindOther, "application/problem+json"),
		req("req-6", "DELETE", "https://api.example.com/users/1", 204, types.KindFetch, ""),
		req("req-7", "GET", "https://example.com/logo.png", 0, types.KindImage, ""),
	}
}

func TestFetchFilterScenario(t *testing.T) {
	log := []types.CapturedRequest{
		req("req-1", "GET", "https://api.example.com/a", 200, types.KindXHR, ""),
		req("req-2", "GET", "https://cdn.example.com/b.js", 200, types.KindScript, ""),
	}
	got := IDs(ComputeVisible(log, State{ResourceType: ResourceFetch}))
	if diff := cmp.Diff([]string{"req-1"}, got); diff != "" {
		t.Fatalf("visible mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeVisible(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  []string
	}{
		{"everything", State{}.Normalize(), []string{"req-1", "req-2", "req-3", "req-4", "req-5", "req-6", "req-7"}},
		{"default_shows_api_like", Default(), []string{"req-1", "req-3", "req-5", "req-6"}},
		{"search_is_case_insensitive", State{SearchText: "users"}, []string{"req-1", "req-6"}},
		{"status_2xx", State{StatusClass: Status2xx}, []string{"req-1", "req-2", "req-6"}},
		{"status_4xx", State{StatusClass: Status4xx}, []string{"req-3"}},
		{"status_5xx", State{StatusClass: Status5xx}, []string{"req-5"}},
		{"status_3xx", State{StatusClass: Status3xx}, []string{"req-4"}},
		{"method_exact", State{Method: "POST"}, []string{"req-3"}},
		{"method_is_case_sensitive", State{Method: "post"}, []string{}},
		{"resource_exact", State{ResourceType: "document"}, []string{"req-4"}},
		{"fetch_admits_json_mime_on_other_tag", State{ResourceType: ResourceFetch, Method: "GET"}, []string{"req-1", "req-5"}},
		{"combined", State{SearchText: "API.", StatusClass: Status2xx, Method: All, ResourceType: ResourceFetch}, []string{"req-1", "req-6"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IDs(ComputeVisible(sampleLog(), tt.state))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ComputeVisible() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Dropping any single predicate must never hide an entry that was visible.
func TestRemovingPredicateIsMonotonic(t *testing.T) {
	searches := []string{"", "api", "USERS", "nothing-matches"}
	statuses := []StatusClass{StatusAll, Status2xx, Status4xx}
	methods := []string{All, "GET", "POST"}
	resources := []string{All, ResourceFetch, "script", "document"}

	log := sampleLog()
	for _, search := range searches {
		for _, status := range statuses {
			for _, method := range methods {
				for _, resource := range resources {
					full := State{SearchText: search, StatusClass: status, Method: method, ResourceType: resource}
					before := ComputeVisible(log, full)
					assertOrdered(t, log, before)

					relaxed := []State{full, full, full, full}
					relaxed[0].SearchText = ""
					relaxed[1].StatusClass = StatusAll
					relaxed[2].Method = All
					relaxed[3].ResourceType = All
					for _, r := range relaxed {
						after := idSet(ComputeVisible(log, r))
						for _, e := range before {
							if !after[e.ID] {
								t.Fatalf("relaxing %+v to %+v hid %s", full, r, e.ID)
							}
						}
					}
				}
			}
		}
	}
}

func assertOrdered(t *testing.T, log, visible []types.CapturedRequest) {
	t.Helper()
	pos := make(map[string]int, len(log))
	for i, r := range log {
		pos[r.ID] = i
	}
	for i := 1; i < len(visible); i++ {
		if pos[visible[i-1].ID] >= pos[visible[i].ID] {
			t.Fatalf("visible entries out of log order: %v", IDs(visible))
		}
	}
}

func idSet(reqs []types.CapturedRequest) map[string]bool {
	out := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		out[r.ID] = true
	}
	return out
}

func TestValidate(t *testing.T) {
	valid := []State{
		Default(),
		{StatusClass: Status5xx, Method: "PATCH", ResourceType: "image"},
		{StatusClass: StatusAll, Method: All, ResourceType: All},
	}
	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Fatalf("Validate(%+v) = %v; want nil", s, err)
		}
	}

	invalid := []State{
		{StatusClass: "6xx", Method: All, ResourceType: All},
		{StatusClass: StatusAll, Method: "  ", ResourceType: All},
		{StatusClass: StatusAll, Method: All, ResourceType: "font"},
		{StatusClass: StatusAll, Method: All, ResourceType: "XHR"},
	}
	for _, s := range invalid {
		if err := s.Validate(); err == nil {
			t.Fatalf("Validate(%+v) = nil; want error", s)
		}
	}
}
