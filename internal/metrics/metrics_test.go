package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Captured()
	m.Dropped()
	m.BodyFetchFailed()
	m.BodyTruncated()
	m.SetLogEntries(3)
	m.Export("curl", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil Handler() status = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Captured()
	m.Captured()
	m.Dropped()
	m.Export("curl", "ok")
	m.SetLogEntries(2)

	if got := testutil.ToFloat64(m.captured); got != 2 {
		t.Fatalf("captured = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.dropped); got != 1 {
		t.Fatalf("dropped = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.exports.WithLabelValues("curl", "ok")); got != 1 {
		t.Fatalf("exports{curl,ok} = %v; want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"netpanel_requests_captured_total 2", "netpanel_log_entries 2"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}
