package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ClassScheduled()
	c.ClassScheduled()
	c.ScheduleConflict()
	c.ClassDeleted()
	c.RecordHTTPRequest("POST", "/api/classes", 409, 5*time.Millisecond)
	c.RecordHTTPRequest("GET", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(c.classesAdded); got != 2 {
		t.Fatalf("classes scheduled = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.conflicts); got != 1 {
		t.Fatalf("conflicts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/api/classes", "409")); got != 1 {
		t.Fatalf("http requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched requests = %v, want 1", got)
	}
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ClassScheduled()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "schoolsched_classes_scheduled_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
