package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()

	r.Assessment("supports", 0.76)
	r.Assessment("supports", 0.81)
	r.Degradation("embedding_fallback")
	r.Collaborator("embedding:openai", "error")
	r.CacheLookup("hit")
	r.Stage("retrieved", 2*time.Millisecond)

	if got := testutil.ToFloat64(r.AssessmentsTotal.WithLabelValues("supports")); got != 2 {
		t.Errorf("expected 2 supports, got %v", got)
	}
	if got := testutil.ToFloat64(r.DegradationsTotal.WithLabelValues("embedding_fallback")); got != 1 {
		t.Errorf("expected 1 degradation, got %v", got)
	}
	if got := testutil.ToFloat64(r.CollaboratorCalls.WithLabelValues("embedding:openai", "error")); got != 1 {
		t.Errorf("expected 1 collaborator error, got %v", got)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Assessment("neutral", 0)
	r.Degradation("x")
	r.Stage("fused", time.Second)
	r.Collaborator("x", "ok")
	r.CacheLookup("miss")
	r.Ingested("txt")
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.Assessment("neutral", 0.1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `veracity_assessments_total{stance="neutral"} 1`) {
		t.Errorf("expected assessments counter in output, got:\n%s", body)
	}
}
