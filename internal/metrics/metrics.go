package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the engine's prometheus collectors. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry prometheus.Gatherer

	AssessmentsTotal   *prometheus.CounterVec
	DegradationsTotal  *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	CollaboratorCalls  *prometheus.CounterVec
	EmbeddingCache     *prometheus.CounterVec
	DocumentsIngested  *prometheus.CounterVec
	ConfidenceObserved prometheus.Histogram
}

// NewRecorder registers the collectors on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veracity",
			Name:      "assessments_total",
			Help:      "Committed assessments by stance.",
		}, []string{"stance"}),
		DegradationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veracity",
			Name:      "degradations_total",
			Help:      "Fallback paths taken by kind.",
		}, []string{"kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "veracity",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each assessment stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		CollaboratorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veracity",
			Name:      "collaborator_calls_total",
			Help:      "External collaborator calls by outcome.",
		}, []string{"collaborator", "outcome"}),
		EmbeddingCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veracity",
			Name:      "embedding_cache_total",
			Help:      "Sentence embedding cache lookups by result.",
		}, []string{"result"}),
		DocumentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veracity",
			Name:      "documents_ingested_total",
			Help:      "Ingested documents by file type.",
		}, []string{"file_type"}),
		ConfidenceObserved: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veracity",
			Name:      "confidence_score",
			Help:      "Distribution of fused confidence scores.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		}),
	}

	reg.MustRegister(
		r.AssessmentsTotal,
		r.DegradationsTotal,
		r.StageDuration,
		r.CollaboratorCalls,
		r.EmbeddingCache,
		r.DocumentsIngested,
		r.ConfidenceObserved,
	)
	return r
}

// Assessment records a committed assessment
func (r *Recorder) Assessment(stance string, confidence float64) {
	if r == nil {
		return
	}
	r.AssessmentsTotal.WithLabelValues(stance).Inc()
	r.ConfidenceObserved.Observe(confidence)
}

// Degradation records a fallback
func (r *Recorder) Degradation(kind string) {
	if r == nil {
		return
	}
	r.DegradationsTotal.WithLabelValues(kind).Inc()
}

// Stage records how long a stage took
func (r *Recorder) Stage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Collaborator records one collaborator call outcome (ok, error, fallback)
func (r *Recorder) Collaborator(name, outcome string) {
	if r == nil {
		return
	}
	r.CollaboratorCalls.WithLabelValues(name, outcome).Inc()
}

// CacheLookup records an embedding cache hit, miss or shared in-flight result
func (r *Recorder) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.EmbeddingCache.WithLabelValues(result).Inc()
}

// Ingested records an ingested document
func (r *Recorder) Ingested(fileType string) {
	if r == nil {
		return
	}
	r.DocumentsIngested.WithLabelValues(fileType).Inc()
}

// Handler serves the registry in the prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
