// Package metrics provides Prometheus metrics for BrandPulse.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis result sources.
const (
	SourceCache    = "cache"
	SourceComputed = "computed"
)

// Metrics holds all Prometheus metrics for BrandPulse.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal         *prometheus.CounterVec
	AnalysisFailuresTotal *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	CorpusConversations   *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	ConversationsIngestedTotal prometheus.Counter
	MessagesIngestedTotal      prometheus.Counter
}

// New creates all metrics and registers them with reg. A nil reg registers
// with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := &Metrics{}

	m.AnalysesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_analyses_total",
			Help: "Total number of completed analyses by kind and result source",
		},
		[]string{"kind", "source"},
	)

	m.AnalysisFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_analysis_failures_total",
			Help: "Total number of analyses that failed",
		},
		[]string{"kind"},
	)

	m.AnalysisDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandpulse_analysis_duration_seconds",
			Help:    "Duration of analyses in seconds, including corpus fetch",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	m.CorpusConversations = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandpulse_analysis_corpus_conversations",
			Help:    "Number of conversations in an analysed corpus",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"kind"},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandpulse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "brandpulse_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.ConversationsIngestedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "brandpulse_conversations_ingested_total",
			Help: "Total number of conversations ingested",
		},
	)

	m.MessagesIngestedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "brandpulse_messages_ingested_total",
			Help: "Total number of messages ingested",
		},
	)

	return m
}

// RecordAnalysis records a completed analysis.
func (m *Metrics) RecordAnalysis(kind string, cached bool, conversations int, duration time.Duration) {
	source := SourceComputed
	if cached {
		source = SourceCache
	}
	m.AnalysesTotal.WithLabelValues(kind, source).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if !cached {
		m.CorpusConversations.WithLabelValues(kind).Observe(float64(conversations))
	}
}

// RecordAnalysisFailure records an analysis that returned an error.
func (m *Metrics) RecordAnalysisFailure(kind string) {
	m.AnalysisFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records a served HTTP request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordIngest records one stored conversation.
func (m *Metrics) RecordIngest(messages int) {
	m.ConversationsIngestedTotal.Inc()
	m.MessagesIngestedTotal.Add(float64(messages))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
