package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	turnsTotal          *prometheus.CounterVec
	turnDuration        *prometheus.HistogramVec
	clarificationsTotal *prometheus.CounterVec
	followUpsTotal      *prometheus.CounterVec

	intentTotal       *prometheus.CounterVec
	retrievedSources  *prometheus.HistogramVec
	noEvidenceTotal   *prometheus.CounterVec
	suggestionsServed *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sac",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sac",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "turn",
			Name:      "completed_total",
			Help:      "Total completed conversation turns by branch and confidence level.",
		},
		[]string{"service", "branch", "confidence_level"},
	)
	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sac",
			Subsystem: "turn",
			Name:      "duration_seconds",
			Help:      "End-to-end turn duration in seconds by branch.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "branch"},
	)
	clarificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "turn",
			Name:      "clarifications_total",
			Help:      "Total turns answered with a clarification question.",
		},
		[]string{"service"},
	)
	followUpsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "turn",
			Name:      "follow_ups_total",
			Help:      "Total turns detected as follow-ups to an earlier topic.",
		},
		[]string{"service"},
	)
	intentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "routing",
			Name:      "intent_total",
			Help:      "Total intent classifications by intent and method.",
		},
		[]string{"service", "intent", "method"},
	)
	retrievedSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sac",
			Subsystem: "retrieval",
			Name:      "sources_per_turn",
			Help:      "Distribution of evidence items returned per domain turn.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	noEvidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "retrieval",
			Name:      "no_evidence_total",
			Help:      "Total domain turns that found no usable evidence.",
		},
		[]string{"service"},
	)
	suggestionsServed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sac",
			Subsystem: "suggestions",
			Name:      "served_per_turn",
			Help:      "Distribution of proactive suggestions returned per turn.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		turnsTotal,
		turnDuration,
		clarificationsTotal,
		followUpsTotal,
		intentTotal,
		retrievedSources,
		noEvidenceTotal,
		suggestionsServed,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		turnsTotal:          turnsTotal,
		turnDuration:        turnDuration,
		clarificationsTotal: clarificationsTotal,
		followUpsTotal:      followUpsTotal,
		intentTotal:         intentTotal,
		retrievedSources:    retrievedSources,
		noEvidenceTotal:     noEvidenceTotal,
		suggestionsServed:   suggestionsServed,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "/v1/sessions/") {
		if strings.HasSuffix(path, "/stats") {
			return "/v1/sessions/{session_key}/stats"
		}
		return "/v1/sessions/{session_key}"
	}
	return path
}

// RecordTurn observes one completed turn. Clarification short-circuits pass
// an empty branch and count separately.
func (m *HTTPServerMetrics) RecordTurn(service, branch, confidenceLevel string, isFollowUp bool, duration time.Duration) {
	if branch == "" {
		m.clarificationsTotal.WithLabelValues(service).Inc()
		branch = "clarification"
	}
	if confidenceLevel == "" {
		confidenceLevel = "unknown"
	}
	m.turnsTotal.WithLabelValues(service, branch, confidenceLevel).Inc()
	m.turnDuration.WithLabelValues(service, branch).Observe(duration.Seconds())
	if isFollowUp {
		m.followUpsTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordIntent(service, intent, method string) {
	if intent == "" {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.intentTotal.WithLabelValues(service, intent, method).Inc()
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, sourceCount int) {
	m.retrievedSources.WithLabelValues(service).Observe(float64(sourceCount))
	if sourceCount == 0 {
		m.noEvidenceTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordSuggestions(service string, count int) {
	m.suggestionsServed.WithLabelValues(service).Observe(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
