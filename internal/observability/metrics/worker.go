package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	eventsTotal    *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	eventsInFlight prometheus.Gauge
	eventLag       *prometheus.HistogramVec
	turnsObserved  *prometheus.CounterVec
	noEvidence     *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "worker",
			Name:      "turn_events_total",
			Help:      "Total consumed turn events by status.",
		},
		[]string{"service", "status"},
	)
	eventDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sac",
			Subsystem: "worker",
			Name:      "turn_event_duration_seconds",
			Help:      "Turn event handling duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	eventsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sac",
			Subsystem: "worker",
			Name:      "turn_events_in_flight",
			Help:      "Number of turn events being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sac",
			Subsystem: "worker",
			Name:      "turn_event_lag_seconds",
			Help:      "Delay between turn completion and event handling start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	turnsObserved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "worker",
			Name:      "turns_observed_total",
			Help:      "Completed turns seen by the analytics worker.",
		},
		[]string{"service", "branch", "intent", "confidence_level"},
	)
	noEvidence := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "worker",
			Name:      "turns_without_sources_total",
			Help:      "Domain-branch turns that returned no evidence sources.",
		},
		[]string{"service"},
	)

	registry.MustRegister(eventsTotal, eventDuration, eventsInFlight, eventLag, turnsObserved, noEvidence)

	return &WorkerMetrics{
		registry:       registry,
		eventsTotal:    eventsTotal,
		eventDuration:  eventDuration,
		eventsInFlight: eventsInFlight,
		eventLag:       eventLag,
		turnsObserved:  turnsObserved,
		noEvidence:     noEvidence,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.eventsInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, duration time.Duration, err error) {
	m.eventsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.eventsTotal.WithLabelValues(service, status).Inc()
	m.eventDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

// ObserveTurn aggregates the analytics view of one completed turn. An empty
// branch means the turn ended in a clarification question.
func (m *WorkerMetrics) ObserveTurn(service, branch, intent, confidenceLevel string, sourceCount int) {
	if branch == "" {
		branch = "clarification"
	}
	if intent == "" {
		intent = "none"
	}
	m.turnsObserved.WithLabelValues(service, branch, intent, confidenceLevel).Inc()
	if branch == "domain" && sourceCount == 0 {
		m.noEvidence.WithLabelValues(service).Inc()
	}
}

func (m *WorkerMetrics) ObserveEventLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
}
