package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/ports"
	"github.com/kirillkom/support-agent-core/internal/observability/metrics"
)

const serviceName = "api"

type TrafficConfig struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	OverloadTimeout time.Duration
}

type Router struct {
	turns    ports.TurnService
	sessions ports.SessionAdmin
	metrics  *metrics.HTTPServerMetrics
	traffic  TrafficConfig
}

func NewRouter(
	turns ports.TurnService,
	sessions ports.SessionAdmin,
	serverMetrics *metrics.HTTPServerMetrics,
	traffic TrafficConfig,
) *Router {
	if traffic.OverloadTimeout <= 0 {
		traffic.OverloadTimeout = 100 * time.Millisecond
	}
	return &Router{
		turns:    turns,
		sessions: sessions,
		metrics:  serverMetrics,
		traffic:  traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat/turn", rt.completeTurn)
	mux.HandleFunc("/v1/sessions/", rt.sessionRoutes)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.traffic.MaxInFlight, rt.traffic.OverloadTimeout)
	handler = rateLimitMiddleware(handler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) completeTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	started := time.Now()
	result, err := rt.turns.CompleteTurn(r.Context(), req)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.recordTurnMetrics(result, time.Since(started))
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recordTurnMetrics(result *domain.TurnResult, elapsed time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordTurn(
		serviceName,
		string(result.RoutingDecision.Branch),
		string(result.Confidence.Level),
		result.MultiTurnContext.IsFollowUp,
		elapsed,
	)
	if result.IntentClassification.Intent != "" {
		rt.metrics.RecordIntent(serviceName, result.IntentClassification.Intent, result.IntentClassification.Method)
	}
	if result.RoutingDecision.Branch == domain.BranchDomain {
		rt.metrics.RecordRetrieval(serviceName, len(result.Sources))
	}
	rt.metrics.RecordSuggestions(serviceName, len(result.ProactiveSuggestions.Suggestions))
}

// sessionRoutes serves GET /v1/sessions/{key}/stats and DELETE /v1/sessions/{key}.
func (rt *Router) sessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session key is required"})
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(rest, "/stats"):
		rt.sessionStats(w, strings.TrimSuffix(rest, "/stats"))
	case r.Method == http.MethodDelete && !strings.Contains(rest, "/"):
		rt.deleteSession(w, rest)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) sessionStats(w http.ResponseWriter, sessionKey string) {
	if sessionKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session key is required"})
		return
	}
	stats, ok := rt.sessions.Stats(sessionKey)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Cleanup is idempotent, so deleting an unknown session still succeeds.
func (rt *Router) deleteSession(w http.ResponseWriter, sessionKey string) {
	rt.sessions.Cleanup(sessionKey)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
