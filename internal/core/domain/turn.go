package domain

import "time"

type TurnRequest struct {
	SessionKey string `json:"session_key"`
	Message    string `json:"message"`
}

// MultiTurnContext is the dialogue-state slice of a turn response.
type MultiTurnContext struct {
	TurnCount          int               `json:"turnCount"`
	IsFollowUp         bool              `json:"isFollowUp"`
	FollowUpConfidence float64           `json:"followUpConfidence"`
	UserPreferences    map[string]string `json:"userPreferences"`
	ContextualQuery    string            `json:"contextualQuery"`
}

// TurnResult is the full per-turn response object handed to the transport
// layer. Every validated turn produces one, degraded or not.
type TurnResult struct {
	Answer               string               `json:"answer"`
	Confidence           ConfidenceResult     `json:"confidence"`
	Sources              []EvidenceItem       `json:"sources"`
	RoutingDecision      RoutingDecision      `json:"routingDecision"`
	IntentClassification IntentClassification `json:"intentClassification"`
	ProactiveSuggestions SuggestionSet        `json:"proactiveSuggestions"`
	MultiTurnContext     MultiTurnContext     `json:"multiTurnContext"`
}

// TurnEvent is the analytics payload published after a completed turn.
type TurnEvent struct {
	SessionKey      string    `json:"session_key"`
	Turn            int       `json:"turn"`
	Branch          string    `json:"branch"`
	Intent          string    `json:"intent,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	ConfidenceLevel string    `json:"confidence_level"`
	SourceCount     int       `json:"source_count"`
	DurationMS      float64   `json:"duration_ms"`
	CompletedAt     time.Time `json:"completed_at"`
}
