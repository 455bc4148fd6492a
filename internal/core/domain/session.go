package domain

import "time"

type SessionPhase string

const (
	PhaseNormal                SessionPhase = "normal"
	PhaseAwaitingClarification SessionPhase = "awaiting_clarification"
)

// SessionState is the multi-turn manager's working memory for one session.
type SessionState struct {
	SessionKey      string            `json:"session_key"`
	Phase           SessionPhase      `json:"phase"`
	TurnCount       int               `json:"turn_count"`
	Preferences     map[string]string `json:"preferences"`
	LastTopics      []string          `json:"last_topics"`
	LastIntent      string            `json:"last_intent,omitempty"`
	PendingQuestion string            `json:"pending_question,omitempty"`
	PendingOriginal string            `json:"pending_original,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type FollowUpDetection struct {
	IsFollowUp bool    `json:"isFollowUp"`
	Confidence float64 `json:"followUpConfidence"`
	Topic      string  `json:"topic,omitempty"`
}

type AmbiguityDetection struct {
	IsAmbiguous           bool   `json:"isAmbiguous"`
	Kind                  string `json:"kind,omitempty"`
	ClarificationQuestion string `json:"clarificationQuestion,omitempty"`
}

// EnhancedContext is what the manager hands the rest of the pipeline for one
// turn. NeedsClarification short-circuits everything downstream.
type EnhancedContext struct {
	ContextualQuery       string             `json:"contextualQuery"`
	NeedsClarification    bool               `json:"needsClarification"`
	ClarificationQuestion string             `json:"clarificationQuestion,omitempty"`
	FollowUp              FollowUpDetection  `json:"followUp"`
	Ambiguity             AmbiguityDetection `json:"ambiguity"`
	State                 SessionState       `json:"state"`
}

// SessionStats is the observability view over a session's state.
type SessionStats struct {
	SessionKey  string            `json:"session_key"`
	TurnCount   int               `json:"turn_count"`
	Phase       SessionPhase      `json:"phase"`
	Preferences map[string]string `json:"preferences"`
	LastTopics  []string          `json:"last_topics"`
}
