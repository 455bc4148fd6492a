package domain

import "time"

type Conversation struct {
	SessionKey  string    `json:"session_key"`
	CurrentTurn int       `json:"current_turn"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Message struct {
	ID         string          `json:"id"`
	SessionKey string          `json:"session_key"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Turn       int             `json:"turn"`
	Metadata   MessageMetadata `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MessageMetadata is the per-message observability bag persisted alongside
// assistant replies. Absent fields stay zero for user messages.
type MessageMetadata struct {
	Branch          string         `json:"branch,omitempty"`
	Intent          string         `json:"intent,omitempty"`
	ConfidenceScore float64        `json:"confidence_score,omitempty"`
	ConfidenceLevel string         `json:"confidence_level,omitempty"`
	SourceCount     int            `json:"source_count,omitempty"`
	Sources         []EvidenceItem `json:"sources,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
