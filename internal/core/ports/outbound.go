package ports

import (
	"context"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

// Embedder builds a vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SemanticSearcher performs embedding nearest-neighbor search.
type SemanticSearcher interface {
	SearchSemantic(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.EvidenceItem, error)
}

// KeywordSearcher performs full-text search over the same corpus.
type KeywordSearcher interface {
	SearchKeyword(ctx context.Context, query string, limit int, filter domain.SearchFilter) ([]domain.EvidenceItem, error)
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, evidence []domain.EvidenceItem) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
}

// SuggestionGenerator returns a raw model response expected to contain a JSON
// suggestion list. Callers parse tolerantly and drop failures.
type SuggestionGenerator interface {
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
}

// IntentModel is the external fallback classifier behind the rule pass.
type IntentModel interface {
	ClassifyIntent(ctx context.Context, utterance string, history []domain.Message) (domain.IntentClassification, error)
}

// ToolRunner executes a tool-branch request (math, date, currency).
type ToolRunner interface {
	Run(ctx context.Context, toolKind, utterance string) (string, error)
}

// ConversationStore persists conversations and messages.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, sessionKey string) (*domain.Conversation, error)
	NextTurn(ctx context.Context, sessionKey string) (int, error)
	AppendMessage(ctx context.Context, message domain.Message) error
	ListRecentMessages(ctx context.Context, sessionKey string, limit int) ([]domain.Message, error)
}

// SessionStateStore holds the multi-turn manager's per-session state.
// Acquire enters the session's critical section and returns its release
// function; at most one in-flight turn may hold a session at a time.
type SessionStateStore interface {
	Acquire(sessionKey string) (release func())
	Get(sessionKey string) (domain.SessionState, bool)
	Put(state domain.SessionState)
	Delete(sessionKey string)
}

// EventPublisher emits turn-completed analytics events.
type EventPublisher interface {
	PublishTurnCompleted(ctx context.Context, event domain.TurnEvent) error
}
