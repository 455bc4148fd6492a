package session

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/ports"
)

const defaultMaxTopics = 5

// Manager owns the per-session dialogue state machine. All state lives in
// the injected store; callers serialize turns per session via store.Acquire.
type Manager struct {
	store     ports.SessionStateStore
	maxTopics int
	logger    *slog.Logger
}

func NewManager(store ports.SessionStateStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		maxTopics: defaultMaxTopics,
		logger:    logger,
	}
}

// BuildEnhancedContext advances the session by one turn and returns the
// context the pipeline needs. When the utterance is ambiguous the session
// moves to AwaitingClarification and the caller must short-circuit.
func (m *Manager) BuildEnhancedContext(utterance, sessionKey string, history []domain.Message) domain.EnhancedContext {
	state, ok := m.store.Get(sessionKey)
	if !ok {
		state = m.seedFromHistory(sessionKey, history)
	}

	followUp := detectFollowUp(utterance, state)
	ambiguity := detectAmbiguity(utterance, state)
	contextualQuery := resolveContextualQuery(utterance, followUp)

	state.Preferences = extractPreferences(utterance, state.Preferences)
	state.TurnCount++
	state.UpdatedAt = time.Now().UTC()

	if ambiguity.IsAmbiguous {
		state.Phase = domain.PhaseAwaitingClarification
		state.PendingQuestion = ambiguity.ClarificationQuestion
		state.PendingOriginal = utterance
	} else {
		state.Phase = domain.PhaseNormal
		state.PendingQuestion = ""
		state.PendingOriginal = ""
		state.LastTopics = extractTopics(utterance, state.LastTopics, m.maxTopics)
	}
	m.store.Put(state)

	return domain.EnhancedContext{
		ContextualQuery:       contextualQuery,
		NeedsClarification:    ambiguity.IsAmbiguous,
		ClarificationQuestion: ambiguity.ClarificationQuestion,
		FollowUp:              followUp,
		Ambiguity:             ambiguity,
		State:                 state,
	}
}

// Awaiting reports whether the session is blocked on a clarification and,
// if so, the original question that triggered it.
func (m *Manager) Awaiting(sessionKey string) (original string, awaiting bool) {
	state, ok := m.store.Get(sessionKey)
	if !ok || state.Phase != domain.PhaseAwaitingClarification {
		return "", false
	}
	return state.PendingOriginal, true
}

// ProcessClarificationResponse folds the user's clarification answer into
// the original question and returns the session to Normal. The resolved
// query re-enters the pipeline from classification.
func (m *Manager) ProcessClarificationResponse(answer, originalQuestion, sessionKey string) string {
	state, ok := m.store.Get(sessionKey)
	if ok {
		if originalQuestion == "" {
			originalQuestion = state.PendingOriginal
		}
		state.Phase = domain.PhaseNormal
		state.PendingQuestion = ""
		state.PendingOriginal = ""
		state.Preferences = extractPreferences(answer, state.Preferences)
		state.LastTopics = extractTopics(originalQuestion+" "+answer, state.LastTopics, m.maxTopics)
		state.UpdatedAt = time.Now().UTC()
		m.store.Put(state)
	}
	if originalQuestion == "" {
		return answer
	}
	return originalQuestion + " (Clarification: " + answer + ")"
}

// RecordIntent remembers the turn's final intent for later follow-ups.
func (m *Manager) RecordIntent(sessionKey, intent string) {
	state, ok := m.store.Get(sessionKey)
	if !ok {
		return
	}
	state.LastIntent = intent
	m.store.Put(state)
}

func (m *Manager) Stats(sessionKey string) (domain.SessionStats, bool) {
	state, ok := m.store.Get(sessionKey)
	if !ok {
		return domain.SessionStats{}, false
	}
	preferences := make(map[string]string, len(state.Preferences))
	for k, v := range state.Preferences {
		preferences[k] = v
	}
	return domain.SessionStats{
		SessionKey:  sessionKey,
		TurnCount:   state.TurnCount,
		Phase:       state.Phase,
		Preferences: preferences,
		LastTopics:  append([]string(nil), state.LastTopics...),
	}, true
}

// Cleanup evicts the session's state. Unknown sessions are a no-op.
func (m *Manager) Cleanup(sessionKey string) {
	m.store.Delete(sessionKey)
}

// seedFromHistory rebuilds a minimal state after eviction so follow-up
// detection still has an antecedent to work with.
func (m *Manager) seedFromHistory(sessionKey string, history []domain.Message) domain.SessionState {
	state := domain.SessionState{
		SessionKey: sessionKey,
		Phase:      domain.PhaseNormal,
	}
	var lastUser string
	for _, message := range history {
		if message.Role == domain.RoleUser {
			state.TurnCount++
			lastUser = message.Content
		}
		state.Preferences = extractPreferences(message.Content, state.Preferences)
	}
	if strings.TrimSpace(lastUser) != "" {
		state.LastTopics = extractTopics(lastUser, nil, m.maxTopics)
	}
	return state
}
