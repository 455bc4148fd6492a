package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/ports"
	"github.com/kirillkom/support-agent-core/internal/core/suggest"
)

const (
	noEvidenceAnswer = "I couldn't find this information in the available documentation. " +
		"Could you rephrase the question or add more detail about what you're trying to do?"
	synthesisFailureAnswer = "I found related documentation but ran into a problem while composing " +
		"the answer. Please try again in a moment."
	toolFailureAnswer = "The tool needed for this request is currently unavailable. Please try again later."

	lowRelevanceThreshold = 0.2
)

// QueryRouter decides the branch for one utterance.
type QueryRouter interface {
	Classify(utterance string) domain.RoutingDecision
}

// IntentRouter classifies intent and resolves its retrieval tuning.
type IntentRouter interface {
	ClassifyIntent(ctx context.Context, utterance string, history []domain.Message) domain.IntentClassification
	RoutingConfigFor(intent string) domain.RoutingConfig
}

// EvidenceRetriever runs the hybrid search pipeline.
type EvidenceRetriever interface {
	Search(ctx context.Context, query string, k int, intent string, cfg domain.RoutingConfig) ([]domain.EvidenceItem, error)
}

// ConfidenceScorer grades an answer against its evidence.
type ConfidenceScorer interface {
	Score(evidence []domain.EvidenceItem, answerText, query string, intent domain.IntentClassification) domain.ConfidenceResult
}

// SessionCoordinator is the multi-turn manager surface the pipeline needs.
type SessionCoordinator interface {
	BuildEnhancedContext(utterance, sessionKey string, history []domain.Message) domain.EnhancedContext
	Awaiting(sessionKey string) (original string, awaiting bool)
	ProcessClarificationResponse(answer, originalQuestion, sessionKey string) string
	RecordIntent(sessionKey, intent string)
}

// SuggestionEngine produces the proactive suggestion block of a turn.
type SuggestionEngine interface {
	Suggest(ctx context.Context, in suggest.Input) domain.SuggestionSet
}

// Limits bounds one turn's execution.
type Limits struct {
	HistoryMessages int
	TurnTimeout     time.Duration
}

type TurnUseCase struct {
	router        QueryRouter
	intents       IntentRouter
	retriever     EvidenceRetriever
	scorer        ConfidenceScorer
	sessions      SessionCoordinator
	suggestions   SuggestionEngine
	generator     ports.AnswerGenerator
	tools         ports.ToolRunner
	conversations ports.ConversationStore
	states        ports.SessionStateStore
	events        ports.EventPublisher
	limits        Limits
	logger        *slog.Logger
}

func NewTurnUseCase(
	router QueryRouter,
	intents IntentRouter,
	retriever EvidenceRetriever,
	scorer ConfidenceScorer,
	sessions SessionCoordinator,
	suggestions SuggestionEngine,
	generator ports.AnswerGenerator,
	tools ports.ToolRunner,
	conversations ports.ConversationStore,
	states ports.SessionStateStore,
	events ports.EventPublisher,
	limits Limits,
	logger *slog.Logger,
) *TurnUseCase {
	if limits.HistoryMessages <= 0 {
		limits.HistoryMessages = 12
	}
	if limits.TurnTimeout <= 0 {
		limits.TurnTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnUseCase{
		router:        router,
		intents:       intents,
		retriever:     retriever,
		scorer:        scorer,
		sessions:      sessions,
		suggestions:   suggestions,
		generator:     generator,
		tools:         tools,
		conversations: conversations,
		states:        states,
		events:        events,
		limits:        limits,
		logger:        logger,
	}
}

// CompleteTurn runs the full pipeline for one user message: clarification
// handling, routing, branch execution, confidence scoring, suggestions and
// persistence. The session is held for the whole turn so concurrent requests
// on the same key serialize.
func (uc *TurnUseCase) CompleteTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	sessionKey := strings.TrimSpace(req.SessionKey)
	if sessionKey == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "complete turn", fmt.Errorf("session_key is required"))
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "complete turn", fmt.Errorf("message is required"))
	}

	started := time.Now()

	release := uc.states.Acquire(sessionKey)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, uc.limits.TurnTimeout)
	defer cancel()

	if _, err := uc.conversations.EnsureConversation(ctx, sessionKey); err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}
	history, err := uc.conversations.ListRecentMessages(ctx, sessionKey, uc.limits.HistoryMessages)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	if original, awaiting := uc.sessions.Awaiting(sessionKey); awaiting {
		message = uc.sessions.ProcessClarificationResponse(message, original, sessionKey)
	}

	enhanced := uc.sessions.BuildEnhancedContext(message, sessionKey, history)

	turn, err := uc.conversations.NextTurn(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("next turn: %w", err)
	}

	if enhanced.NeedsClarification {
		result := uc.clarificationResult(enhanced)
		uc.persistTurn(ctx, sessionKey, turn, message, result)
		return result, nil
	}

	routing := uc.router.Classify(enhanced.ContextualQuery)

	var result *domain.TurnResult
	switch routing.Branch {
	case domain.BranchToolUse:
		result = uc.runToolTurn(ctx, routing, enhanced, message)
	case domain.BranchGeneralKnowledge:
		result = uc.runGeneralTurn(ctx, routing, enhanced, message)
	default:
		result = uc.runDomainTurn(ctx, routing, enhanced, message, history)
	}

	if result.IntentClassification.Intent != "" {
		uc.sessions.RecordIntent(sessionKey, result.IntentClassification.Intent)
	}

	uc.persistTurn(ctx, sessionKey, turn, message, result)
	uc.publishEvent(ctx, sessionKey, turn, result, time.Since(started))

	return result, nil
}

func (uc *TurnUseCase) clarificationResult(enhanced domain.EnhancedContext) *domain.TurnResult {
	return &domain.TurnResult{
		Answer: enhanced.ClarificationQuestion,
		Confidence: domain.ConfidenceResult{
			Score:   0,
			Level:   domain.ConfidenceVeryLow,
			Factors: []string{"Awaiting clarification"},
		},
		Sources: []domain.EvidenceItem{},
		RoutingDecision: domain.RoutingDecision{
			NeedsClarification:    true,
			ClarificationQuestion: enhanced.ClarificationQuestion,
		},
		ProactiveSuggestions: domain.SuggestionSet{Suggestions: []domain.Suggestion{}},
		MultiTurnContext:     multiTurnContext(enhanced),
	}
}

func (uc *TurnUseCase) runToolTurn(
	ctx context.Context,
	routing domain.RoutingDecision,
	enhanced domain.EnhancedContext,
	message string,
) *domain.TurnResult {
	suggestCh := uc.suggestAsync(ctx, message, "", nil, enhanced.State.Preferences)

	answer, err := uc.tools.Run(ctx, routing.ToolKind, message)
	confidence := domain.ConfidenceResult{
		Score:   90,
		Level:   domain.ConfidenceVeryHigh,
		Factors: []string{"Deterministic tool execution"},
	}
	if err != nil {
		uc.logger.Warn("tool_branch_failed",
			slog.String("tool", routing.ToolKind),
			slog.String("error", err.Error()),
		)
		answer = toolFailureAnswer
		confidence = domain.ConfidenceResult{
			Score:   20,
			Level:   domain.ConfidenceVeryLow,
			Factors: []string{"Tool execution failed"},
		}
	}

	return &domain.TurnResult{
		Answer:               answer,
		Confidence:           confidence,
		Sources:              []domain.EvidenceItem{},
		RoutingDecision:      routing,
		ProactiveSuggestions: <-suggestCh,
		MultiTurnContext:     multiTurnContext(enhanced),
	}
}

func (uc *TurnUseCase) runGeneralTurn(
	ctx context.Context,
	routing domain.RoutingDecision,
	enhanced domain.EnhancedContext,
	message string,
) *domain.TurnResult {
	suggestCh := uc.suggestAsync(ctx, message, "", nil, enhanced.State.Preferences)

	answer, err := uc.generator.GenerateFromPrompt(ctx, generalKnowledgePrompt(enhanced.ContextualQuery))
	confidence := domain.ConfidenceResult{
		Score:   60,
		Level:   domain.ConfidenceMedium,
		Factors: []string{"General knowledge response without document grounding"},
	}
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			uc.logger.Warn("general_branch_failed", slog.String("error", err.Error()))
		}
		answer = synthesisFailureAnswer
		confidence = domain.ConfidenceResult{
			Score:   20,
			Level:   domain.ConfidenceVeryLow,
			Factors: []string{"Answer generation failed"},
		}
	}

	return &domain.TurnResult{
		Answer:               answer,
		Confidence:           confidence,
		Sources:              []domain.EvidenceItem{},
		RoutingDecision:      routing,
		ProactiveSuggestions: <-suggestCh,
		MultiTurnContext:     multiTurnContext(enhanced),
	}
}

func (uc *TurnUseCase) runDomainTurn(
	ctx context.Context,
	routing domain.RoutingDecision,
	enhanced domain.EnhancedContext,
	message string,
	history []domain.Message,
) *domain.TurnResult {
	intent := uc.intents.ClassifyIntent(ctx, enhanced.ContextualQuery, history)
	cfg := uc.intents.RoutingConfigFor(intent.Intent)

	suggestCh := uc.suggestAsync(ctx, message, intent.Intent, history, enhanced.State.Preferences)

	result := &domain.TurnResult{
		Sources:              []domain.EvidenceItem{},
		RoutingDecision:      routing,
		IntentClassification: intent,
		MultiTurnContext:     multiTurnContext(enhanced),
	}

	evidence, err := uc.retriever.Search(ctx, enhanced.ContextualQuery, cfg.FinalK, intent.Intent, cfg)
	if err != nil {
		uc.logger.Warn("retrieval_failed", slog.String("error", err.Error()))
		evidence = nil
	}

	if len(evidence) == 0 {
		result.Answer = noEvidenceAnswer
		result.Confidence = domain.ConfidenceResult{
			Score:   0,
			Level:   domain.ConfidenceVeryLow,
			Factors: []string{"No sources found"},
		}
		result.ProactiveSuggestions = <-suggestCh
		return result
	}

	if averageScore(evidence) < lowRelevanceThreshold {
		result.Answer = noEvidenceAnswer
		result.Confidence = domain.ConfidenceResult{
			Score:   20,
			Level:   domain.ConfidenceVeryLow,
			Factors: []string{"Very low relevance scores"},
		}
		result.ProactiveSuggestions = <-suggestCh
		return result
	}

	result.Sources = evidence

	answer, err := uc.generator.GenerateAnswer(ctx, enhanced.ContextualQuery, evidence)
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			uc.logger.Warn("answer_synthesis_failed", slog.String("error", err.Error()))
		}
		answer = synthesisFailureAnswer
	}
	result.Answer = answer
	result.Confidence = uc.scorer.Score(evidence, answer, enhanced.ContextualQuery, intent)
	result.ProactiveSuggestions = <-suggestCh
	return result
}

// suggestAsync overlaps suggestion generation with the branch's own model
// calls. The channel always receives exactly one value.
func (uc *TurnUseCase) suggestAsync(
	ctx context.Context,
	message, intent string,
	history []domain.Message,
	preferences map[string]string,
) <-chan domain.SuggestionSet {
	ch := make(chan domain.SuggestionSet, 1)
	go func() {
		ch <- uc.suggestions.Suggest(ctx, suggest.Input{
			Utterance:   message,
			Intent:      intent,
			History:     history,
			Preferences: preferences,
		})
	}()
	return ch
}

// persistTurn stores both sides of the exchange. Persistence is best effort;
// a storage failure degrades durability, not the response.
func (uc *TurnUseCase) persistTurn(ctx context.Context, sessionKey string, turn int, message string, result *domain.TurnResult) {
	now := time.Now().UTC()
	if err := uc.conversations.AppendMessage(ctx, domain.Message{
		ID:         uuid.NewString(),
		SessionKey: sessionKey,
		Role:       domain.RoleUser,
		Content:    message,
		Turn:       turn,
		CreatedAt:  now,
	}); err != nil {
		uc.logger.Warn("persist_user_message_failed", slog.String("error", err.Error()))
	}

	if err := uc.conversations.AppendMessage(ctx, domain.Message{
		ID:         uuid.NewString(),
		SessionKey: sessionKey,
		Role:       domain.RoleAssistant,
		Content:    result.Answer,
		Turn:       turn,
		Metadata: domain.MessageMetadata{
			Branch:          string(result.RoutingDecision.Branch),
			Intent:          result.IntentClassification.Intent,
			ConfidenceScore: result.Confidence.Score,
			ConfidenceLevel: string(result.Confidence.Level),
			SourceCount:     len(result.Sources),
			Sources:         result.Sources,
		},
		CreatedAt: now,
	}); err != nil {
		uc.logger.Warn("persist_assistant_message_failed", slog.String("error", err.Error()))
	}
}

func (uc *TurnUseCase) publishEvent(ctx context.Context, sessionKey string, turn int, result *domain.TurnResult, elapsed time.Duration) {
	if uc.events == nil {
		return
	}
	event := domain.TurnEvent{
		SessionKey:      sessionKey,
		Turn:            turn,
		Branch:          string(result.RoutingDecision.Branch),
		Intent:          result.IntentClassification.Intent,
		ConfidenceScore: result.Confidence.Score,
		ConfidenceLevel: string(result.Confidence.Level),
		SourceCount:     len(result.Sources),
		DurationMS:      float64(elapsed.Milliseconds()),
		CompletedAt:     time.Now().UTC(),
	}
	if err := uc.events.PublishTurnCompleted(ctx, event); err != nil {
		uc.logger.Warn("turn_event_publish_failed", slog.String("error", err.Error()))
	}
}

func multiTurnContext(enhanced domain.EnhancedContext) domain.MultiTurnContext {
	return domain.MultiTurnContext{
		TurnCount:          enhanced.State.TurnCount,
		IsFollowUp:         enhanced.FollowUp.IsFollowUp,
		FollowUpConfidence: enhanced.FollowUp.Confidence,
		UserPreferences:    enhanced.State.Preferences,
		ContextualQuery:    enhanced.ContextualQuery,
	}
}

func averageScore(evidence []domain.EvidenceItem) float64 {
	if len(evidence) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range evidence {
		total += item.Score
	}
	return total / float64(len(evidence))
}

func generalKnowledgePrompt(question string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant for an e-commerce support team. ")
	b.WriteString("Answer the following general question concisely and accurately. ")
	b.WriteString("If the question turns out to be about the merchant's own store or platform features, say you need platform documentation to answer it.\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
