package suggest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/ports"
	"github.com/kirillkom/support-agent-core/internal/core/textutil"
)

const (
	maxSuggestions      = 3
	historyWindow       = 5
	historyRelevance    = 0.7
	ruleBaseRelevance   = 0.5
	intentMatchBonus    = 0.3
	overlapBonusWeight  = 0.2
	preferenceBonusStep = 0.2
)

// Engine produces proactive suggestions from three passes: a trigger-rule
// scan of the current utterance, a theme scan over recent history, and an
// optional generative pass. Results are merged, deduplicated by text and
// capped at maxSuggestions.
type Engine struct {
	rules     []suggestionRule
	themes    []historyTheme
	fallback  []domain.Suggestion
	generator ports.SuggestionGenerator
	logger    *slog.Logger
}

// NewEngine builds an engine with the default rule tables. generator may be
// nil, which disables the generative pass.
func NewEngine(generator ports.SuggestionGenerator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:     defaultSuggestionRules,
		themes:    defaultHistoryThemes,
		fallback:  fallbackSuggestions,
		generator: generator,
		logger:    logger,
	}
}

// Input carries everything the passes read for one turn.
type Input struct {
	Utterance   string
	Intent      string
	History     []domain.Message
	Preferences map[string]string
}

func (e *Engine) Suggest(ctx context.Context, in Input) domain.SuggestionSet {
	var all []domain.Suggestion
	all = append(all, e.rulePass(in)...)
	all = append(all, e.historyPass(in)...)
	all = append(all, e.generativePass(ctx, in)...)

	merged := dedupe(all)
	sortSuggestions(merged)

	total := len(merged)
	if total == 0 {
		merged = append(merged, e.fallback...)
		total = len(merged)
	}
	if len(merged) > maxSuggestions {
		merged = merged[:maxSuggestions]
	}
	return domain.SuggestionSet{Suggestions: merged, TotalFound: total}
}

func (e *Engine) rulePass(in Input) []domain.Suggestion {
	lowered := strings.ToLower(in.Utterance)
	queryTokens := textutil.ContentTokenSet(in.Utterance)

	var out []domain.Suggestion
	for _, rule := range e.rules {
		if !rule.trigger.MatchString(lowered) {
			continue
		}
		relevance := ruleBaseRelevance
		if rule.intent == in.Intent {
			relevance += intentMatchBonus
		}
		if len(queryTokens) > 0 {
			relevance += textutil.Overlap(queryTokens, textutil.ContentTokenSet(rule.text)) * overlapBonusWeight
		}
		for key, want := range rule.preferences {
			if in.Preferences[key] == want {
				relevance += preferenceBonusStep
			}
		}
		if relevance > 1.0 {
			relevance = 1.0
		}
		out = append(out, domain.Suggestion{
			Text:       rule.text,
			Category:   rule.category,
			Priority:   rule.priority,
			Relevance:  relevance,
			Provenance: domain.SuggestionFromRule,
		})
	}
	return out
}

func (e *Engine) historyPass(in Input) []domain.Suggestion {
	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var joined strings.Builder
	for _, msg := range history {
		if msg.Role != domain.RoleUser {
			continue
		}
		joined.WriteString(strings.ToLower(msg.Content))
		joined.WriteByte(' ')
	}
	text := joined.String()
	if text == "" {
		return nil
	}

	var out []domain.Suggestion
	for _, theme := range e.themes {
		if !theme.pattern.MatchString(text) {
			continue
		}
		out = append(out, domain.Suggestion{
			Text:       theme.text,
			Category:   theme.category,
			Priority:   theme.priority,
			Relevance:  historyRelevance,
			Provenance: domain.SuggestionFromRule,
		})
	}
	return out
}

type generatedSuggestion struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

func (e *Engine) generativePass(ctx context.Context, in Input) []domain.Suggestion {
	if e.generator == nil {
		return nil
	}
	raw, err := e.generator.GenerateJSONFromPrompt(ctx, suggestionPrompt(in))
	if err != nil {
		e.logger.Warn("suggestion_generation_skipped", slog.String("error", err.Error()))
		return nil
	}

	parsed, err := parseGenerated(stripCodeFence(raw))
	if err != nil {
		e.logger.Warn("suggestion_parse_skipped", slog.String("error", err.Error()))
		return nil
	}

	var out []domain.Suggestion
	for _, g := range parsed {
		if strings.TrimSpace(g.Text) == "" {
			continue
		}
		priority := g.Priority
		switch priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			priority = domain.PriorityLow
		}
		category := g.Category
		if category == "" {
			category = "general"
		}
		out = append(out, domain.Suggestion{
			Text:       strings.TrimSpace(g.Text),
			Category:   category,
			Priority:   priority,
			Relevance:  0.6,
			Provenance: domain.SuggestionFromAI,
		})
	}
	return out
}

func suggestionPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("You advise an e-commerce merchant. Based on the conversation, propose up to 2 short, actionable next steps.\n")
	b.WriteString("Respond with a JSON array of objects with fields text, category, priority (high|medium|low). No other text.\n\n")
	b.WriteString("Current question: ")
	b.WriteString(in.Utterance)
	b.WriteByte('\n')
	if in.Intent != "" {
		b.WriteString("Detected intent: ")
		b.WriteString(in.Intent)
		b.WriteByte('\n')
	}
	for key, value := range in.Preferences {
		b.WriteString("Merchant ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}
	return b.String()
}

// parseGenerated accepts either a bare JSON array or an object wrapping it
// under a suggestions key, which JSON-mode models commonly produce.
func parseGenerated(raw string) ([]generatedSuggestion, error) {
	var list []generatedSuggestion
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Suggestions []generatedSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Suggestions, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func dedupe(suggestions []domain.Suggestion) []domain.Suggestion {
	seen := make(map[string]int, len(suggestions))
	var out []domain.Suggestion
	for _, s := range suggestions {
		key := strings.ToLower(strings.TrimSpace(s.Text))
		if idx, ok := seen[key]; ok {
			if s.Relevance > out[idx].Relevance {
				out[idx] = s
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, s)
	}
	return out
}

func priorityWeight(priority string) int {
	switch priority {
	case domain.PriorityHigh:
		return 3
	case domain.PriorityMedium:
		return 2
	default:
		return 1
	}
}

// sortSuggestions orders by relevance plus priority weight, so a high-priority
// item outranks a more relevant low-priority one.
func sortSuggestions(suggestions []domain.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		scoreI := suggestions[i].Relevance + float64(priorityWeight(suggestions[i].Priority))
		scoreJ := suggestions[j].Relevance + float64(priorityWeight(suggestions[j].Priority))
		return scoreI > scoreJ
	})
}
