package suggest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

type generatorFake struct {
	response string
	err      error
	calls    int
}

func (g *generatorFake) GenerateJSONFromPrompt(_ context.Context, _ string) (string, error) {
	g.calls++
	return g.response, g.err
}

func TestSuggestRulePassIntentAndPreferenceBonus(t *testing.T) {
	engine := NewEngine(nil, nil)

	set := engine.Suggest(context.Background(), Input{
		Utterance:   "Question about my billing plan",
		Intent:      "billing",
		Preferences: map[string]string{"plan": "basic"},
	})

	if len(set.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(set.Suggestions))
	}
	got := set.Suggestions[0]
	if got.Provenance != domain.SuggestionFromRule {
		t.Fatalf("unexpected provenance %q", got.Provenance)
	}
	if got.Relevance != 1.0 {
		t.Fatalf("expected relevance capped at 1.0, got %v", got.Relevance)
	}
}

func TestSuggestOrdersByCombinedScoreAndCapsAtThree(t *testing.T) {
	engine := NewEngine(nil, nil)

	set := engine.Suggest(context.Background(), Input{
		Utterance: "My payment checkout keeps failing with an error during setup of a new store",
		Intent:    "troubleshooting",
	})

	if len(set.Suggestions) != maxSuggestions {
		t.Fatalf("expected %d suggestions, got %d", maxSuggestions, len(set.Suggestions))
	}
	if set.TotalFound < maxSuggestions {
		t.Fatalf("TotalFound = %d, want at least %d", set.TotalFound, maxSuggestions)
	}
	first := set.Suggestions[0]
	if !strings.Contains(first.Text, "status page") {
		t.Fatalf("expected the intent-matched troubleshooting suggestion first, got %q", first.Text)
	}
	for i := 1; i < len(set.Suggestions); i++ {
		prev := set.Suggestions[i-1].Relevance + float64(priorityWeight(set.Suggestions[i-1].Priority))
		cur := set.Suggestions[i].Relevance + float64(priorityWeight(set.Suggestions[i].Priority))
		if cur > prev {
			t.Fatalf("suggestions not sorted by combined score: %v then %v", prev, cur)
		}
	}
}

func TestSortPrefersHighPriorityOverHigherRelevance(t *testing.T) {
	suggestions := []domain.Suggestion{
		{Text: "very relevant but low priority", Priority: domain.PriorityLow, Relevance: 0.9},
		{Text: "less relevant but high priority", Priority: domain.PriorityHigh, Relevance: 0.5},
	}

	sortSuggestions(suggestions)

	if suggestions[0].Priority != domain.PriorityHigh {
		t.Fatalf("high priority should outrank higher relevance, got %q first", suggestions[0].Text)
	}
}

func TestSuggestRulePassAppliesOverlapBonus(t *testing.T) {
	engine := NewEngine(nil, nil)

	// "checkout" appears in both the utterance and the matched rule's text,
	// so half the utterance's content tokens overlap.
	set := engine.Suggest(context.Background(), Input{Utterance: "checkout problem"})

	if len(set.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(set.Suggestions))
	}
	got := set.Suggestions[0]
	want := ruleBaseRelevance + 0.5*overlapBonusWeight
	if math.Abs(got.Relevance-want) > 1e-9 {
		t.Fatalf("expected relevance %v with overlap bonus, got %v", want, got.Relevance)
	}
}

func TestSuggestHistoryThemes(t *testing.T) {
	engine := NewEngine(nil, nil)

	set := engine.Suggest(context.Background(), Input{
		Utterance: "thanks",
		History: []domain.Message{
			{Role: domain.RoleUser, Content: "How do I configure shipping rates?"},
			{Role: domain.RoleAssistant, Content: "You can set them in settings."},
			{Role: domain.RoleUser, Content: "Which carriers are supported?"},
		},
	})

	if len(set.Suggestions) != 1 {
		t.Fatalf("expected one history suggestion, got %d", len(set.Suggestions))
	}
	got := set.Suggestions[0]
	if !strings.Contains(got.Text, "shipping policy") {
		t.Fatalf("unexpected suggestion %q", got.Text)
	}
	if got.Relevance != historyRelevance {
		t.Fatalf("expected history relevance %v, got %v", historyRelevance, got.Relevance)
	}
}

func TestSuggestGenerativePassParsesFencedJSON(t *testing.T) {
	gen := &generatorFake{
		response: "```json\n[{\"text\":\"Try the built-in reports\",\"category\":\"analytics\",\"priority\":\"urgent\"}]\n```",
	}
	engine := NewEngine(gen, nil)

	set := engine.Suggest(context.Background(), Input{Utterance: "hm"})

	if gen.calls != 1 {
		t.Fatalf("expected one generator call, got %d", gen.calls)
	}
	if len(set.Suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(set.Suggestions))
	}
	got := set.Suggestions[0]
	if got.Provenance != domain.SuggestionFromAI {
		t.Fatalf("unexpected provenance %q", got.Provenance)
	}
	if got.Priority != domain.PriorityLow {
		t.Fatalf("unknown priority should map to low, got %q", got.Priority)
	}
}

func TestSuggestGeneratorFailureIsSilent(t *testing.T) {
	gen := &generatorFake{err: errors.New("model unavailable")}
	engine := NewEngine(gen, nil)

	set := engine.Suggest(context.Background(), Input{
		Utterance: "checkout problem",
		Intent:    "setup",
	})

	if len(set.Suggestions) == 0 {
		t.Fatal("rule suggestions should survive a generator failure")
	}
	for _, s := range set.Suggestions {
		if s.Provenance == domain.SuggestionFromAI {
			t.Fatalf("no AI suggestion expected, got %q", s.Text)
		}
	}
}

func TestSuggestDedupeKeepsHighestRelevance(t *testing.T) {
	gen := &generatorFake{
		response: `[{"text":"enable an EXPRESS checkout option to reduce cart abandonment","category":"payments","priority":"high"}]`,
	}
	engine := NewEngine(gen, nil)

	set := engine.Suggest(context.Background(), Input{
		Utterance: "checkout problem",
		Intent:    "setup",
	})

	var matches []domain.Suggestion
	for _, s := range set.Suggestions {
		if strings.Contains(strings.ToLower(s.Text), "express checkout") {
			matches = append(matches, s)
		}
	}
	if len(matches) != 1 {
		t.Fatalf("expected the duplicate text to collapse to one entry, got %d", len(matches))
	}
	if matches[0].Provenance != domain.SuggestionFromRule {
		t.Fatalf("the higher-relevance rule entry should win, got provenance %q", matches[0].Provenance)
	}
}

func TestSuggestFallbackWhenNothingMatches(t *testing.T) {
	engine := NewEngine(nil, nil)

	set := engine.Suggest(context.Background(), Input{Utterance: "hello there"})

	if len(set.Suggestions) != len(fallbackSuggestions) {
		t.Fatalf("expected the fallback set, got %d suggestions", len(set.Suggestions))
	}
	for _, s := range set.Suggestions {
		if s.Provenance != domain.SuggestionFromFallback {
			t.Fatalf("unexpected provenance %q", s.Provenance)
		}
	}
}
