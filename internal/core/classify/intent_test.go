package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

type intentModelFake struct {
	result domain.IntentClassification
	err    error
	calls  int
}

func (f *intentModelFake) ClassifyIntent(context.Context, string, []domain.Message) (domain.IntentClassification, error) {
	f.calls++
	if f.err != nil {
		return domain.IntentClassification{}, f.err
	}
	return f.result, nil
}

func TestClassifyIntentStrongRuleSkipsModel(t *testing.T) {
	model := &intentModelFake{}
	c := NewIntentClassifier(model, 0.6, nil)

	got := c.ClassifyIntent(context.Background(), "my checkout fails with an error", nil)
	if got.Intent != IntentTroubleshooting {
		t.Fatalf("intent = %s, want troubleshooting", got.Intent)
	}
	if got.Method != domain.IntentMethodRule {
		t.Fatalf("method = %s, want rule_based", got.Method)
	}
	if model.calls != 0 {
		t.Fatalf("model called %d times, want 0", model.calls)
	}
}

func TestClassifyIntentWeakRuleUsesModel(t *testing.T) {
	model := &intentModelFake{result: domain.IntentClassification{Intent: IntentBilling, Confidence: 0.8}}
	c := NewIntentClassifier(model, 0.6, nil)

	got := c.ClassifyIntent(context.Background(), "quick question about my last statement", nil)
	if got.Intent != IntentBilling {
		t.Fatalf("intent = %s, want billing", got.Intent)
	}
	if got.Method != domain.IntentMethodModel {
		t.Fatalf("method = %s, want model_based", got.Method)
	}
}

func TestClassifyIntentModelErrorFallsBackToRules(t *testing.T) {
	model := &intentModelFake{err: errors.New("model down")}
	c := NewIntentClassifier(model, 0.6, nil)

	got := c.ClassifyIntent(context.Background(), "quick question about my last statement", nil)
	if got.Method != domain.IntentMethodRuleFallback {
		t.Fatalf("method = %s, want rule_fallback", got.Method)
	}
	if got.Intent != IntentGeneral {
		t.Fatalf("intent = %s, want general", got.Intent)
	}
}

func TestClassifyIntentUnknownModelLabelMapsToGeneral(t *testing.T) {
	model := &intentModelFake{result: domain.IntentClassification{Intent: "weird", Confidence: 2.5}}
	c := NewIntentClassifier(model, 0.6, nil)

	got := c.ClassifyIntent(context.Background(), "hello there", nil)
	if got.Intent != IntentGeneral {
		t.Fatalf("intent = %s, want general", got.Intent)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence = %v, want clamped to 1", got.Confidence)
	}
}

func TestRoutingConfigForUnknownIntentIsNeutral(t *testing.T) {
	c := NewIntentClassifier(nil, 0.6, nil)

	cfg := c.RoutingConfigFor("nonexistent")
	if cfg.SemanticWeight != 0.7 || cfg.KeywordWeight != 0.3 {
		t.Fatalf("neutral config weights = %v/%v, want 0.7/0.3", cfg.SemanticWeight, cfg.KeywordWeight)
	}
	if cfg.SemanticWeight+cfg.KeywordWeight > 1 {
		t.Fatalf("weights sum above 1")
	}
}

func TestRoutingConfigWeightsNormalized(t *testing.T) {
	c := NewIntentClassifier(nil, 0.6, nil)
	for _, intent := range []string{IntentSetup, IntentTroubleshooting, IntentOptimization, IntentBilling, IntentGeneral} {
		cfg := c.RoutingConfigFor(intent)
		if cfg.SemanticWeight+cfg.KeywordWeight > 1.0001 {
			t.Fatalf("intent %s weights sum to %v", intent, cfg.SemanticWeight+cfg.KeywordWeight)
		}
	}
}
