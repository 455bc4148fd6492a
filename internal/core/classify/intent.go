package classify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/ports"
)

func loweredText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

const (
	IntentSetup           = "setup"
	IntentTroubleshooting = "troubleshooting"
	IntentOptimization    = "optimization"
	IntentBilling         = "billing"
	IntentGeneral         = "general"
)

// intentRule is one (pattern, label, weight) tuple. Rules are independent;
// the highest-weight match wins and extra matches for the same label nudge
// the confidence up.
type intentRule struct {
	pattern *regexp.Regexp
	intent  string
	weight  float64
}

var defaultIntentRules = []intentRule{
	{regexp.MustCompile(`\b(?:set\s*up|install|configure|get(?:ting)? started|create|connect|onboard)\b`), IntentSetup, 0.85},
	{regexp.MustCompile(`\b(?:how (?:do|can) i (?:add|enable|start))\b`), IntentSetup, 0.75},
	{regexp.MustCompile(`\b(?:error|fail(?:ed|ing)?|broken|not working|doesn'?t work|issue|problem|bug|crash|(?:4|5)\d{2})\b`), IntentTroubleshooting, 0.9},
	{regexp.MustCompile(`\b(?:fix|debug|troubleshoot|resolve|stuck)\b`), IntentTroubleshooting, 0.8},
	{regexp.MustCompile(`\b(?:improve|optimi[sz]e|increase|boost|grow|speed up|conversion|performance|seo|ranking)\b`), IntentOptimization, 0.8},
	{regexp.MustCompile(`\b(?:best practice|recommendation)s?\b`), IntentOptimization, 0.7},
	{regexp.MustCompile(`\b(?:billing|invoice|charge[ds]?|refund|price|pricing|cost|fee|plan upgrade|downgrade|payment failed)\b`), IntentBilling, 0.85},
	{regexp.MustCompile(`\b(?:cancel (?:my )?subscription|free trial)\b`), IntentBilling, 0.8},
}

var defaultRoutingConfigs = map[string]domain.RoutingConfig{
	IntentSetup: {
		SemanticWeight: 0.7, KeywordWeight: 0.3, MaxResults: 20, FinalK: 8,
		DiversityBoost: 0.15, MinRelevanceScore: 0.1, QueryExpansion: true,
		CategoryBoosts: map[string]float64{"guides": 1.2, "api": 1.1},
	},
	IntentTroubleshooting: {
		SemanticWeight: 0.6, KeywordWeight: 0.4, MaxResults: 20, FinalK: 8,
		DiversityBoost: 0.15, MinRelevanceScore: 0.1, QueryExpansion: true,
		CategoryBoosts: map[string]float64{"troubleshooting": 1.3, "community": 1.1},
	},
	IntentOptimization: {
		SemanticWeight: 0.75, KeywordWeight: 0.25, MaxResults: 20, FinalK: 8,
		DiversityBoost: 0.2, MinRelevanceScore: 0.1, QueryExpansion: true,
		CategoryBoosts: map[string]float64{"guides": 1.2, "blog": 1.1},
	},
	IntentBilling: {
		SemanticWeight: 0.65, KeywordWeight: 0.35, MaxResults: 20, FinalK: 8,
		DiversityBoost: 0.1, MinRelevanceScore: 0.1, QueryExpansion: false,
		CategoryBoosts: map[string]float64{"billing": 1.3, "official": 1.2},
	},
}

// neutralRoutingConfig serves unknown intents. RoutingConfigFor never fails.
var neutralRoutingConfig = domain.RoutingConfig{
	SemanticWeight: 0.7, KeywordWeight: 0.3, MaxResults: 20, FinalK: 8,
	DiversityBoost: 0.15, MinRelevanceScore: 0.1, QueryExpansion: true,
}

// IntentClassifier runs the rule table first and falls back to the external
// model only when the rule confidence is below the threshold. Model failures
// never propagate; the rule result is returned with a fallback method tag.
type IntentClassifier struct {
	rules          []intentRule
	routingConfigs map[string]domain.RoutingConfig
	model          ports.IntentModel
	modelThreshold float64
	logger         *slog.Logger
}

func NewIntentClassifier(model ports.IntentModel, modelThreshold float64, logger *slog.Logger) *IntentClassifier {
	if modelThreshold <= 0 || modelThreshold > 1 {
		modelThreshold = 0.6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentClassifier{
		rules:          defaultIntentRules,
		routingConfigs: defaultRoutingConfigs,
		model:          model,
		modelThreshold: modelThreshold,
		logger:         logger,
	}
}

func (c *IntentClassifier) ClassifyIntent(ctx context.Context, utterance string, history []domain.Message) domain.IntentClassification {
	ruleResult := c.classifyByRules(utterance)
	if ruleResult.Confidence >= c.modelThreshold || c.model == nil {
		return ruleResult
	}

	modelResult, err := c.model.ClassifyIntent(ctx, utterance, history)
	if err != nil {
		c.logger.Warn("intent_model_fallback", "error", err, "rule_intent", ruleResult.Intent)
		ruleResult.Method = domain.IntentMethodRuleFallback
		return ruleResult
	}
	if !c.knownIntent(modelResult.Intent) {
		modelResult.Intent = IntentGeneral
	}
	modelResult.Method = domain.IntentMethodModel
	if modelResult.Confidence < 0 {
		modelResult.Confidence = 0
	}
	if modelResult.Confidence > 1 {
		modelResult.Confidence = 1
	}
	return modelResult
}

func (c *IntentClassifier) classifyByRules(utterance string) domain.IntentClassification {
	lowered := loweredText(utterance)

	best := domain.IntentClassification{
		Intent:     IntentGeneral,
		Confidence: 0.3,
		Method:     domain.IntentMethodRule,
	}
	extraMatches := 0
	for _, rule := range c.rules {
		if !rule.pattern.MatchString(lowered) {
			continue
		}
		switch {
		case rule.weight > best.Confidence:
			if best.Intent == rule.intent {
				extraMatches++
			} else {
				extraMatches = 0
			}
			best.Intent = rule.intent
			best.Confidence = rule.weight
		case rule.intent == best.Intent:
			extraMatches++
		}
	}

	best.Confidence += 0.05 * float64(extraMatches)
	if best.Confidence > 0.95 {
		best.Confidence = 0.95
	}
	return best
}

// OverrideRoutingConfigs replaces per-intent tuning the operator configured.
// Intents absent from overrides keep their built-in configuration.
func (c *IntentClassifier) OverrideRoutingConfigs(overrides map[string]domain.RoutingConfig) {
	if len(overrides) == 0 {
		return
	}
	merged := make(map[string]domain.RoutingConfig, len(c.routingConfigs)+len(overrides))
	for intent, cfg := range c.routingConfigs {
		merged[intent] = cfg
	}
	for intent, cfg := range overrides {
		merged[intent] = cfg
	}
	c.routingConfigs = merged
}

// RoutingConfigFor is a pure lookup with a neutral default.
func (c *IntentClassifier) RoutingConfigFor(intent string) domain.RoutingConfig {
	if cfg, ok := c.routingConfigs[intent]; ok {
		return cfg
	}
	return neutralRoutingConfig
}

func (c *IntentClassifier) knownIntent(intent string) bool {
	switch intent {
	case IntentSetup, IntentTroubleshooting, IntentOptimization, IntentBilling, IntentGeneral:
		return true
	default:
		return false
	}
}
