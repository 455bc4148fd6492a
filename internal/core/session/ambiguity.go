package session

import (
	"regexp"
	"strings"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

// ambiguityRule matches queries that need a clarifying question before any
// retrieval can run. Rules with needsNoTopic only fire when the session has
// no prior topic an anaphora could resolve against; disambiguators suppress
// the rule when present.
type ambiguityRule struct {
	kind           string
	pattern        *regexp.Regexp
	disambiguators []string
	needsNoTopic   bool
	question       string
}

var defaultAmbiguityRules = []ambiguityRule{
	{
		kind:         "vague_fix",
		pattern:      regexp.MustCompile(`^(?:fix it|fix this|it'?s broken|not working|help|doesn'?t work|it doesn'?t work)[.!?]*$`),
		needsNoTopic: true,
		question:     "I'd like to help. What exactly isn't working: a page, a payment, an app, or something else?",
	},
	{
		kind:           "api_type",
		pattern:        regexp.MustCompile(`\bapi\b`),
		disambiguators: []string{"admin", "storefront", "rest", "graphql", "webhook", "rate limit"},
		question:       "Which API do you mean: the Admin API, the Storefront API, or a third-party integration?",
	},
	{
		kind:           "payment_type",
		pattern:        regexp.MustCompile(`^(?:payments?|payment (?:question|issue|setup))[.!?]*$`),
		disambiguators: []string{"gateway", "provider", "checkout", "refund", "payout", "failed"},
		question:       "Is this about accepting payments at checkout, payment providers, or payouts to your bank?",
	},
	{
		kind:           "setup_help",
		pattern:        regexp.MustCompile(`^(?:how do i (?:set ?up|get started)|set ?up|getting started)[.!?]*$`),
		disambiguators: []string{"store", "domain", "theme", "product", "shipping", "payment"},
		question:       "What would you like to set up first: your store, products, shipping, or payments?",
	},
}

func detectAmbiguity(utterance string, state domain.SessionState) domain.AmbiguityDetection {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	if lowered == "" || strings.Contains(lowered, clarificationMarker) {
		return domain.AmbiguityDetection{}
	}

	for _, rule := range defaultAmbiguityRules {
		if !rule.pattern.MatchString(lowered) {
			continue
		}
		if rule.needsNoTopic && len(state.LastTopics) > 0 {
			continue
		}
		if hasDisambiguator(lowered, rule.disambiguators) {
			continue
		}
		return domain.AmbiguityDetection{
			IsAmbiguous:           true,
			Kind:                  rule.kind,
			ClarificationQuestion: rule.question,
		}
	}
	return domain.AmbiguityDetection{}
}

func hasDisambiguator(lowered string, disambiguators []string) bool {
	for _, term := range disambiguators {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}
