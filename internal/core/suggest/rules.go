package suggest

import (
	"regexp"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

// suggestionRule is one trigger-table entry. Intent names the template set
// the trigger belongs to; matching the current turn's intent adds to the
// relevance score.
type suggestionRule struct {
	trigger     *regexp.Regexp
	intent      string
	text        string
	category    string
	priority    string
	preferences map[string]string
}

var defaultSuggestionRules = []suggestionRule{
	{
		trigger:  regexp.MustCompile(`\b(?:set\s*up|getting started|new store|first product|launch)\b`),
		intent:   "setup",
		text:     "Set up shipping zones and rates before your first order arrives",
		category: "setup", priority: domain.PriorityHigh,
		preferences: map[string]string{"experience": "beginner"},
	},
	{
		trigger:  regexp.MustCompile(`\b(?:product|catalog|inventory)\b`),
		intent:   "setup",
		text:     "Organize products into collections to improve store navigation",
		category: "setup", priority: domain.PriorityMedium,
	},
	{
		trigger:  regexp.MustCompile(`\b(?:payment|checkout|gateway)\b`),
		intent:   "setup",
		text:     "Enable an express checkout option to reduce cart abandonment",
		category: "payments", priority: domain.PriorityHigh,
	},
	{
		trigger:  regexp.MustCompile(`\b(?:error|broken|not working|failed|bug)\b`),
		intent:   "troubleshooting",
		text:     "Check the status page and recent app changes before deeper debugging",
		category: "troubleshooting", priority: domain.PriorityHigh,
	},
	{
		trigger:  regexp.MustCompile(`\b(?:slow|performance|speed)\b`),
		intent:   "troubleshooting",
		text:     "Audit installed apps and theme scripts that slow page loads",
		category: "performance", priority: domain.PriorityMedium,
	},
	{
		trigger:  regexp.MustCompile(`\b(?:seo|traffic|ranking|conversion|sales)\b`),
		intent:   "optimization",
		text:     "Add structured product data to improve search visibility",
		category: "marketing", priority: domain.PriorityMedium,
	},
	{
		trigger:  regexp.MustCompile(`\b(?:abandon|cart recovery)\b`),
		intent:   "optimization",
		text:     "Turn on abandoned checkout emails to recover lost sales",
		category: "marketing", priority: domain.PriorityHigh,
	},
	{
		trigger:  regexp.MustCompile(`\b(?:billing|invoice|refund|charge|plan)\b`),
		intent:   "billing",
		text:     "Review your plan tier against current order volume to avoid overage fees",
		category: "billing", priority: domain.PriorityMedium,
		preferences: map[string]string{"plan": "basic"},
	},
	{
		trigger:  regexp.MustCompile(`\b(?:ship|shipping|fulfillment|delivery)\b`),
		intent:   "setup",
		text:     "Compare carrier-calculated rates with flat rates for your typical order",
		category: "shipping", priority: domain.PriorityMedium,
	},
}

// historyTheme maps a recurring topic across recent messages to a standing
// recommendation. History matches carry a fixed relevance.
type historyTheme struct {
	pattern  *regexp.Regexp
	text     string
	category string
	priority string
}

var defaultHistoryThemes = []historyTheme{
	{
		pattern:  regexp.MustCompile(`\b(?:shipping|delivery|fulfillment)\b`),
		text:     "Document your shipping policy on a dedicated store page",
		category: "shipping", priority: domain.PriorityMedium,
	},
	{
		pattern:  regexp.MustCompile(`\b(?:payment|checkout|refund)\b`),
		text:     "Set up automatic payment failure notifications for your team",
		category: "payments", priority: domain.PriorityMedium,
	},
	{
		pattern:  regexp.MustCompile(`\b(?:theme|design|layout)\b`),
		text:     "Preview theme changes on a duplicate theme before publishing",
		category: "design", priority: domain.PriorityLow,
	},
}

var fallbackSuggestions = []domain.Suggestion{
	{
		Text:     "Connect an analytics dashboard to track where your visitors come from",
		Category: "analytics", Priority: domain.PriorityMedium,
		Relevance: 0.4, Provenance: domain.SuggestionFromFallback,
	},
	{
		Text:     "Collect customer reviews to build social proof on product pages",
		Category: "marketing", Priority: domain.PriorityMedium,
		Relevance: 0.4, Provenance: domain.SuggestionFromFallback,
	},
	{
		Text:     "Start an email list so you can reach customers without ad spend",
		Category: "marketing", Priority: domain.PriorityLow,
		Relevance: 0.4, Provenance: domain.SuggestionFromFallback,
	},
}
