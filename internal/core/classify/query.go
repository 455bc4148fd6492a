package classify

import (
	"regexp"
	"strings"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

// toolRule maps a surface pattern to a tool kind. Rules are evaluated in
// order and the first match wins, so more specific patterns go first.
type toolRule struct {
	pattern *regexp.Regexp
	kind    string
}

var defaultToolRules = []toolRule{
	{regexp.MustCompile(`\d+(?:\.\d+)?\s*[+\-*/x×÷^]\s*\d+(?:\.\d+)?`), domain.ToolKindMath},
	{regexp.MustCompile(`\d+(?:\.\d+)?\s*%\s*of\s*\d+`), domain.ToolKindMath},
	{regexp.MustCompile(`\b(?:calculate|compute|sum of|square root|sqrt)\b`), domain.ToolKindMath},
	{regexp.MustCompile(`\bconvert\s+\d+(?:\.\d+)?\s*(?:usd|eur|gbp|cad|aud|jpy|dollars?|euros?|pounds?)\b`), domain.ToolKindCurrency},
	{regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:usd|eur|gbp|cad|aud|jpy)\s+(?:to|in)\s+(?:usd|eur|gbp|cad|aud|jpy)\b`), domain.ToolKindCurrency},
	{regexp.MustCompile(`\bexchange rate\b`), domain.ToolKindCurrency},
	{regexp.MustCompile(`\b(?:what (?:day|date|time) is|days? (?:until|between|since)|how many days)\b`), domain.ToolKindDate},
	{regexp.MustCompile(`\btoday'?s date\b`), domain.ToolKindDate},
	{regexp.MustCompile(`\b(?:validate|lint|format)\b.*\b(?:json|xml|regex|yaml)\b`), domain.ToolKindCode},
	{regexp.MustCompile("```"), domain.ToolKindCode},
}

var defaultGeneralPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:who|what|when|where|why|how)\s+(?:is|was|are|were|did|do|does)\b`),
	regexp.MustCompile(`\b(?:capital|president|population|history|inventor|author)\s+of\b`),
	regexp.MustCompile(`^(?:define|explain)\s+\w+`),
	regexp.MustCompile(`\bmeaning of\b`),
}

// defaultDomainKeywords anchor an utterance to the support domain. Presence
// of any keyword disables the general-knowledge branch.
var defaultDomainKeywords = []string{
	"store", "shop", "product", "order", "payment", "checkout", "shipping",
	"customer", "theme", "app", "api", "webhook", "billing", "refund",
	"inventory", "discount", "account", "subscription", "plan", "invoice",
	"integration", "setup", "install", "dashboard", "analytics", "conversion",
	"marketing", "seo", "domain", "fulfillment", "tax",
}

// QueryClassifier routes a raw utterance to exactly one processing branch.
type QueryClassifier struct {
	toolRules       []toolRule
	generalPatterns []*regexp.Regexp
	domainKeywords  []string
}

func NewQueryClassifier() *QueryClassifier {
	return &QueryClassifier{
		toolRules:       defaultToolRules,
		generalPatterns: defaultGeneralPatterns,
		domainKeywords:  defaultDomainKeywords,
	}
}

// Classify is deterministic and side-effect free. Unmatched input defaults
// to the domain branch; a query always receives a classification.
func (c *QueryClassifier) Classify(utterance string) domain.RoutingDecision {
	lowered := loweredText(utterance)

	toolKind := c.matchTool(lowered)
	if toolKind != "" {
		return domain.RoutingDecision{Branch: domain.BranchToolUse, ToolKind: toolKind}
	}
	if c.matchesGeneral(lowered) && !c.containsDomainKeyword(lowered) {
		return domain.RoutingDecision{Branch: domain.BranchGeneralKnowledge}
	}
	return domain.RoutingDecision{Branch: domain.BranchDomain}
}

func (c *QueryClassifier) matchTool(lowered string) string {
	for _, rule := range c.toolRules {
		if rule.pattern.MatchString(lowered) {
			return rule.kind
		}
	}
	return ""
}

func (c *QueryClassifier) matchesGeneral(lowered string) bool {
	for _, pattern := range c.generalPatterns {
		if pattern.MatchString(lowered) {
			return true
		}
	}
	return false
}

func (c *QueryClassifier) containsDomainKeyword(lowered string) bool {
	for _, keyword := range c.domainKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
