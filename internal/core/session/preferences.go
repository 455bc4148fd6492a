package session

import "strings"

// preferenceRule maps surface phrases to a (key, value) preference fact.
// Later observations for the same key overwrite earlier ones.
type preferenceRule struct {
	key      string
	value    string
	triggers []string
}

var defaultPreferenceRules = []preferenceRule{
	{"plan", "basic", []string{"basic plan", "starter plan", "free plan", "free trial"}},
	{"plan", "standard", []string{"standard plan", "shopify plan", "regular plan"}},
	{"plan", "advanced", []string{"advanced plan", "plus plan", "enterprise plan", "pro plan"}},

	{"store_type", "online", []string{"online store", "web store", "ecommerce site"}},
	{"store_type", "retail", []string{"retail store", "physical store", "brick and mortar", "pos"}},
	{"store_type", "dropshipping", []string{"dropshipping", "drop shipping", "print on demand"}},

	{"experience", "beginner", []string{"beginner", "new to", "first time", "just starting", "never done"}},
	{"experience", "advanced", []string{"developer", "experienced", "advanced user", "i code"}},

	{"industry", "fashion", []string{"fashion", "clothing", "apparel"}},
	{"industry", "food", []string{"food", "restaurant", "grocery", "bakery"}},
	{"industry", "electronics", []string{"electronics", "gadgets"}},
	{"industry", "beauty", []string{"beauty", "cosmetics", "skincare"}},

	{"size", "small", []string{"small business", "side hustle", "solo"}},
	{"size", "large", []string{"large business", "high volume", "thousands of orders"}},
}

// extractPreferences scans one utterance and merges recognized facts into
// the given map. The map is created on first hit.
func extractPreferences(utterance string, into map[string]string) map[string]string {
	lowered := strings.ToLower(utterance)
	for _, rule := range defaultPreferenceRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lowered, trigger) {
				if into == nil {
					into = make(map[string]string)
				}
				into[rule.key] = rule.value
				break
			}
		}
	}
	return into
}
