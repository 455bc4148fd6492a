package domain

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	SuggestionFromRule     = "rule"
	SuggestionFromAI       = "ai"
	SuggestionFromFallback = "fallback"
)

type Suggestion struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Priority   string  `json:"priority"`
	Relevance  float64 `json:"relevance"`
	Provenance string  `json:"provenance"`
}

type SuggestionSet struct {
	Suggestions []Suggestion `json:"suggestions"`
	TotalFound  int          `json:"totalFound"`
}
