package domain

type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "Very High"
	ConfidenceHigh     ConfidenceLevel = "High"
	ConfidenceMedium   ConfidenceLevel = "Medium"
	ConfidenceLow      ConfidenceLevel = "Low"
	ConfidenceVeryLow  ConfidenceLevel = "Very Low"
)

// ConfidenceResult is the scorer's output: a [0,100] score, a discrete level
// and the ordered factor strings that explain how the score was assembled.
type ConfidenceResult struct {
	Score   float64         `json:"score"`
	Level   ConfidenceLevel `json:"level"`
	Factors []string        `json:"factors"`
}
