package domain

const (
	SearchTypeSemantic = "semantic"
	SearchTypeKeyword  = "keyword"
	SearchTypeHybrid   = "hybrid"
)

// EvidenceItem is one retrieved passage after fusion. SemanticRank and
// KeywordScore survive fusion so ordering ties can be broken the same way
// on every run.
type EvidenceItem struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	URL          string  `json:"url,omitempty"`
	Category     string  `json:"category"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	SearchType   string  `json:"searchType"`
	SemanticRank int     `json:"-"`
	KeywordScore float64 `json:"-"`
}

type SearchFilter struct {
	Category string
}
