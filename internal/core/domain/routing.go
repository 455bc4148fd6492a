package domain

type RouteBranch string

const (
	BranchGeneralKnowledge RouteBranch = "general_knowledge"
	BranchToolUse          RouteBranch = "tool_use"
	BranchDomain           RouteBranch = "domain"
)

// RoutingDecision carries exactly one active branch per turn. A set
// NeedsClarification flag overrides the branch before it executes.
type RoutingDecision struct {
	Branch                RouteBranch `json:"branch"`
	ToolKind              string      `json:"tool_kind,omitempty"`
	NeedsClarification    bool        `json:"needs_clarification"`
	ClarificationQuestion string      `json:"clarification_question,omitempty"`
}

const (
	ToolKindMath     = "math"
	ToolKindDate     = "date"
	ToolKindCurrency = "currency"
	ToolKindCode     = "code"
)

const (
	IntentMethodRule         = "rule_based"
	IntentMethodModel        = "model_based"
	IntentMethodRuleFallback = "rule_fallback"
)

type IntentClassification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// RoutingConfig tunes retrieval per intent. Weights are fusion weights and
// must sum to at most 1 for normalized fusion.
type RoutingConfig struct {
	SemanticWeight    float64            `json:"semantic_weight" yaml:"semantic_weight"`
	KeywordWeight     float64            `json:"keyword_weight" yaml:"keyword_weight"`
	MaxResults        int                `json:"max_results" yaml:"max_results"`
	FinalK            int                `json:"final_k" yaml:"final_k"`
	DiversityBoost    float64            `json:"diversity_boost" yaml:"diversity_boost"`
	MinRelevanceScore float64            `json:"min_relevance_score" yaml:"min_relevance_score"`
	CategoryBoosts    map[string]float64 `json:"category_boosts,omitempty" yaml:"category_boosts"`
	QueryExpansion    bool               `json:"query_expansion" yaml:"query_expansion"`
}
