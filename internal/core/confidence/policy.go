package confidence

// Policy is the scorer's tunable weight table. The defaults reproduce the
// empirically tuned production values; none of them is assumed optimal.
type Policy struct {
	RelevanceWeight    float64 `yaml:"relevance_weight"`
	EntityWeight       float64 `yaml:"entity_weight"`
	SourceWeight       float64 `yaml:"source_weight"`
	CompletenessWeight float64 `yaml:"completeness_weight"`
	IntentWeight       float64 `yaml:"intent_weight"`

	// Relevance blend: evidence share + lexical share must sum to 1.
	EvidenceShare float64 `yaml:"evidence_share"`
	LexicalShare  float64 `yaml:"lexical_share"`

	CategoryQuality map[string]float64 `yaml:"category_quality"`

	VeryHighThreshold float64 `yaml:"very_high_threshold"`
	HighThreshold     float64 `yaml:"high_threshold"`
	MediumThreshold   float64 `yaml:"medium_threshold"`
	LowThreshold      float64 `yaml:"low_threshold"`
}

func DefaultPolicy() Policy {
	return Policy{
		RelevanceWeight:    30,
		EntityWeight:       25,
		SourceWeight:       20,
		CompletenessWeight: 15,
		IntentWeight:       10,

		EvidenceShare: 0.7,
		LexicalShare:  0.3,

		CategoryQuality: map[string]float64{
			"api":             1.0,
			"official":        1.0,
			"guides":          0.9,
			"billing":         0.9,
			"troubleshooting": 0.85,
			"blog":            0.75,
			"community":       0.65,
			"forum":           0.6,
		},

		VeryHighThreshold: 85,
		HighThreshold:     70,
		MediumThreshold:   55,
		LowThreshold:      40,
	}
}

func (p Policy) normalize() Policy {
	def := DefaultPolicy()
	if p.RelevanceWeight <= 0 {
		p.RelevanceWeight = def.RelevanceWeight
	}
	if p.EntityWeight <= 0 {
		p.EntityWeight = def.EntityWeight
	}
	if p.SourceWeight <= 0 {
		p.SourceWeight = def.SourceWeight
	}
	if p.CompletenessWeight <= 0 {
		p.CompletenessWeight = def.CompletenessWeight
	}
	if p.IntentWeight <= 0 {
		p.IntentWeight = def.IntentWeight
	}
	if p.EvidenceShare <= 0 || p.LexicalShare <= 0 || p.EvidenceShare+p.LexicalShare > 1.0001 {
		p.EvidenceShare = def.EvidenceShare
		p.LexicalShare = def.LexicalShare
	}
	if len(p.CategoryQuality) == 0 {
		p.CategoryQuality = def.CategoryQuality
	}
	if p.VeryHighThreshold <= 0 {
		p.VeryHighThreshold = def.VeryHighThreshold
	}
	if p.HighThreshold <= 0 {
		p.HighThreshold = def.HighThreshold
	}
	if p.MediumThreshold <= 0 {
		p.MediumThreshold = def.MediumThreshold
	}
	if p.LowThreshold <= 0 {
		p.LowThreshold = def.LowThreshold
	}
	return p
}
