package confidence

import (
	"reflect"
	"strings"
	"testing"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

func billingIntent() domain.IntentClassification {
	return domain.IntentClassification{Intent: "billing", Confidence: 0.9, Method: domain.IntentMethodRule}
}

func strongEvidence() []domain.EvidenceItem {
	return []domain.EvidenceItem{
		{ID: "1", Category: "api", SearchType: domain.SearchTypeHybrid, Score: 0.9},
		{ID: "2", Category: "guides", SearchType: domain.SearchTypeSemantic, Score: 0.85},
		{ID: "3", Category: "billing", SearchType: domain.SearchTypeKeyword, Score: 0.8},
		{ID: "4", Category: "community", SearchType: domain.SearchTypeHybrid, Score: 0.75},
	}
}

func TestScoreEmptyEvidenceLaw(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	for _, answer := range []string{"", "some answer", strings.Repeat("x", 2000)} {
		result := s.Score(nil, answer, "any query", billingIntent())
		if result.Score != 10 {
			t.Fatalf("empty-evidence score = %v, want 10", result.Score)
		}
		if result.Level != domain.ConfidenceVeryLow {
			t.Fatalf("empty-evidence level = %s, want Very Low", result.Level)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer(DefaultPolicy())
	evidence := strongEvidence()
	answer := "To issue a refund, open the order in your dashboard and select Refund. For example, partial refunds keep the invoice open."
	query := "how do I refund an order invoice"

	first := s.Score(evidence, answer, query, billingIntent())
	second := s.Score(evidence, answer, query, billingIntent())
	if first.Score != second.Score || first.Level != second.Level {
		t.Fatalf("nondeterministic score: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(first.Factors, second.Factors) {
		t.Fatalf("nondeterministic factors: %v vs %v", first.Factors, second.Factors)
	}
}

func TestScoreBoundsClamped(t *testing.T) {
	policy := DefaultPolicy()
	policy.RelevanceWeight = 300
	s := NewScorer(policy)

	answer := strings.Repeat("refund api webhook checkout order invoice ", 40) + "\n1. step one\n2. step two\nfor example this."
	result := s.Score(strongEvidence(), answer, "refund api order", billingIntent())
	if result.Score < 0 || result.Score > 100 {
		t.Fatalf("score out of bounds: %v", result.Score)
	}
}

func TestScoreFiveFactorsReported(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	result := s.Score(strongEvidence(), "Open the billing dashboard.", "billing question", billingIntent())
	if len(result.Factors) != 5 {
		t.Fatalf("factor count = %d, want 5: %v", len(result.Factors), result.Factors)
	}
}

func TestScoreRewardsEntityAlignment(t *testing.T) {
	s := NewScorer(DefaultPolicy())
	evidence := strongEvidence()
	query := "checkout returns a 404 from the api"

	aligned := s.Score(evidence, "A 404 from the checkout api means the endpoint moved.", query, billingIntent())
	unaligned := s.Score(evidence, "Please try again later.", query, billingIntent())
	if aligned.Score <= unaligned.Score {
		t.Fatalf("aligned %v <= unaligned %v", aligned.Score, unaligned.Score)
	}
}

func TestScoreLevelThresholds(t *testing.T) {
	s := NewScorer(DefaultPolicy())
	cases := []struct {
		score float64
		want  domain.ConfidenceLevel
	}{
		{90, domain.ConfidenceVeryHigh},
		{85, domain.ConfidenceVeryHigh},
		{75, domain.ConfidenceHigh},
		{60, domain.ConfidenceMedium},
		{45, domain.ConfidenceLow},
		{20, domain.ConfidenceVeryLow},
	}
	for _, tc := range cases {
		if got := s.level(tc.score); got != tc.want {
			t.Fatalf("level(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestScoreHighQualityInputScoresHigh(t *testing.T) {
	s := NewScorer(DefaultPolicy())
	answer := "To refund an order:\n1. Open the order in the dashboard.\n2. Select Refund and confirm the invoice amount.\nFor example, a partial refund keeps the subscription plan active. The api endpoint POST /refunds also accepts a webhook callback." + strings.Repeat(" More detail about the refund workflow.", 10)
	query := "how do I refund an order through the api"

	result := s.Score(strongEvidence(), answer, query, billingIntent())
	if result.Score < 55 {
		t.Fatalf("strong input score = %v, want at least Medium range", result.Score)
	}
}
