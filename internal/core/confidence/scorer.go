package confidence

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/textutil"
)

const emptyEvidenceScore = 10

var (
	statusCodePattern = regexp.MustCompile(`\b\d{3}\b`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	inlineCodePattern = regexp.MustCompile("`[^`]+`")
	stepPattern       = regexp.MustCompile(`(?m)^\s*(?:\d+\.|[-*])\s+`)
)

var actionVerbs = []string{
	"install", "configure", "enable", "disable", "create", "delete", "update",
	"connect", "verify", "export", "import", "get", "post", "put", "patch",
}

var domainNouns = []string{
	"api", "webhook", "checkout", "payment", "order", "refund", "invoice",
	"theme", "app", "store", "shipping", "inventory", "subscription", "plan",
	"dashboard", "token", "endpoint",
}

// Scorer is a pure function of (evidence, answer, query, intent). It holds
// only its policy table, so results are deterministic per input triple.
type Scorer struct {
	policy Policy
}

func NewScorer(policy Policy) *Scorer {
	return &Scorer{policy: policy.normalize()}
}

func (s *Scorer) Score(
	evidence []domain.EvidenceItem,
	answerText string,
	query string,
	intent domain.IntentClassification,
) domain.ConfidenceResult {
	if len(evidence) == 0 {
		return domain.ConfidenceResult{
			Score:   emptyEvidenceScore,
			Level:   domain.ConfidenceVeryLow,
			Factors: []string{"No sources found"},
		}
	}

	factors := make([]string, 0, 5)
	total := 0.0

	points, factor := s.relevanceFactor(evidence, answerText, query)
	total += points
	factors = append(factors, factor)

	points, factor = s.entityFactor(answerText, query)
	total += points
	factors = append(factors, factor)

	points, factor = s.sourceFactor(evidence)
	total += points
	factors = append(factors, factor)

	points, factor = s.completenessFactor(answerText)
	total += points
	factors = append(factors, factor)

	points, factor = s.intentFactor(intent)
	total += points
	factors = append(factors, factor)

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	return domain.ConfidenceResult{
		Score:   total,
		Level:   s.level(total),
		Factors: factors,
	}
}

// relevanceFactor blends average fused evidence score with lexical
// query-answer overlap, then bands the blend into fixed point awards.
func (s *Scorer) relevanceFactor(evidence []domain.EvidenceItem, answerText, query string) (float64, string) {
	sum := 0.0
	for _, item := range evidence {
		sum += item.Score
	}
	avgScore := sum / float64(len(evidence))

	queryTokens := textutil.ContentTokenSet(query)
	answerTokens := textutil.ContentTokenSet(answerText)
	lexical := textutil.Overlap(queryTokens, answerTokens)
	lexical += domainKeywordOverlap(queryTokens, answerTokens)
	if lexical > 1 {
		lexical = 1
	}

	blend := s.policy.EvidenceShare*avgScore + s.policy.LexicalShare*lexical

	var band float64
	var label string
	switch {
	case blend >= 0.8:
		band, label = 30, "Very strong source relevance"
	case blend >= 0.6:
		band, label = 25, "Strong source relevance"
	case blend >= 0.4:
		band, label = 20, "Moderate source relevance"
	case blend >= 0.2:
		band, label = 15, "Weak source relevance"
	default:
		band, label = 10, "Very weak source relevance"
	}

	points := band * s.policy.RelevanceWeight / 30
	return points, fmt.Sprintf("%s (%.2f)", label, blend)
}

// entityFactor rewards exact shared entities between query and answer:
// action verbs, 3-digit status codes, domain nouns, URLs, inline code.
func (s *Scorer) entityFactor(answerText, query string) (float64, string) {
	loweredQuery := strings.ToLower(query)
	loweredAnswer := strings.ToLower(answerText)

	matched := 0
	if sharedToken(loweredQuery, loweredAnswer, actionVerbs) {
		matched++
	}
	if sharedPatternMatch(query, answerText, statusCodePattern) {
		matched++
	}
	if sharedToken(loweredQuery, loweredAnswer, domainNouns) {
		matched++
	}
	if sharedPatternMatch(query, answerText, urlPattern) {
		matched++
	}
	if sharedPatternMatch(query, answerText, inlineCodePattern) {
		matched++
	}

	ratio := 0.25 * float64(matched)
	if ratio > 1 {
		ratio = 1
	}
	points := ratio * s.policy.EntityWeight
	return points, fmt.Sprintf("Entity alignment (%d shared entity types)", matched)
}

func (s *Scorer) sourceFactor(evidence []domain.EvidenceItem) (float64, string) {
	methods := make(map[string]struct{})
	categories := make(map[string]struct{})
	qualitySum := 0.0
	for _, item := range evidence {
		if item.SearchType != "" {
			methods[item.SearchType] = struct{}{}
		}
		if item.Category != "" {
			categories[item.Category] = struct{}{}
		}
		if quality, ok := s.policy.CategoryQuality[item.Category]; ok {
			qualitySum += quality
		} else {
			qualitySum += 0.7
		}
	}

	points := 0.0
	switch {
	case len(methods) >= 3:
		points += 10
	case len(methods) >= 2:
		points += 8
	default:
		points += 5
	}
	switch {
	case len(categories) >= 4:
		points += 10
	case len(categories) >= 2:
		points += 5
	}
	points += 2 * qualitySum / float64(len(evidence))

	if points > s.policy.SourceWeight {
		points = s.policy.SourceWeight
	}
	return points, fmt.Sprintf("Source mix: %d search methods, %d categories", len(methods), len(categories))
}

func (s *Scorer) completenessFactor(answerText string) (float64, string) {
	length := len(answerText)
	var base float64
	switch {
	case length >= 800:
		base = 11
	case length >= 400:
		base = 9
	case length >= 150:
		base = 7
	case length >= 50:
		base = 4
	default:
		base = 2
	}

	structure := 0
	if stepPattern.MatchString(answerText) {
		structure++
	}
	lowered := strings.ToLower(answerText)
	if strings.Contains(lowered, "for example") || strings.Contains(lowered, "e.g.") {
		structure++
	}
	if countTokenHits(lowered, domainNouns) >= 2 {
		structure++
	}

	points := (base + 2*float64(structure)) * s.policy.CompletenessWeight / 15
	if points > s.policy.CompletenessWeight {
		points = s.policy.CompletenessWeight
	}
	return points, fmt.Sprintf("Answer completeness (%d chars, %d structure signals)", length, structure)
}

func (s *Scorer) intentFactor(intent domain.IntentClassification) (float64, string) {
	confidence := intent.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	points := confidence * s.policy.IntentWeight
	return points, fmt.Sprintf("Intent classification confidence (%.2f)", confidence)
}

func (s *Scorer) level(score float64) domain.ConfidenceLevel {
	switch {
	case score >= s.policy.VeryHighThreshold:
		return domain.ConfidenceVeryHigh
	case score >= s.policy.HighThreshold:
		return domain.ConfidenceHigh
	case score >= s.policy.MediumThreshold:
		return domain.ConfidenceMedium
	case score >= s.policy.LowThreshold:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceVeryLow
	}
}

func domainKeywordOverlap(query, answer map[string]struct{}) float64 {
	shared := 0
	for _, noun := range domainNouns {
		_, inQuery := query[noun]
		_, inAnswer := answer[noun]
		if inQuery && inAnswer {
			shared++
		}
	}
	return 0.1 * float64(shared)
}

func sharedToken(loweredQuery, loweredAnswer string, vocabulary []string) bool {
	for _, token := range vocabulary {
		if containsWord(loweredQuery, token) && containsWord(loweredAnswer, token) {
			return true
		}
	}
	return false
}

func sharedPatternMatch(query, answer string, pattern *regexp.Regexp) bool {
	queryMatches := pattern.FindAllString(query, -1)
	if len(queryMatches) == 0 {
		return false
	}
	answerMatches := make(map[string]struct{})
	for _, m := range pattern.FindAllString(answer, -1) {
		answerMatches[m] = struct{}{}
	}
	for _, m := range queryMatches {
		if _, ok := answerMatches[m]; ok {
			return true
		}
	}
	return false
}

func containsWord(lowered, word string) bool {
	idx := strings.Index(lowered, word)
	for idx >= 0 {
		before := idx == 0 || !isWordChar(lowered[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(lowered) || !isWordChar(lowered[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(lowered[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func countTokenHits(lowered string, vocabulary []string) int {
	hits := 0
	for _, token := range vocabulary {
		if containsWord(lowered, token) {
			hits++
		}
	}
	return hits
}
