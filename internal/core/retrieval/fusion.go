package retrieval

import (
	"fmt"
	"sort"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

type fusedCandidate struct {
	item          domain.EvidenceItem
	semanticScore float64
	keywordScore  float64
	inSemantic    bool
	inKeyword     bool
}

// fuseWeighted combines both result lists into one score per candidate.
// Candidates present in both lists get the weighted sum; single-list
// candidates keep that list's score scaled by its own weight only.
func fuseWeighted(semantic, keyword []domain.EvidenceItem, cfg domain.RoutingConfig) []domain.EvidenceItem {
	acc := make(map[string]*fusedCandidate, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	for rank, item := range semantic {
		key := evidenceKey(item)
		candidate, ok := acc[key]
		if !ok {
			item.SemanticRank = rank
			candidate = &fusedCandidate{item: item}
			acc[key] = candidate
			order = append(order, key)
		}
		candidate.inSemantic = true
		if item.Score > candidate.semanticScore {
			candidate.semanticScore = item.Score
		}
	}
	for _, item := range keyword {
		key := evidenceKey(item)
		candidate, ok := acc[key]
		if !ok {
			item.SemanticRank = len(semantic) + len(keyword)
			candidate = &fusedCandidate{item: item}
			acc[key] = candidate
			order = append(order, key)
		}
		candidate.inKeyword = true
		if item.Score > candidate.keywordScore {
			candidate.keywordScore = item.Score
		}
		candidate.item = preferRicherItem(candidate.item, item)
	}

	out := make([]domain.EvidenceItem, 0, len(acc))
	for _, key := range order {
		candidate := acc[key]
		item := candidate.item
		item.Score = cfg.SemanticWeight*candidate.semanticScore + cfg.KeywordWeight*candidate.keywordScore
		item.KeywordScore = candidate.keywordScore

		switch {
		case candidate.inSemantic && candidate.inKeyword:
			item.SearchType = domain.SearchTypeHybrid
		case candidate.inSemantic:
			item.SearchType = domain.SearchTypeSemantic
		default:
			item.SearchType = domain.SearchTypeKeyword
		}

		if boost, ok := cfg.CategoryBoosts[item.Category]; ok && boost > 0 {
			item.Score *= boost
		}
		if item.Score > 1 {
			item.Score = 1
		}
		out = append(out, item)
	}

	sortFused(out)
	return out
}

// sortFused orders by fused score descending; ties go to the earlier
// semantic rank, then the higher keyword score.
func sortFused(items []domain.EvidenceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if items[i].SemanticRank != items[j].SemanticRank {
			return items[i].SemanticRank < items[j].SemanticRank
		}
		return items[i].KeywordScore > items[j].KeywordScore
	})
}

// applyDiversity reorders fused candidates so repeated categories pay a
// penalty proportional to how many same-category items were already picked.
// Reported scores stay the fused scores; only the order changes.
func applyDiversity(items []domain.EvidenceItem, boost float64) []domain.EvidenceItem {
	if boost <= 0 || len(items) < 2 {
		return items
	}

	remaining := make([]domain.EvidenceItem, len(items))
	copy(remaining, items)
	out := make([]domain.EvidenceItem, 0, len(items))
	seen := make(map[string]int)

	for len(remaining) > 0 {
		bestIdx := 0
		bestScore := penalizedScore(remaining[0], seen, boost)
		for i := 1; i < len(remaining); i++ {
			score := penalizedScore(remaining[i], seen, boost)
			if score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		picked := remaining[bestIdx]
		seen[picked.Category]++
		out = append(out, picked)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return out
}

func penalizedScore(item domain.EvidenceItem, seen map[string]int, boost float64) float64 {
	penalty := 1 - boost*float64(seen[item.Category])
	if penalty < 0 {
		penalty = 0
	}
	return item.Score * penalty
}

func filterMinRelevance(items []domain.EvidenceItem, minScore float64) []domain.EvidenceItem {
	if minScore <= 0 {
		return items
	}
	out := items[:0]
	for _, item := range items {
		if item.Score >= minScore {
			out = append(out, item)
		}
	}
	return out
}

func trimCandidates(items []domain.EvidenceItem, limit int) []domain.EvidenceItem {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}

func evidenceKey(item domain.EvidenceItem) string {
	if item.ID != "" {
		return item.ID
	}
	return fmt.Sprintf("%s|%s", item.URL, item.Title)
}

func preferRicherItem(current, candidate domain.EvidenceItem) domain.EvidenceItem {
	if current.Content == "" && candidate.Content != "" {
		current.Content = candidate.Content
	}
	if current.Title == "" && candidate.Title != "" {
		current.Title = candidate.Title
	}
	if current.Category == "" && candidate.Category != "" {
		current.Category = candidate.Category
	}
	if current.URL == "" && candidate.URL != "" {
		current.URL = candidate.URL
	}
	return current
}
