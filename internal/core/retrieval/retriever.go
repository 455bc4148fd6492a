package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
	"github.com/kirillkom/support-agent-core/internal/core/ports"
	"github.com/kirillkom/support-agent-core/internal/core/textutil"
)

// defaultLexicon augments matched query terms with close domain synonyms.
// Expansion only ever adds terms; the original query is kept verbatim.
var defaultLexicon = map[string][]string{
	"refund":   {"chargeback", "return"},
	"shipping": {"fulfillment", "delivery"},
	"payment":  {"checkout", "transaction"},
	"theme":    {"template", "storefront"},
	"app":      {"integration", "plugin"},
	"seo":      {"search ranking"},
	"error":    {"failure"},
}

type Config struct {
	SearchTimeout time.Duration
	Lexicon       map[string][]string
}

// HybridRetriever issues semantic and keyword searches concurrently and
// fuses the combined candidate set.
type HybridRetriever struct {
	embedder ports.Embedder
	semantic ports.SemanticSearcher
	keyword  ports.KeywordSearcher
	lexicon  map[string][]string
	timeout  time.Duration
	logger   *slog.Logger
}

func NewHybridRetriever(
	embedder ports.Embedder,
	semantic ports.SemanticSearcher,
	keyword ports.KeywordSearcher,
	cfg Config,
	logger *slog.Logger,
) *HybridRetriever {
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = 10 * time.Second
	}
	if cfg.Lexicon == nil {
		cfg.Lexicon = defaultLexicon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridRetriever{
		embedder: embedder,
		semantic: semantic,
		keyword:  keyword,
		lexicon:  cfg.Lexicon,
		timeout:  cfg.SearchTimeout,
		logger:   logger,
	}
}

// Search returns up to k fused evidence items, or an explicit empty list when
// nothing clears the minimum relevance filter. One failed search path
// degrades to single-source fusion; only both paths failing is an error.
func (r *HybridRetriever) Search(
	ctx context.Context,
	query string,
	k int,
	intent string,
	cfg domain.RoutingConfig,
) ([]domain.EvidenceItem, error) {
	cfg = normalizeRoutingConfig(cfg)
	if k <= 0 {
		k = cfg.FinalK
	}
	candidateLimit := cfg.MaxResults
	if candidateLimit < 2*k {
		candidateLimit = 2 * k
	}

	searchQuery := query
	if cfg.QueryExpansion {
		searchQuery = r.expandQuery(query)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		wg            sync.WaitGroup
		semanticItems []domain.EvidenceItem
		keywordItems  []domain.EvidenceItem
		semanticErr   error
		keywordErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		semanticItems, semanticErr = r.searchSemantic(searchCtx, searchQuery, candidateLimit)
	}()
	go func() {
		defer wg.Done()
		keywordItems, keywordErr = r.keyword.SearchKeyword(searchCtx, searchQuery, candidateLimit, domain.SearchFilter{})
	}()
	wg.Wait()

	if semanticErr != nil && keywordErr != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "hybrid search", semanticErr)
	}
	if semanticErr != nil {
		r.logger.Warn("retrieval_degraded", "path", "semantic", "intent", intent, "error", semanticErr)
	}
	if keywordErr != nil {
		r.logger.Warn("retrieval_degraded", "path", "keyword", "intent", intent, "error", keywordErr)
	}

	fused := fuseWeighted(semanticItems, keywordItems, cfg)
	fused = filterMinRelevance(fused, cfg.MinRelevanceScore)
	if len(fused) == 0 {
		return []domain.EvidenceItem{}, nil
	}
	fused = applyDiversity(fused, cfg.DiversityBoost)
	return trimCandidates(fused, k), nil
}

func (r *HybridRetriever) searchSemantic(ctx context.Context, query string, limit int) ([]domain.EvidenceItem, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.semantic.SearchSemantic(ctx, vector, limit, domain.SearchFilter{})
}

func (r *HybridRetriever) expandQuery(query string) string {
	var extra []string
	for _, token := range textutil.ContentTokens(query) {
		for _, synonym := range r.lexicon[token] {
			if !strings.Contains(strings.ToLower(query), synonym) {
				extra = append(extra, synonym)
			}
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

func normalizeRoutingConfig(cfg domain.RoutingConfig) domain.RoutingConfig {
	if cfg.SemanticWeight <= 0 && cfg.KeywordWeight <= 0 {
		cfg.SemanticWeight = 0.7
		cfg.KeywordWeight = 0.3
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.FinalK <= 0 {
		cfg.FinalK = 8
	}
	return cfg
}
