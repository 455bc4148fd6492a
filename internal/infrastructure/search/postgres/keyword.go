package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

// KeywordSearcher runs full-text search over the support_documents table.
// Scores are ts_rank_cd values normalized by document length, so they land
// in a comparable range with vector similarity scores.
type KeywordSearcher struct {
	db *sql.DB
}

func NewKeywordSearcher(db *sql.DB) *KeywordSearcher {
	return &KeywordSearcher{db: db}
}

func (s *KeywordSearcher) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS support_documents (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			url        TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL,
			search_tsv TSVECTOR GENERATED ALWAYS AS (
				to_tsvector('english', title || ' ' || content)
			) STORED
		)`,
		`CREATE INDEX IF NOT EXISTS idx_support_documents_tsv
			ON support_documents USING GIN (search_tsv)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure search schema: %w", err)
		}
	}
	return nil
}

func (s *KeywordSearcher) SearchKeyword(
	ctx context.Context,
	query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.EvidenceItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	sqlQuery := `
SELECT id, title, url, category, content,
       ts_rank_cd(search_tsv, websearch_to_tsquery('english', $1), 1) AS rank
FROM support_documents
WHERE search_tsv @@ websearch_to_tsquery('english', $1)`
	args := []any{query}
	if filter.Category != "" {
		sqlQuery += ` AND category = $2`
		args = append(args, filter.Category)
	}
	sqlQuery += fmt.Sprintf(`
ORDER BY rank DESC
LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	out := make([]domain.EvidenceItem, 0, limit)
	for rows.Next() {
		var item domain.EvidenceItem
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.URL,
			&item.Category,
			&item.Content,
			&item.Score,
		); err != nil {
			return nil, fmt.Errorf("scan keyword result: %w", err)
		}
		item.SearchType = domain.SearchTypeKeyword
		item.KeywordScore = item.Score
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword results: %w", err)
	}
	return out, nil
}
