package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			session_key  TEXT PRIMARY KEY,
			current_turn INT NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
			id          TEXT PRIMARY KEY,
			session_key TEXT NOT NULL REFERENCES conversations(session_key),
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			turn        INT NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_messages_session
			ON conversation_messages (session_key, created_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return tx.Commit()
}

func (r *ConversationRepository) EnsureConversation(ctx context.Context, sessionKey string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversations (session_key, current_turn, created_at, updated_at)
VALUES ($1, 0, $2, $2)
ON CONFLICT (session_key) DO NOTHING
`, sessionKey, now)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation insert: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
SELECT session_key, current_turn, created_at, updated_at
FROM conversations
WHERE session_key = $1
`, sessionKey)

	var conv domain.Conversation
	if err := row.Scan(
		&conv.SessionKey,
		&conv.CurrentTurn,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("ensure conversation select: %w", err)
	}
	return &conv, nil
}

func (r *ConversationRepository) NextTurn(ctx context.Context, sessionKey string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE conversations
SET current_turn = current_turn + 1, updated_at = $2
WHERE session_key = $1
RETURNING current_turn
`, sessionKey, time.Now().UTC())

	var currentTurn int
	if err := row.Scan(&currentTurn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, ensureErr := r.EnsureConversation(ctx, sessionKey); ensureErr != nil {
				return 0, ensureErr
			}
			return r.NextTurn(ctx, sessionKey)
		}
		return 0, fmt.Errorf("next turn: %w", err)
	}
	return currentTurn, nil
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, message domain.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	metadata, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("marshal message metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO conversation_messages (id, session_key, role, content, turn, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, message.ID, message.SessionKey, message.Role, message.Content, message.Turn, metadata, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (r *ConversationRepository) ListRecentMessages(ctx context.Context, sessionKey string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_key, role, content, turn, metadata, created_at
FROM conversation_messages
WHERE session_key = $1
ORDER BY created_at DESC
LIMIT $2
`, sessionKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Message, 0, limit)
	for rows.Next() {
		var msg domain.Message
		var metadata []byte
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionKey,
			&msg.Role,
			&msg.Content,
			&msg.Turn,
			&metadata,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recent message: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal message metadata: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
