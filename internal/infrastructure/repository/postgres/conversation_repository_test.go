package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ConversationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewConversationRepository(db), mock
}

func TestEnsureConversationInsertsThenSelects(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM conversations").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_key", "current_turn", "created_at", "updated_at"}).
			AddRow("sess-1", 3, time.Now(), time.Now()))

	conv, err := repo.EnsureConversation(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("EnsureConversation() error = %v", err)
	}
	if conv.SessionKey != "sess-1" || conv.CurrentTurn != 3 {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNextTurnIncrementsCounter(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery("UPDATE conversations").
		WithArgs("sess-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"current_turn"}).AddRow(4))

	turn, err := repo.NextTurn(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("NextTurn() error = %v", err)
	}
	if turn != 4 {
		t.Fatalf("expected turn 4, got %d", turn)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAppendMessageStoresMetadataJSON(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs("m-1", "sess-1", domain.RoleAssistant, "answer", 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendMessage(context.Background(), domain.Message{
		ID:         "m-1",
		SessionKey: "sess-1",
		Role:       domain.RoleAssistant,
		Content:    "answer",
		Turn:       2,
		Metadata: domain.MessageMetadata{
			Branch:          string(domain.BranchDomain),
			Intent:          "billing",
			ConfidenceScore: 72,
			ConfidenceLevel: string(domain.ConfidenceHigh),
			SourceCount:     2,
		},
	})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentMessagesRestoresChronologicalOrder(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_key", "role", "content", "turn", "metadata", "created_at"}).
		AddRow("m-2", "sess-1", domain.RoleAssistant, "second", 1, []byte(`{"branch":"domain","intent":"billing"}`), now).
		AddRow("m-1", "sess-1", domain.RoleUser, "first", 1, []byte(`{}`), now.Add(-time.Minute))

	mock.ExpectQuery("FROM conversation_messages").
		WithArgs("sess-1", 10).
		WillReturnRows(rows)

	messages, err := repo.ListRecentMessages(context.Background(), "sess-1", 10)
	if err != nil {
		t.Fatalf("ListRecentMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "first" || messages[1].Content != "second" {
		t.Fatalf("messages not chronological: %q then %q", messages[0].Content, messages[1].Content)
	}
	if messages[1].Metadata.Intent != "billing" {
		t.Fatalf("metadata not restored, got %+v", messages[1].Metadata)
	}
}
