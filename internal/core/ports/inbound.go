package ports

import (
	"context"

	"github.com/kirillkom/support-agent-core/internal/core/domain"
)

// TurnService is the inbound contract for processing one conversation turn.
type TurnService interface {
	CompleteTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error)
}

// SessionAdmin exposes session-state observability and lifecycle.
type SessionAdmin interface {
	Stats(sessionKey string) (domain.SessionStats, bool)
	Cleanup(sessionKey string)
}
