package repository

import (
	"context"
	"log/slog"

	"line-chat-agent/internal/domain"
)

// BestEffort wraps a ReadWriter with the relay's degrade-gracefully policy:
// persistence failures are logged and absorbed, and a failed history read
// yields an empty history. Availability of the reply path outranks
// durability of history, so callers never see a store error.
type BestEffort struct {
	store ReadWriter
	log   *slog.Logger
}

// NewBestEffort wraps store. A nil logger falls back to slog.Default.
func NewBestEffort(store ReadWriter, log *slog.Logger) *BestEffort {
	if log == nil {
		log = slog.Default()
	}
	return &BestEffort{store: store, log: log}
}

// SaveUser upserts the user record, logging and absorbing any failure.
func (b *BestEffort) SaveUser(ctx context.Context, rec domain.UserRecord) {
	if err := b.store.SaveUser(ctx, rec); err != nil {
		b.log.Error("error saving user info", "user_id", rec.UserID, "err", err)
	}
}

// SaveTurn appends the turn, logging and absorbing any failure.
func (b *BestEffort) SaveTurn(ctx context.Context, turn domain.Turn) {
	if err := b.store.SaveTurn(ctx, turn); err != nil {
		b.log.Error("error saving conversation turn", "conversation_id", turn.ConversationID, "err", err)
	}
}

// History returns up to limit turns oldest first, or an empty slice when the
// store is unavailable. A cold history must never block a reply.
func (b *BestEffort) History(ctx context.Context, conversationID string, limit int) []domain.Turn {
	turns, err := b.store.GetHistory(ctx, conversationID, limit)
	if err != nil {
		b.log.Error("error getting conversation history", "conversation_id", conversationID, "err", err)
		return nil
	}
	return turns
}
