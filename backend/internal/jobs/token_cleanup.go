package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/dndsim/combat-engine/backend/internal/database"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// TokenCleanupHandler prunes expired and long-revoked refresh tokens on
// the low-priority queue.
type TokenCleanupHandler struct {
	tokens database.RefreshTokenRepository
	logger *logger.Logger
}

func NewTokenCleanupHandler(tokens database.RefreshTokenRepository, log *logger.Logger) *TokenCleanupHandler {
	return &TokenCleanupHandler{tokens: tokens, logger: log}
}

// RegisterTokenCleanup wires the cleanup job type onto the queue.
func (h *TokenCleanupHandler) RegisterTokenCleanup(queue *JobQueue) {
	queue.RegisterHandler(JobTypeCleanupExpiredTokens, h.HandleCleanupExpiredTokens)
}

func (h *TokenCleanupHandler) HandleCleanupExpiredTokens(ctx context.Context, _ *asynq.Task) error {
	if err := h.tokens.CleanupExpired(); err != nil {
		return err
	}
	h.logger.Info().Msg("expired refresh tokens pruned")
	return nil
}
