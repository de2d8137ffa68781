package handlers

import (
	"context"
	"fmt"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
	"github.com/pvandijk/housekeeper/internal/domain/services"
)

// RollbackHandler reverses a previously applied batch.
type RollbackHandler struct {
	rollback *services.RollbackService
	store    ports.SessionStore
}

// NewRollbackHandler creates a new rollback handler.
func NewRollbackHandler(rollback *services.RollbackService, store ports.SessionStore) *RollbackHandler {
	return &RollbackHandler{
		rollback: rollback,
		store:    store,
	}
}

// Handle rolls back a batch; an empty id means the most recent one. A batch
// that was already rolled back is refused.
func (h *RollbackHandler) Handle(ctx context.Context, batchID string) (*entities.RollbackResult, error) {
	var batch *entities.AppliedBatch
	var err error
	if batchID == "" {
		batch, err = h.store.FindLatestBatch(ctx)
	} else {
		batch, err = h.store.FindBatch(ctx, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading batch: %w", err)
	}

	prior, err := h.store.FindRollback(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("checking rollback history: %w", err)
	}
	if prior != nil {
		return nil, fmt.Errorf("batch %s was already rolled back", batch.ID)
	}
	return h.rollback.Rollback(ctx, batch)
}

// HandleList returns recent batches, newest first.
func (h *RollbackHandler) HandleList(ctx context.Context, limit int) ([]entities.AppliedBatch, error) {
	return h.store.ListBatches(ctx, limit)
}
