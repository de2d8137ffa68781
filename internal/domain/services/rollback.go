package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
)

// RollbackService restores the registry state an applied batch changed, in
// reverse apply order. Reversible actions re-apply their captured before
// values; the rest restore what they can and record a note.
type RollbackService struct {
	registry ports.RegistryClient
	store    ports.SessionStore
	timeout  time.Duration
}

// NewRollbackService creates a new RollbackService.
func NewRollbackService(registry ports.RegistryClient, store ports.SessionStore, timeout time.Duration) *RollbackService {
	return &RollbackService{registry: registry, store: store, timeout: timeout}
}

func (r *RollbackService) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Rollback undoes a batch. Only results that were applied and carry an undo
// entry participate; a failed undo is recorded and the remainder proceeds.
func (r *RollbackService) Rollback(ctx context.Context, batch *entities.AppliedBatch) (*entities.RollbackResult, error) {
	result := &entities.RollbackResult{
		BatchID:   batch.ID,
		StartedAt: time.Now(),
	}

	for i := len(batch.Results) - 1; i >= 0; i-- {
		res := batch.Results[i]
		if res.Status != entities.StatusApplied || res.Undo == nil {
			continue
		}
		entry := r.revertOne(ctx, *res.Undo)
		result.Entries = append(result.Entries, entry)
	}

	result.FinishedAt = time.Now()
	if err := r.store.SaveRollback(ctx, result); err != nil {
		return result, fmt.Errorf("saving rollback result: %w", err)
	}
	return result, nil
}

func (r *RollbackService) revertOne(ctx context.Context, undo entities.UndoEntry) entities.RollbackEntry {
	entry := entities.RollbackEntry{ActionID: undo.ActionID, Type: undo.Type}

	err := r.restore(ctx, undo, &entry)
	switch {
	case err != nil:
		entry.Status = entities.RollbackFailed
		entry.Err = err.Error()
	case !undo.FullyReversible:
		entry.Status = entities.RollbackPartial
		if entry.Note == "" {
			entry.Note = undo.Note
		}
	default:
		entry.Status = entities.RollbackReverted
	}
	return entry
}

// restore issues the registry writes that put the undo entry's before values
// back in place.
func (r *RollbackService) restore(ctx context.Context, undo entities.UndoEntry, entry *entities.RollbackEntry) error {
	cctx, cancel := r.callCtx(ctx)
	defer cancel()

	switch undo.Type {
	case entities.ActionSetEntityArea, entities.ActionClearEntityArea:
		return r.registry.SetEntityArea(cctx, undo.TargetID, undo.Before[entities.FieldAreaID])
	case entities.ActionSetDeviceArea:
		return r.registry.SetDeviceArea(cctx, undo.TargetID, undo.Before[entities.FieldAreaID])
	case entities.ActionRenameEntity:
		return r.registry.RenameEntity(cctx, undo.TargetID, undo.Before[entities.FieldName])
	case entities.ActionRenameDevice:
		return r.registry.RenameDevice(cctx, undo.TargetID, undo.Before[entities.FieldName])
	case entities.ActionRenameArea:
		return r.registry.RenameArea(cctx, undo.TargetID, undo.Before[entities.FieldName])
	case entities.ActionHideEntity:
		return r.registry.SetEntityHidden(cctx, undo.TargetID, undo.Before[entities.FieldHiddenBy])
	case entities.ActionCreateArea:
		// Leaving the created area in place is safer than cascading a
		// delete over assignments rollback may not restore.
		entry.Note = undo.Note
		return nil
	case entities.ActionDeleteArea:
		id, err := r.registry.CreateArea(cctx, undo.Before[entities.FieldName])
		if err != nil {
			return err
		}
		entry.Note = fmt.Sprintf("area recreated as %q; previous assignments are not restored", id)
		return nil
	case entities.ActionClearEntityDevice, entities.ActionRemoveEntity:
		entry.Note = undo.Note
		return nil
	}
	return fmt.Errorf("unsupported undo type %q", undo.Type)
}
