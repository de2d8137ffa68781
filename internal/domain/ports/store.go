package ports

import (
	"context"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// SessionStore persists plans, applied batches with their undo logs,
// rollback results, and ignored-action fingerprints. Batches must survive a
// process restart so a later rollback can find them.
type SessionStore interface {
	// EnsureSchema creates the store schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the store.
	Close() error

	// SavePlan stores a generated plan.
	SavePlan(ctx context.Context, plan *entities.Plan) error

	// FindPlan returns a plan by id, or entities.ErrPlanNotFound.
	FindPlan(ctx context.Context, id string) (*entities.Plan, error)

	// FindLatestPlan returns the most recently created plan, or
	// entities.ErrPlanNotFound.
	FindLatestPlan(ctx context.Context) (*entities.Plan, error)

	// SaveBatch stores an applied batch and its undo log.
	SaveBatch(ctx context.Context, batch *entities.AppliedBatch) error

	// FindBatch returns a batch by id, or entities.ErrBatchNotFound.
	FindBatch(ctx context.Context, id string) (*entities.AppliedBatch, error)

	// FindLatestBatch returns the most recent batch, or
	// entities.ErrBatchNotFound.
	FindLatestBatch(ctx context.Context) (*entities.AppliedBatch, error)

	// ListBatches returns batches newest-first, up to limit.
	ListBatches(ctx context.Context, limit int) ([]entities.AppliedBatch, error)

	// SaveRollback stores the result of rolling back a batch.
	SaveRollback(ctx context.Context, result *entities.RollbackResult) error

	// FindRollback returns the rollback result for a batch, or nil if the
	// batch was never rolled back.
	FindRollback(ctx context.Context, batchID string) (*entities.RollbackResult, error)

	// ListIgnored returns all ignored action fingerprints, sorted.
	ListIgnored(ctx context.Context) ([]string, error)

	// AddIgnored records fingerprints to exclude from future plans.
	AddIgnored(ctx context.Context, fingerprints []string) error

	// RemoveIgnored drops fingerprints from the ignore list.
	RemoveIgnored(ctx context.Context, fingerprints []string) error

	// ClearIgnored empties the ignore list.
	ClearIgnored(ctx context.Context) error
}
