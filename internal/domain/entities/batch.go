package entities

import "time"

// ActionStatus is the per-action outcome of one apply run.
type ActionStatus string

const (
	StatusApplied ActionStatus = "applied"
	StatusSkipped ActionStatus = "skipped"
	StatusFailed  ActionStatus = "failed"
)

// Skip reasons recorded alongside StatusSkipped.
const (
	SkipStale            = "stale"
	SkipApproval         = "approval"
	SkipDependencyFailed = "dependency-failed"
	SkipCancelled        = "cancelled"
)

// UndoEntry holds the reverse instructions for one applied action. When
// FullyReversible is false the entry describes the best achievable partial
// reversal; Note explains what remains.
type UndoEntry struct {
	ActionID        string            `json:"action_id"`
	Type            ActionType        `json:"type"`
	TargetKind      TargetKind        `json:"target_kind"`
	TargetID        string            `json:"target_id"`
	Before          map[string]string `json:"before,omitempty"`
	FullyReversible bool              `json:"fully_reversible"`
	Note            string            `json:"note,omitempty"`
}

// ActionResult is the outcome of one action within an applied batch.
type ActionResult struct {
	Action Action       `json:"action"`
	Status ActionStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
	Err    string       `json:"error,omitempty"`
	Undo   *UndoEntry   `json:"undo,omitempty"`
	// Detail carries extra per-action information, e.g. the id of a
	// created area.
	Detail string `json:"detail,omitempty"`
}

// AppliedBatch records one apply run. It persists beyond the session so the
// batch can be rolled back after a restart.
type AppliedBatch struct {
	ID         string         `json:"id"`
	PlanID     string         `json:"plan_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []ActionResult `json:"results"`
}

// Counts tallies results by status.
func (b *AppliedBatch) Counts() (applied, skipped, failed int) {
	for _, r := range b.Results {
		switch r.Status {
		case StatusApplied:
			applied++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return applied, skipped, failed
}

// RollbackStatus is the per-entry outcome of one rollback run.
type RollbackStatus string

const (
	RollbackReverted RollbackStatus = "reverted"
	RollbackPartial  RollbackStatus = "partial"
	RollbackFailed   RollbackStatus = "failed"
)

// RollbackEntry is the outcome of reversing a single undo entry.
type RollbackEntry struct {
	ActionID string         `json:"action_id"`
	Type     ActionType     `json:"type"`
	Status   RollbackStatus `json:"status"`
	Err      string         `json:"error,omitempty"`
	Note     string         `json:"note,omitempty"`
}

// RollbackResult records one rollback run over a single applied batch.
type RollbackResult struct {
	BatchID    string          `json:"batch_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Entries    []RollbackEntry `json:"entries"`
}

// Clean reports whether every entry reverted fully.
func (r *RollbackResult) Clean() bool {
	for _, e := range r.Entries {
		if e.Status != RollbackReverted {
			return false
		}
	}
	return true
}
