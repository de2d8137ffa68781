package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
)

// Applier executes approved plan actions against the live registry. The
// registry is a shared, externally-mutable resource; the per-action
// stale-state re-check is the sole concurrency-safety mechanism. A failure
// never aborts the remainder of the batch.
type Applier struct {
	registry ports.RegistryClient
	store    ports.SessionStore
	timeout  time.Duration
}

// NewApplier creates a new Applier. timeout bounds each registry call; zero
// disables the per-call deadline.
func NewApplier(registry ports.RegistryClient, store ports.SessionStore, timeout time.Duration) *Applier {
	return &Applier{registry: registry, store: store, timeout: timeout}
}

// Apply runs the plan's actions in order. Actions carrying requires_approval
// are only executed when listed in approvedIDs. The resulting batch is
// persisted, including when apply was cancelled partway.
func (a *Applier) Apply(ctx context.Context, plan *entities.Plan, approvedIDs []string) (*entities.AppliedBatch, error) {
	approved := make(map[string]bool, len(approvedIDs))
	for _, id := range approvedIDs {
		approved[id] = true
	}

	batch := &entities.AppliedBatch{
		ID:        uuid.New().String(),
		PlanID:    plan.ID,
		StartedAt: time.Now(),
	}
	outcome := make(map[string]entities.ActionStatus, len(plan.Actions))
	createdAreas := make(map[string]string)

	for _, act := range plan.Actions {
		var res entities.ActionResult
		switch {
		case ctx.Err() != nil:
			res = skipResult(act, entities.SkipCancelled, "apply cancelled before this action")
		case act.RequiresApproval && !approved[act.ID]:
			res = skipResult(act, entities.SkipApproval, "action not in approved set")
		case act.DependsOn != "" && outcome[act.DependsOn] != entities.StatusApplied:
			res = skipResult(act, entities.SkipDependencyFailed,
				fmt.Sprintf("prerequisite action %s was not applied", act.DependsOn))
		default:
			res = a.applyOne(ctx, act, createdAreas)
		}
		outcome[act.ID] = res.Status
		batch.Results = append(batch.Results, res)
	}

	batch.FinishedAt = time.Now()
	if err := a.store.SaveBatch(ctx, batch); err != nil {
		return batch, fmt.Errorf("saving applied batch: %w", err)
	}
	return batch, nil
}

func skipResult(act entities.Action, reason, detail string) entities.ActionResult {
	return entities.ActionResult{
		Action: act,
		Status: entities.StatusSkipped,
		Reason: reason,
		Detail: detail,
	}
}

func failResult(act entities.Action, err error) entities.ActionResult {
	return entities.ActionResult{
		Action: act,
		Status: entities.StatusFailed,
		Err:    err.Error(),
	}
}

func (a *Applier) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

// applyOne verifies the action's before-state against the live registry,
// executes it, and synthesizes its undo entry.
func (a *Applier) applyOne(ctx context.Context, act entities.Action, createdAreas map[string]string) entities.ActionResult {
	// A dependent action resolves its target area id from the create
	// action that produced it.
	if act.DependsOn != "" && act.After[entities.FieldAreaID] == "" {
		id, ok := createdAreas[act.DependsOn]
		if !ok {
			return failResult(act, fmt.Errorf("prerequisite action %s produced no area id", act.DependsOn))
		}
		after := make(map[string]string, len(act.After))
		for k, v := range act.After {
			after[k] = v
		}
		after[entities.FieldAreaID] = id
		act.After = after
	}

	if act.Type == entities.ActionCreateArea {
		return a.applyCreateArea(ctx, act, createdAreas)
	}

	live, err := a.readLive(ctx, act)
	if err != nil {
		return failResult(act, fmt.Errorf("re-reading target: %w", err))
	}
	if live == nil {
		if act.Type == entities.ActionRemoveEntity {
			// Already gone: the after-state holds.
			return entities.ActionResult{Action: act, Status: entities.StatusApplied, Detail: "target already removed"}
		}
		return skipResult(act, entities.SkipStale, "target no longer exists")
	}

	// Idempotence: an action whose after-state already holds is a no-op
	// success, detected through the same live comparison as staleness.
	if len(act.After) > 0 && fieldsMatch(act.After, live) {
		return entities.ActionResult{Action: act, Status: entities.StatusApplied, Detail: "already in desired state"}
	}
	for k, want := range act.Before {
		if got := live[k]; got != want {
			return skipResult(act, entities.SkipStale,
				fmt.Sprintf("live %s is %q, plan recorded %q", k, got, want))
		}
	}

	undo := buildUndo(act, live)
	if err := a.execute(ctx, act); err != nil {
		return failResult(act, err)
	}
	return entities.ActionResult{Action: act, Status: entities.StatusApplied, Undo: &undo}
}

func (a *Applier) applyCreateArea(ctx context.Context, act entities.Action, createdAreas map[string]string) entities.ActionResult {
	name := act.After[entities.FieldName]
	cctx, cancel := a.callCtx(ctx)
	existing, err := a.registry.FindAreaByName(cctx, name)
	cancel()
	if err != nil {
		return failResult(act, fmt.Errorf("checking for existing area: %w", err))
	}
	if existing != nil {
		createdAreas[act.ID] = existing.ID
		return entities.ActionResult{Action: act, Status: entities.StatusApplied, Detail: "area already exists: " + existing.ID}
	}

	cctx, cancel = a.callCtx(ctx)
	id, err := a.registry.CreateArea(cctx, name)
	cancel()
	if err != nil {
		return failResult(act, err)
	}
	createdAreas[act.ID] = id
	undo := entities.UndoEntry{
		ActionID:        act.ID,
		Type:            act.Type,
		TargetKind:      entities.TargetArea,
		TargetID:        id,
		FullyReversible: false,
		Note:            "created area is left in place on rollback",
	}
	return entities.ActionResult{Action: act, Status: entities.StatusApplied, Detail: id, Undo: &undo}
}

// readLive fetches the action's target from the live registry and flattens
// the fields subject to before/after comparison. Returns nil when the target
// does not exist.
func (a *Applier) readLive(ctx context.Context, act entities.Action) (map[string]string, error) {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	switch act.TargetKind {
	case entities.TargetEntity:
		e, err := a.registry.GetEntity(cctx, act.TargetID)
		if err != nil || e == nil {
			return nil, err
		}
		return map[string]string{
			entities.FieldAreaID:   e.AreaID,
			entities.FieldDeviceID: e.DeviceID,
			entities.FieldName:     e.Name,
			entities.FieldHiddenBy: e.HiddenBy,
		}, nil
	case entities.TargetDevice:
		d, err := a.registry.GetDevice(cctx, act.TargetID)
		if err != nil || d == nil {
			return nil, err
		}
		return map[string]string{
			entities.FieldAreaID: d.AreaID,
			entities.FieldName:   d.NameByUser,
		}, nil
	case entities.TargetArea:
		area, err := a.registry.GetArea(cctx, act.TargetID)
		if err != nil || area == nil {
			return nil, err
		}
		return map[string]string{entities.FieldName: area.Name}, nil
	}
	return nil, fmt.Errorf("unsupported target kind %q", act.TargetKind)
}

func fieldsMatch(want, live map[string]string) bool {
	for k, v := range want {
		if live[k] != v {
			return false
		}
	}
	return true
}

// buildUndo captures the live field values an action is about to change,
// and whether re-applying them later restores the target fully.
func buildUndo(act entities.Action, live map[string]string) entities.UndoEntry {
	undo := entities.UndoEntry{
		ActionID:        act.ID,
		Type:            act.Type,
		TargetKind:      act.TargetKind,
		TargetID:        act.TargetID,
		Before:          make(map[string]string),
		FullyReversible: true,
	}
	for k := range act.After {
		undo.Before[k] = live[k]
	}
	switch act.Type {
	case entities.ActionClearEntityDevice:
		undo.Before[entities.FieldDeviceID] = live[entities.FieldDeviceID]
		undo.FullyReversible = false
		undo.Note = "device link cannot be restored through the registry"
	case entities.ActionRemoveEntity:
		undo.Before = map[string]string{
			entities.FieldAreaID:   live[entities.FieldAreaID],
			entities.FieldName:     live[entities.FieldName],
			entities.FieldDeviceID: live[entities.FieldDeviceID],
		}
		undo.FullyReversible = false
		undo.Note = "removed registry entry cannot be recreated"
	case entities.ActionDeleteArea:
		undo.Before = map[string]string{entities.FieldName: live[entities.FieldName]}
		undo.FullyReversible = false
		undo.Note = "area is recreated with a new id on rollback"
	}
	return undo
}

// execute dispatches the action to the matching registry write.
func (a *Applier) execute(ctx context.Context, act entities.Action) error {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	switch act.Type {
	case entities.ActionSetEntityArea:
		return a.registry.SetEntityArea(cctx, act.TargetID, act.After[entities.FieldAreaID])
	case entities.ActionClearEntityArea:
		return a.registry.SetEntityArea(cctx, act.TargetID, "")
	case entities.ActionClearEntityDevice:
		return a.registry.ClearEntityDevice(cctx, act.TargetID)
	case entities.ActionSetDeviceArea:
		return a.registry.SetDeviceArea(cctx, act.TargetID, act.After[entities.FieldAreaID])
	case entities.ActionRenameEntity:
		return a.registry.RenameEntity(cctx, act.TargetID, act.After[entities.FieldName])
	case entities.ActionRenameDevice:
		return a.registry.RenameDevice(cctx, act.TargetID, act.After[entities.FieldName])
	case entities.ActionRenameArea:
		return a.registry.RenameArea(cctx, act.TargetID, act.After[entities.FieldName])
	case entities.ActionDeleteArea:
		return a.registry.DeleteArea(cctx, act.TargetID)
	case entities.ActionHideEntity:
		return a.registry.SetEntityHidden(cctx, act.TargetID, act.After[entities.FieldHiddenBy])
	case entities.ActionRemoveEntity:
		return a.registry.RemoveEntity(cctx, act.TargetID)
	}
	return fmt.Errorf("unsupported action type %q", act.Type)
}
