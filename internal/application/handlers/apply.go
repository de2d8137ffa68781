package handlers

import (
	"context"
	"fmt"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
	"github.com/pvandijk/housekeeper/internal/domain/services"
)

// ApplyHandler executes a stored plan against the live registry.
type ApplyHandler struct {
	applier *services.Applier
	store   ports.SessionStore
}

// NewApplyHandler creates a new apply handler.
func NewApplyHandler(applier *services.Applier, store ports.SessionStore) *ApplyHandler {
	return &ApplyHandler{
		applier: applier,
		store:   store,
	}
}

// ApplyOptions controls which gated actions run.
type ApplyOptions struct {
	// PlanID selects the plan; empty means the most recent one.
	PlanID string `json:"plan_id,omitempty"`
	// ApprovedIDs lists the gated actions the user approved.
	ApprovedIDs []string `json:"approved_ids,omitempty"`
	// ApproveAll approves every gated action in the plan.
	ApproveAll bool `json:"approve_all,omitempty"`
}

// Handle applies a plan and returns the persisted batch.
func (h *ApplyHandler) Handle(ctx context.Context, opts ApplyOptions) (*entities.AppliedBatch, error) {
	var plan *entities.Plan
	var err error
	if opts.PlanID == "" {
		plan, err = h.store.FindLatestPlan(ctx)
	} else {
		plan, err = h.store.FindPlan(ctx, opts.PlanID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading plan: %w", err)
	}

	approved := opts.ApprovedIDs
	if opts.ApproveAll {
		approved = approved[:0:0]
		for _, act := range plan.Actions {
			if act.RequiresApproval {
				approved = append(approved, act.ID)
			}
		}
	}
	return h.applier.Apply(ctx, plan, approved)
}
