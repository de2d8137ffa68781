package handlers

import (
	"context"
	"fmt"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
	"github.com/pvandijk/housekeeper/internal/domain/services"
)

// PlanHandler builds and persists a reconciliation plan.
type PlanHandler struct {
	snapshots *services.SnapshotService
	engine    *services.RuleEngine
	planner   *services.Planner
	rules     ports.RuleSource
	store     ports.SessionStore
	opts      services.Options
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(snapshots *services.SnapshotService, engine *services.RuleEngine, planner *services.Planner, rules ports.RuleSource, store ports.SessionStore, opts services.Options) *PlanHandler {
	return &PlanHandler{
		snapshots: snapshots,
		engine:    engine,
		planner:   planner,
		rules:     rules,
		store:     store,
		opts:      opts,
	}
}

// Handle takes a fresh snapshot, evaluates the rules, and turns the findings
// into a persisted plan. Fingerprints on the ignore list never reach the plan.
func (h *PlanHandler) Handle(ctx context.Context) (*entities.Plan, error) {
	snap, err := h.snapshots.Load(ctx)
	if err != nil {
		return nil, err
	}
	set, err := loadRuleSet(ctx, h.rules, h.opts)
	if err != nil {
		return nil, err
	}
	ignored, err := h.store.ListIgnored(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ignore list: %w", err)
	}

	findings := h.engine.Evaluate(ctx, snap, set)
	plan := h.planner.Plan(snap, findings, set, ignored)
	if err := h.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}
	return plan, nil
}

// HandleGet fetches a stored plan; an empty id means the most recent one.
func (h *PlanHandler) HandleGet(ctx context.Context, planID string) (*entities.Plan, error) {
	if planID == "" {
		return h.store.FindLatestPlan(ctx)
	}
	return h.store.FindPlan(ctx, planID)
}
