package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pvandijk/housekeeper/internal/application/handlers"
	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/services"
	"github.com/pvandijk/housekeeper/internal/infrastructure/config"
	"github.com/pvandijk/housekeeper/internal/infrastructure/homeassistant"
	"github.com/pvandijk/housekeeper/internal/infrastructure/rules"
	"github.com/pvandijk/housekeeper/internal/infrastructure/sessionstore/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and the registry client are internal.
type Deps struct {
	Config   *config.Config
	Audit    *handlers.AuditHandler
	Plan     *handlers.PlanHandler
	Apply    *handlers.ApplyHandler
	Rollback *handlers.RollbackHandler
	Ignore   *handlers.IgnoreHandler
}

// withDeps loads config, connects to Home Assistant and the session store,
// builds all handlers, then calls the provided function. It handles cleanup
// automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cfg, err := config.Load(globalConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := homeassistant.Dial(ctx, cfg.HomeAssistant.URL, cfg.HomeAssistant.Token)
	if err != nil {
		return fmt.Errorf("connecting to Home Assistant: %w", err)
	}
	defer client.Close()

	store, err := sqlite.NewStore(cfg.SQLite)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	timeout := time.Duration(cfg.HomeAssistant.TimeoutSeconds) * time.Second
	policy := services.DefaultApprovalPolicy()
	policy.ConfidenceThreshold = cfg.Engine.ConfidenceThreshold
	if len(cfg.Engine.AlwaysApprove) > 0 {
		policy.AlwaysApprove = make(map[entities.ActionType]bool, len(cfg.Engine.AlwaysApprove))
		for _, t := range cfg.Engine.AlwaysApprove {
			policy.AlwaysApprove[entities.ActionType(t)] = true
		}
	}
	opts := services.Options{
		FallbackAreaName: cfg.Engine.FallbackAreaName,
		IncludeFallback:  cfg.Engine.IncludeFallback,
	}

	ruleSource := rules.NewLoader(cfg.Rules.Path)
	snapshots := services.NewSnapshotService(client)
	engine := services.NewRuleEngine()
	scorer := services.NewScorer()
	planner := services.NewPlanner(scorer, policy)
	applier := services.NewApplier(client, store, timeout)
	rollback := services.NewRollbackService(client, store, timeout)

	deps := &Deps{
		Config:   cfg,
		Audit:    handlers.NewAuditHandler(snapshots, engine, scorer, ruleSource, opts),
		Plan:     handlers.NewPlanHandler(snapshots, engine, planner, ruleSource, store, opts),
		Apply:    handlers.NewApplyHandler(applier, store),
		Rollback: handlers.NewRollbackHandler(rollback, store),
		Ignore:   handlers.NewIgnoreHandler(store),
	}

	return fn(deps)
}

// withStore opens only the session store, for commands that never talk to
// Home Assistant.
func withStore(ctx context.Context, fn func(*sqlite.Store) error) error {
	cfg, err := config.Load(globalConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.SQLite)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}
	return fn(store)
}
