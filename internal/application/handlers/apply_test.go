package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/mocks"
	"github.com/pvandijk/housekeeper/internal/domain/services"
)

func storedPlan(store *mocks.Store) *entities.Plan {
	plan := &entities.Plan{ID: "plan-1", Actions: []entities.Action{
		{
			ID: "a1", PlanID: "plan-1", Type: entities.ActionSetEntityArea,
			TargetKind: entities.TargetEntity, TargetID: "light.counter",
			Before: map[string]string{entities.FieldAreaID: ""},
			After:  map[string]string{entities.FieldAreaID: "area-kitchen"},
		},
		{
			ID: "a2", PlanID: "plan-1", Type: entities.ActionRemoveEntity,
			TargetKind: entities.TargetEntity, TargetID: "sensor.lost",
			Before:           map[string]string{entities.FieldName: "", entities.FieldAreaID: ""},
			RequiresApproval: true,
		},
	}}
	if err := store.SavePlan(context.Background(), plan); err != nil {
		panic(err)
	}
	return plan
}

func TestApplyHandler_Handle_LatestPlan(t *testing.T) {
	reg := testRegistry()
	store := mocks.NewStore()
	plan := storedPlan(store)

	handler := NewApplyHandler(services.NewApplier(reg, store, 0), store)
	batch, err := handler.Handle(t.Context(), ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, batch.PlanID)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, entities.StatusApplied, batch.Results[0].Status)
	// Gated action without approval is skipped.
	assert.Equal(t, entities.StatusSkipped, batch.Results[1].Status)
	assert.Equal(t, entities.SkipApproval, batch.Results[1].Reason)
}

func TestApplyHandler_Handle_ApproveAll(t *testing.T) {
	reg := testRegistry()
	store := mocks.NewStore()
	storedPlan(store)

	handler := NewApplyHandler(services.NewApplier(reg, store, 0), store)
	batch, err := handler.Handle(t.Context(), ApplyOptions{ApproveAll: true})
	require.NoError(t, err)
	applied, skipped, failed := batch.Counts()
	assert.Equal(t, 2, applied)
	assert.Zero(t, skipped)
	assert.Zero(t, failed)
	assert.NotContains(t, reg.Entities, "sensor.lost")
}

func TestApplyHandler_Handle_UnknownPlan(t *testing.T) {
	store := mocks.NewStore()
	handler := NewApplyHandler(services.NewApplier(testRegistry(), store, 0), store)

	_, err := handler.Handle(t.Context(), ApplyOptions{PlanID: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrPlanNotFound)
}
