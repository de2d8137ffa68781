package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

func newTestPlanner() *Planner {
	return NewPlanner(NewScorer(), DefaultApprovalPolicy())
}

func plannerSnapshot() *entities.Snapshot {
	return snapOf(
		[]entities.Area{
			{ID: "area-living", Name: "Living Room"},
			{ID: "area-old", Name: "Storage"},
		},
		[]entities.Device{{ID: "dev-1"}},
		[]entities.Entity{
			{ID: "light.a", DeviceID: "dev-1"},
			{ID: "light.x"},
			{ID: "sensor.junk", DeviceID: "dev-gone"},
		},
		[]entities.EntityState{activeState("light.a"), activeState("light.x")},
	)
}

func TestPlanConflictHighestConfidenceWins(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: BuiltinRules(Options{})}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 1, Category: entities.RuleInheritDeviceArea, TargetKind: entities.TargetEntity,
			TargetID: "light.a", Evidence: map[string]string{entities.FieldAreaID: "area-living"}, BaseConfidence: 0.98},
		{ID: "f2", RuleIndex: 3, Category: entities.RuleTokenAreaMatch, TargetKind: entities.TargetEntity,
			TargetID: "light.a", Evidence: map[string]string{entities.FieldAreaID: "area-old"}, BaseConfidence: 0.9},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 1)
	act := plan.Actions[0]
	assert.Equal(t, entities.ActionSetEntityArea, act.Type)
	assert.Equal(t, "area-living", act.After[entities.FieldAreaID])
	assert.False(t, act.RequiresApproval)
	assert.Empty(t, plan.Unresolved)
}

func TestPlanAgreeingFindingsMergeIntoOneAction(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: BuiltinRules(Options{})}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 1, Category: entities.RuleInheritDeviceArea, TargetKind: entities.TargetEntity,
			TargetID: "light.a", Evidence: map[string]string{entities.FieldAreaID: "area-living"}, BaseConfidence: 0.98},
		{ID: "f2", RuleIndex: 3, Category: entities.RuleTokenAreaMatch, TargetKind: entities.TargetEntity,
			TargetID: "light.a", Evidence: map[string]string{entities.FieldAreaID: "area-living"}, BaseConfidence: 0.9},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 1)
	assert.ElementsMatch(t, []string{"f1", "f2"}, plan.Actions[0].FindingIDs)
}

func TestPlanDeviceRenameAction(t *testing.T) {
	snap := snapOf(nil,
		[]entities.Device{{ID: "dev-1", Name: "shellyplug-s-8CAAB5"}},
		nil, nil,
	)
	set := oneRule(entities.RuleDecl{
		ID: "rules/shelly", Category: entities.RuleDeviceRename,
		Pattern: "^shellyplug", To: "Shelly Plug", BaseConfidence: 0.9,
	})
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 0, Category: entities.RuleDeviceRename, TargetKind: entities.TargetDevice,
			TargetID: "dev-1", Evidence: map[string]string{entities.FieldName: "Shelly Plug", "current_name": "shellyplug-s-8CAAB5"},
			BaseConfidence: 0.9},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 1)
	act := plan.Actions[0]
	assert.Equal(t, entities.ActionRenameDevice, act.Type)
	assert.Equal(t, "dev-1", act.TargetID)
	assert.Equal(t, "", act.Before[entities.FieldName])
	assert.Equal(t, "Shelly Plug", act.After[entities.FieldName])
}

func TestPlanUnbreakableTieIsUnresolved(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: []entities.RuleDecl{
		{ID: "rules/one", Category: entities.RuleEntityArea, BaseConfidence: 0.95},
	}}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 0, Category: entities.RuleEntityArea, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{entities.FieldAreaID: "area-living"}, BaseConfidence: 0.95},
		{ID: "f2", RuleIndex: 0, Category: entities.RuleEntityArea, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{entities.FieldAreaID: "area-old"}, BaseConfidence: 0.95},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	assert.Empty(t, plan.Actions)
	require.Len(t, plan.Unresolved, 1)
	assert.Equal(t, "light.x", plan.Unresolved[0].TargetID)
	assert.ElementsMatch(t, []string{"f1", "f2"}, plan.Unresolved[0].FindingIDs)
}

func TestPlanAreaDeletionBeatsLowerConfidenceAssignment(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: []entities.RuleDecl{
		{ID: "rules/remove-storage", Category: entities.RuleAreaRemove, Area: "Storage", BaseConfidence: 1},
		{ID: "rules/into-storage", Category: entities.RuleEntityArea, Area: "Storage", BaseConfidence: 0.95},
	}}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 0, Category: entities.RuleAreaRemove, TargetKind: entities.TargetArea,
			TargetID: "area-old", Evidence: map[string]string{"area_name": "Storage"}, BaseConfidence: 1},
		{ID: "f2", RuleIndex: 1, Category: entities.RuleEntityArea, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{entities.FieldAreaID: "area-old"}, BaseConfidence: 0.95},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, entities.ActionDeleteArea, plan.Actions[0].Type)
	require.Len(t, plan.Unresolved, 1)
	assert.Equal(t, "light.x", plan.Unresolved[0].TargetID)
	assert.Equal(t, "target area is scheduled for deletion", plan.Unresolved[0].Reason)
}

func TestPlanHigherConfidenceAssignmentBeatsAreaDeletion(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: []entities.RuleDecl{
		{ID: "rules/remove-storage", Category: entities.RuleAreaRemove, Area: "Storage", BaseConfidence: 0.9},
		{ID: "rules/into-storage", Category: entities.RuleEntityArea, Area: "Storage", BaseConfidence: 0.95},
	}}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 0, Category: entities.RuleAreaRemove, TargetKind: entities.TargetArea,
			TargetID: "area-old", Evidence: map[string]string{"area_name": "Storage"}, BaseConfidence: 0.9},
		{ID: "f2", RuleIndex: 1, Category: entities.RuleEntityArea, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{entities.FieldAreaID: "area-old"}, BaseConfidence: 0.95},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, entities.ActionSetEntityArea, plan.Actions[0].Type)
	require.Len(t, plan.Unresolved, 1)
	assert.Equal(t, "area-old", plan.Unresolved[0].TargetID)
}

func TestPlanWiresFallbackAreaCreation(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: BuiltinRules(Options{IncludeFallback: true, FallbackAreaName: "Unsorted"})}
	fallbackIdx := len(set.Rules) - 1
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: fallbackIdx, Category: entities.RuleFallbackArea, TargetKind: entities.TargetArea,
			TargetID: "Unsorted", Evidence: map[string]string{"area_name": "Unsorted"}, BaseConfidence: 0.6},
		{ID: "f2", RuleIndex: fallbackIdx, Category: entities.RuleFallbackArea, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{"area_name": "Unsorted"}, BaseConfidence: 0.6},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 2)
	create, assign := plan.Actions[0], plan.Actions[1]
	assert.Equal(t, entities.ActionCreateArea, create.Type)
	assert.Equal(t, "Unsorted", create.After[entities.FieldName])
	assert.True(t, create.RequiresApproval)
	assert.Equal(t, entities.ActionSetEntityArea, assign.Type)
	assert.Equal(t, create.ID, assign.DependsOn)
	assert.True(t, assign.RequiresApproval)
}

func TestPlanPrunesUnusedFallbackCreate(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: BuiltinRules(Options{IncludeFallback: true, FallbackAreaName: "Unsorted"})}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: len(set.Rules) - 1, Category: entities.RuleFallbackArea, TargetKind: entities.TargetArea,
			TargetID: "Unsorted", Evidence: map[string]string{"area_name": "Unsorted"}, BaseConfidence: 0.6},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	assert.Empty(t, plan.Actions)
	assert.Empty(t, plan.Unresolved)
}

func TestPlanFiltersIgnoredFingerprints(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: BuiltinRules(Options{})}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 0, Category: entities.RuleOrphanedEntity, TargetKind: entities.TargetEntity,
			TargetID: "sensor.junk", Evidence: map[string]string{"missing_device_id": "dev-gone"}, BaseConfidence: 0.95},
	}

	plan := newTestPlanner().Plan(snap, findings, set, []string{"clear_entity_device:sensor.junk"})
	assert.Empty(t, plan.Actions)
	assert.Equal(t, 1, plan.IgnoredCount)
}

func TestPlanApprovalGates(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: BuiltinRules(Options{})}
	findings := []entities.Finding{
		// High confidence, non-destructive: applies without approval.
		{ID: "f1", RuleIndex: 0, Category: entities.RuleOrphanedEntity, TargetKind: entities.TargetEntity,
			TargetID: "sensor.junk", Evidence: map[string]string{"missing_device_id": "dev-gone"}, BaseConfidence: 0.95},
		// Removal is always gated.
		{ID: "f2", RuleIndex: 4, Category: entities.RuleSuffixDuplicate, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{"base_entity_id": "light.a"}, BaseConfidence: 0.9},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 2)
	byType := map[entities.ActionType]entities.Action{}
	for _, a := range plan.Actions {
		byType[a.Type] = a
	}
	assert.False(t, byType[entities.ActionClearEntityDevice].RequiresApproval)
	assert.True(t, byType[entities.ActionRemoveEntity].RequiresApproval)
}

func TestPlanLowConfidenceRequiresApproval(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: []entities.RuleDecl{
		{ID: "rules/weak", Category: entities.RuleEntityArea, BaseConfidence: 0.6},
	}}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 0, Category: entities.RuleEntityArea, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{entities.FieldAreaID: "area-living"}, BaseConfidence: 0.6},
	}

	plan := newTestPlanner().Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 1)
	assert.True(t, plan.Actions[0].RequiresApproval)
}

func TestPlanOrderingAndDeterminism(t *testing.T) {
	snap := plannerSnapshot()
	set := &entities.RuleSet{Rules: []entities.RuleDecl{
		{ID: "rules/remove-storage", Category: entities.RuleAreaRemove, Area: "Storage", BaseConfidence: 1},
		{ID: "rules/place", Category: entities.RuleEntityArea, BaseConfidence: 0.95},
		{ID: "rules/orphans", Category: entities.RuleOrphanedEntity, BaseConfidence: 0.95},
	}}
	findings := []entities.Finding{
		{ID: "f1", RuleIndex: 0, Category: entities.RuleAreaRemove, TargetKind: entities.TargetArea,
			TargetID: "area-old", Evidence: map[string]string{"area_name": "Storage"}, BaseConfidence: 1},
		{ID: "f2", RuleIndex: 1, Category: entities.RuleEntityArea, TargetKind: entities.TargetEntity,
			TargetID: "light.x", Evidence: map[string]string{entities.FieldAreaID: "area-living"}, BaseConfidence: 0.95},
		{ID: "f3", RuleIndex: 2, Category: entities.RuleOrphanedEntity, TargetKind: entities.TargetEntity,
			TargetID: "sensor.junk", Evidence: map[string]string{"missing_device_id": "dev-gone"}, BaseConfidence: 0.95},
	}

	p := newTestPlanner()
	plan := p.Plan(snap, findings, set, nil)
	require.Len(t, plan.Actions, 3)
	// Registry mutations precede the destructive area delete.
	assert.Equal(t, entities.ActionSetEntityArea, plan.Actions[0].Type)
	assert.Equal(t, entities.ActionClearEntityDevice, plan.Actions[1].Type)
	assert.Equal(t, entities.ActionDeleteArea, plan.Actions[2].Type)

	again := p.Plan(snap, findings, set, nil)
	require.Len(t, again.Actions, 3)
	for i := range plan.Actions {
		assert.Equal(t, plan.Actions[i].Type, again.Actions[i].Type)
		assert.Equal(t, plan.Actions[i].TargetID, again.Actions[i].TargetID)
		assert.Equal(t, plan.Actions[i].After, again.Actions[i].After)
	}
}
