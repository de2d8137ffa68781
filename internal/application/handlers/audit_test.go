package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/mocks"
	"github.com/pvandijk/housekeeper/internal/domain/services"
)

func testRegistry() *mocks.Registry {
	reg := mocks.NewRegistry()
	reg.Areas["area-kitchen"] = entities.Area{ID: "area-kitchen", Name: "Kitchen"}
	reg.Devices["dev-1"] = entities.Device{ID: "dev-1", AreaID: "area-kitchen"}
	reg.Entities["light.counter"] = entities.Entity{ID: "light.counter", DeviceID: "dev-1"}
	reg.Entities["sensor.lost"] = entities.Entity{ID: "sensor.lost", DeviceID: "dev-gone"}
	reg.States["light.counter"] = entities.EntityState{EntityID: "light.counter", State: "on"}
	return reg
}

func newAuditHandler(reg *mocks.Registry, rules *mocks.RuleSource) *AuditHandler {
	return NewAuditHandler(
		services.NewSnapshotService(reg),
		services.NewRuleEngine(),
		services.NewScorer(),
		rules,
		services.Options{},
	)
}

func TestAuditHandler_Handle(t *testing.T) {
	handler := newAuditHandler(testRegistry(), mocks.NewRuleSource())

	report, err := handler.Handle(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.AreaCount)
	assert.Equal(t, 1, report.DeviceCount)
	assert.Equal(t, 2, report.EntityCount)
	require.NotEmpty(t, report.Findings)
	assert.Equal(t, 1, report.ByCategory[entities.RuleOrphanedEntity])
	assert.Equal(t, 1, report.ByCategory[entities.RuleInheritDeviceArea])
	// Sorted by confidence, best first.
	for i := 1; i < len(report.Findings); i++ {
		assert.GreaterOrEqual(t, report.Findings[i-1].Confidence, report.Findings[i].Confidence)
	}
}

func TestAuditHandler_Handle_Inventory(t *testing.T) {
	reg := testRegistry()
	reg.Devices["dev-stray"] = entities.Device{ID: "dev-stray", Name: "Stray Hub"}
	reg.Entities["input_boolean.vacation"] = entities.Entity{ID: "input_boolean.vacation"}
	reg.Entities["input_number.target"] = entities.Entity{ID: "input_number.target", AreaID: "area-kitchen"}
	reg.States["input_boolean.vacation"] = entities.EntityState{EntityID: "input_boolean.vacation", State: "off"}
	reg.States["input_number.target"] = entities.EntityState{EntityID: "input_number.target", State: "21"}
	reg.States["sensor.lost"] = entities.EntityState{EntityID: "sensor.lost", State: "42"}
	handler := newAuditHandler(reg, mocks.NewRuleSource())

	report, err := handler.Handle(t.Context())
	require.NoError(t, err)

	require.Len(t, report.DevicesWithoutArea, 1)
	assert.Equal(t, DeviceRef{DeviceID: "dev-stray", Name: "Stray Hub"}, report.DevicesWithoutArea[0])

	// sensor.lost points at a missing device, so its effective area is empty.
	require.Len(t, report.EntitiesWithoutArea, 2)
	assert.Equal(t, "input_boolean.vacation", report.EntitiesWithoutArea[0].EntityID)
	assert.Equal(t, "sensor.lost", report.EntitiesWithoutArea[1].EntityID)
	assert.Equal(t, "dev-gone", report.EntitiesWithoutArea[1].DeviceID)

	require.Len(t, report.Helpers, 3)
	assert.Equal(t, EntityRef{EntityID: "input_boolean.vacation"}, report.Helpers[0])
	assert.Equal(t, EntityRef{EntityID: "input_number.target", AreaID: "area-kitchen"}, report.Helpers[1])
	assert.Equal(t, EntityRef{EntityID: "sensor.lost"}, report.Helpers[2])
}

func TestAuditHandler_Handle_RuleErrorsSeparated(t *testing.T) {
	rules := mocks.NewRuleSource()
	rules.Set = &entities.RuleSet{Rules: []entities.RuleDecl{
		{ID: "rules/bad", Category: entities.RuleEntityArea, Pattern: "([", Area: "Kitchen", BaseConfidence: 0.95},
	}}
	handler := newAuditHandler(testRegistry(), rules)

	report, err := handler.Handle(t.Context())
	require.NoError(t, err)
	require.Len(t, report.RuleErrors, 1)
	assert.Equal(t, "rules/bad", report.RuleErrors[0].TargetID)
	assert.Zero(t, report.ByCategory[entities.RuleError])
}

func TestAuditHandler_Handle_SnapshotError(t *testing.T) {
	reg := testRegistry()
	reg.FetchErr = assert.AnError
	handler := newAuditHandler(reg, mocks.NewRuleSource())

	_, err := handler.Handle(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrSnapshotUnavailable)
}
