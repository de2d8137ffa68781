package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testSnapshot() *Snapshot {
	areas := []Area{
		{ID: "area-living", Name: "Living Room"},
		{ID: "area-kitchen", Name: "Kitchen"},
	}
	devices := []Device{
		{ID: "dev-1", AreaID: "area-living", Name: "Hub", NameByUser: "Living Hub"},
		{ID: "dev-2", Name: "Plug"},
	}
	ents := []Entity{
		{ID: "light.living", DeviceID: "dev-1"},
		{ID: "sensor.kitchen", AreaID: "area-kitchen"},
		{ID: "switch.plug", DeviceID: "dev-2"},
		{ID: "sensor.ghost", DeviceID: "dev-gone", AreaID: "area-gone"},
	}
	states := []EntityState{
		{EntityID: "light.living", State: "on", FriendlyName: "Living Light"},
		{EntityID: "sensor.kitchen", State: "unavailable"},
	}
	return NewSnapshot(time.Now(), areas, devices, ents, states)
}

func TestSnapshotLookups(t *testing.T) {
	s := testSnapshot()

	assert.Equal(t, "Kitchen", s.AreaByID("area-kitchen").Name)
	assert.Nil(t, s.AreaByID("nope"))

	byName := s.AreasByName("  living room ")
	assert.Len(t, byName, 1)
	assert.Equal(t, "area-living", byName[0].ID)

	assert.Equal(t, "Living Hub", s.DeviceByID("dev-1").Label())
	assert.Equal(t, "Plug", s.DeviceByID("dev-2").Label())

	linked := s.EntitiesByDevice("dev-1")
	assert.Len(t, linked, 1)
	assert.Equal(t, "light.living", linked[0].ID)
}

func TestSnapshotEffectiveArea(t *testing.T) {
	s := testSnapshot()

	// Entity inherits its device's area.
	assert.Equal(t, "area-living", s.EffectiveAreaID(*s.EntityByID("light.living")))
	// Explicit area wins.
	assert.Equal(t, "area-kitchen", s.EffectiveAreaID(*s.EntityByID("sensor.kitchen")))
	// Device without area yields nothing.
	assert.Equal(t, "", s.EffectiveAreaID(*s.EntityByID("switch.plug")))
}

func TestSnapshotActive(t *testing.T) {
	s := testSnapshot()

	assert.True(t, s.Active("light.living"))
	assert.False(t, s.Active("sensor.kitchen"), "unavailable state is not active")
	assert.False(t, s.Active("switch.plug"), "no state reported")
}

func TestSnapshotOrphanDetection(t *testing.T) {
	s := testSnapshot()

	ghost := *s.EntityByID("sensor.ghost")
	assert.True(t, s.OrphanedDeviceRef(ghost))
	assert.True(t, s.OrphanedAreaRef(ghost))

	ok := *s.EntityByID("light.living")
	assert.False(t, s.OrphanedDeviceRef(ok))
	assert.False(t, s.OrphanedAreaRef(ok))
}

func TestSnapshotDisplayName(t *testing.T) {
	s := testSnapshot()

	assert.Equal(t, "Living Light", s.DisplayName(*s.EntityByID("light.living")))

	named := Entity{ID: "x", Name: "Custom", OriginalName: "Orig"}
	assert.Equal(t, "Custom", s.DisplayName(named))
	named.Name = ""
	assert.Equal(t, "Orig", s.DisplayName(named))
}
