package entities

import (
	"strings"
	"time"
)

// TargetKind identifies which registry collection a finding or action targets.
type TargetKind string

const (
	TargetEntity TargetKind = "entity"
	TargetDevice TargetKind = "device"
	TargetArea   TargetKind = "area"
	// TargetRule is used by rule-error findings, which target the failing
	// rule itself rather than a registry record.
	TargetRule TargetKind = "rule"
)

// Area is a named location in the registry.
type Area struct {
	ID   string `json:"area_id"`
	Name string `json:"name"`
}

// Device is a physical device owning zero or more entities.
type Device struct {
	ID         string `json:"id"`
	AreaID     string `json:"area_id,omitempty"`
	Name       string `json:"name,omitempty"`
	NameByUser string `json:"name_by_user,omitempty"`
}

// Label returns the user-assigned device name, falling back to the
// integration-provided one.
func (d Device) Label() string {
	if d.NameByUser != "" {
		return d.NameByUser
	}
	return d.Name
}

// Entity is a registry entry for a single entity.
type Entity struct {
	ID           string `json:"entity_id"`
	UniqueID     string `json:"unique_id,omitempty"`
	DeviceID     string `json:"device_id,omitempty"`
	AreaID       string `json:"area_id,omitempty"`
	Name         string `json:"name,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
	HiddenBy     string `json:"hidden_by,omitempty"`
	DisabledBy   string `json:"disabled_by,omitempty"`
}

// EntityState is the live state of an entity at snapshot time.
type EntityState struct {
	EntityID     string `json:"entity_id"`
	State        string `json:"state"`
	FriendlyName string `json:"friendly_name,omitempty"`
}

// Snapshot is an immutable point-in-time view of the registry. All lookups
// are built once at construction; a new audit always takes a fresh snapshot.
type Snapshot struct {
	TakenAt  time.Time
	Areas    []Area
	Devices  []Device
	Entities []Entity
	States   []EntityState

	areaByID         map[string]int
	areaByLowerName  map[string][]int
	deviceByID       map[string]int
	entityByID       map[string]int
	entitiesByDevice map[string][]int
	stateByEntity    map[string]int
}

// NewSnapshot builds a snapshot with its lookup indexes.
func NewSnapshot(takenAt time.Time, areas []Area, devices []Device, ents []Entity, states []EntityState) *Snapshot {
	s := &Snapshot{
		TakenAt:  takenAt,
		Areas:    areas,
		Devices:  devices,
		Entities: ents,
		States:   states,

		areaByID:         make(map[string]int, len(areas)),
		areaByLowerName:  make(map[string][]int, len(areas)),
		deviceByID:       make(map[string]int, len(devices)),
		entityByID:       make(map[string]int, len(ents)),
		entitiesByDevice: make(map[string][]int),
		stateByEntity:    make(map[string]int, len(states)),
	}
	for i, a := range areas {
		if a.ID == "" {
			continue
		}
		s.areaByID[a.ID] = i
		if a.Name != "" {
			key := strings.ToLower(strings.TrimSpace(a.Name))
			s.areaByLowerName[key] = append(s.areaByLowerName[key], i)
		}
	}
	for i, d := range devices {
		if d.ID != "" {
			s.deviceByID[d.ID] = i
		}
	}
	for i, e := range ents {
		if e.ID == "" {
			continue
		}
		s.entityByID[e.ID] = i
		if e.DeviceID != "" {
			s.entitiesByDevice[e.DeviceID] = append(s.entitiesByDevice[e.DeviceID], i)
		}
	}
	for i, st := range states {
		if st.EntityID != "" {
			s.stateByEntity[st.EntityID] = i
		}
	}
	return s
}

// AreaByID returns the area with the given id, or nil.
func (s *Snapshot) AreaByID(id string) *Area {
	if i, ok := s.areaByID[id]; ok {
		return &s.Areas[i]
	}
	return nil
}

// AreasByName returns all areas whose name matches case-insensitively.
func (s *Snapshot) AreasByName(name string) []Area {
	key := strings.ToLower(strings.TrimSpace(name))
	idx := s.areaByLowerName[key]
	out := make([]Area, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.Areas[i])
	}
	return out
}

// DeviceByID returns the device with the given id, or nil.
func (s *Snapshot) DeviceByID(id string) *Device {
	if i, ok := s.deviceByID[id]; ok {
		return &s.Devices[i]
	}
	return nil
}

// EntityByID returns the entity with the given id, or nil.
func (s *Snapshot) EntityByID(id string) *Entity {
	if i, ok := s.entityByID[id]; ok {
		return &s.Entities[i]
	}
	return nil
}

// EntitiesByDevice returns the entities linked to a device.
func (s *Snapshot) EntitiesByDevice(deviceID string) []Entity {
	idx := s.entitiesByDevice[deviceID]
	out := make([]Entity, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.Entities[i])
	}
	return out
}

// StateOf returns the live state for an entity, or nil if none was reported.
func (s *Snapshot) StateOf(entityID string) *EntityState {
	if i, ok := s.stateByEntity[entityID]; ok {
		return &s.States[i]
	}
	return nil
}

// Active reports whether the entity reported a usable state at snapshot time.
func (s *Snapshot) Active(entityID string) bool {
	st := s.StateOf(entityID)
	return st != nil && st.State != "" && st.State != "unavailable"
}

// EffectiveAreaID resolves an entity's area: its own explicit area if set,
// otherwise the area of its linked device.
func (s *Snapshot) EffectiveAreaID(e Entity) string {
	if e.AreaID != "" {
		return e.AreaID
	}
	if e.DeviceID == "" {
		return ""
	}
	if d := s.DeviceByID(e.DeviceID); d != nil {
		return d.AreaID
	}
	return ""
}

// DisplayName returns the best available human name for an entity.
func (s *Snapshot) DisplayName(e Entity) string {
	if e.Name != "" {
		return e.Name
	}
	if e.OriginalName != "" {
		return e.OriginalName
	}
	if st := s.StateOf(e.ID); st != nil {
		return st.FriendlyName
	}
	return ""
}

// OrphanedDeviceRef reports whether the entity references a device missing
// from the snapshot.
func (s *Snapshot) OrphanedDeviceRef(e Entity) bool {
	return e.DeviceID != "" && s.DeviceByID(e.DeviceID) == nil
}

// OrphanedAreaRef reports whether the entity references an area missing from
// the snapshot.
func (s *Snapshot) OrphanedAreaRef(e Entity) bool {
	return e.AreaID != "" && s.AreaByID(e.AreaID) == nil
}
