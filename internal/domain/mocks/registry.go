// Package mocks provides hand-written mock implementations of the domain
// ports for use in tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
)

// Registry is a mock implementation of ports.RegistryClient backed by
// mutable in-memory maps, so tests can exercise stale-state detection and
// round-trip apply/rollback against a "live" registry.
type Registry struct {
	mu sync.Mutex

	Areas    map[string]entities.Area
	Devices  map[string]entities.Device
	Entities map[string]entities.Entity
	States   map[string]entities.EntityState

	// FetchErr fails FetchAll when set.
	FetchErr error
	// WriteErr fails a specific write; keys look like "set_entity_area:light.hall".
	WriteErr map[string]error
	// Calls records every write in order, as "op:target".
	Calls []string

	areaSeq int
}

// NewRegistry creates an empty mock registry.
func NewRegistry() *Registry {
	return &Registry{
		Areas:    make(map[string]entities.Area),
		Devices:  make(map[string]entities.Device),
		Entities: make(map[string]entities.Entity),
		States:   make(map[string]entities.EntityState),
		WriteErr: make(map[string]error),
	}
}

func (m *Registry) record(op, target string) error {
	m.Calls = append(m.Calls, op+":"+target)
	if err := m.WriteErr[op+":"+target]; err != nil {
		return err
	}
	return nil
}

// FetchAll reads the whole mock registry.
func (m *Registry) FetchAll(_ context.Context) (*ports.RegistryDump, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	dump := &ports.RegistryDump{}
	for _, a := range m.Areas {
		dump.Areas = append(dump.Areas, a)
	}
	for _, d := range m.Devices {
		dump.Devices = append(dump.Devices, d)
	}
	for _, e := range m.Entities {
		dump.Entities = append(dump.Entities, e)
	}
	for _, s := range m.States {
		dump.States = append(dump.States, s)
	}
	sort.Slice(dump.Areas, func(i, j int) bool { return dump.Areas[i].ID < dump.Areas[j].ID })
	sort.Slice(dump.Devices, func(i, j int) bool { return dump.Devices[i].ID < dump.Devices[j].ID })
	sort.Slice(dump.Entities, func(i, j int) bool { return dump.Entities[i].ID < dump.Entities[j].ID })
	sort.Slice(dump.States, func(i, j int) bool { return dump.States[i].EntityID < dump.States[j].EntityID })
	return dump, nil
}

// GetEntity returns the current entity record, or nil.
func (m *Registry) GetEntity(_ context.Context, entityID string) (*entities.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.Entities[entityID]; ok {
		return &e, nil
	}
	return nil, nil
}

// GetDevice returns the current device record, or nil.
func (m *Registry) GetDevice(_ context.Context, deviceID string) (*entities.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.Devices[deviceID]; ok {
		return &d, nil
	}
	return nil, nil
}

// GetArea returns an area by id, or nil.
func (m *Registry) GetArea(_ context.Context, areaID string) (*entities.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Areas[areaID]; ok {
		return &a, nil
	}
	return nil, nil
}

// FindAreaByName returns an area by exact name, or nil.
func (m *Registry) FindAreaByName(_ context.Context, name string) (*entities.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Areas {
		if a.Name == name {
			area := a
			return &area, nil
		}
	}
	return nil, nil
}

// SetEntityArea assigns an entity to an area.
func (m *Registry) SetEntityArea(_ context.Context, entityID, areaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("set_entity_area", entityID); err != nil {
		return err
	}
	e, ok := m.Entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %s", entityID)
	}
	e.AreaID = areaID
	m.Entities[entityID] = e
	return nil
}

// ClearEntityDevice detaches an entity from its device.
func (m *Registry) ClearEntityDevice(_ context.Context, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("clear_entity_device", entityID); err != nil {
		return err
	}
	e, ok := m.Entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %s", entityID)
	}
	e.DeviceID = ""
	m.Entities[entityID] = e
	return nil
}

// SetDeviceArea assigns a device to an area.
func (m *Registry) SetDeviceArea(_ context.Context, deviceID, areaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("set_device_area", deviceID); err != nil {
		return err
	}
	d, ok := m.Devices[deviceID]
	if !ok {
		return fmt.Errorf("device not found: %s", deviceID)
	}
	d.AreaID = areaID
	m.Devices[deviceID] = d
	return nil
}

// RenameEntity sets an entity's name.
func (m *Registry) RenameEntity(_ context.Context, entityID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("rename_entity", entityID); err != nil {
		return err
	}
	e, ok := m.Entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %s", entityID)
	}
	e.Name = name
	m.Entities[entityID] = e
	return nil
}

// RenameDevice sets a device's user-assigned name.
func (m *Registry) RenameDevice(_ context.Context, deviceID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("rename_device", deviceID); err != nil {
		return err
	}
	d, ok := m.Devices[deviceID]
	if !ok {
		return fmt.Errorf("device not found: %s", deviceID)
	}
	d.NameByUser = name
	m.Devices[deviceID] = d
	return nil
}

// RenameArea sets an area's name.
func (m *Registry) RenameArea(_ context.Context, areaID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("rename_area", areaID); err != nil {
		return err
	}
	a, ok := m.Areas[areaID]
	if !ok {
		return fmt.Errorf("area not found: %s", areaID)
	}
	a.Name = name
	m.Areas[areaID] = a
	return nil
}

// CreateArea creates a new area with a generated id.
func (m *Registry) CreateArea(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("create_area", name); err != nil {
		return "", err
	}
	m.areaSeq++
	id := fmt.Sprintf("area-mock-%d", m.areaSeq)
	m.Areas[id] = entities.Area{ID: id, Name: name}
	return id, nil
}

// DeleteArea removes an area and clears references to it.
func (m *Registry) DeleteArea(_ context.Context, areaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("delete_area", areaID); err != nil {
		return err
	}
	if _, ok := m.Areas[areaID]; !ok {
		return fmt.Errorf("area not found: %s", areaID)
	}
	delete(m.Areas, areaID)
	for id, e := range m.Entities {
		if e.AreaID == areaID {
			e.AreaID = ""
			m.Entities[id] = e
		}
	}
	for id, d := range m.Devices {
		if d.AreaID == areaID {
			d.AreaID = ""
			m.Devices[id] = d
		}
	}
	return nil
}

// SetEntityHidden hides or unhides an entity.
func (m *Registry) SetEntityHidden(_ context.Context, entityID, hiddenBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("hide_entity", entityID); err != nil {
		return err
	}
	e, ok := m.Entities[entityID]
	if !ok {
		return fmt.Errorf("entity not found: %s", entityID)
	}
	e.HiddenBy = hiddenBy
	m.Entities[entityID] = e
	return nil
}

// RemoveEntity deletes an entity registry entry.
func (m *Registry) RemoveEntity(_ context.Context, entityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("remove_entity", entityID); err != nil {
		return err
	}
	if _, ok := m.Entities[entityID]; !ok {
		return fmt.Errorf("entity not found: %s", entityID)
	}
	delete(m.Entities, entityID)
	return nil
}

// Close is a no-op.
func (m *Registry) Close() error {
	return nil
}
