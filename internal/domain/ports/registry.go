// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// RegistryDump is one logically-atomic read of the whole registry.
type RegistryDump struct {
	Areas    []entities.Area
	Devices  []entities.Device
	Entities []entities.Entity
	States   []entities.EntityState
}

// RegistryClient is the write-capable connection to the live registry. The
// engine never caches live state across calls; every write is a synchronous
// success/error result. Lookup methods return nil (not an error) when the
// record does not exist.
type RegistryClient interface {
	// FetchAll reads areas, devices, entities and their live states.
	FetchAll(ctx context.Context) (*RegistryDump, error)

	// GetEntity returns the current registry entry for an entity.
	GetEntity(ctx context.Context, entityID string) (*entities.Entity, error)

	// GetDevice returns the current registry entry for a device.
	GetDevice(ctx context.Context, deviceID string) (*entities.Device, error)

	// GetArea returns an area by id.
	GetArea(ctx context.Context, areaID string) (*entities.Area, error)

	// FindAreaByName returns an area by exact name.
	FindAreaByName(ctx context.Context, name string) (*entities.Area, error)

	// SetEntityArea assigns an entity to an area. An empty areaID clears
	// the assignment.
	SetEntityArea(ctx context.Context, entityID, areaID string) error

	// ClearEntityDevice detaches an entity from its device reference.
	ClearEntityDevice(ctx context.Context, entityID string) error

	// SetDeviceArea assigns a device to an area. An empty areaID clears
	// the assignment.
	SetDeviceArea(ctx context.Context, deviceID, areaID string) error

	// RenameEntity sets an entity's user-facing name.
	RenameEntity(ctx context.Context, entityID, name string) error

	// RenameDevice sets a device's user-assigned name.
	RenameDevice(ctx context.Context, deviceID, name string) error

	// RenameArea sets an area's name.
	RenameArea(ctx context.Context, areaID, name string) error

	// CreateArea creates a new area and returns its id.
	CreateArea(ctx context.Context, name string) (string, error)

	// DeleteArea removes an area. Entities and devices assigned to it
	// lose the assignment.
	DeleteArea(ctx context.Context, areaID string) error

	// SetEntityHidden hides or unhides an entity. An empty hiddenBy
	// unhides.
	SetEntityHidden(ctx context.Context, entityID, hiddenBy string) error

	// RemoveEntity deletes an entity registry entry.
	RemoveEntity(ctx context.Context, entityID string) error

	// Close releases the connection.
	Close() error
}
