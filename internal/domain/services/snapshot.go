package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
)

// SnapshotService takes immutable point-in-time reads of the live registry.
type SnapshotService struct {
	registry ports.RegistryClient
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(registry ports.RegistryClient) *SnapshotService {
	return &SnapshotService{registry: registry}
}

// Load fetches the whole registry in one logically-atomic read. There is no
// retry here; retry policy belongs to the caller.
func (s *SnapshotService) Load(ctx context.Context) (*entities.Snapshot, error) {
	dump, err := s.registry.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrSnapshotUnavailable, err)
	}
	return entities.NewSnapshot(time.Now(), dump.Areas, dump.Devices, dump.Entities, dump.States), nil
}
