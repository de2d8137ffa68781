package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// Store is a mock implementation of ports.SessionStore.
type Store struct {
	mu sync.Mutex

	Plans     map[string]*entities.Plan
	Batches   map[string]*entities.AppliedBatch
	Rollbacks map[string]*entities.RollbackResult
	Ignored   map[string]bool

	planOrder  []string
	batchOrder []string

	// Err fails every operation when set.
	Err error
}

// NewStore creates an empty mock store.
func NewStore() *Store {
	return &Store{
		Plans:     make(map[string]*entities.Plan),
		Batches:   make(map[string]*entities.AppliedBatch),
		Rollbacks: make(map[string]*entities.RollbackResult),
		Ignored:   make(map[string]bool),
	}
}

// EnsureSchema is a no-op.
func (m *Store) EnsureSchema(_ context.Context) error { return m.Err }

// Close is a no-op.
func (m *Store) Close() error { return nil }

// SavePlan stores a plan.
func (m *Store) SavePlan(_ context.Context, plan *entities.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Plans[plan.ID]; !ok {
		m.planOrder = append(m.planOrder, plan.ID)
	}
	m.Plans[plan.ID] = plan
	return nil
}

// FindPlan returns a plan by id.
func (m *Store) FindPlan(_ context.Context, id string) (*entities.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Plans[id]; ok {
		return p, nil
	}
	return nil, entities.ErrPlanNotFound
}

// FindLatestPlan returns the most recently saved plan.
func (m *Store) FindLatestPlan(_ context.Context) (*entities.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.planOrder) == 0 {
		return nil, entities.ErrPlanNotFound
	}
	return m.Plans[m.planOrder[len(m.planOrder)-1]], nil
}

// SaveBatch stores an applied batch.
func (m *Store) SaveBatch(_ context.Context, batch *entities.AppliedBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Batches[batch.ID]; !ok {
		m.batchOrder = append(m.batchOrder, batch.ID)
	}
	m.Batches[batch.ID] = batch
	return nil
}

// FindBatch returns a batch by id.
func (m *Store) FindBatch(_ context.Context, id string) (*entities.AppliedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if b, ok := m.Batches[id]; ok {
		return b, nil
	}
	return nil, entities.ErrBatchNotFound
}

// FindLatestBatch returns the most recently saved batch.
func (m *Store) FindLatestBatch(_ context.Context) (*entities.AppliedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.batchOrder) == 0 {
		return nil, entities.ErrBatchNotFound
	}
	return m.Batches[m.batchOrder[len(m.batchOrder)-1]], nil
}

// ListBatches returns batches newest-first.
func (m *Store) ListBatches(_ context.Context, limit int) ([]entities.AppliedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []entities.AppliedBatch
	for i := len(m.batchOrder) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, *m.Batches[m.batchOrder[i]])
	}
	return out, nil
}

// SaveRollback stores a rollback result.
func (m *Store) SaveRollback(_ context.Context, result *entities.RollbackResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Rollbacks[result.BatchID] = result
	return nil
}

// FindRollback returns the rollback result for a batch, or nil.
func (m *Store) FindRollback(_ context.Context, batchID string) (*entities.RollbackResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Rollbacks[batchID], nil
}

// ListIgnored returns all ignored fingerprints, sorted.
func (m *Store) ListIgnored(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]string, 0, len(m.Ignored))
	for fp := range m.Ignored {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out, nil
}

// AddIgnored records fingerprints.
func (m *Store) AddIgnored(_ context.Context, fingerprints []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, fp := range fingerprints {
		m.Ignored[fp] = true
	}
	return nil
}

// RemoveIgnored drops fingerprints.
func (m *Store) RemoveIgnored(_ context.Context, fingerprints []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, fp := range fingerprints {
		delete(m.Ignored, fp)
	}
	return nil
}

// ClearIgnored empties the ignore list.
func (m *Store) ClearIgnored(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Ignored = make(map[string]bool)
	return nil
}
