package mocks

import (
	"context"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// RuleSource is a mock implementation of ports.RuleSource.
type RuleSource struct {
	Set *entities.RuleSet
	Err error
}

// NewRuleSource creates a mock rule source with an empty set.
func NewRuleSource() *RuleSource {
	return &RuleSource{Set: &entities.RuleSet{}}
}

// Load returns the configured rule set.
func (m *RuleSource) Load(_ context.Context) (*entities.RuleSet, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Set, nil
}
