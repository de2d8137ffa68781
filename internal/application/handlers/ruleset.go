package handlers

import (
	"context"
	"fmt"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
	"github.com/pvandijk/housekeeper/internal/domain/services"
)

// loadRuleSet combines the built-in rules with the user-declared ones. The
// built-ins come first so they win confidence ties against declared rules.
func loadRuleSet(ctx context.Context, src ports.RuleSource, opts services.Options) (*entities.RuleSet, error) {
	declared, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	set := &entities.RuleSet{
		Path:  declared.Path,
		Rules: services.BuiltinRules(opts),
	}
	set.Rules = append(set.Rules, declared.Rules...)
	return set, nil
}
