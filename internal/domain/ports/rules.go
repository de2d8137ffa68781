package ports

import (
	"context"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// RuleSource supplies the parsed declared rules before evaluation. The
// engine treats the result as read-only input; a missing rules file yields
// an empty set, not an error.
type RuleSource interface {
	Load(ctx context.Context) (*entities.RuleSet, error)
}
