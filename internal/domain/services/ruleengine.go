package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// RuleEngine evaluates a rule set against a snapshot. Rules are pure
// functions of the snapshot and are evaluated concurrently; a rule that
// panics or carries malformed parameters yields a single zero-confidence
// rule-error finding and never disturbs the others. The merged output is
// sorted and deduplicated so completion order cannot show in the result.
type RuleEngine struct{}

// NewRuleEngine creates a new RuleEngine.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

// Evaluate runs every rule in the set against the snapshot and returns the
// deduplicated findings.
func (e *RuleEngine) Evaluate(ctx context.Context, snap *entities.Snapshot, set *entities.RuleSet) []entities.Finding {
	results := make([][]entities.Finding, len(set.Rules))

	var wg sync.WaitGroup
	for i := range set.Rules {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, decl entities.RuleDecl) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = []entities.Finding{ruleErrorFinding(decl, i, fmt.Sprintf("rule panicked: %v", r))}
				}
			}()
			results[i] = evaluateRule(snap, decl, i)
		}(i, set.Rules[i])
	}
	wg.Wait()

	var merged []entities.Finding
	for _, fs := range results {
		merged = append(merged, fs...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].RuleIndex != merged[j].RuleIndex {
			return merged[i].RuleIndex < merged[j].RuleIndex
		}
		if merged[i].TargetID != merged[j].TargetID {
			return merged[i].TargetID < merged[j].TargetID
		}
		return merged[i].Problem < merged[j].Problem
	})

	seen := make(map[string]bool, len(merged))
	out := merged[:0]
	for _, f := range merged {
		key := f.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		f.ID = findingID(key)
		out = append(out, f)
	}
	return out
}

// findingID derives a stable id from the finding's identity so repeated
// evaluations of the same snapshot produce identical output.
func findingID(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return fmt.Sprintf("f-%016x", h.Sum64())
}

// evaluateRule dispatches a declaration to its category evaluator.
func evaluateRule(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	switch decl.Category {
	case entities.RuleOrphanedEntity:
		return evalOrphanedEntity(snap, decl, index)
	case entities.RuleInheritDeviceArea:
		return evalInheritDeviceArea(snap, decl, index)
	case entities.RuleDeviceAreaConsensus:
		return evalDeviceAreaConsensus(snap, decl, index)
	case entities.RuleTokenAreaMatch:
		return evalTokenAreaMatch(snap, decl, index)
	case entities.RuleSuffixDuplicate:
		return evalSuffixDuplicate(snap, decl, index)
	case entities.RuleUniqueIDDuplicate:
		return evalUniqueIDDuplicate(snap, decl, index)
	case entities.RuleGenericMediaName:
		return evalGenericMediaName(snap, decl, index)
	case entities.RuleFallbackArea:
		return evalFallbackArea(snap, decl, index)
	case entities.RuleAreaRename:
		return evalAreaRename(snap, decl, index)
	case entities.RuleAreaRemove:
		return evalAreaRemove(snap, decl, index)
	case entities.RuleEntityRemove:
		return evalEntityMatch(snap, decl, index, "entity matches removal rule")
	case entities.RuleEntityHide:
		return evalEntityMatch(snap, decl, index, "entity matches hide rule")
	case entities.RuleEntityArea:
		return evalEntityArea(snap, decl, index)
	case entities.RuleDeviceArea:
		return evalDeviceArea(snap, decl, index)
	case entities.RuleDeviceRename:
		return evalDeviceRename(snap, decl, index)
	case entities.RuleHelperArea:
		return evalHelperArea(snap, decl, index)
	default:
		return []entities.Finding{ruleErrorFinding(decl, index, fmt.Sprintf("unknown rule category %q", decl.Category))}
	}
}

// ruleErrorFinding wraps a rule failure as a finding so evaluation of the
// remaining rules continues.
func ruleErrorFinding(decl entities.RuleDecl, index int, problem string) entities.Finding {
	return entities.Finding{
		RuleID:         decl.ID,
		RuleIndex:      index,
		Category:       entities.RuleError,
		TargetKind:     entities.TargetRule,
		TargetID:       decl.ID,
		Problem:        problem,
		BaseConfidence: 0,
	}
}
