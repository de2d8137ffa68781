package entities

import "fmt"

// Evidence keys that count as corroborating signals when scoring.
const (
	EvidenceStateActive = "state_active"
	EvidenceExactMatch  = "exact_match"
	EvidenceConsensus   = "consensus"
)

// Finding is a detected issue, independent of any specific fix. A rule may
// yield zero, one, or many findings per target.
type Finding struct {
	ID             string            `json:"id"`
	RuleID         string            `json:"rule_id"`
	RuleIndex      int               `json:"rule_index"`
	Category       RuleCategory      `json:"category"`
	TargetKind     TargetKind        `json:"target_kind"`
	TargetID       string            `json:"target_id"`
	Problem        string            `json:"problem"`
	Evidence       map[string]string `json:"evidence,omitempty"`
	BaseConfidence float64           `json:"base_confidence"`
}

// Key identifies a finding for deduplication: identical (rule, target,
// problem) findings collapse to one.
func (f Finding) Key() string {
	return fmt.Sprintf("%s|%s:%s|%s", f.RuleID, f.TargetKind, f.TargetID, f.Problem)
}

// Corroborations counts the evidence signals that strengthen the finding.
func (f Finding) Corroborations() int {
	n := 0
	for _, k := range []string{EvidenceStateActive, EvidenceExactMatch, EvidenceConsensus} {
		if f.Evidence[k] == "true" {
			n++
		}
	}
	return n
}
