package services

import "github.com/pvandijk/housekeeper/internal/domain/entities"

// corroborationWeight is the confidence added per corroborating evidence
// signal. Small on purpose: evidence refines a rule's base certainty, it
// never overrides it.
const corroborationWeight = 0.02

// Scorer assigns a confidence in [0, 1] to a finding. It is a deterministic
// pure function of the finding's base confidence and evidence; it never
// reads external state.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the confidence for a finding. Strengthening evidence never
// decreases the score.
func (s *Scorer) Score(f entities.Finding) float64 {
	if f.Category == entities.RuleError {
		return 0
	}
	score := f.BaseConfidence + corroborationWeight*float64(f.Corroborations())
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
