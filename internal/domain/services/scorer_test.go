package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

func TestScoreBaseOnly(t *testing.T) {
	s := NewScorer()
	assert.InDelta(t, 0.9, s.Score(entities.Finding{BaseConfidence: 0.9}), 1e-9)
}

func TestScoreCorroborationNeverDecreases(t *testing.T) {
	s := NewScorer()
	base := entities.Finding{BaseConfidence: 0.8}
	corroborated := entities.Finding{
		BaseConfidence: 0.8,
		Evidence: map[string]string{
			entities.EvidenceStateActive: "true",
			entities.EvidenceExactMatch:  "true",
		},
	}
	assert.Greater(t, s.Score(corroborated), s.Score(base))
	assert.InDelta(t, 0.84, s.Score(corroborated), 1e-9)
}

func TestScoreClampedToOne(t *testing.T) {
	s := NewScorer()
	f := entities.Finding{
		BaseConfidence: 0.99,
		Evidence: map[string]string{
			entities.EvidenceStateActive: "true",
			entities.EvidenceExactMatch:  "true",
			entities.EvidenceConsensus:   "true",
		},
	}
	assert.Equal(t, 1.0, s.Score(f))
}

func TestScoreRuleErrorIsZero(t *testing.T) {
	f := entities.Finding{Category: entities.RuleError, BaseConfidence: 0.5}
	assert.Zero(t, NewScorer().Score(f))
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer()
	f := entities.Finding{
		BaseConfidence: 0.7,
		Evidence:       map[string]string{entities.EvidenceStateActive: "true"},
	}
	first := s.Score(f)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score(f))
	}
}
