package handlers

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/domain/ports"
	"github.com/pvandijk/housekeeper/internal/domain/services"
)

// AuditHandler runs a read-only audit: snapshot, rule evaluation, scoring.
// It never touches the registry beyond the initial read.
type AuditHandler struct {
	snapshots *services.SnapshotService
	engine    *services.RuleEngine
	scorer    *services.Scorer
	rules     ports.RuleSource
	opts      services.Options
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(snapshots *services.SnapshotService, engine *services.RuleEngine, scorer *services.Scorer, rules ports.RuleSource, opts services.Options) *AuditHandler {
	return &AuditHandler{
		snapshots: snapshots,
		engine:    engine,
		scorer:    scorer,
		rules:     rules,
		opts:      opts,
	}
}

// ScoredFinding pairs a finding with its computed confidence.
type ScoredFinding struct {
	entities.Finding
	Confidence float64 `json:"confidence"`
}

// DeviceRef identifies a device in the audit inventory.
type DeviceRef struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name,omitempty"`
}

// EntityRef identifies an entity in the audit inventory.
type EntityRef struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	AreaID   string `json:"area_id,omitempty"`
}

// AuditReport summarizes one audit run.
type AuditReport struct {
	TakenAt             time.Time                     `json:"taken_at"`
	RulesPath           string                        `json:"rules_path,omitempty"`
	AreaCount           int                           `json:"area_count"`
	DeviceCount         int                           `json:"device_count"`
	EntityCount         int                           `json:"entity_count"`
	DevicesWithoutArea  []DeviceRef                   `json:"devices_without_area,omitempty"`
	EntitiesWithoutArea []EntityRef                   `json:"entities_without_effective_area,omitempty"`
	Helpers             []EntityRef                   `json:"helpers,omitempty"`
	Findings            []ScoredFinding               `json:"findings"`
	ByCategory          map[entities.RuleCategory]int `json:"by_category"`
	RuleErrors          []ScoredFinding               `json:"rule_errors,omitempty"`
}

// helperEntity reports whether the id belongs to a helper-style domain.
func helperEntity(id string) bool {
	return strings.HasPrefix(id, "input_") ||
		strings.HasPrefix(id, "sensor.") ||
		strings.HasPrefix(id, "template.")
}

// Handle audits the registry and returns the scored findings.
func (h *AuditHandler) Handle(ctx context.Context) (*AuditReport, error) {
	snap, err := h.snapshots.Load(ctx)
	if err != nil {
		return nil, err
	}
	set, err := loadRuleSet(ctx, h.rules, h.opts)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		TakenAt:     snap.TakenAt,
		RulesPath:   set.Path,
		AreaCount:   len(snap.Areas),
		DeviceCount: len(snap.Devices),
		EntityCount: len(snap.Entities),
		ByCategory:  make(map[entities.RuleCategory]int),
	}

	for _, d := range snap.Devices {
		if d.AreaID == "" {
			report.DevicesWithoutArea = append(report.DevicesWithoutArea, DeviceRef{
				DeviceID: d.ID,
				Name:     d.Label(),
			})
		}
	}
	for _, e := range snap.Entities {
		if !snap.Active(e.ID) {
			continue
		}
		effective := snap.EffectiveAreaID(e)
		if effective == "" {
			report.EntitiesWithoutArea = append(report.EntitiesWithoutArea, EntityRef{
				EntityID: e.ID,
				Name:     snap.DisplayName(e),
				DeviceID: e.DeviceID,
			})
		}
		if helperEntity(e.ID) {
			report.Helpers = append(report.Helpers, EntityRef{
				EntityID: e.ID,
				AreaID:   effective,
			})
		}
	}
	sort.Slice(report.DevicesWithoutArea, func(i, j int) bool {
		return report.DevicesWithoutArea[i].DeviceID < report.DevicesWithoutArea[j].DeviceID
	})
	sort.Slice(report.EntitiesWithoutArea, func(i, j int) bool {
		return report.EntitiesWithoutArea[i].EntityID < report.EntitiesWithoutArea[j].EntityID
	})
	sort.Slice(report.Helpers, func(i, j int) bool {
		return report.Helpers[i].EntityID < report.Helpers[j].EntityID
	})

	for _, f := range h.engine.Evaluate(ctx, snap, set) {
		scored := ScoredFinding{Finding: f, Confidence: h.scorer.Score(f)}
		if f.Category == entities.RuleError {
			report.RuleErrors = append(report.RuleErrors, scored)
			continue
		}
		report.Findings = append(report.Findings, scored)
		report.ByCategory[f.Category]++
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		if report.Findings[i].Confidence != report.Findings[j].Confidence {
			return report.Findings[i].Confidence > report.Findings[j].Confidence
		}
		return report.Findings[i].TargetID < report.Findings[j].TargetID
	})
	return report, nil
}
