package entities

import "time"

// UnresolvedTarget records a target for which no safe, non-conflicting
// action could be produced. Reported, never silently dropped.
type UnresolvedTarget struct {
	TargetKind TargetKind `json:"target_kind"`
	TargetID   string     `json:"target_id"`
	Reason     string     `json:"reason"`
	FindingIDs []string   `json:"finding_ids,omitempty"`
}

// Plan is the ordered, conflict-resolved action list for one audit session.
// Immutable once generated.
type Plan struct {
	ID           string             `json:"id"`
	CreatedAt    time.Time          `json:"created_at"`
	RulesPath    string             `json:"rules_path,omitempty"`
	Actions      []Action           `json:"actions"`
	Unresolved   []UnresolvedTarget `json:"unresolved,omitempty"`
	IgnoredCount int                `json:"ignored_count"`
}

// ActionByID returns the plan action with the given id, or nil.
func (p *Plan) ActionByID(id string) *Action {
	for i := range p.Actions {
		if p.Actions[i].ID == id {
			return &p.Actions[i]
		}
	}
	return nil
}
