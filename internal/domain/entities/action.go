package entities

// ActionType is the operation kind of a proposed change.
type ActionType string

const (
	ActionSetEntityArea     ActionType = "set_entity_area"
	ActionClearEntityArea   ActionType = "clear_entity_area"
	ActionClearEntityDevice ActionType = "clear_entity_device"
	ActionSetDeviceArea     ActionType = "set_device_area"
	ActionRenameEntity      ActionType = "rename_entity"
	ActionRenameDevice      ActionType = "rename_device"
	ActionRenameArea        ActionType = "rename_area"
	ActionCreateArea        ActionType = "create_area"
	ActionDeleteArea        ActionType = "delete_area"
	ActionHideEntity        ActionType = "hide_entity"
	ActionRemoveEntity      ActionType = "remove_entity"
)

// Field keys used in Action before/after state and undo entries.
const (
	FieldAreaID   = "area_id"
	FieldDeviceID = "device_id"
	FieldName     = "name"
	FieldHiddenBy = "hidden_by"
)

// Action is a proposed, concrete remediation. Before holds the field values
// the target must still have at apply time (stale-state detection); After
// holds the values the action establishes.
type Action struct {
	ID               string            `json:"id"`
	PlanID           string            `json:"plan_id,omitempty"`
	Type             ActionType        `json:"type"`
	TargetKind       TargetKind        `json:"target_kind"`
	TargetID         string            `json:"target_id"`
	Before           map[string]string `json:"before,omitempty"`
	After            map[string]string `json:"after,omitempty"`
	Reason           string            `json:"reason"`
	Confidence       float64           `json:"confidence"`
	RequiresApproval bool              `json:"requires_approval"`
	FindingIDs       []string          `json:"finding_ids,omitempty"`
	// DependsOn names an action that must have been applied first, e.g. a
	// create_area the target area id comes from.
	DependsOn string `json:"depends_on,omitempty"`
	RuleIndex int    `json:"rule_index"`
}

// Fingerprint identifies an action across plan regenerations so it can be
// ignored persistently. Deliberately excludes the random action id.
func (a Action) Fingerprint() string {
	key := a.TargetID
	if key == "" {
		key = a.After[FieldName]
	}
	return string(a.Type) + ":" + key
}

// Removes reports whether the action deletes its target rather than
// mutating fields on it.
func (a Action) Removes() bool {
	return a.Type == ActionRemoveEntity || a.Type == ActionDeleteArea
}
