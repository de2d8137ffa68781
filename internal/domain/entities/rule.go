package entities

// RuleCategory selects the evaluator for a rule declaration. Rules are data
// variants dispatched by a fixed set of evaluators, not an open hierarchy.
type RuleCategory string

const (
	// Built-in categories (engine-owned evaluators).
	RuleOrphanedEntity      RuleCategory = "orphaned-entity"
	RuleInheritDeviceArea   RuleCategory = "inherit-device-area"
	RuleDeviceAreaConsensus RuleCategory = "device-area-consensus"
	RuleTokenAreaMatch      RuleCategory = "token-area-match"
	RuleSuffixDuplicate     RuleCategory = "suffix-duplicate"
	RuleUniqueIDDuplicate   RuleCategory = "unique-id-duplicate"
	RuleGenericMediaName    RuleCategory = "generic-media-name"
	RuleFallbackArea        RuleCategory = "fallback-area"

	// Declared categories (parameters loaded from the rules file).
	RuleAreaRename   RuleCategory = "area-rename"
	RuleAreaRemove   RuleCategory = "area-remove"
	RuleEntityRemove RuleCategory = "entity-remove"
	RuleEntityHide   RuleCategory = "entity-hide"
	RuleEntityArea   RuleCategory = "entity-area"
	RuleDeviceArea   RuleCategory = "device-area"
	RuleDeviceRename RuleCategory = "device-rename"
	RuleHelperArea   RuleCategory = "helper-area"

	// RuleError marks findings produced when a rule itself failed to
	// evaluate. They carry zero confidence and never become actions.
	RuleError RuleCategory = "rule-error"
)

// RuleDecl is a single data-declared rule. Which fields are meaningful
// depends on the category.
type RuleDecl struct {
	ID               string       `json:"id"`
	Category         RuleCategory `json:"category"`
	Pattern          string       `json:"pattern,omitempty"`
	Area             string       `json:"area,omitempty"`
	From             string       `json:"from,omitempty"`
	To               string       `json:"to,omitempty"`
	Keywords         []string     `json:"keywords,omitempty"`
	EntityIDs        []string     `json:"entity_ids,omitempty"`
	Overwrite        bool         `json:"overwrite,omitempty"`
	RequiresApproval *bool        `json:"requires_approval,omitempty"`
	BaseConfidence   float64      `json:"base_confidence"`
}

// RuleSet is the parsed rule input for one evaluation run. Declaration order
// is significant: it breaks confidence ties during planning.
type RuleSet struct {
	Path  string     `json:"path,omitempty"`
	Rules []RuleDecl `json:"rules"`
}
