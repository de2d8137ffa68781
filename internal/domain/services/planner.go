package services

import (
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// ApprovalPolicy is the static safety policy gating actions behind user
// approval. AlwaysApprove is deliberately configuration, not inference: the
// operations listed there require approval irrespective of confidence.
type ApprovalPolicy struct {
	ConfidenceThreshold float64
	AlwaysApprove       map[entities.ActionType]bool
}

// DefaultApprovalPolicy gates structural and destructive operations.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		ConfidenceThreshold: 0.8,
		AlwaysApprove: map[entities.ActionType]bool{
			entities.ActionCreateArea:   true,
			entities.ActionDeleteArea:   true,
			entities.ActionRemoveEntity: true,
		},
	}
}

// actionPriority orders actions so structural prerequisites precede their
// dependents: area creation first, destructive operations last.
var actionPriority = map[entities.ActionType]int{
	entities.ActionCreateArea:        0,
	entities.ActionRenameArea:        1,
	entities.ActionSetDeviceArea:     2,
	entities.ActionClearEntityDevice: 3,
	entities.ActionClearEntityArea:   3,
	entities.ActionSetEntityArea:     3,
	entities.ActionRenameEntity:      4,
	entities.ActionRenameDevice:      4,
	entities.ActionHideEntity:        5,
	entities.ActionRemoveEntity:      6,
	entities.ActionDeleteArea:        7,
}

// Planner converts findings into an ordered, deduplicated, conflict-free
// plan.
type Planner struct {
	scorer *Scorer
	policy ApprovalPolicy
}

// NewPlanner creates a new Planner.
func NewPlanner(scorer *Scorer, policy ApprovalPolicy) *Planner {
	return &Planner{scorer: scorer, policy: policy}
}

// candidate pairs a synthesized action with planning-only bookkeeping.
type candidate struct {
	action entities.Action
	// pendingArea names an area that must be created before the action
	// can resolve its target area id.
	pendingArea string
}

// Plan builds a plan from the deduplicated findings of one evaluation run.
// Actions whose fingerprint appears in ignored are filtered out and counted.
func (p *Planner) Plan(snap *entities.Snapshot, findings []entities.Finding, set *entities.RuleSet, ignored []string) *entities.Plan {
	plan := &entities.Plan{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		RulesPath: set.Path,
	}

	candidates, groups := p.synthesize(snap, findings, set)
	accepted := p.resolveGroups(plan, groups, candidates)
	accepted = p.resolveAreaDeletions(plan, accepted)
	accepted = p.wireFallback(plan, accepted, candidates)
	accepted = p.filterIgnored(plan, accepted, ignored)

	sort.SliceStable(accepted, func(i, j int) bool {
		pi, pj := actionPriority[accepted[i].action.Type], actionPriority[accepted[j].action.Type]
		if pi != pj {
			return pi < pj
		}
		if accepted[i].action.TargetID != accepted[j].action.TargetID {
			return accepted[i].action.TargetID < accepted[j].action.TargetID
		}
		return accepted[i].action.Type < accepted[j].action.Type
	})

	for _, c := range accepted {
		act := c.action
		act.PlanID = plan.ID
		plan.Actions = append(plan.Actions, act)
	}
	sort.Slice(plan.Unresolved, func(i, j int) bool {
		return plan.Unresolved[i].TargetID < plan.Unresolved[j].TargetID
	})
	return plan
}

// synthesize builds one candidate action per actionable finding, grouped by
// target.
func (p *Planner) synthesize(snap *entities.Snapshot, findings []entities.Finding, set *entities.RuleSet) ([]*candidate, map[string][]*candidate) {
	var all []*candidate
	groups := make(map[string][]*candidate)
	for _, f := range findings {
		if f.Category == entities.RuleError {
			continue
		}
		c, ok := buildCandidate(snap, f)
		if !ok {
			continue
		}
		c.action.ID = uuid.New().String()
		c.action.Confidence = p.scorer.Score(f)
		c.action.RequiresApproval = p.requiresApproval(c.action, f, set)
		c.action.FindingIDs = []string{f.ID}
		c.action.RuleIndex = f.RuleIndex

		key := string(c.action.TargetKind) + ":" + c.action.TargetID
		all = append(all, c)
		groups[key] = append(groups[key], c)
	}
	return all, groups
}

func (p *Planner) requiresApproval(act entities.Action, f entities.Finding, set *entities.RuleSet) bool {
	if p.policy.AlwaysApprove[act.Type] {
		return true
	}
	if f.RuleIndex >= 0 && f.RuleIndex < len(set.Rules) {
		if req := set.Rules[f.RuleIndex].RequiresApproval; req != nil && *req {
			return true
		}
	}
	return p.scorer.Score(f) < p.policy.ConfidenceThreshold
}

// resolveGroups picks a compatible action subset per target: highest
// confidence wins, ties break by rule declaration order. A tie that cannot
// be broken deterministically marks the target unresolved.
func (p *Planner) resolveGroups(plan *entities.Plan, groups map[string][]*candidate, all []*candidate) []*candidate {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []*candidate
	for _, key := range keys {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].action.Confidence != group[j].action.Confidence {
				return group[i].action.Confidence > group[j].action.Confidence
			}
			if group[i].action.RuleIndex != group[j].action.RuleIndex {
				return group[i].action.RuleIndex < group[j].action.RuleIndex
			}
			return group[i].action.Type < group[j].action.Type
		})

		var accepted []*candidate
		tie := false
		for _, c := range group {
			skip := false
			for _, a := range accepted {
				if a.action.Type == c.action.Type && maps.Equal(a.action.After, c.action.After) {
					a.action.FindingIDs = append(a.action.FindingIDs, c.action.FindingIDs...)
					skip = true
					break
				}
				if !compatibleActions(a.action, c.action) {
					if a.action.Confidence == c.action.Confidence && a.action.RuleIndex == c.action.RuleIndex {
						tie = true
					}
					skip = true
					break
				}
			}
			if !skip {
				accepted = append(accepted, c)
			}
		}

		if tie {
			first := group[0].action
			plan.Unresolved = append(plan.Unresolved, entities.UnresolvedTarget{
				TargetKind: first.TargetKind,
				TargetID:   first.TargetID,
				Reason:     "conflicting candidate actions with equal confidence",
				FindingIDs: findingIDs(group),
			})
			continue
		}
		out = append(out, accepted...)
	}
	return out
}

// compatibleActions reports whether two actions on the same target can both
// be applied: neither removes the target and their after-states agree on
// every shared field.
func compatibleActions(a, b entities.Action) bool {
	if a.Removes() || b.Removes() {
		return false
	}
	for k, v := range a.After {
		if w, ok := b.After[k]; ok && w != v {
			return false
		}
	}
	return true
}

// resolveAreaDeletions drops whichever side of a delete-area vs.
// assign-into-area conflict has lower confidence, keeping the plan
// internally consistent: no action may reference an area scheduled for
// deletion.
func (p *Planner) resolveAreaDeletions(plan *entities.Plan, accepted []*candidate) []*candidate {
	dropped := make(map[*candidate]bool)
	for _, d := range accepted {
		if d.action.Type != entities.ActionDeleteArea || dropped[d] {
			continue
		}
		var conflicting []*candidate
		maxConf := 0.0
		for _, c := range accepted {
			if c == d || dropped[c] {
				continue
			}
			if c.action.After[entities.FieldAreaID] == d.action.TargetID {
				conflicting = append(conflicting, c)
				if c.action.Confidence > maxConf {
					maxConf = c.action.Confidence
				}
			}
		}
		if len(conflicting) == 0 {
			continue
		}
		if d.action.Confidence >= maxConf {
			for _, c := range conflicting {
				dropped[c] = true
				plan.Unresolved = append(plan.Unresolved, entities.UnresolvedTarget{
					TargetKind: c.action.TargetKind,
					TargetID:   c.action.TargetID,
					Reason:     "target area is scheduled for deletion",
					FindingIDs: c.action.FindingIDs,
				})
			}
		} else {
			dropped[d] = true
			plan.Unresolved = append(plan.Unresolved, entities.UnresolvedTarget{
				TargetKind: d.action.TargetKind,
				TargetID:   d.action.TargetID,
				Reason:     "area removal conflicts with higher-confidence assignments",
				FindingIDs: d.action.FindingIDs,
			})
		}
	}
	return without(accepted, dropped)
}

// wireFallback links fallback assignments to the create-area action that
// will produce their target area, and prunes a fallback create nothing
// depends on.
func (p *Planner) wireFallback(plan *entities.Plan, accepted []*candidate, all []*candidate) []*candidate {
	creates := make(map[string]*candidate)
	for _, c := range accepted {
		if c.action.Type == entities.ActionCreateArea {
			creates[c.action.After[entities.FieldName]] = c
		}
	}

	dropped := make(map[*candidate]bool)
	depended := make(map[*candidate]bool)
	for _, c := range accepted {
		if c.pendingArea == "" {
			continue
		}
		create, ok := creates[c.pendingArea]
		if !ok {
			dropped[c] = true
			plan.Unresolved = append(plan.Unresolved, entities.UnresolvedTarget{
				TargetKind: c.action.TargetKind,
				TargetID:   c.action.TargetID,
				Reason:     "fallback area is not available",
				FindingIDs: c.action.FindingIDs,
			})
			continue
		}
		c.action.DependsOn = create.action.ID
		depended[create] = true
	}

	for _, create := range creates {
		if !depended[create] {
			dropped[create] = true
		}
	}
	return without(accepted, dropped)
}

// filterIgnored removes actions whose fingerprint the user chose to ignore.
func (p *Planner) filterIgnored(plan *entities.Plan, accepted []*candidate, ignored []string) []*candidate {
	if len(ignored) == 0 {
		return accepted
	}
	set := make(map[string]bool, len(ignored))
	for _, fp := range ignored {
		set[fp] = true
	}
	dropped := make(map[*candidate]bool)
	for _, c := range accepted {
		if set[c.action.Fingerprint()] {
			dropped[c] = true
			plan.IgnoredCount++
		}
	}
	return without(accepted, dropped)
}

func without(in []*candidate, dropped map[*candidate]bool) []*candidate {
	out := in[:0]
	for _, c := range in {
		if !dropped[c] {
			out = append(out, c)
		}
	}
	return out
}

func findingIDs(group []*candidate) []string {
	var ids []string
	for _, c := range group {
		ids = append(ids, c.action.FindingIDs...)
	}
	return ids
}

// buildCandidate synthesizes the corrective action a finding's category
// implies.
func buildCandidate(snap *entities.Snapshot, f entities.Finding) (*candidate, bool) {
	base := entities.Action{
		TargetKind: f.TargetKind,
		TargetID:   f.TargetID,
		Reason:     f.Problem,
	}

	switch f.Category {
	case entities.RuleOrphanedEntity:
		if id, ok := f.Evidence["missing_device_id"]; ok {
			base.Type = entities.ActionClearEntityDevice
			base.Before = map[string]string{entities.FieldDeviceID: id}
			base.After = map[string]string{entities.FieldDeviceID: ""}
			return &candidate{action: base}, true
		}
		if id, ok := f.Evidence["missing_area_id"]; ok {
			base.Type = entities.ActionClearEntityArea
			base.Before = map[string]string{entities.FieldAreaID: id}
			base.After = map[string]string{entities.FieldAreaID: ""}
			return &candidate{action: base}, true
		}
		return nil, false

	case entities.RuleInheritDeviceArea, entities.RuleTokenAreaMatch, entities.RuleEntityArea, entities.RuleHelperArea:
		e := snap.EntityByID(f.TargetID)
		if e == nil {
			return nil, false
		}
		base.Type = entities.ActionSetEntityArea
		base.Before = map[string]string{entities.FieldAreaID: e.AreaID}
		base.After = map[string]string{entities.FieldAreaID: f.Evidence[entities.FieldAreaID]}
		return &candidate{action: base}, true

	case entities.RuleFallbackArea:
		if f.TargetKind == entities.TargetArea {
			base.Type = entities.ActionCreateArea
			base.After = map[string]string{entities.FieldName: f.Evidence["area_name"]}
			return &candidate{action: base}, true
		}
		e := snap.EntityByID(f.TargetID)
		if e == nil {
			return nil, false
		}
		base.Type = entities.ActionSetEntityArea
		base.Before = map[string]string{entities.FieldAreaID: e.AreaID}
		areaID := f.Evidence[entities.FieldAreaID]
		base.After = map[string]string{entities.FieldAreaID: areaID}
		c := &candidate{action: base}
		if areaID == "" {
			c.pendingArea = f.Evidence["area_name"]
		}
		return c, true

	case entities.RuleDeviceAreaConsensus, entities.RuleDeviceArea:
		d := snap.DeviceByID(f.TargetID)
		if d == nil {
			return nil, false
		}
		base.Type = entities.ActionSetDeviceArea
		base.Before = map[string]string{entities.FieldAreaID: d.AreaID}
		base.After = map[string]string{entities.FieldAreaID: f.Evidence[entities.FieldAreaID]}
		return &candidate{action: base}, true

	case entities.RuleSuffixDuplicate, entities.RuleEntityRemove:
		e := snap.EntityByID(f.TargetID)
		if e == nil {
			return nil, false
		}
		base.Type = entities.ActionRemoveEntity
		base.Before = map[string]string{entities.FieldName: e.Name, entities.FieldAreaID: e.AreaID}
		return &candidate{action: base}, true

	case entities.RuleUniqueIDDuplicate, entities.RuleEntityHide:
		e := snap.EntityByID(f.TargetID)
		if e == nil {
			return nil, false
		}
		base.Type = entities.ActionHideEntity
		base.Before = map[string]string{entities.FieldHiddenBy: e.HiddenBy}
		base.After = map[string]string{entities.FieldHiddenBy: "user"}
		return &candidate{action: base}, true

	case entities.RuleGenericMediaName:
		e := snap.EntityByID(f.TargetID)
		if e == nil {
			return nil, false
		}
		base.Type = entities.ActionRenameEntity
		base.Before = map[string]string{entities.FieldName: e.Name}
		base.After = map[string]string{entities.FieldName: f.Evidence[entities.FieldName]}
		return &candidate{action: base}, true

	case entities.RuleDeviceRename:
		d := snap.DeviceByID(f.TargetID)
		if d == nil {
			return nil, false
		}
		base.Type = entities.ActionRenameDevice
		base.Before = map[string]string{entities.FieldName: d.NameByUser}
		base.After = map[string]string{entities.FieldName: f.Evidence[entities.FieldName]}
		return &candidate{action: base}, true

	case entities.RuleAreaRename:
		a := snap.AreaByID(f.TargetID)
		if a == nil {
			return nil, false
		}
		base.Type = entities.ActionRenameArea
		base.Before = map[string]string{entities.FieldName: a.Name}
		base.After = map[string]string{entities.FieldName: f.Evidence[entities.FieldName]}
		return &candidate{action: base}, true

	case entities.RuleAreaRemove:
		a := snap.AreaByID(f.TargetID)
		if a == nil {
			return nil, false
		}
		base.Type = entities.ActionDeleteArea
		base.Before = map[string]string{entities.FieldName: a.Name}
		return &candidate{action: base}, true
	}
	return nil, false
}
