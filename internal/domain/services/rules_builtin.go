package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// Options configure the built-in rule set.
type Options struct {
	// FallbackAreaName is the area unplaced entities can be gathered
	// into when IncludeFallback is set.
	FallbackAreaName string
	// IncludeFallback enables the fallback-area rule for this run.
	IncludeFallback bool
}

func boolPtr(b bool) *bool { return &b }

// BuiltinRules returns the engine-owned rule declarations in their fixed
// declaration order. Declared rules from the rules file are appended after
// these, so built-ins win confidence ties.
func BuiltinRules(opts Options) []entities.RuleDecl {
	rules := []entities.RuleDecl{
		{ID: "builtin/orphaned-entity", Category: entities.RuleOrphanedEntity, BaseConfidence: 0.95, RequiresApproval: boolPtr(false)},
		{ID: "builtin/inherit-device-area", Category: entities.RuleInheritDeviceArea, BaseConfidence: 1, RequiresApproval: boolPtr(false)},
		{ID: "builtin/device-area-consensus", Category: entities.RuleDeviceAreaConsensus, BaseConfidence: 0.98, RequiresApproval: boolPtr(false)},
		{ID: "builtin/token-area-match", Category: entities.RuleTokenAreaMatch, BaseConfidence: 0.9, RequiresApproval: boolPtr(false)},
		{ID: "builtin/suffix-duplicate", Category: entities.RuleSuffixDuplicate, BaseConfidence: 0.9, RequiresApproval: boolPtr(true)},
		{ID: "builtin/unique-id-duplicate", Category: entities.RuleUniqueIDDuplicate, BaseConfidence: 0.9, RequiresApproval: boolPtr(true)},
		{ID: "builtin/generic-media-name", Category: entities.RuleGenericMediaName, BaseConfidence: 0.8, RequiresApproval: boolPtr(true)},
	}
	if opts.IncludeFallback && opts.FallbackAreaName != "" {
		rules = append(rules, entities.RuleDecl{
			ID:               "builtin/fallback-area",
			Category:         entities.RuleFallbackArea,
			Area:             opts.FallbackAreaName,
			BaseConfidence:   0.6,
			RequiresApproval: boolPtr(true),
		})
	}
	return rules
}

func newFinding(decl entities.RuleDecl, index int, kind entities.TargetKind, targetID, problem string, evidence map[string]string) entities.Finding {
	return entities.Finding{
		RuleID:         decl.ID,
		RuleIndex:      index,
		Category:       decl.Category,
		TargetKind:     kind,
		TargetID:       targetID,
		Problem:        problem,
		Evidence:       evidence,
		BaseConfidence: decl.BaseConfidence,
	}
}

// evalOrphanedEntity flags entities whose device or area reference points at
// nothing in the snapshot.
func evalOrphanedEntity(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	var out []entities.Finding
	for _, e := range snap.Entities {
		if snap.OrphanedDeviceRef(e) {
			out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
				fmt.Sprintf("entity references missing device %q", e.DeviceID),
				map[string]string{"missing_device_id": e.DeviceID}))
		}
		if snap.OrphanedAreaRef(e) {
			out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
				fmt.Sprintf("entity references missing area %q", e.AreaID),
				map[string]string{"missing_area_id": e.AreaID}))
		}
	}
	return out
}

// evalInheritDeviceArea flags active entities without an explicit area whose
// device has one: the entity can inherit it deterministically.
func evalInheritDeviceArea(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	var out []entities.Finding
	for _, e := range snap.Entities {
		if e.AreaID != "" || e.DeviceID == "" || !snap.Active(e.ID) {
			continue
		}
		d := snap.DeviceByID(e.DeviceID)
		if d == nil || d.AreaID == "" {
			continue
		}
		out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
			"entity has no area while its device has one",
			map[string]string{
				entities.FieldAreaID:         d.AreaID,
				"device_id":                  e.DeviceID,
				entities.EvidenceStateActive: "true",
			}))
	}
	return out
}

// evalDeviceAreaConsensus flags devices without an area whose active entities
// all carry the same explicit area.
func evalDeviceAreaConsensus(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	var out []entities.Finding
	for _, d := range snap.Devices {
		if d.AreaID != "" {
			continue
		}
		areas := make(map[string]int)
		for _, e := range snap.EntitiesByDevice(d.ID) {
			if e.AreaID != "" && snap.Active(e.ID) {
				areas[e.AreaID]++
			}
		}
		if len(areas) != 1 {
			continue
		}
		for areaID, n := range areas {
			ev := map[string]string{
				entities.FieldAreaID:       areaID,
				entities.EvidenceConsensus: "true",
				"agreement_count":          strconv.Itoa(n),
			}
			out = append(out, newFinding(decl, index, entities.TargetDevice, d.ID,
				"device has no area; every linked active entity agrees on one", ev))
		}
	}
	return out
}

// evalTokenAreaMatch flags unplaced active entities whose metadata tokens
// contain exactly one area's name tokens.
func evalTokenAreaMatch(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	type areaTokens struct {
		id     string
		name   string
		tokens map[string]bool
	}
	var areas []areaTokens
	for _, a := range snap.Areas {
		if a.ID == "" || a.Name == "" {
			continue
		}
		areas = append(areas, areaTokens{id: a.ID, name: a.Name, tokens: tokenize(a.Name)})
	}

	var out []entities.Finding
	for _, e := range snap.Entities {
		if !snap.Active(e.ID) || snap.EffectiveAreaID(e) != "" {
			continue
		}
		hay := tokenize(e.ID + " " + e.Name + " " + e.OriginalName + " " + snap.DisplayName(e))
		var matches []areaTokens
		for _, a := range areas {
			if tokensSubset(a.tokens, hay) {
				matches = append(matches, a)
			}
		}
		if len(matches) != 1 {
			continue
		}
		out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
			fmt.Sprintf("entity metadata matches area %q", matches[0].name),
			map[string]string{
				entities.FieldAreaID:         matches[0].id,
				"area_name":                  matches[0].name,
				entities.EvidenceExactMatch:  "true",
				entities.EvidenceStateActive: "true",
			}))
	}
	return out
}

// evalSuffixDuplicate flags numeric-suffix duplicates of existing entities.
func evalSuffixDuplicate(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	var out []entities.Finding
	for _, e := range snap.Entities {
		dup, base := suffixDuplicate(e.ID)
		if !dup || snap.EntityByID(base) == nil {
			continue
		}
		out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
			fmt.Sprintf("entity id looks like a suffix duplicate of %q", base),
			map[string]string{"base_entity_id": base}))
	}
	return out
}

// evalUniqueIDDuplicate flags groups of entities sharing a unique id: the
// first (sorted) id is kept, the rest are hidden.
func evalUniqueIDDuplicate(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	byUnique := make(map[string][]string)
	for _, e := range snap.Entities {
		if e.UniqueID != "" {
			byUnique[e.UniqueID] = append(byUnique[e.UniqueID], e.ID)
		}
	}
	var out []entities.Finding
	for uid, ids := range byUnique {
		if len(ids) <= 1 {
			continue
		}
		sort.Strings(ids)
		kept := ids[0]
		for _, id := range ids[1:] {
			out = append(out, newFinding(decl, index, entities.TargetEntity, id,
				fmt.Sprintf("duplicate unique id %q; keeping %q", uid, kept),
				map[string]string{
					"unique_id":            uid,
					"kept_entity_id":       kept,
					entities.FieldHiddenBy: "user",
				}))
		}
	}
	return out
}

// evalGenericMediaName flags active media players with generic or empty
// names and an effective area, proposing an area-based name. Numbering is
// stable per (area, base label).
func evalGenericMediaName(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	type candidate struct {
		entityID string
		current  string
	}
	grouped := make(map[string][]candidate)
	groupArea := make(map[string]string)
	for _, e := range snap.Entities {
		if !strings.HasPrefix(e.ID, "media_player.") {
			continue
		}
		if !snap.Active(e.ID) {
			continue
		}
		areaID := snap.EffectiveAreaID(e)
		if areaID == "" {
			continue
		}
		current := snap.DisplayName(e)
		if !genericMediaName(current) {
			continue
		}
		base := mediaBaseLabel(e.ID, current)
		key := areaID + "|" + base
		grouped[key] = append(grouped[key], candidate{entityID: e.ID, current: current})
		groupArea[key] = areaID
	}

	var out []entities.Finding
	for key, items := range grouped {
		sort.Slice(items, func(i, j int) bool { return items[i].entityID < items[j].entityID })
		areaID := groupArea[key]
		areaName := areaID
		if a := snap.AreaByID(areaID); a != nil && a.Name != "" {
			areaName = a.Name
		}
		base := key[len(areaID)+1:]
		for i, c := range items {
			newName := base + " " + areaName
			if len(items) > 1 {
				newName = fmt.Sprintf("%s %d", newName, i+1)
			}
			out = append(out, newFinding(decl, index, entities.TargetEntity, c.entityID,
				fmt.Sprintf("generic media player name %q", c.current),
				map[string]string{
					entities.FieldName:           newName,
					"current_name":               c.current,
					entities.EvidenceStateActive: "true",
				}))
		}
	}
	return out
}

// evalFallbackArea flags every active entity without an effective area so
// the planner can gather them into the configured fallback area, creating it
// first if needed.
func evalFallbackArea(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	var out []entities.Finding

	var fallbackID string
	if areas := snap.AreasByName(decl.Area); len(areas) > 0 {
		fallbackID = areas[0].ID
	} else {
		out = append(out, newFinding(decl, index, entities.TargetArea, decl.Area,
			fmt.Sprintf("fallback area %q does not exist", decl.Area),
			map[string]string{"area_name": decl.Area}))
	}

	for _, e := range snap.Entities {
		if !snap.Active(e.ID) || snap.EffectiveAreaID(e) != "" {
			continue
		}
		ev := map[string]string{"area_name": decl.Area}
		if fallbackID != "" {
			ev[entities.FieldAreaID] = fallbackID
		}
		out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
			"entity has no effective area", ev))
	}
	return out
}
