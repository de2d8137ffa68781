package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// compileRule compiles a declared pattern case-insensitively.
func compileRule(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// evalAreaRename proposes renaming an area per a from/to declaration. The
// source name must match exactly one area and the destination name must be
// unused.
func evalAreaRename(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	src := strings.TrimSpace(decl.From)
	dst := strings.TrimSpace(decl.To)
	if src == "" || dst == "" || src == dst {
		return []entities.Finding{ruleErrorFinding(decl, index, "area-rename rule needs distinct from/to names")}
	}
	srcAreas := snap.AreasByName(src)
	if len(srcAreas) != 1 || len(snap.AreasByName(dst)) != 0 {
		return nil
	}
	return []entities.Finding{newFinding(decl, index, entities.TargetArea, srcAreas[0].ID,
		fmt.Sprintf("area %q should be renamed to %q", src, dst),
		map[string]string{entities.FieldName: dst, "from": src})}
}

// evalAreaRemove proposes deleting an area by name.
func evalAreaRemove(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	name := strings.TrimSpace(decl.Area)
	if name == "" {
		return []entities.Finding{ruleErrorFinding(decl, index, "area-remove rule needs an area name")}
	}
	areas := snap.AreasByName(name)
	if len(areas) != 1 {
		return nil
	}
	return []entities.Finding{newFinding(decl, index, entities.TargetArea, areas[0].ID,
		fmt.Sprintf("area %q is declared obsolete", name),
		map[string]string{"area_name": areas[0].Name})}
}

// evalEntityMatch flags entities named explicitly or matching a declared
// pattern; used by both entity-remove and entity-hide.
func evalEntityMatch(snap *entities.Snapshot, decl entities.RuleDecl, index int, problem string) []entities.Finding {
	var out []entities.Finding
	matched := make(map[string]bool)

	for _, id := range decl.EntityIDs {
		if snap.EntityByID(id) == nil || matched[id] {
			continue
		}
		matched[id] = true
		out = append(out, newFinding(decl, index, entities.TargetEntity, id,
			problem, map[string]string{"match": "explicit"}))
	}

	if decl.Pattern != "" {
		rx, err := compileRule(decl.Pattern)
		if err != nil {
			return append(out, ruleErrorFinding(decl, index, fmt.Sprintf("invalid pattern %q: %v", decl.Pattern, err)))
		}
		ids := make([]string, 0, len(snap.Entities))
		for _, e := range snap.Entities {
			ids = append(ids, e.ID)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if matched[id] || !rx.MatchString(id) {
				continue
			}
			matched[id] = true
			out = append(out, newFinding(decl, index, entities.TargetEntity, id,
				problem, map[string]string{"pattern": decl.Pattern}))
		}
	}
	return out
}

// evalEntityArea assigns entities matching a pattern to a declared area.
// Unless the rule sets overwrite, entities that already resolve to an area
// are left alone.
func evalEntityArea(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	rx, err := compileRule(decl.Pattern)
	if err != nil {
		return []entities.Finding{ruleErrorFinding(decl, index, fmt.Sprintf("invalid pattern %q: %v", decl.Pattern, err))}
	}
	areas := snap.AreasByName(decl.Area)
	if len(areas) != 1 {
		return nil
	}
	target := areas[0]

	var out []entities.Finding
	for _, e := range snap.Entities {
		if !snap.Active(e.ID) || !rx.MatchString(e.ID) {
			continue
		}
		if !decl.Overwrite && snap.EffectiveAreaID(e) != "" {
			continue
		}
		if e.AreaID == target.ID {
			continue
		}
		out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
			fmt.Sprintf("entity matches rule for area %q", target.Name),
			map[string]string{
				entities.FieldAreaID: target.ID,
				"area_name":          target.Name,
				"pattern":            decl.Pattern,
			}))
	}
	return out
}

// evalDeviceArea assigns devices whose name matches a pattern to a declared
// area.
func evalDeviceArea(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	rx, err := compileRule(decl.Pattern)
	if err != nil {
		return []entities.Finding{ruleErrorFinding(decl, index, fmt.Sprintf("invalid pattern %q: %v", decl.Pattern, err))}
	}
	areas := snap.AreasByName(decl.Area)
	if len(areas) != 1 {
		return nil
	}
	target := areas[0]

	var out []entities.Finding
	for _, d := range snap.Devices {
		if d.AreaID != "" && !decl.Overwrite {
			continue
		}
		if d.AreaID == target.ID {
			continue
		}
		name := d.Label()
		if name == "" || !rx.MatchString(name) {
			continue
		}
		out = append(out, newFinding(decl, index, entities.TargetDevice, d.ID,
			fmt.Sprintf("device name matches rule for area %q", target.Name),
			map[string]string{
				entities.FieldAreaID: target.ID,
				"area_name":          target.Name,
				"pattern":            decl.Pattern,
			}))
	}
	return out
}

// evalDeviceRename proposes a user-assigned name for devices whose label
// matches a pattern. Devices already carrying the declared name are left
// alone.
func evalDeviceRename(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	name := strings.TrimSpace(decl.To)
	if name == "" {
		return []entities.Finding{ruleErrorFinding(decl, index, "device-rename rule needs a target name")}
	}
	rx, err := compileRule(decl.Pattern)
	if err != nil {
		return []entities.Finding{ruleErrorFinding(decl, index, fmt.Sprintf("invalid pattern %q: %v", decl.Pattern, err))}
	}

	var out []entities.Finding
	for _, d := range snap.Devices {
		label := d.Label()
		if label == "" || label == name || !rx.MatchString(label) {
			continue
		}
		out = append(out, newFinding(decl, index, entities.TargetDevice, d.ID,
			fmt.Sprintf("device %q should be renamed to %q", label, name),
			map[string]string{
				entities.FieldName: name,
				"current_name":     label,
				"pattern":          decl.Pattern,
			}))
	}
	return out
}

// evalHelperArea places unassigned helper entities into a declared area when
// their metadata tokens intersect the rule's keyword set.
func evalHelperArea(snap *entities.Snapshot, decl entities.RuleDecl, index int) []entities.Finding {
	if decl.Area == "" || len(decl.Keywords) == 0 {
		return []entities.Finding{ruleErrorFinding(decl, index, "helper-area rule needs an area and keywords")}
	}
	areas := snap.AreasByName(decl.Area)
	if len(areas) != 1 {
		return nil
	}
	target := areas[0]

	keywords := make([]string, 0, len(decl.Keywords))
	for _, k := range decl.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}

	var out []entities.Finding
	for _, e := range snap.Entities {
		if !snap.Active(e.ID) || snap.EffectiveAreaID(e) != "" {
			continue
		}
		tokens := tokenize(e.ID + " " + e.Name + " " + e.OriginalName)
		// Keywords are checked in declaration order so the reported match
		// is the same on every run.
		hit := ""
		for _, k := range keywords {
			if tokens[k] {
				hit = k
				break
			}
		}
		if hit == "" {
			continue
		}
		out = append(out, newFinding(decl, index, entities.TargetEntity, e.ID,
			fmt.Sprintf("keyword match suggests area %q", target.Name),
			map[string]string{
				entities.FieldAreaID: target.ID,
				"area_name":          target.Name,
				"keyword":            hit,
			}))
	}
	return out
}
