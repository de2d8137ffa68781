// Package rules loads the user-declared ruleset from a YAML file.
package rules

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

// Loader reads rule declarations from a YAML file. It implements
// ports.RuleSource. A missing file yields an empty set, so a fresh install
// runs on the built-in rules alone.
type Loader struct {
	path string
}

// NewLoader creates a loader for the given rules file.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// rulesFile is the on-disk YAML shape.
type rulesFile struct {
	AreaRenames map[string]string `yaml:"area_renames"`
	AreaRemove  []string          `yaml:"area_remove"`
	EntityRemove struct {
		IDs      []string `yaml:"ids"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"entity_remove"`
	EntityHide struct {
		IDs      []string `yaml:"ids"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"entity_hide"`
	EntityArea []struct {
		Pattern   string `yaml:"pattern"`
		Area      string `yaml:"area"`
		Overwrite bool   `yaml:"overwrite"`
	} `yaml:"entity_area"`
	DeviceArea []struct {
		Pattern   string `yaml:"pattern"`
		Area      string `yaml:"area"`
		Overwrite bool   `yaml:"overwrite"`
	} `yaml:"device_area"`
	DeviceRenames []struct {
		Pattern string `yaml:"pattern"`
		Name    string `yaml:"name"`
	} `yaml:"device_renames"`
	HelperAreaRules []struct {
		Area     string   `yaml:"area"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"helper_area_rules"`
}

// Load parses the rules file into flat declarations in a stable order.
func (l *Loader) Load(_ context.Context) (*entities.RuleSet, error) {
	set := &entities.RuleSet{Path: l.path}

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	set.Rules = flatten(file)
	return set, nil
}

func boolPtr(b bool) *bool { return &b }

// flatten expands the grouped YAML sections into one declaration list. The
// order is fixed so rule indexes, and with them tie-breaking, stay stable
// across runs.
func flatten(file rulesFile) []entities.RuleDecl {
	var out []entities.RuleDecl

	froms := make([]string, 0, len(file.AreaRenames))
	for from := range file.AreaRenames {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		out = append(out, entities.RuleDecl{
			ID:             "rules/area-rename/" + from,
			Category:       entities.RuleAreaRename,
			From:           from,
			To:             file.AreaRenames[from],
			BaseConfidence: 0.9,
		})
	}

	for _, name := range file.AreaRemove {
		out = append(out, entities.RuleDecl{
			ID:               "rules/area-remove/" + name,
			Category:         entities.RuleAreaRemove,
			Area:             name,
			BaseConfidence:   0.85,
			RequiresApproval: boolPtr(true),
		})
	}

	if len(file.EntityRemove.IDs) > 0 {
		out = append(out, entities.RuleDecl{
			ID:               "rules/entity-remove/ids",
			Category:         entities.RuleEntityRemove,
			EntityIDs:        file.EntityRemove.IDs,
			BaseConfidence:   1,
			RequiresApproval: boolPtr(true),
		})
	}
	for _, pattern := range file.EntityRemove.Patterns {
		out = append(out, entities.RuleDecl{
			ID:               "rules/entity-remove/" + pattern,
			Category:         entities.RuleEntityRemove,
			Pattern:          pattern,
			BaseConfidence:   0.95,
			RequiresApproval: boolPtr(true),
		})
	}

	if len(file.EntityHide.IDs) > 0 {
		out = append(out, entities.RuleDecl{
			ID:             "rules/entity-hide/ids",
			Category:       entities.RuleEntityHide,
			EntityIDs:      file.EntityHide.IDs,
			BaseConfidence: 1,
		})
	}
	for _, pattern := range file.EntityHide.Patterns {
		out = append(out, entities.RuleDecl{
			ID:             "rules/entity-hide/" + pattern,
			Category:       entities.RuleEntityHide,
			Pattern:        pattern,
			BaseConfidence: 0.95,
		})
	}

	for _, r := range file.EntityArea {
		out = append(out, entities.RuleDecl{
			ID:             "rules/entity-area/" + r.Pattern,
			Category:       entities.RuleEntityArea,
			Pattern:        r.Pattern,
			Area:           r.Area,
			Overwrite:      r.Overwrite,
			BaseConfidence: 0.9,
		})
	}

	for _, r := range file.DeviceArea {
		out = append(out, entities.RuleDecl{
			ID:             "rules/device-area/" + r.Pattern,
			Category:       entities.RuleDeviceArea,
			Pattern:        r.Pattern,
			Area:           r.Area,
			Overwrite:      r.Overwrite,
			BaseConfidence: 0.9,
		})
	}

	for _, r := range file.DeviceRenames {
		out = append(out, entities.RuleDecl{
			ID:             "rules/device-rename/" + r.Pattern,
			Category:       entities.RuleDeviceRename,
			Pattern:        r.Pattern,
			To:             r.Name,
			BaseConfidence: 0.9,
		})
	}

	for _, r := range file.HelperAreaRules {
		out = append(out, entities.RuleDecl{
			ID:             "rules/helper-area/" + r.Area,
			Category:       entities.RuleHelperArea,
			Area:           r.Area,
			Keywords:       r.Keywords,
			BaseConfidence: 0.85,
		})
	}

	return out
}
