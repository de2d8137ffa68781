package services

import (
	"regexp"
	"strings"
)

var (
	reTokenSplit  = regexp.MustCompile(`[^a-z0-9]+`)
	reSuffixDupID = regexp.MustCompile(`^(.+)_([2-9]|[1-9][0-9]+)$`)
)

// tokenize splits a string into a set of lowercase alphanumeric tokens.
func tokenize(s string) map[string]bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, t := range reTokenSplit.Split(s, -1) {
		if t != "" {
			out[t] = true
		}
	}
	return out
}

// tokensSubset reports whether every token in sub occurs in super.
func tokensSubset(sub, super map[string]bool) bool {
	if len(sub) == 0 {
		return false
	}
	for t := range sub {
		if !super[t] {
			return false
		}
	}
	return true
}

// suffixDuplicate reports whether an entity id looks like a numeric-suffix
// duplicate (sensor.foo_2) and returns the base id.
func suffixDuplicate(entityID string) (bool, string) {
	m := reSuffixDupID.FindStringSubmatch(entityID)
	if m == nil {
		return false, entityID
	}
	return true, m[1]
}

var genericMediaNames = map[string]bool{
	"tv":           true,
	"speaker":      true,
	"speakers":     true,
	"chromecast":   true,
	"google cast":  true,
	"google home":  true,
	"media player": true,
	"mediaplayer":  true,
	"nest audio":   true,
	"nest mini":    true,
	"home":         true,
	"default":      true,
	"unknown":      true,
}

// genericMediaName reports whether a media player name carries no placement
// information.
func genericMediaName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return true
	}
	return genericMediaNames[n] || strings.HasPrefix(n, "media player")
}

// mediaBaseLabel derives a short label for a media player from its id and
// current name.
func mediaBaseLabel(entityID, friendly string) string {
	hay := strings.ToLower(entityID + " " + friendly)
	switch {
	case strings.Contains(hay, "tv"):
		return "TV"
	case strings.Contains(hay, "speaker"), strings.Contains(hay, "sonos"), strings.Contains(hay, "nest"):
		return "Speaker"
	case strings.Contains(hay, "beamer"), strings.Contains(hay, "projector"):
		return "Beamer"
	default:
		return "Media"
	}
}
