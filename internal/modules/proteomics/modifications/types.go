package modifications

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TypeCovered marks a sequenced peptide range without a recognized
// modification.
const TypeCovered = "Covered"

type typeColor struct {
	Type  string
	Color string
}

// allowList is the curated set of displayable modification types in
// legend order. Anything else in raw annotation text is dropped.
var allowList = []typeColor{
	{"Acetyl", "#3B82F6"},
	{"Oxidation", "#EF4444"},
	{"SO3Hex(1)Hex(2)dHex(1)", "#8B5CF6"},
	{"Hex(1)HexA(2)MeHexA(1)", "#F59E0B"},
	{"Hex(1)HexA(2)MeHexA(1)Hex(1)", "#92400E"},
}

var colorByType = func() map[string]string {
	m := make(map[string]string, len(allowList))
	for _, tc := range allowList {
		m[tc.Type] = tc.Color
	}
	return m
}()

// Color returns the display color of an allow-listed type.
func Color(modType string) (string, bool) {
	c, ok := colorByType[modType]
	return c, ok
}

// AllowedTypes returns the allow-list in legend order.
func AllowedTypes() []string {
	out := make([]string, len(allowList))
	for i, tc := range allowList {
		out[i] = tc.Type
	}
	return out
}

// Site is one parsed "Type:relPos" segment.
type Site struct {
	Type             string
	RelativePosition int
}

var sitePattern = regexp.MustCompile(`^(.+):(\d+)$`)

// Parse splits a raw annotation on ';' and returns the well-formed
// segments. Malformed segments are skipped; the allow-list is not applied.
func Parse(raw string) []Site {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []Site
	for _, part := range strings.Split(raw, ";") {
		m := sitePattern.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		typ := strings.TrimSpace(m[1])
		rel, err := strconv.Atoi(m[2])
		if typ == "" || err != nil {
			continue
		}
		out = append(out, Site{Type: typ, RelativePosition: rel})
	}
	return out
}

func ignoredType(t string) bool {
	switch strings.ToLower(t) {
	case "", "n/a", "unmodified":
		return true
	}
	return false
}

// Types returns the type tokens of a raw annotation in order of
// appearance, without positions. Segments without a position still
// contribute their type.
func Types(raw string) []string {
	raw = strings.TrimSpace(raw)
	if ignoredType(raw) {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		typ := part
		if m := sitePattern.FindStringSubmatch(part); m != nil {
			typ = m[1]
		} else if i := strings.Index(part, ":"); i >= 0 {
			typ = part[:i]
		}
		typ = strings.TrimSpace(typ)
		if ignoredType(typ) {
			continue
		}
		out = append(out, typ)
	}
	return out
}

// DistinctTypes returns the sorted set of types across raw annotations.
func DistinctTypes(raws []string) []string {
	set := map[string]struct{}{}
	for _, raw := range raws {
		for _, t := range Types(raw) {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TypeMatches reports whether any type token of raw contains term,
// case-insensitively.
func TypeMatches(raw, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	for _, t := range Types(raw) {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}
