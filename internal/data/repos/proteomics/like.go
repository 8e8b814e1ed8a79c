package proteomics

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// prefixPattern builds a LIKE pattern that matches ids starting with prefix
// literally; "HVO_" must not treat '_' as a wildcard.
func prefixPattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
