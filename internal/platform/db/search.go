package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains returns an ILIKE pattern matching the trimmed q as a literal
// substring, as domain.Matches does for the memory stores. The LIKE wildcards
// and the default escape character in q are escaped.
func Contains(q string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(q)) + "%"
}
