// Package canonical maps raw display strings to canonical entity names.
//
// The canonical name is the single identity key under which every variant
// spelling of one real-world concept collapses to one graph entity, so this
// is the only place that controls cross-source identity resolution.
package canonical

import "strings"

// aliases maps lowercased raw names to their canonical spelling. Anything
// not listed passes through unchanged, case preserved.
var aliases = map[string]string{
	"nextjs":  "Next.js",
	"reactjs": "React",
	"nodejs":  "Node.js",
}

// Name returns the canonical form of a raw display name. It trims
// surrounding whitespace and returns the empty string for empty input.
// The function is pure and total: same input, same output, no errors.
func Name(raw string) string {
	n := strings.TrimSpace(raw)
	if n == "" {
		return ""
	}
	if canon, ok := aliases[strings.ToLower(n)]; ok {
		return canon
	}
	return n
}
