package store

import "strings"

// ChunkRange calls fn over [start, end) windows of at most chunkSize items
// until the whole range is covered or fn returns an error.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// ContainsFold reports whether a contains b or b contains a,
// case-insensitively. This is the fuzzy containment test used to associate
// roadmap domains with occupations absent an exact key.
func ContainsFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == "" || lb == "" {
		return false
	}
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}
