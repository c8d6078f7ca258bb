package entities

import "strings"

// AppendUnique concatenates incoming onto existing with sep. Segments of
// incoming that are empty, the absence placeholder, or already present in
// existing are skipped, so repeated calls with the same value are no-ops.
func AppendUnique(existing, incoming, sep string) string {
	if isBlank(existing) {
		existing = ""
	}
	segments := splitSegments(existing, sep)
	seen := make(map[string]struct{}, len(segments))
	for _, s := range segments {
		seen[s] = struct{}{}
	}

	var b strings.Builder
	b.WriteString(existing)
	for _, s := range splitSegments(incoming, sep) {
		if isBlank(s) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(s)
	}
	return b.String()
}

func splitSegments(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == "" || s == AbsentValue
}
