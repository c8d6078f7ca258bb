package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawFields is the loose field map exchanged with collaborators (parsers,
// peers, the CLI) before normalization.
type RawFields map[string]any

// Has reports whether key is present.
func (r RawFields) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the value under key rendered as text. Missing keys and nil
// values yield false.
func (r RawFields) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	return Stringify(v), true
}

// Stringify renders a scalar field value as text.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case time.Time:
		return FormatTime(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// StringList converts a list-shaped field value ([]string, []any or a comma
// separated string) to a string slice.
func StringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(Stringify(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return StringList(strings.Split(val, ","))
	default:
		return []string{Stringify(val)}
	}
}
