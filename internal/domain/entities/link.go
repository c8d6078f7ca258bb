package entities

import (
	"fmt"
	"strings"
	"time"
)

// LinkKey identifies a directed link. At most one link exists per ordered pair.
type LinkKey struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// String renders the key the way the dump format stores edge keys:
// ('source', 'target').
func (k LinkKey) String() string {
	return "(" + quoteKeyPart(k.Source) + ", " + quoteKeyPart(k.Target) + ")"
}

// quoteKeyPart quotes s the way a tuple repr does: single quotes unless s
// holds a single quote and no double quote, with backslashes, the active
// quote and control whitespace escaped.
func quoteKeyPart(s string) string {
	quote := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = '"'
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// ParseLinkKey parses a key written by LinkKey.String.
func ParseLinkKey(s string) (LinkKey, error) {
	rest := strings.TrimSpace(s)
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return LinkKey{}, fmt.Errorf("link key %q: missing parentheses", s)
	}
	rest = strings.TrimSpace(rest[1 : len(rest)-1])

	source, rest, err := readQuoted(rest)
	if err != nil {
		return LinkKey{}, fmt.Errorf("link key %q: %w", s, err)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ",") {
		return LinkKey{}, fmt.Errorf("link key %q: missing separator", s)
	}
	target, rest, err := readQuoted(strings.TrimSpace(rest[1:]))
	if err != nil {
		return LinkKey{}, fmt.Errorf("link key %q: %w", s, err)
	}
	if strings.TrimSpace(rest) != "" {
		return LinkKey{}, fmt.Errorf("link key %q: trailing data", s)
	}
	return LinkKey{Source: source, Target: target}, nil
}

// readQuoted consumes one quoted string from the start of s.
func readQuoted(s string) (string, string, error) {
	if s == "" || (s[0] != '\'' && s[0] != '"') {
		return "", "", fmt.Errorf("expected quoted value")
	}
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(unescapeKeyByte(s[i]))
		case c == quote:
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", fmt.Errorf("unterminated quoted value")
}

func unescapeKeyByte(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	}
	return c
}

// Link is a directed edge between two entities.
type Link struct {
	Key            LinkKey
	Resolution     string
	Notes          string
	DateCreated    time.Time
	DateLastEdited time.Time
}

// Clone returns a copy.
func (l *Link) Clone() *Link {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// Value returns a link field as text.
func (l *Link) Value(field string) (string, bool) {
	switch field {
	case FieldUID:
		return l.Key.String(), true
	case FieldResolution:
		return l.Resolution, true
	case FieldNotes:
		return l.Notes, true
	case FieldDateCreated:
		return FormatTime(l.DateCreated), !l.DateCreated.IsZero()
	case FieldDateLastEdited:
		return FormatTime(l.DateLastEdited), !l.DateLastEdited.IsZero()
	}
	return "", false
}

// Raw converts the link back to loose collaborator fields.
func (l *Link) Raw() RawFields {
	raw := RawFields{
		FieldUID:        []string{l.Key.Source, l.Key.Target},
		FieldResolution: l.Resolution,
		FieldNotes:      l.Notes,
	}
	if !l.DateCreated.IsZero() {
		raw[FieldDateCreated] = FormatTime(l.DateCreated)
	}
	if !l.DateLastEdited.IsZero() {
		raw[FieldDateLastEdited] = FormatTime(l.DateLastEdited)
	}
	return raw
}

// LinkKeyField reads a link identity from a raw uid value. Accepted shapes are
// a two element list, a LinkKey, or the dump string form.
func LinkKeyField(v any) (LinkKey, error) {
	switch val := v.(type) {
	case LinkKey:
		return val, nil
	case *LinkKey:
		if val == nil {
			return LinkKey{}, fmt.Errorf("nil link key")
		}
		return *val, nil
	case string:
		return ParseLinkKey(val)
	case []string, []any:
		parts := StringList(val)
		if len(parts) != 2 {
			return LinkKey{}, fmt.Errorf("link uid must have 2 parts, got %d", len(parts))
		}
		return LinkKey{Source: parts[0], Target: parts[1]}, nil
	case nil:
		return LinkKey{}, fmt.Errorf("missing link uid")
	}
	return LinkKey{}, fmt.Errorf("unsupported link uid type %T", v)
}
