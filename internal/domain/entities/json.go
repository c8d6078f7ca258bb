package entities

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the entity as a flat object whose key order follows the
// record layout: uid, type, attributes in order, then the remaining reserved
// fields. The icon is base64 encoded.
func (e *Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	w := &objectWriter{buf: &buf}
	w.field(FieldUID, e.UID)
	w.field(FieldEntityType, e.Type)
	for _, attr := range e.Attributes {
		w.field(attr.Key, attr.Value)
	}
	w.field(FieldDateCreated, FormatTime(e.DateCreated))
	w.field(FieldDateLastEdited, FormatTime(e.DateLastEdited))
	w.field(FieldNotes, e.Notes)
	if e.Icon != nil {
		w.field(FieldIcon, base64.StdEncoding.EncodeToString(e.Icon))
	}
	if e.IsGroup() {
		children := e.ChildUIDs
		if children == nil {
			children = []string{}
		}
		w.field(FieldChildUIDs, children)
	}
	if w.err != nil {
		return nil, w.err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat entity object, keeping attribute order.
func (e *Entity) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("decoding entity: %w", err)
	}
	out := Entity{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding entity key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decoding entity: unexpected key %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decoding entity field %q: %w", key, err)
		}
		if err := out.setDecoded(key, value); err != nil {
			return err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return fmt.Errorf("decoding entity: %w", err)
	}
	*e = out
	return nil
}

func (e *Entity) setDecoded(key string, value any) error {
	switch key {
	case FieldUID:
		e.UID = Stringify(value)
	case FieldEntityType:
		e.Type = Stringify(value)
	case FieldDateCreated:
		e.DateCreated = TimeField(value)
	case FieldDateLastEdited:
		e.DateLastEdited = TimeField(value)
	case FieldNotes:
		if value != nil {
			e.Notes = Stringify(value)
		}
	case FieldIcon:
		s, ok := value.(string)
		if !ok || s == "" {
			return nil
		}
		icon, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("decoding icon of %s: %w", e.UID, err)
		}
		e.Icon = icon
	case FieldChildUIDs:
		e.ChildUIDs = StringList(value)
	default:
		if value != nil {
			e.Attributes = append(e.Attributes, Attribute{Key: key, Value: Stringify(value)})
		}
	}
	return nil
}

type linkJSON struct {
	UID            [2]string `json:"uid"`
	Resolution     string    `json:"Resolution"`
	Notes          string    `json:"Notes"`
	DateCreated    string    `json:"Date Created,omitempty"`
	DateLastEdited string    `json:"Date Last Edited,omitempty"`
}

// MarshalJSON writes the link with its uid as a [source, target] pair.
func (l *Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkJSON{
		UID:            [2]string{l.Key.Source, l.Key.Target},
		Resolution:     l.Resolution,
		Notes:          l.Notes,
		DateCreated:    FormatTime(l.DateCreated),
		DateLastEdited: FormatTime(l.DateLastEdited),
	})
}

// UnmarshalJSON reads a link written by MarshalJSON.
func (l *Link) UnmarshalJSON(data []byte) error {
	var raw linkJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding link: %w", err)
	}
	*l = Link{
		Key:            LinkKey{Source: raw.UID[0], Target: raw.UID[1]},
		Resolution:     raw.Resolution,
		Notes:          raw.Notes,
		DateCreated:    TimeField(raw.DateCreated),
		DateLastEdited: TimeField(raw.DateLastEdited),
	}
	return nil
}

type objectWriter struct {
	buf   *bytes.Buffer
	count int
	err   error
}

func (w *objectWriter) field(key string, value any) {
	if w.err != nil {
		return
	}
	k, err := json.Marshal(key)
	if err != nil {
		w.err = err
		return
	}
	v, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("encoding field %q: %w", key, err)
		return
	}
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(v)
	w.count++
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
