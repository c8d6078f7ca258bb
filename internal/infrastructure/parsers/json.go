package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// JSONParser parses records from JSON. The input is either an array of
// entity objects or an object with "entities" and "links" arrays.
type JSONParser struct{}

type jsonDocument struct {
	Entities []entities.RawFields `json:"entities"`
	Links    []entities.RawFields `json:"links"`
}

// Parse reads JSON from the reader and returns parsed records. Line numbers
// are the 1-indexed position across entities then links.
func (p *JSONParser) Parse(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}

	var doc jsonDocument
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = decoder.Decode(&doc.Entities)
	} else {
		err = decoder.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	records := make([]RawRecord, 0, len(doc.Entities)+len(doc.Links))
	for _, fields := range doc.Entities {
		if fields == nil {
			fields = entities.RawFields{}
		}
		records = append(records, RawRecord{Kind: KindEntity, Fields: fields, LineNum: len(records) + 1})
	}
	for _, fields := range doc.Links {
		if fields == nil {
			fields = entities.RawFields{}
		}
		records = append(records, linkRecord(fields, len(records)+1))
	}
	return records, nil
}
