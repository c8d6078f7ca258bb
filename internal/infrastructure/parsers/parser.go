// Package parsers reads entity and link records from import files.
package parsers

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// RecordKind tells entity rows from link rows.
type RecordKind string

const (
	KindEntity RecordKind = "entity"
	KindLink   RecordKind = "link"
)

// Link endpoint columns accepted in place of a link uid.
const (
	ColumnSource = "source"
	ColumnTarget = "target"
)

// RawRecord is an entity or link parsed from an external source before
// validation. Fields use the record's wire names; link records always carry
// their endpoints under "uid".
type RawRecord struct {
	Kind    RecordKind
	Fields  entities.RawFields
	LineNum int // Line number in source file (set by parser)
}

// Parser defines the interface for parsing records from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawRecord, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// linkRecord moves source/target columns into the link uid.
func linkRecord(fields entities.RawFields, lineNum int) RawRecord {
	if !fields.Has(entities.FieldUID) {
		src, _ := fields.String(ColumnSource)
		dst, _ := fields.String(ColumnTarget)
		fields[entities.FieldUID] = []string{src, dst}
	}
	delete(fields, ColumnSource)
	delete(fields, ColumnTarget)
	return RawRecord{Kind: KindLink, Fields: fields, LineNum: lineNum}
}
