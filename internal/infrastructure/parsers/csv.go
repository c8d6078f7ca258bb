package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// ColumnKind optionally marks each CSV row as "entity" or "link".
const ColumnKind = "kind"

// CSVParser parses records from CSV. The header names the fields. Without a
// kind column, a file whose header has source and target columns holds
// links; any other file holds entities. Empty cells are omitted.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed records.
func (p *CSVParser) Parse(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, header)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for i, col := range header {
		if col == "" {
			return nil, fmt.Errorf("empty column name at position %d", i+1)
		}
		if slices.Contains(header[:i], col) {
			return nil, fmt.Errorf("duplicate column: %s", col)
		}
	}
	return header, nil
}

// readRecords reads all data rows and converts them to RawRecords.
func (p *CSVParser) readRecords(reader *csv.Reader, header []string) ([]RawRecord, error) {
	defaultKind := KindEntity
	if slices.Contains(header, ColumnSource) && slices.Contains(header, ColumnTarget) {
		defaultKind = KindLink
	}

	var records []RawRecord
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		record, err := p.parseRow(row, header, defaultKind, lineNum)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// parseRow converts a CSV row to a RawRecord.
func (p *CSVParser) parseRow(row, header []string, defaultKind RecordKind, lineNum int) (RawRecord, error) {
	if len(row) > len(header) {
		return RawRecord{}, fmt.Errorf("line %d: %d cells for %d columns", lineNum, len(row), len(header))
	}

	kind := defaultKind
	fields := entities.RawFields{}
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if header[i] == ColumnKind {
			kind = RecordKind(strings.ToLower(cell))
			continue
		}
		fields[header[i]] = cell
	}

	switch kind {
	case KindEntity:
		return RawRecord{Kind: KindEntity, Fields: fields, LineNum: lineNum}, nil
	case KindLink:
		return linkRecord(fields, lineNum), nil
	}
	return RawRecord{}, fmt.Errorf("line %d: invalid kind %q", lineNum, kind)
}
