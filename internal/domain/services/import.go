package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/ports"
	"github.com/ersonp/casegraph/internal/infrastructure/parsers"
)

// ConflictStrategy defines how imported records meet existing ones.
type ConflictStrategy string

const (
	// ConflictUpsert adds fields and concatenates notes and resolutions.
	ConflictUpsert ConflictStrategy = "upsert"
	// ConflictOverwrite upserts but replaces notes and resolutions.
	ConflictOverwrite ConflictStrategy = "overwrite"
	// ConflictSkip leaves records that already exist untouched.
	ConflictSkip ConflictStrategy = "skip"
	// ConflictMerge applies last-write-wins on the edit date, replacing
	// whole records.
	ConflictMerge ConflictStrategy = "merge"
)

// ParseConflictStrategy validates a strategy name. Empty means upsert.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(s) {
	case "":
		return ConflictUpsert, nil
	case ConflictUpsert, ConflictOverwrite, ConflictSkip, ConflictMerge:
		return ConflictStrategy(s), nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q (valid: upsert, overwrite, skip, merge)", s)
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun     bool             // Validate without saving
	OnConflict ConflictStrategy // How to handle existing records
}

// ImportError represents an error for a specific record during import.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []ImportError
}

// ImportService imports entity and link records into the store.
type ImportService struct {
	store   *GraphStore
	factory ports.EntityFactory
	audit   ports.AuditLog
	logger  *slog.Logger
	now     func() time.Time
}

// NewImportService creates a new import service.
func NewImportService(store *GraphStore, factory ports.EntityFactory, audit ports.AuditLog, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		store:   store,
		factory: factory,
		audit:   audit,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// validRecord is a record that passed validation, with its canonical form.
type validRecord struct {
	line   int
	raw    entities.RawFields
	entity *entities.Entity
	link   *entities.Link
}

// Import validates records and writes the valid ones. Invalid records are
// reported in the result and never abort the import. source names the
// import in the audit log.
func (s *ImportService) Import(ctx context.Context, source string, records []parsers.RawRecord, opts ImportOptions) (*ImportResult, error) {
	strategy, err := ParseConflictStrategy(string(opts.OnConflict))
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	ents, links, errs := s.validate(records)
	result.Errors = errs

	if len(ents) == 0 && len(links) == 0 {
		return result, nil
	}

	if opts.DryRun {
		result.Imported = len(ents) + len(links)
		return result, nil
	}

	switch strategy {
	case ConflictMerge:
		s.merge(ents, links, result)
	default:
		s.upsert(ents, links, strategy, result)
	}

	action := entities.ActionImport
	if strategy == ConflictMerge {
		action = entities.ActionMerge
	}
	details := map[string]any{
		"strategy": string(strategy),
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   len(result.Errors),
	}
	if err := s.audit.LogAction(ctx, action, source, details); err != nil {
		return result, fmt.Errorf("logging import: %w", err)
	}

	s.logger.Info("import finished", "source", source, "strategy", strategy,
		"imported", result.Imported, "skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}

// validate normalizes every record. Entities without a uid are matched to an
// existing entity of the same type and primary value, or given a fresh uid,
// so links later in the same file can be checked against them.
func (s *ImportService) validate(records []parsers.RawRecord) ([]validRecord, []validRecord, []ImportError) {
	var ents, links []validRecord
	var errs []ImportError
	batch := make(map[string]bool)

	for i, rec := range records {
		line := rec.LineNum
		if line == 0 {
			line = i + 1
		}
		if rec.Kind != parsers.KindEntity {
			continue
		}

		entityType := ""
		if uid, ok := rec.Fields.String(entities.FieldUID); ok && !rec.Fields.Has(entities.FieldEntityType) && s.store.IsNode(uid) {
			if existing := s.store.GetEntity(uid); existing != nil {
				entityType = existing.Type
			}
		}
		e, err := s.factory.NormalizeEntity(entityType, rec.Fields)
		if err != nil {
			errs = append(errs, entityImportError(line, rec.Fields, err))
			continue
		}
		raw := cloneRaw(rec.Fields)
		if !raw.Has(entities.FieldUID) {
			if existing := s.store.GetEntityOfType(s.store.PrimaryValue(e), e.Type); existing != nil {
				e.UID = existing.UID
			}
			raw[entities.FieldUID] = e.UID
		}
		batch[e.UID] = true
		ents = append(ents, validRecord{line: line, raw: raw, entity: e})
	}

	for i, rec := range records {
		line := rec.LineNum
		if line == 0 {
			line = i + 1
		}
		switch rec.Kind {
		case parsers.KindEntity:
			continue
		case parsers.KindLink:
		default:
			errs = append(errs, ImportError{Line: line, Field: "kind", Value: string(rec.Kind), Message: fmt.Sprintf("unknown record kind %q", rec.Kind)})
			continue
		}

		l, err := s.factory.NormalizeLink(rec.Fields)
		if err != nil {
			errs = append(errs, ImportError{Line: line, Field: entities.FieldUID, Message: err.Error()})
			continue
		}
		for _, end := range []string{l.Key.Source, l.Key.Target} {
			if !batch[end] && !s.store.IsNode(end) {
				err = fmt.Errorf("%w: %s", entities.ErrMissingEndpoint, end)
				break
			}
		}
		if err != nil {
			errs = append(errs, ImportError{Line: line, Field: entities.FieldUID, Value: l.Key.String(), Message: err.Error()})
			continue
		}
		links = append(links, validRecord{line: line, raw: rec.Fields, link: l})
	}

	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Line < errs[j].Line })
	return ents, links, errs
}

func entityImportError(line int, raw entities.RawFields, err error) ImportError {
	ie := ImportError{Line: line, Message: err.Error()}
	switch {
	case errors.Is(err, entities.ErrUnknownEntityType):
		ie.Field = entities.FieldEntityType
		ie.Value, _ = raw.String(entities.FieldEntityType)
	case errors.Is(err, entities.ErrRejected):
		ie.Field = entities.FieldUID
	}
	return ie
}

func (s *ImportService) upsert(ents, links []validRecord, strategy ConflictStrategy, result *ImportResult) {
	opts := AddOptions{Overwrite: strategy == ConflictOverwrite}

	raws := make([]entities.RawFields, 0, len(ents))
	for _, rec := range ents {
		if strategy == ConflictSkip && s.store.IsNode(rec.entity.UID) {
			result.Skipped++
			continue
		}
		raws = append(raws, rec.raw)
	}
	added := s.store.AddEntities(raws, opts)
	result.Imported += len(added)
	result.Skipped += len(raws) - len(added)

	for _, rec := range links {
		if strategy == ConflictSkip && s.store.IsLink(rec.link.Key) {
			result.Skipped++
			continue
		}
		if s.store.AddLink(rec.raw, opts) == nil {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{
				Line: rec.line, Field: entities.FieldUID, Value: rec.link.Key.String(), Message: "link could not be added",
			})
			continue
		}
		result.Imported++
	}
}

// merge composes the records by last-write-wins. Records new to the store
// without dates are stamped now; existing ones keep theirs, so an undated
// record never replaces a local one.
func (s *ImportService) merge(ents, links []validRecord, result *ImportResult) {
	now := s.now()
	nodes := make([]*entities.Entity, 0, len(ents))
	for _, rec := range ents {
		e := rec.entity
		if !s.store.IsNode(e.UID) {
			if e.DateCreated.IsZero() {
				e.DateCreated = now
			}
			if e.DateLastEdited.IsZero() {
				e.DateLastEdited = entities.Latest(now, e.DateCreated)
			}
		}
		nodes = append(nodes, e)
	}
	edges := make([]*entities.Link, 0, len(links))
	for _, rec := range links {
		l := rec.link
		if !s.store.IsLink(l.Key) {
			if l.DateCreated.IsZero() {
				l.DateCreated = now
			}
			if l.DateLastEdited.IsZero() {
				l.DateLastEdited = entities.Latest(now, l.DateCreated)
			}
		}
		edges = append(edges, l)
	}

	diff := s.store.MergeDatabases(nodes, edges, MergeOptions{})
	result.Imported = len(diff.Entities) + len(diff.Links)
	result.Skipped = len(nodes) + len(edges) - result.Imported
}

// MergeDump merges a whole graph dump, such as another project's file, by
// last-write-wins and returns the difference graph.
func (s *ImportService) MergeDump(ctx context.Context, source string, dump *entities.GraphDump) (*entities.DifferenceGraph, error) {
	diff := s.store.MergeDatabases(dump.Entities, dump.Links, MergeOptions{})
	details := map[string]any{
		"entities": len(diff.Entities),
		"links":    len(diff.Links),
	}
	if err := s.audit.LogAction(ctx, entities.ActionMerge, source, details); err != nil {
		return diff, fmt.Errorf("logging merge: %w", err)
	}
	return diff, nil
}

func cloneRaw(raw entities.RawFields) entities.RawFields {
	out := make(entities.RawFields, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	return out
}
