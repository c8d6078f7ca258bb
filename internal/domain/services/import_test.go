package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/mocks"
	"github.com/ersonp/casegraph/internal/infrastructure/parsers"
)

func newImportFixture(t *testing.T) (*storeFixture, *ImportService, *mocks.RelationalDB) {
	t.Helper()
	f := newTestStore(t)
	db := mocks.NewRelationalDB()
	return f, NewImportService(f.store, f.factory, db, nil), db
}

func entityRecord(line int, fields entities.RawFields) parsers.RawRecord {
	return parsers.RawRecord{Kind: parsers.KindEntity, Fields: fields, LineNum: line}
}

func linkRecord(line int, src, dst, resolution string) parsers.RawRecord {
	return parsers.RawRecord{Kind: parsers.KindLink, Fields: linkRaw(src, dst, resolution), LineNum: line}
}

func TestImportService_Import_ValidRecords(t *testing.T) {
	f, service, db := newImportFixture(t)

	records := []parsers.RawRecord{
		entityRecord(1, person("a", "Alice")),
		entityRecord(2, person("b", "Bob")),
		linkRecord(3, "a", "b", "knows"),
	}

	result, err := service.Import(context.Background(), "people.json", records, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)
	assert.True(t, f.store.IsLink(entities.LinkKey{Source: "a", Target: "b"}))

	require.Len(t, db.Audit, 1)
	assert.Equal(t, entities.ActionImport, db.Audit[0].Action)
	assert.Equal(t, "people.json", db.Audit[0].Subject)
	assert.Equal(t, "upsert", db.Audit[0].Details["strategy"])
}

func TestImportService_Import_ValidationErrors(t *testing.T) {
	f, service, _ := newImportFixture(t)

	records := []parsers.RawRecord{
		linkRecord(4, "a", "ghost", "x"),
		entityRecord(1, entities.RawFields{entities.FieldEntityType: "Starship", "Name": "x"}),
		entityRecord(2, entities.RawFields{entities.FieldEntityType: "Person"}),
		entityRecord(3, person("a", "Alice")),
		{Kind: parsers.KindLink, Fields: entities.RawFields{entities.FieldUID: []string{"a", ""}}, LineNum: 5},
		{Kind: "node", Fields: entities.RawFields{}, LineNum: 6},
	}

	result, err := service.Import(context.Background(), "bad.json", records, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 5)

	lines := make([]int, len(result.Errors))
	for i, e := range result.Errors {
		lines[i] = e.Line
	}
	assert.Equal(t, []int{1, 2, 4, 5, 6}, lines)
	assert.Equal(t, entities.FieldEntityType, result.Errors[0].Field)
	assert.Equal(t, "Starship", result.Errors[0].Value)
	assert.Equal(t, entities.FieldUID, result.Errors[1].Field)
	assert.Contains(t, result.Errors[2].Message, "ghost")
	assert.Equal(t, "kind", result.Errors[4].Field)
	assert.Len(t, f.store.GetAllEntities(), 1)
}

func TestImportService_Import_LinksMayReferenceBatchEntities(t *testing.T) {
	f, service, _ := newImportFixture(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})

	records := []parsers.RawRecord{
		linkRecord(1, "a", "b", "knows"),
		entityRecord(2, person("b", "Bob")),
	}

	result, err := service.Import(context.Background(), "mixed.csv", records, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Errors)
	assert.True(t, f.store.IsLink(entities.LinkKey{Source: "a", Target: "b"}))
}

func TestImportService_Import_DryRun(t *testing.T) {
	f, service, db := newImportFixture(t)

	records := []parsers.RawRecord{
		entityRecord(1, person("a", "Alice")),
		entityRecord(2, entities.RawFields{entities.FieldEntityType: "Person"}),
	}

	result, err := service.Import(context.Background(), "people.json", records, ImportOptions{DryRun: true})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Len(t, result.Errors, 1)
	assert.False(t, f.store.IsNode("a"))
	assert.Empty(t, db.Audit)
}

func TestImportService_Import_MatchesExistingByPrimaryValue(t *testing.T) {
	f, service, _ := newImportFixture(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})

	records := []parsers.RawRecord{
		entityRecord(1, entities.RawFields{entities.FieldEntityType: "Person", "Full Name": "Alice", "Alias": "Al"}),
	}

	result, err := service.Import(context.Background(), "people.json", records, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, f.store.GetAllEntities(), 1)
	alias, ok := f.store.GetEntity("a").Attributes.Get("Alias")
	require.True(t, ok)
	assert.Equal(t, "Al", alias)
}

func TestImportService_Import_PartialUpdateWithoutType(t *testing.T) {
	f, service, _ := newImportFixture(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})

	records := []parsers.RawRecord{
		entityRecord(1, entities.RawFields{entities.FieldUID: "a", "Nationality": "NL"}),
	}

	result, err := service.Import(context.Background(), "patch.csv", records, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	a := f.store.GetEntity("a")
	assert.Equal(t, "Alice", a.Primary("Full Name"))
	v, _ := a.Attributes.Get("Nationality")
	assert.Equal(t, "NL", v)
}

func TestImportService_Import_Strategies(t *testing.T) {
	withNotes := func(uid, name, notes string) entities.RawFields {
		raw := person(uid, name)
		raw[entities.FieldNotes] = notes
		return raw
	}

	tests := []struct {
		strategy     ConflictStrategy
		wantImported int
		wantSkipped  int
		wantName     string
		wantNotes    string
		wantRes      string
	}{
		{ConflictUpsert, 2, 0, "Alice B.", "first\nsecond", "knows | met"},
		{ConflictOverwrite, 2, 0, "Alice B.", "second", "met"},
		{ConflictSkip, 0, 2, "Alice", "first", "knows"},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			f, service, _ := newImportFixture(t)
			f.store.AddEntity(withNotes("a", "Alice", "first"), AddOptions{})
			f.store.AddEntity(person("b", "Bob"), AddOptions{})
			f.store.AddLink(linkRaw("a", "b", "knows"), AddOptions{})

			records := []parsers.RawRecord{
				entityRecord(1, withNotes("a", "Alice B.", "second")),
				linkRecord(2, "a", "b", "met"),
			}
			result, err := service.Import(context.Background(), "update.json", records, ImportOptions{OnConflict: tt.strategy})

			require.NoError(t, err)
			assert.Equal(t, tt.wantImported, result.Imported)
			assert.Equal(t, tt.wantSkipped, result.Skipped)
			a := f.store.GetEntity("a")
			assert.Equal(t, tt.wantName, a.Primary("Full Name"))
			assert.Equal(t, tt.wantNotes, a.Notes)
			assert.Equal(t, tt.wantRes, f.store.GetLink(entities.LinkKey{Source: "a", Target: "b"}).Resolution)
		})
	}
}

func TestImportService_Import_Merge(t *testing.T) {
	f, service, db := newImportFixture(t)
	seed(t, f)

	older := person("a", "Old Alice")
	older[entities.FieldDateLastEdited] = entities.FormatTime(at(5))
	records := []parsers.RawRecord{
		entityRecord(1, older),
		entityRecord(2, person("c", "Carol")),
		linkRecord(3, "b", "c", "works with"),
	}

	result, err := service.Import(context.Background(), "peer.json", records, ImportOptions{OnConflict: ConflictMerge})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "Alice", f.store.GetEntity("a").Primary("Full Name"))

	c := f.store.GetEntity("c")
	require.NotNil(t, c)
	assert.False(t, c.DateLastEdited.IsZero(), "new undated records are stamped")
	assert.True(t, f.store.IsLink(entities.LinkKey{Source: "b", Target: "c"}))

	require.Len(t, db.Audit, 1)
	assert.Equal(t, entities.ActionMerge, db.Audit[0].Action)
}

func TestImportService_Import_UnknownStrategy(t *testing.T) {
	_, service, _ := newImportFixture(t)

	_, err := service.Import(context.Background(), "x", nil, ImportOptions{OnConflict: "replace"})
	assert.ErrorContains(t, err, "unknown conflict strategy")
}

func TestImportService_Import_EmptyInput(t *testing.T) {
	_, service, db := newImportFixture(t)

	result, err := service.Import(context.Background(), "empty.json", nil, ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Imported)
	assert.Empty(t, db.Audit)
}

func TestImportService_Import_AuditError(t *testing.T) {
	_, service, db := newImportFixture(t)
	db.Err = errors.New("database locked")

	result, err := service.Import(context.Background(), "people.json",
		[]parsers.RawRecord{entityRecord(1, person("a", "Alice"))}, ImportOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging import")
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Imported)
}

func TestImportService_MergeDump(t *testing.T) {
	f, service, db := newImportFixture(t)
	seed(t, f)

	diff, err := service.MergeDump(context.Background(), "other.lsdb", &entities.GraphDump{
		Entities: []*entities.Entity{foreignPerson("a", "Alice 2", at(30)), foreignPerson("z", "Zed", at(1))},
	})

	require.NoError(t, err)
	assert.Len(t, diff.Entities, 2)
	require.Len(t, db.Audit, 1)
	assert.Equal(t, entities.ActionMerge, db.Audit[0].Action)
	assert.Equal(t, 2, db.Audit[0].Details["entities"])
}

func TestImportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      ImportError
		expected string
	}{
		{
			name:     "with line number",
			err:      ImportError{Line: 5, Field: "Entity Type", Message: "unknown entity type"},
			expected: "line 5: unknown entity type",
		},
		{
			name:     "without line number",
			err:      ImportError{Line: 0, Message: "general error"},
			expected: "general error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestParseConflictStrategy(t *testing.T) {
	s, err := ParseConflictStrategy("")
	require.NoError(t, err)
	assert.Equal(t, ConflictUpsert, s)

	s, err = ParseConflictStrategy("merge")
	require.NoError(t, err)
	assert.Equal(t, ConflictMerge, s)

	_, err = ParseConflictStrategy("nope")
	assert.Error(t, err)
}
