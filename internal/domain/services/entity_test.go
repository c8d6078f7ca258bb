package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

func TestEntityService_Create(t *testing.T) {
	f := newTestStore(t)
	svc := NewEntityService(f.store)

	e, err := svc.Create("Person", map[string]string{"Full Name": "Alice", "Alias": "al"}, "met at conference")
	require.NoError(t, err)
	assert.NotEmpty(t, e.UID)
	assert.Equal(t, "met at conference", e.Notes)
	assert.Equal(t, 1, svc.Count())

	_, err = svc.Create("Person", map[string]string{"Alias": "nameless"}, "")
	assert.ErrorIs(t, err, entities.ErrRejected)
}

func TestEntityService_Update(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	svc := NewEntityService(f.store)

	e, err := svc.Update("a", map[string]string{"Alias": "al"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", e.Primary("Full Name"))
	alias, _ := e.Attributes.Get("Alias")
	assert.Equal(t, "al", alias)

	_, err = svc.Update("ghost", map[string]string{"Alias": "x"})
	assert.ErrorIs(t, err, entities.ErrEntityNotFound)
}

func TestEntityService_Lookups(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(person("b", "Bob"), AddOptions{})
	f.store.AddEntity(person("c", "Malice"), AddOptions{})
	svc := NewEntityService(f.store)

	e, err := svc.FindByUID("b")
	require.NoError(t, err)
	assert.Equal(t, "Bob", e.Primary("Full Name"))
	_, err = svc.FindByUID("ghost")
	assert.ErrorIs(t, err, entities.ErrEntityNotFound)

	assert.Equal(t, "a", svc.FindByPrimary("Alice", "Person").UID)
	assert.Nil(t, svc.FindByPrimary("Alice", "Domain"))

	found := svc.Search("ALICE", 0)
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].UID)
	assert.Equal(t, "c", found[1].UID)
}

func TestEntityService_ListPagination(t *testing.T) {
	f := newTestStore(t)
	for _, uid := range []string{"a", "b", "c"} {
		f.store.AddEntity(person(uid, uid), AddOptions{})
	}
	svc := NewEntityService(f.store)

	tests := []struct {
		name          string
		entityType    string
		limit, offset int
		want          []string
	}{
		{name: "all", want: []string{"a", "b", "c"}},
		{name: "limit", limit: 2, want: []string{"a", "b"}},
		{name: "offset", limit: 2, offset: 2, want: []string{"c"}},
		{name: "past end", offset: 5},
		{name: "other type", entityType: "Domain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range svc.List(tt.entityType, tt.limit, tt.offset) {
				got = append(got, e.UID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntityService_Delete(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)
	svc := NewEntityService(f.store)

	require.NoError(t, svc.Delete("a"))
	assert.False(t, f.store.IsNode("a"))
	assert.Empty(t, f.store.GetAllLinks())
	assert.ErrorIs(t, svc.Delete("a"), entities.ErrEntityNotFound)
}
