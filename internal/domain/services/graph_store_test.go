package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/mocks"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type storeFixture struct {
	store      *GraphStore
	factory    *Factory
	observer   *mocks.Observer
	propagator *mocks.Propagator
}

func newTestStore(t *testing.T) *storeFixture {
	t.Helper()
	obs := &mocks.Observer{}
	prop := &mocks.Propagator{Connected: true}
	factory := NewFactory(entities.DefaultEntityTypes...)
	store := NewGraphStore(
		factory,
		WithObserver(obs),
		WithSyncPropagator(prop),
		WithClock(stepClock()),
		WithProjectName("case"),
	)
	return &storeFixture{store: store, factory: factory, observer: obs, propagator: prop}
}

func person(uid, name string) entities.RawFields {
	return entities.RawFields{
		entities.FieldUID:        uid,
		entities.FieldEntityType: "Person",
		"Full Name":              name,
	}
}

func linkRaw(src, dst, resolution string) entities.RawFields {
	return entities.RawFields{
		entities.FieldUID:        []string{src, dst},
		entities.FieldResolution: resolution,
	}
}

func TestGraphStore_AddEntity(t *testing.T) {
	f := newTestStore(t)

	e := f.store.AddEntity(entities.RawFields{entities.FieldEntityType: "Person", "Full Name": "Alice"}, AddOptions{})
	require.NotNil(t, e)
	assert.NotEmpty(t, e.UID)
	assert.Equal(t, "Alice", e.Primary("Full Name"))
	assert.False(t, e.DateCreated.IsZero())
	assert.Equal(t, e.DateCreated, e.DateLastEdited)

	assert.True(t, f.store.IsNode(e.UID))
	require.Len(t, f.observer.Entities, 1)
	assert.Equal(t, ports.ChangeAdded, f.observer.Entities[0].Kind)
	assert.Equal(t, 1, f.observer.TimelineUpdates)
	require.Len(t, f.propagator.EntityChanges, 1)
	assert.Equal(t, entities.SyncUpsert, f.propagator.EntityChanges[0].Op)
}

func TestGraphStore_AddEntity_Rejected(t *testing.T) {
	tests := []struct {
		name string
		raw  entities.RawFields
	}{
		{"unknown type", entities.RawFields{entities.FieldEntityType: "Spaceship", "Name": "x"}},
		{"missing type", entities.RawFields{"Full Name": "x"}},
		{"missing primary value", entities.RawFields{entities.FieldEntityType: "Person", "Alias": "x"}},
		{"new uid without primary value", entities.RawFields{entities.FieldUID: "p1", entities.FieldEntityType: "Person"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestStore(t)
			assert.Nil(t, f.store.AddEntity(tt.raw, AddOptions{}))
			assert.Empty(t, f.store.GetAllEntities())
			assert.Empty(t, f.observer.Entities)
		})
	}
}

func TestGraphStore_UpsertIdempotence(t *testing.T) {
	f := newTestStore(t)

	first := f.store.AddEntity(person("p1", "Alice"), AddOptions{})
	second := f.store.AddEntity(person("p1", "Alice"), AddOptions{})
	require.NotNil(t, first)
	require.NotNil(t, second)

	assert.Equal(t, first.Attributes, second.Attributes)
	assert.Equal(t, first.DateCreated, second.DateCreated)
	assert.False(t, second.DateLastEdited.Before(first.DateLastEdited))
	assert.Len(t, f.store.GetAllEntities(), 1)
	assert.Equal(t, ports.ChangeUpdated, f.observer.Entities[1].Kind)
}

func TestGraphStore_UpsertMergesFields(t *testing.T) {
	f := newTestStore(t)
	raw := person("p1", "Alice")
	raw["Alias"] = "al"
	raw[entities.FieldNotes] = "seen in Lyon"
	f.store.AddEntity(raw, AddOptions{})

	updated := f.store.AddEntity(entities.RawFields{
		entities.FieldUID:   "p1",
		"Nationality":       "FR",
		"Alias":             "ally",
		entities.FieldNotes: "seen in Paris",
	}, AddOptions{})
	require.NotNil(t, updated)

	assert.Equal(t, "Person", updated.Type)
	assert.Equal(t, []string{"Full Name", "Alias", "Nationality"}, updated.Attributes.Keys())
	alias, _ := updated.Attributes.Get("Alias")
	assert.Equal(t, "ally", alias)
	assert.Equal(t, "seen in Lyon\nseen in Paris", updated.Notes)

	overwritten := f.store.AddEntity(entities.RawFields{
		entities.FieldUID:   "p1",
		entities.FieldNotes: "fresh",
	}, AddOptions{Overwrite: true})
	assert.Equal(t, "fresh", overwritten.Notes)
}

func TestGraphStore_EditDateNeverMovesBack(t *testing.T) {
	f := newTestStore(t)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	raw := person("p1", "Alice")
	raw[entities.FieldDateLastEdited] = entities.FormatTime(future)
	created := f.store.AddEntity(raw, AddOptions{FromPeer: true})
	require.NotNil(t, created)
	assert.True(t, future.Equal(created.DateLastEdited))

	again := f.store.AddEntity(person("p1", "Alice B"), AddOptions{})
	assert.True(t, future.Equal(again.DateLastEdited))
}

func TestGraphStore_LinkDedup(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(person("b", "Bob"), AddOptions{})

	calls := []struct {
		resolution string
		overwrite  bool
		want       string
	}{
		{"knows", false, "knows"},
		{"met at conference", false, "knows | met at conference"},
		{"knows", false, "knows | met at conference"},
		{entities.AbsentValue, false, "knows | met at conference"},
		{"colleague", true, "colleague"},
		{"neighbour", false, "colleague | neighbour"},
	}
	for _, c := range calls {
		l := f.store.AddLink(linkRaw("a", "b", c.resolution), AddOptions{Overwrite: c.overwrite})
		require.NotNil(t, l)
		assert.Equal(t, c.want, l.Resolution)
	}

	assert.Len(t, f.store.GetAllLinks(), 1)
	assert.Equal(t, ports.ChangeAdded, f.observer.Links[0].Kind)
	assert.Equal(t, ports.ChangeUpdated, f.observer.Links[1].Kind)
}

func TestGraphStore_LinkIsDirected(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(person("b", "Bob"), AddOptions{})
	f.store.AddLink(linkRaw("a", "b", "knows"), AddOptions{})

	assert.True(t, f.store.IsLink(entities.LinkKey{Source: "a", Target: "b"}))
	assert.False(t, f.store.IsLink(entities.LinkKey{Source: "b", Target: "a"}))
	assert.Nil(t, f.store.GetLinkIfExists(entities.LinkKey{Source: "b", Target: "a"}))
}

func TestGraphStore_AddLink_MissingEndpoint(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})

	assert.Nil(t, f.store.AddLink(linkRaw("a", "gone", "knows"), AddOptions{}))
	assert.Nil(t, f.store.AddLink(entities.RawFields{entities.FieldUID: []string{"a"}}, AddOptions{}))
	assert.Empty(t, f.store.GetAllLinks())
	assert.Empty(t, f.observer.Links)
}

func TestGraphStore_RemoveEntityCascades(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(person("b", "Bob"), AddOptions{})
	f.store.AddEntity(person("c", "Carol"), AddOptions{})
	group := f.store.AddEntity(entities.RawFields{
		entities.FieldEntityType: entities.GroupEntityType,
		"Group Name":             "crew",
		entities.FieldChildUIDs:  []string{"a", "c"},
	}, AddOptions{})
	require.NotNil(t, group)
	f.store.AddLink(linkRaw("a", "b", "knows"), AddOptions{})
	f.store.AddLink(linkRaw("c", "a", "knows"), AddOptions{})

	f.store.RemoveEntity("a", RemoveOptions{})

	assert.False(t, f.store.IsNode("a"))
	assert.Empty(t, f.store.GetIncomingLinks("b"))
	assert.Empty(t, f.store.GetOutgoingLinks("c"))
	assert.Nil(t, f.store.GetOutgoingLinks("a"))

	g := f.store.GetEntity(group.UID)
	require.NotNil(t, g)
	assert.Equal(t, []string{"c"}, g.ChildUIDs)
	assert.Equal(t, []string{group.UID}, f.observer.Groups)

	removedLinks := 0
	for _, ev := range f.observer.Links {
		if ev.Kind == ports.ChangeRemoved {
			removedLinks++
		}
	}
	assert.Equal(t, 2, removedLinks)

	last := f.propagator.EntityChanges[len(f.propagator.EntityChanges)-2]
	assert.Equal(t, entities.SyncRemove, last.Op)
	assert.Equal(t, "a", last.Entity.UID)
}

func TestGraphStore_RemoveUnknownIsNoop(t *testing.T) {
	f := newTestStore(t)
	f.store.RemoveEntity("missing", RemoveOptions{})
	f.store.RemoveLink(entities.LinkKey{Source: "x", Target: "y"}, RemoveOptions{})
	assert.Empty(t, f.observer.Entities)
	assert.Empty(t, f.observer.Links)
}

func TestGraphStore_RemoveLink(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(person("b", "Bob"), AddOptions{})
	f.store.AddLink(linkRaw("a", "b", "knows"), AddOptions{})

	f.store.RemoveLink(entities.LinkKey{Source: "a", Target: "b"}, RemoveOptions{FromPeer: true})

	assert.Empty(t, f.store.GetAllLinks())
	assert.True(t, f.store.IsNode("a"))
	assert.Len(t, f.propagator.LinkChanges, 1, "peer removal is not propagated back")
}

func TestGraphStore_RejectsNestedGroups(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	inner := f.store.AddEntity(entities.RawFields{
		entities.FieldEntityType: entities.GroupEntityType,
		"Group Name":             "inner",
		entities.FieldChildUIDs:  []string{"a"},
	}, AddOptions{})
	require.NotNil(t, inner)

	outer := f.store.AddEntity(entities.RawFields{
		entities.FieldEntityType: entities.GroupEntityType,
		"Group Name":             "outer",
		entities.FieldChildUIDs:  []string{inner.UID},
	}, AddOptions{})
	assert.Nil(t, outer)
}

func TestGraphStore_PrimaryLookups(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(entities.RawFields{entities.FieldEntityType: "Phrase", "Phrase": "Alice"}, AddOptions{})

	assert.True(t, f.store.DoesEntityExist("Alice"))
	assert.False(t, f.store.DoesEntityExist("Mallory"))

	e := f.store.GetEntityOfType("Alice", "Person")
	require.NotNil(t, e)
	assert.Equal(t, "a", e.UID)
	assert.Nil(t, f.store.GetEntityOfType("Alice", "Domain"))
}

func TestGraphStore_FromPeerIsNotPropagated(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{FromPeer: true})
	assert.Empty(t, f.propagator.EntityChanges)

	f.propagator.Connected = false
	f.store.AddEntity(person("b", "Bob"), AddOptions{})
	assert.Empty(t, f.propagator.EntityChanges)
}

func TestGraphStore_ReturnsCopies(t *testing.T) {
	f := newTestStore(t)
	e := f.store.AddEntity(person("a", "Alice"), AddOptions{})
	e.Attributes.Set("Full Name", "Mallory")

	got := f.store.GetEntity("a")
	assert.Equal(t, "Alice", got.Primary("Full Name"))
	assert.Nil(t, f.store.GetEntity("missing"))
}

func TestGraphStore_AddEntitiesBatch(t *testing.T) {
	f := newTestStore(t)
	out := f.store.AddEntities([]entities.RawFields{
		person("a", "Alice"),
		{entities.FieldEntityType: "Nope"},
		person("b", "Bob"),
	}, AddOptions{SkipTimeline: true})

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].UID)
	assert.Equal(t, "b", out[1].UID)
	assert.Equal(t, 0, f.observer.TimelineUpdates)
}

func TestGraphStore_DumpAndLoad(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(person("b", "Bob"), AddOptions{})
	f.store.AddLink(linkRaw("a", "b", "knows"), AddOptions{})

	dump := f.store.Dump()
	require.Len(t, dump.Entities, 2)
	require.Len(t, dump.Links, 1)

	other := newTestStore(t)
	dump.Links = append(dump.Links, &entities.Link{Key: entities.LinkKey{Source: "a", Target: "zz"}})
	err := other.store.Load(dump)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrMissingEndpoint))

	assert.Len(t, other.store.GetAllEntities(), 2)
	assert.Len(t, other.store.GetAllLinks(), 1)
	assert.Equal(t, 1, other.observer.TimelineResets)
}

func TestGraphStore_ConcurrentUpserts(t *testing.T) {
	f := newTestStore(t)
	f.store.AddEntity(person("a", "Alice"), AddOptions{})
	f.store.AddEntity(person("b", "Bob"), AddOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				f.store.AddLink(linkRaw("a", "b", "knows"), AddOptions{})
			} else {
				f.store.AddEntity(person("a", "Alice"), AddOptions{})
			}
		}(i)
	}
	wg.Wait()

	links := f.store.GetAllLinks()
	require.Len(t, links, 1)
	assert.Equal(t, "knows", links[0].Resolution)
}

// End to end: two people, a link, a re-add, then a cascading removal.
func TestGraphStore_Scenario(t *testing.T) {
	f := newTestStore(t)
	a := f.store.AddEntity(entities.RawFields{entities.FieldEntityType: "Person", "Full Name": "Alice"}, AddOptions{})
	b := f.store.AddEntity(entities.RawFields{entities.FieldEntityType: "Person", "Full Name": "Bob"}, AddOptions{})
	require.NotNil(t, a)
	require.NotNil(t, b)

	f.store.AddLink(linkRaw(a.UID, b.UID, "knows"), AddOptions{})
	out := f.store.GetOutgoingLinks(a.UID)
	require.Len(t, out, 1)
	assert.Equal(t, entities.LinkKey{Source: a.UID, Target: b.UID}, out[0].Key)

	l := f.store.AddLink(linkRaw(a.UID, b.UID, "met at conference"), AddOptions{})
	assert.Equal(t, "knows | met at conference", l.Resolution)

	f.store.RemoveEntity(a.UID, RemoveOptions{})
	assert.Empty(t, f.store.GetOutgoingLinks(b.UID))
	assert.Empty(t, f.store.GetIncomingLinks(b.UID))
}
