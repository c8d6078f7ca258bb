package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

func at(minute int) time.Time {
	return time.Date(2024, 6, 1, 12, minute, 0, 0, time.UTC)
}

func foreignPerson(uid, name string, edited time.Time) *entities.Entity {
	return &entities.Entity{
		UID:            uid,
		Type:           "Person",
		Attributes:     entities.Attributes{{Key: "Full Name", Value: name}},
		DateCreated:    at(0),
		DateLastEdited: edited,
	}
}

func foreignLink(src, dst, resolution string, edited time.Time) *entities.Link {
	return &entities.Link{
		Key:            entities.LinkKey{Source: src, Target: dst},
		Resolution:     resolution,
		DateCreated:    at(0),
		DateLastEdited: edited,
	}
}

// seed loads a local graph with fixed timestamps.
func seed(t *testing.T, f *storeFixture) {
	t.Helper()
	require.NoError(t, f.store.Load(&entities.GraphDump{
		Entities: []*entities.Entity{
			foreignPerson("a", "Alice", at(10)),
			foreignPerson("b", "Bob", at(10)),
		},
		Links: []*entities.Link{foreignLink("a", "b", "knows", at(10))},
	}))
}

func TestMergeDatabases_LastWriteWins(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)

	diff := f.store.MergeDatabases(
		[]*entities.Entity{
			foreignPerson("a", "Alice Newer", at(20)),
			foreignPerson("b", "Bob Older", at(5)),
			foreignPerson("c", "Carol", at(1)),
		},
		[]*entities.Link{
			foreignLink("a", "b", "peer label", at(20)),
			foreignLink("b", "c", "works with", at(1)),
		},
		MergeOptions{},
	)

	require.Len(t, diff.Entities, 2)
	assert.Equal(t, "a", diff.Entities[0].UID)
	assert.Equal(t, "c", diff.Entities[1].UID)
	require.Len(t, diff.Links, 2)

	a := f.store.GetEntity("a")
	assert.Equal(t, "Alice Newer", a.Primary("Full Name"))
	assert.True(t, at(20).Equal(a.DateLastEdited))

	b := f.store.GetEntity("b")
	assert.Equal(t, "Bob", b.Primary("Full Name"))

	l := f.store.GetLink(entities.LinkKey{Source: "a", Target: "b"})
	assert.Equal(t, "peer label", l.Resolution, "merge replaces whole records")
	assert.True(t, f.store.IsLink(entities.LinkKey{Source: "b", Target: "c"}))
}

func TestMergeDatabases_WholeRecordReplacement(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)
	f.store.AddEntity(entities.RawFields{entities.FieldUID: "a", "Alias": "al"}, AddOptions{})

	foreign := foreignPerson("a", "Alice", at(59))
	foreign.DateLastEdited = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	f.store.MergeDatabases([]*entities.Entity{foreign}, nil, MergeOptions{})

	a := f.store.GetEntity("a")
	_, hasAlias := a.Attributes.Get("Alias")
	assert.False(t, hasAlias)
	assert.True(t, f.store.IsLink(entities.LinkKey{Source: "a", Target: "b"}), "links survive node replacement")
}

func TestMergeDatabases_MissingTimestampIsNotNewer(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)

	undated := foreignPerson("a", "Undated", time.Time{})
	fresh := foreignPerson("d", "Dave", time.Time{})
	diff := f.store.MergeDatabases([]*entities.Entity{undated, fresh}, nil, MergeOptions{})

	require.Len(t, diff.Entities, 1)
	assert.Equal(t, "d", diff.Entities[0].UID)
	assert.Equal(t, "Alice", f.store.GetEntity("a").Primary("Full Name"))
}

func TestMergeDatabases_Idempotent(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)
	nodes := []*entities.Entity{foreignPerson("a", "Alice 2", at(30)), foreignPerson("e", "Eve", at(30))}
	links := []*entities.Link{foreignLink("e", "a", "watches", at(30))}

	first := f.store.MergeDatabases(nodes, links, MergeOptions{})
	afterFirst := f.store.Dump()
	second := f.store.MergeDatabases(nodes, links, MergeOptions{})

	assert.False(t, first.Empty())
	assert.True(t, second.Empty())
	assert.Equal(t, afterFirst, f.store.Dump())
}

func TestMergeDatabases_Monotonic(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)
	local := f.store.Dump()

	foreign := []*entities.Entity{foreignPerson("a", "A2", at(5)), foreignPerson("b", "B2", at(50))}
	f.store.MergeDatabases(foreign, nil, MergeOptions{})

	for i, uid := range []string{"a", "b"} {
		got := f.store.GetEntity(uid)
		want := local.Entities[i]
		if foreign[i].DateLastEdited.After(want.DateLastEdited) {
			want = foreign[i]
		}
		assert.True(t, want.DateLastEdited.Equal(got.DateLastEdited), uid)
		assert.Equal(t, want.Attributes, got.Attributes, uid)
	}
}

func TestMergeDatabases_SkipsUnresolvableLinks(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)

	diff := f.store.MergeDatabases(nil, []*entities.Link{foreignLink("a", "ghost", "x", at(30))}, MergeOptions{})
	assert.True(t, diff.Empty())
}

func TestMergeDatabases_Propagation(t *testing.T) {
	t.Run("local merge sends only the delta", func(t *testing.T) {
		f := newTestStore(t)
		seed(t, f)
		f.store.MergeDatabases([]*entities.Entity{
			foreignPerson("a", "Alice", at(1)),
			foreignPerson("z", "Zed", at(1)),
		}, nil, MergeOptions{})

		require.Len(t, f.propagator.Deltas, 1)
		assert.Equal(t, "case", f.propagator.Deltas[0].Project)
		require.Len(t, f.propagator.Deltas[0].Delta.Entities, 1)
		assert.Equal(t, "z", f.propagator.Deltas[0].Delta.Entities[0].UID)
		assert.Equal(t, 2, f.observer.TimelineResets)
	})

	t.Run("peer merge is not sent back", func(t *testing.T) {
		f := newTestStore(t)
		f.store.MergeDatabases([]*entities.Entity{foreignPerson("z", "Zed", at(1))}, nil, MergeOptions{FromPeer: true})
		assert.Empty(t, f.propagator.Deltas)
	})

	t.Run("empty delta is not sent", func(t *testing.T) {
		f := newTestStore(t)
		seed(t, f)
		f.store.MergeDatabases([]*entities.Entity{foreignPerson("a", "Alice", at(1))}, nil, MergeOptions{})
		assert.Empty(t, f.propagator.Deltas)
		assert.Equal(t, 1, f.observer.TimelineResets)
	})
}

func TestMergeDatabases_SkipsNestedGroups(t *testing.T) {
	f := newTestStore(t)
	inner := &entities.Entity{UID: "g1@", Type: entities.GroupEntityType, ChildUIDs: []string{"a"}, DateLastEdited: at(1)}
	outer := &entities.Entity{UID: "g2@", Type: entities.GroupEntityType, ChildUIDs: []string{"g1@"}, DateLastEdited: at(1)}

	diff := f.store.MergeDatabases([]*entities.Entity{inner, outer}, nil, MergeOptions{FromPeer: true})
	require.Len(t, diff.Entities, 1)
	assert.Equal(t, "g1@", diff.Entities[0].UID)
}

func TestMergeDatabases_RepeatedRecordsTakenOnce(t *testing.T) {
	f := newTestStore(t)
	seed(t, f)

	diff := f.store.MergeDatabases(
		[]*entities.Entity{
			foreignPerson("z", "Zed v2", at(20)),
			foreignPerson("z", "Zed v1", at(15)),
			foreignPerson("a", "Alice v1", at(11)),
			foreignPerson("a", "Alice v2", at(11)),
		},
		[]*entities.Link{
			foreignLink("a", "z", "first", at(12)),
			foreignLink("a", "z", "second", at(14)),
		},
		MergeOptions{},
	)

	require.Len(t, diff.Entities, 2)
	assert.Equal(t, "Zed v2", diff.Entities[0].Primary("Full Name"), "newest copy wins")
	assert.Equal(t, "Alice v2", diff.Entities[1].Primary("Full Name"), "later copy wins a tie")
	require.Len(t, diff.Links, 1)
	assert.Equal(t, "second", diff.Links[0].Resolution)

	assert.Equal(t, "Zed v2", f.store.GetEntity("z").Primary("Full Name"))
	zed := 0
	for _, ev := range f.observer.Entities {
		if ev.UID == "z" {
			zed++
		}
	}
	assert.Equal(t, 1, zed, "one notification per entity")

	require.Len(t, f.propagator.Deltas, 1)
	assert.Len(t, f.propagator.Deltas[0].Delta.Entities, 2)
	assert.Len(t, f.propagator.Deltas[0].Delta.Links, 1)
}
