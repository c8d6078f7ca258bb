package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/mocks"
)

func newSyncFixture(t *testing.T) (*storeFixture, *SyncService, *mocks.RelationalDB) {
	t.Helper()
	f := newTestStore(t)
	seed(t, f)
	db := mocks.NewRelationalDB()
	return f, NewSyncService(f.store, db, nil), db
}

func TestSyncService_EntityChange(t *testing.T) {
	f, svc, _ := newSyncFixture(t)

	err := svc.Apply(context.Background(), entities.EntityChange{
		Entity: foreignPerson("c", "Carol", at(30)),
		Op:     entities.SyncUpsert,
	})

	require.NoError(t, err)
	c := f.store.GetEntity("c")
	require.NotNil(t, c)
	assert.Equal(t, "Carol", c.Primary("Full Name"))
	assert.True(t, at(30).Equal(c.DateLastEdited), "peer edit date is kept")
	assert.Empty(t, f.propagator.EntityChanges, "peer changes are not echoed")
}

func TestSyncService_EntityRemoval(t *testing.T) {
	f, svc, _ := newSyncFixture(t)

	err := svc.Apply(context.Background(), entities.EntityChange{
		Entity: &entities.Entity{UID: "a"},
		Op:     entities.SyncRemove,
	})

	require.NoError(t, err)
	assert.False(t, f.store.IsNode("a"))
	assert.False(t, f.store.IsLink(entities.LinkKey{Source: "a", Target: "b"}))
	assert.Empty(t, f.propagator.EntityChanges)
}

func TestSyncService_LinkChange_Idempotent(t *testing.T) {
	f, svc, _ := newSyncFixture(t)
	change := entities.LinkChange{Link: foreignLink("a", "b", "knows | met", at(30))}

	require.NoError(t, svc.Apply(context.Background(), change))
	require.NoError(t, svc.Apply(context.Background(), change))

	l := f.store.GetLink(entities.LinkKey{Source: "a", Target: "b"})
	assert.Equal(t, "knows | met", l.Resolution)
	assert.Empty(t, f.propagator.LinkChanges)
}

func TestSyncService_LinkChange_Errors(t *testing.T) {
	f, svc, _ := newSyncFixture(t)

	err := svc.Apply(context.Background(), entities.LinkChange{Link: foreignLink("a", "ghost", "x", at(30))})
	assert.ErrorIs(t, err, entities.ErrMissingEndpoint)

	require.NoError(t, svc.Apply(context.Background(), entities.LinkChange{
		Link: foreignLink("a", "b", "", at(30)),
		Op:   entities.SyncRemove,
	}))
	assert.False(t, f.store.IsLink(entities.LinkKey{Source: "a", Target: "b"}))

	assert.ErrorIs(t, svc.Apply(context.Background(), entities.LinkChange{}), entities.ErrRejected)
}

func TestSyncService_Delta(t *testing.T) {
	f, svc, db := newSyncFixture(t)
	delta := &entities.DifferenceGraph{
		Entities: []*entities.Entity{foreignPerson("c", "Carol", at(30))},
		Links:    []*entities.Link{foreignLink("b", "c", "works with", at(30))},
	}

	require.NoError(t, svc.Apply(context.Background(), entities.DifferenceGraphMessage{Project: "other", Delta: delta}))
	assert.False(t, f.store.IsNode("c"), "deltas for other projects are ignored")

	require.NoError(t, svc.Apply(context.Background(), entities.DifferenceGraphMessage{Project: "case", Delta: delta}))
	assert.True(t, f.store.IsNode("c"))
	assert.True(t, f.store.IsLink(entities.LinkKey{Source: "b", Target: "c"}))
	assert.Empty(t, f.propagator.Deltas)

	require.Len(t, db.Audit, 1)
	assert.Equal(t, entities.ActionSyncApplied, db.Audit[0].Action)
	assert.Equal(t, 1, db.Audit[0].Details["entities"])

	require.NoError(t, svc.Apply(context.Background(), entities.DifferenceGraphMessage{Project: "case", Delta: delta}))
	assert.Len(t, db.Audit, 1, "a delta already applied changes nothing")
}

func TestSyncService_EmptyMessage(t *testing.T) {
	_, svc, _ := newSyncFixture(t)
	assert.Error(t, svc.Apply(context.Background(), nil))
}
