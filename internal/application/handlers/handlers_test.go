package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/mocks"
	"github.com/ersonp/casegraph/internal/domain/services"
)

// fixture is an in-memory project: a store over the default schemas and a
// mock side-table database.
type fixture struct {
	factory  *services.Factory
	store    *services.GraphStore
	db       *mocks.RelationalDB
	entities *services.EntityService
	links    *services.LinkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := services.NewFactory(entities.DefaultEntityTypes...)
	store := services.NewGraphStore(factory, services.WithProjectName("case"))
	return &fixture{
		factory:  factory,
		store:    store,
		db:       mocks.NewRelationalDB(),
		entities: services.NewEntityService(store),
		links:    services.NewLinkService(store),
	}
}

func (f *fixture) person(t *testing.T, uid, name string) *entities.Entity {
	t.Helper()
	e, err := f.entities.Create("Person", map[string]string{entities.FieldUID: uid, "Full Name": name}, "")
	require.NoError(t, err)
	return e
}
