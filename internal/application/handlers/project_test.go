package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/mocks"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

func initWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := NewInitHandler().Handle(dir)
	require.NoError(t, err)
	return dir
}

func TestProjectHandler_CreateAndList(t *testing.T) {
	dir := initWorkspace(t)
	h := NewProjectHandler(dir)
	vdb := &mocks.VectorDB{}

	info, err := h.HandleCreate(t.Context(), "Acme Fraud", "supplier investigation", vdb, 1536)
	require.NoError(t, err)
	assert.Equal(t, "casegraph_acme_fraud", info.Collection)
	assert.DirExists(t, info.Dir)
	assert.Equal(t, 1, vdb.EnsureCollectionCallCount)

	_, err = h.HandleCreate(t.Context(), "Beta", "", nil, 0)
	require.NoError(t, err)

	list, err := h.HandleList()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Acme Fraud", list[0].Name)
	assert.Equal(t, "supplier investigation", list[0].Description)
	assert.Equal(t, "Beta", list[1].Name)
}

func TestProjectHandler_CreateErrors(t *testing.T) {
	t.Run("not initialized", func(t *testing.T) {
		_, err := NewProjectHandler(t.TempDir()).HandleCreate(t.Context(), "x", "", nil, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "casegraph init")
	})

	t.Run("duplicate", func(t *testing.T) {
		h := NewProjectHandler(initWorkspace(t))
		_, err := h.HandleCreate(t.Context(), "x", "", nil, 0)
		require.NoError(t, err)
		_, err = h.HandleCreate(t.Context(), "x", "", nil, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("collection error leaves registry untouched", func(t *testing.T) {
		dir := initWorkspace(t)
		h := NewProjectHandler(dir)
		_, err := h.HandleCreate(t.Context(), "x", "", &mocks.VectorDB{EnsureCollectionErr: errors.New("qdrant down")}, 4)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "qdrant down")

		projects, err := config.LoadProjects(dir)
		require.NoError(t, err)
		assert.False(t, projects.Exists("x"))
	})
}

func TestProjectHandler_Delete(t *testing.T) {
	dir := initWorkspace(t)
	h := NewProjectHandler(dir)
	info, err := h.HandleCreate(t.Context(), "gone", "", nil, 0)
	require.NoError(t, err)

	vdb := &mocks.VectorDB{}
	require.NoError(t, h.HandleDelete(t.Context(), "gone", vdb))
	assert.NoDirExists(t, info.Dir)
	assert.Equal(t, 1, vdb.DeleteCollectionCallCount)

	list, err := h.HandleList()
	require.NoError(t, err)
	assert.Empty(t, list)

	err = h.HandleDelete(t.Context(), "gone", nil)
	require.Error(t, err)
}
