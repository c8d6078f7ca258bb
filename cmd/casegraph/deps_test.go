package main

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/application/handlers"
	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
	syncredis "github.com/ersonp/casegraph/internal/infrastructure/sync/redis"
)

// newWorkspace initializes a workspace with one project in a temp dir and
// makes it the working directory.
func newWorkspace(t *testing.T, project string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := handlers.NewInitHandler().Handle(dir)
	require.NoError(t, err)
	_, err = handlers.NewProjectHandler(dir).HandleCreate(context.Background(), project, "", nil, 0)
	require.NoError(t, err)

	prev := globalProject
	globalProject = project
	t.Cleanup(func() { globalProject = prev })
	return dir
}

func addAlice(t *testing.T) string {
	t.Helper()
	var uid string
	err := withEntityHandler(context.Background(), func(h *handlers.EntityHandler, _ primaryFunc) error {
		e, err := h.HandleCreate("Person", map[string]string{"Full Name": "Alice"}, "")
		if err != nil {
			return err
		}
		uid = e.UID
		return nil
	})
	require.NoError(t, err)
	return uid
}

func TestWithProject_SavesChanges(t *testing.T) {
	dir := newWorkspace(t, "case")
	graphPath := config.GraphPathForProject(dir, "case")

	uid := addAlice(t)
	_, err := os.Stat(graphPath)
	require.NoError(t, err, "graph written after a change")

	err = withEntityHandler(context.Background(), func(h *handlers.EntityHandler, primary primaryFunc) error {
		detail, err := h.HandleShow(uid)
		require.NoError(t, err)
		assert.Equal(t, "Alice", primary(detail.Entity))
		return nil
	})
	require.NoError(t, err)
}

func TestWithProject_ReadOnlyDoesNotSave(t *testing.T) {
	dir := newWorkspace(t, "case")
	graphPath := config.GraphPathForProject(dir, "case")

	err := withEntityHandler(context.Background(), func(h *handlers.EntityHandler, _ primaryFunc) error {
		assert.Zero(t, h.HandleCount())
		return nil
	})
	require.NoError(t, err)

	_, err = os.Stat(graphPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWithProject_SavesChangesBeforeFailure(t *testing.T) {
	newWorkspace(t, "case")
	boom := errors.New("boom")

	err := withEntityHandler(context.Background(), func(h *handlers.EntityHandler, _ primaryFunc) error {
		_, err := h.HandleCreate("Person", map[string]string{"Full Name": "Alice"}, "")
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = withEntityHandler(context.Background(), func(h *handlers.EntityHandler, _ primaryFunc) error {
		assert.Equal(t, 1, h.HandleCount())
		return nil
	})
	require.NoError(t, err)
}

func TestWithProject_Errors(t *testing.T) {
	newWorkspace(t, "case")

	t.Run("project required", func(t *testing.T) {
		globalProject = ""
		defer func() { globalProject = "case" }()

		err := withInternalDeps(context.Background(), func(*internalDeps) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--project")
	})

	t.Run("unknown project", func(t *testing.T) {
		globalProject = "nope"
		defer func() { globalProject = "case" }()

		err := withInternalDeps(context.Background(), func(*internalDeps) error { return nil })
		require.Error(t, err)
	})
}

func TestWithProject_PublishesWhenSyncEnabled(t *testing.T) {
	dir := newWorkspace(t, "case")
	mr := miniredis.RunT(t)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	cfg.Sync.Enabled = true
	cfg.Sync.RedisURL = "redis://" + mr.Addr()
	require.NoError(t, config.Write(dir, cfg))

	receiver, err := syncredis.New(config.SyncConfig{RedisURL: cfg.Sync.RedisURL, Channel: cfg.Sync.Channel}, "case", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = receiver.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan entities.SyncMessage, 4)
	go func() { _ = receiver.Subscribe(ctx, applierFunc(func(msg entities.SyncMessage) { got <- msg })) }()
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	uid := addAlice(t)

	select {
	case msg := <-got:
		change, ok := msg.(entities.EntityChange)
		require.True(t, ok)
		assert.Equal(t, uid, change.Entity.UID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for published change")
	}
}

type applierFunc func(entities.SyncMessage)

func (f applierFunc) Apply(_ context.Context, msg entities.SyncMessage) error {
	f(msg)
	return nil
}
