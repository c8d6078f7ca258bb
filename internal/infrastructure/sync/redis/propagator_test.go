package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

type recordingApplier struct {
	got chan entities.SyncMessage
}

func (r *recordingApplier) Apply(_ context.Context, msg entities.SyncMessage) error {
	r.got <- msg
	return nil
}

func newPropagator(t *testing.T, mr *miniredis.Miniredis, peer string, queue int) *Propagator {
	t.Helper()
	p, err := New(config.SyncConfig{
		RedisURL:  fmt.Sprintf("redis://%s", mr.Addr()),
		Channel:   "test",
		PeerID:    peer,
		QueueSize: queue,
	}, "Case One", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew(t *testing.T) {
	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		p := newPropagator(t, mr, "", 0)
		assert.True(t, p.IsPeerConnected())
		assert.NotEmpty(t, p.PeerID(), "peer id generated")
		assert.Equal(t, "test:case_one", p.Channel())
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := New(config.SyncConfig{RedisURL: "://nope"}, "case", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing redis url")
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := New(config.SyncConfig{RedisURL: "redis://" + addr}, "case", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connecting to redis")
	})
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "casegraph:my_case", ChannelName("", "My Case"))
	assert.Equal(t, "osint:x", ChannelName("osint", "x"))
}

func TestPropagator_DeliversToOtherPeers(t *testing.T) {
	mr := miniredis.RunT(t)
	sender := newPropagator(t, mr, "sender", 8)
	receiver := newPropagator(t, mr, "receiver", 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	applier := &recordingApplier{got: make(chan entities.SyncMessage, 4)}
	go func() { _ = receiver.Subscribe(ctx, applier) }()
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	go func() { _ = sender.Run(ctx) }()

	sender.PropagateEntityChange(person("a", "Alice"), entities.SyncUpsert)

	select {
	case msg := <-applier.got:
		change, ok := msg.(entities.EntityChange)
		require.True(t, ok)
		assert.Equal(t, "a", change.Entity.UID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestPropagator_SkipsOwnMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newPropagator(t, mr, "self", 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	applier := &recordingApplier{got: make(chan entities.SyncMessage, 4)}
	go func() { _ = p.Subscribe(ctx, applier) }()
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	own, err := Encode("self", entities.EntityChange{Entity: person("own", "Me")})
	require.NoError(t, err)
	foreign, err := Encode("other", entities.EntityChange{Entity: person("theirs", "Them")})
	require.NoError(t, err)
	mr.Publish(p.Channel(), string(own))
	mr.Publish(p.Channel(), "garbage")
	mr.Publish(p.Channel(), string(foreign))

	select {
	case msg := <-applier.got:
		assert.Equal(t, "theirs", msg.(entities.EntityChange).Entity.UID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestPropagator_QueueFull(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newPropagator(t, mr, "p", 1)

	p.PropagateLinkChange(&entities.Link{Key: entities.LinkKey{Source: "a", Target: "b"}}, entities.SyncUpsert)
	p.PropagateDifferenceGraph("case", &entities.DifferenceGraph{})

	assert.Equal(t, int64(1), p.Dropped())
}

func TestPropagator_RunStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newPropagator(t, mr, "p", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestPropagator_Flush(t *testing.T) {
	mr := miniredis.RunT(t)
	sender := newPropagator(t, mr, "sender", 8)
	receiver := newPropagator(t, mr, "receiver", 8)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	applier := &recordingApplier{got: make(chan entities.SyncMessage, 4)}
	go func() { _ = receiver.Subscribe(ctx, applier) }()
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	sender.PropagateEntityChange(person("a", "Alice"), entities.SyncUpsert)
	sender.PropagateEntityChange(person("b", "Bob"), entities.SyncRemove)

	n, err := sender.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, want := range []string{"a", "b"} {
		select {
		case msg := <-applier.got:
			assert.Equal(t, want, msg.(entities.EntityChange).Entity.UID)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for change")
		}
	}

	n, err = sender.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "queue drained")
}

func TestPropagator_FlushAfterOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	sender := newPropagator(t, mr, "sender", 8)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mr.Close()
	sender.PropagateEntityChange(person("a", "Alice"), entities.SyncUpsert)

	n, err := sender.Flush(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.False(t, sender.Reachable())
	assert.True(t, sender.IsPeerConnected(), "changes keep queueing during an outage")
	assert.Equal(t, 1, sender.Pending(), "failed change is held for retry")

	require.NoError(t, mr.Restart())
	receiver := newPropagator(t, mr, "receiver", 8)
	applier := &recordingApplier{got: make(chan entities.SyncMessage, 4)}
	go func() { _ = receiver.Subscribe(ctx, applier) }()
	require.Eventually(t, func() bool {
		return len(mr.PubSubChannels("")) > 0
	}, 2*time.Second, 10*time.Millisecond)

	sender.PropagateEntityChange(person("b", "Bob"), entities.SyncUpsert)
	n, err = sender.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, sender.Reachable())
	assert.Zero(t, sender.Pending())

	for _, want := range []string{"a", "b"} {
		select {
		case msg := <-applier.got:
			assert.Equal(t, want, msg.(entities.EntityChange).Entity.UID)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for change")
		}
	}
}

func TestPropagator_RunRetriesAfterOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newPropagator(t, mr, "p", 8)
	p.retryInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	mr.Close()
	p.PropagateEntityChange(person("a", "Alice"), entities.SyncUpsert)
	require.Eventually(t, func() bool {
		return !p.Reachable() && p.Pending() == 1
	}, 5*time.Second, 10*time.Millisecond, "failed change is held for retry")

	require.NoError(t, mr.Restart())
	require.Eventually(t, func() bool {
		return p.Reachable() && p.Pending() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
