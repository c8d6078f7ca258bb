// Package redis carries graph changes between peers over Redis pub/sub.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/ports"
	"github.com/ersonp/casegraph/internal/infrastructure/config"
)

const (
	defaultQueueSize = 256
	connectTimeout   = 5 * time.Second
	publishTimeout   = 5 * time.Second
	retryInterval    = time.Second
)

// errUnencodable marks a message that can never be sent; it is dropped
// rather than retried.
var errUnencodable = errors.New("unencodable sync message")

// Propagator implements ports.SyncPropagator. Changes are queued by the
// store and published by Run, so the store never waits on the network.
// While Redis is unreachable changes keep queueing up to the queue size and
// the message that failed is retried first once it is back.
type Propagator struct {
	client        *goredis.Client
	channel       string
	peerID        string
	queue         chan entities.SyncMessage
	logger        *slog.Logger
	retryInterval time.Duration

	mu    sync.Mutex
	retry entities.SyncMessage // failed publish waiting to be resent

	closed    atomic.Bool
	reachable atomic.Bool
	dropped   atomic.Int64
}

var _ ports.SyncPropagator = (*Propagator)(nil)

// New connects to Redis and returns a propagator bound to the project's
// channel.
func New(cfg config.SyncConfig, project string, logger *slog.Logger) (*Propagator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PeerID == "" {
		cfg.PeerID = uuid.NewString()
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = connectTimeout

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	p := &Propagator{
		client:        client,
		channel:       ChannelName(cfg.Channel, project),
		peerID:        cfg.PeerID,
		queue:         make(chan entities.SyncMessage, cfg.QueueSize),
		logger:        logger.With("component", "sync", "peer", cfg.PeerID),
		retryInterval: retryInterval,
	}
	p.reachable.Store(true)
	return p, nil
}

// ChannelName returns the pub/sub channel of a project.
func ChannelName(prefix, project string) string {
	if prefix == "" {
		prefix = "casegraph"
	}
	return prefix + ":" + config.SanitizeProjectName(project)
}

// PeerID returns the identifier stamped on outgoing messages.
func (p *Propagator) PeerID() string {
	return p.peerID
}

// Channel returns the pub/sub channel name.
func (p *Propagator) Channel() string {
	return p.channel
}

// Dropped returns how many messages were discarded: queue full or unencodable.
func (p *Propagator) Dropped() int64 {
	return p.dropped.Load()
}

// Pending returns how many changes are waiting to be published.
func (p *Propagator) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.queue)
	if p.retry != nil {
		n++
	}
	return n
}

// IsPeerConnected reports whether the propagator is open. It stays true
// through Redis outages so changes made meanwhile are queued, not lost.
func (p *Propagator) IsPeerConnected() bool {
	return !p.closed.Load()
}

// Reachable reports whether the last exchange with Redis succeeded.
func (p *Propagator) Reachable() bool {
	return p.reachable.Load()
}

// PropagateEntityChange queues an entity change.
func (p *Propagator) PropagateEntityChange(e *entities.Entity, op entities.SyncOp) {
	p.enqueue(entities.EntityChange{Entity: e.Clone(), Op: op})
}

// PropagateLinkChange queues a link change.
func (p *Propagator) PropagateLinkChange(l *entities.Link, op entities.SyncOp) {
	p.enqueue(entities.LinkChange{Link: l.Clone(), Op: op})
}

// PropagateDifferenceGraph queues a merge delta.
func (p *Propagator) PropagateDifferenceGraph(project string, delta *entities.DifferenceGraph) {
	p.enqueue(entities.DifferenceGraphMessage{Project: project, Delta: delta})
}

func (p *Propagator) enqueue(msg entities.SyncMessage) {
	select {
	case p.queue <- msg:
	default:
		p.dropped.Add(1)
		p.logger.Warn("sync queue full, dropping change", "type", fmt.Sprintf("%T", msg))
	}
}

// Run publishes queued changes until ctx is cancelled. A failed publish is
// retried every retryInterval until Redis accepts it.
func (p *Propagator) Run(ctx context.Context) error {
	for {
		msg, ok := p.next(ctx, true)
		if !ok {
			return nil
		}
		if err := p.publish(ctx, msg); err != nil {
			if p.discard(err) {
				continue
			}
			p.hold(msg)
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.retryInterval):
			}
		}
	}
}

// Flush publishes the changes queued so far and returns how many were sent.
// Hosts that exit right after a change call it instead of running Run. On
// failure the unsent message stays first in line for the next Flush or Run.
func (p *Propagator) Flush(ctx context.Context) (int, error) {
	sent := 0
	for {
		msg, ok := p.next(ctx, false)
		if !ok {
			return sent, nil
		}
		if err := p.publish(ctx, msg); err != nil {
			if p.discard(err) {
				continue
			}
			p.hold(msg)
			return sent, err
		}
		sent++
	}
}

// next returns the held retry if any, otherwise a queued message. With wait
// set it blocks until a message arrives or ctx is done.
func (p *Propagator) next(ctx context.Context, wait bool) (entities.SyncMessage, bool) {
	p.mu.Lock()
	msg := p.retry
	p.retry = nil
	p.mu.Unlock()
	if msg != nil {
		return msg, true
	}

	if !wait {
		select {
		case msg := <-p.queue:
			return msg, true
		default:
			return nil, false
		}
	}
	select {
	case <-ctx.Done():
		return nil, false
	case msg := <-p.queue:
		return msg, true
	}
}

// discard drops a message that failed for a reason other than Redis.
func (p *Propagator) discard(err error) bool {
	if !errors.Is(err, errUnencodable) {
		return false
	}
	p.dropped.Add(1)
	p.logger.Error("dropping sync message", "error", err)
	return true
}

func (p *Propagator) hold(msg entities.SyncMessage) {
	p.mu.Lock()
	p.retry = msg
	p.mu.Unlock()
}

func (p *Propagator) publish(ctx context.Context, msg entities.SyncMessage) error {
	data, err := Encode(p.peerID, msg)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnencodable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		if p.reachable.Swap(false) {
			p.logger.Error("redis unreachable, holding changes", "error", err)
		}
		return fmt.Errorf("publishing to %s: %w", p.channel, err)
	}
	if !p.reachable.Swap(true) {
		p.logger.Info("redis reachable again", "pending", p.Pending())
	}
	return nil
}

// Subscribe feeds messages from other peers to applier until ctx is
// cancelled. Messages this propagator sent are skipped. Decode and apply
// failures are logged and do not stop the subscription.
func (p *Propagator) Subscribe(ctx context.Context, applier ports.SyncApplier) error {
	pubsub := p.client.Subscribe(ctx, p.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", p.channel, err)
	}
	p.logger.Info("subscribed", "channel", p.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			p.handle(ctx, applier, m.Payload)
		}
	}
}

func (p *Propagator) handle(ctx context.Context, applier ports.SyncApplier, payload string) {
	peer, msg, err := Decode([]byte(payload))
	if err != nil {
		p.logger.Warn("dropping malformed sync message", "error", err)
		return
	}
	if peer == p.peerID {
		return
	}
	if err := applier.Apply(ctx, msg); err != nil {
		p.logger.Warn("applying peer change", "from", peer, "error", err)
	}
}

// Close closes the Redis connection.
func (p *Propagator) Close() error {
	p.closed.Store(true)
	return p.client.Close()
}
