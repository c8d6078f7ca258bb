package ports

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// SyncPropagator sends local changes to connected peers. Calls must not block
// the caller; implementations queue and deliver asynchronously.
type SyncPropagator interface {
	IsPeerConnected() bool
	PropagateEntityChange(e *entities.Entity, op entities.SyncOp)
	PropagateLinkChange(l *entities.Link, op entities.SyncOp)
	PropagateDifferenceGraph(project string, delta *entities.DifferenceGraph)
}

// Disconnected is a SyncPropagator with no peer.
type Disconnected struct{}

func (Disconnected) IsPeerConnected() bool { return false }
func (Disconnected) PropagateEntityChange(*entities.Entity, entities.SyncOp) {}
func (Disconnected) PropagateLinkChange(*entities.Link, entities.SyncOp) {}
func (Disconnected) PropagateDifferenceGraph(string, *entities.DifferenceGraph) {}

// SyncApplier applies messages received from peers.
type SyncApplier interface {
	Apply(ctx context.Context, msg entities.SyncMessage) error
}
