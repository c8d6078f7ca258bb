package mocks

import (
	"sync"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// Propagator is a mock implementation of ports.SyncPropagator.
type Propagator struct {
	mu        sync.Mutex
	Connected bool

	EntityChanges []entities.EntityChange
	LinkChanges   []entities.LinkChange
	Deltas        []entities.DifferenceGraphMessage
}

// IsPeerConnected returns Connected.
func (m *Propagator) IsPeerConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Connected
}

// PropagateEntityChange records the change.
func (m *Propagator) PropagateEntityChange(e *entities.Entity, op entities.SyncOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntityChanges = append(m.EntityChanges, entities.EntityChange{Entity: e, Op: op})
}

// PropagateLinkChange records the change.
func (m *Propagator) PropagateLinkChange(l *entities.Link, op entities.SyncOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LinkChanges = append(m.LinkChanges, entities.LinkChange{Link: l, Op: op})
}

// PropagateDifferenceGraph records the delta.
func (m *Propagator) PropagateDifferenceGraph(project string, delta *entities.DifferenceGraph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deltas = append(m.Deltas, entities.DifferenceGraphMessage{Project: project, Delta: delta})
}
