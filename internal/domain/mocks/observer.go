package mocks

import (
	"sync"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/graph"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// EntityEvent is a recorded EntityChanged call.
type EntityEvent struct {
	UID  string
	Kind ports.ChangeKind
}

// LinkEvent is a recorded LinkChanged call.
type LinkEvent struct {
	Key  entities.LinkKey
	Kind ports.ChangeKind
}

// Observer records every notification.
type Observer struct {
	mu              sync.Mutex
	Entities        []EntityEvent
	Links           []LinkEvent
	Groups          []string
	TimelineResets  int
	TimelineUpdates int
}

// EntityChanged records the call.
func (m *Observer) EntityChanged(e *entities.Entity, kind ports.ChangeKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entities = append(m.Entities, EntityEvent{UID: e.UID, Kind: kind})
}

// LinkChanged records the call.
func (m *Observer) LinkChanged(l *entities.Link, kind ports.ChangeKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Links = append(m.Links, LinkEvent{Key: l.Key, Kind: kind})
}

// GroupMembershipAffected records the call.
func (m *Observer) GroupMembershipAffected(groupUID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Groups = append(m.Groups, groupUID)
}

// TimelineShouldReset counts the call.
func (m *Observer) TimelineShouldReset(*graph.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimelineResets++
}

// TimelineShouldUpdate counts the call.
func (m *Observer) TimelineShouldUpdate(*entities.Entity, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimelineUpdates++
}
