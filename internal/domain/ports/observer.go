package ports

import (
	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/graph"
)

// ChangeKind says what happened to a record.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeUpdated
	ChangeRemoved
)

// String returns a lowercase name for logs.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	}
	return "unknown"
}

// Observer receives store notifications. Calls are made after the store lock
// is released, so implementations may call back into the store.
type Observer interface {
	EntityChanged(e *entities.Entity, kind ChangeKind)
	LinkChanged(l *entities.Link, kind ChangeKind)
	GroupMembershipAffected(groupUID string)
	TimelineShouldReset(snapshot *graph.Graph)
	TimelineShouldUpdate(e *entities.Entity, added, redraw bool)
}

// NopObserver ignores every notification. Embed it to implement only part of
// Observer.
type NopObserver struct{}

func (NopObserver) EntityChanged(*entities.Entity, ChangeKind) {}
func (NopObserver) LinkChanged(*entities.Link, ChangeKind) {}
func (NopObserver) GroupMembershipAffected(string) {}
func (NopObserver) TimelineShouldReset(*graph.Graph) {}
func (NopObserver) TimelineShouldUpdate(*entities.Entity, bool, bool) {}
