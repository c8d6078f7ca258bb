// Package observer provides Observer implementations for hosts without a UI.
package observer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/graph"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// LogObserver logs every store notification at debug level.
type LogObserver struct {
	logger *slog.Logger
}

var _ ports.Observer = (*LogObserver)(nil)

// NewLogObserver creates a LogObserver. A nil logger means slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "observer")}
}

func (o *LogObserver) EntityChanged(e *entities.Entity, kind ports.ChangeKind) {
	o.debug("entity changed", "uid", e.UID, "type", e.Type, "change", kind.String())
}

func (o *LogObserver) LinkChanged(l *entities.Link, kind ports.ChangeKind) {
	o.debug("link changed", "source", l.Key.Source, "target", l.Key.Target, "change", kind.String())
}

func (o *LogObserver) GroupMembershipAffected(groupUID string) {
	o.debug("group membership affected", "group", groupUID)
}

func (o *LogObserver) TimelineShouldReset(snapshot *graph.Graph) {
	nodes := 0
	if snapshot != nil {
		nodes = snapshot.NodeCount()
	}
	o.debug("timeline reset", "entities", nodes)
}

func (o *LogObserver) TimelineShouldUpdate(e *entities.Entity, added, redraw bool) {
	o.debug("timeline update", "uid", e.UID, "added", added, "redraw", redraw)
}

func (o *LogObserver) debug(msg string, args ...any) {
	o.logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Multi fans notifications out to several observers in order.
type Multi []ports.Observer

var _ ports.Observer = Multi(nil)

func (m Multi) EntityChanged(e *entities.Entity, kind ports.ChangeKind) {
	for _, o := range m {
		o.EntityChanged(e, kind)
	}
}

func (m Multi) LinkChanged(l *entities.Link, kind ports.ChangeKind) {
	for _, o := range m {
		o.LinkChanged(l, kind)
	}
}

func (m Multi) GroupMembershipAffected(groupUID string) {
	for _, o := range m {
		o.GroupMembershipAffected(groupUID)
	}
}

func (m Multi) TimelineShouldReset(snapshot *graph.Graph) {
	for _, o := range m {
		o.TimelineShouldReset(snapshot)
	}
}

func (m Multi) TimelineShouldUpdate(e *entities.Entity, added, redraw bool) {
	for _, o := range m {
		o.TimelineShouldUpdate(e, added, redraw)
	}
}

// Counter counts entity and link changes. Hosts use it to decide whether a
// project needs saving.
type Counter struct {
	ports.NopObserver
	n atomic.Int64
}

var _ ports.Observer = (*Counter)(nil)

func (c *Counter) EntityChanged(*entities.Entity, ports.ChangeKind) { c.n.Add(1) }

func (c *Counter) LinkChanged(*entities.Link, ports.ChangeKind) { c.n.Add(1) }

// Changes returns the number of changes seen.
func (c *Counter) Changes() int64 { return c.n.Load() }
