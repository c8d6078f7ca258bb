package services

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/graph"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// AddOptions controls an entity or link upsert. The zero value is a local
// change that updates the timeline and concatenates notes.
type AddOptions struct {
	FromPeer     bool // change arrived from a sync peer, do not propagate it back
	SkipTimeline bool // suppress the timeline update notification
	Overwrite    bool // replace notes and resolution instead of concatenating
}

// RemoveOptions controls a removal.
type RemoveOptions struct {
	FromPeer     bool
	SkipTimeline bool
}

// StoreOption configures a GraphStore.
type StoreOption func(*GraphStore)

// WithObserver sets the notification target.
func WithObserver(o ports.Observer) StoreOption {
	return func(s *GraphStore) { s.observer = o }
}

// WithSyncPropagator sets the peer propagation target.
func WithSyncPropagator(p ports.SyncPropagator) StoreOption {
	return func(s *GraphStore) { s.propagator = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *GraphStore) { s.logger = l }
}

// WithProjectName sets the project name sent with difference graphs.
func WithProjectName(name string) StoreOption {
	return func(s *GraphStore) { s.project = name }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *GraphStore) { s.now = now }
}

// GraphStore owns the project graph. One mutex guards the graph; every
// exported method takes it, and the unexported *Locked helpers assume it is
// held. Observer and propagator calls happen after the mutex is released.
type GraphStore struct {
	mu      sync.Mutex
	g       *graph.Graph
	factory ports.EntityFactory

	observer   ports.Observer
	propagator ports.SyncPropagator
	logger     *slog.Logger
	project    string
	now        func() time.Time
}

// NewGraphStore creates an empty store.
func NewGraphStore(factory ports.EntityFactory, opts ...StoreOption) *GraphStore {
	s := &GraphStore{
		g:          graph.New(),
		factory:    factory,
		observer:   ports.NopObserver{},
		propagator: ports.Disconnected{},
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProjectName returns the project the store belongs to.
func (s *GraphStore) ProjectName() string { return s.project }

// entityEvent is a change recorded under the lock and reported after it.
type entityEvent struct {
	entity *entities.Entity
	added  bool
}

// AddEntity upserts one entity. An existing UID is updated in place: incoming
// attributes replace matching keys, the creation date is kept, notes are
// concatenated unless opts.Overwrite is set, and the edit date never moves
// backwards. It returns nil if the record is rejected.
func (s *GraphStore) AddEntity(raw entities.RawFields, opts AddOptions) *entities.Entity {
	s.mu.Lock()
	ev, err := s.addEntityLocked(raw, opts)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("entity rejected", "uid", raw[entities.FieldUID], "error", err)
		return nil
	}
	s.afterEntityAdd(ev, opts)
	return ev.entity.Clone()
}

// AddEntities upserts a batch under a single lock acquisition. Rejected
// records are logged and skipped.
func (s *GraphStore) AddEntities(raws []entities.RawFields, opts AddOptions) []*entities.Entity {
	events := make([]entityEvent, 0, len(raws))
	var rejected []error

	s.mu.Lock()
	for _, raw := range raws {
		ev, err := s.addEntityLocked(raw, opts)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		events = append(events, ev)
	}
	s.mu.Unlock()

	for _, err := range rejected {
		s.logger.Error("entity rejected", "error", err)
	}
	out := make([]*entities.Entity, 0, len(events))
	for _, ev := range events {
		s.afterEntityAdd(ev, opts)
		out = append(out, ev.entity.Clone())
	}
	return out
}

func (s *GraphStore) addEntityLocked(raw entities.RawFields, opts AddOptions) (entityEvent, error) {
	entityType, _ := raw.String(entities.FieldEntityType)
	uid, _ := raw.String(entities.FieldUID)
	existing := s.g.Node(uid)
	if entityType == "" && existing != nil {
		entityType = existing.Type
	}

	incoming, err := s.factory.NormalizeEntity(entityType, raw)
	if err != nil {
		return entityEvent{}, err
	}
	if err := s.checkGroupLocked(incoming); err != nil {
		return entityEvent{}, err
	}
	existing = s.g.Node(incoming.UID)

	stamp := s.now()
	if opts.FromPeer && !incoming.DateLastEdited.IsZero() {
		stamp = incoming.DateLastEdited
	}

	if existing == nil {
		if primary, ok := s.factory.PrimaryFieldFor(incoming.Type); ok && incoming.Primary(primary) == "" {
			return entityEvent{}, fmt.Errorf("%w: new %s entity %s has no %q", entities.ErrRejected, incoming.Type, incoming.UID, primary)
		}
		if incoming.DateCreated.IsZero() {
			incoming.DateCreated = stamp
		}
		incoming.DateLastEdited = entities.Latest(stamp, incoming.DateCreated)
		s.g.PutNode(incoming)
		return entityEvent{entity: incoming.Clone(), added: true}, nil
	}

	merged := existing.Clone()
	merged.Type = incoming.Type
	for _, attr := range incoming.Attributes {
		merged.Attributes.Set(attr.Key, attr.Value)
	}
	if raw.Has(entities.FieldNotes) {
		if opts.Overwrite {
			merged.Notes = incoming.Notes
		} else {
			merged.Notes = entities.AppendUnique(merged.Notes, incoming.Notes, entities.NotesSeparator)
		}
	}
	if incoming.Icon != nil {
		merged.Icon = incoming.Icon
	}
	if raw.Has(entities.FieldChildUIDs) {
		merged.ChildUIDs = incoming.ChildUIDs
	}
	if merged.DateCreated.IsZero() {
		merged.DateCreated = incoming.DateCreated
	}
	merged.DateLastEdited = entities.Latest(stamp, existing.DateLastEdited)

	s.g.PutNode(merged)
	return entityEvent{entity: merged.Clone()}, nil
}

// checkGroupLocked rejects a group whose children include a group.
func (s *GraphStore) checkGroupLocked(e *entities.Entity) error {
	if !e.IsGroup() {
		return nil
	}
	for _, child := range e.ChildUIDs {
		if child == e.UID {
			return fmt.Errorf("%w: %s lists itself", entities.ErrNestedGroup, e.UID)
		}
		if n := s.g.Node(child); strings.HasSuffix(child, entities.GroupUIDSuffix) || (n != nil && n.IsGroup()) {
			return fmt.Errorf("%w: %s contains %s", entities.ErrNestedGroup, e.UID, child)
		}
	}
	return nil
}

func (s *GraphStore) afterEntityAdd(ev entityEvent, opts AddOptions) {
	kind := ports.ChangeUpdated
	if ev.added {
		kind = ports.ChangeAdded
	}
	s.observer.EntityChanged(ev.entity, kind)
	if !opts.SkipTimeline {
		s.observer.TimelineShouldUpdate(ev.entity, ev.added, true)
	}
	if !opts.FromPeer && s.propagator.IsPeerConnected() {
		s.propagator.PropagateEntityChange(ev.entity, entities.SyncUpsert)
	}
}

// AddLink upserts a link. Both endpoints must exist; a missing endpoint is
// the tolerated race of a peer deleting an entity while a link to it is being
// created, and yields nil. On an existing link the resolution and notes are
// concatenated (duplicates and placeholders skipped) unless opts.Overwrite
// is set.
func (s *GraphStore) AddLink(raw entities.RawFields, opts AddOptions) *entities.Link {
	incoming, err := s.factory.NormalizeLink(raw)
	if err != nil {
		s.logger.Error("link rejected", "uid", raw[entities.FieldUID], "error", err)
		return nil
	}

	s.mu.Lock()
	l, added, err := s.addLinkLocked(incoming, raw, opts)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("link not added",
			"source", incoming.Key.Source, "target", incoming.Key.Target, "error", err)
		return nil
	}

	kind := ports.ChangeUpdated
	if added {
		kind = ports.ChangeAdded
	}
	s.observer.LinkChanged(l, kind)
	if !opts.FromPeer && s.propagator.IsPeerConnected() {
		s.propagator.PropagateLinkChange(l, entities.SyncUpsert)
	}
	return l.Clone()
}

func (s *GraphStore) addLinkLocked(incoming *entities.Link, raw entities.RawFields, opts AddOptions) (*entities.Link, bool, error) {
	if !s.g.HasNode(incoming.Key.Source) || !s.g.HasNode(incoming.Key.Target) {
		return nil, false, entities.ErrMissingEndpoint
	}

	stamp := s.now()
	if opts.FromPeer && !incoming.DateLastEdited.IsZero() {
		stamp = incoming.DateLastEdited
	}

	existing := s.g.Link(incoming.Key)
	if existing == nil {
		if incoming.DateCreated.IsZero() {
			incoming.DateCreated = stamp
		}
		incoming.DateLastEdited = entities.Latest(stamp, incoming.DateCreated)
		s.g.PutLink(incoming)
		return incoming.Clone(), true, nil
	}

	merged := existing.Clone()
	if opts.Overwrite {
		if raw.Has(entities.FieldResolution) {
			merged.Resolution = incoming.Resolution
		}
		if raw.Has(entities.FieldNotes) {
			merged.Notes = incoming.Notes
		}
	} else {
		merged.Resolution = entities.AppendUnique(merged.Resolution, incoming.Resolution, entities.ResolutionSeparator)
		merged.Notes = entities.AppendUnique(merged.Notes, incoming.Notes, entities.NotesSeparator)
	}
	merged.DateLastEdited = entities.Latest(stamp, existing.DateLastEdited)
	s.g.PutLink(merged)
	return merged.Clone(), false, nil
}

// GetEntity returns a copy of the entity, or nil with a warning.
func (s *GraphStore) GetEntity(uid string) *entities.Entity {
	s.mu.Lock()
	e := s.g.Node(uid).Clone()
	s.mu.Unlock()
	if e == nil {
		s.logger.Warn("entity not found", "uid", uid)
	}
	return e
}

// GetLink returns a copy of the link, or nil with a warning.
func (s *GraphStore) GetLink(key entities.LinkKey) *entities.Link {
	l := s.GetLinkIfExists(key)
	if l == nil {
		s.logger.Warn("link not found", "source", key.Source, "target", key.Target)
	}
	return l
}

// GetLinkIfExists returns a copy of the link, or nil without logging.
func (s *GraphStore) GetLinkIfExists(key entities.LinkKey) *entities.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Link(key).Clone()
}

// GetAllEntities returns copies of every entity ordered by UID.
func (s *GraphStore) GetAllEntities() []*entities.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEntities(s.g.Nodes())
}

// GetAllLinks returns copies of every link ordered by key.
func (s *GraphStore) GetAllLinks() []*entities.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLinks(s.g.Links())
}

// GetIncomingLinks returns links ending at uid, or nil if uid is unknown.
func (s *GraphStore) GetIncomingLinks(uid string) []*entities.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLinks(s.g.InLinks(uid))
}

// GetOutgoingLinks returns links starting at uid, or nil if uid is unknown.
func (s *GraphStore) GetOutgoingLinks(uid string) []*entities.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLinks(s.g.OutLinks(uid))
}

// RemoveEntity deletes the entity, its links, and its membership in any
// group. Unknown UIDs are ignored.
func (s *GraphStore) RemoveEntity(uid string, opts RemoveOptions) {
	s.mu.Lock()
	removed, links, groups := s.removeEntityLocked(uid)
	s.mu.Unlock()

	if removed == nil {
		return
	}
	s.observer.EntityChanged(removed, ports.ChangeRemoved)
	for _, l := range links {
		s.observer.LinkChanged(l, ports.ChangeRemoved)
	}
	for _, g := range groups {
		s.observer.GroupMembershipAffected(g.UID)
		s.observer.EntityChanged(g, ports.ChangeUpdated)
	}
	if !opts.SkipTimeline {
		s.observer.TimelineShouldUpdate(removed, false, true)
	}
	if !opts.FromPeer && s.propagator.IsPeerConnected() {
		s.propagator.PropagateEntityChange(removed, entities.SyncRemove)
		for _, g := range groups {
			s.propagator.PropagateEntityChange(g, entities.SyncUpsert)
		}
	}
}

func (s *GraphStore) removeEntityLocked(uid string) (*entities.Entity, []*entities.Link, []*entities.Entity) {
	e := s.g.Node(uid)
	if e == nil {
		return nil, nil, nil
	}
	links := cloneLinks(s.g.RemoveNode(uid))

	var groups []*entities.Entity
	stamp := s.now()
	for _, n := range s.g.Nodes() {
		if !n.IsGroup() || !slices.Contains(n.ChildUIDs, uid) {
			continue
		}
		updated := n.Clone()
		updated.ChildUIDs = slices.DeleteFunc(updated.ChildUIDs, func(c string) bool { return c == uid })
		updated.DateLastEdited = entities.Latest(stamp, n.DateLastEdited)
		s.g.PutNode(updated)
		groups = append(groups, updated.Clone())
	}
	return e.Clone(), links, groups
}

// RemoveLink deletes the link if present.
func (s *GraphStore) RemoveLink(key entities.LinkKey, opts RemoveOptions) {
	s.mu.Lock()
	removed := s.g.RemoveLink(key).Clone()
	s.mu.Unlock()

	if removed == nil {
		return
	}
	s.observer.LinkChanged(removed, ports.ChangeRemoved)
	if !opts.FromPeer && s.propagator.IsPeerConnected() {
		s.propagator.PropagateLinkChange(removed, entities.SyncRemove)
	}
}

// DoesEntityExist reports whether any entity's primary value equals value.
func (s *GraphStore) DoesEntityExist(primaryValue string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByPrimaryLocked(primaryValue, "") != nil
}

// GetEntityOfType returns the entity of entityType whose primary value equals
// primaryValue, or nil.
func (s *GraphStore) GetEntityOfType(primaryValue, entityType string) *entities.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByPrimaryLocked(primaryValue, entityType).Clone()
}

func (s *GraphStore) findByPrimaryLocked(value, entityType string) *entities.Entity {
	for _, e := range s.g.Nodes() {
		if entityType != "" && e.Type != entityType {
			continue
		}
		field, _ := s.factory.PrimaryFieldFor(e.Type)
		if e.Primary(field) == value {
			return e
		}
	}
	return nil
}

// PrimaryValue returns the value of e's schema-declared primary field.
func (s *GraphStore) PrimaryValue(e *entities.Entity) string {
	field, _ := s.factory.PrimaryFieldFor(e.Type)
	return e.Primary(field)
}

// IsNode reports whether uid names an entity.
func (s *GraphStore) IsNode(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.HasNode(uid)
}

// IsLink reports whether key names a link.
func (s *GraphStore) IsLink(key entities.LinkKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.HasLink(key)
}

// Snapshot returns a deep copy of the graph for lock-free reading.
func (s *GraphStore) Snapshot() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.Clone()
}

// Dump deconstructs the graph into plain records. The lock is held only for
// the copy; writing the dump anywhere is the caller's business.
func (s *GraphStore) Dump() *entities.GraphDump {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &entities.GraphDump{
		Entities: cloneEntities(s.g.Nodes()),
		Links:    cloneLinks(s.g.Links()),
	}
}

// Load replaces the whole graph with dump. Links whose endpoints are missing
// from the dump are dropped and reported in the returned error.
func (s *GraphStore) Load(dump *entities.GraphDump) error {
	g := graph.New()
	var errs []error
	for _, e := range dump.Entities {
		g.PutNode(e.Clone())
	}
	for _, l := range dump.Links {
		if !g.PutLink(l.Clone()) {
			errs = append(errs, fmt.Errorf("link %s: %w", l.Key, entities.ErrMissingEndpoint))
		}
	}

	s.mu.Lock()
	s.g = g
	snapshot := g.Clone()
	s.mu.Unlock()

	s.observer.TimelineShouldReset(snapshot)
	return errors.Join(errs...)
}

func cloneEntities(in []*entities.Entity) []*entities.Entity {
	if in == nil {
		return nil
	}
	out := make([]*entities.Entity, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func cloneLinks(in []*entities.Link) []*entities.Link {
	if in == nil {
		return nil
	}
	out := make([]*entities.Link, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}
