package services

import (
	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/graph"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// MergeOptions controls MergeDatabases.
type MergeOptions struct {
	// FromPeer marks a merge triggered by a peer message. Peer merges are not
	// propagated back.
	FromPeer bool
}

// MergeDatabases reconciles the local graph with a foreign node and link set
// by last-write-wins on the edit date.
//
// A foreign record is taken when it is absent locally or when its edit date
// is strictly later than the local one; a record without an edit date is
// never newer. Taken records replace local ones whole, unlike the additive
// upsert of AddEntity and AddLink. Links whose endpoints exist neither
// locally nor in the taken nodes are skipped. The taken records are returned
// as the difference graph; only that delta is propagated to peers.
func (s *GraphStore) MergeDatabases(nodes []*entities.Entity, links []*entities.Link, opts MergeOptions) *entities.DifferenceGraph {
	s.mu.Lock()
	diff, added := s.differenceLocked(nodes, links)
	var snapshot *graph.Graph
	if !diff.Empty() {
		s.composeLocked(diff)
		snapshot = s.g.Clone()
	}
	s.mu.Unlock()

	if diff.Empty() {
		s.logger.Debug("merge produced no changes", "nodes", len(nodes), "links", len(links))
		return diff
	}

	for _, e := range diff.Entities {
		kind := ports.ChangeUpdated
		if added[e.UID] {
			kind = ports.ChangeAdded
		}
		s.observer.EntityChanged(e, kind)
	}
	for _, l := range diff.Links {
		s.observer.LinkChanged(l, ports.ChangeUpdated)
	}
	s.observer.TimelineShouldReset(snapshot)

	s.logger.Info("merged foreign graph",
		"entities", len(diff.Entities), "links", len(diff.Links), "from_peer", opts.FromPeer)

	if !opts.FromPeer && s.propagator.IsPeerConnected() {
		s.propagator.PropagateDifferenceGraph(s.project, diff)
	}
	return diff
}

// differenceLocked selects the foreign records newer than, or absent from,
// the local graph. A UID or link key repeated in the batch is taken once,
// from its newest copy; on a tie the later copy wins. The returned records
// are copies.
func (s *GraphStore) differenceLocked(nodes []*entities.Entity, links []*entities.Link) (*entities.DifferenceGraph, map[string]bool) {
	diff := &entities.DifferenceGraph{}
	added := make(map[string]bool)
	taken := make(map[string]bool)
	entityAt := make(map[string]int)
	linkAt := make(map[entities.LinkKey]int)

	for _, n := range nodes {
		if n == nil || n.UID == "" {
			continue
		}
		local := s.g.Node(n.UID)
		if local != nil && !n.DateLastEdited.After(local.DateLastEdited) {
			continue
		}
		if n.IsGroup() && s.nestedGroupLocked(n, nodes) {
			s.logger.Error("skipping nested group in merge", "uid", n.UID)
			continue
		}
		if i, ok := entityAt[n.UID]; ok {
			if diff.Entities[i].DateLastEdited.After(n.DateLastEdited) {
				continue
			}
			diff.Entities[i] = n.Clone()
		} else {
			entityAt[n.UID] = len(diff.Entities)
			diff.Entities = append(diff.Entities, n.Clone())
		}
		taken[n.UID] = true
		if local == nil {
			added[n.UID] = true
		}
	}

	for _, l := range links {
		if l == nil {
			continue
		}
		if !s.endpointAvailableLocked(l.Key.Source, taken) || !s.endpointAvailableLocked(l.Key.Target, taken) {
			s.logger.Warn("skipping link with unknown endpoint",
				"source", l.Key.Source, "target", l.Key.Target)
			continue
		}
		local := s.g.Link(l.Key)
		if local != nil && !l.DateLastEdited.After(local.DateLastEdited) {
			continue
		}
		if i, ok := linkAt[l.Key]; ok {
			if diff.Links[i].DateLastEdited.After(l.DateLastEdited) {
				continue
			}
			diff.Links[i] = l.Clone()
			continue
		}
		linkAt[l.Key] = len(diff.Links)
		diff.Links = append(diff.Links, l.Clone())
	}
	return diff, added
}

func (s *GraphStore) endpointAvailableLocked(uid string, taken map[string]bool) bool {
	return taken[uid] || s.g.HasNode(uid)
}

// nestedGroupLocked reports whether group n lists a group child, looking at
// both the local graph and the foreign batch.
func (s *GraphStore) nestedGroupLocked(n *entities.Entity, batch []*entities.Entity) bool {
	foreign := make(map[string]*entities.Entity, len(batch))
	for _, e := range batch {
		if e != nil {
			foreign[e.UID] = e
		}
	}
	for _, child := range n.ChildUIDs {
		if child == n.UID {
			return true
		}
		if e := s.g.Node(child); e != nil && e.IsGroup() {
			return true
		}
		if e := foreign[child]; e != nil && e.IsGroup() {
			return true
		}
	}
	return false
}

// composeLocked writes the difference graph onto the local graph.
func (s *GraphStore) composeLocked(diff *entities.DifferenceGraph) {
	for _, e := range diff.Entities {
		s.g.PutNode(e.Clone())
	}
	for _, l := range diff.Links {
		s.g.PutLink(l.Clone())
	}
}
