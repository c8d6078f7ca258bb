// Package graph provides the directed attributed graph behind the store.
// A Graph is not safe for concurrent use; the store serialises access and
// hands out Clones for lock-free reads.
package graph

import (
	"slices"
	"sort"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

type set map[string]struct{}

// Graph holds entities as nodes and links as directed edges, with adjacency
// kept in both directions.
type Graph struct {
	nodes map[string]*entities.Entity
	links map[entities.LinkKey]*entities.Link
	out   map[string]set
	in    map[string]set
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*entities.Entity),
		links: make(map[entities.LinkKey]*entities.Link),
		out:   make(map[string]set),
		in:    make(map[string]set),
	}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// LinkCount returns the number of links.
func (g *Graph) LinkCount() int { return len(g.links) }

// HasNode reports whether uid is a node.
func (g *Graph) HasNode(uid string) bool {
	_, ok := g.nodes[uid]
	return ok
}

// HasLink reports whether key is an edge.
func (g *Graph) HasLink(key entities.LinkKey) bool {
	_, ok := g.links[key]
	return ok
}

// Node returns the stored node. Callers must not mutate it.
func (g *Graph) Node(uid string) *entities.Entity { return g.nodes[uid] }

// Link returns the stored edge. Callers must not mutate it.
func (g *Graph) Link(key entities.LinkKey) *entities.Link { return g.links[key] }

// PutNode adds e or replaces the node with the same UID. Edges are kept.
func (g *Graph) PutNode(e *entities.Entity) {
	g.nodes[e.UID] = e
	if g.out[e.UID] == nil {
		g.out[e.UID] = make(set)
	}
	if g.in[e.UID] == nil {
		g.in[e.UID] = make(set)
	}
}

// RemoveNode deletes the node and every incident edge, returning the removed
// edges. It returns nil when uid is unknown.
func (g *Graph) RemoveNode(uid string) []*entities.Link {
	if !g.HasNode(uid) {
		return nil
	}
	var removed []*entities.Link
	for target := range g.out[uid] {
		removed = append(removed, g.removeEdge(entities.LinkKey{Source: uid, Target: target}))
	}
	for source := range g.in[uid] {
		removed = append(removed, g.removeEdge(entities.LinkKey{Source: source, Target: uid}))
	}
	delete(g.nodes, uid)
	delete(g.out, uid)
	delete(g.in, uid)
	sortLinks(removed)
	return removed
}

// PutLink adds l or replaces the edge with the same key. Both endpoints must
// already be nodes; otherwise nothing changes and false is returned.
func (g *Graph) PutLink(l *entities.Link) bool {
	if !g.HasNode(l.Key.Source) || !g.HasNode(l.Key.Target) {
		return false
	}
	g.links[l.Key] = l
	g.out[l.Key.Source][l.Key.Target] = struct{}{}
	g.in[l.Key.Target][l.Key.Source] = struct{}{}
	return true
}

// RemoveLink deletes the edge, returning it, or nil if absent.
func (g *Graph) RemoveLink(key entities.LinkKey) *entities.Link {
	if !g.HasLink(key) {
		return nil
	}
	return g.removeEdge(key)
}

func (g *Graph) removeEdge(key entities.LinkKey) *entities.Link {
	l := g.links[key]
	delete(g.links, key)
	delete(g.out[key.Source], key.Target)
	delete(g.in[key.Target], key.Source)
	return l
}

// Nodes returns all nodes ordered by UID.
func (g *Graph) Nodes() []*entities.Entity {
	out := make([]*entities.Entity, 0, len(g.nodes))
	for _, e := range g.nodes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// UIDs returns all node UIDs, sorted.
func (g *Graph) UIDs() []string {
	uids := make([]string, 0, len(g.nodes))
	for uid := range g.nodes {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// Links returns all edges ordered by key.
func (g *Graph) Links() []*entities.Link {
	out := make([]*entities.Link, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, l)
	}
	sortLinks(out)
	return out
}

// OutLinks returns edges leaving uid, or nil if uid is not a node.
func (g *Graph) OutLinks(uid string) []*entities.Link {
	if !g.HasNode(uid) {
		return nil
	}
	out := make([]*entities.Link, 0, len(g.out[uid]))
	for target := range g.out[uid] {
		out = append(out, g.links[entities.LinkKey{Source: uid, Target: target}])
	}
	sortLinks(out)
	return out
}

// InLinks returns edges entering uid, or nil if uid is not a node.
func (g *Graph) InLinks(uid string) []*entities.Link {
	if !g.HasNode(uid) {
		return nil
	}
	out := make([]*entities.Link, 0, len(g.in[uid]))
	for source := range g.in[uid] {
		out = append(out, g.links[entities.LinkKey{Source: source, Target: uid}])
	}
	sortLinks(out)
	return out
}

// Successors returns the direct children of uid, sorted.
func (g *Graph) Successors(uid string) []string { return sortedKeys(g.out[uid]) }

// Predecessors returns the direct parents of uid, sorted.
func (g *Graph) Predecessors(uid string) []string { return sortedKeys(g.in[uid]) }

// OutDegree returns the number of edges leaving uid.
func (g *Graph) OutDegree(uid string) int { return len(g.out[uid]) }

// InDegree returns the number of edges entering uid.
func (g *Graph) InDegree(uid string) int { return len(g.in[uid]) }

// Descendants returns every node reachable from uid, excluding uid itself
// unless it lies on a cycle.
func (g *Graph) Descendants(uid string) []string { return sortedKeys(g.reach(uid, g.out)) }

// Ancestors returns every node that can reach uid.
func (g *Graph) Ancestors(uid string) []string { return sortedKeys(g.reach(uid, g.in)) }

// HasPath reports whether a directed path leads from source to target.
func (g *Graph) HasPath(source, target string) bool {
	if !g.HasNode(source) || !g.HasNode(target) {
		return false
	}
	_, ok := g.reach(source, g.out)[target]
	return ok
}

// reach runs a breadth-first walk along adj.
func (g *Graph) reach(start string, adj map[string]set) set {
	seen := make(set)
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range adj[cur] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return seen
}

// Clone returns a deep copy sharing nothing with g.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes: make(map[string]*entities.Entity, len(g.nodes)),
		links: make(map[entities.LinkKey]*entities.Link, len(g.links)),
		out:   make(map[string]set, len(g.out)),
		in:    make(map[string]set, len(g.in)),
	}
	for uid, e := range g.nodes {
		c.nodes[uid] = e.Clone()
	}
	for key, l := range g.links {
		c.links[key] = l.Clone()
	}
	for uid, s := range g.out {
		c.out[uid] = cloneSet(s)
	}
	for uid, s := range g.in {
		c.in[uid] = cloneSet(s)
	}
	return c
}

func cloneSet(s set) set {
	c := make(set, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

func sortedKeys(s set) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortLinks(links []*entities.Link) {
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i].Key, links[j].Key
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})
}
