package services

import (
	"fmt"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// RelatedEntity is an entity reached from another through links.
type RelatedEntity struct {
	UID   string `json:"uid"`
	Depth int    `json:"depth"`
}

// LinkService manages links between entities.
type LinkService struct {
	store *GraphStore
}

// NewLinkService creates a new LinkService.
func NewLinkService(store *GraphStore) *LinkService {
	return &LinkService{store: store}
}

// Create links source to target. Both entities must exist. With bidirectional
// set the reverse link is created too. Creating an existing link appends the
// resolution to it.
func (s *LinkService) Create(source, target, resolution string, bidirectional bool) ([]*entities.Link, error) {
	for _, uid := range []string{source, target} {
		if !s.store.IsNode(uid) {
			return nil, fmt.Errorf("%w: %s", entities.ErrEntityNotFound, uid)
		}
	}

	pairs := [][2]string{{source, target}}
	if bidirectional && source != target {
		pairs = append(pairs, [2]string{target, source})
	}

	out := make([]*entities.Link, 0, len(pairs))
	for _, p := range pairs {
		l := s.store.AddLink(entities.RawFields{
			entities.FieldUID:        []string{p[0], p[1]},
			entities.FieldResolution: resolution,
		}, AddOptions{})
		if l == nil {
			return out, fmt.Errorf("%w: %s -> %s", entities.ErrMissingEndpoint, p[0], p[1])
		}
		out = append(out, l)
	}
	return out, nil
}

// Delete removes a link.
func (s *LinkService) Delete(key entities.LinkKey) error {
	if !s.store.IsLink(key) {
		return fmt.Errorf("%w: %s", entities.ErrLinkNotFound, key)
	}
	s.store.RemoveLink(key, RemoveOptions{})
	return nil
}

// List returns every link touching uid, incoming first.
func (s *LinkService) List(uid string) ([]*entities.Link, error) {
	if !s.store.IsNode(uid) {
		return nil, fmt.Errorf("%w: %s", entities.ErrEntityNotFound, uid)
	}
	return append(s.store.GetIncomingLinks(uid), s.store.GetOutgoingLinks(uid)...), nil
}

// ListWithDepth returns the entities reachable from uid within depth hops,
// following links in either direction, with the hop count at which each was
// first reached.
func (s *LinkService) ListWithDepth(uid string, depth int) ([]RelatedEntity, error) {
	if depth < 1 {
		return []RelatedEntity{}, nil
	}
	g := s.store.Snapshot()
	if !g.HasNode(uid) {
		return nil, fmt.Errorf("%w: %s", entities.ErrEntityNotFound, uid)
	}

	seen := map[string]bool{uid: true}
	frontier := []string{uid}
	result := []RelatedEntity{}
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, n := range frontier {
			neighbours := append(g.Successors(n), g.Predecessors(n)...)
			for _, m := range neighbours {
				if seen[m] {
					continue
				}
				seen[m] = true
				next = append(next, m)
				result = append(result, RelatedEntity{UID: m, Depth: d})
			}
		}
		frontier = next
	}
	return result, nil
}

// FindBetween returns the link from source to target, or nil.
func (s *LinkService) FindBetween(source, target string) *entities.Link {
	return s.store.GetLinkIfExists(entities.LinkKey{Source: source, Target: target})
}

// Count returns the number of links.
func (s *LinkService) Count() int {
	return len(s.store.GetAllLinks())
}
