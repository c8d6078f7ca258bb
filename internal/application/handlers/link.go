package handlers

import (
	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/services"
)

// LinkHandler handles link operations.
type LinkHandler struct {
	service *services.LinkService
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(service *services.LinkService) *LinkHandler {
	return &LinkHandler{service: service}
}

// ListOptions configures link listing behavior.
type ListOptions struct {
	Depth int // Traversal depth for related entities (default 1)
}

// LinkListResult contains the result of listing links.
type LinkListResult struct {
	Links   []*entities.Link          `json:"links"`
	Related []services.RelatedEntity `json:"related,omitempty"`
}

// HandleCreate links source to target.
func (h *LinkHandler) HandleCreate(source, target, resolution string, bidirectional bool) ([]*entities.Link, error) {
	return h.service.Create(source, target, resolution, bidirectional)
}

// HandleDelete removes the link from source to target.
func (h *LinkHandler) HandleDelete(source, target string) error {
	return h.service.Delete(entities.LinkKey{Source: source, Target: target})
}

// HandleList returns the links touching uid. With a depth above one the
// entities reachable within that many hops are returned as well.
func (h *LinkHandler) HandleList(uid string, opts ListOptions) (*LinkListResult, error) {
	links, err := h.service.List(uid)
	if err != nil {
		return nil, err
	}

	result := &LinkListResult{Links: links}
	if opts.Depth > 1 {
		related, err := h.service.ListWithDepth(uid, opts.Depth)
		if err != nil {
			return nil, err
		}
		result.Related = related
	}
	return result, nil
}
