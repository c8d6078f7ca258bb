package handlers

import (
	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/services"
)

// EntityHandler handles entity operations at the application layer.
type EntityHandler struct {
	entityService *services.EntityService
	linkService   *services.LinkService
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(entityService *services.EntityService, linkService *services.LinkService) *EntityHandler {
	return &EntityHandler{
		entityService: entityService,
		linkService:   linkService,
	}
}

// EntityListResult contains the result of listing entities.
type EntityListResult struct {
	Entities []*entities.Entity `json:"entities"`
	Total    int                `json:"total"`
}

// EntityDetail is an entity with the links touching it.
type EntityDetail struct {
	Entity   *entities.Entity `json:"entity"`
	Incoming []*entities.Link `json:"incoming"`
	Outgoing []*entities.Link `json:"outgoing"`
}

// HandleCreate adds an entity of entityType with the given attributes.
func (h *EntityHandler) HandleCreate(entityType string, fields map[string]string, notes string) (*entities.Entity, error) {
	return h.entityService.Create(entityType, fields, notes)
}

// HandleUpdate upserts attributes onto an existing entity.
func (h *EntityHandler) HandleUpdate(uid string, fields map[string]string) (*entities.Entity, error) {
	return h.entityService.Update(uid, fields)
}

// HandleShow returns an entity with its incoming and outgoing links.
func (h *EntityHandler) HandleShow(uid string) (*EntityDetail, error) {
	e, err := h.entityService.FindByUID(uid)
	if err != nil {
		return nil, err
	}

	links, err := h.linkService.List(uid)
	if err != nil {
		return nil, err
	}

	// A self-link is listed twice, once per direction.
	detail := &EntityDetail{Entity: e}
	incoming := make(map[entities.LinkKey]bool)
	for _, l := range links {
		if l.Key.Target == uid && !incoming[l.Key] {
			incoming[l.Key] = true
			detail.Incoming = append(detail.Incoming, l)
		} else {
			detail.Outgoing = append(detail.Outgoing, l)
		}
	}
	return detail, nil
}

// HandleList returns entities, optionally of one type, with pagination.
func (h *EntityHandler) HandleList(entityType string, limit, offset int) *EntityListResult {
	list := h.entityService.List(entityType, limit, offset)
	total := h.entityService.Count()
	if entityType != "" {
		total = len(h.entityService.List(entityType, 0, 0))
	}
	return &EntityListResult{
		Entities: list,
		Total:    total,
	}
}

// HandleSearch searches entities by primary value.
func (h *EntityHandler) HandleSearch(query string, limit int) *EntityListResult {
	list := h.entityService.Search(query, limit)
	return &EntityListResult{
		Entities: list,
		Total:    len(list),
	}
}

// HandleDelete removes an entity and its links.
func (h *EntityHandler) HandleDelete(uid string) error {
	return h.entityService.Delete(uid)
}

// HandleCount returns the number of entities in the project.
func (h *EntityHandler) HandleCount() int {
	return h.entityService.Count()
}
