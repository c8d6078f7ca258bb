package entities

import "errors"

var (
	// ErrRejected is returned when the factory refuses a record.
	ErrRejected = errors.New("record rejected")
	// ErrUnknownEntityType is returned for a type with no schema.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrNestedGroup is returned when a group would contain another group.
	ErrNestedGroup = errors.New("groups cannot contain groups")
	// ErrEntityNotFound is returned when a UID names no entity.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrMissingEndpoint is returned when a link endpoint is not in the graph.
	ErrMissingEndpoint = errors.New("link endpoint not found")
	// ErrLinkNotFound is returned when a key names no link.
	ErrLinkNotFound = errors.New("link not found")
)
