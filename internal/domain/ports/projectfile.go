package ports

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// ProjectFile reads and writes the whole-graph dump of a project.
type ProjectFile interface {
	// Read returns the stored dump, or an empty dump if none exists yet.
	Read(ctx context.Context) (*entities.GraphDump, error)

	// Write replaces the stored dump.
	Write(ctx context.Context, dump *entities.GraphDump) error
}
