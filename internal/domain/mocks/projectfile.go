package mocks

import (
	"context"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// ProjectFile is an in-memory ports.ProjectFile.
type ProjectFile struct {
	Dump     *entities.GraphDump
	ReadErr  error
	WriteErr error

	WriteCallCount int
}

// Read returns the stored dump.
func (m *ProjectFile) Read(_ context.Context) (*entities.GraphDump, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if m.Dump == nil {
		return &entities.GraphDump{}, nil
	}
	return m.Dump, nil
}

// Write stores the dump.
func (m *ProjectFile) Write(_ context.Context, dump *entities.GraphDump) error {
	m.WriteCallCount++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Dump = dump
	return nil
}
