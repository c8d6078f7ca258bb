package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// SyncService applies changes received from peers. Every change enters the
// store with FromPeer set, so nothing is echoed back.
type SyncService struct {
	store  *GraphStore
	audit  ports.AuditLog
	logger *slog.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(store *GraphStore, audit ports.AuditLog, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{store: store, audit: audit, logger: logger}
}

// Apply implements ports.SyncApplier.
func (s *SyncService) Apply(ctx context.Context, msg entities.SyncMessage) error {
	switch m := msg.(type) {
	case entities.EntityChange:
		return s.applyEntity(m)
	case entities.LinkChange:
		return s.applyLink(m)
	case entities.DifferenceGraphMessage:
		return s.applyDelta(ctx, m)
	case nil:
		return errors.New("empty sync message")
	default:
		return fmt.Errorf("unsupported sync message %T", msg)
	}
}

func (s *SyncService) applyEntity(m entities.EntityChange) error {
	if m.Entity == nil {
		return fmt.Errorf("%w: entity change without entity", entities.ErrRejected)
	}
	if m.Op == entities.SyncRemove {
		s.store.RemoveEntity(m.Entity.UID, RemoveOptions{FromPeer: true})
		return nil
	}
	if s.store.AddEntity(m.Entity.Raw(), AddOptions{FromPeer: true}) == nil {
		return fmt.Errorf("%w: peer entity %s", entities.ErrRejected, m.Entity.UID)
	}
	return nil
}

// applyLink upserts additively. Peers send the merged link, and segment-wise
// concatenation makes re-applying it a no-op.
func (s *SyncService) applyLink(m entities.LinkChange) error {
	if m.Link == nil {
		return fmt.Errorf("%w: link change without link", entities.ErrRejected)
	}
	if m.Op == entities.SyncRemove {
		s.store.RemoveLink(m.Link.Key, RemoveOptions{FromPeer: true})
		return nil
	}
	if s.store.AddLink(m.Link.Raw(), AddOptions{FromPeer: true}) == nil {
		return fmt.Errorf("%w: peer link %s", entities.ErrMissingEndpoint, m.Link.Key)
	}
	return nil
}

func (s *SyncService) applyDelta(ctx context.Context, m entities.DifferenceGraphMessage) error {
	if m.Project != s.store.ProjectName() {
		s.logger.Debug("ignoring delta for another project", "project", m.Project)
		return nil
	}
	if m.Delta.Empty() {
		return nil
	}

	diff := s.store.MergeDatabases(m.Delta.Entities, m.Delta.Links, MergeOptions{FromPeer: true})
	if diff.Empty() {
		return nil
	}
	details := map[string]any{
		"entities": len(diff.Entities),
		"links":    len(diff.Links),
	}
	if err := s.audit.LogAction(ctx, entities.ActionSyncApplied, m.Project, details); err != nil {
		return fmt.Errorf("logging sync: %w", err)
	}
	return nil
}
