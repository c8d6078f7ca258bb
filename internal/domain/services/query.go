package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/lql"
	"github.com/ersonp/casegraph/internal/domain/ports"
)

// ErrQueryNotFound is returned when a history UID is unknown.
var ErrQueryNotFound = errors.New("query not found")

// QueryRun is one recorded evaluation.
type QueryRun struct {
	UID    string
	Query  lql.Query
	Result lql.Result
}

// QueryService evaluates LQL queries against snapshots of the store and keeps
// the query history.
type QueryService struct {
	store    *GraphStore
	engine   *lql.Engine
	history  ports.QueryHistory
	canvases ports.CanvasRepository
	audit    ports.AuditLog
	logger   *slog.Logger
	newUID   func() string
	now      func() time.Time
}

// NewQueryService creates a new query service. The engine's primary-field
// lookup and schema fields come from the store's factory.
func NewQueryService(store *GraphStore, factory *Factory, db ports.RelationalDB, logger *slog.Logger) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	engine := lql.NewEngine(
		lql.WithPrimaryField(factory.PrimaryFieldFor),
		lql.WithSchemaFields(factory.SchemaFields),
		lql.WithLogger(logger),
	)
	return &QueryService{
		store:    store,
		engine:   engine,
		history:  db,
		canvases: db,
		audit:    db,
		logger:   logger,
		newUID:   uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run evaluates q over a snapshot of the store and the current canvas
// memberships, and appends it to the history under a fresh UID.
func (s *QueryService) Run(ctx context.Context, q lql.Query) (*QueryRun, error) {
	members, err := s.canvasMembers(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := s.store.Snapshot()
	result, err := s.engine.Evaluate(snapshot, members, q)
	if err != nil {
		return nil, err
	}

	doc, err := lql.Marshal(q)
	if err != nil {
		return nil, err
	}
	run := &QueryRun{UID: s.newUID(), Query: q, Result: result}
	record := &entities.QueryRecord{
		UID:          run.UID,
		Query:        doc,
		ResultUIDs:   result.UIDs,
		ResultFields: result.Fields,
		CreatedAt:    s.now(),
	}
	if err := s.history.SaveQuery(ctx, record); err != nil {
		return nil, fmt.Errorf("recording query: %w", err)
	}

	s.logger.Info("query evaluated", "uid", run.UID, "results", len(result.UIDs), "changed", len(result.Changed))
	return run, nil
}

// Apply writes the fields MODIFY changed back through the store and returns
// how many entities were updated. Only those fields are sent, so values
// other writers changed since the query ran are kept.
func (s *QueryService) Apply(ctx context.Context, run *QueryRun) (int, error) {
	var raws []entities.RawFields
	for _, e := range run.Result.Entities {
		fields := run.Result.Modified[e.UID]
		if len(fields) == 0 {
			continue
		}
		raw := entities.RawFields{
			entities.FieldUID:        e.UID,
			entities.FieldEntityType: e.Type,
		}
		for _, field := range fields {
			if v, ok := e.Value(field); ok {
				raw[field] = v
			}
		}
		raws = append(raws, raw)
	}
	if len(raws) == 0 {
		return 0, nil
	}

	updated := s.store.AddEntities(raws, AddOptions{Overwrite: true})
	details := map[string]any{"entities": len(updated)}
	if err := s.audit.LogAction(ctx, entities.ActionQueryApply, run.UID, details); err != nil {
		return len(updated), fmt.Errorf("logging query apply: %w", err)
	}
	return len(updated), nil
}

// Replay re-evaluates a recorded query against the current store. The replay
// is itself recorded.
func (s *QueryService) Replay(ctx context.Context, uid string) (*QueryRun, error) {
	record, err := s.history.FindQuery(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("finding query: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, uid)
	}

	q, err := lql.Parse([]byte(record.Query))
	if err != nil {
		return nil, fmt.Errorf("decoding recorded query %s: %w", uid, err)
	}
	return s.Run(ctx, q)
}

// History returns the newest recorded queries first.
func (s *QueryService) History(ctx context.Context, limit int) ([]entities.QueryRecord, error) {
	return s.history.ListQueries(ctx, limit)
}

func (s *QueryService) canvasMembers(ctx context.Context) (map[string][]string, error) {
	list, err := s.canvases.ListCanvases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing canvases: %w", err)
	}
	members := make(map[string][]string, len(list))
	for _, c := range list {
		members[c.Name] = c.Members
	}
	return members, nil
}
