package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/lql"
	"github.com/ersonp/casegraph/internal/domain/services"
)

// QueryHandler handles LQL queries and the query history.
type QueryHandler struct {
	queryService *services.QueryService
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(queryService *services.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// QueryResult contains the result of a query as a table.
type QueryResult struct {
	UID     string     `json:"uid"`
	Fields  []string   `json:"fields"`
	Rows    [][]string `json:"rows"`
	Changed []string   `json:"changed,omitempty"`
	Applied int        `json:"applied"`
}

// HandleRunFile evaluates the query document at path. With apply set, the
// entities MODIFY changed are written back to the store.
func (h *QueryHandler) HandleRunFile(ctx context.Context, path string, apply bool) (*QueryResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	q, err := lql.Parse(data)
	if err != nil {
		return nil, err
	}
	return h.HandleRun(ctx, q, apply)
}

// HandleRun evaluates q. With apply set, the entities MODIFY changed are
// written back to the store.
func (h *QueryHandler) HandleRun(ctx context.Context, q lql.Query, apply bool) (*QueryResult, error) {
	run, err := h.queryService.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	return h.finish(ctx, run, apply)
}

// HandleReplay re-evaluates a query from the history.
func (h *QueryHandler) HandleReplay(ctx context.Context, uid string, apply bool) (*QueryResult, error) {
	run, err := h.queryService.Replay(ctx, uid)
	if err != nil {
		return nil, err
	}
	return h.finish(ctx, run, apply)
}

// HandleHistory returns the newest recorded queries first.
func (h *QueryHandler) HandleHistory(ctx context.Context, limit int) ([]entities.QueryRecord, error) {
	return h.queryService.History(ctx, limit)
}

func (h *QueryHandler) finish(ctx context.Context, run *services.QueryRun, apply bool) (*QueryResult, error) {
	result := &QueryResult{
		UID:     run.UID,
		Fields:  run.Result.Fields,
		Rows:    rows(run.Result),
		Changed: run.Result.Changed,
	}
	if apply {
		n, err := h.queryService.Apply(ctx, run)
		if err != nil {
			return nil, fmt.Errorf("applying query %s: %w", run.UID, err)
		}
		result.Applied = n
	}
	return result, nil
}

// rows lays the selected fields of each result entity out as text. Fields an
// entity lacks are empty.
func rows(r lql.Result) [][]string {
	out := make([][]string, 0, len(r.Entities))
	for _, e := range r.Entities {
		row := make([]string, len(r.Fields))
		for i, f := range r.Fields {
			row[i], _ = e.Value(f)
		}
		out = append(out, row)
	}
	return out
}
