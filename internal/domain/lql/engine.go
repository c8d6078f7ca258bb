package lql

import (
	"log/slog"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/graph"
)

// Result is the outcome of one evaluation.
type Result struct {
	// UIDs are the selected entities in ascending order.
	UIDs []string `json:"uids"`
	// Fields are the selected field names.
	Fields []string `json:"fields"`
	// Entities are working copies of the selected entities, in UIDs order,
	// with MODIFY applied. They are never the store's records.
	Entities []*entities.Entity `json:"-"`
	// Changed lists the UIDs whose working copy MODIFY altered.
	Changed []string `json:"changed,omitempty"`
	// Modified maps each changed UID to the fields MODIFY altered, in the
	// order they were first changed.
	Modified map[string][]string `json:"modified,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrimaryField sets the schema lookup for an entity type's primary field.
func WithPrimaryField(fn func(entityType string) (string, bool)) Option {
	return func(e *Engine) { e.primaryField = fn }
}

// WithSchemaFields sets the source of schema-declared field names, which
// SELECT considers alongside the fields present in the snapshot.
func WithSchemaFields(fn func() []string) Option {
	return func(e *Engine) { e.schemaFields = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine evaluates queries. It holds no per-query state and is safe for
// concurrent use.
type Engine struct {
	primaryField func(string) (string, bool)
	schemaFields func() []string
	logger       *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		primaryField: func(string) (string, bool) { return "", false },
		schemaFields: func() []string { return nil },
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs q over snapshot. canvases maps canvas names to member UIDs.
// The snapshot is only read. An error is returned only for a structurally
// invalid query; bad regular expressions and unknown targets make their
// clause match nothing.
func (e *Engine) Evaluate(snapshot *graph.Graph, canvases map[string][]string, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	fields := e.selectFields(snapshot, q.Select)
	pool := e.source(snapshot, canvases, q.Source)
	pool = pool.Filter(func(uid string) bool {
		n := snapshot.Node(uid)
		return slices.ContainsFunc(fields, n.HasField)
	})
	selected := e.conditions(snapshot, pool, q.Conditions)

	res := Result{UIDs: selected.Sorted(), Fields: fields}
	res.Entities = make([]*entities.Entity, 0, len(res.UIDs))
	for _, uid := range res.UIDs {
		working := snapshot.Node(uid).Clone()
		if fields := e.modify(working, q.Modify); len(fields) > 0 {
			if res.Modified == nil {
				res.Modified = make(map[string][]string)
			}
			res.Changed = append(res.Changed, uid)
			res.Modified[uid] = fields
		}
		res.Entities = append(res.Entities, working)
	}

	e.logger.Debug("query evaluated",
		"candidates", pool.Len(), "selected", len(res.UIDs), "fields", len(fields))
	return res, nil
}

// knownFields is every field name the schema declares or the snapshot holds.
func (e *Engine) knownFields(snapshot *graph.Graph) []string {
	seen := map[string]struct{}{
		entities.FieldUID:            {},
		entities.FieldEntityType:     {},
		entities.FieldDateCreated:    {},
		entities.FieldDateLastEdited: {},
		entities.FieldNotes:          {},
		entities.FieldChildUIDs:      {},
	}
	for _, f := range e.schemaFields() {
		seen[f] = struct{}{}
	}
	for _, n := range snapshot.Nodes() {
		for _, f := range n.FieldNames() {
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) selectFields(snapshot *graph.Graph, sel Select) []string {
	if sel.Regex != "" {
		re, ok := e.compile(sel.Regex, "select")
		if !ok {
			return nil
		}
		var out []string
		for _, f := range e.knownFields(snapshot) {
			if re.MatchString(f) {
				out = append(out, f)
			}
		}
		return out
	}
	if slices.Contains(sel.Fields, "*") {
		return e.knownFields(snapshot)
	}
	out := make([]string, 0, len(sel.Fields))
	for _, f := range sel.Fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func (e *Engine) source(snapshot *graph.Graph, canvases map[string][]string, src Source) CandidateSet {
	all := NewCandidateSet(snapshot.UIDs()...)
	if src.FromDB || len(src.Clauses) == 0 {
		return all
	}

	var result CandidateSet
	for i, c := range src.Clauses {
		m := e.sourceMatch(all, canvases, c)
		if c.Negated {
			m = all.Minus(m)
		}
		switch {
		case i == 0:
			result = m
		case c.Connective == Or:
			result = result.Union(m)
		default:
			result = result.Intersect(m)
		}
	}
	return result
}

func (e *Engine) sourceMatch(all CandidateSet, canvases map[string][]string, c SourceClause) CandidateSet {
	switch c.Kind {
	case Canvas:
		if c.Value == WholeDatabase {
			return all
		}
		return NewCandidateSet(canvases[c.Value]...).Intersect(all)
	case RCanvas:
		re, ok := e.compile(c.Value, "source")
		if !ok {
			return NewCandidateSet()
		}
		members := NewCandidateSet()
		for name, uids := range canvases {
			if re.MatchString(name) {
				members = members.Union(NewCandidateSet(uids...))
			}
		}
		return members.Intersect(all)
	}
	return NewCandidateSet()
}

// conditions narrows pool clause by clause. A failed AND clause removes the
// entity from the pool as well as from the result, so later OR clauses cannot
// re-admit it.
func (e *Engine) conditions(snapshot *graph.Graph, pool CandidateSet, conds []Condition) CandidateSet {
	if len(conds) == 0 {
		return pool
	}

	var result CandidateSet
	for i, c := range conds {
		m := e.compileCondition(snapshot, c)
		matched := pool.Filter(func(uid string) bool { return m.match(snapshot.Node(uid)) })
		if c.Negated {
			matched = pool.Minus(matched)
		}
		switch {
		case i == 0:
			result = matched
		case c.Connective == Or:
			result = result.Union(matched)
		default:
			pool = pool.Intersect(matched)
			result = result.Intersect(matched)
		}
	}
	return result
}

// modify applies the MODIFY clauses to a working copy and returns the fields
// whose value changed.
func (e *Engine) modify(working *entities.Entity, mods []Modification) []string {
	var changed []string
	for _, mod := range mods {
		for _, field := range e.modifyTargets(working, mod) {
			old, ok := working.Value(field)
			if !ok {
				continue
			}
			next := transform(mod.Op, old)
			if next == old {
				continue
			}
			if working.SetValue(field, next) && !slices.Contains(changed, field) {
				changed = append(changed, field)
			}
		}
	}
	return changed
}

func (e *Engine) modifyTargets(working *entities.Entity, mod Modification) []string {
	if !mod.Regex {
		return []string{mod.Field}
	}
	re, ok := e.compile(mod.Field, "modify")
	if !ok {
		return nil
	}
	var out []string
	for _, f := range working.FieldNames() {
		if re.MatchString(f) {
			out = append(out, f)
		}
	}
	return out
}

func transform(op ModifyOp, v string) string {
	switch op {
	case Numify:
		return FormatNumber(ToNumber(v))
	case Uppercase:
		return strings.ToUpper(v)
	case Lowercase:
		return strings.ToLower(v)
	}
	return v
}

// primaryValue returns the value of n's schema-declared primary field.
func (e *Engine) primaryValue(n *entities.Entity) string {
	field, _ := e.primaryField(n.Type)
	return n.Primary(field)
}

func (e *Engine) compile(expr, clause string) (*regexp.Regexp, bool) {
	re, err := regexp.Compile(expr)
	if err != nil {
		e.logger.Warn("invalid regular expression, clause matches nothing",
			"clause", clause, "expr", expr, "error", err)
		return nil, false
	}
	return re, true
}
