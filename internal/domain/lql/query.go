// Package lql implements the link query language: SELECT, SOURCE,
// CONDITIONS and MODIFY clauses evaluated over a graph snapshot and a set of
// canvas memberships.
package lql

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned by Validate for a malformed query.
var ErrInvalidQuery = errors.New("invalid query")

// Connective joins a clause onto the clauses before it.
type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

// SourceKind selects how a SOURCE clause names canvases.
type SourceKind string

const (
	// Canvas matches a canvas by exact name. "*" names the whole database.
	Canvas SourceKind = "CANVAS"
	// RCanvas matches canvas names by regular expression.
	RCanvas SourceKind = "RCANVAS"
)

// WholeDatabase is the synthetic canvas name for every entity.
const WholeDatabase = "*"

// ValueOp compares a field value against a literal.
type ValueOp string

const (
	Eq         ValueOp = "EQ"
	Contains   ValueOp = "CONTAINS"
	StartsWith ValueOp = "STARTSWITH"
	EndsWith   ValueOp = "ENDSWITH"
	RMatch     ValueOp = "RMATCH"
)

// GraphOp is a topology test.
type GraphOp string

const (
	ChildOf      GraphOp = "CHILDOF"
	ParentOf     GraphOp = "PARENTOF"
	AncestorOf   GraphOp = "ANCESTOROF"
	DescendantOf GraphOp = "DESCENDANTOF"
	ConnectedTo  GraphOp = "CONNECTEDTO"
	Isolated     GraphOp = "ISOLATED"
	IsRoot       GraphOp = "ISROOT"
	IsLeaf       GraphOp = "ISLEAF"

	NumChildren           GraphOp = "NUMCHILDREN"
	NumParents            GraphOp = "NUMPARENTS"
	NumAncestors          GraphOp = "NUMANCESTORS"
	NumDescendants        GraphOp = "NUMDESCENDANTS"
	NumifiedParentsTotal  GraphOp = "NUMIFIED_PARENTS_TOTAL"
	NumifiedChildrenTotal GraphOp = "NUMIFIED_CHILDREN_TOTAL"
)

// needsTarget reports whether op is relative to another entity.
func (op GraphOp) needsTarget() bool {
	switch op {
	case ChildOf, ParentOf, AncestorOf, DescendantOf, ConnectedTo:
		return true
	}
	return false
}

// numeric reports whether op compares a number.
func (op GraphOp) numeric() bool {
	switch op {
	case NumChildren, NumParents, NumAncestors, NumDescendants, NumifiedParentsTotal, NumifiedChildrenTotal:
		return true
	}
	return false
}

func (op GraphOp) valid() bool {
	switch op {
	case Isolated, IsRoot, IsLeaf:
		return true
	}
	return op.needsTarget() || op.numeric()
}

// Comparator is a numeric comparison.
type Comparator string

const (
	Lt    Comparator = "<"
	Lte   Comparator = "<="
	Gt    Comparator = ">"
	Gte   Comparator = ">="
	Equal Comparator = "=="
)

// Compare applies the comparator to a and b.
func (c Comparator) Compare(a, b float64) bool {
	switch c {
	case Lt:
		return a < b
	case Lte:
		return a <= b
	case Gt:
		return a > b
	case Gte:
		return a >= b
	case Equal:
		return a == b
	}
	return false
}

// ModifyOp transforms a field value.
type ModifyOp string

const (
	Numify    ModifyOp = "NUMIFY"
	Uppercase ModifyOp = "UPPERCASE"
	Lowercase ModifyOp = "LOWERCASE"
)

// ConditionKind tags the payload of a Condition.
type ConditionKind string

const (
	ValueKind ConditionKind = "value"
	GraphKind ConditionKind = "graph"
)

// Query is a complete LQL query.
type Query struct {
	Select     Select         `json:"select" yaml:"select"`
	Source     Source         `json:"source" yaml:"source"`
	Conditions []Condition    `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Modify     []Modification `json:"modify,omitempty" yaml:"modify,omitempty"`
}

// Select names the result fields: either an explicit list ("*" for every
// field) or a regular expression over all known field names (RSELECT).
type Select struct {
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Regex  string   `json:"regex,omitempty" yaml:"regex,omitempty"`
}

// Source picks the candidate pool. FromDB, or no clauses, means every entity.
type Source struct {
	FromDB  bool           `json:"from_db,omitempty" yaml:"from_db,omitempty"`
	Clauses []SourceClause `json:"clauses,omitempty" yaml:"clauses,omitempty"`
}

// SourceClause is one (connective, kind, negated, value) SOURCE term.
type SourceClause struct {
	Connective Connective `json:"connective,omitempty" yaml:"connective,omitempty"`
	Kind       SourceKind `json:"kind" yaml:"kind"`
	Negated    bool       `json:"negated,omitempty" yaml:"negated,omitempty"`
	Value      string     `json:"value" yaml:"value"`
}

// Condition is one CONDITIONS term. Exactly one of Value and Graph is set,
// matching Kind.
type Condition struct {
	Connective Connective      `json:"connective,omitempty" yaml:"connective,omitempty"`
	Negated    bool            `json:"negated,omitempty" yaml:"negated,omitempty"`
	Kind       ConditionKind   `json:"kind" yaml:"kind"`
	Value      *ValueCondition `json:"value,omitempty" yaml:"value,omitempty"`
	Graph      *GraphCondition `json:"graph,omitempty" yaml:"graph,omitempty"`
}

// ValueCondition matches a field's text.
type ValueCondition struct {
	Field      string  `json:"field" yaml:"field"`
	FieldRegex bool    `json:"field_regex,omitempty" yaml:"field_regex,omitempty"`
	Op         ValueOp `json:"op" yaml:"op"`
	Value      string  `json:"value" yaml:"value"`
}

// GraphCondition tests topology. Target is a UID or primary value for the
// relative ops; Compare and Number are used by the numeric ops.
type GraphCondition struct {
	Op      GraphOp    `json:"op" yaml:"op"`
	Target  string     `json:"target,omitempty" yaml:"target,omitempty"`
	Compare Comparator `json:"compare,omitempty" yaml:"compare,omitempty"`
	Number  float64    `json:"number,omitempty" yaml:"number,omitempty"`
}

// Modification is one MODIFY term. Regex makes Field a pattern (RMODIFY).
type Modification struct {
	Field string   `json:"field" yaml:"field"`
	Regex bool     `json:"regex,omitempty" yaml:"regex,omitempty"`
	Op    ModifyOp `json:"op" yaml:"op"`
}

// Validate checks the structure of the query. Regular expressions are not
// compiled here: an invalid pattern makes its clause match nothing.
func (q Query) Validate() error {
	if len(q.Select.Fields) == 0 && q.Select.Regex == "" {
		return fmt.Errorf("%w: select needs fields or a regex", ErrInvalidQuery)
	}
	for i, c := range q.Source.Clauses {
		if err := validConnective(c.Connective); err != nil {
			return fmt.Errorf("%w: source clause %d: %v", ErrInvalidQuery, i+1, err)
		}
		if c.Kind != Canvas && c.Kind != RCanvas {
			return fmt.Errorf("%w: source clause %d: unknown kind %q", ErrInvalidQuery, i+1, c.Kind)
		}
	}
	for i, c := range q.Conditions {
		if err := c.validate(); err != nil {
			return fmt.Errorf("%w: condition %d: %v", ErrInvalidQuery, i+1, err)
		}
	}
	for i, m := range q.Modify {
		switch m.Op {
		case Numify, Uppercase, Lowercase:
		default:
			return fmt.Errorf("%w: modify %d: unknown op %q", ErrInvalidQuery, i+1, m.Op)
		}
		if m.Field == "" {
			return fmt.Errorf("%w: modify %d: missing field", ErrInvalidQuery, i+1)
		}
	}
	return nil
}

func (c Condition) validate() error {
	if err := validConnective(c.Connective); err != nil {
		return err
	}
	switch c.Kind {
	case ValueKind:
		if c.Value == nil || c.Graph != nil {
			return errors.New("value condition needs exactly a value payload")
		}
		switch c.Value.Op {
		case Eq, Contains, StartsWith, EndsWith, RMatch:
		default:
			return fmt.Errorf("unknown value op %q", c.Value.Op)
		}
		if c.Value.Field == "" {
			return errors.New("value condition missing field")
		}
	case GraphKind:
		if c.Graph == nil || c.Value != nil {
			return errors.New("graph condition needs exactly a graph payload")
		}
		if !c.Graph.Op.valid() {
			return fmt.Errorf("unknown graph op %q", c.Graph.Op)
		}
		if c.Graph.Op.needsTarget() && c.Graph.Target == "" {
			return fmt.Errorf("%s needs a target", c.Graph.Op)
		}
		if c.Graph.Op.numeric() {
			switch c.Graph.Compare {
			case Lt, Lte, Gt, Gte, Equal:
			default:
				return fmt.Errorf("%s needs a comparator, got %q", c.Graph.Op, c.Graph.Compare)
			}
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

func validConnective(c Connective) error {
	switch c {
	case "", And, Or:
		return nil
	}
	return fmt.Errorf("unknown connective %q", c)
}
