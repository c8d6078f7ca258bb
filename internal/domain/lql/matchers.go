package lql

import (
	"strings"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/domain/graph"
)

// matcher is a compiled condition.
type matcher interface {
	match(n *entities.Entity) bool
}

type nothing struct{}

func (nothing) match(*entities.Entity) bool { return false }

type matchFunc func(n *entities.Entity) bool

func (f matchFunc) match(n *entities.Entity) bool { return f(n) }

// memberOf matches entities in a precomputed set.
type memberOf map[string]struct{}

func (m memberOf) match(n *entities.Entity) bool {
	_, ok := m[n.UID]
	return ok
}

func members(uids ...[]string) memberOf {
	m := make(memberOf)
	for _, list := range uids {
		for _, uid := range list {
			m[uid] = struct{}{}
		}
	}
	return m
}

func (e *Engine) compileCondition(snapshot *graph.Graph, c Condition) matcher {
	switch c.Kind {
	case ValueKind:
		return e.compileValue(*c.Value)
	case GraphKind:
		return e.compileGraph(snapshot, *c.Graph)
	}
	return nothing{}
}

func (e *Engine) compileValue(vc ValueCondition) matcher {
	test, ok := e.valueTest(vc)
	if !ok {
		return nothing{}
	}
	if !vc.FieldRegex {
		return matchFunc(func(n *entities.Entity) bool {
			v, ok := n.Value(vc.Field)
			return ok && test(v)
		})
	}

	fieldRe, ok := e.compile(vc.Field, "condition field")
	if !ok {
		return nothing{}
	}
	return matchFunc(func(n *entities.Entity) bool {
		for _, f := range n.FieldNames() {
			if !fieldRe.MatchString(f) {
				continue
			}
			if v, ok := n.Value(f); ok && test(v) {
				return true
			}
		}
		return false
	})
}

func (e *Engine) valueTest(vc ValueCondition) (func(string) bool, bool) {
	switch vc.Op {
	case Eq:
		return func(v string) bool { return v == vc.Value }, true
	case Contains:
		return func(v string) bool { return strings.Contains(v, vc.Value) }, true
	case StartsWith:
		return func(v string) bool { return strings.HasPrefix(v, vc.Value) }, true
	case EndsWith:
		return func(v string) bool { return strings.HasSuffix(v, vc.Value) }, true
	case RMatch:
		re, ok := e.compile(vc.Value, "condition value")
		if !ok {
			return nil, false
		}
		return re.MatchString, true
	}
	return nil, false
}

func (e *Engine) compileGraph(snapshot *graph.Graph, gc GraphCondition) matcher {
	if gc.Op.needsTarget() {
		target, ok := e.resolveTarget(snapshot, gc.Target)
		if !ok {
			e.logger.Warn("graph condition target not found", "op", gc.Op, "target", gc.Target)
			return nothing{}
		}
		switch gc.Op {
		case ChildOf:
			return members(snapshot.Successors(target))
		case ParentOf:
			return members(snapshot.Predecessors(target))
		case AncestorOf:
			return members(snapshot.Ancestors(target))
		case DescendantOf:
			return members(snapshot.Descendants(target))
		case ConnectedTo:
			return members(snapshot.Ancestors(target), snapshot.Descendants(target))
		}
		return nothing{}
	}

	switch gc.Op {
	case Isolated:
		return matchFunc(func(n *entities.Entity) bool {
			return snapshot.InDegree(n.UID) == 0 && snapshot.OutDegree(n.UID) == 0
		})
	case IsRoot:
		return matchFunc(func(n *entities.Entity) bool { return snapshot.InDegree(n.UID) == 0 })
	case IsLeaf:
		return matchFunc(func(n *entities.Entity) bool { return snapshot.OutDegree(n.UID) == 0 })
	}

	count := e.counter(snapshot, gc.Op)
	if count == nil {
		return nothing{}
	}
	return matchFunc(func(n *entities.Entity) bool {
		return gc.Compare.Compare(count(n.UID), gc.Number)
	})
}

func (e *Engine) counter(snapshot *graph.Graph, op GraphOp) func(uid string) float64 {
	switch op {
	case NumChildren:
		return func(uid string) float64 { return float64(snapshot.OutDegree(uid)) }
	case NumParents:
		return func(uid string) float64 { return float64(snapshot.InDegree(uid)) }
	case NumAncestors:
		return func(uid string) float64 { return float64(len(snapshot.Ancestors(uid))) }
	case NumDescendants:
		return func(uid string) float64 { return float64(len(snapshot.Descendants(uid))) }
	case NumifiedParentsTotal:
		return func(uid string) float64 { return e.numifiedTotal(snapshot, snapshot.Predecessors(uid)) }
	case NumifiedChildrenTotal:
		return func(uid string) float64 { return e.numifiedTotal(snapshot, snapshot.Successors(uid)) }
	}
	return nil
}

func (e *Engine) numifiedTotal(snapshot *graph.Graph, uids []string) float64 {
	var total float64
	for _, uid := range uids {
		total += ToNumber(e.primaryValue(snapshot.Node(uid)))
	}
	return total
}

// resolveTarget accepts a UID or, failing that, a primary value.
func (e *Engine) resolveTarget(snapshot *graph.Graph, target string) (string, bool) {
	if snapshot.HasNode(target) {
		return target, true
	}
	for _, n := range snapshot.Nodes() {
		if e.primaryValue(n) == target {
			return n.UID, true
		}
	}
	return "", false
}
