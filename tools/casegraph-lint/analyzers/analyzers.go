// Package analyzers provides the custom static analyzers for casegraph.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/ersonp/casegraph/tools/casegraph-lint/analyzers/lockedcall"
	"github.com/ersonp/casegraph/tools/casegraph-lint/analyzers/observerlock"
	"github.com/ersonp/casegraph/tools/casegraph-lint/analyzers/regexloop"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		lockedcall.Analyzer,
		observerlock.Analyzer,
		regexloop.Analyzer,
	}
}
