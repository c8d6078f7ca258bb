// Package observerlock detects observer and propagator callbacks made while
// the store mutex is held.
package observerlock

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/ersonp/casegraph/tools/casegraph-lint/analyzers/internal/lockscan"
)

// Analyzer reports X.observer.* and X.propagator.* calls under mu.
var Analyzer = &analysis.Analyzer{
	Name:     "observerlock",
	Doc:      "detects observer and propagator calls made while mu is held or from a *Locked method",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// callbackFields are the store fields whose methods may re-enter the store.
var callbackFields = map[string]bool{
	"observer":   true,
	"propagator": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		fn := n.(*ast.FuncDecl)
		inLocked := lockscan.IsLockedName(fn.Name.Name)

		lockscan.Walk(fn, func(call *ast.CallExpr, held bool) {
			if !held && !inLocked {
				return
			}
			recv, name := lockscan.Method(call)
			field, ok := recv.(*ast.SelectorExpr)
			if !ok || !callbackFields[field.Sel.Name] {
				return
			}
			pass.Reportf(call.Pos(),
				"%s.%s called while mu is held - notify after unlocking",
				field.Sel.Name, name)
		})
	})

	return nil, nil
}
