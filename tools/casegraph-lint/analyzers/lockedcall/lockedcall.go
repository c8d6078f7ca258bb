// Package lockedcall checks that *Locked helpers run with the mutex held.
package lockedcall

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/ersonp/casegraph/tools/casegraph-lint/analyzers/internal/lockscan"
)

// Analyzer reports calls to *Locked methods made without holding mu.
var Analyzer = &analysis.Analyzer{
	Name: "lockedcall",
	Doc: "checks that methods named *Locked are only called from another *Locked " +
		"method or after X.mu.Lock() in the same function",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		fn := n.(*ast.FuncDecl)
		if lockscan.IsLockedName(fn.Name.Name) {
			return
		}

		lockscan.Walk(fn, func(call *ast.CallExpr, held bool) {
			if held {
				return
			}
			recv, name := lockscan.Method(call)
			if recv == nil || !lockscan.IsLockedName(name) {
				return
			}
			pass.Reportf(call.Pos(),
				"%s called without holding mu - lock first or rename %s to end in Locked",
				name, fn.Name.Name)
		})
	})

	return nil, nil
}
