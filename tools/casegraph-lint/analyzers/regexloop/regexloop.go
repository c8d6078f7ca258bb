// Package regexloop detects regex compilation inside loops.
package regexloop

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer detects regexp calls inside loops that compile a pattern on every
// iteration.
var Analyzer = &analysis.Analyzer{
	Name:     "regexloop",
	Doc:      "detects regexp compilation and package-level matching inside loops",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// compilingFuncs compile their pattern argument on each call. The Match
// helpers do so implicitly.
var compilingFuncs = map[string]bool{
	"Compile":          true,
	"MustCompile":      true,
	"CompilePOSIX":     true,
	"MustCompilePOSIX": true,
	"MatchString":      true,
	"Match":            true,
	"MatchReader":      true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	// Nested loops are visited once each; report a call only for its
	// outermost loop.
	reported := make(map[*ast.CallExpr]bool)

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		var body *ast.BlockStmt
		switch stmt := n.(type) {
		case *ast.RangeStmt:
			body = stmt.Body
		case *ast.ForStmt:
			body = stmt.Body
		}
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || reported[call] {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			ident, ok := sel.X.(*ast.Ident)
			if !ok || ident.Name != "regexp" || !compilingFuncs[sel.Sel.Name] {
				return true
			}

			reported[call] = true
			pass.Reportf(call.Pos(),
				"regexp.%s called inside loop - compile once outside loop",
				sel.Sel.Name)
			return true
		})
	})

	return nil, nil
}
