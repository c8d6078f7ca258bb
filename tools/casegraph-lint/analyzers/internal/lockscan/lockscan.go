// Package lockscan walks function bodies tracking whether a struct's mu
// field is held.
package lockscan

import (
	"go/ast"
	"strings"
)

// MutexField is the field name the store guards its state with.
const MutexField = "mu"

// LockedSuffix marks functions that expect mu to be held by the caller.
const LockedSuffix = "Locked"

// IsLockedName reports whether name follows the *Locked convention.
func IsLockedName(name string) bool {
	return strings.HasSuffix(name, LockedSuffix) && name != LockedSuffix
}

// Visit is called for every call in a function body with the lock state at
// that point.
type Visit func(call *ast.CallExpr, held bool)

// Walk visits the calls of fn in source order. Tracking is linear: Lock and
// RLock on X.mu set the state, Unlock and RUnlock clear it, and a deferred
// unlock keeps it set until the end of the body. Function literals are not
// entered since they run at another time.
func Walk(fn *ast.FuncDecl, visit Visit) {
	if fn.Body == nil {
		return
	}

	held := false
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.DeferStmt:
			return false
		case *ast.CallExpr:
			switch MutexOp(n) {
			case "Lock", "RLock":
				held = true
				return true
			case "Unlock", "RUnlock":
				held = false
				return true
			}
			visit(n, held)
		}
		return true
	})
}

// MutexOp returns the method name when call is X.mu.Method(), or "".
func MutexOp(call *ast.CallExpr) string {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return ""
	}
	field, ok := sel.X.(*ast.SelectorExpr)
	if !ok || field.Sel.Name != MutexField {
		return ""
	}
	return sel.Sel.Name
}

// Method returns the receiver expression and name of a method call, or nil.
func Method(call *ast.CallExpr) (ast.Expr, string) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return nil, ""
	}
	return sel.X, sel.Sel.Name
}
