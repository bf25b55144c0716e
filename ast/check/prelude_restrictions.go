package check

import (
	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/diag"
)

// checkPreludeRestrictions verifies that no module's globals block
// mentions PidOfSelf, installs/disarms a trap, or performs IO (SendMsg,
// Trace, Wait) — spec §4.1.
func checkPreludeRestrictions(prog *ast.Program) diag.Errors {
	var errs diag.Errors
	for _, me := range prog.Modules {
		ctx := diag.Context{Module: me.Path}
		ast.Walk(me.Module.Globals, func(s ast.Stmt) error {
			switch n := s.(type) {
			case ast.SendMsg, ast.Trace, ast.Wait:
				errs = append(errs, diag.IoInPrelude{Context: ctx})
			case ast.Arm:
				errs = append(errs, diag.LabelInPrelude{Context: ctx, Name: n.Target.String()})
			case ast.Disarm:
				errs = append(errs, diag.LabelInPrelude{Context: ctx, Name: n.Target.String()})
			case ast.Listen:
				errs = append(errs, diag.LabelInPrelude{Context: ctx, Name: n.Label.String()})
			case ast.Trap:
				errs = append(errs, diag.LabelInPrelude{Context: ctx, Name: n.Label.String()})
			case ast.Weave:
				errs = append(errs, diag.LabelInPrelude{Context: ctx, Name: n.Label.String()})
				errs = append(errs, diag.IoInPrelude{Context: ctx})
			}
			for _, e := range stmtExprs(s) {
				ast.WalkExpr(e, func(x ast.Expr) {
					if _, ok := x.(ast.PidOfSelf); ok {
						errs = append(errs, diag.SelfInPrelude{Context: ctx})
					}
				}, nil)
			}
			return nil
		})
	}
	return errs
}

// stmtExprs returns the top-level expressions a statement directly
// carries (not recursing into sub-blocks, which ast.Walk already handles).
func stmtExprs(s ast.Stmt) []ast.Expr {
	switch n := s.(type) {
	case ast.Let:
		return []ast.Expr{n.Value}
	case ast.Discard:
		return []ast.Expr{n.Value}
	case ast.SendMsg:
		return []ast.Expr{n.Target, n.Message}
	case ast.Trace:
		return []ast.Expr{n.Value}
	case ast.Wait:
		return []ast.Expr{n.Value}
	case ast.Arm:
		return []ast.Expr{n.WithEnv}
	case ast.Naked:
		out := append([]ast.Expr{n.Target}, n.Text...)
		return out
	case ast.Recur:
		return n.Call.Args
	}
	return nil
}
