package check

import (
	"fmt"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/diag"
)

// varScope tracks, for the identifiers bound at one nesting level, how many
// times each has been read since it was (re)bound.
type varScope map[string]int

type scopeStack struct {
	scopes []varScope
}

func (s *scopeStack) push() { s.scopes = append(s.scopes, varScope{}) }
func (s *scopeStack) pop()  { s.scopes = s.scopes[:len(s.scopes)-1] }

// bind introduces name in the current scope. If it shadows a binding with
// zero uses anywhere visible, it returns a warning message (spec §4.1).
func (s *scopeStack) bind(name string, ctx diag.Context) (warning string) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if uses, bound := s.scopes[i][name]; bound {
			if uses == 0 {
				warning = fmt.Sprintf("%s: %q rebound without being used", ctx, name)
			}
			break
		}
	}
	s.scopes[len(s.scopes)-1][name] = 0
	return warning
}

// use records a read of name, walking outward from the innermost scope. It
// reports false if name is unbound anywhere.
func (s *scopeStack) use(name string) bool {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i][name]; ok {
			s.scopes[i][name]++
			return true
		}
	}
	return false
}

// checkVariableDefinitions walks every scene body tracking a scope stack of
// bound identifiers, reporting NoSuchVar on use of an unbound name and
// collecting shadowing warnings (spec §4.1).
func checkVariableDefinitions(prog *ast.Program) (diag.Errors, []string) {
	var errs diag.Errors
	var warnings []string
	for _, me := range prog.Modules {
		for _, sc := range me.Module.Scenes {
			ctx := diag.Context{Module: me.Path, Scene: sc.Name.Name}
			ss := &scopeStack{}
			ss.push()
			for _, a := range sc.Args {
				ss.bind(a, ctx)
			}
			checkVarsBlock(sc.Body, ctx, ss, &errs, &warnings)
			ss.pop()
		}
	}
	return errs, warnings
}

func checkVarsBlock(b ast.Block, ctx diag.Context, ss *scopeStack, errs *diag.Errors, warnings *[]string) {
	for _, s := range b.Stmts {
		checkVarsStmt(s, ctx, ss, errs, warnings)
	}
}

func checkVarsExpr(e ast.Expr, ctx diag.Context, ss *scopeStack, errs *diag.Errors) {
	ast.WalkExpr(e, func(x ast.Expr) {
		if id, ok := x.(ast.Ident); ok {
			if !ss.use(id.Name) {
				*errs = append(*errs, diag.NoSuchVar{Context: ctx, Name: id.Name})
			}
		}
	}, nil)
}

func checkVarsCond(c ast.Cond, ctx diag.Context, ss *scopeStack, errs *diag.Errors) {
	ast.WalkCond(c, nil, func(e ast.Expr) {
		checkVarsExpr(e, ctx, ss, errs)
	})
}

func bindPattern(p ast.Pattern, ctx diag.Context, ss *scopeStack, errs *diag.Errors, warnings *[]string) {
	switch n := p.(type) {
	case ast.PAssign:
		if w := ss.bind(n.Var, ctx); w != "" {
			*warnings = append(*warnings, w)
		}
	case ast.PList:
		for _, e := range n.Elems {
			bindPattern(e, ctx, ss, errs, warnings)
		}
	case ast.PMatch:
		checkVarsExpr(n.Value, ctx, ss, errs)
	}
}

func checkVarsStmt(s ast.Stmt, ctx diag.Context, ss *scopeStack, errs *diag.Errors, warnings *[]string) {
	switch n := s.(type) {
	case ast.Let:
		checkVarsExpr(n.Value, ctx, ss, errs)
		if w := ss.bind(n.Var, ctx); w != "" {
			*warnings = append(*warnings, w)
		}
	case ast.Discard:
		checkVarsExpr(n.Value, ctx, ss, errs)
	case ast.If:
		checkVarsCond(n.Test, ctx, ss, errs)
		ss.push()
		checkVarsBlock(n.Success, ctx, ss, errs, warnings)
		ss.pop()
		ss.push()
		checkVarsBlock(n.Failure, ctx, ss, errs, warnings)
		ss.pop()
	case ast.Recur:
		for _, a := range n.Call.Args {
			checkVarsExpr(a, ctx, ss, errs)
		}
	case ast.SendMsg:
		checkVarsExpr(n.Target, ctx, ss, errs)
		checkVarsExpr(n.Message, ctx, ss, errs)
	case ast.Trace:
		checkVarsExpr(n.Value, ctx, ss, errs)
	case ast.Wait:
		checkVarsExpr(n.Value, ctx, ss, errs)
	case ast.Arm:
		checkVarsExpr(n.WithEnv, ctx, ss, errs)
	case ast.Naked:
		checkVarsExpr(n.Target, ctx, ss, errs)
		for _, t := range n.Text {
			checkVarsExpr(t, ctx, ss, errs)
		}
	case ast.Listen:
		checkVarsTrapArms(n.Arms, ctx, ss, errs, warnings)
	case ast.Trap:
		checkVarsTrapArms(n.Arms, ctx, ss, errs, warnings)
	case ast.Weave:
		for _, a := range n.Arms {
			checkVarsCond(a.Guard, ctx, ss, errs)
			checkVarsExpr(a.Message, ctx, ss, errs)
			ss.push()
			checkVarsBlock(a.Body, ctx, ss, errs, warnings)
			ss.pop()
		}
	case ast.Match:
		checkVarsExpr(n.Value, ctx, ss, errs)
		for _, a := range n.Arms {
			ss.push()
			bindPattern(a.Pattern, ctx, ss, errs, warnings)
			checkVarsCond(a.Guard, ctx, ss, errs)
			checkVarsBlock(a.Body, ctx, ss, errs, warnings)
			ss.pop()
		}
		ss.push()
		checkVarsBlock(n.OrElse, ctx, ss, errs, warnings)
		ss.pop()
	}
}

func checkVarsTrapArms(arms []ast.TrapArm, ctx diag.Context, ss *scopeStack, errs *diag.Errors, warnings *[]string) {
	for _, a := range arms {
		ss.push()
		bindPattern(a.Pattern, ctx, ss, errs, warnings)
		bindPattern(a.Origin, ctx, ss, errs, warnings)
		checkVarsBlock(a.Body, ctx, ss, errs, warnings)
		ss.pop()
	}
}
