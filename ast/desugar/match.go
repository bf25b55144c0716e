package desugar

import (
	"fmt"

	"github.com/weftlang/weft/ast"
)

// Match rewrites every Match statement into a chain of If statements
// (§4.3 pass 5). ast.RewriteBlock recurses into each arm's body and the
// or_else block before this function sees the Match itself, so nested
// matches are already lowered by the time lowerMatch runs.
func Match(prog *ast.Program) error {
	for mi := range prog.Modules {
		globals, err := ast.RewriteBlock(prog.Modules[mi].Module.Globals, rewriteMatch)
		if err != nil {
			return err
		}
		prog.Modules[mi].Module.Globals = globals
		scenes := prog.Modules[mi].Module.Scenes
		for si := range scenes {
			body, err := ast.RewriteBlock(scenes[si].Body, rewriteMatch)
			if err != nil {
				return err
			}
			scenes[si].Body = body
		}
	}
	// Lambdas produced by passes 3 and 4 carry the original trap/weave arm
	// bodies, which can themselves contain Match statements.
	for li := range prog.Lambdas {
		body, err := ast.RewriteBlock(prog.Lambdas[li].Body, rewriteMatch)
		if err != nil {
			return err
		}
		prog.Lambdas[li].Body = body
	}
	return nil
}

func rewriteMatch(s ast.Stmt) ([]ast.Stmt, error) {
	m, ok := s.(ast.Match)
	if !ok {
		return []ast.Stmt{s}, nil
	}
	return lowerMatch(m)
}

// lowerMatch builds the arm chain from last to first: each arm's failure
// branch is the block built from the arms after it, bottoming out at
// or_else.
func lowerMatch(m ast.Match) ([]ast.Stmt, error) {
	current := m.OrElse
	for i := len(m.Arms) - 1; i >= 0; i-- {
		a := m.Arms[i]
		structural, subst, err := compileArmPattern(a.Pattern, m.Value)
		if err != nil {
			return nil, err
		}
		guard := substCond(a.Guard, subst)
		test := andAll([]ast.Cond{structural, guard})
		body := substBlock(a.Body, subst)
		current = ast.Block{Stmts: []ast.Stmt{ast.If{Test: test, Success: body, Failure: current}}}
	}
	return current.Stmts, nil
}

// compileArmPattern walks a single arm's pattern against path (the
// expression denoting "the value at this position"), returning the
// structural test it compiles to and the identifier → path-expression
// substitution its Assign leaves record.
func compileArmPattern(p ast.Pattern, path ast.Expr) (ast.Cond, map[string]ast.Expr, error) {
	subst := map[string]ast.Expr{}
	cond, err := compilePatternInto(p, path, subst)
	if err != nil {
		return nil, nil, err
	}
	return cond, subst, nil
}

func compilePatternInto(p ast.Pattern, path ast.Expr, subst map[string]ast.Expr) (ast.Cond, error) {
	switch n := p.(type) {
	case ast.PHole:
		return ast.CTrue{}, nil
	case ast.PAssign:
		if _, dup := subst[n.Var]; dup {
			return nil, fmt.Errorf("internal error: pattern rebinds %q within the same arm", n.Var)
		}
		subst[n.Var] = path
		return ast.CTrue{}, nil
	case ast.PMatch:
		return ast.CCompare{Op: ast.Eql, Lhs: n.Value, Rhs: path}, nil
	case ast.PList:
		conds := []ast.Cond{ast.CHasLength{List: path, N: len(n.Elems)}}
		for i, e := range n.Elems {
			c, err := compilePatternInto(e, ast.Nth{List: path, Index: i}, subst)
			if err != nil {
				return nil, err
			}
			if _, isTrue := c.(ast.CTrue); !isTrue {
				conds = append(conds, c)
			}
		}
		return andAll(conds), nil
	default:
		return nil, fmt.Errorf("internal error: unknown pattern kind %T", p)
	}
}

func andAll(conds []ast.Cond) ast.Cond {
	filtered := conds[:0]
	for _, c := range conds {
		if _, isTrue := c.(ast.CTrue); isTrue {
			continue
		}
		filtered = append(filtered, c)
	}
	switch len(filtered) {
	case 0:
		return ast.CTrue{}
	case 1:
		return filtered[0]
	default:
		return ast.CAnd{Operands: filtered}
	}
}

// substExpr rebuilds e with every Ident bound in subst replaced by its
// recorded path expression.
func substExpr(e ast.Expr, subst map[string]ast.Expr) ast.Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case ast.Ident:
		if v, ok := subst[n.Name]; ok {
			return v
		}
		return n
	case ast.ListExpr:
		return ast.ListExpr{Elems: substExprs(n.Elems, subst)}
	case ast.Splice:
		return ast.Splice{Parts: substExprs(n.Parts, subst)}
	case ast.Nth:
		return ast.Nth{List: substExpr(n.List, subst), Index: n.Index}
	case ast.SpawnExpr:
		return ast.SpawnExpr{Call: ast.Call{Scene: n.Call.Scene, Args: substExprs(n.Call.Args, subst)}}
	case ast.ArithExpr:
		return ast.ArithExpr{Op: n.Op, Lhs: substExpr(n.Lhs, subst), Rhs: substExpr(n.Rhs, subst)}
	case ast.CondExpr:
		return ast.CondExpr{Cond: substCond(n.Cond, subst)}
	default:
		return e
	}
}

func substExprs(in []ast.Expr, subst map[string]ast.Expr) []ast.Expr {
	out := make([]ast.Expr, len(in))
	for i, e := range in {
		out[i] = substExpr(e, subst)
	}
	return out
}

func substCond(c ast.Cond, subst map[string]ast.Expr) ast.Cond {
	switch n := c.(type) {
	case nil:
		return nil
	case ast.CHasLength:
		return ast.CHasLength{List: substExpr(n.List, subst), N: n.N}
	case ast.CCompare:
		return ast.CCompare{Op: n.Op, Lhs: substExpr(n.Lhs, subst), Rhs: substExpr(n.Rhs, subst)}
	case ast.CAnd:
		return ast.CAnd{Operands: substConds(n.Operands, subst)}
	case ast.COr:
		return ast.COr{Operands: substConds(n.Operands, subst)}
	case ast.CNot:
		return ast.CNot{Operand: substCond(n.Operand, subst)}
	default:
		return c
	}
}

func substConds(in []ast.Cond, subst map[string]ast.Expr) []ast.Cond {
	out := make([]ast.Cond, len(in))
	for i, c := range in {
		out[i] = substCond(c, subst)
	}
	return out
}

// substBlock rewrites every statement in b under subst, threading a local
// copy so a Let that shadows a captured name stops substituting it for the
// remainder of the block without affecting sibling branches.
func substBlock(b ast.Block, subst map[string]ast.Expr) ast.Block {
	local := make(map[string]ast.Expr, len(subst))
	for k, v := range subst {
		local[k] = v
	}
	out := make([]ast.Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		out[i] = substStmt(s, local)
		if lt, ok := s.(ast.Let); ok {
			delete(local, lt.Var)
		}
	}
	return ast.Block{Stmts: out}
}

// substStmt handles the statement kinds that can still appear once
// desugar_match runs (passes 1-4 have already eliminated Naked, Listen,
// Trap, and Weave; nested Match is eliminated by RewriteBlock's recursion
// before this function ever sees it).
func substStmt(s ast.Stmt, subst map[string]ast.Expr) ast.Stmt {
	switch n := s.(type) {
	case ast.Let:
		return ast.Let{Var: n.Var, Value: substExpr(n.Value, subst)}
	case ast.Discard:
		return ast.Discard{Value: substExpr(n.Value, subst)}
	case ast.If:
		return ast.If{
			Test:    substCond(n.Test, subst),
			Success: substBlock(n.Success, subst),
			Failure: substBlock(n.Failure, subst),
		}
	case ast.Recur:
		return ast.Recur{Call: ast.Call{Scene: n.Call.Scene, Args: substExprs(n.Call.Args, subst)}}
	case ast.SendMsg:
		return ast.SendMsg{Target: substExpr(n.Target, subst), Message: substExpr(n.Message, subst)}
	case ast.Trace:
		return ast.Trace{Value: substExpr(n.Value, subst)}
	case ast.Wait:
		return ast.Wait{Value: substExpr(n.Value, subst)}
	case ast.Arm:
		return ast.Arm{Target: n.Target, WithEnv: substExpr(n.WithEnv, subst), Blocking: n.Blocking}
	default:
		return s
	}
}
