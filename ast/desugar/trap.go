package desugar

import "github.com/weftlang/weft/ast"

// Trap rewrites every Trap statement in prog into a synthesized lambda
// (appended to prog.Lambdas) plus an Arm installing it (§4.3 pass 3). A
// Trap immediately followed in the same block by Wait{Infinity} — the
// shape desugar_listen produces — yields a blocking Arm; a standalone
// Trap yields a non-blocking one.
func Trap(prog *ast.Program) error {
	for mi := range prog.Modules {
		scenes := prog.Modules[mi].Module.Scenes
		for si := range scenes {
			body, err := desugarTrapBlock(prog, scenes[si].Body)
			if err != nil {
				return err
			}
			scenes[si].Body = body
		}
	}
	// Re-checked each iteration: lowering an arm with a nested Trap can
	// append further lambdas that themselves need lowering.
	for li := 0; li < len(prog.Lambdas); li++ {
		body, err := desugarTrapBlock(prog, prog.Lambdas[li].Body)
		if err != nil {
			return err
		}
		prog.Lambdas[li].Body = body
	}
	return nil
}

func desugarTrapBlock(prog *ast.Program, b ast.Block) (ast.Block, error) {
	stmts, err := desugarTrapStmts(prog, b.Stmts)
	if err != nil {
		return ast.Block{}, err
	}
	return ast.Block{Stmts: stmts}, nil
}

func desugarTrapStmts(prog *ast.Program, stmts []ast.Stmt) ([]ast.Stmt, error) {
	recursed := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		r, err := desugarTrapStmtChildren(prog, s)
		if err != nil {
			return nil, err
		}
		recursed[i] = r
	}
	out := make([]ast.Stmt, 0, len(recursed))
	for i := 0; i < len(recursed); i++ {
		tr, ok := recursed[i].(ast.Trap)
		if !ok {
			out = append(out, recursed[i])
			continue
		}
		blocking := false
		if i+1 < len(recursed) {
			if w, ok := recursed[i+1].(ast.Wait); ok {
				if _, isInf := w.Value.(ast.InfinityExpr); isInf {
					blocking = true
				}
			}
		}
		out = append(out, lowerTrap(prog, tr, blocking))
	}
	return out, nil
}

func desugarTrapStmtChildren(prog *ast.Program, s ast.Stmt) (ast.Stmt, error) {
	switch n := s.(type) {
	case ast.If:
		succ, err := desugarTrapBlock(prog, n.Success)
		if err != nil {
			return nil, err
		}
		fail, err := desugarTrapBlock(prog, n.Failure)
		if err != nil {
			return nil, err
		}
		return ast.If{Test: n.Test, Success: succ, Failure: fail}, nil
	case ast.Trap:
		arms, err := desugarTrapArms(prog, n.Arms)
		if err != nil {
			return nil, err
		}
		return ast.Trap{Label: n.Label, Arms: arms}, nil
	case ast.Weave:
		arms, err := desugarTrapWeaveArms(prog, n.Arms)
		if err != nil {
			return nil, err
		}
		return ast.Weave{Label: n.Label, Arms: arms}, nil
	case ast.Match:
		arms, err := desugarTrapMatchArms(prog, n.Arms)
		if err != nil {
			return nil, err
		}
		orElse, err := desugarTrapBlock(prog, n.OrElse)
		if err != nil {
			return nil, err
		}
		return ast.Match{Value: n.Value, Arms: arms, OrElse: orElse}, nil
	default:
		return s, nil
	}
}

func desugarTrapArms(prog *ast.Program, arms []ast.TrapArm) ([]ast.TrapArm, error) {
	out := make([]ast.TrapArm, len(arms))
	for i, a := range arms {
		body, err := desugarTrapBlock(prog, a.Body)
		if err != nil {
			return nil, err
		}
		out[i] = ast.TrapArm{Pattern: a.Pattern, Origin: a.Origin, Body: body}
	}
	return out, nil
}

func desugarTrapWeaveArms(prog *ast.Program, arms []ast.WeaveArm) ([]ast.WeaveArm, error) {
	out := make([]ast.WeaveArm, len(arms))
	for i, a := range arms {
		body, err := desugarTrapBlock(prog, a.Body)
		if err != nil {
			return nil, err
		}
		out[i] = ast.WeaveArm{Guard: a.Guard, Message: a.Message, Body: body}
	}
	return out, nil
}

func desugarTrapMatchArms(prog *ast.Program, arms []ast.MatchArm) ([]ast.MatchArm, error) {
	out := make([]ast.MatchArm, len(arms))
	for i, a := range arms {
		body, err := desugarTrapBlock(prog, a.Body)
		if err != nil {
			return nil, err
		}
		out[i] = ast.MatchArm{Pattern: a.Pattern, Guard: a.Guard, Body: body}
	}
	return out, nil
}

// lowerTrap builds the synthesized lambda for tr, appends it to
// prog.Lambdas, and returns the Arm statement that replaces tr in place.
func lowerTrap(prog *ast.Program, tr ast.Trap, blocking bool) ast.Stmt {
	matchArms := make([]ast.MatchArm, len(tr.Arms))
	for i, a := range tr.Arms {
		matchArms[i] = ast.MatchArm{
			Pattern: ast.PList{Elems: []ast.Pattern{a.Pattern, a.Origin}},
			Guard:   ast.CTrue{},
			Body:    a.Body,
		}
	}
	lambdaBody := ast.Block{Stmts: []ast.Stmt{
		ast.Match{
			Value:  ast.ListExpr{Elems: []ast.Expr{ast.ArgExpr{Index: 0}, ast.ArgExpr{Index: 1}}},
			Arms:   matchArms,
			OrElse: ast.Block{Stmts: []ast.Stmt{ast.Return{Result: false}}},
		},
	}}

	captures := freeVars(lambdaBody)
	prog.Lambdas = append(prog.Lambdas, ast.Lambda{
		Label:    tr.Label,
		Captures: captures,
		Body:     lambdaBody,
	})

	env := make([]ast.Expr, len(captures))
	for i, name := range captures {
		env[i] = ast.Ident{Name: name}
	}
	return ast.Arm{Target: tr.Label, WithEnv: ast.ListExpr{Elems: env}, Blocking: blocking}
}
