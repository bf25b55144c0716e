package desugar

import "github.com/weftlang/weft/ast"

var (
	atomMenuItem   = ast.AtomLit{Name: "MenuItem"}
	atomMenuEnd    = ast.AtomLit{Name: "MenuEnd"}
	atomLastResort = ast.AtomLit{Name: "LastResort"}
)

// Weave rewrites every Weave statement into: one If per arm sending its
// menu-item tag to the host, a trap matching the host's reply tag back to
// the arm's body, a MenuEnd send, and a blocking wait (§4.3 pass 4).
//
// desugar_trap (pass 3) has already run by the time this pass executes, so
// the reply trap this pass needs is lowered directly with lowerTrap rather
// than left as a bare Trap statement — otherwise the pass-3-eliminated
// Trap variant would reappear after pass 4 and violate the "no sugar
// survives desugaring" invariant (§3.4).
func Weave(prog *ast.Program) error {
	for mi := range prog.Modules {
		scenes := prog.Modules[mi].Module.Scenes
		for si := range scenes {
			body, err := desugarWeaveBlock(prog, scenes[si].Body)
			if err != nil {
				return err
			}
			scenes[si].Body = body
		}
	}
	// Lambdas produced by pass 3 (trap arm bodies) can themselves contain
	// Weave statements; lowering one here can append further lambdas via
	// lowerTrap, so the bound is re-checked each iteration.
	for li := 0; li < len(prog.Lambdas); li++ {
		body, err := desugarWeaveBlock(prog, prog.Lambdas[li].Body)
		if err != nil {
			return err
		}
		prog.Lambdas[li].Body = body
	}
	return nil
}

func desugarWeaveBlock(prog *ast.Program, b ast.Block) (ast.Block, error) {
	stmts, err := desugarWeaveStmts(prog, b.Stmts)
	if err != nil {
		return ast.Block{}, err
	}
	return ast.Block{Stmts: stmts}, nil
}

func desugarWeaveStmts(prog *ast.Program, stmts []ast.Stmt) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		child, err := desugarWeaveStmtChildren(prog, s)
		if err != nil {
			return nil, err
		}
		we, ok := child.(ast.Weave)
		if !ok {
			out = append(out, child)
			continue
		}
		lowered, err := lowerWeave(prog, we)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
	}
	return out, nil
}

func desugarWeaveStmtChildren(prog *ast.Program, s ast.Stmt) (ast.Stmt, error) {
	switch n := s.(type) {
	case ast.If:
		succ, err := desugarWeaveBlock(prog, n.Success)
		if err != nil {
			return nil, err
		}
		fail, err := desugarWeaveBlock(prog, n.Failure)
		if err != nil {
			return nil, err
		}
		return ast.If{Test: n.Test, Success: succ, Failure: fail}, nil
	case ast.Trap:
		arms, err := desugarWeaveTrapArms(prog, n.Arms)
		if err != nil {
			return nil, err
		}
		return ast.Trap{Label: n.Label, Arms: arms}, nil
	case ast.Weave:
		arms, err := desugarWeaveWeaveArms(prog, n.Arms)
		if err != nil {
			return nil, err
		}
		return ast.Weave{Label: n.Label, Arms: arms}, nil
	case ast.Match:
		arms, err := desugarWeaveMatchArms(prog, n.Arms)
		if err != nil {
			return nil, err
		}
		orElse, err := desugarWeaveBlock(prog, n.OrElse)
		if err != nil {
			return nil, err
		}
		return ast.Match{Value: n.Value, Arms: arms, OrElse: orElse}, nil
	default:
		return s, nil
	}
}

func desugarWeaveTrapArms(prog *ast.Program, arms []ast.TrapArm) ([]ast.TrapArm, error) {
	out := make([]ast.TrapArm, len(arms))
	for i, a := range arms {
		body, err := desugarWeaveBlock(prog, a.Body)
		if err != nil {
			return nil, err
		}
		out[i] = ast.TrapArm{Pattern: a.Pattern, Origin: a.Origin, Body: body}
	}
	return out, nil
}

func desugarWeaveWeaveArms(prog *ast.Program, arms []ast.WeaveArm) ([]ast.WeaveArm, error) {
	out := make([]ast.WeaveArm, len(arms))
	for i, a := range arms {
		body, err := desugarWeaveBlock(prog, a.Body)
		if err != nil {
			return nil, err
		}
		out[i] = ast.WeaveArm{Guard: a.Guard, Message: a.Message, Body: body}
	}
	return out, nil
}

func desugarWeaveMatchArms(prog *ast.Program, arms []ast.MatchArm) ([]ast.MatchArm, error) {
	out := make([]ast.MatchArm, len(arms))
	for i, a := range arms {
		body, err := desugarWeaveBlock(prog, a.Body)
		if err != nil {
			return nil, err
		}
		out[i] = ast.MatchArm{Pattern: a.Pattern, Guard: a.Guard, Body: body}
	}
	return out, nil
}

func lowerWeave(prog *ast.Program, we ast.Weave) ([]ast.Stmt, error) {
	out := make([]ast.Stmt, 0, len(we.Arms)+3)
	trapArms := make([]ast.TrapArm, len(we.Arms))

	for i, a := range we.Arms {
		var tag ast.Expr = ast.IntLit{Value: int32(i)}
		test := a.Guard
		if _, lastResort := a.Guard.(ast.CLastResort); lastResort {
			tag = atomLastResort
			test = ast.CTrue{}
		}
		out = append(out, ast.If{
			Test: test,
			Success: ast.Block{Stmts: []ast.Stmt{
				ast.SendMsg{
					Target:  ast.PidZero{},
					Message: ast.ListExpr{Elems: []ast.Expr{atomMenuItem, tag, a.Message}},
				},
			}},
			Failure: ast.Block{},
		})
		trapArms[i] = ast.TrapArm{
			Pattern: ast.PList{Elems: []ast.Pattern{
				ast.PMatch{Value: atomMenuItem},
				ast.PMatch{Value: tag},
			}},
			Origin: ast.PMatch{Value: ast.PidZero{}},
			Body:   a.Body,
		}
	}

	// The reply trap installs non-blocking, after every arm's If: the
	// MenuEnd marker and the trailing Wait still follow it before the
	// process actually parks (§4.3 pass 4). A blocking Arm here (as listen
	// uses) would park as soon as the trap is armed, stranding the MenuEnd
	// send and the Wait itself.
	out = append(out,
		lowerTrap(prog, ast.Trap{Label: we.Label, Arms: trapArms}, false),
		ast.SendMsg{Target: ast.PidZero{}, Message: ast.ListExpr{Elems: []ast.Expr{atomMenuEnd}}},
		ast.Wait{Value: ast.InfinityExpr{}},
	)
	return out, nil
}
