package desugar

import "github.com/weftlang/weft/ast"

// Naked coalesces consecutive Naked statements targeting the host channel
// into a single SendMsg, per spec §4.3 pass 1: "Consecutive Naked
// statements whose target is the host channel (PidZero) are concatenated
// into a single output line ... A run ends at the first Naked with a
// non-host target or at any non-Naked statement."
//
// A Naked statement with a non-host target never coalesces with its
// neighbors; it becomes its own SendMsg.
func Naked(b ast.Block) ast.Block {
	return naked(b)
}

func naked(b ast.Block) ast.Block {
	return ast.Block{Stmts: coalesceNakedRuns(recurseNaked(b.Stmts))}
}

func recurseNaked(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = nakedStmtChildren(s)
	}
	return out
}

func nakedStmtChildren(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case ast.If:
		return ast.If{Test: n.Test, Success: naked(n.Success), Failure: naked(n.Failure)}
	case ast.Listen:
		return ast.Listen{Label: n.Label, Arms: nakedTrapArms(n.Arms)}
	case ast.Trap:
		return ast.Trap{Label: n.Label, Arms: nakedTrapArms(n.Arms)}
	case ast.Weave:
		return ast.Weave{Label: n.Label, Arms: nakedWeaveArms(n.Arms)}
	case ast.Match:
		return ast.Match{Value: n.Value, Arms: nakedMatchArms(n.Arms), OrElse: naked(n.OrElse)}
	default:
		return s
	}
}

func nakedTrapArms(arms []ast.TrapArm) []ast.TrapArm {
	out := make([]ast.TrapArm, len(arms))
	for i, a := range arms {
		out[i] = ast.TrapArm{Pattern: a.Pattern, Origin: a.Origin, Body: naked(a.Body)}
	}
	return out
}

func nakedWeaveArms(arms []ast.WeaveArm) []ast.WeaveArm {
	out := make([]ast.WeaveArm, len(arms))
	for i, a := range arms {
		out[i] = ast.WeaveArm{Guard: a.Guard, Message: a.Message, Body: naked(a.Body)}
	}
	return out
}

func nakedMatchArms(arms []ast.MatchArm) []ast.MatchArm {
	out := make([]ast.MatchArm, len(arms))
	for i, a := range arms {
		out[i] = ast.MatchArm{Pattern: a.Pattern, Guard: a.Guard, Body: naked(a.Body)}
	}
	return out
}

func isPidZero(e ast.Expr) bool {
	_, ok := e.(ast.PidZero)
	return ok
}

func coalesceNakedRuns(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	i := 0
	for i < len(stmts) {
		n, ok := stmts[i].(ast.Naked)
		if !ok {
			out = append(out, stmts[i])
			i++
			continue
		}
		if !isPidZero(n.Target) {
			out = append(out, ast.SendMsg{Target: n.Target, Message: ast.Splice{Parts: n.Text}})
			i++
			continue
		}
		var parts []ast.Expr
		j := i
		for j < len(stmts) {
			run, ok := stmts[j].(ast.Naked)
			if !ok || !isPidZero(run.Target) {
				break
			}
			parts = append(parts, run.Text...)
			j++
		}
		out = append(out, ast.SendMsg{Target: ast.PidZero{}, Message: ast.Splice{Parts: parts}})
		i = j
	}
	return out
}
