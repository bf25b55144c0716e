package check

import (
	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/diag"
)

// sceneArity collects every scene definition into a map keyed by qualified
// name, recording its declared arity, and reports SceneWasRedefined for any
// duplicate (spec §4.1).
func sceneArity(prog *ast.Program) (map[string]int, diag.Errors) {
	arity := make(map[string]int)
	var errs diag.Errors
	for _, me := range prog.Modules {
		ctx := diag.Context{Module: me.Path}
		for _, sc := range me.Module.Scenes {
			key := sc.Name.Key()
			if _, dup := arity[key]; dup {
				errs = append(errs, diag.SceneWasRedefined{Context: ctx, Name: sc.Name.Name})
				continue
			}
			arity[key] = len(sc.Args)
		}
	}
	return arity, errs
}

// checkArgumentCounts verifies that every scene call (Recur or a Spawn
// expression anywhere in a scene body) supplies exactly the callee's
// declared number of arguments (spec §4.1, §8.1).
func checkArgumentCounts(prog *ast.Program, arity map[string]int) diag.Errors {
	var errs diag.Errors
	for _, me := range prog.Modules {
		for _, sc := range me.Module.Scenes {
			ctx := diag.Context{Module: me.Path, Scene: sc.Name.Name}
			checkCallsInBlock(sc.Body, me.Path, ctx, arity, &errs)
		}
	}
	return errs
}

func checkCallsInBlock(b ast.Block, mod ast.Modpath, ctx diag.Context, arity map[string]int, errs *diag.Errors) {
	ast.Walk(b, func(s ast.Stmt) error {
		checkStmtCalls(s, mod, ctx, arity, errs)
		return nil
	})
}

func checkStmtCalls(s ast.Stmt, mod ast.Modpath, ctx diag.Context, arity map[string]int, errs *diag.Errors) {
	switch n := s.(type) {
	case ast.Recur:
		checkCall(n.Call, mod, ctx, arity, errs)
		for _, a := range n.Call.Args {
			checkExprCalls(a, mod, ctx, arity, errs)
		}
	case ast.Let:
		checkExprCalls(n.Value, mod, ctx, arity, errs)
	case ast.Discard:
		checkExprCalls(n.Value, mod, ctx, arity, errs)
	case ast.SendMsg:
		checkExprCalls(n.Target, mod, ctx, arity, errs)
		checkExprCalls(n.Message, mod, ctx, arity, errs)
	case ast.Trace:
		checkExprCalls(n.Value, mod, ctx, arity, errs)
	case ast.Wait:
		checkExprCalls(n.Value, mod, ctx, arity, errs)
	case ast.Arm:
		checkExprCalls(n.WithEnv, mod, ctx, arity, errs)
	case ast.Naked:
		checkExprCalls(n.Target, mod, ctx, arity, errs)
		for _, t := range n.Text {
			checkExprCalls(t, mod, ctx, arity, errs)
		}
	case ast.If:
		checkExprCalls(ast.CondExpr{Cond: n.Test}, mod, ctx, arity, errs)
	case ast.Match:
		checkExprCalls(n.Value, mod, ctx, arity, errs)
		for _, a := range n.Arms {
			checkExprCalls(ast.CondExpr{Cond: a.Guard}, mod, ctx, arity, errs)
		}
	case ast.Weave:
		for _, a := range n.Arms {
			checkExprCalls(ast.CondExpr{Cond: a.Guard}, mod, ctx, arity, errs)
			checkExprCalls(a.Message, mod, ctx, arity, errs)
		}
	}
}

func checkExprCalls(e ast.Expr, mod ast.Modpath, ctx diag.Context, arity map[string]int, errs *diag.Errors) {
	for _, call := range ast.Calls(e) {
		checkCall(call, mod, ctx, arity, errs)
	}
}

func checkCall(call ast.Call, mod ast.Modpath, ctx diag.Context, arity map[string]int, errs *diag.Errors) {
	key := resolveSceneKey(call.Scene, mod)
	wanted, ok := arity[key]
	if !ok {
		*errs = append(*errs, diag.NoSuchScene{Context: ctx, Name: call.Scene.Name})
		return
	}
	if got := len(call.Args); got != wanted {
		*errs = append(*errs, diag.WrongNumberOfArgs{Context: ctx, Scene: call.Scene.Name, Wanted: wanted, Got: got})
	}
}

func resolveSceneKey(name ast.SceneName, currentModule ast.Modpath) string {
	if len(name.InModule) == 0 {
		name.InModule = currentModule
	}
	name.Qualified = true
	return name.Key()
}
