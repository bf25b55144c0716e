// Package qualify implements the qualification pass (spec §4.2): it
// rewrites every Label to Qualified and gives every SceneName its defining
// module path. After Qualify runs, invariant §3.4 holds: no Label::Local or
// Label::Anonymous remains anywhere in the tree.
package qualify

import (
	"fmt"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/diag"
)

// counter hands out per-scene sequence numbers for anonymous labels,
// producing names of the form "anonymous_label%<hex>" (spec §4.2).
type counter struct{ n int }

func (c *counter) next() string {
	name := fmt.Sprintf("anonymous_label%%%x", c.n)
	c.n++
	return name
}

// Qualify returns a new Program (the input is left untouched) with every
// scene name and label qualified. It also surfaces diag.SceneWasOverqualified
// for any scene declaration that already names a module path in source,
// since that condition is only observable during this pass's walk.
func Qualify(prog *ast.Program) (*ast.Program, error) {
	out, err := prog.Clone()
	if err != nil {
		panic("internal error: qualify: " + err.Error())
	}

	var errs diag.Errors
	for mi := range out.Modules {
		me := &out.Modules[mi]
		ctx := diag.Context{Module: me.Path}

		for si := range me.Module.Scenes {
			sc := &me.Module.Scenes[si]
			if sc.Name.Qualified || len(sc.Name.InModule) != 0 {
				errs = append(errs, diag.SceneWasOverqualified{
					Context: ctx,
					Name:    sc.Name.Name,
				})
			}
			sc.Name.InModule = me.Path
			sc.Name.Qualified = true

			sctx := ctx
			sctx.Scene = sc.Name.Name
			c := &counter{}
			body, berr := qualifyBlock(sc.Body, sc.Name, c)
			if berr != nil {
				errs = append(errs, berr)
				continue
			}
			sc.Body = body
		}
	}
	return out, errs.AsError()
}

func qualifyBlock(b ast.Block, scene ast.SceneName, c *counter) (ast.Block, error) {
	return ast.RewriteBlock(b, func(s ast.Stmt) ([]ast.Stmt, error) {
		switch n := s.(type) {
		case ast.Arm:
			return []ast.Stmt{ast.Arm{Target: qualifyLabel(n.Target, scene, c), WithEnv: n.WithEnv, Blocking: n.Blocking}}, nil
		case ast.Disarm:
			return []ast.Stmt{ast.Disarm{Target: qualifyLabel(n.Target, scene, c)}}, nil
		case ast.Listen:
			return []ast.Stmt{ast.Listen{Label: qualifyLabel(n.Label, scene, c), Arms: n.Arms}}, nil
		case ast.Trap:
			return []ast.Stmt{ast.Trap{Label: qualifyLabel(n.Label, scene, c), Arms: n.Arms}}, nil
		case ast.Weave:
			return []ast.Stmt{ast.Weave{Label: qualifyLabel(n.Label, scene, c), Arms: n.Arms}}, nil
		case ast.Recur:
			call := n.Call
			if len(call.Scene.InModule) == 0 {
				call.Scene.InModule = scene.InModule
			}
			call.Scene.Qualified = true
			return []ast.Stmt{ast.Recur{Call: call}}, nil
		default:
			return []ast.Stmt{s}, nil
		}
	})
}

func qualifyLabel(l ast.Label, scene ast.SceneName, c *counter) ast.Label {
	switch l.Kind {
	case ast.LabelQualified:
		return l
	case ast.LabelAnonymous:
		return ast.Label{Kind: ast.LabelQualified, Name: c.next(), Scene: scene}
	default: // ast.LabelLocal
		return ast.Label{Kind: ast.LabelQualified, Name: l.Name, Scene: scene}
	}
}
