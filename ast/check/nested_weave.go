package check

import (
	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/diag"
)

// checkNestedWeaves forbids a Weave or Listen whose arm bodies contain,
// directly or through If/Trap/Match nesting, another Weave or Listen —
// both compile to a blocking Wait{Infinity} mediated through the shared
// host channel, and a nested one would deadlock (spec §9, "Weave nesting
// deadlock"; resolved here as a compile error per SPEC_FULL.md §9).
func checkNestedWeaves(prog *ast.Program) diag.Errors {
	var errs diag.Errors
	for _, me := range prog.Modules {
		for _, sc := range me.Module.Scenes {
			ctx := diag.Context{Module: me.Path, Scene: sc.Name.Name}
			checkNestedIn(sc.Body, false, ctx, &errs)
		}
	}
	return errs
}

func checkNestedIn(b ast.Block, insideWait bool, ctx diag.Context, errs *diag.Errors) {
	for _, s := range b.Stmts {
		switch n := s.(type) {
		case ast.If:
			checkNestedIn(n.Success, insideWait, ctx, errs)
			checkNestedIn(n.Failure, insideWait, ctx, errs)
		case ast.Trap:
			for _, a := range n.Arms {
				checkNestedIn(a.Body, insideWait, ctx, errs)
			}
		case ast.Match:
			for _, a := range n.Arms {
				checkNestedIn(a.Body, insideWait, ctx, errs)
			}
			checkNestedIn(n.OrElse, insideWait, ctx, errs)
		case ast.Listen:
			if insideWait {
				*errs = append(*errs, diag.NestedWeave{Context: ctx})
			}
			for _, a := range n.Arms {
				checkNestedIn(a.Body, true, ctx, errs)
			}
		case ast.Weave:
			if insideWait {
				*errs = append(*errs, diag.NestedWeave{Context: ctx})
			}
			for _, a := range n.Arms {
				checkNestedIn(a.Body, true, ctx, errs)
			}
		}
	}
}
