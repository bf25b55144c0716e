// Package desugar implements the five-pass desugaring pipeline of §4.3:
// naked-string coalescing, Listen → Trap + Wait, Trap lowering, Weave
// lowering, and Match lowering, run in that fixed order. Each pass
// preserves the semantics of the passes after it.
package desugar

import (
	"fmt"

	"github.com/weftlang/weft/ast"
)

// Pipeline runs all five passes over prog in order and asserts the §3.4
// invariant that no Listen, Trap, Weave, Match, or Naked statement
// survives. It mutates prog in place and returns it for chaining.
func Pipeline(prog *ast.Program) (*ast.Program, error) {
	if err := forEachBody(prog, func(b ast.Block) (ast.Block, error) {
		return Naked(b), nil
	}); err != nil {
		return nil, fmt.Errorf("desugar_naked: %w", err)
	}

	if err := forEachBody(prog, Listen); err != nil {
		return nil, fmt.Errorf("desugar_listen: %w", err)
	}

	if err := Trap(prog); err != nil {
		return nil, fmt.Errorf("desugar_trap: %w", err)
	}

	if err := Weave(prog); err != nil {
		return nil, fmt.Errorf("desugar_weave: %w", err)
	}

	if err := Match(prog); err != nil {
		return nil, fmt.Errorf("desugar_match: %w", err)
	}

	if err := assertFullyDesugared(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

func forEachBody(prog *ast.Program, f func(ast.Block) (ast.Block, error)) error {
	for mi := range prog.Modules {
		g, err := f(prog.Modules[mi].Module.Globals)
		if err != nil {
			return err
		}
		prog.Modules[mi].Module.Globals = g

		scenes := prog.Modules[mi].Module.Scenes
		for si := range scenes {
			b, err := f(scenes[si].Body)
			if err != nil {
				return err
			}
			scenes[si].Body = b
		}
	}
	return nil
}

// assertFullyDesugared walks every prelude, scene, and lambda body and
// panics-as-error on any remaining sugar statement — the §3.4 invariant
// that a desugaring bug should surface as an internal compiler error, not
// silently reach IR translation.
func assertFullyDesugared(prog *ast.Program) error {
	check := func(b ast.Block) error {
		return ast.Walk(b, func(s ast.Stmt) error {
			switch s.(type) {
			case ast.Listen, ast.Trap, ast.Weave, ast.Match, ast.Naked:
				return fmt.Errorf("internal error: %T survived desugaring", s)
			}
			return nil
		})
	}
	for _, me := range prog.Modules {
		if err := check(me.Module.Globals); err != nil {
			return err
		}
		for _, sc := range me.Module.Scenes {
			if err := check(sc.Body); err != nil {
				return err
			}
		}
	}
	for _, l := range prog.Lambdas {
		if err := check(l.Body); err != nil {
			return err
		}
	}
	return nil
}
