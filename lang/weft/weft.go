// Package weft provides utility functions and types that enable running a
// Story Language program without an embedder wiring together every
// compiler pass by hand.
package weft

import (
	"github.com/pkg/errors"
	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/ast/check"
	"github.com/weftlang/weft/ast/desugar"
	"github.com/weftlang/weft/ast/qualify"
	"github.com/weftlang/weft/bytecode"
	"github.com/weftlang/weft/ir"
)

// CompileResult carries a ready-to-load Program alongside the non-fatal
// warnings the checker surfaced along the way (spec §4.1's shadowing
// warnings).
type CompileResult struct {
	Program  *bytecode.Program
	Warnings []string
}

// Compile runs a parsed Program through qualification, checking, the
// desugaring pipeline, IR translation, and bytecode translation in one
// call, returning a Program ready to hand to vm.NewHost. It is the
// pipeline an embedder would otherwise assemble from qualify.Qualify,
// check.Check, desugar.Pipeline, ir.Translate, and bytecode.Translate
// individually.
func Compile(prog *ast.Program) (*CompileResult, error) {
	qualified, err := qualify.Qualify(prog)
	if err != nil {
		return nil, errors.Wrap(err, "qualify")
	}

	res, err := check.Check(qualified)
	if err != nil {
		return nil, errors.Wrap(err, "check")
	}

	desugared, err := desugar.Pipeline(qualified)
	if err != nil {
		return nil, errors.Wrap(err, "desugar")
	}

	irProg, err := ir.Translate(desugared)
	if err != nil {
		return nil, errors.Wrap(err, "translate to IR")
	}

	bc, err := bytecode.Translate(irProg)
	if err != nil {
		return nil, errors.Wrap(err, "translate to bytecode")
	}

	return &CompileResult{Program: bc, Warnings: res.Warnings}, nil
}
