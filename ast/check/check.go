// Package check implements the name & scope checker (spec §4.1): it
// validates scene definitions, argument counts, variable usage, and
// prelude restrictions against an already-qualified Program, accumulating
// every problem it finds rather than stopping at the first.
package check

import (
	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/diag"
)

// Result carries the non-fatal observations a check run makes in addition
// to any hard errors.
type Result struct {
	// Warnings holds shadowing warnings: "rebinding an unused variable"
	// (spec §4.1, variable-definition check).
	Warnings []string
}

// Check runs every check against prog, which must already have passed
// through qualify.Qualify. It returns every diagnostic found, not just the
// first (spec §4.1).
func Check(prog *ast.Program) (*Result, error) {
	var errs diag.Errors
	res := &Result{}

	arity, dupErrs := sceneArity(prog)
	errs = append(errs, dupErrs...)
	errs = append(errs, checkArgumentCounts(prog, arity)...)
	errs = append(errs, checkPreludeRestrictions(prog)...)

	varErrs, warnings := checkVariableDefinitions(prog)
	errs = append(errs, varErrs...)
	res.Warnings = warnings

	errs = append(errs, checkNestedWeaves(prog)...)

	return res, errs.AsError()
}
