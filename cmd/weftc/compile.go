package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/ast/check"
	"github.com/weftlang/weft/ast/desugar"
	"github.com/weftlang/weft/ast/qualify"
)

func loadProgram(path string) (*ast.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()

	prog, err := ast.DecodeProgram(f)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return prog, nil
}

// qualifyAndCheck runs the qualification pass and the name/scope checker,
// returning the qualified tree and the checker's warnings for the caller to
// print.
func qualifyAndCheck(prog *ast.Program) (*ast.Program, []string, error) {
	qualified, err := qualify.Qualify(prog)
	if err != nil {
		return nil, nil, err
	}
	res, err := check.Check(qualified)
	if err != nil {
		return nil, nil, err
	}
	return qualified, res.Warnings, nil
}

func desugarAll(prog *ast.Program) (*ast.Program, error) {
	return desugar.Pipeline(prog)
}
