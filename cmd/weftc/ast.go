package main

import (
	"fmt"
	"os"

	"github.com/weftlang/weft/ir"
	"gopkg.in/urfave/cli.v1"
)

func astCommand(ctx *cli.Context) error {
	path, err := requirePath(ctx)
	if err != nil {
		return err
	}

	prog, err := loadProgram(path)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	qualified, warnings, err := qualifyAndCheck(prog)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	desugared, err := desugarAll(qualified)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if !ctx.Bool(dumpIRFlag.Name) {
		fmt.Printf("%+v\n", desugared)
		return nil
	}

	irProg, err := ir.Translate(desugared)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	for _, lbl := range sortedLabels(irProg) {
		fmt.Printf("block %d:\n", lbl)
		b := irProg.Blocks[lbl]
		for _, op := range b.Ops {
			fmt.Printf("  %+v\n", op)
		}
		fmt.Printf("  exit: %+v\n", b.Exit)
	}
	return nil
}

func sortedLabels(prog *ir.Program) []ir.Label {
	out := make([]ir.Label, len(prog.Blocks))
	for i := range prog.Blocks {
		out[i] = ir.Label(i)
	}
	return out
}
