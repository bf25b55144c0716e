package main

import (
	"fmt"
	"os"

	"github.com/weftlang/weft/bytecode"
	"github.com/weftlang/weft/ir"
	"gopkg.in/urfave/cli.v1"
)

func checkCommand(ctx *cli.Context) error {
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

	irProg, err := ir.Translate(desugared)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if _, err := bytecode.Translate(irProg); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	fmt.Println("ok")
	return nil
}
