package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"
)

var dumpIRFlag = cli.BoolFlag{
	Name:  "dump-ir",
	Usage: "translate to IR and print that instead of the desugared AST",
}

var sceneFlag = cli.StringFlag{
	Name:  "scene",
	Usage: "scene to spawn as the main process",
	Value: "start",
}

var argFlag = cli.IntSliceFlag{
	Name:  "arg",
	Usage: "integer argument to pass to the spawned scene (repeatable)",
}

func main() {
	app := cli.NewApp()
	app.Name = "weftc"
	app.Usage = "compile and run Story Language programs"
	app.Commands = []cli.Command{
		{
			Name:      "ast",
			Usage:     "dump a compiled program's AST or IR",
			ArgsUsage: "path.wast",
			Flags:     []cli.Flag{dumpIRFlag},
			Action:    astCommand,
		},
		{
			Name:      "check",
			Usage:     "run the full pipeline and report compile errors",
			ArgsUsage: "path.wast",
			Action:    checkCommand,
		},
		{
			Name:      "run",
			Usage:     "compile and run a program to a terminal",
			ArgsUsage: "path.wast",
			Flags:     []cli.Flag{sceneFlag, argFlag},
			Action:    runCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func requirePath(ctx *cli.Context) (string, error) {
	path := ctx.Args().First()
	if path == "" {
		return "", cli.NewExitError("missing path.wast argument", 1)
	}
	return path, nil
}
