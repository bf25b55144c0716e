package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/weftlang/weft/bytecode"
	"github.com/weftlang/weft/internal/errwriter"
	"github.com/weftlang/weft/lang/weft"
	"github.com/weftlang/weft/vm"
	"gopkg.in/urfave/cli.v1"
)

func runCommand(ctx *cli.Context) error {
	path, err := requirePath(ctx)
	if err != nil {
		return err
	}

	prog, err := loadProgram(path)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	result, err := weft.Compile(prog)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	h, err := vm.NewHost(result.Program)
	if err != nil {
		return cli.NewExitError(errors.Wrap(err, "starting host").Error(), 1)
	}

	args := make([]bytecode.Value, 0, len(ctx.IntSlice(argFlag.Name)))
	for _, n := range ctx.IntSlice(argFlag.Name) {
		args = append(args, bytecode.Int{V: int32(n)})
	}
	if _, err := h.Spawn(ctx.String(sceneFlag.Name), args); err != nil {
		return cli.NewExitError(errors.Wrap(err, "spawning scene").Error(), 1)
	}

	return driveHost(h)
}

// driveHost pumps Dispatch/Read until the main process terminates, prints
// every signal to the appropriate stream, and replies to Say/WaitingForInput
// so the process keeps making progress.
func driveHost(h *vm.Host) error {
	stdin := bufio.NewReader(os.Stdin)
	out := errwriter.New(os.Stdout)

	for {
		st := h.Dispatch(1.0)

		for {
			sig, ok := h.Read()
			if !ok {
				break
			}
			switch s := sig.(type) {
			case vm.SaySignal:
				fmt.Fprintln(out, s.Value)
				if err := h.Write(s.Token); err != nil {
					return cli.NewExitError(err.Error(), 1)
				}
			case vm.TraceSignal:
				fmt.Fprintln(os.Stderr, s.Value)
			case vm.ExitSignal:
				// nothing to print; MainState below reports the main
				// process's own termination.
			case vm.HcfSignal:
				fmt.Fprintln(os.Stderr, s.Err)
			}
		}
		if out.Err != nil {
			return cli.NewExitError(out.Err.Error(), 1)
		}

		switch st.Kind {
		case vm.MainSelfTerminated:
			return nil
		case vm.MainOnFire:
			return cli.NewExitError(st.Err.Error(), 1)
		case vm.MainWaitingForInput:
			choice, err := readMenuChoice(st.Menu, stdin)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			if err := h.Choose(choice); err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
		}
	}
}

// readMenuChoice renders menu as a numbered list and reads a single
// keystroke in raw mode, falling back to a line-buffered read (stdin) if
// raw mode isn't available on this platform.
func readMenuChoice(menu []string, stdin *bufio.Reader) (int, error) {
	for i, tag := range menu {
		fmt.Printf("%d) %s\n", i+1, tag)
	}

	restore, rawErr := setRawIO()
	if rawErr == nil {
		defer restore()
		var buf [1]byte
		for {
			if _, err := os.Stdin.Read(buf[:]); err != nil {
				return 0, err
			}
			if n := int(buf[0] - '1'); n >= 0 && n < len(menu) {
				return n, nil
			}
		}
	}

	for {
		line, err := stdin.ReadString('\n')
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(trimNewline(line))
		if err == nil && n >= 1 && n <= len(menu) {
			return n - 1, nil
		}
		fmt.Println("please enter a number from the list above")
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
