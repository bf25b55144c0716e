// Command weftc is a showcase for the packages under github.com/weftlang/weft
// and the external interface surface §6.4 of the language specification
// describes: an AST/IR dump, a compile-only checker, and a demo runner.
//
// Usage:
//
//	weftc ast path.wast [--dump-ir]
//	weftc check path.wast
//	weftc run path.wast --scene start [--arg N]...
//
// ast: loads a *.wast file (see ast.DecodeProgram), runs it through
// qualification, checking, and desugaring, and prints the resulting tree.
// With --dump-ir, IR translation also runs and the IR blocks are printed
// instead.
//
// check: runs the full pipeline through bytecode translation and discards
// the result. Exit code 0 on success, 1 if any phase reports errors.
//
// run: compiles path.wast, spawns --scene as the main process with the
// given --arg integers as its argument list, and drives the host I/O loop
// to a terminal. Say tokens are printed and immediately acknowledged,
// WaitingForInput menus are rendered as a numbered list and read via a
// single raw keystroke, Trace signals go to stderr, and a fatal process
// error is printed before a non-zero exit.
package main
