// Package diag defines the compile-time diagnostic types shared by the
// qualification pass, the name & scope checker, the IR translator, and the
// bytecode translator (spec §7, "Build errors").
//
// Every diagnostic carries a Context (module path, and scene name if the
// problem was found inside one) so that a compile run can report every
// problem it finds, not just the first (spec §4.1: "accumulates errors with
// contextual path ... and returns the full list").
package diag

import (
	"fmt"
	"strings"

	"github.com/weftlang/weft/ast"
)

// Context locates a diagnostic within a Program.
type Context struct {
	Module ast.Modpath
	Scene  string // empty when the problem is in a module's prelude
}

func (c Context) String() string {
	if c.Scene == "" {
		return fmt.Sprintf("%s (prelude)", c.Module)
	}
	return fmt.Sprintf("%s::%s", c.Module, c.Scene)
}

// Diagnostic is implemented by every error type in this package.
type Diagnostic interface {
	error
	Ctx() Context
}

// NoSuchModule reports a reference to an undefined module.
type NoSuchModule struct {
	Context Context
	Path    ast.Modpath
}

func (e NoSuchModule) Ctx() Context { return e.Context }
func (e NoSuchModule) Error() string {
	return fmt.Sprintf("%s: no such module %q", e.Context, e.Path)
}

// NoSuchScene reports a call to an undefined scene.
type NoSuchScene struct {
	Context Context
	Name    string
}

func (e NoSuchScene) Ctx() Context { return e.Context }
func (e NoSuchScene) Error() string {
	return fmt.Sprintf("%s: no such scene %q", e.Context, e.Name)
}

// NoSuchLabel reports a Disarm (or trap reference) naming an unknown label.
type NoSuchLabel struct {
	Context Context
	Name    string
}

func (e NoSuchLabel) Ctx() Context { return e.Context }
func (e NoSuchLabel) Error() string {
	return fmt.Sprintf("%s: no such label %q", e.Context, e.Name)
}

// NoSuchVar reports evaluation of an unbound identifier.
type NoSuchVar struct {
	Context Context
	Name    string
}

func (e NoSuchVar) Ctx() Context { return e.Context }
func (e NoSuchVar) Error() string {
	return fmt.Sprintf("%s: no such variable %q", e.Context, e.Name)
}

// InvalidNumber reports a malformed integer literal.
type InvalidNumber struct {
	Context Context
	Text    string
}

func (e InvalidNumber) Ctx() Context { return e.Context }
func (e InvalidNumber) Error() string {
	return fmt.Sprintf("%s: invalid number %q", e.Context, e.Text)
}

// InvalidAssignToSelf reports an attempt to bind a new value to Self.
type InvalidAssignToSelf struct{ Context Context }

func (e InvalidAssignToSelf) Ctx() Context { return e.Context }
func (e InvalidAssignToSelf) Error() string {
	return fmt.Sprintf("%s: cannot assign to Self", e.Context)
}

// InvalidAssignToHole reports an attempt to use the result of binding "_".
type InvalidAssignToHole struct{ Context Context }

func (e InvalidAssignToHole) Ctx() Context { return e.Context }
func (e InvalidAssignToHole) Error() string {
	return fmt.Sprintf("%s: cannot assign to the hole (_)", e.Context)
}

// SceneWasRedefined reports two scene definitions with the same qualified
// name.
type SceneWasRedefined struct {
	Context Context
	Name    string
}

func (e SceneWasRedefined) Ctx() Context { return e.Context }
func (e SceneWasRedefined) Error() string {
	return fmt.Sprintf("%s: scene %q was redefined", e.Context, e.Name)
}

// SceneWasOverqualified reports a scene definition whose declared name
// already carries a module path.
type SceneWasOverqualified struct {
	Context Context
	Name    string
}

func (e SceneWasOverqualified) Ctx() Context { return e.Context }
func (e SceneWasOverqualified) Error() string {
	return fmt.Sprintf("%s: scene %q was overqualified", e.Context, e.Name)
}

// IoInPrelude reports I/O (SendMsg, Trace, Wait, Weave) in a prelude.
type IoInPrelude struct{ Context Context }

func (e IoInPrelude) Ctx() Context { return e.Context }
func (e IoInPrelude) Error() string {
	return fmt.Sprintf("%s: prelude performs IO", e.Context)
}

// SelfInPrelude reports use of PidOfSelf before any process exists.
type SelfInPrelude struct{ Context Context }

func (e SelfInPrelude) Ctx() Context { return e.Context }
func (e SelfInPrelude) Error() string {
	return fmt.Sprintf("%s: prelude references Self", e.Context)
}

// LabelInPrelude reports a trap install/disarm in a prelude.
type LabelInPrelude struct {
	Context Context
	Name    string
}

func (e LabelInPrelude) Ctx() Context { return e.Context }
func (e LabelInPrelude) Error() string {
	return fmt.Sprintf("%s: prelude installs/disarms label %q", e.Context, e.Name)
}

// LabelRedefined reports two Arm statements racing to define the same
// anonymous label within one scene (an internal naming collision).
type LabelRedefined struct {
	Context Context
	Name    string
}

func (e LabelRedefined) Ctx() Context { return e.Context }
func (e LabelRedefined) Error() string {
	return fmt.Sprintf("%s: label %q was redefined", e.Context, e.Name)
}

// WrongNumberOfArgs reports a scene/trap call whose argument count does not
// match the callee's declared arity.
type WrongNumberOfArgs struct {
	Context Context
	Scene   string
	Wanted  int
	Got     int
}

func (e WrongNumberOfArgs) Ctx() Context { return e.Context }
func (e WrongNumberOfArgs) Error() string {
	return fmt.Sprintf("%s: %q wants %d argument(s), got %d", e.Context, e.Scene, e.Wanted, e.Got)
}

// NestedWeave reports a Weave or Listen nested (across an intervening
// Wait{Infinity}) inside another, which would deadlock on the shared host
// channel (spec §9, "Weave nesting deadlock").
type NestedWeave struct{ Context Context }

func (e NestedWeave) Ctx() Context { return e.Context }
func (e NestedWeave) Error() string {
	return fmt.Sprintf("%s: weave/listen nested inside another weave/listen", e.Context)
}

// Errors aggregates every diagnostic found during a compile phase so that a
// single error return still carries every problem (spec §4.1, §7).
type Errors []error

func (e Errors) Error() string {
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// AsError returns nil if e is empty, else e itself (so callers can write
// `return errs.AsError()` and get a nil error interface on success).
func (e Errors) AsError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
