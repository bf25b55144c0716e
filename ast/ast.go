// Package ast defines the surface tree produced by a Story Language parser.
//
// The lexer/parser that actually produces a *Program is outside the scope of
// this repository (see spec §1, §6.1): callers either build a Program
// directly with this package's types, or decode one written by a prior
// compilation with Encode/DecodeProgram.
package ast

import (
	"encoding/gob"
	"fmt"
	"strings"
)

// Modpath is an ordered list of lower_case path components identifying a
// module, e.g. {"town", "tavern"} for a module stored at town/tavern.story.
type Modpath []string

// String renders the path the way module-qualified names are displayed.
func (m Modpath) String() string {
	return strings.Join(m, "/")
}

// Equal reports whether two module paths name the same module.
func (m Modpath) Equal(o Modpath) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}
	return true
}

// Program is an ordered collection of (module path, Module) pairs, plus the
// trap lambdas synthesized by desugar_trap (§4.3 pass 3) out of every Trap
// statement the program originally contained.
type Program struct {
	Modules []ModuleEntry
	Lambdas []Lambda
}

// Lambda is a synthesized trap handler: a Match on the incoming
// [message, sender] pair, with the set of outer identifiers its body reads
// recorded in Captures (§4.3 pass 3). Label is both its installation point
// and the key used to find its entry block at IR translation time (§4.4).
type Lambda struct {
	Label    Label
	Captures []string
	Body     Block
}

// ModuleEntry pairs a Module with the path it was loaded from.
type ModuleEntry struct {
	Path   Modpath
	Module Module
}

// Module is a globals block (the prelude) plus an ordered list of Scenes.
type Module struct {
	Globals Block
	Scenes  []Scene
}

// SceneName is a scene's name, optionally qualified with the module that
// defines it. Qualified is false until the qualification pass (§4.2) runs.
type SceneName struct {
	Name      string
	InModule  Modpath
	Qualified bool
}

// Key returns a string uniquely identifying a qualified scene name. Calling
// it on an unqualified SceneName is a programming error.
func (s SceneName) Key() string {
	if !s.Qualified {
		panic("internal error: Key() on unqualified SceneName")
	}
	return s.InModule.String() + "::" + s.Name
}

func (s SceneName) String() string {
	if s.Qualified {
		return s.Key()
	}
	return s.Name
}

// Scene is a named, argumented function: the unit of tail-callable
// narrative flow.
type Scene struct {
	Name SceneName
	Args []string
	Body Block
}

// Block is an ordered list of statements.
type Block struct {
	Stmts []Stmt
}

// LabelKind distinguishes the three label forms of §3.1.
type LabelKind int

const (
	// LabelLocal is an unqualified name written by the programmer.
	LabelLocal LabelKind = iota
	// LabelAnonymous stands for a label with no written name; the
	// qualification pass (§4.2) replaces it with a generated name.
	LabelAnonymous
	// LabelQualified carries the owning scene alongside its name. Every
	// label is Qualified after the qualification pass runs (invariant,
	// §3.4).
	LabelQualified
)

// Label names a trap installation point (§3.1).
type Label struct {
	Kind  LabelKind
	Name  string
	Scene SceneName // valid only when Kind == LabelQualified
}

// Key returns the global string key for a qualified label. Calling it on a
// label that isn't yet Qualified is a programming error.
func (l Label) Key() string {
	if l.Kind != LabelQualified {
		panic("internal error: Key() on unqualified Label")
	}
	return l.Scene.Key() + "#" + l.Name
}

func (l Label) String() string {
	switch l.Kind {
	case LabelQualified:
		return l.Key()
	case LabelAnonymous:
		return "<anonymous>"
	default:
		return l.Name
	}
}

// Call packages a scene reference with its argument expressions.
type Call struct {
	Scene SceneName
	Args  []Expr
}

// CompareOp is the comparison operator of a Compare condition.
type CompareOp int

const (
	Eql CompareOp = iota
	Gt
	Lt
	Gte
	Lte
)

func (op CompareOp) String() string {
	switch op {
	case Eql:
		return "=="
	case Gt:
		return ">"
	case Lt:
		return "<"
	case Gte:
		return ">="
	case Lte:
		return "<="
	default:
		return fmt.Sprintf("CompareOp(%d)", int(op))
	}
}

// ArithOp is the operator of an arithmetic expression tree.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Roll
)

func (op ArithOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Roll:
		return "roll"
	default:
		return fmt.Sprintf("ArithOp(%d)", int(op))
	}
}

func init() {
	gob.Register(Modpath{})
}
