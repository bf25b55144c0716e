package ast

import "encoding/gob"

// Stmt is the surface statement sum type (§3.1).
type Stmt interface {
	stmtNode()
}

// Empty does nothing.
type Empty struct{}

// Let binds the value of an expression to a fresh (or shadowing) variable.
type Let struct {
	Var   string
	Value Expr
}

// Discard evaluates an expression and drops its result.
type Discard struct {
	Value Expr
}

// If runs Success if Test holds, Failure otherwise.
type If struct {
	Test    Cond
	Success Block
	Failure Block
}

// Recur tail-calls another scene, replacing the current call frame.
type Recur struct {
	Call Call
}

// Return exits the current trap/scene invocation. Result distinguishes a
// successful match (true) from a rejected one that should fall through to
// the next installed trap (false, §4.6.4).
type Return struct {
	Result bool
}

// SendMsg enqueues Message for delivery to Target.
type SendMsg struct {
	Target  Expr
	Message Expr
}

// Trace emits a diagnostic signal carrying Value to the host.
type Trace struct {
	Value Expr
}

// Wait suspends the process until Value time units have elapsed (or
// forever, for InfinityExpr) or a trap delivery resumes it.
type Wait struct {
	Value Expr
}

// Arm installs a trap lambda at Target, capturing WithEnv (a list
// expression) as its environment. Blocking arms are followed by a
// Wait{Infinity} in the same block (a Listen expansion, §4.3 pass 2).
type Arm struct {
	Target   Label
	WithEnv  Expr
	Blocking bool
}

// Disarm removes the trap installed at Target, if any.
type Disarm struct {
	Target Label
}

// TrapArm is one arm of a Listen/Trap/match-on-message statement: a
// message pattern, an origin (sender) pattern, and a body.
type TrapArm struct {
	Pattern Pattern
	Origin  Pattern
	Body    Block
}

// Listen is sugar combining trap installation with a blocking wait;
// desugar_listen rewrites it to Trap + Wait{Infinity} (§4.3 pass 2).
type Listen struct {
	Label Label
	Arms  []TrapArm
}

// Trap installs a message-handler lambda at Label; desugar_trap rewrites
// it to a synthesized lambda plus a non-blocking Arm (§4.3 pass 3).
type Trap struct {
	Label Label
	Arms  []TrapArm
}

// WeaveArm is one arm of a menu: a guard, the menu-item text, and a body
// to run once the host replies with this arm's tag.
type WeaveArm struct {
	Guard   Cond
	Message Expr
	Body    Block
}

// Weave is sugar for presenting a menu to the host and dispatching on the
// reply; desugar_weave rewrites it into menu-item sends, a reply trap, and
// a blocking wait (§4.3 pass 4).
type Weave struct {
	Label Label
	Arms  []WeaveArm
}

// MatchArm is one arm of a Match statement: a structural pattern, an
// optional guard, and a body.
type MatchArm struct {
	Pattern Pattern
	Guard   Cond
	Body    Block
}

// Match is sugar for pattern-dispatch on a value; desugar_match rewrites
// it into a chain of If statements (§4.3 pass 5).
type Match struct {
	Value  Expr
	Arms   []MatchArm
	OrElse Block
}

// Naked is a bare dialogue line (`> text`); desugar_naked coalesces runs
// of consecutive host-targeted Naked statements into a single SendMsg
// (§4.3 pass 1).
type Naked struct {
	Target Expr
	Text   []Expr
}

func (Empty) stmtNode()   {}
func (Let) stmtNode()     {}
func (Discard) stmtNode() {}
func (If) stmtNode()      {}
func (Recur) stmtNode()   {}
func (Return) stmtNode()  {}
func (SendMsg) stmtNode() {}
func (Trace) stmtNode()   {}
func (Wait) stmtNode()    {}
func (Arm) stmtNode()     {}
func (Disarm) stmtNode()  {}
func (Listen) stmtNode()  {}
func (Trap) stmtNode()    {}
func (Weave) stmtNode()   {}
func (Match) stmtNode()   {}
func (Naked) stmtNode()   {}

func init() {
	gob.Register(Empty{})
	gob.Register(Let{})
	gob.Register(Discard{})
	gob.Register(If{})
	gob.Register(Recur{})
	gob.Register(Return{})
	gob.Register(SendMsg{})
	gob.Register(Trace{})
	gob.Register(Wait{})
	gob.Register(Arm{})
	gob.Register(Disarm{})
	gob.Register(Listen{})
	gob.Register(Trap{})
	gob.Register(Weave{})
	gob.Register(Match{})
	gob.Register(Naked{})
}
