package ast

import "encoding/gob"

// Expr is the surface expression sum type (§3.1). Concrete variants are
// registered with gob in init() so a Program round-trips through
// encoding/gob (§6.5).
type Expr interface {
	exprNode()
}

// Ident is a reference to a bound identifier.
type Ident struct {
	Name string
}

// AtomLit is an interned symbolic constant written as `#name`.
type AtomLit struct {
	Name string
}

// IntLit is an integer literal.
type IntLit struct {
	Value int32
}

// StrLit is a plain string literal.
type StrLit struct {
	Value string
}

// ListExpr constructs a list from its element expressions.
type ListExpr struct {
	Elems []Expr
}

// Splice concatenates the string forms of its parts with single-space
// separators; it is the target of naked-string coalescing (§4.3 pass 1).
type Splice struct {
	Parts []Expr
}

// Nth indexes into a list value.
type Nth struct {
	List  Expr
	Index int
}

// SpawnExpr spawns a new process and evaluates to its ActorId.
type SpawnExpr struct {
	Call Call
}

// ArithExpr is a binary arithmetic operation.
type ArithExpr struct {
	Op  ArithOp
	Lhs Expr
	Rhs Expr
}

// CondExpr reifies a boolean condition as a value (1 or 0).
type CondExpr struct {
	Cond Cond
}

// PidOfSelf evaluates to the owning process's ActorId.
type PidOfSelf struct{}

// PidZero evaluates to the synthetic host-channel ActorId.
type PidZero struct{}

// InfinityExpr is the unbounded wait duration used by Listen/Weave.
type InfinityExpr struct{}

// ArgExpr is a positional reference to an incoming call/message argument;
// it only appears in synthesized trap-lambda bodies (§4.3 pass 3).
type ArgExpr struct {
	Index int
}

func (Ident) exprNode()        {}
func (AtomLit) exprNode()      {}
func (IntLit) exprNode()       {}
func (StrLit) exprNode()       {}
func (ListExpr) exprNode()     {}
func (Splice) exprNode()       {}
func (Nth) exprNode()          {}
func (SpawnExpr) exprNode()    {}
func (ArithExpr) exprNode()    {}
func (CondExpr) exprNode()     {}
func (PidOfSelf) exprNode()    {}
func (PidZero) exprNode()      {}
func (InfinityExpr) exprNode() {}
func (ArgExpr) exprNode()      {}

func init() {
	gob.Register(Ident{})
	gob.Register(AtomLit{})
	gob.Register(IntLit{})
	gob.Register(StrLit{})
	gob.Register(ListExpr{})
	gob.Register(Splice{})
	gob.Register(Nth{})
	gob.Register(SpawnExpr{})
	gob.Register(ArithExpr{})
	gob.Register(CondExpr{})
	gob.Register(PidOfSelf{})
	gob.Register(PidZero{})
	gob.Register(InfinityExpr{})
	gob.Register(ArgExpr{})
}
