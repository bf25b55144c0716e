package ast

import "encoding/gob"

// Pattern is the surface match-pattern sum type (§3.1).
type Pattern interface {
	patternNode()
}

// PHole ("_") binds nothing and matches anything.
type PHole struct{}

// PAssign binds the value at this position to a fresh variable.
type PAssign struct {
	Var string
}

// PMatch requires the value at this position to equal the given
// expression.
type PMatch struct {
	Value Expr
}

// PList matches a list of the same length whose elements match the given
// sub-patterns, in order.
type PList struct {
	Elems []Pattern
}

func (PHole) patternNode()   {}
func (PAssign) patternNode() {}
func (PMatch) patternNode()  {}
func (PList) patternNode()   {}

func init() {
	gob.Register(PHole{})
	gob.Register(PAssign{})
	gob.Register(PMatch{})
	gob.Register(PList{})
}
