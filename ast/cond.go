package ast

import "encoding/gob"

// Cond is the surface condition sum type (§3.1).
type Cond interface {
	condNode()
}

// CTrue is the condition that always holds.
type CTrue struct{}

// CFalse is the condition that never holds.
type CFalse struct{}

// CLastResort marks a weave arm as the fallback taken when no other arm's
// guard holds; desugar_weave rewrites its test to CTrue (§4.3 pass 4).
type CLastResort struct{}

// CHasLength tests whether a list expression has exactly N elements.
type CHasLength struct {
	List Expr
	N    int
}

// CCompare compares two expressions with a CompareOp.
type CCompare struct {
	Op  CompareOp
	Lhs Expr
	Rhs Expr
}

// CAnd is the conjunction of its operands.
type CAnd struct {
	Operands []Cond
}

// COr is the disjunction of its operands.
type COr struct {
	Operands []Cond
}

// CNot negates its operand.
type CNot struct {
	Operand Cond
}

func (CTrue) condNode()       {}
func (CFalse) condNode()      {}
func (CLastResort) condNode() {}
func (CHasLength) condNode()  {}
func (CCompare) condNode()    {}
func (CAnd) condNode()        {}
func (COr) condNode()         {}
func (CNot) condNode()        {}

func init() {
	gob.Register(CTrue{})
	gob.Register(CFalse{})
	gob.Register(CLastResort{})
	gob.Register(CHasLength{})
	gob.Register(CCompare{})
	gob.Register(CAnd{})
	gob.Register(COr{})
	gob.Register(CNot{})
}
