package bytecode_test

import (
	"testing"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/bytecode"
	"github.com/weftlang/weft/ir"
)

func TestTranslateArithEmitsCpyThenInPlaceOp(t *testing.T) {
	irProg := &ir.Program{
		Blocks: []*ir.Block{
			{ID: 0, Ops: []ir.Op{
				ir.LetOp{Var: "a", Value: ir.RInt{Value: 2}},
				ir.LetOp{Var: "b", Value: ir.RInt{Value: 3}},
				ir.LetOp{Var: "c", Value: ir.RArith{Op: ast.Add, Lhs: "a", Rhs: "b"}},
			}, Exit: ir.EndProcess{}},
		},
		SceneLabels: map[string]ir.Label{},
		TrapLabels:  map[string]ir.Label{},
		ModuleEnvID: map[string]int{},
	}

	prg, err := bytecode.Translate(irProg)
	if err != nil {
		t.Fatal(err)
	}
	if len(prg.Code) != 5 {
		t.Fatalf("got %d instructions, want 5 (2 LoadLit + Cpy + Add + Bye): %#v", len(prg.Code), prg.Code)
	}
	if _, ok := prg.Code[2].(bytecode.Cpy); !ok {
		t.Errorf("instr 2 = %#v, want Cpy", prg.Code[2])
	}
	add, ok := prg.Code[3].(bytecode.Add)
	if !ok {
		t.Fatalf("instr 3 = %#v, want Add", prg.Code[3])
	}
	cpy := prg.Code[2].(bytecode.Cpy)
	if add.Dst != cpy.Dst {
		t.Errorf("Add.Dst = %v, Cpy.Dst = %v, want equal (in-place accumulation)", add.Dst, cpy.Dst)
	}
	if _, ok := prg.Code[4].(bytecode.Bye); !ok {
		t.Errorf("last instr = %#v, want Bye", prg.Code[4])
	}
}

func TestTranslateIfThenElseEmitsJumpIfThenJump(t *testing.T) {
	irProg := &ir.Program{
		Blocks: []*ir.Block{
			{ID: 0, NumFlags: 1, Ops: []ir.Op{
				ir.SetFlagOp{Flag: 0, Value: ir.TTrue{}},
			}, Exit: ir.IfThenElse{Flag: 0, Succ: 1, Fail: 2}},
			{ID: 1, Exit: ir.Return{Result: true}},
			{ID: 2, Exit: ir.Return{Result: false}},
		},
		SceneLabels: map[string]ir.Label{},
		TrapLabels:  map[string]ir.Label{},
		ModuleEnvID: map[string]int{},
	}

	prg, err := bytecode.Translate(irProg)
	if err != nil {
		t.Fatal(err)
	}
	jumpIfAddr, ok := prg.JumpTable[0]
	if !ok {
		t.Fatal("no jump table entry for block 0")
	}
	ji, ok := prg.Code[jumpIfAddr+1].(bytecode.JumpIf)
	if !ok {
		t.Fatalf("instr after True = %#v, want JumpIf", prg.Code[jumpIfAddr+1])
	}
	if ji.Target != 1 {
		t.Errorf("JumpIf.Target = %v, want 1", ji.Target)
	}
	j, ok := prg.Code[jumpIfAddr+2].(bytecode.Jump)
	if !ok {
		t.Fatalf("instr after JumpIf = %#v, want Jump", prg.Code[jumpIfAddr+2])
	}
	if j.Target != 2 {
		t.Errorf("Jump.Target = %v, want 2", j.Target)
	}
}
