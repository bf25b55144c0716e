package bytecode

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/ir"
)

// flagKey scopes a flag id to the block that defines it — ir.FlagID
// values are only unique within their own block (§4.4 "allocated by a
// per-block counter").
type flagKey struct {
	block ir.Label
	flag  ir.FlagID
}

type translator struct {
	prog *ir.Program

	code      []Instr
	jumpTable map[Label]InstrAddr

	regs  map[ir.Var]Reg
	nextR Reg

	flags  map[flagKey]FlagID
	nextF  FlagID
	curBlk ir.Label
}

// Translate lowers an ir.Program into a flat bytecode Program (§4.5).
func Translate(prog *ir.Program) (*Program, error) {
	t := &translator{
		prog:      prog,
		jumpTable: map[Label]InstrAddr{},
		regs:      map[ir.Var]Reg{},
		flags:     map[flagKey]FlagID{},
	}

	for _, b := range prog.Blocks {
		t.curBlk = b.ID
		t.jumpTable[b.ID] = InstrAddr(len(t.code))
		for _, op := range b.Ops {
			if err := t.translateOp(op); err != nil {
				return nil, errors.Wrapf(err, "block %d", b.ID)
			}
		}
		if err := t.translateExit(b.Exit); err != nil {
			return nil, errors.Wrapf(err, "block %d exit", b.ID)
		}
	}

	return &Program{
		Code:        t.code,
		JumpTable:   t.jumpTable,
		SceneLabels: prog.SceneLabels,
		TrapLabels:  prog.TrapLabels,
		ModuleEnvID: prog.ModuleEnvID,
		Strings:     prog.Strings,
		Atoms:       prog.Atoms,
	}, nil
}

func (t *translator) emit(in Instr) {
	t.code = append(t.code, in)
}

func (t *translator) regFor(v ir.Var) Reg {
	if r, ok := t.regs[v]; ok {
		return r
	}
	r := t.nextR
	t.nextR++
	t.regs[v] = r
	return r
}

func (t *translator) flagFor(f ir.FlagID) FlagID {
	k := flagKey{t.curBlk, f}
	if id, ok := t.flags[k]; ok {
		return id
	}
	id := t.nextF
	t.nextF++
	t.flags[k] = id
	return id
}

func (t *translator) translateOp(op ir.Op) error {
	switch n := op.(type) {
	case ir.LetOp:
		return t.translateLet(n)
	case ir.SetFlagOp:
		return t.translateSetFlag(n)
	case ir.StoreOp:
		t.emit(Write{Src: t.regFor(n.Var), Ptr: t.regFor(n.Ptr)})
	case ir.SayOp:
		t.emit(Say{Src: t.regFor(n.Value)})
	case ir.TraceOp:
		t.emit(Trace{Src: t.regFor(n.Value)})
	case ir.WaitOp:
		if n.Infinite {
			t.emit(Park{})
		} else {
			t.emit(Sleep{Amt: t.regFor(n.Value)})
		}
	case ir.SendMsgOp:
		t.emit(SendMsg{Msg: t.regFor(n.Message), Dst: t.regFor(n.Target)})
	case ir.ArmOp:
		t.emit(Arm{Env: t.regFor(n.Env), Target: n.Label.Key()})
	case ir.ListenOp:
		t.emit(Listen{Env: t.regFor(n.Env), Target: n.Label.Key()})
	case ir.DisarmOp:
		t.emit(Disarm{Target: n.Label.Key()})
	case ir.MenuItemOp:
		t.emit(MenuItem{Tag: t.regFor(n.Tag), Text: t.regFor(n.Text)})
	case ir.ExportOp:
		t.emit(Export{EnvID: n.EnvID, Src: t.regFor(n.Var)})
	default:
		return fmt.Errorf("internal error: unknown IR op %T", op)
	}
	return nil
}

func (t *translator) translateLet(n ir.LetOp) error {
	dst := t.regFor(n.Var)
	switch v := n.Value.(type) {
	case ir.RVar:
		t.emit(Cpy{Src: t.regFor(v.Var), Dst: dst})
	case ir.RInt:
		t.emit(LoadLit{Lit: Literal{Kind: LitInt, Int: v.Value}, Dst: dst})
	case ir.RConst:
		kind := LitStringConst
		if v.Kind == ir.ConstAtom {
			kind = LitAtomConst
		}
		t.emit(LoadLit{Lit: Literal{Kind: kind, ConstID: v.ID}, Dst: dst})
	case ir.RArith:
		t.translateArith(v, dst)
	case ir.RAlloc:
		t.emit(Alloc{N: v.N, Dst: dst})
	case ir.RLoad:
		t.emit(Read{Ptr: t.regFor(v.Ptr), Dst: dst})
	case ir.RLoadEnv:
		t.emit(LoadEnv{Index: v.Index, Dst: dst})
	case ir.RFromBool:
		t.emit(FromBool{Flag: t.flagFor(v.Flag), Dst: dst})
	case ir.RSpawn:
		t.emit(Spawn{Argv: t.regFor(v.Call.Argv), Scene: v.Call.Scene.Key(), Dst: dst})
	case ir.RSplice:
		regs := make([]Reg, len(v.Vars))
		for i, vv := range v.Vars {
			regs[i] = t.regFor(vv)
		}
		t.emit(Splice{Vars: regs, Dst: dst})
	case ir.RMenuChoice:
		t.emit(MenuChoice{List: t.regFor(v.List), Dst: dst})
	case ir.RPidOfSelf:
		t.emit(GetPid{Dst: dst})
	case ir.RPidZero:
		t.emit(LoadPidZero{Dst: dst})
	case ir.RArg:
		t.emit(LoadArg{Index: v.Index, Dst: dst})
	default:
		return fmt.Errorf("internal error: unknown IR rvalue %T", n.Value)
	}
	return nil
}

// translateArith realizes §4.5's binary-arithmetic emission rule: copy
// Lhs into Dst (Dst is always freshly allocated, so Lhs != Dst), then the
// two-operand instruction performs Dst := Dst op Rhs in place.
func (t *translator) translateArith(v ir.RArith, dst Reg) {
	lhs, rhs := t.regFor(v.Lhs), t.regFor(v.Rhs)
	t.emit(Cpy{Src: lhs, Dst: dst})
	switch v.Op {
	case ast.Add:
		t.emit(Add{Src: rhs, Dst: dst})
	case ast.Sub:
		t.emit(Sub{Src: rhs, Dst: dst})
	case ast.Mul:
		t.emit(Mul{Src: rhs, Dst: dst})
	case ast.Div:
		t.emit(Div{Src: rhs, Dst: dst})
	case ast.Roll:
		t.emit(Roll{Src: rhs, Dst: dst})
	}
}

func (t *translator) translateSetFlag(n ir.SetFlagOp) error {
	dst := t.flagFor(n.Flag)
	switch v := n.Value.(type) {
	case ir.TTrue:
		t.emit(True{Flag: dst})
	case ir.TFalse:
		t.emit(False{Flag: dst})
	case ir.TCompare:
		lhs, rhs := t.regFor(v.Lhs), t.regFor(v.Rhs)
		switch v.Op {
		case ast.Eql:
			t.emit(Eql{Lhs: lhs, Rhs: rhs, Flag: dst})
		case ast.Gt:
			t.emit(Gt{Lhs: lhs, Rhs: rhs, Flag: dst})
		case ast.Lt:
			t.emit(Lt{Lhs: lhs, Rhs: rhs, Flag: dst})
		case ast.Gte:
			t.emit(Gte{Lhs: lhs, Rhs: rhs, Flag: dst})
		case ast.Lte:
			t.emit(Lte{Lhs: lhs, Rhs: rhs, Flag: dst})
		}
	case ir.THasLen:
		t.emit(HasLen{List: t.regFor(v.List), N: v.Len, Flag: dst})
	case ir.TAnd:
		flags := make([]FlagID, len(v.Flags))
		for i, f := range v.Flags {
			flags[i] = t.flagFor(f)
		}
		t.emit(And{Flags: flags, Dst: dst})
	case ir.TOr:
		flags := make([]FlagID, len(v.Flags))
		for i, f := range v.Flags {
			flags[i] = t.flagFor(f)
		}
		t.emit(Or{Flags: flags, Dst: dst})
	case ir.TNot:
		t.emit(Not{Src: t.flagFor(v.Flag), Dst: dst})
	default:
		return fmt.Errorf("internal error: unknown IR tvalue %T", n.Value)
	}
	return nil
}

func (t *translator) translateExit(e ir.Exit) error {
	switch n := e.(type) {
	case ir.EndProcess:
		t.emit(Bye{})
	case ir.Goto:
		t.emit(Jump{Target: n.Target})
	case ir.IfThenElse:
		t.emit(JumpIf{Flag: t.flagFor(n.Flag), Target: n.Succ})
		t.emit(Jump{Target: n.Fail})
	case ir.Recur:
		modKey := n.Call.Scene.InModule.String()
		envID, ok := t.prog.ModuleEnvID[modKey]
		if !ok {
			return fmt.Errorf("internal error: no prelude environment recorded for module %q", modKey)
		}
		t.emit(Recur{Argv: t.regFor(n.Call.Argv), EnvID: envID, Scene: n.Call.Scene.Key()})
	case ir.Return:
		t.emit(Return{Finished: n.Result})
	default:
		return fmt.Errorf("internal error: unknown IR exit %T", e)
	}
	return nil
}
