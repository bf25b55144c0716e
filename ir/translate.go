package ir

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/internal/strheap"
)

// scope is one lexical level of the translator's binding stack: an
// ordered map from identifier name to the Var currently holding its
// value, preserving insertion order so prelude-export and LoadEnv
// re-binding see a stable, deterministic order (§4.4.1).
type scope struct {
	order []string
	vars  map[string]Var
}

func newScope() *scope {
	return &scope{vars: map[string]Var{}}
}

func (s *scope) bind(name string, v Var) {
	if _, exists := s.vars[name]; !exists {
		s.order = append(s.order, name)
	}
	s.vars[name] = v
}

type translator struct {
	blocks []*Block
	cur    Label

	scopes []*scope

	tempCounter int

	sceneLabel  map[string]Label
	lambdaLabel map[string]Label

	moduleEnvID    map[string]int
	moduleEnvNames map[string][]string
	nextEnvID      int

	strings strheap.Heap
	atoms   strheap.Heap
}

func newTranslator() *translator {
	return &translator{
		sceneLabel:     map[string]Label{},
		lambdaLabel:    map[string]Label{},
		moduleEnvID:    map[string]int{},
		moduleEnvNames: map[string][]string{},
	}
}

// Translate walks a fully desugared Program and emits its IR (§4.4).
func Translate(prog *ast.Program) (*Program, error) {
	t := newTranslator()

	block0 := t.newBlock()
	t.cur = block0

	for mi := range prog.Modules {
		for si := range prog.Modules[mi].Module.Scenes {
			lbl := t.newBlock()
			t.sceneLabel[prog.Modules[mi].Module.Scenes[si].Name.Key()] = lbl
		}
	}
	for li := range prog.Lambdas {
		lbl := t.newBlock()
		t.lambdaLabel[prog.Lambdas[li].Label.Key()] = lbl
	}

	if err := t.translatePreludes(prog); err != nil {
		return nil, err
	}
	if t.blocks[t.cur].Exit == nil {
		t.setExit(t.cur, EndProcess{})
	}

	if err := t.translateScenes(prog); err != nil {
		return nil, err
	}
	if err := t.translateLambdas(prog); err != nil {
		return nil, err
	}

	return &Program{
		Blocks:         t.blocks,
		SceneLabels:    t.sceneLabel,
		TrapLabels:     t.lambdaLabel,
		ModuleEnvID:    t.moduleEnvID,
		ModuleEnvNames: t.moduleEnvNames,
		Strings:        t.strings.Strings(),
		Atoms:          t.atoms.Strings(),
	}, nil
}

func (t *translator) translatePreludes(prog *ast.Program) error {
	for mi := range prog.Modules {
		me := &prog.Modules[mi]
		modKey := me.Path.String()

		t.pushScope()
		if err := t.translateStmts(me.Module.Globals.Stmts); err != nil {
			return errors.Wrapf(err, "prelude of module %s", modKey)
		}

		names := t.topScope().order
		envID := t.nextEnvID
		t.nextEnvID++
		t.moduleEnvID[modKey] = envID
		t.moduleEnvNames[modKey] = append([]string(nil), names...)

		vars := make([]Var, len(names))
		for i, name := range names {
			vars[i] = t.topScope().vars[name]
		}
		envList := t.emitListLiteralVars(vars)
		t.emit(ExportOp{EnvID: envID, Var: envList})
		t.popScope()
	}
	return nil
}

func (t *translator) translateScenes(prog *ast.Program) error {
	for mi := range prog.Modules {
		me := &prog.Modules[mi]
		modKey := me.Path.String()
		scenes := me.Module.Scenes
		for si := range scenes {
			sc := &scenes[si]
			lbl := t.sceneLabel[sc.Name.Key()]
			t.cur = lbl
			t.pushScope()

			for i, name := range t.moduleEnvNames[modKey] {
				v := Var(name)
				t.emit(LetOp{Var: v, Value: RLoadEnv{Index: i}})
				t.topScope().bind(name, v)
			}
			for i, argName := range sc.Args {
				v := Var(argName)
				t.emit(LetOp{Var: v, Value: RArg{Index: i}})
				t.topScope().bind(argName, v)
			}

			if err := t.translateStmts(sc.Body.Stmts); err != nil {
				return errors.Wrapf(err, "scene %s", sc.Name.String())
			}
			t.popScope()
			t.closeDangling()
		}
	}
	return nil
}

func (t *translator) translateLambdas(prog *ast.Program) error {
	for li := range prog.Lambdas {
		lam := &prog.Lambdas[li]
		lbl := t.lambdaLabel[lam.Label.Key()]
		t.cur = lbl
		t.pushScope()

		for i, name := range lam.Captures {
			v := Var(name)
			t.emit(LetOp{Var: v, Value: RLoadEnv{Index: i}})
			t.topScope().bind(name, v)
		}

		if err := t.translateStmts(lam.Body.Stmts); err != nil {
			return errors.Wrapf(err, "trap %s", lam.Label.String())
		}
		t.popScope()
		t.closeDangling()
	}
	return nil
}

// closeDangling gives a final exit to a scene/lambda's trailing block when
// none was set — either the body fell off the end (an implicit successful
// return) or the live path ended in a Recur/Return and the fresh
// unreachable block that followed was never rejoined by an enclosing If
// (§4.4 "a fresh unreachable block is made current").
func (t *translator) closeDangling() {
	if t.blocks[t.cur].Exit == nil {
		t.setExit(t.cur, Return{Result: true})
	}
}

func (t *translator) newBlock() Label {
	lbl := Label(len(t.blocks))
	t.blocks = append(t.blocks, &Block{ID: lbl})
	return lbl
}

func (t *translator) setExit(lbl Label, e Exit) {
	t.blocks[lbl].Exit = e
}

func (t *translator) emit(op Op) {
	b := t.blocks[t.cur]
	b.Ops = append(b.Ops, op)
}

func (t *translator) pushScope()       { t.scopes = append(t.scopes, newScope()) }
func (t *translator) popScope()        { t.scopes = t.scopes[:len(t.scopes)-1] }
func (t *translator) topScope() *scope { return t.scopes[len(t.scopes)-1] }

func (t *translator) bind(name string, v Var) {
	t.topScope().bind(name, v)
}

func (t *translator) lookup(name string) (Var, error) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if v, ok := t.scopes[i].vars[name]; ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("internal error: identifier %q unbound at IR translation", name)
}

func (t *translator) newTemp() Var {
	v := Var(fmt.Sprintf("TEMP%%%x", t.tempCounter))
	t.tempCounter++
	return v
}

func (t *translator) newFlag() FlagID {
	f := FlagID(t.blocks[t.cur].NumFlags)
	t.blocks[t.cur].NumFlags++
	return f
}

func (t *translator) internString(s string) int { return t.strings.Intern(s) }

func (t *translator) internAtom(s string) int { return t.atoms.Intern(s) }

// emitListLiteralVars allocates a list of len(vars) elements and stores
// each one, returning the Var holding the base address. Offset 0 is the
// length header RAlloc already wrote, so element i is stored at offset
// i+1 (§3.4 heap layout).
func (t *translator) emitListLiteralVars(vars []Var) Var {
	dst := t.newTemp()
	t.emit(LetOp{Var: dst, Value: RAlloc{N: len(vars)}})
	for i, v := range vars {
		off := t.newTemp()
		t.emit(LetOp{Var: off, Value: RInt{Value: int32(i + 1)}})
		addr := t.newTemp()
		t.emit(LetOp{Var: addr, Value: RArith{Op: ast.Add, Lhs: dst, Rhs: off}})
		t.emit(StoreOp{Var: v, Ptr: addr})
	}
	return dst
}

func (t *translator) translateCall(call ast.Call) (CallRef, error) {
	argVars := make([]Var, len(call.Args))
	for i, a := range call.Args {
		v, err := t.translateExpr(a)
		if err != nil {
			return CallRef{}, err
		}
		argVars[i] = v
	}
	return CallRef{Scene: call.Scene, Argv: t.emitListLiteralVars(argVars)}, nil
}

// translateExpr emits whatever ops are needed to compute e and returns the
// Var holding its result (§4.4 "Expressions produce a variable").
func (t *translator) translateExpr(e ast.Expr) (Var, error) {
	switch n := e.(type) {
	case ast.Ident:
		return t.lookup(n.Name)
	case ast.AtomLit:
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RConst{Kind: ConstAtom, ID: t.internAtom(n.Name)}})
		return dst, nil
	case ast.IntLit:
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RInt{Value: n.Value}})
		return dst, nil
	case ast.StrLit:
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RConst{Kind: ConstString, ID: t.internString(n.Value)}})
		return dst, nil
	case ast.ListExpr:
		vars := make([]Var, len(n.Elems))
		for i, el := range n.Elems {
			v, err := t.translateExpr(el)
			if err != nil {
				return "", err
			}
			vars[i] = v
		}
		return t.emitListLiteralVars(vars), nil
	case ast.Splice:
		vars := make([]Var, len(n.Parts))
		for i, p := range n.Parts {
			v, err := t.translateExpr(p)
			if err != nil {
				return "", err
			}
			vars[i] = v
		}
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RSplice{Vars: vars}})
		return dst, nil
	case ast.Nth:
		listVar, err := t.translateExpr(n.List)
		if err != nil {
			return "", err
		}
		off := t.newTemp()
		t.emit(LetOp{Var: off, Value: RInt{Value: int32(n.Index + 1)}})
		addr := t.newTemp()
		t.emit(LetOp{Var: addr, Value: RArith{Op: ast.Add, Lhs: listVar, Rhs: off}})
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RLoad{Ptr: addr}})
		return dst, nil
	case ast.SpawnExpr:
		call, err := t.translateCall(n.Call)
		if err != nil {
			return "", err
		}
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RSpawn{Call: call}})
		return dst, nil
	case ast.ArithExpr:
		// The surface tree is already a binary left-leaning chain, so a
		// direct recursive translation reduces it pairwise in the same
		// left-to-right order described by §4.4's "reversed into a stack"
		// technique, without needing an explicit stack here.
		lhs, err := t.translateExpr(n.Lhs)
		if err != nil {
			return "", err
		}
		rhs, err := t.translateExpr(n.Rhs)
		if err != nil {
			return "", err
		}
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RArith{Op: n.Op, Lhs: lhs, Rhs: rhs}})
		return dst, nil
	case ast.CondExpr:
		flag, err := t.translateCond(n.Cond)
		if err != nil {
			return "", err
		}
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RFromBool{Flag: flag}})
		return dst, nil
	case ast.PidOfSelf:
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RPidOfSelf{}})
		return dst, nil
	case ast.PidZero:
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RPidZero{}})
		return dst, nil
	case ast.ArgExpr:
		dst := t.newTemp()
		t.emit(LetOp{Var: dst, Value: RArg{Index: n.Index}})
		return dst, nil
	case ast.InfinityExpr:
		return "", fmt.Errorf("internal error: Infinity only valid as a Wait value")
	default:
		return "", fmt.Errorf("internal error: unknown expression kind %T", e)
	}
}

// translateCond emits whatever ops are needed to compute c and returns the
// FlagID holding its result.
func (t *translator) translateCond(c ast.Cond) (FlagID, error) {
	switch n := c.(type) {
	case ast.CTrue:
		f := t.newFlag()
		t.emit(SetFlagOp{Flag: f, Value: TTrue{}})
		return f, nil
	case ast.CFalse:
		f := t.newFlag()
		t.emit(SetFlagOp{Flag: f, Value: TFalse{}})
		return f, nil
	case ast.CHasLength:
		listVar, err := t.translateExpr(n.List)
		if err != nil {
			return 0, err
		}
		f := t.newFlag()
		t.emit(SetFlagOp{Flag: f, Value: THasLen{List: listVar, Len: n.N}})
		return f, nil
	case ast.CCompare:
		lhs, err := t.translateExpr(n.Lhs)
		if err != nil {
			return 0, err
		}
		rhs, err := t.translateExpr(n.Rhs)
		if err != nil {
			return 0, err
		}
		f := t.newFlag()
		t.emit(SetFlagOp{Flag: f, Value: TCompare{Op: n.Op, Lhs: lhs, Rhs: rhs}})
		return f, nil
	case ast.CAnd:
		flags := make([]FlagID, len(n.Operands))
		for i, o := range n.Operands {
			fl, err := t.translateCond(o)
			if err != nil {
				return 0, err
			}
			flags[i] = fl
		}
		f := t.newFlag()
		t.emit(SetFlagOp{Flag: f, Value: TAnd{Flags: flags}})
		return f, nil
	case ast.COr:
		flags := make([]FlagID, len(n.Operands))
		for i, o := range n.Operands {
			fl, err := t.translateCond(o)
			if err != nil {
				return 0, err
			}
			flags[i] = fl
		}
		f := t.newFlag()
		t.emit(SetFlagOp{Flag: f, Value: TOr{Flags: flags}})
		return f, nil
	case ast.CNot:
		operand, err := t.translateCond(n.Operand)
		if err != nil {
			return 0, err
		}
		f := t.newFlag()
		t.emit(SetFlagOp{Flag: f, Value: TNot{Flag: operand}})
		return f, nil
	case ast.CLastResort:
		return 0, fmt.Errorf("internal error: LastResort survived weave lowering")
	default:
		return 0, fmt.Errorf("internal error: unknown condition kind %T", c)
	}
}

// translateStmts sequentially translates stmts into the current block,
// following new blocks as control constructs create them (§4.4).
func (t *translator) translateStmts(stmts []ast.Stmt) error {
	for i := 0; i < len(stmts); i++ {
		switch n := stmts[i].(type) {
		case ast.Empty:
		case ast.Let:
			v, err := t.translateExpr(n.Value)
			if err != nil {
				return err
			}
			t.bind(n.Var, v)
		case ast.Discard:
			if _, err := t.translateExpr(n.Value); err != nil {
				return err
			}
		case ast.If:
			if err := t.translateIf(n); err != nil {
				return err
			}
		case ast.Recur:
			call, err := t.translateCall(n.Call)
			if err != nil {
				return err
			}
			t.setExit(t.cur, Recur{Call: call})
			t.cur = t.newBlock()
		case ast.Return:
			t.setExit(t.cur, Return{Result: n.Result})
			t.cur = t.newBlock()
		case ast.SendMsg:
			// A SendMsg whose target is lexically PidZero addresses the
			// host channel, not another process; the IR keeps this as its
			// own op (Say) rather than a generic SendMsgOp so the bytecode
			// translator can emit the blocking host-I/O instruction
			// directly instead of pattern-matching targets at a later
			// stage (§3.2, §4.6.2). desugar_weave (pass 4) addresses the
			// same synthetic channel with its own reserved shapes —
			// [MenuItem, tag, text] and [MenuEnd] — which must not be
			// handed to Say: nothing would ever read the reply token Say
			// blocks for, and the host would display the control payload
			// as if it were dialogue (see DESIGN.md).
			if _, toHost := n.Target.(ast.PidZero); toHost {
				if tag, text, ok := menuItemShape(n.Message); ok {
					tagV, err := t.translateExpr(tag)
					if err != nil {
						return err
					}
					textV, err := t.translateExpr(text)
					if err != nil {
						return err
					}
					t.emit(MenuItemOp{Tag: tagV, Text: textV})
					break
				}
				if isMenuEndShape(n.Message) {
					// No runtime effect: the host infers a weave's menu is
					// complete from the trailing Wait{Infinity} blocking
					// with a non-empty pending menu, not from this marker.
					break
				}
				msg, err := t.translateExpr(n.Message)
				if err != nil {
					return err
				}
				t.emit(SayOp{Value: msg})
				break
			}
			target, err := t.translateExpr(n.Target)
			if err != nil {
				return err
			}
			msg, err := t.translateExpr(n.Message)
			if err != nil {
				return err
			}
			t.emit(SendMsgOp{Target: target, Message: msg})
		case ast.Trace:
			v, err := t.translateExpr(n.Value)
			if err != nil {
				return err
			}
			t.emit(TraceOp{Value: v})
		case ast.Wait:
			if _, isInf := n.Value.(ast.InfinityExpr); isInf {
				t.emit(WaitOp{Infinite: true})
			} else {
				v, err := t.translateExpr(n.Value)
				if err != nil {
					return err
				}
				t.emit(WaitOp{Value: v})
			}
		case ast.Arm:
			env, err := t.translateExpr(n.WithEnv)
			if err != nil {
				return err
			}
			if n.Blocking {
				t.emit(ListenOp{Env: env, Label: n.Target})
				if i+1 < len(stmts) {
					if w, ok := stmts[i+1].(ast.Wait); ok {
						if _, isInf := w.Value.(ast.InfinityExpr); isInf {
							i++
						}
					}
				}
			} else {
				t.emit(ArmOp{Env: env, Label: n.Target})
			}
		case ast.Disarm:
			t.emit(DisarmOp{Label: n.Target})
		default:
			return fmt.Errorf("internal error: %T reached IR translation (desugaring incomplete)", n)
		}
	}
	return nil
}

// menuItemShape reports whether e is the [MenuItem, tag, text] list
// lowerWeave builds for one arm's offer, returning its tag and text
// subexpressions. Matched structurally, not by provenance: nothing else
// in the desugared tree produces a 3-element list headed by that atom.
func menuItemShape(e ast.Expr) (tag, text ast.Expr, ok bool) {
	lst, ok := e.(ast.ListExpr)
	if !ok || len(lst.Elems) != 3 {
		return nil, nil, false
	}
	head, ok := lst.Elems[0].(ast.AtomLit)
	if !ok || head.Name != "MenuItem" {
		return nil, nil, false
	}
	return lst.Elems[1], lst.Elems[2], true
}

// isMenuEndShape reports whether e is the [MenuEnd] list lowerWeave
// appends after a weave's last arm.
func isMenuEndShape(e ast.Expr) bool {
	lst, ok := e.(ast.ListExpr)
	if !ok || len(lst.Elems) != 1 {
		return false
	}
	head, ok := lst.Elems[0].(ast.AtomLit)
	return ok && head.Name == "MenuEnd"
}

func (t *translator) translateIf(n ast.If) error {
	flag, err := t.translateCond(n.Test)
	if err != nil {
		return err
	}
	succ := t.newBlock()
	fail := t.newBlock()
	next := t.newBlock()
	t.setExit(t.cur, IfThenElse{Flag: flag, Succ: succ, Fail: fail})

	t.cur = succ
	t.pushScope()
	if err := t.translateStmts(n.Success.Stmts); err != nil {
		return err
	}
	t.popScope()
	if t.blocks[t.cur].Exit == nil {
		t.setExit(t.cur, Goto{Target: next})
	}

	t.cur = fail
	t.pushScope()
	if err := t.translateStmts(n.Failure.Stmts); err != nil {
		return err
	}
	t.popScope()
	if t.blocks[t.cur].Exit == nil {
		t.setExit(t.cur, Goto{Target: next})
	}

	t.cur = next
	return nil
}
