package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/weftlang/weft/bytecode"
)

// step executes exactly one instruction for a Running process (§4.6.5
// "If Running, execute one instruction"). Runtime faults set the process
// OnFire rather than returning an error: one process's fault must not
// stop the scheduler tick for everyone else (§7).
func (p *Process) step(h *Host) {
	in := h.prog.Code[p.PC]
	switch n := in.(type) {
	case bytecode.Nop:
		p.PC++
	case bytecode.Cpy:
		p.setReg(n.Dst, p.reg(n.Src))
		p.PC++
	case bytecode.LoadLit:
		p.setReg(n.Dst, h.literal(n.Lit))
		p.PC++
	case bytecode.LoadEnv:
		if n.Index >= len(p.curEnv) {
			p.fault(fmt.Errorf("process %d: LoadEnv index %d out of range (env has %d)", p.ID, n.Index, len(p.curEnv)))
			return
		}
		p.setReg(n.Dst, p.curEnv[n.Index])
		p.PC++
	case bytecode.LoadArg:
		if n.Index >= len(p.curArgs) {
			p.fault(fmt.Errorf("process %d: LoadArg index %d out of range (%d args)", p.ID, n.Index, len(p.curArgs)))
			return
		}
		p.setReg(n.Dst, p.curArgs[n.Index])
		p.PC++
	case bytecode.LoadPidZero:
		p.setReg(n.Dst, bytecode.ActorId{ID: 0})
		p.PC++
	case bytecode.Splice:
		var b strings.Builder
		for i, r := range n.Vars {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(h.displayString(p, p.reg(r)))
		}
		id := p.StrHeap.Append(b.String())
		p.setReg(n.Dst, bytecode.StrAddr{Addr: uint32(id)})
		p.PC++
	case bytecode.Park:
		if len(p.menu) > 0 {
			p.State = WaitingForInput
		} else {
			p.State = Blocked
		}
		p.PC++
	case bytecode.Add:
		p.arith(n.Src, n.Dst, h, addOp)
	case bytecode.Sub:
		p.arith(n.Src, n.Dst, h, subOp)
	case bytecode.Mul:
		p.arith(n.Src, n.Dst, h, mulOp)
	case bytecode.Div:
		p.arith(n.Src, n.Dst, h, divOp)
	case bytecode.Roll:
		p.arith(n.Src, n.Dst, h, rollOp)
	case bytecode.Alloc:
		addr := len(p.Heap)
		p.Heap = append(p.Heap, bytecode.Capacity{N: uint32(n.N)})
		for i := 0; i < n.N; i++ {
			p.Heap = append(p.Heap, bytecode.Int{V: 0})
		}
		p.setReg(n.Dst, bytecode.ListAddr{Addr: uint32(addr)})
		p.PC++
	case bytecode.Read:
		addr, ok := heapAddr(p.reg(n.Ptr))
		if !ok || addr < 0 || addr >= len(p.Heap) {
			p.fault(BadAddress{Proc: p.ID, Addr: addr})
			return
		}
		p.setReg(n.Dst, p.Heap[addr])
		p.PC++
	case bytecode.Write:
		addr, ok := heapAddr(p.reg(n.Ptr))
		if !ok || addr < 0 || addr >= len(p.Heap) {
			p.fault(BadAddress{Proc: p.ID, Addr: addr})
			return
		}
		p.Heap[addr] = p.reg(n.Src)
		p.PC++
	case bytecode.Eql:
		p.setFlag(n.Flag, valuesEqual(h, p, p.reg(n.Lhs), p.reg(n.Rhs)))
		p.PC++
	case bytecode.Gt:
		p.compareFlag(n.Lhs, n.Rhs, n.Flag, func(a, b int32) bool { return a > b })
	case bytecode.Lt:
		p.compareFlag(n.Lhs, n.Rhs, n.Flag, func(a, b int32) bool { return a < b })
	case bytecode.Gte:
		p.compareFlag(n.Lhs, n.Rhs, n.Flag, func(a, b int32) bool { return a >= b })
	case bytecode.Lte:
		p.compareFlag(n.Lhs, n.Rhs, n.Flag, func(a, b int32) bool { return a <= b })
	case bytecode.HasLen:
		l, ok := p.reg(n.List).(bytecode.ListAddr)
		if !ok {
			p.fault(WrongType{Proc: p.ID, Op: "HasLen", Got: p.reg(n.List)})
			return
		}
		hdr, ok := p.Heap[l.Addr].(bytecode.Capacity)
		if !ok {
			p.fault(BadAddress{Proc: p.ID, Addr: int(l.Addr)})
			return
		}
		p.setFlag(n.Flag, int(hdr.N) == n.N)
		p.PC++
	case bytecode.True:
		p.setFlag(n.Flag, true)
		p.PC++
	case bytecode.False:
		p.setFlag(n.Flag, false)
		p.PC++
	case bytecode.And:
		r := true
		for _, f := range n.Flags {
			r = r && p.flag(f)
		}
		p.setFlag(n.Dst, r)
		p.PC++
	case bytecode.Or:
		r := false
		for _, f := range n.Flags {
			r = r || p.flag(f)
		}
		p.setFlag(n.Dst, r)
		p.PC++
	case bytecode.Not:
		p.setFlag(n.Dst, !p.flag(n.Src))
		p.PC++
	case bytecode.FromBool:
		if p.flag(n.Flag) {
			p.setReg(n.Dst, bytecode.Int{V: 1})
		} else {
			p.setReg(n.Dst, bytecode.Int{V: 0})
		}
		p.PC++
	case bytecode.Jump:
		p.jumpTo(h, n.Target)
	case bytecode.JumpIf:
		if p.flag(n.Flag) {
			p.jumpTo(h, n.Target)
		} else {
			p.PC++
		}
	case bytecode.Say:
		h.say(p, p.reg(n.Src))
	case bytecode.Trace:
		h.trace(p, p.reg(n.Src))
		p.PC++
	case bytecode.Ask:
		// No surface/IR construct emits Ask (see DESIGN.md); reaching it
		// at runtime can only mean a hand-assembled program misused the
		// ISA.
		p.fault(fmt.Errorf("process %d: Ask is not implemented", p.ID))
	case bytecode.Spawn:
		h.spawnFromReg(p, n)
	case bytecode.Recur:
		h.recur(p, n)
	case bytecode.SendMsg:
		h.sendFromReg(p, n)
	case bytecode.GetPid:
		p.setReg(n.Dst, bytecode.ActorId{ID: uint32(p.ID)})
		p.PC++
	case bytecode.Sleep:
		amt, ok := p.reg(n.Amt).(bytecode.Int)
		if !ok {
			p.fault(WrongType{Proc: p.ID, Op: "Sleep", Got: p.reg(n.Amt)})
			return
		}
		p.sleepRemaining = int(amt.V)
		p.State = Sleeping
		p.PC++
	case bytecode.MenuChoice:
		l, ok := p.reg(n.List).(bytecode.ListAddr)
		if !ok {
			p.fault(WrongType{Proc: p.ID, Op: "MenuChoice", Got: p.reg(n.List)})
			return
		}
		tags, ok := readStringList(h, p, l)
		if !ok {
			p.fault(BadAddress{Proc: p.ID, Addr: int(l.Addr)})
			return
		}
		p.menuTags = tags
		p.menuDst = n.Dst
		p.State = WaitingForInput
		p.PC++
	case bytecode.MenuItem:
		p.menu = append(p.menu, menuOption{
			tag:  p.reg(n.Tag),
			text: h.displayString(p, p.reg(n.Text)),
		})
		p.PC++
	case bytecode.Arm:
		p.installTrap(n.Target, n.Env)
		p.PC++
	case bytecode.Listen:
		p.installTrap(n.Target, n.Env)
		p.State = Blocked
		p.PC++
	case bytecode.Disarm:
		p.removeTrap(n.Target)
		p.PC++
	case bytecode.Export:
		h.exportEnv(p, n)
		p.PC++
	case bytecode.Return:
		p.doReturn(h, n.Finished)
	case bytecode.Bye:
		p.State = Terminated
	case bytecode.Hcf:
		p.fault(Hcf{Proc: p.ID, Reason: n.Reason})
	default:
		p.fault(fmt.Errorf("process %d: unknown instruction %T", p.ID, in))
	}
}

func (p *Process) fault(err error) {
	p.Err = err
	p.State = OnFire
}

func (p *Process) jumpTo(h *Host, target bytecode.Label) {
	addr, ok := h.prog.JumpTable[target]
	if !ok {
		p.fault(fmt.Errorf("process %d: no jump table entry for block %d", p.ID, target))
		return
	}
	p.PC = addr
}

func (p *Process) installTrap(target string, envReg bytecode.Reg) {
	var env []Value
	if l, ok := p.reg(envReg).(bytecode.ListAddr); ok {
		env, _ = readValueList(p, l)
		env = append([]Value(nil), env...)
	}
	for i, t := range p.Traps {
		if t.Label == target {
			p.Traps[i] = Trap{Label: target, Env: env}
			return
		}
	}
	p.Traps = append(p.Traps, Trap{Label: target, Env: env})
}

func (p *Process) removeTrap(target string) {
	out := p.Traps[:0]
	for _, t := range p.Traps {
		if t.Label != target {
			out = append(out, t)
		}
	}
	p.Traps = out
}

// doReturn implements §4.6.2's Return semantics and §4.6.4's trap
// continuation protocol.
func (p *Process) doReturn(h *Host, finished bool) {
	if len(p.conts) == 0 {
		// Top-level return: a scene body either fell through
		// (closeDangling's Return(true)) or explicitly rejected
		// (Return(false)) with no caller to resume. Only the latter ends
		// the process; the former idles it, keeping any non-Listen
		// armed traps alive (§3.4).
		if finished {
			p.State = Idling
		} else {
			p.State = Terminated
		}
		return
	}

	top := &p.conts[len(p.conts)-1]
	if finished {
		p.popContinuation(h, *top)
		return
	}

	// Reject: try the next older trap.
	for top.tryingIndex >= 0 {
		idx := top.tryingIndex
		top.tryingIndex--
		trap := top.traps[idx]
		lbl, ok := h.prog.TrapLabels[trap.Label]
		if !ok {
			continue
		}
		addr, ok := h.prog.JumpTable[lbl]
		if !ok {
			continue
		}
		p.curArgs = []Value{top.message, top.sender}
		p.curEnv = trap.Env
		p.PC = addr
		p.State = Running
		return
	}

	// Exhausted: message unhandled, dropped (§4.6.4 step 3).
	p.popContinuation(h, *top)
}

func (p *Process) popContinuation(h *Host, top continuation) {
	p.conts = p.conts[:len(p.conts)-1]
	p.PC = top.returnPC
	p.curArgs = top.returnArgs
	p.curEnv = top.returnEnv
	p.State = top.priorState
	p.sleepRemaining = top.priorSleep
}

type binop int

const (
	addOp binop = iota
	subOp
	mulOp
	divOp
	rollOp
)

func (p *Process) arith(src, dst bytecode.Reg, h *Host, op binop) {
	lhs := p.reg(dst)
	rhs := p.reg(src)

	if op == addOp {
		if l, ok := lhs.(bytecode.ListAddr); ok {
			if r, ok := rhs.(bytecode.Int); ok {
				p.setReg(dst, bytecode.ListAddr{Addr: l.Addr + uint32(r.V)})
				p.PC++
				return
			}
		}
	}

	l, lok := lhs.(bytecode.Int)
	r, rok := rhs.(bytecode.Int)
	if !lok || !rok {
		bad := lhs
		if lok {
			bad = rhs
		}
		p.fault(WrongType{Proc: p.ID, Op: "arithmetic", Got: bad})
		return
	}

	switch op {
	case addOp:
		p.setReg(dst, bytecode.Int{V: l.V + r.V})
	case subOp:
		p.setReg(dst, bytecode.Int{V: l.V - r.V})
	case mulOp:
		p.setReg(dst, bytecode.Int{V: l.V * r.V})
	case divOp:
		if r.V == 0 {
			p.fault(DividedByZero{Proc: p.ID})
			return
		}
		p.setReg(dst, bytecode.Int{V: l.V / r.V})
	case rollOp:
		sum := int32(0)
		for i := int32(0); i < l.V; i++ {
			sum += int32(h.rollDie(r.V))
		}
		p.setReg(dst, bytecode.Int{V: sum})
	}
	p.PC++
}

func (p *Process) compareFlag(lhsR, rhsR bytecode.Reg, flag bytecode.FlagID, cmp func(a, b int32) bool) {
	l, lok := p.reg(lhsR).(bytecode.Int)
	r, rok := p.reg(rhsR).(bytecode.Int)
	if !lok || !rok {
		bad := p.reg(lhsR)
		if lok {
			bad = p.reg(rhsR)
		}
		p.fault(WrongType{Proc: p.ID, Op: "compare", Got: bad})
		return
	}
	p.setFlag(flag, cmp(l.V, r.V))
	p.PC++
}

func heapAddr(v Value) (int, bool) {
	switch a := v.(type) {
	case bytecode.ListAddr:
		return int(a.Addr), true
	default:
		return 0, false
	}
}

func valuesEqual(h *Host, p *Process, a, b Value) bool {
	switch av := a.(type) {
	case bytecode.Int:
		bv, ok := b.(bytecode.Int)
		return ok && av.V == bv.V
	case bytecode.AtomVal:
		bv, ok := b.(bytecode.AtomVal)
		return ok && av.ID == bv.ID
	case bytecode.ActorId:
		bv, ok := b.(bytecode.ActorId)
		return ok && av.ID == bv.ID
	case bytecode.StrConst:
		if bv, ok := b.(bytecode.StrConst); ok {
			return av.ID == bv.ID
		}
		return stringOf(h, p, a) == stringOf(h, p, b)
	case bytecode.StrAddr:
		return stringOf(h, p, a) == stringOf(h, p, b)
	case bytecode.ListAddr:
		bv, ok := b.(bytecode.ListAddr)
		if !ok {
			return false
		}
		la, aok := readValueList(p, av)
		lb, bok := readValueList(p, bv)
		if !aok || !bok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !valuesEqual(h, p, la[i], lb[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// stringOf resolves a StrConst/StrAddr to its text: constants come from
// the program's interned table, runtime-spliced strings from the
// process's own string heap (§3.3).
func stringOf(h *Host, p *Process, v Value) string {
	switch s := v.(type) {
	case bytecode.StrAddr:
		return p.StrHeap.At(int(s.Addr))
	case bytecode.StrConst:
		if h != nil && s.ID < len(h.prog.Strings) {
			return h.prog.Strings[s.ID]
		}
	}
	return ""
}

func readValueList(p *Process, l bytecode.ListAddr) ([]Value, bool) {
	addr := int(l.Addr)
	if addr < 0 || addr >= len(p.Heap) {
		return nil, false
	}
	hdr, ok := p.Heap[addr].(bytecode.Capacity)
	if !ok {
		return nil, false
	}
	n := int(hdr.N)
	if addr+1+n > len(p.Heap) {
		return nil, false
	}
	return p.Heap[addr+1 : addr+1+n], true
}

func readStringList(h *Host, p *Process, l bytecode.ListAddr) ([]string, bool) {
	vals, ok := readValueList(p, l)
	if !ok {
		return nil, false
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = stringOf(h, p, v)
	}
	return out, true
}

// displayInt is a small helper used by Splice/Say formatting for the Int
// case, kept separate so the numeric format is defined in exactly one
// place.
func displayInt(v bytecode.Int) string {
	return strconv.FormatInt(int64(v.V), 10)
}
