package vm

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"

	"github.com/weftlang/weft/bytecode"
)

// Option configures a Host at construction time, the same functional-
// options shape the teacher's vm.Instance uses for DataSize/Input/Output.
type Option func(*Host) error

// Clockspeed sets the instruction budget dispatch computes per unit
// timeslice (§4.6.5).
func Clockspeed(stepsPerSecond float64) Option {
	return func(h *Host) error { h.clockspeed = stepsPerSecond; return nil }
}

// RandSource overrides the Roll instruction's source of randomness
// (§9 "Roll operator", injectable rand.Source).
func RandSource(src rand.Source) Option {
	return func(h *Host) error { h.rng = rand.New(src); return nil }
}

// Logger installs a process-lifecycle logger; nil (the default) disables
// lifecycle logging entirely.
func Logger(l log15.Logger) Option {
	return func(h *Host) error { h.log = l; return nil }
}

// Host owns every process's shared, immutable resources (the compiled
// program and each module's prelude environment) plus the mutable
// scheduling state: the process table and the message bus (§4.6.5, §5
// "Shared resources").
type Host struct {
	prog *bytecode.Program

	numRegs  int
	numFlags int

	moduleEnvs map[int][]Value

	processes map[ActorId]*Process
	order     []ActorId
	nextID    ActorId
	mainID    ActorId

	messages []message

	clockspeed float64
	rng        *rand.Rand
	log        log15.Logger

	out       []OutSignal
	nextToken uint64
	sayWaits  map[uint64]sayWait
}

type message struct {
	src  ActorId
	dst  ActorId
	body Value
}

type sayWait struct {
	proc ActorId
}

// NewHost loads prog, runs its prelude block once to populate every
// module's exported environment (§4.4.1), and returns a Host ready to
// Spawn a main process.
func NewHost(prog *bytecode.Program, opts ...Option) (*Host, error) {
	numRegs, numFlags := scanRegFlagCounts(prog)
	h := &Host{
		prog:       prog,
		numRegs:    numRegs,
		numFlags:   numFlags,
		moduleEnvs: map[int][]Value{},
		processes:  map[ActorId]*Process{},
		nextID:     1,
		clockspeed: 100,
		rng:        rand.New(rand.NewSource(1)),
		sayWaits:   map[uint64]sayWait{},
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if err := h.runPrelude(); err != nil {
		return nil, errors.Wrap(err, "prelude")
	}
	return h, nil
}

// runPrelude executes block 0 (every module's globals translation,
// terminated by EndProcess) to completion on a throwaway process. Prelude
// bodies may not SendMsg/Trace/Wait or arm traps (ast/check's
// prelude-restriction pass enforces this), so running it synchronously to
// completion is safe.
func (h *Host) runPrelude() error {
	boot := newProcess(0, h.numRegs, h.numFlags)
	boot.PC = h.prog.JumpTable[0]
	for boot.State == Running {
		boot.step(h)
		if boot.State == OnFire {
			return boot.Err
		}
	}
	return nil
}

// scanRegFlagCounts walks every instruction once at load time to size
// each process's register file and flag array: the bytecode translator
// allocates Reg ids monotonically across the whole program rather than
// per block (DESIGN.md), so one flat count covers every process.
func scanRegFlagCounts(prog *bytecode.Program) (numRegs, numFlags int) {
	regMax, flagMax := -1, -1
	bumpR := func(r bytecode.Reg) {
		if int(r) > regMax {
			regMax = int(r)
		}
	}
	bumpF := func(f bytecode.FlagID) {
		if int(f) > flagMax {
			flagMax = int(f)
		}
	}
	for _, in := range prog.Code {
		switch n := in.(type) {
		case bytecode.Cpy:
			bumpR(n.Src)
			bumpR(n.Dst)
		case bytecode.LoadLit:
			bumpR(n.Dst)
		case bytecode.LoadEnv:
			bumpR(n.Dst)
		case bytecode.LoadArg:
			bumpR(n.Dst)
		case bytecode.LoadPidZero:
			bumpR(n.Dst)
		case bytecode.Splice:
			for _, r := range n.Vars {
				bumpR(r)
			}
			bumpR(n.Dst)
		case bytecode.Add:
			bumpR(n.Src)
			bumpR(n.Dst)
		case bytecode.Sub:
			bumpR(n.Src)
			bumpR(n.Dst)
		case bytecode.Mul:
			bumpR(n.Src)
			bumpR(n.Dst)
		case bytecode.Div:
			bumpR(n.Src)
			bumpR(n.Dst)
		case bytecode.Roll:
			bumpR(n.Src)
			bumpR(n.Dst)
		case bytecode.Alloc:
			bumpR(n.Dst)
		case bytecode.Read:
			bumpR(n.Ptr)
			bumpR(n.Dst)
		case bytecode.Write:
			bumpR(n.Src)
			bumpR(n.Ptr)
		case bytecode.Eql:
			bumpR(n.Lhs)
			bumpR(n.Rhs)
			bumpF(n.Flag)
		case bytecode.Gt:
			bumpR(n.Lhs)
			bumpR(n.Rhs)
			bumpF(n.Flag)
		case bytecode.Lt:
			bumpR(n.Lhs)
			bumpR(n.Rhs)
			bumpF(n.Flag)
		case bytecode.Gte:
			bumpR(n.Lhs)
			bumpR(n.Rhs)
			bumpF(n.Flag)
		case bytecode.Lte:
			bumpR(n.Lhs)
			bumpR(n.Rhs)
			bumpF(n.Flag)
		case bytecode.HasLen:
			bumpR(n.List)
			bumpF(n.Flag)
		case bytecode.True:
			bumpF(n.Flag)
		case bytecode.False:
			bumpF(n.Flag)
		case bytecode.And:
			for _, f := range n.Flags {
				bumpF(f)
			}
			bumpF(n.Dst)
		case bytecode.Or:
			for _, f := range n.Flags {
				bumpF(f)
			}
			bumpF(n.Dst)
		case bytecode.Not:
			bumpF(n.Src)
			bumpF(n.Dst)
		case bytecode.FromBool:
			bumpF(n.Flag)
			bumpR(n.Dst)
		case bytecode.JumpIf:
			bumpF(n.Flag)
		case bytecode.Say:
			bumpR(n.Src)
		case bytecode.Trace:
			bumpR(n.Src)
		case bytecode.Ask:
			bumpR(n.Src)
			bumpR(n.Dst)
		case bytecode.Spawn:
			bumpR(n.Argv)
			bumpR(n.Dst)
		case bytecode.Recur:
			bumpR(n.Argv)
		case bytecode.SendMsg:
			bumpR(n.Msg)
			bumpR(n.Dst)
		case bytecode.GetPid:
			bumpR(n.Dst)
		case bytecode.Sleep:
			bumpR(n.Amt)
		case bytecode.MenuChoice:
			bumpR(n.List)
			bumpR(n.Dst)
		case bytecode.MenuItem:
			bumpR(n.Tag)
			bumpR(n.Text)
		case bytecode.Arm:
			bumpR(n.Env)
		case bytecode.Listen:
			bumpR(n.Env)
		case bytecode.Export:
			bumpR(n.Src)
		}
	}
	return regMax + 1, flagMax + 1
}

// Spawn creates and schedules a new process running scene with args as
// its positional argument list (§6.2 spawn). The first Spawn call becomes
// the main actor.
func (h *Host) Spawn(scene string, args []Value) (ActorId, error) {
	lbl, ok := h.prog.SceneLabels[scene]
	if !ok {
		return 0, UnknownScene{Scene: scene}
	}
	id := h.nextID
	h.nextID++

	p := newProcess(id, h.numRegs, h.numFlags)
	p.curArgs = append([]Value(nil), args...)
	p.curEnv = h.envForScene(scene)
	p.PC = h.prog.JumpTable[lbl]

	h.processes[id] = p
	h.order = append(h.order, id)
	if len(h.order) == 1 {
		h.mainID = id
	}
	if h.log != nil {
		h.log.Info("process spawned", "actor", id, "scene", scene)
	}
	return id, nil
}

func (h *Host) envForScene(sceneKey string) []Value {
	// SceneLabels keys are "<modpath>::<name>" (ast.SceneName.Key()); the
	// module path is everything before the last "::".
	if i := strings.LastIndex(sceneKey, "::"); i >= 0 {
		mod := sceneKey[:i]
		if id, ok := h.prog.ModuleEnvID[mod]; ok {
			return h.moduleEnvs[id]
		}
	}
	return nil
}

// Dispatch advances the scheduler for timeslice*clockspeed steps and
// returns the main process's resulting state (§4.6.5, §6.2).
func (h *Host) Dispatch(timeslice float64) MainState {
	steps := int(timeslice * h.clockspeed)
	for i := 0; i < steps; i++ {
		h.tick()
		if _, ok := h.processes[h.mainID]; !ok {
			break
		}
	}
	return h.mainState()
}

func (h *Host) tick() {
	h.deliverMessages()
	for _, id := range h.order {
		p, ok := h.processes[id]
		if !ok {
			continue
		}
		switch p.State {
		case Sleeping:
			p.sleepRemaining--
			if p.sleepRemaining <= 0 {
				p.State = Running
			}
		case Running:
			p.step(h)
			if p.State == OnFire {
				h.out = append(h.out, HcfSignal{Proc: id, Err: p.Err})
				if h.log != nil {
					h.log.Error("process caught fire", "actor", id, "err", p.Err)
				}
			}
		}
	}
	h.dropTerminated()
}

func (h *Host) dropTerminated() {
	live := h.order[:0]
	for _, id := range h.order {
		p := h.processes[id]
		if p.State == Terminated {
			delete(h.processes, id)
			h.out = append(h.out, ExitSignal{Proc: id})
			if h.log != nil {
				h.log.Info("process terminated", "actor", id)
			}
			continue
		}
		live = append(live, id)
	}
	h.order = live
}

// deliverMessages implements §4.6.4: every queued message is delivered to
// its addressee's trap table (newest first), or dropped if the
// addressee no longer exists.
func (h *Host) deliverMessages() {
	pending := h.messages
	h.messages = nil
	for _, m := range pending {
		p, ok := h.processes[m.dst]
		if !ok {
			continue // dropped: actor no longer exists (§5)
		}
		h.deliverOne(p, m)
	}
}

func (h *Host) deliverOne(p *Process, m message) {
	traps := append([]Trap(nil), p.Traps...)
	if len(traps) == 0 {
		return // unhandled, dropped (§4.6.4 "Exhausting the list leaves the message unhandled")
	}
	cont := continuation{
		returnPC:    p.PC,
		returnArgs:  p.curArgs,
		returnEnv:   p.curEnv,
		priorState:  p.State,
		priorSleep:  p.sleepRemaining,
		message:     m.body,
		sender:      bytecode.ActorId{ID: uint32(m.src)},
		traps:       traps,
		tryingIndex: len(traps) - 1,
	}
	p.conts = append(p.conts, cont)
	// Drive the reject-and-retry walk the same way doReturn(false) does,
	// entering the newest trap first.
	p.doReturn(h, false)
}

// spawnFromReg executes a Spawn instruction: read Argv, deep-copy into a
// fresh process's own heap/string heap (§4.6.3), schedule it, write the
// child's ActorId to Dst.
func (h *Host) spawnFromReg(p *Process, n bytecode.Spawn) {
	lbl, ok := h.prog.SceneLabels[n.Scene]
	if !ok {
		p.fault(UnknownScene{Scene: n.Scene})
		return
	}
	var srcArgs []Value
	if argv, ok := p.reg(n.Argv).(bytecode.ListAddr); ok {
		srcArgs, _ = readValueList(p, argv)
	}

	id := h.nextID
	h.nextID++
	child := newProcess(id, h.numRegs, h.numFlags)

	args := make([]Value, len(srcArgs))
	for i, v := range srcArgs {
		args[i] = copyValue(p, child, v)
	}
	child.curArgs = args
	child.curEnv = h.envForScene(n.Scene)
	child.PC = h.prog.JumpTable[lbl]

	h.processes[id] = child
	h.order = append(h.order, id)
	if h.log != nil {
		h.log.Info("process spawned", "actor", id, "scene", n.Scene, "parent", p.ID)
	}

	p.setReg(n.Dst, bytecode.ActorId{ID: uint32(id)})
	p.PC++
}

// recur replaces the current process's frame with a fresh one for the
// destination scene, reusing its own heap (tail calls never copy, they
// run in the same process, §4.6.2).
func (h *Host) recur(p *Process, n bytecode.Recur) {
	lbl, ok := h.prog.SceneLabels[n.Scene]
	if !ok {
		p.fault(UnknownScene{Scene: n.Scene})
		return
	}
	var args []Value
	if argv, ok := p.reg(n.Argv).(bytecode.ListAddr); ok {
		args, _ = readValueList(p, argv)
	}
	p.curArgs = append([]Value(nil), args...)
	p.curEnv = h.moduleEnvs[n.EnvID]
	p.PC = h.prog.JumpTable[lbl]
}

// sendFromReg executes a SendMsg instruction: Dst is the addressee's
// ActorId, Msg is the payload; the payload is deep-copied into the
// addressee's heap/string heap immediately (§4.6.3), since the addressee
// is already known.
func (h *Host) sendFromReg(p *Process, n bytecode.SendMsg) {
	dst, ok := p.reg(n.Dst).(bytecode.ActorId)
	if !ok {
		p.fault(WrongType{Proc: p.ID, Op: "SendMsg", Got: p.reg(n.Dst)})
		return
	}
	target := ActorId(dst.ID)
	body := p.reg(n.Msg)
	if tp, ok := h.processes[target]; ok {
		body = copyValue(p, tp, body)
	}
	h.messages = append(h.messages, message{src: p.ID, dst: target, body: body})
	p.PC++
}

func (h *Host) exportEnv(p *Process, n bytecode.Export) {
	if l, ok := p.reg(n.Src).(bytecode.ListAddr); ok {
		vals, _ := readValueList(p, l)
		h.moduleEnvs[n.EnvID] = append([]Value(nil), vals...)
	}
}

func (h *Host) rollDie(sides int32) int32 {
	if sides <= 0 {
		return 0
	}
	return int32(h.rng.Intn(int(sides))) + 1
}

func (h *Host) literal(lit bytecode.Literal) Value {
	switch lit.Kind {
	case bytecode.LitInt:
		return bytecode.Int{V: lit.Int}
	case bytecode.LitStringConst:
		return bytecode.StrConst{ID: lit.ConstID}
	case bytecode.LitAtomConst:
		return bytecode.AtomVal{ID: lit.ConstID}
	default:
		return bytecode.Int{}
	}
}

// displayString renders any Value as human-readable text for Say/Trace
// tokens and Splice concatenation.
func (h *Host) displayString(p *Process, v Value) string {
	switch x := v.(type) {
	case bytecode.Int:
		return displayInt(x)
	case bytecode.AtomVal:
		if x.ID < len(h.prog.Atoms) {
			return h.prog.Atoms[x.ID]
		}
		return fmt.Sprintf("#atom%d", x.ID)
	case bytecode.ActorId:
		return fmt.Sprintf("Actor(%d)", x.ID)
	case bytecode.StrConst, bytecode.StrAddr:
		return stringOf(h, p, v)
	case bytecode.ListAddr:
		vals, ok := readValueList(p, x)
		if !ok {
			return "[]"
		}
		parts := make([]string, len(vals))
		for i, e := range vals {
			parts[i] = h.displayString(p, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// say implements the Say instruction: emit a printable token and block
// the process for a host reply (§4.6.2, §6.2).
func (h *Host) say(p *Process, v Value) {
	token := h.nextToken
	h.nextToken++
	h.sayWaits[token] = sayWait{proc: p.ID}
	h.out = append(h.out, SaySignal{Proc: p.ID, Token: token, Value: h.displayString(p, v)})
	p.PC++ // resumes here once Write(token) is called
	p.State = Blocked
}

// trace implements the Trace instruction: a non-blocking diagnostic
// signal to the host.
func (h *Host) trace(p *Process, v Value) {
	h.out = append(h.out, TraceSignal{Proc: p.ID, Value: h.displayString(p, v)})
}

// Read returns the next host-bound signal, if any (§6.2).
func (h *Host) Read() (OutSignal, bool) {
	if len(h.out) == 0 {
		return nil, false
	}
	sig := h.out[0]
	h.out = h.out[1:]
	return sig, true
}

// Write delivers a reply to the pending Say correlated by token (§6.2).
func (h *Host) Write(token uint64) error {
	w, ok := h.sayWaits[token]
	if !ok {
		return fmt.Errorf("no pending Say for token %d", token)
	}
	delete(h.sayWaits, token)
	p, ok := h.processes[w.proc]
	if !ok {
		return nil // process ended before its reply arrived; nothing to resume
	}
	p.State = Running
	return nil
}

// Choose delivers a menu selection to the main process (§6.2); valid only
// while it reports WaitingForInput.
//
// A weave's pending menu (p.menu, built by MenuItem) and the low-level
// MenuChoice primitive's tag list (p.menuTags/menuDst) are mutually
// exclusive ways a process reaches WaitingForInput; whichever populated
// this one decides how the choice resolves.
func (h *Host) Choose(index int) error {
	p, ok := h.processes[h.mainID]
	if !ok {
		return fmt.Errorf("no main process")
	}
	if p.State != WaitingForInput {
		return fmt.Errorf("main process is not awaiting input")
	}
	if len(p.menu) > 0 {
		if index < 0 || index >= len(p.menu) {
			return fmt.Errorf("choice %d out of range (%d options)", index, len(p.menu))
		}
		opt := p.menu[index]
		p.menu = nil
		id, ok := h.atomID("MenuItem")
		if !ok {
			return fmt.Errorf("internal error: program never interned the MenuItem atom")
		}
		addr := len(p.Heap)
		p.Heap = append(p.Heap, bytecode.Capacity{N: 2}, bytecode.AtomVal{ID: id}, opt.tag)
		h.deliverOne(p, message{src: 0, dst: p.ID, body: bytecode.ListAddr{Addr: uint32(addr)}})
		return nil
	}
	if index < 0 || index >= len(p.menuTags) {
		return fmt.Errorf("choice %d out of range (%d options)", index, len(p.menuTags))
	}
	p.setReg(p.menuDst, bytecode.Int{V: int32(index)})
	p.menuTags = nil
	p.State = Running
	return nil
}

// atomID returns the interned ID for name, the same ID any compiled
// reference to that atom literal resolved to at translation time (the
// program's Atoms table is this correspondence's only record at
// runtime), or false if name was never interned.
func (h *Host) atomID(name string) (int, bool) {
	for i, s := range h.prog.Atoms {
		if s == name {
			return i, true
		}
	}
	return 0, false
}

// copyValue deep-copies v out of src's heap/string heap into dst's, the
// cross-process boundary Spawn/SendMsg cross (§4.6.3): ListAddr recurses
// over the list's elements, StrAddr clones the string, everything else
// (Int, AtomVal, ActorId, a StrConst naming an entry in the program's own
// immutable, shared table) copies by value as-is.
func copyValue(src, dst *Process, v Value) Value {
	switch x := v.(type) {
	case bytecode.ListAddr:
		elems, ok := readValueList(src, x)
		if !ok {
			return bytecode.ListAddr{}
		}
		out := make([]Value, len(elems))
		for i, e := range elems {
			out[i] = copyValue(src, dst, e)
		}
		addr := len(dst.Heap)
		dst.Heap = append(dst.Heap, bytecode.Capacity{N: uint32(len(out))})
		dst.Heap = append(dst.Heap, out...)
		return bytecode.ListAddr{Addr: uint32(addr)}
	case bytecode.StrAddr:
		id := dst.StrHeap.Append(src.StrHeap.At(int(x.Addr)))
		return bytecode.StrAddr{Addr: uint32(id)}
	default:
		return v
	}
}

// MainState is the externally visible status of the main process, the
// shape Dispatch reports to the host (§4.6.5, §6.2).
type MainState struct {
	Kind  MainStateKind
	Sleep int
	Err   error
	Menu  []string
}

type MainStateKind int

const (
	MainRunning MainStateKind = iota
	MainSleeping
	MainIdling
	MainSelfTerminated
	MainOnFire
	MainWaitingForInput
)

func (h *Host) mainState() MainState {
	p, ok := h.processes[h.mainID]
	if !ok {
		return MainState{Kind: MainSelfTerminated}
	}
	switch p.State {
	case Running, Blocked:
		return MainState{Kind: MainRunning}
	case Sleeping:
		return MainState{Kind: MainSleeping, Sleep: p.sleepRemaining}
	case Idling:
		return MainState{Kind: MainIdling}
	case OnFire:
		return MainState{Kind: MainOnFire, Err: p.Err}
	case WaitingForInput:
		if len(p.menu) > 0 {
			menu := make([]string, len(p.menu))
			for i, opt := range p.menu {
				menu[i] = opt.text
			}
			return MainState{Kind: MainWaitingForInput, Menu: menu}
		}
		return MainState{Kind: MainWaitingForInput, Menu: append([]string(nil), p.menuTags...)}
	default:
		return MainState{Kind: MainRunning}
	}
}

// OutSignal is a host-bound event surfaced through Read (§6.2).
type OutSignal interface{ outSignalNode() }

// ExitSignal reports a process's normal termination.
type ExitSignal struct{ Proc ActorId }

// HcfSignal reports a process's fatal runtime fault.
type HcfSignal struct {
	Proc ActorId
	Err  error
}

// TraceSignal carries a Trace instruction's diagnostic value.
type TraceSignal struct {
	Proc  ActorId
	Value string
}

// SaySignal carries a Say instruction's printable token; Token correlates
// a later Write call back to the process it unblocks.
type SaySignal struct {
	Proc  ActorId
	Token uint64
	Value string
}

func (ExitSignal) outSignalNode()  {}
func (HcfSignal) outSignalNode()   {}
func (TraceSignal) outSignalNode() {}
func (SaySignal) outSignalNode()   {}
