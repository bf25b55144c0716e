// Package vm executes a compiled bytecode.Program as a population of
// cooperating lightweight processes (§4.6). A Host (scheduler.go) owns the
// process table, the message bus, and the module prelude environments;
// each Process (this file) owns its own register file, heap, string heap,
// and trap table.
package vm

import (
	"fmt"

	"github.com/weftlang/weft/bytecode"
	"github.com/weftlang/weft/internal/strheap"
)

// ActorId identifies a process. Zero is never assigned to a spawned
// process; it names the synthetic host channel (§3.2 RPidZero).
type ActorId uint32

// Value is the runtime value a register, heap cell, or argument holds.
type Value = bytecode.Value

// RunState is a process's scheduling state (§4.6.5).
type RunState int

const (
	// Running executes one instruction per scheduler step.
	Running RunState = iota
	// Sleeping counts down a remaining time budget before resuming.
	Sleeping
	// Blocked awaits a trap delivery (Park, or the implicit block Listen
	// performs) and is otherwise inert.
	Blocked
	// Idling has no pending work but remains alive: a top-level
	// Return(true) with no caller to resume leaves the process here
	// rather than terminating it, so traps armed (not via Listen) before
	// the fall-through stay live (§3.4 "Exist until ... Return(false) at
	// the top of the call stack").
	Idling
	// Terminated processes are dropped by the next scheduler tick.
	Terminated
	// OnFire holds a fatal runtime error; the process no longer executes.
	OnFire
	// WaitingForInput is valid only for the main process: a weave's
	// compiled menu wait is pending a host Choose call.
	WaitingForInput
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "Running"
	case Sleeping:
		return "Sleeping"
	case Blocked:
		return "Blocked"
	case Idling:
		return "Idling"
	case Terminated:
		return "Terminated"
	case OnFire:
		return "OnFire"
	case WaitingForInput:
		return "WaitingForInput"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Trap is an installed handler: Label is the qualified label it was armed
// under and Env is the lambda's captured environment, snapshotted at
// Arm/Listen time (§4.6.1 "Traps: ordered list of installed Trap{label,
// env} entries").
type Trap struct {
	Label string
	Env   []Value
}

// continuation is the TrapState frame §4.6.1/§4.6.4 describe: pushed when
// a message is delivered, popped when the trap invocation finishes
// (Return(true)) or every installed trap has rejected the message.
type continuation struct {
	returnPC   bytecode.InstrAddr
	returnArgs []Value
	returnEnv  []Value
	priorState RunState
	priorSleep int

	message Value
	sender  Value

	traps       []Trap // snapshot taken at delivery time (§4.6.4 step 1)
	tryingIndex int     // next index into traps to attempt, walked newest (len-1) to oldest (0)
}

// Process is one actor: its own register file, heap, string heap, trap
// table, and program counter (§4.6.1).
type Process struct {
	ID ActorId

	Regs  []Value
	Flags []bool

	Heap    []Value
	StrHeap strheap.Heap

	Traps []Trap

	PC    bytecode.InstrAddr
	State RunState
	Err   error

	sleepRemaining int

	menuTags []string
	menuDst  bytecode.Reg // register MenuChoice promised to write Choose's result into

	menu []menuOption // options a weave's MenuItem sends have accumulated (§4.3 pass 4)

	curArgs []Value
	curEnv  []Value

	conts []continuation
}

// menuOption is one item a MenuItem instruction has offered while a
// weave's reply trap is armed: tag is what Choose echoes back into the
// reply message for the trap to match against, text is what the host
// displays for it.
type menuOption struct {
	tag  Value
	text string
}

func newProcess(id ActorId, numRegs, numFlags int) *Process {
	return &Process{
		ID:    id,
		Regs:  make([]Value, numRegs),
		Flags: make([]bool, numFlags),
		State: Running,
	}
}

func (p *Process) reg(r bytecode.Reg) Value          { return p.Regs[r] }
func (p *Process) setReg(r bytecode.Reg, v Value)    { p.Regs[r] = v }
func (p *Process) flag(f bytecode.FlagID) bool       { return p.Flags[f] }
func (p *Process) setFlag(f bytecode.FlagID, b bool) { p.Flags[f] = b }
