// Package bytecode defines the linear instruction set §3.3 describes —
// register-file and flag operations, jumps, blocking I/O/actor
// operations, and the Program representation the translator in
// translate.go (§4.5) produces from ir.Program — plus the runtime Value
// sum the vm package executes instructions over.
package bytecode

import "github.com/weftlang/weft/ir"

// Reg names a register in a process's flat register file. Every ir.Var
// maps to exactly one Reg (§4.5 "every IR Var maps to a unique Reg").
type Reg int32

// FlagID is a process-local condition flag, reserved per block the way
// ir.Block.NumFlags records.
type FlagID int32

// InstrAddr indexes Program.Code.
type InstrAddr int32

// Label indexes Program.JumpTable; it is the same identifier space as
// ir.Label (one bytecode Label per IR block).
type Label = ir.Label

// ConstKind mirrors ir.ConstKind for the two interned constant tables.
type ConstKind = ir.ConstKind

const (
	ConstString = ir.ConstString
	ConstAtom   = ir.ConstAtom
)

// Program is a compiled unit ready to load into a process: flat code
// indexed by InstrAddr, a jump table resolving block labels to code
// addresses, and the constant tables every LoadLit instruction indexes
// into (§3.3).
type Program struct {
	Code      []Instr
	JumpTable map[Label]InstrAddr

	SceneLabels map[string]Label
	TrapLabels  map[string]Label

	ModuleEnvID map[string]int

	Strings []string
	Atoms   []string
}

// Instr is the bytecode instruction sum (§3.3, §4.6.2).
type Instr interface{ instrNode() }

// Nop does nothing.
type Nop struct{}

// Cpy copies Src into Dst.
type Cpy struct{ Src, Dst Reg }

// LoadLit loads a compile-time constant into Dst.
type LoadLit struct {
	Lit Literal
	Dst Reg
}

// Literal is an immediate operand for LoadLit: exactly one of its fields
// is meaningful, selected by Kind.
type Literal struct {
	Kind    LiteralKind
	Int     int32
	ConstID int
}

type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitStringConst
	LitAtomConst
)

// LoadEnv reads positional element Index of the environment active when
// this instruction's block runs (a module's prelude environment for a
// scene entry block, a trap's captured environment for a lambda entry
// block).
type LoadEnv struct {
	Index int
	Dst   Reg
}

// LoadArg reads positional call/message argument Index.
type LoadArg struct {
	Index int
	Dst   Reg
}

// LoadPidZero writes the synthetic host-channel ActorId to Dst.
type LoadPidZero struct{ Dst Reg }

// Splice concatenates the string forms of Vars into a freshly allocated
// runtime string, written to Dst.
type Splice struct {
	Vars []Reg
	Dst  Reg
}

// Park suspends the process until a trap delivery resumes it (the
// bytecode realization of an infinite Wait — distinct from the
// elapsed-time suspension Sleep performs).
type Park struct{}

// Arithmetic two-operand register ops: Dst := Dst <op> Src (§4.5's
// Cpy-then-in-place emission rule).
type Add struct{ Src, Dst Reg }
type Sub struct{ Src, Dst Reg }
type Mul struct{ Src, Dst Reg }
type Div struct{ Src, Dst Reg }
type Roll struct {
	Src, Dst Reg
}

// Heap ops.
type Alloc struct {
	N   int
	Dst Reg
}
type Read struct{ Ptr, Dst Reg }
type Write struct{ Src, Ptr Reg }

// Flag ops: comparisons write their boolean result to Flag.
type Eql struct {
	Lhs, Rhs Reg
	Flag     FlagID
}
type Gt struct {
	Lhs, Rhs Reg
	Flag     FlagID
}
type Lt struct {
	Lhs, Rhs Reg
	Flag     FlagID
}
type Gte struct {
	Lhs, Rhs Reg
	Flag     FlagID
}
type Lte struct {
	Lhs, Rhs Reg
	Flag     FlagID
}
type HasLen struct {
	List Reg
	N    int
	Flag FlagID
}
type True struct{ Flag FlagID }
type False struct{ Flag FlagID }
type And struct {
	Flags []FlagID
	Dst   FlagID
}
type Or struct {
	Flags []FlagID
	Dst   FlagID
}
type Not struct {
	Src, Dst FlagID
}
type FromBool struct {
	Flag FlagID
	Dst  Reg
}

// Jump unconditionally transfers control to Target.
type Jump struct{ Target Label }

// JumpIf transfers control to Target when Flag is set.
type JumpIf struct {
	Flag   FlagID
	Target Label
}

// Say emits a printable token built from Src and blocks for a host reply.
type Say struct{ Src Reg }

// Trace emits a diagnostic token built from Src to the host; unlike Say
// it does not block for a reply.
type Trace struct{ Src Reg }

// Ask is a generalized request-reply primitive the ISA reserves for
// future host-mediated exchanges beyond Say/MenuChoice; no surface
// construct currently compiles to it (see DESIGN.md).
type Ask struct{ Src, Dst Reg }

// Spawn creates a new process running Scene with Argv as its
// positional argument list, writing the child's ActorId to Dst.
type Spawn struct {
	Argv  Reg
	Scene string
	Dst   Reg
}

// Recur replaces the current process frame with a fresh one for Scene,
// using EnvID's prelude environment and Argv as the new argument list.
type Recur struct {
	Argv  Reg
	EnvID int
	Scene string
}

// SendMsg enqueues Msg for delivery to the actor named by Dst.
type SendMsg struct{ Msg, Dst Reg }

// GetPid writes the owning process's ActorId to Dst.
type GetPid struct{ Dst Reg }

// Sleep suspends the process for Amt time units.
type Sleep struct{ Amt Reg }

// MenuChoice presents the strings in the list at List as a host menu and
// suspends the process in WaitingForInput; a later Choose writes the
// chosen entry's index to Dst and resumes it.
type MenuChoice struct {
	List Reg
	Dst  Reg
}

// Arm installs a trap lambda at Target with Env as its captured
// environment list.
type Arm struct {
	Env    Reg
	Target string
}

// Listen installs a trap exactly as Arm does and additionally blocks the
// process until that trap fires.
type Listen struct {
	Env    Reg
	Target string
}

// Disarm removes the trap installed at Target, if any.
type Disarm struct{ Target string }

// MenuItem appends one pending host-menu option: Tag is echoed back by a
// later Choose to drive the matching reply trap, Text is what the host
// displays. Never blocks, unlike MenuChoice.
type MenuItem struct {
	Tag  Reg
	Text Reg
}

// Export records, under EnvID, the list at Src as a module's prelude
// environment.
type Export struct {
	EnvID int
	Src   Reg
}

// Return pops the current continuation; Finished distinguishes a
// successful return from a trap rejection that should try the next
// older trap (§4.6.2, §4.6.4).
type Return struct{ Finished bool }

// Bye ends the process normally.
type Bye struct{}

// Hcf raises a fatal VM error ("halt and catch fire").
type Hcf struct{ Reason string }

func (Nop) instrNode()         {}
func (Cpy) instrNode()         {}
func (LoadLit) instrNode()     {}
func (LoadEnv) instrNode()     {}
func (LoadArg) instrNode()     {}
func (LoadPidZero) instrNode() {}
func (Splice) instrNode()      {}
func (Park) instrNode()        {}
func (Add) instrNode()         {}
func (Sub) instrNode()         {}
func (Mul) instrNode()         {}
func (Div) instrNode()         {}
func (Roll) instrNode()        {}
func (Alloc) instrNode()       {}
func (Read) instrNode()        {}
func (Write) instrNode()       {}
func (Eql) instrNode()         {}
func (Gt) instrNode()          {}
func (Lt) instrNode()          {}
func (Gte) instrNode()         {}
func (Lte) instrNode()         {}
func (HasLen) instrNode()      {}
func (True) instrNode()        {}
func (False) instrNode()       {}
func (And) instrNode()         {}
func (Or) instrNode()          {}
func (Not) instrNode()         {}
func (FromBool) instrNode()    {}
func (Jump) instrNode()        {}
func (JumpIf) instrNode()      {}
func (Say) instrNode()         {}
func (Trace) instrNode()       {}
func (Ask) instrNode()         {}
func (Spawn) instrNode()       {}
func (Recur) instrNode()       {}
func (SendMsg) instrNode()     {}
func (GetPid) instrNode()      {}
func (Sleep) instrNode()       {}
func (MenuChoice) instrNode()  {}
func (Arm) instrNode()         {}
func (Listen) instrNode()      {}
func (Disarm) instrNode()      {}
func (MenuItem) instrNode()    {}
func (Export) instrNode()      {}
func (Return) instrNode()      {}
func (Bye) instrNode()         {}
func (Hcf) instrNode()         {}

// Value is the runtime value sum the vm package's register file and heap
// hold (§3.3).
type Value interface{ valueNode() }

type Int struct{ V int32 }
type AtomVal struct{ ID int }
type ActorId struct{ ID uint32 }
type StrConst struct{ ID int }
type StrAddr struct{ Addr uint32 }
type ListAddr struct{ Addr uint32 }
type Capacity struct{ N uint32 }

func (Int) valueNode()      {}
func (AtomVal) valueNode()  {}
func (ActorId) valueNode()  {}
func (StrConst) valueNode() {}
func (StrAddr) valueNode()  {}
func (ListAddr) valueNode() {}
func (Capacity) valueNode() {}
