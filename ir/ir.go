// Package ir defines the intermediate representation §3.2 describes:
// basic blocks of straight-line ops terminated by exactly one exit, plus
// the AST→IR translator in translate.go (§4.4).
package ir

import "github.com/weftlang/weft/ast"

// Label names a Block by its position in a Program's flat block list.
type Label int

// Var names an IR-level binding. User-written names are reused verbatim
// (scoping, not the register allocator, keeps disjoint lifetimes from
// colliding); machine-generated temporaries use the TEMP%<hex> form.
type Var string

// FlagID is a block-local condition-result id; a Block's header records
// how many distinct flags it uses so the VM can reserve them.
type FlagID int

// ConstKind distinguishes the two interned constant tables a ConstRef may
// point into.
type ConstKind int

const (
	ConstString ConstKind = iota
	ConstAtom
)

// Block is a straight-line op sequence terminated by exactly one Exit
// (§3.4 invariant). NumFlags is the count of distinct FlagIDs Ops/Exit
// reference, reserved up front by the VM.
type Block struct {
	ID       Label
	NumFlags int
	Ops      []Op
	Exit     Exit
}

// Program is the translator's output: a flat block list plus the tables
// the bytecode translator and VM need to resolve scene calls, trap
// deliveries, and prelude environments.
type Program struct {
	Blocks []*Block
	// SceneLabels maps a qualified scene name's Key() to its entry block.
	SceneLabels map[string]Label
	// TrapLabels maps a qualified trap label's Key() to its lambda's
	// entry block.
	TrapLabels map[string]Label
	// ModuleEnvID maps a module path's String() to the prelude
	// environment id block 0 exports it under.
	ModuleEnvID map[string]int
	// ModuleEnvNames records, per module path string, the ordered
	// identifier names exported into that module's prelude environment —
	// the order scenes in that module re-bind them in via LoadEnv (§4.4.1).
	ModuleEnvNames map[string][]string
	Strings        []string
	Atoms          []string
}

// Op is the IR op sum (§3.2).
type Op interface{ opNode() }

// LetOp binds Var to the value Rvalue produces.
type LetOp struct {
	Var   Var
	Value Rvalue
}

// SetFlagOp binds Flag to the boolean Tvalue produces.
type SetFlagOp struct {
	Flag  FlagID
	Value Tvalue
}

// StoreOp writes the value held by Var to the heap address held by Ptr.
type StoreOp struct {
	Var Var
	Ptr Var
}

// SayOp emits a printable token carrying Value and blocks for a host
// reply (§4.6.2).
type SayOp struct {
	Value Var
}

// TraceOp emits a diagnostic signal carrying Value to the host.
type TraceOp struct {
	Value Var
}

// WaitOp suspends the process. Infinite waits never resolve the Value
// field; it names the number of time units otherwise.
type WaitOp struct {
	Value    Var
	Infinite bool
}

// SendMsgOp enqueues Message for delivery to Target.
type SendMsgOp struct {
	Target  Var
	Message Var
}

// ArmOp installs a non-blocking trap lambda at Label, with Env as its
// captured environment.
type ArmOp struct {
	Env   Var
	Label ast.Label
}

// ListenOp installs a trap lambda at Label exactly as ArmOp does, and
// additionally blocks the process until the trap fires — the fused form
// of an Arm immediately followed by Wait{Infinity} that desugar_listen
// and a blocking desugar_trap arm produce.
type ListenOp struct {
	Env   Var
	Label ast.Label
}

// DisarmOp removes the trap installed at Label, if any.
type DisarmOp struct {
	Label ast.Label
}

// MenuItemOp records one offered weave option for the host's pending
// menu: Tag is echoed back by Choose to drive the reply trap, Text is
// what the host displays. Never blocks — the host only sees the
// accumulated list once the process parks (§4.3 pass 4, §4.6.5).
type MenuItemOp struct {
	Tag  Var
	Text Var
}

// ExportOp records, under EnvID, the list value Var holds as a module's
// prelude environment (§4.4.1).
type ExportOp struct {
	EnvID int
	Var   Var
}

func (LetOp) opNode()      {}
func (SetFlagOp) opNode()  {}
func (StoreOp) opNode()    {}
func (SayOp) opNode()      {}
func (TraceOp) opNode()    {}
func (WaitOp) opNode()     {}
func (SendMsgOp) opNode()  {}
func (ArmOp) opNode()      {}
func (ListenOp) opNode()   {}
func (DisarmOp) opNode()   {}
func (MenuItemOp) opNode() {}
func (ExportOp) opNode()   {}

// Rvalue is the IR expression-result sum (§3.2).
type Rvalue interface{ rvalueNode() }

// RVar copies the value another binding already holds.
type RVar struct{ Var Var }

// RInt is an integer literal.
type RInt struct{ Value int32 }

// RConst references an interned string or atom constant.
type RConst struct {
	Kind ConstKind
	ID   int
}

// RArith is a binary arithmetic rvalue; Op's Roll case treats Lhs as dice
// count and Rhs as side count (§9).
type RArith struct {
	Op       ast.ArithOp
	Lhs, Rhs Var
}

// RAlloc allocates N+1 heap words (a length header plus N payload words)
// and returns the base address, with the header already written — list
// construction continues with StoreOp at offsets 1..N (§3.4 heap layout).
type RAlloc struct{ N int }

// RLoad reads the heap word at the address Ptr holds.
type RLoad struct{ Ptr Var }

// RLoadEnv reads positional element Index of whichever environment is
// active in the current execution context: a module's prelude environment
// when translating a scene, or a trap's captured environment when
// translating a lambda (§4.4.1, §4.3 pass 3).
type RLoadEnv struct{ Index int }

// RFromBool reifies a flag's boolean value as 1 or 0.
type RFromBool struct{ Flag FlagID }

// RSpawn spawns a new process and evaluates to its ActorId.
type RSpawn struct{ Call CallRef }

// RSplice concatenates the string forms of Vars with single-space
// separators.
type RSplice struct{ Vars []Var }

// RMenuChoice presents the string list at List as a host menu and
// evaluates to the index the host's Choose picks.
type RMenuChoice struct{ List Var }

// RPidOfSelf evaluates to the owning process's ActorId.
type RPidOfSelf struct{}

// RPidZero evaluates to the synthetic host-channel ActorId. Not part of
// the Rvalue sum spec §3.2 enumerates, but required: PidZero is a surface
// Expr (§3.1) and must translate to something; it is modeled as its own
// nullary rvalue rather than coerced through RInt so it carries ActorId
// type at the Value layer instead of Int (see DESIGN.md).
type RPidZero struct{}

// RArg is a positional reference to an incoming call/message argument.
type RArg struct{ Index int }

func (RVar) rvalueNode()        {}
func (RInt) rvalueNode()        {}
func (RConst) rvalueNode()      {}
func (RArith) rvalueNode()      {}
func (RAlloc) rvalueNode()      {}
func (RLoad) rvalueNode()       {}
func (RLoadEnv) rvalueNode()    {}
func (RFromBool) rvalueNode()   {}
func (RSpawn) rvalueNode()      {}
func (RSplice) rvalueNode()     {}
func (RMenuChoice) rvalueNode() {}
func (RPidOfSelf) rvalueNode()  {}
func (RPidZero) rvalueNode()    {}
func (RArg) rvalueNode()        {}

// CallRef packages a scene reference with the variable holding its
// already-constructed argv list.
type CallRef struct {
	Scene ast.SceneName
	Argv  Var
}

// Tvalue is the IR condition-result sum (§3.2).
type Tvalue interface{ tvalueNode() }

type TTrue struct{}
type TFalse struct{}

// TCompare compares two variables with a CompareOp.
type TCompare struct {
	Op       ast.CompareOp
	Lhs, Rhs Var
}

// THasLen tests whether the list at List has exactly Len elements.
type THasLen struct {
	List Var
	Len  int
}

type TAnd struct{ Flags []FlagID }
type TOr struct{ Flags []FlagID }
type TNot struct{ Flag FlagID }

func (TTrue) tvalueNode()    {}
func (TFalse) tvalueNode()   {}
func (TCompare) tvalueNode() {}
func (THasLen) tvalueNode()  {}
func (TAnd) tvalueNode()     {}
func (TOr) tvalueNode()      {}
func (TNot) tvalueNode()     {}

// Exit is the IR block-terminator sum (§3.2).
type Exit interface{ exitNode() }

// EndProcess ends block 0 (the sequence of prelude translations run once
// at VM init) — it is not itself a process, so it has no caller to return
// to.
type EndProcess struct{}

// Goto unconditionally transfers control to Target.
type Goto struct{ Target Label }

// IfThenElse transfers to Succ when Flag holds, Fail otherwise.
type IfThenElse struct {
	Flag       FlagID
	Succ, Fail Label
}

// Recur replaces the current process frame with Call's destination scene.
type Recur struct{ Call CallRef }

// Return exits the current trap/scene invocation (§3.1).
type Return struct{ Result bool }

func (EndProcess) exitNode() {}
func (Goto) exitNode()       {}
func (IfThenElse) exitNode() {}
func (Recur) exitNode()      {}
func (Return) exitNode()     {}
