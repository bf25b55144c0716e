package vm_test

import (
	"testing"

	"github.com/weftlang/weft/bytecode"
	"github.com/weftlang/weft/vm"
)

// blankPrelude is the trivial "no modules" prelude block every hand-built
// test program needs at Label(0): a single Bye, so NewHost's bootstrap run
// terminates immediately.
func blankPrelude() []bytecode.Instr {
	return []bytecode.Instr{bytecode.Bye{}}
}

func TestHello(t *testing.T) {
	code := blankPrelude()
	startAddr := bytecode.InstrAddr(len(code))
	code = append(code,
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitStringConst, ConstID: 0}, Dst: 0},
		bytecode.Say{Src: 0},
		bytecode.Bye{},
	)
	prog := &bytecode.Program{
		Code:        code,
		JumpTable:   map[bytecode.Label]bytecode.InstrAddr{0: 0, 1: startAddr},
		SceneLabels: map[string]bytecode.Label{"m::start": 1},
		TrapLabels:  map[string]bytecode.Label{},
		ModuleEnvID: map[string]int{},
		Strings:     []string{"hello world"},
	}

	h, err := vm.NewHost(prog)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	if _, err := h.Spawn("m::start", nil); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	st := h.Dispatch(1.0)
	if st.Kind != vm.MainRunning {
		t.Fatalf("after first dispatch: got %v, want MainRunning (blocked on Say)", st.Kind)
	}

	sig, ok := h.Read()
	if !ok {
		t.Fatal("expected a Say signal, got none")
	}
	say, ok := sig.(vm.SaySignal)
	if !ok {
		t.Fatalf("expected SaySignal, got %T", sig)
	}
	if say.Value != "hello world" {
		t.Fatalf("say value = %q, want %q", say.Value, "hello world")
	}

	if err := h.Write(say.Token); err != nil {
		t.Fatalf("Write: %v", err)
	}
	st = h.Dispatch(1.0)
	if st.Kind != vm.MainSelfTerminated {
		t.Fatalf("after reply: got %v, want MainSelfTerminated", st.Kind)
	}

	if sig, ok := h.Read(); !ok {
		t.Fatal("expected an Exit signal, got none")
	} else if _, ok := sig.(vm.ExitSignal); !ok {
		t.Fatalf("expected ExitSignal, got %T", sig)
	}
}

func TestDivisionByZero(t *testing.T) {
	code := blankPrelude()
	startAddr := bytecode.InstrAddr(len(code))
	code = append(code,
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitInt, Int: 10}, Dst: 0},
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitInt, Int: 0}, Dst: 1},
		bytecode.Div{Src: 1, Dst: 0},
		bytecode.Bye{},
	)
	prog := &bytecode.Program{
		Code:        code,
		JumpTable:   map[bytecode.Label]bytecode.InstrAddr{0: 0, 1: startAddr},
		SceneLabels: map[string]bytecode.Label{"m::start": 1},
		TrapLabels:  map[string]bytecode.Label{},
		ModuleEnvID: map[string]int{},
	}

	h, err := vm.NewHost(prog)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	if _, err := h.Spawn("m::start", nil); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	st := h.Dispatch(1.0)
	if st.Kind != vm.MainOnFire {
		t.Fatalf("got %v, want MainOnFire", st.Kind)
	}
	if _, ok := st.Err.(vm.DividedByZero); !ok {
		t.Fatalf("err = %v (%T), want vm.DividedByZero", st.Err, st.Err)
	}
}

func TestMenuChoice(t *testing.T) {
	code := blankPrelude()
	startAddr := bytecode.InstrAddr(len(code))
	code = append(code,
		// build the tag list ["A", "B"] on the heap
		bytecode.Alloc{N: 2, Dst: 0}, // r0 = list header
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitStringConst, ConstID: 0}, Dst: 1}, // "A"
		bytecode.Cpy{Src: 0, Dst: 2},
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitInt, Int: 1}, Dst: 3},
		bytecode.Add{Src: 3, Dst: 2}, // r2 = r0+1
		bytecode.Write{Src: 1, Ptr: 2},
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitStringConst, ConstID: 1}, Dst: 1}, // "B"
		bytecode.Cpy{Src: 0, Dst: 2},
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitInt, Int: 2}, Dst: 3},
		bytecode.Add{Src: 3, Dst: 2}, // r2 = r0+2
		bytecode.Write{Src: 1, Ptr: 2},
		bytecode.MenuChoice{List: 0, Dst: 4},
		bytecode.Bye{},
	)
	prog := &bytecode.Program{
		Code:        code,
		JumpTable:   map[bytecode.Label]bytecode.InstrAddr{0: 0, 1: startAddr},
		SceneLabels: map[string]bytecode.Label{"m::start": 1},
		TrapLabels:  map[string]bytecode.Label{},
		ModuleEnvID: map[string]int{},
		Strings:     []string{"A", "B"},
	}

	h, err := vm.NewHost(prog)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	if _, err := h.Spawn("m::start", nil); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	st := h.Dispatch(1.0)
	if st.Kind != vm.MainWaitingForInput {
		t.Fatalf("got %v, want MainWaitingForInput", st.Kind)
	}
	if len(st.Menu) != 2 || st.Menu[0] != "A" || st.Menu[1] != "B" {
		t.Fatalf("menu = %v, want [A B]", st.Menu)
	}

	if err := h.Choose(1); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	st = h.Dispatch(1.0)
	if st.Kind != vm.MainSelfTerminated {
		t.Fatalf("got %v, want MainSelfTerminated", st.Kind)
	}
}

func TestTrapDelivery(t *testing.T) {
	code := blankPrelude()

	lambdaAddr := bytecode.InstrAddr(len(code))
	code = append(code,
		bytecode.LoadArg{Index: 0, Dst: 0},
		bytecode.Trace{Src: 0},
		bytecode.Return{Finished: true},
	)

	receiverAddr := bytecode.InstrAddr(len(code))
	code = append(code,
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitInt, Int: 0}, Dst: 0},
		bytecode.Arm{Env: 0, Target: "m::receiver#die"},
		bytecode.Park{},
	)

	senderAddr := bytecode.InstrAddr(len(code))
	code = append(code,
		bytecode.LoadArg{Index: 0, Dst: 0}, // target pid
		bytecode.LoadLit{Lit: bytecode.Literal{Kind: bytecode.LitInt, Int: 42}, Dst: 1},
		bytecode.SendMsg{Msg: 1, Dst: 0},
		bytecode.Bye{},
	)

	prog := &bytecode.Program{
		Code:      code,
		JumpTable: map[bytecode.Label]bytecode.InstrAddr{0: 0, 1: lambdaAddr, 2: receiverAddr, 3: senderAddr},
		SceneLabels: map[string]bytecode.Label{
			"m::receiver": 2,
			"m::sender":   3,
		},
		TrapLabels: map[string]bytecode.Label{
			"m::receiver#die": 1,
		},
		ModuleEnvID: map[string]int{},
	}

	h, err := vm.NewHost(prog)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	receiverPid, err := h.Spawn("m::receiver", nil)
	if err != nil {
		t.Fatalf("Spawn receiver: %v", err)
	}
	if _, err := h.Spawn("m::sender", []bytecode.Value{bytecode.ActorId{ID: uint32(receiverPid)}}); err != nil {
		t.Fatalf("Spawn sender: %v", err)
	}

	h.Dispatch(1.0)

	var sawExit, sawTrace bool
	for {
		sig, ok := h.Read()
		if !ok {
			break
		}
		switch s := sig.(type) {
		case vm.ExitSignal:
			sawExit = true
		case vm.TraceSignal:
			sawTrace = true
			if s.Value != "42" {
				t.Fatalf("trace value = %q, want %q", s.Value, "42")
			}
		}
	}
	if !sawExit {
		t.Fatal("expected an Exit signal from the sender process")
	}
	if !sawTrace {
		t.Fatal("expected a Trace signal from the receiver's trap")
	}
}
