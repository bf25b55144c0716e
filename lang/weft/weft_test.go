package weft_test

import (
	"testing"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/lang/weft"
	"github.com/weftlang/weft/vm"
)

func oneScene(body ast.Block) *ast.Program {
	return &ast.Program{
		Modules: []ast.ModuleEntry{
			{
				Path: ast.Modpath{"town"},
				Module: ast.Module{
					Scenes: []ast.Scene{
						{Name: ast.SceneName{Name: "start"}, Body: body},
					},
				},
			},
		},
	}
}

func TestCompileRunsFullPipeline(t *testing.T) {
	body := ast.Block{Stmts: []ast.Stmt{
		ast.Naked{Target: ast.PidZero{}, Text: []ast.Expr{ast.StrLit{Value: "hello"}}},
	}}
	res, err := weft.Compile(oneScene(body))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Program == nil {
		t.Fatal("Compile: nil Program on success")
	}
	if len(res.Program.Code) == 0 {
		t.Fatal("Compile: empty bytecode for a non-trivial scene")
	}
	if _, ok := res.Program.SceneLabels["town::start"]; !ok {
		t.Fatalf("Compile: scene labels = %v, want town::start", res.Program.SceneLabels)
	}
}

// TestWeaveReachesHostMenuAndResolves drives a Weave through the full
// compiler pipeline and the VM, confirming the branching-menu worked
// example end to end: the host sees a pending menu built from the arms'
// display text, and choosing one runs that arm's body.
func TestWeaveReachesHostMenuAndResolves(t *testing.T) {
	body := ast.Block{Stmts: []ast.Stmt{
		ast.Weave{Label: ast.Label{Kind: ast.LabelAnonymous}, Arms: []ast.WeaveArm{
			{Guard: ast.CTrue{}, Message: ast.StrLit{Value: "Go left"}, Body: ast.Block{Stmts: []ast.Stmt{
				ast.Naked{Target: ast.PidZero{}, Text: []ast.Expr{ast.StrLit{Value: "you went left"}}},
			}}},
			{Guard: ast.CLastResort{}, Message: ast.StrLit{Value: "Go right"}, Body: ast.Block{Stmts: []ast.Stmt{
				ast.Naked{Target: ast.PidZero{}, Text: []ast.Expr{ast.StrLit{Value: "you went right"}}},
			}}},
		}},
	}}

	res, err := weft.Compile(oneScene(body))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	h, err := vm.NewHost(res.Program)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	if _, err := h.Spawn("town::start", nil); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	st := h.Dispatch(1.0)
	if st.Kind != vm.MainWaitingForInput {
		t.Fatalf("Dispatch: got %v, want MainWaitingForInput", st.Kind)
	}
	if len(st.Menu) != 2 || st.Menu[0] != "Go left" || st.Menu[1] != "Go right" {
		t.Fatalf("Menu = %v, want [Go left Go right]", st.Menu)
	}

	if err := h.Choose(0); err != nil {
		t.Fatalf("Choose: %v", err)
	}
	h.Dispatch(1.0)

	sig, ok := h.Read()
	if !ok {
		t.Fatal("Read: no output after Choose, want the chosen arm's Say")
	}
	say, ok := sig.(vm.SaySignal)
	if !ok || say.Value != "you went left" {
		t.Fatalf("got %#v, want a SaySignal with Value %q", sig, "you went left")
	}
}

func TestCompileSurfacesCheckErrors(t *testing.T) {
	body := ast.Block{Stmts: []ast.Stmt{
		ast.Discard{Value: ast.Ident{Name: "undefined"}},
	}}
	if _, err := weft.Compile(oneScene(body)); err == nil {
		t.Fatal("Compile: want error for an undefined variable reference, got nil")
	}
}
