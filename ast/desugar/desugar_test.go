package desugar_test

import (
	"testing"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/ast/desugar"
)

func oneScene(body ast.Block) *ast.Program {
	return &ast.Program{
		Modules: []ast.ModuleEntry{
			{
				Path: ast.Modpath{"town"},
				Module: ast.Module{
					Scenes: []ast.Scene{
						{Name: ast.SceneName{Name: "start", InModule: ast.Modpath{"town"}, Qualified: true}, Body: body},
					},
				},
			},
		},
	}
}

func walkCount(t *testing.T, b ast.Block, want map[string]int) {
	t.Helper()
	got := map[string]int{}
	err := ast.Walk(b, func(s ast.Stmt) error {
		switch s.(type) {
		case ast.Naked:
			got["Naked"]++
		case ast.Listen:
			got["Listen"]++
		case ast.Trap:
			got["Trap"]++
		case ast.Weave:
			got["Weave"]++
		case ast.Match:
			got["Match"]++
		case ast.SendMsg:
			got["SendMsg"]++
		case ast.If:
			got["If"]++
		case ast.Arm:
			got["Arm"]++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	for k, n := range want {
		if got[k] != n {
			t.Errorf("%s count = %d, want %d (all counts: %v)", k, got[k], n, got)
		}
	}
}

func TestNakedCoalescesHostRun(t *testing.T) {
	b := ast.Block{Stmts: []ast.Stmt{
		ast.Naked{Target: ast.PidZero{}, Text: []ast.Expr{ast.StrLit{Value: "Hello."}}},
		ast.Naked{Target: ast.PidZero{}, Text: []ast.Expr{ast.StrLit{Value: "World."}}},
		ast.Let{Var: "x", Value: ast.IntLit{Value: 1}},
		ast.Naked{Target: ast.Ident{Name: "npc"}, Text: []ast.Expr{ast.StrLit{Value: "aside"}}},
	}}
	out := desugar.Naked(b)
	if len(out.Stmts) != 3 {
		t.Fatalf("got %d statements, want 3: %#v", len(out.Stmts), out.Stmts)
	}
	send, ok := out.Stmts[0].(ast.SendMsg)
	if !ok {
		t.Fatalf("stmt 0 = %T, want SendMsg", out.Stmts[0])
	}
	splice, ok := send.Message.(ast.Splice)
	if !ok || len(splice.Parts) != 2 {
		t.Fatalf("coalesced message = %#v, want a 2-part Splice", send.Message)
	}
	if _, ok := out.Stmts[1].(ast.Let); !ok {
		t.Fatalf("stmt 1 = %T, want Let", out.Stmts[1])
	}
	aside, ok := out.Stmts[2].(ast.SendMsg)
	if !ok {
		t.Fatalf("stmt 2 = %T, want SendMsg", out.Stmts[2])
	}
	if _, ok := aside.Target.(ast.Ident); !ok {
		t.Errorf("non-host naked should keep its own target, got %#v", aside.Target)
	}
}

func TestListenBecomesTrapAndWait(t *testing.T) {
	label := ast.Label{Kind: ast.LabelQualified, Name: "l", Scene: ast.SceneName{Name: "start", InModule: ast.Modpath{"town"}, Qualified: true}}
	b := ast.Block{Stmts: []ast.Stmt{
		ast.Listen{Label: label, Arms: []ast.TrapArm{
			{Pattern: ast.PHole{}, Origin: ast.PHole{}, Body: ast.Block{}},
		}},
	}}
	out, err := desugar.Listen(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(out.Stmts))
	}
	tr, ok := out.Stmts[0].(ast.Trap)
	if !ok || tr.Label.Name != label.Name || tr.Label.Kind != label.Kind {
		t.Errorf("stmt 0 = %#v, want Trap{Label: %v}", out.Stmts[0], label)
	}
	wait, ok := out.Stmts[1].(ast.Wait)
	if !ok {
		t.Fatalf("stmt 1 = %T, want Wait", out.Stmts[1])
	}
	if _, ok := wait.Value.(ast.InfinityExpr); !ok {
		t.Errorf("wait value = %#v, want InfinityExpr", wait.Value)
	}
}

func TestPipelineEliminatesAllSugar(t *testing.T) {
	scene := ast.SceneName{Name: "start", InModule: ast.Modpath{"town"}, Qualified: true}
	label := ast.Label{Kind: ast.LabelQualified, Name: "reply", Scene: scene}

	prog := oneScene(ast.Block{Stmts: []ast.Stmt{
		ast.Naked{Target: ast.PidZero{}, Text: []ast.Expr{ast.StrLit{Value: "Choose:"}}},
		ast.Weave{Label: label, Arms: []ast.WeaveArm{
			{Guard: ast.CTrue{}, Message: ast.StrLit{Value: "Go left"}, Body: ast.Block{Stmts: []ast.Stmt{
				ast.Match{
					Value: ast.Ident{Name: "x"},
					Arms: []ast.MatchArm{
						{Pattern: ast.PAssign{Var: "y"}, Guard: ast.CTrue{}, Body: ast.Block{Stmts: []ast.Stmt{
							ast.Discard{Value: ast.Ident{Name: "y"}},
						}}},
					},
					OrElse: ast.Block{},
				},
			}}},
			{Guard: ast.CLastResort{}, Message: ast.StrLit{Value: "Go right"}, Body: ast.Block{}},
		}},
	}})

	out, err := desugar.Pipeline(prog)
	if err != nil {
		t.Fatalf("Pipeline: %v", err)
	}

	walkCount(t, out.Modules[0].Module.Scenes[0].Body, map[string]int{
		"Naked": 0, "Listen": 0, "Trap": 0, "Weave": 0, "Match": 0,
	})
	if len(out.Lambdas) != 1 {
		t.Fatalf("got %d lambdas, want 1 (the weave's reply trap)", len(out.Lambdas))
	}
	walkCount(t, out.Lambdas[0].Body, map[string]int{
		"Naked": 0, "Listen": 0, "Trap": 0, "Weave": 0, "Match": 0,
	})
}

func TestMatchCompilesListPatternToHasLengthAndEquality(t *testing.T) {
	m := ast.Match{
		Value: ast.Ident{Name: "msg"},
		Arms: []ast.MatchArm{
			{
				Pattern: ast.PList{Elems: []ast.Pattern{
					ast.PMatch{Value: ast.AtomLit{Name: "greet"}},
					ast.PAssign{Var: "name"},
				}},
				Guard: ast.CTrue{},
				Body: ast.Block{Stmts: []ast.Stmt{
					ast.Discard{Value: ast.Ident{Name: "name"}},
				}},
			},
		},
		OrElse: ast.Block{Stmts: []ast.Stmt{ast.Return{Result: false}}},
	}
	prog := oneScene(ast.Block{Stmts: []ast.Stmt{m}})
	out, err := desugar.Pipeline(prog)
	if err != nil {
		t.Fatal(err)
	}
	stmts := out.Modules[0].Module.Scenes[0].Body.Stmts
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	iff, ok := stmts[0].(ast.If)
	if !ok {
		t.Fatalf("got %T, want If", stmts[0])
	}
	and, ok := iff.Test.(ast.CAnd)
	if !ok || len(and.Operands) == 0 {
		t.Fatalf("test = %#v, want a non-empty CAnd", iff.Test)
	}
	if _, ok := and.Operands[0].(ast.CHasLength); !ok {
		t.Errorf("first structural test = %#v, want CHasLength", and.Operands[0])
	}
	discard, ok := iff.Success.Stmts[0].(ast.Discard)
	if !ok {
		t.Fatalf("success body stmt = %T, want Discard", iff.Success.Stmts[0])
	}
	if _, ok := discard.Value.(ast.Ident); ok {
		t.Errorf("bound identifier %q should have been rewritten to its path expression, got bare Ident", "name")
	}
	if _, ok := iff.Failure.Stmts[0].(ast.Return); !ok {
		t.Errorf("failure branch = %#v, want the or_else Return", iff.Failure.Stmts[0])
	}
}
