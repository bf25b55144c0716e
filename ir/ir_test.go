package ir_test

import (
	"testing"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/ir"
)

func oneModule(globals ast.Block, scenes ...ast.Scene) *ast.Program {
	return &ast.Program{
		Modules: []ast.ModuleEntry{
			{
				Path: ast.Modpath{"town"},
				Module: ast.Module{
					Globals: globals,
					Scenes:  scenes,
				},
			},
		},
	}
}

func sceneName(name string) ast.SceneName {
	return ast.SceneName{Name: name, InModule: ast.Modpath{"town"}, Qualified: true}
}

func TestTranslatePreludeExportAndRebind(t *testing.T) {
	prog := oneModule(
		ast.Block{Stmts: []ast.Stmt{
			ast.Let{Var: "greeting", Value: ast.StrLit{Value: "hi"}},
		}},
		ast.Scene{Name: sceneName("start"), Body: ast.Block{Stmts: []ast.Stmt{
			ast.SendMsg{Target: ast.PidZero{}, Message: ast.Ident{Name: "greeting"}},
			ast.Return{Result: true},
		}}},
	)

	prg, err := ir.Translate(prog)
	if err != nil {
		t.Fatal(err)
	}

	// prelude + scene entry + the fresh unreachable block Return opens
	// behind it (§4.4) = 3.
	if len(prg.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3: %#v", len(prg.Blocks), prg.Blocks)
	}

	names := prg.ModuleEnvNames["town"]
	if len(names) != 1 || names[0] != "greeting" {
		t.Fatalf("ModuleEnvNames[town] = %v, want [greeting]", names)
	}

	prelude := prg.Blocks[0]
	foundExport := false
	for _, op := range prelude.Ops {
		if e, ok := op.(ir.ExportOp); ok {
			foundExport = true
			if e.EnvID != prg.ModuleEnvID["town"] {
				t.Errorf("ExportOp envID = %d, want %d", e.EnvID, prg.ModuleEnvID["town"])
			}
		}
	}
	if !foundExport {
		t.Fatalf("prelude block has no ExportOp: %#v", prelude.Ops)
	}
	if _, ok := prelude.Exit.(ir.EndProcess); !ok {
		t.Errorf("prelude exit = %#v, want EndProcess", prelude.Exit)
	}

	sceneLbl, ok := prg.SceneLabels[sceneName("start").Key()]
	if !ok {
		t.Fatal("no entry recorded for scene start")
	}
	sceneBlock := prg.Blocks[sceneLbl]

	foundRebind := false
	foundSay := false
	for _, op := range sceneBlock.Ops {
		switch n := op.(type) {
		case ir.LetOp:
			if _, isLoadEnv := n.Value.(ir.RLoadEnv); isLoadEnv && n.Var == "greeting" {
				foundRebind = true
			}
		case ir.SayOp:
			foundSay = true
		}
	}
	if !foundRebind {
		t.Errorf("scene body never re-binds greeting via RLoadEnv: %#v", sceneBlock.Ops)
	}
	if !foundSay {
		t.Errorf("SendMsg to PidZero should translate to SayOp, got ops %#v", sceneBlock.Ops)
	}
	if _, ok := sceneBlock.Exit.(ir.Return); !ok {
		t.Errorf("scene exit = %#v, want Return", sceneBlock.Exit)
	}
}

func TestTranslateIfAllocatesThreeBlocksAndRejoins(t *testing.T) {
	prog := oneModule(ast.Block{},
		ast.Scene{Name: sceneName("fork"), Args: []string{"n"}, Body: ast.Block{Stmts: []ast.Stmt{
			ast.If{
				Test: ast.CCompare{Op: ast.Eql, Lhs: ast.Ident{Name: "n"}, Rhs: ast.IntLit{Value: 0}},
				Success: ast.Block{Stmts: []ast.Stmt{
					ast.Return{Result: true},
				}},
				Failure: ast.Block{Stmts: []ast.Stmt{
					ast.Return{Result: false},
				}},
			},
			ast.Discard{Value: ast.Ident{Name: "n"}},
		}}},
	)

	prg, err := ir.Translate(prog)
	if err != nil {
		t.Fatal(err)
	}

	// prelude + scene-entry + succ + fail + next + (dead block after
	// succ's Return) + (dead block after fail's Return) = 7
	if len(prg.Blocks) != 7 {
		t.Fatalf("got %d blocks, want 7: %#v", len(prg.Blocks), prg.Blocks)
	}

	entry := prg.Blocks[prg.SceneLabels[sceneName("fork").Key()]]
	ite, ok := entry.Exit.(ir.IfThenElse)
	if !ok {
		t.Fatalf("scene entry exit = %#v, want IfThenElse", entry.Exit)
	}

	succ := prg.Blocks[ite.Succ]
	if r, ok := succ.Exit.(ir.Return); !ok || !r.Result {
		t.Errorf("succ exit = %#v, want Return{true}", succ.Exit)
	}
	fail := prg.Blocks[ite.Fail]
	if r, ok := fail.Exit.(ir.Return); !ok || r.Result {
		t.Errorf("fail exit = %#v, want Return{false}", fail.Exit)
	}
}

func TestTranslateListLiteralAndNth(t *testing.T) {
	prog := oneModule(ast.Block{},
		ast.Scene{Name: sceneName("listy"), Body: ast.Block{Stmts: []ast.Stmt{
			ast.Let{Var: "xs", Value: ast.ListExpr{Elems: []ast.Expr{ast.IntLit{Value: 1}, ast.IntLit{Value: 2}}}},
			ast.Discard{Value: ast.Nth{List: ast.Ident{Name: "xs"}, Index: 1}},
		}}},
	)

	prg, err := ir.Translate(prog)
	if err != nil {
		t.Fatal(err)
	}
	sceneBlock := prg.Blocks[prg.SceneLabels[sceneName("listy").Key()]]

	allocs := 0
	loads := 0
	for _, op := range sceneBlock.Ops {
		if l, ok := op.(ir.LetOp); ok {
			switch l.Value.(type) {
			case ir.RAlloc:
				allocs++
			case ir.RLoad:
				loads++
			}
		}
	}
	if allocs != 1 {
		t.Errorf("got %d RAlloc ops, want 1", allocs)
	}
	if loads != 1 {
		t.Errorf("got %d RLoad ops, want 1 (the Nth read)", loads)
	}
}

func TestTranslateLambdaRebindsCaptures(t *testing.T) {
	prog := oneModule(ast.Block{})
	prog.Lambdas = []ast.Lambda{
		{
			Label:    ast.Label{Kind: ast.LabelQualified, Name: "reply", Scene: sceneName("start")},
			Captures: []string{"x"},
			Body: ast.Block{Stmts: []ast.Stmt{
				ast.Discard{Value: ast.Ident{Name: "x"}},
				ast.Return{Result: true},
			}},
		},
	}
	prog.Modules[0].Module.Scenes = []ast.Scene{
		{Name: sceneName("start"), Body: ast.Block{}},
	}

	prg, err := ir.Translate(prog)
	if err != nil {
		t.Fatal(err)
	}
	lbl, ok := prg.TrapLabels[prog.Lambdas[0].Label.Key()]
	if !ok {
		t.Fatal("no entry recorded for lambda")
	}
	block := prg.Blocks[lbl]
	if len(block.Ops) == 0 {
		t.Fatal("lambda block has no ops")
	}
	first, ok := block.Ops[0].(ir.LetOp)
	if !ok {
		t.Fatalf("first op = %#v, want LetOp", block.Ops[0])
	}
	if _, ok := first.Value.(ir.RLoadEnv); !ok {
		t.Errorf("first op value = %#v, want RLoadEnv (capture rebind)", first.Value)
	}
	if first.Var != "x" {
		t.Errorf("first op binds %q, want x", first.Var)
	}
}
