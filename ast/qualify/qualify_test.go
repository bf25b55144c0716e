package qualify_test

import (
	"strings"
	"testing"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/ast/qualify"
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

func TestQualifySceneName(t *testing.T) {
	prog := oneScene(ast.Block{})
	out, err := qualify.Qualify(prog)
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	sc := out.Modules[0].Module.Scenes[0]
	if !sc.Name.Qualified {
		t.Fatalf("scene name not qualified: %#v", sc.Name)
	}
	if sc.Name.InModule.String() != (ast.Modpath{"town"}).String() {
		t.Fatalf("scene name module = %v, want town", sc.Name.InModule)
	}
}

func TestQualifyLocalLabel(t *testing.T) {
	body := ast.Block{Stmts: []ast.Stmt{
		ast.Arm{Target: ast.Label{Kind: ast.LabelLocal, Name: "die"}},
	}}
	out, err := qualify.Qualify(oneScene(body))
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	arm := out.Modules[0].Module.Scenes[0].Body.Stmts[0].(ast.Arm)
	if arm.Target.Kind != ast.LabelQualified {
		t.Fatalf("target kind = %v, want LabelQualified", arm.Target.Kind)
	}
	if arm.Target.Name != "die" {
		t.Fatalf("target name = %q, want die", arm.Target.Name)
	}
	if arm.Target.Scene.Name != "start" {
		t.Fatalf("target scene = %q, want start", arm.Target.Scene.Name)
	}
}

func TestQualifyAnonymousLabelsAreDistinct(t *testing.T) {
	body := ast.Block{Stmts: []ast.Stmt{
		ast.Arm{Target: ast.Label{Kind: ast.LabelAnonymous}},
		ast.Arm{Target: ast.Label{Kind: ast.LabelAnonymous}},
	}}
	out, err := qualify.Qualify(oneScene(body))
	if err != nil {
		t.Fatalf("Qualify: %v", err)
	}
	stmts := out.Modules[0].Module.Scenes[0].Body.Stmts
	first := stmts[0].(ast.Arm).Target
	second := stmts[1].(ast.Arm).Target
	if first.Name == second.Name {
		t.Fatalf("two anonymous labels qualified to the same name %q", first.Name)
	}
	if !strings.HasPrefix(first.Name, "anonymous_label%") {
		t.Fatalf("anonymous label name = %q, want anonymous_label%% prefix", first.Name)
	}
}

func TestQualifyRejectsAlreadyQualifiedScene(t *testing.T) {
	prog := oneScene(ast.Block{})
	prog.Modules[0].Module.Scenes[0].Name.Qualified = true
	if _, err := qualify.Qualify(prog); err == nil {
		t.Fatal("Qualify: want error for an already-qualified scene, got nil")
	}
}
