package check_test

import (
	"strings"
	"testing"

	"github.com/weftlang/weft/ast"
	"github.com/weftlang/weft/ast/check"
)

func qualifiedScene(name string, args []string, body ast.Block) ast.Scene {
	return ast.Scene{
		Name: ast.SceneName{Name: name, InModule: ast.Modpath{"town"}, Qualified: true},
		Args: args,
		Body: body,
	}
}

func oneModule(globals ast.Block, scenes ...ast.Scene) *ast.Program {
	return &ast.Program{
		Modules: []ast.ModuleEntry{
			{
				Path:   ast.Modpath{"town"},
				Module: ast.Module{Globals: globals, Scenes: scenes},
			},
		},
	}
}

func TestCheckAcceptsValidProgram(t *testing.T) {
	body := ast.Block{Stmts: []ast.Stmt{
		ast.Let{Var: "x", Value: ast.IntLit{Value: 1}},
		ast.Discard{Value: ast.Ident{Name: "x"}},
	}}
	prog := oneModule(ast.Block{}, qualifiedScene("start", nil, body))
	if _, err := check.Check(prog); err != nil {
		t.Fatalf("Check: unexpected error: %v", err)
	}
}

func TestCheckRejectsDuplicateScene(t *testing.T) {
	s := qualifiedScene("start", nil, ast.Block{})
	prog := oneModule(ast.Block{}, s, s)
	if _, err := check.Check(prog); err == nil {
		t.Fatal("Check: want error for duplicate scene definition, got nil")
	}
}

func TestCheckRejectsWrongArgumentCount(t *testing.T) {
	callee := qualifiedScene("helper", []string{"a", "b"}, ast.Block{})
	caller := qualifiedScene("start", nil, ast.Block{Stmts: []ast.Stmt{
		ast.Recur{Call: ast.Call{
			Scene: callee.Name,
			Args:  []ast.Expr{ast.IntLit{Value: 1}},
		}},
	}})
	prog := oneModule(ast.Block{}, callee, caller)
	if _, err := check.Check(prog); err == nil {
		t.Fatal("Check: want error for wrong argument count, got nil")
	}
}

func TestCheckRejectsIoInPrelude(t *testing.T) {
	globals := ast.Block{Stmts: []ast.Stmt{
		ast.Trace{Value: ast.StrLit{Value: "boom"}},
	}}
	prog := oneModule(globals, qualifiedScene("start", nil, ast.Block{}))
	_, err := check.Check(prog)
	if err == nil {
		t.Fatal("Check: want error for IO in prelude, got nil")
	}
	if !strings.Contains(err.Error(), "prelude") {
		t.Fatalf("error = %q, want it to mention the prelude", err.Error())
	}
}

func TestCheckRejectsNestedWeave(t *testing.T) {
	inner := ast.Weave{Label: ast.Label{Kind: ast.LabelQualified, Name: "inner", Scene: ast.SceneName{Name: "start", InModule: ast.Modpath{"town"}, Qualified: true}}}
	outer := ast.Weave{
		Label: ast.Label{Kind: ast.LabelQualified, Name: "outer", Scene: ast.SceneName{Name: "start", InModule: ast.Modpath{"town"}, Qualified: true}},
		Arms: []ast.WeaveArm{
			{Message: ast.StrLit{Value: "go"}, Body: ast.Block{Stmts: []ast.Stmt{inner}}},
		},
	}
	prog := oneModule(ast.Block{}, qualifiedScene("start", nil, ast.Block{Stmts: []ast.Stmt{outer}}))
	if _, err := check.Check(prog); err == nil {
		t.Fatal("Check: want error for nested weave, got nil")
	}
}

func TestCheckWarnsOnUnusedShadow(t *testing.T) {
	body := ast.Block{Stmts: []ast.Stmt{
		ast.Let{Var: "x", Value: ast.IntLit{Value: 1}},
		ast.Let{Var: "x", Value: ast.IntLit{Value: 2}},
		ast.Discard{Value: ast.Ident{Name: "x"}},
	}}
	prog := oneModule(ast.Block{}, qualifiedScene("start", nil, body))
	res, err := check.Check(prog)
	if err != nil {
		t.Fatalf("Check: unexpected error: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one rebind-without-use warning", res.Warnings)
	}
}
