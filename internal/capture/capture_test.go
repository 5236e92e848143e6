package capture

import (
	"testing"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/resolve"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// stubRealizer satisfies resolve.Realizer without doing any real work; these
// tests never realize a type, only resolve names.
type stubRealizer struct{}

func (stubRealizer) Realize(d ast.Decl) types.Type                         { return types.ErrorType }
func (stubRealizer) ConformancesOf(d ast.Decl) []*ast.TraitDecl            { return nil }
func (stubRealizer) ExtensionsOf(t types.Type, s scope.ID) []ast.Decl      { return nil }

// buildNestedFunctionFixture places an outer binding `n` and a local
// function `inner` using it bare in inner's own body scope, nested inside
// the outer scope that declares n. global marks n as a top-level binding
// (never a capture); mutable wraps the use in `&n` (an inout capture).
func buildNestedFunctionFixture(global, mutable bool) (prog *scope.ScopedProgram, inner *ast.FunctionDecl, nVar *ast.VarDecl) {
	mod := &ast.ModuleDecl{Name: "fixture"}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	outerScope := b.NewScope(moduleScope)
	innerScope := b.NewScope(outerScope)

	nVar = &ast.VarDecl{Name: "n"}
	binding := &ast.BindingDecl{
		Pattern:     &ast.VarPattern{Name: "n"},
		Initializer: &ast.BoolLiteralExpr{Value: true},
		Vars:        []*ast.VarDecl{nVar},
	}
	nVar.Binding = binding
	b.PlaceDecl(nVar, outerScope)
	b.PlaceDecl(binding, outerScope)
	if global {
		b.MarkGlobal(nVar)
	}

	var use ast.Expr = &ast.NameExpr{Identifier: "n"}
	b.PlaceExpr(use.(*ast.NameExpr), innerScope)
	if mutable {
		use = &ast.InoutExpr{Subject: use}
	}
	inner = &ast.FunctionDecl{
		Identifier: "inner",
		IsLocal:    true,
		Body:       &ast.BraceStmt{Stmts: []ast.Stmt{&ast.DiscardStmt{Value: use}}},
	}
	b.PlaceDecl(inner, innerScope)

	mod.TranslationUnits = [][]ast.Decl{{binding, inner}}
	return b.Build(), inner, nVar
}

func TestDiscoverCapturesOuterLocalBindingByRead(t *testing.T) {
	prog, inner, nVar := buildNestedFunctionFixture(false, false)
	diags := diagnostics.NewBag()
	resolver := resolve.NewEngine(prog, stubRealizer{}, diags)
	a := NewAnalyzer(prog, resolver, diags)

	captures := a.Discover(inner, inner.Body, nil)
	if len(captures) != 1 {
		t.Fatalf("expected exactly one capture, got %d: %+v", len(captures), captures)
	}
	got := captures[0]
	if got.Name != "n" {
		t.Errorf("Name = %q, want %q", got.Name, "n")
	}
	if got.Effect != ast.Let {
		t.Errorf("Effect = %v, want Let (bare read, not through &)", got.Effect)
	}
	if got.Referent != ast.Decl(nVar) {
		t.Errorf("Referent = %v, want the outer n VarDecl", got.Referent)
	}
	if diags.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", diags.All())
	}
}

func TestDiscoverIgnoresGlobalReferents(t *testing.T) {
	prog, inner, _ := buildNestedFunctionFixture(true, false)
	diags := diagnostics.NewBag()
	resolver := resolve.NewEngine(prog, stubRealizer{}, diags)
	a := NewAnalyzer(prog, resolver, diags)

	captures := a.Discover(inner, inner.Body, nil)
	if len(captures) != 0 {
		t.Fatalf("expected no captures for a global referent, got %+v", captures)
	}
}

func TestDiscoverMarksInoutCaptureMutable(t *testing.T) {
	prog, inner, _ := buildNestedFunctionFixture(false, true)
	diags := diagnostics.NewBag()
	resolver := resolve.NewEngine(prog, stubRealizer{}, diags)
	a := NewAnalyzer(prog, resolver, diags)

	captures := a.Discover(inner, inner.Body, nil)
	if len(captures) != 1 {
		t.Fatalf("expected exactly one capture, got %d: %+v", len(captures), captures)
	}
	if captures[0].Effect != ast.Inout {
		t.Errorf("Effect = %v, want Inout for a `&n` use", captures[0].Effect)
	}
}
