package decl

import (
	"testing"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

func newModuleChecker(decls ...ast.Decl) (*Checker, *scope.ScopedProgram) {
	mod := &ast.ModuleDecl{Name: "fixture", TranslationUnits: [][]ast.Decl{decls}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	for _, d := range decls {
		b.PlaceDecl(d, moduleScope)
		b.MarkGlobal(d)
	}
	prog := b.Build()
	return New(prog, diagnostics.NewBag()), prog
}

func TestRealizeProductDeclReturnsMetatypeInstance(t *testing.T) {
	p := &ast.ProductDecl{Name: "Point"}
	c, _ := newModuleChecker(p)

	rt := c.Realize(p)
	mt, ok := rt.(*types.Metatype)
	if !ok {
		t.Fatalf("Realize(Point) = %T, want *types.Metatype", rt)
	}
	pt, ok := mt.Instance.(*types.ProductType)
	if !ok || pt.Decl != p {
		t.Errorf("Metatype.Instance = %#v, want ProductType wrapping the same decl", mt.Instance)
	}
}

func TestRealizeCircularAliasReportsCircularDependency(t *testing.T) {
	a := &ast.AliasDecl{Name: "A", Subject: &ast.NamedTypeExpr{Identifier: "B"}}
	bAlias := &ast.AliasDecl{Name: "B", Subject: &ast.NamedTypeExpr{Identifier: "A"}}
	c, _ := newModuleChecker(a, bAlias)

	rt := c.Realize(a)
	if _, isErr := rt.(*types.Error); !isErr {
		t.Errorf("Realize(A) = %#v, want the error type once the cycle is detected", rt)
	}
	if !c.Diags.HasErrors() {
		t.Fatal("expected a diagnostic for the circular alias chain")
	}
	found := false
	for _, d := range c.Diags.All() {
		if d.Code == diagnostics.TCCircularDependency {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want a TCCircularDependency entry", c.Diags.All())
	}
}

func TestCheckMutatingVariantShapeRequiresSelfValueTuple(t *testing.T) {
	variant := &ast.MethodVariant{
		Effect: ast.Inout,
		Body:   &ast.BraceStmt{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: &ast.BoolLiteralExpr{Value: true}}}},
	}
	mb := &ast.MethodBundleDecl{Identifier: "bump", Variants: []*ast.MethodVariant{variant}}
	c, _ := newModuleChecker(mb)

	c.Check(mb)

	var got diagnostics.Code
	for _, d := range c.Diags.All() {
		if d.Code == diagnostics.TCMutatingBundleMustReturnSelfValue {
			got = d.Code
		}
	}
	if got != diagnostics.TCMutatingBundleMustReturnSelfValue {
		t.Errorf("diagnostics = %v, want a TCMutatingBundleMustReturnSelfValue entry", c.Diags.All())
	}
}

func TestRealizeParamsDuplicateNameReportsDiagnostic(t *testing.T) {
	fn := &ast.FunctionDecl{
		Identifier: "add",
		Params: []*ast.ParameterDecl{
			{Label: "x", Name: "n"},
			{Label: "y", Name: "n"},
		},
	}
	c, _ := newModuleChecker(fn)

	c.Realize(fn)

	found := false
	for _, d := range c.Diags.All() {
		if d.Code == diagnostics.TCDuplicateParameterName {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want a TCDuplicateParameterName entry", c.Diags.All())
	}
}
