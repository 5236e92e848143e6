package resolve

import (
	"testing"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// stubRealizer never needs to realize anything for these tests: member
// lookup over a hand-built *types.ProductType/TraitType never calls back
// into Realize, and these fixtures declare no extensions or conformances.
type stubRealizer struct{}

func (stubRealizer) Realize(d ast.Decl) types.Type              { return types.ErrorType }
func (stubRealizer) ConformancesOf(d ast.Decl) []*ast.TraitDecl { return nil }
func (stubRealizer) ExtensionsOf(t types.Type, s scope.ID) []ast.Decl { return nil }

func TestMemberFindsStoredFieldDeclaredAsABinding(t *testing.T) {
	xVar := &ast.VarDecl{Name: "x"}
	field := &ast.BindingDecl{
		Pattern: &ast.VarPattern{Name: "x"},
		Vars:    []*ast.VarDecl{xVar},
	}
	product := &ast.ProductDecl{Name: "Point", Members: []ast.Decl{field}}

	mod := &ast.ModuleDecl{Name: "fixture"}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	prog := b.Build()

	e := NewEngine(prog, stubRealizer{}, diagnostics.NewBag())
	matches := e.Member(&types.ProductType{Decl: product}, moduleScope, "x")

	if len(matches) != 1 {
		t.Fatalf("Member(Point, \"x\") = %v, want exactly the field's VarDecl", matches)
	}
	if matches[0] != ast.Decl(xVar) {
		t.Errorf("Member(Point, \"x\")[0] = %v, want the stored field's own VarDecl", matches[0])
	}
}

func TestMemberFindsSynthesizedInitOnAProductWithNoFields(t *testing.T) {
	product := &ast.ProductDecl{Name: "Unit"}

	mod := &ast.ModuleDecl{Name: "fixture"}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	prog := b.Build()

	e := NewEngine(prog, stubRealizer{}, diagnostics.NewBag())
	matches := e.Member(&types.ProductType{Decl: product}, moduleScope, "init")

	if len(matches) != 1 {
		t.Fatalf("Member(Unit, \"init\") = %v, want exactly one synthesized initializer", matches)
	}
	if _, ok := matches[0].(*ast.InitializerDecl); !ok {
		t.Errorf("Member(Unit, \"init\")[0] = %T, want *ast.InitializerDecl", matches[0])
	}
}
