package resolve

import (
	"testing"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// boundRealizer realizes exactly one FunctionDecl, to a single-parameter
// Lambda whose input and output both name gp, the way a generic identity
// function's shape does.
type boundRealizer struct {
	fn *ast.FunctionDecl
	gp *ast.GenericParameterDecl
}

func (r boundRealizer) Realize(d ast.Decl) types.Type {
	if d != ast.Decl(r.fn) {
		return types.ErrorType
	}
	pt := &types.GenericTypeParameterType{Decl: r.gp}
	return &types.Lambda{
		Inputs: []types.LabeledType{{Label: "x", Type: pt}},
		Output: pt,
	}
}
func (boundRealizer) ConformancesOf(d ast.Decl) []*ast.TraitDecl        { return nil }
func (boundRealizer) ExtensionsOf(t types.Type, s scope.ID) []ast.Decl { return nil }

// TestBuildCandidatesCarriesTraitBoundAsSideConstraint exercises spec.md
// §4.1 InstantiatedType.constraints end to end: a generic parameter's
// declared trait bound must travel with the candidate, not just the
// identity-closure ConformedTraits already derives for direct occurrences.
func TestBuildCandidatesCarriesTraitBoundAsSideConstraint(t *testing.T) {
	trait := &ast.TraitDecl{Name: "Showable"}
	gp := &ast.GenericParameterDecl{Name: "T", Annotations: []ast.TypeExpr{&ast.NamedTypeExpr{Identifier: "Showable"}}}
	fn := &ast.FunctionDecl{Identifier: "identity", Generics: []*ast.GenericParameterDecl{gp}}

	mod := &ast.ModuleDecl{Name: "fixture", TranslationUnits: [][]ast.Decl{{trait, fn}}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	b.PlaceDecl(trait, moduleScope)
	b.PlaceDecl(fn, moduleScope)
	b.MarkGlobal(trait)
	b.MarkGlobal(fn)
	prog := b.Build()

	e := NewEngine(prog, boundRealizer{fn: fn, gp: gp}, diagnostics.NewBag())
	res := e.ResolveNominalPrefix(moduleScope, []NameComponent{{Identifier: "identity"}}, false, nil)

	if len(res.Candidates) != 1 {
		t.Fatalf("len(Candidates) = %d, want 1", len(res.Candidates))
	}
	cons := res.Candidates[0].Constraints
	if len(cons) != 1 {
		t.Fatalf("len(Constraints) = %d, want 1 bound constraint for T's Showable bound", len(cons))
	}
	if len(cons[0].Traits) != 1 || cons[0].Traits[0] != trait {
		t.Errorf("Constraints[0].Traits = %v, want [Showable]", cons[0].Traits)
	}
}
