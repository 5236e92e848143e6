package constraints

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/types"
)

func newTestSystem() *System {
	return NewSystem(nil, diagnostics.NewBag())
}

func TestEqualityUnifiesVariableToConcreteType(t *testing.T) {
	sys := newTestSystem()
	v := types.NewVar("x")
	sys.Add(Equality(v, types.Int))
	sub := sys.Resolve()
	got := types.Apply(v, sub)
	if diff := cmp.Diff(types.Int, got); diff != "" {
		t.Errorf("unexpected type (-want +got):\n%s", diff)
	}
	if sys.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sys.Diags.All())
	}
}

func TestEqualityMismatchReportsDiagnostic(t *testing.T) {
	sys := newTestSystem()
	sys.Add(Equality(types.Int, types.Bool))
	sys.Resolve()
	if !sys.Diags.HasErrors() {
		t.Fatal("expected a diagnostic for Int vs Bool")
	}
	if got := sys.Diags.All()[0].Code; got != diagnostics.TCInvalidEqualityConstraint {
		t.Errorf("code = %s, want %s", got, diagnostics.TCInvalidEqualityConstraint)
	}
}

func TestSubtypingWidensIntoSum(t *testing.T) {
	sys := newTestSystem()
	sum := &types.Sum{Elements: []types.Type{types.Int, types.Bool}}
	sys.Add(Subtyping(types.Int, sum))
	sys.Resolve()
	if sys.Diags.HasErrors() {
		t.Fatalf("Int should widen into Sum<Int, Bool>: %v", sys.Diags.All())
	}
}

func TestNeverIsBottomForAnySupertype(t *testing.T) {
	sys := newTestSystem()
	sys.Add(Subtyping(types.Never, types.String))
	sys.Resolve()
	if sys.Diags.HasErrors() {
		t.Fatalf("Never should subtype anything: %v", sys.Diags.All())
	}
}

func TestDisjunctionSkipsNonViableLowerPenaltyChoice(t *testing.T) {
	sys := newTestSystem()
	rv := types.NewVar("r")
	sys.Add(Constraint{
		Kind: KDisjunction,
		Choices: []Choice{
			{Label: "wrong", Penalty: 0, Sub: []Constraint{Equality(rv, types.Bool), Equality(rv, types.Int)}},
			{Label: "right", Penalty: 1, Sub: []Constraint{Equality(rv, types.String)}},
		},
	})
	sub := sys.Resolve()
	got := types.Apply(rv, sub)
	if diff := cmp.Diff(types.String, got); diff != "" {
		t.Errorf("unexpected resolved type (-want +got):\n%s", diff)
	}
}

func TestLiteralDefaultsWhenUnconstrained(t *testing.T) {
	sys := newTestSystem()
	v := types.NewVar("lit")
	sys.Add(Literal(v, types.Int, nil))
	sub := sys.Resolve()
	if diff := cmp.Diff(types.Int, types.Apply(v, sub)); diff != "" {
		t.Errorf("unexpected defaulted type (-want +got):\n%s", diff)
	}
}

func TestLiteralKeepsTypeAlreadyConstrainedToSatisfyTrait(t *testing.T) {
	trait := &ast.TraitDecl{Name: "ExpressibleByIntegerLiteral"}
	sys := newTestSystem()
	sys.ConformsTo = func(subject types.Type, tr *ast.TraitDecl) bool {
		return tr == trait && types.CanonicalKey(subject) == types.CanonicalKey(types.Float)
	}
	v := types.NewVar("lit")
	sys.Add(Equality(v, types.Float))
	sys.Add(Literal(v, types.Int, trait))
	sub := sys.Resolve()
	if diff := cmp.Diff(types.Float, types.Apply(v, sub)); diff != "" {
		t.Errorf("unexpected type (-want +got):\n%s", diff)
	}
}

func TestOccursCheckRejectsInfiniteType(t *testing.T) {
	sub := types.VarSubstitution{}
	v := types.NewVar("t")
	cyclic := &types.Tuple{Elements: []types.LabeledType{{Type: v}}}
	if unify(v, cyclic, sub) {
		t.Fatal("expected occurs check to reject v = (v)")
	}
}
