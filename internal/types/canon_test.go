package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCanonicalUnfoldsAlias(t *testing.T) {
	alias := &TypeAliasType{Aliased: Int}
	got := Canonical(alias)
	if diff := cmp.Diff(Int, got); diff != "" {
		t.Fatalf("Canonical(alias) mismatch (-want +got):\n%s", diff)
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	sum := &Sum{Elements: []Type{String, Int, Bool}}
	once := Canonical(sum)
	twice := Canonical(once)
	if !structurallyEqual(once, twice) {
		t.Fatalf("Canonical not idempotent: once=%s twice=%s", once, twice)
	}
}

func TestCanonicalSortsSumElements(t *testing.T) {
	a := Canonical(&Sum{Elements: []Type{String, Bool, Int}})
	b := Canonical(&Sum{Elements: []Type{Int, String, Bool}})
	if !structurallyEqual(a, b) {
		t.Fatalf("sum element order should not affect canonical form: %s vs %s", a, b)
	}
}

func TestEquivalentAliasAndUnderlying(t *testing.T) {
	alias := &TypeAliasType{Aliased: Int}
	if !Equivalent(alias, Int) {
		t.Fatalf("expected alias to be equivalent to its underlying type")
	}
}

func TestOpenReusesVariableForRepeatedParameter(t *testing.T) {
	decl := testGenericParam("T")
	gp := &GenericTypeParameterType{Decl: decl}
	tup := &Tuple{Elements: []LabeledType{{Type: gp}, {Type: gp}}}
	opened := Open(tup, nil).(*Tuple)
	v1 := opened.Elements[0].Type.(*TypeVariable)
	v2 := opened.Elements[1].Type.(*TypeVariable)
	if v1.ID != v2.ID {
		t.Fatalf("expected repeated generic parameter to open to the same variable, got %d vs %d", v1.ID, v2.ID)
	}
}

func TestApplySubstitutesChainedVariables(t *testing.T) {
	v1 := NewVar("a")
	v2 := NewVar("b")
	sub := VarSubstitution{v1.ID: v2, v2.ID: Int}
	got := Apply(v1, sub)
	if !Equivalent(got, Int) {
		t.Fatalf("expected chained substitution to resolve to Int, got %s", got)
	}
}
