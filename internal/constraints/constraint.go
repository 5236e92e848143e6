// Package constraints implements spec.md §4.6: constraint generation over
// an expression tree and the constraint solver that searches for a
// minimum-penalty satisfying assignment.
//
// Grounded on the teacher's internal/types/inference.go (constraint-based
// inference context walking an AST and emitting typing obligations),
// unification.go (substitution + occurs-check), and defaulting.go (the
// Literal constraint's default-unless-constrained behavior generalizes
// DefaultingConfig/applyNumericDefaulting).
package constraints

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/resolve"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// Kind tags a Constraint's variant (spec.md §4.6 table).
type Kind int

const (
	KEquality Kind = iota
	KSubtyping
	KConformance
	KParameter
	KFunctionCall
	KMember
	KOverload
	KDisjunction
	KLiteral
	KPredicate
)

// Constraint is a single typing obligation. Only the fields relevant to its
// Kind are populated; this mirrors the teacher's single-struct Constraint
// shape (internal/types/inference.go) rather than a Go tagged-union of
// distinct structs, since constraints carry mostly-overlapping fields and
// flow through one generic solver loop.
type Constraint struct {
	Kind Kind

	// Equality / Subtyping
	A, B types.Type

	// Conformance
	Subject types.Type
	Traits  []*ast.TraitDecl

	// Parameter
	ArgType   types.Type
	ParamType *types.Parameter

	// FunctionCall
	Callee types.Type
	Params []types.Type
	Ret    types.Type
	Labels []string

	// Member
	Base      types.Type
	Name      string
	MemberTy  types.Type
	MemberAt  ast.Expr
	MemberCtx bool
	Scope     scope.ID

	// Overload
	NameExpr   ast.Expr
	Candidates []resolve.Candidate

	// Disjunction: each Choice applies a set of sub-constraints at a penalty.
	Choices []Choice

	// Literal
	LitType    types.Type
	DefaultTy  types.Type
	LitTrait   *ast.TraitDecl

	// Predicate (reserved; not evaluated — spec.md Non-goals)
	PredicateExpr ast.Expr

	Site ast.Pos
}

// Choice is one weighted alternative of a Disjunction (or the expansion of
// an Overload into one).
type Choice struct {
	Label       string
	Penalty     int
	Sub         []Constraint
	Candidate   *resolve.Candidate // set when this choice comes from an Overload
}

func Equality(a, b types.Type) Constraint    { return Constraint{Kind: KEquality, A: a, B: b} }
func Subtyping(a, b types.Type) Constraint   { return Constraint{Kind: KSubtyping, A: a, B: b} }
func Conformance(t types.Type, traits []*ast.TraitDecl) Constraint {
	return Constraint{Kind: KConformance, Subject: t, Traits: traits}
}
func Parameter(arg types.Type, param *types.Parameter) Constraint {
	return Constraint{Kind: KParameter, ArgType: arg, ParamType: param}
}
func FunctionCall(callee types.Type, labels []string, params []types.Type, ret types.Type) Constraint {
	return Constraint{Kind: KFunctionCall, Callee: callee, Labels: labels, Params: params, Ret: ret}
}
func Member(base types.Type, name string, memberTy types.Type, useSite scope.ID) Constraint {
	return Constraint{Kind: KMember, Base: base, Name: name, MemberTy: memberTy, Scope: useSite}
}
func Overload(nameExpr ast.Expr, candidates []resolve.Candidate) Constraint {
	return Constraint{Kind: KOverload, NameExpr: nameExpr, Candidates: candidates}
}
func Disjunction(choices []Choice) Constraint { return Constraint{Kind: KDisjunction, Choices: choices} }
func Literal(t, def types.Type, trait *ast.TraitDecl) Constraint {
	return Constraint{Kind: KLiteral, LitType: t, DefaultTy: def, LitTrait: trait}
}

// At attaches a source position for diagnostics, chainable at the call site:
// sys.Add(Equality(a, b).At(expr.Span())).
func (c Constraint) At(pos ast.Pos) Constraint {
	c.Site = pos
	return c
}
