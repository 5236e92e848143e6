package decl

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/constraints"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// genericEnvironment builds the constraint set spec.md §4.5 "Generic
// environment" describes: one conformance constraint per generic type
// parameter's declared trait bounds, plus one constraint per where-clause
// expression, in declaration order. Results are cached per owning
// declaration since both realize-adjacent validation and body-checking may
// ask for the same owner's environment.
func (c *Checker) genericEnvironment(owner ast.Decl, generics []*ast.GenericParameterDecl, whereClauses []ast.Expr, selfTrait *ast.TraitDecl) []constraints.Constraint {
	if cached, ok := c.genEnvCache[owner]; ok {
		return cached
	}
	useSite := c.Prog.ScopeOf(owner)
	var out []constraints.Constraint

	for _, gp := range generics {
		rt := c.Realize(gp)
		mt, isType := rt.(*types.Metatype)
		if !isType {
			continue // value generic parameter: no trait bounds to enforce
		}
		gpt, ok := mt.Instance.(*types.GenericTypeParameterType)
		if !ok {
			continue
		}
		var traits []*ast.TraitDecl
		for _, ann := range gp.Annotations {
			if tr := c.traitFromTypeExpr(useSite, ann); tr != nil {
				traits = append(traits, tr)
			}
		}
		if len(traits) > 0 {
			out = append(out, constraints.Conformance(gpt, traits).At(gp.Span()))
		}
	}

	for _, wc := range whereClauses {
		out = append(out, c.whereClauseConstraint(useSite, wc))
	}

	if selfTrait != nil {
		out = append(out, constraints.Conformance(&types.TraitType{Decl: selfTrait}, []*ast.TraitDecl{selfTrait}))
	}

	c.genEnvCache[owner] = out
	return out
}

// solveGenericEnvironment discharges generic-bound constraints that have no
// enclosing body System of their own to ride along with (a product or
// trait's own generic parameter list, checked once at its declaration
// rather than folded into a member's body check).
func (c *Checker) solveGenericEnvironment(cons []constraints.Constraint) {
	if len(cons) == 0 {
		return
	}
	sys := constraints.NewSystem(c.Resolver, c.Diags)
	sys.ConformsTo = c.ConformsTo
	sys.Trace = c.makeSolverTrace()
	for _, con := range cons {
		sys.Add(con)
	}
	sys.Resolve()
}

// whereClauseConstraint classifies one where-clause expression by its
// top-level operator (spec.md §4.5): `==` produces an equality constraint
// over the two sides read as type references, `:` a conformance constraint,
// anything else a reserved predicate constraint.
func (c *Checker) whereClauseConstraint(useSite scope.ID, e ast.Expr) constraints.Constraint {
	seq, ok := e.(*ast.SequenceExpr)
	if !ok || len(seq.Operators) != 1 || len(seq.Operands) != 2 {
		return constraints.Constraint{Kind: constraints.KPredicate, PredicateExpr: e, Site: e.Span()}
	}
	left := c.exprTypeReference(useSite, seq.Operands[0])
	switch seq.Operators[0] {
	case "==":
		right := c.exprTypeReference(useSite, seq.Operands[1])
		return constraints.Equality(left, right).At(e.Span())
	case ":":
		if name, ok := seq.Operands[1].(*ast.NameExpr); ok {
			if tr := c.traitFromTypeExpr(useSite, &ast.NamedTypeExpr{Identifier: name.Identifier}); tr != nil {
				return constraints.Conformance(left, []*ast.TraitDecl{tr}).At(e.Span())
			}
		}
		c.fail(diagnostics.TCInvalidConformanceConstraint, e.Span(), "malformed where-clause conformance constraint")
		return constraints.Constraint{Kind: constraints.KPredicate, PredicateExpr: e, Site: e.Span()}
	default:
		return constraints.Constraint{Kind: constraints.KPredicate, PredicateExpr: e, Site: e.Span()}
	}
}

// exprTypeReference reads a where-clause operand as a type, the way a bare
// generic-parameter or associated-type name appears in expression position
// inside a where clause.
func (c *Checker) exprTypeReference(useSite scope.ID, e ast.Expr) types.Type {
	name, ok := e.(*ast.NameExpr)
	if !ok || name.Domain != nil {
		c.fail(diagnostics.TCInvalidEqualityConstraint, e.Span(), "where-clause operand must be a bare type name")
		return types.ErrorType
	}
	return c.typeExprInstance(useSite, &ast.NamedTypeExpr{Identifier: name.Identifier, StaticArgs: name.StaticArgs})
}
