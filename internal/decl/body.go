package decl

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/constraints"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// exprStmtSite records an expression statement's inferred (pre-substitution)
// type so TCUnusedResult can be evaluated once the enclosing system solves
// (spec.md §4.5 "Expression statement"); checking it eagerly would see raw
// variables rather than the resolved type.
type exprStmtSite struct {
	expr ast.Expr
	t    types.Type
}

// checkFunctionLikeBody implements spec.md §4.5's body-checking rule, shared
// by every function-like declaration (free function, method, initializer,
// method-bundle variant, subscript variant) and, via makeDeferFn below, by
// lambda bodies. An expression body must either subtype output or equal
// Never (a function that always diverges satisfies any output), modeled as
// a two-choice disjunction rather than a special case in the solver.
func (c *Checker) checkFunctionLikeBody(useSite scope.ID, body ast.Stmt, exprBody ast.Expr, output types.Type, genEnv ...constraints.Constraint) {
	sys := constraints.NewSystem(c.Resolver, c.Diags)
	sys.ConformsTo = c.ConformsTo
	sys.Trace = c.makeSolverTrace()
	for _, con := range genEnv {
		sys.Add(con)
	}
	gen := constraints.NewGenerator(sys, c.Literals, c.RealizeTypeExpr, c.makeDeferFn())

	var sink []exprStmtSite
	switch {
	case exprBody != nil:
		t := gen.Infer(useSite, exprBody)
		sys.Add(constraints.Disjunction([]constraints.Choice{
			{Sub: []constraints.Constraint{constraints.Subtyping(t, output)}},
			{Sub: []constraints.Constraint{constraints.Equality(t, types.Never)}, Penalty: 1},
		}).At(exprBody.Span()))
	case body != nil:
		c.checkStmt(sys, gen, useSite, body, output, &sink)
	}

	sub := sys.Resolve()
	c.drainDeferred()
	for _, site := range sink {
		final := types.Apply(site.t, sub)
		if types.CanonicalKey(final) == types.CanonicalKey(types.Void) {
			continue
		}
		if _, isErr := final.(*types.Error); isErr {
			continue
		}
		c.warn(diagnostics.TCUnusedResult, site.expr.Span(), "result of expression is unused")
	}
	c.recordExprTypes(sys, sub)
}

// checkStmt walks one statement, emitting constraints against gen/sys and
// recursing into nested statements (spec.md §4.5's statement list).
func (c *Checker) checkStmt(sys *constraints.System, gen *constraints.Generator, useSite scope.ID, s ast.Stmt, output types.Type, sink *[]exprStmtSite) {
	switch v := s.(type) {
	case *ast.BraceStmt:
		for _, inner := range v.Stmts {
			c.checkStmt(sys, gen, useSite, inner, output, sink)
		}
	case *ast.AssignStmt:
		lt := gen.Infer(useSite, v.Left)
		rt := gen.Infer(useSite, v.Right)
		sys.Add(constraints.Subtyping(rt, lt).At(v.Span()))
	case *ast.ConditionalStmt:
		for _, br := range v.Branches {
			c.checkBranchCond(sys, gen, useSite, br.Cond, br.Pattern)
			c.checkStmt(sys, gen, useSite, br.Body, output, sink)
		}
		if v.Else != nil {
			c.checkStmt(sys, gen, useSite, v.Else, output, sink)
		}
	case *ast.WhileStmt:
		c.checkBranchCond(sys, gen, useSite, v.Cond, v.Pattern)
		c.checkStmt(sys, gen, useSite, v.Body, output, sink)
	case *ast.DoWhileStmt:
		c.checkStmt(sys, gen, useSite, v.Body, output, sink)
		c.checkBranchCond(sys, gen, useSite, v.Cond, v.Pattern)
	case *ast.ReturnStmt:
		if v.Value != nil {
			t := gen.Infer(useSite, v.Value)
			sys.Add(constraints.Subtyping(t, output).At(v.Span()))
		} else {
			sys.Add(constraints.Equality(output, types.Void).At(v.Span()))
		}
	case *ast.YieldStmt:
		if v.Value != nil {
			t := gen.Infer(useSite, v.Value)
			sys.Add(constraints.Subtyping(t, output).At(v.Span()))
		}
	case *ast.ExprStmt:
		t := gen.Infer(useSite, v.Value)
		*sink = append(*sink, exprStmtSite{expr: v.Value, t: t})
	case *ast.DiscardStmt:
		gen.Infer(useSite, v.Value)
	case *ast.DeclStmt:
		c.Check(v.Decl)
	}
}

// checkBranchCond constrains a condition expression to Bool when the branch
// is a plain boolean test. A pattern-guarded branch (`if let x = expr`)
// matches the same simplification inferConditional already makes for
// conditional expressions: the matched expression is inferred for its own
// sake but the pattern's introduced bindings aren't threaded into the body,
// since patterns (like lambda parameters) aren't addressable ast.Decls the
// scope program can resolve names against.
func (c *Checker) checkBranchCond(sys *constraints.System, gen *constraints.Generator, useSite scope.ID, cond ast.Expr, pat ast.Pattern) {
	if cond == nil {
		return
	}
	t := gen.Infer(useSite, cond)
	if pat == nil {
		sys.Add(constraints.Equality(t, types.Bool).At(cond.Span()))
	}
}

// makeDeferFn builds the CheckLambdaBody callback constraints.Generator
// invokes when it meets a lambda expression (spec.md §4.6 "Deferred
// queries"): rather than checking the body immediately (which would nest a
// System inside another System's generation pass), the check is queued onto
// c.deferred and drained once the enclosing System solves, so the lambda's
// own parameter/output types are fully resolved first.
//
// A lambda parameter is a plain struct, not an ast.Decl, so it can never be
// placed in the ScopedProgram's scope chain; the body below is therefore
// checked against the lambda's own useSite (the scope it was written in,
// which already contains everything the body can see except the
// parameters themselves). A bare reference to one of the lambda's own
// parameters surfaces as TCUndefinedName rather than resolving — an
// accepted fidelity gap, not an oversight.
func (c *Checker) makeDeferFn() constraints.CheckLambdaBody {
	return func(useSite scope.ID, lam *ast.LambdaExpr, shape *types.Lambda) {
		c.deferred = append(c.deferred, func() {
			c.checkFunctionLikeBody(useSite, lam.Body, lam.SingleExpr, shape.Output)
		})
	}
}

// drainDeferred runs every queued lambda-body check, including any further
// lambda bodies those checks themselves queue (nested lambdas), until the
// queue is empty.
func (c *Checker) drainDeferred() {
	for len(c.deferred) > 0 {
		next := c.deferred[0]
		c.deferred = c.deferred[1:]
		next()
	}
}

// recordExprTypes copies one solved System's bookkeeping into the shared
// typed-program output, applying the final substitution to every recorded
// expression type (spec.md §4.6 "Output").
func (c *Checker) recordExprTypes(sys *constraints.System, sub types.VarSubstitution) {
	for e, t := range sys.ExprType {
		c.Out.ExprTypes[e] = types.Apply(t, sub)
	}
	for e, ref := range sys.Referred {
		c.Out.ReferredDecls[e] = ref
	}
	for e, folded := range sys.Folded {
		c.Out.FoldedSequenceExprs[e] = folded
	}
}
