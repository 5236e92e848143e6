// Package capture implements spec.md §4.7: implicit-capture discovery for
// local function declarations. It walks a declaration's body once,
// collecting name uses that refer outward, and collapses them into one
// ImplicitCapture record per name.
//
// Grounded on the teacher's internal/types/env.go (collectFreeTypeVars/
// collectFreeRowVars: a recursive accumulator walking a term and collecting
// free-variable uses into a set), generalized here from type-level free
// variables to expression-level free name uses.
package capture

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/resolve"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/typedprogram"
)

// Analyzer discovers implicit captures against one ScopedProgram.
type Analyzer struct {
	Prog     *scope.ScopedProgram
	Resolver *resolve.Engine
	Diags    *diagnostics.Bag
}

func NewAnalyzer(prog *scope.ScopedProgram, resolver *resolve.Engine, diags *diagnostics.Bag) *Analyzer {
	return &Analyzer{Prog: prog, Resolver: resolver, Diags: diags}
}

type use struct {
	referent ast.Decl
	mutable  bool
}

// Discover walks d's body (block or expression) and returns one
// ImplicitCapture per captured name (spec.md §4.7). An ambiguous unqualified
// capture (two or more candidate declarations for the same bare name) halts
// analysis for the whole declaration: nil is returned rather than guessing,
// and TCAmbiguousCapture is reported once.
func (a *Analyzer) Discover(d ast.Decl, body ast.Stmt, exprBody ast.Expr) []typedprogram.ImplicitCapture {
	w := &walker{a: a, owner: d, uses: map[string]*use{}}
	if body != nil {
		w.walkStmt(body)
	}
	if exprBody != nil {
		w.walkExpr(exprBody, false)
	}
	if w.ambiguous {
		return nil
	}

	var out []typedprogram.ImplicitCapture
	ownerScope := a.Prog.ScopeIntroducing(d)
	ownerType, ownerHasType := a.Prog.InnermostType(a.Prog.ScopeOf(d))
	for name, u := range w.uses {
		if u.referent == nil {
			continue // unresolved name; a separate undefined-name diagnostic owns this
		}
		if a.Prog.IsGlobal(u.referent) {
			continue
		}
		if a.Prog.IsContained(a.Prog.ScopeOf(u.referent), d) || a.Prog.ScopeOf(u.referent) == ownerScope {
			continue // declared inside d itself: not a capture
		}
		if a.Prog.IsMember(u.referent) {
			refType, refHasType := a.Prog.InnermostType(a.Prog.ScopeOf(u.referent))
			if !ownerHasType || !refHasType || refType != ownerType {
				continue // cross-receiver reference: filtered, not diagnosed here
			}
		}
		effect := ast.Let
		if u.mutable {
			effect = ast.Inout
		}
		out = append(out, typedprogram.ImplicitCapture{Name: name, Effect: effect, Referent: u.referent})
	}
	return out
}

type walker struct {
	a         *Analyzer
	owner     ast.Decl
	uses      map[string]*use
	ambiguous bool
}

func (w *walker) record(e *ast.NameExpr, mutable bool) {
	if e.Domain != nil {
		return // only bare (domain-less) names are candidate uses, spec.md §4.7
	}
	u, ok := w.uses[e.Identifier]
	if !ok {
		u = &use{}
		w.uses[e.Identifier] = u
		useSite := w.a.Prog.ScopeOfExpr(e)
		matches := w.a.Resolver.Unqualified(useSite, e.Identifier, nil)
		if len(matches) > 1 {
			w.ambiguous = true
			if w.a.Diags != nil {
				w.a.Diags.Add(diagnostics.Diagnostic{
					Code:     diagnostics.TCAmbiguousCapture,
					Severity: diagnostics.SeverityError,
					Message:  "ambiguous capture of " + e.Identifier + ": multiple candidate declarations",
					Site:     e.Span(),
				})
			}
		}
		if len(matches) > 0 {
			u.referent = matches[0]
		}
	}
	if mutable {
		u.mutable = true
	}
}

func (w *walker) walkExpr(e ast.Expr, mutable bool) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.NameExpr:
		w.record(v, mutable)
		w.walkExpr(v.Domain, false)
	case *ast.FunctionCallExpr:
		w.walkExpr(v.Callee, false)
		for _, a := range v.Args {
			w.walkExpr(a.Value, false)
		}
	case *ast.SubscriptCallExpr:
		w.walkExpr(v.Base, mutable)
		for _, a := range v.Args {
			w.walkExpr(a.Value, false)
		}
	case *ast.LambdaExpr:
		if v.SingleExpr != nil {
			w.walkExpr(v.SingleExpr, false)
		}
		w.walkStmt(v.Body)
		for _, c := range v.Captures {
			w.walkExpr(c.Initializer, false)
		}
	case *ast.CastExpr:
		w.walkExpr(v.Operand, false)
	case *ast.InoutExpr:
		// recurse through subscript callees to find the mutable root, per
		// spec.md §4.7 "marks the root of an inout-marker expression".
		w.walkExpr(v.Subject, true)
	case *ast.SequenceExpr:
		for _, o := range v.Operands {
			w.walkExpr(o, false)
		}
	case *ast.TupleExpr:
		for _, el := range v.Elements {
			w.walkExpr(el.Value, false)
		}
	case *ast.ConditionalExpr:
		for _, br := range v.Branches {
			w.walkExpr(br.Cond, false)
			w.walkExpr(br.ExprBody, false)
			w.walkStmt(br.StmtBody)
		}
	}
}

func (w *walker) walkStmt(s ast.Stmt) {
	if s == nil {
		return
	}
	switch v := s.(type) {
	case *ast.BraceStmt:
		for _, st := range v.Stmts {
			w.walkStmt(st)
		}
	case *ast.AssignStmt:
		w.walkExpr(v.Left, true)
		w.walkExpr(v.Right, false)
	case *ast.ConditionalStmt:
		for _, br := range v.Branches {
			w.walkExpr(br.Cond, false)
			w.walkStmt(br.Body)
		}
		w.walkStmt(v.Else)
	case *ast.WhileStmt:
		w.walkExpr(v.Cond, false)
		w.walkStmt(v.Body)
	case *ast.DoWhileStmt:
		w.walkStmt(v.Body)
		w.walkExpr(v.Cond, false)
	case *ast.ReturnStmt:
		w.walkExpr(v.Value, false)
	case *ast.YieldStmt:
		w.walkExpr(v.Value, false)
	case *ast.ExprStmt:
		w.walkExpr(v.Value, false)
	case *ast.DiscardStmt:
		w.walkExpr(v.Value, false)
	case *ast.DeclStmt:
		// does not descend into nested type scopes (spec.md §4.7); a nested
		// product/trait/conformance/extension's members aren't name uses of
		// the enclosing declaration.
		switch v.Decl.(type) {
		case *ast.ProductDecl, *ast.TraitDecl, *ast.ConformanceDecl, *ast.ExtensionDecl:
			return
		case *ast.BindingDecl:
			w.walkExpr(v.Decl.(*ast.BindingDecl).Initializer, false)
		}
	}
}
