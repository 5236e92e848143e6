// Package decl implements spec.md §4.4/§4.5: declaration realization and
// checking, the per-declaration request-state machine, the generic
// environment builder, and the conformance registry.
//
// Grounded on the teacher's internal/types/typechecker.go (top-level
// CheckProgram/checkDecl kind-dispatch over a single mutable TypeChecker
// value) and instances.go (InstanceEnv.Add's coherence check, ported to the
// conformance registry's duplicate-rejection rule), plus internal/link/topo.go's
// DFS `inPath` set, ported to the realize/check request-state reentrancy guard
// (spec.md §5).
package decl

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/constraints"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/resolve"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/typedprogram"
	"github.com/nominalang/check/internal/types"
)

// requestState is the per-declaration state machine of spec.md §5/§9:
// nil -> typeRealizationStarted -> typeRealizationCompleted ->
// typeCheckingStarted -> success/failure.
type requestState int

const (
	notStarted requestState = iota
	realizationStarted
	realizationCompleted
	checkingStarted
	checkSucceeded
	checkFailed
)

// Checker owns every piece of mutable state the teacher's TypeChecker value
// owns (spec.md §5 "Resource ownership"): the ScopedProgram is consumed by
// reference and never mutated; Checker exclusively owns declTypes,
// declRequests, environments, the conformance registry, and diagnostics.
type Checker struct {
	Prog     *scope.ScopedProgram
	Resolver *resolve.Engine
	Diags    *diagnostics.Bag
	Out      *typedprogram.TypedProgram

	// Literals names the core traits a numeric/string literal defaults under
	// (spec.md §4.6 "Literal"); nil entries (builtin module not visible, or
	// the trait genuinely absent) skip the conformance obligation.
	Literals constraints.LiteralTraits

	// TraceLine mirrors the `tracingInferenceIn` option (spec.md §6): when
	// non-nil and a subject's site falls on this line, constraint generation
	// and solving for that subject is narrated to the trace sink.
	TraceLine *int
	Trace     func(msg string)

	realizeState map[ast.Decl]requestState
	realizedType map[ast.Decl]types.Type

	checkState map[ast.Decl]requestState

	// bindingsUnderChecking and extensionsUnderBinding are the scoped sets of
	// spec.md §5: an element is inserted before recursion and removed on
	// every exit path (including error paths), via enter/leave helpers below.
	bindingsUnderChecking map[*ast.VarDecl]bool
	extensionsUnderBinding map[ast.Decl]bool

	// extensions collects every Conformance/ExtensionDecl seen while walking
	// the module, the backing store for ExtensionsOf.
	extensions []ast.Decl

	conformanceRegistry *conformanceRegistry

	// deferred holds lambda-body checks and variable reification queued
	// during constraint generation, drained after each System.Resolve call
	// (spec.md §4.6 "Deferred queries", §9 "explicit task list").
	deferred []func()

	genEnvCache map[ast.Decl][]constraints.Constraint
}

func New(prog *scope.ScopedProgram, diags *diagnostics.Bag) *Checker {
	c := &Checker{
		Prog:                   prog,
		Diags:                  diags,
		Out:                    typedprogram.New(),
		realizeState:           map[ast.Decl]requestState{},
		realizedType:           map[ast.Decl]types.Type{},
		checkState:             map[ast.Decl]requestState{},
		bindingsUnderChecking:  map[*ast.VarDecl]bool{},
		extensionsUnderBinding: map[ast.Decl]bool{},
		conformanceRegistry:    newConformanceRegistry(),
		genEnvCache:            map[ast.Decl][]constraints.Constraint{},
	}
	c.Resolver = resolve.NewEngine(prog, c, diags)
	c.Resolver.Trace = c.makeSolverTrace()
	c.collectExtensions(prog.AST)
	c.Literals = c.resolveLiteralTraits()
	return c
}

// resolveLiteralTraits looks up the three magic defaulting traits spec.md
// §4.6 "Literal" names by their conventional identifiers at module scope.
// A trait that isn't visible (the builtin module wasn't loaded as another
// module, or the running fixture never declared it) leaves the
// corresponding field nil, which constraints.Generator treats as "no
// conformance obligation to check" rather than an error.
func (c *Checker) resolveLiteralTraits() constraints.LiteralTraits {
	return constraints.LiteralTraits{
		Integer: c.lookupLiteralTrait("ExpressibleByIntegerLiteral"),
		Float:   c.lookupLiteralTrait("ExpressibleByFloatLiteral"),
		String:  c.lookupLiteralTrait("ExpressibleByStringLiteral"),
	}
}

func (c *Checker) lookupLiteralTrait(name string) *ast.TraitDecl {
	for _, d := range c.Resolver.Unqualified(c.Prog.ModuleScope(), name, nil) {
		if tr, ok := d.(*ast.TraitDecl); ok {
			return tr
		}
	}
	return nil
}

// collectExtensions walks the module once up front to populate the
// ExtensionsOf backing store; synthesis of declarations happens before
// checking begins (spec.md §5), so this traversal is safe to do eagerly.
func (c *Checker) collectExtensions(mod *ast.ModuleDecl) {
	var walk func(decls []ast.Decl)
	walk = func(decls []ast.Decl) {
		for _, d := range decls {
			switch v := d.(type) {
			case *ast.ConformanceDecl:
				c.extensions = append(c.extensions, d)
				walk(v.Members)
			case *ast.ExtensionDecl:
				c.extensions = append(c.extensions, d)
				walk(v.Members)
			case *ast.ProductDecl:
				walk(v.Members)
			case *ast.TraitDecl:
				walk(v.Members)
			case *ast.NamespaceDecl:
				walk(v.Members)
			}
		}
	}
	for _, tu := range mod.TranslationUnits {
		walk(tu)
	}
}

// ConformancesOf implements resolve.Realizer: the direct conformances named
// on a product/trait declaration, each realized to a *ast.TraitDecl.
func (c *Checker) ConformancesOf(d ast.Decl) []*ast.TraitDecl {
	var names []ast.TypeExpr
	var useSite scope.ID
	switch v := d.(type) {
	case *ast.ProductDecl:
		names = v.Conformances
		useSite = c.Prog.ScopeOf(d)
	case *ast.TraitDecl:
		names = v.Refinements
		useSite = c.Prog.ScopeOf(d)
	default:
		return nil
	}
	var out []*ast.TraitDecl
	for _, te := range names {
		if tr := c.traitFromTypeExpr(useSite, te); tr != nil {
			out = append(out, tr)
		}
	}
	return out
}

// ExtensionsOf implements resolve.Realizer: every extension/conformance
// declaration whose subject canonicalizes to t, exposed at scope s. Scope
// exposure isn't modeled beyond "declared in the same ScopedProgram" for
// this checker, since cross-file visibility rules are out of SPEC_FULL.md's
// scope; every extension is visible everywhere its subject is.
func (c *Checker) ExtensionsOf(t types.Type, s scope.ID) []ast.Decl {
	canon := types.CanonicalKey(t)
	var out []ast.Decl
	for _, ext := range c.extensions {
		if c.extensionsUnderBinding[ext] {
			continue // scoped set: an extension mid-realization never contributes to its own member lookup
		}
		var subject ast.TypeExpr
		switch v := ext.(type) {
		case *ast.ConformanceDecl:
			subject = v.Subject
		case *ast.ExtensionDecl:
			subject = v.Subject
		}
		useSite := c.Prog.ScopeOf(ext)
		st := c.RealizeTypeExpr(useSite, subject)
		if types.CanonicalKey(st) == canon {
			out = append(out, ext)
		}
	}
	return out
}

func (c *Checker) enterBinding(v *ast.VarDecl) func() {
	c.bindingsUnderChecking[v] = true
	return func() { delete(c.bindingsUnderChecking, v) }
}

func (c *Checker) enterExtension(d ast.Decl) func() {
	c.extensionsUnderBinding[d] = true
	return func() { delete(c.extensionsUnderBinding, d) }
}

func (c *Checker) fail(code diagnostics.Code, site ast.Pos, msg string) {
	c.Diags.Add(diagnostics.Diagnostic{Code: code, Severity: diagnostics.SeverityError, Message: msg, Site: site})
}

func (c *Checker) warn(code diagnostics.Code, site ast.Pos, msg string) {
	c.Diags.Add(diagnostics.Diagnostic{Code: code, Severity: diagnostics.SeverityWarning, Message: msg, Site: site})
}

// traitFromTypeExpr realizes te and unwraps a Metatype<TraitType>, reporting
// TCConformanceToNonTrait / TCNonTraitType otherwise.
func (c *Checker) traitFromTypeExpr(useSite scope.ID, te ast.TypeExpr) *ast.TraitDecl {
	rt := c.RealizeTypeExpr(useSite, te)
	mt, ok := rt.(*types.Metatype)
	if !ok {
		if _, isErr := rt.(*types.Error); !isErr {
			c.fail(diagnostics.TCNonTraitType, te.Span(), rt.String()+" is not a type")
		}
		return nil
	}
	tt, ok := mt.Instance.(*types.TraitType)
	if !ok {
		c.fail(diagnostics.TCConformanceToNonTrait, te.Span(), mt.Instance.String()+" is not a trait")
		return nil
	}
	return tt.Decl
}

// ConformsTo is the callback constraints.System.ConformsTo needs: does
// subject structurally conform to trait, via the conformance closure
// internal/resolve already computes (spec.md §4.2).
func (c *Checker) ConformsTo(subject types.Type, trait *ast.TraitDecl) bool {
	for _, tr := range c.Resolver.ConformedTraits(subject) {
		if tr == trait {
			return true
		}
	}
	return false
}
