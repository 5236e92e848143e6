package decl

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/constraints"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// Check runs full body/requirement checking over d (spec.md §4.5), assuming
// Realize(d) has already established its overarching type. Memoized and
// reentrancy-guarded exactly like Realize (spec.md §5).
//
// BindingDecl/VarDecl are special-cased: realizeDispatch's BindingDecl case
// already runs checkBindingOnce (shape inference and the full body check are
// one fused operation for a binding, spec.md §4.5 "Binding"), so Check only
// needs to trigger Realize and let that guard own checkState for these two
// kinds. Routing them through the generic Realize-then-checkDispatch path
// below would re-enter Check through realizeDispatch's own call back into
// Check, firing a false circular-dependency diagnostic.
func (c *Checker) Check(d ast.Decl) {
	switch d.(type) {
	case *ast.BindingDecl, *ast.VarDecl:
		c.Realize(d)
		return
	}
	switch c.checkState[d] {
	case checkSucceeded, checkFailed:
		return
	case checkingStarted:
		c.fail(diagnostics.TCCircularDependency, d.Span(), "circular dependency while checking this declaration")
		c.checkState[d] = checkFailed
		return
	}
	c.traceSite(d)
	c.Realize(d)
	c.checkState[d] = checkingStarted
	c.checkDispatch(d)
	if c.checkState[d] == checkingStarted {
		c.checkState[d] = checkSucceeded
	}
}

// traceSite narrates entry into d's checking when its site matches TraceLine
// (spec.md §6 "tracingInferenceIn"); a no-op when tracing is off.
func (c *Checker) traceSite(d ast.Decl) {
	if c.TraceLine == nil || c.Trace == nil {
		return
	}
	if d.Span().Line == *c.TraceLine {
		c.Trace("checking " + d.Span().String())
	}
}

// makeSolverTrace builds the site-filtered narration callback threaded into
// every constraints.System and into the Resolver (spec.md §6
// "tracingInferenceIn", SPEC_FULL.md "Defaulting trace / instantiation
// trace"): literal-defaulting and generic-parameter skolemization/opening
// decisions are narrated only when their site falls on TraceLine.
func (c *Checker) makeSolverTrace() func(ast.Pos, string) {
	return func(site ast.Pos, msg string) {
		if c.TraceLine == nil || c.Trace == nil || site.Line != *c.TraceLine {
			return
		}
		c.Trace(msg)
	}
}

// checkBindingOnce is checkBinding's own reentrancy guard (spec.md §5),
// invoked directly from realizeDispatch rather than through Check.
func (c *Checker) checkBindingOnce(v *ast.BindingDecl) {
	switch c.checkState[v] {
	case checkSucceeded, checkFailed, checkingStarted:
		return
	}
	c.checkState[v] = checkingStarted
	c.checkBinding(v)
	if c.checkState[v] == checkingStarted {
		c.checkState[v] = checkSucceeded
	}
}

func (c *Checker) checkDispatch(d ast.Decl) {
	switch v := d.(type) {
	case *ast.ConformanceDecl:
		c.checkConformanceDecl(v)
	case *ast.ExtensionDecl:
		c.checkExtensionDecl(v)
	case *ast.FunctionDecl:
		c.checkFunction(v)
	case *ast.InitializerDecl:
		c.checkInitializer(v)
	case *ast.MethodBundleDecl:
		c.checkMethodBundle(v)
	case *ast.SubscriptDecl:
		c.checkSubscript(v)
	case *ast.ProductDecl:
		c.checkProduct(v)
	case *ast.TraitDecl:
		c.checkTrait(v)
	}
}

// checkBinding implements spec.md §4.5 "Binding": infer the pattern's shape,
// constrain it against the initializer (subtyping when annotated, equality
// otherwise), solve, and reify each introduced variable's type.
func (c *Checker) checkBinding(v *ast.BindingDecl) {
	for _, vd := range v.Vars {
		defer c.enterBinding(vd)()
	}
	useSite := c.Prog.ScopeOf(v)

	sys := constraints.NewSystem(c.Resolver, c.Diags)
	sys.ConformsTo = c.ConformsTo
	sys.Trace = c.makeSolverTrace()
	gen := constraints.NewGenerator(sys, c.Literals, c.RealizeTypeExpr, c.makeDeferFn())

	varShapes := map[*ast.VarDecl]types.Type{}
	shape := c.patternShapeOf(useSite, v.Pattern, v.Vars, varShapes)

	var initT types.Type = types.Void
	if v.Initializer != nil {
		initT = gen.Infer(useSite, v.Initializer)
	}
	if v.Annotation != nil {
		ann := c.RealizeTypeExpr(useSite, v.Annotation)
		sys.Add(constraints.Equality(shape, ann).At(v.Span()))
		if v.Initializer != nil {
			sys.Add(constraints.Subtyping(initT, ann).At(v.Span()))
		}
	} else if v.Initializer != nil {
		sys.Add(constraints.Equality(initT, shape).At(v.Span()))
	}

	sub := sys.Resolve()
	c.drainDeferred()
	c.recordExprTypes(sys, sub)

	for _, vd := range v.Vars {
		t, ok := varShapes[vd]
		if !ok {
			t = types.ErrorType
		}
		final := types.Apply(t, sub)
		c.realizedType[vd] = final
		c.realizeState[vd] = realizationCompleted
		c.Out.DeclTypes[vd] = final
	}
	c.Out.DeclTypes[v] = types.Void
}

// patternShapeOf builds the (possibly variable-laden) shape type of a binding
// pattern (spec.md §4.5 "infer the pattern's shape type (recursively over
// nested patterns, recording tentative types for each introduced variable)"),
// recording one fresh variable per VarPattern keyed to its VarDecl into out.
// An AnnotatedPattern's declared type is ground immediately rather than
// flowed through the solver, so it returns the realized annotation directly
// (spec.md never lets an inner pattern override an explicit annotation).
func (c *Checker) patternShapeOf(useSite scope.ID, p ast.Pattern, vars []*ast.VarDecl, out map[*ast.VarDecl]types.Type) types.Type {
	byName := map[string]*ast.VarDecl{}
	for _, vd := range vars {
		byName[vd.Name] = vd
	}
	return c.patternShapeRec(useSite, p, byName, out)
}

func (c *Checker) patternShapeRec(useSite scope.ID, p ast.Pattern, byName map[string]*ast.VarDecl, out map[*ast.VarDecl]types.Type) types.Type {
	switch v := p.(type) {
	case *ast.VarPattern:
		t := types.NewVar(v.Name)
		if vd, ok := byName[v.Name]; ok {
			out[vd] = t
		}
		return t
	case *ast.WildcardPattern:
		return types.NewVar("_")
	case *ast.TuplePattern:
		elems := make([]types.LabeledType, len(v.Elems))
		for i, el := range v.Elems {
			elems[i] = types.LabeledType{Label: el.Label, Type: c.patternShapeRec(useSite, el.Pattern, byName, out)}
		}
		return &types.Tuple{Elements: elems}
	case *ast.AnnotatedPattern:
		ann := c.RealizeTypeExpr(useSite, v.Annotation)
		if vp, ok := v.Inner.(*ast.VarPattern); ok {
			if vd, ok := byName[vp.Name]; ok {
				out[vd] = ann
			}
			return ann
		}
		c.patternShapeRec(useSite, v.Inner, byName, out)
		return ann
	default:
		return types.ErrorType
	}
}

func (c *Checker) checkConformanceDecl(v *ast.ConformanceDecl) {
	if v.Conditional {
		c.warn(diagnostics.TCConditionalExtensionUnchecked, v.Span(),
			"the where-clause of this conditional conformance is not checked; the conformance is accepted unconditionally")
	}
	c.checkConformances(v, v.Subject, v.Conformances, v.Span())
	for _, m := range v.Members {
		c.Check(m)
	}
}

func (c *Checker) checkExtensionDecl(v *ast.ExtensionDecl) {
	useSite := c.Prog.ScopeOf(v)
	subject := c.typeExprInstance(useSite, v.Subject)
	if _, isBuiltin := subject.(*types.Builtin); isBuiltin {
		c.fail(diagnostics.TCCannotExtendBuiltin, v.Span(), "cannot extend a built-in type")
	}
	for _, m := range v.Members {
		c.Check(m)
	}
}

func (c *Checker) checkProduct(v *ast.ProductDecl) {
	c.solveGenericEnvironment(c.genericEnvironment(v, v.Generics, nil, nil))
	for _, m := range v.Members {
		c.Check(m)
	}
	c.checkConformances(v, &ast.NamedTypeExpr{Identifier: v.Name}, v.Conformances, v.Span())
	c.checkExposedExtensions(v)
}

func (c *Checker) checkTrait(v *ast.TraitDecl) {
	c.solveGenericEnvironment(c.genericEnvironment(v, nil, nil, v))
	for _, m := range v.Members {
		c.Check(m)
	}
	c.checkConformances(v, &ast.NamedTypeExpr{Identifier: v.Name}, v.Refinements, v.Span())
	c.checkExposedExtensions(v)
}

func (c *Checker) checkExposedExtensions(d ast.Decl) {
	useSite := c.Prog.ScopeOf(d)
	subject := c.typeExprInstance(useSite, &ast.NamedTypeExpr{Identifier: declName(d)})
	for _, ext := range c.ExtensionsOf(subject, useSite) {
		c.Check(ext)
	}
}

func declName(d ast.Decl) string {
	switch v := d.(type) {
	case *ast.ProductDecl:
		return v.Name
	case *ast.TraitDecl:
		return v.Name
	default:
		return ""
	}
}

func (c *Checker) checkFunction(v *ast.FunctionDecl) {
	rt := c.Realize(v)
	lam, ok := rt.(*types.Lambda)
	if !ok {
		return
	}
	genCons := c.genericEnvironment(v, v.Generics, v.WhereClauses, nil)
	useSite := c.Prog.ScopeOf(v)
	c.checkFunctionLikeBody(useSite, v.Body, v.ExprBody, lam.Output, genCons...)
}

func (c *Checker) checkInitializer(v *ast.InitializerDecl) {
	genCons := c.genericEnvironment(v, v.Generics, nil, nil)
	useSite := c.Prog.ScopeOf(v)
	c.checkFunctionLikeBody(useSite, v.Body, nil, types.Void, genCons...)
}

func (c *Checker) checkMethodBundle(v *ast.MethodBundleDecl) {
	rt := c.Realize(v)
	mt, ok := rt.(*types.MethodType)
	if !ok {
		return
	}
	genCons := c.genericEnvironment(v, v.Generics, nil, nil)
	useSite := c.Prog.ScopeOf(v)
	for _, variant := range v.Variants {
		output := mt.Output
		if variant.Output != nil {
			output = c.RealizeTypeExpr(useSite, variant.Output)
		}
		c.checkFunctionLikeBody(useSite, variant.Body, nil, output, genCons...)
		if variant.Effect == ast.Inout || variant.Effect == ast.Set {
			c.checkMutatingVariantShape(variant, mt.Receiver, output)
		}
	}
}

func (c *Checker) checkSubscript(v *ast.SubscriptDecl) {
	rt := c.Realize(v)
	st, ok := rt.(*types.SubscriptType)
	if !ok {
		return
	}
	genCons := c.genericEnvironment(v, v.Generics, nil, nil)
	useSite := c.Prog.ScopeOf(v)
	for _, variant := range v.Variants {
		output := st.Output
		if variant.Output != nil {
			output = c.RealizeTypeExpr(useSite, variant.Output)
		}
		c.checkFunctionLikeBody(useSite, variant.Body, nil, output, genCons...)
	}
}

// checkMutatingVariantShape enforces spec.md §4.5/§4.4: a mutating (inout or
// set) method-bundle variant's body must return the tuple (self, value)
// rather than a bare value, since the caller observes both the mutated
// receiver and the variant's result through that pair.
func (c *Checker) checkMutatingVariantShape(variant *ast.MethodVariant, selfTy, output types.Type) {
	brace, ok := variant.Body.(*ast.BraceStmt)
	if !ok {
		return
	}
	for _, st := range brace.Stmts {
		ret, ok := st.(*ast.ReturnStmt)
		if !ok || ret.Value == nil {
			continue
		}
		tup, ok := ret.Value.(*ast.TupleExpr)
		if !ok || len(tup.Elements) != 2 {
			c.fail(diagnostics.TCMutatingBundleMustReturnSelfValue, ret.Span(),
				"a mutating bundle variant must return (self, value)")
		}
	}
}
