package decl

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/capture"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/typedprogram"
	"github.com/nominalang/check/internal/types"
)

// Realize computes d's overarching type without entering its body (spec.md
// §4.4). Every request is memoized; re-entry while realizationStarted is a
// circular dependency (spec.md §5, §9 "cyclic graphs <-> arena+state-machine").
func (c *Checker) Realize(d ast.Decl) types.Type {
	switch c.realizeState[d] {
	case realizationCompleted:
		return c.realizedType[d]
	case realizationStarted:
		c.fail(diagnostics.TCCircularDependency, d.Span(), "circular dependency while realizing this declaration")
		c.realizedType[d] = types.ErrorType
		c.realizeState[d] = realizationCompleted
		return types.ErrorType
	}
	c.realizeState[d] = realizationStarted
	t := c.realizeDispatch(d)
	if c.realizeState[d] == realizationCompleted {
		// Already recorded during dispatch (a cycle back into d recorded Error).
		return c.realizedType[d]
	}
	c.realizedType[d] = t
	c.realizeState[d] = realizationCompleted
	return t
}

func (c *Checker) realizeDispatch(d ast.Decl) types.Type {
	switch v := d.(type) {
	case *ast.AssociatedTypeDecl:
		return c.realizeAssociatedType(v)
	case *ast.AssociatedValueDecl:
		return c.realizeAssociatedValue(v)
	case *ast.GenericParameterDecl:
		return c.realizeGenericParameter(v)
	case *ast.BindingDecl:
		c.checkBindingOnce(v)
		return types.Void
	case *ast.VarDecl:
		if v.Binding != nil {
			c.checkBindingOnce(v.Binding)
		}
		if t, ok := c.realizedType[v]; ok {
			return t
		}
		return types.ErrorType
	case *ast.ConformanceDecl:
		return c.realizeExtensionLike(d, v.Subject)
	case *ast.ExtensionDecl:
		return c.realizeExtensionLike(d, v.Subject)
	case *ast.FunctionDecl:
		return c.realizeFunction(v)
	case *ast.InitializerDecl:
		return c.realizeInitializer(v)
	case *ast.MethodBundleDecl:
		return c.realizeMethodBundle(v)
	case *ast.SubscriptDecl:
		return c.realizeSubscript(v)
	case *ast.ProductDecl:
		return &types.Metatype{Instance: &types.ProductType{Decl: v}}
	case *ast.TraitDecl:
		return &types.Metatype{Instance: &types.TraitType{Decl: v}}
	case *ast.AliasDecl:
		return c.realizeAlias(v)
	case *ast.ParameterDecl:
		return c.realizeParameter(v)
	case *ast.NamespaceDecl:
		return types.Void
	default:
		return types.ErrorType
	}
}

func (c *Checker) realizeAssociatedType(v *ast.AssociatedTypeDecl) types.Type {
	domain := c.enclosingSelf(v)
	return &types.Metatype{Instance: &types.AssociatedTypeType{Decl: v, Domain: domain}}
}

func (c *Checker) realizeAssociatedValue(v *ast.AssociatedValueDecl) types.Type {
	domain := c.enclosingSelf(v)
	return &types.Metatype{Instance: &types.AssociatedValueType{Decl: v, Domain: domain}}
}

// enclosingSelf anchors an associated type/value at its enclosing trait's
// nominal type, the simplification internal/resolve's magic.go already makes
// for bare `Self` (spec.md §4.4 "anchored at the enclosing trait's
// self-parameter").
func (c *Checker) enclosingSelf(d ast.Decl) types.Type {
	td, ok := c.Prog.InnermostType(c.Prog.ScopeOf(d))
	if !ok {
		return types.ErrorType
	}
	tr, ok := td.(*ast.TraitDecl)
	if !ok {
		return types.ErrorType
	}
	return &types.TraitType{Decl: tr}
}

func (c *Checker) realizeGenericParameter(v *ast.GenericParameterDecl) types.Type {
	if len(v.Annotations) == 0 {
		return &types.Metatype{Instance: &types.GenericTypeParameterType{Decl: v}}
	}
	useSite := c.Prog.ScopeOf(v)
	first := c.RealizeTypeExpr(useSite, v.Annotations[0])
	if mt, ok := first.(*types.Metatype); ok {
		if _, isTrait := mt.Instance.(*types.TraitType); isTrait {
			return &types.Metatype{Instance: &types.GenericTypeParameterType{Decl: v}}
		}
	}
	if len(v.Annotations) > 1 {
		c.fail(diagnostics.TCInvalidGenericArgumentCount, v.Span(), "value generic parameter "+v.Name+" may have only one annotation")
	}
	return &types.GenericValueParameterType{Decl: v}
}

func (c *Checker) realizeExtensionLike(d ast.Decl, subject ast.TypeExpr) types.Type {
	release := c.enterExtension(d)
	defer release()
	useSite := c.Prog.ScopeOf(d)
	instance := c.typeExprInstance(useSite, subject)
	return &types.Metatype{Instance: instance}
}

func (c *Checker) realizeAlias(v *ast.AliasDecl) types.Type {
	// Magic aliases synthesized by internal/resolve's magicReference (Any,
	// Never, Builtin) have no Subject; realize them to the corresponding
	// builtin directly rather than walking a nil TypeExpr.
	if v.Subject == nil {
		switch v.Name {
		case "Any":
			return &types.Metatype{Instance: types.Any}
		case "Never":
			return &types.Metatype{Instance: types.Never}
		case "Builtin":
			return &types.Metatype{Instance: types.BuiltinModule}
		}
	}
	useSite := c.Prog.ScopeOf(v)
	aliased := c.typeExprInstance(useSite, v.Subject)
	return &types.Metatype{Instance: &types.TypeAliasType{Decl: v, Aliased: aliased}}
}

func (c *Checker) realizeParameter(v *ast.ParameterDecl) types.Type {
	if v.Annotation == nil {
		return types.NewVar(v.Name)
	}
	useSite := c.Prog.ScopeOf(v)
	t := c.RealizeTypeExpr(useSite, v.Annotation)
	if t.Flags().HasVariable {
		c.fail(diagnostics.TCExpectedTypeAnnotation, v.Span(), "parameter annotation for "+v.Name+" still contains unresolved variables")
	}
	return t
}

// realizeFunction builds the Lambda overarching type for a free function,
// method, or operator declaration (spec.md §4.4 "Function").
func (c *Checker) realizeFunction(v *ast.FunctionDecl) types.Type {
	useSite := c.Prog.ScopeOf(v)
	var inputs []types.LabeledType
	hasReceiver := !v.IsStatic && v.IsMember
	if hasReceiver {
		selfTy := types.ErrorType
		if td, ok := c.Prog.InnermostType(useSite); ok {
			selfTy = selfNominalType(td)
		}
		inputs = append(inputs, types.LabeledType{Label: "self", Type: &types.Remote{Effect: receiverConvention(v.ReceiverEffect), Bare: selfTy}})
	}
	inputs = append(inputs, c.realizeParamsAt(useSite, v.Params)...)

	var output types.Type = types.Void
	if v.Output != nil {
		output = c.RealizeTypeExpr(useSite, v.Output)
	}

	return &types.Lambda{
		ReceiverEffect: v.ReceiverEffect,
		HasReceiver:    hasReceiver,
		Environment:    c.realizeEnvironment(v, useSite),
		Inputs:         inputs,
		Output:         output,
	}
}

// selfNominalType falls back to the enclosing declaration's own nominal
// type (enclosingSelf only handles the trait case, for associated
// types/values; ordinary members need the product case too).
func selfNominalType(d ast.Decl) types.Type {
	switch v := d.(type) {
	case *ast.ProductDecl:
		return &types.ProductType{Decl: v}
	case *ast.TraitDecl:
		return &types.TraitType{Decl: v}
	default:
		return types.ErrorType
	}
}

func receiverConvention(e ast.AccessEffect) ast.AccessEffect {
	switch e {
	case ast.Inout, ast.Sink:
		return e
	default:
		return ast.Let
	}
}

// realizeEnvironment builds the capture environment: explicit captures get
// their convention from the binding introducer; implicit captures (local
// functions only) are discovered by walking the body (spec.md §4.4
// "Captures"). Capture-less functions get Void, matching the teacher's
// convention of a sentinel empty-environment constant rather than nil.
func (c *Checker) realizeEnvironment(v *ast.FunctionDecl, useSite scope.ID) types.Type {
	var elems []types.LabeledType
	seen := map[string]bool{}
	for _, cap := range v.Captures {
		if seen[cap.Name] {
			c.fail(diagnostics.TCDuplicateCaptureName, v.Span(), "duplicate capture name "+cap.Name)
			continue
		}
		seen[cap.Name] = true
		// An explicit capture's bare type is a fresh variable regardless of
		// whether it renames an outer binding or introduces one (`let n = expr`).
		// Nothing later unifies it with the initializer or the outer binding's
		// type, so the realized environment keeps that variable.
		bare := types.NewVar(cap.Name)
		elems = append(elems, types.LabeledType{Label: cap.Name, Type: captureConvention(cap.Introducer, bare)})
	}
	if v.IsLocal {
		for _, ic := range c.discoverImplicitCaptures(v) {
			if seen[ic.Name] {
				continue
			}
			seen[ic.Name] = true
			bare := c.Realize(ic.Referent)
			elems = append(elems, types.LabeledType{Label: ic.Name, Type: &types.Remote{Effect: ic.Effect, Bare: bare}})
		}
	}
	if len(elems) == 0 {
		return types.Void
	}
	return &types.Tuple{Elements: elems}
}

// discoverImplicitCaptures runs the capture analyzer once per local function
// and caches the result onto the typed program output (spec.md §4.7), since
// both realization (for the environment's shape) and the eventual body check
// (for actual capture-site rewriting) need the same records.
func (c *Checker) discoverImplicitCaptures(v *ast.FunctionDecl) []typedprogram.ImplicitCapture {
	if caps, ok := c.Out.ImplicitCaptures[v]; ok {
		return caps
	}
	analyzer := capture.NewAnalyzer(c.Prog, c.Resolver, c.Diags)
	caps := analyzer.Discover(v, v.Body, v.ExprBody)
	c.Out.ImplicitCaptures[v] = caps
	return caps
}

func captureConvention(introducer string, bare types.Type) types.Type {
	switch introducer {
	case "let":
		return &types.Remote{Effect: ast.Let, Bare: bare}
	case "inout":
		return &types.Remote{Effect: ast.Inout, Bare: bare}
	default: // "sinklet", "var"
		return bare
	}
}

func (c *Checker) realizeInitializer(v *ast.InitializerDecl) types.Type {
	useSite := c.Prog.ScopeOf(v)
	selfTy := types.ErrorType
	if td, ok := c.Prog.InnermostType(useSite); ok {
		selfTy = selfNominalType(td)
	}
	inputs := []types.LabeledType{{Label: "self", Type: &types.Remote{Effect: ast.Set, Bare: selfTy}}}
	inputs = append(inputs, c.realizeParamsAt(useSite, v.Params)...)
	return &types.Lambda{HasReceiver: true, ReceiverEffect: ast.Set, Environment: types.Void, Inputs: inputs, Output: types.Void}
}

func (c *Checker) realizeMethodBundle(v *ast.MethodBundleDecl) types.Type {
	useSite := c.Prog.ScopeOf(v)
	selfTy := types.ErrorType
	if td, ok := c.Prog.InnermostType(useSite); ok {
		selfTy = selfNominalType(td)
	}
	caps := types.Capability{}
	var inputs []types.LabeledType
	var output types.Type = types.Void
	for i, variant := range v.Variants {
		caps[variant.Effect] = true
		if i == 0 {
			inputs = c.realizeParamsAt(useSite, variant.Params)
			if variant.Output != nil {
				output = c.RealizeTypeExpr(useSite, variant.Output)
			}
		}
	}
	return &types.MethodType{Capabilities: caps, Receiver: selfTy, Inputs: inputs, Output: output}
}

func (c *Checker) realizeSubscript(v *ast.SubscriptDecl) types.Type {
	useSite := c.Prog.ScopeOf(v)
	var output types.Type = types.Void
	if v.Output != nil {
		output = c.RealizeTypeExpr(useSite, v.Output)
	}
	var inputs []types.LabeledType
	if !v.IsProperty {
		inputs = c.realizeParamsAt(useSite, v.Params)
	}
	caps := types.Capability{}
	for _, variant := range v.Variants {
		caps[variant.Effect] = true
	}
	if len(caps) == 0 {
		caps[ast.Let] = true
	}
	return &types.SubscriptType{IsProperty: v.IsProperty, Capabilities: caps, Environment: types.Void, Inputs: inputs, Output: output}
}

func (c *Checker) realizeParamsAt(useSite scope.ID, params []*ast.ParameterDecl) []types.LabeledType {
	seen := map[string]bool{}
	out := make([]types.LabeledType, len(params))
	for i, p := range params {
		if seen[p.Name] {
			c.fail(diagnostics.TCDuplicateParameterName, p.Span(), "duplicate parameter name "+p.Name)
		}
		seen[p.Name] = true
		var t types.Type
		if p.Annotation == nil {
			t = types.NewVar(p.Name)
		} else {
			t = c.RealizeTypeExpr(useSite, p.Annotation)
		}
		out[i] = types.LabeledType{Label: p.Label, Type: t}
	}
	return out
}
