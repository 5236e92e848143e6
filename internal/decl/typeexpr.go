package decl

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// RealizeTypeExpr turns a written type annotation into a types.Type (spec.md
// §4.1/§4.2). It is the constraints.RealizeTypeExpr implementation this
// package injects into internal/constraints.Generator.
func (c *Checker) RealizeTypeExpr(useSite scope.ID, te ast.TypeExpr) types.Type {
	switch v := te.(type) {
	case *ast.NamedTypeExpr:
		return c.realizeNamedTypeExpr(useSite, v)
	case *ast.SumTypeExpr:
		return c.realizeSumTypeExpr(useSite, v)
	case *ast.TupleTypeExpr:
		return c.realizeTupleTypeExpr(useSite, v)
	default:
		return types.ErrorType
	}
}

func (c *Checker) realizeNamedTypeExpr(useSite scope.ID, v *ast.NamedTypeExpr) types.Type {
	var instance types.Type
	if v.Domain == nil {
		matches := c.Resolver.Unqualified(useSite, v.Identifier, nil)
		var d ast.Decl
		switch len(matches) {
		case 0:
			if md, ok := c.magicTypeName(useSite, v.Identifier); ok {
				instance = md
				break
			}
			c.fail(diagnostics.TCUndefinedName, v.Span(), "undefined type: "+v.Identifier)
			return types.ErrorType
		case 1:
			d = matches[0]
		default:
			c.warn(diagnostics.TCAmbiguousUse, v.Span(), "ambiguous type name "+v.Identifier+"; picking first")
			d = matches[0]
		}
		if instance == nil {
			rt := c.Realize(d)
			mt, ok := rt.(*types.Metatype)
			if !ok {
				if _, isErr := rt.(*types.Error); !isErr {
					c.fail(diagnostics.TCNameRefersToValue, v.Span(), v.Identifier+" does not name a type")
				}
				return types.ErrorType
			}
			instance = mt.Instance
		}
	} else {
		domainInstance := c.typeExprInstance(useSite, v.Domain)
		if _, isErr := domainInstance.(*types.Error); isErr {
			return types.ErrorType
		}
		matches := c.Resolver.Member(domainInstance, useSite, v.Identifier)
		if len(matches) == 0 {
			c.fail(diagnostics.TCUndefinedName, v.Span(), "no member type "+v.Identifier+" on "+domainInstance.String())
			return types.ErrorType
		}
		rt := c.Realize(matches[0])
		mt, ok := rt.(*types.Metatype)
		if !ok {
			c.fail(diagnostics.TCNameRefersToValue, v.Span(), v.Identifier+" does not name a type")
			return types.ErrorType
		}
		instance = mt.Instance
	}

	if len(v.StaticArgs) == 0 {
		return instance
	}
	args := make([]types.Arg, len(v.StaticArgs))
	for i, a := range v.StaticArgs {
		args[i] = types.Arg{Type: c.RealizeTypeExpr(useSite, a)}
	}
	return &types.BoundGeneric{Base: instance, Args: args}
}

// typeExprInstance realizes te and unwraps its Metatype, for use as a
// dotted-name domain (e.g. the `A` in `A.B`).
func (c *Checker) typeExprInstance(useSite scope.ID, te ast.TypeExpr) types.Type {
	rt := c.RealizeTypeExpr(useSite, te)
	if mt, ok := rt.(*types.Metatype); ok {
		return mt.Instance
	}
	return rt
}

// magicTypeName handles the scope-relative magic names that realizeNamedTypeExpr
// needs as instance types directly (spec.md §4.2): Any, Never, Self, and
// Builtin-as-module. Builtin always resolves; no option gates it.
func (c *Checker) magicTypeName(useSite scope.ID, name string) (types.Type, bool) {
	switch name {
	case "Any":
		return types.Any, true
	case "Never":
		return types.Never, true
	case "Builtin":
		return types.BuiltinModule, true
	case "Self":
		d, ok := c.Prog.InnermostType(useSite)
		if !ok {
			c.fail(diagnostics.TCInvalidSelfReference, ast.Pos{}, "Self used outside of a type, trait, or extension scope")
			return types.ErrorType, true
		}
		switch v := d.(type) {
		case *ast.ProductDecl:
			return &types.ProductType{Decl: v}, true
		case *ast.TraitDecl:
			return &types.TraitType{Decl: v}, true
		case *ast.ConformanceDecl:
			return c.typeExprInstance(c.Prog.ScopeOf(d), v.Subject), true
		case *ast.ExtensionDecl:
			return c.typeExprInstance(c.Prog.ScopeOf(d), v.Subject), true
		}
	}
	return nil, false
}

// realizeSumTypeExpr realizes every element of Sum<...> (spec.md §4.1,
// edge cases: a zero-element sum warns and degenerates to Never; a
// one-element sum is itself an error, degenerating to that element so the
// surrounding declaration can still be checked; a value placeholder inside
// a sum is rejected outright).
func (c *Checker) realizeSumTypeExpr(useSite scope.ID, v *ast.SumTypeExpr) types.Type {
	if len(v.Elements) == 0 {
		c.warn(diagnostics.TCSumTypeZeroElements, v.Span(), "sum type with zero elements")
		return types.Never
	}
	elems := make([]types.Type, len(v.Elements))
	for i, e := range v.Elements {
		elems[i] = c.RealizeTypeExpr(useSite, e)
		if isValuePlaceholder(elems[i]) {
			c.fail(diagnostics.TCValueInSumType, e.Span(), "value type cannot appear in a sum type")
		}
	}
	if len(v.Elements) == 1 {
		c.fail(diagnostics.TCSumTypeOneElement, v.Span(), "sum type with one element")
		return elems[0]
	}
	return &types.Sum{Elements: elems}
}

func isValuePlaceholder(t types.Type) bool {
	switch t.(type) {
	case *types.GenericValueParameterType, *types.AssociatedValueType:
		return true
	default:
		return false
	}
}

func (c *Checker) realizeTupleTypeExpr(useSite scope.ID, v *ast.TupleTypeExpr) types.Type {
	elems := make([]types.LabeledType, len(v.Elems))
	for i, e := range v.Elems {
		label := ""
		if i < len(v.Labels) {
			label = v.Labels[i]
		}
		elems[i] = types.LabeledType{Label: label, Type: c.RealizeTypeExpr(useSite, e)}
	}
	return &types.Tuple{Elements: elems}
}
