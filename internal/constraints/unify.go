package constraints

import "github.com/nominalang/check/internal/types"

// resolveVar follows a variable chain to its current binding, or returns t
// unchanged if t isn't a bound variable.
func resolveVar(t types.Type, sub types.VarSubstitution) types.Type {
	for {
		v, ok := t.(*types.TypeVariable)
		if !ok {
			return t
		}
		rep, ok := sub[v.ID]
		if !ok {
			return t
		}
		t = rep
	}
}

// occursIn reports whether variable id appears anywhere inside t, following
// sub's existing bindings — a cycle here would produce an infinite type.
func occursIn(id int, t types.Type, sub types.VarSubstitution) bool {
	t = resolveVar(t, sub)
	if v, ok := t.(*types.TypeVariable); ok {
		return v.ID == id
	}
	for _, c := range t.Children() {
		if occursIn(id, c, sub) {
			return true
		}
	}
	return false
}

func bindVar(v *types.TypeVariable, other types.Type, sub types.VarSubstitution) bool {
	if ov, ok := other.(*types.TypeVariable); ok && ov.ID == v.ID {
		return true
	}
	if occursIn(v.ID, other, sub) {
		return false
	}
	sub[v.ID] = other
	return true
}

// unify attempts to make a and b structurally equal under sub, extending sub
// with new variable bindings as needed (spec.md §4.6 "Equality"). types.Error
// unifies with anything: a prior failure must not cascade into unrelated
// obligations.
func unify(a, b types.Type, sub types.VarSubstitution) bool {
	a = resolveVar(a, sub)
	b = resolveVar(b, sub)

	if _, ok := a.(*types.Error); ok {
		return true
	}
	if _, ok := b.(*types.Error); ok {
		return true
	}
	if av, ok := a.(*types.TypeVariable); ok {
		return bindVar(av, b, sub)
	}
	if bv, ok := b.(*types.TypeVariable); ok {
		return bindVar(bv, a, sub)
	}

	ac := types.Canonical(a)
	bc := types.Canonical(b)

	switch av := ac.(type) {
	case *types.Skolem:
		bv, ok := bc.(*types.Skolem)
		return ok && av.ID == bv.ID
	case *types.GenericTypeParameterType:
		bv, ok := bc.(*types.GenericTypeParameterType)
		return ok && av.Decl == bv.Decl
	case *types.GenericValueParameterType:
		bv, ok := bc.(*types.GenericValueParameterType)
		return ok && av.Decl == bv.Decl
	case *types.ProductType:
		bv, ok := bc.(*types.ProductType)
		return ok && av.Decl == bv.Decl
	case *types.TraitType:
		bv, ok := bc.(*types.TraitType)
		return ok && av.Decl == bv.Decl
	case *types.Builtin:
		bv, ok := bc.(*types.Builtin)
		return ok && av.Name == bv.Name
	case *types.AssociatedTypeType:
		bv, ok := bc.(*types.AssociatedTypeType)
		return ok && av.Decl == bv.Decl && unify(av.Domain, bv.Domain, sub)
	case *types.AssociatedValueType:
		bv, ok := bc.(*types.AssociatedValueType)
		return ok && av.Decl == bv.Decl && unify(av.Domain, bv.Domain, sub)
	case *types.BoundGeneric:
		bv, ok := bc.(*types.BoundGeneric)
		if !ok || !unify(av.Base, bv.Base, sub) || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			at, bt := av.Args[i], bv.Args[i]
			if (at.Type == nil) != (bt.Type == nil) {
				return false
			}
			if at.Type != nil {
				if !unify(at.Type, bt.Type, sub) {
					return false
				}
			} else if !unify(at.Value, bt.Value, sub) {
				return false
			}
		}
		return true
	case *types.Lambda:
		bv, ok := bc.(*types.Lambda)
		if !ok || av.HasReceiver != bv.HasReceiver || av.ReceiverEffect != bv.ReceiverEffect {
			return false
		}
		if len(av.Inputs) != len(bv.Inputs) {
			return false
		}
		for i := range av.Inputs {
			if av.Inputs[i].Label != bv.Inputs[i].Label || !unify(av.Inputs[i].Type, bv.Inputs[i].Type, sub) {
				return false
			}
		}
		if (av.Environment == nil) != (bv.Environment == nil) {
			return false
		}
		if av.Environment != nil && !unify(av.Environment, bv.Environment, sub) {
			return false
		}
		return unify(av.Output, bv.Output, sub)
	case *types.MethodType:
		bv, ok := bc.(*types.MethodType)
		if !ok || !capsEqual(av.Capabilities, bv.Capabilities) || !unify(av.Receiver, bv.Receiver, sub) {
			return false
		}
		if len(av.Inputs) != len(bv.Inputs) {
			return false
		}
		for i := range av.Inputs {
			if !unify(av.Inputs[i].Type, bv.Inputs[i].Type, sub) {
				return false
			}
		}
		return unify(av.Output, bv.Output, sub)
	case *types.SubscriptType:
		bv, ok := bc.(*types.SubscriptType)
		if !ok || av.IsProperty != bv.IsProperty || !capsEqual(av.Capabilities, bv.Capabilities) {
			return false
		}
		if len(av.Inputs) != len(bv.Inputs) {
			return false
		}
		for i := range av.Inputs {
			if !unify(av.Inputs[i].Type, bv.Inputs[i].Type, sub) {
				return false
			}
		}
		return unify(av.Output, bv.Output, sub)
	case *types.Parameter:
		bv, ok := bc.(*types.Parameter)
		return ok && av.Effect == bv.Effect && unify(av.Bare, bv.Bare, sub)
	case *types.Remote:
		bv, ok := bc.(*types.Remote)
		return ok && av.Effect == bv.Effect && unify(av.Bare, bv.Bare, sub)
	case *types.Tuple:
		bv, ok := bc.(*types.Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if av.Elements[i].Label != bv.Elements[i].Label || !unify(av.Elements[i].Type, bv.Elements[i].Type, sub) {
				return false
			}
		}
		return true
	case *types.Sum:
		bv, ok := bc.(*types.Sum)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !unify(av.Elements[i], bv.Elements[i], sub) {
				return false
			}
		}
		return true
	case *types.ConformanceLens:
		bv, ok := bc.(*types.ConformanceLens)
		return ok && unify(av.Subject, bv.Subject, sub) && av.Witness.Decl == bv.Witness.Decl
	case *types.Metatype:
		bv, ok := bc.(*types.Metatype)
		return ok && unify(av.Instance, bv.Instance, sub)
	default:
		return types.Equivalent(ac, bc)
	}
}

func capsEqual(a, b types.Capability) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// isSubtype implements the narrow subtyping relation spec.md §4.6 defines:
// Never is bottom, Any is top, a Sum's subtypes are any sub-multiset of its
// elements (widening), and a ConformanceLens's subject may widen to its
// witness trait. Everything else falls back to equality.
func isSubtype(sub, sup types.Type, vs types.VarSubstitution) bool {
	sub = resolveVar(sub, vs)
	sup = resolveVar(sup, vs)
	if _, ok := sub.(*types.Error); ok {
		return true
	}
	if _, ok := sup.(*types.Error); ok {
		return true
	}
	if _, ok := sub.(*types.TypeVariable); ok {
		return unify(sub, sup, vs)
	}
	if _, ok := sup.(*types.TypeVariable); ok {
		return unify(sub, sup, vs)
	}
	if b, ok := types.Canonical(sub).(*types.Builtin); ok && b.Name == "Never" {
		return true
	}
	if b, ok := types.Canonical(sup).(*types.Builtin); ok && b.Name == "Any" {
		return true
	}
	if sum, ok := types.Canonical(sup).(*types.Sum); ok {
		for _, elem := range sum.Elements {
			if isSubtype(sub, elem, vs) {
				return true
			}
		}
	}
	if lens, ok := types.Canonical(sub).(*types.ConformanceLens); ok {
		if tt, ok := types.Canonical(sup).(*types.TraitType); ok && lens.Witness.Decl == tt.Decl {
			return true
		}
	}
	return unify(sub, sup, vs)
}
