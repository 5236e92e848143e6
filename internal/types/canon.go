package types

import "sort"

// identity gives every distinct type a stable sort key for Sum-element
// ordering and structural-equality comparison, without relying on pointer
// addresses (which would break determinism across runs given spec.md's
// determinism invariant, §8 property 1).
func identity(t Type) string {
	return Canonical(t).String()
}

// Canonical unfolds aliases, sorts sum elements, and normalizes bound
// generics whose base has no parameters, per spec.md §4.1. Canonicalization
// is idempotent: Canonical(Canonical(t)) == Canonical(t) (spec.md §3).
func Canonical(t Type) Type {
	switch v := t.(type) {
	case *TypeAliasType:
		return Canonical(v.Aliased)
	case *Sum:
		elems := make([]Type, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = Canonical(e)
		}
		sort.Slice(elems, func(i, j int) bool { return elems[i].String() < elems[j].String() })
		return &Sum{Elements: elems}
	case *BoundGeneric:
		base := Canonical(v.Base)
		if !hasParameters(base) {
			return base
		}
		args := make([]Arg, len(v.Args))
		for i, a := range v.Args {
			if a.Type != nil {
				args[i] = Arg{Type: Canonical(a.Type)}
			} else {
				args[i] = a
			}
		}
		return &BoundGeneric{Base: base, Args: args}
	default:
		if t == nil {
			return nil
		}
		children := t.Children()
		if len(children) == 0 {
			return t
		}
		newChildren := make([]Type, len(children))
		changed := false
		for i, c := range children {
			nc := Canonical(c)
			newChildren[i] = nc
			if nc != c {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return t.WithChildren(newChildren)
	}
}

// hasParameters reports whether the base type of a bound generic declares
// any generic parameters of its own; a BoundGeneric over a parameterless
// base (e.g. a plain alias expanding to a non-generic product) canonicalizes
// away to just the base.
func hasParameters(base Type) bool {
	switch b := base.(type) {
	case *ProductType:
		return len(b.Decl.Generics) > 0
	case *TraitType:
		return false // traits are keyed by Self, not ordinary generics here
	default:
		return true
	}
}

// Equivalent reports whether two types belong to the same equivalence class,
// i.e. their canonical forms are structurally equal (spec.md §3, §8 property 3).
func Equivalent(a, b Type) bool {
	return structurallyEqual(Canonical(a), Canonical(b))
}

func structurallyEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case *TypeVariable:
		bv, ok := b.(*TypeVariable)
		return ok && av.ID == bv.ID
	case *Skolem:
		bv, ok := b.(*Skolem)
		return ok && av.ID == bv.ID
	case *GenericTypeParameterType:
		bv, ok := b.(*GenericTypeParameterType)
		return ok && av.Decl == bv.Decl
	case *GenericValueParameterType:
		bv, ok := b.(*GenericValueParameterType)
		return ok && av.Decl == bv.Decl
	case *ProductType:
		bv, ok := b.(*ProductType)
		return ok && av.Decl == bv.Decl
	case *TraitType:
		bv, ok := b.(*TraitType)
		return ok && av.Decl == bv.Decl
	case *Builtin:
		bv, ok := b.(*Builtin)
		return ok && av.Name == bv.Name
	case *Error:
		_, ok := b.(*Error)
		return ok
	case *AssociatedTypeType:
		bv, ok := b.(*AssociatedTypeType)
		return ok && av.Decl == bv.Decl && structurallyEqual(av.Domain, bv.Domain)
	case *AssociatedValueType:
		bv, ok := b.(*AssociatedValueType)
		return ok && av.Decl == bv.Decl && structurallyEqual(av.Domain, bv.Domain)
	case *BoundGeneric:
		bv, ok := b.(*BoundGeneric)
		if !ok || !structurallyEqual(av.Base, bv.Base) || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			at, bt := av.Args[i], bv.Args[i]
			if (at.Type == nil) != (bt.Type == nil) {
				return false
			}
			if at.Type != nil {
				if !structurallyEqual(at.Type, bt.Type) {
					return false
				}
			} else if !structurallyEqual(at.Value, bt.Value) {
				return false
			}
		}
		return true
	case *Lambda:
		bv, ok := b.(*Lambda)
		if !ok || av.HasReceiver != bv.HasReceiver || av.ReceiverEffect != bv.ReceiverEffect {
			return false
		}
		if len(av.Inputs) != len(bv.Inputs) || !structurallyEqual(av.Output, bv.Output) {
			return false
		}
		for i := range av.Inputs {
			if av.Inputs[i].Label != bv.Inputs[i].Label || !structurallyEqual(av.Inputs[i].Type, bv.Inputs[i].Type) {
				return false
			}
		}
		return (av.Environment == nil) == (bv.Environment == nil) &&
			(av.Environment == nil || structurallyEqual(av.Environment, bv.Environment))
	case *MethodType:
		bv, ok := b.(*MethodType)
		if !ok || !capsEqual(av.Capabilities, bv.Capabilities) || !structurallyEqual(av.Receiver, bv.Receiver) {
			return false
		}
		if len(av.Inputs) != len(bv.Inputs) || !structurallyEqual(av.Output, bv.Output) {
			return false
		}
		for i := range av.Inputs {
			if !structurallyEqual(av.Inputs[i].Type, bv.Inputs[i].Type) {
				return false
			}
		}
		return true
	case *SubscriptType:
		bv, ok := b.(*SubscriptType)
		if !ok || av.IsProperty != bv.IsProperty || !capsEqual(av.Capabilities, bv.Capabilities) {
			return false
		}
		if len(av.Inputs) != len(bv.Inputs) || !structurallyEqual(av.Output, bv.Output) {
			return false
		}
		for i := range av.Inputs {
			if !structurallyEqual(av.Inputs[i].Type, bv.Inputs[i].Type) {
				return false
			}
		}
		return true
	case *Parameter:
		bv, ok := b.(*Parameter)
		return ok && av.Effect == bv.Effect && structurallyEqual(av.Bare, bv.Bare)
	case *Remote:
		bv, ok := b.(*Remote)
		return ok && av.Effect == bv.Effect && structurallyEqual(av.Bare, bv.Bare)
	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if av.Elements[i].Label != bv.Elements[i].Label || !structurallyEqual(av.Elements[i].Type, bv.Elements[i].Type) {
				return false
			}
		}
		return true
	case *Sum:
		bv, ok := b.(*Sum)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !structurallyEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *ConformanceLens:
		bv, ok := b.(*ConformanceLens)
		return ok && structurallyEqual(av.Subject, bv.Subject) && av.Witness.Decl == bv.Witness.Decl
	case *Metatype:
		bv, ok := b.(*Metatype)
		return ok && structurallyEqual(av.Instance, bv.Instance)
	default:
		return false
	}
}

func capsEqual(a, b Capability) bool {
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

// CanonicalKey produces a stable string key for a canonical type, suitable
// for use as a map key in the conformance registry and member-lookup memoization.
func CanonicalKey(t Type) string {
	return Canonical(t).String()
}
