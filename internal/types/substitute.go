package types

import "github.com/nominalang/check/internal/ast"

// GenericMap maps a generic-parameter declaration to its substituted type
// (or, for value parameters, its substituted placeholder).
type GenericMap map[*ast.GenericParameterDecl]Type

// MemberResolver looks up a member named `name` on the (already substituted)
// domain type and returns its realized type. It is supplied by
// internal/resolve so internal/types never depends on name resolution
// directly (layering per spec.md §2).
type MemberResolver func(domain Type, name string) (Type, bool)

// Specialize substitutes generic-parameter occurrences per m. Associated-type
// projections `A.B` are resolved by looking up `B` on the substituted domain
// and continuing with its realized type (spec.md §4.1 "Specialization").
func Specialize(t Type, m GenericMap, resolve MemberResolver) Type {
	return Transform(t, func(n Type) Action {
		switch v := n.(type) {
		case *GenericTypeParameterType:
			if sub, ok := m[v.Decl]; ok {
				return StepOver(sub)
			}
		case *GenericValueParameterType:
			if sub, ok := m[v.Decl]; ok {
				return StepOver(sub)
			}
		case *AssociatedTypeType:
			domain := Specialize(v.Domain, m, resolve)
			if resolve != nil {
				if realized, ok := resolve(domain, v.Decl.Name); ok {
					return StepOver(realized)
				}
			}
			return StepOver(&AssociatedTypeType{Decl: v.Decl, Domain: domain})
		}
		return StepInto()
	})
}

// Opening replaces every generic type parameter in t with a fresh variable,
// reusing the same variable for repeat occurrences (spec.md §4.1 "Opening").
func Open(t Type, seen map[*ast.GenericParameterDecl]*TypeVariable) Type {
	if seen == nil {
		seen = map[*ast.GenericParameterDecl]*TypeVariable{}
	}
	return Transform(t, func(n Type) Action {
		if v, ok := n.(*GenericTypeParameterType); ok {
			fv, ok := seen[v.Decl]
			if !ok {
				fv = NewVar(v.Decl.Name)
				seen[v.Decl] = fv
			}
			return StepOver(fv)
		}
		return StepInto()
	})
}

// InstantiatedType is the result of scope-relative instantiation: the opened
// shape plus constraints to add verbatim to the constraint system (spec.md §4.1).
type InstantiatedType struct {
	Shape       Type
	Constraints []Type // conformance-bound placeholders; interpreted by internal/constraints
}

// ContainsScope reports whether a generic parameter's introducing scope
// contains the use site — callers supply this via a closure over
// internal/scope, keeping internal/types free of a scope dependency.
type ContainsScope func(decl *ast.GenericParameterDecl) bool

// Instantiate replaces parameters whose introducing scope contains the use
// site with skolems (rigid for the caller) and all others with fresh
// variables (spec.md §4.1 "Instantiation at a scope").
func Instantiate(t Type, contains ContainsScope, skolemSeen map[*ast.GenericParameterDecl]*Skolem, varSeen map[*ast.GenericParameterDecl]*TypeVariable) Type {
	if skolemSeen == nil {
		skolemSeen = map[*ast.GenericParameterDecl]*Skolem{}
	}
	if varSeen == nil {
		varSeen = map[*ast.GenericParameterDecl]*TypeVariable{}
	}
	var nextSkolemID int
	return Transform(t, func(n Type) Action {
		v, ok := n.(*GenericTypeParameterType)
		if !ok {
			return StepInto()
		}
		if contains != nil && contains(v.Decl) {
			sk, ok := skolemSeen[v.Decl]
			if !ok {
				nextSkolemID++
				sk = &Skolem{ID: nextSkolemID, Origin: v.Decl}
				skolemSeen[v.Decl] = sk
			}
			return StepOver(sk)
		}
		fv, ok := varSeen[v.Decl]
		if !ok {
			fv = NewVar(v.Decl.Name)
			varSeen[v.Decl] = fv
		}
		return StepOver(fv)
	})
}

// Apply substitutes type variables according to sub, used by the constraint
// solver to reify a solution (spec.md §4.6 "Reify").
type VarSubstitution map[int]Type

func Apply(t Type, sub VarSubstitution) Type {
	if len(sub) == 0 {
		return t
	}
	return Transform(t, func(n Type) Action {
		if v, ok := n.(*TypeVariable); ok {
			if rep, ok := sub[v.ID]; ok {
				// Substitutions may themselves contain variables (chained bindings).
				return StepOver(Apply(rep, sub))
			}
		}
		return StepInto()
	})
}
