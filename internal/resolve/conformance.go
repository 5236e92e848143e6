package resolve

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/types"
)

// ConformedTraits computes the conformance closure of t (spec.md §4.2):
// for a generic type parameter, the traits named in its own annotations,
// closed over refinements; for a trait, itself plus its refinements; for
// any other type, its declared conformances plus the traits of conformance
// declarations extending it, closed over refinements. A trait reached again
// while its own refinements are being walked is reported as TC027.
func (e *Engine) ConformedTraits(t types.Type) []*ast.TraitDecl {
	canon := types.Canonical(t)
	var seeds []*ast.TraitDecl
	switch v := canon.(type) {
	case *types.TraitType:
		seeds = append(seeds, v.Decl)
	case *types.GenericTypeParameterType:
		for _, ann := range v.Decl.Annotations {
			if tr := e.traitFromAnnotation(ann); tr != nil {
				seeds = append(seeds, tr)
			}
		}
	default:
		for _, tr := range e.realizer.ConformancesOf(declOf(canon)) {
			seeds = append(seeds, tr)
		}
		for _, ext := range e.realizer.ExtensionsOf(canon, e.prog.ModuleScope()) {
			if cd, ok := ext.(*ast.ConformanceDecl); ok {
				for _, c := range cd.Conformances {
					if tr := e.traitFromAnnotation(c); tr != nil {
						seeds = append(seeds, tr)
					}
				}
			}
		}
	}

	seen := map[*ast.TraitDecl]bool{}
	var closure []*ast.TraitDecl
	var visiting map[*ast.TraitDecl]bool = map[*ast.TraitDecl]bool{}
	var walk func(tr *ast.TraitDecl)
	walk = func(tr *ast.TraitDecl) {
		if tr == nil {
			return
		}
		if visiting[tr] {
			e.Diagnostics.Add(diagnostics.Diagnostic{
				Code:     diagnostics.TCCircularRefinement,
				Severity: diagnostics.SeverityError,
				Message:  "trait " + tr.Name + " refines itself, directly or indirectly",
			})
			return
		}
		if seen[tr] {
			return
		}
		visiting[tr] = true
		seen[tr] = true
		closure = append(closure, tr)
		for _, ref := range tr.Refinements {
			walk(e.traitFromAnnotation(ref))
		}
		visiting[tr] = false
	}
	for _, s := range seeds {
		walk(s)
	}
	return closure
}

// traitBoundsOf reads gp's own declared trait bounds directly off its
// annotations, the same derivation ConformedTraits uses for a
// GenericTypeParameterType, so a skolem or fresh variable standing in for gp
// at a use site carries the identical bound set its occurrences elsewhere
// would report.
func (e *Engine) traitBoundsOf(gp *ast.GenericParameterDecl) []*ast.TraitDecl {
	var out []*ast.TraitDecl
	for _, ann := range gp.Annotations {
		if tr := e.traitFromAnnotation(ann); tr != nil {
			out = append(out, tr)
		}
	}
	return out
}

func (e *Engine) traitFromAnnotation(te ast.TypeExpr) *ast.TraitDecl {
	named, ok := te.(*ast.NamedTypeExpr)
	if !ok {
		return nil
	}
	matches := e.Unqualified(e.prog.ModuleScope(), named.Identifier, nil)
	for _, m := range matches {
		if tr, ok := m.(*ast.TraitDecl); ok {
			return tr
		}
	}
	return nil
}

func declOf(t types.Type) ast.Decl {
	switch v := t.(type) {
	case *types.ProductType:
		return v.Decl
	case *types.TraitType:
		return v.Decl
	default:
		return nil
	}
}
