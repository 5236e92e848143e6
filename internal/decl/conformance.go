package decl

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/typedprogram"
	"github.com/nominalang/check/internal/types"
)

// conformanceRegistry is spec.md §4.1 `relations`'s conformance half: a
// canonical-model/trait pair may be registered at most once across
// overlapping scopes (spec.md §4.5 "A duplicate registration against an
// overlapping scope errors with the previously recorded site").
type conformanceRegistry struct {
	bySubject map[string]map[*ast.TraitDecl]ast.Pos
}

func newConformanceRegistry() *conformanceRegistry {
	return &conformanceRegistry{bySubject: map[string]map[*ast.TraitDecl]ast.Pos{}}
}

// register reports (previous site, true) if trait is already registered
// against canon, else records site and reports (zero, false).
func (r *conformanceRegistry) register(canon string, trait *ast.TraitDecl, site ast.Pos) (ast.Pos, bool) {
	traits, ok := r.bySubject[canon]
	if !ok {
		traits = map[*ast.TraitDecl]ast.Pos{}
		r.bySubject[canon] = traits
	}
	if prev, exists := traits[trait]; exists {
		return prev, true
	}
	traits[trait] = site
	return ast.Pos{}, false
}

// checkConformances implements spec.md §4.5 "Conformance list on a type
// declaration", invoked once per product/trait (named traits) and once per
// conformance declaration (its named traits).
func (c *Checker) checkConformances(model ast.Decl, subjectTE ast.TypeExpr, names []ast.TypeExpr, site ast.Pos) {
	useSite := c.Prog.ScopeOf(model)
	subject := c.typeExprInstance(useSite, subjectTE)
	canon := types.CanonicalKey(subject)
	for _, te := range names {
		trait := c.traitFromTypeExpr(useSite, te)
		if trait == nil {
			continue
		}
		if prev, dup := c.conformanceRegistry.register(canon, trait, site); dup {
			c.fail(diagnostics.TCDuplicateConformance, site,
				"duplicate conformance of "+subject.String()+" to "+trait.Name+"; previously registered at "+prev.String())
			continue
		}
		c.proveConformance(model, subject, trait, site)
	}
}

// proveConformance matches every requirement member of trait against a
// member of subject's member table (spec.md §4.5): a requirement is
// satisfied by a member whose canonical instantiated type equals the
// requirement's specialized type, Self substituted for subject; or by a
// synthesized witness when the requirement is flagged synthesizable.
func (c *Checker) proveConformance(model ast.Decl, subject types.Type, trait *ast.TraitDecl, site ast.Pos) {
	witnesses := map[string]ast.Decl{}
	synthesized := map[string]bool{}
	derived := map[string]*ast.TraitDecl{}
	var notes []string

	for _, req := range trait.Members {
		if !c.Prog.IsRequirement(req) {
			continue
		}
		name := requirementName(req)
		if name == "" {
			continue
		}
		reqType := c.Realize(req)
		specialized := substituteSelf(reqType, trait, subject)

		matches := c.Resolver.Member(subject, c.Prog.ScopeOf(model), name)
		var witness ast.Decl
		ambiguous := false
		for _, m := range matches {
			if m == req {
				continue
			}
			if types.CanonicalKey(c.Realize(m)) == types.CanonicalKey(specialized) {
				if witness != nil {
					ambiguous = true
					break
				}
				witness = m
			}
		}
		if ambiguous {
			c.fail(diagnostics.TCAmbiguousConformanceWitness, site,
				"several members of "+subject.String()+" satisfy requirement "+name+" of "+trait.Name)
			continue
		}
		if witness != nil {
			witnesses[name] = witness
			continue
		}
		if from, derivedWitness, ok := c.deriveFromRefinement(model, trait, name); ok {
			witnesses[name] = derivedWitness
			derived[name] = from
			continue
		}
		if c.Prog.IsSynthesizable(req) {
			synthesized[name] = true
			witnesses[name] = nil
			continue
		}
		notes = append(notes, "no member satisfies requirement "+name+" of "+trait.Name)
	}

	if len(notes) > 0 {
		c.Diags.Add(diagnostics.Diagnostic{
			Code:     diagnostics.TCConformanceNotSatisfied,
			Severity: diagnostics.SeverityError,
			Message:  subject.String() + " does not conform to " + trait.Name,
			Site:     site,
			Notes:    notes,
		})
	}

	c.Out.Conformances = append(c.Out.Conformances, &typedprogram.Conformance{
		Model:       model,
		Trait:       trait,
		Witnesses:   witnesses,
		Synthesized: synthesized,
		Derived:     derived,
		Site:        site,
	})
}

// deriveFromRefinement implements superclass/refinement derivation
// (SPEC_FULL.md §3 "Superclass/refinement derivation at conformance-checking
// time", mirroring the teacher's deriveEqFromOrd/Super field): a requirement
// left unwitnessed against trait can still be satisfied when model already
// has a proven conformance to some refining trait that names the same
// requirement among its own members, as long as that refining trait's
// conformance closure actually includes trait (i.e. it really refines it,
// directly or transitively). Earlier-processed conformances in c.Out win,
// so a subject must declare the refining trait before the refined one for
// this to find it.
func (c *Checker) deriveFromRefinement(model ast.Decl, trait *ast.TraitDecl, name string) (from *ast.TraitDecl, witness ast.Decl, ok bool) {
	for _, prior := range c.Out.Conformances {
		if prior.Model != model || prior.Trait == trait {
			continue
		}
		w, has := prior.Witnesses[name]
		if !has || w == nil {
			continue
		}
		refines := false
		for _, tr := range c.Resolver.ConformedTraits(&types.TraitType{Decl: prior.Trait}) {
			if tr == trait {
				refines = true
				break
			}
		}
		if refines {
			return prior.Trait, w, true
		}
	}
	return nil, nil, false
}

// substituteSelf maps the trait's own Self reference (its TraitType, per
// internal/resolve/magic.go's resolveSelf) to subject, so a requirement's
// specialized type matches the form a member's realized type actually takes
// once Self names the conforming model.
func substituteSelf(t types.Type, trait *ast.TraitDecl, subject types.Type) types.Type {
	return types.Transform(t, func(n types.Type) types.Action {
		if tt, ok := n.(*types.TraitType); ok && tt.Decl == trait {
			return types.StepOver(subject)
		}
		return types.StepInto()
	})
}

func requirementName(d ast.Decl) string {
	switch v := d.(type) {
	case *ast.FunctionDecl:
		if v.IsOperator {
			return v.OperatorName
		}
		return v.Identifier
	case *ast.AssociatedTypeDecl:
		return v.Name
	case *ast.AssociatedValueDecl:
		return v.Name
	case *ast.SubscriptDecl:
		return v.Identifier
	case *ast.MethodBundleDecl:
		return v.Identifier
	case *ast.BindingDecl:
		if len(v.Vars) > 0 {
			return v.Vars[0].Name
		}
	}
	return ""
}
