package constraints

import (
	"strconv"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/resolve"
	"github.com/nominalang/check/internal/typedprogram"
	"github.com/nominalang/check/internal/types"
)

// System accumulates constraints for one checking unit (a function body, a
// binding initializer) and solves them once generation finishes (spec.md
// §4.6). It mirrors the teacher's internal/types/inference.go InferenceContext:
// a single mutable accumulator walked once, then solved.
type System struct {
	Resolver *resolve.Engine
	Diags    *diagnostics.Bag

	// ConformsTo is injected by internal/decl: does subject structurally
	// conform to trait (after any coherence-registry lookups)?
	ConformsTo func(subject types.Type, trait *ast.TraitDecl) bool

	// Trace narrates solving decisions (literal defaulting, generic
	// instantiation) when non-nil; internal/decl supplies a callback that
	// filters by site against the configured tracingInferenceIn line
	// (spec.md §6, SPEC_FULL.md "Defaulting trace / instantiation trace").
	Trace func(site ast.Pos, msg string)

	plain   []Constraint
	choices []Constraint // Overload and Disjunction constraints

	sub types.VarSubstitution

	// Bookkeeping for the typed program: filled in as Overload/Member choices resolve.
	Referred map[ast.Expr]resolve.Reference
	ExprType map[ast.Expr]types.Type
	Folded   map[*ast.SequenceExpr]*typedprogram.FoldedNode
}

func NewSystem(r *resolve.Engine, diags *diagnostics.Bag) *System {
	return &System{
		Resolver: r,
		Diags:    diags,
		sub:      types.VarSubstitution{},
		Referred: map[ast.Expr]resolve.Reference{},
		ExprType: map[ast.Expr]types.Type{},
		Folded:   map[*ast.SequenceExpr]*typedprogram.FoldedNode{},
	}
}

func (s *System) Add(c Constraint) {
	switch c.Kind {
	case KOverload, KDisjunction:
		s.choices = append(s.choices, c)
	default:
		s.plain = append(s.plain, c)
	}
}

// Resolve runs the branch-and-bound search: every choice constraint is tried
// against every remaining alternative, minimizing (errorCount, penaltySum)
// as spec.md §4.6 "Solving" requires. The search itself runs silently (a
// rejected branch must not leave a trace in Diags); once the winning
// substitution is chosen, the plain constraints are re-applied loudly
// against it so the caller sees exactly the diagnostics of the accepted
// solution, emitted once each. Returns the final substitution.
func (s *System) Resolve() types.VarSubstitution {
	best := s.search(s.sub, s.choices, 0)
	final := cloneSub(best.sub)
	for _, c := range s.plain {
		s.applyPlain(c, final, false)
	}
	if best.unresolved {
		s.Diags.Add(diagnostics.Diagnostic{
			Code:     diagnostics.TCNotEnoughContextToInfer,
			Severity: diagnostics.SeverityError,
			Message:  "no viable candidate",
		})
	}
	return final
}

type searchState struct {
	sub        types.VarSubstitution
	errs       int
	penalty    int
	unresolved bool // true if some choice point had no viable alternative
}

// search explores the choice constraints depth-first, silently (diagnostics
// are deferred to Resolve's final loud pass over the winning substitution),
// always also applying the plain constraints so member/function-call
// obligations generated from an already-chosen overload can participate in
// later choices.
func (s *System) search(base types.VarSubstitution, choices []Constraint, from int) *searchState {
	sub := cloneSub(base)
	errs := 0
	for _, c := range s.plain {
		if !s.applyPlain(c, sub, true) {
			errs++
		}
	}
	if from >= len(choices) {
		return &searchState{sub: sub, errs: errs}
	}

	var candidates []Choice
	c := choices[from]
	if c.Kind == KOverload {
		candidates = overloadChoices(c)
	} else {
		candidates = c.Choices
	}

	var best *searchState
	var bestChoice *Choice
	for i := range candidates {
		choice := candidates[i]
		trial := cloneSub(sub)
		ok := true
		for _, sc := range choice.Sub {
			if !s.applyPlain(sc, trial, true) {
				ok = false
			}
		}
		if !ok {
			continue
		}
		rest := s.search(trial, choices, from+1)
		total := &searchState{
			sub:        rest.sub,
			errs:       errs + rest.errs,
			penalty:    choice.Penalty + rest.penalty,
			unresolved: rest.unresolved,
		}
		if better(total, best) {
			best = total
			bestChoice = &choice
		}
	}
	if best == nil {
		return &searchState{sub: sub, errs: errs + 1, unresolved: true}
	}
	if bestChoice.Candidate != nil && c.NameExpr != nil {
		s.Referred[c.NameExpr] = bestChoice.Candidate.Ref
		s.ExprType[c.NameExpr] = bestChoice.Candidate.Type
	}
	return best
}

func better(a, b *searchState) bool {
	if b == nil {
		return true
	}
	if a.errs != b.errs {
		return a.errs < b.errs
	}
	return a.penalty < b.penalty
}

func overloadChoices(c Constraint) []Choice {
	out := make([]Choice, len(c.Candidates))
	for i, cand := range c.Candidates {
		cand := cand
		out[i] = Choice{
			Label:     declName(cand.Ref.Decl),
			Candidate: &cand,
		}
	}
	return out
}

// declName returns a human-readable name for a declaration, for diagnostics
// and choice labeling — declarations don't share a common name accessor
// since the field is called differently per kind (spec.md §2 AST summary).
func declName(d ast.Decl) string {
	switch v := d.(type) {
	case *ast.FunctionDecl:
		if v.IsOperator {
			return v.OperatorName
		}
		return v.Identifier
	case *ast.MethodBundleDecl:
		return v.Identifier
	case *ast.SubscriptDecl:
		return v.Identifier
	case *ast.ProductDecl:
		return v.Name
	case *ast.TraitDecl:
		return v.Name
	case *ast.AliasDecl:
		return v.Name
	case *ast.VarDecl:
		return v.Name
	case *ast.AssociatedTypeDecl:
		return v.Name
	case *ast.AssociatedValueDecl:
		return v.Name
	case *ast.GenericParameterDecl:
		return v.Name
	case *ast.NamespaceDecl:
		return v.Name
	case *ast.ModuleDecl:
		return v.Name
	default:
		return "<decl>"
	}
}

// applyPlain discharges one non-choice constraint against sub, returning
// false if it fails. When silent is false (the search's final, winning pass)
// a failure also records a diagnostic; during speculative search passes
// silent is true so rejected branches never surface.
func (s *System) applyPlain(c Constraint, sub types.VarSubstitution, silent bool) bool {
	switch c.Kind {
	case KEquality:
		if !unify(c.A, c.B, sub) {
			if !silent {
				s.fail(diagnostics.TCInvalidEqualityConstraint, c.Site, "type mismatch: "+types.Apply(c.A, sub).String()+" vs "+types.Apply(c.B, sub).String())
			}
			return false
		}
		return true
	case KSubtyping:
		if !isSubtype(c.A, c.B, sub) {
			if !silent {
				s.fail(diagnostics.TCInvalidEqualityConstraint, c.Site, "type "+types.Apply(c.A, sub).String()+" does not conform to "+types.Apply(c.B, sub).String())
			}
			return false
		}
		return true
	case KConformance:
		if s.ConformsTo == nil {
			return true
		}
		ok := true
		for _, tr := range c.Traits {
			if !s.ConformsTo(types.Apply(c.Subject, sub), tr) {
				if !silent {
					s.fail(diagnostics.TCInvalidConformanceConstraint, c.Site, types.Apply(c.Subject, sub).String()+" does not conform to "+tr.Name)
				}
				ok = false
			}
		}
		return ok
	case KParameter:
		bare := c.ParamType.Bare
		if !unify(c.ArgType, bare, sub) {
			if !silent {
				s.fail(diagnostics.TCInvalidEqualityConstraint, c.Site, "argument type mismatch")
			}
			return false
		}
		return true
	case KFunctionCall:
		lam, ok := resolveVar(c.Callee, sub).(*types.Lambda)
		if !ok {
			if _, isErr := resolveVar(c.Callee, sub).(*types.Error); isErr {
				return true
			}
			if !silent {
				s.fail(diagnostics.TCNonCallableType, c.Site, "callee is not callable")
			}
			return false
		}
		if len(lam.Inputs) != len(c.Params) {
			if !silent {
				s.fail(diagnostics.TCMismatchedArgumentLabels, c.Site, "argument count mismatch")
			}
			return false
		}
		okAll := true
		for i, in := range lam.Inputs {
			if i < len(c.Labels) && c.Labels[i] != "" && c.Labels[i] != in.Label {
				if !silent {
					s.fail(diagnostics.TCMismatchedArgumentLabels, c.Site, "argument label mismatch: expected "+in.Label)
				}
				okAll = false
				continue
			}
			if !unify(in.Type, c.Params[i], sub) {
				if !silent {
					s.fail(diagnostics.TCInvalidEqualityConstraint, c.Site, "argument type mismatch at position "+strconv.Itoa(i))
				}
				okAll = false
			}
		}
		if !unify(lam.Output, c.Ret, sub) {
			okAll = false
		}
		return okAll
	case KMember:
		if s.Resolver == nil {
			return true
		}
		base := resolveVar(c.Base, sub)
		if _, isErr := base.(*types.Error); isErr {
			return true
		}
		res := s.Resolver.ResolveMember(c.Scope, base, c.Name, c.Site)
		switch len(res.Candidates) {
		case 0:
			return false
		case 1:
			if !unify(c.MemberTy, res.Candidates[0].Type, sub) {
				if !silent {
					s.fail(diagnostics.TCInvalidEqualityConstraint, c.Site, "member "+c.Name+" has an incompatible type")
				}
				return false
			}
			return true
		default:
			// Overloaded member access needs call-site argument types to
			// disambiguate (spec.md §4.6 "Overload"); that context isn't
			// available at a bare Member constraint, so the first candidate
			// is provisionally chosen and flagged.
			if !silent {
				s.Diags.Add(diagnostics.Diagnostic{
					Code:     diagnostics.TCAmbiguousUse,
					Severity: diagnostics.SeverityWarning,
					Message:  "ambiguous member " + c.Name + "; picking first overload",
					Site:     c.Site,
				})
			}
			unify(c.MemberTy, res.Candidates[0].Type, sub)
			return true
		}
	case KLiteral:
		if c.LitTrait != nil && s.ConformsTo != nil && s.ConformsTo(types.Apply(c.LitType, sub), c.LitTrait) {
			// Already constrained to something conforming to the literal trait by
			// another source (spec.md §4.6 "Literal"): leave it alone.
			return true
		}
		// No literal trait was supplied, or nothing conforming to it has been
		// established yet: an unconstrained literal defaults rather than erroring.
		if s.Trace != nil {
			s.Trace(c.Site, "literal defaults to "+c.DefaultTy.String())
		}
		unify(c.LitType, c.DefaultTy, sub)
		return true
	default:
		return true
	}
}

func (s *System) fail(code diagnostics.Code, site ast.Pos, msg string) {
	s.Diags.Add(diagnostics.Diagnostic{
		Code:     code,
		Severity: diagnostics.SeverityError,
		Message:  msg,
		Site:     site,
	})
}

func cloneSub(sub types.VarSubstitution) types.VarSubstitution {
	out := make(types.VarSubstitution, len(sub))
	for k, v := range sub {
		out[k] = v
	}
	return out
}

