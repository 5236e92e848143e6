package resolve

import (
	"strconv"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// Realizer computes a declaration's overarching type, triggering realize()
// on demand (spec.md §4.4). Supplied by internal/decl so that internal/resolve
// never imports it directly, breaking the realize↔resolve mutual dependency.
type Realizer interface {
	Realize(d ast.Decl) types.Type
	// ConformancesOf returns the direct (non-closed) trait conformances
	// declared on a product/trait/extension, each already realized.
	ConformancesOf(d ast.Decl) []*ast.TraitDecl
	// ExtensionsOf returns every extension/conformance declaration whose
	// subject canonicalizes to t and is exposed at scope s.
	ExtensionsOf(t types.Type, s scope.ID) []ast.Decl
}

// Engine is the name-resolution service over one ScopedProgram.
type Engine struct {
	prog        *scope.ScopedProgram
	realizer    Realizer
	Diagnostics *diagnostics.Bag

	// Trace narrates generic-parameter skolemization/opening decisions when
	// non-nil (SPEC_FULL.md "Defaulting trace / instantiation trace");
	// internal/decl supplies a callback filtering by site.
	Trace func(site ast.Pos, msg string)

	namesCache  map[scope.ID]map[string][]ast.Decl
	memberCache map[string]map[string][]ast.Decl // key: canonical-type|scopeID
}

func NewEngine(prog *scope.ScopedProgram, realizer Realizer, diags *diagnostics.Bag) *Engine {
	return &Engine{
		prog:        prog,
		realizer:    realizer,
		Diagnostics: diags,
		namesCache:  map[scope.ID]map[string][]ast.Decl{},
		memberCache: map[string]map[string][]ast.Decl{},
	}
}

// Unqualified performs §4.2 unqualified lookup, walking outer scopes from
// useSite. excluding removes declarations a binding initializer must not
// see (bindingsUnderChecking).
func (e *Engine) Unqualified(useSite scope.ID, name string, excluding map[ast.Decl]bool) []ast.Decl {
	name = normalize(name)
	for _, s := range e.prog.ScopesFrom(useSite) {
		if e.prog.IsFileScope(s) {
			continue
		}
		introduced := e.NamesIntroduced(s)
		matches := filterExcluded(introduced[name], excluding)
		if len(matches) == 0 {
			continue
		}
		if !allOverloadable(matches) {
			return matches // shadowing: first non-overloadable match wins
		}
		// An all-overloadable set also ends the walk here: overloads declared
		// in outer scopes are not added to it.
		return matches
	}
	// Module root and other imported modules, once we've exited the
	// innermost module (ScopesFrom already ends at the module scope, so we
	// search siblings/imports here).
	var out []ast.Decl
	out = append(out, filterExcluded(e.NamesIntroduced(e.prog.ModuleScope())[name], excluding)...)
	for _, other := range e.prog.OtherModules() {
		oe := NewEngine(other, e.realizer, e.Diagnostics)
		out = append(out, filterExcluded(oe.NamesIntroduced(other.ModuleScope())[name], excluding)...)
	}
	return out
}

// Operators finds the operator function declarations named name, visible
// from useSite. Operators never enter NamesIntroduced (spec.md §4.3 notes
// them as reached through a separate path), so this walks scopes directly
// rather than going through the unqualified-name cache.
func (e *Engine) Operators(useSite scope.ID, name string) []ast.Decl {
	name = normalize(name)
	for _, s := range e.prog.ScopesFrom(useSite) {
		if e.prog.IsFileScope(s) {
			continue
		}
		if out := operatorsIn(e.prog.DeclsIn(s), name); len(out) > 0 {
			return out
		}
	}
	var out []ast.Decl
	out = append(out, operatorsIn(e.prog.DeclsIn(e.prog.ModuleScope()), name)...)
	for _, other := range e.prog.OtherModules() {
		out = append(out, operatorsIn(other.DeclsIn(other.ModuleScope()), name)...)
	}
	return out
}

func operatorsIn(decls []ast.Decl, name string) []ast.Decl {
	var out []ast.Decl
	for _, d := range decls {
		if fn, ok := d.(*ast.FunctionDecl); ok && fn.IsOperator && fn.OperatorName == name {
			out = append(out, d)
		}
	}
	return out
}

func filterExcluded(decls []ast.Decl, excluding map[ast.Decl]bool) []ast.Decl {
	if len(excluding) == 0 {
		return decls
	}
	var out []ast.Decl
	for _, d := range decls {
		if !excluding[d] {
			out = append(out, d)
		}
	}
	return out
}

func allOverloadable(decls []ast.Decl) bool {
	for _, d := range decls {
		if !isOverloadable(d) {
			return false
		}
	}
	return true
}

// Member performs §4.2 memoized member lookup for `name` on `t`, visible
// from scope s.
func (e *Engine) Member(t types.Type, s scope.ID, name string) []ast.Decl {
	name = normalize(name)
	key := types.CanonicalKey(t) + "|" + strconv.Itoa(int(s))
	table, ok := e.memberCache[key]
	if !ok {
		table = e.computeMemberTable(t, s)
		e.memberCache[key] = table
	}
	return table[name]
}

func (e *Engine) computeMemberTable(t types.Type, s scope.ID) map[string][]ast.Decl {
	canon := types.Canonical(t)
	if bg, ok := canon.(*types.BoundGeneric); ok {
		return e.computeMemberTable(bg.Base, s)
	}
	out := map[string][]ast.Decl{}
	var seedDecl ast.Decl
	switch v := canon.(type) {
	case *types.ProductType:
		seedDecl = v.Decl
		for _, m := range v.Decl.Members {
			addMemberNames(out, m)
		}
		out["init"] = append(out["init"], syntheticInit(v.Decl))
	case *types.TraitType:
		seedDecl = v.Decl
		for _, m := range v.Decl.Members {
			addMemberNames(out, m)
		}
	case *types.TypeAliasType:
		return e.computeMemberTable(v.Aliased, s)
	}

	for _, ext := range e.realizer.ExtensionsOf(canon, s) {
		switch v := ext.(type) {
		case *ast.ExtensionDecl:
			for _, m := range v.Members {
				addMemberNames(out, m)
			}
		case *ast.ConformanceDecl:
			for _, m := range v.Members {
				addMemberNames(out, m)
			}
		}
	}

	if !anyNonOverloadable(out) {
		for _, tr := range e.ConformedTraits(canon) {
			if ast.Decl(tr) == seedDecl {
				continue
			}
			for _, m := range tr.Members {
				tmp := map[string][]ast.Decl{}
				addMemberNames(tmp, m)
				for name, decls := range tmp {
					if _, exists := out[name]; !exists {
						out[name] = append(out[name], decls...)
					}
				}
			}
		}
	}
	return out
}

func anyNonOverloadable(out map[string][]ast.Decl) bool {
	for _, decls := range out {
		if !allOverloadable(decls) {
			return true
		}
	}
	return false
}

// addMemberNames contributes d's own member name(s) to out, the member-table
// counterpart of addNames: a stored field is written as a *ast.BindingDecl
// whose Vars carry the actual names (addNames itself skips BindingDecl,
// since at module/local scope its members are reached through those same
// Vars rather than the binding node directly).
func addMemberNames(out map[string][]ast.Decl, d ast.Decl) {
	if b, ok := d.(*ast.BindingDecl); ok {
		for _, vd := range b.Vars {
			addNames(out, vd)
		}
		return
	}
	addNames(out, d)
}

// syntheticInit models the implicit memberwise initializer injected under
// the name "init" for product member lookup (spec.md §4.2, §4.4).
func syntheticInit(p *ast.ProductDecl) ast.Decl {
	var params []*ast.ParameterDecl
	for _, m := range p.Members {
		if b, ok := m.(*ast.BindingDecl); ok {
			for _, v := range b.Vars {
				params = append(params, &ast.ParameterDecl{
					Label:      v.Name,
					Name:       v.Name,
					Effect:     ast.Sink,
					Annotation: b.Annotation,
				})
			}
		}
	}
	return &ast.InitializerDecl{Params: params}
}
