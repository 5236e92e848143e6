// Package resolve implements spec.md §4.2/§4.3: names introduced in a scope,
// unqualified and member lookup, conformance closure, nominal-prefix
// resolution, candidate construction, and magic type names.
//
// Grounded on the teacher's internal/module/resolver.go (cross-module
// qualified lookup) and internal/types/instances.go's closure-over-
// superclasses idiom (InstanceEnv.Lookup deriving Eq from Ord), generalized
// here to trait refinement closure.
package resolve

import (
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/scope"
)

// normalize routes identifier comparisons through NFC so that operator and
// magic names synthesized from different sources compare equal regardless
// of input normalization form (SPEC_FULL.md §1.4).
func normalize(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// NamesIntroduced maps each name a scope directly introduces to the
// declaration(s) it names (spec.md §4.3). For a module scope this is the
// union over all of its translation units.
func (e *Engine) NamesIntroduced(s scope.ID) map[string][]ast.Decl {
	if cached, ok := e.namesCache[s]; ok {
		return cached
	}
	out := map[string][]ast.Decl{}
	if s == e.prog.ModuleScope() {
		for _, tu := range e.prog.AST.TranslationUnits {
			for _, d := range tu {
				addNames(out, d)
			}
		}
	} else {
		for _, d := range e.prog.DeclsIn(s) {
			addNames(out, d)
		}
	}
	e.namesCache[s] = out
	return out
}

func addNames(out map[string][]ast.Decl, d ast.Decl) {
	switch v := d.(type) {
	case *ast.ProductDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.TraitDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.AliasDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.VarDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.ParameterDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.NamespaceDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.AssociatedTypeDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.AssociatedValueDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.GenericParameterDecl:
		out[v.Name] = append(out[v.Name], d)
	case *ast.FunctionDecl:
		if v.IsOperator {
			return // excluded; reached via operator lookup instead
		}
		if v.Identifier != "" {
			out[v.Identifier] = append(out[v.Identifier], d)
		}
	case *ast.InitializerDecl:
		out["init"] = append(out["init"], d)
	case *ast.MethodBundleDecl:
		out[v.Identifier] = append(out[v.Identifier], d)
	case *ast.SubscriptDecl:
		name := v.Identifier
		if name == "" {
			name = "[]"
		}
		out[name] = append(out[name], d)
	case *ast.BindingDecl, *ast.ConformanceDecl, *ast.ExtensionDecl:
		// contribute nothing directly; members are exposed through their
		// own path (binding's Vars, conformance/extension's Members).
	}
}

// isNameRune reports whether r can appear in a source identifier, used only
// to guard against accidental use of non-identifier keys (operators, "[]")
// in contexts that require a plain name.
func isPlainIdentifier(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return len(s) > 0
}

// isOverloadable reports whether a declaration participates in overload
// sets rather than freezing unqualified lookup as a singleton shadow.
func isOverloadable(d ast.Decl) bool {
	switch d.(type) {
	case *ast.FunctionDecl, *ast.InitializerDecl, *ast.MethodBundleDecl, *ast.SubscriptDecl:
		return true
	default:
		return false
	}
}
