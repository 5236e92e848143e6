package resolve

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
)

// magicDecl is a synthetic declaration standing in for a magic type name
// (spec.md §4.2), so the rest of candidate construction can treat it like
// any other declaration match.
type magicDecl struct {
	ast.AliasDecl // embeds Pos/Name plumbing; Subject is set to whatever the magic name resolves to
}

// magicReference resolves the magic type names Self, Any, Never and Builtin
// when nothing in scope already matched the bare name (spec.md §4.2 "Magic
// type names"). Sum types are realized from ast.SumTypeExpr in internal/decl;
// Metatype is not resolved as a magic name anywhere.
func (e *Engine) magicReference(useSite scope.ID, name string) (ast.Decl, bool) {
	switch name {
	case "Any", "Never", "Builtin":
		return &ast.AliasDecl{Name: name}, true
	case "Self":
		return e.resolveSelf(useSite)
	default:
		return nil, false
	}
}

// resolveSelf walks outward to the first type scope and returns its
// declaration: a trait or product resolves to itself, and an extension or
// conformance declaration to that declaration, whose realized type is its
// subject's metatype.
func (e *Engine) resolveSelf(useSite scope.ID) (ast.Decl, bool) {
	d, ok := e.prog.InnermostType(useSite)
	if !ok {
		e.Diagnostics.Add(diagnostics.Diagnostic{
			Code:     diagnostics.TCInvalidSelfReference,
			Severity: diagnostics.SeverityError,
			Message:  "Self used outside of a type, trait, or extension scope",
		})
		return nil, false
	}
	switch v := d.(type) {
	case *ast.TraitDecl:
		return v, true
	case *ast.ProductDecl:
		return v, true
	case *ast.ExtensionDecl, *ast.ConformanceDecl:
		return d, true
	default:
		return d, true
	}
}
