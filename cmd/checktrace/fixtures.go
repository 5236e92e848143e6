// Sample hand-built ScopedProgram fixtures for cmd/checktrace to load by
// name. Parsing is an external collaborator (internal/ast's own package
// doc), so this harness never reads source text; it only ever hands the
// engine a scope-built AST, exactly like internal/check's own test suite
// does.
package main

import (
	"fmt"
	"sort"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/scope"
)

type fixture struct {
	summary string
	build   func() *scope.ScopedProgram
}

var fixtures = map[string]fixture{
	"literal-binding": {
		summary: "let ok = true  (infers Bool, zero diagnostics)",
		build:   buildLiteralBindingFixture,
	},
	"return-mismatch": {
		summary: "fn bar() -> Any { return }  (bare return against Any, reports TC021)",
		build:   buildReturnMismatchFixture,
	},
	"capture": {
		summary: "fn outer() { let n = true; fn inner() { n } }  (inner captures n by let)",
		build:   buildCaptureFixture,
	},
}

func fixtureNames() []string {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildLiteralBindingFixture() *scope.ScopedProgram {
	vd := &ast.VarDecl{Name: "ok"}
	binding := &ast.BindingDecl{
		Pattern:     &ast.VarPattern{Name: "ok"},
		Initializer: &ast.BoolLiteralExpr{Value: true},
		Vars:        []*ast.VarDecl{vd},
	}
	vd.Binding = binding

	mod := &ast.ModuleDecl{Name: "literal-binding", TranslationUnits: [][]ast.Decl{{binding}}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	b.PlaceDecl(binding, moduleScope)
	b.MarkGlobal(binding)
	return b.Build()
}

func buildReturnMismatchFixture() *scope.ScopedProgram {
	fn := &ast.FunctionDecl{
		Identifier: "bar",
		Output:     &ast.NamedTypeExpr{Identifier: "Any"},
		Body:       &ast.BraceStmt{Stmts: []ast.Stmt{&ast.ReturnStmt{}}},
	}

	mod := &ast.ModuleDecl{Name: "return-mismatch", TranslationUnits: [][]ast.Decl{{fn}}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	body := b.NewScope(moduleScope)
	b.PlaceDecl(fn, body)
	b.MarkGlobal(fn)
	return b.Build()
}

func buildCaptureFixture() *scope.ScopedProgram {
	nVar := &ast.VarDecl{Name: "n"}
	binding := &ast.BindingDecl{
		Pattern:     &ast.VarPattern{Name: "n"},
		Initializer: &ast.BoolLiteralExpr{Value: true},
		Vars:        []*ast.VarDecl{nVar},
	}
	nVar.Binding = binding

	use := &ast.NameExpr{Identifier: "n"}
	inner := &ast.FunctionDecl{
		Identifier: "inner",
		IsLocal:    true,
		Body:       &ast.BraceStmt{Stmts: []ast.Stmt{&ast.DiscardStmt{Value: use}}},
	}
	outer := &ast.FunctionDecl{
		Identifier: "outer",
		Body: &ast.BraceStmt{Stmts: []ast.Stmt{
			&ast.DeclStmt{Decl: binding},
			&ast.DeclStmt{Decl: inner},
		}},
	}

	mod := &ast.ModuleDecl{Name: "capture", TranslationUnits: [][]ast.Decl{{outer}}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	outerScope := b.NewScope(moduleScope)
	innerScope := b.NewScope(outerScope)

	b.PlaceDecl(outer, moduleScope)
	b.MarkGlobal(outer)
	b.PlaceDecl(binding, outerScope)
	b.PlaceDecl(nVar, outerScope)
	b.PlaceDecl(inner, innerScope)
	b.PlaceExpr(use, innerScope)

	return b.Build()
}

func describeFixtures() string {
	out := ""
	for _, name := range fixtureNames() {
		out += fmt.Sprintf("  %-16s %s\n", name, fixtures[name].summary)
	}
	return out
}
