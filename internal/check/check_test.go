package check

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/config"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/types"
)

// buildModule wraps one translation unit's worth of top-level declarations
// into a one-scope ScopedProgram: every decl is placed directly in the
// module scope, matching how cmd/checktrace's own fixtures are assembled.
func buildModule(decls ...ast.Decl) *scope.ScopedProgram {
	mod := &ast.ModuleDecl{Name: "fixture", TranslationUnits: [][]ast.Decl{decls}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	for _, d := range decls {
		b.PlaceDecl(d, moduleScope)
		b.MarkGlobal(d)
	}
	return b.Build()
}

func TestCheckGlobalBindingInfersLiteralType(t *testing.T) {
	vd := &ast.VarDecl{Name: "ok"}
	binding := &ast.BindingDecl{
		Pattern:     &ast.VarPattern{Name: "ok"},
		Initializer: &ast.BoolLiteralExpr{Value: true},
		Vars:        []*ast.VarDecl{vd},
	}
	vd.Binding = binding

	prog := buildModule(binding)
	result := New(config.Default()).Check(prog)

	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
	got, ok := result.Program.DeclTypes[vd]
	if !ok {
		t.Fatal("expected a declType entry for the binding's variable")
	}
	if diff := cmp.Diff(types.Bool, got); diff != "" {
		t.Errorf("unexpected inferred type (-want +got):\n%s", diff)
	}
	if !result.Program.Success {
		t.Error("expected Success to be true with no errors")
	}
}

func TestCheckGlobalBindingDefaultsUnconstrainedIntLiteral(t *testing.T) {
	vd := &ast.VarDecl{Name: "n"}
	binding := &ast.BindingDecl{
		Pattern:     &ast.VarPattern{Name: "n"},
		Initializer: &ast.IntLiteralExpr{Value: 42},
		Vars:        []*ast.VarDecl{vd},
	}
	vd.Binding = binding

	prog := buildModule(binding)
	result := New(config.Default()).Check(prog)

	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
	got, ok := result.Program.DeclTypes[vd]
	if !ok {
		t.Fatal("expected a declType entry for the binding's variable")
	}
	if diff := cmp.Diff(types.Int, got); diff != "" {
		t.Errorf("unexpected inferred type (-want +got):\n%s", diff)
	}
}

func TestCheckGlobalBindingDefaultsUnconstrainedFloatLiteral(t *testing.T) {
	vd := &ast.VarDecl{Name: "x"}
	binding := &ast.BindingDecl{
		Pattern:     &ast.VarPattern{Name: "x"},
		Initializer: &ast.FloatLiteralExpr{Value: 3.5},
		Vars:        []*ast.VarDecl{vd},
	}
	vd.Binding = binding

	prog := buildModule(binding)
	result := New(config.Default()).Check(prog)

	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
	got := result.Program.DeclTypes[vd]
	if diff := cmp.Diff(types.Float, got); diff != "" {
		t.Errorf("unexpected inferred type (-want +got):\n%s", diff)
	}
}

func TestCheckFunctionWhereClauseViolationReportsDiagnostic(t *testing.T) {
	gp := &ast.GenericParameterDecl{Name: "T"}
	whereClause := &ast.SequenceExpr{
		Operands:  []ast.Expr{&ast.NameExpr{Identifier: "T"}, &ast.NameExpr{Identifier: "Showable"}},
		Operators: []string{":"},
	}
	trait := &ast.TraitDecl{Name: "Showable"}
	fn := &ast.FunctionDecl{
		Identifier:   "show",
		Generics:     []*ast.GenericParameterDecl{gp},
		WhereClauses: []ast.Expr{whereClause},
		Body:         &ast.BraceStmt{},
	}

	mod := &ast.ModuleDecl{Name: "fixture", TranslationUnits: [][]ast.Decl{{trait, fn}}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	b.PlaceDecl(trait, moduleScope)
	b.MarkGlobal(trait)
	fnScope := b.NewScope(moduleScope)
	b.PlaceDecl(fn, fnScope)
	b.PlaceDecl(gp, fnScope)
	b.MarkGlobal(fn)
	prog := b.Build()

	result := New(config.Default()).Check(prog)

	found := false
	for _, d := range result.Diagnostics {
		if d.Code == diagnostics.TCInvalidConformanceConstraint {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want a TCInvalidConformanceConstraint entry for T's unmet Showable where-clause bound", result.Diagnostics)
	}
}

func TestCheckFunctionReturnMismatchReportsDiagnostic(t *testing.T) {
	fn := &ast.FunctionDecl{
		Identifier: "bar",
		Output:     &ast.NamedTypeExpr{Identifier: "Any"},
		Body:       &ast.BraceStmt{Stmts: []ast.Stmt{&ast.ReturnStmt{}}},
	}

	mod := &ast.ModuleDecl{Name: "fixture", TranslationUnits: [][]ast.Decl{{fn}}}
	b := scope.NewBuilder(mod)
	moduleScope := b.NewScope(scope.NoScope)
	b.SetModuleScope(moduleScope)
	body := b.NewScope(moduleScope)
	b.PlaceDecl(fn, body)
	b.MarkGlobal(fn)
	prog := b.Build()

	result := New(config.Default()).Check(prog)

	if len(result.Diagnostics) == 0 {
		t.Fatal("expected a diagnostic for a bare `return` against an Any-annotated function")
	}
	if got := result.Diagnostics[0].Code; got != diagnostics.TCInvalidEqualityConstraint {
		t.Errorf("code = %s, want %s", got, diagnostics.TCInvalidEqualityConstraint)
	}
	if result.Program.Success {
		t.Error("expected Success to be false with a reported error")
	}
}
