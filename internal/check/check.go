// Package check is the type checker's external entry point (spec.md §3, §6):
// it wires a scope.ScopedProgram and config.Options into an internal/decl.Checker,
// walks every top-level declaration, and hands back the finished
// typedprogram.TypedProgram plus the accumulated diagnostics.
//
// Grounded on the teacher's internal/pipeline/pipeline.go (a thin façade
// wiring a Source through parse/elaborate/typecheck stages into one result
// struct) and internal/types/typechecker.go's CheckProgram entry point.
package check

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/config"
	"github.com/nominalang/check/internal/decl"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/typedprogram"
)

// Result is the outcome of checking one program (spec.md §3 "output"). Trace
// is the ordered narration collected while TracingInferenceIn was active
// (spec.md §1.5, §6); empty when tracing was off.
type Result struct {
	Program     *typedprogram.TypedProgram
	Diagnostics []diagnostics.Diagnostic
	Trace       []string
}

// TypeChecker runs full checking over a scope.ScopedProgram under a fixed
// set of Options.
type TypeChecker struct {
	opts config.Options
}

func New(opts config.Options) *TypeChecker {
	return &TypeChecker{opts: opts}
}

// Check realizes and checks every declaration reachable from prog's module,
// in source order, and returns the aggregated typed program (spec.md §5
// "Driving the checker": every top-level declaration is checked once, each
// triggering whatever realization its own references need on demand).
func (tc *TypeChecker) Check(prog *scope.ScopedProgram) *Result {
	diags := diagnostics.NewBag()
	c := decl.New(prog, diags)
	c.TraceLine = tc.opts.TraceLine()
	var trace []string
	c.Trace = func(msg string) { trace = append(trace, msg) }

	walkModule(c, prog.AST)

	c.Out.Success = !diags.HasErrors()
	return &Result{Program: c.Out, Diagnostics: diags.All(), Trace: trace}
}

// walkModule drives Check over every translation unit's top-level
// declarations, in file order, descending into namespaces (the only
// top-level container Check's own recursion doesn't already cover; product,
// trait, conformance, and extension members are reached through Check's own
// member loops once their container is checked).
func walkModule(c *decl.Checker, mod *ast.ModuleDecl) {
	for _, tu := range mod.TranslationUnits {
		walkDecls(c, tu)
	}
}

func walkDecls(c *decl.Checker, decls []ast.Decl) {
	for _, d := range decls {
		switch v := d.(type) {
		case *ast.NamespaceDecl:
			walkDecls(c, v.Members)
		case *ast.AliasDecl:
			c.Realize(d)
		default:
			c.Check(v)
		}
	}
}
