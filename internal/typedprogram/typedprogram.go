// Package typedprogram defines TypedProgram, the checker's output aggregate
// (spec.md §3, §6).
//
// Grounded on the teacher's internal/typedast/typed_ast.go (a typed-node
// wrapper aggregate produced by the checker).
package typedprogram

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/resolve"
	"github.com/nominalang/check/internal/types"
)

// ImplicitCapture is one entry of implicitCaptures (spec.md §3, §4.7).
type ImplicitCapture struct {
	Name     string
	Effect   ast.AccessEffect
	Referent ast.Decl
}

// FoldedNode is the binary-tree form a SequenceExpr folds into (spec.md §4.6 "Sequence").
type FoldedNode struct {
	Operator string
	Left     interface{} // *FoldedNode or ast.Expr
	Right    interface{} // *FoldedNode or ast.Expr
}

// Conformance records a proven trait conformance (spec.md §4.5).
type Conformance struct {
	Model ast.Decl // the conforming product/trait's own decl
	Trait *ast.TraitDecl
	// Witnesses maps each requirement's introduced name to the member
	// declaration (or nil if synthesized) that satisfies it.
	Witnesses map[string]ast.Decl
	Synthesized map[string]bool
	// Derived maps a requirement name to the already-proven refining trait
	// whose own witness for that name was reused to satisfy this
	// conformance's requirement, rather than a member declared against
	// Model directly (SPEC_FULL.md "Superclass/refinement derivation at
	// conformance-checking time").
	Derived map[string]*ast.TraitDecl
	Site ast.Pos
}

// DerivedFrom reports the refining trait whose witness satisfied requirement,
// when that requirement wasn't witnessed directly by a member of Model.
func (c *Conformance) DerivedFrom(requirement string) (*ast.TraitDecl, bool) {
	tr, ok := c.Derived[requirement]
	return tr, ok
}

// TypedProgram is the checker's final output, produced by move once
// checking completes (spec.md §5 "Resource ownership").
type TypedProgram struct {
	DeclTypes          map[ast.Decl]types.Type
	ExprTypes          map[ast.Expr]types.Type
	ReferredDecls      map[ast.Expr]resolve.Reference
	ImplicitCaptures   map[ast.Decl][]ImplicitCapture
	FoldedSequenceExprs map[*ast.SequenceExpr]*FoldedNode
	Conformances       []*Conformance
	Success            bool
}

func New() *TypedProgram {
	return &TypedProgram{
		DeclTypes:           map[ast.Decl]types.Type{},
		ExprTypes:           map[ast.Expr]types.Type{},
		ReferredDecls:       map[ast.Expr]resolve.Reference{},
		ImplicitCaptures:    map[ast.Decl][]ImplicitCapture{},
		FoldedSequenceExprs: map[*ast.SequenceExpr]*FoldedNode{},
	}
}
