package types

import "github.com/nominalang/check/internal/ast"

func testGenericParam(name string) *ast.GenericParameterDecl {
	return &ast.GenericParameterDecl{Name: name}
}
