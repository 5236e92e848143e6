// Package scope defines ScopedProgram, the immutable external input to the
// checker (spec.md §3, §6). Producing it — parsing plus scope construction
// — is out of scope for this module; only the interface the checker
// consumes is fixed here, together with a constructor usable by tests and
// by the developer trace harness (cmd/checktrace) to build small fixtures
// by hand.
package scope

import (
	"github.com/nominalang/check/internal/ast"
)

// ID identifies a scope. Scopes form a tree via ScopedProgram.scopeToParent.
type ID int

// NoScope means "no enclosing scope" (module root's parent).
const NoScope ID = -1

// ScopedProgram is the immutable, already-scoped input to the checker.
// All maps are populated before construction and never mutated afterward.
type ScopedProgram struct {
	AST *ast.ModuleDecl

	declToScope map[ast.Decl]ID
	scopeToParent map[ID]ID
	scopeToDecls  map[ID][]ast.Decl
	varToBinding  map[*ast.VarDecl]*ast.BindingDecl
	exprToScope   map[ast.Expr]ID

	memberDecls   map[ast.Decl]bool // isMember
	memberCtxExpr map[ast.Expr]bool // isMemberContext
	requirements  map[ast.Decl]bool // isRequirement (trait member w/o default impl)
	synthesizable map[ast.Decl]bool // isSynthesizable (conformance requirement)
	localDecls    map[ast.Decl]bool // isLocal
	globalDecls   map[ast.Decl]bool // isGlobal

	fileScopes map[ID]bool // scopes that are translation-unit (file) scopes
	typeScopes map[ID]ast.Decl // scope introduced directly by a type/trait/extension decl

	moduleScope ID
	otherModules []*ScopedProgram // other modules visible for cross-module unqualified lookup
}

// Builder incrementally constructs a ScopedProgram. It exists so tests and
// cmd/checktrace can assemble small fixtures without hand-writing every map.
type Builder struct {
	p        *ScopedProgram
	nextID   ID
}

func NewBuilder(mod *ast.ModuleDecl) *Builder {
	b := &Builder{
		p: &ScopedProgram{
			AST:           mod,
			declToScope:   map[ast.Decl]ID{},
			scopeToParent: map[ID]ID{},
			scopeToDecls:  map[ID][]ast.Decl{},
			varToBinding:  map[*ast.VarDecl]*ast.BindingDecl{},
			exprToScope:   map[ast.Expr]ID{},
			memberDecls:   map[ast.Decl]bool{},
			memberCtxExpr: map[ast.Expr]bool{},
			requirements:  map[ast.Decl]bool{},
			synthesizable: map[ast.Decl]bool{},
			localDecls:    map[ast.Decl]bool{},
			globalDecls:   map[ast.Decl]bool{},
			fileScopes:    map[ID]bool{},
			typeScopes:    map[ID]ast.Decl{},
		},
		nextID: 0,
	}
	return b
}

// NewScope allocates a fresh scope with the given parent (NoScope for roots).
func (b *Builder) NewScope(parent ID) ID {
	id := b.nextID
	b.nextID++
	b.p.scopeToParent[id] = parent
	return id
}

func (b *Builder) MarkFileScope(id ID)             { b.p.fileScopes[id] = true }
func (b *Builder) MarkTypeScope(id ID, d ast.Decl)  { b.p.typeScopes[id] = d }
func (b *Builder) SetModuleScope(id ID)             { b.p.moduleScope = id }
func (b *Builder) AddOtherModule(p *ScopedProgram)  { b.p.otherModules = append(b.p.otherModules, p) }

// PlaceDecl records that d is directly contained in scope and introduces scope itself.
func (b *Builder) PlaceDecl(d ast.Decl, containing ID) {
	b.p.declToScope[d] = containing
	b.p.scopeToDecls[containing] = append(b.p.scopeToDecls[containing], d)
}

func (b *Builder) SetVarBinding(v *ast.VarDecl, bd *ast.BindingDecl) { b.p.varToBinding[v] = bd }
func (b *Builder) PlaceExpr(e ast.Expr, s ID)                       { b.p.exprToScope[e] = s }
func (b *Builder) MarkMember(d ast.Decl)                            { b.p.memberDecls[d] = true }
func (b *Builder) MarkMemberContext(e ast.Expr)                     { b.p.memberCtxExpr[e] = true }
func (b *Builder) MarkRequirement(d ast.Decl)                       { b.p.requirements[d] = true }
func (b *Builder) MarkSynthesizable(d ast.Decl)                     { b.p.synthesizable[d] = true }
func (b *Builder) MarkLocal(d ast.Decl)                             { b.p.localDecls[d] = true }
func (b *Builder) MarkGlobal(d ast.Decl)                            { b.p.globalDecls[d] = true }

func (b *Builder) Build() *ScopedProgram { return b.p }

// ---- read accessors matching spec.md §6 ----

func (p *ScopedProgram) ScopeOf(d ast.Decl) ID { return p.declToScope[d] }
func (p *ScopedProgram) Parent(s ID) (ID, bool) {
	parent, ok := p.scopeToParent[s]
	return parent, ok
}
func (p *ScopedProgram) DeclsIn(s ID) []ast.Decl { return p.scopeToDecls[s] }
func (p *ScopedProgram) BindingOf(v *ast.VarDecl) *ast.BindingDecl { return p.varToBinding[v] }
func (p *ScopedProgram) ScopeOfExpr(e ast.Expr) ID { return p.exprToScope[e] }

func (p *ScopedProgram) IsMember(d ast.Decl) bool         { return p.memberDecls[d] }
func (p *ScopedProgram) IsMemberContext(e ast.Expr) bool  { return p.memberCtxExpr[e] }
func (p *ScopedProgram) IsRequirement(d ast.Decl) bool    { return p.requirements[d] }
func (p *ScopedProgram) IsSynthesizable(d ast.Decl) bool  { return p.synthesizable[d] }
func (p *ScopedProgram) IsLocal(d ast.Decl) bool          { return p.localDecls[d] }
func (p *ScopedProgram) IsGlobal(d ast.Decl) bool         { return p.globalDecls[d] }
func (p *ScopedProgram) IsFileScope(s ID) bool            { return p.fileScopes[s] }
func (p *ScopedProgram) TypeScopeDecl(s ID) (ast.Decl, bool) {
	d, ok := p.typeScopes[s]
	return d, ok
}
func (p *ScopedProgram) ModuleScope() ID          { return p.moduleScope }
func (p *ScopedProgram) OtherModules() []*ScopedProgram { return p.otherModules }

// IsContained reports whether scope s is the scope introducedBy is placed in
// (its ScopeOf) or nested (transitively) inside that scope. It is false when
// introducedBy was never placed.
func (p *ScopedProgram) IsContained(s ID, introducedBy ast.Decl) bool {
	target, ok := p.declToScope[introducedBy]
	if !ok {
		return false
	}
	// walk outward from s looking for target
	for cur := s; ; {
		if cur == target {
			return true
		}
		parent, ok := p.scopeToParent[cur]
		if !ok || parent == cur {
			return false
		}
		cur = parent
	}
}

// InnermostType returns the nearest enclosing type-introducing scope's decl,
// walking outward from s.
func (p *ScopedProgram) InnermostType(containing ID) (ast.Decl, bool) {
	for cur := containing; ; {
		if d, ok := p.typeScopes[cur]; ok {
			return d, true
		}
		parent, ok := p.scopeToParent[cur]
		if !ok || parent == cur {
			return nil, false
		}
		cur = parent
	}
}

// ScopesFrom returns the chain of scopes from s outward to (and including) the module root.
func (p *ScopedProgram) ScopesFrom(s ID) []ID {
	var out []ID
	for cur := s; ; {
		out = append(out, cur)
		parent, ok := p.scopeToParent[cur]
		if !ok || parent == cur {
			break
		}
		cur = parent
	}
	return out
}

// ScopeIntroducing returns the scope that d itself introduces for its members
// (as opposed to the scope d is contained in). For declarations with no
// member scope of their own this is the same as ScopeOf.
func (p *ScopedProgram) ScopeIntroducing(d ast.Decl) ID {
	for s, td := range p.typeScopes {
		if td == d {
			return s
		}
	}
	return p.declToScope[d]
}

// Module returns the module-root scope containing s (there is exactly one
// module per ScopedProgram in this simplified external interface).
func (p *ScopedProgram) Module(containing ID) ID {
	return p.moduleScope
}
