package constraints

import (
	"github.com/nominalang/check/internal/ast"
	"github.com/nominalang/check/internal/diagnostics"
	"github.com/nominalang/check/internal/resolve"
	"github.com/nominalang/check/internal/scope"
	"github.com/nominalang/check/internal/typedprogram"
	"github.com/nominalang/check/internal/types"
)

// LiteralTraits names the magic traits a numeric/string literal must conform
// to, and the type it defaults to absent any other constraint (spec.md §4.6
// "Literal"). internal/decl's Checker supplies these by looking the traits
// up by name at module scope; nil entries skip the conformance obligation.
type LiteralTraits struct {
	Integer *ast.TraitDecl
	Float   *ast.TraitDecl
	String  *ast.TraitDecl
}

// RealizeTypeExpr realizes a written type annotation into a types.Type.
// Supplied by internal/decl, which owns declaration realization; constraints
// only consumes the result.
type RealizeTypeExpr func(useSite scope.ID, te ast.TypeExpr) types.Type

// CheckLambdaBody runs full statement/expression checking over a lambda's
// body against its already-inferred Lambda shape, deferred until the
// enclosing system solves (spec.md §4.6 "Deferred queries"). Supplied by
// internal/decl.
type CheckLambdaBody func(useSite scope.ID, lam *ast.LambdaExpr, shape *types.Lambda)

// Generator walks expressions and emits constraints into a System.
type Generator struct {
	Sys      *System
	Literals LiteralTraits
	Realize  RealizeTypeExpr
	Defer    CheckLambdaBody
	// Precedence looks up an operator's declared binding strength for
	// sequence folding (spec.md §4.6 "Sequence"); nil folds strictly
	// left-to-right.
	Precedence func(op string) (int, bool)
}

func NewGenerator(sys *System, lits LiteralTraits, realize RealizeTypeExpr, deferFn CheckLambdaBody) *Generator {
	return &Generator{Sys: sys, Literals: lits, Realize: realize, Defer: deferFn}
}

// Infer is the entry point for constraint generation over one expression
// (spec.md §4.6). It returns the (possibly still variable) type of e and
// records it into Sys.ExprType.
func (g *Generator) Infer(useSite scope.ID, e ast.Expr) types.Type {
	t := g.infer(useSite, e)
	g.Sys.ExprType[e] = t
	return t
}

func (g *Generator) infer(useSite scope.ID, e ast.Expr) types.Type {
	switch v := e.(type) {
	case *ast.BoolLiteralExpr:
		return types.Bool
	case *ast.IntLiteralExpr:
		return g.literal(useSite, e, types.Int, g.Literals.Integer)
	case *ast.FloatLiteralExpr:
		return g.literal(useSite, e, types.Float, g.Literals.Float)
	case *ast.StringLiteralExpr:
		return g.literal(useSite, e, types.String, g.Literals.String)
	case *ast.NameExpr:
		return g.inferName(useSite, v)
	case *ast.FunctionCallExpr:
		return g.inferCall(useSite, v)
	case *ast.SubscriptCallExpr:
		return g.inferSubscript(useSite, v)
	case *ast.LambdaExpr:
		return g.inferLambda(useSite, v)
	case *ast.CastExpr:
		return g.inferCast(useSite, v)
	case *ast.InoutExpr:
		bare := g.Infer(useSite, v.Subject)
		return &types.Remote{Effect: ast.Inout, Bare: bare}
	case *ast.SequenceExpr:
		return g.inferSequence(useSite, v)
	case *ast.TupleExpr:
		return g.inferTuple(useSite, v)
	case *ast.ConditionalExpr:
		return g.inferConditional(useSite, v)
	default:
		return types.ErrorType
	}
}

func (g *Generator) literal(useSite scope.ID, e ast.Expr, def types.Type, trait *ast.TraitDecl) types.Type {
	v := types.NewVar("lit")
	g.Sys.Add(Literal(v, def, trait).At(e.Span()))
	return v
}

// flattenChain collects a dotted identifier chain rooted at a bare name
// (spec.md §4.2 "Nominal-prefix resolution"). ok is false when the chain's
// root is itself a computed expression, in which case member resolution via
// constraints (not nominal-prefix resolution) applies.
func flattenChain(e *ast.NameExpr) (chain []resolve.NameComponent, root *ast.NameExpr, ok bool) {
	cur := e
	var comps []resolve.NameComponent
	for {
		comps = append([]resolve.NameComponent{{
			Identifier: cur.Identifier,
			StaticArgs: cur.StaticArgs,
			Site:       cur.Span(),
		}}, comps...)
		if cur.Domain == nil {
			return comps, cur, true
		}
		dn, isName := cur.Domain.(*ast.NameExpr)
		if !isName {
			return nil, nil, false
		}
		cur = dn
	}
}

func (g *Generator) inferName(useSite scope.ID, e *ast.NameExpr) types.Type {
	chain, _, ok := flattenChain(e)
	if !ok {
		base := g.Infer(useSite, e.Domain)
		mv := types.NewVar("member")
		g.Sys.Add(Member(base, e.Identifier, mv, useSite).At(e.Span()))
		return mv
	}
	res := g.Sys.Resolver.ResolveNominalPrefix(useSite, chain, false, nil)
	if len(res.Candidates) == 0 {
		return types.ErrorType
	}
	var t types.Type
	if len(res.Candidates) == 1 {
		c := res.Candidates[0]
		g.Sys.Referred[e] = c.Ref
		g.addBoundConstraints(c.Constraints, e.Span())
		t = c.Type
	} else {
		rv := types.NewVar("overload")
		choices := make([]Choice, len(res.Candidates))
		for i, c := range res.Candidates {
			c := c
			choices[i] = Choice{
				Candidate: &c,
				Sub:       append([]Constraint{Equality(rv, c.Type)}, boundConstraints(c.Constraints, e.Span())...),
			}
		}
		oc := Overload(e, res.Candidates)
		oc.Kind = KDisjunction
		oc.Choices = choices
		g.Sys.Add(oc.At(e.Span()))
		t = rv
	}
	// Components nominal-prefix resolution left unresolved become one Member
	// constraint each, chained from the type resolved so far.
	for _, comp := range res.Unresolved {
		mv := types.NewVar("member")
		g.Sys.Add(Member(t, comp.Identifier, mv, useSite).At(comp.Site))
		t = mv
	}
	return t
}

// addBoundConstraints feeds a resolved candidate's scope-relative
// instantiation bounds (spec.md §4.1 InstantiatedType.constraints) into the
// generator's own system, unconditionally true for this use site.
func (g *Generator) addBoundConstraints(cons []resolve.BoundConstraint, site ast.Pos) {
	for _, bc := range boundConstraints(cons, site) {
		g.Sys.Add(bc)
	}
}

// boundConstraints is addBoundConstraints' pure form, used where the
// constraints must ride along inside a single overload Choice rather than
// apply to the system unconditionally.
func boundConstraints(cons []resolve.BoundConstraint, site ast.Pos) []Constraint {
	out := make([]Constraint, len(cons))
	for i, bc := range cons {
		out[i] = Conformance(bc.Type, bc.Traits).At(site)
	}
	return out
}

func (g *Generator) inferCall(useSite scope.ID, e *ast.FunctionCallExpr) types.Type {
	callee := g.Infer(useSite, e.Callee)
	args := make([]types.Type, len(e.Args))
	labels := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = g.Infer(useSite, a.Value)
		labels[i] = a.Label
	}
	ret := types.NewVar("ret")
	g.Sys.Add(FunctionCall(callee, labels, args, ret).At(e.Span()))
	return ret
}

func (g *Generator) inferSubscript(useSite scope.ID, e *ast.SubscriptCallExpr) types.Type {
	base := g.Infer(useSite, e.Base)
	for _, a := range e.Args {
		g.Infer(useSite, a.Value)
	}
	if _, onType := base.(*types.Metatype); onType {
		g.Sys.Diags.Add(diagnostics.Diagnostic{
			Code:     diagnostics.TCBufferTypeSugarNotImplemented,
			Severity: diagnostics.SeverityError,
			Message:  "buffer-type sugar (subscript on a type) is not implemented",
			Site:     e.Span(),
		})
		return types.ErrorType
	}
	mv := types.NewVar("subscript")
	g.Sys.Add(Member(base, "[]", mv, useSite).At(e.Span()))
	return mv
}

func (g *Generator) inferLambda(useSite scope.ID, e *ast.LambdaExpr) types.Type {
	inputs := make([]types.LabeledType, len(e.Params))
	for i, p := range e.Params {
		var pt types.Type
		if p.Annotation != nil && g.Realize != nil {
			pt = g.Realize(useSite, p.Annotation)
		} else {
			pt = types.NewVar("param")
		}
		inputs[i] = types.LabeledType{Label: p.Name, Type: pt}
	}
	var out types.Type
	if e.Output != nil && g.Realize != nil {
		out = g.Realize(useSite, e.Output)
	} else {
		out = types.NewVar("lambdaOut")
	}
	shape := &types.Lambda{
		ReceiverEffect: e.ReceiverFx,
		Environment:    types.Void,
		Inputs:         inputs,
		Output:         out,
	}
	if g.Defer != nil {
		g.Defer(useSite, e, shape)
	}
	return shape
}

func (g *Generator) inferCast(useSite scope.ID, e *ast.CastExpr) types.Type {
	g.Infer(useSite, e.Operand)
	if g.Realize == nil {
		return types.ErrorType
	}
	return g.Realize(useSite, e.Target)
}

// inferSequence folds an unfolded operator chain using precedence supplied
// by lookup, then infers the resulting binary tree (spec.md §4.6 "Sequence").
func (g *Generator) inferSequence(useSite scope.ID, e *ast.SequenceExpr) types.Type {
	folded := foldSequence(e.Operands, e.Operators, g.precedence)
	g.Sys.Folded[e] = folded
	return g.inferFolded(useSite, folded)
}

// precedence is a conservative default: every operator binds left-to-right
// at equal precedence absent an injected operator table.
func (g *Generator) precedence(op string) (int, bool) {
	if g.Precedence != nil {
		return g.Precedence(op)
	}
	return 0, false
}

func foldSequence(operands []ast.Expr, operators []string, prec func(string) (int, bool)) *typedprogram.FoldedNode {
	if len(operands) == 1 {
		return &typedprogram.FoldedNode{Left: operands[0]}
	}
	// Shunting-yard-style left fold: without a precedence table, fold
	// strictly left-to-right; with one, pop higher-or-equal precedence
	// operators before pushing.
	type frame struct {
		node *typedprogram.FoldedNode
		op   string
		rank int
	}
	var stack []frame
	push := func(n *typedprogram.FoldedNode) { stack = append(stack, frame{node: n}) }
	push(&typedprogram.FoldedNode{Left: operands[0]})
	for i, op := range operators {
		rank, _ := prec(op)
		for len(stack) >= 2 && stack[len(stack)-1].rank >= rank && stack[len(stack)-1].op != "" {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			left := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			merged := &typedprogram.FoldedNode{Operator: top.op, Left: left.node, Right: top.node}
			stack = append(stack, frame{node: merged, op: left.op, rank: left.rank})
		}
		stack = append(stack, frame{node: &typedprogram.FoldedNode{Left: operands[i+1]}, op: op, rank: rank})
	}
	for len(stack) >= 2 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		left := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		merged := &typedprogram.FoldedNode{Operator: top.op, Left: left.node, Right: top.node}
		stack = append(stack, frame{node: merged, op: left.op, rank: left.rank})
	}
	return stack[0].node
}

func (g *Generator) inferFolded(useSite scope.ID, n *typedprogram.FoldedNode) types.Type {
	if n.Right == nil {
		if e, ok := n.Left.(ast.Expr); ok {
			return g.Infer(useSite, e)
		}
		return g.inferFolded(useSite, n.Left.(*typedprogram.FoldedNode))
	}
	leftTy := g.inferSide(useSite, n.Left)
	rightTy := g.inferSide(useSite, n.Right)
	callee := g.resolveOperator(useSite, n.Operator)
	ret := types.NewVar("opRet")
	g.Sys.Add(FunctionCall(callee, []string{"", ""}, []types.Type{leftTy, rightTy}, ret))
	return ret
}

// resolveOperator finds the operator function(s) named name and returns a
// (possibly still-unresolved) callee type for it.
func (g *Generator) resolveOperator(useSite scope.ID, name string) types.Type {
	res := g.Sys.Resolver.ResolveOperator(useSite, name, ast.Pos{})
	if len(res.Candidates) == 0 {
		return types.ErrorType
	}
	if len(res.Candidates) == 1 {
		return res.Candidates[0].Type
	}
	rv := types.NewVar("opOverload")
	choices := make([]Choice, len(res.Candidates))
	for i, c := range res.Candidates {
		c := c
		choices[i] = Choice{Candidate: &c, Sub: []Constraint{Equality(rv, c.Type)}}
	}
	g.Sys.Add(Constraint{Kind: KDisjunction, Choices: choices})
	return rv
}

func (g *Generator) inferSide(useSite scope.ID, side interface{}) types.Type {
	if e, ok := side.(ast.Expr); ok {
		return g.Infer(useSite, e)
	}
	return g.inferFolded(useSite, side.(*typedprogram.FoldedNode))
}

func (g *Generator) inferTuple(useSite scope.ID, e *ast.TupleExpr) types.Type {
	elems := make([]types.LabeledType, len(e.Elements))
	for i, el := range e.Elements {
		elems[i] = types.LabeledType{Label: el.Label, Type: g.Infer(useSite, el.Value)}
	}
	return &types.Tuple{Elements: elems}
}

func (g *Generator) inferConditional(useSite scope.ID, e *ast.ConditionalExpr) types.Type {
	result := types.NewVar("cond")
	for _, br := range e.Branches {
		if br.Cond != nil {
			condTy := g.Infer(useSite, br.Cond)
			g.Sys.Add(Equality(condTy, types.Bool).At(br.Cond.Span()))
		}
		var branchTy types.Type
		if br.ExprBody != nil {
			branchTy = g.Infer(useSite, br.ExprBody)
		} else {
			branchTy = types.Void
		}
		g.Sys.Add(Equality(result, branchTy).At(e.Span()))
	}
	return result
}

// Diags exposes the underlying bag for callers that only hold a Generator.
func (g *Generator) Diags() *diagnostics.Bag { return g.Sys.Diags }
