// Package types implements the type algebra of spec.md §3/§4.1: the closed
// term variants, the flag lattice, canonicalization, structural transform,
// specialization, opening, and scope-relative instantiation.
//
// Grounded on the teacher's internal/types/types.go (closed Type interface
// with String/Equals/Substitute) and types_v2.go (Kind-carrying variants),
// generalized from an ML type algebra to this spec's nominal/trait algebra.
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nominalang/check/internal/ast"
)

// Flags is the per-term lattice of spec.md §3.
type Flags struct {
	HasError                bool
	HasVariable              bool
	HasSkolem                bool
	HasGenericTypeParameter  bool
	HasGenericValueParameter bool
	IsCanonical              bool
}

func (f Flags) Or(o Flags) Flags {
	return Flags{
		HasError:                f.HasError || o.HasError,
		HasVariable:              f.HasVariable || o.HasVariable,
		HasSkolem:                f.HasSkolem || o.HasSkolem,
		HasGenericTypeParameter:  f.HasGenericTypeParameter || o.HasGenericTypeParameter,
		HasGenericValueParameter: f.HasGenericValueParameter || o.HasGenericValueParameter,
	}
}

// Type is the closed algebra of type terms.
type Type interface {
	String() string
	Flags() Flags
	// Children returns the immediate substructure, for Transform/fold use.
	Children() []Type
	// WithChildren rebuilds a node of the same kind with replacement children,
	// in the same order Children() produced them.
	WithChildren([]Type) Type
}

var nextVarID int

// NewVar returns a fresh type variable with a unique name.
func NewVar(hint string) *TypeVariable {
	nextVarID++
	if hint == "" {
		hint = "t"
	}
	return &TypeVariable{ID: nextVarID, Hint: hint}
}

// TypeVariable is a fresh inference hole, identity-based.
type TypeVariable struct {
	ID   int
	Hint string
}

func (t *TypeVariable) String() string       { return fmt.Sprintf("$%s%d", t.Hint, t.ID) }
func (t *TypeVariable) Flags() Flags         { return Flags{HasVariable: true} }
func (t *TypeVariable) Children() []Type     { return nil }
func (t *TypeVariable) WithChildren([]Type) Type { return t }

// Skolem is a rigid, quantified placeholder bound at instantiation time.
type Skolem struct {
	ID      int
	Origin  *ast.GenericParameterDecl
}

func (t *Skolem) String() string   { return "@" + t.Origin.Name }
func (t *Skolem) Flags() Flags     { return Flags{HasSkolem: true} }
func (t *Skolem) Children() []Type { return nil }
func (t *Skolem) WithChildren([]Type) Type { return t }

// GenericTypeParameterType references the declaration of a generic type parameter.
type GenericTypeParameterType struct {
	Decl *ast.GenericParameterDecl
}

func (t *GenericTypeParameterType) String() string { return t.Decl.Name }
func (t *GenericTypeParameterType) Flags() Flags   { return Flags{HasGenericTypeParameter: true} }
func (t *GenericTypeParameterType) Children() []Type { return nil }
func (t *GenericTypeParameterType) WithChildren([]Type) Type { return t }

// AssociatedTypeType is decl + domain (the type the associated type projects from).
type AssociatedTypeType struct {
	Decl   *ast.AssociatedTypeDecl
	Domain Type
}

func (t *AssociatedTypeType) String() string {
	return fmt.Sprintf("%s.%s", t.Domain, t.Decl.Name)
}
func (t *AssociatedTypeType) Flags() Flags { return t.Domain.Flags() }
func (t *AssociatedTypeType) Children() []Type { return []Type{t.Domain} }
func (t *AssociatedTypeType) WithChildren(c []Type) Type {
	return &AssociatedTypeType{Decl: t.Decl, Domain: c[0]}
}

// GenericValueParameterType/AssociatedValueType stand in for value-level generics.
// Only symbolic placeholders are needed (spec.md Non-goals: no evaluation).
type GenericValueParameterType struct {
	Decl *ast.GenericParameterDecl
}

func (t *GenericValueParameterType) String() string       { return "#" + t.Decl.Name }
func (t *GenericValueParameterType) Flags() Flags         { return Flags{HasGenericValueParameter: true} }
func (t *GenericValueParameterType) Children() []Type     { return nil }
func (t *GenericValueParameterType) WithChildren([]Type) Type { return t }

type AssociatedValueType struct {
	Decl   *ast.AssociatedValueDecl
	Domain Type
}

func (t *AssociatedValueType) String() string { return fmt.Sprintf("%s.#%s", t.Domain, t.Decl.Name) }
func (t *AssociatedValueType) Flags() Flags   { return t.Domain.Flags() }
func (t *AssociatedValueType) Children() []Type { return []Type{t.Domain} }
func (t *AssociatedValueType) WithChildren(c []Type) Type {
	return &AssociatedValueType{Decl: t.Decl, Domain: c[0]}
}

// ProductType is a nominal product type, referencing its declaration.
type ProductType struct {
	Decl *ast.ProductDecl
}

func (t *ProductType) String() string       { return t.Decl.Name }
func (t *ProductType) Flags() Flags         { return Flags{} }
func (t *ProductType) Children() []Type     { return nil }
func (t *ProductType) WithChildren([]Type) Type { return t }

// TraitType is a nominal trait type.
type TraitType struct {
	Decl *ast.TraitDecl
}

func (t *TraitType) String() string       { return t.Decl.Name }
func (t *TraitType) Flags() Flags         { return Flags{} }
func (t *TraitType) Children() []Type     { return nil }
func (t *TraitType) WithChildren([]Type) Type { return t }

// TypeAliasType is nominal; Aliased is what it unfolds to.
type TypeAliasType struct {
	Decl    *ast.AliasDecl
	Aliased Type
}

func (t *TypeAliasType) String() string       { return t.Decl.Name }
func (t *TypeAliasType) Flags() Flags         { return Flags{} }
func (t *TypeAliasType) Children() []Type     { return []Type{t.Aliased} }
func (t *TypeAliasType) WithChildren(c []Type) Type {
	return &TypeAliasType{Decl: t.Decl, Aliased: c[0]}
}

// Arg is a bound-generic argument: either a Type or a symbolic value placeholder.
type Arg struct {
	Type  Type // nil if this is a value argument
	Value Type // GenericValueParameterType/AssociatedValueType/Skolem/TypeVariable used as a placeholder
}

func (a Arg) String() string {
	if a.Type != nil {
		return a.Type.String()
	}
	if a.Value != nil {
		return a.Value.String()
	}
	return "<?>"
}

// BoundGeneric is a nominal base type applied to ordered arguments.
type BoundGeneric struct {
	Base Type // ProductType, TraitType, or TypeAliasType
	Args []Arg
}

func (t *BoundGeneric) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s<%s>", t.Base, strings.Join(parts, ", "))
}
func (t *BoundGeneric) Flags() Flags {
	f := t.Base.Flags()
	for _, a := range t.Args {
		if a.Type != nil {
			f = f.Or(a.Type.Flags())
		}
		if a.Value != nil {
			f = f.Or(a.Value.Flags())
		}
	}
	return f
}
func (t *BoundGeneric) Children() []Type {
	out := []Type{t.Base}
	for _, a := range t.Args {
		if a.Type != nil {
			out = append(out, a.Type)
		} else if a.Value != nil {
			out = append(out, a.Value)
		}
	}
	return out
}
func (t *BoundGeneric) WithChildren(c []Type) Type {
	args := make([]Arg, len(t.Args))
	rest := c[1:]
	for i, a := range t.Args {
		if a.Type != nil {
			args[i] = Arg{Type: rest[i]}
		} else {
			args[i] = Arg{Value: rest[i]}
		}
	}
	return &BoundGeneric{Base: c[0], Args: args}
}

// LabeledType is one element of a Tuple, Lambda input, or a named type position.
type LabeledType struct {
	Label string
	Type  Type
}

// Lambda is a function type: receiver effect + environment + labeled inputs + output.
type Lambda struct {
	ReceiverEffect ast.AccessEffect
	HasReceiver    bool
	Environment    Type // void TCon when capture-less
	Inputs         []LabeledType
	Output         Type
}

func (t *Lambda) String() string {
	parts := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		if in.Label != "" {
			parts[i] = in.Label + ": " + in.Type.String()
		} else {
			parts[i] = in.Type.String()
		}
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Output)
}
func (t *Lambda) Flags() Flags {
	f := t.Output.Flags()
	if t.Environment != nil {
		f = f.Or(t.Environment.Flags())
	}
	for _, in := range t.Inputs {
		f = f.Or(in.Type.Flags())
	}
	return f
}
func (t *Lambda) Children() []Type {
	out := []Type{}
	if t.Environment != nil {
		out = append(out, t.Environment)
	}
	for _, in := range t.Inputs {
		out = append(out, in.Type)
	}
	out = append(out, t.Output)
	return out
}
func (t *Lambda) WithChildren(c []Type) Type {
	n := &Lambda{ReceiverEffect: t.ReceiverEffect, HasReceiver: t.HasReceiver}
	i := 0
	if t.Environment != nil {
		n.Environment = c[i]
		i++
	}
	n.Inputs = make([]LabeledType, len(t.Inputs))
	for j, in := range t.Inputs {
		n.Inputs[j] = LabeledType{Label: in.Label, Type: c[i]}
		i++
	}
	n.Output = c[i]
	return n
}

// Capability is a set of access effects, e.g. {let,inout,sink,set}.
type Capability map[ast.AccessEffect]bool

func NewCapability(effs ...ast.AccessEffect) Capability {
	c := Capability{}
	for _, e := range effs {
		c[e] = true
	}
	return c
}

func (c Capability) String() string {
	order := []ast.AccessEffect{ast.Let, ast.Inout, ast.Sink, ast.Set, ast.Yielded}
	var parts []string
	for _, e := range order {
		if c[e] {
			parts = append(parts, e.String())
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// MethodType is a method bundle: capability set + receiver + inputs + output.
type MethodType struct {
	Capabilities Capability
	Receiver     Type
	Inputs       []LabeledType
	Output       Type
}

func (t *MethodType) String() string {
	parts := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		parts[i] = in.Type.String()
	}
	return fmt.Sprintf("%s method(%s) -> %s", t.Capabilities, strings.Join(parts, ", "), t.Output)
}
func (t *MethodType) Flags() Flags {
	f := t.Output.Flags().Or(t.Receiver.Flags())
	for _, in := range t.Inputs {
		f = f.Or(in.Type.Flags())
	}
	return f
}
func (t *MethodType) Children() []Type {
	out := []Type{t.Receiver}
	for _, in := range t.Inputs {
		out = append(out, in.Type)
	}
	return append(out, t.Output)
}
func (t *MethodType) WithChildren(c []Type) Type {
	n := &MethodType{Capabilities: t.Capabilities, Receiver: c[0]}
	n.Inputs = make([]LabeledType, len(t.Inputs))
	for i := range t.Inputs {
		n.Inputs[i] = LabeledType{Label: t.Inputs[i].Label, Type: c[1+i]}
	}
	n.Output = c[len(c)-1]
	return n
}

// SubscriptType mirrors MethodType with an is-property flag and an environment.
type SubscriptType struct {
	IsProperty   bool
	Capabilities Capability
	Environment  Type
	Inputs       []LabeledType
	Output       Type
}

func (t *SubscriptType) String() string {
	parts := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		parts[i] = in.Type.String()
	}
	return fmt.Sprintf("%s subscript[%s] -> %s", t.Capabilities, strings.Join(parts, ", "), t.Output)
}
func (t *SubscriptType) Flags() Flags {
	f := t.Output.Flags()
	if t.Environment != nil {
		f = f.Or(t.Environment.Flags())
	}
	for _, in := range t.Inputs {
		f = f.Or(in.Type.Flags())
	}
	return f
}
func (t *SubscriptType) Children() []Type {
	var out []Type
	if t.Environment != nil {
		out = append(out, t.Environment)
	}
	for _, in := range t.Inputs {
		out = append(out, in.Type)
	}
	return append(out, t.Output)
}
func (t *SubscriptType) WithChildren(c []Type) Type {
	n := &SubscriptType{IsProperty: t.IsProperty, Capabilities: t.Capabilities}
	i := 0
	if t.Environment != nil {
		n.Environment = c[i]
		i++
	}
	n.Inputs = make([]LabeledType, len(t.Inputs))
	for j := range t.Inputs {
		n.Inputs[j] = LabeledType{Label: t.Inputs[j].Label, Type: c[i]}
		i++
	}
	n.Output = c[i]
	return n
}

// Parameter is an access-effect-qualified bare type, as seen at a call site.
type Parameter struct {
	Effect ast.AccessEffect
	Bare   Type
}

func (t *Parameter) String() string { return t.Effect.String() + " " + t.Bare.String() }
func (t *Parameter) Flags() Flags   { return t.Bare.Flags() }
func (t *Parameter) Children() []Type { return []Type{t.Bare} }
func (t *Parameter) WithChildren(c []Type) Type { return &Parameter{Effect: t.Effect, Bare: c[0]} }

// Remote is an access-effect-qualified projected bare type (e.g. a captured `self`).
type Remote struct {
	Effect ast.AccessEffect
	Bare   Type
}

func (t *Remote) String() string { return "&" + t.Effect.String() + " " + t.Bare.String() }
func (t *Remote) Flags() Flags   { return t.Bare.Flags() }
func (t *Remote) Children() []Type { return []Type{t.Bare} }
func (t *Remote) WithChildren(c []Type) Type { return &Remote{Effect: t.Effect, Bare: c[0]} }

// Tuple is an ordered set of labeled elements.
type Tuple struct {
	Elements []LabeledType
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		if e.Label != "" {
			parts[i] = e.Label + ": " + e.Type.String()
		} else {
			parts[i] = e.Type.String()
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *Tuple) Flags() Flags {
	f := Flags{}
	for _, e := range t.Elements {
		f = f.Or(e.Type.Flags())
	}
	return f
}
func (t *Tuple) Children() []Type {
	out := make([]Type, len(t.Elements))
	for i, e := range t.Elements {
		out[i] = e.Type
	}
	return out
}
func (t *Tuple) WithChildren(c []Type) Type {
	out := make([]LabeledType, len(t.Elements))
	for i, e := range t.Elements {
		out[i] = LabeledType{Label: e.Label, Type: c[i]}
	}
	return &Tuple{Elements: out}
}

// Sum is an unordered (after canonicalization: identity-sorted) set of >=2 elements.
type Sum struct {
	Elements []Type
}

func (t *Sum) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "Sum<" + strings.Join(parts, ", ") + ">"
}
func (t *Sum) Flags() Flags {
	f := Flags{}
	for _, e := range t.Elements {
		f = f.Or(e.Flags())
	}
	return f
}
func (t *Sum) Children() []Type { return append([]Type{}, t.Elements...) }
func (t *Sum) WithChildren(c []Type) Type { return &Sum{Elements: c} }

// ConformanceLens views Subject through Witness (a trait it conforms to).
type ConformanceLens struct {
	Subject Type
	Witness *TraitType
}

func (t *ConformanceLens) String() string { return fmt.Sprintf("%s as %s", t.Subject, t.Witness) }
func (t *ConformanceLens) Flags() Flags   { return t.Subject.Flags() }
func (t *ConformanceLens) Children() []Type { return []Type{t.Subject} }
func (t *ConformanceLens) WithChildren(c []Type) Type {
	return &ConformanceLens{Subject: c[0], Witness: t.Witness}
}

// Metatype is "the type of a type".
type Metatype struct {
	Instance Type
}

func (t *Metatype) String() string       { return t.Instance.String() + ".Type" }
func (t *Metatype) Flags() Flags         { return t.Instance.Flags() }
func (t *Metatype) Children() []Type     { return []Type{t.Instance} }
func (t *Metatype) WithChildren(c []Type) Type { return &Metatype{Instance: c[0]} }

// Builtin covers module/pointer/numeric-width builtins.
type Builtin struct {
	Name string
}

func (t *Builtin) String() string       { return "Builtin." + t.Name }
func (t *Builtin) Flags() Flags         { return Flags{} }
func (t *Builtin) Children() []Type     { return nil }
func (t *Builtin) WithChildren([]Type) Type { return t }

var BuiltinModule = &Builtin{Name: "module"}
var BuiltinPointer = &Builtin{Name: "pointer"}

// Error is the bottom marker: propagates without further diagnosing.
type Error struct{}

func (t *Error) String() string       { return "<error>" }
func (t *Error) Flags() Flags         { return Flags{HasError: true} }
func (t *Error) Children() []Type     { return nil }
func (t *Error) WithChildren([]Type) Type { return t }

var ErrorType = &Error{}

// Core builtin value types, analogous to the teacher's TCon constants.
var (
	Void   Type = &Builtin{Name: "Void"}
	Bool   Type = &Builtin{Name: "Bool"}
	Int    Type = &Builtin{Name: "Int"}
	Float  Type = &Builtin{Name: "Float"}
	String Type = &Builtin{Name: "String"}
	Never  Type = &Builtin{Name: "Never"}
	Any    Type = &Builtin{Name: "Any"}
)

// SortedNames is a small determinism helper used across canonicalization and
// diagnostics when iterating maps keyed by name.
func SortedNames(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
