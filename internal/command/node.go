package command

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/san-kum/leibniz/internal/vector"
)

// Node is an immutable, typed expression tree. The set of implementations
// is closed: Const, ConstVector, Ref, Unary and Binary.
type Node interface {
	Type() Type
	String() string
	node()
}

type Const struct {
	value float64
}

type ConstVector struct {
	value vector.Vector
}

type Ref struct {
	name string
	typ  Type
}

type Unary struct {
	op  UnaryOp
	arg Node
	typ Type
}

type Binary struct {
	op          BinaryOp
	left, right Node
	typ         Type
}

func (Const) node()       {}
func (ConstVector) node() {}
func (Ref) node()         {}
func (Unary) node()       {}
func (Binary) node()      {}

func (Const) Type() Type         { return ScalarType }
func (n ConstVector) Type() Type { return VectorType(n.value.Dim()) }
func (n Ref) Type() Type         { return n.typ }
func (n Unary) Type() Type       { return n.typ }
func (n Binary) Type() Type      { return n.typ }

func (n Const) Value() float64 { return n.value }

// Value returns a copy of the literal.
func (n ConstVector) Value() vector.Vector { return n.value.Clone() }

func (n Ref) Name() string { return n.name }

func (n Unary) Op() UnaryOp { return n.op }
func (n Unary) Arg() Node   { return n.arg }

func (n Binary) Op() BinaryOp { return n.op }
func (n Binary) Left() Node   { return n.left }
func (n Binary) Right() Node  { return n.right }

func (n Const) String() string       { return strconv.FormatFloat(n.value, 'g', -1, 64) }
func (n ConstVector) String() string { return n.value.String() }
func (n Ref) String() string         { return n.name }

func (n Unary) String() string {
	return "(" + n.op.String() + " " + n.arg.String() + ")"
}

func (n Binary) String() string {
	if n.op == OpCat {
		return "(" + n.left.String() + ", " + n.right.String() + ")"
	}
	return "(" + n.left.String() + " " + n.op.Symbol() + " " + n.right.String() + ")"
}

func NewConst(x float64) Node {
	return Const{value: x}
}

// NewConstVector copies v into a literal node. v must not be empty.
func NewConstVector(v vector.Vector) (Node, error) {
	if v.Dim() == 0 {
		return nil, &TypeError{Op: "vector", Reason: "vector literal must have at least one component"}
	}
	return ConstVector{value: v.Clone()}, nil
}

func NewRef(name string, typ Type) (Node, error) {
	if name == "" {
		return nil, &TypeError{Op: "ref", Reason: "empty variable name"}
	}
	if !typ.valid() {
		return nil, typeErrorf("ref", []Type{typ}, "invalid type for %q", name)
	}
	return Ref{name: name, typ: typ}, nil
}

func NewUnary(op UnaryOp, arg Node) (Node, error) {
	if arg == nil {
		return nil, &TypeError{Op: op.String(), Reason: "missing operand"}
	}
	typ, err := op.resultType(arg.Type())
	if err != nil {
		return nil, err
	}
	return Unary{op: op, arg: arg, typ: typ}, nil
}

func NewBinary(op BinaryOp, left, right Node) (Node, error) {
	if left == nil || right == nil {
		return nil, &TypeError{Op: op.String(), Reason: "missing operand"}
	}
	typ, err := op.resultType(left.Type(), right.Type())
	if err != nil {
		return nil, err
	}
	return Binary{op: op, left: left, right: right, typ: typ}, nil
}

// Refs returns the sorted, distinct variable names referenced by n.
func Refs(n Node) []string {
	seen := make(map[string]struct{})
	collectRefs(n, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefTypes returns the type each distinct variable in n is referenced with.
// A name referenced with two different types is reported as an error.
func RefTypes(n Node) (map[string]Type, error) {
	types := make(map[string]Type)
	var walk func(Node) error
	walk = func(n Node) error {
		switch n := n.(type) {
		case Ref:
			if prev, ok := types[n.name]; ok && prev != n.typ {
				return fmt.Errorf("%w: %q referenced as %s and %s", ErrTypeMismatch, n.name, prev, n.typ)
			}
			types[n.name] = n.typ
		case Unary:
			return walk(n.arg)
		case Binary:
			if err := walk(n.left); err != nil {
				return err
			}
			return walk(n.right)
		}
		return nil
	}
	if err := walk(n); err != nil {
		return nil, err
	}
	return types, nil
}

func collectRefs(n Node, seen map[string]struct{}) {
	switch n := n.(type) {
	case Ref:
		seen[n.name] = struct{}{}
	case Unary:
		collectRefs(n.arg, seen)
	case Binary:
		collectRefs(n.left, seen)
		collectRefs(n.right, seen)
	}
}
