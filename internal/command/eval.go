package command

import (
	"fmt"
	"math"
)

// Eval evaluates n against r and returns its value. A nil r resolves no
// names. Vector results are
// always freshly allocated, so callers may modify them.
//
// Operands are evaluated left to right; the only error sources are
// unresolved or mistyped references.
func Eval(n Node, r Resolver) (Value, error) {
	switch n := n.(type) {
	case Const:
		return ScalarValue(n.value), nil

	case ConstVector:
		return VectorValue(n.value.Clone()), nil

	case Ref:
		if r == nil {
			return Value{}, fmt.Errorf("%w: %q", ErrUnboundVariable, n.name)
		}
		v, err := r.Lookup(n.name)
		if err != nil {
			return Value{}, err
		}
		if v.Type() != n.typ {
			return Value{}, fmt.Errorf("%w: %q is %s, want %s", ErrTypeMismatch, n.name, v.Type(), n.typ)
		}
		return v.Clone(), nil

	case Unary:
		arg, err := Eval(n.arg, r)
		if err != nil {
			return Value{}, err
		}
		return applyUnary(n.op, arg), nil

	case Binary:
		left, err := Eval(n.left, r)
		if err != nil {
			return Value{}, err
		}
		right, err := Eval(n.right, r)
		if err != nil {
			return Value{}, err
		}
		return applyBinary(n.op, left, right), nil
	}
	return Value{}, fmt.Errorf("command: unsupported node %T", n)
}

// applyUnary assumes arg has the type accepted by op.
func applyUnary(op UnaryOp, arg Value) Value {
	switch op {
	case OpNeg:
		if arg.IsScalar() {
			return ScalarValue(-arg.scalar)
		}
		arg.vec.Scale(-1)
		return arg
	case OpAbs:
		if arg.IsScalar() {
			return ScalarValue(math.Abs(arg.scalar))
		}
		return ScalarValue(arg.vec.Norm())
	}
	return ScalarValue(unaryFuncs[op](arg.scalar))
}

// applyBinary assumes the operand types were accepted by op.resultType.
// Vector operands are owned by the caller and may be reused for the result.
func applyBinary(op BinaryOp, l, r Value) Value {
	switch op {
	case OpAdd:
		if l.IsScalar() {
			return ScalarValue(l.scalar + r.scalar)
		}
		return VectorValue(l.vec.Add(r.vec))
	case OpSub:
		if l.IsScalar() {
			return ScalarValue(l.scalar - r.scalar)
		}
		return VectorValue(l.vec.Sub(r.vec))
	case OpMul:
		switch {
		case l.IsScalar() && r.IsScalar():
			return ScalarValue(l.scalar * r.scalar)
		case l.IsScalar():
			r.vec.Scale(l.scalar)
			return r
		case r.IsScalar():
			l.vec.Scale(r.scalar)
			return l
		}
		return ScalarValue(l.vec.Dot(r.vec))
	case OpDiv:
		if l.IsScalar() {
			return ScalarValue(l.scalar / r.scalar)
		}
		for i := range l.vec {
			l.vec[i] /= r.scalar
		}
		return l
	case OpPow:
		return ScalarValue(math.Pow(l.scalar, r.scalar))
	case OpCat:
		return VectorValue(append(l.Flatten(), r.Flatten()...))
	}
	panic(fmt.Sprintf("command: unknown binary operator %d", op))
}
