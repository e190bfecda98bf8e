package command

import (
	"fmt"
	"math"
)

type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpAbs
	OpSqrt
	OpExp
	OpLog
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpSinh
	OpCosh
	OpTanh
	numUnaryOps
)

var unaryNames = [numUnaryOps]string{
	OpNeg:  "neg",
	OpAbs:  "abs",
	OpSqrt: "sqrt",
	OpExp:  "exp",
	OpLog:  "log",
	OpSin:  "sin",
	OpCos:  "cos",
	OpTan:  "tan",
	OpAsin: "asin",
	OpAcos: "acos",
	OpAtan: "atan",
	OpSinh: "sinh",
	OpCosh: "cosh",
	OpTanh: "tanh",
}

// scalar transforms; neg and abs are handled separately since they also
// accept vectors.
var unaryFuncs = [numUnaryOps]func(float64) float64{
	OpSqrt: math.Sqrt,
	OpExp:  math.Exp,
	OpLog:  math.Log,
	OpSin:  math.Sin,
	OpCos:  math.Cos,
	OpTan:  math.Tan,
	OpAsin: math.Asin,
	OpAcos: math.Acos,
	OpAtan: math.Atan,
	OpSinh: math.Sinh,
	OpCosh: math.Cosh,
	OpTanh: math.Tanh,
}

func (op UnaryOp) String() string {
	if op < numUnaryOps {
		return unaryNames[op]
	}
	return fmt.Sprintf("unary(%d)", uint8(op))
}

// ParseUnaryOp looks an operator up by its name, e.g. "acos".
func ParseUnaryOp(name string) (UnaryOp, bool) {
	for op, n := range unaryNames {
		if n == name {
			return UnaryOp(op), true
		}
	}
	return 0, false
}

func (op UnaryOp) resultType(arg Type) (Type, error) {
	switch op {
	case OpNeg:
		return arg, nil
	case OpAbs:
		return ScalarType, nil
	}
	if op >= numUnaryOps {
		return Type{}, &TypeError{Op: op.String(), Reason: "unknown operator"}
	}
	if !arg.IsScalar() {
		return Type{}, typeErrorf(op.String(), []Type{arg}, "operand must be a scalar")
	}
	return ScalarType, nil
}

type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	// OpCat joins scalars and vectors into a longer vector.
	OpCat
	numBinaryOps
)

var binaryNames = [numBinaryOps]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpPow: "pow",
	OpCat: "cat",
}

var binarySymbols = [numBinaryOps]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpPow: "^",
	OpCat: ",",
}

func (op BinaryOp) String() string {
	if op < numBinaryOps {
		return binaryNames[op]
	}
	return fmt.Sprintf("binary(%d)", uint8(op))
}

func (op BinaryOp) Symbol() string {
	if op < numBinaryOps {
		return binarySymbols[op]
	}
	return "?"
}

func ParseBinaryOp(name string) (BinaryOp, bool) {
	for op, n := range binaryNames {
		if n == name {
			return BinaryOp(op), true
		}
	}
	return 0, false
}

func (op BinaryOp) resultType(l, r Type) (Type, error) {
	operands := []Type{l, r}
	switch op {
	case OpAdd, OpSub:
		if !l.Compatible(r) {
			if l.IsVector() && r.IsVector() {
				return Type{}, typeErrorf(op.String(), operands, "vector dimensions differ (%d and %d)", l.Dim, r.Dim)
			}
			return Type{}, typeErrorf(op.String(), operands, "cannot combine scalar and vector")
		}
		return l, nil
	case OpMul:
		switch {
		case l.IsScalar():
			return r, nil
		case r.IsScalar():
			return l, nil
		case l.Dim != r.Dim:
			return Type{}, typeErrorf(op.String(), operands, "vector dimensions differ (%d and %d)", l.Dim, r.Dim)
		}
		return ScalarType, nil
	case OpDiv:
		if !r.IsScalar() {
			return Type{}, typeErrorf(op.String(), operands, "divisor must be a scalar")
		}
		return l, nil
	case OpPow:
		if !l.IsScalar() || !r.IsScalar() {
			return Type{}, typeErrorf(op.String(), operands, "operands must be scalars")
		}
		return ScalarType, nil
	case OpCat:
		switch {
		case l.IsScalar() && r.IsScalar():
			return VectorType(2), nil
		case l.IsScalar():
			return VectorType(r.Dim + 1), nil
		case r.IsScalar():
			return VectorType(l.Dim + 1), nil
		}
		return Type{}, typeErrorf(op.String(), operands, "cannot join two vectors")
	}
	return Type{}, &TypeError{Op: op.String(), Operands: operands, Reason: "unknown operator"}
}
