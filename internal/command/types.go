package command

import (
	"fmt"
	"strconv"

	"github.com/san-kum/leibniz/internal/vector"
)

type Kind uint8

const (
	KindScalar Kind = iota
	KindVector
)

// Type describes the shape of a value: a scalar, or a vector of a fixed
// positive dimension.
type Type struct {
	Kind Kind
	Dim  int
}

var ScalarType = Type{Kind: KindScalar}

func VectorType(n int) Type {
	return Type{Kind: KindVector, Dim: n}
}

func (t Type) IsScalar() bool { return t.Kind == KindScalar }
func (t Type) IsVector() bool { return t.Kind == KindVector }

// Dimension returns the vector dimension, or ErrNotVector for scalars.
func (t Type) Dimension() (int, error) {
	if t.Kind != KindVector {
		return 0, ErrNotVector
	}
	return t.Dim, nil
}

// Compatible reports whether values of t and other can be combined
// element-wise. Vectors are compatible only with equal dimensions.
func (t Type) Compatible(other Type) bool {
	return t == other
}

func (t Type) valid() bool {
	switch t.Kind {
	case KindScalar:
		return t.Dim == 0
	case KindVector:
		return t.Dim > 0
	}
	return false
}

func (t Type) String() string {
	if t.Kind == KindVector {
		return "vector(" + strconv.Itoa(t.Dim) + ")"
	}
	return "scalar"
}

// Value is a scalar or a vector. The zero Value is the scalar 0.
type Value struct {
	typ    Type
	scalar float64
	vec    vector.Vector
}

func ScalarValue(x float64) Value {
	return Value{typ: ScalarType, scalar: x}
}

// VectorValue wraps v without copying it.
func VectorValue(v vector.Vector) Value {
	return Value{typ: VectorType(v.Dim()), vec: v}
}

func (v Value) Type() Type { return v.typ }

func (v Value) IsScalar() bool { return v.typ.IsScalar() }

// Scalar returns the scalar payload. It is 0 for vectors.
func (v Value) Scalar() float64 { return v.scalar }

// Vector returns the vector payload without copying. It is nil for scalars.
func (v Value) Vector() vector.Vector { return v.vec }

func (v Value) Dimension() (int, error) { return v.typ.Dimension() }

// Clone returns a Value whose vector payload is independent of v.
func (v Value) Clone() Value {
	if v.vec != nil {
		v.vec = v.vec.Clone()
	}
	return v
}

// Flatten returns the components of v: one for a scalar, Dim for a vector.
func (v Value) Flatten() []float64 {
	if v.IsScalar() {
		return []float64{v.scalar}
	}
	return v.vec.Clone()
}

func (v Value) String() string {
	if v.IsScalar() {
		return strconv.FormatFloat(v.scalar, 'g', -1, 64)
	}
	return v.vec.String()
}

// Resolver supplies variable values during evaluation.
type Resolver interface {
	Lookup(name string) (Value, error)
}

// Bindings is a plain variable map.
type Bindings map[string]Value

func (b Bindings) Lookup(name string) (Value, error) {
	v, ok := b[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnboundVariable, name)
	}
	return v, nil
}

// Clone returns a deep copy of b.
func (b Bindings) Clone() Bindings {
	c := make(Bindings, len(b))
	for k, v := range b {
		c[k] = v.Clone()
	}
	return c
}
