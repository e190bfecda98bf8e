// Package vector provides the fixed-length real vector used by the
// expression engine.
package vector

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Vector []float64

// New returns a zero vector of dimension n.
func New(n int) Vector {
	return make(Vector, n)
}

func Of(xs ...float64) Vector {
	v := make(Vector, len(xs))
	copy(v, xs)
	return v
}

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) Dim() int { return len(v) }

// Scale multiplies every component by factor in place.
func (v Vector) Scale(factor float64) {
	for i := range v {
		v[i] *= factor
	}
}

// Add returns v+other. Both operands must have the same dimension; Add,
// Sub and Dot panic otherwise.
func (v Vector) Add(other Vector) Vector {
	mustMatch("Add", v, other)
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] + other[i]
	}
	return result
}

func (v Vector) Sub(other Vector) Vector {
	mustMatch("Sub", v, other)
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}

func (v Vector) Neg() Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = -v[i]
	}
	return result
}

func (v Vector) Dot(other Vector) float64 {
	mustMatch("Dot", v, other)
	sum := 0.0
	for i := range v {
		sum += v[i] * other[i]
	}
	return sum
}

func mustMatch(op string, a, b Vector) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector: %s of dimensions %d and %d", op, len(a), len(b)))
	}
}

func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Resize returns a copy of v with n components, truncated or zero padded.
func (v Vector) Resize(n int) Vector {
	result := make(Vector, n)
	copy(result, v)
	return result
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Equal reports whether v and other have the same dimension and every
// component differs by at most tol.
func (v Vector) Equal(other Vector, tol float64) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if math.Abs(v[i]-other[i]) > tol {
			return false
		}
	}
	return true
}

func (v Vector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
