package command

import (
	"errors"
	"fmt"
	"testing"

	"github.com/san-kum/leibniz/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRef(t *testing.T, name string, typ Type) Node {
	t.Helper()
	n, err := NewRef(name, typ)
	require.NoError(t, err)
	return n
}

func mustVec(t *testing.T, xs ...float64) Node {
	t.Helper()
	n, err := NewConstVector(vector.Of(xs...))
	require.NoError(t, err)
	return n
}

func TestNewBinary_ScalarTimesVectorHasVectorType(t *testing.T) {
	for n := 1; n <= 8; n++ {
		t.Run(fmt.Sprintf("dim=%d", n), func(t *testing.T) {
			node, err := NewBinary(OpMul, NewConst(2), mustRef(t, "v", VectorType(n)))
			require.NoError(t, err)
			assert.Equal(t, VectorType(n), node.Type())

			dim, err := node.Type().Dimension()
			require.NoError(t, err)
			assert.Equal(t, n, dim)
		})
	}
}

func TestNewBinary_MismatchedVectorDimensions(t *testing.T) {
	for _, op := range []BinaryOp{OpAdd, OpSub, OpMul} {
		for a := 1; a <= 4; a++ {
			for b := 1; b <= 4; b++ {
				if a == b {
					continue
				}
				t.Run(fmt.Sprintf("%s/%d-%d", op, a, b), func(t *testing.T) {
					_, err := NewBinary(op, mustRef(t, "a", VectorType(a)), mustRef(t, "b", VectorType(b)))
					var typeErr *TypeError
					require.ErrorAs(t, err, &typeErr)
					assert.Equal(t, op.String(), typeErr.Op)
					assert.Equal(t, []Type{VectorType(a), VectorType(b)}, typeErr.Operands)
				})
			}
		}
	}
}

func TestNewBinary_ResultTypes(t *testing.T) {
	s := NewConst(1)
	v3 := mustVec(t, 1, 2, 3)

	tests := []struct {
		name        string
		op          BinaryOp
		left, right Node
		want        Type
		wantErr     bool
	}{
		{"add scalars", OpAdd, s, s, ScalarType, false},
		{"add vectors", OpAdd, v3, v3, VectorType(3), false},
		{"add scalar vector", OpAdd, s, v3, Type{}, true},
		{"sub vector scalar", OpSub, v3, s, Type{}, true},
		{"mul vector scalar", OpMul, v3, s, VectorType(3), false},
		{"mul dot", OpMul, v3, v3, ScalarType, false},
		{"div vector scalar", OpDiv, v3, s, VectorType(3), false},
		{"div scalar vector", OpDiv, s, v3, Type{}, true},
		{"pow scalars", OpPow, s, s, ScalarType, false},
		{"pow vector", OpPow, v3, s, Type{}, true},
		{"cat scalars", OpCat, s, s, VectorType(2), false},
		{"cat scalar vector", OpCat, s, v3, VectorType(4), false},
		{"cat vector scalar", OpCat, v3, s, VectorType(4), false},
		{"cat vectors", OpCat, v3, v3, Type{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewBinary(tt.op, tt.left, tt.right)
			if tt.wantErr {
				var typeErr *TypeError
				require.ErrorAs(t, err, &typeErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Type())
		})
	}
}

func TestNewUnary_Types(t *testing.T) {
	v2 := mustVec(t, 3, 4)

	n, err := NewUnary(OpNeg, v2)
	require.NoError(t, err)
	assert.Equal(t, VectorType(2), n.Type())

	n, err = NewUnary(OpAbs, v2)
	require.NoError(t, err)
	assert.Equal(t, ScalarType, n.Type())

	_, err = NewUnary(OpAcos, v2)
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Contains(t, typeErr.Error(), "acos")
	assert.Contains(t, typeErr.Error(), "vector(2)")
}

func TestConstructors_RejectInvalidInput(t *testing.T) {
	var typeErr *TypeError

	_, err := NewConstVector(vector.Vector{})
	require.ErrorAs(t, err, &typeErr)

	_, err = NewRef("", ScalarType)
	require.ErrorAs(t, err, &typeErr)

	_, err = NewRef("x", Type{Kind: KindVector})
	require.ErrorAs(t, err, &typeErr)

	_, err = NewBinary(OpAdd, nil, NewConst(1))
	require.ErrorAs(t, err, &typeErr)

	_, err = NewUnary(OpSin, nil)
	require.ErrorAs(t, err, &typeErr)
}

func TestConstVector_CopiesLiteral(t *testing.T) {
	src := vector.Of(1, 2, 3)
	n, err := NewConstVector(src)
	require.NoError(t, err)
	src[0] = 99
	assert.Equal(t, vector.Of(1, 2, 3), n.(ConstVector).Value())
}

func TestType_Dimension(t *testing.T) {
	_, err := ScalarType.Dimension()
	assert.True(t, errors.Is(err, ErrNotVector))

	_, err = ScalarValue(1).Dimension()
	assert.ErrorIs(t, err, ErrNotVector)

	dim, err := VectorValue(vector.Of(1, 2)).Dimension()
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
}

func TestNode_String(t *testing.T) {
	acos, err := NewUnary(OpAcos, NewConst(0.5))
	require.NoError(t, err)
	assert.Equal(t, "(acos 0.5)", acos.String())

	mul, err := NewBinary(OpMul, NewConst(2), mustVec(t, 1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "(2 * [1 0 0])", mul.String())

	cat, err := NewBinary(OpCat, NewConst(1), mustRef(t, "y", ScalarType))
	require.NoError(t, err)
	assert.Equal(t, "(1, y)", cat.String())
}

func TestRefs(t *testing.T) {
	x := mustRef(t, "x", ScalarType)
	v := mustRef(t, "v", VectorType(2))
	inner, err := NewBinary(OpMul, x, v)
	require.NoError(t, err)
	outer, err := NewBinary(OpAdd, inner, v)
	require.NoError(t, err)

	assert.Equal(t, []string{"v", "x"}, Refs(outer))
	assert.Empty(t, Refs(NewConst(1)))

	types, err := RefTypes(outer)
	require.NoError(t, err)
	assert.Equal(t, map[string]Type{"x": ScalarType, "v": VectorType(2)}, types)
}

func TestRefTypes_Conflict(t *testing.T) {
	a := mustRef(t, "a", ScalarType)
	a3 := mustRef(t, "a", VectorType(3))
	n, err := NewBinary(OpMul, a, a3)
	require.NoError(t, err)

	_, err = RefTypes(n)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestParseOps(t *testing.T) {
	for op := UnaryOp(0); op < numUnaryOps; op++ {
		got, ok := ParseUnaryOp(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, got)
	}
	for op := BinaryOp(0); op < numBinaryOps; op++ {
		got, ok := ParseBinaryOp(op.String())
		require.True(t, ok, op.String())
		assert.Equal(t, op, got)
	}
	_, ok := ParseUnaryOp("frobnicate")
	assert.False(t, ok)
	_, ok = ParseBinaryOp("cross")
	assert.False(t, ok)
}
