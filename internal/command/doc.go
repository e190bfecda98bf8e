// Package command implements the typed expression trees evaluated by the
// simulation.
//
// A tree is built from five node kinds:
//
//   - [Const]: a scalar literal
//   - [ConstVector]: a vector literal
//   - [Ref]: a named variable, resolved at evaluation time
//   - [Unary]: a scalar transform or a vector negation/norm
//   - [Binary]: arithmetic over scalar and vector operands, and [OpCat],
//     which joins scalars and vectors into a longer vector
//
// Every node carries its [Type], computed when it is constructed. The
// constructors reject operand combinations the operator does not accept, so
// [Eval] never meets a dimension mismatch.
//
// # Example
//
//	x, _ := command.NewRef("x", command.VectorType(3))
//	k := command.NewConst(0.5)
//	n, _ := command.NewBinary(command.OpMul, k, x)
//	v, _ := command.Eval(n, command.Bindings{"x": command.VectorValue(vector.Of(1, 2, 3))})
//
// Numeric domain errors are not reported: acos(2) evaluates to NaN, as it
// does in IEEE arithmetic.
package command
