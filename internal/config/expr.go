package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/leibniz/internal/command"
	"github.com/san-kum/leibniz/internal/vector"
)

// Expr is an expression tree kept in its YAML form until the types of the
// names it references are known.
//
//	2.5                     scalar constant
//	[1, 0, 0]               vector constant
//	[x, {sin: t}, 0]        vector joined from scalars and vectors
//	phi                     reference (PI, E, ex, ey, ez, e0..e63 are constants)
//	{acos: x}               unary operator
//	{mul: [k, {neg: x}]}    binary operator; add, mul and cat take 2 or more
type Expr struct {
	node *yaml.Node
}

func (e *Expr) UnmarshalYAML(n *yaml.Node) error {
	c := *n
	e.node = &c
	return nil
}

func (e Expr) MarshalYAML() (interface{}, error) {
	return e.node, nil
}

func (e Expr) IsZero() bool { return e.node == nil }

// Line returns the line the expression started on, or 0 if unknown.
func (e Expr) Line() int {
	if e.node == nil {
		return 0
	}
	return e.node.Line
}

var errEmptyExpr = errors.New("config: empty expression")

// ExprError locates a compile error in the source file.
type ExprError struct {
	Line, Column int
	Err          error
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *ExprError) Unwrap() error { return e.Err }

func errAt(n *yaml.Node, err error) error {
	var located *ExprError
	if errors.As(err, &located) {
		return err
	}
	return &ExprError{Line: n.Line, Column: n.Column, Err: err}
}

// typeResolver returns the type of a referenced name.
type typeResolver func(name string) (command.Type, error)

func reserved(name string) (command.Node, bool) {
	switch name {
	case "PI":
		return command.NewConst(math.Pi), true
	case "E":
		return command.NewConst(math.E), true
	case "ex":
		n, _ := command.NewConstVector(vector.Of(1, 0, 0))
		return n, true
	case "ey":
		n, _ := command.NewConstVector(vector.Of(0, 1, 0))
		return n, true
	case "ez":
		n, _ := command.NewConstVector(vector.Of(0, 0, 1))
		return n, true
	}
	if i, ok := baseIndex(name); ok {
		v := vector.New(i + 1)
		v[i] = 1
		n, _ := command.NewConstVector(v)
		return n, true
	}
	return nil, false
}

// maxBase bounds the base vectors e<n>.
const maxBase = 63

// baseIndex parses e<n>, the base vector of dimension n+1 with a one in
// its last component.
func baseIndex(name string) (int, bool) {
	if len(name) < 2 || name[0] != 'e' {
		return 0, false
	}
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(name[1:])
	if err != nil || i > maxBase || (len(name) > 2 && name[1] == '0') {
		return 0, false
	}
	return i, true
}

func isReserved(name string) bool {
	_, ok := reserved(name)
	return ok
}

// Compile builds the command tree for e.
func (e Expr) Compile(resolve typeResolver) (command.Node, error) {
	if e.node == nil {
		return nil, errEmptyExpr
	}
	return compile(e.node, resolve)
}

func compile(n *yaml.Node, resolve typeResolver) (command.Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, errAt(n, errEmptyExpr)
		}
		return compile(n.Content[0], resolve)
	case yaml.AliasNode:
		return compile(n.Alias, resolve)
	case yaml.ScalarNode:
		return compileScalar(n, resolve)
	case yaml.SequenceNode:
		if isNumberList(n) {
			return compileVector(n)
		}
		return compileCat(n, resolve)
	case yaml.MappingNode:
		return compileOp(n, resolve)
	}
	return nil, errAt(n, fmt.Errorf("config: unsupported expression node"))
}

func compileScalar(n *yaml.Node, resolve typeResolver) (command.Node, error) {
	switch n.ShortTag() {
	case "!!int", "!!float":
		var x float64
		if err := n.Decode(&x); err != nil {
			return nil, errAt(n, err)
		}
		return command.NewConst(x), nil
	case "!!str":
		if c, ok := reserved(n.Value); ok {
			return c, nil
		}
		typ, err := resolve(n.Value)
		if err != nil {
			return nil, errAt(n, err)
		}
		ref, err := command.NewRef(n.Value, typ)
		if err != nil {
			return nil, errAt(n, err)
		}
		return ref, nil
	}
	return nil, errAt(n, fmt.Errorf("config: %q is not a number or a name", n.Value))
}

func compileVector(n *yaml.Node) (command.Node, error) {
	v := make(vector.Vector, len(n.Content))
	for i, item := range n.Content {
		if item.Kind != yaml.ScalarNode || (item.ShortTag() != "!!int" && item.ShortTag() != "!!float") {
			return nil, errAt(item, fmt.Errorf("config: vector components must be numbers"))
		}
		if err := item.Decode(&v[i]); err != nil {
			return nil, errAt(item, err)
		}
	}
	c, err := command.NewConstVector(v)
	if err != nil {
		return nil, errAt(n, err)
	}
	return c, nil
}

// compileCat joins the items of a sequence with cat, left to right, so
// [x, y, 0] is a 3-vector. Two vector items cannot be joined.
func compileCat(n *yaml.Node, resolve typeResolver) (command.Node, error) {
	if len(n.Content) < 2 {
		return nil, errAt(n, fmt.Errorf("config: a vector of expressions needs at least two components"))
	}
	acc, err := compile(n.Content[0], resolve)
	if err != nil {
		return nil, err
	}
	for _, item := range n.Content[1:] {
		part, err := compile(item, resolve)
		if err != nil {
			return nil, err
		}
		if acc, err = command.NewBinary(command.OpCat, acc, part); err != nil {
			return nil, errAt(item, err)
		}
	}
	return acc, nil
}

func compileOp(n *yaml.Node, resolve typeResolver) (command.Node, error) {
	if len(n.Content) != 2 {
		return nil, errAt(n, fmt.Errorf("config: operator mapping must have exactly one key"))
	}
	key, argsNode := n.Content[0], n.Content[1]

	argNodes := []*yaml.Node{argsNode}
	if argsNode.Kind == yaml.SequenceNode {
		argNodes = argsNode.Content
	}

	if op, ok := command.ParseUnaryOp(key.Value); ok {
		if len(argNodes) > 1 && isNumberList(argsNode) {
			argNodes = []*yaml.Node{argsNode}
		}
		if len(argNodes) != 1 {
			return nil, errAt(key, fmt.Errorf("config: %s takes one argument, got %d", key.Value, len(argNodes)))
		}
		arg, err := compile(argNodes[0], resolve)
		if err != nil {
			return nil, err
		}
		u, err := command.NewUnary(op, arg)
		if err != nil {
			return nil, errAt(key, err)
		}
		return u, nil
	}

	op, ok := command.ParseBinaryOp(key.Value)
	if !ok {
		return nil, errAt(key, fmt.Errorf("config: unknown operator %q", key.Value))
	}
	variadic := op == command.OpAdd || op == command.OpMul || op == command.OpCat
	if len(argNodes) < 2 || (len(argNodes) > 2 && !variadic) {
		return nil, errAt(key, fmt.Errorf("config: %s takes two arguments, got %d", key.Value, len(argNodes)))
	}
	acc, err := compile(argNodes[0], resolve)
	if err != nil {
		return nil, err
	}
	for _, a := range argNodes[1:] {
		arg, err := compile(a, resolve)
		if err != nil {
			return nil, err
		}
		if acc, err = command.NewBinary(op, acc, arg); err != nil {
			return nil, errAt(key, err)
		}
	}
	return acc, nil
}

// isNumberList reports whether a sequence is a vector literal. A unary
// operator given one with two or more items treats it as its argument:
// {neg: [1, 2]} is -[1 2], while {neg: [1]} is -1. A one-component vector
// needs the nested form {neg: [[1]]}.
func isNumberList(n *yaml.Node) bool {
	if len(n.Content) == 0 {
		return false
	}
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return false
		}
		if t := item.ShortTag(); t != "!!int" && t != "!!float" {
			return false
		}
	}
	return true
}
