// Package body provides the entities moved by a simulation.
package body

import (
	"errors"
	"fmt"

	"github.com/san-kum/leibniz/internal/command"
	"github.com/san-kum/leibniz/internal/vector"
)

// Space is the dimension bodies live in; shorter positions are zero padded.
const Space = 3

var ErrInvalidColor = errors.New("body: color components must be in [0, 1]")

// Evaluator evaluates an expression over the current simulation state.
type Evaluator interface {
	Eval(n command.Node) (command.Value, error)
}

type Color struct {
	R, G, B float64
}

// DefaultColor is the blue bodies are drawn in unless configured otherwise.
var DefaultColor = Color{R: 0, G: 0, B: 1}

func NewColor(c []float64) (Color, error) {
	if len(c) != 3 {
		return Color{}, fmt.Errorf("%w: want 3 components, got %d", ErrInvalidColor, len(c))
	}
	for _, x := range c {
		if x < 0 || x > 1 {
			return Color{}, fmt.Errorf("%w: %v", ErrInvalidColor, c)
		}
	}
	return Color{R: c[0], G: c[1], B: c[2]}, nil
}

// Body is a point whose position is an expression over the simulation
// state. Refresh re-evaluates it.
type Body struct {
	name     string
	position command.Node
	color    Color
	src      Evaluator

	pos     vector.Vector
	err     error
	updates int
}

// New checks that position is a vector of dimension 1 to Space.
func New(name string, position command.Node, color Color, src Evaluator) (*Body, error) {
	if position == nil {
		return nil, &command.TypeError{Op: "position", Reason: "missing expression"}
	}
	typ := position.Type()
	if !typ.IsVector() || typ.Dim > Space {
		return nil, &command.TypeError{
			Op:       "position",
			Operands: []command.Type{typ},
			Reason:   fmt.Sprintf("must be a vector of dimension 1 to %d", Space),
		}
	}
	return &Body{
		name:     name,
		position: position,
		color:    color,
		src:      src,
		pos:      vector.New(Space),
	}, nil
}

// Refresh evaluates the position expression. On failure the last good
// position is kept and the error is reported by Err.
func (b *Body) Refresh() {
	v, err := b.src.Eval(b.position)
	if err != nil {
		b.err = fmt.Errorf("body %q: %w", b.name, err)
		return
	}
	b.pos = v.Vector().Resize(Space)
	b.err = nil
	b.updates++
}

func (b *Body) Name() string { return b.name }

func (b *Body) Color() Color { return b.color }

// Position returns a copy of the last evaluated position.
func (b *Body) Position() vector.Vector { return b.pos.Clone() }

func (b *Body) Expression() command.Node { return b.position }

func (b *Body) Err() error { return b.err }

// Updates counts successful refreshes.
func (b *Body) Updates() int { return b.updates }
