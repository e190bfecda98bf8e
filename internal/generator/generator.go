// Package generator holds the named state of a simulation and advances it
// one discrete step at a time.
//
// Every variable has an initial value and an optional update expression;
// functions are named expressions evaluated on demand over the current
// state. A step evaluates every update over the previous snapshot and
// publishes the results together, so no update ever observes another
// variable's new value.
package generator

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/leibniz/internal/command"
)

// DtName is the variable holding the integration step size in seconds.
const DtName = "dt"

// Variable declares one state variable. A nil Update holds the value constant.
type Variable struct {
	Name    string
	Initial command.Value
	Update  command.Node
}

type Generator struct {
	order   []string
	updates map[string]command.Node
	funcs   map[string]command.Node
	types   map[string]command.Type
	state   command.Bindings
	steps   int
}

func New(vars []Variable, funcs map[string]command.Node) (*Generator, error) {
	g := &Generator{
		order:   make([]string, 0, len(vars)),
		updates: make(map[string]command.Node, len(vars)),
		funcs:   make(map[string]command.Node, len(funcs)),
		types:   make(map[string]command.Type, len(vars)+len(funcs)),
		state:   make(command.Bindings, len(vars)),
	}

	for _, v := range vars {
		if v.Name == "" {
			return nil, fmt.Errorf("%w: empty variable name", ErrUnknownVariable)
		}
		if _, dup := g.types[v.Name]; dup {
			return nil, fmt.Errorf("%w: variable %q", ErrDuplicateName, v.Name)
		}
		typ := v.Initial.Type()
		if typ.IsVector() && typ.Dim == 0 {
			return nil, fmt.Errorf("%w: variable %q has an empty vector value", ErrTypeMismatch, v.Name)
		}
		g.types[v.Name] = typ
		g.order = append(g.order, v.Name)
		g.state[v.Name] = v.Initial.Clone()
		if v.Update != nil {
			g.updates[v.Name] = v.Update
		}
	}
	sort.Strings(g.order)

	funcNames := make([]string, 0, len(funcs))
	for name, f := range funcs {
		if _, dup := g.types[name]; dup {
			return nil, fmt.Errorf("%w: function %q is also a variable", ErrDuplicateName, name)
		}
		if f == nil {
			return nil, fmt.Errorf("%w: function %q has no definition", ErrUnknownVariable, name)
		}
		funcNames = append(funcNames, name)
	}
	sort.Strings(funcNames)
	for _, name := range funcNames {
		g.funcs[name] = funcs[name]
		g.types[name] = funcs[name].Type()
	}

	if t, ok := g.types[DtName]; !ok || !t.IsScalar() {
		return nil, ErrMissingDt
	}
	if _, ok := g.funcs[DtName]; ok {
		return nil, ErrMissingDt
	}

	for _, name := range g.order {
		up, ok := g.updates[name]
		if !ok {
			continue
		}
		if up.Type() != g.types[name] {
			return nil, fmt.Errorf("%w: update of %q is %s, variable is %s", ErrTypeMismatch, name, up.Type(), g.types[name])
		}
		if err := g.checkRefs("update of "+name, up); err != nil {
			return nil, err
		}
	}
	for _, name := range funcNames {
		if err := g.checkRefs("function "+name, g.funcs[name]); err != nil {
			return nil, err
		}
	}
	if err := g.checkCycles(funcNames); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Generator) checkRefs(owner string, n command.Node) error {
	refs, err := command.RefTypes(n)
	if err != nil {
		return fmt.Errorf("%s: %w", owner, err)
	}
	for name, typ := range refs {
		declared, ok := g.types[name]
		if !ok {
			return fmt.Errorf("%s: %w: %q", owner, ErrUnknownVariable, name)
		}
		if declared != typ {
			return fmt.Errorf("%s: %w: %q is %s, referenced as %s", owner, ErrTypeMismatch, name, declared, typ)
		}
	}
	return nil
}

// checkCycles walks function-to-function references depth first.
func (g *Generator) checkCycles(names []string) error {
	const (
		white = iota
		gray
		black
	)
	state := make(map[string]int, len(names))
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case gray:
			return fmt.Errorf("%w: %v", ErrCircularReference, append(path, name))
		case black:
			return nil
		}
		state[name] = gray
		for _, ref := range command.Refs(g.funcs[name]) {
			if _, ok := g.funcs[ref]; !ok {
				continue
			}
			if err := visit(ref, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = black
		return nil
	}
	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// scope resolves names over one snapshot: variables first, then functions
// evaluated over the same snapshot.
type scope struct {
	g    *Generator
	vars command.Bindings
}

func (s scope) Lookup(name string) (command.Value, error) {
	if v, ok := s.vars[name]; ok {
		return v, nil
	}
	if f, ok := s.g.funcs[name]; ok {
		return command.Eval(f, s)
	}
	return command.Value{}, fmt.Errorf("%w: %q", command.ErrUnboundVariable, name)
}

// Step computes every variable's next value from the current snapshot and
// then replaces the snapshot. On error nothing is published.
func (g *Generator) Step() error {
	prev := scope{g: g, vars: g.state}
	next := make(command.Bindings, len(g.state))
	for _, name := range g.order {
		up, ok := g.updates[name]
		if !ok {
			next[name] = g.state[name]
			continue
		}
		v, err := command.Eval(up, prev)
		if err != nil {
			return &StepError{Step: g.steps + 1, Variable: name, Wrapped: err}
		}
		next[name] = v
	}
	g.state = next
	g.steps++
	return nil
}

// Run performs n steps, stopping early if ctx is canceled.
func (g *Generator) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := g.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the current value of a variable, or of a function evaluated
// over the current snapshot.
func (g *Generator) Value(name string) (command.Value, error) {
	if v, ok := g.state[name]; ok {
		return v.Clone(), nil
	}
	if f, ok := g.funcs[name]; ok {
		return command.Eval(f, g.current())
	}
	return command.Value{}, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
}

func (g *Generator) Scalar(name string) (float64, error) {
	v, err := g.Value(name)
	if err != nil {
		return 0, err
	}
	if !v.IsScalar() {
		return 0, fmt.Errorf("%w: %q is %s, not a scalar", ErrTypeMismatch, name, v.Type())
	}
	return v.Scalar(), nil
}

// Vector returns a copy of a vector variable's current value.
func (g *Generator) Vector(name string) ([]float64, error) {
	v, err := g.Value(name)
	if err != nil {
		return nil, err
	}
	if v.IsScalar() {
		return nil, fmt.Errorf("%w: %q is a scalar, not a vector", ErrTypeMismatch, name)
	}
	return v.Vector(), nil
}

// Eval evaluates an arbitrary expression over the current snapshot.
func (g *Generator) Eval(n command.Node) (command.Value, error) {
	return command.Eval(n, g.current())
}

func (g *Generator) current() scope {
	return scope{g: g, vars: g.state}
}

// Snapshot returns a deep copy of the current variable values.
func (g *Generator) Snapshot() command.Bindings {
	return g.state.Clone()
}

// Names returns the declared variable names in sorted order.
func (g *Generator) Names() []string {
	return append([]string(nil), g.order...)
}

// Funcs returns the declared function names in sorted order.
func (g *Generator) Funcs() []string {
	names := make([]string, 0, len(g.funcs))
	for name := range g.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Generator) Type(name string) (command.Type, bool) {
	t, ok := g.types[name]
	return t, ok
}

// Definition returns the update expression of a variable or the body of a
// function. It is nil for variables without an update.
func (g *Generator) Definition(name string) command.Node {
	if f, ok := g.funcs[name]; ok {
		return f
	}
	return g.updates[name]
}

func (g *Generator) Steps() int { return g.steps }
