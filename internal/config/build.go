package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/leibniz/internal/body"
	"github.com/san-kum/leibniz/internal/command"
	"github.com/san-kum/leibniz/internal/generator"
)

const dtName = generator.DtName

// Simulation is a compiled system ready to be bound to a scheduler.
type Simulation struct {
	Name      string
	Generator *generator.Generator
	Bodies    []*body.Body
	Run       RunConfig
}

type declKind int

const (
	declVar declKind = iota
	declFunc
)

type builder struct {
	sys *System

	kinds    map[string]declKind
	types    map[string]command.Type
	nodes    map[string]command.Node
	visiting map[string]bool
	values   map[string]command.Value
}

// Build compiles the expressions of sys and assembles the generator and
// bodies. Variable initial values may reference dt, functions and other
// variables' initial values; a reference cycle among declarations is an
// error.
func Build(sys *System) (*Simulation, error) {
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		sys:      sys,
		kinds:    make(map[string]declKind),
		types:    map[string]command.Type{dtName: command.ScalarType},
		nodes:    make(map[string]command.Node),
		visiting: make(map[string]bool),
		values:   map[string]command.Value{dtName: command.ScalarValue(sys.Dt)},
	}
	for name := range sys.Vars {
		b.kinds[name] = declVar
	}
	for name := range sys.Funcs {
		b.kinds[name] = declFunc
	}
	for name := range b.kinds {
		if isReserved(name) {
			return nil, fmt.Errorf("%w: %q is a built-in constant", ErrRedefined, name)
		}
	}

	for _, name := range sortedKeys(b.kinds) {
		if _, err := b.typeOf(name); err != nil {
			return nil, err
		}
	}

	vars, err := b.variables()
	if err != nil {
		return nil, err
	}
	funcs := make(map[string]command.Node, len(sys.Funcs))
	for name := range sys.Funcs {
		funcs[name] = b.nodes[name]
	}
	gen, err := generator.New(vars, funcs)
	if err != nil {
		return nil, err
	}

	bodies, err := b.bodies(gen)
	if err != nil {
		return nil, err
	}

	name := sys.Name
	if name == "" {
		name = "untitled"
	}
	return &Simulation{Name: name, Generator: gen, Bodies: bodies, Run: sys.Run}, nil
}

// typeOf compiles the declaration of name on first use so that references
// resolve in dependency order.
func (b *builder) typeOf(name string) (command.Type, error) {
	if t, ok := b.types[name]; ok {
		return t, nil
	}
	kind, ok := b.kinds[name]
	if !ok {
		return command.Type{}, fmt.Errorf("%w: %q", generator.ErrUnknownVariable, name)
	}
	if b.visiting[name] {
		return command.Type{}, fmt.Errorf("%w: through %q", generator.ErrCircularReference, name)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	expr, what := b.sys.Vars[name], "var"
	if kind == declFunc {
		expr, what = b.sys.Funcs[name], "func"
	}
	n, err := expr.Compile(b.typeOf)
	if err != nil {
		return command.Type{}, fmt.Errorf("%s %q: %w", what, name, err)
	}
	b.nodes[name] = n
	b.types[name] = n.Type()
	return n.Type(), nil
}

// initial evaluates the initial value of a variable, memoised.
func (b *builder) initial(name string) (command.Value, error) {
	if v, ok := b.values[name]; ok {
		return v, nil
	}
	v, err := command.Eval(b.nodes[name], initScope{b})
	if err != nil {
		return command.Value{}, fmt.Errorf("var %q: %w", name, err)
	}
	b.values[name] = v
	return v, nil
}

type initScope struct{ b *builder }

func (s initScope) Lookup(name string) (command.Value, error) {
	if name == dtName {
		return s.b.values[dtName], nil
	}
	switch kind, ok := s.b.kinds[name]; {
	case !ok:
		return command.Value{}, fmt.Errorf("%w: %q", command.ErrUnboundVariable, name)
	case kind == declVar:
		v, err := s.b.initial(name)
		if err != nil {
			return command.Value{}, err
		}
		return v.Clone(), nil
	default:
		return command.Eval(s.b.nodes[name], s)
	}
}

func (b *builder) variables() ([]generator.Variable, error) {
	names := append(sortedKeys(b.sys.Vars), dtName)
	vars := make([]generator.Variable, 0, len(names))
	for _, name := range names {
		init, err := b.initial(name)
		if err != nil {
			return nil, err
		}
		v := generator.Variable{Name: name, Initial: init}

		if expr, ok := b.sys.Update[name]; ok {
			n, err := expr.Compile(b.typeOf)
			if err != nil {
				return nil, fmt.Errorf("update %q: %w", name, err)
			}
			if want := b.types[name]; n.Type() != want {
				return nil, errAt(expr.node, &command.TypeError{
					Op:       "update " + name,
					Operands: []command.Type{want, n.Type()},
					Reason:   "update type differs from variable type",
				})
			}
			v.Update = n
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func (b *builder) bodies(gen *generator.Generator) ([]*body.Body, error) {
	bodies := make([]*body.Body, 0, len(b.sys.Bodies))
	for i, bc := range b.sys.Bodies {
		name := bc.Name
		if name == "" {
			name = fmt.Sprintf("body%d", i+1)
		}
		pos, err := bc.Position.Compile(b.typeOf)
		if err != nil {
			return nil, fmt.Errorf("body %q: %w", name, err)
		}
		color := body.DefaultColor
		if bc.Color != nil {
			if color, err = body.NewColor(bc.Color); err != nil {
				return nil, fmt.Errorf("body %q: %w", name, err)
			}
		}
		bd, err := body.New(name, pos, color, gen)
		if err != nil {
			var typeErr *command.TypeError
			if errors.As(err, &typeErr) {
				err = errAt(bc.Position.node, err)
			}
			return nil, fmt.Errorf("body %q: %w", name, err)
		}
		bodies = append(bodies, bd)
	}
	return bodies, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
