package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultFPS      = 60
)

var (
	ErrInvalidSystem = errors.New("config: invalid system")
	ErrRedefined     = errors.New("config: name cannot be redefined")
	ErrUnknownUpdate = errors.New("config: update of undeclared variable")
)

// System is a simulation definition: the step size, named functions,
// state variables with their initial values and update expressions, and
// the bodies drawn from that state.
type System struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Dt          float64         `yaml:"dt"`
	Funcs       map[string]Expr `yaml:"funcs,omitempty"`
	Vars        map[string]Expr `yaml:"vars"`
	Update      map[string]Expr `yaml:"update,omitempty"`
	Bodies      []BodyConfig    `yaml:"bodies,omitempty"`
	Run         RunConfig       `yaml:"run"`
}

type BodyConfig struct {
	Name     string    `yaml:"name,omitempty"`
	Position Expr      `yaml:"position"`
	Color    []float64 `yaml:"color,omitempty,flow"`
}

type RunConfig struct {
	Duration float64 `yaml:"duration"`
	FPS      int     `yaml:"fps"`
}

func DefaultSystem() *System {
	return &System{
		Dt:     DefaultDt,
		Funcs:  map[string]Expr{},
		Vars:   map[string]Expr{},
		Update: map[string]Expr{},
		Run: RunConfig{
			Duration: DefaultDuration,
			FPS:      DefaultFPS,
		},
	}
}

func Load(path string) (*System, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sys, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sys, nil
}

func Parse(data []byte) (*System, error) {
	sys := DefaultSystem()
	if err := yaml.Unmarshal(data, sys); err != nil {
		return nil, err
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	return sys, nil
}

func Save(path string, sys *System) error {
	data, err := yaml.Marshal(sys)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the parts of a system that do not need compiling.
func (s *System) Validate() error {
	if s.Dt <= 0 || math.IsNaN(s.Dt) || math.IsInf(s.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidSystem, s.Dt)
	}
	if s.Run.Duration <= 0 {
		return fmt.Errorf("%w: run duration must be positive, got %v", ErrInvalidSystem, s.Run.Duration)
	}
	if s.Run.FPS <= 0 {
		return fmt.Errorf("%w: run fps must be positive, got %d", ErrInvalidSystem, s.Run.FPS)
	}
	if len(s.Vars) == 0 && len(s.Funcs) == 0 {
		return fmt.Errorf("%w: no vars or funcs declared", ErrInvalidSystem)
	}
	for name := range s.Vars {
		if _, ok := s.Funcs[name]; ok {
			return fmt.Errorf("%w: %q is declared as both function and variable", ErrRedefined, name)
		}
	}
	if _, ok := s.Vars[dtName]; ok {
		return fmt.Errorf("%w: %q is reserved for the step size", ErrRedefined, dtName)
	}
	if _, ok := s.Funcs[dtName]; ok {
		return fmt.Errorf("%w: %q is reserved for the step size", ErrRedefined, dtName)
	}
	for name := range s.Update {
		if _, ok := s.Vars[name]; !ok && name != dtName {
			return fmt.Errorf("%w: %q", ErrUnknownUpdate, name)
		}
	}
	for i, b := range s.Bodies {
		if b.Position.IsZero() {
			return fmt.Errorf("%w: body %d has no position", ErrInvalidSystem, i)
		}
	}
	return nil
}
