// Package scheduler advances a generator in fixed-size steps in response to
// frame notifications from a host loop.
//
// The host calls Activate once it starts delivering frames, FrameElapsed on
// every frame, and Deactivate when it stops. Each frame runs as many steps
// as fit into the real time elapsed since the last step, so simulated time
// never runs ahead of real time and never trails it by a full step.
// Registered entities are refreshed once per frame that advanced the
// simulation, after all of that frame's steps.
//
// A Scheduler is not safe for concurrent use; every call is expected from
// the host's loop goroutine.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// ErrBind indicates a generator that cannot be bound, usually because its
// dt is missing, not a scalar, or not a positive finite number.
var ErrBind = errors.New("scheduler: cannot bind generator")

// Generator is the part of a generator the scheduler drives.
type Generator interface {
	Step() error
	Scalar(name string) (float64, error)
}

// Entity is refreshed from generator state after each frame that stepped.
type Entity interface {
	Refresh()
}

type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

type binding struct {
	gen      Generator
	stepSize time.Duration
}

type Scheduler struct {
	clock    Clock
	log      *slog.Logger
	bound    *binding
	entities []Entity
	state    State

	lastTick time.Time
	pending  time.Duration
	steps    int
	frames   int
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:    SystemClock{},
		log:      slog.Default(),
		entities: make([]Entity, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind reads g's dt once and fixes the step size from it. Later changes to
// dt do not resize steps until Bind is called again. On failure the error
// is logged, the scheduler is left unbound and frames become no-ops.
func (s *Scheduler) Bind(g Generator) error {
	stepSize, err := stepSizeOf(g)
	if err != nil {
		s.bound = nil
		s.log.Error("binding generator failed", "error", err)
		return err
	}
	s.bound = &binding{gen: g, stepSize: stepSize}
	s.lastTick = s.clock.Now()
	s.pending = 0
	s.log.Debug("generator bound", "step", stepSize)
	return nil
}

func stepSizeOf(g Generator) (time.Duration, error) {
	if g == nil {
		return 0, fmt.Errorf("%w: nil generator", ErrBind)
	}
	dt, err := g.Scalar("dt")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBind, err)
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0, fmt.Errorf("%w: dt is %v", ErrBind, dt)
	}
	stepSize := time.Duration(math.Round(dt * 1e9))
	if stepSize <= 0 {
		return 0, fmt.Errorf("%w: dt %v is not positive", ErrBind, dt)
	}
	return stepSize, nil
}

func (s *Scheduler) AddEntity(e Entity) {
	s.entities = append(s.entities, e)
}

// Activate starts accepting frames. Time before activation is never
// simulated.
func (s *Scheduler) Activate() {
	if s.state == Active {
		return
	}
	s.state = Active
	s.lastTick = s.clock.Now()
	s.pending = 0
	s.log.Debug("scheduler activated")
}

func (s *Scheduler) Deactivate() {
	if s.state == Inactive {
		return
	}
	s.state = Inactive
	s.log.Debug("scheduler deactivated", "steps", s.steps)
}

// FrameElapsed runs the catch-up loop for one frame and returns the number
// of steps performed. A step error stops the loop: the failed step's time
// stays pending and entities are not refreshed.
func (s *Scheduler) FrameElapsed() (int, error) {
	if s.state != Active || s.bound == nil {
		return 0, nil
	}
	s.frames++

	stepSize := s.bound.stepSize
	elapsed := s.clock.Now().Sub(s.lastTick)
	if elapsed < stepSize {
		s.pending = elapsed
		return 0, nil
	}

	n := 0
	for elapsed >= stepSize {
		if err := s.bound.gen.Step(); err != nil {
			s.pending = elapsed
			return n, fmt.Errorf("scheduler: frame %d: %w", s.frames, err)
		}
		elapsed -= stepSize
		s.lastTick = s.lastTick.Add(stepSize)
		s.steps++
		n++
	}
	s.pending = elapsed

	for _, e := range s.entities {
		e.Refresh()
	}
	return n, nil
}

func (s *Scheduler) State() State { return s.state }

func (s *Scheduler) Bound() bool { return s.bound != nil }

// StepSize returns the bound step size, or false when unbound.
func (s *Scheduler) StepSize() (time.Duration, bool) {
	if s.bound == nil {
		return 0, false
	}
	return s.bound.stepSize, true
}

// Accumulator returns the real time left over by the last frame, not yet
// consumed by a step.
func (s *Scheduler) Accumulator() time.Duration { return s.pending }

// Steps returns the total number of steps performed since creation.
func (s *Scheduler) Steps() int { return s.steps }

// Frames returns the number of frames processed while active and bound.
func (s *Scheduler) Frames() int { return s.frames }

// SimulatedTime returns Steps multiplied by the current step size.
func (s *Scheduler) SimulatedTime() time.Duration {
	if s.bound == nil {
		return 0
	}
	return time.Duration(s.steps) * s.bound.stepSize
}
