// Package runner drives simulations without a display, one scheduler per
// simulation advanced by a manual clock.
package runner

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/leibniz/internal/config"
	"github.com/san-kum/leibniz/internal/scheduler"
	"github.com/san-kum/leibniz/internal/storage"
)

type Result struct {
	Name      string
	System    *config.System
	Sim       *config.Simulation
	Recorder  *storage.Recorder
	Steps     int
	Frames    int
	Simulated time.Duration
	Elapsed   time.Duration
	// Err is the step error that ended the run early, if any.
	Err error
}

// Metadata describes the result for the run store.
func (r *Result) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		System:      r.Name,
		Description: r.System.Description,
		Dt:          r.System.Dt,
		Duration:    r.Sim.Run.Duration,
		FPS:         r.Sim.Run.FPS,
		Steps:       r.Steps,
		Frames:      r.Frames,
	}
}

// Run advances the clock by one frame period per frame for the run's
// duration, recording the state after every frame that stepped. A step
// error ends the run and is reported in Result.Err; the rows recorded up
// to then are kept. Bind failures and cancellation are returned as errors.
func Run(ctx context.Context, sys *config.System, sim *config.Simulation, log *slog.Logger) (*Result, error) {
	clock := scheduler.NewManualClock(time.Unix(0, 0))
	sched := scheduler.New(scheduler.WithClock(clock), scheduler.WithLogger(log))
	if err := sched.Bind(sim.Generator); err != nil {
		return nil, err
	}

	rec := storage.NewRecorder(sim.Generator, sys.Dt)
	for _, b := range sim.Bodies {
		sched.AddEntity(b)
	}
	sched.AddEntity(rec)
	rec.Refresh()

	res := &Result{Name: sim.Name, System: sys, Sim: sim, Recorder: rec}
	period := time.Duration(math.Round(float64(time.Second) / float64(sim.Run.FPS)))
	frames := int(math.Round(sim.Run.Duration * float64(sim.Run.FPS)))

	start := time.Now()
	sched.Activate()
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		clock.Advance(period)
		if _, err := sched.FrameElapsed(); err != nil {
			log.Error("run stopped", "frame", i, "error", err)
			res.Err = err
			break
		}
	}
	sched.Deactivate()

	res.Steps = sched.Steps()
	res.Frames = sched.Frames()
	res.Simulated = sched.SimulatedTime()
	res.Elapsed = time.Since(start)

	for _, b := range sim.Bodies {
		if b.Err() != nil {
			log.Warn("body not updated", "body", b.Name(), "error", b.Err())
		}
	}
	log.Debug("run finished", "steps", res.Steps, "frames", res.Frames, "elapsed", res.Elapsed)
	return res, nil
}
