package scheduler_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/leibniz/internal/command"
	"github.com/san-kum/leibniz/internal/generator"
	"github.com/san-kum/leibniz/internal/scheduler"
)

type fakeGenerator struct {
	dt      float64
	dtErr   error
	steps   int
	failAt  int
	stepErr error
}

func (g *fakeGenerator) Step() error {
	if g.failAt > 0 && g.steps+1 == g.failAt {
		return g.stepErr
	}
	g.steps++
	return nil
}

func (g *fakeGenerator) Scalar(name string) (float64, error) {
	if name != "dt" {
		return 0, generator.ErrUnknownVariable
	}
	if g.dtErr != nil {
		return 0, g.dtErr
	}
	return g.dt, nil
}

type countingEntity struct {
	refreshes int
	seen      []int
	gen       *fakeGenerator
}

func (e *countingEntity) Refresh() {
	e.refreshes++
	e.seen = append(e.seen, e.gen.steps)
}

var _ = Describe("Scheduler", func() {
	var (
		clock  *scheduler.ManualClock
		logs   *bytes.Buffer
		sched  *scheduler.Scheduler
		gen    *fakeGenerator
		entity *countingEntity
	)

	BeforeEach(func() {
		clock = scheduler.NewManualClock(time.Unix(1000, 0))
		logs = &bytes.Buffer{}
		sched = scheduler.New(
			scheduler.WithClock(clock),
			scheduler.WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
		)
		gen = &fakeGenerator{dt: 0.01}
		entity = &countingEntity{gen: gen}
		sched.AddEntity(entity)
	})

	Describe("binding", func() {
		It("caches dt as the step size", func() {
			Expect(sched.Bind(gen)).To(Succeed())
			Expect(sched.Bound()).To(BeTrue())
			step, ok := sched.StepSize()
			Expect(ok).To(BeTrue())
			Expect(step).To(Equal(10 * time.Millisecond))
		})

		It("does not follow later dt changes", func() {
			Expect(sched.Bind(gen)).To(Succeed())
			gen.dt = 0.5
			step, _ := sched.StepSize()
			Expect(step).To(Equal(10 * time.Millisecond))
		})

		DescribeTable("leaves the scheduler unbound and logs when dt is unusable",
			func(g *fakeGenerator) {
				err := sched.Bind(g)
				Expect(err).To(MatchError(scheduler.ErrBind))
				Expect(sched.Bound()).To(BeFalse())
				Expect(logs.String()).To(ContainSubstring("binding generator failed"))
			},
			Entry("missing dt", &fakeGenerator{dtErr: generator.ErrUnknownVariable}),
			Entry("vector dt", &fakeGenerator{dtErr: generator.ErrTypeMismatch}),
			Entry("zero dt", &fakeGenerator{dt: 0}),
			Entry("negative dt", &fakeGenerator{dt: -0.01}),
			Entry("NaN dt", &fakeGenerator{dt: math.NaN()}),
			Entry("infinite dt", &fakeGenerator{dt: math.Inf(1)}),
		)

		It("keeps the underlying cause", func() {
			err := sched.Bind(&fakeGenerator{dtErr: generator.ErrUnknownVariable})
			Expect(errors.Is(err, generator.ErrUnknownVariable)).To(BeTrue())
		})

		It("clears a previous binding when rebinding fails", func() {
			Expect(sched.Bind(gen)).To(Succeed())
			Expect(sched.Bind(&fakeGenerator{dt: -1})).NotTo(Succeed())
			Expect(sched.Bound()).To(BeFalse())

			sched.Activate()
			clock.Advance(time.Second)
			Expect(sched.FrameElapsed()).To(Equal(0))
			Expect(gen.steps).To(BeZero())
		})
	})

	Describe("state machine", func() {
		BeforeEach(func() {
			Expect(sched.Bind(gen)).To(Succeed())
		})

		It("starts inactive and ignores frames", func() {
			Expect(sched.State()).To(Equal(scheduler.Inactive))
			clock.Advance(time.Second)
			Expect(sched.FrameElapsed()).To(Equal(0))
			Expect(gen.steps).To(BeZero())
		})

		It("does not simulate time spent inactive", func() {
			clock.Advance(time.Second)
			sched.Activate()
			Expect(sched.State()).To(Equal(scheduler.Active))
			clock.Advance(15 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(1))
		})

		It("stops stepping after deactivation", func() {
			sched.Activate()
			clock.Advance(20 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(2))

			sched.Deactivate()
			Expect(sched.State()).To(Equal(scheduler.Inactive))
			clock.Advance(time.Second)
			Expect(sched.FrameElapsed()).To(Equal(0))
			Expect(gen.steps).To(Equal(2))
		})

		It("resets the clock on reactivation", func() {
			sched.Activate()
			clock.Advance(5 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(0))
			sched.Deactivate()

			clock.Advance(time.Hour)
			sched.Activate()
			Expect(sched.Accumulator()).To(BeZero())
			clock.Advance(9 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(0))
		})

		It("ignores repeated activation", func() {
			sched.Activate()
			clock.Advance(8 * time.Millisecond)
			sched.Activate()
			clock.Advance(4 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(1))
		})
	})

	Describe("catch-up loop", func() {
		BeforeEach(func() {
			Expect(sched.Bind(gen)).To(Succeed())
			sched.Activate()
		})

		It("performs no step on a zero-length first frame", func() {
			Expect(sched.FrameElapsed()).To(Equal(0))
			Expect(sched.Accumulator()).To(BeZero())
			Expect(entity.refreshes).To(BeZero())
		})

		It("performs two steps for 25ms and keeps 5ms pending", func() {
			clock.Advance(25 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(2))
			Expect(sched.Accumulator()).To(Equal(5 * time.Millisecond))
			Expect(sched.SimulatedTime()).To(Equal(20 * time.Millisecond))
		})

		It("carries the remainder into the next frame", func() {
			for _, d := range []time.Duration{25, 3, 2, 17} {
				clock.Advance(d * time.Millisecond)
				_, err := sched.FrameElapsed()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(gen.steps).To(Equal(4))
			Expect(sched.Accumulator()).To(Equal(7 * time.Millisecond))
		})

		It("never drifts more than a step behind irregular frames", func() {
			start := clock.Now()
			frames := []time.Duration{16, 33, 1, 0, 7, 50, 12, 9, 101, 4}
			for _, d := range frames {
				clock.Advance(d * time.Millisecond)
				_, err := sched.FrameElapsed()
				Expect(err).NotTo(HaveOccurred())

				wall := clock.Now().Sub(start)
				Expect(sched.SimulatedTime()).To(BeNumerically("<=", wall))
				Expect(wall - sched.SimulatedTime()).To(BeNumerically("<", 10*time.Millisecond))
				Expect(sched.Accumulator()).To(Equal(wall - sched.SimulatedTime()))
			}
		})

		It("refreshes entities once per frame after all steps", func() {
			clock.Advance(35 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(3))
			clock.Advance(4 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(0))
			clock.Advance(10 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(1))

			Expect(entity.refreshes).To(Equal(2))
			Expect(entity.seen).To(Equal([]int{3, 4}))
		})

		It("refreshes entities in registration order", func() {
			var order []string
			sched.AddEntity(entityFunc(func() { order = append(order, "second") }))
			sched.AddEntity(entityFunc(func() { order = append(order, "third") }))
			clock.Advance(10 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(1))
			Expect(entity.refreshes).To(Equal(1))
			Expect(order).To(Equal([]string{"second", "third"}))
		})

		It("stops on a step error without refreshing", func() {
			boom := errors.New("boom")
			gen.failAt = 2
			gen.stepErr = boom

			clock.Advance(30 * time.Millisecond)
			n, err := sched.FrameElapsed()
			Expect(err).To(MatchError(boom))
			Expect(n).To(Equal(1))
			Expect(sched.Steps()).To(Equal(1))
			Expect(sched.Accumulator()).To(Equal(20 * time.Millisecond))
			Expect(entity.refreshes).To(BeZero())
		})

		It("rebinding resets pending time", func() {
			clock.Advance(7 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(0))
			Expect(sched.Bind(&fakeGenerator{dt: 0.005})).To(Succeed())
			Expect(sched.Accumulator()).To(BeZero())
			step, _ := sched.StepSize()
			Expect(step).To(Equal(5 * time.Millisecond))
		})
	})

	Describe("with a real generator", func() {
		It("steps the generator state", func() {
			x, err := command.NewRef("x", command.ScalarType)
			Expect(err).NotTo(HaveOccurred())
			inc, err := command.NewBinary(command.OpAdd, x, command.NewConst(1))
			Expect(err).NotTo(HaveOccurred())
			g, err := generator.New([]generator.Variable{
				{Name: "dt", Initial: command.ScalarValue(0.01)},
				{Name: "x", Initial: command.ScalarValue(0), Update: inc},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(sched.Bind(g)).To(Succeed())
			sched.Activate()
			clock.Advance(25 * time.Millisecond)
			Expect(sched.FrameElapsed()).To(Equal(2))
			Expect(g.Scalar("x")).To(Equal(2.0))
		})
	})
})

type entityFunc func()

func (f entityFunc) Refresh() { f() }
