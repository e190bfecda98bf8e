package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/san-kum/leibniz/internal/config"
)

// Job is one system to run.
type Job struct {
	System *config.System
	Sim    *config.Simulation
}

// RunAll runs the jobs concurrently, each on its own scheduler. Results are
// in job order; the first error is returned.
func RunAll(ctx context.Context, jobs []Job, log *slog.Logger) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()
			results[idx], errs[idx] = Run(ctx, job.System, job.Sim, log.With("system", job.Sim.Name))
		}(i, job)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
