package sweep

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/openphotonics/focksim/internal/circuit"
)

// ResultSink receives the per-scenario simulation output. The sqlite
// repository implements it; tests substitute an in-memory collector.
type ResultSink interface {
	SaveScenario(runID string, scenario Scenario, results []circuit.Result) error
}

// Config carries the runner dependencies and sweep parameters.
type Config struct {
	Log         zerolog.Logger
	Sink        ResultSink
	Workers     int
	Overlaps    []float64
	AngleErrors []float64
	Tolerance   float64
}

// Runner executes scenarios on a bounded worker pool. A scenario that fails
// to simulate or persist is logged and counted, never aborts the sweep.
type Runner struct {
	log         zerolog.Logger
	sink        ResultSink
	workers     int
	overlaps    []float64
	angleErrors []float64
	tol         float64

	completed atomic.Int64
	failed    atomic.Int64
	total     atomic.Int64
}

func NewRunner(cfg Config) *Runner {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		log:         cfg.Log,
		sink:        cfg.Sink,
		workers:     workers,
		overlaps:    cfg.Overlaps,
		angleErrors: cfg.AngleErrors,
		tol:         cfg.Tolerance,
	}
}

// Progress reports completed, failed and total scenario counts for the
// current sweep.
func (r *Runner) Progress() (completed, failed, total int64) {
	return r.completed.Load(), r.failed.Load(), r.total.Load()
}

// Run simulates every scenario and hands the results to the sink. It returns
// early only when the context is cancelled.
func (r *Runner) Run(ctx context.Context, runID string, scenarios []Scenario) error {
	r.completed.Store(0)
	r.failed.Store(0)
	r.total.Store(int64(len(scenarios)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, sc := range scenarios {
		sc := sc
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			results, err := circuit.Simulate(sc.DoublePrep, sc.LossPos, r.angleErrors, r.overlaps, r.tol)
			if err != nil {
				r.failed.Add(1)
				r.log.Error().Err(err).Int("scenario", sc.Index).Msg("Scenario simulation failed, skipping")
				return nil
			}

			if err := r.sink.SaveScenario(runID, sc, results); err != nil {
				r.failed.Add(1)
				r.log.Error().Err(err).Int("scenario", sc.Index).Msg("Failed to persist scenario results")
				return nil
			}

			done := r.completed.Add(1)
			if done%500 == 0 {
				r.log.Info().
					Int64("completed", done).
					Int64("total", r.total.Load()).
					Str("run_id", runID).
					Msg("Sweep progress")
			}
			return nil
		})
	}

	return g.Wait()
}
