package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/openphotonics/focksim/internal/sweep"
)

// ProgressJob logs the state of the active sweep. Runs on a short interval
// so long sweeps leave a visible heartbeat in the logs.
type ProgressJob struct {
	log    zerolog.Logger
	runner *sweep.Runner
	runID  string
}

// NewProgressJob creates a new progress job
func NewProgressJob(log zerolog.Logger, runner *sweep.Runner, runID string) *ProgressJob {
	return &ProgressJob{
		log:    log.With().Str("job", "progress").Logger(),
		runner: runner,
		runID:  runID,
	}
}

// Name returns the job name
func (j *ProgressJob) Name() string {
	return "progress"
}

// Run logs completed, failed and total scenario counts
func (j *ProgressJob) Run() error {
	completed, failed, total := j.runner.Progress()
	if total == 0 {
		return nil
	}
	j.log.Info().
		Str("run_id", j.runID).
		Int64("completed", completed).
		Int64("failed", failed).
		Int64("total", total).
		Float64("percent", 100*float64(completed+failed)/float64(total)).
		Msg("Sweep progress")
	return nil
}
