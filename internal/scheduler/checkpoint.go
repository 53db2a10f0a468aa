package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/openphotonics/focksim/internal/results"
)

// CheckpointJob recomputes and logs the running summary of the active run,
// so a long sweep can be inspected before it finishes.
type CheckpointJob struct {
	log   zerolog.Logger
	repo  *results.Repository
	runID string
}

// NewCheckpointJob creates a new checkpoint job
func NewCheckpointJob(log zerolog.Logger, repo *results.Repository, runID string) *CheckpointJob {
	return &CheckpointJob{
		log:   log.With().Str("job", "checkpoint").Logger(),
		repo:  repo,
		runID: runID,
	}
}

// Name returns the job name
func (j *CheckpointJob) Name() string {
	return "checkpoint"
}

// Run computes the summary over the rows stored so far
func (j *CheckpointJob) Run() error {
	summary, err := j.repo.Summary(j.runID)
	if err != nil {
		return err
	}
	if summary.Rows == 0 {
		return nil
	}
	j.log.Info().
		Str("run_id", j.runID).
		Int("scenarios", summary.Scenarios).
		Float64("mean_fidelity", summary.MeanFidelity).
		Float64("total_success", summary.TotalSuccess).
		Msg("Checkpoint summary")
	return nil
}
