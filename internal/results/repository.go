package results

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openphotonics/focksim/internal/circuit"
	"github.com/openphotonics/focksim/internal/sweep"
)

const timeFormat = "2006-01-02 15:04:05"

// Repository handles run and scenario result persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new results repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "results").Logger(),
	}
}

// CreateRun inserts a new run in the running state.
func (r *Repository) CreateRun(run *Run) error {
	query := `
		INSERT INTO runs (id, overlaps, scenario_lower, scenario_upper, workers, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	run.Status = StatusRunning
	run.StartedAt = time.Now().UTC()

	_, err := r.db.Exec(
		query,
		run.ID,
		run.Overlaps,
		run.ScenarioLower,
		run.ScenarioUpper,
		run.Workers,
		run.Status,
		run.StartedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun marks a run finished or failed and stamps the end time.
func (r *Repository) FinishRun(runID, status string) error {
	_, err := r.db.Exec(
		"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?",
		status, time.Now().UTC().Format(timeFormat), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID, or nil when it does not exist.
func (r *Repository) GetRun(runID string) (*Run, error) {
	query := `
		SELECT id, overlaps, scenario_lower, scenario_upper, workers, status, started_at, finished_at
		FROM runs WHERE id = ?
	`

	var run Run
	var startedAt string
	var finishedAt sql.NullString

	err := r.db.QueryRow(query, runID).Scan(
		&run.ID,
		&run.Overlaps,
		&run.ScenarioLower,
		&run.ScenarioUpper,
		&run.Workers,
		&run.Status,
		&startedAt,
		&finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt, _ = time.Parse(timeFormat, startedAt)
	if finishedAt.Valid {
		t, _ := time.Parse(timeFormat, finishedAt.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (r *Repository) ListRuns() ([]Run, error) {
	query := `
		SELECT id, overlaps, scenario_lower, scenario_upper, workers, status, started_at, finished_at
		FROM runs ORDER BY started_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(
			&run.ID,
			&run.Overlaps,
			&run.ScenarioLower,
			&run.ScenarioUpper,
			&run.Workers,
			&run.Status,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(timeFormat, startedAt)
		if finishedAt.Valid {
			t, _ := time.Parse(timeFormat, finishedAt.String)
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveScenario stores every outcome of every overlap value for one scenario
// inside a single transaction.
func (r *Repository) SaveScenario(runID string, sc sweep.Scenario, results []circuit.Result) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO scenario_results (
			run_id, scenario_index, double_prep, loss_positions,
			overlap, outcome, probability, fidelity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	prep := EncodePositions(sc.DoublePrep)
	loss := EncodePositions(sc.LossPos)

	for _, res := range results {
		for outcome, out := range res.Outcomes {
			if _, err := stmt.Exec(
				runID, sc.Index, prep, loss,
				res.Overlap, outcome, out.Probability, out.Fidelity,
			); err != nil {
				return fmt.Errorf("failed to insert scenario result: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scenario results: %w", err)
	}
	return nil
}

// ListResults returns the stored rows of a run ordered by scenario index,
// overlap and outcome, capped at limit when limit > 0.
func (r *Repository) ListResults(runID string, limit int) ([]ScenarioResult, error) {
	query := `
		SELECT id, run_id, scenario_index, double_prep, loss_positions,
		       overlap, outcome, probability, fidelity
		FROM scenario_results
		WHERE run_id = ?
		ORDER BY scenario_index, overlap, outcome
	`
	args := []interface{}{runID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []ScenarioResult
	for rows.Next() {
		var sr ScenarioResult
		if err := rows.Scan(
			&sr.ID,
			&sr.RunID,
			&sr.ScenarioIndex,
			&sr.DoublePrep,
			&sr.LossPositions,
			&sr.Overlap,
			&sr.Outcome,
			&sr.Probability,
			&sr.Fidelity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}
