package results

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates all stored rows of a run. Fidelity statistics are
// weighted by heralding probability, so rare outcomes do not dominate the
// mean.
func (r *Repository) Summary(runID string) (*RunSummary, error) {
	rows, err := r.db.Query(
		"SELECT probability, fidelity FROM scenario_results WHERE run_id = ?",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary rows: %w", err)
	}
	defer rows.Close()

	var probs, fids []float64
	for rows.Next() {
		var p, f float64
		if err := rows.Scan(&p, &f); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		probs = append(probs, p)
		fids = append(fids, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary := &RunSummary{RunID: runID, Rows: len(fids)}
	if len(fids) == 0 {
		return summary, nil
	}

	var scenarios int
	if err := r.db.QueryRow(
		"SELECT COUNT(DISTINCT scenario_index) FROM scenario_results WHERE run_id = ?",
		runID,
	).Scan(&scenarios); err != nil {
		return nil, fmt.Errorf("failed to count scenarios: %w", err)
	}
	summary.Scenarios = scenarios

	summary.MinFidelity = floats.Min(fids)
	summary.MaxFidelity = floats.Max(fids)
	summary.MeanProbability = stat.Mean(probs, nil)
	summary.TotalSuccess = floats.Sum(probs)

	if summary.TotalSuccess > 0 {
		summary.MeanFidelity = stat.Mean(fids, probs)
		// Population form: gonum's weighted sample correction divides by
		// the weight sum minus one, which is negative for heralding
		// probabilities.
		dev := make([]float64, len(fids))
		for i, f := range fids {
			d := f - summary.MeanFidelity
			dev[i] = d * d
		}
		summary.StdDevFidelity = math.Sqrt(stat.Mean(dev, probs))
	} else {
		// All heralding probabilities zero leaves nothing to weight by.
		summary.MeanFidelity = stat.Mean(fids, nil)
		if len(fids) > 1 {
			summary.StdDevFidelity = stat.StdDev(fids, nil)
		}
	}
	return summary, nil
}
