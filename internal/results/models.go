// Package results persists sweep output to sqlite and aggregates it into
// summary statistics.
package results

import (
	"strconv"
	"strings"
	"time"
)

// Run records one sweep invocation and its parameters.
type Run struct {
	ID            string     `json:"id"`
	Overlaps      string     `json:"overlaps"`
	ScenarioLower int        `json:"scenario_lower"`
	ScenarioUpper int        `json:"scenario_upper"`
	Workers       int        `json:"workers"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Run statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// ScenarioResult is one heralding outcome of one scenario at one overlap
// value. A full scenario stores NumOutcomes rows per overlap.
type ScenarioResult struct {
	ID            int64   `json:"id"`
	RunID         string  `json:"run_id"`
	ScenarioIndex int     `json:"scenario_index"`
	DoublePrep    string  `json:"double_prep"`
	LossPositions string  `json:"loss_positions"`
	Overlap       float64 `json:"overlap"`
	Outcome       int     `json:"outcome"`
	Probability   float64 `json:"probability"`
	Fidelity      float64 `json:"fidelity"`
}

// RunSummary aggregates the stored results of a run.
type RunSummary struct {
	RunID           string  `json:"run_id"`
	Scenarios       int     `json:"scenarios"`
	Rows            int     `json:"rows"`
	MeanFidelity    float64 `json:"mean_fidelity"`
	StdDevFidelity  float64 `json:"stddev_fidelity"`
	MinFidelity     float64 `json:"min_fidelity"`
	MaxFidelity     float64 `json:"max_fidelity"`
	MeanProbability float64 `json:"mean_probability"`
	TotalSuccess    float64 `json:"total_success_probability"`
}

// EncodePositions renders an index list as a pipe-separated string for
// storage, e.g. [0 3] -> "0|3".
func EncodePositions(positions []int) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, "|")
}

// DecodePositions parses the pipe-separated form back into indices.
func DecodePositions(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
