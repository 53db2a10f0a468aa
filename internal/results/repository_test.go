package results

import (
	"database/sql"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/openphotonics/focksim/internal/circuit"
	"github.com/openphotonics/focksim/internal/sweep"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a fresh database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(db))
	return NewRepository(db, zerolog.Nop())
}

func TestEncodeDecodePositions(t *testing.T) {
	assert.Equal(t, "", EncodePositions(nil))
	assert.Equal(t, "0|3|17", EncodePositions([]int{0, 3, 17}))

	decoded, err := DecodePositions("0|3|17")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 17}, decoded)

	decoded, err = DecodePositions("")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = DecodePositions("0|x")
	assert.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	run := &Run{
		ID:            "run-1",
		Overlaps:      "0.95|1",
		ScenarioLower: 0,
		ScenarioUpper: 10,
		Workers:       4,
	}
	require.NoError(t, repo.CreateRun(run))
	assert.Equal(t, StatusRunning, run.Status)

	got, err := repo.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, repo.FinishRun("run-1", StatusFinished))

	got, err = repo.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, got.Status)
	require.NotNil(t, got.FinishedAt)

	missing, err := repo.GetRun("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	runs, err := repo.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func scenarioFixture() (sweep.Scenario, []circuit.Result) {
	sc := sweep.Scenario{Index: 42, DoublePrep: []int{1}, LossPos: []int{5}}
	res := []circuit.Result{{
		Overlap: 0.95,
		Outcomes: [circuit.NumOutcomes]circuit.Outcome{
			{Probability: 0.01, Fidelity: 0.9},
			{Probability: 0.02, Fidelity: 0.8},
		},
	}}
	return sc, res
}

func TestSaveScenarioAndListResults(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateRun(&Run{ID: "run-1"}))

	sc, res := scenarioFixture()
	require.NoError(t, repo.SaveScenario("run-1", sc, res))

	rows, err := repo.ListResults("run-1", 0)
	require.NoError(t, err)
	require.Len(t, rows, circuit.NumOutcomes)

	assert.Equal(t, 42, rows[0].ScenarioIndex)
	assert.Equal(t, "1", rows[0].DoublePrep)
	assert.Equal(t, "5", rows[0].LossPositions)
	assert.Equal(t, 0.95, rows[0].Overlap)
	assert.Equal(t, 0, rows[0].Outcome)
	assert.InDelta(t, 0.01, rows[0].Probability, 1e-12)
	assert.InDelta(t, 0.9, rows[0].Fidelity, 1e-12)
	assert.Equal(t, 1, rows[1].Outcome)

	limited, err := repo.ListResults("run-1", 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestSummaryWeightsByProbability(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateRun(&Run{ID: "run-1"}))

	sc, res := scenarioFixture()
	require.NoError(t, repo.SaveScenario("run-1", sc, res))

	sc2 := sweep.Scenario{Index: 43, DoublePrep: []int{0}, LossPos: []int{1}}
	require.NoError(t, repo.SaveScenario("run-1", sc2, res))

	summary, err := repo.Summary("run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scenarios)
	assert.Equal(t, 2*circuit.NumOutcomes, summary.Rows)

	// Weighted mean of fidelities 0.9 (weight 0.01) and 0.8 (weight 0.02),
	// zero-probability outcomes contribute nothing.
	assert.InDelta(t, (0.9*0.01+0.8*0.02)/0.03, summary.MeanFidelity, 1e-9)
	assert.InDelta(t, 0.047140452, summary.StdDevFidelity, 1e-9)
	assert.InDelta(t, 0.0, summary.MinFidelity, 1e-12)
	assert.InDelta(t, 0.9, summary.MaxFidelity, 1e-12)
	assert.InDelta(t, 2*0.03, summary.TotalSuccess, 1e-12)
	assert.False(t, math.IsNaN(summary.StdDevFidelity))
}

func TestSummaryZeroProbabilityRows(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateRun(&Run{ID: "run-1"}))

	// A scenario whose every heralding outcome has probability zero, e.g.
	// after total loss. The summary must stay finite so it can be encoded.
	sc := sweep.Scenario{Index: 0, LossPos: []int{0, 1}}
	require.NoError(t, repo.SaveScenario("run-1", sc, []circuit.Result{{Overlap: 0.95}}))

	summary, err := repo.Summary("run-1")
	require.NoError(t, err)
	assert.Equal(t, circuit.NumOutcomes, summary.Rows)
	assert.False(t, math.IsNaN(summary.MeanFidelity))
	assert.False(t, math.IsNaN(summary.StdDevFidelity))
	assert.Equal(t, 0.0, summary.MeanFidelity)
	assert.Equal(t, 0.0, summary.TotalSuccess)
}

func TestSummaryEmptyRun(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.CreateRun(&Run{ID: "run-1"}))

	summary, err := repo.Summary("run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Rows)
	assert.Equal(t, 0, summary.Scenarios)
}
