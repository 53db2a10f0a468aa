package results

import "database/sql"

// Schema holds the runs and scenario_results tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    overlaps TEXT NOT NULL,
    scenario_lower INTEGER NOT NULL,
    scenario_upper INTEGER NOT NULL,
    workers INTEGER NOT NULL,
    status TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS scenario_results (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id),
    scenario_index INTEGER NOT NULL,
    double_prep TEXT NOT NULL,
    loss_positions TEXT NOT NULL,
    overlap REAL NOT NULL,
    outcome INTEGER NOT NULL,
    probability REAL NOT NULL,
    fidelity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scenario_results_run ON scenario_results(run_id);
CREATE INDEX IF NOT EXISTS idx_scenario_results_scenario ON scenario_results(run_id, scenario_index);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
