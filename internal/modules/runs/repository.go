// Package runs persists optimization run history: one record per completed
// optimization with its problem parameters, winning circuit parameters, and
// the resulting probability distribution.
package runs

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// LayerParams is one stored (gamma, beta) circuit layer.
type LayerParams struct {
	Gamma float64 `json:"gamma" msgpack:"gamma"`
	Beta  float64 `json:"beta" msgpack:"beta"`
}

// Run is a stored optimization run.
type Run struct {
	UUID         string        `json:"uuid"`
	CreatedAt    time.Time     `json:"created_at"`
	Assets       int           `json:"assets"`
	Budget       int           `json:"budget"`
	Penalty      float64       `json:"penalty"`
	Layers       int           `json:"layers"`
	GridGamma    int           `json:"grid_gamma"`
	GridBeta     int           `json:"grid_beta"`
	BitString    string        `json:"bitstring"`
	Cost         float64       `json:"cost"`
	Expectation  float64       `json:"expectation"`
	Feasible     bool          `json:"feasible"`
	Parameters   []LayerParams `json:"parameters"`
	Distribution []float64     `json:"distribution,omitempty"`
}

// Repository handles CRUD operations for optimization runs.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new run repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Init creates the runs table if it does not exist.
func (r *Repository) Init() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			uuid         TEXT PRIMARY KEY,
			created_at   INTEGER NOT NULL,
			assets       INTEGER NOT NULL,
			budget       INTEGER NOT NULL,
			penalty      REAL NOT NULL,
			layers       INTEGER NOT NULL,
			grid_gamma   INTEGER NOT NULL,
			grid_beta    INTEGER NOT NULL,
			bitstring    TEXT NOT NULL,
			cost         REAL NOT NULL,
			expectation  REAL NOT NULL,
			feasible     INTEGER NOT NULL,
			parameters   BLOB,
			distribution BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// Create stores a new run and returns its generated UUID. The parameter and
// distribution vectors are serialized as compact msgpack blobs.
func (r *Repository) Create(run Run) (string, error) {
	paramsBlob, err := msgpack.Marshal(run.Parameters)
	if err != nil {
		return "", fmt.Errorf("failed to serialize parameters: %w", err)
	}
	distBlob, err := msgpack.Marshal(run.Distribution)
	if err != nil {
		return "", fmt.Errorf("failed to serialize distribution: %w", err)
	}

	newUUID := uuid.New().String()
	_, err = r.db.Exec(`
		INSERT INTO runs
		(uuid, created_at, assets, budget, penalty, layers, grid_gamma, grid_beta,
		 bitstring, cost, expectation, feasible, parameters, distribution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		newUUID,
		time.Now().Unix(),
		run.Assets,
		run.Budget,
		run.Penalty,
		run.Layers,
		run.GridGamma,
		run.GridBeta,
		run.BitString,
		run.Cost,
		run.Expectation,
		boolToInt(run.Feasible),
		paramsBlob,
		distBlob,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	r.log.Debug().Str("uuid", newUUID).Str("bitstring", run.BitString).Msg("Stored optimization run")
	return newUUID, nil
}

// Get returns a single run by UUID, including its deserialized parameter and
// distribution vectors. Returns sql.ErrNoRows when the run does not exist.
func (r *Repository) Get(runUUID string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT uuid, created_at, assets, budget, penalty, layers, grid_gamma, grid_beta,
		       bitstring, cost, expectation, feasible, parameters, distribution
		FROM runs
		WHERE uuid = ?
	`, runUUID)

	run, err := scanRun(row, true)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs, newest first, without the distribution
// payload (it can be large; fetch a single run to get it).
func (r *Repository) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT uuid, created_at, assets, budget, penalty, layers, grid_gamma, grid_beta,
		       bitstring, cost, expectation, feasible, parameters, distribution
		FROM runs
		ORDER BY created_at DESC, uuid
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var result []Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		result = append(result, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return result, nil
}

// PruneOlderThan deletes runs created before the cutoff and returns the
// number of deleted rows.
func (r *Repository) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Pruned old optimization runs")
	}
	return deleted, nil
}

// scanner abstracts sql.Row and sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRun reads one run row. withDistribution controls whether the
// distribution blob is deserialized into the result.
func scanRun(s scanner, withDistribution bool) (*Run, error) {
	var run Run
	var createdAt int64
	var feasible int
	var paramsBlob, distBlob []byte

	if err := s.Scan(
		&run.UUID,
		&createdAt,
		&run.Assets,
		&run.Budget,
		&run.Penalty,
		&run.Layers,
		&run.GridGamma,
		&run.GridBeta,
		&run.BitString,
		&run.Cost,
		&run.Expectation,
		&feasible,
		&paramsBlob,
		&distBlob,
	); err != nil {
		return nil, err
	}

	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.Feasible = feasible != 0

	if len(paramsBlob) > 0 {
		if err := msgpack.Unmarshal(paramsBlob, &run.Parameters); err != nil {
			return nil, fmt.Errorf("failed to deserialize parameters for run %s: %w", run.UUID, err)
		}
	}
	if withDistribution && len(distBlob) > 0 {
		if err := msgpack.Unmarshal(distBlob, &run.Distribution); err != nil {
			return nil, fmt.Errorf("failed to deserialize distribution for run %s: %w", run.UUID, err)
		}
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
