// Package storage archives completed runs in a SQLite database so they
// can be listed, re-plotted and exported later. Only finished results are
// stored; populations never persist across runs.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/grt43/genetic-ode/internal/evolve"
)

// ErrNotFound is returned when a run id is absent from the archive.
var ErrNotFound = errors.New("storage: run not found")

// RunRecord is one archived run.
type RunRecord struct {
	ID          string
	CreatedAt   time.Time
	Seed        int64
	Config      string // YAML snapshot of the run configuration
	BestExpr    string
	BestFitness float64
	BestError   float64
	FoundAt     int
	Generations int
	Evals       int
	History     []evolve.Stats
	TimeData    []float64
	Positions   []float64
	Predicted   []float64
}

// Store wraps the archive database. Safe for concurrent use; database/sql
// serializes access.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    INTEGER NOT NULL,
	seed          INTEGER NOT NULL,
	config        TEXT NOT NULL,
	best_expr     TEXT NOT NULL,
	best_fitness  REAL NOT NULL,
	best_error    REAL NOT NULL,
	found_at      INTEGER NOT NULL,
	generations   INTEGER NOT NULL,
	evals         INTEGER NOT NULL,
	history       BLOB NOT NULL,
	time_data     BLOB NOT NULL,
	positions     BLOB NOT NULL,
	predicted     BLOB NOT NULL
);`

// Open creates or opens the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts rec, assigning an id and timestamp when absent, and
// returns the id.
func (s *Store) SaveRun(ctx context.Context, rec RunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	// JSON cannot carry Inf/NaN; an error of -1 marks "no finite error".
	rec.BestError = finiteOr(rec.BestError, -1)
	history := make([]evolve.Stats, len(rec.History))
	copy(history, rec.History)
	for i := range history {
		history[i].BestError = finiteOr(history[i].BestError, -1)
		history[i].MeanFitness = finiteOr(history[i].MeanFitness, 0)
	}
	rec.History = history

	historyJSON, err := json.Marshal(rec.History)
	if err != nil {
		return "", err
	}
	timeData, err := json.Marshal(rec.TimeData)
	if err != nil {
		return "", err
	}
	positions, err := json.Marshal(rec.Positions)
	if err != nil {
		return "", err
	}
	predicted, err := json.Marshal(rec.Predicted)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, seed, config, best_expr,
			best_fitness, best_error, found_at, generations, evals,
			history, time_data, positions, predicted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.CreatedAt.Unix(), rec.Seed, rec.Config, rec.BestExpr,
		rec.BestFitness, rec.BestError, rec.FoundAt, rec.Generations, rec.Evals,
		historyJSON, timeData, positions, predicted)
	if err != nil {
		return "", fmt.Errorf("storage: save run: %w", err)
	}
	return rec.ID, nil
}

// LoadRun fetches one archived run by id.
func (s *Store) LoadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, seed, config, best_expr, best_fitness,
			best_error, found_at, generations, evals, history,
			time_data, positions, predicted
		FROM runs WHERE id = ?
	`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return rec, err
}

// ListRuns returns all archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, seed, config, best_expr, best_fitness,
			best_error, found_at, generations, evals, history,
			time_data, positions, predicted
		FROM runs ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRun removes a run from the archive.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var created int64
	var history, timeData, positions, predicted []byte

	err := row.Scan(&rec.ID, &created, &rec.Seed, &rec.Config, &rec.BestExpr,
		&rec.BestFitness, &rec.BestError, &rec.FoundAt, &rec.Generations,
		&rec.Evals, &history, &timeData, &positions, &predicted)
	if err != nil {
		return RunRecord{}, err
	}
	rec.CreatedAt = time.Unix(created, 0).UTC()

	if err := json.Unmarshal(history, &rec.History); err != nil {
		return RunRecord{}, fmt.Errorf("storage: decode history for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(timeData, &rec.TimeData); err != nil {
		return RunRecord{}, fmt.Errorf("storage: decode time data for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(positions, &rec.Positions); err != nil {
		return RunRecord{}, fmt.Errorf("storage: decode positions for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(predicted, &rec.Predicted); err != nil {
		return RunRecord{}, fmt.Errorf("storage: decode prediction for %s: %w", rec.ID, err)
	}
	return rec, nil
}
