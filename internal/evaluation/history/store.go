// Package history records evaluation runs in PostgreSQL so metric changes
// can be compared across index builds.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
    run_id       TEXT PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL,
    fingerprint  TEXT NOT NULL DEFAULT '',
    k            INTEGER NOT NULL,
    result_limit INTEGER NOT NULL,
    report       JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS evaluation_field_scores (
    run_id      TEXT NOT NULL REFERENCES evaluation_runs(run_id) ON DELETE CASCADE,
    field       TEXT NOT NULL,
    mean_p_at_k DOUBLE PRECISION NOT NULL,
    mean_p_at_r DOUBLE PRECISION NOT NULL,
    map         DOUBLE PRECISION NOT NULL,
    evaluated   INTEGER NOT NULL,
    skipped     INTEGER NOT NULL,
    PRIMARY KEY (run_id, field)
);
CREATE INDEX IF NOT EXISTS evaluation_runs_started_at ON evaluation_runs (started_at DESC);
`

// RunSummary is one row of the run listing.
type RunSummary struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	Fingerprint string       `json:"fingerprint"`
	Fields      []FieldScore `json:"fields"`
}

type FieldScore struct {
	Field            string  `json:"field"`
	MeanPrecisionAtK float64 `json:"mean_precision_at_k"`
	MeanPrecisionAtR float64 `json:"mean_precision_at_r"`
	MAP              float64 `json:"map"`
	Evaluated        int     `json:"evaluated"`
	Skipped          int     `json:"skipped"`
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "history-store"),
	}
}

// Migrate creates the history tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating history schema: %w", err)
	}
	return nil
}

// Save stores a report and its per-field means in one transaction.
func (s *Store) Save(ctx context.Context, r *evaluation.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evaluation_runs (run_id, started_at, duration_ms, fingerprint, k, result_limit, report)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.RunID, r.StartedAt, r.Duration.Milliseconds(), r.Fingerprint, r.K, r.Limit, data,
		)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		for _, fr := range r.Fields {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO evaluation_field_scores (run_id, field, mean_p_at_k, mean_p_at_r, map, evaluated, skipped)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				r.RunID, fr.Field, fr.MeanPrecisionAtK, fr.MeanPrecisionAtR, fr.MAP, fr.Evaluated, fr.Skipped,
			)
			if err != nil {
				return fmt.Errorf("inserting scores for field %s: %w", fr.Field, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving evaluation run: %w", err)
	}
	s.logger.Info("evaluation run saved", "run_id", r.RunID, "fields", len(r.Fields))
	return nil
}

// Load returns the full report of a run, or nil, nil if it does not exist.
func (s *Store) Load(ctx context.Context, runID string) (*evaluation.Report, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT report FROM evaluation_runs WHERE run_id = $1`, runID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}
	var r evaluation.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling run %s: %w", runID, err)
	}
	return &r, nil
}

// List returns the last limit runs, newest first, with their field means
// in field name order.
func (s *Store) List(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT r.run_id, r.started_at, r.fingerprint,
		        f.field, f.mean_p_at_k, f.mean_p_at_r, f.map, f.evaluated, f.skipped
		   FROM (SELECT run_id, started_at, fingerprint FROM evaluation_runs
		          ORDER BY started_at DESC LIMIT $1) r
		   JOIN evaluation_field_scores f ON f.run_id = r.run_id
		  ORDER BY r.started_at DESC, r.run_id, f.field`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run   RunSummary
			score FieldScore
		)
		if err := rows.Scan(&run.RunID, &run.StartedAt, &run.Fingerprint,
			&score.Field, &score.MeanPrecisionAtK, &score.MeanPrecisionAtR, &score.MAP, &score.Evaluated, &score.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if n := len(runs); n == 0 || runs[n-1].RunID != run.RunID {
			runs = append(runs, run)
		}
		last := &runs[len(runs)-1]
		last.Fields = append(last.Fields, score)
	}
	return runs, rows.Err()
}
