// Package postgres persists authenticity records to PostgreSQL. Nullable
// diagnostic columns map 1:1 to the record's pointer fields, so a missing
// diagnostic lands as SQL NULL and never as zero.
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"authscreen/domain/screening"
	"authscreen/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS authenticity_records (
	run_id            TEXT NOT NULL,
	participant_id    TEXT NOT NULL,
	is_authentic      BOOLEAN NOT NULL,
	n_answered        INTEGER NOT NULL,
	avg_logpost       DOUBLE PRECISION,
	lz                DOUBLE PRECISION,
	weight            DOUBLE PRECISION,
	quintile          INTEGER,
	eta_full          DOUBLE PRECISION,
	eta_holdout       DOUBLE PRECISION,
	cooks_d           DOUBLE PRECISION,
	cooks_d_scaled    DOUBLE PRECISION,
	influential_4     BOOLEAN,
	influential_n     BOOLEAN,
	converged_main    BOOLEAN,
	converged_holdout BOOLEAN,
	weight_capped     BOOLEAN,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, participant_id)
);`

const insertRecord = `
INSERT INTO authenticity_records (
	run_id, participant_id, is_authentic, n_answered,
	avg_logpost, lz, weight, quintile,
	eta_full, eta_holdout,
	cooks_d, cooks_d_scaled, influential_4, influential_n,
	converged_main, converged_holdout, weight_capped
) VALUES (
	:run_id, :participant_id, :is_authentic, :n_answered,
	:avg_logpost, :lz, :weight, :quintile,
	:eta_full, :eta_holdout,
	:cooks_d, :cooks_d_scaled, :influential_4, :influential_n,
	:converged_main, :converged_holdout, :weight_capped
)
ON CONFLICT (run_id, participant_id) DO UPDATE SET
	avg_logpost = EXCLUDED.avg_logpost,
	lz = EXCLUDED.lz,
	weight = EXCLUDED.weight,
	quintile = EXCLUDED.quintile,
	eta_full = EXCLUDED.eta_full,
	eta_holdout = EXCLUDED.eta_holdout,
	cooks_d = EXCLUDED.cooks_d,
	cooks_d_scaled = EXCLUDED.cooks_d_scaled,
	influential_4 = EXCLUDED.influential_4,
	influential_n = EXCLUDED.influential_n,
	converged_main = EXCLUDED.converged_main,
	converged_holdout = EXCLUDED.converged_holdout,
	weight_capped = EXCLUDED.weight_capped`

// Repository is the sqlx-backed RecordRepository
type Repository struct {
	db *sqlx.DB
}

// NewRepository connects and ensures the schema exists
func NewRepository(databaseURL string) (*Repository, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "postgres connect")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "schema init")
	}
	return &Repository{db: db}, nil
}

// Close releases the connection pool
func (r *Repository) Close() error {
	return r.db.Close()
}

// recordRow pairs one record with its run for named binding
type recordRow struct {
	RunID string `db:"run_id"`
	screening.AuthenticityRecord
}

// SaveRecords writes all records in one transaction; a rerun of the same
// run ID overwrites its previous rows.
func (r *Repository) SaveRecords(ctx context.Context, runID string, records []screening.AuthenticityRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save")
	}
	defer tx.Rollback()

	for _, rec := range records {
		if _, err := tx.NamedExecContext(ctx, insertRecord, recordRow{RunID: runID, AuthenticityRecord: rec}); err != nil {
			return errors.Wrapf(err, "save record %s", rec.ParticipantID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit save")
	}
	return nil
}
