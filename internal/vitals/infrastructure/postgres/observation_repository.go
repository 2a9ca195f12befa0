package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	vitals "respcare-monitor/internal/vitals/domain"
)

const defaultObservationsTable = "vital_observations"

// ObservationRepository persists one patient's observation log in Postgres.
type ObservationRepository struct {
	db        *sql.DB
	table     string
	patientID string
}

// NewObservationRepository constructs a repository scoped to patientID.
func NewObservationRepository(db *sql.DB, patientID string, opts ...RepositoryOption) *ObservationRepository {
	repo := &ObservationRepository{db: db, table: defaultObservationsTable, patientID: patientID}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*ObservationRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *ObservationRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// EnsureSchema creates the observations table when missing. observed_at is
// microsecond precision; observed_at_ns carries the exact instant.
func (r *ObservationRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("observation repo: nil db")
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	patient_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	id TEXT NOT NULL,
	signal_type TEXT NOT NULL,
	value DOUBLE PRECISION,
	unit TEXT NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	observed_at_ns BIGINT,
	severity_zone TEXT NOT NULL,
	PRIMARY KEY (patient_id, seq)
)`, r.table)); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS observed_at_ns BIGINT", r.table))
	return err
}

// Load returns the patient's observations in insertion order.
func (r *ObservationRepository) Load(ctx context.Context) ([]vitals.Observation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("observation repo: nil db")
	}
	if r.patientID == "" {
		return nil, errors.New("observation repo: empty patient id")
	}

	query := fmt.Sprintf(`
SELECT id, patient_id, signal_type, value, unit, observed_at, observed_at_ns, severity_zone
FROM %s
WHERE patient_id = $1
ORDER BY seq ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, r.patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]vitals.Observation, 0)
	for rows.Next() {
		var (
			o      vitals.Observation
			signal string
			zone   string
			value  sql.NullFloat64
			nanos  sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.PatientID, &signal, &value, &o.Unit, &o.Timestamp, &nanos, &zone); err != nil {
			return nil, err
		}
		o.Type = vitals.SignalType(signal)
		o.Zone = vitals.Zone(zone)
		if value.Valid {
			o.Value = vitals.Float(value.Float64)
		}
		if nanos.Valid {
			o.Timestamp = time.Unix(0, nanos.Int64)
		}
		o.Timestamp = o.Timestamp.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save replaces the patient's rows with observations in one transaction.
func (r *ObservationRepository) Save(ctx context.Context, observations []vitals.Observation) error {
	if r == nil || r.db == nil {
		return errors.New("observation repo: nil db")
	}
	if r.patientID == "" {
		return errors.New("observation repo: empty patient id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE patient_id = $1", r.table), r.patientID); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
	patient_id, seq, id, signal_type, value, unit, observed_at, observed_at_ns, severity_zone
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)`, r.table))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, o := range observations {
		if o.PatientID != r.patientID {
			_ = tx.Rollback()
			return fmt.Errorf("observation repo: patient mismatch at %d", i)
		}
		value := sql.NullFloat64{}
		if v, ok := o.NumericValue(); ok {
			value = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err := stmt.ExecContext(
			ctx,
			r.patientID,
			i,
			o.ID,
			string(o.Type),
			value,
			o.Unit,
			o.Timestamp.UTC(),
			o.Timestamp.UnixNano(),
			string(o.Zone),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
