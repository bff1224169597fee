package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nabahah/riskscore/internal/risk"
	"go.uber.org/zap"
)

const selectColumns = `id, created_at, client_ip,
	device_type, location_match, time_anomaly, transaction_sensitivity, recent_failed_attempts,
	risk_score`

// PostgresStore persists assessments to the risk_assessments table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, r *Record) error {
	in := r.Input
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO risk_assessments (id, created_at, client_ip,
			device_type, location_match, time_anomaly, transaction_sensitivity, recent_failed_attempts,
			risk_score, level, action)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.CreatedAt, r.ClientIP,
		in.DeviceType, in.LocationMatch, in.TimeAnomaly, in.TransactionSensitivity, in.RecentFailedAttempts,
		r.RiskScore, string(r.Level), string(r.Action),
	); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	s.logger.Debug("assessment stored",
		zap.String("id", r.ID.String()),
		zap.Int("risk_score", r.RiskScore),
		zap.String("action", string(r.Action)),
	)
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM risk_assessments WHERE id = $1`, id)
	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return r, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM risk_assessments ORDER BY created_at DESC LIMIT $1`,
		clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Len implements Store.
func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM risk_assessments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return n, nil
}

// scanRecord rebuilds a record. Level, action and the Arabic texts are
// derived from the stored score rather than read back.
func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r     Record
		f     risk.Features
		score int
	)
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.ClientIP,
		&f.DeviceType, &f.LocationMatch, &f.TimeAnomaly, &f.TransactionSensitivity, &f.RecentFailedAttempts,
		&score,
	); err != nil {
		return nil, err
	}
	r.Assessment = risk.NewAssessment(score, f)
	return &r, nil
}
