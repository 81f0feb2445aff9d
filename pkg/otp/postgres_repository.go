package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// PostgresRepository implements Repository using PostgreSQL. Conditional
// updates are expressed as single UPDATE statements guarded on the current
// status/attempts, checked through rows-affected.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL verification record repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *VerificationRecord) error {
	query := `
		INSERT INTO verification_records (
			id, email, brand, position, code, status, attempts,
			created_at, expires_at, bound_resource
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.SubjectKey.Email,
		rec.SubjectKey.Brand,
		rec.SubjectKey.Position,
		rec.Code,
		rec.Status,
		rec.Attempts,
		rec.CreatedAt,
		rec.ExpiresAt,
		rec.BoundResource,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification record: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*VerificationRecord, error) {
	query := `
		SELECT id, email, brand, position, code, status, attempts,
			created_at, expires_at, bound_resource
		FROM verification_records
		WHERE id = $1
	`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get verification record: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) FindBySubjectKey(ctx context.Context, key subject.Key) ([]*VerificationRecord, error) {
	query := `
		SELECT id, email, brand, position, code, status, attempts,
			created_at, expires_at, bound_resource
		FROM verification_records
		WHERE email = $1 AND brand = $2 AND position = $3
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, key.Email, key.Brand, key.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to find verification records: %w", err)
	}
	defer rows.Close()

	var out []*VerificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read verification records: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) SupersedePending(ctx context.Context, key subject.Key) (int64, error) {
	query := `
		UPDATE verification_records
		SET status = $1
		WHERE email = $2 AND brand = $3 AND position = $4 AND status = $5
	`

	tag, err := r.pool.Exec(ctx, query, StatusSuperseded, key.Email, key.Brand, key.Position, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to supersede pending records: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) CompareAndSwap(ctx context.Context, id uuid.UUID, expectStatus Status, expectAttempts int32, newStatus Status, newAttempts int32) (bool, error) {
	query := `
		UPDATE verification_records
		SET status = $1, attempts = $2
		WHERE id = $3 AND status = $4 AND attempts = $5
	`

	tag, err := r.pool.Exec(ctx, query, newStatus, newAttempts, id, expectStatus, expectAttempts)
	if err != nil {
		return false, fmt.Errorf("failed to update verification record: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE verification_records
		SET status = $1
		WHERE status = $2 AND expires_at < $3
	`

	tag, err := r.pool.Exec(ctx, query, StatusExpired, StatusPending, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue records: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*VerificationRecord, error) {
	rec := &VerificationRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.SubjectKey.Email,
		&rec.SubjectKey.Brand,
		&rec.SubjectKey.Position,
		&rec.Code,
		&rec.Status,
		&rec.Attempts,
		&rec.CreatedAt,
		&rec.ExpiresAt,
		&rec.BoundResource,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
