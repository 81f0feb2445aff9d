package bookingtoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL booking token repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

func (r *PostgresRepository) Create(ctx context.Context, tok *BookingToken) error {
	query := `
		INSERT INTO booking_tokens (
			id, email, brand, position, destination_url, status,
			issued_at, expires_at, used_at, issued_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		tok.ID,
		tok.SubjectKey.Email,
		tok.SubjectKey.Brand,
		tok.SubjectKey.Position,
		tok.DestinationURL,
		tok.Status,
		tok.IssuedAt,
		tok.ExpiresAt,
		tok.UsedAt,
		tok.IssuedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking token: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*BookingToken, error) {
	query := `
		SELECT id, email, brand, position, destination_url, status,
			issued_at, expires_at, used_at, issued_by
		FROM booking_tokens
		WHERE id = $1
	`

	tok, err := scanToken(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get booking token: %w", err)
	}

	return tok, nil
}

func (r *PostgresRepository) FindBySubjectKey(ctx context.Context, key subject.Key) ([]*BookingToken, error) {
	query := `
		SELECT id, email, brand, position, destination_url, status,
			issued_at, expires_at, used_at, issued_by
		FROM booking_tokens
		WHERE email = $1 AND brand = $2 AND position = $3
		ORDER BY issued_at DESC
	`

	rows, err := r.pool.Query(ctx, query, key.Email, key.Brand, key.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to find booking tokens: %w", err)
	}
	defer rows.Close()

	var out []*BookingToken
	for rows.Next() {
		tok, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking token: %w", err)
		}
		out = append(out, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read booking tokens: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expectStatus, newStatus Status, usedAt *time.Time) (bool, error) {
	query := `
		UPDATE booking_tokens
		SET status = $1, used_at = COALESCE($2, used_at)
		WHERE id = $3 AND status = $4
	`

	tag, err := r.pool.Exec(ctx, query, newStatus, usedAt, id, expectStatus)
	if err != nil {
		return false, fmt.Errorf("failed to update booking token: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) RevokeActive(ctx context.Context, key subject.Key) (int64, error) {
	query := `
		UPDATE booking_tokens
		SET status = $1
		WHERE email = $2 AND brand = $3 AND position = $4 AND status IN ($5, $6)
	`

	tag, err := r.pool.Exec(ctx, query, StatusRevoked, key.Email, key.Brand, key.Position, StatusIssued, StatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke booking tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE booking_tokens
		SET status = $1
		WHERE status IN ($2, $3) AND expires_at < $4
	`

	tag, err := r.pool.Exec(ctx, query, StatusExpired, StatusIssued, StatusConfirmed, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*BookingToken, error) {
	tok := &BookingToken{}
	var usedAt sql.NullTime

	err := row.Scan(
		&tok.ID,
		&tok.SubjectKey.Email,
		&tok.SubjectKey.Brand,
		&tok.SubjectKey.Position,
		&tok.DestinationURL,
		&tok.Status,
		&tok.IssuedAt,
		&tok.ExpiresAt,
		&usedAt,
		&tok.IssuedBy,
	)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		tok.UsedAt = &usedAt.Time
	}

	return tok, nil
}
