package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// PostgresDirectory implements CandidateDirectory over the candidates table.
// The table is maintained by the recruiting import, this side only reads.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a directory backed by a pgx pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{
		pool: pool,
	}
}

func (d *PostgresDirectory) Lookup(ctx context.Context, key subject.Key) (*Candidate, error) {
	query := `
		SELECT email, full_name, resolution_key, destination_url
		FROM candidates
		WHERE email = $1 AND brand = $2 AND position = $3
		LIMIT 2
	`

	rows, err := d.pool.Query(ctx, query, key.Email, key.Brand, key.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var matches []*Candidate
	for rows.Next() {
		var cand Candidate
		if err := rows.Scan(&cand.Email, &cand.FullName, &cand.ResolutionKey, &cand.Destination); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		matches = append(matches, &cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading candidates: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousMatch
	}
}

// PostgresResolver implements BookingResolver over the booking_destinations
// table.
type PostgresResolver struct {
	pool *pgxpool.Pool
}

// NewPostgresResolver creates a resolver backed by a pgx pool.
func NewPostgresResolver(pool *pgxpool.Pool) *PostgresResolver {
	return &PostgresResolver{
		pool: pool,
	}
}

func (r *PostgresResolver) Resolve(ctx context.Context, resolutionKey string) (*Destination, error) {
	query := `
		SELECT url, recruiter, active
		FROM booking_destinations
		WHERE resolution_key = $1
	`

	var dest Destination
	var active bool
	err := r.pool.QueryRow(ctx, query, resolutionKey).Scan(&dest.URL, &dest.Recruiter, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("failed to query booking destination: %w", err)
	}
	if !active {
		return nil, ErrInactive
	}

	return &dest, nil
}
