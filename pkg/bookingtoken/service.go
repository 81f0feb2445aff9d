// Package bookingtoken manages single-use links to an external booking
// destination. The API is split into a non-destructive confirm view (bound to
// HTTP GET, safe against mail-scanner prefetch) and an explicit redeem (bound
// to POST) that burns the token exactly once.
package bookingtoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// Engine issues, confirms, redeems, and revokes booking tokens. It holds no
// state between calls; correctness under concurrency comes from the
// repository's conditional updates.
type Engine struct {
	repo     Repository
	tokenTTL time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTokenTTL sets how long an issued token stays redeemable.
func WithTokenTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.tokenTTL = ttl
	}
}

// NewEngine creates a booking token engine backed by the given repository.
func NewEngine(repo Repository, opts ...EngineOption) *Engine {
	engine := &Engine{
		repo:     repo,
		tokenTTL: defaultTokenTTL,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Issue creates a new issued token bound to the destination. Prior tokens for
// the subject are left alone; Reissue is the explicit supersede path.
func (e *Engine) Issue(ctx context.Context, key subject.Key, destinationURL, issuedBy string) (*BookingToken, error) {
	if destinationURL == "" {
		return nil, fmt.Errorf("destination URL is required")
	}

	now := time.Now().UTC()
	tok := &BookingToken{
		ID:             uuid.New(),
		SubjectKey:     key,
		DestinationURL: destinationURL,
		Status:         StatusIssued,
		IssuedAt:       now,
		ExpiresAt:      now.Add(e.tokenTTL),
		IssuedBy:       issuedBy,
	}

	if err := e.repo.Create(ctx, tok); err != nil {
		slog.Error("Failed to create booking token", "subject", key.Canonical(), "error", err)
		return nil, fmt.Errorf("failed to create booking token: %w", err)
	}

	slog.Info("Booking token issued", "token_id", tok.ID, "issued_by", issuedBy, "expires_at", tok.ExpiresAt)
	return tok, nil
}

// ConfirmView is the non-destructive read behind the confirmation page. The
// first view moves issued to confirmed; every further view is a no-op. It can
// never move a token to used, which is what makes a prefetching scanner
// harmless.
func (e *Engine) ConfirmView(ctx context.Context, id uuid.UUID, now time.Time) (string, error) {
	tok, err := e.lazyExpire(ctx, id, now)
	if err != nil {
		return "", err
	}

	switch tok.Status {
	case StatusConfirmed:
		return tok.DestinationURL, nil
	case StatusIssued:
		ok, err := e.repo.CompareAndSwapStatus(ctx, id, StatusIssued, StatusConfirmed, nil)
		if err != nil {
			return "", fmt.Errorf("failed to confirm booking token: %w", err)
		}
		if !ok {
			// Lost to a concurrent confirm or redeem; re-read and report the
			// surviving state.
			return e.ConfirmView(ctx, id, now)
		}
		slog.Info("Booking token confirmed", "token_id", id)
		return tok.DestinationURL, nil
	default:
		return "", statusError(tok.Status)
	}
}

// Redeem burns the token and returns its destination. Exactly one redeem per
// token ever succeeds; every later call fails with ErrTokenAlreadyUsed.
func (e *Engine) Redeem(ctx context.Context, id uuid.UUID, now time.Time) (string, error) {
	tok, err := e.lazyExpire(ctx, id, now)
	if err != nil {
		return "", err
	}

	if tok.Status != StatusIssued && tok.Status != StatusConfirmed {
		return "", statusError(tok.Status)
	}

	usedAt := now.UTC()
	ok, err := e.repo.CompareAndSwapStatus(ctx, id, tok.Status, StatusUsed, &usedAt)
	if err != nil {
		return "", fmt.Errorf("failed to redeem booking token: %w", err)
	}
	if !ok {
		// A concurrent confirm may have moved issued to confirmed under us;
		// one retry resolves that. A concurrent redeem or revoke surfaces as
		// the terminal status on re-read.
		cur, err := e.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return "", ErrTokenNotFound
			}
			return "", fmt.Errorf("failed to re-read booking token: %w", err)
		}
		if cur.Status == StatusConfirmed {
			ok, err := e.repo.CompareAndSwapStatus(ctx, id, StatusConfirmed, StatusUsed, &usedAt)
			if err != nil {
				return "", fmt.Errorf("failed to redeem booking token: %w", err)
			}
			if ok {
				slog.Info("Booking token redeemed", "token_id", id)
				return cur.DestinationURL, nil
			}
			cur, err = e.repo.GetByID(ctx, id)
			if err != nil {
				return "", fmt.Errorf("failed to re-read booking token: %w", err)
			}
		}
		return "", statusError(cur.Status)
	}

	slog.Info("Booking token redeemed", "token_id", id)
	return tok.DestinationURL, nil
}

// RevokeActive transitions every non-terminal token for the subject to
// revoked and returns the count.
func (e *Engine) RevokeActive(ctx context.Context, key subject.Key, actor string) (int64, error) {
	n, err := e.repo.RevokeActive(ctx, key)
	if err != nil {
		slog.Error("Failed to revoke booking tokens", "subject", key.Canonical(), "error", err)
		return 0, fmt.Errorf("failed to revoke booking tokens: %w", err)
	}

	slog.Info("Booking tokens revoked", "subject", key.Canonical(), "count", n, "actor", actor)
	return n, nil
}

// ReissueResult reports the outcome of an admin reissue.
type ReissueResult struct {
	RevokedCount int64
	Token        *BookingToken
}

// Reissue revokes all active tokens for the subject and issues a fresh one,
// as a single operation from the caller's perspective. After it returns, at
// most one live token exists for the subject.
func (e *Engine) Reissue(ctx context.Context, key subject.Key, destinationURL, actor string) (*ReissueResult, error) {
	revoked, err := e.RevokeActive(ctx, key, actor)
	if err != nil {
		return nil, err
	}

	tok, err := e.Issue(ctx, key, destinationURL, actor)
	if err != nil {
		return nil, err
	}

	return &ReissueResult{
		RevokedCount: revoked,
		Token:        tok,
	}, nil
}

// ExpireOverdue proactively expires issued/confirmed tokens past their window.
// Called by the advisory sweeper.
func (e *Engine) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return e.repo.ExpireOverdue(ctx, now)
}

// lazyExpire loads the token and persists the expired transition when the
// window has passed, before any operation is evaluated.
func (e *Engine) lazyExpire(ctx context.Context, id uuid.UUID, now time.Time) (*BookingToken, error) {
	tok, err := e.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load booking token: %w", err)
	}

	if (tok.Status == StatusIssued || tok.Status == StatusConfirmed) && now.After(tok.ExpiresAt) {
		if _, err := e.repo.CompareAndSwapStatus(ctx, id, tok.Status, StatusExpired, nil); err != nil {
			slog.Error("Failed to expire booking token", "token_id", id, "error", err)
		}
		return nil, ErrTokenExpired
	}

	return tok, nil
}

func statusError(s Status) error {
	switch s {
	case StatusUsed:
		return ErrTokenAlreadyUsed
	case StatusRevoked:
		return ErrTokenRevoked
	case StatusExpired:
		return ErrTokenExpired
	default:
		return fmt.Errorf("unexpected booking token status: %s", s)
	}
}
