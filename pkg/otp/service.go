// Package otp issues and validates the short-lived numeric codes mailed to
// candidates. Codes are uniform random six-digit values bound to a stored
// verification record with an attempt cap, so the brute-force probability per
// code lifetime is bounded by maxAttempts over the 900000-value code space.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

const (
	codeMin  = 100000
	codeSpan = 900000

	defaultCodeExpiry  = 10 * time.Minute
	defaultMaxAttempts = 3
)

// Engine issues and validates verification codes. It holds no state between
// calls; every validation re-reads the repository, so any number of instances
// may run against a shared store.
type Engine struct {
	repo        Repository
	codeExpiry  time.Duration
	maxAttempts int32
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCodeExpiry sets how long an issued code stays valid.
func WithCodeExpiry(expiry time.Duration) EngineOption {
	return func(e *Engine) {
		e.codeExpiry = expiry
	}
}

// WithMaxAttempts sets the wrong-code cap before a record locks.
func WithMaxAttempts(max int32) EngineOption {
	return func(e *Engine) {
		e.maxAttempts = max
	}
}

// NewEngine creates an OTP engine backed by the given repository.
func NewEngine(repo Repository, opts ...EngineOption) *Engine {
	engine := &Engine{
		repo:        repo,
		codeExpiry:  defaultCodeExpiry,
		maxAttempts: defaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// IssuedCode is what CreateCode hands back for delivery. The ID is the only
// handle the client-facing flow keeps; the code itself goes out by mail.
type IssuedCode struct {
	ID        uuid.UUID
	Code      string
	ExpiresAt time.Time
}

// ValidationResult is returned on a successful code match.
type ValidationResult struct {
	RecordID      uuid.UUID
	SubjectKey    subject.Key
	BoundResource string
}

// CreateCode supersedes any pending codes for the subject, then creates a new
// pending record with a fresh uniform-random six-digit code. boundResource is
// an optional destination captured now so later resolution stays deterministic
// even if directory or brand data drifts.
func (e *Engine) CreateCode(ctx context.Context, key subject.Key, boundResource string) (*IssuedCode, error) {
	superseded, err := e.repo.SupersedePending(ctx, key)
	if err != nil {
		slog.Error("Failed to supersede pending codes", "subject", key.Canonical(), "error", err)
		return nil, fmt.Errorf("failed to supersede pending codes: %w", err)
	}
	if superseded > 0 {
		slog.Info("Superseded pending verification codes", "subject", key.Canonical(), "count", superseded)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &VerificationRecord{
		ID:            uuid.New(),
		SubjectKey:    key,
		Code:          code,
		Status:        StatusPending,
		Attempts:      0,
		CreatedAt:     now,
		ExpiresAt:     now.Add(e.codeExpiry),
		BoundResource: boundResource,
	}

	if err := e.repo.Create(ctx, rec); err != nil {
		slog.Error("Failed to create verification record", "subject", key.Canonical(), "error", err)
		return nil, fmt.Errorf("failed to create verification record: %w", err)
	}

	slog.Info("Verification code created", "record_id", rec.ID, "expires_at", rec.ExpiresAt)
	return &IssuedCode{
		ID:        rec.ID,
		Code:      code,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// ValidateCode checks a submitted code against the record. Attempt increments
// and the final pending-to-verified transition are single conditional updates,
// so two concurrent submissions cannot both succeed or double-count attempts.
func (e *Engine) ValidateCode(ctx context.Context, id uuid.UUID, submitted string, now time.Time) (*ValidationResult, error) {
	rec, err := e.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}

	switch rec.Status {
	case StatusVerified:
		return nil, ErrCodeAlreadyUsed
	case StatusExpired, StatusSuperseded:
		return nil, ErrCodeExpired
	case StatusLocked:
		return nil, ErrCodeLocked
	}

	if now.After(rec.ExpiresAt) {
		// Persist the lazy transition; losing the swap just means another
		// caller recorded the same outcome.
		if _, err := e.repo.CompareAndSwap(ctx, id, StatusPending, rec.Attempts, StatusExpired, rec.Attempts); err != nil {
			slog.Error("Failed to expire verification record", "record_id", id, "error", err)
		}
		return nil, ErrCodeExpired
	}

	if rec.Attempts >= e.maxAttempts {
		if _, err := e.repo.CompareAndSwap(ctx, id, StatusPending, rec.Attempts, StatusLocked, rec.Attempts); err != nil {
			slog.Error("Failed to lock verification record", "record_id", id, "error", err)
		}
		return nil, ErrCodeLocked
	}

	if submitted != rec.Code {
		next := StatusPending
		attempts := rec.Attempts + 1
		if attempts >= e.maxAttempts {
			next = StatusLocked
		}

		ok, err := e.repo.CompareAndSwap(ctx, id, StatusPending, rec.Attempts, next, attempts)
		if err != nil {
			return nil, fmt.Errorf("failed to record failed attempt: %w", err)
		}
		if !ok {
			return nil, ErrConflict
		}

		if next == StatusLocked {
			slog.Warn("Verification record locked", "record_id", id, "attempts", attempts)
			return nil, ErrCodeLocked
		}

		remaining := e.maxAttempts - attempts
		slog.Warn("Invalid verification code submitted", "record_id", id, "remaining", remaining)
		return nil, &InvalidCodeError{Remaining: remaining}
	}

	ok, err := e.repo.CompareAndSwap(ctx, id, StatusPending, rec.Attempts, StatusVerified, rec.Attempts)
	if err != nil {
		return nil, fmt.Errorf("failed to mark record verified: %w", err)
	}
	if !ok {
		return nil, ErrConflict
	}

	slog.Info("Verification code accepted", "record_id", id)
	return &ValidationResult{
		RecordID:      rec.ID,
		SubjectKey:    rec.SubjectKey,
		BoundResource: rec.BoundResource,
	}, nil
}

// ExpireOverdue proactively expires pending records past their window. Called
// by the advisory sweeper; lazy checks in ValidateCode already guarantee
// correctness without it.
func (e *Engine) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return e.repo.ExpireOverdue(ctx, now)
}

// generateCode draws a uniform random six-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
