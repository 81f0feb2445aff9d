// Package sweeper runs the periodic expiry sweep. The sweep is advisory:
// expiry is always enforced at read time, the sweep only keeps the tables
// from accumulating stale pending rows.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/bookingtoken"
	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/otp"
)

// Sweeper periodically transitions overdue records and tokens to expired.
type Sweeper struct {
	otpEngine   *otp.Engine
	tokenEngine *bookingtoken.Engine
	interval    time.Duration
}

// New creates a sweeper. A non-positive interval falls back to five minutes.
func New(otpEngine *otp.Engine, tokenEngine *bookingtoken.Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		otpEngine:   otpEngine,
		tokenEngine: tokenEngine,
		interval:    interval,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Expiry sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass over both tables.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	codes, err := s.otpEngine.ExpireOverdue(ctx, now)
	if err != nil {
		slog.Error("Failed to expire overdue verification codes", "error", err)
	}

	tokens, err := s.tokenEngine.ExpireOverdue(ctx, now)
	if err != nil {
		slog.Error("Failed to expire overdue booking tokens", "error", err)
	}

	if codes > 0 || tokens > 0 {
		slog.Info("Expiry sweep completed", "expired_codes", codes, "expired_tokens", tokens)
	}
}
