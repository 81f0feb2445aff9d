package bookingtoken

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// ErrRecordNotFound is returned by repositories when no row matches.
var ErrRecordNotFound = errors.New("booking token record not found")

// Repository defines storage for booking tokens. CompareAndSwapStatus must be
// a single conditional write so a confirm racing a redeem, or a revoke racing
// a redeem, resolves to exactly one winner.
type Repository interface {
	Create(ctx context.Context, tok *BookingToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*BookingToken, error)
	FindBySubjectKey(ctx context.Context, key subject.Key) ([]*BookingToken, error)

	// CompareAndSwapStatus transitions status only if the stored token still
	// has expectStatus. usedAt is persisted when non-nil. Returns false when
	// the guard failed.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expectStatus, newStatus Status, usedAt *time.Time) (bool, error)

	// RevokeActive transitions every non-terminal token for the subject to
	// revoked and returns how many it touched.
	RevokeActive(ctx context.Context, key subject.Key) (int64, error)

	// ExpireOverdue transitions issued/confirmed tokens past expiry to
	// expired. Advisory; lazy checks already guarantee correctness.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
