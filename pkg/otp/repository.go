package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// ErrRecordNotFound is returned by repositories when no row matches.
var ErrRecordNotFound = errors.New("verification record not found")

// Repository defines storage for verification records. Implementations must
// make CompareAndSwap a single conditional write so that concurrent
// validations cannot both succeed or double-increment attempts, and
// SupersedePending a single batch transition so two live codes never coexist
// for one subject.
type Repository interface {
	Create(ctx context.Context, rec *VerificationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*VerificationRecord, error)
	FindBySubjectKey(ctx context.Context, key subject.Key) ([]*VerificationRecord, error)

	// SupersedePending transitions every pending record for the subject to
	// superseded and returns how many it touched.
	SupersedePending(ctx context.Context, key subject.Key) (int64, error)

	// CompareAndSwap updates status and attempts only if the stored record
	// still has expectStatus and expectAttempts. Returns false when the guard
	// failed because another writer got there first.
	CompareAndSwap(ctx context.Context, id uuid.UUID, expectStatus Status, expectAttempts int32, newStatus Status, newAttempts int32) (bool, error)

	// ExpireOverdue transitions pending records past their expiry to expired.
	// Advisory: lazy checks in the engine already guarantee correctness.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
