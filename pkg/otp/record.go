package otp

import (
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// Status is the lifecycle state of a verification record. Transitions are
// one-directional: a record never re-enters pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusExpired    Status = "expired"
	StatusLocked     Status = "locked"
	StatusSuperseded Status = "superseded"
)

// VerificationRecord is one OTP attempt cycle for a subject. The ID is the
// only handle handed to the client-facing flow; it is generated at creation
// and never derived from candidate identity.
type VerificationRecord struct {
	ID            uuid.UUID   `json:"id"`
	SubjectKey    subject.Key `json:"subject_key"`
	Code          string      `json:"code"`
	Status        Status      `json:"status"`
	Attempts      int32       `json:"attempts"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
	BoundResource string      `json:"bound_resource,omitempty"`
}
