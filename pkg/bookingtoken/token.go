package bookingtoken

import (
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// Status is the lifecycle state of a booking token. Used and revoked are
// terminal; no operation returns a token from them.
type Status string

const (
	StatusIssued    Status = "issued"
	StatusConfirmed Status = "confirmed"
	StatusUsed      Status = "used"
	StatusRevoked   Status = "revoked"
	StatusExpired   Status = "expired"
)

// Terminal reports whether a status can never transition again.
func (s Status) Terminal() bool {
	return s == StatusUsed || s == StatusRevoked
}

// BookingToken is a single-use handle on an external booking destination.
// DestinationURL is immutable after issuance.
type BookingToken struct {
	ID             uuid.UUID   `json:"id"`
	SubjectKey     subject.Key `json:"subject_key"`
	DestinationURL string      `json:"destination_url"`
	Status         Status      `json:"status"`
	IssuedAt       time.Time   `json:"issued_at"`
	ExpiresAt      time.Time   `json:"expires_at"`
	UsedAt         *time.Time  `json:"used_at,omitempty"`
	IssuedBy       string      `json:"issued_by"`
}
