package otp

import (
	"errors"
	"fmt"
)

var (
	// ErrCodeNotFound is returned when no verification record matches the id.
	ErrCodeNotFound = errors.New("verification code not found")

	// ErrCodeAlreadyUsed is returned when the record was already verified.
	ErrCodeAlreadyUsed = errors.New("verification code has already been used")

	// ErrCodeExpired is returned when the record is past its expiry window or
	// was superseded by a newer code.
	ErrCodeExpired = errors.New("verification code has expired")

	// ErrCodeLocked is returned once the attempt cap has been reached.
	ErrCodeLocked = errors.New("verification code is locked after too many attempts")

	// ErrInvalidCode is the match target for InvalidCodeError.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrConflict is returned when a conditional update lost to a concurrent
	// writer. The caller may retry the whole validation.
	ErrConflict = errors.New("record was modified concurrently")
)

// InvalidCodeError reports a code mismatch along with how many attempts the
// candidate has left before the record locks. errors.Is(err, ErrInvalidCode)
// matches it.
type InvalidCodeError struct {
	Remaining int32
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}
