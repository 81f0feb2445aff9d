package bookingtoken

import "errors"

var (
	// ErrTokenNotFound is returned when no token matches the id.
	ErrTokenNotFound = errors.New("booking token not found")

	// ErrTokenExpired is returned when the token is past its expiry window.
	ErrTokenExpired = errors.New("booking token has expired")

	// ErrTokenRevoked is returned for tokens revoked by an administrator.
	ErrTokenRevoked = errors.New("booking token has been revoked")

	// ErrTokenAlreadyUsed is returned once a token has been redeemed.
	ErrTokenAlreadyUsed = errors.New("booking token has already been used")
)
