package verification

import "errors"

var (
	// ErrNoMatch is returned by the directory when no candidate matches.
	ErrNoMatch = errors.New("no matching candidate")

	// ErrAmbiguousMatch is returned by the directory when more than one
	// candidate matches. Candidate-facing responses never distinguish it
	// from ErrNoMatch.
	ErrAmbiguousMatch = errors.New("ambiguous candidate match")

	// ErrNotConfigured is returned by the resolver for an unknown resolution
	// key. Surfaced to administrators, not candidates.
	ErrNotConfigured = errors.New("booking destination not configured")

	// ErrInactive is returned by the resolver for a deactivated key.
	ErrInactive = errors.New("booking destination inactive")

	// ErrNoDestination is returned when neither a bound resource nor a
	// resolver lookup yields a booking URL.
	ErrNoDestination = errors.New("no booking destination available")
)
