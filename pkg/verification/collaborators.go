package verification

import (
	"context"
	"sync"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// Candidate is what the external directory returns for an exact match.
type Candidate struct {
	Email    string
	FullName string

	// ResolutionKey is the code the booking resolver maps to a destination.
	ResolutionKey string

	// Destination optionally carries a pre-resolved booking URL; when set it
	// is captured as the bound resource at code-issuance time.
	Destination string
}

// CandidateDirectory is the external read-only candidate lookup. Lookup must
// return ErrNoMatch or ErrAmbiguousMatch without revealing which field
// mismatched; the orchestrator collapses both into one candidate-facing
// outcome.
type CandidateDirectory interface {
	Lookup(ctx context.Context, key subject.Key) (*Candidate, error)
}

// Destination is a resolved booking target.
type Destination struct {
	URL       string
	Recruiter string
}

// BookingResolver maps a resolution key to a booking destination.
// It fails with ErrNotConfigured or ErrInactive; both are administrator
// problems, never shown to candidates.
type BookingResolver interface {
	Resolve(ctx context.Context, resolutionKey string) (*Destination, error)
}

// InMemDirectory is a map-backed CandidateDirectory for tests and the
// in-memory mode.
type InMemDirectory struct {
	mu         sync.RWMutex
	candidates map[string][]*Candidate
}

// NewInMemDirectory creates an empty directory.
func NewInMemDirectory() *InMemDirectory {
	return &InMemDirectory{
		candidates: make(map[string][]*Candidate),
	}
}

// Add registers a candidate under a subject key. Adding twice under the same
// key makes the lookup ambiguous, mirroring duplicate directory rows.
func (d *InMemDirectory) Add(key subject.Key, cand *Candidate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	canonical := key.Canonical()
	d.candidates[canonical] = append(d.candidates[canonical], cand)
}

func (d *InMemDirectory) Lookup(ctx context.Context, key subject.Key) (*Candidate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	matches := d.candidates[key.Canonical()]
	switch len(matches) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		cp := *matches[0]
		return &cp, nil
	default:
		return nil, ErrAmbiguousMatch
	}
}

// InMemResolver is a map-backed BookingResolver for tests and the in-memory
// mode.
type InMemResolver struct {
	mu           sync.RWMutex
	destinations map[string]*Destination
	inactive     map[string]bool
}

// NewInMemResolver creates an empty resolver.
func NewInMemResolver() *InMemResolver {
	return &InMemResolver{
		destinations: make(map[string]*Destination),
		inactive:     make(map[string]bool),
	}
}

// Set registers a destination for a resolution key.
func (r *InMemResolver) Set(resolutionKey string, dest *Destination) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destinations[resolutionKey] = dest
}

// Deactivate marks a configured key inactive.
func (r *InMemResolver) Deactivate(resolutionKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inactive[resolutionKey] = true
}

func (r *InMemResolver) Resolve(ctx context.Context, resolutionKey string) (*Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dest, ok := r.destinations[resolutionKey]
	if !ok {
		return nil, ErrNotConfigured
	}
	if r.inactive[resolutionKey] {
		return nil, ErrInactive
	}
	cp := *dest
	return &cp, nil
}
