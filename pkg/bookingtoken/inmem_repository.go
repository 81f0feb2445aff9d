package bookingtoken

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

// InMemRepository implements Repository with a mutex-guarded map. Used by
// tests and the single-binary in-memory mode.
type InMemRepository struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]*BookingToken
}

// NewInMemRepository creates an empty in-memory repository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		tokens: make(map[uuid.UUID]*BookingToken),
	}
}

func (r *InMemRepository) Create(ctx context.Context, tok *BookingToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *tok
	r.tokens[tok.ID] = &cp
	return nil
}

func (r *InMemRepository) GetByID(ctx context.Context, id uuid.UUID) (*BookingToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tok, ok := r.tokens[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *tok
	return &cp, nil
}

func (r *InMemRepository) FindBySubjectKey(ctx context.Context, key subject.Key) ([]*BookingToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*BookingToken
	canonical := key.Canonical()
	for _, tok := range r.tokens {
		if tok.SubjectKey.Canonical() == canonical {
			cp := *tok
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemRepository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expectStatus, newStatus Status, usedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[id]
	if !ok {
		return false, ErrRecordNotFound
	}
	if tok.Status != expectStatus {
		return false, nil
	}
	tok.Status = newStatus
	if usedAt != nil {
		t := *usedAt
		tok.UsedAt = &t
	}
	return true, nil
}

func (r *InMemRepository) RevokeActive(ctx context.Context, key subject.Key) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	canonical := key.Canonical()
	for _, tok := range r.tokens {
		if !tok.Status.Terminal() && tok.Status != StatusExpired && tok.SubjectKey.Canonical() == canonical {
			tok.Status = StatusRevoked
			n++
		}
	}
	return n, nil
}

func (r *InMemRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, tok := range r.tokens {
		if (tok.Status == StatusIssued || tok.Status == StatusConfirmed) && now.After(tok.ExpiresAt) {
			tok.Status = StatusExpired
			n++
		}
	}
	return n, nil
}
