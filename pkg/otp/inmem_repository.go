package otp

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
	mu      sync.RWMutex
	records map[uuid.UUID]*VerificationRecord
}

// NewInMemRepository creates an empty in-memory repository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		records: make(map[uuid.UUID]*VerificationRecord),
	}
}

func (r *InMemRepository) Create(ctx context.Context, rec *VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *InMemRepository) GetByID(ctx context.Context, id uuid.UUID) (*VerificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *InMemRepository) FindBySubjectKey(ctx context.Context, key subject.Key) ([]*VerificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*VerificationRecord
	canonical := key.Canonical()
	for _, rec := range r.records {
		if rec.SubjectKey.Canonical() == canonical {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *InMemRepository) SupersedePending(ctx context.Context, key subject.Key) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	canonical := key.Canonical()
	for _, rec := range r.records {
		if rec.Status == StatusPending && rec.SubjectKey.Canonical() == canonical {
			rec.Status = StatusSuperseded
			n++
		}
	}
	return n, nil
}

func (r *InMemRepository) CompareAndSwap(ctx context.Context, id uuid.UUID, expectStatus Status, expectAttempts int32, newStatus Status, newAttempts int32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false, ErrRecordNotFound
	}
	if rec.Status != expectStatus || rec.Attempts != expectAttempts {
		return false, nil
	}
	rec.Status = newStatus
	rec.Attempts = newAttempts
	return true, nil
}

func (r *InMemRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, rec := range r.records {
		if rec.Status == StatusPending && now.After(rec.ExpiresAt) {
			rec.Status = StatusExpired
			n++
		}
	}
	return n, nil
}
