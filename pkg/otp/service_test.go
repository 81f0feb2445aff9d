package otp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewlife-hub/Interview-Booking-Uniform-v3-sub001/pkg/subject"
)

func testKey() subject.Key {
	return subject.New("jane.doe@example.com", "northline", "deckhand")
}

func TestCreateCodeFormat(t *testing.T) {
	engine := NewEngine(NewInMemRepository())

	issued, err := engine.CreateCode(context.Background(), testKey(), "")
	require.NoError(t, err)

	assert.Len(t, issued.Code, 6)
	assert.Regexp(t, `^[1-9][0-9]{5}$`, issued.Code)
	assert.NotEqual(t, issued.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, issued.ExpiresAt.After(time.Now().UTC()))
}

func TestCreateCodeSupersedesPending(t *testing.T) {
	repo := NewInMemRepository()
	engine := NewEngine(repo)
	ctx := context.Background()
	key := testKey()

	first, err := engine.CreateCode(ctx, key, "")
	require.NoError(t, err)

	second, err := engine.CreateCode(ctx, key, "")
	require.NoError(t, err)

	// At most one pending record per subject.
	records, err := repo.FindBySubjectKey(ctx, key)
	require.NoError(t, err)

	pending := 0
	for _, rec := range records {
		if rec.Status == StatusPending {
			pending++
			assert.Equal(t, second.ID, rec.ID)
		}
	}
	assert.Equal(t, 1, pending)

	// The superseded code no longer validates.
	_, err = engine.ValidateCode(ctx, first.ID, first.Code, time.Now().UTC())
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestValidateCodeSuccessThenAlreadyUsed(t *testing.T) {
	engine := NewEngine(NewInMemRepository())
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := engine.CreateCode(ctx, testKey(), "https://booking.example.com/northline")
	require.NoError(t, err)

	result, err := engine.ValidateCode(ctx, issued.ID, issued.Code, now)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, result.RecordID)
	assert.Equal(t, testKey(), result.SubjectKey)
	assert.Equal(t, "https://booking.example.com/northline", result.BoundResource)

	_, err = engine.ValidateCode(ctx, issued.ID, issued.Code, now)
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
}

func TestValidateCodeNotFound(t *testing.T) {
	engine := NewEngine(NewInMemRepository())

	_, err := engine.ValidateCode(context.Background(), uuid.New(), "123456", time.Now().UTC())
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestValidateCodeAttemptCap(t *testing.T) {
	engine := NewEngine(NewInMemRepository())
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := engine.CreateCode(ctx, testKey(), "")
	require.NoError(t, err)

	wrong := "000000"
	if issued.Code == wrong {
		wrong = "000001"
	}

	// First wrong submission: two attempts remaining.
	_, err = engine.ValidateCode(ctx, issued.ID, wrong, now)
	var invalid *InvalidCodeError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int32(2), invalid.Remaining)

	// Second: one remaining.
	_, err = engine.ValidateCode(ctx, issued.ID, wrong, now)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, int32(1), invalid.Remaining)

	// Third wrong submission locks the record.
	_, err = engine.ValidateCode(ctx, issued.ID, wrong, now)
	assert.ErrorIs(t, err, ErrCodeLocked)

	// Fourth is always Locked, never another InvalidCode.
	_, err = engine.ValidateCode(ctx, issued.ID, wrong, now)
	assert.ErrorIs(t, err, ErrCodeLocked)

	// Even the correct code cannot unlock a locked record.
	_, err = engine.ValidateCode(ctx, issued.ID, issued.Code, now)
	assert.ErrorIs(t, err, ErrCodeLocked)
}

func TestValidateCodeExpiry(t *testing.T) {
	repo := NewInMemRepository()
	engine := NewEngine(repo, WithCodeExpiry(10*time.Minute))
	ctx := context.Background()

	issued, err := engine.CreateCode(ctx, testKey(), "")
	require.NoError(t, err)

	late := issued.ExpiresAt.Add(time.Second)
	_, err = engine.ValidateCode(ctx, issued.ID, issued.Code, late)
	assert.ErrorIs(t, err, ErrCodeExpired)

	// The expiry transition was persisted.
	rec, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, rec.Status)

	// Expired is terminal even at an earlier wall-clock time.
	_, err = engine.ValidateCode(ctx, issued.ID, issued.Code, time.Now().UTC())
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestValidateCodeConcurrentSingleWinner(t *testing.T) {
	engine := NewEngine(NewInMemRepository())
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := engine.CreateCode(ctx, testKey(), "")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ValidateCode(ctx, issued.ID, issued.Code, now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, ErrCodeAlreadyUsed) && !errors.Is(err, ErrConflict) {
			t.Errorf("unexpected error from concurrent validation: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent validation may succeed")
}

func TestExpireOverdue(t *testing.T) {
	repo := NewInMemRepository()
	engine := NewEngine(repo, WithCodeExpiry(time.Minute))
	ctx := context.Background()

	issued, err := engine.CreateCode(ctx, testKey(), "")
	require.NoError(t, err)

	n, err := engine.ExpireOverdue(ctx, issued.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, rec.Status)
}
