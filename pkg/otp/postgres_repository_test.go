package otp

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "booking_db.sql")),
		postgres.WithDatabase("booking_db"),
		postgres.WithUsername("booking"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func TestPostgresRepositoryLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresRepository(pool)
	engine := NewEngine(repo)
	ctx := context.Background()
	key := testKey()

	issued, err := engine.CreateCode(ctx, key, "https://booking.example.com/northline")
	require.NoError(t, err)

	rec, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, key, rec.SubjectKey)
	assert.Equal(t, "https://booking.example.com/northline", rec.BoundResource)

	// A second issuance supersedes the first at the row level.
	second, err := engine.CreateCode(ctx, key, "")
	require.NoError(t, err)

	rec, err = repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuperseded, rec.Status)

	// The CAS guard refuses stale expectations.
	ok, err := repo.CompareAndSwap(ctx, second.ID, StatusPending, 5, StatusVerified, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompareAndSwap(ctx, second.ID, StatusPending, 0, StatusVerified, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// A CAS against the now-verified record fails.
	ok, err = repo.CompareAndSwap(ctx, second.ID, StatusPending, 0, StatusLocked, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresRepositoryExpireOverdue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresRepository(pool)
	engine := NewEngine(repo, WithCodeExpiry(time.Minute))
	ctx := context.Background()

	issued, err := engine.CreateCode(ctx, testKey(), "")
	require.NoError(t, err)

	n, err := repo.ExpireOverdue(ctx, issued.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, err := repo.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, rec.Status)
}
