package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// embedded migrations. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	applySubmissionsSchema(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// applySubmissionsSchema mirrors migrations/postgres/001_submissions.sql.
// Kept inline to avoid an import cycle with the migrations package.
func applySubmissionsSchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	const schema = `
		CREATE TABLE IF NOT EXISTS submissions (
			signature        TEXT PRIMARY KEY,
			payer            TEXT NOT NULL,
			blockhash        TEXT NOT NULL,
			num_instructions INTEGER NOT NULL,
			size_bytes       INTEGER NOT NULL,
			status           TEXT NOT NULL,
			err              TEXT NOT NULL DEFAULT '',
			slot             BIGINT NOT NULL DEFAULT 0,
			submitted_at     BIGINT NOT NULL,
			confirmed_at     BIGINT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	_, err := pool.Exec(ctx, schema)
	require.NoError(t, err, "failed to apply submissions schema")
}
