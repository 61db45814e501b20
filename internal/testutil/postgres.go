// Package testutil provides shared testing utilities for the recall project.
//
// It contains reusable test infrastructure used across packages, following
// the pattern of Go standard library packages like net/http/httptest.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/contextforge/recall/db"
	"github.com/contextforge/recall/internal/log"
	"github.com/contextforge/recall/internal/store"
)

// TestDB wraps a PostgreSQL test container with a ready connection pool.
//
// The container runs the pgvector image, has all migrations applied, and
// the pool has vector types registered on every connection.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a disposable PostgreSQL container with pgvector,
// applies the embedded migrations, and returns a connected pool.
//
// Usage:
//
//	tdb, cleanup := testutil.SetupTestDB(t)
//	defer cleanup()
//	st := store.New(tdb.Pool, store.Dimension, log.NewNop())
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("recall_test"),
		postgres.WithUsername("recall_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := db.Migrate(connStr, log.NewNop()); err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// store.NewPool registers pgvector types on every connection.
	pool, err := store.NewPool(ctx, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("Failed to create connection pool: %v", err)
	}

	tdb := &TestDB{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}

	cleanup := func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return tdb, cleanup
}

// TruncateDocuments empties the documents table between test cases.
func TruncateDocuments(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), "TRUNCATE documents RESTART IDENTITY"); err != nil {
		t.Fatalf("Failed to truncate documents: %v", err)
	}
}
