// Package pgtest opens a migrated, empty Postgres database for repository tests.
package pgtest

import (
	"context"
	"os"
	"testing"

	"labcommerce/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Pool connects to TEST_DB_DSN, applies migrations and truncates every table.
// The test is skipped when TEST_DB_DSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE reviews, results, order_items, orders, catalog_items CASCADE`); err != nil {
		t.Fatalf("reset tables: %v", err)
	}
	return pool
}

// InsertItem adds a catalog item and returns its id.
func InsertItem(t *testing.T, pool *pgxpool.Pool, code string, priceCents int64) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
INSERT INTO catalog_items (code, name, price_cents, category)
VALUES ($1, $1, $2, 'general')
RETURNING id::text
`, code, priceCents).Scan(&id)
	if err != nil {
		t.Fatalf("insert item %s: %v", code, err)
	}
	return id
}
