package migrations

import (
	"context"

	"tokenforge/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded accounts schema and returns the
// files it executed. Migrations are idempotent (IF NOT EXISTS).
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	return apply(ctx, PostgresFS, "postgres", func(ctx context.Context, stmt string) error {
		_, err := pool.Exec(ctx, stmt)
		return err
	})
}
