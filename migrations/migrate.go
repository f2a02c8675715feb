// Package migrations applies the database schema. The schema is embedded so
// the seed tool can bootstrap an empty database without external tooling.
package migrations

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Apply runs the embedded schema. Every statement is idempotent, so Apply
// is safe to run against an already-migrated database.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
