package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema/schema.sql
var schemaSQL string

// ApplySchema creates the tables used by retailpos when they are missing.
func ApplySchema(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
