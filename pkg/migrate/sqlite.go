package migrate

import (
	"context"
	_ "embed"
	"fmt"

	"gorm.io/gorm"
)

// SQLiteSchema mirrors the goose migrations for local SQLite runs and tests.
// Postgres-only features (enum types, partial indexes, foreign keys) are left out.
//
//go:embed sqlite/schema.sql
var SQLiteSchema string

// ApplySQLite creates the schema on a SQLite connection. It is idempotent.
func ApplySQLite(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if conn.Dialector.Name() != "sqlite" {
		return fmt.Errorf("sqlite schema cannot be applied to %s", conn.Dialector.Name())
	}
	if err := conn.WithContext(ctx).Exec(SQLiteSchema).Error; err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}
