package schema

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/studentinfo/internal/db"
	"github.com/yigit/studentinfo/internal/pkg/logger"
)

//go:embed schema.sql
var ddl string

// lockKey serializes schema bootstrap between instances starting at the same time
const lockKey int64 = 0x53545544454e54

// DDL returns the embedded schema
func DDL() string {
	return ddl
}

// Ensure creates the students and contacts tables when they do not exist.
// Every statement is idempotent, so Ensure is safe to run on each startup.
func Ensure(ctx context.Context, database *db.PostgresDB) error {
	err := database.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
			return fmt.Errorf("failed to acquire schema lock: %w", err)
		}
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("error occurred during schema execution: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().Msg("Database schema ensured")
	return nil
}
