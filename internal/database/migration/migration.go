package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"photoapi/internal/field"
)

type migrationStep struct {
	Name string
	SQL  string
}

// createSteps returns the schema for the photos table. Document columns are opaque
// text; their definitions come from the field declarations.
func createSteps(docs ...field.DocumentField) []migrationStep {
	columns := ""
	for _, d := range docs {
		columns += "\n  " + d.ColumnDDL() + ","
	}

	steps := []migrationStep{
		{
			Name: "create_table_photos",
			SQL: `CREATE TABLE IF NOT EXISTS photos (
  id         UUID        PRIMARY KEY,
  title      TEXT        NOT NULL,` + columns + `
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_index_photos_created_at",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_photos_created_at ON photos (created_at);`,
		},
	}
	return steps
}

// columnSteps adds document columns declared after the table was created.
func columnSteps(docs ...field.DocumentField) []migrationStep {
	steps := make([]migrationStep, 0, len(docs))
	for _, d := range docs {
		steps = append(steps, migrationStep{
			Name: "add_column_photos_" + d.Column,
			SQL:  `ALTER TABLE photos ADD COLUMN IF NOT EXISTS ` + d.ColumnDDL() + `;`,
		})
	}
	return steps
}

// EnsureMigrated creates the photos table when it is missing. On an existing
// schema only the document columns are ensured.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string, docs ...field.DocumentField) error {
	start := time.Now()
	logger := log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	logger.Info().Str("status", "starting").Msg("db_migration_check")

	var exists bool
	query := "SELECT to_regclass('public.photos') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		logger.Error().
			Err(err).
			Str("status", "error").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("db_migration_failed")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	steps := createSteps(docs...)
	if exists {
		logger.Info().Str("status", "in_progress").Msg("schema already exists, ensuring document columns")
		steps = columnSteps(docs...)
	} else {
		logger.Info().Str("status", "in_progress").Msg("db_migration_start")
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error().
				Err(err).
				Str("status", "error").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("db_migration_failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logger.Info().
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("db_migration_step")
	}

	logger.Info().
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("db_migration_success")

	return nil
}
