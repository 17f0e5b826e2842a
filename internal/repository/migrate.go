package repository

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func setupGoose() error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Migrate applies all pending schema migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("migrations completed")
	return nil
}

// ResetSchema rolls every migration back and reapplies them.
// Intended for integration tests only.
func (r *Repository) ResetSchema(ctx context.Context) error {
	if err := setupGoose(); err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	if err := goose.ResetContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to rerun migrations: %w", err)
	}
	return nil
}
