package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"bodhiment-quiz/internal/config"
	pgmigrations "bodhiment-quiz/internal/infra/postgres/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the game_results table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg)
			if rollback {
				return rollbackMigrations(cmd.Context(), cfg, logger)
			}
			return runMigrationsWithConfig(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	return cmd
}

func newMigrator(cfg config.Config) (*migrate.Migrator, *bun.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, nil, fmt.Errorf("postgres url not configured")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return migrate.NewMigrator(db, pgmigrations.Migrations), db, nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	migrator, db, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Info("migrations applied", "group", group.String())
	return nil
}

func rollbackMigrations(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	migrator, db, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("nothing to roll back")
		return nil
	}
	logger.Info("migrations rolled back", "group", group.String())
	return nil
}
