package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alem-hub/student-roster/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/student-roster/pkg/logger"
)

// =============================================================================
// MIGRATION COMMANDS
// =============================================================================

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	Long: `Apply or revert the embedded PostgreSQL migrations.

Uses database.url from the config file or DATABASE_URL from the environment,
regardless of the selected storage backend.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the most recent migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrateDown,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func withMigrator(cmd *cobra.Command, fn func(context.Context, *postgres.Migrator) error) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is not configured (set DATABASE_URL or database.url)")
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), time.Minute)
	defer cancel()

	conn, err := openPostgres(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(ctx, postgres.NewMigrator(conn))
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	return withMigrator(cmd, func(ctx context.Context, m *postgres.Migrator) error {
		applied, err := m.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", logger.Count(applied))
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", applied)
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	return withMigrator(cmd, func(ctx context.Context, m *postgres.Migrator) error {
		version, err := m.Rollback(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to roll back.")
			return nil
		}
		log.Info("migration rolled back", logger.Int("version", version))
		fmt.Fprintf(cmd.OutOrStdout(), "Rolled back migration %d.\n", version)
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	return withMigrator(cmd, func(ctx context.Context, m *postgres.Migrator) error {
		migrations, err := m.Status(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, mig := range migrations {
			state := "pending"
			if mig.IsApplied {
				state = "applied " + mig.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "%4d  %-28s  %s\n", mig.Version, mig.Name, state)
		}
		return nil
	})
}
