package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/department-sync/database"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply pending database migrations to bring the schema up to date.
This command reads the database connection parameters from the config file
and applies all migrations that haven't been run yet, or --num-steps of them.`,
	RunE: runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	run, err := parseMigrationFlags(cmd)
	if err != nil {
		return err
	}

	ok, err := run.confirm(cmd, "apply migrations")
	if err != nil || !ok {
		return err
	}

	m, err := run.open()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	slog.Info("Applying database migrations", "steps", run.numSteps)
	if err := database.MigrateUp(m, run.numSteps); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logVersion(m)
	return nil
}
