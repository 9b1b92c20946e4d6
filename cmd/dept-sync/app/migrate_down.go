package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/department-sync/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert database migrations",
	Long: `Revert applied database migrations. Without --num-steps every migration is
reverted and all department data is dropped.`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	run, err := parseMigrationFlags(cmd)
	if err != nil {
		return err
	}

	ok, err := run.confirm(cmd, "revert migrations")
	if err != nil || !ok {
		return err
	}

	m, err := run.open()
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	slog.Info("Reverting database migrations", "steps", run.numSteps)
	if err := database.MigrateDown(m, run.numSteps); err != nil {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}

	logVersion(m)
	return nil
}
