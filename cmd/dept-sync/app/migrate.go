package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/department-sync/database"
	"github.com/stacklok/department-sync/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")
	migrateCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := migrateCmd.MarkPersistentFlagRequired("config"); err != nil {
		panic(err)
	}

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// migrationRun carries what the up and down commands share
type migrationRun struct {
	cfg      *config.Config
	yes      bool
	numSteps uint
}

func parseMigrationFlags(cmd *cobra.Command) (*migrationRun, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return nil, fmt.Errorf("failed to get yes flag: %w", err)
	}
	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return nil, fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	return &migrationRun{cfg: cfg, yes: yes, numSteps: numSteps}, nil
}

// confirm asks the operator before touching the schema unless --yes was given
func (r *migrationRun) confirm(cmd *cobra.Command, action string) (bool, error) {
	if r.yes {
		return true, nil
	}

	db := r.cfg.Database
	slog.Info("About to "+action,
		"user", db.User,
		"host", db.Host,
		"port", db.Port,
		"database", db.Database,
	)
	if _, err := fmt.Fprint(cmd.OutOrStdout(), "Continue? (yes/no): "); err != nil {
		return false, err
	}

	var response string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &response); err != nil {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	if response != "yes" && response != "y" {
		slog.Info("Migration cancelled by user")
		return false, nil
	}
	return true, nil
}

// open returns a migrator for the configured database
func (r *migrationRun) open() (database.Migrator, error) {
	connString, err := r.cfg.Database.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	m, err := database.GetMigrate(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	return m, nil
}

func closeMigrator(m database.Migrator) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		slog.Error("Error closing migration source", "error", srcErr)
	}
	if dbErr != nil {
		slog.Error("Error closing database connection", "error", dbErr)
	}
}

func logVersion(m database.Migrator) {
	version, dirty, err := m.Version()
	switch {
	case err != nil:
		slog.Warn("Unable to get migration version", "error", err)
	case dirty:
		slog.Warn("Database is in a dirty state", "version", version)
	default:
		slog.Info("Migrations applied successfully", "version", version)
	}
}
