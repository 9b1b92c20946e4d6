package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	deptapp "github.com/stacklok/department-sync/internal/app"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one department synchronization and exit",
	Long: `Run a single synchronization against the configured source and storage,
then print the result as JSON. The command exits non-zero when the source is
unavailable or the write is rejected; record level errors are reported in the
result without failing the command.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	syncCmd.Flags().Bool("force", false, "Rewrite every department, even when unchanged or when sync is disabled")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	server, err := deptapp.NewDepartmentApp(ctx, deptapp.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer server.Close()

	result, syncErr := server.Service().SynchronizeNow(ctx, force)
	if result != nil {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format sync result: %w", err)
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(output)); err != nil {
			return err
		}
	}
	if syncErr != nil {
		return fmt.Errorf("synchronization failed: %w", syncErr)
	}
	return nil
}
