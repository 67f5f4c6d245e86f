package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacklok/gitsorted/database"
	"github.com/stacklok/gitsorted/internal/config"
	"github.com/stacklok/gitsorted/internal/db"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Database migration tool for managing schema versions of the postgres store. Use with 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate down (0 = all)")

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		RunE:  runMigrateUp,
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert database migrations",
		Long: `Migrate the database schema down by reverting migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Migrate down by 1 step
  gitsorted migrate down --config config.yaml --num-steps 1 --yes

  # Migrate down all the way (WARNING: destroys all data)
  gitsorted migrate down --config config.yaml --yes`,
		RunE: runMigrateDown,
	})

	return migrateCmd
}

// migrationConnString loads the configuration and resolves the migration DSN
func migrationConnString(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.GetStoreType() != config.StoreTypePostgres {
		return "", fmt.Errorf("migrations only apply to the %s store, configured store is %s",
			config.StoreTypePostgres, cfg.GetStoreType())
	}
	if cfg.Store.Table != config.DefaultTable {
		return "", fmt.Errorf("migrations create the %q table, configured store.table is %q",
			config.DefaultTable, cfg.Store.Table)
	}
	connString, err := db.MigrationConnString(cmd.Context(), &cfg.Store)
	if err != nil {
		return "", fmt.Errorf("failed to build migration connection string: %w", err)
	}
	return connString, nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	connString, err := migrationConnString(cmd)
	if err != nil {
		return err
	}

	ok, err := confirmOrYes(cmd, "Apply pending migrations?")
	if err != nil || !ok {
		return err
	}

	slog.Info("Applying database migrations")
	return database.MigrateUp(cmd.Context(), connString)
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	connString, err := migrationConnString(cmd)
	if err != nil {
		return err
	}

	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	if numSteps > math.MaxInt32 {
		return fmt.Errorf("number of steps exceeds maximum allowed value")
	}

	prompt := "WARNING: This will migrate down ALL steps and may result in complete data loss. Continue?"
	if numSteps > 0 {
		prompt = fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", numSteps)
	}
	ok, err := confirmOrYes(cmd, prompt)
	if err != nil || !ok {
		return err
	}

	if numSteps == 0 {
		slog.Warn("Migrating down all steps - this will remove all schema!")
	}
	return database.MigrateDown(cmd.Context(), connString, int(numSteps)) // #nosec G115 -- bounded above
}

// confirmOrYes honors --yes or asks on the command's input
func confirmOrYes(cmd *cobra.Command, prompt string) (bool, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return true, nil
	}
	if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
		slog.Info("Migration cancelled")
		return false, fmt.Errorf("migration cancelled by user")
	}
	return true, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s (yes/no): ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}
