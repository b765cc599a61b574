package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/cli/ui"
	"github.com/habitnation/habitnation/internal/store"
	"github.com/habitnation/habitnation/internal/store/migrate"
)

// categorizeDatabaseError returns a short description of a migration
// failure. Verbose mode returns the driver's message.
func categorizeDatabaseError(err error, verbose bool) string {
	if verbose {
		return err.Error()
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "syntax"):
		return "SQL syntax error - use --verbose for details"
	case strings.Contains(errStr, "constraint") || strings.Contains(errStr, "violates"):
		return "constraint violation - use --verbose for details"
	case strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "no such"):
		return "referenced object does not exist - use --verbose for details"
	case strings.Contains(errStr, "already exists"):
		return "object already exists - use --verbose for details"
	case strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access denied"):
		return "permission denied - check database user privileges"
	}
	return "migration failed - use --verbose for details"
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long: `Apply and inspect the HabitNation schema.

The schema ships inside the binary; "serve" applies it on start, these
commands manage it by hand.

Available subcommands:
  up       - Apply all pending migrations
  down     - Roll back the last applied migration
  status   - Show migration status`,
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Show detailed error messages")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last applied migration",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	err = ui.WithSpinner(cmd.OutOrStdout(), "Applying migrations", color.NoColor, func() error {
		var err error
		n, err = migrateLatest(cmd.Context(), db, zap.NewNop())
		return err
	})
	if err != nil {
		return migrationFailed(cmd, err, fmt.Sprintf("%d migration(s) were applied before the failure.", n))
	}
	if n == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", n)
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.Migrator(zap.NewNop()).MigrateDown(cmd.Context())
	if errors.Is(err, migrate.ErrNothingToRollback) {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to roll back")
		return nil
	}
	if err != nil {
		return migrationFailed(cmd, err, "The rollback was not applied.")
	}
	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Rolled back %03d_%s", m.Version, m.Name), color.NoColor)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.Migrator(zap.NewNop()).Status(cmd.Context(), store.Migrations(db.Dialect))
	if err != nil {
		return migrationFailed(cmd, err, "")
	}

	out := cmd.OutOrStdout()
	ui.Header(out, "Migrations ("+string(db.Dialect)+")", color.NoColor)
	table := ui.NewTable(out, color.NoColor, "MIGRATION", "STATE", "APPLIED AT").
		ColorColumn(1, color.New(color.FgGreen))
	for _, m := range status.Applied {
		table.AddRow(fmt.Sprintf("%03d_%s", m.Version, m.Name), "applied", m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range status.Pending {
		table.AddRow(fmt.Sprintf("%03d_%s", m.Version, m.Name), "pending")
	}
	table.Render()
	fmt.Fprintln(out, status.Summary())
	return nil
}

func migrationFailed(cmd *cobra.Command, err error, consequence string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	fmt.Fprint(cmd.ErrOrStderr(), ui.MigrationError(categorizeDatabaseError(err, verbose), consequence, color.NoColor))
	return reported(err)
}
