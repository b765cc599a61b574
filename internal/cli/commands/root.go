// Package commands implements the habitnation command line
package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/habitnation/habitnation/internal/cli/ui"
	"github.com/habitnation/habitnation/internal/config"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "habitnation",
		Short: "HabitNation habit tracking API",
		Long: color.CyanString(`HabitNation - gamified habit tracking

Serves the HabitNation REST API and realtime feed, and manages its
database and accounts.

Configuration is read from habitnation.yml in the working directory or
/etc/habitnation, overridden by HABITNATION_* environment variables.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a config file")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewUserCommand())
	rootCmd.AddCommand(NewRoutesCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			kv.AddRow("HabitNation version", Version)
			kv.AddRow("Git commit", GitCommit)
			kv.AddRow("Build date", BuildDate)
			kv.AddRow("Go version", goVer)
			kv.Render()
		},
	}
}

// loadConfig reads the configuration named by --config, falling back to the
// default search paths
func loadConfig(cmd *cobra.Command) (*viper.Viper, *config.Config, error) {
	v := config.New()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	cfg, err := config.Read(v)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), color.NoColor))
		return nil, nil, reported(err)
	}
	return v, cfg, nil
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			ui.WriteError(rootCmd.ErrOrStderr(), ui.ErrorOptions{Problem: err.Error()})
		}
		return err
	}
	return nil
}
