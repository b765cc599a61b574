package commands

import (
	"github.com/spf13/cobra"

	"github.com/habitnation/habitnation/internal/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration serve would run with, after defaults, the config
file and environment variables are merged. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := config.Dump(v)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
