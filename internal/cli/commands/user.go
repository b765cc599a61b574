package commands

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/cli/ui"
	"github.com/habitnation/habitnation/internal/service"
	"github.com/habitnation/habitnation/internal/store"
)

// NewUserCommand creates the user administration command
func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserPromoteCommand())
	cmd.AddCommand(newUserCreateAdminCommand())
	return cmd
}

func newUserPromoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant administrator rights to an existing account",
		Long: `Grant administrator rights to an existing account.

Administrators may add achievements to the catalog. The change applies to
tokens issued after the next sign-in.`,
		Args: cobra.ExactArgs(1),
		RunE: runUserPromote,
	}
	cmd.Flags().Bool("revoke", false, "Remove administrator rights instead")
	return cmd
}

func runUserPromote(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openMigratedDatabase(cmd, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	revoke, _ := cmd.Flags().GetBool("revoke")
	svc := offlineService(cfg, db, zap.NewNop())
	if err := svc.PromoteUser(cmd.Context(), args[0], !revoke); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no account with email %q", args[0])
		}
		return err
	}

	msg := fmt.Sprintf("%s is now an administrator", args[0])
	if revoke {
		msg = fmt.Sprintf("%s is no longer an administrator", args[0])
	}
	ui.WriteSuccess(cmd.OutOrStdout(), msg, color.NoColor)
	return nil
}

func newUserCreateAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account.

Values not given as flags are prompted for.`,
		Args: cobra.NoArgs,
		RunE: runUserCreateAdmin,
	}
	cmd.Flags().String("username", "", "Display name")
	cmd.Flags().String("email", "", "Sign-in email")
	cmd.Flags().String("password", "", "Password (prompted without echo when omitted)")
	return cmd
}

func runUserCreateAdmin(cmd *cobra.Command, args []string) error {
	var in service.RegisterInput
	in.Username, _ = cmd.Flags().GetString("username")
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")

	var questions []*survey.Question
	if in.Username == "" {
		questions = append(questions, &survey.Question{
			Name:     "username",
			Prompt:   &survey.Input{Message: "Username:"},
			Validate: survey.Required,
		})
	}
	if in.Email == "" {
		questions = append(questions, &survey.Question{
			Name:     "email",
			Prompt:   &survey.Input{Message: "Email:"},
			Validate: survey.Required,
		})
	}
	if in.Password == "" {
		questions = append(questions, &survey.Question{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Password:"},
			Validate: survey.Required,
		})
	}
	if len(questions) > 0 {
		if err := survey.Ask(questions, &in); err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
	}

	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openMigratedDatabase(cmd, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := offlineService(cfg, db, zap.NewNop())
	var session *service.Session
	err = ui.WithSpinner(cmd.OutOrStdout(), "Creating account", color.NoColor, func() error {
		var err error
		if session, err = svc.Register(cmd.Context(), in); err != nil {
			return err
		}
		return svc.PromoteUser(cmd.Context(), session.User.Email, true)
	})
	if err != nil {
		return err
	}
	ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Created administrator %s (%s)", session.User.Username, session.User.ID), color.NoColor)
	return nil
}
