package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/habitnation/habitnation/internal/api"
	"github.com/habitnation/habitnation/internal/cli/ui"
	"github.com/habitnation/habitnation/internal/web/router"
	"github.com/habitnation/habitnation/internal/web/websocket"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes [filter]",
		Short: "List the HTTP routes the server exposes",
		Long: `List the HTTP routes the server exposes.

With a filter, only routes whose pattern contains it are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRoutes,
	}
}

func runRoutes(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a := api.New(api.Deps{Config: cfg, Hub: websocket.NewHub(zap.NewNop())})
	routes := a.Handler().Routes()

	var filter string
	if len(args) == 1 {
		filter = args[0]
	}

	out := cmd.OutOrStdout()
	table := ui.NewTable(out, color.NoColor, "METHOD", "PATTERN", "AUTH").
		ColorColumn(0, color.New(color.FgCyan, color.Bold))
	for _, r := range routes {
		if filter != "" && !strings.Contains(r.Pattern, filter) {
			continue
		}
		access := "public"
		if r.Auth {
			access = "token"
		}
		table.AddRow(r.Method, r.Pattern, access)
	}

	if table.Len() == 0 {
		fmt.Fprint(cmd.ErrOrStderr(), ui.FormatError(ui.ErrorOptions{
			Level:        ui.ErrorLevelWarning,
			Problem:      fmt.Sprintf("No route matches %q", filter),
			Suggestions:  ui.Suggest(filter, segments(routes), 3),
			HelpCommands: []string{"List everything: habitnation routes"},
			NoColor:      color.NoColor,
		}))
		return nil
	}

	table.Render()
	fmt.Fprintf(out, "\n%d routes\n", table.Len())
	return nil
}

// segments lists the literal path segments of routes
func segments(routes []router.RouteInfo) []string {
	var out []string
	for _, r := range routes {
		for _, s := range strings.Split(r.Pattern, "/") {
			if s != "" && !strings.HasPrefix(s, "{") && s != "*" {
				out = append(out, s)
			}
		}
	}
	return out
}
