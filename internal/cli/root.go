package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/config"
	"trackflow-cli/internal/format"
	"trackflow-cli/internal/logging"
	"trackflow-cli/internal/tui"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	Timeout    time.Duration
	Format     string
	PrettyJSON bool
	LogLevel   string

	cfg    *config.Config
	cfgErr error
	log    zerolog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{log: zerolog.Nop()}
	app.cfg, app.cfgErr = config.Load()
	if app.cfgErr != nil {
		// Flags still need defaults; the error is reported before any command runs.
		app.cfg = &config.Config{APIURL: config.DefaultAPIURL, Timeout: config.DefaultTimeout, LogLevel: "info"}
	}

	cmd := &cobra.Command{
		Use:          "trackflow",
		Short:        "TrackFlow CRM client: leads, orders and the sales dashboard",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  trackflow

  # Scriptable commands
  trackflow leads list --stage "Qualified"
  trackflow orders create --lead-id 3 --product "Widget" --quantity 2

  # Human-readable output
  trackflow dashboard --format table

  # Local backend for demos
  trackflow dev-server
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if app.cfgErr != nil && !isConfigCmd(cmd) {
			return writeErr(cmd, app.cfgErr)
		}
		app.APIURL = strings.TrimRight(strings.TrimSpace(app.APIURL), "/")
		app.log = logging.Console(cmd.ErrOrStderr(), app.LogLevel)
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", app.cfg.APIURL, "Base URL of the CRM API (config: api_url)")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", app.cfg.Timeout, "Per-request timeout (config: timeout)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TRACKFLOW_FORMAT", "json"), "Output format (json|table)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", app.cfg.LogLevel, "Log level (debug|info|warn|error)")

	cmd.AddCommand(newLeadsCmd(app))
	cmd.AddCommand(newOrdersCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newDevServerCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

func runTUI(app *App) error {
	client, err := app.client()
	if err != nil {
		return err
	}
	log, closer, err := logging.OpenFile(app.cfg.LogFile, app.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info().Str("api_url", app.APIURL).Msg("tui start")
	return tui.Run(tui.Options{
		Backend: client,
		Logger:  log,
		Theme:   app.cfg.Theme,
		Timeout: app.Timeout,
	})
}

func (app *App) client() (*api.Client, error) {
	if err := config.ValidateAPIURL(app.APIURL); err != nil {
		return nil, err
	}
	return api.NewClient(app.APIURL, api.WithTimeout(app.Timeout), api.WithLogger(app.log)), nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
