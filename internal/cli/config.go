package cli

import (
	"encoding/json"
	"sort"

	"trackflow-cli/internal/config"
	"trackflow-cli/internal/format"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the client configuration",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfgErr != nil {
				return writeErr(cmd, app.cfgErr)
			}
			settings := app.cfg.Settings()
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			fields := make(format.Fields, 0, len(keys))
			for _, k := range keys {
				fields = append(fields, [2]string{k, settings[k]})
			}
			path, _ := config.ConfigPath()
			return writeOut(cmd, app, format.Envelope{
				Data: settingsView{settings: settings, fields: fields},
				Meta: map[string]any{"path": path},
			})
		},
	}
	return cmd
}

func newConfigSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist one configuration key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			path, _ := config.ConfigPath()
			return writeOut(cmd, app, format.Envelope{
				Data: map[string]string{"key": args[0], "value": args[1]},
				Meta: map[string]any{"path": path},
			})
		},
	}
	return cmd
}

type settingsView struct {
	settings map[string]string
	fields   format.Fields
}

func (s settingsView) MarshalJSON() ([]byte, error) { return json.Marshal(s.settings) }
func (s settingsView) Header() []string             { return s.fields.Header() }
func (s settingsView) Rows() [][]string             { return s.fields.Rows() }
