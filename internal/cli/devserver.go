package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackflow-cli/internal/devserver"

	"github.com/spf13/cobra"
)

func newDevServerCmd(app *App) *cobra.Command {
	var (
		addr   string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local CRM backend backed by SQLite",
		Long: "Run a local CRM backend backed by SQLite.\n\n" +
			"It serves the same leads, orders and dashboard endpoints the client talks to, " +
			"plus Prometheus metrics at /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := devserver.OpenStore(ctx, dbPath, time.Now)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer store.Close()

			app.log.Info().Str("db", dbPath).Msg("store open")
			srv := devserver.New(store, devserver.WithLogger(app.log))
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", app.cfg.DevServer.Addr, "Listen address (config: dev_server.addr)")
	cmd.Flags().StringVar(&dbPath, "db", app.cfg.DevServer.DBPath, "SQLite database path, or :memory: (config: dev_server.db)")
	return cmd
}
