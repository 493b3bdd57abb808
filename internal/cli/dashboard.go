package cli

import (
	"strconv"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/format"
	"trackflow-cli/internal/model"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDashboardCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the sales dashboard metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			m, err := client.DashboardMetrics(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: metricsView(m)})
		},
	}
	return cmd
}

type snapshot struct {
	Leads   []model.Lead  `json:"leads"`
	Orders  []model.Order `json:"orders"`
	Metrics model.Metrics `json:"metrics"`
}

func (snapshot) Header() []string { return []string{"Collection", "Count"} }

func (s snapshot) Rows() [][]string {
	return [][]string{
		{"leads", strconv.Itoa(len(s.Leads))},
		{"orders", strconv.Itoa(len(s.Orders))},
		{"overdue follow-ups", strconv.Itoa(len(s.Metrics.OverdueFollowups))},
	}
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every lead, order and the dashboard metrics as one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}

			var s snapshot
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				s.Leads, err = client.ListLeads(ctx, api.LeadFilter{})
				return err
			})
			g.Go(func() error {
				var err error
				s.Orders, err = client.ListOrders(ctx, api.OrderFilter{})
				return err
			})
			g.Go(func() error {
				var err error
				s.Metrics, err = client.DashboardMetrics(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return writeErr(cmd, err)
			}

			if s.Leads == nil {
				s.Leads = []model.Lead{}
			}
			if s.Orders == nil {
				s.Orders = []model.Order{}
			}
			return writeOut(cmd, app, format.Envelope{
				Data: s,
				Meta: map[string]any{"api_url": client.BaseURL()},
			})
		},
	}
	return cmd
}
