package cli

import (
	"strings"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/board"
	"trackflow-cli/internal/format"
	"trackflow-cli/internal/model"
	"trackflow-cli/internal/validate"

	"github.com/spf13/cobra"
)

func newOrdersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "Order commands",
	}
	cmd.AddCommand(newOrdersListCmd(app))
	cmd.AddCommand(newOrdersShowCmd(app))
	cmd.AddCommand(newOrdersCreateCmd(app))
	cmd.AddCommand(newOrdersUpdateCmd(app))
	cmd.AddCommand(newOrdersStatusCmd(app))
	cmd.AddCommand(newOrdersDeleteCmd(app))
	cmd.AddCommand(newOrdersBoardCmd(app))
	return cmd
}

// The owning lead is fixed at creation, so it is not among these.
var orderFlags = []fieldFlag{
	{flag: "product", field: "product_name", usage: "Product name"},
	{flag: "quantity", field: "quantity", usage: "Quantity (positive integer)"},
	{flag: "order-date", field: "order_date", usage: "Order date (YYYY-MM-DD; default today)"},
	{flag: "status", field: "status", usage: "Status (default Received)", choices: choiceNames(model.Statuses)},
	{flag: "delivery-date", field: "delivery_date", usage: "Delivery date (YYYY-MM-DD; empty clears)"},
	{flag: "tracking-number", field: "tracking_number", usage: "Carrier tracking number"},
	{flag: "notes", field: "notes", usage: "Notes (markdown)"},
}

func newOrdersListCmd(app *App) *cobra.Command {
	var (
		leadID string
		status string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if st, ok := canonicalChoice(status, model.Statuses); ok {
				status = string(st)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			orders, err := client.ListOrders(cmd.Context(), api.OrderFilter{LeadID: argID(leadID), Status: status})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data: orderTable(orders),
				Meta: map[string]any{"count": len(orders), "filter": filterMeta("lead_id", leadID, "status", status)},
			})
		},
	}

	cmd.Flags().StringVar(&leadID, "lead-id", "", "Only orders of this lead")
	cmd.Flags().StringVar(&status, "status", "", "Only orders with this status (All or empty: every order)")
	return cmd
}

func newOrdersShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			o, err := client.GetOrder(cmd.Context(), argID(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: orderRecord(o)})
		},
	}
	return cmd
}

func newOrdersCreateCmd(app *App) *cobra.Command {
	var leadID string
	values := make([]string, len(orderFlags))

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an order for a lead",
		RunE: func(cmd *cobra.Command, args []string) error {
			o := model.Order{LeadID: argID(leadID)}
			if err := applyFlags(cmd, orderFlags, values, o.Set); err != nil {
				return writeErr(cmd, err)
			}
			if err := validate.NewOrder(o); err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			created, err := client.CreateOrder(cmd.Context(), api.OrderInputFrom(o))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: orderRecord(created)})
		},
	}

	cmd.Flags().StringVar(&leadID, "lead-id", "", "Lead the order belongs to")
	bindFlags(cmd, orderFlags, values)
	_ = cmd.MarkFlagRequired("lead-id")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func newOrdersUpdateCmd(app *App) *cobra.Command {
	values := make([]string, len(orderFlags))

	cmd := &cobra.Command{
		Use:   "update <order-id>",
		Short: "Change fields of an order; only the given flags are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := changedFields(cmd, orderFlags)
			if len(changed) == 0 {
				return writeErr(cmd, errNothingToUpdate)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			id := argID(args[0])
			working, err := client.GetOrder(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := applyFlags(cmd, orderFlags, values, working.Set); err != nil {
				return writeErr(cmd, err)
			}
			if err := validate.Order(working); err != nil {
				return writeErr(cmd, err)
			}
			updated, err := client.UpdateOrder(cmd.Context(), id, api.OrderPatchFields(working, changed...))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: orderRecord(updated)})
		},
	}

	bindFlags(cmd, orderFlags, values)
	return cmd
}

func newOrdersStatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Move an order to another fulfillment status",
		Long:  "Move an order to another fulfillment status. Statuses: " + strings.Join(choiceNames(model.Statuses), ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, ok := canonicalChoice(args[1], model.Statuses)
			if !ok {
				return writeErr(cmd, invalidChoiceError{what: "status", value: args[1], allowed: choiceNames(model.Statuses)})
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			updated, err := client.UpdateOrder(cmd.Context(), argID(args[0]), api.StatusPatch(st))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: orderRecord(updated)})
		},
	}
	return cmd
}

func newOrdersDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <order-id>",
		Short: "Delete an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			id := argID(args[0])
			if err := client.DeleteOrder(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: deleted{ID: id, Deleted: true}})
		},
	}
	return cmd
}

func newOrdersBoardCmd(app *App) *cobra.Command {
	var leadID string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show orders grouped by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			orders, err := client.ListOrders(cmd.Context(), api.OrderFilter{LeadID: argID(leadID)})
			if err != nil {
				return writeErr(cmd, err)
			}
			b := board.Partition(orders, model.Statuses, func(o model.Order) model.Status { return o.Status })
			return writeOut(cmd, app, format.Envelope{
				Data: newBoardView(b, func(o model.Order) string { return o.ProductName + " #" + o.ID.String() }),
			})
		},
	}

	cmd.Flags().StringVar(&leadID, "lead-id", "", "Only orders of this lead")
	return cmd
}
