package cli

import (
	"fmt"
	"strings"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/board"
	"trackflow-cli/internal/format"
	"trackflow-cli/internal/model"
	"trackflow-cli/internal/validate"

	"github.com/spf13/cobra"
)

func newLeadsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "leads",
		Aliases: []string{"lead"},
		Short:   "Lead commands",
	}
	cmd.AddCommand(newLeadsListCmd(app))
	cmd.AddCommand(newLeadsShowCmd(app))
	cmd.AddCommand(newLeadsCreateCmd(app))
	cmd.AddCommand(newLeadsUpdateCmd(app))
	cmd.AddCommand(newLeadsStageCmd(app))
	cmd.AddCommand(newLeadsDeleteCmd(app))
	cmd.AddCommand(newLeadsBoardCmd(app))
	return cmd
}

// leadFlags are the editable lead fields, as flags, in form order.
var leadFlags = []fieldFlag{
	{flag: "name", field: "name", usage: "Lead name"},
	{flag: "contact", field: "contact", usage: "Email or 10-digit phone number"},
	{flag: "company", field: "company", usage: "Company"},
	{flag: "product-interest", field: "product_interest", usage: "Product of interest"},
	{flag: "follow-up-date", field: "follow_up_date", usage: "Follow-up date (YYYY-MM-DD; empty clears)"},
	{flag: "notes", field: "notes", usage: "Notes (markdown)"},
}

func newLeadsListCmd(app *App) *cobra.Command {
	var filter api.LeadFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if st, ok := canonicalChoice(filter.Stage, model.Stages); ok {
				filter.Stage = string(st)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			leads, err := client.ListLeads(cmd.Context(), filter)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data: leadTable(leads),
				Meta: map[string]any{"count": len(leads), "filter": filterMeta("stage", filter.Stage, "follow_up_date", filter.FollowUpDate)},
			})
		},
	}

	cmd.Flags().StringVar(&filter.Stage, "stage", "", "Only leads in this stage (All or empty: every lead)")
	cmd.Flags().StringVar(&filter.FollowUpDate, "follow-up-date", "", "Only leads with this follow-up date (YYYY-MM-DD)")
	return cmd
}

func newLeadsShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <lead-id>",
		Short: "Show one lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			l, err := client.GetLead(cmd.Context(), argID(args[0]))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: leadRecord(l)})
		},
	}
	return cmd
}

func newLeadsCreateCmd(app *App) *cobra.Command {
	values := make([]string, len(leadFlags))

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lead (the server assigns the initial stage)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var l model.Lead
			if err := applyFlags(cmd, leadFlags, values, l.Set); err != nil {
				return writeErr(cmd, err)
			}
			if err := validate.Lead(l); err != nil {
				return writeErr(cmd, err)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			created, err := client.CreateLead(cmd.Context(), api.LeadInputFrom(l))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  leadRecord(created),
				Hints: []string{fmt.Sprintf("trackflow leads stage %s %q", created.ID, model.StageContacted)},
			})
		},
	}

	bindFlags(cmd, leadFlags, values)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("contact")
	return cmd
}

func newLeadsUpdateCmd(app *App) *cobra.Command {
	values := make([]string, len(leadFlags))

	cmd := &cobra.Command{
		Use:   "update <lead-id>",
		Short: "Change fields of a lead; only the given flags are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := changedFields(cmd, leadFlags)
			if len(changed) == 0 {
				return writeErr(cmd, errNothingToUpdate)
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			id := argID(args[0])
			cur, err := client.GetLead(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Validate the record as it will look after the change.
			working := cur
			if err := applyFlags(cmd, leadFlags, values, working.Set); err != nil {
				return writeErr(cmd, err)
			}
			if err := validate.Lead(working); err != nil {
				return writeErr(cmd, err)
			}
			updated, err := client.UpdateLead(cmd.Context(), id, api.LeadPatchFields(working, changed...))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: leadRecord(updated)})
		},
	}

	bindFlags(cmd, leadFlags, values)
	return cmd
}

func newLeadsStageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage <lead-id> <stage>",
		Short: "Move a lead to another pipeline stage",
		Long:  "Move a lead to another pipeline stage. Stages: " + strings.Join(choiceNames(model.Stages), ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, ok := canonicalChoice(args[1], model.Stages)
			if !ok {
				return writeErr(cmd, invalidChoiceError{what: "stage", value: args[1], allowed: choiceNames(model.Stages)})
			}
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			updated, err := client.UpdateLead(cmd.Context(), argID(args[0]), api.StagePatch(st))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: leadRecord(updated)})
		},
	}
	return cmd
}

func newLeadsDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <lead-id>",
		Short: "Delete a lead (its orders are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			id := argID(args[0])
			if err := client.DeleteLead(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: deleted{ID: id, Deleted: true}})
		},
	}
	return cmd
}

func newLeadsBoardCmd(app *App) *cobra.Command {
	var followUp string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show leads grouped by stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.client()
			if err != nil {
				return writeErr(cmd, err)
			}
			leads, err := client.ListLeads(cmd.Context(), api.LeadFilter{FollowUpDate: followUp})
			if err != nil {
				return writeErr(cmd, err)
			}
			b := board.Partition(leads, model.Stages, func(l model.Lead) model.Stage { return l.Stage })
			return writeOut(cmd, app, format.Envelope{
				Data: newBoardView(b, func(l model.Lead) string { return l.Name }),
			})
		},
	}

	cmd.Flags().StringVar(&followUp, "follow-up-date", "", "Only leads with this follow-up date (YYYY-MM-DD)")
	return cmd
}
