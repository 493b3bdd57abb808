package tui

import (
	"context"
	"strconv"
	"time"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/edit"
	"trackflow-cli/internal/model"
	"trackflow-cli/internal/refresh"
	"trackflow-cli/internal/validate"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// Backend is the remote collection API the TUI talks to. *api.Client implements it.
type Backend interface {
	ListLeads(ctx context.Context, f api.LeadFilter) ([]model.Lead, error)
	CreateLead(ctx context.Context, in api.LeadInput) (model.Lead, error)
	UpdateLead(ctx context.Context, id model.ID, p api.LeadPatch) (model.Lead, error)
	DeleteLead(ctx context.Context, id model.ID) error
	ListOrders(ctx context.Context, f api.OrderFilter) ([]model.Order, error)
	CreateOrder(ctx context.Context, in api.OrderInput) (model.Order, error)
	UpdateOrder(ctx context.Context, id model.ID, p api.OrderPatch) (model.Order, error)
	DeleteOrder(ctx context.Context, id model.ID) error
	DashboardMetrics(ctx context.Context) (model.Metrics, error)
}

var _ Backend = (*api.Client)(nil)

type noFilter struct{}

type (
	leadsView  = listView[model.Lead, api.LeadFilter, model.Stage]
	ordersView = listView[model.Order, api.OrderFilter, model.Status]
)

type appModel struct {
	backend Backend
	log     zerolog.Logger
	timeout time.Duration
	today   func() model.Date

	width  int
	height int

	section section
	leads   *leadsView
	orders  *ordersView
	metrics *refresh.Collection[model.Metrics, noFilter]
	// leadDir is every lead, whatever the leads filter. Orders read names from it.
	leadDir *refresh.Collection[model.Lead, noFilter]

	spinner spinner.Model

	modal   modalKind
	form    *form
	confirm confirmModalFocus
	// pickIdx is the cursor of the stage/status picker.
	pickIdx int

	flash     string
	flashKind flashKind
	flashSeq  int
}

func newAppModel(b Backend, log zerolog.Logger, timeout time.Duration) appModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := appModel{
		backend: b,
		log:     log,
		timeout: timeout,
		today:   model.Today,
		section: sectionDashboard,
		spinner: sp,
	}
	m.leads = newLeadsView(b)
	m.leadDir = refresh.New(func(ctx context.Context, _ noFilter) ([]model.Lead, error) {
		return b.ListLeads(ctx, api.LeadFilter{})
	})
	m.orders = newOrdersView(b, m.leadDir)
	m.metrics = refresh.New(func(ctx context.Context, _ noFilter) ([]model.Metrics, error) {
		met, err := b.DashboardMetrics(ctx)
		if err != nil {
			return nil, err
		}
		return []model.Metrics{met}, nil
	})
	// Sections other than the first one start unmounted.
	m.leads.coll.Unmount()
	m.orders.coll.Unmount()
	m.leadDir.Unmount()
	return m
}

func newLeadsView(b Backend) *leadsView {
	v := &leadsView{
		res: resourceLeads,
		coll: refresh.New(func(ctx context.Context, f api.LeadFilter) ([]model.Lead, error) {
			return b.ListLeads(ctx, f)
		}),
		editor:   edit.New((*model.Lead).Set),
		fields:   model.LeadFields,
		keyField: "stage",
		keys:     model.Stages,
		keyOf:    func(l model.Lead) model.Stage { return l.Stage },
		idOf:     func(l model.Lead) model.ID { return l.ID },
		get:      model.Lead.Get,
		check:    validate.Lead,
		input:    newInlineInput(),
		save: func(ctx context.Context, id model.ID, l model.Lead) error {
			_, err := b.UpdateLead(ctx, id, api.LeadPatchFrom(l))
			return err
		},
		remove: b.DeleteLead,
		setKey: func(ctx context.Context, id model.ID, st model.Stage) error {
			_, err := b.UpdateLead(ctx, id, api.StagePatch(st))
			return err
		},
	}
	v.columns = []column[model.Lead]{
		{title: "Name", field: "name", value: func(l model.Lead) string { return l.Name }, width: 18},
		{title: "Contact", field: "contact", value: func(l model.Lead) string { return l.Contact }, width: 22},
		{title: "Company", field: "company", value: func(l model.Lead) string { return orNA(l.Company) }, width: 16},
		{title: "Product Interest", field: "product_interest", value: func(l model.Lead) string { return orNA(l.ProductInterest) }, width: 16},
		{title: "Follow-up Date", field: "follow_up_date", value: func(l model.Lead) string { return orNA(l.Get("follow_up_date")) }, width: 12},
		{title: "Notes", field: "notes", value: func(l model.Lead) string { return orNA(l.Notes) }, width: 20},
		{title: "Stage", field: "stage", value: func(l model.Lead) string { return string(l.Stage) }, width: 13},
	}
	v.card = func(l model.Lead) (string, []string) {
		return l.Name, []string{
			"Contact: " + l.Contact,
			"Company: " + orNA(l.Company),
			"Follow-up: " + orNA(l.Get("follow_up_date")),
		}
	}
	return v
}

// newOrdersView resolves lead names through the unfiltered lead directory.
func newOrdersView(b Backend, leads *refresh.Collection[model.Lead, noFilter]) *ordersView {
	v := &ordersView{
		res: resourceOrders,
		coll: refresh.New(func(ctx context.Context, f api.OrderFilter) ([]model.Order, error) {
			return b.ListOrders(ctx, f)
		}),
		editor:   edit.New((*model.Order).Set),
		fields:   model.OrderFields,
		keyField: "status",
		keys:     model.Statuses,
		keyOf:    func(o model.Order) model.Status { return o.Status },
		idOf:     func(o model.Order) model.ID { return o.ID },
		get:      model.Order.Get,
		check:    validate.Order,
		input:    newInlineInput(),
		save: func(ctx context.Context, id model.ID, o model.Order) error {
			_, err := b.UpdateOrder(ctx, id, api.OrderPatchFrom(o))
			return err
		},
		remove: b.DeleteOrder,
		setKey: func(ctx context.Context, id model.ID, st model.Status) error {
			_, err := b.UpdateOrder(ctx, id, api.StatusPatch(st))
			return err
		},
	}
	leadName := func(o model.Order) string { return model.LeadName(leads.Items(), o.LeadID) }
	v.columns = []column[model.Order]{
		{title: "Lead", value: leadName, width: 16},
		{title: "Product", field: "product_name", value: func(o model.Order) string { return o.ProductName }, width: 18},
		{title: "Qty", field: "quantity", value: func(o model.Order) string { return strconv.Itoa(o.Quantity) }, width: 5},
		{title: "Order Date", field: "order_date", value: func(o model.Order) string { return displayDate(&o.OrderDate) }, width: 12},
		{title: "Status", field: "status", value: func(o model.Order) string { return string(o.Status) }, width: 17},
		{title: "Delivery Date", field: "delivery_date", value: func(o model.Order) string { return displayDate(o.DeliveryDate) }, width: 12},
		{title: "Tracking #", field: "tracking_number", value: func(o model.Order) string { return orNA(o.TrackingNumber) }, width: 14},
		{title: "Notes", field: "notes", value: func(o model.Order) string { return orNA(o.Notes) }, width: 18},
	}
	v.card = func(o model.Order) (string, []string) {
		return o.ProductName, []string{
			"Lead: " + leadName(o),
			"Qty: " + strconv.Itoa(o.Quantity),
			"Ordered: " + displayDate(&o.OrderDate),
		}
	}
	return v
}

// displayDate formats a calendar date like "Jan 2, 2006", or N/A.
func displayDate(d *model.Date) string {
	if d == nil || d.IsZero() {
		return "N/A"
	}
	return d.Format("Jan 2, 2006")
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.enterSection(sectionDashboard))
}
