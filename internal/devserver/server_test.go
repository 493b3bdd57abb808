package devserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/devserver"
	"trackflow-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.June, 10, 15, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *api.Client) {
	t.Helper()
	ctx := context.Background()
	st, err := devserver.OpenStore(ctx, filepath.Join(t.TempDir(), "crm.sqlite"), func() time.Time { return fixedNow })
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(devserver.New(st, devserver.WithClock(func() time.Time { return fixedNow })).Handler())
	t.Cleanup(srv.Close)
	return srv, api.NewClient(srv.URL)
}

func TestLeadLifecycle_EndToEnd(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	created, err := c.CreateLead(ctx, api.LeadInputFrom(model.Lead{Name: "Ada", Contact: "ada@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, devserver.DefaultStage, created.Stage)
	assert.False(t, created.CreatedAt.IsZero())

	leads, err := c.ListLeads(ctx, api.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, created.ID, leads[0].ID)

	_, err = c.UpdateLead(ctx, created.ID, api.StagePatch(model.StageQualified))
	require.NoError(t, err)

	leads, err = c.ListLeads(ctx, api.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, model.StageQualified, leads[0].Stage)
	assert.NotNil(t, leads[0].UpdatedAt)

	require.NoError(t, c.DeleteLead(ctx, created.ID))
	leads, err = c.ListLeads(ctx, api.LeadFilter{})
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestUpdateLead_ExplicitNullClearsOnlyThatField(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	fu := model.NewDate(2025, time.June, 12)
	created, err := c.CreateLead(ctx, api.LeadInputFrom(model.Lead{Name: "Ada", Contact: "5551234567", Company: "ACME", FollowUpDate: &fu}))
	require.NoError(t, err)
	require.NotNil(t, created.FollowUpDate)

	updated, err := c.UpdateLead(ctx, created.ID, api.LeadPatch{FollowUpDate: api.Null[model.Date]()})
	require.NoError(t, err)
	assert.Nil(t, updated.FollowUpDate)
	assert.Equal(t, "ACME", updated.Company)
	assert.Equal(t, "Ada", updated.Name)
}

func TestNotFound_CarriesDetail(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.UpdateLead(ctx, "999", api.StagePatch(model.StageContacted))
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "Lead not found", api.Message(err))

	_, err = c.CreateOrder(ctx, api.OrderInputFrom(model.Order{LeadID: "42", ProductName: "Widget", Quantity: 1}))
	require.Error(t, err)
	assert.Equal(t, "Lead with ID 42 not found.", api.Message(err))

	err = c.DeleteOrder(ctx, "5")
	assert.Equal(t, "Order not found", api.Message(err))
}

func TestValidation_Returns422List(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/leads/", "application/json", strings.NewReader(`{"contact":"x","stage":"Won"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Detail []struct {
			Loc []string `json:"loc"`
			Msg string   `json:"msg"`
		} `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Detail, 2)
	fields := []string{body.Detail[0].Loc[1], body.Detail[1].Loc[1]}
	assert.ElementsMatch(t, []string{"name", "stage"}, fields)
}

func TestOrders_FilterDefaultsAndImmutableLead(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	ada, err := c.CreateLead(ctx, api.LeadInputFrom(model.Lead{Name: "Ada", Contact: "ada@example.com"}))
	require.NoError(t, err)
	bo, err := c.CreateLead(ctx, api.LeadInputFrom(model.Lead{Name: "Bo", Contact: "bo@example.com"}))
	require.NoError(t, err)

	o1, err := c.CreateOrder(ctx, api.OrderInput{LeadID: ada.ID, ProductName: "Widget", Quantity: 2, Status: model.StatusReceived, OrderDate: model.DateOf(fixedNow)})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", o1.OrderDate.String())
	assert.Equal(t, model.StatusReceived, o1.Status)

	_, err = c.CreateOrder(ctx, api.OrderInputFrom(model.Order{LeadID: bo.ID, ProductName: "Gadget", Quantity: 1, Status: model.StatusDispatched}))
	require.NoError(t, err)

	dispatched, err := c.ListOrders(ctx, api.OrderFilter{Status: "Dispatched"})
	require.NoError(t, err)
	require.Len(t, dispatched, 1)
	assert.Equal(t, "Gadget", dispatched[0].ProductName)

	for _, unfiltered := range []string{"", "All", "shipped"} {
		all, err := c.ListOrders(ctx, api.OrderFilter{Status: unfiltered})
		require.NoError(t, err)
		assert.Len(t, all, 2, "filter %q", unfiltered)
	}

	byLead, err := c.ListOrders(ctx, api.OrderFilter{LeadID: ada.ID})
	require.NoError(t, err)
	require.Len(t, byLead, 1)

	updated, err := c.UpdateOrder(ctx, o1.ID, api.OrderPatch{Quantity: api.Some(5), DeliveryDate: api.Some(model.NewDate(2025, time.July, 1))})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, ada.ID, updated.LeadID)
	assert.Equal(t, "2025-07-01", updated.DeliveryDate.String())

	_, err = c.UpdateOrder(ctx, o1.ID, api.OrderPatch{Quantity: api.Some(0)})
	require.Error(t, err)
	assert.Contains(t, api.Message(err), "greater than 0")

	// Deleting the lead leaves its orders behind with a dangling reference.
	require.NoError(t, c.DeleteLead(ctx, ada.ID))
	orphans, err := c.ListOrders(ctx, api.OrderFilter{LeadID: ada.ID})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	leads, err := c.ListLeads(ctx, api.LeadFilter{})
	require.NoError(t, err)
	assert.Equal(t, "N/A", model.LeadName(leads, orphans[0].LeadID))
}

func TestDashboardMetrics(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()
	today := model.DateOf(fixedNow)

	mk := func(name string, stage model.Stage, fu *model.Date) {
		l, err := c.CreateLead(ctx, api.LeadInputFrom(model.Lead{Name: name, Contact: "5551234567", FollowUpDate: fu}))
		require.NoError(t, err)
		if stage != "" {
			_, err = c.UpdateLead(ctx, l.ID, api.StagePatch(stage))
			require.NoError(t, err)
		}
	}
	d := func(days int) *model.Date { v := today.AddDays(days); return &v }

	mk("today", "", d(0))
	mk("week edge", "", d(7))
	mk("too far", "", d(8))
	mk("overdue", model.StageContacted, d(-1))
	mk("closed overdue", model.StageClosedLost, d(-3))
	mk("no date", model.StageClosedWon, nil)

	m, err := c.DashboardMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, m.TotalLeads)
	assert.Equal(t, 2, m.FollowupsDueThisWeek)
	require.Len(t, m.OverdueFollowups, 1)
	assert.Equal(t, "overdue", m.OverdueFollowups[0].Name)
	assert.Equal(t, 3, m.LeadsByStage[string(model.StageNewLead)])
	assert.Equal(t, 0, m.TotalOrders)
	assert.NotNil(t, m.OrdersByStatus)
}

func TestPrometheusEndpoint(t *testing.T) {
	srv, c := newTestServer(t)
	ctx := context.Background()
	_, err := c.ListLeads(ctx, api.LeadFilter{})
	require.NoError(t, err)
	_, err = c.GetLead(ctx, "41")
	require.Error(t, err)
	_, err = c.GetLead(ctx, "42")
	require.Error(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// chi reports the mounted collection route without its trailing slash.
	assert.Contains(t, string(b), `http_requests_total{method="GET",path="/leads",status="200"} 1`)
	assert.Contains(t, string(b), `http_requests_total{method="GET",path="/leads/{id}",status="404"} 2`)
	assert.NotContains(t, string(b), `path="/leads/41"`)
}

func TestGetRecord(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	l, err := c.CreateLead(ctx, api.LeadInputFrom(model.Lead{Name: "Ada", Contact: "ada@example.com", Notes: "likes **bold** ideas"}))
	require.NoError(t, err)
	got, err := c.GetLead(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "likes **bold** ideas", got.Notes)

	_, err = c.GetOrder(ctx, "77")
	assert.True(t, api.IsNotFound(err))
}
