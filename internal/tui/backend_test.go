package tui

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

// fakeBackend is an in-memory Backend that records every call.
type fakeBackend struct {
	mu      sync.Mutex
	leads   []model.Lead
	orders  []model.Order
	metrics model.Metrics
	nextID  int
	calls   map[string]int
	fail    map[string]error
	patches []api.LeadPatch
}

func newFakeBackend(leads ...model.Lead) *fakeBackend {
	return &fakeBackend{leads: leads, nextID: 100, calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeBackend) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeBackend) ListLeads(_ context.Context, flt api.LeadFilter) ([]model.Lead, error) {
	if err := f.record("ListLeads"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st, byStage := model.ParseStage(flt.Stage)
	out := []model.Lead{}
	for _, l := range f.leads {
		if byStage && l.Stage != st {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeBackend) CreateLead(_ context.Context, in api.LeadInput) (model.Lead, error) {
	if err := f.record("CreateLead"); err != nil {
		return model.Lead{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l := model.Lead{ID: model.ID(strconv.Itoa(f.nextID)), Name: in.Name, Contact: in.Contact, Stage: model.StageNewLead}
	l.Notes, _ = in.Notes.Get()
	f.leads = append(f.leads, l)
	return l, nil
}

func (f *fakeBackend) UpdateLead(_ context.Context, id model.ID, p api.LeadPatch) (model.Lead, error) {
	if err := f.record("UpdateLead"); err != nil {
		return model.Lead{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, p)
	for i := range f.leads {
		if f.leads[i].ID != id {
			continue
		}
		if v, ok := p.Name.Get(); ok {
			f.leads[i].Name = v
		}
		if v, ok := p.Contact.Get(); ok {
			f.leads[i].Contact = v
		}
		if v, ok := p.Stage.Get(); ok {
			f.leads[i].Stage = v
		}
		return f.leads[i], nil
	}
	return model.Lead{}, &api.Error{Op: "update lead", Kind: api.KindStatus, StatusCode: 404, Detail: "Lead not found"}
}

func (f *fakeBackend) DeleteLead(_ context.Context, id model.ID) error {
	if err := f.record("DeleteLead"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads = append(f.leads[:i], f.leads[i+1:]...)
			return nil
		}
	}
	return &api.Error{Op: "delete lead", Kind: api.KindStatus, StatusCode: 404, Detail: "Lead not found"}
}

func (f *fakeBackend) ListOrders(_ context.Context, flt api.OrderFilter) ([]model.Order, error) {
	if err := f.record("ListOrders"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st, byStatus := model.ParseStatus(flt.Status)
	out := []model.Order{}
	for _, o := range f.orders {
		if byStatus && o.Status != st {
			continue
		}
		if !flt.LeadID.IsZero() && o.LeadID != flt.LeadID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeBackend) CreateOrder(_ context.Context, in api.OrderInput) (model.Order, error) {
	if err := f.record("CreateOrder"); err != nil {
		return model.Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o := model.Order{
		ID:          model.ID(strconv.Itoa(f.nextID)),
		LeadID:      in.LeadID,
		ProductName: in.ProductName,
		Quantity:    in.Quantity,
		OrderDate:   in.OrderDate,
		Status:      in.Status,
	}
	f.orders = append(f.orders, o)
	return o, nil
}

func (f *fakeBackend) UpdateOrder(_ context.Context, id model.ID, p api.OrderPatch) (model.Order, error) {
	if err := f.record("UpdateOrder"); err != nil {
		return model.Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID != id {
			continue
		}
		if v, ok := p.Status.Get(); ok {
			f.orders[i].Status = v
		}
		if v, ok := p.ProductName.Get(); ok {
			f.orders[i].ProductName = v
		}
		return f.orders[i], nil
	}
	return model.Order{}, &api.Error{Op: "update order", Kind: api.KindStatus, StatusCode: 404, Detail: "Order not found"}
}

func (f *fakeBackend) DeleteOrder(_ context.Context, id model.ID) error {
	if err := f.record("DeleteOrder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return nil
		}
	}
	return &api.Error{Op: "delete order", Kind: api.KindStatus, StatusCode: 404, Detail: "Order not found"}
}

func (f *fakeBackend) DashboardMetrics(context.Context) (model.Metrics, error) {
	if err := f.record("DashboardMetrics"); err != nil {
		return model.Metrics{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics, nil
}

func newTestModel(b *fakeBackend) appModel {
	m := newAppModel(b, zerolog.Nop(), time.Second)
	m.today = func() model.Date { return model.NewDate(2025, time.June, 10) }
	m.width, m.height = 120, 40
	return m
}

// settle runs cmd and feeds every resulting message back into m until nothing is
// left. Commands that do not finish promptly (ticks, cursor blinks) are skipped.
func settle(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatalf("settle: too many steps")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := runQuick(c)
		switch msg := msg.(type) {
		case nil:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg:
			continue
		}
		next, c2 := m.Update(msg)
		m = next.(appModel)
		queue = append(queue, c2)
	}
	return m
}

func runQuick(c tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends keys one at a time, settling after each.
func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyPress(k))
		m = settle(t, next.(appModel), cmd)
	}
	return m
}

// typeText sends each rune of s as its own key press.
func typeText(t *testing.T, m appModel, s string) appModel {
	t.Helper()
	for _, r := range s {
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = settle(t, next.(appModel), cmd)
	}
	return m
}

func sampleLeads() []model.Lead {
	due := model.NewDate(2025, time.June, 12)
	return []model.Lead{
		{ID: "1", Name: "Alice", Contact: "alice@example.com", Company: "Acme", Stage: model.StageNewLead, FollowUpDate: &due},
		{ID: "2", Name: "Bob", Contact: "5551234567", Stage: model.StageContacted, Notes: "Prefers **email**"},
		{ID: "3", Name: "Cara", Contact: "cara@example.com", Stage: model.StageNewLead},
	}
}
