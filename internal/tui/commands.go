package tui

import (
	"context"
	"time"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/model"
	"trackflow-cli/internal/refresh"

	tea "github.com/charmbracelet/bubbletea"
)

const flashDuration = 3 * time.Second

func requestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// fetchCmd runs the load described by t off the update loop.
func fetchCmd[R, F any](c *refresh.Collection[R, F], t refresh.Ticket[F], timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		return loadedMsg[R]{res: c.Fetch(ctx, t)}
	}
}

func leadDirCmd(c *refresh.Collection[model.Lead, noFilter], t refresh.Ticket[noFilter], timeout time.Duration) tea.Cmd {
	load := fetchCmd(c, t, timeout)
	return func() tea.Msg {
		return leadDirMsg{res: load().(loadedMsg[model.Lead]).res}
	}
}

// writeAction names a remote write as the user sees it.
type writeAction int

const (
	actionCreate writeAction = iota
	actionUpdate
	actionCategory
	actionDelete
)

func (a writeAction) kind() refresh.WriteKind {
	switch a {
	case actionCreate:
		return refresh.WriteCreate
	case actionDelete:
		return refresh.WriteDelete
	}
	return refresh.WriteUpdate
}

// writeTexts returns the flash prefix used on failure and the flash shown on success.
// An empty success shows nothing.
func writeTexts(res resource, a writeAction) (failure, success string) {
	if res == resourceOrders {
		switch a {
		case actionCreate:
			return "Failed to save order:", "Order added successfully!"
		case actionUpdate:
			return "Failed to save order:", "Order updated successfully!"
		case actionCategory:
			return "Failed to change order status.", ""
		default:
			return "Failed to delete order.", "Order deleted successfully!"
		}
	}
	switch a {
	case actionCreate:
		return "Failed to add lead.", "Lead added successfully!"
	case actionUpdate:
		return "Failed to update lead.", ""
	case actionCategory:
		return "Failed to change lead stage.", ""
	default:
		return "Failed to delete lead.", ""
	}
}

// writeCmd performs fn and reports the outcome as a writeDoneMsg.
func writeCmd(res resource, a writeAction, id model.ID, fromEdit bool, timeout time.Duration, fn func(ctx context.Context) error) tea.Cmd {
	failure, success := writeTexts(res, a)
	return func() tea.Msg {
		ctx, cancel := requestContext(timeout)
		defer cancel()
		return writeDoneMsg{
			res:      res,
			kind:     a.kind(),
			id:       id,
			fromEdit: fromEdit,
			failure:  failure,
			success:  success,
			err:      fn(ctx),
		}
	}
}

func flashClearCmd(seq int) tea.Cmd {
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m *appModel) setFlash(kind flashKind, text string) tea.Cmd {
	m.flashSeq++
	m.flash = text
	m.flashKind = kind
	if kind == flashError {
		// Errors stay until dismissed or replaced.
		return nil
	}
	return flashClearCmd(m.flashSeq)
}

func (m *appModel) setErrorFlash(prefix string, err error) tea.Cmd {
	m.log.Warn().Err(err).Msg(prefix)
	return m.setFlash(flashError, prefix+" "+api.Message(err))
}

func (m appModel) createLead(l model.Lead) tea.Cmd {
	b := m.backend
	return writeCmd(resourceLeads, actionCreate, "", false, m.timeout, func(ctx context.Context) error {
		_, err := b.CreateLead(ctx, api.LeadInputFrom(l))
		return err
	})
}

func (m appModel) createOrder(o model.Order) tea.Cmd {
	b := m.backend
	return writeCmd(resourceOrders, actionCreate, "", false, m.timeout, func(ctx context.Context) error {
		_, err := b.CreateOrder(ctx, api.OrderInputFrom(o))
		return err
	})
}
