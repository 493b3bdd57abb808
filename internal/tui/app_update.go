package tui

import (
	"context"

	"trackflow-cli/internal/model"
	"trackflow-cli/internal/refresh"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg[model.Lead]:
		var cmd tea.Cmd
		if m.leads.coll.Apply(msg.res) && msg.res.Err != nil {
			cmd = m.setErrorFlash("Failed to fetch leads.", msg.res.Err)
		}
		return m, cmd

	case leadDirMsg:
		var cmd tea.Cmd
		if m.leadDir.Apply(msg.res) && msg.res.Err != nil {
			cmd = m.setErrorFlash("Failed to fetch leads for selection.", msg.res.Err)
		}
		return m, cmd

	case loadedMsg[model.Order]:
		var cmd tea.Cmd
		if m.orders.coll.Apply(msg.res) && msg.res.Err != nil {
			cmd = m.setErrorFlash("Failed to fetch orders.", msg.res.Err)
		}
		return m, cmd

	case loadedMsg[model.Metrics]:
		// The dashboard renders its own error state.
		if m.metrics.Apply(msg.res) && msg.res.Err != nil {
			m.log.Warn().Err(msg.res.Err).Msg("dashboard metrics")
		}
		return m, nil

	case writeDoneMsg:
		var cmd tea.Cmd
		switch msg.res {
		case resourceLeads:
			cmd = m.writeDone(msg, afterWriteOf(&m, m.leads))
		case resourceOrders:
			cmd = m.writeDone(msg, afterWriteOf(&m, m.orders))
		}
		return m, cmd

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}
		return m, nil

	case tea.KeyMsg:
		cmd := m.updateKey(msg)
		return m, cmd
	}
	return m, nil
}

// writeDone resolves a finished write. On success the affected collection is
// re-fetched; nothing is patched in from the write's own response.
func (m *appModel) writeDone(msg writeDoneMsg, after func(writeDoneMsg) tea.Cmd) tea.Cmd {
	if msg.err != nil {
		after(msg)
		return m.setErrorFlash(msg.failure, msg.err)
	}
	cmds := []tea.Cmd{after(msg)}
	if msg.kind == refresh.WriteCreate && m.modal == modalForm && m.form != nil && m.form.res == msg.res {
		m.closeModal()
	}
	if msg.success != "" {
		cmds = append(cmds, m.setFlash(flashInfo, msg.success))
	}
	return tea.Batch(cmds...)
}

// afterWriteOf returns the list-specific half of writeDone: resolving the
// editor and starting the refresh.
func afterWriteOf[R, F any, K ~string](m *appModel, v *listView[R, F, K]) func(writeDoneMsg) tea.Cmd {
	return func(msg writeDoneMsg) tea.Cmd {
		if msg.err != nil {
			if msg.fromEdit {
				v.editor.Failed(msg.id)
			}
			return nil
		}
		if msg.fromEdit {
			v.editor.Saved(msg.id)
			if _, ok := v.editor.Current(); !ok {
				v.input.Blur()
			}
		}
		if !v.coll.Mounted() {
			// The next mount loads a fresh snapshot anyway.
			return nil
		}
		return fetchCmd(v.coll, v.coll.AfterWrite(msg.kind), m.timeout)
	}
}

func (m *appModel) updateKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	switch m.modal {
	case modalForm:
		return m.formKey(msg)
	case modalConfirmDelete:
		switch m.section {
		case sectionLeads:
			return confirmKey(m, m.leads, msg)
		case sectionOrders:
			return confirmKey(m, m.orders, msg)
		}
		m.closeModal()
		return nil
	case modalPickCategory:
		switch m.section {
		case sectionLeads:
			return pickerKey(m, m.leads, msg)
		case sectionOrders:
			return pickerKey(m, m.orders, msg)
		}
		m.closeModal()
		return nil
	}

	// An inline edit takes every key except ctrl+c.
	switch m.section {
	case sectionLeads:
		if _, ok := m.leads.editor.Current(); ok {
			return editingKey(m, m.leads, msg)
		}
	case sectionOrders:
		if _, ok := m.orders.editor.Current(); ok {
			return editingKey(m, m.orders, msg)
		}
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "1", "2", "3":
		return m.switchSection(sections[int(msg.String()[0]-'1')])
	case "tab":
		return m.switchSection(sections[(int(m.section)+1)%len(sections)])
	case "shift+tab":
		return m.switchSection(sections[(int(m.section)+len(sections)-1)%len(sections)])
	case "r":
		return m.enterSection(m.section)
	case "x":
		m.flash = ""
		return nil
	case "n":
		return m.openForm()
	case "f":
		return m.cycleFilter()
	case "t":
		return m.toggleDueFilter()
	case "L":
		return m.cycleLeadFilter()
	}

	switch m.section {
	case sectionLeads:
		return listKey(m, m.leads, msg)
	case sectionOrders:
		return listKey(m, m.orders, msg)
	}
	return nil
}

// switchSection leaves the current section and enters s. Edits and modals of the
// section being left are dropped.
func (m *appModel) switchSection(s section) tea.Cmd {
	if s == m.section {
		return nil
	}
	m.closeModal()
	m.section = s
	return m.enterSection(s)
}

// enterSection mounts the collections s shows and starts their loads. Every other
// collection is unmounted so late results for it are dropped.
func (m *appModel) enterSection(s section) tea.Cmd {
	var cmds []tea.Cmd
	if s == sectionLeads {
		cmds = append(cmds, fetchCmd(m.leads.coll, m.leads.coll.Mount(), m.timeout))
	} else {
		m.leads.cancelEdit()
		m.leads.coll.Unmount()
	}
	if s == sectionOrders {
		cmds = append(cmds, leadDirCmd(m.leadDir, m.leadDir.Mount(), m.timeout))
		cmds = append(cmds, fetchCmd(m.orders.coll, m.orders.coll.Mount(), m.timeout))
	} else {
		m.leadDir.Unmount()
		m.orders.cancelEdit()
		m.orders.coll.Unmount()
	}
	if s == sectionDashboard {
		cmds = append(cmds, fetchCmd(m.metrics, m.metrics.Mount(), m.timeout))
	} else {
		m.metrics.Unmount()
	}
	return tea.Batch(cmds...)
}

func (m *appModel) closeModal() {
	m.modal = modalNone
	m.form = nil
	m.confirm = confirmFocusCancel
	m.pickIdx = 0
}

// nextFilter steps through "" (all) followed by every key.
func nextFilter[K ~string](cur string, keys []K) string {
	for i, k := range keys {
		if string(k) == cur {
			if i == len(keys)-1 {
				return ""
			}
			return string(keys[i+1])
		}
	}
	if len(keys) == 0 {
		return ""
	}
	return string(keys[0])
}

func (m *appModel) cycleFilter() tea.Cmd {
	switch m.section {
	case sectionLeads:
		f := m.leads.coll.Filter()
		f.Stage = nextFilter(f.Stage, model.Stages)
		return fetchCmd(m.leads.coll, m.leads.coll.SetFilter(f), m.timeout)
	case sectionOrders:
		f := m.orders.coll.Filter()
		f.Status = nextFilter(f.Status, model.Statuses)
		return fetchCmd(m.orders.coll, m.orders.coll.SetFilter(f), m.timeout)
	}
	return nil
}

// toggleDueFilter limits the leads to those with a follow-up due today.
func (m *appModel) toggleDueFilter() tea.Cmd {
	if m.section != sectionLeads {
		return nil
	}
	f := m.leads.coll.Filter()
	if f.FollowUpDate == "" {
		f.FollowUpDate = m.today().String()
	} else {
		f.FollowUpDate = ""
	}
	return fetchCmd(m.leads.coll, m.leads.coll.SetFilter(f), m.timeout)
}

// cycleLeadFilter steps the orders filter through every known lead.
func (m *appModel) cycleLeadFilter() tea.Cmd {
	if m.section != sectionOrders {
		return nil
	}
	leads := m.leadDir.Items()
	ids := make([]model.ID, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	f := m.orders.coll.Filter()
	f.LeadID = model.ID(nextFilter(f.LeadID.String(), ids))
	return fetchCmd(m.orders.coll, m.orders.coll.SetFilter(f), m.timeout)
}

func (m *appModel) openForm() tea.Cmd {
	switch m.section {
	case sectionLeads:
		m.form = newLeadForm()
	case sectionOrders:
		m.form = newOrderForm(m.leadDir.Items(), m.today())
	default:
		return nil
	}
	m.modal = modalForm
	return nil
}

// formKey edits the create form. Submitting validates locally first; nothing is
// sent while a field has an error.
func (m *appModel) formKey(msg tea.KeyMsg) tea.Cmd {
	if m.form == nil {
		m.closeModal()
		return nil
	}
	if msg.String() == "esc" {
		m.closeModal()
		return nil
	}
	submit, cmd := m.form.update(msg)
	if !submit {
		return cmd
	}
	switch m.form.res {
	case resourceLeads:
		l, errs := m.form.lead()
		if errs != nil {
			m.form.errs = errs
			m.form.focusFirstError()
			return nil
		}
		m.form.errs = nil
		return m.createLead(l)
	default:
		o, errs := m.form.order()
		if errs != nil {
			m.form.errs = errs
			m.form.focusFirstError()
			return nil
		}
		m.form.errs = nil
		return m.createOrder(o)
	}
}

// listKey handles navigation and the per-record actions of a list section.
func listKey[R, F any, K ~string](m *appModel, v *listView[R, F, K], msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "j", "down":
		v.move(1)
	case "k", "up":
		v.move(-1)
	case "h", "left":
		v.moveCol(-1)
	case "l", "right":
		v.moveCol(1)
	case "g", "home":
		v.move(-len(v.items()))
	case "G", "end":
		v.move(len(v.items()))
	case "v":
		v.toggleProjection()
	case "e", "enter":
		v.beginEdit()
	case "s":
		rec, ok := v.selected()
		if !ok {
			return nil
		}
		m.pickIdx = 0
		for i, k := range v.keys {
			if k == v.keyOf(rec) {
				m.pickIdx = i
			}
		}
		m.modal = modalPickCategory
	case "d", "delete":
		if _, ok := v.selected(); ok {
			m.confirm = confirmFocusCancel
			m.modal = modalConfirmDelete
		}
	}
	return nil
}

// editingKey routes a key to the inline editor. Moving up or down starts editing
// the neighbouring record, which drops the current working copy unsaved.
func editingKey[R, F any, K ~string](m *appModel, v *listView[R, F, K], msg tea.KeyMsg) tea.Cmd {
	act, cmd := v.editKey(msg)
	switch act {
	case editCancel:
		v.cancelEdit()
	case editSave:
		if v.editor.Pending() {
			return cmd
		}
		ed, ok := v.prepareSave()
		if !ok {
			return cmd
		}
		save := v.save
		return tea.Batch(cmd, writeCmd(v.res, actionUpdate, ed.ID, true, m.timeout, func(ctx context.Context) error {
			return save(ctx, ed.ID, ed.Working)
		}))
	case editPrev, editNext:
		ed, _ := v.editor.Current()
		delta := 1
		if act == editPrev {
			delta = -1
		}
		v.move(delta)
		if rec, ok := v.selected(); ok && v.idOf(rec) != ed.ID {
			v.beginEdit()
		}
	}
	return cmd
}

func pickerKey[R, F any, K ~string](m *appModel, v *listView[R, F, K], msg tea.KeyMsg) tea.Cmd {
	n := len(v.keys)
	switch msg.String() {
	case "esc", "q":
		m.closeModal()
	case "j", "down":
		if n > 0 {
			m.pickIdx = (m.pickIdx + 1) % n
		}
	case "k", "up":
		if n > 0 {
			m.pickIdx = (m.pickIdx - 1 + n) % n
		}
	case "enter":
		rec, ok := v.selected()
		idx := m.pickIdx
		m.closeModal()
		if !ok || n == 0 {
			return nil
		}
		if idx < 0 || idx >= n {
			idx = 0
		}
		key := v.keys[idx]
		if key == v.keyOf(rec) {
			return nil
		}
		id, setKey := v.idOf(rec), v.setKey
		return writeCmd(v.res, actionCategory, id, false, m.timeout, func(ctx context.Context) error {
			return setKey(ctx, id, key)
		})
	}
	return nil
}

func confirmKey[R, F any, K ~string](m *appModel, v *listView[R, F, K], msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "n", "q":
		m.closeModal()
		return nil
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.confirm == confirmFocusConfirm {
			m.confirm = confirmFocusCancel
		} else {
			m.confirm = confirmFocusConfirm
		}
		return nil
	case "y":
		m.confirm = confirmFocusConfirm
	case "enter":
	default:
		return nil
	}

	confirmed := m.confirm == confirmFocusConfirm
	rec, ok := v.selected()
	m.closeModal()
	if !confirmed || !ok {
		return nil
	}
	id, remove := v.idOf(rec), v.remove
	return writeCmd(v.res, actionDelete, id, false, m.timeout, func(ctx context.Context) error {
		return remove(ctx, id)
	})
}
