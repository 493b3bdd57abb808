package tui

import (
	"strings"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
)

func (m appModel) View() string {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}

	header := m.renderHeader(w)
	footer := m.renderFooter(w)
	flash := m.renderFlash(w)
	bodyH := h - lipgloss.Height(header) - lipgloss.Height(footer)
	if flash != "" {
		bodyH -= lipgloss.Height(flash)
	}
	bodyH = max(bodyH, 3)

	var body string
	if modal := m.renderModal(w); modal != "" {
		body = lipgloss.Place(w, bodyH, lipgloss.Center, lipgloss.Center, modal)
	} else {
		switch m.section {
		case sectionDashboard:
			body = m.renderDashboard(w, bodyH)
		case sectionLeads:
			body = renderList(m.leads, w, bodyH, "No leads found. Add a new one!", func(l model.Lead) string { return l.Notes })
		case sectionOrders:
			body = renderList(m.orders, w, bodyH, "No orders found.", func(o model.Order) string { return o.Notes })
		}
	}

	parts := []string{header, normalizePane(body, w, bodyH)}
	if flash != "" {
		parts = append(parts, flash)
	}
	parts = append(parts, footer)
	return strings.Join(parts, "\n")
}

func (m appModel) loading() bool {
	return m.leads.coll.Loading() || m.orders.coll.Loading() || m.leadDir.Loading() || m.metrics.Loading()
}

func (m appModel) renderHeader(width int) string {
	tab := lipgloss.NewStyle().Padding(0, 1).Foreground(colorChromeMutedFg)
	active := tab.Bold(true).Foreground(colorAccentFg).Background(colorAccent)

	tabs := make([]string, 0, len(sections))
	for i, s := range sections {
		label := string(rune('1'+i)) + " " + s.String()
		if s == m.section {
			tabs = append(tabs, active.Render(label))
		} else {
			tabs = append(tabs, tab.Render(label))
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	var info []string
	switch m.section {
	case sectionLeads:
		f := m.leads.coll.Filter()
		info = append(info, "stage: "+filterLabel(f.Stage))
		if f.FollowUpDate != "" {
			info = append(info, "follow-up: "+f.FollowUpDate)
		}
		info = append(info, m.leads.projection.String())
	case sectionOrders:
		f := m.orders.coll.Filter()
		info = append(info, "status: "+filterLabel(f.Status))
		if !f.LeadID.IsZero() {
			info = append(info, "lead: "+model.LeadName(m.leadDir.Items(), f.LeadID))
		}
		info = append(info, m.orders.projection.String())
	}
	if m.loading() {
		info = append(info, m.spinner.View())
	}
	right := styleMuted().Render(strings.Join(info, "  "))

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return truncateText(left+strings.Repeat(" ", gap)+right, width)
}

func filterLabel(v string) string {
	if v == "" {
		return model.FilterAll
	}
	return v
}

func (m appModel) renderFooter(width int) string {
	var help string
	switch {
	case m.modal != modalNone:
		help = "ctrl+c: quit"
	case m.section == sectionDashboard:
		help = "1-3/tab: section   r: refresh   q: quit"
	case m.section == sectionLeads:
		help = "j/k: move   v: table/kanban   e: edit   s: stage   n: new   d: delete   f: stage filter   t: due today   r: refresh   q: quit"
	default:
		help = "j/k: move   v: table/kanban   e: edit   s: status   n: new   d: delete   f: status filter   L: lead filter   r: refresh   q: quit"
	}
	return styleMuted().Render(truncateText(help, width))
}

func (m appModel) renderFlash(width int) string {
	if m.flash == "" {
		return ""
	}
	st := lipgloss.NewStyle().Foreground(colorSuccessFg)
	text := m.flash
	if m.flashKind == flashError {
		st = lipgloss.NewStyle().Foreground(colorAccentFg).Background(colorFlashErrorBg)
		text += "  (x: dismiss)"
	}
	return st.Render(truncateText(text, width))
}

func (m appModel) renderModal(width int) string {
	switch m.modal {
	case modalForm:
		if m.form != nil {
			return m.form.view(width)
		}
	case modalConfirmDelete:
		noun := resourceLeads.noun()
		if m.section == sectionOrders {
			noun = resourceOrders.noun()
		}
		return renderConfirmModal(width, "Delete "+noun,
			"Are you sure you want to delete this "+noun+"?", "Delete", "Cancel", m.confirm)
	case modalPickCategory:
		switch m.section {
		case sectionLeads:
			return renderPicker(m.leads, width, "Change stage", m.pickIdx)
		case sectionOrders:
			return renderPicker(m.orders, width, "Change status", m.pickIdx)
		}
	}
	return ""
}

func renderPicker[R, F any, K ~string](v *listView[R, F, K], width int, title string, idx int) string {
	choices := make([]string, len(v.keys))
	for i, k := range v.keys {
		choices[i] = string(k)
	}
	current := ""
	if rec, ok := v.selected(); ok {
		current = string(v.keyOf(rec))
	}
	return renderChoiceModal(width, title, choices, idx, current)
}

// renderList draws a list section: the active projection, the inline edit status and
// the notes of the selected record.
func renderList[R, F any, K ~string](v *listView[R, F, K], width, height int, empty string, notesOf func(R) string) string {
	switch {
	case !v.coll.Loaded() && v.coll.Err() != nil:
		return styleError().Render("Failed to fetch " + v.res.noun() + "s. " + api.Message(v.coll.Err()))
	case !v.coll.Loaded():
		return styleMuted().Render("Loading…")
	case v.coll.Len() == 0:
		return styleMuted().Render(empty)
	}

	var below []string
	if help := v.editHelp(width); help != "" {
		below = append(below, help)
	}
	if rec, ok := v.selected(); ok {
		if notes := renderNotes(notesOf(rec), width); notes != "" {
			notes = normalizePane(notes, width, 0)
			if maxH := height / 4; lipgloss.Height(notes) > maxH && maxH > 0 {
				notes = normalizePane(notes, width, maxH)
			}
			below = append(below, styleMuted().Render("Notes"), notes)
		}
	}
	extra := strings.Join(below, "\n")
	mainH := height
	if extra != "" {
		mainH = max(height-lipgloss.Height(extra), 3)
	}

	var main string
	if v.projection == projectionKanban {
		editing := func(r R) (R, bool) {
			ed, ok := v.editor.Current()
			if ok && v.idOf(r) == ed.ID {
				return ed.Working, true
			}
			return r, false
		}
		main = renderKanban(v.kanbanCols(), v.kanban, v.idOf, v.card, editing, width, mainH)
	} else {
		main = normalizePane(v.renderTable(width, mainH), width, mainH)
	}
	if extra == "" {
		return main
	}
	return main + "\n" + extra
}
