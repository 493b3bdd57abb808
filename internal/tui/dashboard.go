package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"trackflow-cli/internal/api"
	"trackflow-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func (m appModel) renderDashboard(width, height int) string {
	c := m.metrics
	switch {
	case c.Err() != nil:
		return normalizePane(styleError().Render("Failed to load dashboard metrics. "+api.Message(c.Err())), width, height)
	case !c.Loaded():
		return normalizePane(styleMuted().Render(m.spinner.View()+" Loading dashboard..."), width, height)
	case c.Len() == 0:
		return normalizePane(styleMuted().Render("No metrics available."), width, height)
	}
	met := c.Items()[0]

	cardW := max((width-4)/3, 16)
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		metricCard("Total Leads", met.TotalLeads, cardW),
		"  ",
		metricCard("Total Orders", met.TotalOrders, cardW),
		"  ",
		metricCard("Follow-ups Due This Week", met.FollowupsDueThisWeek, cardW),
	)

	colW := max((width-2)/2, 20)
	breakdowns := lipgloss.JoinHorizontal(lipgloss.Top,
		normalizePane(renderBreakdown("Leads by Stage", met.LeadsByStage, stageOrder(), "No leads in any stage."), colW, 0),
		"  ",
		normalizePane(renderBreakdown("Orders by Status", met.OrdersByStatus, statusOrder(), "No orders in any status."), colW, 0),
	)

	parts := []string{
		styleHeading().Render("CRM Dashboard Overview"),
		"",
		cards,
		"",
		breakdowns,
		"",
		styleHeading().Render("Overdue Follow-ups"),
		renderOverdue(met.OverdueFollowups, width),
	}
	return normalizePane(strings.Join(parts, "\n"), width, height)
}

func metricCard(label string, n int, width int) string {
	value := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(strconv.Itoa(n))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorCardBorder).
		Padding(0, 1).
		Width(max(width-2, 10)).
		Render(styleMuted().Render(truncateText(label, max(width-4, 1))) + "\n" + value)
}

func stageOrder() []string {
	out := make([]string, len(model.Stages))
	for i, s := range model.Stages {
		out[i] = string(s)
	}
	return out
}

func statusOrder() []string {
	out := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		out[i] = string(s)
	}
	return out
}

// renderBreakdown lists counts in the known order first, then any other keys the
// server reported, alphabetically. Zero counts are left out.
func renderBreakdown(title string, counts map[string]int, order []string, empty string) string {
	lines := []string{styleHeading().Render(title)}

	known := make(map[string]bool, len(order))
	keys := make([]string, 0, len(counts))
	for _, k := range order {
		known[k] = true
		if counts[k] > 0 {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k, n := range counts {
		if !known[k] && n > 0 {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	if len(keys) == 0 {
		return strings.Join(append(lines, styleMuted().Render(empty)), "\n")
	}
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %-18s %d", k, counts[k]))
	}
	return strings.Join(lines, "\n")
}

func renderOverdue(leads []model.Lead, width int) string {
	if len(leads) == 0 {
		return lipgloss.NewStyle().Foreground(colorSuccessFg).Render("No overdue follow-ups! Good job!")
	}
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{l.Name, l.Contact, string(l.Stage), displayDate(l.FollowUpDate)})
	}
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorCardBorder)).
		Headers("Lead Name", "Contact", "Current Stage", "Overdue Date").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return cell.Bold(true)
			case col == 3:
				return cell.Foreground(colorOverdueFg)
			}
			return cell
		})
	return normalizePane(t.Render(), width, 0)
}
