package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// renderTable draws one row per record in collection order. The row being edited
// shows the working copy, with the focused field as a live input.
func (v *listView[R, F, K]) renderTable(width, height int) string {
	items := v.items()
	v.clampRow()

	headers := make([]string, len(v.columns))
	for i, c := range v.columns {
		headers[i] = c.title
	}

	// Header, its rule and the top/bottom borders take four lines.
	visible := max(height-4, 1)
	offset := 0
	if v.row >= visible {
		offset = v.row - visible + 1
	}
	end := min(offset+visible, len(items))

	ed, editing := v.editor.Current()
	editRow := -1
	rows := make([][]string, 0, end-offset)
	for i := offset; i < end; i++ {
		it := items[i]
		cells := make([]string, len(v.columns))
		if editing && v.idOf(it) == ed.ID {
			editRow = i - offset
			for ci, c := range v.columns {
				cells[ci] = v.editCell(c, ed.Working)
			}
		} else {
			for ci, c := range v.columns {
				cells[ci] = truncateText(firstLine(c.value(it)), c.width)
			}
		}
		rows = append(rows, cells)
	}

	selectedRow := v.row - offset
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(true).Foreground(colorSurfaceFg)
	selected := cell.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	editingStyle := cell.Foreground(colorSurfaceFg).Background(colorInputBg)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorCardBorder)).
		Headers(headers...).
		Rows(rows...).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case row == editRow:
				return editingStyle
			case row == selectedRow:
				return selected
			}
			return cell
		})
	return normalizePane(t.Render(), width, 0)
}

func (v *listView[R, F, K]) editCell(c column[R], working R) string {
	if c.field == "" {
		return c.value(working)
	}
	if c.field != v.editingField() {
		return v.get(working, c.field)
	}
	if c.field == v.keyField {
		return "‹ " + v.get(working, c.field) + " ›"
	}
	v.input.Width = max(c.width, 10)
	return v.input.View()
}

// editHelp is the status line under a list while a record is edited.
func (v *listView[R, F, K]) editHelp(width int) string {
	if _, ok := v.editor.Current(); !ok {
		return ""
	}
	field := strings.ReplaceAll(v.editingField(), "_", " ")
	parts := []string{"editing " + field}
	if v.projection == projectionKanban && v.editingField() != v.keyField {
		parts = append(parts, v.input.View())
	}
	if v.editor.Pending() {
		parts = append(parts, "saving…")
	}
	line := styleHeading().Render(strings.Join(parts, ": "))
	help := styleMuted().Render("tab/shift+tab: field   ←/→: " + v.keyField + "   enter: save   esc: cancel   ↑/↓: edit another")
	out := []string{truncateText(line, width)}
	if v.editErr != "" {
		out = append(out, styleError().Render(truncateText(v.editErr, width)))
	}
	out = append(out, truncateText(help, width))
	return strings.Join(out, "\n")
}
