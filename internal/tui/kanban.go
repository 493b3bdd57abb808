package tui

import (
	"fmt"
	"strings"

	"trackflow-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
)

type kanbanSelection struct {
	Col  int
	Item int
	// ItemID is the stable selected record id, preferred over Item across refreshes.
	ItemID model.ID
}

type kanbanCol[R any] struct {
	label     string
	items     []R
	unmatched bool
}

func clampKanban[R any](cols []kanbanCol[R], sel kanbanSelection, idOf func(R) model.ID) kanbanSelection {
	if len(cols) == 0 {
		return kanbanSelection{Col: 0, Item: -1}
	}

	if !sel.ItemID.IsZero() {
		found := false
		for ci := range cols {
			for ii := range cols[ci].items {
				if idOf(cols[ci].items[ii]) == sel.ItemID {
					sel.Col, sel.Item, found = ci, ii, true
				}
			}
		}
		if !found {
			sel.ItemID = ""
		}
	}

	sel.Col = min(max(sel.Col, 0), len(cols)-1)
	n := len(cols[sel.Col].items)
	if n == 0 {
		sel.Item = -1
		return sel
	}
	sel.Item = min(max(sel.Item, 0), n-1)
	sel.ItemID = idOf(cols[sel.Col].items[sel.Item])
	return sel
}

// cardFunc renders the title and detail lines of one card.
type cardFunc[R any] func(R) (title string, lines []string)

// renderKanban lays the columns out side by side. The card of the record being
// edited shows the working copy; its column still follows the server's copy.
func renderKanban[R any](cols []kanbanCol[R], sel kanbanSelection, idOf func(R) model.ID, card cardFunc[R], editing func(R) (R, bool), width, height int) string {
	width = max(width, 0)
	height = max(height, 0)
	n := len(cols)
	if n == 0 {
		return normalizePane("", width, height)
	}
	sel = clampKanban(cols, sel, idOf)

	gap := 2
	colW := max((width-gap*(n-1))/n, 14)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg).Background(colorControlBg)
	headerSelectedStyle := lipgloss.NewStyle().Bold(true).Foreground(colorSelectedFg).Background(colorSelectedBg)
	unmatchedHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(colorAccentFg).Background(colorFlashErrorBg)

	itemStyle := lipgloss.NewStyle().Width(colW).Padding(0, 1)
	itemSelectedStyle := itemStyle.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	innerW := max(colW-2, 0)

	renderCard := func(it R, selected bool) string {
		rec := it
		marker := "  "
		if w, ok := editing(it); ok {
			rec = w
			marker = "✎ "
		}
		title, meta := card(rec)
		if strings.TrimSpace(title) == "" {
			title = "(untitled)"
		}
		titleStyle := lipgloss.NewStyle().Bold(true)
		if selected {
			titleStyle = titleStyle.Foreground(colorSelectedFg).Background(colorSelectedBg)
		}

		content := make([]string, 0, 2+len(meta))
		for _, ln := range wrapWithPrefix(title, innerW, marker, "  ") {
			content = append(content, titleStyle.Render(ln))
		}
		metaStyle := lipgloss.NewStyle().Foreground(colorChromeMutedFg)
		for _, m := range meta {
			content = append(content, metaStyle.Render(truncateText("  "+m, innerW)))
		}
		inner := normalizePane(strings.Join(content, "\n"), innerW, 0)
		if selected {
			return itemSelectedStyle.Render(inner)
		}
		return itemStyle.Render(inner)
	}

	renderCol := func(ci int, c kanbanCol[R]) string {
		hs := headerStyle
		switch {
		case c.unmatched:
			hs = unmatchedHeaderStyle
		case ci == sel.Col:
			hs = headerSelectedStyle
		}
		head := truncateText(fmt.Sprintf("%s (%d)", c.label, len(c.items)), colW)
		lines := []string{hs.Width(colW).Render(head)}

		if len(c.items) == 0 {
			lines = append(lines, styleMuted().Render("(empty)"))
			return normalizePane(strings.Join(lines, "\n"), colW, height)
		}
		lines = append(lines, "")
		sep := styleMuted().Render(" " + strings.Repeat("─", max(colW-2, 0)) + " ")
		for i, it := range c.items {
			lines = append(lines, strings.Split(renderCard(it, ci == sel.Col && i == sel.Item), "\n")...)
			if i < len(c.items)-1 {
				lines = append(lines, sep)
			}
		}
		return normalizePane(strings.Join(lines, "\n"), colW, height)
	}

	out := renderCol(0, cols[0])
	spacer := strings.Repeat(" ", gap)
	for i := 1; i < n; i++ {
		out = lipgloss.JoinHorizontal(lipgloss.Top, out, spacer, renderCol(i, cols[i]))
	}
	return normalizePane(out, width, height)
}
