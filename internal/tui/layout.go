package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to be exactly width columns wide (ANSI-aware) and height
// lines tall. A height of 0 keeps the line count. This keeps lipgloss.JoinHorizontal
// layouts stable.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i, ln := range lines {
		// Bound the width computation on pathological lines.
		if width > 0 && len(ln) > 8192 {
			ln = xansi.Cut(ln, 0, width)
		}
		ln = truncateText(ln, width)
		if w := xansi.StringWidth(ln); w < width {
			ln += strings.Repeat(" ", width-w)
		}
		lines[i] = ln
	}
	return strings.Join(lines, "\n")
}

// truncateText cuts s to width columns, marking the cut with an ellipsis.
func truncateText(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return xansi.Cut(s, 0, 1)
	}
	return xansi.Cut(s, 0, width-1) + "…"
}

// wrapWithPrefix word-wraps plain text to maxW columns. The first line starts with
// firstPrefix and the rest with contPrefix. Words wider than a line are hard-cut.
func wrapWithPrefix(s string, maxW int, firstPrefix, contPrefix string) []string {
	if maxW <= 0 {
		return []string{""}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{firstPrefix}
	}
	firstAvail := max(maxW-xansi.StringWidth(firstPrefix), 1)
	contAvail := max(maxW-xansi.StringWidth(contPrefix), 1)

	var (
		lines  []string
		prefix = firstPrefix
		avail  = firstAvail
		cur    string
		curW   int
	)
	flush := func() {
		lines = append(lines, prefix+cur)
		prefix = contPrefix
		avail = contAvail
		cur = ""
		curW = 0
	}
	place := func(w string) {
		for xansi.StringWidth(w) > avail {
			lines = append(lines, prefix+xansi.Cut(w, 0, avail))
			w = xansi.Cut(w, avail, xansi.StringWidth(w))
			prefix = contPrefix
			avail = contAvail
		}
		cur = w
		curW = xansi.StringWidth(w)
	}

	for _, w := range strings.Fields(s) {
		wordW := xansi.StringWidth(w)
		switch {
		case cur == "":
			place(w)
		case curW+1+wordW <= avail:
			cur += " " + w
			curW += 1 + wordW
		default:
			flush()
			place(w)
		}
	}
	if cur != "" || len(lines) == 0 {
		lines = append(lines, prefix+cur)
	}
	return lines
}

// firstLine returns the first non-blank line of s.
func firstLine(s string) string {
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			return ln
		}
	}
	return ""
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
