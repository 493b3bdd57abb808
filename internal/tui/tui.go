// Package tui is the interactive terminal client: a dashboard plus lead and order
// sections, each shown as a table or a kanban board and editable in place.
package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

type Options struct {
	Backend Backend
	// Logger must not write to the terminal; the TUI owns it.
	Logger zerolog.Logger
	// Theme is "light", "dark" or empty to detect it.
	Theme   string
	Timeout time.Duration
}

func Run(opts Options) error {
	if opts.Backend == nil {
		return errors.New("tui: no backend")
	}
	applyThemePreference(opts.Theme)
	applyColorProfilePreference()

	m := newAppModel(opts.Backend, opts.Logger, opts.Timeout)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
