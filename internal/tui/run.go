// Package tui renders a live progress view over a scan run's
// internal/progress events (the interactive input surface itself —
// the `interactive`/`watch` commands — remains an external collaborator
// per spec §1/§6; this is just the passive progress renderer scan/fix
// drive while a run is in flight).
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"scanguard/internal/progress"
)

// Options configures a single Run call.
type Options struct {
	Events <-chan progress.Event
	Title  string
}

// Run blocks, rendering events until the channel closes or the user quits.
func Run(opts Options) error {
	if opts.Events == nil {
		return fmt.Errorf("tui events channel is required")
	}
	title := opts.Title
	if title == "" {
		title = "Scan"
	}
	m := newModel(opts.Events, title)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
