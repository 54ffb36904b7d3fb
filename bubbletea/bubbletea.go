// Package bubbletea provides an interactive chat TUI for pulse.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/pulse"
)

// AskFunc sends one question and blocks until the answer arrives or ctx is
// cancelled.
type AskFunc func(ctx context.Context, query string) (pulse.ChatAnswer, error)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The context is used for graceful shutdown; when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// AnswerMsg delivers the outcome of one question to the model.
type AnswerMsg struct {
	Answer pulse.ChatAnswer
	Err    error
}
