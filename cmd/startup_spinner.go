package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type startupDoneMsg struct {
	err error
}

type startupSpinnerModel struct {
	spinner spinner.Model
	label   string
	work    tea.Cmd
	err     error
	done    bool
}

func newStartupSpinnerModel(label string, work tea.Cmd) startupSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return startupSpinnerModel{
		spinner: s,
		label:   label,
		work:    work,
	}
}

func (m startupSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m startupSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case startupDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m startupSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// spinnerStartup returns a daemon startup hook that shows a spinner on
// output while the runtime restores events and reconciles accounts.
func spinnerStartup(output io.Writer) func(context.Context, func(context.Context) error) error {
	return func(ctx context.Context, work func(context.Context) error) error {
		workCmd := func() tea.Msg {
			return startupDoneMsg{err: work(ctx)}
		}

		p := tea.NewProgram(
			newStartupSpinnerModel("Connecting accounts...", workCmd),
			tea.WithInput(nil),
			tea.WithOutput(output),
			tea.WithContext(ctx),
		)

		finalModel, err := p.Run()
		if err != nil {
			return err
		}

		result, ok := finalModel.(startupSpinnerModel)
		if !ok {
			return fmt.Errorf("unexpected final spinner model type %T", finalModel)
		}

		return result.err
	}
}
