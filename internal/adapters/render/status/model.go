package status

import (
	"errors"
	"io"

	"github.com/bnema/chatlink/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

// sessionsMsg carries the live sessions sampled for this render.
type sessionsMsg []application.SessionSnapshot

type renderReadyMsg struct{}

// model renders one overview. When a session source is set, the sessions
// are sampled first and merged into the overview before the view is built.
type model struct {
	overview     application.Overview
	sessions     func() []application.SessionSnapshot
	showSessions bool
	styles       styles
	output       string
}

func newModel(overview application.Overview, opts RenderOptions) model {
	return model{
		overview: overview,
		sessions: opts.Sessions,
		styles:   newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	ready := func() tea.Msg { return renderReadyMsg{} }
	if m.sessions == nil {
		return ready
	}

	sample := m.sessions
	return tea.Sequence(func() tea.Msg { return sessionsMsg(sample()) }, ready)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsMsg:
		m.overview = m.overview.WithSessions(msg)
		m.showSessions = true
		return m, nil
	case renderReadyMsg:
		m.output = renderView(m.overview, m.showSessions, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render produces the account overview in a single headless bubbletea pass.
func Render(overview application.Overview, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(overview, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
