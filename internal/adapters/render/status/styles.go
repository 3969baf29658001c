package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	account  lipgloss.Style
	detail   lipgloss.Style
	key      lipgloss.Style
	warning  lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	enabled  lipgloss.Style
	disabled lipgloss.Style
	live     lipgloss.Style
	idle     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		enabled:  lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		disabled: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		live:     lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		idle:     lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
