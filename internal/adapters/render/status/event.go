package status

import (
	"fmt"
	"time"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var eventKindColors = map[domain.EventKind]lipgloss.Color{
	domain.EventKindMessage:   lipgloss.Color("39"),
	domain.EventKindState:     lipgloss.Color("114"),
	domain.EventKindLifecycle: lipgloss.Color("245"),
	domain.EventKindRequest:   lipgloss.Color("221"),
	domain.EventKindLog:       lipgloss.Color("250"),
	domain.EventKindError:     lipgloss.Color("203"),
}

// FormatEvent renders one dequeued event as a single terminal line. A zero
// now omits the timestamp.
func FormatEvent(event domain.Event, now time.Time) string {
	if event == nil {
		return ""
	}

	s := newStyles()
	kindStyle := lipgloss.NewStyle().Bold(true).Foreground(eventKindColors[event.Kind()])

	account := string(event.AccountID())
	if account == "" {
		account = "-"
	}

	parts := make([]string, 0, 6)
	if !now.IsZero() {
		parts = append(parts, s.header.Render(now.Format("15:04:05")), " ")
	}
	parts = append(parts,
		kindStyle.Render(fmt.Sprintf("%-9s", event.Kind())),
		" ",
		s.account.Render(account),
		" ",
		s.detail.Render(eventText(event)),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func eventText(event domain.Event) string {
	switch e := event.(type) {
	case domain.MessageEvent:
		if e.Persist {
			return fmt.Sprintf("%s (stored %s)", e.Payload, e.ID)
		}
		return e.Payload
	case domain.StateEvent:
		return string(e.State)
	case domain.LifecycleEvent:
		text := string(e.Type)
		if e.Canceled {
			text += " canceled"
		}
		if e.Reason != "" {
			text += ": " + e.Reason
		}
		return text
	case domain.RequestEvent:
		return string(e.Type)
	case domain.LogEvent:
		return fmt.Sprintf("[%s] %s", e.Level, e.Message)
	case domain.ErrorEvent:
		return fmt.Sprintf("%s (%s): %s", e.Failure, e.Policy, e.Message)
	default:
		return event.String()
	}
}
