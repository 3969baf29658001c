package status

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bnema/chatlink/internal/application"
	"github.com/bnema/chatlink/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	// Sessions samples the live sessions of a running daemon. When set,
	// every account gets a session line; nil renders configuration only.
	Sessions func() []application.SessionSnapshot
}

func renderView(overview application.Overview, showSessions bool, s styles) string {
	presence := overview.Presence
	if presence == "" {
		presence = domain.PresenceAvailable
	}

	lines := []string{
		s.title.Render("Chat Accounts"),
		s.header.Render(fmt.Sprintf("presence: %s  accounts: %d/%d", presence, len(overview.Accounts), domain.MaxAccounts)),
	}

	if len(overview.Accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range overview.Accounts {
		lines = append(lines, s.section.Render(renderAccount(status, showSessions, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(status application.Status, showSessions bool, s styles) string {
	account := status.Account

	titleStyle := s.account
	if color := strings.TrimSpace(account.Color); color != "" {
		titleStyle = titleStyle.Foreground(lipgloss.Color(color))
	}

	parts := []string{
		titleStyle.Render(accountTitle(account)),
		field(s, "jid", valueOrNA(account.JID)),
		field(s, "server", serverLine(account)),
		field(s, "state", stateLine(account, s)),
		field(s, "credential", credentialLine(status, s)),
	}

	if showSessions {
		parts = append(parts, field(s, "session", sessionLine(status.Session, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func field(s styles, key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.key.Render(key+":"), " ", s.detail.Render(value))
}

func accountTitle(account domain.AccountConfig) string {
	title := strings.TrimSpace(account.Title)
	if title == "" || title == string(account.ID) {
		return string(account.ID)
	}
	return fmt.Sprintf("%s (%s)", title, account.ID)
}

func serverLine(account domain.AccountConfig) string {
	if strings.TrimSpace(account.Host) == "" {
		return "n/a"
	}

	tls := string(account.TLS)
	if tls == "" {
		tls = string(domain.TLSModeNone)
	}

	return fmt.Sprintf("%s tls=%s auth=%s",
		net.JoinHostPort(account.Host, strconv.Itoa(account.Port)),
		tls,
		account.Mechanisms.String(),
	)
}

func stateLine(account domain.AccountConfig, s styles) string {
	var parts []string
	if account.State == domain.AccountStateEnabled {
		parts = append(parts, s.enabled.Render(string(account.State)))
	} else {
		parts = append(parts, s.disabled.Render(string(domain.AccountStateDisabled)))
	}

	if account.RequestHardwareStandby {
		parts = append(parts, "hardware standby")
	}
	if account.SettingsChanged {
		parts = append(parts, "[pending changes]")
	}
	if account.ForceDisabled {
		parts = append(parts, s.warning.Render("[force disabled]"))
	}

	return strings.Join(parts, " ")
}

func credentialLine(status application.Status, s styles) string {
	if !status.HasCredential {
		return s.warning.Render("missing")
	}
	return status.Account.CredentialRef
}

func sessionLine(snapshot *application.SessionSnapshot, s styles) string {
	if snapshot == nil {
		return s.idle.Render("none")
	}

	state := string(snapshot.State)
	if state == "" {
		state = string(domain.StateDisconnected)
	}

	line := s.idle.Render(state)
	if snapshot.Connected {
		line = s.live.Render(state)
	}

	if snapshot.LastFailure != domain.FailureNone {
		line += " " + s.warning.Render("last failure: "+snapshot.LastFailure.String())
	}

	return line
}

func valueOrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "n/a"
	}
	return value
}
