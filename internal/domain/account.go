package domain

import "strings"

type AccountID string

type AccountState string

const (
	AccountStateDisabled AccountState = "disabled"
	AccountStateEnabled  AccountState = "enabled"
)

const (
	DefaultPort      = 5222
	MaxAccounts      = 5
	MaxHardwareSlots = 2
)

// AccountConfig is one entry of the configuration store. The core reads it
// fresh on every reconciliation pass and never mutates it besides clearing
// SettingsChanged once the change has been applied.
type AccountConfig struct {
	ID    AccountID
	Title string
	Color string
	JID   string
	Host  string
	Port  int
	// CredentialRef points to a secret-store entry holding the password.
	CredentialRef          string
	TLS                    TLSMode
	Mechanisms             Mechanism
	State                  AccountState
	RequestHardwareStandby bool
	SettingsChanged        bool
	ForceDisabled          bool
}

// IsValid reports whether the entry carries everything needed to open a
// session. The password is resolved separately from CredentialRef.
func (a AccountConfig) IsValid(password string) bool {
	return strings.TrimSpace(a.Title) != "" &&
		strings.TrimSpace(a.Host) != "" &&
		strings.TrimSpace(string(a.ID)) != "" &&
		strings.TrimSpace(a.JID) != "" &&
		password != ""
}

// ConnectionRelevantEqual reports whether both configs would produce the same
// protocol-client configuration.
func (a AccountConfig) ConnectionRelevantEqual(b AccountConfig) bool {
	return a.ID == b.ID &&
		a.JID == b.JID &&
		a.Host == b.Host &&
		a.Port == b.Port &&
		a.CredentialRef == b.CredentialRef &&
		a.TLS == b.TLS &&
		a.Mechanisms == b.Mechanisms &&
		a.State == b.State &&
		a.RequestHardwareStandby == b.RequestHardwareStandby
}

func (a *AccountConfig) ApplyDefaults() {
	if a == nil {
		return
	}
	if a.Port == 0 {
		a.Port = DefaultPort
	}
	if a.TLS == "" {
		a.TLS = TLSModeNone
	}
	if a.State == "" {
		a.State = AccountStateDisabled
	}
	if a.Mechanisms == MechanismNone {
		a.Mechanisms = DefaultMechanisms
	}
}

func ParseAccountState(raw string) (AccountState, bool) {
	switch AccountState(strings.ToLower(strings.TrimSpace(raw))) {
	case AccountStateEnabled:
		return AccountStateEnabled, true
	case AccountStateDisabled:
		return AccountStateDisabled, true
	default:
		return AccountStateDisabled, false
	}
}
