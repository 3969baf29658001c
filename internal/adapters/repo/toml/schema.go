package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Presence string          `toml:"presence,omitempty"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID                     string   `toml:"id"`
	Title                  string   `toml:"title"`
	Color                  string   `toml:"color,omitempty"`
	JID                    string   `toml:"jid"`
	Host                   string   `toml:"host"`
	Port                   int      `toml:"port"`
	CredentialRef          string   `toml:"credential_ref,omitempty"`
	TLS                    string   `toml:"tls"`
	Mechanisms             []string `toml:"mechanisms"`
	State                  string   `toml:"state"`
	RequestHardwareStandby bool     `toml:"request_hardware_standby,omitempty"`
	SettingsChanged        bool     `toml:"settings_changed,omitempty"`
	ForceDisabled          bool     `toml:"force_disabled,omitempty"`
}
