package domain

// ConnectionParams is the effective parameter set the registry derives from
// an AccountConfig for one reconciliation pass.
type ConnectionParams struct {
	Host                   string
	JID                    string
	Password               string
	Port                   int
	TLS                    TLSMode
	Mechanisms             Mechanism
	State                  AccountState
	UpdatedSettings        bool
	RequestHardwareStandby bool
}

// ClientSettings is what a protocol client is configured with.
type ClientSettings struct {
	Account    AccountID
	JID        string
	Password   string
	Host       string
	Port       int
	TLS        TLSMode
	Mechanisms Mechanism
}

func (p ConnectionParams) ClientSettings(account AccountID) ClientSettings {
	return ClientSettings{
		Account:    account,
		JID:        p.JID,
		Password:   p.Password,
		Host:       p.Host,
		Port:       p.Port,
		TLS:        p.TLS,
		Mechanisms: p.Mechanisms,
	}
}

// ParamsFor derives the parameters of one reconciliation pass. An offline
// presence disables the account regardless of its own state.
func ParamsFor(account AccountConfig, password string, presence Presence) ConnectionParams {
	account.ApplyDefaults()

	state := account.State
	if presence == PresenceOffline {
		state = AccountStateDisabled
	}

	return ConnectionParams{
		Host:                   account.Host,
		JID:                    account.JID,
		Password:               password,
		Port:                   account.Port,
		TLS:                    account.TLS,
		Mechanisms:             account.Mechanisms,
		State:                  state,
		UpdatedSettings:        account.SettingsChanged,
		RequestHardwareStandby: account.RequestHardwareStandby,
	}
}
