package application

import "github.com/bnema/chatlink/internal/domain"

// SaveAccountCommand creates or replaces the connection settings of an
// account. State and credential are managed by their own operations.
type SaveAccountCommand struct {
	ID                     domain.AccountID
	Title                  string
	Color                  string
	JID                    string
	Host                   string
	Port                   int
	TLS                    domain.TLSMode
	Mechanisms             domain.Mechanism
	RequestHardwareStandby bool
}
