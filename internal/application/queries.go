package application

import "github.com/bnema/chatlink/internal/domain"

type Status struct {
	Account       domain.AccountConfig
	HasCredential bool
	// Session is nil when no runtime owns a session for the account.
	Session *SessionSnapshot
}

type Overview struct {
	Presence domain.Presence
	Accounts []Status
}

// WithSessions attaches live session snapshots to the matching accounts.
func (o Overview) WithSessions(snapshots []SessionSnapshot) Overview {
	byID := make(map[domain.AccountID]SessionSnapshot, len(snapshots))
	for _, snapshot := range snapshots {
		byID[snapshot.ID] = snapshot
	}

	accounts := make([]Status, len(o.Accounts))
	for i, status := range o.Accounts {
		if snapshot, ok := byID[status.Account.ID]; ok {
			snapshot := snapshot
			status.Session = &snapshot
		}
		accounts[i] = status
	}
	o.Accounts = accounts
	return o
}
