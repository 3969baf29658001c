package ports

import (
	"context"

	"github.com/bnema/chatlink/internal/domain"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.AccountConfig, error)
	List(ctx context.Context) ([]domain.AccountConfig, error)
	Save(ctx context.Context, account domain.AccountConfig) error
	Delete(ctx context.Context, id domain.AccountID) error
	Presence(ctx context.Context) (domain.Presence, error)
	SetPresence(ctx context.Context, presence domain.Presence) error
}

// ConfigurationStore is the read side the connection registry reconciles
// against, plus the two writes the core is allowed to make.
type ConfigurationStore interface {
	List(ctx context.Context) ([]domain.AccountConfig, error)
	Presence(ctx context.Context) (domain.Presence, error)
	// ResetChanged clears the settings-changed flag of one entry.
	ResetChanged(ctx context.Context, id domain.AccountID) error
	// Deactivate disables an entry and marks it force-disabled and changed.
	Deactivate(ctx context.Context, id domain.AccountID) error
}
