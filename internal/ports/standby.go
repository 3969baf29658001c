package ports

import (
	"context"
	"time"

	"github.com/bnema/chatlink/internal/domain"
)

// StandbyService keeps the network path of a session alive while the
// process is idle. Registrations outlive individual connections.
type StandbyService interface {
	Register(ctx context.Context, id domain.AccountID, scope domain.StandbyScope) (StandbyRegistration, error)
	Unregister(ctx context.Context, id domain.AccountID) error
	// AvailableHardwareSlots returns the hardware-backed slots still free for
	// holder. A slot already held by holder counts as available.
	AvailableHardwareSlots(ctx context.Context, holder domain.AccountID) int
	AccessStatus(ctx context.Context) domain.BackgroundAccess
	RequestAccess(ctx context.Context) (domain.BackgroundAccess, error)
}

type StandbyRegistration interface {
	WaitForPushEnabled(ctx context.Context) error
	TripWire() TripWire
}

type TripWire interface {
	CurrentInterval() time.Duration
	DecreaseInterval()
}

type NetworkMonitor interface {
	InternetAvailable() bool
}
