package domain

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountLimit       = errors.New("account limit reached")
	ErrHardwareSlotLimit  = errors.New("hardware standby slot limit reached")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrSessionClosed      = errors.New("session closed")
	ErrRegistrationFailed = errors.New("standby registration failed")
	ErrNotConnected       = errors.New("not connected")
)

// ErrBackgroundTaskCreate is wrapped by standby services when the keepalive
// task itself could not be created, as opposed to the registration failing.
var ErrBackgroundTaskCreate = errors.New("background task creation failed")
