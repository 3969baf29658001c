package ports

import (
	"time"

	"github.com/bnema/chatlink/internal/domain"
)

// ProtocolHandler receives the notifications of one protocol client.
// Calls for a given client are serialized by the client.
type ProtocolHandler interface {
	OnConnected()
	OnDisconnected()
	OnReady()
	OnResourceBound(resource string)
	OnReceive(payload string)
	OnError(kind domain.FailureKind, policy domain.Policy, message string)
	OnLog(level domain.LogLevel, message string)
}

type ProtocolClient interface {
	Configure(settings domain.ClientSettings) error
	// Connect starts connecting and returns once the attempt is under way.
	// The outcome is reported through the handler.
	Connect() error
	Disconnect() error
	Send(payload string) error
	Ping() error
	Connected() bool
	// WaitProcessing blocks until pending inbound data is handled or the
	// timeout elapses. It reports whether processing completed.
	WaitProcessing(timeout time.Duration) bool
}

type ProtocolClientFactory func(id domain.AccountID, handler ProtocolHandler) (ProtocolClient, error)
