package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventKindLifecycle EventKind = "lifecycle"
	EventKindMessage   EventKind = "message"
	EventKindRequest   EventKind = "request"
	EventKindState     EventKind = "state"
	EventKindLog       EventKind = "log"
	EventKindError     EventKind = "error"
)

// Event is a closed sum type: LifecycleEvent, MessageEvent, RequestEvent,
// StateEvent, LogEvent and ErrorEvent are its only members.
type Event interface {
	Kind() EventKind
	AccountID() AccountID
	Persistent() bool
	String() string
	isEvent()
}

// Meta is shared by every event. An empty Account means the event is global.
type Meta struct {
	Account AccountID
	Persist bool
}

func (m Meta) AccountID() AccountID { return m.Account }
func (m Meta) Persistent() bool     { return m.Persist }
func (Meta) isEvent()               {}

func (m Meta) prefix(kind EventKind) string {
	return fmt.Sprintf("[%s][%s]", m.Account, kind)
}

type LifecycleType string

const (
	LifecycleApplicationSuspending        LifecycleType = "application_suspending"
	LifecycleApplicationResuming          LifecycleType = "application_resuming"
	LifecycleApplicationExiting           LifecycleType = "application_exiting"
	LifecycleControlChannelReset          LifecycleType = "control_channel_reset"
	LifecycleInternetAvailable            LifecycleType = "internet_available"
	LifecycleInternetNotAvailable         LifecycleType = "internet_not_available"
	LifecycleServicingComplete            LifecycleType = "servicing_complete"
	LifecycleSessionConnected             LifecycleType = "session_connected"
	LifecycleUserAway                     LifecycleType = "user_away"
	LifecycleUserPresent                  LifecycleType = "user_present"
	LifecycleLockScreenApplicationAdded   LifecycleType = "lock_screen_application_added"
	LifecycleLockScreenApplicationRemoved LifecycleType = "lock_screen_application_removed"
	LifecycleTimeZoneChange               LifecycleType = "time_zone_change"
)

type LifecycleEvent struct {
	Meta
	Type     LifecycleType
	Canceled bool
	Reason   string
}

func (LifecycleEvent) Kind() EventKind { return EventKindLifecycle }

func (e LifecycleEvent) String() string {
	return fmt.Sprintf("%s[%t][%s]%s", e.prefix(EventKindLifecycle), e.Canceled, e.Reason, e.Type)
}

// MessageEvent carries one inbound payload. ID is stable across
// persistence and is used to de-duplicate and to address stored fragments.
type MessageEvent struct {
	Meta
	ID      string
	Payload string
}

func NewMessageEvent(account AccountID, payload string) MessageEvent {
	return MessageEvent{Meta: Meta{Account: account}, ID: uuid.NewString(), Payload: payload}
}

func (MessageEvent) Kind() EventKind { return EventKindMessage }

func (e MessageEvent) String() string {
	return e.prefix(EventKindMessage) + e.Payload
}

type RequestType string

const (
	RequestUIHandle         RequestType = "ui_handle"
	RequestBackgroundAccess RequestType = "background_access"
)

type RequestEvent struct {
	Meta
	Type RequestType
}

func (RequestEvent) Kind() EventKind { return EventKindRequest }

func (e RequestEvent) String() string {
	return e.prefix(EventKindRequest) + string(e.Type)
}

type StateType string

const (
	StateConnecting    StateType = "connecting"
	StateConnected     StateType = "connected"
	StateRunning       StateType = "running"
	StateResourceBound StateType = "resource_bound"
	StateDisconnecting StateType = "disconnecting"
	StateDisconnected  StateType = "disconnected"
)

type StateEvent struct {
	Meta
	State StateType
}

func (StateEvent) Kind() EventKind { return EventKindState }

func (e StateEvent) String() string {
	return e.prefix(EventKindState) + string(e.State)
}

type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

type LogEvent struct {
	Meta
	Level   LogLevel
	Message string
}

func (LogEvent) Kind() EventKind { return EventKindLog }

func (e LogEvent) String() string {
	return fmt.Sprintf("%s[%s]%s", e.prefix(EventKindLog), e.Level, e.Message)
}

type ErrorEvent struct {
	Meta
	Failure FailureKind
	Policy  Policy
	Message string
}

func NewErrorEvent(account AccountID, kind FailureKind, policy Policy, message string) ErrorEvent {
	return ErrorEvent{Meta: Meta{Account: account}, Failure: kind, Policy: policy, Message: message}
}

func (ErrorEvent) Kind() EventKind { return EventKindError }

func (e ErrorEvent) String() string {
	return fmt.Sprintf("%s[%s][%s] (%s)", e.prefix(EventKindError), e.Policy, e.Failure, e.Message)
}

// WithPersist returns a copy of event with its persist flag set.
func WithPersist(event Event, persist bool) Event {
	switch e := event.(type) {
	case LifecycleEvent:
		e.Persist = persist
		return e
	case MessageEvent:
		e.Persist = persist
		return e
	case RequestEvent:
		e.Persist = persist
		return e
	case StateEvent:
		e.Persist = persist
		return e
	case LogEvent:
		e.Persist = persist
		return e
	case ErrorEvent:
		e.Persist = persist
		return e
	default:
		return event
	}
}
