package domain

// FailureKind identifies what went wrong. The handling of a failure is
// decided by its Policy, not by the kind itself.
type FailureKind string

const (
	FailureNone                     FailureKind = ""
	FailureNoInternet               FailureKind = "no_internet"
	FailureNotConnected             FailureKind = "not_connected"
	FailureConnectionFailed         FailureKind = "connection_failed"
	FailureProtocol                 FailureKind = "protocol"
	FailureAuthentication           FailureKind = "authentication"
	FailureInvalidHostname          FailureKind = "invalid_hostname"
	FailureInvalidJID               FailureKind = "invalid_jid"
	FailureMissingPassword          FailureKind = "missing_password"
	FailureInvalidSettings          FailureKind = "invalid_settings"
	FailureInvalidConnectionID      FailureKind = "invalid_connection_id"
	FailureNoHardwareSlotsAllowed   FailureKind = "no_hardware_slots_allowed"
	FailureRegisterControlChannel   FailureKind = "register_control_channel"
	FailureUnregisterControlChannel FailureKind = "unregister_control_channel"
	FailureBackgroundTaskCreate     FailureKind = "background_task_create"
	FailureWaitForPushEnabled       FailureKind = "wait_for_push_enabled"
	FailureRequestBackgroundAccess  FailureKind = "request_background_access"
	FailureRegisterSystemEvents     FailureKind = "register_system_events"
)

func (k FailureKind) String() string {
	if k == FailureNone {
		return "none"
	}
	return string(k)
}

type Policy string

const (
	// PolicyInformative is display-only; it never disconnects and is never retried.
	PolicyInformative Policy = "informative"
	// PolicyReconnect goes through the session's loop-breaking retry logic.
	PolicyReconnect Policy = "reconnect"
	// PolicyDeactivate asks the consumer to disable the account.
	PolicyDeactivate Policy = "deactivate"
	// PolicySevere is unrecoverable at the process level.
	PolicySevere Policy = "severe"
)

var defaultPolicies = map[FailureKind]Policy{
	FailureNoInternet:               PolicyInformative,
	FailureNotConnected:             PolicyInformative,
	FailureConnectionFailed:         PolicyReconnect,
	FailureProtocol:                 PolicyReconnect,
	FailureAuthentication:           PolicyDeactivate,
	FailureInvalidHostname:          PolicyDeactivate,
	FailureInvalidJID:               PolicyDeactivate,
	FailureMissingPassword:          PolicyDeactivate,
	FailureInvalidSettings:          PolicyDeactivate,
	FailureInvalidConnectionID:      PolicyDeactivate,
	FailureNoHardwareSlotsAllowed:   PolicyDeactivate,
	FailureRegisterControlChannel:   PolicyReconnect,
	FailureUnregisterControlChannel: PolicyReconnect,
	FailureBackgroundTaskCreate:     PolicyReconnect,
	FailureWaitForPushEnabled:       PolicyReconnect,
	FailureRequestBackgroundAccess:  PolicySevere,
	FailureRegisterSystemEvents:     PolicySevere,
}

// PolicyFor maps a failure kind to its default handling policy. Unknown
// kinds are treated as reconnectable.
func PolicyFor(kind FailureKind) Policy {
	if policy, ok := defaultPolicies[kind]; ok {
		return policy
	}
	return PolicyReconnect
}

// Disconnects reports whether a failure under this policy ends the session.
func (p Policy) Disconnects() bool {
	return p != PolicyInformative
}
