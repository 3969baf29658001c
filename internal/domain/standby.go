package domain

import (
	"fmt"
	"strings"
)

type StandbyScope string

const (
	StandbyScopeSoftware StandbyScope = "software"
	StandbyScopeHardware StandbyScope = "hardware"
)

func ScopeFor(requestHardware bool) StandbyScope {
	if requestHardware {
		return StandbyScopeHardware
	}
	return StandbyScopeSoftware
}

type BackgroundAccess string

const (
	BackgroundAccessUnspecified BackgroundAccess = "unspecified"
	BackgroundAccessGranted     BackgroundAccess = "granted"
	BackgroundAccessDenied      BackgroundAccess = "denied"
)

func (a BackgroundAccess) Granted() bool {
	return a == BackgroundAccessGranted
}

type TriggerKind string

const (
	TriggerKeepAlive TriggerKind = "KA"
	TriggerPush      TriggerKind = "PN"
)

// Trigger is a named background wake-up. Its name is the kind prefix
// followed by the account id, e.g. KAwork.
type Trigger struct {
	Kind    TriggerKind
	Account AccountID
}

func (t Trigger) Name() string {
	return string(t.Kind) + string(t.Account)
}

func ParseTrigger(name string) (Trigger, error) {
	for _, kind := range []TriggerKind{TriggerKeepAlive, TriggerPush} {
		if rest, ok := strings.CutPrefix(name, string(kind)); ok && rest != "" {
			return Trigger{Kind: kind, Account: AccountID(rest)}, nil
		}
	}
	return Trigger{}, fmt.Errorf("unknown trigger %q", name)
}
