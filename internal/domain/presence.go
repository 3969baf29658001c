package domain

import (
	"fmt"
	"strings"
)

// Presence is the global desired presence. Offline forces every account
// to disabled regardless of its own desired state.
type Presence string

const (
	PresenceOffline   Presence = "offline"
	PresenceBusy      Presence = "busy"
	PresenceAway      Presence = "away"
	PresenceAvailable Presence = "available"
)

func ParsePresence(raw string) (Presence, error) {
	switch p := Presence(strings.ToLower(strings.TrimSpace(raw))); p {
	case PresenceOffline, PresenceBusy, PresenceAway, PresenceAvailable:
		return p, nil
	case "":
		return PresenceAvailable, nil
	default:
		return "", fmt.Errorf("unsupported presence %q", raw)
	}
}
