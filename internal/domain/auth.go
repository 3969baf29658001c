package domain

import (
	"fmt"
	"strings"
)

type TLSMode string

const (
	TLSModeNone     TLSMode = "none"
	TLSModeImplicit TLSMode = "implicit"
	TLSModeStartTLS TLSMode = "starttls"
)

func ParseTLSMode(raw string) (TLSMode, error) {
	switch mode := TLSMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "", TLSModeNone:
		return TLSModeNone, nil
	case TLSModeImplicit, TLSModeStartTLS:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported tls mode %q", raw)
	}
}

// Mechanism is a bitset of enabled SASL mechanisms.
type Mechanism uint8

const MechanismNone Mechanism = 0

const (
	MechanismPlain Mechanism = 1 << iota
	MechanismDigestMD5
	MechanismSCRAM
	MechanismOAuth2
)

// DefaultMechanisms matches what a freshly created account offers.
const DefaultMechanisms = MechanismDigestMD5 | MechanismSCRAM

var mechanismNames = []struct {
	bit  Mechanism
	name string
}{
	{MechanismPlain, "plain"},
	{MechanismDigestMD5, "digest-md5"},
	{MechanismSCRAM, "scram"},
	{MechanismOAuth2, "oauth2"},
}

func (m Mechanism) Has(bit Mechanism) bool {
	return m&bit == bit
}

func (m Mechanism) Names() []string {
	names := make([]string, 0, len(mechanismNames))
	for _, entry := range mechanismNames {
		if m.Has(entry.bit) {
			names = append(names, entry.name)
		}
	}
	return names
}

func (m Mechanism) String() string {
	if m == MechanismNone {
		return "none"
	}
	return strings.Join(m.Names(), ",")
}

func ParseMechanisms(names []string) (Mechanism, error) {
	var out Mechanism
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		found := false
		for _, entry := range mechanismNames {
			if entry.name == name {
				out |= entry.bit
				found = true
				break
			}
		}
		if !found {
			return MechanismNone, fmt.Errorf("unsupported auth mechanism %q", raw)
		}
	}
	return out, nil
}
