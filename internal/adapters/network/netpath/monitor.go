package netpath

import (
	"net"

	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
)

// Interface is the part of net.Interface the monitor looks at.
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// Monitor reports internet availability as the presence of at least one
// up, non-loopback interface with a global unicast address.
type Monitor struct {
	list   func() ([]Interface, error)
	logger zerolog.Logger
}

var _ ports.NetworkMonitor = (*Monitor)(nil)

func NewMonitor(logger zerolog.Logger) *Monitor {
	return &Monitor{list: systemInterfaces, logger: logger}
}

func (m *Monitor) InternetAvailable() bool {
	interfaces, err := m.list()
	if err != nil {
		// Without interface data, assume the network is there and let the
		// connection attempt fail on its own.
		m.logger.Warn().Err(err).Msg("list network interfaces")
		return true
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		for _, addr := range iface.Addrs {
			if ipFrom(addr).IsGlobalUnicast() {
				return true
			}
		}
	}
	return false
}

func ipFrom(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPNet:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}

func systemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out = append(out, Interface{Name: iface.Name, Flags: iface.Flags, Addrs: addrs})
	}
	return out, nil
}
