package network

import (
	"net"
	"os"

	"udpcopier/internal/errors"
)

// probeAddr is only used to pick a route; no datagram is sent to it
const probeAddr = "8.8.8.8:80"

// ResolveLocalIP returns the local IP used for outbound traffic. Without a
// default route it falls back to the first IPv4 address of the host name.
func ResolveLocalIP() (net.IP, error) {
	conn, err := net.Dial("udp", probeAddr)
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP, nil
		}
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, errors.NewNetworkError("hostname", "", err)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, errors.NewNetworkError("lookup", host, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
	}

	return nil, errors.NewNetworkError("lookup", host, errors.NewValidationError("host", host, "no IPv4 address"))
}
