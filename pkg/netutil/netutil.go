package netutil

import "net"

// LocalIP returns the best-effort LAN-reachable address of this machine. It
// dials a UDP socket toward a public address to learn which local interface
// the OS would route through; no packet is actually sent. Falls back to the
// loopback address when the machine has no route out.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
