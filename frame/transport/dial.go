// Package transport opens the two kinds of gateway connection the bridge
// commands accept: a local serial device, or a "tcp://host:port" endpoint
// for a network-attached or simulated gateway (spec §6's "<device|tcp://host:port>"
// argument convention).
package transport

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/tarm/serial"
)

const tcpPrefix = "tcp://"

// Dial opens addr, which is either a serial device path (e.g. /dev/ttyUSB0)
// or a "tcp://host:port" address, and returns a ReadWriteCloser ready for
// byte-level gateway framing.
func Dial(addr string, baud int, readTimeout time.Duration) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(addr, tcpPrefix) {
		host := strings.TrimPrefix(addr, tcpPrefix)
		conn, err := net.DialTimeout("tcp", host, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("transport: dialing %s: %w", addr, err)
		}
		return conn, nil
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        addr,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: opening serial device %s: %w", addr, err)
	}
	return port, nil
}
