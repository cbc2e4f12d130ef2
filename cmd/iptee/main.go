// Package main is the "iptee" CLI: forward stdin to N TCP/UDP endpoints
// (spec §6 CLI surface table).
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kkroon/gonmea2k/common"
)

func main() {
	handleErr(run(os.Args, os.Stdin, os.Stdout))
}

func handleErr(err error) {
	if err == nil {
		return
	}
	var exitErr *common.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, exitErr.Cause)
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

type network int

const (
	networkTCP network = iota
	networkUDP
	networkTCPReconnect
)

type endpoint struct {
	host string
	port string
}

func (e endpoint) addr() string { return net.JoinHostPort(e.host, e.port) }

func run(args []string, in io.Reader, out io.Writer) error {
	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var wait, udp, tcp, stream bool
	fs.BoolVar(&wait, "w", false, "wait for every endpoint to connect before forwarding")
	fs.BoolVar(&udp, "u", false, "use UDP")
	fs.BoolVar(&tcp, "t", false, "use TCP (default)")
	fs.BoolVar(&stream, "s", false, "use TCP, reconnecting dropped endpoints")
	if err := fs.Parse(args[1:]); err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}

	net_, err := selectNetwork(udp, tcp, stream)
	if err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}

	endpoints, err := parseEndpoints(fs.Args())
	if err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}
	if len(endpoints) == 0 {
		return &common.ExitError{Code: 1, Cause: fmt.Errorf(
			"usage: %s [-w] [-u|-t|-s] host port ...", args[0])}
	}

	sinks := make([]*sink, len(endpoints))
	for i, ep := range endpoints {
		sinks[i] = newSink(ep, net_)
	}
	defer func() {
		for _, s := range sinks {
			s.close()
		}
	}()

	if wait {
		for _, s := range sinks {
			if err := s.connect(); err != nil {
				return &common.ExitError{Code: 2, Cause: err}
			}
		}
	}

	return tee(in, out, sinks)
}

func selectNetwork(udp, tcp, stream bool) (network, error) {
	set := 0
	for _, b := range []bool{udp, tcp, stream} {
		if b {
			set++
		}
	}
	if set > 1 {
		return 0, fmt.Errorf("-u, -t and -s are mutually exclusive")
	}
	switch {
	case udp:
		return networkUDP, nil
	case stream:
		return networkTCPReconnect, nil
	default:
		return networkTCP, nil
	}
}

func parseEndpoints(args []string) ([]endpoint, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("host/port arguments must come in pairs, got %d", len(args))
	}
	out := make([]endpoint, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		out = append(out, endpoint{host: args[i], port: args[i+1]})
	}
	return out, nil
}

// tee copies every line from in to both out and every sink, stopping on a
// read error from in (spec §7 "EPIPE/EOF on stdin -> abort process") or on
// a write error to out (returned as exit code 2); a write failure to any
// one sink never aborts the others.
func tee(in io.Reader, out io.Writer, sinks []*sink) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if _, err := out.Write(append(append([]byte(nil), line...), '\n')); err != nil {
			return &common.ExitError{Code: 2, Cause: err}
		}
		for _, s := range sinks {
			s.write(line)
		}
	}
	return scanner.Err()
}

// sink owns one outbound connection, dialing lazily on first write and, for
// networkTCPReconnect, redialing after a write failure (spec §6 "-s").
type sink struct {
	ep   endpoint
	net_ network
	conn net.Conn
	dial func() (net.Conn, error)
}

func newSink(ep endpoint, net_ network) *sink {
	s := &sink{ep: ep, net_: net_}
	s.dial = func() (net.Conn, error) {
		proto := "tcp"
		if net_ == networkUDP {
			proto = "udp"
		}
		return net.DialTimeout(proto, ep.addr(), 5*time.Second)
	}
	return s
}

func (s *sink) connect() error {
	conn, err := s.dial()
	if err != nil {
		return fmt.Errorf("iptee: connect %s: %w", s.ep.addr(), err)
	}
	s.conn = conn
	return nil
}

func (s *sink) write(line []byte) {
	if s.conn == nil {
		if err := s.connect(); err != nil {
			return
		}
	}
	if _, err := s.conn.Write(append(append([]byte(nil), line...), '\n')); err != nil {
		s.conn.Close()
		s.conn = nil
		if s.net_ == networkTCPReconnect {
			if err := s.connect(); err == nil {
				s.conn.Write(append(append([]byte(nil), line...), '\n'))
			}
		}
	}
}

func (s *sink) close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
