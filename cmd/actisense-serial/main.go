// Package main is the "actisense-serial" CLI: a bridge between an Actisense
// NGT-1 gateway (serial or tcp://) and line-oriented PGN text on
// stdin/stdout (spec §6 CLI surface).
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kkroon/gonmea2k/common"
	"github.com/kkroon/gonmea2k/frame/actisense"
	"github.com/kkroon/gonmea2k/frame/transport"
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

type options struct {
	read, write, passthrough bool
	baud                     int
	timeout                  time.Duration
	device                   string
}

func run(args []string, in io.Reader, out io.Writer) error {
	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts options
	var timeoutSecs int
	fs.BoolVar(&opts.read, "r", false, "read-only: gateway to stdout")
	fs.BoolVar(&opts.write, "w", false, "write-only: stdin to gateway")
	fs.BoolVar(&opts.passthrough, "p", false, "bidirectional passthrough (default)")
	fs.IntVar(&opts.baud, "s", 115200, "serial baud rate")
	fs.IntVar(&timeoutSecs, "t", 0, "exit if no bytes arrive from the gateway for this many seconds")
	if err := fs.Parse(args[1:]); err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}
	opts.timeout = time.Duration(timeoutSecs) * time.Second
	if !opts.read && !opts.write && !opts.passthrough {
		opts.passthrough = true
	}
	if fs.NArg() != 1 {
		return &common.ExitError{Code: 1, Cause: fmt.Errorf("usage: %s [-r|-w|-p] [-s BAUD] [-t SEC] <device|tcp://host:port>", args[0])}
	}
	opts.device = fs.Arg(0)

	conn, err := transport.Dial(opts.device, opts.baud, opts.timeout)
	if err != nil {
		return &common.ExitError{Code: 2, Cause: err}
	}
	defer conn.Close()

	errCh := make(chan error, 2)
	active := 0

	if opts.read || opts.passthrough {
		active++
		go func() { errCh <- readLoop(conn, out, opts.timeout) }()
	}
	if opts.write || opts.passthrough {
		active++
		go func() { errCh <- writeLoop(in, conn) }()
	}

	var firstErr error
	for i := 0; i < active; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return &common.ExitError{Code: 2, Cause: firstErr}
	}
	return nil
}

// readLoop feeds gateway bytes through the NGT-1 codec and renders each
// decoded N2K message as a PLAIN/FAST text line (spec §4.E).
func readLoop(conn io.Reader, out io.Writer, timeout time.Duration) error {
	var codec actisense.Codec
	buf := make([]byte, 1)
	lastByte := time.Now()

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			lastByte = time.Now()
			frame, ferr := codec.Feed(buf[0])
			if ferr != nil {
				continue // framing error: resync, per spec §7 "Framing" policy
			}
			if frame != nil {
				rm, rerr := actisense.ToRawMessage(frame, time.Now())
				if rerr != nil {
					continue
				}
				line, merr := common.MarshalRawMessageToPlainFormat(rm, common.MultiPacketsCoalesced)
				if merr != nil {
					continue
				}
				if _, werr := out.Write(line); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if timeout > 0 && time.Since(lastByte) > timeout {
			return fmt.Errorf("actisense-serial: no bytes from gateway for %s", timeout)
		}
	}
}

// writeLoop parses PLAIN/FAST lines from stdin and forwards each as an
// outbound NGT-1 N2K_MSG_SEND frame.
func writeLoop(in io.Reader, conn io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		parser := common.FindParser(line)
		if parser == nil {
			continue
		}
		var rm common.RawMessage
		if err := parser.Parse(line, &rm); err != nil {
			continue
		}
		wire, err := actisense.FromRawMessage(&rm)
		if err != nil {
			continue
		}
		if _, err := conn.Write(wire); err != nil {
			return err
		}
	}
	return scanner.Err()
}
