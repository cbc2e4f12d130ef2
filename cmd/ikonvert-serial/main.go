// Package main is the "ikonvert-serial" CLI: a bridge between a Digital
// Yacht iKonvert gateway (serial or tcp://) and line-oriented PGN text on
// stdin/stdout (spec §6 CLI surface).
package main

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kkroon/gonmea2k/common"
	"github.com/kkroon/gonmea2k/frame/ikonvert"
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
	rx, tx                   []uint32
	verbose                  bool
	hex                      bool
	baud                     int
	timeout                  time.Duration
	resetTimeout             time.Duration
	device                   string
}

func run(args []string, in io.Reader, out io.Writer) error {
	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts options
	var rxCSV, txCSV []string
	var timeoutSecs, resetSecs int
	fs.BoolVar(&opts.read, "r", false, "read-only: gateway to stdout")
	fs.BoolVar(&opts.write, "w", false, "write-only: stdin to gateway")
	fs.BoolVar(&opts.passthrough, "p", false, "bidirectional passthrough (default)")
	fs.StringArrayVar(&rxCSV, "rx", nil, "allow this PGN inbound (repeatable)")
	fs.StringArrayVar(&txCSV, "tx", nil, "allow this PGN outbound (repeatable)")
	fs.BoolVar(&opts.verbose, "l", false, "also request SHOW_LISTS during init")
	fs.BoolVar(&opts.hex, "x", false, "use hex instead of Base64 for the binary payload")
	fs.IntVar(&opts.baud, "s", 230400, "serial baud rate")
	fs.IntVar(&timeoutSecs, "t", 0, "exit if no bytes arrive from the gateway for this many seconds")
	fs.IntVar(&resetSecs, "reset", 0, "re-run initialization after this many seconds of status-only traffic")
	if err := fs.Parse(args[1:]); err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}
	opts.timeout = time.Duration(timeoutSecs) * time.Second
	opts.resetTimeout = time.Duration(resetSecs) * time.Second
	if !opts.read && !opts.write && !opts.passthrough {
		opts.passthrough = true
	}

	rx, err := parsePGNList(rxCSV)
	if err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}
	tx, err := parsePGNList(txCSV)
	if err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}
	opts.rx, opts.tx = rx, tx

	if fs.NArg() != 1 {
		return &common.ExitError{Code: 1, Cause: fmt.Errorf(
			"usage: %s [-r|-w|-p] [-rx PGN] [-tx PGN] [-l] [-x] [-s BAUD] [-t SEC] [-reset SEC] <device|tcp://host:port>", args[0])}
	}
	opts.device = fs.Arg(0)

	conn, err := transport.Dial(opts.device, opts.baud, opts.timeout)
	if err != nil {
		return &common.ExitError{Code: 2, Cause: err}
	}
	defer conn.Close()

	if err := initDevice(conn, opts); err != nil {
		return &common.ExitError{Code: 2, Cause: err}
	}

	errCh := make(chan error, 2)
	active := 0
	if opts.read || opts.passthrough {
		active++
		go func() { errCh <- readLoop(conn, out, opts.timeout, opts.resetTimeout, opts) }()
	}
	if opts.write || opts.passthrough {
		active++
		go func() { errCh <- writeLoop(in, conn, opts.hex) }()
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

func parsePGNList(csv []string) ([]uint32, error) {
	var out []uint32
	for _, s := range csv {
		for _, tok := range strings.Split(s, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			n, err := strconv.ParseUint(tok, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid PGN %q: %w", tok, err)
			}
			out = append(out, uint32(n))
		}
	}
	return out, nil
}

// initDevice runs the scripted OFFLINE/RESET/RX_LIST/TX_LIST/ONLINE dialog
// (spec §4.A'), waiting for the device's "$PDGY,ACK,..." line after each
// list command.
func initDevice(conn io.ReadWriter, opts options) error {
	cmds := ikonvert.InitCommands(ikonvert.InitOptions{RXAllow: opts.rx, TXAllow: opts.tx, Verbose: opts.verbose})
	reader := bufio.NewReader(conn)
	for _, cmd := range cmds {
		if _, err := conn.Write([]byte(cmd + "\r\n")); err != nil {
			return err
		}
		if !strings.Contains(cmd, "_LIST,") {
			continue
		}
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			if ikonvert.IsACK(strings.TrimSpace(line)) {
				break
			}
		}
	}
	return nil
}

// readLoop reads lines from the gateway, re-running initDevice whenever the
// device reports it silently reset (spec §4.A' reinitialization rule).
func readLoop(conn io.ReadWriter, out io.Writer, timeout, resetTimeout time.Duration, opts options) error {
	device := ikonvert.NewDevice()
	reader := bufio.NewReader(conn)
	lastByte := time.Now()

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lastByte = time.Now()
			line = strings.TrimRight(line, "\r\n")
			rm, needsReinit, ferr := device.Feed(line)
			if ferr == nil && rm != nil {
				text, merr := common.MarshalRawMessageToPlainFormat(rm, common.MultiPacketsCoalesced)
				if merr == nil {
					if _, werr := out.Write(text); werr != nil {
						return werr
					}
				}
			}
			if needsReinit {
				device.Reset()
				if ierr := initDevice(conn, opts); ierr != nil {
					return ierr
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
			return fmt.Errorf("ikonvert-serial: no bytes from gateway for %s", timeout)
		}
	}
}

// writeLoop parses PLAIN/FAST lines from stdin and forwards each as an
// outbound "!PDGY,..." line. Marshal is intentionally unsupported by the
// NAVLINK2 parser for file-replay use (see common.navLink2Parser), so the
// outbound line is built directly here instead.
func writeLoop(in io.Reader, conn io.Writer, useHex bool) error {
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
		out := encodeOutbound(&rm, useHex)
		if _, err := conn.Write([]byte(out)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// encodeOutbound builds the "!PDGY,..." line the NAVLINK2 dialect's Marshal
// doesn't implement for file replay (common.navLink2Parser.Marshal returns
// an error there); -x selects lowercase hex instead of the default Base64
// payload encoding (spec §4.A' "hex mode (-x) is a lowercase hex
// alternative").
func encodeOutbound(rm *common.RawMessage, useHex bool) string {
	var payload string
	if useHex {
		payload = hex.EncodeToString(rm.Data)
	} else {
		payload = base64.RawStdEncoding.EncodeToString(rm.Data)
	}
	return fmt.Sprintf("!PDGY,%d,%d,%d,%d,0.0,%s\r\n", rm.PGN, rm.Prio, rm.Src, rm.Dst, payload)
}
