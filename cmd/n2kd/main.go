// Package main is the "n2kd" CLI: the multi-client fan-out server (spec
// §4.G, §6).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/kkroon/gonmea2k/common"
	"github.com/kkroon/gonmea2k/n2kd"
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
	debug       bool
	quiet       bool
	dumpOnExit  bool
	rateLimit   bool
	srcFilter   []int
	port        int
	metricsAddr string
	mdns        bool
	wsAddr      string
	mqttBroker  string
	mqttTopic   string
}

func run(args []string, in io.Reader, out io.Writer) error {
	logger := common.NewLoggerForCLI()
	logger.SetProgName(args[0])

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := options{port: n2kd.DefaultBasePort}
	fs.BoolVar(&opts.debug, "d", false, "enable debug logging")
	fs.BoolVar(&opts.quiet, "q", false, "suppress informational logging")
	fs.BoolVar(&opts.dumpOnExit, "o", false, "dump the full state map to stdout on exit")
	fs.BoolVar(&opts.rateLimit, "r", false, "enable NMEA 0183 rate limiting")
	fs.BoolVar(&opts.rateLimit, "rate-limit", false, "enable NMEA 0183 rate limiting")
	var srcFilterCSV string
	fs.StringVar(&srcFilterCSV, "src-filter", "", "comma-separated list of source addresses to accept, default all")
	fs.IntVar(&opts.port, "p", n2kd.DefaultBasePort, "base TCP port (JSON-on-demand at p, JSON-stream at p+1, NMEA0183 at p+2)")
	fs.StringVar(&opts.metricsAddr, "metrics", "", "expose Prometheus metrics on this address (supplemented feature)")
	fs.BoolVar(&opts.mdns, "mdns", false, "advertise the JSON-stream port via mDNS (supplemented feature)")
	fs.StringVar(&opts.wsAddr, "ws", "", "serve a websocket line stream on this address (supplemented feature)")
	fs.StringVar(&opts.mqttBroker, "mqtt-broker", "", "republish decoded lines to this MQTT broker (supplemented feature)")
	fs.StringVar(&opts.mqttTopic, "mqtt-topic", "n2kd/lines", "MQTT topic to publish decoded lines to")
	if err := fs.Parse(args[1:]); err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}

	if opts.debug {
		logger.SetLogLevel(common.LogLevelDebug)
	} else if opts.quiet {
		logger.SetLogLevel(common.LogLevelError)
	}

	filter, err := parseSrcFilter(srcFilterCSV)
	if err != nil {
		return &common.ExitError{Code: 1, Cause: err}
	}
	opts.srcFilter = filter

	return serve(opts, in, out, logger)
}

func parseSrcFilter(csv string) ([]int, error) {
	if csv == "" {
		return nil, nil
	}
	var out []int
	for _, tok := range strings.Split(csv, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid --src-filter entry %q: %w", tok, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func serve(opts options, in io.Reader, out io.Writer, logger *common.Logger) error {
	srv := n2kd.NewServer(logger, opts.rateLimit)

	addrs, err := srv.ListenAndServe(opts.port)
	if err != nil {
		return &common.ExitError{Code: 2, Cause: err}
	}
	logger.Info("n2kd listening: json-on-demand=%s json-stream=%s nmea0183=%s", addrs[0], addrs[1], addrs[2])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.metricsAddr != "" {
		startMetrics(srv, opts.metricsAddr, ctx, logger)
	}
	if opts.mdns {
		stopMDNS, err := n2kd.AdvertiseMDNS(ctx, "n2kd", opts.port+1)
		if err != nil {
			logger.Info("mDNS advertisement failed: %v", err)
		} else {
			defer stopMDNS()
		}
	}
	if opts.wsAddr != "" {
		startWebSocket(srv, opts.wsAddr, logger)
	}
	if opts.mqttBroker != "" {
		sink, err := n2kd.NewMQTTSink(opts.mqttBroker, opts.mqttTopic, "n2kd")
		if err != nil {
			logger.Info("MQTT sink failed: %v", err)
		} else {
			go sink.Run(srv)
			defer sink.Close()
		}
	}

	go srv.ServeStdin(filterSrc(in, opts.srcFilter))
	defer func() {
		if opts.dumpOnExit {
			for _, line := range srv.State.Dump(time.Now()) {
				fmt.Fprintln(out, line)
			}
		}
	}()

	srv.Run()
	return nil
}

// filterSrc drops decoded lines whose "src" field isn't in allowed
// (spec §6 "--src-filter LIST"); nil allowed passes every line through
// unmodified.
func filterSrc(in io.Reader, allowed []int) io.Reader {
	if len(allowed) == 0 {
		return in
	}
	want := make(map[int]bool, len(allowed))
	for _, a := range allowed {
		want[a] = true
	}

	r, w := io.Pipe()
	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			var parsed struct {
				Src int `json:"src"`
			}
			if err := json.Unmarshal([]byte(line), &parsed); err == nil && !want[parsed.Src] {
				continue
			}
			if _, err := w.Write([]byte(line + "\n")); err != nil {
				break
			}
		}
		w.Close()
	}()
	return r
}

func startMetrics(srv *n2kd.Server, addr string, ctx context.Context, logger *common.Logger) {
	reg := prometheus.DefaultRegisterer
	metrics := n2kd.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", n2kd.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.Sample(srv)
			}
		}
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Info("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
}

func startWebSocket(srv *n2kd.Server, addr string, logger *common.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/json-stream", n2kd.WebSocketHandler(srv))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Info("websocket server: %v", err)
		}
	}()
}
