// Package main is the "analyzer" CLI: stdin PGN text lines in, decoded JSON
// or human-readable text out (spec §6 CLI surface).
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/pflag"

	"github.com/kkroon/gonmea2k/catalog"
	"github.com/kkroon/gonmea2k/clock"
	"github.com/kkroon/gonmea2k/common"
	"github.com/kkroon/gonmea2k/decode"
	"github.com/kkroon/gonmea2k/fastpacket"
)

func main() {
	handleErr(run(os.Args, os.Stdin, os.Stdout))
}

// handleErr implements spec §6/§7's exit-code convention: an *ExitError
// carries the code main should use, anything else not already an ExitError
// is treated as a usage error (code 1).
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
	showJSON      bool
	showJSONEmpty bool
	showLookupIDs bool
	upperCamel    bool
	camel         bool
	showData      bool
	showRaw       bool
	onlySrc       int
	onlyDst       int
	clockSrc      int
	format        string
	geo           string
	list          bool
	explainPGN    int
}

func run(args []string, in io.Reader, out io.Writer) error {
	logger := common.NewLoggerForCLI()
	logger.SetProgName(args[0])

	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := options{onlySrc: -1, onlyDst: -1, clockSrc: -1, explainPGN: -1, geo: "dd"}
	fs.BoolVar(&opts.showJSON, "json", false, "render decoded messages as JSON")
	fs.BoolVar(&opts.showJSONEmpty, "empty", false, "include fields that failed to decode as JSON null")
	fs.BoolVar(&opts.showLookupIDs, "nv", false, "render LOOKUP/BITLOOKUP fields as raw numeric values")
	fs.Bool("si", false, "render physical units in SI form (units are always SI; flag accepted for compatibility)")
	fs.StringVar(&opts.geo, "geo", "dd", "geographic rendering: dd, dm or dms")
	fs.BoolVar(&opts.upperCamel, "upper-camel", false, "render field names in UpperCamelCase")
	fs.BoolVar(&opts.camel, "camel", false, "render field names in camelCase")
	fs.BoolVar(&opts.showData, "data", false, "include the raw hex payload alongside decoded fields")
	fs.BoolVar(&opts.showRaw, "raw", false, "also print the raw input line before its decode")
	fs.IntVar(&opts.onlySrc, "src", -1, "only decode messages from this source address")
	fs.IntVar(&opts.onlyDst, "dst", -1, "only decode messages to this destination address")
	fs.IntVar(&opts.clockSrc, "clocksrc", -1, "adjust the system clock from PGN 126992 messages from this source")
	fs.StringVar(&opts.format, "format", "", "force a specific input dialect by name instead of autodetecting")
	fs.BoolVar(&opts.list, "list", false, "list every known PGN in the catalog and exit")
	fs.IntVar(&opts.explainPGN, "explain-pgn", -1, "print the catalog entry for one PGN and exit")
	if err := fs.Parse(args[1:]); err != nil {
		return &common.ExitError{Code: 1, Cause: fmt.Errorf("%s: %w", usage(args[0]), err)}
	}
	if opts.camel && opts.upperCamel {
		return &common.ExitError{Code: 1, Cause: fmt.Errorf("-camel and -upper-camel are mutually exclusive")}
	}

	pgnFilter := -1
	if fs.NArg() > 0 {
		n, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return &common.ExitError{Code: 1, Cause: fmt.Errorf("invalid PGN argument %q", fs.Arg(0))}
		}
		pgnFilter = n
	}

	cat := catalog.Load()

	if opts.list {
		listPGNs(cat, out)
		return nil
	}
	if opts.explainPGN >= 0 {
		return explainPGN(cat, uint32(opts.explainPGN), out)
	}

	dec := decode.NewDecoder(cat)
	if opts.clockSrc >= 0 {
		src := uint8(opts.clockSrc)
		dec.ClockSrc = &src
		dec.Clock = clock.NewSystemAdjuster()
	}

	ctx := decode.Context{
		Geo:           parseGeo(opts.geo),
		ShowLookupIDs: opts.showLookupIDs,
		ShowJSONEmpty: opts.showJSONEmpty,
	}
	if opts.showJSONEmpty || opts.showLookupIDs {
		opts.showJSON = true
	}

	return processLines(in, out, opts, dec, ctx, pgnFilter, logger)
}

func usage(prog string) string {
	return fmt.Sprintf("usage: %s [-json] [-empty] [-nv] [-si] [-geo dd|dm|dms] [-camel|-upper-camel] [-data] [-raw] [-src N] [-dst N] [-clocksrc N] [-format NAME] [<pgn>]", prog)
}

func parseGeo(s string) decode.GeoFormat {
	switch s {
	case "dm":
		return decode.GeoFormatDM
	case "dms":
		return decode.GeoFormatDMS
	default:
		return decode.GeoFormatDD
	}
}

func listPGNs(cat *catalog.Catalog, out io.Writer) {
	all := cat.All()
	sort.Slice(all, func(i, j int) bool { return all[i].PGN < all[j].PGN })
	for _, e := range all {
		fmt.Fprintf(out, "%d %s %s\n", e.PGN, e.ID, e.Description)
	}
}

func explainPGN(cat *catalog.Catalog, pgn uint32, out io.Writer) error {
	found := false
	for _, e := range cat.All() {
		if e.PGN != pgn {
			continue
		}
		found = true
		fmt.Fprintf(out, "%d %s %s (%s)\n", e.PGN, e.ID, e.Description, e.Type)
		for _, f := range e.Fields {
			fmt.Fprintf(out, "  %-24s bits=%d offset=%d kind=%s\n", f.Name, f.BitLength, f.BitOffset, f.Kind)
		}
	}
	if !found {
		return &common.ExitError{Code: 1, Cause: fmt.Errorf("no catalog entry for PGN %d", pgn)}
	}
	return nil
}

// decodeLine routes one input line through dialect detection and, for
// dialects that deliver one CAN frame per line (YDWG-02), through
// Fast-Packet reassembly before the payload is complete enough to decode.
func decodeLine(line string, opts options, cat *catalog.Catalog, reassembler *fastpacket.Reassembler) (*common.RawMessage, error) {
	var parser common.TextLineParser
	if opts.format != "" {
		parser = common.FindParserByName(opts.format)
		if parser == nil {
			return nil, fmt.Errorf("unknown -format %q", opts.format)
		}
	} else {
		parser = common.FindParser(line)
	}
	if parser == nil {
		return nil, nil
	}

	var rm common.RawMessage
	if err := parser.Parse(line, &rm); err != nil {
		return nil, fmt.Errorf("parsing %s line: %w", parser.Name(), err)
	}

	if parser.MultiPacketsCoalesced() {
		return &rm, nil
	}

	// One CAN frame per line: a frame of at most 8 bytes for a PGN the
	// catalog types as Fast-Packet is one piece of a longer payload and
	// goes through reassembly before it can be decoded (spec §4.D).
	if !common.AllowPGNFastPacket(rm.PGN) || len(rm.Data) > 8 {
		return &rm, nil
	}
	if info, ok := cat.Lookup(rm.PGN, nil); !ok || info.Type != catalog.TypeFast {
		return &rm, nil
	}
	payload, complete, err := reassembler.Feed(rm.PGN, rm.Src, rm.Data)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, nil
	}
	rm.Data = payload
	return &rm, nil
}

func processLines(in io.Reader, out io.Writer, opts options, dec *decode.Decoder, ctx decode.Context, pgnFilter int, logger *common.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	reassembler := &fastpacket.Reassembler{}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rm, err := decodeLine(line, opts, dec.Catalog, reassembler)
		if err != nil {
			logger.Info("skipping line: %v", err)
			continue
		}
		if rm == nil {
			continue
		}

		if opts.onlySrc >= 0 && int(rm.Src) != opts.onlySrc {
			continue
		}
		if opts.onlyDst >= 0 && int(rm.Dst) != opts.onlyDst {
			continue
		}
		if pgnFilter >= 0 && int(rm.PGN) != pgnFilter {
			continue
		}

		if opts.showRaw {
			fmt.Fprintln(out, line)
		}

		if err := render(rm, dec, ctx, opts, out); err != nil {
			logger.Info("%v", err)
		}
	}
	return scanner.Err()
}

func render(rm *common.RawMessage, dec *decode.Decoder, ctx decode.Context, opts options, out io.Writer) error {
	if !opts.showJSON {
		text, err := dec.DecodeText(rm, ctx)
		if err != nil {
			return err
		}
		if opts.showData {
			text += fmt.Sprintf(" data = %x;", rm.Data)
		}
		fmt.Fprintln(out, text)
		return nil
	}

	msg, err := dec.Decode(rm, ctx)
	if err != nil {
		return err
	}
	if opts.camel || opts.upperCamel {
		msg.Fields = renameFields(msg.Fields, opts.upperCamel)
	}
	if opts.showData {
		msg.Fields["data"] = fmt.Sprintf("%x", rm.Data)
	}

	js, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	fmt.Fprintln(out, string(js))
	return nil
}

// renameFields rewrites every field name to camelCase or UpperCamelCase,
// the two alternate field-name conventions spec §4.F offers alongside the
// catalog's original spaced names ("-camel"/"-upper-camel").
func renameFields(fields map[string]interface{}, upper bool) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for name, v := range fields {
		out[toCamel(name, upper)] = v
	}
	return out
}

func toCamel(name string, upper bool) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	var b strings.Builder
	for i, w := range words {
		runes := []rune(w)
		if len(runes) == 0 {
			continue
		}
		if i == 0 && !upper {
			runes[0] = unicode.ToLower(runes[0])
		} else {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}
