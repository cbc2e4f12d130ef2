package common

// Originally from https://github.com/canboat/canboat (Apache License, Version 2.0)
// (C) 2009-2023, Kees Verruijt, Harlingen, The Netherlands.

// This file is part of CANboat.

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TextLineParser decodes one dialect of the textual line-oriented formats
// listed in spec §4.E's format table into a RawMessage, and (where
// supported) renders a RawMessage back into that dialect's text.
type TextLineParser interface {
	Parse(msg string, m *RawMessage) error
	Detect(msg string) bool
	Marshal(rawMsg *RawMessage, packetTypeFast bool, multi MultiPackets) (string, error)
	// MultiPacketsCoalesced reports whether this dialect always carries a
	// fast-packet's whole payload on a single line (true), versus one
	// line per CAN frame (false, e.g. YDWG-02).
	MultiPacketsCoalesced() bool
	// SkipFirstLine reports whether the dialect has a header line that
	// must be discarded before the first data line.
	SkipFirstLine() bool
	Name() string
}

// AllParsers is the registry searched, in order, by FindParser. Order
// matters: PLAIN_OR_FAST's Detect is permissive enough to also match some
// malformed input from the more specific dialects, so it is registered
// after them.
var AllParsers []TextLineParser

func init() {
	AllParsers = []TextLineParser{
		&navLink2Parser{},
		&ydwg02Parser{},
		&garminCSV1Parser{},
		&garminCSV2Parser{},
		&chetcoParser{},
		&airmarParser{},
		&actisenseASCIIParser{},
		&plainOrFastParser{},
	}
}

// FindParser returns the first registered parser whose Detect matches msg,
// or nil if none does.
func FindParser(msg string) TextLineParser {
	for _, p := range AllParsers {
		if p.Detect(msg) {
			return p
		}
	}
	return nil
}

// FindParserByName returns the registered parser with the given Name, or
// nil.
func FindParserByName(name string) TextLineParser {
	for _, p := range AllParsers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func findOccurrence(msg string, c byte, count int) int {
	if len(msg) == 0 || msg[0] == '\n' {
		return 0
	}
	idx := 0
	for i := 0; i < count; i++ {
		next := strings.IndexByte(msg[idx:], c)
		if next == -1 {
			return -1
		}
		idx += next
		if idx+1 != len(msg) {
			idx++
		}
	}
	return idx
}

func scanNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 16
	}
}

func scanHex(p string, out *byte) (int, bool) {
	if len(p) < 2 {
		return 0, false
	}
	hi, lo := scanNibble(p[0]), scanNibble(p[1])
	if hi > 15 || lo > 15 {
		return 0, false
	}
	*out = hi<<4 | lo
	return 2, true
}

const (
	timestampFormatAlt  = "2006-01-02T15:04:05.000Z"
	timestampFormatAlt2 = "2006-01-02T15:04:05Z"
)

var monthNames = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March, "Apr": time.April,
	"May": time.May, "Jun": time.June, "Jul": time.July, "Aug": time.August,
	"Sep": time.September, "Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// ParseTimestamp parses a CANboat-style timestamp in any of the three
// formats the native line format and its historic captures use.
func ParseTimestamp(from string) (time.Time, error) {
	if tm, err := time.Parse(timestampFormat, from); err == nil {
		return tm, nil
	}
	if tm, err := time.Parse(timestampFormatAlt, from); err == nil {
		return tm, nil
	}
	if tm, err := time.Parse(timestampFormatAlt2, from); err == nil {
		return tm, nil
	}

	var day, year, hour, minute, millis int
	var month string
	if n, _ := fmt.Sscanf(from, "%d %s %d %d:%d +%d", &day, &month, &year, &hour, &minute, &millis); n == 6 {
		if mon, ok := monthNames[month]; ok {
			secs := millis / 1000
			nanos := (millis % 1000) * 1_000_000
			return time.Date(2000+year, mon, day, hour, minute, secs, nanos, time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("error parsing timestamp %q", from)
}

// DataLengthInPlainOrFast peeks the data-length field of a PLAIN/FAST line
// without fully parsing it, so the caller can dispatch by length.
func DataLengthInPlainOrFast(msg string) (int, bool) {
	pIdx := findOccurrence(msg, ',', 1)
	if pIdx == -1 {
		return 0, false
	}
	pIdx--
	if _, err := ParseTimestamp(msg[:pIdx]); err != nil {
		return 0, false
	}

	var prio, src, dst, dataLen, junk uint
	var pgn uint32
	r, _ := fmt.Sscanf(msg[pIdx:], ",%d,%d,%d,%d,%d,%x,%x,%x,%x,%x,%x,%x,%x,%x",
		&prio, &pgn, &src, &dst, &dataLen, &junk, &junk, &junk, &junk, &junk, &junk, &junk, &junk, &junk)
	if r < 5 {
		return 0, false
	}
	return int(dataLen), true
}

// plainOrFastParser handles both PLAIN (len<=8, one line) and FAST
// (len>8, whole payload on one line) dialects, deciding per-line by the
// length field, per spec §4.E.
type plainOrFastParser struct{}

func (p *plainOrFastParser) Name() string               { return "PLAIN_OR_FAST" }
func (p *plainOrFastParser) SkipFirstLine() bool         { return false }
func (p *plainOrFastParser) MultiPacketsCoalesced() bool { return true }

func (p *plainOrFastParser) Detect(msg string) bool {
	_, ok := DataLengthInPlainOrFast(msg)
	return ok
}

func (p *plainOrFastParser) Parse(msg string, m *RawMessage) error {
	n, ok := DataLengthInPlainOrFast(msg)
	if !ok {
		return fmt.Errorf("not a PLAIN or FAST line")
	}
	if n <= 8 {
		return p.parsePlain(msg, m)
	}
	return p.parseFast(msg, m)
}

func (p *plainOrFastParser) parsePlain(msg string, m *RawMessage) error {
	var prio, src, dst, dataLen uint
	var pgn uint32
	var data [8]uint
	var junk uint

	pIdx := findOccurrence(msg, ',', 1)
	if pIdx == -1 {
		return fmt.Errorf("not PLAIN format")
	}
	pIdx--

	tm, err := ParseTimestamp(msg[:pIdx])
	if err != nil {
		return err
	}
	m.Timestamp = tm

	r, _ := fmt.Sscanf(msg[pIdx:], ",%d,%d,%d,%d,%d,%x,%x,%x,%x,%x,%x,%x,%x,%x",
		&prio, &pgn, &src, &dst, &dataLen, &data[0], &data[1], &data[2], &data[3], &data[4], &data[5], &data[6], &data[7], &junk)
	if r < 5 {
		return fmt.Errorf("error reading PLAIN message, scanned %d fields from %q", r, msg)
	}
	if dataLen > 8 {
		return fmt.Errorf("not PLAIN format but FAST format")
	}
	if r > 5+8 {
		return fmt.Errorf("invalid PLAIN format")
	}

	m.Data = make([]byte, dataLen)
	for i := uint(0); i < dataLen; i++ {
		m.Data[i] = byte(data[i])
	}
	m.setParsedValues(uint8(prio), pgn, uint8(dst), uint8(src), uint8(dataLen))
	return nil
}

func (p *plainOrFastParser) parseFast(msg string, m *RawMessage) error {
	var prio, src, dst, dataLen uint
	var pgn uint32

	pIdx := findOccurrence(msg, ',', 1)
	if pIdx == -1 {
		return fmt.Errorf("not FAST format")
	}
	pIdx--

	tm, err := ParseTimestamp(msg[:pIdx])
	if err != nil {
		return err
	}
	m.Timestamp = tm

	r, _ := fmt.Sscanf(msg[pIdx:], ",%d,%d,%d,%d,%d ", &prio, &pgn, &src, &dst, &dataLen)
	if r < 5 {
		return fmt.Errorf("error reading FAST message, scanned %d fields from %q", r, msg)
	}

	next := findOccurrence(msg[pIdx:], ',', 6)
	if next == -1 {
		return fmt.Errorf("error reading FAST message from %q", msg)
	}
	pIdx += next
	m.Data = make([]byte, dataLen)
	for i := uint(0); i < dataLen; i++ {
		n, ok := scanHex(msg[pIdx:], &m.Data[i])
		if !ok {
			return fmt.Errorf("error reading FAST message byte %d from %q", i, msg)
		}
		pIdx += n
		if i < dataLen-1 && pIdx < len(msg) {
			if msg[pIdx] != ',' && !unicode.IsSpace(rune(msg[pIdx])) {
				return fmt.Errorf("error reading FAST message from %q", msg)
			}
			pIdx++
		}
	}
	m.setParsedValues(uint8(prio), pgn, uint8(dst), uint8(src), uint8(dataLen))
	return nil
}

func (p *plainOrFastParser) Marshal(rawMsg *RawMessage, packetTypeFast bool, multi MultiPackets) (string, error) {
	if packetTypeFast && multi != MultiPacketsCoalesced {
		b, err := MarshalRawMessageToFastFormat(rawMsg, multi)
		return string(b), err
	}
	b, err := MarshalRawMessageToPlainFormat(rawMsg, multi)
	return string(b), err
}

// navLink2Parser decodes the Digital Yacht iKonvert binary line dialect
// (spec §4.A'): "!PDGY,<pgn>,<prio>,<src>,<dst>,<timer>,<base64|hex>".
type navLink2Parser struct{}

func (p *navLink2Parser) Name() string               { return "NAVLINK2" }
func (p *navLink2Parser) SkipFirstLine() bool         { return false }
func (p *navLink2Parser) MultiPacketsCoalesced() bool { return true }

func (p *navLink2Parser) Detect(msg string) bool {
	var a, b, c, d uint
	var e float64
	var f string
	n, _ := fmt.Sscanf(msg, "!PDGY,%d,%d,%d,%d,%f,%s ", &a, &b, &c, &d, &e, &f)
	return n == 6
}

func (p *navLink2Parser) Parse(msg string, m *RawMessage) error {
	var prio, src, dst uint
	var pgn uint32
	var timer float64
	var pgnData string
	n, _ := fmt.Sscanf(msg, "!PDGY,%d,%d,%d,%d,%f,%s ", &pgn, &prio, &src, &dst, &timer, &pgnData)
	if n != 6 {
		return fmt.Errorf("wrong number of fields in NAVLINK2 message: %d", n)
	}

	m.Timestamp = time.Time{}.Add(time.Millisecond * time.Duration(timer*1e3))

	// Some iKonvert firmware sends hex instead of base64 for the same
	// field; detect and handle both.
	isHex := len(pgnData) > 40
	for _, d := range pgnData {
		if !((d >= '0' && d <= '9') || (d >= 'A' && d <= 'F')) {
			isHex = false
			break
		}
	}
	if isHex {
		decoded, err := hex.DecodeString(pgnData)
		if err == nil {
			m.Data = decoded
		} else {
			isHex = false
		}
	}
	if !isHex {
		decoded, err := base64.RawStdEncoding.DecodeString(pgnData)
		if err != nil {
			return fmt.Errorf("decoding NAVLINK2 base64 payload: %w", err)
		}
		m.Data = decoded
	}

	m.setParsedValues(uint8(prio), pgn, uint8(dst), uint8(src), uint8(len(m.Data)))
	return nil
}

func (p *navLink2Parser) Marshal(*RawMessage, bool, MultiPackets) (string, error) {
	return "", fmt.Errorf("NAVLINK2 marshal not supported")
}

// ydwg02Parser decodes the Yacht Digital YDWG-02 dialect:
// "HH:MM:SS.mmm R|T <canid-hex> <byte> <byte> ...".
type ydwg02Parser struct{}

func (p *ydwg02Parser) Name() string               { return "YDWG02" }
func (p *ydwg02Parser) SkipFirstLine() bool         { return false }
func (p *ydwg02Parser) MultiPacketsCoalesced() bool { return false }

func (p *ydwg02Parser) Detect(msg string) bool {
	var a, b, c, d int
	var dir rune
	var id int
	n, _ := fmt.Sscanf(msg, "%d:%d:%d.%d %c %02X ", &a, &b, &c, &d, &dir, &id)
	return n == 6 && (dir == 'R' || dir == 'T')
}

func (p *ydwg02Parser) Parse(msg string, m *RawMessage) error {
	fields := strings.Split(msg, " ")
	if len(fields) < 3 {
		return fmt.Errorf("invalid YDWG-02 line")
	}
	m.Timestamp = time.Now().Local()

	id64, err := strconv.ParseInt(fields[2], 16, 64)
	if err != nil {
		return fmt.Errorf("invalid YDWG-02 CAN id: %w", err)
	}
	prio, pgn, src, dst := GetISO11783BitsFromCanID(uint(id64))

	var data []byte
	for _, tok := range fields[3:] {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return fmt.Errorf("invalid YDWG-02 data byte %q: %w", tok, err)
		}
		data = append(data, byte(b))
		if len(data) > FastPacketMaxSize {
			return fmt.Errorf("YDWG-02 message too long")
		}
	}
	m.Data = data
	m.setParsedValues(prio, pgn, dst, src, uint8(len(data)))
	return nil
}

func (p *ydwg02Parser) Marshal(*RawMessage, bool, MultiPackets) (string, error) {
	return "", fmt.Errorf("YDWG02 marshal not supported")
}

const garminCSVHeader = "Sequence #,Timestamp,PGN,Name,Manufacturer,Remote Address,Local Address,Priority,Single Frame,Size,packet"

// garminCSV1Parser and garminCSV2Parser decode the Garmin "ActiveCaptain"
// CSV export dialects; they differ only in timestamp encoding (relative
// milliseconds vs an absolute "MM_DD_YYYY_HH_MM_SS_mmm" field).
type garminCSV1Parser struct{}

func (p *garminCSV1Parser) Name() string               { return "GARMIN_CSV1" }
func (p *garminCSV1Parser) SkipFirstLine() bool        { return true }
func (p *garminCSV1Parser) MultiPacketsCoalesced() bool { return true }
func (p *garminCSV1Parser) Detect(msg string) bool {
	return strings.TrimRight(msg, "\r\n") == garminCSVHeader
}
func (p *garminCSV1Parser) Parse(msg string, m *RawMessage) error {
	return parseGarminCSV(msg, m, false)
}
func (p *garminCSV1Parser) Marshal(*RawMessage, bool, MultiPackets) (string, error) {
	return "", fmt.Errorf("GARMIN_CSV1 marshal not supported")
}

type garminCSV2Parser struct{}

func (p *garminCSV2Parser) Name() string               { return "GARMIN_CSV2" }
func (p *garminCSV2Parser) SkipFirstLine() bool         { return true }
func (p *garminCSV2Parser) MultiPacketsCoalesced() bool { return true }
func (p *garminCSV2Parser) Detect(msg string) bool {
	return strings.TrimRight(msg, "\r\n") == garminCSVHeader
}
func (p *garminCSV2Parser) Parse(msg string, m *RawMessage) error {
	return parseGarminCSV(msg, m, true)
}
func (p *garminCSV2Parser) Marshal(*RawMessage, bool, MultiPackets) (string, error) {
	return "", fmt.Errorf("GARMIN_CSV2 marshal not supported")
}

func parseGarminCSV(msg string, m *RawMessage, absolute bool) error {
	if len(msg) == 0 || msg[0] == '\n' {
		return fmt.Errorf("empty Garmin CSV line")
	}

	var seq, tstamp, pgn, src, dst, prio, single, count uint
	var pIdx int
	if absolute {
		var month, day, year, hours, minutes, seconds, ms uint
		n, _ := fmt.Sscanf(msg, "%d,%d_%d_%d_%d_%d_%d_%d,%d,",
			&seq, &month, &day, &year, &hours, &minutes, &seconds, &ms, &pgn)
		if n < 9 {
			return fmt.Errorf("error reading Garmin CSV2 message: %q", msg)
		}
		m.Timestamp = time.Date(int(year), time.Month(month), int(day), int(hours), int(minutes), int(seconds),
			int((ms%1000)*1e6), time.Local)
		pIdx = findOccurrence(msg, ',', 6)
	} else {
		n, _ := fmt.Sscanf(msg, "%d,%d,%d,", &seq, &tstamp, &pgn)
		if n < 3 {
			return fmt.Errorf("error reading Garmin CSV1 message: %q", msg)
		}
		m.Timestamp = time.Unix(int64(tstamp/1000), 0).Local()
		pIdx = findOccurrence(msg, ',', 5)
	}
	if pIdx >= len(msg) {
		return fmt.Errorf("error reading Garmin CSV message: %q", msg)
	}

	var restOfData string
	n, _ := fmt.Sscanf(msg[pIdx:], "%d,%d,%d,%d,%d,0x%s", &src, &dst, &prio, &single, &count, &restOfData)
	if n < 5 {
		return fmt.Errorf("error reading Garmin CSV message: %q", msg)
	}
	hexIdx := strings.Index(msg[pIdx:], ",0x")
	if hexIdx == -1 {
		return fmt.Errorf("error reading Garmin CSV message: %q", msg)
	}
	pIdx += hexIdx + 3

	data := make([]byte, count)
	var i uint
	for i = 0; pIdx < len(msg) && i < count; i++ {
		n, ok := scanHex(msg[pIdx:], &data[i])
		if !ok {
			return fmt.Errorf("error reading Garmin CSV data byte %d from %q", i, msg)
		}
		pIdx += n
	}
	m.Data = data
	m.setParsedValues(uint8(prio), uint32(pgn), uint8(dst), uint8(src), uint8(i))
	return nil
}

// chetcoParser decodes the Chetco SeaSmart-style "$PCDIN" NMEA 0183
// wrapper dialect.
type chetcoParser struct{}

func (p *chetcoParser) Name() string               { return "CHETCO" }
func (p *chetcoParser) SkipFirstLine() bool         { return false }
func (p *chetcoParser) MultiPacketsCoalesced() bool { return true }

func (p *chetcoParser) Detect(msg string) bool {
	return strings.HasPrefix(msg, "$PCDIN")
}

func (p *chetcoParser) Parse(msg string, m *RawMessage) error {
	if len(msg) == 0 || msg[0] == '\n' {
		return fmt.Errorf("empty Chetco line")
	}
	var tstamp uint
	if n, _ := fmt.Sscanf(msg, "$PCDIN,%x,%x,%x,", &m.PGN, &tstamp, &m.Src); n < 3 {
		return fmt.Errorf("error reading Chetco message: %q", msg)
	}
	m.Timestamp = time.Unix(int64(tstamp/1000), 0).Local()

	pIdx := len("$PCDIN,01FD07,089C77D!,03,")
	if pIdx >= len(msg) {
		return fmt.Errorf("truncated Chetco message: %q", msg)
	}

	var data []byte
	for pIdx < len(msg) && msg[pIdx] != '*' {
		var b byte
		n, ok := scanHex(msg[pIdx:], &b)
		if !ok {
			return fmt.Errorf("error reading Chetco data byte from %q", msg)
		}
		data = append(data, b)
		pIdx += n
	}
	m.Data = data
	m.Prio = 0
	m.Dst = 255
	m.Len = uint8(len(data))
	return nil
}

func (p *chetcoParser) Marshal(*RawMessage, bool, MultiPackets) (string, error) {
	return "", fmt.Errorf("CHETCO marshal not supported")
}

// airmarParser decodes the Airmar WeatherCaster space-separated dialect:
// "<timestamp> - <pgn> [<canid-hex>] <hex-bytes...>".
type airmarParser struct{}

func (p *airmarParser) Name() string               { return "AIRMAR" }
func (p *airmarParser) SkipFirstLine() bool         { return false }
func (p *airmarParser) MultiPacketsCoalesced() bool { return true }

func (p *airmarParser) Detect(msg string) bool {
	idx := strings.IndexByte(msg, ' ')
	if idx == -1 || idx+2 >= len(msg) {
		return false
	}
	return msg[idx+1] == '-' || msg[idx+2] == '-'
}

func (p *airmarParser) Parse(msg string, m *RawMessage) error {
	var pgn uint32
	var id uint

	pIdx := findOccurrence(msg, ' ', 1)
	if pIdx < 4 || pIdx >= 60 {
		return fmt.Errorf("not an Airmar line")
	}

	tm, err := ParseTimestamp(msg[:pIdx-1])
	if err != nil {
		return err
	}
	m.Timestamp = tm
	pIdx += 3 // skip " - "

	n, _ := fmt.Sscanf(msg[pIdx:], "%d", &pgn)
	if n != 1 {
		return fmt.Errorf("error reading Airmar PGN from %q", msg)
	}
	pIdx += len(strconv.FormatUint(uint64(pgn), 10))
	if pIdx < len(msg) && msg[pIdx] == ' ' {
		pIdx++
		n, _ := fmt.Sscanf(msg[pIdx:], "%x", &id)
		if n != 1 {
			return fmt.Errorf("error reading Airmar CAN id from %q", msg)
		}
		pIdx += len(strconv.FormatUint(uint64(id), 16))
	}
	if pIdx >= len(msg) || msg[pIdx] != ' ' {
		return fmt.Errorf("error reading Airmar message from %q", msg)
	}

	prio, pgn2, src, dst := GetISO11783BitsFromCanID(id)
	_ = pgn2 // the literal PGN parsed from the text takes precedence, matching upstream behavior

	pIdx++
	dataLen := (len(msg) - pIdx) / 2
	data := make([]byte, dataLen)
	for i := 0; i < dataLen; i++ {
		n, ok := scanHex(msg[pIdx:], &data[i])
		if !ok {
			return fmt.Errorf("error reading Airmar data byte %d from %q", i, msg)
		}
		pIdx += n
		if i < dataLen-1 {
			if pIdx >= len(msg) || (msg[pIdx] != ',' && msg[pIdx] != ' ') {
				return fmt.Errorf("error reading Airmar message from %q", msg)
			}
			pIdx++
		}
	}

	m.Data = data
	m.setParsedValues(prio, pgn, dst, src, uint8(dataLen))
	return nil
}

func (p *airmarParser) Marshal(*RawMessage, bool, MultiPackets) (string, error) {
	return "", fmt.Errorf("AIRMAR marshal not supported")
}

// actisenseASCIIParser decodes the Actisense "NMEAreader"-style ASCII
// dialect: "A<secs>.<ms> <src><dst><prio-hex> <pgn-hex> <bytes...>". Since
// the source only gives a time-of-day offset, the parser maintains a
// per-stream epoch anchor the first time it sees data.
type actisenseASCIIParser struct {
	epoch int64
	armed bool
}

func (p *actisenseASCIIParser) Name() string               { return "ACTISENSE_N2K_ASCII" }
func (p *actisenseASCIIParser) SkipFirstLine() bool         { return false }
func (p *actisenseASCIIParser) MultiPacketsCoalesced() bool { return true }

func (p *actisenseASCIIParser) Detect(msg string) bool {
	var a, b, c, d int
	r1, _ := fmt.Sscanf(msg, "A%d.%d %x %x ", &a, &b, &c, &d)
	r2, _ := fmt.Sscanf(msg, "A%d %x %x ", &a, &b, &c)
	return r1 == 4 || r2 == 3
}

func (p *actisenseASCIIParser) Parse(msg string, m *RawMessage) error {
	fields := strings.Split(msg, " ")
	if len(fields) < 2 || fields[0] == "" || fields[0][0] != 'A' {
		return fmt.Errorf("invalid Actisense ASCII line")
	}

	var secs, millis int
	if n, _ := fmt.Sscanf(fields[0][1:], "%d.%d", &secs, &millis); n < 1 {
		return fmt.Errorf("invalid Actisense ASCII timestamp in %q", msg)
	}
	if !p.armed {
		p.epoch = time.Now().Unix() - int64(secs)
		p.armed = true
	}
	m.Timestamp = time.Unix(p.epoch+int64(secs), 0).Add(time.Millisecond * time.Duration(millis)).Local()

	fields = fields[1:]
	if len(fields) == 0 {
		return fmt.Errorf("truncated Actisense ASCII message")
	}
	spd, err := strconv.ParseInt(fields[0], 16, 64)
	if err != nil {
		return fmt.Errorf("invalid Actisense src/dst/prio field: %w", err)
	}
	m.Prio = uint8(spd & 0xf)
	m.Dst = uint8((spd >> 4) & 0xff)
	m.Src = uint8((spd >> 12) & 0xff)

	fields = fields[1:]
	if len(fields) == 0 {
		return fmt.Errorf("truncated Actisense ASCII message, missing PGN")
	}
	pgn, err := strconv.ParseInt(fields[0], 16, 64)
	if err != nil {
		return fmt.Errorf("invalid Actisense PGN field: %w", err)
	}
	m.PGN = uint32(pgn)

	rest := strings.Join(fields[1:], " ")
	var data []byte
	for len(rest) > 0 && !unicode.IsSpace(rune(rest[0])) {
		var b byte
		n, ok := scanHex(rest, &b)
		if !ok {
			break
		}
		data = append(data, b)
		rest = rest[n:]
		if len(data) > FastPacketMaxSize {
			return fmt.Errorf("Actisense ASCII message too long")
		}
	}
	m.Data = data
	m.Len = uint8(len(data))
	return nil
}

func (p *actisenseASCIIParser) Marshal(*RawMessage, bool, MultiPackets) (string, error) {
	return "", fmt.Errorf("ACTISENSE_N2K_ASCII marshal not supported")
}
