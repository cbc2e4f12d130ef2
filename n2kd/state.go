// Package n2kd implements the multi-client fan-out server (spec §4.G): a
// single-goroutine dispatch loop that ingests decoded PGN JSON lines from
// stdin, keeps a live per-source per-PGN state map, derives NMEA 0183
// sentences, and serves three flavours of TCP client.
package n2kd

import (
	"encoding/json"
	"time"
)

// Secondary-key timeouts (spec §4.G "State map").
const (
	timeoutShort    = 60 * time.Second
	timeoutLong     = 3600 * time.Second
	timeoutVeryLong = 24 * time.Hour
)

// PGNs that always use the very long (24 h) timeout regardless of secondary
// key (address claim, product information).
const (
	pgnISOAddressClaim   = 60928
	pgnProductInformation = 126996
)

// secondaryKeyTimeout reports the secondary key and timeout for a record of
// pgn with the given decoded fields: the first of Instance, Reference,
// Message ID, User ID and Proprietary ID present in fields picks both
// (spec §4.G's secondary-key table).
func secondaryKeyTimeout(pgn int, fields map[string]interface{}) (key string, timeout time.Duration) {
	if pgn == pgnISOAddressClaim || pgn == pgnProductInformation {
		return "", timeoutVeryLong
	}
	for _, name := range []string{"Instance", "Reference"} {
		if v, ok := fields[name]; ok {
			return name + "=" + toKeyString(v), timeoutShort
		}
	}
	for _, name := range []string{"Message ID", "User ID"} {
		if v, ok := fields[name]; ok {
			return name + "=" + toKeyString(v), timeoutLong
		}
	}
	if v, ok := fields["Proprietary ID"]; ok {
		return "Proprietary ID=" + toKeyString(v), timeoutVeryLong
	}
	return "", timeoutShort
}

func toKeyString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// record is one entry in the state map: the most recent decoded line for a
// (pgn, src, secondary key) triple, and when it expires.
type record struct {
	line      string
	expiresAt time.Time
}

// recordKey identifies a state-map slot.
type recordKey struct {
	pgn         int
	src         int
	secondary   string
}

// StateMap is the in-memory map of most-recent decoded messages, keyed by
// (pgn, src, secondary_key?) with per-entry expiry (spec §4.G "State map").
// It is mutated only by the server's single dispatch goroutine, matching
// spec §5's "n2kd's client list and state map are mutated only in the main
// loop."
type StateMap struct {
	entries map[recordKey]record
}

// NewStateMap returns an empty StateMap.
func NewStateMap() *StateMap {
	return &StateMap{entries: make(map[recordKey]record)}
}

// Store parses line as a decoded-message JSON object and updates the state
// map, per spec §4.G step 2(a) "storeMessage()". Lines that do not parse as
// the expected JSON shape are ignored rather than treated as fatal, since
// stdin is shared with out-of-band text n2kd does not need to understand.
func (s *StateMap) Store(line string, now time.Time) {
	var msg struct {
		PGN    int                    `json:"pgn"`
		Src    int                    `json:"src"`
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return
	}

	secondary, timeout := secondaryKeyTimeout(msg.PGN, msg.Fields)
	key := recordKey{pgn: msg.PGN, src: msg.Src, secondary: secondary}
	s.entries[key] = record{line: line, expiresAt: now.Add(timeout)}
}

// Dump returns every unexpired entry's stored line, for an on-demand JSON
// client's single full-state reply (spec §4.G step 4).
func (s *StateMap) Dump(now time.Time) []string {
	out := make([]string, 0, len(s.entries))
	for k, r := range s.entries {
		if now.After(r.expiresAt) {
			delete(s.entries, k)
			continue
		}
		out = append(out, r.line)
	}
	return out
}

// Len reports the number of live entries, expiring none (used by metrics).
func (s *StateMap) Len() int { return len(s.entries) }
