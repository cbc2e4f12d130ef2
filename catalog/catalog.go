package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed data/pgns.json
var catalogFS embed.FS

// Catalog is a loaded, indexed PGN table (spec §4.B). The zero value is not
// usable; construct one with Load.
type Catalog struct {
	byPGN map[uint32][]Info
}

// Load parses the embedded PGN table and validates it (spec §9: "validate
// that every PGN entry's field list is internally consistent"). It panics on
// a malformed embedded catalog, since that can only happen if the binary
// itself was built wrong.
func Load() *Catalog {
	c, err := loadFromBytes(mustReadEmbedded())
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded data/pgns.json is invalid: %v", err))
	}
	return c
}

func mustReadEmbedded() []byte {
	b, err := catalogFS.ReadFile("data/pgns.json")
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded data/pgns.json missing: %v", err))
	}
	return b
}

func loadFromBytes(raw []byte) (*Catalog, error) {
	var entries []Info
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c := &Catalog{byPGN: make(map[uint32][]Info, len(entries))}
	for i, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("entry %d (pgn %d, id %q): %w", i, e.PGN, e.ID, err)
		}
		c.byPGN[e.PGN] = append(c.byPGN[e.PGN], e)
	}
	return c, nil
}

// validateEntry checks the internal-consistency rules spec §9 calls for: no
// zero-length fields in a Complete entry (a fallback/incomplete entry is
// allowed a trailing open-ended Data field), and repeating-group bounds that
// stay within the field list.
func validateEntry(e Info) error {
	for _, f := range e.Fields {
		if err := Validate(f.Kind); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if e.Complete && f.BitLength == 0 && !f.Proprietary {
			return fmt.Errorf("field %q has zero bit length in a complete entry", f.Name)
		}
	}
	if e.RepeatingStart1 > 0 && e.RepeatingField1 >= len(e.Fields) {
		return fmt.Errorf("repeatingField1 index %d out of range", e.RepeatingField1)
	}
	if e.RepeatingStart2 > 0 && e.RepeatingField2 >= len(e.Fields) {
		return fmt.Errorf("repeatingField2 index %d out of range", e.RepeatingField2)
	}
	return nil
}

// Lookup finds the catalog entry matching pgn and payload, per spec §4.B's
// lookup procedure: find the first entry whose PGN matches and whose
// fixed-value match fields all equal the corresponding extracted integers
// from data; if none match, fall back to a fallback=true entry registered
// under that PGN, or else, for a PGN in one of the manufacturer-proprietary
// ranges 65280-65535, 126720-126975 or 130816-131071, to that range's
// catch-all entry, whatever its packet type. It reports false if
// nothing in the catalog, including any fallback, covers pgn.
func (c *Catalog) Lookup(pgn uint32, data []byte) (Info, bool) {
	candidates := c.byPGN[pgn]
	var fallback *Info
	for i := range candidates {
		e := &candidates[i]
		if e.Fallback {
			fallback = e
			continue
		}
		if matchFieldsSatisfied(*e, data) {
			return *e, true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	if generic, ok := c.genericFallback(pgn); ok {
		return generic, true
	}
	return Info{}, false
}

// genericFallback returns the catch-all entry for pgn's manufacturer-
// proprietary range (spec §4.B), independent of any entries already
// registered under that exact PGN.
func (c *Catalog) genericFallback(pgn uint32) (Info, bool) {
	var rangePGN uint32
	switch {
	case pgn >= 65280 && pgn <= 65535:
		rangePGN = 65280
	case pgn >= 126720 && pgn <= 126975:
		rangePGN = 126720
	case pgn >= 130816 && pgn <= 131071:
		rangePGN = 130816
	default:
		return Info{}, false
	}
	for _, e := range c.byPGN[rangePGN] {
		if e.Fallback {
			return e, true
		}
	}
	return Info{}, false
}

func matchFieldsSatisfied(e Info, data []byte) bool {
	for _, f := range e.Fields {
		if !f.IsMatchField() {
			continue
		}
		v, ok := extractRawForMatch(f, data)
		if !ok || v != *f.Match {
			return false
		}
	}
	return true
}

// extractRawForMatch pulls the raw unsigned field value for match-field
// comparison, without the sentinel/sign handling the full decoder applies
// (match fields are always small fixed discriminators).
func extractRawForMatch(f Field, data []byte) (int64, bool) {
	totalBits := len(data) * 8
	if f.BitOffset+f.BitLength > totalBits {
		return 0, false
	}
	var v uint64
	for i := 0; i < f.BitLength; i++ {
		bitPos := f.BitOffset + i
		byteIdx := bitPos / 8
		bitIdx := uint(bitPos % 8)
		if data[byteIdx]&(1<<bitIdx) != 0 {
			v |= 1 << uint(i)
		}
	}
	return int64(v), true
}

// All returns every catalog entry across all PGNs, for introspection
// commands such as "-list"/"-explain-pgn".
func (c *Catalog) All() []Info {
	var out []Info
	for _, entries := range c.byPGN {
		out = append(out, entries...)
	}
	return out
}
