package catalog

// PGNType distinguishes how a PGN's payload arrives on the wire (spec §3
// "Pgn" data model).
type PGNType string

// All PGN transport types.
const (
	TypeSingle PGNType = "SINGLE"
	TypeFast   PGNType = "FAST"
	TypeISOTP  PGNType = "ISO_TP"
	TypeMixed  PGNType = "MIXED"
)

// Field is one logical value inside a PGN payload (spec §3 "Field").
type Field struct {
	Name       string    `json:"name"`
	BitOffset  int       `json:"bitOffset"`
	BitLength  int       `json:"bitLength"`
	Resolution float64   `json:"resolution"` // <= 0 is a sentinel handled via Kind, not magnitude
	Unit       string    `json:"unit,omitempty"`
	HasSign    bool      `json:"hasSign,omitempty"`
	Offset     int64     `json:"offset,omitempty"` // excess-K / J1939 bias
	Kind       FieldKind `json:"kind"`
	LookupName string    `json:"lookup,omitempty"`
	// Match is non-empty when this field is a fixed-value discriminator
	// ("unit=\"=K\"" in spec §4.B) used to disambiguate PGN entries that
	// share a PGN number.
	Match *int64 `json:"match,omitempty"`
	// Proprietary marks fields only meaningful in the 65280-65535,
	// 126720-126975, 130816-131071 manufacturer ranges.
	Proprietary bool `json:"proprietary,omitempty"`
}

// IsMatchField reports whether this field discriminates between multiple
// catalog entries sharing the same PGN number.
func (f Field) IsMatchField() bool { return f.Match != nil }

// Info is one entry in the PGN catalog (spec §3 "Pgn").
type Info struct {
	PGN         uint32  `json:"pgn"`
	ID          string  `json:"id"` // camelCase identifier, e.g. "rateOfTurn"
	Description string  `json:"description"`
	Type        PGNType `json:"type"`
	Complete    bool    `json:"complete"`
	Fallback    bool    `json:"fallback,omitempty"`
	Fields      []Field `json:"fields"`

	// RepeatingStart1/Count1/Field1 (and the optional "2" variants)
	// describe up to two trailing repeating groups whose repetition
	// count is carried in an earlier field (spec §3 "Pgn" invariant).
	RepeatingStart1 int `json:"repeatingStart1,omitempty"`
	RepeatingCount1 int `json:"repeatingCount1,omitempty"`
	RepeatingField1 int `json:"repeatingField1,omitempty"` // index into Fields of the "# of.../Length" count field

	RepeatingStart2 int `json:"repeatingStart2,omitempty"`
	RepeatingCount2 int `json:"repeatingCount2,omitempty"`
	RepeatingField2 int `json:"repeatingField2,omitempty"`
}

// HasRepeatingFields reports whether this entry has any repeating group.
func (i Info) HasRepeatingFields() bool { return i.RepeatingStart1 > 0 }

// FieldByName finds a field definition by name within this PGN (used by
// PGN 126208's field-by-reference VARIABLE mechanism).
func (i Info) FieldByName(name string) (Field, bool) {
	for _, f := range i.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
