// Package catalog holds the static PGN table (spec §4.B): field-type
// definitions, the PGN/field data itself, and the lookup procedure that
// matches a raw PGN+payload to a catalog entry.
package catalog

// Field-type hierarchy originally modeled on
// https://github.com/canboat/canboat (Apache License, Version 2.0)
// (C) 2009-2023, Kees Verruijt, Harlingen, The Netherlands.

import "fmt"

// FieldKind tags which specialised decoder a Field uses, replacing the
// upstream convention of a negative/zero Resolution as a sentinel (spec §9:
// "Use tagged variants for field-type rather than a resolution sentinel").
type FieldKind string

// All field kinds referenced by spec §4.C "Specialised types".
const (
	KindNumber     FieldKind = "NUMBER" // scaled integer, resolution > 0
	KindLookup     FieldKind = "LOOKUP"
	KindBitLookup  FieldKind = "BITLOOKUP"
	KindLatitude   FieldKind = "LATITUDE"
	KindLongitude  FieldKind = "LONGITUDE"
	KindDate       FieldKind = "DATE"
	KindTime       FieldKind = "TIME"
	KindStringFix  FieldKind = "STRING_FIX"
	KindStringLZ   FieldKind = "STRING_LZ"
	KindStringLAU  FieldKind = "STRING_LAU"
	KindStringAuto FieldKind = "STRING_START_STOP" // "string-start/stop" in spec §4.C
	KindBinary     FieldKind = "BINARY"
	KindReserved   FieldKind = "RESERVED"
	KindSpare      FieldKind = "SPARE"
	KindMMSI       FieldKind = "MMSI"
	KindDecimal    FieldKind = "DECIMAL"
	KindVariable   FieldKind = "VARIABLE" // field-by-reference, PGN 126208
	KindASCII6Bit  FieldKind = "6BITASCII"
)

// FieldType describes the shared behaviour of a class of fields (unit,
// resolution, sign, size) the way upstream canboat's FieldType/base-type
// inheritance chain works, flattened here into one struct per kind instead
// of a runtime inheritance graph — catalog entries select a Kind directly
// rather than walking a BaseFieldType chain, since this module's catalog is
// authored once (not generated from the upstream PGN XML at build time) and
// has no need to re-derive defaults field by field.
type FieldType struct {
	Kind        FieldKind
	Description string
	Unit        string
}

// FieldTypes indexes the well-known field kinds for introspection (e.g. the
// "-explain" CLI mode).
var FieldTypes = map[FieldKind]FieldType{
	KindNumber:     {KindNumber, "Binary numeric value, scaled by Resolution", ""},
	KindLookup:     {KindLookup, "Enumeration value", ""},
	KindBitLookup:  {KindBitLookup, "Bitmask enumeration value", ""},
	KindLatitude:   {KindLatitude, "Latitude", "deg"},
	KindLongitude:  {KindLongitude, "Longitude", "deg"},
	KindDate:       {KindDate, "Days since 1970-01-01", "days"},
	KindTime:       {KindTime, "Seconds since midnight, 0.0001s units", "s"},
	KindStringFix:  {KindStringFix, "Fixed-length string, trimmed of fill bytes", ""},
	KindStringLZ:   {KindStringLZ, "Length-prefixed, NUL-terminated string", ""},
	KindStringLAU:  {KindStringLAU, "Length+encoding-prefixed string", ""},
	KindStringAuto: {KindStringAuto, "Start/stop delimited string", ""},
	KindBinary:     {KindBinary, "Opaque binary data", ""},
	KindReserved:   {KindReserved, "Reserved bits, always omitted from output", ""},
	KindSpare:      {KindSpare, "Spare (unused) bits", ""},
	KindMMSI:       {KindMMSI, "Maritime Mobile Service Identity", ""},
	KindDecimal:    {KindDecimal, "Binary-coded decimal", ""},
	KindVariable:   {KindVariable, "Field whose type is determined at runtime by an earlier field", ""},
	KindASCII6Bit:  {KindASCII6Bit, "6-bit packed ASCII (ITU-R M.1371)", ""},
}

func (k FieldKind) String() string { return string(k) }

// Validate reports whether kind is a known FieldKind.
func Validate(kind FieldKind) error {
	if _, ok := FieldTypes[kind]; !ok {
		return fmt.Errorf("unknown field kind %q", kind)
	}
	return nil
}
