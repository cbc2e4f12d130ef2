package decode

import "github.com/kkroon/gonmea2k/catalog"

// GeoFormat selects how LATITUDE/LONGITUDE fields are rendered in text mode
// (spec §4.F "Geographic rendering modes").
type GeoFormat int

const (
	GeoFormatDD GeoFormat = iota // decimal degrees, e.g. 52.370216
	GeoFormatDM                  // degrees + decimal minutes
	GeoFormatDMS                 // degrees, minutes, seconds
)

// Context carries the options that affect how a decoded PGN is rendered,
// passed explicitly through the decode/render API rather than held in
// package-level state (spec §9: avoid module-global mutable state for
// anything that varies per run or per request).
type Context struct {
	Geo GeoFormat
	// ShowLookupIDs renders LOOKUP/BITLOOKUP fields as their raw numeric
	// value instead of resolving a name (the "-nv" CLI mode).
	ShowLookupIDs bool
	// ShowJSONEmpty includes fields that failed to decode (sentinel or
	// short data) as JSON nulls instead of omitting them.
	ShowJSONEmpty bool
	// Catalog resolves the VARIABLE field-by-reference mechanism (spec
	// §4.C "Variable", §9 "Cyclic / variable fields (PGN 126208)"): a
	// VARIABLE field's own definition is looked up at runtime from the
	// catalog entry for a PGN named earlier in the same message. Set by
	// Decoder.Decode/DecodeText; nil when Fields is used standalone,
	// which simply leaves VARIABLE fields undecoded.
	Catalog *catalog.Catalog
}

// DefaultContext is the rendering context used when a caller has no
// specific CLI flags to apply.
var DefaultContext = Context{Geo: GeoFormatDD}
