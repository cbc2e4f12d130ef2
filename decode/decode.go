package decode

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/kkroon/gonmea2k/catalog"
)

// Value is one decoded field's rendered result. Raw holds the decoded value,
// whose Go type depends on Kind; Text always holds the human-readable
// rendering regardless of Kind, for the text output format.
type Value struct {
	Name  string
	Kind  catalog.FieldKind
	Text  string
	Raw   any // int64, float64, string, time.Time, time.Duration or []string

	// RepGroup is 0 for a field outside any repeating group, else 1 or 2,
	// selecting which of the PGN's two repeating groups (spec §4.F
	// "list"/"list2") this value belongs to. RepIndex is its 1-based
	// repetition number and BaseName its field name with no "_N" suffix;
	// both are only meaningful when RepGroup != 0. Name always carries the
	// "<field>_<n>" form the text format renders directly (spec §4.F).
	RepGroup int
	RepIndex int
	BaseName string
}

// Fields decodes every non-reserved field of info out of data (spec §4.B
// "Decoding a PGN"), including up to two repeating groups. Reserved/spare
// fields are neither decoded nor returned, per spec §4.F "reserved fields
// are always omitted from output"; match-discriminator fields are returned
// like any other field.
func Fields(info catalog.Info, data []byte, ctx Context) ([]Value, error) {
	var out []Value

	limit := len(info.Fields)
	if info.HasRepeatingFields() {
		limit = info.RepeatingStart1
	}
	for i := 0; i < limit; i++ {
		f := info.Fields[i]
		v, ok, err := decodeField(f, data, ctx)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		if ok {
			out = append(out, v)
			continue
		}
		// Reserved/spare fields are always omitted (spec §4.F); every other
		// field that failed to decode (sentinel, short data) is included as
		// an explicit null only under -empty (spec §4.F "-empty").
		if ctx.ShowJSONEmpty && f.Kind != catalog.KindReserved && f.Kind != catalog.KindSpare {
			out = append(out, Value{Name: f.Name, Kind: f.Kind, Raw: nil, Text: ""})
		}
	}

	if info.HasRepeatingFields() {
		referencedPGN := referencedPGNFromValues(out)

		reps, err := decodeRepeatingGroup(info, data, ctx, 1, info.RepeatingStart1, info.RepeatingCount1, info.RepeatingField1, referencedPGN)
		if err != nil {
			return nil, err
		}
		out = append(out, reps...)

		if info.RepeatingStart2 > 0 {
			reps2, err := decodeRepeatingGroup(info, data, ctx, 2, info.RepeatingStart2, info.RepeatingCount2, info.RepeatingField2, referencedPGN)
			if err != nil {
				return nil, err
			}
			out = append(out, reps2...)
		}
	}

	return out, nil
}

// referencedPGNFromValues finds the already-decoded "PGN" field (spec §4.C
// "Variable" names the referenced PGN as a field earlier in the same
// message), the per-message scratch slot §9 asks for.
func referencedPGNFromValues(values []Value) uint32 {
	for _, v := range values {
		if v.Name != "PGN" {
			continue
		}
		if n, ok := v.Raw.(int64); ok {
			return uint32(n)
		}
	}
	return 0
}

// decodeRepeatingGroup decodes the repeating field(s) starting at field
// index start, whose repetition count lives in the already-decoded field at
// countFieldIndex. Each instance's fields are suffixed "_N" in Name (spec
// §4.F "text format renders repetitions as '<name>_<n>'") and tagged with
// group/rep/base-name (group, 1 or 2) so Decoder.Decode can additionally
// nest them into the JSON "list"/"list2" arrays spec §4.F describes.
func decodeRepeatingGroup(info catalog.Info, data []byte, ctx Context, group, start, fieldsPerRep, countFieldIndex int, referencedPGN uint32) ([]Value, error) {
	if countFieldIndex < 0 || countFieldIndex >= len(info.Fields) {
		return nil, fmt.Errorf("repeating group count field index %d out of range", countFieldIndex)
	}
	countField := info.Fields[countFieldIndex]
	count, maxValue, ok := ExtractNumber(countField, data)
	if !ok || count <= 0 || count > maxValue {
		return nil, nil
	}

	repBits := fieldsPerRepBits(info, start, fieldsPerRep)
	// bitCursor tracks where the next VARIABLE field starts; unlike the
	// other repeating fields (fixed width, so offset by rep*repBits),
	// a VARIABLE field's width depends on the field it references and so
	// must accumulate across repetitions instead (spec §9 "last length").
	bitCursor := -1

	var out []Value
	for rep := int64(0); rep < count; rep++ {
		for j := 0; j < fieldsPerRep && start+j < len(info.Fields); j++ {
			f := info.Fields[start+j]

			if f.Kind == catalog.KindVariable {
				if bitCursor < 0 {
					bitCursor = f.BitOffset
				}
				v, width, ok, err := decodeVariableField(ctx, referencedPGN, int(rep)+1, data, bitCursor)
				if err != nil {
					return nil, fmt.Errorf("field %q rep %d: %w", f.Name, rep, err)
				}
				bitCursor += width
				if ok {
					out = append(out, tagRepeating(v, f.Name, group, int(rep)+1))
				}
				continue
			}

			f.BitOffset += int(rep) * repBits
			v, ok, err := decodeField(f, data, ctx)
			if err != nil {
				return nil, fmt.Errorf("field %q rep %d: %w", f.Name, rep, err)
			}
			if ok {
				out = append(out, tagRepeating(v, f.Name, group, int(rep)+1))
			}
		}
	}
	return out, nil
}

func tagRepeating(v Value, baseName string, group, rep int) Value {
	v.BaseName = baseName
	v.RepGroup = group
	v.RepIndex = rep
	v.Name = fmt.Sprintf("%s_%d", baseName, rep)
	return v
}

// decodeVariableField resolves and decodes a VARIABLE field (spec §4.C
// "Variable"): paramNumber (1-based) selects field #paramNumber of the
// catalog entry for referencedPGN, and that field's own Kind/Resolution/
// BitLength decide how the bits at bitOffset are interpreted. Returns the
// referenced field's bit width so the caller can advance its cursor, even
// when the field could not be resolved or decoded.
func decodeVariableField(ctx Context, referencedPGN uint32, paramNumber int, data []byte, bitOffset int) (Value, int, bool, error) {
	ref, ok := referencedField(ctx.Catalog, referencedPGN, paramNumber)
	if !ok {
		return Value{}, 8, false, nil
	}
	ref.BitOffset = bitOffset
	v, ok, err := decodeField(ref, data, ctx)
	width := ref.BitLength
	if width == 0 {
		width = 8
	}
	return v, width, ok, err
}

// referencedField looks up field #paramNumber (1-based) of referencedPGN's
// catalog entry, the runtime field-by-reference lookup spec §4.C/§9
// describe for VARIABLE fields.
func referencedField(cat *catalog.Catalog, referencedPGN uint32, paramNumber int) (catalog.Field, bool) {
	if cat == nil || referencedPGN == 0 || paramNumber < 1 {
		return catalog.Field{}, false
	}
	info, ok := cat.Lookup(referencedPGN, nil)
	if !ok || paramNumber > len(info.Fields) {
		return catalog.Field{}, false
	}
	return info.Fields[paramNumber-1], true
}

func fieldsPerRepBits(info catalog.Info, start, count int) int {
	bits := 0
	for i := start; i < start+count && i < len(info.Fields); i++ {
		bits += info.Fields[i].BitLength
	}
	return bits
}

func decodeField(f catalog.Field, data []byte, ctx Context) (Value, bool, error) {
	switch f.Kind {
	case catalog.KindReserved, catalog.KindSpare:
		return Value{}, false, nil

	case catalog.KindNumber, catalog.KindMMSI, catalog.KindDecimal:
		return decodeNumber(f, data, ctx)

	case catalog.KindLookup:
		return decodeLookup(f, data, ctx)

	case catalog.KindBitLookup:
		return decodeBitLookup(f, data, ctx)

	case catalog.KindLatitude:
		return decodeLatLon(f, data, ctx, true)

	case catalog.KindLongitude:
		return decodeLatLon(f, data, ctx, false)

	case catalog.KindDate:
		return decodeDate(f, data)

	case catalog.KindTime:
		return decodeTime(f, data)

	case catalog.KindStringFix:
		return decodeString(f, data)

	case catalog.KindStringLZ:
		return decodeStringLZ(f, data)

	case catalog.KindStringLAU:
		return decodeStringLAU(f, data)

	case catalog.KindStringAuto:
		return decodeStringStartStop(f, data)

	case catalog.KindBinary:
		return decodeBinary(f, data)

	case catalog.KindVariable:
		// Reached directly only when a VARIABLE field sits outside a
		// repeating group, which no catalog entry currently does; the
		// field-by-reference path (spec §4.C/§9) runs from
		// decodeRepeatingGroup/decodeVariableField instead, since only
		// there is the repetition number (the referenced field#) known.
		return decodeNumber(f, data, ctx)

	case catalog.KindASCII6Bit:
		return decodeNumber(f, data, ctx)

	default:
		return Value{}, false, fmt.Errorf("unhandled field kind %q", f.Kind)
	}
}

func decodeNumber(f catalog.Field, data []byte, _ Context) (Value, bool, error) {
	raw, present := ExtractNumberNotEmpty(f, data)
	if !present {
		return Value{}, false, nil
	}

	resolution := f.Resolution
	if resolution == 0 {
		resolution = 1
	}

	if resolution == 1 {
		return Value{Name: f.Name, Kind: f.Kind, Raw: raw, Text: fmt.Sprintf("%d", raw)}, true, nil
	}
	scaled := float64(raw) * resolution
	return Value{Name: f.Name, Kind: f.Kind, Raw: scaled, Text: fmt.Sprintf("%g", scaled)}, true, nil
}

func decodeLookup(f catalog.Field, data []byte, ctx Context) (Value, bool, error) {
	raw, present := ExtractNumberNotEmpty(f, data)
	if !present {
		return Value{}, false, nil
	}
	if ctx.ShowLookupIDs {
		return Value{Name: f.Name, Kind: f.Kind, Raw: raw, Text: fmt.Sprintf("%d", raw)}, true, nil
	}
	name := catalog.LookupName(f.LookupName, raw)
	return Value{Name: f.Name, Kind: f.Kind, Raw: name, Text: name}, true, nil
}

func decodeBitLookup(f catalog.Field, data []byte, ctx Context) (Value, bool, error) {
	raw, present := ExtractNumberNotEmpty(f, data)
	if !present {
		return Value{}, false, nil
	}
	if ctx.ShowLookupIDs {
		return Value{Name: f.Name, Kind: f.Kind, Raw: raw, Text: fmt.Sprintf("0x%x", raw)}, true, nil
	}
	names := catalog.BitLookupNames(f.LookupName, uint64(raw))
	return Value{Name: f.Name, Kind: f.Kind, Raw: names, Text: strings.Join(names, ",")}, true, nil
}

func decodeLatLon(f catalog.Field, data []byte, ctx Context, isLat bool) (Value, bool, error) {
	raw, present := ExtractNumberNotEmpty(f, data)
	if !present {
		return Value{}, false, nil
	}
	dd := float64(raw) * f.Resolution

	var text string
	switch ctx.Geo {
	case GeoFormatDM:
		text = formatDM(dd, isLat)
	case GeoFormatDMS:
		text = formatDMS(dd, isLat)
	default:
		text = fmt.Sprintf("%.7f", dd)
	}
	return Value{Name: f.Name, Kind: f.Kind, Raw: dd, Text: text}, true, nil
}

func formatDM(dd float64, isLat bool) string {
	hemi, deg, minutes := splitDegrees(dd, isLat)
	return fmt.Sprintf("%d°%.4f'%s", deg, minutes, hemi)
}

func formatDMS(dd float64, isLat bool) string {
	hemi, deg, minutesFloat := splitDegrees(dd, isLat)
	minutes := int(minutesFloat)
	seconds := (minutesFloat - float64(minutes)) * 60
	return fmt.Sprintf("%d°%d'%.2f\"%s", deg, minutes, seconds, hemi)
}

func splitDegrees(dd float64, isLat bool) (hemisphere string, degrees int, minutes float64) {
	value := dd
	if value < 0 {
		value = -value
	}
	degrees = int(value)
	minutes = (value - float64(degrees)) * 60

	switch {
	case isLat && dd >= 0:
		hemisphere = "N"
	case isLat:
		hemisphere = "S"
	case !isLat && dd >= 0:
		hemisphere = "E"
	default:
		hemisphere = "W"
	}
	return hemisphere, degrees, minutes
}

// epoch1970 anchors DATE fields, which count whole days since 1970-01-01
// UTC (spec §4.C "DATE").
var epoch1970 = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func decodeDate(f catalog.Field, data []byte) (Value, bool, error) {
	raw, maxValue, ok := ExtractNumber(f, data)
	if !ok || raw < 0 || raw >= maxValue-1 {
		return Value{}, false, nil
	}
	t := epoch1970.AddDate(0, 0, int(raw))
	return Value{Name: f.Name, Kind: f.Kind, Raw: t, Text: t.Format("2006-01-02")}, true, nil
}

// decodeTime decodes a TIME field (spec §4.C "TIME") expressed in units of
// f.Resolution seconds since midnight, into a clock-of-day duration.
func decodeTime(f catalog.Field, data []byte) (Value, bool, error) {
	raw, present := ExtractNumberNotEmpty(f, data)
	if !present {
		return Value{}, false, nil
	}

	negative := raw < 0
	if negative {
		raw = -raw
	}

	resolution := f.Resolution
	if resolution == 0 {
		resolution = 1
	}
	seconds := float64(raw) * resolution
	dur := time.Duration(seconds * float64(time.Second))
	if negative {
		dur = -dur
	}

	h := int(dur / time.Hour)
	m := int((dur % time.Hour) / time.Minute)
	s := float64(dur%time.Minute) / float64(time.Second)
	text := fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
	return Value{Name: f.Name, Kind: f.Kind, Raw: dur, Text: text}, true, nil
}

// decodeString handles STRING_FIX by taking the field's declared byte span
// and trimming trailing fill bytes (0xff, NUL, '@', or whitespace), matching
// the upstream analyzer's convertString/convertFieldStringFix.
func decodeString(f catalog.Field, data []byte) (Value, bool, error) {
	byteOffset := f.BitOffset / 8
	byteLen := f.BitLength / 8
	if byteOffset+byteLen > len(data) {
		byteLen = len(data) - byteOffset
	}
	return stringValue(f, data, byteOffset, byteLen)
}

// decodeStringLZ handles STRING_LZ (spec §4.C): a self-describing byte at
// the field's offset gives the content length, followed immediately by that
// many bytes, matching the upstream analyzer's convertFieldStringLZ.
func decodeStringLZ(f catalog.Field, data []byte) (Value, bool, error) {
	byteOffset := f.BitOffset / 8
	if byteOffset >= len(data) {
		return Value{}, false, nil
	}
	remaining := len(data) - byteOffset - 1
	specifiedLen := int(data[byteOffset])
	if specifiedLen > remaining {
		specifiedLen = remaining
	}
	return stringValue(f, data, byteOffset+1, specifiedLen)
}

// decodeStringLAU handles STRING_LAU (spec §4.C): a length byte and a
// control byte precede the content; control 0 means UTF-16LE, control 1
// means the bytes are already the target encoding, matching the upstream
// analyzer's convertFieldStringLAU.
func decodeStringLAU(f catalog.Field, data []byte) (Value, bool, error) {
	byteOffset := f.BitOffset / 8
	if byteOffset+2 > len(data) {
		return Value{}, false, nil
	}
	specifiedLen := int(data[byteOffset])
	control := int(data[byteOffset+1])
	if specifiedLen < 2 {
		return Value{}, false, nil
	}
	remaining := len(data) - byteOffset
	if specifiedLen > remaining {
		specifiedLen = remaining
	}
	contentLen := specifiedLen - 2
	contentStart := byteOffset + 2
	if contentStart+contentLen > len(data) {
		contentLen = len(data) - contentStart
	}
	if contentLen < 0 {
		return Value{}, false, nil
	}
	raw := data[contentStart : contentStart+contentLen]

	switch control {
	case 0:
		if len(raw)%2 != 0 {
			raw = raw[:len(raw)-1]
		}
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		}
		decoded := []byte(string(utf16.Decode(units)))
		return stringFromBytes(f, decoded)
	case 1:
		return stringFromBytes(f, raw)
	default:
		return Value{}, false, nil
	}
}

// decodeStringStartStop handles STRING_START_STOP (spec §4.C
// "String-start/stop"): either a 0x02-delimited run terminated by 0x01, or a
// declared length (>=3 bytes) optionally followed by a 0x01 control byte.
func decodeStringStartStop(f catalog.Field, data []byte) (Value, bool, error) {
	byteOffset := f.BitOffset / 8
	if byteOffset >= len(data) {
		return Value{}, false, nil
	}
	rest := data[byteOffset:]

	if rest[0] == 0x02 {
		end := 1
		for end < len(rest) && rest[end] != 0x01 {
			end++
		}
		return stringFromBytes(f, rest[1:end])
	}

	declaredLen := int(rest[0])
	if declaredLen < 3 {
		return Value{}, false, nil
	}
	if declaredLen > len(rest) {
		declaredLen = len(rest)
	}
	content := rest[1:declaredLen]
	if len(content) > 0 && content[0] == 0x01 {
		content = content[1:]
	}
	return stringFromBytes(f, content)
}

// stringValue slices byteLen bytes at byteOffset out of data and trims
// trailing fill bytes, matching the upstream analyzer's convertString.
func stringValue(f catalog.Field, data []byte, byteOffset, byteLen int) (Value, bool, error) {
	if byteLen <= 0 || byteOffset < 0 || byteOffset+byteLen > len(data) {
		return Value{}, false, nil
	}
	return stringFromBytes(f, data[byteOffset:byteOffset+byteLen])
}

func stringFromBytes(f catalog.Field, raw []byte) (Value, bool, error) {
	end := len(raw)
	for end > 0 {
		b := raw[end-1]
		if b == 0xff || b == 0 || b == '@' || b == ' ' {
			end--
			continue
		}
		break
	}
	if end == 0 {
		return Value{}, false, nil
	}
	s := string(raw[:end])
	return Value{Name: f.Name, Kind: f.Kind, Raw: s, Text: s}, true, nil
}

func decodeBinary(f catalog.Field, data []byte) (Value, bool, error) {
	byteOffset := f.BitOffset / 8
	byteLen := f.BitLength / 8
	if byteLen == 0 {
		byteLen = len(data) - byteOffset
	}
	if byteOffset >= len(data) || byteOffset+byteLen > len(data) {
		return Value{}, false, nil
	}
	raw := data[byteOffset : byteOffset+byteLen]
	text := fmt.Sprintf("%x", raw)
	return Value{Name: f.Name, Kind: f.Kind, Raw: append([]byte(nil), raw...), Text: text}, true, nil
}
