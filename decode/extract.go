// Package decode turns a raw PGN payload plus its catalog.Info into a
// decoded set of field values (spec §4.C "Field extraction", §4.B
// "Decoding a PGN").
package decode

import (
	"math"

	"github.com/kkroon/gonmea2k/catalog"
)

// sentinel classifies how many of a field's top raw values are reserved for
// "data unavailable"/"error" rather than a real measurement: a field whose
// maximum value is at least 15 reserves its top two raw values (error and
// unavailable); a narrower field (maxValue between 2 and 14) reserves just
// its top value; anything smaller reserves none.
type sentinel int

const (
	sentinelNone    sentinel = 0
	sentinelOneTop  sentinel = 1
	sentinelTwoTop  sentinel = 2
)

// extractRaw pulls an unsigned integer of bitLength bits starting at
// bitOffset (measured from the start of data, LSB-first within each byte —
// experimentally the only ordering that makes PGN 129026 decode correctly,
// per the upstream analyzer's own comment). It reports the value, the
// maximum value the field could hold, and whether enough data was present.
func extractRaw(data []byte, bitOffset, bitLength int) (value uint64, maxValue uint64, ok bool) {
	byteOffset := bitOffset >> 3
	startBit := bitOffset & 7
	if byteOffset >= len(data) {
		return 0, 0, false
	}
	data = data[byteOffset:]

	bitsRemaining := bitLength
	magnitude := 0
	firstBit := startBit

	for bitsRemaining > 0 && len(data) > 0 {
		bitsInThisByte := minInt(8-firstBit, bitsRemaining)
		allOnes := (uint64(1) << bitsInThisByte) - 1
		bitMask := allOnes << firstBit
		valueInThisByte := (uint64(data[0]) & bitMask) >> firstBit

		value |= valueInThisByte << magnitude
		maxValue |= allOnes << magnitude

		magnitude += bitsInThisByte
		bitsRemaining -= bitsInThisByte
		firstBit += bitsInThisByte
		if firstBit >= 8 {
			firstBit -= 8
			data = data[1:]
		}
	}
	if bitsRemaining > 0 {
		return 0, 0, false
	}
	return value, maxValue, true
}

// ExtractNumber decodes field's raw integer value out of data, applying
// sign extension (or J1939 excess-K offset when field.Offset is set) per
// spec §4.C. The returned ok is false when data is too short to hold the
// field.
func ExtractNumber(field catalog.Field, data []byte) (value int64, maxValue int64, ok bool) {
	raw, maxv, ok := extractRaw(data, field.BitOffset, field.BitLength)
	if !ok {
		return 0, 0, false
	}

	signedRaw := int64(raw)

	if field.HasSign {
		maxv >>= 1
		if field.Offset != 0 {
			signedRaw += field.Offset
			maxv += uint64(field.Offset)
		} else {
			negative := raw&(uint64(1)<<(field.BitLength-1)) != 0
			if negative {
				signedRaw = int64(raw) | ^int64(maxv)
			}
		}
	} else if field.Offset != 0 {
		signedRaw += field.Offset
		maxv += uint64(field.Offset)
	}

	if maxv == math.MaxUint64 {
		maxValue = math.MaxInt64
	} else {
		maxValue = int64(maxv)
	}
	return signedRaw, maxValue, true
}

// sentinelFor classifies how many of maxValue's top raw values are
// reserved (spec §4.C "Sentinel decoding").
func sentinelFor(maxValue int64) sentinel {
	switch {
	case maxValue >= 15:
		return sentinelTwoTop
	case maxValue > 1:
		return sentinelOneTop
	default:
		return sentinelNone
	}
}

// ExtractNumberNotEmpty decodes field like ExtractNumber, additionally
// reporting whether the raw value fell into the "error"/"data not
// available" sentinel range at the top of the field's range (spec §4.C).
// present is false either when data was too short, or the value was a
// sentinel — callers render both cases as an omitted field.
func ExtractNumberNotEmpty(field catalog.Field, data []byte) (value int64, present bool) {
	v, maxValue, ok := ExtractNumber(field, data)
	if !ok {
		return 0, false
	}
	reserved := int64(sentinelFor(maxValue))
	if v > maxValue-reserved {
		return v, false
	}
	return v, true
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
