// Package ikonvert implements the Digital Yacht iKonvert gateway dialect:
// ASCII status lines, Base64-framed binary PGNs, the scripted
// initialization dialog, and roll-around timestamp rebasing (spec §4.A',
// §6).
package ikonvert

import (
	"fmt"
	"strings"
	"time"

	"github.com/kkroon/gonmea2k/common"
)

// reinitThreshold is the number of consecutive status-only lines (no PGN
// data) that triggers re-running the initialization dialog, on the
// assumption the device has silently reset (spec §4.A' "If ≥10 consecutive
// status-only messages...").
const reinitThreshold = 10

// LineKind classifies one line received from the device.
type LineKind int

const (
	LineKindUnknown LineKind = iota
	LineKindStatus           // "$PDGY,..." ASCII banner/ack/text
	LineKindPGN               // "!PDGY,..." binary PGN payload
)

// Device tracks the per-connection state needed to interpret a live
// iKonvert stream: the roll-around timestamp anchor and the consecutive
// status-only counter that triggers re-initialization.
type Device struct {
	haveAnchor      bool
	anchor          time.Time
	lastRelative    time.Duration
	statusOnlyCount int
}

// NewDevice returns a Device ready to process a freshly (re-)initialized
// connection.
func NewDevice() *Device { return &Device{} }

// ClassifyLine reports which iKonvert line dialect msg is, per spec §4.A'
// ("$PDGY," for ASCII, "!PDGY," for binary).
func ClassifyLine(msg string) LineKind {
	switch {
	case strings.HasPrefix(msg, "$PDGY,"):
		return LineKindStatus
	case strings.HasPrefix(msg, "!PDGY,"):
		return LineKindPGN
	default:
		return LineKindUnknown
	}
}

// Feed processes one received line. For a binary PGN line it returns the
// decoded RawMessage with an absolute, roll-around-corrected timestamp. For
// a status line it returns a nil message and a nil error, and tracks the
// consecutive status-only count. needsReinit reports whether the caller should re-run
// Init() because the device appears to have silently reset.
func (d *Device) Feed(msg string) (rm *common.RawMessage, needsReinit bool, err error) {
	switch ClassifyLine(msg) {
	case LineKindPGN:
		d.statusOnlyCount = 0
		rm, err = d.parsePGNLine(msg)
		return rm, false, err

	case LineKindStatus:
		d.statusOnlyCount++
		return nil, d.statusOnlyCount >= reinitThreshold, nil

	default:
		return nil, false, fmt.Errorf("ikonvert: unrecognised line %q", msg)
	}
}

// navLink2Parser is the shared "!PDGY,..." line grammar (spec §4.A'),
// already implemented once for file-replay use in the common package; the
// live-device path reuses it rather than duplicating the Base64/hex
// decoding.
var navLink2Parser = common.FindParserByName("NAVLINK2")

// parsePGNLine decodes "!PDGY,<pgn>,<prio>,<src>,<dst>,<t_sec>.<t_ms>,<base64>"
// and rebases its relative device timestamp to an absolute one.
func (d *Device) parsePGNLine(msg string) (*common.RawMessage, error) {
	var rm common.RawMessage
	if err := navLink2Parser.Parse(msg, &rm); err != nil {
		return nil, err
	}
	rm.Timestamp = d.rebase(relativeOf(&rm))
	return &rm, nil
}

// relativeOf extracts the device-relative duration the parser stashed into
// RawMessage.Timestamp as a zero-based time.Time (see navLink2LikeParser).
func relativeOf(rm *common.RawMessage) time.Duration {
	return rm.Timestamp.Sub(time.Time{})
}

// rebase implements spec §4.A''s roll-around handling and §8 scenario 6:
// the device's relative clock is monotonic except when it wraps back to
// near zero, in which case the anchor advances by the wrapped delta
// instead of jumping backwards.
func (d *Device) rebase(relative time.Duration) time.Time {
	if !d.haveAnchor {
		d.anchor = time.Now().UTC()
		d.lastRelative = relative
		d.haveAnchor = true
		return d.anchor
	}

	delta := relative - d.lastRelative
	if delta < 0 {
		// Roll-around: the device clock wrapped. Treat the step forward as
		// whatever small delta it actually advanced by, not the huge
		// negative jump implied by the raw subtraction.
		delta = relative
	}
	d.anchor = d.anchor.Add(delta)
	d.lastRelative = relative
	return d.anchor
}

// Reset clears the roll-around anchor and status counter, for use when
// Init() is about to be re-run.
func (d *Device) Reset() {
	*d = Device{}
}
