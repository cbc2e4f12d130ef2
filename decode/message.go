package decode

import (
	"fmt"
	"sort"
	"time"

	"github.com/kkroon/gonmea2k/catalog"
	"github.com/kkroon/gonmea2k/clock"
	"github.com/kkroon/gonmea2k/common"
)

// systemTimePGN is the PGN 126992 "System Time" used by -clocksrc (spec §4.F).
const systemTimePGN = 126992

// Decoder resolves raw PGN payloads against a catalog and renders them into
// common.Message values (spec §4.B "Decoding a PGN" end to end).
type Decoder struct {
	Catalog *catalog.Catalog

	// ClockSrc, when non-nil, names the CAN source address whose PGN 126992
	// messages should drive a real system clock adjustment (spec §4.F
	// "-clocksrc"). Clock must also be set for the adjustment to run.
	ClockSrc *uint8
	Clock    clock.Adjuster
	Now      func() time.Time
}

// NewDecoder builds a Decoder around an already-loaded catalog.
func NewDecoder(c *catalog.Catalog) *Decoder {
	return &Decoder{Catalog: c}
}

// Decode looks up rm's PGN in the catalog and renders its payload into a
// Message, ready for JSON or text-format output.
func (d *Decoder) Decode(rm *common.RawMessage, ctx Context) (*common.Message, error) {
	info, ok := d.Catalog.Lookup(rm.PGN, rm.Data)
	if !ok {
		return nil, fmt.Errorf("decode: unknown PGN %d", rm.PGN)
	}

	ctx.Catalog = d.Catalog
	values, err := Fields(info, rm.Data, ctx)
	if err != nil {
		return nil, fmt.Errorf("decode: PGN %d: %w", rm.PGN, err)
	}

	fields := fieldsToJSON(values)

	if rm.PGN == systemTimePGN {
		d.maybeAdjustClock(rm.Src, fields)
	}

	return &common.Message{
		Timestamp:     rm.Timestamp,
		Priority:      int(rm.Prio),
		Src:           int(rm.Src),
		Dst:           int(rm.Dst),
		PGN:           int(rm.PGN),
		Description:   info.Description,
		Fields:        fields,
		Sequence:      rm.Sequence,
		CachedRawData: rm.Data,
	}, nil
}

// fieldsToJSON assembles the flat field map Message.Fields carries,
// collecting repeating-group values (spec §4.F) into nested "list"/"list2"
// arrays of per-repetition objects instead of "<name>_<n>" map keys.
func fieldsToJSON(values []Value) map[string]interface{} {
	fields := make(map[string]interface{}, len(values))
	groups := map[int]map[int]map[string]interface{}{1: {}, 2: {}}

	for _, v := range values {
		if v.RepGroup == 0 {
			fields[v.Name] = v.Raw
			continue
		}
		rep, ok := groups[v.RepGroup][v.RepIndex]
		if !ok {
			rep = map[string]interface{}{}
			groups[v.RepGroup][v.RepIndex] = rep
		}
		rep[v.BaseName] = v.Raw
	}

	if list := orderedList(groups[1]); list != nil {
		fields["list"] = list
	}
	if list2 := orderedList(groups[2]); list2 != nil {
		fields["list2"] = list2
	}
	return fields
}

func orderedList(byRep map[int]map[string]interface{}) []interface{} {
	if len(byRep) == 0 {
		return nil
	}
	indices := make([]int, 0, len(byRep))
	for i := range byRep {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]interface{}, 0, len(indices))
	for _, i := range indices {
		out = append(out, byRep[i])
	}
	return out
}

// maybeAdjustClock applies clock.Apply's decision logic when src matches
// the configured -clocksrc and a Clock adjuster is wired in (spec §4.F).
func (d *Decoder) maybeAdjustClock(src uint8, fields map[string]interface{}) {
	if d.ClockSrc == nil || d.Clock == nil || *d.ClockSrc != src {
		return
	}
	date, ok := fields["Date"].(time.Time)
	if !ok {
		return
	}
	dur, ok := fields["Time"].(time.Duration)
	if !ok {
		return
	}
	want := date.Add(dur)

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	// Errors are intentionally swallowed here: a failed clock adjustment is
	// not a decode failure (spec §7 treats these as independent concerns).
	_ = clock.Apply(d.Clock, now(), want)
}

// DecodeText renders rm the same way Decode does, but as the line-oriented
// "name = value" text format spec §4.F describes for the analyzer's
// default human-readable mode (used when -json is not given), rather than
// JSON.
func (d *Decoder) DecodeText(rm *common.RawMessage, ctx Context) (string, error) {
	info, ok := d.Catalog.Lookup(rm.PGN, rm.Data)
	if !ok {
		return "", fmt.Errorf("decode: unknown PGN %d", rm.PGN)
	}
	ctx.Catalog = d.Catalog
	values, err := Fields(info, rm.Data, ctx)
	if err != nil {
		return "", fmt.Errorf("decode: PGN %d: %w", rm.PGN, err)
	}

	out := fmt.Sprintf("%s %d %d %d %d %s:", rm.Timestamp.Format("2006-01-02T15:04:05.000Z"), rm.Prio, rm.PGN, rm.Src, rm.Dst, info.Description)
	for _, v := range values {
		out += fmt.Sprintf(" %s = %s;", v.Name, v.Text)
	}
	return out, nil
}
