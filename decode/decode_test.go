package decode

import (
	"testing"
	"time"

	"github.com/kkroon/gonmea2k/catalog"
	"github.com/kkroon/gonmea2k/common"
	"github.com/stretchr/testify/require"
)

type fakeClockAdjuster struct {
	largeCalls, incrementCalls int
}

func (f *fakeClockAdjuster) HasIncremental() bool { return true }
func (f *fakeClockAdjuster) SetLarge(time.Time) error {
	f.largeCalls++
	return nil
}
func (f *fakeClockAdjuster) SetIncremental(time.Time) error {
	f.incrementCalls++
	return nil
}

func TestDecodeWindData(t *testing.T) {
	c := catalog.Load()
	d := NewDecoder(c)

	// SID unknown, Wind Speed=1.00 m/s, Wind Angle=1.0000 rad, Reference=2 (Apparent).
	data := []byte{0xFF, 0x64, 0x00, 0x10, 0x27, 0x02, 0xFF, 0xFF}
	rm := &common.RawMessage{PGN: 130306, Src: 1, Dst: 255, Prio: 2, Data: data}

	msg, err := d.Decode(rm, DefaultContext)
	require.NoError(t, err)
	require.Equal(t, "windData", func() string {
		e, _ := c.Lookup(130306, data)
		return e.ID
	}())
	require.InDelta(t, 1.00, msg.Fields["Wind Speed"].(float64), 0.001)
	require.InDelta(t, 1.0000, msg.Fields["Wind Angle"].(float64), 0.0001)
	require.Equal(t, "Apparent", msg.Fields["Reference"])
}

func TestExtractNumberSignExtension(t *testing.T) {
	f := catalog.Field{BitOffset: 0, BitLength: 16, HasSign: true, Resolution: 1}
	// -2 as a 16-bit two's complement value, little-endian.
	raw, max, ok := ExtractNumber(f, []byte{0xfe, 0xff})
	require.True(t, ok)
	require.Equal(t, int64(-2), raw)
	require.Equal(t, int64(0x7fff), max)
}

func TestExtractNumberNotEmptySentinel(t *testing.T) {
	f := catalog.Field{BitOffset: 0, BitLength: 16, Resolution: 1}
	_, present := ExtractNumberNotEmpty(f, []byte{0xff, 0xff})
	require.False(t, present)
}

func TestDecodeRateOfTurn(t *testing.T) {
	c := catalog.Load()
	d := NewDecoder(c)

	data := []byte{0xFF, 0x80, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF}
	rm := &common.RawMessage{PGN: 127251, Src: 1, Dst: 255, Prio: 2, Data: data}

	msg, err := d.Decode(rm, DefaultContext)
	require.NoError(t, err)
	// raw 0x80 = 128, * 3.125e-5 = 0.004 rad/s.
	require.InDelta(t, 0.004, msg.Fields["Rate"].(float64), 0.0000001)
}

func TestDecodeSystemTimeAdjustsMatchingClockSrc(t *testing.T) {
	c := catalog.Load()
	adj := &fakeClockAdjuster{}
	src := uint8(7)
	d := &Decoder{
		Catalog:  c,
		ClockSrc: &src,
		Clock:    adj,
		Now:      func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	// SID=0, Source/Reserved=0, Date=100 days since epoch, Time=0.
	data := []byte{0, 0, 0x64, 0x00, 0, 0, 0, 0}
	rm := &common.RawMessage{PGN: 126992, Src: src, Dst: 255, Prio: 3, Data: data}

	_, err := d.Decode(rm, DefaultContext)
	require.NoError(t, err)
	require.Equal(t, 1, adj.largeCalls+adj.incrementCalls)
}

func TestDecodeRequestGroupFunctionResolvesVariableFieldsByReference(t *testing.T) {
	c := catalog.Load()
	d := NewDecoder(c)

	data := []byte{
		0x00,             // Function Code = Request
		0x12, 0xF1, 0x01, // PGN = 127250 (vesselHeading), little-endian 24-bit
		0x00, 0x00, 0x00, 0x00, // Transmission Interval
		0x00, 0x00, // Transmission Interval Offset
		0x02,       // # of Parameters = 2
		0x05,       // Parameter_1: references field #1 of 127250 (SID, 8-bit NUMBER) -> 5
		0x10, 0x27, // Parameter_2: references field #2 of 127250 (Heading, 16-bit, res 0.0001) -> 1.0 rad
	}
	rm := &common.RawMessage{PGN: 126208, Src: 1, Dst: 255, Prio: 3, Data: data}

	msg, err := d.Decode(rm, DefaultContext)
	require.NoError(t, err)

	list, ok := msg.Fields["list"].([]interface{})
	require.True(t, ok, "expected a nested \"list\" array, got %#v", msg.Fields["list"])
	require.Len(t, list, 2)

	rep1 := list[0].(map[string]interface{})
	require.Equal(t, int64(5), rep1["Parameter"])

	rep2 := list[1].(map[string]interface{})
	require.InDelta(t, 1.0, rep2["Parameter"].(float64), 0.0001)

	_, flattened := msg.Fields["Parameter_1"]
	require.False(t, flattened, "repeating fields must not also appear flattened in the top-level map")
}

func TestDecodeStringLZ(t *testing.T) {
	f := catalog.Field{Name: "Name", Kind: catalog.KindStringLZ}
	data := []byte{0x05, 'H', 'e', 'l', 'l', 'o'}

	v, ok, err := decodeStringLZ(f, data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hello", v.Raw)
}

func TestDecodeStringLAUControlASCII(t *testing.T) {
	f := catalog.Field{Name: "Name", Kind: catalog.KindStringLAU}
	// specifiedLen=7, control=1 (ASCII), content "Hi" padded with trimmed fill.
	data := []byte{0x07, 0x01, 'H', 'i', ' ', ' ', '@'}

	v, ok, err := decodeStringLAU(f, data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hi", v.Raw)
}

func TestDecodeStringLAUControlUTF16(t *testing.T) {
	f := catalog.Field{Name: "Name", Kind: catalog.KindStringLAU}
	// specifiedLen=6 (2 header + 4 content bytes), control=0 (UTF-16LE "Hi").
	data := []byte{0x06, 0x00, 'H', 0x00, 'i', 0x00}

	v, ok, err := decodeStringLAU(f, data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hi", v.Raw)
}

func TestDecodeStringStartStopDelimited(t *testing.T) {
	f := catalog.Field{Name: "Name", Kind: catalog.KindStringAuto}
	data := []byte{0x02, 'H', 'i', 0x01}

	v, ok, err := decodeStringStartStop(f, data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hi", v.Raw)
}

func TestDecodeStringStartStopLengthPrefixedWithControl(t *testing.T) {
	f := catalog.Field{Name: "Name", Kind: catalog.KindStringAuto}
	data := []byte{0x04, 0x01, 'H', 'i'}

	v, ok, err := decodeStringStartStop(f, data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hi", v.Raw)
}

func TestDecodeStringStartStopLengthPrefixedNoControl(t *testing.T) {
	f := catalog.Field{Name: "Name", Kind: catalog.KindStringAuto}
	data := []byte{0x03, 'H', 'i'}

	v, ok, err := decodeStringStartStop(f, data)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hi", v.Raw)
}

func TestDecodeSystemTimeIgnoresOtherSources(t *testing.T) {
	c := catalog.Load()
	adj := &fakeClockAdjuster{}
	src := uint8(7)
	d := &Decoder{Catalog: c, ClockSrc: &src, Clock: adj}

	data := []byte{0, 0, 0x64, 0x00, 0, 0, 0, 0}
	rm := &common.RawMessage{PGN: 126992, Src: 9, Dst: 255, Prio: 3, Data: data}

	_, err := d.Decode(rm, DefaultContext)
	require.NoError(t, err)
	require.Equal(t, 0, adj.largeCalls+adj.incrementCalls)
}
