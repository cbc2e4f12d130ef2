package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimestampLegacyFormat(t *testing.T) {
	ts, err := ParseTimestamp("04 Sep 24 15:14 +1234")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.September, 4, 15, 14, 1, 234000000, time.Local), ts)
}

func TestNavLink2Parser(t *testing.T) {
	p := &navLink2Parser{}
	var m RawMessage

	msg := "!PDGY,130567,6,200,255,25631.18,RgPczwYAQnYeAB4AAAADAAAAAABQbiMA"
	require.True(t, p.Detect(msg))
	require.NoError(t, p.Parse(msg, &m))
	require.Len(t, m.Data, 24)
	require.EqualValues(t, 130567, m.PGN)

	msg = "!PDGY,126998,6,200,255,7525.87,BQFpZDEFAWlkMhoBU3BvdFplcm8gUmV2ZXJzZSBPc21vc2lz"
	require.True(t, p.Detect(msg))
	require.NoError(t, p.Parse(msg, &m))
	require.Len(t, m.Data, 36)
	require.EqualValues(t, 126998, m.PGN)

	require.False(t, p.Detect("not a navlink2 line"))
}

func TestPlainOrFastParserPlain(t *testing.T) {
	p := &plainOrFastParser{}
	var m RawMessage
	msg := "2022-09-10T12:10:16.614Z,6,60928,5,255,8,fb,9b,70,22,00,9b,50,c0"
	require.True(t, p.Detect(msg))
	require.NoError(t, p.Parse(msg, &m))
	require.EqualValues(t, 60928, m.PGN)
	require.EqualValues(t, 6, m.Prio)
	require.EqualValues(t, 5, m.Src)
	require.EqualValues(t, 255, m.Dst)
	require.Equal(t, []byte{0xfb, 0x9b, 0x70, 0x22, 0x00, 0x9b, 0x50, 0xc0}, m.Data)
}

func TestYDWG02Parser(t *testing.T) {
	p := &ydwg02Parser{}
	msg := "00:17:55.475 R 0DF50B23 FF FF FF FF FF 00 00 FF"
	require.True(t, p.Detect(msg))
	var m RawMessage
	require.NoError(t, p.Parse(msg, &m))
	require.Len(t, m.Data, 8)
}

func TestFindParserDispatch(t *testing.T) {
	msg := "2022-09-28-11:36:59.668,3,129029,0,255,8,00,2f,e7,95,3d,00,73,d6"
	found := FindParser(msg)
	require.NotNil(t, found)
	require.Equal(t, "PLAIN_OR_FAST", found.Name())
}
