package n2kd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTalkerIDEncoding(t *testing.T) {
	require.Equal(t, "AA", talkerID(0))
	require.Equal(t, "BA", talkerID(0x10))
}

func TestChecksumMatchesKnownSentence(t *testing.T) {
	// $GPGLL,...*checksum is a well-known fixture.
	body := "GPGLL,4916.45,N,12311.12,W,225444,A"
	require.Equal(t, byte(0x31), checksum(body))
}

func TestSentenceAppendsChecksum(t *testing.T) {
	s := sentence("AA", "HDG", ",90.0,,,,")
	require.True(t, strings.HasPrefix(s, "$AAHDG,"))
	require.True(t, strings.HasSuffix(s, "\r\n"))
	require.Contains(t, s, "*")
}

func TestDeriveMWVFromWindData(t *testing.T) {
	out := Derive(decodedMessage{
		PGN: 130306,
		Src: 1,
		Fields: map[string]interface{}{
			"Wind Speed": 1.0,
			"Wind Angle": 1.0,
			"Reference":  "Apparent",
		},
	})
	require.Len(t, out, 1)
	require.Contains(t, out[0], "MWV")
	require.Contains(t, out[0], ",R,")
}

func TestDeriveUnknownPGNReturnsNil(t *testing.T) {
	require.Nil(t, Derive(decodedMessage{PGN: 99999, Fields: map[string]interface{}{}}))
}

func TestDeriveMissingFieldReturnsNil(t *testing.T) {
	require.Nil(t, Derive(decodedMessage{PGN: 127250, Fields: map[string]interface{}{}}))
}
