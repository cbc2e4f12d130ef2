package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMarshalRawMessageToPlainFormatRoundTrip(t *testing.T) {
	rm := &RawMessage{
		Timestamp: time.Date(2022, 9, 10, 12, 10, 16, 614_000_000, time.UTC),
		Prio:      6,
		PGN:       60928,
		Src:       5,
		Dst:       255,
		Data:      []byte{0xfb, 0x9b, 0x70, 0x22, 0x00, 0x9b, 0x50, 0xc0},
	}

	line, err := MarshalRawMessageToPlainFormat(rm, MultiPacketsSeparate)
	require.NoError(t, err)

	var decoded RawMessage
	p := &plainOrFastParser{}
	require.NoError(t, p.Parse(string(line), &decoded))
	require.Equal(t, rm.PGN, decoded.PGN)
	require.Equal(t, rm.Data, decoded.Data)
}

func TestMarshalRawMessageToFastFormatFrameCount(t *testing.T) {
	data := make([]byte, 43)
	rm := &RawMessage{PGN: 129029, Src: 1, Dst: 255, Prio: 2, Data: data}

	out, err := MarshalRawMessageToFastFormat(rm, MultiPacketsSeparate)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
