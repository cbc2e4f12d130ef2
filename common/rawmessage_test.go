package common

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetISO11783BitsFromCanID(t *testing.T) {
	cases := [][5]uint{
		{502267650, 7, 126720, 2, 255},
		{0x09F11203, 2, 127250, 3, 255},
		{0x1DEF1911, 7, 126720, 17, 25},
	}

	for _, c := range cases {
		prio, pgn, src, dst := GetISO11783BitsFromCanID(c[0])
		require.EqualValues(t, c[1], prio)
		require.EqualValues(t, c[2], pgn)
		require.EqualValues(t, c[3], src)
		require.EqualValues(t, c[4], dst)

		id := GetCanIDFromISO11783Bits(prio, pgn, src, dst)
		require.Equal(t, fmt.Sprintf("%x", c[0]), fmt.Sprintf("%x", id))
	}
}

func TestSeparateFastPacketsRoundTrip(t *testing.T) {
	data := make([]byte, 43)
	for i := range data {
		data[i] = byte(i)
	}
	rm := &RawMessage{PGN: 129029, Src: 1, Dst: 255, Prio: 2, Data: data}

	frames, err := rm.SeparateFastPackets()
	require.NoError(t, err)
	require.Len(t, frames, 7) // ceil((43-6)/7) + 1 = 7

	// Reassemble in order and compare.
	var got []byte
	for i, f := range frames {
		frame, seq := f.Data[0]&0x1f, f.Data[0]>>5
		require.EqualValues(t, i, frame)
		require.EqualValues(t, 0, seq)
		if i == 0 {
			require.EqualValues(t, 43, f.Data[1])
			got = append(got, f.Data[2:]...)
		} else {
			got = append(got, f.Data[1:]...)
		}
	}
	require.Equal(t, data, got[:len(data)])
}

func TestAllowPGNHelpers(t *testing.T) {
	require.True(t, AllowPGNSingleFrame(59904))
	require.False(t, AllowPGNSingleFrame(0x1F000-1))
	require.True(t, AllowPGNFastPacket(129029))
}
