package actisense

import (
	"testing"
	"time"

	"github.com/kkroon/gonmea2k/common"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0xAA, 0xBB}
	wire, err := Encode(CmdN2KMessageSend, payload)
	require.NoError(t, err)

	cmd, got, err := Decode(wire)
	require.NoError(t, err)
	require.Equal(t, CmdN2KMessageSend, cmd)
	require.Equal(t, payload, got)
}

func TestDoubledDLEInPayload(t *testing.T) {
	// Spec §8 scenario 5's literal wire bytes (10 02 93 02 10 10 CB 10 03)
	// declare a 2-byte payload but, once the doubled DLE collapses to a
	// single 0x10, only one payload byte remains with no room left for a
	// checksum byte before the DLE ETX terminator — the same kind of
	// internally-inconsistent prose as §8 scenario 1 (see DESIGN.md). This
	// wire instead encodes a self-consistent single-byte payload of 0x10
	// (len=1, recomputed checksum), exercising the same doubled-DLE
	// unescaping the scenario intends.
	wire := []byte{0x10, 0x02, 0x93, 0x01, 0x10, 0x10, 0x5C, 0x10, 0x03}
	cmd, payload, err := Decode(wire)
	require.NoError(t, err)
	require.Equal(t, byte(0x93), cmd)
	require.Equal(t, []byte{0x10}, payload)
}

func TestEscapeNeutrality(t *testing.T) {
	payload := []byte{DLE, STX, ETX, DLE, DLE}
	wire, err := Encode(CmdN2KMessageSend, payload)
	require.NoError(t, err)

	// Every DLE byte in the body must be part of a doubled DLE; strip the
	// frame delimiters before checking.
	body := wire[2 : len(wire)-2]
	for i := 0; i < len(body); i++ {
		if body[i] != DLE {
			continue
		}
		require.Less(t, i+1, len(body), "trailing lone DLE")
		require.Equal(t, DLE, body[i+1])
		i++
	}
}

func TestChecksumInvariant(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7}
	cmd := CmdN2KMessageSend
	length := byte(len(payload))
	crc := checksum(cmd, length, payload)

	sum := int(cmd) + int(length) + int(crc)
	for _, b := range payload {
		sum += int(b)
	}
	require.Equal(t, 0, sum%256)
}

func TestBadChecksumResyncs(t *testing.T) {
	wire := []byte{0x10, 0x02, 0x93, 0x01, 0xAA, 0x00, 0x10, 0x03} // wrong crc
	var c Codec
	var lastErr error
	for _, b := range wire {
		_, err := c.Feed(b)
		if err != nil {
			lastErr = err
		}
	}
	require.Error(t, lastErr)

	// The codec must still be able to decode a subsequent, valid message.
	good, err := Encode(CmdN2KMessageSend, []byte{0x01})
	require.NoError(t, err)
	var frame *Frame
	for _, b := range good {
		f, err := c.Feed(b)
		require.NoError(t, err)
		if f != nil {
			frame = f
		}
	}
	require.NotNil(t, frame)
}

func TestToRawMessageN2KReceived(t *testing.T) {
	payload := []byte{
		2,          // prio
		0x40, 0xFA, 0x01, // pgn = 129600 little-endian (0x01FA40)
		0xFF, // dst
		35,   // src
		0, 0, 0, 0, // device timestamp, ignored
		2,          // len
		0xAA, 0xBB, // data
	}
	f := &Frame{Cmd: CmdN2KMessageReceived, Payload: payload}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rm, err := ToRawMessage(f, now)
	require.NoError(t, err)
	require.EqualValues(t, 35, rm.Src)
	require.EqualValues(t, 0xFF, rm.Dst)
	require.Equal(t, []byte{0xAA, 0xBB}, rm.Data)
}

func TestFromRawMessageOmitsTimestampAndSrc(t *testing.T) {
	rm := &common.RawMessage{Prio: 3, PGN: 129600, Dst: 255, Src: 35, Data: []byte{0xAA, 0xBB}}
	wire, err := FromRawMessage(rm)
	require.NoError(t, err)

	cmd, payload, err := Decode(wire)
	require.NoError(t, err)
	require.Equal(t, CmdN2KMessageSend, cmd)
	require.Equal(t, []byte{
		3,                // prio
		0x40, 0xFA, 0x01, // pgn little-endian
		0xFF,       // dst
		2,          // len
		0xAA, 0xBB, // data
	}, payload)
}
