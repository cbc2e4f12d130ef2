package fastpacket

import (
	"testing"

	"github.com/kkroon/gonmea2k/common"
	"github.com/stretchr/testify/require"
)

func TestFeedReassemblesAcrossFrames(t *testing.T) {
	payload := make([]byte, 43)
	for i := range payload {
		payload[i] = byte(i)
	}
	rm := &common.RawMessage{PGN: 129029, Src: 7, Data: payload}
	frames, err := rm.SeparateFastPackets()
	require.NoError(t, err)
	require.Len(t, frames, 7)

	var r Reassembler
	var got []byte
	for i, f := range frames {
		out, complete, err := r.Feed(129029, 7, f.Data)
		require.NoError(t, err)
		if i < len(frames)-1 {
			require.False(t, complete)
		} else {
			require.True(t, complete)
			got = out
		}
	}
	require.Equal(t, payload, got)
}

func TestFeedRestartsOnDuplicateFrameBit(t *testing.T) {
	payload := make([]byte, 20)
	rm := &common.RawMessage{PGN: 129029, Src: 1, Data: payload}
	frames, err := rm.SeparateFastPackets()
	require.NoError(t, err)

	var r Reassembler
	_, complete, err := r.Feed(129029, 1, frames[0].Data)
	require.NoError(t, err)
	require.False(t, complete)

	// Frame 0 arrives again before completion: the sequence restarts.
	_, complete, err = r.Feed(129029, 1, frames[0].Data)
	require.NoError(t, err)
	require.False(t, complete)

	for _, f := range frames[1:] {
		_, complete, err = r.Feed(129029, 1, f.Data)
		require.NoError(t, err)
	}
	require.True(t, complete)
}

func TestFeedTracksMultipleSourcesIndependently(t *testing.T) {
	var r Reassembler
	a := make([]byte, 10)
	b := make([]byte, 10)
	rmA := &common.RawMessage{PGN: 129029, Src: 1, Data: a}
	rmB := &common.RawMessage{PGN: 129029, Src: 2, Data: b}
	framesA, err := rmA.SeparateFastPackets()
	require.NoError(t, err)
	framesB, err := rmB.SeparateFastPackets()
	require.NoError(t, err)

	_, complete, err := r.Feed(129029, 1, framesA[0].Data)
	require.NoError(t, err)
	require.False(t, complete)
	_, complete, err = r.Feed(129029, 2, framesB[0].Data)
	require.NoError(t, err)
	require.False(t, complete)

	for _, f := range framesA[1:] {
		_, complete, err = r.Feed(129029, 1, f.Data)
		require.NoError(t, err)
	}
	require.True(t, complete)

	for _, f := range framesB[1:] {
		_, complete, err = r.Feed(129029, 2, f.Data)
		require.NoError(t, err)
	}
	require.True(t, complete)
}
