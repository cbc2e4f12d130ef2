// Package fastpacket reassembles NMEA 2000 Fast-Packet CAN frame sequences
// back into one payload (spec §4.D "Fast-Packet reassembly"); ISO 11783-3
// transport-protocol sequences are not handled.
package fastpacket

import (
	"fmt"

	"github.com/kkroon/gonmea2k/common"
)

// poolSize is the number of concurrent in-flight reassemblies tracked, one
// slot per (source, PGN) pair, mirroring the fixed reassembly buffer the
// upstream analyzer keeps per run.
const poolSize = 64

type slot struct {
	used      bool
	pgn       uint32
	src       uint8
	size      int
	data      [common.FastPacketMaxSize]byte
	frames    uint32
	allFrames uint32
}

// Reassembler tracks in-flight Fast-Packet sequences across multiple
// concurrent (source, PGN) streams. The zero value is ready to use.
type Reassembler struct {
	slots [poolSize]slot
}

// Feed processes one raw CAN frame belonging to a Fast-Packet PGN. It
// returns (payload, true, nil) once every frame of the sequence has
// arrived; otherwise it returns (nil, false, nil) while the sequence is
// still incomplete. A frame whose frame-bit repeats before the sequence
// completed resets that slot and starts reassembly over, matching the
// upstream analyzer's handling of a restarted transmission.
func (r *Reassembler) Feed(pgn uint32, src uint8, frameData []byte) ([]byte, bool, error) {
	if len(frameData) == 0 {
		return nil, false, fmt.Errorf("fastpacket: empty frame for PGN %d", pgn)
	}

	p := r.findOrAllocate(pgn, src)
	if p == nil {
		return nil, false, fmt.Errorf("fastpacket: out of reassembly slots; dropping PGN %d from %d", pgn, src)
	}

	frame := uint32(frameData[common.FastPacketIndex]) & common.FastPacketMaxIndex

	idx := 0
	frameLen := common.FastPacketBucket0Size
	msgIdx := common.FastPacketBucket0Offset
	if frame != 0 {
		idx = common.FastPacketBucket0Size + int(frame-1)*common.FastPacketBucketNSize
		frameLen = common.FastPacketBucketNSize
		msgIdx = common.FastPacketBucketNOffset
	}

	if p.frames&(1<<frame) != 0 {
		p.frames = 0
	}

	if frame == 0 && p.frames == 0 {
		p.size = int(frameData[common.FastPacketSize])
		p.allFrames = (1 << (1 + (p.size / common.FastPacketBucketNSize))) - 1
	}

	if msgIdx+frameLen > len(frameData) {
		return nil, false, fmt.Errorf("fastpacket: short frame for PGN %d: have %d bytes, need %d", pgn, len(frameData), msgIdx+frameLen)
	}
	if idx+frameLen > len(p.data) {
		return nil, false, fmt.Errorf("fastpacket: PGN %d size %d exceeds max fast-packet payload", pgn, p.size)
	}
	copy(p.data[idx:idx+frameLen], frameData[msgIdx:msgIdx+frameLen])
	p.frames |= 1 << frame

	if p.frames != p.allFrames {
		return nil, false, nil
	}

	payload := make([]byte, p.size)
	copy(payload, p.data[:p.size])
	p.used = false
	p.frames = 0
	return payload, true, nil
}

func (r *Reassembler) findOrAllocate(pgn uint32, src uint8) *slot {
	for i := range r.slots {
		p := &r.slots[i]
		if p.used && p.pgn == pgn && p.src == src {
			return p
		}
	}
	for i := range r.slots {
		p := &r.slots[i]
		if !p.used {
			p.used = true
			p.pgn = pgn
			p.src = src
			p.frames = 0
			return p
		}
	}
	return nil
}

// Reset discards all in-flight reassembly state, for use when a transport
// reconnects and frame sequencing can no longer be trusted to continue.
func (r *Reassembler) Reset() {
	*r = Reassembler{}
}
