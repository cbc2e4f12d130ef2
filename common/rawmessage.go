package common

// Originally from https://github.com/canboat/canboat (Apache License, Version 2.0)
// (C) 2009-2023, Kees Verruijt, Harlingen, The Netherlands.

// This file is part of CANboat.

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"time"
)

// Fast-Packet layout constants (spec §4.D, "Fast-Packet frame layout").
const (
	FastPacketIndex         = 0
	FastPacketSize          = 1
	FastPacketBucket0Size   = 6
	FastPacketBucketNSize   = 7
	FastPacketBucket0Offset = 2
	FastPacketBucketNOffset = 1
	FastPacketMaxIndex      = 0x1f
	FastPacketMaxSize       = FastPacketBucket0Size + FastPacketBucketNSize*FastPacketMaxIndex
)

// Private PGN ranges used to synthesize fake PGNs for gateway-originated
// status/text messages that have no real NMEA 2000 PGN of their own
// (spec §6, "NGT_MSG_RECEIVED").
const (
	CANBoatPGNStart = 0x40000
	CANBoatPGNEnd   = 0x401FF
	ActisenseBEM    = 0x40000
	IKonvertBEM     = 0x40100
)

// AllowPGNFastPacket reports whether n may legally appear as a fast-packet.
func AllowPGNFastPacket(n uint32) bool {
	return (n >= 0x10000 && n < 0x1FFFF) || n >= CANBoatPGNStart
}

// AllowPGNSingleFrame reports whether n may legally appear as a single CAN frame.
func AllowPGNSingleFrame(n uint32) bool {
	return n < 0x10000 || n >= 0x1F000
}

// RawMessage is a single decoded CAN-level frame, or a reassembled
// multi-frame PGN, per spec §3 "RawMessage".
type RawMessage struct {
	Timestamp time.Time
	Prio      uint8
	PGN       uint32
	Dst       uint8
	Src       uint8
	Len       uint8
	Data      []byte

	// Sequence/Frame are only meaningful while a message is still a single
	// fast-packet frame, before reassembly.
	Sequence uint8 // 3 bits
	Frame    uint8 // 5 bits
}

func (rm *RawMessage) setParsedValues(prio uint8, pgn uint32, dst, src, dataLen uint8) {
	rm.Prio = prio
	rm.PGN = pgn
	rm.Dst = dst
	rm.Src = src
	rm.Len = dataLen
}

// SeparateSingleOrFastPackets splits rm into one or more single-CAN-frame
// RawMessages, choosing fast-packet framing when forced or when the payload
// cannot fit a single 8-byte frame.
func (rm *RawMessage) SeparateSingleOrFastPackets(isFastPacket bool) ([]*RawMessage, error) {
	if isFastPacket || len(rm.Data) > 8 {
		return rm.SeparateFastPackets()
	}
	cp := *rm
	cp.Data = append([]byte(nil), rm.Data...)
	return []*RawMessage{&cp}, nil
}

// SeparateFastPackets splits rm's payload into the fast-packet frame
// sequence described in spec §4.D's "Fast-Packet frame layout".
func (rm *RawMessage) SeparateFastPackets() ([]*RawMessage, error) {
	total := len(rm.Data)
	if total == 0 {
		return nil, errors.New("message has no data")
	}
	if total > FastPacketMaxSize {
		return nil, fmt.Errorf("data (%d) cannot fit into max combined packet size %d", total, FastPacketMaxSize)
	}

	numFrames := 1 + int(math.Ceil(float64(total-FastPacketBucket0Size)/FastPacketBucketNSize))
	envelope := FastPacketBucketNSize + 1

	var frames []*RawMessage
	remaining := rm.Data
	for idx := 0; idx < numFrames; idx++ {
		buf := make([]byte, envelope)
		for i := range buf {
			buf[i] = 0xff
		}

		var size, offset int
		if idx == 0 {
			size, offset = FastPacketBucket0Size, FastPacketBucket0Offset
			buf[FastPacketBucket0Offset-1] = byte(total)
		} else {
			size, offset = FastPacketBucketNSize, FastPacketBucketNOffset
		}

		seqFrame := (byte(rm.Sequence)<<5)&0xe0 | byte(idx)&0x1f
		buf[0] = seqFrame

		chunk := Min(len(remaining), size)
		copy(buf[offset:], remaining[:chunk])
		remaining = remaining[chunk:]

		cp := *rm
		cp.Data = buf
		frames = append(frames, &cp)
	}
	return frames, nil
}

// Message is a decoded NMEA 2000 PGN, serialized the way spec §4.F's
// renderer produces it.
type Message struct {
	Timestamp     time.Time              `json:"timestamp"`
	Priority      int                    `json:"prio"`
	Src           int                    `json:"src"`
	Dst           int                    `json:"dst"`
	PGN           int                    `json:"pgn"`
	Description   string                 `json:"description"`
	Fields        map[string]interface{} `json:"fields"`
	Sequence      uint8                  `json:"-"`
	CachedRawData []byte                 `json:"-"`
}

// GetISO11783BitsFromCanID decomposes a 29-bit CAN identifier into the
// ISO 11783 priority/PGN/src/dst quadruple, per spec §4.E's
// "From a 29-bit CAN identifier..." rule.
func GetISO11783BitsFromCanID(id uint) (prio uint8, pgn uint32, src, dst uint8) {
	pf := (id >> 16) & 0xff
	ps := id >> 8
	rdp := (id >> 24) & 3 // R + DP bits

	src = uint8(id)
	prio = uint8((id >> 26) & 0x7)

	if pf < 240 {
		// PDU1: PS carries the destination address.
		dst = uint8(ps)
		pgn = uint32(rdp<<16) + uint32(pf<<8)
	} else {
		// PDU2: destination implied global, PGN extended with PS.
		dst = 0xff
		pgn = uint32(rdp<<16) + uint32(pf<<8) + uint32(ps&0xff)
	}
	return prio, pgn, src, dst
}

// GetCanIDFromISO11783Bits composes a 29-bit CAN identifier from the
// ISO 11783 priority/PGN/src/dst quadruple; the inverse of
// GetISO11783BitsFromCanID.
func GetCanIDFromISO11783Bits(prio uint8, pgn uint32, src, dst uint8) uint {
	pf := (pgn >> 8) & 0xff
	rdp := (pgn >> 16) & 0x3
	id := uint(prio&0x7)<<26 | uint(rdp)<<24 | uint(pf)<<16 | uint(src)

	if pf < 240 {
		id |= uint(dst) << 8
	} else {
		id |= uint(pgn&0xff) << 8
	}
	return id
}

// Min returns the smaller of x, y.
func Min[T cmp.Ordered](x, y T) T {
	if x < y {
		return x
	}
	return y
}

// Max returns the larger of x, y.
func Max[T cmp.Ordered](x, y T) T {
	if x > y {
		return x
	}
	return y
}

// ExitError carries a process exit code up through error returns, so a
// single handleErr in each cmd/* main can decide the right os.Exit status
// without every layer importing "os".
type ExitError struct {
	Code  int
	Cause error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d; cause=%s", e.Code, e.Cause)
}

func (e *ExitError) Unwrap() error { return e.Cause }
