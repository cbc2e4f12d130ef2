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
	"bytes"
	"errors"
	"fmt"
	"math"
)

// MultiPackets selects how a fast-packet RawMessage is rendered to text:
// as one coalesced PLAIN line, or as the true per-frame FAST sequence.
type MultiPackets int

// MultiPacket rendering modes.
const (
	MultiPacketsSeparate MultiPackets = iota
	MultiPacketsCoalesced
)

const timestampFormat = "2006-01-02-15:04:05.000"

// MarshalRawMessageToPlainFormat renders rm as a single PLAIN line:
//
//	<timestamp>,<prio>,<pgn>,<src>,<dst>,<len>,<hex>,<hex>,...
func MarshalRawMessageToPlainFormat(rawMsg *RawMessage, multi MultiPackets) ([]byte, error) {
	total := len(rawMsg.Data)
	if total == 0 {
		return nil, errors.New("message has no data")
	}
	if multi == MultiPacketsSeparate && total > 8 {
		return nil, fmt.Errorf("data (%d) cannot fit into max packet size %d", total, 8)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s,%d,%d,%d,%d,%d",
		rawMsg.Timestamp.Format(timestampFormat), rawMsg.Prio, rawMsg.PGN, rawMsg.Src, rawMsg.Dst, total)
	for _, b := range rawMsg.Data {
		fmt.Fprintf(&buf, ",%02x", b)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalRawMessageToFastFormat renders rm as the FAST-packet frame
// sequence (spec §4.D), one line per CAN frame, unless multi requests the
// coalesced PLAIN rendering instead.
func MarshalRawMessageToFastFormat(rawMsg *RawMessage, multi MultiPackets) ([]byte, error) {
	total := len(rawMsg.Data)
	if total == 0 {
		return nil, errors.New("message has no data")
	}
	if multi == MultiPacketsCoalesced {
		return MarshalRawMessageToPlainFormat(rawMsg, multi)
	}
	if total > FastPacketMaxSize {
		return nil, fmt.Errorf("data (%d) cannot fit into max combined packet size %d", total, FastPacketMaxSize)
	}

	numFrames := 1 + int(math.Ceil(float64(total-FastPacketBucket0Size)/FastPacketBucketNSize))
	envelope := FastPacketBucketNSize + 1
	prefix := fmt.Sprintf("%s,%d,%d,%d,%d,%d",
		rawMsg.Timestamp.Format(timestampFormat), rawMsg.Prio, rawMsg.PGN, rawMsg.Src, rawMsg.Dst, envelope)

	var out bytes.Buffer
	remaining := rawMsg.Data
	for idx := 0; idx < numFrames; idx++ {
		frame := make([]byte, envelope)
		var size, offset int
		if idx == 0 {
			size, offset = FastPacketBucket0Size, FastPacketBucket0Offset
			frame[FastPacketBucket0Offset-1] = byte(total)
		} else {
			size, offset = FastPacketBucketNSize, FastPacketBucketNOffset
		}
		frame[0] = byte(idx) & 0x1f // sequence id unused on the rendered line, left at 0

		chunk := Min(len(remaining), size)
		copy(frame[offset:], remaining[:chunk])
		remaining = remaining[chunk:]

		out.WriteString(prefix)
		for _, b := range frame {
			fmt.Fprintf(&out, ",%02x", b)
		}
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}
