/*
NAME
  pes.go

DESCRIPTION
  pes.go implements the PES framer and timestamp clock: validating and
  unwrapping EBU teletext PES packets (private stream 1), reconstructing a
  monotonic millisecond clock from PTS or PCR, and forwarding bit-reversed
  teletext data units to the packet decoder.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pes frames EBU teletext PES packets (MPEG-2 private stream 1),
// recovers a monotonic presentation clock from PTS or PCR, and iterates
// the data-unit records within each packet's payload.
package pes

import (
	"github.com/pkg/errors"

	"github.com/ausocean/teletext/ecc"
	"github.com/ausocean/teletext/packet"
)

// StreamIDPrivate1 is the MPEG-2 PES stream id EBU teletext is carried on.
const StreamIDPrivate1 = 0xbd

// ptsWrapMs is 2^33 / 90, the number of milliseconds a 33-bit 90kHz PTS
// counter spans before wrapping.
const ptsWrapMs = 95443718

var (
	// ErrBadPrefix is returned when a buffer doesn't begin with the PES
	// start-code prefix 0x000001.
	ErrBadPrefix = errors.New("pes: missing start-code prefix")
	// ErrZeroLength is returned for a PES packet that declares a zero
	// payload length, which is only permitted for video streams.
	ErrZeroLength = errors.New("pes: zero-length packet not permitted for private stream 1")
	// ErrTruncatedHeader is returned when the optional PES header is
	// signalled present but the buffer is too short to hold it.
	ErrTruncatedHeader = errors.New("pes: truncated optional header")
)

// Clock reconstructs a monotonic millisecond presentation clock from a
// sequence of raw (possibly wrapping) 90kHz-derived timestamps.
type Clock struct {
	offsetMs int64
	latched  bool
	t0       int64
	delta    int64
}

// NewClock returns a Clock whose first reported timestamp is anchored at
// offsetMs milliseconds.
func NewClock(offsetMs int64) *Clock { return &Clock{offsetMs: offsetMs} }

// Next feeds the clock a raw millisecond value derived from a PTS or PCR
// reading and returns the monotonized stream timestamp.
func (c *Clock) Next(raw int64) int64 {
	if !c.latched {
		c.delta = c.offsetMs - raw
		c.t0 = raw
		c.latched = true
	} else if raw < c.t0 {
		c.delta += ptsWrapMs
	}
	c.t0 = raw
	return raw + c.delta
}

// Framer unwraps EBU teletext PES packets, selects and monotonizes a
// presentation clock, and forwards decoded data units to Handle.
type Framer struct {
	clock *Clock

	// decided latches whether this stream uses PTS or PCR after the first
	// PES packet, per the timestamp-selection rule: once chosen, the same
	// source is used for the rest of the stream.
	decided bool
	usePTS  bool

	// Handle receives every EBU teletext data unit found, already
	// bit-reversed and ready for packet.Decoder.Process.
	Handle func(dataUnitID byte, pkt []byte, timestamp int64)
}

// NewFramer returns a Framer anchored at offsetMs milliseconds.
func NewFramer(offsetMs int64) *Framer {
	return &Framer{clock: NewClock(offsetMs)}
}

// PCR carries a transport-stream program clock reference, in 90kHz base
// ticks plus a 27MHz extension, for use when no PES carries a PTS.
type PCR struct {
	Base int64
	Ext  int64
}

// Process parses one PES packet payload (starting at the 0x000001
// prefix) and, if it carries EBU teletext data units, forwards each one
// to Handle with a monotonized millisecond timestamp. pcr supplies the
// current program clock reference for streams that don't carry a PTS;
// havePCR indicates whether one has been observed yet.
func (f *Framer) Process(pes []byte, pcr PCR, havePCR bool) error {
	if len(pes) < 6 || pes[0] != 0x00 || pes[1] != 0x00 || pes[2] != 0x01 {
		return ErrBadPrefix
	}
	if pes[3] != StreamIDPrivate1 {
		return nil
	}
	length := int(pes[4])<<8 | int(pes[5])
	if length == 0 {
		return ErrZeroLength
	}

	end := 6 + length
	if end > len(pes) {
		end = len(pes) // incomplete blob: truncate rather than drop.
	}

	// offset starts just past the data_identifier byte (EN 300 472) that
	// follows the fixed/optional PES header; skipping it is deliberate,
	// not an off-by-one.
	offset := 7
	var ptsTicks int64
	havePTSHere := false

	if len(pes) >= 7 && pes[6]&0xc0 == 0x80 {
		if len(pes) < 9 {
			return ErrTruncatedHeader
		}
		ptsFlag := pes[7]&0x80 != 0
		hdrLen := int(pes[8])
		offset = 10 + hdrLen
		if ptsFlag {
			if len(pes) < 14 {
				return ErrTruncatedHeader
			}
			ptsTicks = extractPTS(pes[9:14])
			havePTSHere = true
		}
	}

	if !f.decided {
		f.usePTS = havePTSHere
		f.decided = true
	}

	var raw int64
	var ok bool
	switch {
	case f.usePTS && havePTSHere:
		raw, ok = ptsTicks/90, true
	case !f.usePTS && havePCR:
		raw, ok = pcr.Base/90+pcr.Ext/27000, true
	}
	if !ok {
		return nil // no usable clock source for this packet yet.
	}
	timestamp := f.clock.Next(raw)

	for offset+2 <= end {
		id := pes[offset]
		n := int(pes[offset+1])
		offset += 2
		if offset+n > len(pes) {
			break
		}
		if (id == packet.DataUnitEBUTeletextSubtitle || id == packet.DataUnitEBUTeletextNonSubtitle) && n == 0x2c {
			unit := make([]byte, 0x2c)
			for i, b := range pes[offset : offset+n] {
				unit[i] = ecc.Reverse(b)
			}
			if f.Handle != nil {
				f.Handle(id, unit, timestamp)
			}
		}
		offset += n
	}
	return nil
}

// extractPTS reconstructs a 33-bit, 90kHz PTS (or DTS) from its 5-byte
// MPEG-2 encoding: three 3-bit, then two 15-bit, marker-separated
// fragments.
func extractPTS(b []byte) int64 {
	hi := int64(b[0]>>1) & 0x07
	mid := int64(b[1])<<7 | int64(b[2]>>1)
	lo := int64(b[3])<<7 | int64(b[4]>>1)
	return hi<<30 | mid<<15 | lo
}
