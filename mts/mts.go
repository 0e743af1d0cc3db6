/*
NAME
  mts.go

DESCRIPTION
  mts.go demultiplexes an MPEG-2 transport stream: sync-byte validation, PID
  auto-latching onto the first EBU teletext PES seen, continuity-counter
  tracking, adaptation-field/PCR extraction, and PES reassembly into blobs
  ready for the PES framer.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mts demultiplexes MPEG-2 transport stream packets, reassembling
// the PES blobs carried on a single PID (user-specified or auto-latched)
// for handoff to package pes.
package mts

import (
	"github.com/pkg/errors"

	"github.com/Comcast/gots/v2/packet"

	"github.com/ausocean/utils/logging"
)

// PacketSize is the fixed length of an MPEG-2 transport stream packet.
const PacketSize = 188

// SyncByte begins every valid transport stream packet.
const SyncByte = 0x47

// pesBufCap bounds the PES reassembly buffer at roughly 4KiB, per the
// resource model's fixed-size accumulation buffer.
const pesBufCap = 4096

// streamIDPrivate1 is the PES stream id EBU teletext is carried on; used
// only to recognise a PID worth auto-latching onto.
const streamIDPrivate1 = 0xbd

// ErrBadSync is returned by Process when a packet does not begin with
// SyncByte; per the error-handling policy this is the one fatal case.
var ErrBadSync = errors.New("mts: bad sync byte")

// Stats accumulates demultiplexer counters for end-of-run reporting.
type Stats struct {
	PacketsRead      int
	SyncErrors       int
	TransportErrors  int
	ContinuityErrors int
	PESFramed        int
	PESOversize      int
}

// Demuxer reassembles the PES stream carried on one PID out of a sequence
// of transport packets.
type Demuxer struct {
	log logging.Logger

	pid        uint16
	pidLatched bool

	haveCC   bool
	expectCC byte

	buf       []byte
	buffering bool

	havePCR bool
	pcrBase int64
	pcrExt  int64

	// Handle receives one reassembled PES blob (the payload that followed
	// a payload-unit-start packet up to, but not including, the next one)
	// whenever the buffer flushes.
	Handle func(pes []byte)

	Stats Stats
}

// NewDemuxer returns a Demuxer. A non-zero pid pins the PID to demultiplex;
// zero auto-latches onto the first PUSI packet carrying an EBU teletext PES
// header.
func NewDemuxer(l logging.Logger, pid uint16) *Demuxer {
	return &Demuxer{log: l, pid: pid, pidLatched: pid != 0}
}

// PCR returns the most recently observed program clock reference, in
// 90kHz base ticks plus a 27MHz extension, and whether one has been seen.
func (d *Demuxer) PCR() (base, ext int64, ok bool) {
	return d.pcrBase, d.pcrExt, d.havePCR
}

// Process handles one 188-byte transport packet. raw must be exactly
// PacketSize bytes; ErrBadSync is the only error Process returns, as every
// other anomaly is handled per the non-fatal error policy and folded into
// Stats.
func (d *Demuxer) Process(raw []byte) error {
	if len(raw) != PacketSize || raw[0] != SyncByte {
		d.Stats.SyncErrors++
		return ErrBadSync
	}
	d.Stats.PacketsRead++

	if raw[1]&0x80 != 0 { // transport error indicator
		d.Stats.TransportErrors++
		d.logDebug("mts: transport error indicator set, skipping packet")
		return nil
	}

	var pkt packet.Packet
	copy(pkt[:], raw)

	di, havePCR, pcrBase, pcrExt := readAdaptation(raw)
	if havePCR {
		d.havePCR, d.pcrBase, d.pcrExt = true, pcrBase, pcrExt
	}

	pusi := pkt.PayloadUnitStartIndicator()
	pid := pkt.PID()
	payload, payloadErr := pkt.Payload()

	if !d.pidLatched {
		if pusi && payloadErr == nil && looksLikeTeletextPES(payload) {
			d.pid = pid
			d.pidLatched = true
			d.logDebug("mts: auto-latched PID")
		} else {
			return nil
		}
	}
	if pid != d.pid {
		return nil
	}

	// The continuity counter only advances for packets that carry a
	// payload (AFC bit 0x10); an adaptation-only (e.g. PCR-only) packet
	// legitimately repeats the previous counter and must not be treated
	// as a gap, nor touch the PES buffer at all.
	payloadExists := raw[3]&0x10 != 0
	if !payloadExists || payloadErr != nil {
		return nil
	}

	cc := byte(pkt.ContinuityCounter())
	if d.haveCC && !di && cc != d.expectCC {
		d.Stats.ContinuityErrors++
		d.resetBuffer()
		d.logDebug("mts: continuity counter gap, discarding buffered PES")
	}
	d.expectCC = (cc + 1) & 0x0f
	d.haveCC = true

	if pusi {
		d.flush()
		d.buffering = true
	}
	if !d.buffering {
		return nil
	}
	if len(d.buf)+len(payload) > pesBufCap {
		d.Stats.PESOversize++
		d.logDebug("mts: PES buffer overflow, dropping packet payload")
		return nil
	}
	d.buf = append(d.buf, payload...)
	return nil
}

// flush hands the buffered PES blob to Handle, if non-empty, and resets.
func (d *Demuxer) flush() {
	if d.buffering && len(d.buf) > 0 {
		if d.Handle != nil {
			d.Handle(append([]byte(nil), d.buf...))
		}
		d.Stats.PESFramed++
	}
	d.resetBuffer()
}

func (d *Demuxer) resetBuffer() {
	d.buf = d.buf[:0]
	d.buffering = false
}

func (d *Demuxer) logDebug(msg string) {
	if d.log != nil {
		d.log.Debug(msg)
	}
}

// looksLikeTeletextPES reports whether payload begins a PES packet on the
// private-stream-1 id teletext is carried on.
func looksLikeTeletextPES(payload []byte) bool {
	return len(payload) >= 4 &&
		payload[0] == 0x00 && payload[1] == 0x00 && payload[2] == 0x01 &&
		payload[3] == streamIDPrivate1
}

// readAdaptation parses the discontinuity flag and, if present, the PCR
// out of raw's adaptation field, per the octet layout documented for the
// transport packet header: AFL at octet 4, flags at octet 5, PCR (if
// flagged) across the following 6 octets. It only looks at those octets
// when the adaptation_field_control bits (raw[3]&0x20) say an adaptation
// field is actually present; otherwise octet 4 is a payload byte, not AFL.
func readAdaptation(raw []byte) (di, havePCR bool, pcrBase, pcrExt int64) {
	if len(raw) < 6 || raw[3]&0x20 == 0 {
		return
	}
	afl := int(raw[4])
	if afl == 0 {
		return
	}
	flags := raw[5]
	di = flags&0x80 != 0
	if flags&0x10 != 0 && len(raw) >= 12 {
		pcrBase, pcrExt = decodePCR(raw[6:12])
		havePCR = true
	}
	return
}

// decodePCR splits the 48-bit PCR field into its 33-bit 90kHz base and
// 9-bit 27MHz extension.
func decodePCR(b []byte) (base, ext int64) {
	base = int64(b[0])<<25 | int64(b[1])<<17 | int64(b[2])<<9 | int64(b[3])<<1 | int64(b[4]>>7)
	ext = int64(b[4]&0x01)<<8 | int64(b[5])
	return
}
