/*
NAME
  mts_test.go

DESCRIPTION
  mts_test.go tests transport-stream demultiplexing: sync validation, PID
  auto-latching, continuity tracking and PES reassembly in mts.go.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package mts

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/utils/logging"
)

// buildPacket constructs a payload-only (no adaptation field) transport
// packet for the given PID, PUSI flag and continuity counter.
func buildPacket(pid uint16, pusi bool, cc byte, payload []byte) []byte {
	raw := make([]byte, PacketSize)
	raw[0] = SyncByte
	raw[1] = byte(pid>>8) & 0x1f
	if pusi {
		raw[1] |= 0x40
	}
	raw[2] = byte(pid)
	raw[3] = 0x10 | (cc & 0x0f) // AFC = 01: payload only
	copy(raw[4:], payload)
	return raw
}

// buildPacketWithAdaptation constructs a packet carrying an adaptation
// field with the discontinuity flag and, optionally, a PCR.
func buildPacketWithAdaptation(pid uint16, cc byte, di bool, pcrBase, pcrExt int64, havePCR bool) []byte {
	raw := make([]byte, PacketSize)
	raw[0] = SyncByte
	raw[1] = byte(pid>>8) & 0x1f
	raw[2] = byte(pid)
	raw[3] = 0x30 | (cc & 0x0f) // AFC = 11: adaptation field + payload

	flags := byte(0)
	if di {
		flags |= 0x80
	}
	afl := 1
	if havePCR {
		flags |= 0x10
		afl += 6
	}
	raw[4] = byte(afl)
	raw[5] = flags
	if havePCR {
		pcr48 := uint64(pcrBase)<<15 | uint64(0x3f)<<9 | uint64(pcrExt)
		for i := 0; i < 6; i++ {
			raw[6+i] = byte(pcr48 >> uint(40-8*i))
		}
	}
	return raw
}

var teletextPrefix = []byte{0x00, 0x00, 0x01, 0xbd, 0x00, 0x2c}

func TestProcessRejectsBadSync(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	raw := buildPacket(0x100, false, 0, nil)
	raw[0] = 0x00
	if err := d.Process(raw); err != ErrBadSync {
		t.Errorf("err = %v, want ErrBadSync", err)
	}
	if d.Stats.SyncErrors != 1 {
		t.Errorf("SyncErrors = %d, want 1", d.Stats.SyncErrors)
	}
}

func TestProcessRejectsWrongLength(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	if err := d.Process(make([]byte, 10)); err != ErrBadSync {
		t.Errorf("err = %v, want ErrBadSync", err)
	}
}

func TestPIDAutoLatch(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0)
	payload := append(append([]byte{}, teletextPrefix...), make([]byte, 40)...)
	if err := d.Process(buildPacket(0x44, true, 0, payload)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !d.pidLatched || d.pid != 0x44 {
		t.Fatalf("pid = %#x, latched = %v, want 0x44, true", d.pid, d.pidLatched)
	}
}

func TestPIDAutoLatchIgnoresOtherPayloads(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0)
	payload := make([]byte, 184)
	if err := d.Process(buildPacket(0x44, true, 0, payload)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if d.pidLatched {
		t.Fatal("expected no auto-latch for a non-teletext payload")
	}
}

func TestTransportErrorSkipped(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	raw := buildPacket(0x100, false, 0, nil)
	raw[1] |= 0x80
	if err := d.Process(raw); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if d.Stats.TransportErrors != 1 {
		t.Errorf("TransportErrors = %d, want 1", d.Stats.TransportErrors)
	}
}

func TestPESReassemblyAcrossPackets(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	var got []byte
	d.Handle = func(pes []byte) { got = pes }

	part1 := append(append([]byte{}, teletextPrefix...), make([]byte, 178)...)
	part2 := make([]byte, 50)
	for i := range part2 {
		part2[i] = byte(i)
	}

	if err := d.Process(buildPacket(0x100, true, 0, part1)); err != nil {
		t.Fatalf("Process part1: %v", err)
	}
	if err := d.Process(buildPacket(0x100, false, 1, part2)); err != nil {
		t.Fatalf("Process part2: %v", err)
	}
	// Flush happens on the next PUSI.
	if err := d.Process(buildPacket(0x100, true, 2, make([]byte, 184))); err != nil {
		t.Fatalf("Process flush trigger: %v", err)
	}

	// Each packet contributes its whole 184-byte payload, zero padding
	// included; part2 is padded out to a full payload by buildPacket.
	wantLen := len(part1) + (PacketSize - 4)
	if len(got) != wantLen {
		t.Fatalf("flushed PES len = %d, want %d", len(got), wantLen)
	}
	if d.Stats.PESFramed != 1 {
		t.Errorf("PESFramed = %d, want 1", d.Stats.PESFramed)
	}
}

// TestContinuityGap reproduces the documented scenario: continuity
// counters 3,4,6 on the chosen PID discard the buffer built across 3->4,
// and processing resumes cleanly on the next payload-unit-start.
func TestContinuityGap(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	var flushes int
	var got []byte
	d.Handle = func(pes []byte) { flushes++; got = pes }

	start := append(append([]byte{}, teletextPrefix...), make([]byte, 178)...)
	mustProcess(t, d, buildPacket(0x100, true, 3, start))
	mustProcess(t, d, buildPacket(0x100, false, 4, make([]byte, 100)))
	// Gap: cc jumps from 5 (expected) to 6.
	mustProcess(t, d, buildPacket(0x100, false, 6, make([]byte, 10)))

	if d.Stats.ContinuityErrors != 1 {
		t.Fatalf("ContinuityErrors = %d, want 1", d.Stats.ContinuityErrors)
	}
	if d.buffering {
		t.Fatal("expected buffering to be false after a continuity gap discards the buffer")
	}

	next := append(append([]byte{}, teletextPrefix...), make([]byte, 10)...)
	mustProcess(t, d, buildPacket(0x100, true, 7, next))
	mustProcess(t, d, buildPacket(0x100, true, 8, make([]byte, 184)))

	if flushes != 1 {
		t.Fatalf("flushes = %d, want 1 (the gap-discarded PES must not be delivered)", flushes)
	}
	// The delivered PES is the one full 184-byte payload of the cc=7 packet
	// (next, zero-padded by buildPacket).
	if len(got) != PacketSize-4 {
		t.Errorf("flushed len = %d, want %d", len(got), PacketSize-4)
	}
}

func mustProcess(t *testing.T, d *Demuxer, raw []byte) {
	t.Helper()
	if err := d.Process(raw); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestContinuityToleratesDiscontinuityFlag(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	mustProcess(t, d, buildPacket(0x100, true, 0, teletextPrefix))
	mustProcess(t, d, buildPacketWithAdaptation(0x100, 5, true, 0, 0, false))
	if d.Stats.ContinuityErrors != 0 {
		t.Errorf("ContinuityErrors = %d, want 0 when discontinuity flag is set", d.Stats.ContinuityErrors)
	}
}

func TestPCRExtraction(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	mustProcess(t, d, buildPacketWithAdaptation(0x100, 0, false, 180000, 123, true))

	base, ext, ok := d.PCR()
	if !ok {
		t.Fatal("PCR ok = false, want true")
	}
	if base != 180000 || ext != 123 {
		t.Errorf("PCR = (%d, %d), want (180000, 123)", base, ext)
	}
}

// TestStatsAfterMixedPacketRun checks the whole Stats snapshot at once
// rather than field by field, covering every counter a short run touches.
// The transport-error packet is skipped before its continuity counter is
// recorded, so the next packet's counter appears to jump and is flagged as
// a gap, discarding the first packet's buffered payload before it ever
// flushes.
func TestStatsAfterMixedPacketRun(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	mustProcess(t, d, buildPacket(0x100, true, 0, teletextPrefix))
	bad := buildPacket(0x100, false, 1, nil)
	bad[1] |= 0x80
	mustProcess(t, d, bad)
	mustProcess(t, d, buildPacket(0x100, true, 2, make([]byte, 184)))

	want := Stats{PacketsRead: 3, TransportErrors: 1, ContinuityErrors: 1}
	if diff := cmp.Diff(want, d.Stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

func TestPESOversizeDropped(t *testing.T) {
	d := NewDemuxer((*logging.TestLogger)(t), 0x100)
	var flushes int
	d.Handle = func(pes []byte) { flushes++ }

	mustProcess(t, d, buildPacket(0x100, true, 0, teletextPrefix))
	big := make([]byte, 184)
	cc := byte(1)
	for i := 0; i < 40; i++ {
		mustProcess(t, d, buildPacket(0x100, false, cc, big))
		cc = (cc + 1) & 0x0f
	}
	if d.Stats.PESOversize == 0 {
		t.Error("expected at least one PESOversize drop")
	}
}
