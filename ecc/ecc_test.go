/*
NAME
  ecc_test.go

DESCRIPTION
  ecc_test.go tests the error-correcting and character primitives in ecc.go.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ecc

import (
	"testing"

	"github.com/ausocean/teletext/tables"
)

// TestUnham84RoundTrip checks that every valid Hamming(8,4) codeword
// decodes to the nibble it was built from, with no error flagged.
func TestUnham84RoundTrip(t *testing.T) {
	for d := 0; d < 16; d++ {
		// Find a byte whose table entry recovers d cleanly; we derive it
		// from the table itself rather than duplicating the encoder here.
		var found bool
		for b := 0; b < 256; b++ {
			nibble, ok := Unham84(byte(b))
			if ok && nibble == byte(d) && tables.Ham84[b] == byte(d) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no codeword found that decodes cleanly to nibble %d", d)
		}
	}
}

// TestUnham84Uncorrectable checks that every byte whose table entry carries
// the uncorrectable marker decodes with ok == false, and that at least one
// such byte exists.
func TestUnham84Uncorrectable(t *testing.T) {
	var uncorrectable int
	for b := 0; b < 256; b++ {
		if tables.Ham84[b]&tables.Ham84Uncorrectable != 0 {
			uncorrectable++
			if _, ok := Unham84(byte(b)); ok {
				t.Errorf("Unham84(%#x): expected uncorrectable, got ok", b)
			}
		}
	}
	if uncorrectable == 0 {
		t.Fatal("expected at least one uncorrectable byte in the 256-entry space")
	}
}

// TestUnham2418RoundTrip checks that unham_24_18(encode(d)) == d for a
// sample of 18-bit data values (every 37th), with no error flagged.
func TestUnham2418RoundTrip(t *testing.T) {
	// Exhaustive over 2^18 values is fast enough, but we sample to keep the
	// test quick and still representative.
	for d := uint32(0); d < 1<<18; d += 37 {
		cw := tables.Ham2418Encode(d)
		got, ok := Unham2418(cw[0], cw[1], cw[2])
		if !ok {
			t.Fatalf("Unham2418(encode(%d)): unexpected uncorrectable", d)
		}
		if got != d {
			t.Fatalf("Unham2418(encode(%d)) = %d, want %d", d, got, d)
		}
	}
}

// TestUnham2418SingleBitCorrection checks that flipping any one bit of a
// valid codeword still recovers the original data.
func TestUnham2418SingleBitCorrection(t *testing.T) {
	for _, d := range []uint32{0, 1, 0x3ffff, 0x15555, 0x2aaaa} {
		cw := tables.Ham2418Encode(d)
		for bit := 0; bit < 24; bit++ {
			corrupt := cw
			corrupt[bit/8] ^= 1 << uint(bit%8)
			got, ok := Unham2418(corrupt[0], corrupt[1], corrupt[2])
			if !ok {
				t.Errorf("d=%d bit=%d: expected correction, got uncorrectable", d, bit)
				continue
			}
			if got != d {
				t.Errorf("d=%d bit=%d: got %d, want %d", d, bit, got, d)
			}
		}
	}
}

// TestReverseInvolution checks that bitreverse(bitreverse(b)) == b for
// every byte.
func TestReverseInvolution(t *testing.T) {
	for b := 0; b < 256; b++ {
		if got := Reverse(Reverse(byte(b))); got != byte(b) {
			t.Errorf("Reverse(Reverse(%#x)) = %#x, want %#x", b, got, b)
		}
	}
}

// TestCheckParity spot-checks known odd/even-parity bytes.
func TestCheckParity(t *testing.T) {
	cases := []struct {
		b  byte
		ok bool
	}{
		{0x00, false}, // 0 bits set: even
		{0x01, true},  // 1 bit set: odd
		{0x03, false}, // 2 bits set: even
		{0x07, true},  // 3 bits set: odd
		{0x80, true},  // 1 bit set: odd
		{0xff, false}, // 8 bits set: even
	}
	for _, c := range cases {
		if got := CheckParity(c.b); got != c.ok {
			t.Errorf("CheckParity(%#x) = %v, want %v", c.b, got, c.ok)
		}
	}
}

// TestEncodeRune checks the three UTF-8 length classes.
func TestEncodeRune(t *testing.T) {
	cases := []struct {
		r    rune
		want []byte
	}{
		{'A', []byte{0x41}},
		{'Ä', []byte{0xc3, 0x84}},
		{'€', []byte{0xe2, 0x82, 0xac}},
	}
	for _, c := range cases {
		buf := make([]byte, 3)
		n := EncodeRune(buf, c.r)
		got := buf[:n]
		if len(got) != len(c.want) {
			t.Fatalf("EncodeRune(%q): got %d bytes, want %d", c.r, len(got), len(c.want))
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("EncodeRune(%q)[%d] = %#x, want %#x", c.r, i, got[i], c.want[i])
			}
		}
	}
}
