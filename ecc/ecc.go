/*
NAME
  ecc.go

DESCRIPTION
  ecc.go provides the error-correcting and character primitives that sit
  underneath the teletext decoding pipeline: Hamming(8,4) and
  Hamming(24,18) decoding, byte bit-reversal, odd-parity checking and
  Unicode scalar to UTF-8 encoding.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ecc implements the ETSI ETS 300 706 error-correcting codes and
// character primitives (Hamming(8,4), Hamming(24,18), parity, bit-reverse
// and UTF-8 encoding) that every higher layer of the teletext decoder
// relies on.
package ecc

import "github.com/ausocean/teletext/tables"

// Unham84 decodes a Hamming(8,4)-protected byte per ETS 300 706 chapter
// 8.2, returning the corrected data nibble and whether correction
// succeeded. Callers that don't need the validity bit can just use the
// nibble: an uncorrectable input decodes to zero.
func Unham84(b byte) (nibble byte, ok bool) {
	e := tables.Ham84[b]
	if e&tables.Ham84Uncorrectable != 0 {
		return 0, false
	}
	return e & 0x0f, true
}

// Unham2418 decodes a Hamming(24,18)-protected 24-bit word, given as three
// bytes least-significant byte first, per ETS 300 706 chapter 8.3.
// Returns the 18-bit decoded payload and whether correction succeeded.
func Unham2418(b0, b1, b2 byte) (data uint32, ok bool) {
	d1d4 := tables.Ham2418D1D4[b0>>2]
	d5d11 := b1 & 0x7f
	d12d18 := b2 & 0x7f
	d := uint32(d1d4) | uint32(d5d11)<<4 | uint32(d12d18)<<11

	syn := tables.Ham2418Par[0][b0] ^ tables.Ham2418Par[1][b1] ^ tables.Ham2418Par[2][b2]
	err := tables.Ham2418Err[syn]
	if err&tables.Ham2418Invalid != 0 {
		return 0, false
	}
	return d ^ err, true
}

// Reverse returns b with its bits in reverse order, since ETS 300 706
// transmits teletext bytes least-significant-bit first.
func Reverse(b byte) byte { return tables.Reverse8[b] }

// CheckParity reports whether b has odd total parity over all 8 bits, as
// required of a valid G0 byte whose bit 7 is the odd-parity check bit.
func CheckParity(b byte) bool { return tables.Parity[b] == 1 }

// EncodeRune appends the UTF-8 encoding of r (restricted to the Basic
// Multilingual Plane, as teletext never carries scalars beyond it) to dst
// and returns the number of bytes written.
func EncodeRune(dst []byte, r rune) int {
	switch {
	case r < 0x80:
		dst[0] = byte(r)
		return 1
	case r < 0x800:
		dst[0] = byte(r>>6) | 0xc0
		dst[1] = byte(r&0x3f) | 0x80
		return 2
	default:
		dst[0] = byte(r>>12) | 0xe0
		dst[1] = byte((r>>6)&0x3f) | 0x80
		dst[2] = byte(r&0x3f) | 0x80
		return 3
	}
}
