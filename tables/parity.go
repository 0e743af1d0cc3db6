/*
NAME
  parity.go

DESCRIPTION
  parity.go builds the odd-parity check table and the byte bit-reverse
  table used when decoding raw teletext bytes off the wire.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tables

import "math/bits"

// Parity is a 256-entry table: Parity[b] is 1 if b, taken as a full byte
// with bit 7 as the odd-parity bit over bits 0..6, has odd total parity
// (i.e. is a validly-parity-checked G0 byte), 0 otherwise.
var Parity [256]byte

// Reverse8 is a 256-entry byte bit-reverse table, since ETS 300 706
// transmits teletext data bytes least-significant-bit first.
var Reverse8 [256]byte

func init() {
	for b := 0; b < 256; b++ {
		if bits.OnesCount8(byte(b))%2 == 1 {
			Parity[b] = 1
		}
		Reverse8[b] = bits.Reverse8(byte(b))
	}
}
