/*
NAME
  charset.go

DESCRIPTION
  charset.go implements the teletext character-set mapper: translation of
  raw, parity-checked G0 bytes to Unicode scalars, and the national-subset
  overlay that ETS 300 706 layers on top of the invariant Latin G0 table.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package charset maps raw teletext G0 bytes to Unicode scalars, applying
// the national-subset overlay selected by the page header's charset index.
package charset

import (
	"github.com/ausocean/teletext/ecc"
	"github.com/ausocean/teletext/tables"
)

// Mapper holds the mutable Latin G0 table for the currently-selected
// national subset, overlaid on the invariant tables.LatinG0Base. Use
// NewMapper: a zero Mapper has an all-zero table and treats subset 0 as
// already selected.
type Mapper struct {
	current int
	g0      [96]rune
}

// NewMapper returns a Mapper initialised to national subset 0.
func NewMapper() *Mapper {
	m := &Mapper{current: -1}
	m.SelectCharset(0)
	return m
}

// SelectCharset overlays the thirteen national-subset positions for index
// onto the Latin G0 table, if index differs from the currently-active
// subset. All other G0 cells are left at their invariant base value.
func (m *Mapper) SelectCharset(index int) {
	if index == m.current {
		return
	}
	m.g0 = tables.LatinG0Base
	row := tables.NationalSubsets[index%len(tables.NationalSubsets)]
	for i, pos := range tables.NationalPositions {
		m.g0[pos-0x20] = row[i]
	}
	m.current = index
}

// Current returns the currently-selected national-subset index.
func (m *Mapper) Current() int { return m.current }

// ToUCS decodes a raw teletext byte to its Unicode scalar. Any byte that
// fails the odd-parity check yields a space, control values included;
// otherwise the byte is masked to seven bits, values 0..31 are returned
// unchanged (callers interpret 0x0A/0x0B as structural markers), and values
// 0x20 and above are looked up in the currently-active Latin G0 table.
func (m *Mapper) ToUCS(b byte) rune {
	if !ecc.CheckParity(b) {
		return 0x20
	}
	b &= 0x7f
	if b < 0x20 {
		return rune(b)
	}
	return m.g0[b-0x20]
}
