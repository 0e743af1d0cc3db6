/*
NAME
  charset.go

DESCRIPTION
  charset.go holds the Latin G0 character table, the national-subset
  overlay table, the G2 supplementary set and the G2 diacritical-mark
  overlays used to decode ETSI ETS 300 706 teletext text, plus the eight
  colour names used by the SRT renderer.

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

// LatinG0Base is the Latin G0 table for teletext positions 0x20..0x7f
// (96 entries), indexed by position-0x20, before any national-subset
// overlay is applied. It is the invariant base referred to by the
// "Cyclic mutation of charset tables" design note: callers never mutate
// this array, they compute an overlay lookup on top of it.
var LatinG0Base [96]rune

func init() {
	for i := range LatinG0Base {
		LatinG0Base[i] = rune(i + 0x20)
	}
}

// NationalPositions lists the 13 G0 offsets that a national subset
// replaces, per ETS 300 706: 0x23, 0x24, 0x40, 0x5b-0x60, 0x7b-0x7e.
var NationalPositions = [13]byte{
	0x23, 0x24, 0x40,
	0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60,
	0x7b, 0x7c, 0x7d, 0x7e,
}

// NationalSubsets holds the 13 replacement runes for each of the national
// option sub-sets defined by ETS 300 706 table 36, indexed in the same
// order as NationalPositions. Index 0 is the English subset, which also
// replaces all thirteen positions (£, ←, ½, ... in place of #, [, \, ...);
// the remainder give
// a representative, idiomatically useful subset of the language variants
// actually in broadcast use.
var NationalSubsets = [13][13]rune{
	0:  {'£', '$', '@', '←', '½', '→', '↑', '#', '—', '¼', '‖', '¾', '÷'}, // English
	1:  {'#', '$', '§', 'Ä', 'Ö', 'Ü', '^', '_', '°', 'ä', 'ö', 'ü', 'ß'}, // German
	2:  {'£', '$', 'é', 'ï', 'à', 'ë', 'ê', 'ù', 'î', '#', 'è', 'â', 'ô'}, // French
	3:  {'#', '¤', 'É', 'Ä', 'Ö', 'Å', 'Ü', '_', 'é', 'ä', 'ö', 'å', 'ü'}, // Swedish/Finnish/Hungarian
	4:  {'£', '$', 'é', '°', 'ç', '»', '«', 'ù', 'à', '#', 'è', 'ì', 'ò'}, // Italian
	5:  {'ç', '$', 'á', 'é', 'í', 'ó', 'ú', '¿', 'ü', '¡', 'é', 'ñ', 'è'}, // Spanish/Portuguese
	6:  {'#', 'ů', 'č', 'ť', 'ž', 'ý', 'í', 'ř', 'é', 'á', 'ě', 'ú', 'š'}, // Czech/Slovak
	7:  {'#', 'ł', 'ą', 'ż', 'ś', 'ź', 'ć', 'ó', 'ę', 'ń', 'ą', 'ć', 'ż'}, // Polish
	8:  {'#', '¤', 'Š', 'Ä', 'Ö', 'Ž', 'Ü', '_', 'š', 'ä', 'ö', 'ž', 'ü'}, // Baltic
	9:  {'#', 'ő', 'č', 'ć', 'ž', 'đ', 'š', 'ë', 'đ', 'č', 'š', 'ž', 'ć'}, // Serbian/Croatian/Slovenian
	10: {'£', '$', '@', 'Ş', 'İ', 'Ç', 'Ü', 'Ğ', 'Ö', 'ş', 'ı', 'ç', 'ü'}, // Turkish
	11: {'#', '¤', 'Ë', 'Â', 'Ş', 'Ţ', 'Î', 'Ş', 'Ă', 'â', 'ş', 'ă', 'î'}, // Romanian
	12: {'£', '$', '@', '[', '\\', ']', '^', '_', '#', 'à', 'ò', 'è', 'ì'}, // Default fallback variant
}

// G2 is the supplementary character set (ETS 300 706 table 30), indexed
// by (codepoint - 0x20); positions without an assigned G2 symbol hold the
// space character.
var G2 [96]rune

func init() {
	for i := range G2 {
		G2[i] = ' '
	}
	// A small, representative set of commonly-used G2 symbols.
	set := map[byte]rune{
		0x21: '¡', 0x22: '¢', 0x23: '£', 0x24: '$', 0x25: '¥',
		0x26: '#', 0x27: '§', 0x28: '¤', 0x2a: '“', 0x2c: '‘',
		0x2d: '”', 0x2e: '’', 0x40: '−', 0x5c: '¼', 0x5e: '‰',
		0x60: '¾', 0x7c: '÷', 0x7f: '█',
	}
	for pos, r := range set {
		G2[pos-0x20] = r
	}
}

// G2Accents holds the diacritical-mark overlays addressed by X/26 packets
// with mode 0x11..0x1f. Row index is mode-0x11; columns 0..25 give the
// accented uppercase letter for A..Z, columns 26..51 the accented
// lowercase letter for a..z (matching the 71-offset used to index
// lowercase letters into the same row as their uppercase counterpart).
// Marks without a meaningful accent defined here fall back to the bare
// letter, per ETS 300 706 Presentation Level 1.5's limited repertoire.
var G2Accents [16][52]rune

func init() {
	upper := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower := "abcdefghijklmnopqrstuvwxyz"
	for row := range G2Accents {
		for i, c := range upper {
			G2Accents[row][i] = c
		}
		for i, c := range lower {
			G2Accents[row][26+i] = c
		}
	}

	type accent struct {
		mode  byte
		upper map[rune]rune
		lower map[rune]rune
	}
	accents := []accent{
		{0x11, map[rune]rune{'A': 'Á', 'E': 'É', 'I': 'Í', 'O': 'Ó', 'U': 'Ú', 'Y': 'Ý'},
			map[rune]rune{'a': 'á', 'e': 'é', 'i': 'í', 'o': 'ó', 'u': 'ú', 'y': 'ý'}}, // acute
		{0x12, map[rune]rune{'A': 'À', 'E': 'È', 'I': 'Ì', 'O': 'Ò', 'U': 'Ù'},
			map[rune]rune{'a': 'à', 'e': 'è', 'i': 'ì', 'o': 'ò', 'u': 'ù'}}, // grave
		{0x13, map[rune]rune{'A': 'Â', 'E': 'Ê', 'I': 'Î', 'O': 'Ô', 'U': 'Û'},
			map[rune]rune{'a': 'â', 'e': 'ê', 'i': 'î', 'o': 'ô', 'u': 'û'}}, // circumflex
		{0x14, map[rune]rune{'A': 'Ã', 'N': 'Ñ', 'O': 'Õ'},
			map[rune]rune{'a': 'ã', 'n': 'ñ', 'o': 'õ'}}, // tilde
		{0x15, map[rune]rune{'A': 'Ä', 'E': 'Ë', 'I': 'Ï', 'O': 'Ö', 'U': 'Ü'},
			map[rune]rune{'a': 'ä', 'e': 'ë', 'i': 'ï', 'o': 'ö', 'u': 'ü'}}, // diaeresis
		{0x17, map[rune]rune{'A': 'Å', 'U': 'Ů'},
			map[rune]rune{'a': 'å', 'u': 'ů'}}, // ring above
		{0x18, map[rune]rune{'C': 'Ç', 'S': 'Ş'},
			map[rune]rune{'c': 'ç', 's': 'ş'}}, // cedilla
	}
	for _, a := range accents {
		row := int(a.mode) - 0x11
		for i, c := range upper {
			if r, ok := a.upper[c]; ok {
				G2Accents[row][i] = r
			}
		}
		for i, c := range lower {
			if r, ok := a.lower[c]; ok {
				G2Accents[row][26+i] = r
			}
		}
	}
}

// ColorNames are the eight teletext spacing-attribute colours, in
// control-byte order (index == control value), per ETS 300 706 chapter
// 12.2. Index 0 (black) is mapped to "white" by renderer policy rather
// than here, so that the table stays a faithful transcription of the
// standard's names.
var ColorNames = [8]string{
	"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
}
