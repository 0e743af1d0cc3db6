/*
NAME
  page.go

DESCRIPTION
  page.go implements the teletext page buffer and the SRT cue renderer that
  turns a finalized page into a subtitle record.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package page holds the teletext page buffer (a 25x40 grid of decoded
// scalars, still carrying the 0x0A/0x0B structural markers) and the
// renderer that converts a finalized page into one SubRip cue.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/ausocean/teletext/ecc"
	"github.com/ausocean/teletext/tables"
)

// Rows is the number of rows in a page, numbered 0 (header, never
// rendered) through 24 (body).
const Rows = 25

// Cols is the number of columns in a page row.
const Cols = 40

// Buffer is a single teletext page: a grid of decoded scalars plus the
// show/hide timestamps (milliseconds since the stream's zero point) that
// bound its visibility.
type Buffer struct {
	Grid      [Rows][Cols]rune
	Show      int64
	Hide      int64
	Tainted   bool
	Receiving bool
}

// Reset clears the grid and show/hide timestamps and marks the buffer
// untainted, as done when a new matching page header arrives.
func (b *Buffer) Reset(show int64) {
	for r := range b.Grid {
		for c := range b.Grid[r] {
			b.Grid[r][c] = 0
		}
	}
	b.Show = show
	b.Hide = 0
	b.Tainted = false
}

// nonEmpty reports whether any body cell holds the 0x0B "start box" marker,
// scanning column-major to maximize the chance of an early hit, since
// boxed subtitle regions conventionally begin left-of-center.
func (b *Buffer) nonEmpty() bool {
	for col := 0; col < Cols; col++ {
		for row := 1; row < Rows; row++ {
			if b.Grid[row][col] == 0x0b {
				return true
			}
		}
	}
	return false
}

// Options controls cue rendering.
type Options struct {
	// Color enables <font color="..."> markup for spacing color attributes.
	// When false, color control cells are discarded like any other
	// sub-0x20 control code.
	Color bool
}

// Renderer writes SRT cues for finalized page buffers.
type Renderer struct {
	Options Options
}

// NewRenderer returns a Renderer with the given options.
func NewRenderer(opts Options) *Renderer { return &Renderer{Options: opts} }

// Render writes one SRT cue for buf to w and reports whether anything was
// written: a page with no boxed region produces no cue at all, per the
// "emit iff at least one cell holds 0x0B" rule.
func (r *Renderer) Render(w io.Writer, seq int, buf *Buffer) (wrote bool, err error) {
	if !buf.nonEmpty() {
		return false, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\n", seq)
	fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(buf.Show), formatTimestamp(buf.Hide))

	for row := 1; row < Rows; row++ {
		if !rowHasBox(buf.Grid[row]) {
			continue
		}
		sb.WriteString(renderRow(buf.Grid[row], r.Options.Color))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return false, err
	}
	return true, nil
}

func rowHasBox(row [Cols]rune) bool {
	for _, c := range row {
		if c == 0x0b {
			return true
		}
	}
	return false
}

// renderRow renders one body row per the cell-by-cell state machine: a
// boxed-region flag, a current foreground color (starting white), and a
// tracked open <font> tag.
func renderRow(row [Cols]rune, color bool) string {
	var sb strings.Builder
	inBox := false
	fg := byte(0x07)
	tagOpen := false

	closeTag := func() {
		if tagOpen {
			sb.WriteString("</font>")
			tagOpen = false
		}
	}

	for col := 0; col < Cols; col++ {
		if col == Cols-1 {
			// The last column is the end-of-row sentinel; its character
			// is never rendered, even a boxed printable glyph.
			closeTag()
			break
		}
		cell := row[col]
		switch {
		case cell >= 0x01 && cell <= 0x07:
			if color {
				closeTag()
				c := byte(cell)
				if c != fg {
					name := tables.ColorNames[c]
					if c == 0 {
						name = "white"
					}
					fmt.Fprintf(&sb, `<font color="%s">`, name)
					tagOpen = true
					fg = c
				} else {
					sb.WriteByte(' ')
				}
			}
		case cell == 0x0b:
			inBox = true
		case cell == 0x0a:
			inBox = false
			col = 38
			continue
		case cell < 0x20:
			// discard
		case inBox:
			var raw [3]byte
			n := ecc.EncodeRune(raw[:], cell)
			sb.Write(raw[:n])
		}
	}
	return sb.String()
}

// formatTimestamp renders milliseconds since the stream's zero point as
// an SRT timestamp, HH:MM:SS,mmm.
func formatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
