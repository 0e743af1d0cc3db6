/*
NAME
  packet.go

DESCRIPTION
  packet.go implements the teletext packet decoder: the page-header, body-row
  and X/26 overlay state machine described by ETSI ETS 300 706, sitting
  between the PES framer (which supplies bit-reversed 44-byte packets) and
  the page buffer/renderer.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package packet decodes individual teletext packets (page headers, body
// rows, X/26 overlays and broadcast service data) into a running page
// buffer, handing finalized pages off to a caller-supplied renderer.
package packet

import (
	"github.com/ausocean/utils/logging"

	"github.com/ausocean/teletext/charset"
	"github.com/ausocean/teletext/ecc"
	"github.com/ausocean/teletext/page"
	"github.com/ausocean/teletext/tables"
)

// Data-unit identifiers, per ETS 300 706 / EN 300 472 annex A.
const (
	DataUnitEBUTeletextNonSubtitle = 0x02
	DataUnitEBUTeletextSubtitle    = 0x03
)

// frameIntervalMs is one frame at 25fps, subtracted from the hide
// timestamp of a finalizing page so consecutive cues don't visually
// overlap.
const frameIntervalMs = 40

// Decoder holds the running state of the packet state machine: the
// configured (or auto-latched) page, the current page buffer, and the
// national-subset mapper.
type Decoder struct {
	log logging.Logger

	// page is the configured subtitle page, (magazine<<8 | subpage-low).
	// Zero means "not yet pinned"; Process will auto-latch the first
	// subtitle-flagged page it sees.
	page        int
	autoLatched bool
	ccMap       [8]bool

	mapper     *charset.Mapper
	charset    int
	serial     bool
	buf        page.Buffer
	notice2829 bool

	bsdDone bool

	// OnPage is called whenever a tainted page buffer is finalized (its
	// hide timestamp has just been set). The callback owns buf from that
	// point and should render or copy it before returning.
	OnPage func(buf *page.Buffer)

	// OnBSD is called once, the first time a format-1 broadcast service
	// data packet (Y=30, magazine 8) is decoded.
	OnBSD func(programID string, epoch int64)

	// OnNotice is called once, the first time a Y=28/29 enhancement-data
	// packet is seen and logged as unimplemented.
	OnNotice func()
}

// NewDecoder returns a Decoder configured for the given page number (0 to
// auto-latch on the first subtitle-flagged header seen).
func NewDecoder(l logging.Logger, pg int) *Decoder {
	return &Decoder{
		log:    l,
		page:   pg,
		mapper: charset.NewMapper(),
	}
}

// Receiving reports whether the decoder is currently inside a matching
// subtitle transmission.
func (d *Decoder) Receiving() bool { return d.buf.Receiving }

// magazineRow Hamming-decodes the two address bytes of a teletext packet
// into a magazine (1..8) and row (0..31): the two decoded nibbles combine
// into an 8-bit address whose low 3 bits give the magazine (0 meaning 8)
// and next 5 bits give the row.
func magazineRow(b0, b1 byte) (magazine, row int) {
	n0, _ := ecc.Unham84(b0)
	n1, _ := ecc.Unham84(b1)
	address := n1<<4 | n0
	magazine = int(address & 0x07)
	if magazine == 0 {
		magazine = 8
	}
	row = int(address>>3) & 0x1f
	return magazine, row
}

// Process decodes one bit-reversed teletext packet (44 bytes: a leading
// clock-run-in byte and framing code, followed by 2 address bytes and 40
// data bytes) arriving at timestamp milliseconds.
func (d *Decoder) Process(dataUnitID byte, pkt []byte, timestamp int64) {
	if len(pkt) < 44 {
		return
	}
	magazine, row := magazineRow(pkt[2], pkt[3])
	data := pkt[4:44]

	switch {
	case row == 0:
		d.header(magazine, data, dataUnitID, timestamp)
	case row >= 1 && row <= 23:
		d.body(magazine, row, data, dataUnitID)
	case row == 26:
		d.overlay(magazine, data, dataUnitID)
	case row == 28 || row == 29:
		d.notice()
	case row == 30 && magazine == 8:
		d.bsd(data)
	}
}

func unhamByte(b byte) byte {
	n, _ := ecc.Unham84(b)
	return n
}

// header handles Y=0 page-header packets.
func (d *Decoder) header(magazine int, data []byte, dataUnitID byte, timestamp int64) {
	subpageLow := unhamByte(data[1])<<4 | unhamByte(data[0])
	subtitleFlag := unhamByte(data[5])&0x08 != 0

	if magazine >= 1 && magazine <= 8 {
		d.ccMap[magazine-1] = subtitleFlag
	}
	if d.page == 0 && !d.autoLatched && subtitleFlag {
		d.page = magazine<<8 | int(subpageLow)
		d.autoLatched = true
	}

	if dataUnitID != DataUnitEBUTeletextSubtitle {
		return
	}

	full := magazine<<8 | int(subpageLow)
	if full != d.page {
		d.buf.Receiving = false
		return
	}

	d.serial = unhamByte(data[7])&0x01 != 0
	newCharset := int((unhamByte(data[7]) >> 1) & 0x07)

	if d.buf.Tainted {
		d.finalize(timestamp)
	}

	d.buf.Reset(timestamp)
	d.buf.Receiving = true

	if newCharset != d.charset {
		d.charset = newCharset
		d.mapper.SelectCharset(newCharset)
	}

	if unhamByte(data[6])&0x01 == 0 {
		for col := 14; col < page.Cols; col++ {
			d.buf.Grid[0][col] = d.mapper.ToUCS(data[col])
		}
	}
}

// finalize sets buf's hide timestamp and hands it to OnPage.
func (d *Decoder) finalize(timestamp int64) {
	d.buf.Hide = timestamp - frameIntervalMs
	if d.OnPage != nil {
		cp := d.buf
		d.OnPage(&cp)
	}
}

// body handles Y=1..23 body-row packets on the configured magazine.
func (d *Decoder) body(magazine, row int, data []byte, dataUnitID byte) {
	if magazine != d.page>>8 {
		return
	}
	if d.serial && dataUnitID != DataUnitEBUTeletextSubtitle {
		return
	}
	if !d.buf.Receiving {
		return
	}
	for col := 0; col < page.Cols && col < len(data); col++ {
		if d.buf.Grid[row][col] != 0 {
			continue
		}
		d.buf.Grid[row][col] = d.mapper.ToUCS(data[col])
	}
	d.buf.Tainted = true
}

// overlay handles Y=26 X/26 local-overlay packets on the configured
// magazine. The active row addressed by mode-0x04 is local to a single
// packet: ETS 300 706 annex B.2.2 guarantees X/26 packets are transmitted
// before the Y=1..25 body rows they overlay, so there is no cross-packet
// addressing state to carry forward.
func (d *Decoder) overlay(magazine int, data []byte, dataUnitID byte) {
	if magazine != d.page>>8 {
		return
	}
	if d.serial && dataUnitID != DataUnitEBUTeletextSubtitle {
		return
	}
	if !d.buf.Receiving {
		return
	}
	row := 0
	for k := 0; k < 13; k++ {
		off := 1 + 3*k
		if off+2 >= len(data) {
			break
		}
		decoded, ok := ecc.Unham2418(data[off], data[off+1], data[off+2])
		if !ok {
			decoded = 0
		}
		addr := int(decoded & 0x3f)
		mode := int((decoded >> 6) & 0x1f)
		dat := byte((decoded >> 11) & 0x7f)
		rowGroup := addr >= 40 && addr <= 63

		switch {
		case mode == 0x04 && rowGroup:
			r := addr - 40
			if r == 0 {
				r = 24
			}
			row = r
		case mode >= 0x11 && mode <= 0x1f && rowGroup:
			return
		case mode == 0x0f && !rowGroup:
			if dat > 31 {
				d.writeCell(row, addr, tables.G2[dat-32])
			}
		case mode >= 0x11 && mode <= 0x1f && !rowGroup:
			var r rune
			switch {
			case dat >= 'A' && dat <= 'Z':
				r = tables.G2Accents[mode-0x11][dat-'A']
			case dat >= 'a' && dat <= 'z':
				r = tables.G2Accents[mode-0x11][dat-'a'+26]
			default:
				r = d.mapper.ToUCS(dat)
			}
			d.writeCell(row, addr, r)
		}
	}
}

// writeCell writes an overlay character. Unlike the Y=1..23 body-row
// path, X/26 overlays do not themselves mark the page tainted: only a
// subsequent body-row packet (for any row) does that, since X/26 packets
// always precede the body rows they overlay.
func (d *Decoder) writeCell(row, col int, r rune) {
	if row < 0 || row >= page.Rows || col < 0 || col >= page.Cols {
		return
	}
	d.buf.Grid[row][col] = r
}

// notice logs a one-time "not implemented" notice for Y=28/29 packets,
// which carry display/DRCS and enhancement data this decoder doesn't
// interpret.
func (d *Decoder) notice() {
	if d.notice2829 {
		return
	}
	d.notice2829 = true
	if d.log != nil {
		d.log.Info("teletext packets Y=28/29 (enhancement data) are not implemented")
	}
	if d.OnNotice != nil {
		d.OnNotice()
	}
}

// bsd handles Y=30 magazine-8 broadcast service data packets, decoding a
// format-1 packet exactly once per stream.
func (d *Decoder) bsd(data []byte) {
	if d.bsdDone || len(data) < 40 {
		return
	}
	if unhamByte(data[0]) >= 2 {
		return
	}
	d.bsdDone = true

	var id []byte
	var buf [3]byte
	for i := 20; i < 40; i++ {
		n := ecc.EncodeRune(buf[:], d.mapper.ToUCS(data[i]))
		id = append(id, buf[:n]...)
	}

	epoch := decodeMJDBCD(data[10:16])

	if d.OnBSD != nil {
		d.OnBSD(string(id), epoch)
	}
}

// mjdBCDOffset corrects for ETS 300 706's convention of incrementing each
// transmitted decimal digit by one.
const mjdBCDOffset = 11111

// mjdEpochBase is the Modified Julian Day of the Unix epoch (1970-01-01).
const mjdEpochBase = 40587

// bsdEpochCorrection is a fixed offset applied to the decoded BSD
// timestamp. ETS 300 706 chapter 9.8.1 does not document its origin;
// broadcast streams observed in the wild require it to land on the
// correct UTC second, so it is kept as an unexplained corrective constant.
const bsdEpochCorrection = 40271

// decodeMJDBCD decodes the 6-byte field (packet data bytes 10..15) that
// ETS 300 706 chapter 9.8.1 packs a Modified Julian Date plus BCD
// hours/minutes/seconds into, returning a UNIX epoch second count. Every
// transmitted decimal digit is incremented by one before transmission, so
// the assembled MJD is corrected by mjdBCDOffset before conversion.
func decodeMJDBCD(b []byte) int64 {
	mjd := int64(b[0]&0x0f)*10000 +
		int64((b[1]&0xf0)>>4)*1000 +
		int64(b[1]&0x0f)*100 +
		int64((b[2]&0xf0)>>4)*10 +
		int64(b[2]&0x0f)
	mjd -= mjdBCDOffset

	epoch := (mjd - mjdEpochBase) * 86400
	epoch += 3600 * (int64((b[3]&0xf0)>>4)*10 + int64(b[3]&0x0f))
	epoch += 60 * (int64((b[4]&0xf0)>>4)*10 + int64(b[4]&0x0f))
	epoch += int64((b[5]&0xf0)>>4)*10 + int64(b[5]&0x0f)
	epoch -= bsdEpochCorrection
	return epoch
}
