/*
NAME
  extract.go

DESCRIPTION
  extract.go wires the transport demultiplexer, PES framer, teletext packet
  decoder and page renderer into the single synchronous pull loop that reads
  a raw MPEG-2 transport stream and writes a SubRip subtitle file.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package extract orchestrates packages mts, pes, packet and page into the
// end-to-end TS-to-SRT pipeline, and reports the run's observability
// counters.
package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/teletext/mts"
	"github.com/ausocean/teletext/packet"
	"github.com/ausocean/teletext/page"
	"github.com/ausocean/teletext/pes"
)

// placeholderCue is emitted when a run produces no cues and the caller
// requested non-empty output.
const placeholderCue = "1\r\n00:00:00,000 --> 00:00:01,000\r\n(no closed captioning available)\r\n\r\n"

// bom is the UTF-8 byte order mark written at the start of output unless
// suppressed.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Config configures an Extractor.
type Config struct {
	// Page is the configured subtitle page (magazine<<8 | subpage-low); 0
	// auto-latches on the first subtitle-flagged header seen.
	Page int
	// PID pins the transport stream PID to demultiplex; 0 auto-latches
	// onto the first payload-unit-start packet carrying an EBU teletext
	// PES header.
	PID uint16
	// OffsetMs shifts every cue's show/hide timestamps.
	OffsetMs int64
	// Color enables <font color="..."> markup in rendered cues.
	Color bool
	// SuppressBOM omits the leading UTF-8 byte order mark.
	SuppressBOM bool
	// PlaceholderOnEmpty writes a single placeholder cue if the run
	// produces none.
	PlaceholderOnEmpty bool
}

// Stats accumulates the run's observability counters, reported once at the
// end of Run.
type Stats struct {
	PacketsRead          int
	SyncErrors           int
	TransportErrors      int
	ContinuityErrors     int
	PESFramed            int
	PESOversize          int
	CuesEmitted          int
	UnimplementedNotices int
}

// flusher is implemented by output writers (e.g. *bufio.Writer)
// that support an explicit flush after each rendered cue.
type flusher interface {
	Flush() error
}

// Extractor runs the demultiplex -> frame -> decode -> render pipeline
// over a raw transport stream.
type Extractor struct {
	log logging.Logger
	cfg Config

	demux    *mts.Demuxer
	framer   *pes.Framer
	decoder  *packet.Decoder
	renderer *page.Renderer

	out io.Writer

	seq                  int
	wroteAny             bool
	unimplementedNotices int
}

// New returns an Extractor configured per cfg.
func New(l logging.Logger, cfg Config) *Extractor {
	e := &Extractor{
		log:      l,
		cfg:      cfg,
		demux:    mts.NewDemuxer(l, cfg.PID),
		framer:   pes.NewFramer(cfg.OffsetMs),
		decoder:  packet.NewDecoder(l, cfg.Page),
		renderer: page.NewRenderer(page.Options{Color: cfg.Color}),
		seq:      1,
	}

	e.decoder.OnPage = e.onPage
	e.decoder.OnNotice = e.onNotice
	e.framer.Handle = e.decoder.Process
	e.demux.Handle = e.onPES
	return e
}

// onNotice counts each distinct unimplemented-feature notice the decoder
// logs (currently just the one-time Y=28/29 notice).
func (e *Extractor) onNotice() {
	e.unimplementedNotices++
}

// onPES forwards one reassembled PES blob to the framer, supplying the
// current PCR for streams that carry no PTS.
func (e *Extractor) onPES(blob []byte) {
	base, ext, havePCR := e.demux.PCR()
	e.framer.Process(blob, pes.PCR{Base: base, Ext: ext}, havePCR)
}

// onPage renders a finalized page buffer as one SRT cue. buf's Show/Hide
// already carry the configured offset, applied once by the PES clock that
// produced the timestamps the packet decoder stamped the buffer with.
func (e *Extractor) onPage(buf *page.Buffer) {
	if e.out == nil {
		return
	}
	wrote, err := e.renderer.Render(e.out, e.seq, buf)
	if err != nil {
		if e.log != nil {
			e.log.Error("extract: failed to write cue", "error", err.Error())
		}
		return
	}
	if !wrote {
		return
	}
	e.seq++
	e.wroteAny = true
	if f, ok := e.out.(flusher); ok {
		if ferr := f.Flush(); ferr != nil && e.log != nil {
			e.log.Error("extract: failed to flush cue", "error", ferr.Error())
		}
	}
}

// Run reads r in 188-byte transport packets until EOF or ctx is done,
// writing rendered SRT cues to w as pages finalize, and returns the run's
// observability counters.
func (e *Extractor) Run(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	e.out = w

	if !e.cfg.SuppressBOM {
		if _, err := w.Write(bom); err != nil {
			return e.stats(), err
		}
	}

	buf := make([]byte, mts.PacketSize)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		_, err := io.ReadFull(r, buf)
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			break loop
		case err != nil:
			return e.stats(), err
		}

		if perr := e.demux.Process(buf); perr != nil {
			return e.stats(), fmt.Errorf("extract: %w", perr)
		}
	}

	if !e.wroteAny && e.cfg.PlaceholderOnEmpty {
		if _, err := io.WriteString(w, placeholderCue); err != nil {
			return e.stats(), err
		}
		e.wroteAny = true
	}

	return e.stats(), nil
}

func (e *Extractor) stats() Stats {
	seqEmitted := e.seq - 1
	if e.wroteAny && seqEmitted == 0 {
		seqEmitted = 1 // the placeholder cue, which doesn't advance seq
	}
	return Stats{
		PacketsRead:          e.demux.Stats.PacketsRead,
		SyncErrors:           e.demux.Stats.SyncErrors,
		TransportErrors:      e.demux.Stats.TransportErrors,
		ContinuityErrors:     e.demux.Stats.ContinuityErrors,
		PESFramed:            e.demux.Stats.PESFramed,
		PESOversize:          e.demux.Stats.PESOversize,
		CuesEmitted:          seqEmitted,
		UnimplementedNotices: e.unimplementedNotices,
	}
}
