/*
NAME
  main.go

DESCRIPTION
  ttxsub reads a raw MPEG-2 transport stream from stdin (or a watched
  directory) and writes the EBU teletext subtitles it carries as a SubRip
  (.srt) file.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main implements the ttxsub command-line subtitle extractor.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/teletext/extract"
)

// Logging configuration, matching the teacher's fixed rotation policy.
const (
	logPath      = "ttxsub.log"
	logMaxSize   = 10 // MB
	logMaxBackup = 3
	logMaxAge    = 28 // days
)

func main() {
	var (
		page        = flag.Int("p", 0, "subtitle page, decimal 100..899 (0 = auto-latch)")
		pid         = flag.Int("t", 0, "transport stream PID, 0..8191 (0 = auto-latch)")
		offset      = flag.Float64("o", 0, "timestamp offset in seconds")
		noBOM       = flag.Bool("n", false, "suppress the UTF-8 byte order mark")
		placeholder = flag.Bool("1", false, "emit a placeholder cue if the stream carries none")
		color       = flag.Bool("c", false, "enable <font color=\"...\"> markup")
		verbose     = flag.Bool("v", false, "verbose diagnostics on stderr")
		watchDir    = flag.String("w", "", "watch this directory for .ts files instead of reading stdin")
	)
	flag.Parse()

	if *page != 0 && (*page < 100 || *page > 899) {
		fmt.Fprintf(os.Stderr, "ttxsub: page %d out of range 100..899\n", *page)
		os.Exit(1)
	}
	if *pid < 0 || *pid > 8191 {
		fmt.Fprintf(os.Stderr, "ttxsub: pid %d out of range 0..8191\n", *pid)
		os.Exit(1)
	}

	level := logging.Info
	if *verbose {
		level = logging.Debug
	}
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(level, io.MultiWriter(fileLog, os.Stderr), true)

	cfg := extract.Config{
		Page:               bcdPage(*page),
		PID:                uint16(*pid),
		OffsetMs:           int64(*offset * 1000),
		Color:              *color,
		SuppressBOM:        *noBOM,
		PlaceholderOnEmpty: *placeholder,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil && log != nil {
		log.Debug("ttxsub: sd_notify unavailable", "ok", ok, "error", err.Error())
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if *watchDir != "" {
		if err := runWatch(ctx, log, *watchDir, cfg, out); err != nil {
			log.Fatal("ttxsub: watch failed", "error", err.Error())
		}
		return
	}

	stats, err := extract.New(log, cfg).Run(ctx, os.Stdin, out)
	if err != nil {
		log.Fatal("ttxsub: run failed", "error", err.Error())
	}
	log.Info("ttxsub: run complete",
		"packets", stats.PacketsRead,
		"cues", stats.CuesEmitted,
		"continuityErrors", stats.ContinuityErrors,
		"pesFramed", stats.PESFramed,
		"pesOversize", stats.PESOversize,
	)
}

// bcdPage converts a decimal subtitle page (100..899, or 0 for auto-latch)
// into the magazine<<8|subpage-low form the packet decoder matches
// against, per ETS 300 706's BCD page addressing.
func bcdPage(decimal int) int {
	if decimal == 0 {
		return 0
	}
	magazine := decimal / 100
	subpage := decimal % 100
	tens := subpage / 10
	units := subpage % 10
	return magazine<<8 | tens<<4 | units
}

// runWatch processes every *.ts file that appears in dir, one at a time,
// writing all extracted cues to out; each file gets its own Extractor so a
// later file's first PES re-anchors the clock rather than inheriting the
// previous file's timeline.
func runWatch(ctx context.Context, log logging.Logger, dir string, cfg extract.Config, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	log.Info("ttxsub: watching directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("ttxsub: watch error", "error", err.Error())
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || filepath.Ext(ev.Name) != ".ts" {
				continue
			}
			if err := processFile(ctx, log, ev.Name, cfg, out); err != nil {
				log.Error("ttxsub: failed to process file", "file", ev.Name, "error", err.Error())
			}
		}
	}
}

func processFile(ctx context.Context, log logging.Logger, name string, cfg extract.Config, out io.Writer) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	stats, err := extract.New(log, cfg).Run(ctx, f, out)
	if err != nil {
		return err
	}
	log.Info("ttxsub: file processed", "file", name, "cues", stats.CuesEmitted)
	return nil
}
