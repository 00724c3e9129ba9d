// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Mictronics/mesh-observer/lib/clock"
)

// fileSuffix marks compressed capture files; Open falls back to plain
// reading for anything else.
const fileSuffix = ".log.zst"

// Writer appends raw lines to hourly capture files in a directory.
// Safe for a single writer goroutine; WriteLine never returns an
// error because capture must not interfere with ingestion.
type Writer struct {
	dir    string
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	file     *os.File
	encoder  *zstd.Encoder
	hour     time.Time
	disabled bool
}

// NewWriter returns a Writer archiving into dir. The directory is
// created if missing; failure to create it disables the first hour
// and is retried at rotation.
func NewWriter(dir string, clk clock.Clock, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: dir, clock: clk, logger: logger}
}

// Filename returns the capture file name for the hour containing t.
func Filename(t time.Time) string {
	return "capture-" + t.UTC().Format("20060102T15") + fileSuffix
}

// WriteLine appends one raw line. Errors are absorbed: logged on
// first occurrence, then capture stays off until the next rotation.
func (w *Writer) WriteLine(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.clock.Now().UTC().Truncate(time.Hour)
	if !hour.Equal(w.hour) {
		w.rotateLocked(hour)
	}
	if w.disabled {
		return
	}

	if _, err := w.encoder.Write([]byte(line + "\n")); err != nil {
		w.logger.Error("capture write failed, disabled until next rotation",
			"file", w.file.Name(),
			"error", err,
		)
		w.closeLocked()
		w.disabled = true
	}
}

// rotateLocked closes the current hour's file and opens the next.
// Appending to an existing file is fine: concatenated zstd frames
// decode as one stream.
func (w *Writer) rotateLocked(hour time.Time) {
	w.closeLocked()
	w.hour = hour
	w.disabled = false

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.logger.Error("capture directory unavailable, disabled for this hour",
			"dir", w.dir,
			"error", err,
		)
		w.disabled = true
		return
	}

	path := filepath.Join(w.dir, Filename(hour))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		w.logger.Error("capture file open failed, disabled for this hour",
			"file", path,
			"error", err,
		)
		w.disabled = true
		return
	}

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		w.logger.Error("capture compressor init failed, disabled for this hour",
			"file", path,
			"error", err,
		)
		w.disabled = true
		return
	}

	w.file = file
	w.encoder = encoder
	w.logger.Info("capture file opened", "file", path)
}

func (w *Writer) closeLocked() {
	if w.encoder != nil {
		if err := w.encoder.Close(); err != nil {
			w.logger.Error("capture flush failed", "file", w.file.Name(), "error", err)
		}
		w.encoder = nil
	}
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}

// Close flushes and closes the current capture file.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

// Open opens a capture file for replay. Files with the capture suffix
// are decompressed transparently; anything else is read as plain text
// so ordinary log files replay too.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: opening %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return file, nil
	}

	decoder, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("capture: decompressing %s: %w", path, err)
	}
	return &decodeCloser{Decoder: decoder, file: file}, nil
}

// decodeCloser ties the decoder's lifetime to the underlying file.
type decodeCloser struct {
	*zstd.Decoder
	file *os.File
}

func (d *decodeCloser) Read(p []byte) (int, error) { return d.Decoder.Read(p) }

func (d *decodeCloser) Close() error {
	d.Decoder.Close()
	return d.file.Close()
}
