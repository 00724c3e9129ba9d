// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// reconnectDelay is how long a self-healing source waits before
// reopening its input after a failure.
const reconnectDelay = 5 // seconds

// maxLineBytes bounds a single log line. The firmware prints short
// lines; anything longer is corruption and gets split, not dropped.
const maxLineBytes = 64 * 1024

// Sink receives one line at a time, without the trailing newline.
type Sink func(line string)

// Source is a stream of log lines. Run feeds every line to the sink
// and returns when the input is exhausted (finite sources) or the
// context is canceled (following sources).
type Source interface {
	// Name identifies the source in logs and status output.
	Name() string

	Run(ctx context.Context, sink Sink) error
}

// scanLines pumps lines from r to the sink until EOF, read error, or
// context cancellation.
func scanLines(ctx context.Context, r io.Reader, sink Sink) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		sink(scanner.Text())
	}
	return scanner.Err()
}

// File reads a log file to EOF. Used for replay and tests.
type File struct {
	Path string
}

func (f *File) Name() string { return "file:" + f.Path }

func (f *File) Run(ctx context.Context, sink Sink) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("source: opening %s: %w", f.Path, err)
	}
	defer file.Close()

	if err := scanLines(ctx, file, sink); err != nil {
		return fmt.Errorf("source: reading %s: %w", f.Path, err)
	}
	return nil
}

// Stdin reads os.Stdin to EOF, for pipeline use.
type Stdin struct{}

func (Stdin) Name() string { return "stdin" }

func (Stdin) Run(ctx context.Context, sink Sink) error {
	if err := scanLines(ctx, os.Stdin, sink); err != nil {
		return fmt.Errorf("source: reading stdin: %w", err)
	}
	return nil
}

// Reader wraps any io.Reader as a finite source. Capture replay uses
// this to feed a decompressing reader through the engine.
type Reader struct {
	Label string
	R     io.Reader
}

func (r *Reader) Name() string { return r.Label }

func (r *Reader) Run(ctx context.Context, sink Sink) error {
	if err := scanLines(ctx, r.R, sink); err != nil {
		return fmt.Errorf("source: reading %s: %w", r.Label, err)
	}
	return nil
}
