// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
)

func captureTestClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
}

func readCapture(t *testing.T, path string) []string {
	t.Helper()
	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	defer reader.Close()

	var lines []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return lines
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fakeClock := captureTestClock()

	writer := NewWriter(dir, fakeClock, nil)
	writer.WriteLine("first line")
	writer.WriteLine("second line")
	writer.Close()

	path := filepath.Join(dir, "capture-20260314T09.log.zst")
	lines := readCapture(t, path)
	if len(lines) != 2 || lines[0] != "first line" || lines[1] != "second line" {
		t.Errorf("lines = %v", lines)
	}
}

func TestWriterHourlyRotation(t *testing.T) {
	dir := t.TempDir()
	fakeClock := captureTestClock()

	writer := NewWriter(dir, fakeClock, nil)
	writer.WriteLine("hour nine")
	fakeClock.Advance(time.Hour)
	writer.WriteLine("hour ten")
	writer.Close()

	nine := readCapture(t, filepath.Join(dir, "capture-20260314T09.log.zst"))
	ten := readCapture(t, filepath.Join(dir, "capture-20260314T10.log.zst"))
	if len(nine) != 1 || nine[0] != "hour nine" {
		t.Errorf("hour 09 lines = %v", nine)
	}
	if len(ten) != 1 || ten[0] != "hour ten" {
		t.Errorf("hour 10 lines = %v", ten)
	}
}

func TestWriterAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	fakeClock := captureTestClock()

	writer := NewWriter(dir, fakeClock, nil)
	writer.WriteLine("before restart")
	writer.Close()

	// A daemon restart within the same hour reopens the same file;
	// concatenated frames must decode as one stream.
	writer = NewWriter(dir, fakeClock, nil)
	writer.WriteLine("after restart")
	writer.Close()

	lines := readCapture(t, filepath.Join(dir, "capture-20260314T09.log.zst"))
	if len(lines) != 2 || lines[0] != "before restart" || lines[1] != "after restart" {
		t.Errorf("lines = %v", lines)
	}
}

func TestWriterDisablesOnBadDirectory(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	// A regular file where the capture directory should be.
	if err := os.WriteFile(blocked, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	writer := NewWriter(filepath.Join(blocked, "captures"), captureTestClock(), nil)
	// Must absorb the failure silently and keep accepting lines.
	writer.WriteLine("dropped")
	writer.WriteLine("also dropped")
	writer.Close()
}

func TestOpenPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.log")
	if err := os.WriteFile(path, []byte("raw line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lines := readCapture(t, path)
	if len(lines) != 1 || lines[0] != "raw line" {
		t.Errorf("lines = %v", lines)
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)
	if got := Filename(at); got != "capture-20261231T23.log.zst" {
		t.Errorf("Filename = %q", got)
	}
}
