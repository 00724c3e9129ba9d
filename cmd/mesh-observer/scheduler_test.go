// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/ingest"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
	"github.com/Mictronics/mesh-observer/lib/report"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openDaemonStore(t *testing.T, clk clock.Clock) *meshdb.Store {
	t.Helper()
	store, err := meshdb.Open(meshdb.Config{
		Path:    filepath.Join(t.TempDir(), "mesh.db"),
		Catalog: meshlog.NewCatalog(),
		Clock:   clk,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestScheduler(t *testing.T, fakeClock *clock.FakeClock, dir string) *scheduler {
	t.Helper()
	store := openDaemonStore(t, fakeClock)
	sched, err := newScheduler(schedulerConfig{
		Dir:      dir,
		Hourly:   "10 * * * *",
		Daily:    "59 23 * * *",
		Location: time.UTC,
		Clock:    fakeClock,
		Logger:   testLogger(),
		Builder:  &report.Builder{Store: store, Clock: fakeClock},
		Stats:    func() ingest.Stats { return ingest.Stats{Decoded: 1} },
	})
	if err != nil {
		t.Fatalf("newScheduler: %v", err)
	}
	return sched
}

func TestNewSchedulerRejectsBadExpression(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1_770_000_000, 0))
	store := openDaemonStore(t, fakeClock)

	_, err := newScheduler(schedulerConfig{
		Dir:      t.TempDir(),
		Hourly:   "every hour please",
		Location: time.UTC,
		Clock:    fakeClock,
		Logger:   testLogger(),
		Builder:  &report.Builder{Store: store, Clock: fakeClock},
		Stats:    func() ingest.Stats { return ingest.Stats{} },
	})
	if err == nil {
		t.Error("bad cron expression: want error")
	}
}

func TestWriteSummaryAndFull(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
	dir := t.TempDir()
	sched := newTestScheduler(t, fakeClock, dir)
	ctx := context.Background()

	if err := sched.writeSummary(ctx); err != nil {
		t.Fatalf("writeSummary: %v", err)
	}
	summary, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	if err != nil {
		t.Fatalf("summary.md: %v", err)
	}
	if !strings.Contains(string(summary), "No traffic observed") {
		t.Errorf("summary body:\n%s", summary)
	}

	if err := sched.writeFull(ctx); err != nil {
		t.Fatalf("writeFull: %v", err)
	}
	for _, name := range []string{"report.md", "report.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestSchedulerFiresOnCronBoundary(t *testing.T) {
	fakeClock := clock.Fake(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
	dir := t.TempDir()
	sched := newTestScheduler(t, fakeClock, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.run(ctx)

	// Both loops must be parked on their timers before time moves.
	fakeClock.WaitForTimers(2)
	fakeClock.Advance(10 * time.Minute)

	summaryPath := filepath.Join(dir, "summary.md")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(summaryPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("summary.md not written after the hourly boundary")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The daily report must not have fired at 00:10.
	if _, err := os.Stat(filepath.Join(dir, "report.md")); err == nil {
		t.Error("report.md written before the daily boundary")
	}
}

func TestWriteReportFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.md")

	if err := writeReportFile(path, func(f *os.File) error {
		_, err := f.WriteString("first")
		return err
	}); err != nil {
		t.Fatalf("writeReportFile: %v", err)
	}
	if err := writeReportFile(path, func(f *os.File) error {
		_, err := f.WriteString("second")
		return err
	}); err != nil {
		t.Fatalf("writeReportFile: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "second" {
		t.Errorf("content = %q", content)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}
