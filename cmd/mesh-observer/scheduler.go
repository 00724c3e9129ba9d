// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/cron"
	"github.com/Mictronics/mesh-observer/lib/ingest"
	"github.com/Mictronics/mesh-observer/lib/report"
)

// scheduler writes report files on cron schedules. Generation
// failures are logged and the schedule keeps running; only shutdown
// stops it.
type scheduler struct {
	dir      string
	location *time.Location
	clock    clock.Clock
	logger   *slog.Logger
	builder  *report.Builder
	stats    func() ingest.Stats

	hourly    cron.Schedule
	hasHourly bool
	daily     cron.Schedule
	hasDaily  bool
}

type schedulerConfig struct {
	Dir      string
	Hourly   string
	Daily    string
	Location *time.Location
	Clock    clock.Clock
	Logger   *slog.Logger
	Builder  *report.Builder
	Stats    func() ingest.Stats
}

func newScheduler(cfg schedulerConfig) (*scheduler, error) {
	s := &scheduler{
		dir:      cfg.Dir,
		location: cfg.Location,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		builder:  cfg.Builder,
		stats:    cfg.Stats,
	}
	var err error
	if cfg.Hourly != "" {
		if s.hourly, err = parseSchedule("hourly", cfg.Hourly); err != nil {
			return nil, err
		}
		s.hasHourly = true
	}
	if cfg.Daily != "" {
		if s.daily, err = parseSchedule("daily", cfg.Daily); err != nil {
			return nil, err
		}
		s.hasDaily = true
	}
	return s, nil
}

func (s *scheduler) run(ctx context.Context) {
	if s.hasHourly {
		go s.loop(ctx, "hourly", s.hourly, s.writeSummary)
	}
	if s.hasDaily {
		go s.loop(ctx, "daily", s.daily, s.writeFull)
	}
	<-ctx.Done()
}

func (s *scheduler) loop(ctx context.Context, name string, schedule cron.Schedule, task func(context.Context) error) {
	for {
		now := s.clock.Now().In(s.location)
		next, err := schedule.Next(now)
		if err != nil {
			s.logger.Error("schedule has no next run", "schedule", name, "error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(next.Sub(now)):
		}

		if err := task(ctx); err != nil {
			s.logger.Error("report generation failed", "schedule", name, "error", err)
			continue
		}
		s.logger.Info("report written", "schedule", name, "dir", s.dir)
	}
}

// writeSummary renders the Markdown summary, the hourly artifact.
func (s *scheduler) writeSummary(ctx context.Context) error {
	built, err := s.build(ctx)
	if err != nil {
		return err
	}
	return writeReportFile(filepath.Join(s.dir, "summary.md"), func(f *os.File) error {
		return report.RenderMarkdown(f, built)
	})
}

// writeFull renders the Markdown and HTML documents, the daily
// artifacts.
func (s *scheduler) writeFull(ctx context.Context) error {
	built, err := s.build(ctx)
	if err != nil {
		return err
	}
	if err := writeReportFile(filepath.Join(s.dir, "report.md"), func(f *os.File) error {
		return report.RenderMarkdown(f, built)
	}); err != nil {
		return err
	}
	return writeReportFile(filepath.Join(s.dir, "report.html"), func(f *os.File) error {
		return report.RenderHTML(f, built)
	})
}

func (s *scheduler) build(ctx context.Context) (*report.Report, error) {
	stats := s.stats()
	return s.builder.Build(ctx, &stats)
}

// writeReportFile writes via a temp file and rename so a web server
// pointed at the report directory never reads a half-written page.
func writeReportFile(path string, render func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("report temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	return nil
}
