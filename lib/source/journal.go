// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
)

// Journal follows a systemd unit's log by running journalctl in
// follow mode. The child is restarted with backoff if it exits; on
// shutdown it receives SIGTERM through the command's Cancel hook.
type Journal struct {
	Unit   string
	Clock  clock.Clock
	Logger *slog.Logger
}

func (j *Journal) Name() string { return "journal:" + j.Unit }

func (j *Journal) Run(ctx context.Context, sink Sink) error {
	logger := j.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := j.followOnce(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("journalctl exited, restarting",
			"unit", j.Unit,
			"error", err,
			"retry_in_s", reconnectDelay,
		)
		j.Clock.Sleep(reconnectDelay * time.Second)
	}
}

func (j *Journal) followOnce(ctx context.Context, sink Sink) error {
	// -o cat strips journal metadata so lines arrive exactly as the
	// daemon printed them; -n 0 skips the backlog, which was already
	// ingested by the previous run.
	cmd := exec.CommandContext(ctx, "journalctl", "-u", j.Unit, "-f", "-o", "cat", "-n", "0")
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("source: journalctl stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("source: starting journalctl: %w", err)
	}

	scanErr := scanLines(ctx, stdout, sink)
	waitErr := cmd.Wait()

	if scanErr != nil {
		return fmt.Errorf("source: reading journalctl: %w", scanErr)
	}
	if waitErr != nil {
		return fmt.Errorf("source: journalctl: %w", waitErr)
	}
	return fmt.Errorf("source: journalctl for %s exited", j.Unit)
}
