// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Mictronics/mesh-observer/lib/clock"
)

// Serial follows a mesh node's debug console on a tty. The port runs
// at 115200 8N1 in raw mode. Unplugging the device or a read error
// closes and reopens the port with backoff; the source only gives up
// when the context is canceled.
type Serial struct {
	Device string
	Clock  clock.Clock
	Logger *slog.Logger
}

func (s *Serial) Name() string { return "serial:" + s.Device }

func (s *Serial) Run(ctx context.Context, sink Sink) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.readOnce(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("serial port lost, reopening",
			"device", s.Device,
			"error", err,
			"retry_in_s", reconnectDelay,
		)
		s.Clock.Sleep(reconnectDelay * time.Second)
	}
}

// readOnce opens the port, configures it, and pumps lines until the
// port fails or the context is canceled.
func (s *Serial) readOnce(ctx context.Context, sink Sink) error {
	port, err := os.OpenFile(s.Device, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return fmt.Errorf("source: opening %s: %w", s.Device, err)
	}

	if err := configurePort(port); err != nil {
		port.Close()
		return err
	}

	// The raw-mode read blocks without a deadline; closing the file
	// from the watcher is what unblocks it on shutdown.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-watchDone:
		}
	}()
	defer func() {
		close(watchDone)
		port.Close()
	}()

	if err := scanLines(ctx, port, sink); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("source: reading %s: %w", s.Device, err)
	}
	return fmt.Errorf("source: %s: port closed", s.Device)
}

// configurePort puts the tty into raw 115200 8N1: no echo, no line
// editing, no flow control, reads block until at least one byte.
func configurePort(port *os.File) error {
	fd := int(port.Fd())

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("source: TCGETS %s: %w", port.Name(), err)
	}

	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CBAUD
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | unix.B115200
	termios.Ispeed = unix.B115200
	termios.Ospeed = unix.B115200
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("source: TCSETS %s: %w", port.Name(), err)
	}
	return nil
}
