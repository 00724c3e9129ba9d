// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/codec"
	"github.com/Mictronics/mesh-observer/lib/ingest"
	"github.com/Mictronics/mesh-observer/lib/meshdb"
	"github.com/Mictronics/mesh-observer/lib/version"
)

// server answers status and tail requests on the unix control socket.
// Access control is the socket file's permissions; there is no
// in-protocol authentication.
type server struct {
	listener   net.Listener
	store      *meshdb.Store
	engine     *ingest.Engine
	hub        *tailHub
	clock      clock.Clock
	logger     *slog.Logger
	sourceName string
	started    time.Time
}

type serverConfig struct {
	SocketPath string
	Store      *meshdb.Store
	Engine     *ingest.Engine
	Hub        *tailHub
	Clock      clock.Clock
	Logger     *slog.Logger
	SourceName string
}

func newServer(cfg serverConfig) (*server, error) {
	// A previous run's socket file blocks the bind; the daemon is the
	// only legitimate owner of this path.
	if err := os.Remove(cfg.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale socket %s: %w", cfg.SocketPath, err)
	}

	listener, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", cfg.SocketPath, err)
	}
	if err := os.Chmod(cfg.SocketPath, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restricting %s: %w", cfg.SocketPath, err)
	}

	return &server{
		listener:   listener,
		store:      cfg.Store,
		engine:     cfg.Engine,
		hub:        cfg.Hub,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		sourceName: cfg.SourceName,
		started:    cfg.Clock.Now(),
	}, nil
}

func (s *server) run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("control socket accept failed", "error", err)
			return
		}
		go s.serve(ctx, conn)
	}
}

func (s *server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var request codec.Request
	if err := codec.NewDecoder(conn).Decode(&request); err != nil {
		s.logger.Debug("control request unreadable", "error", err)
		return
	}

	switch request.Action {
	case codec.ActionStatus:
		s.serveStatus(ctx, conn)
	case codec.ActionTail:
		s.serveTail(ctx, conn)
	default:
		reply := codec.Status{Error: fmt.Sprintf("unknown action %q", request.Action)}
		if err := codec.NewEncoder(conn).Encode(reply); err != nil {
			s.logger.Debug("control reply failed", "error", err)
		}
	}
}

func (s *server) serveStatus(ctx context.Context, conn net.Conn) {
	stats := s.engine.Stats()
	status := codec.Status{
		Version:       version.Info(),
		Source:        s.sourceName,
		UptimeSeconds: int64(s.clock.Now().Sub(s.started) / time.Second),
		LinesSeen:     stats.LinesSeen,
		LinesMatched:  stats.LinesMatched,
		EventsApplied: stats.EventsApplied,
		StoreErrors:   stats.StoreErrors,
		Decoded:       stats.Decoded,
		Encrypted:     stats.Encrypted,
		CRCErrors:     stats.CRCErrors,
		Restarts:      stats.Restarts,
		PacketsByPort: stats.PacketsByPort,
	}

	counts, err := s.store.RowCounts(ctx)
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Nodes = counts.Nodes
		status.Links = counts.Links
		status.Packets = counts.Packets
	}

	if err := codec.NewEncoder(conn).Encode(status); err != nil {
		s.logger.Debug("status reply failed", "error", err)
	}
}

func (s *server) serveTail(ctx context.Context, conn net.Conn) {
	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub)

	encoder := codec.NewEncoder(conn)
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sub.frames:
			if err := encoder.Encode(frame); err != nil {
				// Client went away; normal end of a tail.
				return
			}
		}
	}
}
