// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
)

// Applier is the store surface the engine writes through.
type Applier interface {
	Apply(ctx context.Context, event meshlog.DomainEvent) error
}

// TailRecord is one ingestion observation, delivered to the observer
// hook after the line has been processed. Kind is zero for unmatched
// lines.
type TailRecord struct {
	Line    string
	Matched bool
	Kind    meshlog.Kind
}

// Stats is a point-in-time snapshot of the engine's counters.
type Stats struct {
	LinesSeen     int64 `cbor:"lines_seen"`
	LinesMatched  int64 `cbor:"lines_matched"`
	EventsApplied int64 `cbor:"events_applied"`
	StoreErrors   int64 `cbor:"store_errors"`
	Decoded       int64 `cbor:"decoded"`
	Encrypted     int64 `cbor:"encrypted"`
	CRCErrors     int64 `cbor:"crc_errors"`
	Restarts      int64 `cbor:"restarts"`

	// PacketsByPort counts recorded traffic per resolved port number.
	PacketsByPort map[int64]int64 `cbor:"packets_by_port"`
}

// Config holds the engine's dependencies.
type Config struct {
	Store      Applier
	Classifier *meshlog.Classifier
	Clock      clock.Clock
	Logger     *slog.Logger

	// Observer, when set, receives a TailRecord per consumed line.
	// Called synchronously on the ingestion goroutine; keep it cheap.
	Observer func(TailRecord)
}

// Engine consumes log lines and applies the resulting domain events.
// HandleLine is not safe for concurrent use; the observer feeds it
// from a single source goroutine.
type Engine struct {
	store      Applier
	classifier *meshlog.Classifier
	clock      clock.Clock
	logger     *slog.Logger
	observer   func(TailRecord)

	// pendingTelemetry is a port-67 packet record held back until the
	// following line resolves or fails to resolve its variant.
	pendingTelemetry *meshlog.PacketEvent

	linesSeen     atomic.Int64
	linesMatched  atomic.Int64
	eventsApplied atomic.Int64
	storeErrors   atomic.Int64
	decoded       atomic.Int64
	encrypted     atomic.Int64
	crcErrors     atomic.Int64
	restarts      atomic.Int64

	portMu        sync.Mutex
	packetsByPort map[int64]int64
}

// New returns an engine ready to consume lines.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:         cfg.Store,
		classifier:    cfg.Classifier,
		clock:         cfg.Clock,
		logger:        logger,
		observer:      cfg.Observer,
		packetsByPort: make(map[int64]int64),
	}
}

// HandleLine consumes one raw log line.
func (e *Engine) HandleLine(ctx context.Context, line string) {
	e.linesSeen.Add(1)

	event, matched := meshlog.Parse(line)
	if matched {
		e.linesMatched.Add(1)
	}
	e.process(ctx, event, matched)

	if e.observer != nil {
		e.observer(TailRecord{Line: line, Matched: matched, Kind: event.Kind})
	}
}

func (e *Engine) process(ctx context.Context, event meshlog.Event, matched bool) {
	if !matched {
		return
	}

	// The detail line immediately after a telemetry reception names the
	// variant. Any other reception means the detail never came.
	switch event.Kind {
	case meshlog.KindTelemetryDetail:
		if e.pendingTelemetry != nil {
			refined := *e.pendingTelemetry
			refined.Port = event.TelemetryVariant
			e.pendingTelemetry = nil
			e.apply(ctx, refined)
		}
		return
	case meshlog.KindPacket:
		e.flushPendingTelemetry(ctx)
	case meshlog.KindDecodeResult:
		if event.Decoded {
			e.decoded.Add(1)
		} else {
			e.encrypted.Add(1)
		}
		return
	case meshlog.KindCRCError:
		e.crcErrors.Add(1)
		return
	case meshlog.KindRestart:
		e.restarts.Add(1)
		e.flushPendingTelemetry(ctx)
		return
	}

	now := e.clock.Now().Unix()
	for _, domainEvent := range e.classifier.Classify(event, now) {
		if packet, ok := domainEvent.(meshlog.PacketEvent); ok && packet.Port == meshlog.PortTelemetry {
			e.pendingTelemetry = &packet
			continue
		}
		e.apply(ctx, domainEvent)
	}
}

// Flush writes out any held-back telemetry record. Call at stream end
// so the last packet of a capture is not lost.
func (e *Engine) Flush(ctx context.Context) {
	e.flushPendingTelemetry(ctx)
}

func (e *Engine) flushPendingTelemetry(ctx context.Context) {
	if e.pendingTelemetry == nil {
		return
	}
	pending := *e.pendingTelemetry
	e.pendingTelemetry = nil
	e.apply(ctx, pending)
}

func (e *Engine) apply(ctx context.Context, event meshlog.DomainEvent) {
	if err := e.store.Apply(ctx, event); err != nil {
		e.storeErrors.Add(1)
		e.logger.Error("store apply failed", "error", err)
		return
	}
	e.eventsApplied.Add(1)

	if packet, ok := event.(meshlog.PacketEvent); ok {
		e.portMu.Lock()
		e.packetsByPort[packet.Port]++
		e.portMu.Unlock()
	}
}

// Stats returns a snapshot of the counters. Safe to call from any
// goroutine while ingestion runs.
func (e *Engine) Stats() Stats {
	stats := Stats{
		LinesSeen:     e.linesSeen.Load(),
		LinesMatched:  e.linesMatched.Load(),
		EventsApplied: e.eventsApplied.Load(),
		StoreErrors:   e.storeErrors.Load(),
		Decoded:       e.decoded.Load(),
		Encrypted:     e.encrypted.Load(),
		CRCErrors:     e.crcErrors.Load(),
		Restarts:      e.restarts.Load(),
		PacketsByPort: make(map[int64]int64),
	}
	e.portMu.Lock()
	for port, count := range e.packetsByPort {
		stats.PacketsByPort[port] = count
	}
	e.portMu.Unlock()
	return stats
}
