// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/codec"
	"github.com/Mictronics/mesh-observer/lib/ingest"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
)

func startTestServer(t *testing.T) (string, *tailHub, *ingest.Engine, *clock.FakeClock) {
	t.Helper()

	fakeClock := clock.Fake(time.Unix(1_770_000_000, 0))
	store := openDaemonStore(t, fakeClock)
	hub := newTailHub(fakeClock)
	engine := ingest.New(ingest.Config{
		Store:      store,
		Classifier: meshlog.NewClassifier(meshlog.NewCatalog()),
		Clock:      fakeClock,
		Logger:     testLogger(),
		Observer:   hub.publish,
	})

	socketPath := filepath.Join(t.TempDir(), "control.sock")
	srv, err := newServer(serverConfig{
		SocketPath: socketPath,
		Store:      store,
		Engine:     engine,
		Hub:        hub,
		Clock:      fakeClock,
		Logger:     testLogger(),
		SourceName: "stdin",
	})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.run(ctx)
	return socketPath, hub, engine, fakeClock
}

func dialControl(t *testing.T, socketPath, action string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := codec.NewEncoder(conn).Encode(codec.Request{Action: action}); err != nil {
		t.Fatalf("sending request: %v", err)
	}
	return conn
}

func TestServerStatus(t *testing.T) {
	socketPath, _, engine, fakeClock := startTestServer(t)

	engine.HandleLine(context.Background(),
		"DEBUG | Received Position from=0x25048528 to=0xffffffff rxSNR=-3.0")
	fakeClock.Advance(30 * time.Second)

	conn := dialControl(t, socketPath, codec.ActionStatus)
	var status codec.Status
	if err := codec.NewDecoder(conn).Decode(&status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}

	if status.Error != "" {
		t.Fatalf("status error: %s", status.Error)
	}
	if status.Source != "stdin" {
		t.Errorf("Source = %q", status.Source)
	}
	if status.UptimeSeconds != 30 {
		t.Errorf("UptimeSeconds = %d, want 30", status.UptimeSeconds)
	}
	if status.LinesSeen != 1 || status.LinesMatched != 1 {
		t.Errorf("line counters = %d/%d", status.LinesSeen, status.LinesMatched)
	}
	if status.Packets != 1 {
		t.Errorf("Packets = %d, want 1", status.Packets)
	}
	if status.PacketsByPort[meshlog.PortPosition] != 1 {
		t.Errorf("PacketsByPort = %v", status.PacketsByPort)
	}
}

func TestServerUnknownAction(t *testing.T) {
	socketPath, _, _, _ := startTestServer(t)

	conn := dialControl(t, socketPath, "selfdestruct")
	var status codec.Status
	if err := codec.NewDecoder(conn).Decode(&status); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if status.Error == "" {
		t.Error("unknown action: want error in reply")
	}
}

func TestServerTail(t *testing.T) {
	socketPath, hub, engine, _ := startTestServer(t)

	conn := dialControl(t, socketPath, codec.ActionTail)

	// The subscription happens on the server goroutine; wait for it
	// before producing traffic, or the frame is broadcast to nobody.
	deadline := time.Now().Add(5 * time.Second)
	for hub.subscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("tail subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	engine.HandleLine(context.Background(),
		"DEBUG | Received Position from=0x25048528 to=0xffffffff rxSNR=-3.0")

	var frame codec.TailFrame
	if err := codec.NewDecoder(conn).Decode(&frame); err != nil {
		t.Fatalf("decoding frame: %v", err)
	}
	if frame.Type != codec.FrameLine || !frame.Matched || frame.Kind != "packet" {
		t.Errorf("frame = %+v", frame)
	}
}

func TestTailHubDropsWithoutBlocking(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1_770_000_000, 0))
	hub := newTailHub(fakeClock)
	sub := hub.subscribe()
	defer hub.unsubscribe(sub)

	// Nobody reads: the buffer fills and the rest drop.
	for i := 0; i < tailBufferSize+10; i++ {
		hub.publish(ingest.TailRecord{Line: "x", Matched: false})
	}

	if got := len(sub.frames); got != tailBufferSize {
		t.Errorf("buffered frames = %d, want %d", got, tailBufferSize)
	}
	if got := sub.dropped.Load(); got != 10 {
		t.Errorf("dropped = %d, want 10", got)
	}

	// Drain one, publish one: the new frame reports the losses.
	<-sub.frames
	hub.publish(ingest.TailRecord{Line: "y"})
	var last codec.TailFrame
	for len(sub.frames) > 0 {
		last = <-sub.frames
	}
	if last.Dropped != 10 {
		t.Errorf("Dropped = %d, want 10", last.Dropped)
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	socketPath, _, _, _ := startTestServer(t)

	// Dialing proves the listener owns the path.
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}
