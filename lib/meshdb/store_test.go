// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package meshdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
)

// storeTestEpoch is the fake clock's starting point, an arbitrary
// fixed instant so retention arithmetic is reproducible.
const storeTestEpoch int64 = 1_770_000_000

// openTestStore opens a store on a throwaway database with a fake
// clock frozen at storeTestEpoch.
func openTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()

	fakeClock := clock.Fake(time.Unix(storeTestEpoch, 0))
	store, err := Open(Config{
		Path:    filepath.Join(t.TempDir(), "mesh.db"),
		Catalog: meshlog.NewCatalog(),
		Clock:   fakeClock,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store, fakeClock
}

func mustApply(t *testing.T, store *Store, events ...meshlog.DomainEvent) {
	t.Helper()
	for _, event := range events {
		if err := store.Apply(context.Background(), event); err != nil {
			t.Fatalf("Apply(%+v): %v", event, err)
		}
	}
}

func mustGetNode(t *testing.T, store *Store, id uint32) Node {
	t.Helper()
	node, found, err := store.GetNode(context.Background(), id)
	if err != nil {
		t.Fatalf("GetNode(%d): %v", id, err)
	}
	if !found {
		t.Fatalf("node %d not found", id)
	}
	return node
}

func TestUpsertNodeInsertAndIdempotence(t *testing.T) {
	store, _ := openTestStore(t)

	event := meshlog.NodeInfoEvent{
		ID: 100, ShortName: "AB", LongName: "Alpha Base",
		HasNames: true, Seen: storeTestEpoch,
	}
	mustApply(t, store, event, event)

	counts, err := store.RowCounts(context.Background())
	if err != nil {
		t.Fatalf("RowCounts: %v", err)
	}
	if counts.Nodes != 1 {
		t.Fatalf("nodes = %d, want 1 after duplicate upsert", counts.Nodes)
	}

	node := mustGetNode(t, store, 100)
	if node.ShortName != "AB" || node.LongName != "Alpha Base" || !node.Named {
		t.Errorf("node = %+v", node)
	}
	if node.Seen != storeTestEpoch {
		t.Errorf("Seen = %d, want %d", node.Seen, storeTestEpoch)
	}
}

func TestUpsertNodePartialUpdateKeepsLearnedFields(t *testing.T) {
	store, _ := openTestStore(t)

	mustApply(t, store, meshlog.NodeInfoEvent{
		ID: 100, ShortName: "AB", LongName: "Alpha Base",
		HasNames: true, Seen: storeTestEpoch,
	})

	// A bare sighting carries only the id and a newer timestamp.
	mustApply(t, store, meshlog.NodeInfoEvent{ID: 100, Seen: storeTestEpoch + 60})

	node := mustGetNode(t, store, 100)
	if node.ShortName != "AB" || node.LongName != "Alpha Base" {
		t.Errorf("names blanked by partial update: %+v", node)
	}
	if node.Seen != storeTestEpoch+60 {
		t.Errorf("Seen = %d, want %d", node.Seen, storeTestEpoch+60)
	}

	// A position-only event must not touch names either.
	mustApply(t, store, meshlog.NodeInfoEvent{
		ID: 100, Latitude: 48.1234567, Longitude: 11.7654321,
		HasPosition: true, Seen: storeTestEpoch + 120,
	})

	node = mustGetNode(t, store, 100)
	if node.ShortName != "AB" {
		t.Errorf("names blanked by position update: %+v", node)
	}
	if !node.HasPosition || node.Latitude != 48.1234567 || node.Longitude != 11.7654321 {
		t.Errorf("position not stored: %+v", node)
	}
}

func TestUpsertNodeRoleWithoutSeen(t *testing.T) {
	store, _ := openTestStore(t)

	mustApply(t, store, meshlog.NodeInfoEvent{
		ID: 100, HasNames: true, ShortName: "AB", LongName: "Alpha Base",
		Seen: storeTestEpoch,
	})
	mustApply(t, store, meshlog.NodeInfoEvent{
		ID: 100, Role: 2, Hardware: 43, HasRole: true,
	})

	node := mustGetNode(t, store, 100)
	if node.Role != 2 || node.Hardware != 43 {
		t.Errorf("role/hardware = %d/%d, want 2/43", node.Role, node.Hardware)
	}
	if node.Seen != storeTestEpoch {
		t.Errorf("Seen = %d, want unchanged %d", node.Seen, storeTestEpoch)
	}

	// Role events also materialize unseen nodes.
	mustApply(t, store, meshlog.NodeInfoEvent{ID: 200, Role: 3, HasRole: true})
	node = mustGetNode(t, store, 200)
	if node.Role != 3 || node.Seen != 0 {
		t.Errorf("materialized node = %+v", node)
	}
}

func TestUpsertNodeTraceStartSetOnce(t *testing.T) {
	store, _ := openTestStore(t)

	mustApply(t, store, meshlog.NodeInfoEvent{ID: 100, Seen: storeTestEpoch, TraceStart: true})
	node := mustGetNode(t, store, 100)
	if node.TraceStart != storeTestEpoch {
		t.Fatalf("TraceStart = %d, want %d", node.TraceStart, storeTestEpoch)
	}

	mustApply(t, store, meshlog.NodeInfoEvent{ID: 100, Seen: storeTestEpoch + 3600, TraceStart: true})
	node = mustGetNode(t, store, 100)
	if node.TraceStart != storeTestEpoch {
		t.Errorf("TraceStart = %d after second trace, want first value %d kept", node.TraceStart, storeTestEpoch)
	}
}

func TestUpsertLinkOverwritesSample(t *testing.T) {
	store, _ := openTestStore(t)

	mustApply(t, store, meshlog.LinkEvent{Source: 1, Destination: 2, SNR: -80, Seen: storeTestEpoch})
	mustApply(t, store, meshlog.LinkEvent{Source: 1, Destination: 2, SNR: -60, Seen: storeTestEpoch + 1000})

	links, err := store.ListLinks(context.Background())
	if err != nil {
		t.Fatalf("ListLinks: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	link := links[0]
	if link.SNR != -60 || link.Seen != storeTestEpoch+1000 {
		t.Errorf("link = %+v, want newest sample (-60, %d)", link, storeTestEpoch+1000)
	}

	// The reverse direction is a distinct pair.
	mustApply(t, store, meshlog.LinkEvent{Source: 2, Destination: 1, SNR: -70, Seen: storeTestEpoch})
	links, err = store.ListLinks(context.Background())
	if err != nil {
		t.Fatalf("ListLinks: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("got %d links, want 2 directional rows", len(links))
	}
}

func TestLinkRetention(t *testing.T) {
	store, fakeClock := openTestStore(t)

	mustApply(t, store, meshlog.LinkEvent{Source: 1, Destination: 2, SNR: -80, Seen: storeTestEpoch})

	// One second short of the window: the next insert's sweep keeps it.
	fakeClock.Advance(LinkRetention - time.Second)
	mustApply(t, store, meshlog.LinkEvent{
		Source: 3, Destination: 4, SNR: -50, Seen: fakeClock.Now().Unix(),
	})

	links, err := store.ListLinks(context.Background())
	if err != nil {
		t.Fatalf("ListLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d links at window edge, want 2", len(links))
	}

	// Past the window: the sweep attached to the next insert drops it.
	fakeClock.Advance(2 * time.Second)
	mustApply(t, store, meshlog.LinkEvent{
		Source: 5, Destination: 6, SNR: -40, Seen: fakeClock.Now().Unix(),
	})

	links, err = store.ListLinks(context.Background())
	if err != nil {
		t.Fatalf("ListLinks: %v", err)
	}
	for _, link := range links {
		if link.Source == 1 {
			t.Errorf("expired link survived the sweep: %+v", link)
		}
	}
	if len(links) != 2 {
		t.Errorf("got %d links after expiry, want 2", len(links))
	}
}

func TestPacketRetention(t *testing.T) {
	store, fakeClock := openTestStore(t)

	mustApply(t, store, meshlog.PacketEvent{Source: 1, Port: meshlog.PortPosition, Time: storeTestEpoch})

	fakeClock.Advance(PacketRetention - time.Second)
	mustApply(t, store, meshlog.PacketEvent{
		Source: 2, Port: meshlog.PortTelemetry, Time: fakeClock.Now().Unix(),
	})

	counts, err := store.RowCounts(context.Background())
	if err != nil {
		t.Fatalf("RowCounts: %v", err)
	}
	if counts.Packets != 2 {
		t.Fatalf("packets = %d at window edge, want 2", counts.Packets)
	}

	fakeClock.Advance(2 * time.Second)
	mustApply(t, store, meshlog.PacketEvent{
		Source: 3, Port: meshlog.PortTextMessage, Time: fakeClock.Now().Unix(),
	})

	counts, err = store.RowCounts(context.Background())
	if err != nil {
		t.Fatalf("RowCounts: %v", err)
	}
	if counts.Packets != 2 {
		t.Errorf("packets = %d after expiry, want 2", counts.Packets)
	}
}

func TestSweepsAreTableScoped(t *testing.T) {
	store, fakeClock := openTestStore(t)

	// A packet past link retention but inside packet retention.
	mustApply(t, store, meshlog.PacketEvent{Source: 1, Port: meshlog.PortPosition, Time: storeTestEpoch})

	fakeClock.Advance(48 * time.Hour)
	mustApply(t, store, meshlog.LinkEvent{
		Source: 1, Destination: 2, SNR: -60, Seen: fakeClock.Now().Unix(),
	})

	counts, err := store.RowCounts(context.Background())
	if err != nil {
		t.Fatalf("RowCounts: %v", err)
	}
	if counts.Packets != 1 {
		t.Errorf("packets = %d, want 1 (link insert must not sweep packets)", counts.Packets)
	}
}

func TestOpenValidation(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(storeTestEpoch, 0))

	if _, err := Open(Config{Clock: fakeClock, Catalog: meshlog.NewCatalog()}); err == nil {
		t.Error("missing Path: want error")
	}
	if _, err := Open(Config{Path: "x.db", Catalog: meshlog.NewCatalog()}); err == nil {
		t.Error("missing Clock: want error")
	}
	if _, err := Open(Config{Path: "x.db", Clock: fakeClock}); err == nil {
		t.Error("missing Catalog on writable open: want error")
	}
}

func TestOpenReadOnlySharesDatabase(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(storeTestEpoch, 0))
	path := filepath.Join(t.TempDir(), "mesh.db")

	writer, err := Open(Config{Path: path, Catalog: meshlog.NewCatalog(), Clock: fakeClock})
	if err != nil {
		t.Fatalf("Open writer: %v", err)
	}
	defer writer.Close()

	mustApply(t, writer, meshlog.NodeInfoEvent{
		ID: 100, ShortName: "AB", LongName: "Alpha Base", HasNames: true, Seen: storeTestEpoch,
	})

	reader, err := Open(Config{Path: path, ReadOnly: true, Clock: fakeClock})
	if err != nil {
		t.Fatalf("Open reader: %v", err)
	}
	defer reader.Close()

	node := mustGetNode(t, reader, 100)
	if node.LongName != "Alpha Base" {
		t.Errorf("read-only view = %+v", node)
	}
}
