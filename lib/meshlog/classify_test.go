// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package meshlog

import (
	"testing"
)

const classifyTestNow int64 = 1_770_000_000

func newTestClassifier() *Classifier {
	return NewClassifier(NewCatalog())
}

func TestClassifyNodeInfo(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind:      KindNodeInfo,
		NodeID:    0x433d2f61,
		ShortName: "AB",
		LongName:  "Alpha Base",
	}, classifyTestNow)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	nodeInfo, ok := events[0].(NodeInfoEvent)
	if !ok {
		t.Fatalf("event type = %T, want NodeInfoEvent", events[0])
	}
	if !nodeInfo.HasNames || nodeInfo.ShortName != "AB" || nodeInfo.LongName != "Alpha Base" {
		t.Errorf("names not carried: %+v", nodeInfo)
	}
	if nodeInfo.Seen != classifyTestNow {
		t.Errorf("Seen = %d, want %d", nodeInfo.Seen, classifyTestNow)
	}
	if nodeInfo.HasPosition || nodeInfo.HasRole {
		t.Errorf("unexpected field flags set: %+v", nodeInfo)
	}
}

func TestClassifyRoleDoesNotAdvanceSeen(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind: KindRole, NodeID: 0x433d2f61, Role: 2, Hardware: 43,
	}, classifyTestNow)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	nodeInfo := events[0].(NodeInfoEvent)
	if nodeInfo.Seen != 0 {
		t.Errorf("role event Seen = %d, want 0 (must not advance last-seen)", nodeInfo.Seen)
	}
	if !nodeInfo.HasRole || nodeInfo.Role != 2 || nodeInfo.Hardware != 43 {
		t.Errorf("role fields not carried: %+v", nodeInfo)
	}
}

func TestClassifyPacketWithConcreteDestination(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind: KindPacket, RawType: "Position",
		From: 0x433d2f61, To: 0x25048528, HasTo: true,
		SNR: 7.25, HasSNR: true,
	}, classifyTestNow)

	if len(events) != 2 {
		t.Fatalf("got %d events, want link + packet", len(events))
	}

	link, ok := events[0].(LinkEvent)
	if !ok {
		t.Fatalf("events[0] type = %T, want LinkEvent", events[0])
	}
	if link.Source != 0x433d2f61 || link.Destination != 0x25048528 {
		t.Errorf("link = %+v", link)
	}
	if link.SNR != 7.25 || link.Seen != classifyTestNow {
		t.Errorf("link snr/seen = %v/%d", link.SNR, link.Seen)
	}

	packet, ok := events[1].(PacketEvent)
	if !ok {
		t.Fatalf("events[1] type = %T, want PacketEvent", events[1])
	}
	if packet.Source != 0x433d2f61 || packet.Port != PortPosition || packet.Time != classifyTestNow {
		t.Errorf("packet = %+v", packet)
	}
}

func TestClassifyPacketBroadcast(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind: KindPacket, RawType: "NodeInfo",
		From: 0x433d2f61, To: BroadcastID, HasTo: true,
	}, classifyTestNow)

	// Broadcast destination: packet record only, no link.
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if _, ok := events[0].(PacketEvent); !ok {
		t.Errorf("event type = %T, want PacketEvent", events[0])
	}
}

func TestClassifyPacketMissingSNRUsesSentinel(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind: KindPacket, RawType: "text msg",
		From: 0x433d2f61, To: 0x25048528, HasTo: true,
	}, classifyTestNow)

	link := events[0].(LinkEvent)
	if link.SNR != SNRUnknown {
		t.Errorf("SNR = %v, want sentinel %v", link.SNR, SNRUnknown)
	}
}

func TestClassifyRoutingSuppressesPacket(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind: KindPacket, RawType: "Routing",
		From: 0x433d2f61, To: 0x25048528, HasTo: true, SNR: -3, HasSNR: true,
	}, classifyTestNow)

	if len(events) != 1 {
		t.Fatalf("got %d events, want link only", len(events))
	}
	if _, ok := events[0].(LinkEvent); !ok {
		t.Errorf("event type = %T, want LinkEvent", events[0])
	}
}

func TestClassifyIgnoreRules(t *testing.T) {
	classifier := newTestClassifier()

	for _, id := range []uint32{0, BroadcastID} {
		if events := classifier.Classify(Event{Kind: KindNodeInfo, NodeID: id}, classifyTestNow); len(events) != 0 {
			t.Errorf("node id %08x classified to %d events, want 0", id, len(events))
		}
		if events := classifier.Classify(Event{Kind: KindPacket, RawType: "Position", From: id}, classifyTestNow); len(events) != 0 {
			t.Errorf("packet from %08x classified to %d events, want 0", id, len(events))
		}
	}

	// Self-link from a reception: packet survives, link dropped.
	events := classifier.Classify(Event{
		Kind: KindPacket, RawType: "Position",
		From: 0x433d2f61, To: 0x433d2f61, HasTo: true,
	}, classifyTestNow)
	if len(events) != 1 {
		t.Fatalf("self-link reception: got %d events, want 1", len(events))
	}
	if _, ok := events[0].(PacketEvent); !ok {
		t.Errorf("self-link reception kept a %T, want PacketEvent only", events[0])
	}
}

func TestClassifyUnknownTypeFallsBack(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind: KindPacket, RawType: "FutureProtocol", From: 0x433d2f61,
	}, classifyTestNow)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	packet := events[0].(PacketEvent)
	if packet.Port != PortUnknown {
		t.Errorf("Port = %d, want %d (Unknown)", packet.Port, PortUnknown)
	}
}

func TestClassifyTraceroute(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind:       KindTraceroute,
		TraceStart: true,
		Hops: []Hop{
			{ID: 0x433d2f61},
			{ID: 0x25048528, SNR: -7.25, HasSNR: true},
			{ID: 0x0a1b2c3d, SNR: 3.5, HasSNR: true},
		},
	}, classifyTestNow)

	var links []LinkEvent
	var sightings []NodeInfoEvent
	for _, event := range events {
		switch typed := event.(type) {
		case LinkEvent:
			links = append(links, typed)
		case NodeInfoEvent:
			sightings = append(sightings, typed)
		}
	}

	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}
	if links[0].Source != 0x433d2f61 || links[0].Destination != 0x25048528 || links[0].SNR != -7.25 {
		t.Errorf("first hop link = %+v", links[0])
	}
	if links[1].Source != 0x25048528 || links[1].Destination != 0x0a1b2c3d || links[1].SNR != 3.5 {
		t.Errorf("second hop link = %+v", links[1])
	}

	if len(sightings) != 3 {
		t.Fatalf("got %d node sightings, want 3", len(sightings))
	}
	for _, sighting := range sightings {
		if sighting.HasNames || sighting.HasPosition || sighting.HasRole {
			t.Errorf("traceroute sighting carries fields beyond seen: %+v", sighting)
		}
		wantTraceStart := sighting.ID == 0x433d2f61
		if sighting.TraceStart != wantTraceStart {
			t.Errorf("node %08x TraceStart = %v, want %v", sighting.ID, sighting.TraceStart, wantTraceStart)
		}
	}
}

func TestClassifyTracerouteSkipsBadHops(t *testing.T) {
	classifier := newTestClassifier()

	events := classifier.Classify(Event{
		Kind: KindTraceroute,
		Hops: []Hop{
			{ID: 0x433d2f61},
			{ID: BroadcastID},
			{ID: 0x433d2f61},
		},
	}, classifyTestNow)

	for _, event := range events {
		if link, ok := event.(LinkEvent); ok {
			t.Errorf("unexpected link through broadcast hop: %+v", link)
		}
	}
}

func TestClassifyCounterOnlyKindsProduceNothing(t *testing.T) {
	classifier := newTestClassifier()

	kinds := []Kind{KindTelemetryDetail, KindDecodeResult, KindCRCError, KindRestart}
	for _, kind := range kinds {
		if events := classifier.Classify(Event{Kind: kind}, classifyTestNow); len(events) != 0 {
			t.Errorf("kind %v classified to %d events, want 0", kind, len(events))
		}
	}
}
