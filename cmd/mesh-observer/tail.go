// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mictronics/mesh-observer/lib/clock"
	"github.com/Mictronics/mesh-observer/lib/codec"
	"github.com/Mictronics/mesh-observer/lib/ingest"
)

const (
	// tailBufferSize is the per-subscriber frame buffer. A subscriber
	// that falls this far behind starts losing frames.
	tailBufferSize = 256

	// heartbeatInterval keeps idle tail connections verifiably alive.
	heartbeatInterval = 10 * time.Second
)

// tailSubscriber is one connected tail client.
type tailSubscriber struct {
	frames  chan codec.TailFrame
	dropped atomic.Int64
}

// tailHub fans ingestion activity out to tail subscribers. Sends are
// non-blocking: a slow client loses frames, never stalls ingestion.
type tailHub struct {
	clock clock.Clock

	mu          sync.Mutex
	subscribers map[*tailSubscriber]struct{}
}

func newTailHub(clk clock.Clock) *tailHub {
	return &tailHub{
		clock:       clk,
		subscribers: make(map[*tailSubscriber]struct{}),
	}
}

func (h *tailHub) subscribe() *tailSubscriber {
	sub := &tailSubscriber{frames: make(chan codec.TailFrame, tailBufferSize)}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *tailHub) unsubscribe(sub *tailSubscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
}

func (h *tailHub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// publish is the engine's observer hook.
func (h *tailHub) publish(record ingest.TailRecord) {
	h.broadcast(codec.TailFrame{
		Type:    codec.FrameLine,
		Time:    h.clock.Now().Unix(),
		Line:    record.Line,
		Matched: record.Matched,
		Kind:    record.Kind.String(),
	})
}

func (h *tailHub) broadcast(frame codec.TailFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		// Report earlier losses on the next frame that does fit.
		subFrame := frame
		subFrame.Dropped = sub.dropped.Swap(0)

		select {
		case sub.frames <- subFrame:
		default:
			sub.dropped.Add(subFrame.Dropped + 1)
		}
	}
}

func (h *tailHub) heartbeatLoop(ctx context.Context) {
	ticker := h.clock.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.broadcast(codec.TailFrame{Type: codec.FrameHeartbeat, Time: now.Unix()})
		}
	}
}
