// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// statusFrame is a representative control-socket frame using cbor
// struct tags, the convention for all wire types on the daemon socket.
type statusFrame struct {
	Action string `cbor:"action"`
	Lines  uint64 `cbor:"lines,omitempty"`
	Uptime float64 `cbor:"uptime,omitempty"`
}

func TestRoundTrip(t *testing.T) {
	original := statusFrame{Action: "status", Lines: 48211, Uptime: 3600.5}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded statusFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("round-trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestDeterministicEncoding(t *testing.T) {
	value := map[string]any{
		"zebra":  1,
		"apple":  2,
		"middle": 3,
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same map produced different encodings")
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	// A newer daemon may add fields; an old client must still decode.
	data, err := Marshal(map[string]any{
		"action":      "status",
		"new_counter": 99,
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var frame statusFrame
	if err := Unmarshal(data, &frame); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if frame.Action != "status" {
		t.Errorf("Action = %q, want %q", frame.Action, "status")
	}
}

func TestStreamEncodeDecode(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)

	frames := []statusFrame{
		{Action: "status"},
		{Action: "tail", Lines: 7},
	}
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got statusFrame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode frame %d: %v", i, err)
		}
		if got != want {
			t.Errorf("frame %d: got %+v, want %+v", i, got, want)
		}
	}

	// DefaultMapType: decoding into any must produce map[string]any.
	data, err := Marshal(map[string]any{"key": "value"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var anyTarget any
	if err := Unmarshal(data, &anyTarget); err != nil {
		t.Fatalf("Unmarshal into any: %v", err)
	}
	if _, ok := anyTarget.(map[string]any); !ok {
		t.Errorf("decoded any-target type = %T, want map[string]any", anyTarget)
	}
}
