// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// sampleRequest is a representative wire envelope using cbor struct
// tags (the convention for purely-internal types).
type sampleRequest struct {
	ID    uint64 `cbor:"request_id"`
	Op    string `cbor:"op"`
	Title string `cbor:"title,omitempty"`
}

// sampleRecord uses json struct tags (the convention for types that
// serve both JSON and CBOR, relying on fxamacker's fallback).
type sampleRecord struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRequest{
		ID:    42,
		Op:    "create_session",
		Title: "Demo",
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleRequest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	request := sampleRequest{ID: 7, Op: "list_sessions"}

	first, err := Marshal(request)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(request)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestJSONTagFallback(t *testing.T) {
	original := sampleRecord{SessionID: "s1", ProjectID: "p1"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// The CBOR map keys must come from the json tags, not the Go
	// field names — the wire carries the internal naming convention.
	var asMap map[string]any
	if err := Unmarshal(data, &asMap); err != nil {
		t.Fatalf("Unmarshal into map: %v", err)
	}
	if _, ok := asMap["session_id"]; !ok {
		t.Errorf("expected key session_id, got keys %v", asMap)
	}
	if _, ok := asMap["SessionID"]; ok {
		t.Error("Go field name leaked into encoding")
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	requests := []sampleRequest{
		{ID: 1, Op: "list_sessions"},
		{ID: 2, Op: "create_session", Title: "first"},
		{ID: 3, Op: "delete_session"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for i, request := range requests {
		if err := encoder.Encode(request); err != nil {
			t.Fatalf("Encode message %d: %v", i, err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range requests {
		var got sampleRequest
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", i, err)
		}
		if got != want {
			t.Errorf("message %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	// Encode a superset, decode into the smaller struct. Newer UIs may
	// send fields this bridge does not know about.
	superset := map[string]any{
		"request_id": uint64(9),
		"op":         "ping",
		"deadline":   "2026-01-01T00:00:00Z",
	}
	data, err := Marshal(superset)
	if err != nil {
		t.Fatalf("Marshal superset: %v", err)
	}

	var decoded sampleRequest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if decoded.ID != 9 || decoded.Op != "ping" {
		t.Errorf("got %+v, want ID=9 Op=ping", decoded)
	}
}

func TestDefaultMapType(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "value"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type %T, want map[string]any", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Fatalf("nested type %T, want map[string]any", outer["outer"])
	}
}
