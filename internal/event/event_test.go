package event

import (
	"encoding/json"
	"testing"
)

func TestFieldsFlattensPayload(t *testing.T) {
	ev := New("process", "recording-started", 7, 0.85, map[string]any{
		"isRecording":  true,
		"processCount": 42,
	})

	fields := ev.Fields()
	if fields["module"] != "process" {
		t.Errorf("module = %v", fields["module"])
	}
	if fields["eventType"] != "recording-started" {
		t.Errorf("eventType = %v", fields["eventType"])
	}
	if fields["count"] != int64(7) {
		t.Errorf("count = %v", fields["count"])
	}
	if fields["source"] != "native" {
		t.Errorf("source = %v", fields["source"])
	}
	if fields["ts"] != fields["timestamp"] {
		t.Error("ts must mirror timestamp")
	}
	if fields["isRecording"] != true {
		t.Error("payload field lost in flattening")
	}
}

func TestFieldsDropsReservedPayloadKeys(t *testing.T) {
	ev := New("process", "recording-started", 1, 0.9, map[string]any{
		"module": "spoofed",
		"count":  int64(999),
		"extra":  "kept",
	})

	fields := ev.Fields()
	if fields["module"] != "process" {
		t.Errorf("payload overrode envelope module: %v", fields["module"])
	}
	if fields["count"] != int64(1) {
		t.Errorf("payload overrode envelope count: %v", fields["count"])
	}
	if fields["extra"] != "kept" {
		t.Error("non-reserved payload key should survive")
	}
}

func TestMarshalUnmarshalEnvelope(t *testing.T) {
	ev := New("clipboard", "clipboard-changed", 3, 0, map[string]any{
		"contentHash": "abcd1234",
	})

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Event
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Module != "clipboard" || back.Type != "clipboard-changed" {
		t.Errorf("envelope lost: %+v", back)
	}
	if back.Sequence != 3 {
		t.Errorf("sequence = %d, want 3", back.Sequence)
	}
	if back.Payload["contentHash"] != "abcd1234" {
		t.Errorf("payload lost: %v", back.Payload)
	}
}

func TestSchemaValidation(t *testing.T) {
	ev := New("process", "recording-started", 1, 0.85, map[string]any{
		"isRecording": true,
	})
	if err := ev.Validate(); err != nil {
		t.Errorf("well-formed event failed validation: %v", err)
	}
}

func TestSchemaRejectsMissingModule(t *testing.T) {
	ev := New("", "recording-started", 1, 0.85, nil)
	if err := ev.Validate(); err == nil {
		t.Error("event without a module should fail validation")
	}
}

func TestSchemaRejectsOutOfRangeConfidence(t *testing.T) {
	ev := New("process", "recording-started", 1, 1.5, nil)
	if err := ev.Validate(); err == nil {
		t.Error("confidence above 1 should fail validation")
	}
}
