// Package event defines the canonical wire format for watcher events.
//
// Every event emitted by a watcher carries the same envelope fields
// (module, eventType, timestamp, ts, count, source) plus domain-specific
// payload fields flattened into the same JSON object. The "ts" field is a
// duplicate of "timestamp" kept for consumer compatibility.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source is the fixed origin marker stamped on every event.
const Source = "native"

// Well-known event types shared across watcher domains.
const (
	TypeHeartbeat = "heartbeat"
	TypeSnapshot  = "snapshot"
)

// Event is a single classified observation handed to the host callback.
// Events cross the watcher goroutine boundary by value; the consumer owns
// the copy it receives.
type Event struct {
	// Module is the watcher domain identifier (e.g. "process", "clipboard").
	Module string

	// Type is the event type (e.g. "heartbeat", "recording-started").
	Type string

	// Timestamp is milliseconds since the Unix epoch.
	Timestamp int64

	// Sequence is the monotonic per-watcher counter. It never resets
	// across Start/Stop cycles of the same watcher instance.
	Sequence int64

	// Confidence is the classifier score in [0, 1] for this event.
	Confidence float64

	// Payload holds domain-specific fields. Keys colliding with envelope
	// fields are dropped during marshaling.
	Payload map[string]any
}

// reserved envelope keys that payload fields may not override.
var reserved = map[string]bool{
	"module":     true,
	"eventType":  true,
	"timestamp":  true,
	"ts":         true,
	"count":      true,
	"source":     true,
	"confidence": true,
}

// New creates an event stamped with the current time.
func New(module, eventType string, sequence int64, confidence float64, payload map[string]any) Event {
	return Event{
		Module:     module,
		Type:       eventType,
		Timestamp:  time.Now().UnixMilli(),
		Sequence:   sequence,
		Confidence: confidence,
		Payload:    payload,
	}
}

// Fields returns the flattened JSON object for the event.
func (e Event) Fields() map[string]any {
	out := make(map[string]any, len(e.Payload)+7)
	for k, v := range e.Payload {
		if reserved[k] {
			continue
		}
		out[k] = v
	}
	out["module"] = e.Module
	out["eventType"] = e.Type
	out["timestamp"] = e.Timestamp
	out["ts"] = e.Timestamp
	out["count"] = e.Sequence
	out["source"] = Source
	out["confidence"] = e.Confidence
	return out
}

// MarshalJSON flattens envelope and payload into one object.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}

// UnmarshalJSON rebuilds an event from its flattened form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	get := func(key string) string {
		s, _ := raw[key].(string)
		return s
	}
	num := func(key string) (float64, error) {
		switch v := raw[key].(type) {
		case float64:
			return v, nil
		case json.Number:
			return v.Float64()
		case nil:
			return 0, nil
		default:
			return 0, fmt.Errorf("event: field %q has type %T", key, v)
		}
	}

	ts, err := num("timestamp")
	if err != nil {
		return err
	}
	count, err := num("count")
	if err != nil {
		return err
	}
	conf, err := num("confidence")
	if err != nil {
		return err
	}

	e.Module = get("module")
	e.Type = get("eventType")
	e.Timestamp = int64(ts)
	e.Sequence = int64(count)
	e.Confidence = conf

	e.Payload = make(map[string]any)
	for k, v := range raw {
		if reserved[k] {
			continue
		}
		e.Payload[k] = v
	}
	return nil
}

// Time returns the event timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}
