package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// DefaultDeviceID is recorded when a telemetry payload carries no usable
// device identifier.
const DefaultDeviceID = "unknown"

// TelemetryRecord is one ingested sensor reading. The typed fields are a
// lossy projection of Payload; Payload is the source of truth and is
// preserved verbatim for audit and replay. Records are append-only.
type TelemetryRecord struct {
	ID          int64          `json:"id"`
	DeviceID    string         `json:"device_id"`
	Temperature *float64       `json:"temperature"`
	Humidity    *float64       `json:"humidity"`
	Light       *float64       `json:"light"`
	RecordedAt  time.Time      `json:"recorded_at"`
	Payload     map[string]any `json:"payload"`
}

// TextSubmission is a free-form operator submission. It is unrelated to
// telemetry and device profiles.
type TextSubmission struct {
	ID          int64     `json:"id"`
	Content     string    `json:"content"`
	RemoteAddr  string    `json:"remote_addr"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Reading is the typed projection extracted from a telemetry payload.
type Reading struct {
	DeviceID    string
	Temperature *float64
	Humidity    *float64
	Light       *float64
}

// ExtractReading projects the typed telemetry fields out of an arbitrary
// payload. Missing or malformed fields come back nil; extraction never
// fails. Running it again over a stored payload reproduces the same
// projection, which is what keeps the typed columns honest.
func ExtractReading(payload map[string]any) Reading {
	r := Reading{
		DeviceID:    DefaultDeviceID,
		Temperature: numericField(payload, "temperature"),
		Humidity:    numericField(payload, "humidity"),
		Light:       numericField(payload, "light"),
	}
	if id, ok := payload["device_id"].(string); ok && id != "" {
		r.DeviceID = id
	}
	return r
}

// numericField reads payload[key] as a float. JSON decoding hands us
// float64 for numbers, but devices in the field also send json.Number and
// stringified readings, so those are accepted too.
func numericField(payload map[string]any, key string) *float64 {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil
	}

	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}
