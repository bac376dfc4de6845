package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Telemetry messages
	MessageTypeTelemetryReading MessageType = "telemetry_reading"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// TelemetryData is the payload of a telemetry_reading broadcast: the
// assigned record id plus the original payload as ingested.
type TelemetryData struct {
	ID       int64          `json:"id"`
	DeviceID string         `json:"device_id"`
	Payload  map[string]any `json:"payload"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
