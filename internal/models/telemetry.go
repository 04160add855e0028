package models

import (
	"encoding/json"
	"time"
)

// ConnectionStatus is the per-vehicle (and per-channel) link state.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// Sample is one streamed telemetry payload. Fields are kept as decoded JSON
// so new telemetry keys flow through without a schema change.
type Sample map[string]any

// Clone returns a shallow copy of the sample.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Float returns a numeric field, if present.
func (s Sample) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// String returns a string field, if present.
func (s Sample) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Bool returns a boolean field, if present.
func (s Sample) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// HistoryPoint is a timestamped copy of a sample kept in a vehicle's history.
type HistoryPoint struct {
	Sample    Sample    `json:"sample"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope types carried on the streaming channel.
const (
	EnvelopeTelemetry = "telemetry"
	EnvelopeAlert     = "alert"
	EnvelopeMission   = "mission"
	EnvelopeCommand   = "command"
)

// Envelope is an inbound streaming message.
type Envelope struct {
	Type      string          `json:"type"`
	VehicleID string          `json:"vehicle_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// CommandEnvelope is an outbound command sent over the stream.
type CommandEnvelope struct {
	Type    string         `json:"type"`
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// NewCommandEnvelope builds an outbound command envelope.
func NewCommandEnvelope(command string, params map[string]any) CommandEnvelope {
	return CommandEnvelope{Type: EnvelopeCommand, Command: command, Params: params}
}
