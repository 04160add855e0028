package models

import "time"

// Severity of an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
)

// Alert represents an operational alert raised by the backend or a vehicle.
type Alert struct {
	ID           string    `json:"id"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	VehicleID    *string   `json:"vehicle_id"`
	Timestamp    int64     `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
	ReceivedAt   time.Time `json:"received_at"`
}
