package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/models"
)

const (
	// HistoryLimit is the number of samples kept per vehicle.
	HistoryLimit = 200
	// AlertLimit is the maximum length of the alert log.
	AlertLimit = 500
)

// Record is a vehicle's latest telemetry plus its recent history.
type Record struct {
	VehicleID  string
	Fields     models.Sample
	History    []models.HistoryPoint
	LastUpdate time.Time
}

// Battery returns the latest battery reading, if any.
func (r Record) Battery() (float64, bool) {
	return r.Fields.Float("battery")
}

type vehicleState struct {
	fields     models.Sample
	history    *ring
	lastUpdate time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// Store holds live telemetry per vehicle, link status, and the alert log.
// It is the only writer of telemetry state.
type Store struct {
	now func() time.Time
	log log.FieldLogger

	mu       sync.RWMutex
	vehicles map[string]*vehicleState
	status   map[string]models.ConnectionStatus
	alerts   []models.Alert
	unread   int
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		vehicles: make(map[string]*vehicleState),
		status:   make(map[string]models.ConnectionStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	return s
}

// UpdateVehicleTelemetry merges sample's top-level fields into the vehicle's
// current record and appends a timestamped copy to its history.
func (s *Store) UpdateVehicleTelemetry(vehicleID string, sample models.Sample) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.vehicles[vehicleID]
	if v == nil {
		v = &vehicleState{fields: models.Sample{}, history: newRing(HistoryLimit)}
		s.vehicles[vehicleID] = v
	}
	for k, val := range sample {
		v.fields[k] = val
	}
	v.history.push(models.HistoryPoint{Sample: sample.Clone(), Timestamp: now})
	v.lastUpdate = now
}

// Vehicle returns a copy of the vehicle's telemetry record.
func (s *Store) Vehicle(vehicleID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.vehicles[vehicleID]
	if v == nil {
		return Record{}, false
	}
	return Record{
		VehicleID:  vehicleID,
		Fields:     v.fields.Clone(),
		History:    v.history.slice(),
		LastUpdate: v.lastUpdate,
	}, true
}

// VehicleIDs lists vehicles with at least one sample.
func (s *Store) VehicleIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	return ids
}

// SetConnectionStatus records the link status for a vehicle or channel.
func (s *Store) SetConnectionStatus(id string, status models.ConnectionStatus) {
	s.mu.Lock()
	s.status[id] = status
	s.mu.Unlock()
}

// ConnectionStatus returns the recorded link status, disconnected if unknown.
func (s *Store) ConnectionStatus(id string) models.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.status[id]; ok {
		return st
	}
	return models.StatusDisconnected
}

// AddAlert prepends alert to the log, assigning an id if it has none, and
// increments the unread count. The stored alert is returned.
func (s *Store) AddAlert(alert models.Alert) models.Alert {
	now := s.now()
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Timestamp == 0 {
		alert.Timestamp = now.UnixMilli()
	}
	alert.ReceivedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	alerts := make([]models.Alert, 0, min(len(s.alerts)+1, AlertLimit))
	alerts = append(alerts, alert)
	alerts = append(alerts, s.alerts...)
	if len(alerts) > AlertLimit {
		alerts = alerts[:AlertLimit]
	}
	s.alerts = alerts
	s.unread++
	return alert
}

// AcknowledgeAlert marks an alert acknowledged. The unread count drops by one
// only when a not-yet-acknowledged alert was found, and never below zero.
func (s *Store) AcknowledgeAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if s.alerts[i].Acknowledged {
			return false
		}
		s.alerts[i].Acknowledged = true
		if s.unread > 0 {
			s.unread--
		}
		return true
	}
	return false
}

// DismissAlert removes an alert regardless of its acknowledgement.
func (s *Store) DismissAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts = append(s.alerts[:i:i], s.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAllAlerts empties the log and zeroes the unread count.
func (s *Store) ClearAllAlerts() {
	s.mu.Lock()
	s.alerts = nil
	s.unread = 0
	s.mu.Unlock()
}

// MarkAllRead zeroes the unread count.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	s.unread = 0
	s.mu.Unlock()
}

// Alerts returns the alert log, newest first.
func (s *Store) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Alert(nil), s.alerts...)
}

// UnreadAlertCount returns the unread tally.
func (s *Store) UnreadAlertCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// CriticalAlerts returns unacknowledged critical alerts, newest first.
func (s *Store) CriticalAlerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.alerts {
		if a.Severity == models.SeverityCritical && !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// Reset clears all telemetry, status and alerts at the end of a session.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = make(map[string]*vehicleState)
	s.status = make(map[string]models.ConnectionStatus)
	s.alerts = nil
	s.unread = 0
	s.log.Debug("Telemetry store reset")
}
