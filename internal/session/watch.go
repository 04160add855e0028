package session

import (
	"encoding/json"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/stream"
)

// watch is one connected channel shared by every caller watching it.
type watch struct {
	refs int
	// vehicles whose link status follows the channel
	vehicles []string
}

// WatchVehicle streams telemetry and mission updates for one vehicle. The
// returned function stops watching; the channel closes once its last watcher
// stops.
func (a *App) WatchVehicle(vehicleID string) (func(), error) {
	return a.acquire(stream.VehicleChannel(vehicleID), []string{vehicleID}, vehicleID)
}

// WatchFleet streams telemetry for the whole organization. Link status of
// vehicleIDs follows the organization channel.
func (a *App) WatchFleet(vehicleIDs []string) (func(), error) {
	org := a.Session.OrganizationID()
	if org == "" {
		return nil, ErrNotSignedIn
	}
	return a.acquire(stream.OrgChannel(org), vehicleIDs, "")
}

// WatchAlerts streams the organization's alerts into the alert log.
func (a *App) WatchAlerts() (func(), error) {
	org := a.Session.OrganizationID()
	if org == "" {
		return nil, ErrNotSignedIn
	}
	return a.acquire(stream.AlertsChannel(org), nil, "")
}

// SendStreamCommand sends a command envelope on a watched vehicle's channel.
// It reports false when the channel is not connected.
func (a *App) SendStreamCommand(vehicleID, command string, params map[string]any) bool {
	return a.Stream.Send(stream.VehicleChannel(vehicleID), models.NewCommandEnvelope(command, params))
}

func (a *App) acquire(channel string, vehicles []string, vehicleID string) (func(), error) {
	a.mu.Lock()
	w := a.watches[channel]
	if w != nil {
		w.refs++
		for _, id := range vehicles {
			if !slices.Contains(w.vehicles, id) {
				w.vehicles = append(w.vehicles, id)
			}
		}
		a.mu.Unlock()
		return a.releaser(channel, w), nil
	}
	w = &watch{refs: 1, vehicles: slices.Clone(vehicles)}
	a.watches[channel] = w
	a.mu.Unlock()

	err := a.Stream.Connect(channel, stream.Options{
		OnOpen:    func() { a.setStatus(w, models.StatusConnected) },
		OnMessage: func(env models.Envelope) { a.dispatch(channel, vehicleID, env) },
		OnClose:   func(stream.CloseEvent) { a.setStatus(w, models.StatusDisconnected) },
		OnError:   func(error) { a.setStatus(w, models.StatusError) },
	})
	if err != nil {
		a.mu.Lock()
		if a.watches[channel] == w {
			delete(a.watches, channel)
		}
		a.mu.Unlock()
		return nil, err
	}
	return a.releaser(channel, w), nil
}

func (a *App) releaser(channel string, w *watch) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			w.refs--
			last := w.refs == 0 && a.watches[channel] == w
			if last {
				delete(a.watches, channel)
			}
			a.mu.Unlock()
			if last {
				a.Stream.Disconnect(channel)
			}
		})
	}
}

func (a *App) setStatus(w *watch, status models.ConnectionStatus) {
	a.mu.Lock()
	ids := slices.Clone(w.vehicles)
	a.mu.Unlock()
	for _, id := range ids {
		a.Telemetry.SetConnectionStatus(id, status)
	}
}

// dispatch routes an inbound envelope to the store that owns its data.
// vehicleID is the channel's vehicle, if any; envelopes naming a vehicle
// take precedence.
func (a *App) dispatch(channel, vehicleID string, env models.Envelope) {
	if env.VehicleID != "" {
		vehicleID = env.VehicleID
	}
	entry := a.log.WithFields(log.Fields{"channel": channel, "type": env.Type})
	if len(env.Data) == 0 {
		entry.Debug("Ignoring envelope without data")
		return
	}

	switch env.Type {
	case models.EnvelopeTelemetry:
		if vehicleID == "" {
			entry.Debug("Ignoring telemetry without a vehicle")
			return
		}
		var sample models.Sample
		if err := json.Unmarshal(env.Data, &sample); err != nil {
			entry.WithError(err).Warn("Dropping unreadable telemetry")
			return
		}
		a.Telemetry.UpdateVehicleTelemetry(vehicleID, sample)

	case models.EnvelopeMission:
		var u models.AssignmentUpdate
		if err := json.Unmarshal(env.Data, &u); err != nil {
			entry.WithError(err).Warn("Dropping unreadable mission update")
			return
		}
		if u.VehicleID == "" {
			u.VehicleID = vehicleID
		}
		if !a.Missions.ApplyAssignmentUpdate(u) {
			entry.WithFields(log.Fields{"mission_id": u.MissionID, "vehicle_id": u.VehicleID}).Debug("Mission update for unknown assignment")
		}

	case models.EnvelopeAlert:
		var alert models.Alert
		if err := json.Unmarshal(env.Data, &alert); err != nil {
			entry.WithError(err).Warn("Dropping unreadable alert")
			return
		}
		if alert.VehicleID == nil && vehicleID != "" {
			alert.VehicleID = &vehicleID
		}
		a.Telemetry.AddAlert(alert)

	default:
		entry.Debug("Ignoring envelope type")
	}
}
