package fleet

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/models"
)

// API is the vehicle and fleet REST surface the store depends on.
type API interface {
	ListVehicles(ctx context.Context, query url.Values) ([]models.Vehicle, error)
	CreateVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, updates map[string]any) (models.Vehicle, error)
	DeleteVehicle(ctx context.Context, id string) error
	SendCommand(ctx context.Context, vehicleID string, cmd models.CommandRequest) (models.CommandResult, error)

	ListFleets(ctx context.Context, query url.Values) ([]models.Fleet, error)
	CreateFleet(ctx context.Context, f models.Fleet) (models.Fleet, error)
	UpdateFleet(ctx context.Context, id string, updates map[string]any) (models.Fleet, error)
	DeleteFleet(ctx context.Context, id string) error
	SendGroupCommand(ctx context.Context, fleetID string, cmd models.CommandRequest) (models.CommandResult, error)
}

// Filters narrows FilteredVehicles. Empty fields match everything.
type Filters struct {
	Status models.VehicleStatus
	Type   string
	Search string
}

// Store mirrors the backend's vehicle and fleet records.
type Store struct {
	api API
	log log.FieldLogger

	mu                sync.RWMutex
	vehicles          []models.Vehicle
	fleets            []models.Fleet
	selectedVehicleID string
	selectedFleetID   string
	filters           Filters
	loading           bool
	err               error
}

// NewStore creates an empty Store backed by api.
func NewStore(api API, logger log.FieldLogger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{api: api, log: logger}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.loading = false
	s.err = err
	s.mu.Unlock()
	return err
}

func (s *Store) done() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// FetchVehicles replaces the vehicle list. On failure the previous list is
// kept.
func (s *Store) FetchVehicles(ctx context.Context, query url.Values) error {
	s.begin()
	vehicles, err := s.api.ListVehicles(ctx, query)
	if err != nil {
		s.log.WithError(err).Warn("Failed to fetch vehicles")
		return s.fail(err)
	}
	s.mu.Lock()
	s.vehicles = vehicles
	s.loading = false
	s.mu.Unlock()
	return nil
}

// FetchFleets replaces the fleet list. On failure the previous list is kept.
func (s *Store) FetchFleets(ctx context.Context, query url.Values) error {
	s.begin()
	fleets, err := s.api.ListFleets(ctx, query)
	if err != nil {
		s.log.WithError(err).Warn("Failed to fetch fleets")
		return s.fail(err)
	}
	s.mu.Lock()
	s.fleets = fleets
	s.loading = false
	s.mu.Unlock()
	return nil
}

// CreateVehicle registers a vehicle and appends it to the store.
func (s *Store) CreateVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	s.begin()
	created, err := s.api.CreateVehicle(ctx, v)
	if err != nil {
		s.log.WithError(err).WithField("name", v.Name).Warn("Failed to create vehicle")
		return models.Vehicle{}, s.fail(err)
	}
	s.mu.Lock()
	s.vehicles = append(slices.Clip(s.vehicles), created)
	s.loading = false
	s.mu.Unlock()
	return created, nil
}

// UpdateVehicle patches a vehicle and replaces the stored copy.
func (s *Store) UpdateVehicle(ctx context.Context, id string, updates map[string]any) (models.Vehicle, error) {
	s.begin()
	updated, err := s.api.UpdateVehicle(ctx, id, updates)
	if err != nil {
		s.log.WithError(err).WithField("vehicle_id", id).Warn("Failed to update vehicle")
		return models.Vehicle{}, s.fail(err)
	}
	s.mu.Lock()
	vehicles := slices.Clone(s.vehicles)
	for i := range vehicles {
		if vehicles[i].ID == id {
			vehicles[i] = updated
		}
	}
	s.vehicles = vehicles
	s.loading = false
	s.mu.Unlock()
	return updated, nil
}

// DeleteVehicle removes a vehicle and clears the selection if it pointed at
// it.
func (s *Store) DeleteVehicle(ctx context.Context, id string) error {
	s.begin()
	if err := s.api.DeleteVehicle(ctx, id); err != nil {
		s.log.WithError(err).WithField("vehicle_id", id).Warn("Failed to delete vehicle")
		return s.fail(err)
	}
	s.mu.Lock()
	s.vehicles = slices.DeleteFunc(slices.Clone(s.vehicles), func(v models.Vehicle) bool { return v.ID == id })
	if s.selectedVehicleID == id {
		s.selectedVehicleID = ""
	}
	s.loading = false
	s.mu.Unlock()
	return nil
}

// CreateFleet creates a fleet and appends it to the store.
func (s *Store) CreateFleet(ctx context.Context, f models.Fleet) (models.Fleet, error) {
	s.begin()
	created, err := s.api.CreateFleet(ctx, f)
	if err != nil {
		s.log.WithError(err).WithField("name", f.Name).Warn("Failed to create fleet")
		return models.Fleet{}, s.fail(err)
	}
	s.mu.Lock()
	s.fleets = append(slices.Clip(s.fleets), created)
	s.loading = false
	s.mu.Unlock()
	return created, nil
}

// UpdateFleet patches a fleet and replaces the stored copy.
func (s *Store) UpdateFleet(ctx context.Context, id string, updates map[string]any) (models.Fleet, error) {
	s.begin()
	updated, err := s.api.UpdateFleet(ctx, id, updates)
	if err != nil {
		s.log.WithError(err).WithField("fleet_id", id).Warn("Failed to update fleet")
		return models.Fleet{}, s.fail(err)
	}
	s.mu.Lock()
	fleets := slices.Clone(s.fleets)
	for i := range fleets {
		if fleets[i].ID == id {
			fleets[i] = updated
		}
	}
	s.fleets = fleets
	s.loading = false
	s.mu.Unlock()
	return updated, nil
}

// DeleteFleet removes a fleet. Its vehicles stay registered.
func (s *Store) DeleteFleet(ctx context.Context, id string) error {
	s.begin()
	if err := s.api.DeleteFleet(ctx, id); err != nil {
		s.log.WithError(err).WithField("fleet_id", id).Warn("Failed to delete fleet")
		return s.fail(err)
	}
	s.mu.Lock()
	s.fleets = slices.DeleteFunc(slices.Clone(s.fleets), func(f models.Fleet) bool { return f.ID == id })
	if s.selectedFleetID == id {
		s.selectedFleetID = ""
	}
	s.loading = false
	s.mu.Unlock()
	return nil
}

// SendCommand dispatches a command to one vehicle. The vehicle records are
// not touched; live telemetry reports the effect.
func (s *Store) SendCommand(ctx context.Context, vehicleID, command string, params map[string]any) (models.CommandResult, error) {
	s.begin()
	res, err := s.api.SendCommand(ctx, vehicleID, models.CommandRequest{Command: command, Params: params})
	if err != nil {
		s.log.WithError(err).WithFields(log.Fields{
			"vehicle_id": vehicleID,
			"command":    command,
		}).Warn("Command dispatch failed")
		return models.CommandResult{}, s.fail(err)
	}
	s.done()
	return res, nil
}

// SendGroupCommand dispatches a command to every vehicle of a fleet.
func (s *Store) SendGroupCommand(ctx context.Context, fleetID, command string, params map[string]any) (models.CommandResult, error) {
	s.begin()
	res, err := s.api.SendGroupCommand(ctx, fleetID, models.CommandRequest{Command: command, Params: params})
	if err != nil {
		s.log.WithError(err).WithFields(log.Fields{
			"fleet_id": fleetID,
			"command":  command,
		}).Warn("Group command dispatch failed")
		return models.CommandResult{}, s.fail(err)
	}
	s.done()
	return res, nil
}

// SelectVehicle marks a vehicle as selected. An empty id clears the selection.
func (s *Store) SelectVehicle(id string) {
	s.mu.Lock()
	s.selectedVehicleID = id
	s.mu.Unlock()
}

// SelectedVehicleID returns the selected vehicle id.
func (s *Store) SelectedVehicleID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedVehicleID
}

// SelectFleet marks a fleet as selected. An empty id clears the selection.
func (s *Store) SelectFleet(id string) {
	s.mu.Lock()
	s.selectedFleetID = id
	s.mu.Unlock()
}

// SelectedFleetID returns the selected fleet id.
func (s *Store) SelectedFleetID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedFleetID
}

// SetFilters replaces the filters applied by FilteredVehicles.
func (s *Store) SetFilters(f Filters) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
}

// Filters returns the current filters.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Vehicles returns every vehicle in server order.
func (s *Store) Vehicles() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.vehicles)
}

// FilteredVehicles applies the current filters. Search matches name or
// callsign, ignoring case.
func (s *Store) FilteredVehicles() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.filters
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []models.Vehicle
	for _, v := range s.vehicles {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.Type != "" && v.Type != f.Type {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(v.Name), search) &&
			!strings.Contains(strings.ToLower(v.Callsign), search) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Vehicle returns the stored vehicle with id.
func (s *Store) Vehicle(id string) (models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return models.Vehicle{}, false
}

// Fleets returns a copy of the stored fleets.
func (s *Store) Fleets() []models.Fleet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fleets)
}

// Fleet returns the stored fleet with id.
func (s *Store) Fleet(id string) (models.Fleet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.fleets {
		if f.ID == id {
			return f, true
		}
	}
	return models.Fleet{}, false
}

// OnlineCount counts vehicles whose last-known status is anything but
// offline.
func (s *Store) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.vehicles {
		if v.Status != models.VehicleOffline {
			n++
		}
	}
	return n
}

// VehiclesByFleet returns the vehicles that belong to fleetID.
func (s *Store) VehiclesByFleet(fleetID string) []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Vehicle
	for _, v := range s.vehicles {
		if v.FleetID == fleetID {
			out = append(out, v)
		}
	}
	return out
}

// IsLoading reports whether a REST call is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last REST failure, cleared when the next call starts.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
