package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ukydev/aero-console/internal/actions"
	"github.com/ukydev/aero-console/internal/api"
	"github.com/ukydev/aero-console/internal/models"
)

// MockToken is the access token issued by the mock backend.
const MockToken = "mock-jwt-token"

// MockRefreshToken is the refresh token issued alongside MockToken.
const MockRefreshToken = MockToken + "-refresh"

func notFound(what string) error {
	return &api.Error{Status: http.StatusNotFound, Detail: what + " not found"}
}

// Mock is an in-memory backend seeded with the demo data set. Commands sent
// to it drive the attached simulation.
type Mock struct {
	sim *Sim
	now func() time.Time

	mu       sync.Mutex
	vehicles []models.Vehicle
	fleets   []models.Fleet
	missions []models.Mission
	audits   []models.AuditEvent
	signedIn bool
}

// NewMock creates a mock backend over the demo data set.
func NewMock() *Mock {
	vehicles := DemoVehicles()
	return &Mock{
		sim:      NewSim(vehicles, time.Now().UnixNano()),
		now:      time.Now,
		vehicles: vehicles,
		fleets:   DemoFleets(),
		missions: DemoMissions(),
	}
}

// Sim returns the simulation driven by this backend.
func (m *Mock) Sim() *Sim { return m.sim }

func (m *Mock) Login(_ context.Context, creds models.LoginRequest) (models.LoginResponse, error) {
	if creds.Email != DemoEmail || creds.Password != DemoPassword {
		return models.LoginResponse{}, &api.Error{Status: http.StatusUnauthorized, Detail: "Invalid credentials"}
	}
	m.mu.Lock()
	m.signedIn = true
	m.mu.Unlock()
	return models.LoginResponse{
		TokenPair: models.TokenPair{AccessToken: MockToken, RefreshToken: MockRefreshToken},
		User:      DemoUser,
	}, nil
}

func (m *Mock) Logout(context.Context) error {
	m.mu.Lock()
	m.signedIn = false
	m.mu.Unlock()
	return nil
}

func (m *Mock) Me(context.Context) (models.User, error) {
	return DemoUser, nil
}

// Refresh exchanges the mock refresh token for a fresh pair.
func (m *Mock) Refresh(_ context.Context, refreshToken string) (models.TokenPair, error) {
	if refreshToken != MockRefreshToken {
		return models.TokenPair{}, &api.Error{Status: http.StatusUnauthorized, Detail: "Invalid refresh token"}
	}
	return models.TokenPair{AccessToken: MockToken, RefreshToken: MockRefreshToken}, nil
}

// Role returns the role behind an access token issued by Login.
func (m *Mock) Role(token string) models.Role {
	if token == MockToken {
		return DemoUser.Role
	}
	return ""
}

func (m *Mock) ListVehicles(_ context.Context, query url.Values) ([]models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Vehicle
	for _, v := range m.vehicles {
		if s := query.Get("status"); s != "" && string(v.Status) != s {
			continue
		}
		if t := query.Get("type"); t != "" && v.Type != t {
			continue
		}
		if f := query.Get("fleet_id"); f != "" && v.FleetID != f {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *Mock) GetVehicle(_ context.Context, id string) (models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Vehicle{}, notFound("Vehicle")
}

func (m *Mock) CreateVehicle(_ context.Context, v models.Vehicle) (models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.NewString()
	if v.Status == "" {
		v.Status = models.VehicleOffline
	}
	now := m.now().UTC()
	v.CreatedAt = &now
	m.vehicles = append(m.vehicles, v)
	return v, nil
}

func (m *Mock) UpdateVehicle(_ context.Context, id string, updates map[string]any) (models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.vehicles {
		if m.vehicles[i].ID != id {
			continue
		}
		v := &m.vehicles[i]
		fields := models.Sample(updates)
		if s, ok := fields.String("name"); ok {
			v.Name = s
		}
		if s, ok := fields.String("callsign"); ok {
			v.Callsign = s
		}
		if s, ok := fields.String("fleet_id"); ok {
			v.FleetID = s
		}
		if s, ok := fields.String("status"); ok {
			v.Status = models.VehicleStatus(s)
		}
		if s, ok := fields.String("firmware"); ok {
			v.Firmware = s
		}
		return *v, nil
	}
	return models.Vehicle{}, notFound("Vehicle")
}

func (m *Mock) DeleteVehicle(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.vehicles)
	m.vehicles = slices.DeleteFunc(m.vehicles, func(v models.Vehicle) bool { return v.ID == id })
	if len(m.vehicles) == n {
		return notFound("Vehicle")
	}
	return nil
}

func (m *Mock) SendCommand(_ context.Context, vehicleID string, cmd models.CommandRequest) (models.CommandResult, error) {
	if !m.sim.Apply(vehicleID, cmd.Command, cmd.Params) {
		return models.CommandResult{}, &api.Error{Status: http.StatusConflict, Detail: "Vehicle is not accepting commands"}
	}
	return models.CommandResult{ID: uuid.NewString(), VehicleID: vehicleID, Command: cmd.Command, Status: "accepted"}, nil
}

func (m *Mock) ListFleets(context.Context, url.Values) ([]models.Fleet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.fleets), nil
}

func (m *Mock) CreateFleet(_ context.Context, f models.Fleet) (models.Fleet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = uuid.NewString()
	now := m.now().UTC()
	f.CreatedAt = &now
	m.fleets = append(m.fleets, f)
	return f, nil
}

func (m *Mock) UpdateFleet(_ context.Context, id string, updates map[string]any) (models.Fleet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.fleets {
		if m.fleets[i].ID != id {
			continue
		}
		fields := models.Sample(updates)
		if s, ok := fields.String("name"); ok {
			m.fleets[i].Name = s
		}
		if s, ok := fields.String("description"); ok {
			m.fleets[i].Description = s
		}
		return m.fleets[i], nil
	}
	return models.Fleet{}, notFound("Fleet")
}

func (m *Mock) DeleteFleet(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.fleets)
	m.fleets = slices.DeleteFunc(m.fleets, func(f models.Fleet) bool { return f.ID == id })
	if len(m.fleets) == n {
		return notFound("Fleet")
	}
	return nil
}

func (m *Mock) SendGroupCommand(_ context.Context, fleetID string, cmd models.CommandRequest) (models.CommandResult, error) {
	m.mu.Lock()
	var ids []string
	for _, v := range m.vehicles {
		if v.FleetID == fleetID {
			ids = append(ids, v.ID)
		}
	}
	m.mu.Unlock()
	if len(ids) == 0 {
		return models.CommandResult{}, notFound("Fleet")
	}
	for _, id := range ids {
		m.sim.Apply(id, cmd.Command, cmd.Params)
	}
	return models.CommandResult{ID: uuid.NewString(), Command: cmd.Command, Status: "accepted"}, nil
}

func (m *Mock) ListMissions(_ context.Context, query url.Values) ([]models.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Mission
	for _, ms := range m.missions {
		if s := query.Get("status"); s != "" && string(ms.Status) != s {
			continue
		}
		out = append(out, ms.Clone())
	}
	return out, nil
}

func (m *Mock) GetMission(_ context.Context, id string) (models.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.missionIndex(id); i >= 0 {
		return m.missions[i].Clone(), nil
	}
	return models.Mission{}, notFound("Mission")
}

func (m *Mock) missionIndex(id string) int {
	return slices.IndexFunc(m.missions, func(ms models.Mission) bool { return ms.ID == id })
}

func (m *Mock) CreateMission(_ context.Context, ms models.Mission) (models.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms.ID = uuid.NewString()
	if ms.Status == "" {
		ms.Status = models.MissionPlanned
	}
	for i := range ms.Waypoints {
		if ms.Waypoints[i].ID == "" {
			ms.Waypoints[i].ID = uuid.NewString()
		}
		ms.Waypoints[i].Seq = i
	}
	now := m.now().UTC()
	ms.CreatedAt = &now
	m.missions = append(m.missions, ms.Clone())
	return ms, nil
}

func (m *Mock) UpdateMission(_ context.Context, id string, updates map[string]any) (models.Mission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.missionIndex(id)
	if i < 0 {
		return models.Mission{}, notFound("Mission")
	}
	ms := m.missions[i].Clone()
	fields := models.Sample(updates)
	if s, ok := fields.String("name"); ok {
		ms.Name = s
	}
	if s, ok := fields.String("type"); ok {
		ms.Type = s
	}
	if s, ok := fields.String("status"); ok {
		ms.Status = models.MissionStatus(s)
	}
	if wps, ok := updates["waypoints"].([]models.Waypoint); ok {
		ms.Waypoints = slices.Clone(wps)
	}
	m.missions[i] = ms
	return ms.Clone(), nil
}

func (m *Mock) DeleteMission(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.missionIndex(id)
	if i < 0 {
		return notFound("Mission")
	}
	m.missions = slices.Delete(m.missions, i, i+1)
	return nil
}

// AssignMission mirrors the backend: with replace_existing every active
// assignment of the vehicles is retired first, and vehicles still actively
// assigned to this mission are skipped.
func (m *Mock) AssignMission(_ context.Context, id string, req models.AssignRequest) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.missionIndex(id)
	if i < 0 {
		return nil, notFound("Mission")
	}
	for _, vid := range req.VehicleIDs {
		if !slices.ContainsFunc(m.vehicles, func(v models.Vehicle) bool { return v.ID == vid }) {
			return nil, &api.Error{Status: http.StatusNotFound, Detail: "One or more vehicles not found"}
		}
	}

	if req.ReplaceExisting {
		for mi := range m.missions {
			ms := &m.missions[mi]
			for ai := range ms.Assignments {
				if ms.Assignments[ai].Active && slices.Contains(req.VehicleIDs, ms.Assignments[ai].VehicleID) {
					ms.Assignments[ai].Active = false
				}
			}
			ms.RecomputeAssigned()
		}
	}

	ms := &m.missions[i]
	var created []models.Assignment
	for _, vid := range req.VehicleIDs {
		if slices.ContainsFunc(ms.Assignments, func(a models.Assignment) bool { return a.VehicleID == vid && a.Active }) {
			continue
		}
		a := models.Assignment{MissionID: id, VehicleID: vid, Active: true, Status: "ready"}
		ms.Assignments = slices.DeleteFunc(ms.Assignments, func(old models.Assignment) bool { return old.VehicleID == vid })
		ms.Assignments = append(ms.Assignments, a)
		created = append(created, a)
	}
	ms.RecomputeAssigned()
	return created, nil
}

func (m *Mock) UnassignMission(_ context.Context, id string, req models.UnassignRequest) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.missionIndex(id)
	if i < 0 {
		return 0, notFound("Mission")
	}
	ms := &m.missions[i]
	n := 0
	for ai := range ms.Assignments {
		if ms.Assignments[ai].Active && slices.Contains(req.VehicleIDs, ms.Assignments[ai].VehicleID) {
			ms.Assignments[ai].Active = false
			n++
		}
	}
	ms.RecomputeAssigned()
	return n, nil
}

// AdvanceMissions moves every active assignment forward by step percent and
// returns the resulting updates.
func (m *Mock) AdvanceMissions(step float64) []models.AssignmentUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AssignmentUpdate
	for mi := range m.missions {
		ms := &m.missions[mi]
		for ai := range ms.Assignments {
			a := &ms.Assignments[ai]
			if !a.Active {
				continue
			}
			a.Progress = min(100, a.Progress+step)
			a.Status = "in_progress"
			active := true
			if a.Progress >= 100 {
				a.Status = "completed"
				active = false
				a.Active = false
			}
			if n := len(ms.Waypoints); n > 0 {
				a.CurrentWaypoint = min(n-1, int(a.Progress/100*float64(n)))
			}
			progress, status, wp := a.Progress, a.Status, a.CurrentWaypoint
			out = append(out, models.AssignmentUpdate{
				MissionID:       ms.ID,
				VehicleID:       a.VehicleID,
				Active:          &active,
				Status:          &status,
				Progress:        &progress,
				CurrentWaypoint: &wp,
			})
		}
		ms.RecomputeAssigned()
	}
	return out
}

func (m *Mock) PostAudit(_ context.Context, ev models.AuditEvent) error {
	m.mu.Lock()
	m.audits = append(m.audits, ev)
	m.mu.Unlock()
	return nil
}

// Audits returns the audit events received so far.
func (m *Mock) Audits() []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.audits)
}

// FetchRegistry serves the built-in action registry.
func (m *Mock) FetchRegistry(context.Context) (models.ActionRegistry, error) {
	return models.ActionRegistry{
		Version:     1,
		GeneratedAt: m.now().UTC(),
		Actions:     actions.DefaultRegistry().All(),
	}, nil
}

func (m *Mock) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("mock backend (%d vehicles, %d fleets, %d missions)", len(m.vehicles), len(m.fleets), len(m.missions))
}
