package mission

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/models"
)

// ErrMissionNotFound is returned for operations on a mission the store does
// not hold.
var ErrMissionNotFound = errors.New("mission not found")

// API is the mission REST surface the store depends on.
type API interface {
	ListMissions(ctx context.Context, query url.Values) ([]models.Mission, error)
	GetMission(ctx context.Context, id string) (models.Mission, error)
	CreateMission(ctx context.Context, m models.Mission) (models.Mission, error)
	UpdateMission(ctx context.Context, id string, updates map[string]any) (models.Mission, error)
	DeleteMission(ctx context.Context, id string) error
	AssignMission(ctx context.Context, id string, req models.AssignRequest) ([]models.Assignment, error)
	UnassignMission(ctx context.Context, id string, req models.UnassignRequest) (int, error)
}

// AssignOption adjusts an assignment request.
type AssignOption func(*models.AssignRequest)

// KeepExisting leaves the vehicles' other active assignments in place on the
// server. By default they are replaced.
func KeepExisting() AssignOption {
	return func(r *models.AssignRequest) { r.ReplaceExisting = false }
}

// Store holds the mission catalog, the loaded detail mission and the
// waypoint draft being edited.
type Store struct {
	api API
	log log.FieldLogger

	mu         sync.RWMutex
	missions   []models.Mission
	selectedID string
	active     *models.Mission
	waypoints  []models.Waypoint
	loading    bool
	err        error
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

// FetchMissions replaces the catalog with the server's list. On failure the
// previous catalog is kept and Err reports the failure.
func (s *Store) FetchMissions(ctx context.Context, query url.Values) error {
	s.begin()
	missions, err := s.api.ListMissions(ctx, query)
	if err != nil {
		s.log.WithError(err).Warn("Failed to fetch missions")
		return s.fail(err)
	}
	s.mu.Lock()
	s.missions = missions
	s.loading = false
	s.mu.Unlock()
	return nil
}

// FetchMission loads one mission as the detail mission and replaces the
// waypoint draft with its waypoints.
func (s *Store) FetchMission(ctx context.Context, id string) (models.Mission, error) {
	s.begin()
	m, err := s.api.GetMission(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("mission_id", id).Warn("Failed to fetch mission")
		return models.Mission{}, s.fail(err)
	}
	s.mu.Lock()
	detail := m.Clone()
	s.active = &detail
	s.waypoints = append([]models.Waypoint(nil), m.Waypoints...)
	s.loading = false
	s.mu.Unlock()
	return m, nil
}

// CreateMission creates a mission and appends it to the catalog.
func (s *Store) CreateMission(ctx context.Context, m models.Mission) (models.Mission, error) {
	s.begin()
	created, err := s.api.CreateMission(ctx, m)
	if err != nil {
		s.log.WithError(err).WithField("name", m.Name).Warn("Failed to create mission")
		return models.Mission{}, s.fail(err)
	}
	s.mu.Lock()
	s.missions = append(s.missions, created)
	s.loading = false
	s.mu.Unlock()
	return created, nil
}

// UpdateMission patches a mission and replaces it in the catalog and, when
// loaded, the detail view.
func (s *Store) UpdateMission(ctx context.Context, id string, updates map[string]any) (models.Mission, error) {
	s.begin()
	updated, err := s.api.UpdateMission(ctx, id, updates)
	if err != nil {
		s.log.WithError(err).WithField("mission_id", id).Warn("Failed to update mission")
		return models.Mission{}, s.fail(err)
	}
	s.mu.Lock()
	for i := range s.missions {
		if s.missions[i].ID == id {
			s.missions[i] = updated
		}
	}
	if s.active != nil && s.active.ID == id {
		detail := updated.Clone()
		s.active = &detail
	}
	s.loading = false
	s.mu.Unlock()
	return updated, nil
}

// SaveDraft writes the waypoint draft to the loaded detail mission.
func (s *Store) SaveDraft(ctx context.Context) (models.Mission, error) {
	s.mu.RLock()
	var id string
	if s.active != nil {
		id = s.active.ID
	}
	draft := slices.Clone(s.waypoints)
	s.mu.RUnlock()
	if id == "" {
		return models.Mission{}, ErrMissionNotFound
	}
	if draft == nil {
		draft = []models.Waypoint{}
	}
	return s.UpdateMission(ctx, id, map[string]any{"waypoints": draft})
}

// DeleteMission deletes a mission and drops it from the store.
func (s *Store) DeleteMission(ctx context.Context, id string) error {
	s.begin()
	if err := s.api.DeleteMission(ctx, id); err != nil {
		s.log.WithError(err).WithField("mission_id", id).Warn("Failed to delete mission")
		return s.fail(err)
	}
	s.mu.Lock()
	s.missions = slices.DeleteFunc(s.missions, func(m models.Mission) bool { return m.ID == id })
	if s.active != nil && s.active.ID == id {
		s.active = nil
	}
	s.loading = false
	s.mu.Unlock()
	return nil
}

// AssignMission binds vehicles to a mission. Returned assignment records
// replace any the mission already held for the same vehicles; the derived
// active-vehicle list is recomputed.
func (s *Store) AssignMission(ctx context.Context, missionID string, vehicleIDs []string, opts ...AssignOption) error {
	req := models.AssignRequest{VehicleIDs: vehicleIDs, ReplaceExisting: true}
	for _, opt := range opts {
		opt(&req)
	}
	assigned, err := s.api.AssignMission(ctx, missionID, req)
	if err != nil {
		s.log.WithError(err).WithFields(log.Fields{
			"mission_id":  missionID,
			"vehicle_ids": vehicleIDs,
		}).Warn("Failed to assign mission")
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eachCopy(missionID, func(m *models.Mission) {
		mergeAssignments(m, missionID, assigned)
	})
	return nil
}

// UnassignMission marks the vehicles' assignments inactive, keeping them as
// history.
func (s *Store) UnassignMission(ctx context.Context, missionID string, vehicleIDs []string) error {
	if _, err := s.api.UnassignMission(ctx, missionID, models.UnassignRequest{VehicleIDs: vehicleIDs}); err != nil {
		s.log.WithError(err).WithFields(log.Fields{
			"mission_id":  missionID,
			"vehicle_ids": vehicleIDs,
		}).Warn("Failed to unassign mission")
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eachCopy(missionID, func(m *models.Mission) {
		for i := range m.Assignments {
			if slices.Contains(vehicleIDs, m.Assignments[i].VehicleID) {
				m.Assignments[i].Active = false
			}
		}
		m.RecomputeAssigned()
	})
	return nil
}

// ApplyAssignmentUpdate merges a streamed assignment update. Updates for an
// unknown mission or vehicle are ignored. It reports whether anything changed.
func (s *Store) ApplyAssignmentUpdate(u models.AssignmentUpdate) bool {
	if u.MissionID == "" || u.VehicleID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := false
	s.eachCopy(u.MissionID, func(m *models.Mission) {
		found := false
		for i := range m.Assignments {
			if m.Assignments[i].VehicleID == u.VehicleID {
				m.Assignments[i] = u.Apply(m.Assignments[i])
				found = true
			}
		}
		if found {
			m.RecomputeAssigned()
			applied = true
		}
	})
	return applied
}

// eachCopy rewrites missionID in the catalog and in the detail view with
// fresh copies so previously returned snapshots stay untouched. Callers hold
// s.mu.
func (s *Store) eachCopy(missionID string, f func(*models.Mission)) {
	for i := range s.missions {
		if s.missions[i].ID != missionID {
			continue
		}
		m := s.missions[i].Clone()
		f(&m)
		s.missions[i] = m
	}
	if s.active != nil && s.active.ID == missionID {
		m := s.active.Clone()
		f(&m)
		s.active = &m
	}
}

func mergeAssignments(m *models.Mission, missionID string, assigned []models.Assignment) {
	replaced := make(map[string]bool, len(assigned))
	for _, a := range assigned {
		replaced[a.VehicleID] = true
	}
	kept := make([]models.Assignment, 0, len(m.Assignments)+len(assigned))
	for _, a := range m.Assignments {
		if !replaced[a.VehicleID] {
			kept = append(kept, a)
		}
	}
	for _, a := range assigned {
		if a.MissionID == "" {
			a.MissionID = missionID
		}
		kept = append(kept, a)
	}
	m.Assignments = kept
	m.RecomputeAssigned()
}

// SelectMission records the mission highlighted in the catalog.
func (s *Store) SelectMission(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
}

// SelectedMissionID returns the highlighted mission id.
func (s *Store) SelectedMissionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Missions returns the catalog.
func (s *Store) Missions() []models.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Mission, len(s.missions))
	for i, m := range s.missions {
		out[i] = m.Clone()
	}
	return out
}

// Mission returns a catalog mission by id.
func (s *Store) Mission(id string) (models.Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.missions {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return models.Mission{}, false
}

// ActiveMission returns the loaded detail mission.
func (s *Store) ActiveMission() (models.Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return models.Mission{}, false
	}
	return s.active.Clone(), true
}

// ActiveMissionForVehicle returns the first catalog mission holding an active
// assignment for vehicleID.
func (s *Store) ActiveMissionForVehicle(vehicleID string) (models.Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.missions {
		for _, a := range m.Assignments {
			if a.VehicleID == vehicleID && a.Active {
				return m.Clone(), true
			}
		}
	}
	return models.Mission{}, false
}

// IsLoading reports whether a fetch or mutation is in flight.
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

// Waypoint draft. These never touch the backend.

// AddWaypoint appends wp to the draft with the next seq and a fresh id.
func (s *Store) AddWaypoint(wp models.Waypoint) models.Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp.ID = uuid.NewString()
	wp.Seq = len(s.waypoints)
	s.waypoints = append(slices.Clip(s.waypoints), wp)
	return wp
}

// UpdateWaypoint patches the draft waypoint with id.
func (s *Store) UpdateWaypoint(id string, patch models.WaypointPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.waypoints {
		if s.waypoints[i].ID == id {
			wps := slices.Clone(s.waypoints)
			wps[i] = patch.Apply(wps[i])
			s.waypoints = wps
			return true
		}
	}
	return false
}

// RemoveWaypoint removes a draft waypoint and renumbers the rest.
func (s *Store) RemoveWaypoint(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wps := slices.DeleteFunc(slices.Clone(s.waypoints), func(wp models.Waypoint) bool { return wp.ID == id })
	if len(wps) == len(s.waypoints) {
		return false
	}
	s.waypoints = renumber(wps)
	return true
}

// ReorderWaypoints moves the waypoint at from to index to and renumbers.
// Out-of-range indexes leave the draft unchanged.
func (s *Store) ReorderWaypoints(from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.waypoints)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	wps := slices.Clone(s.waypoints)
	moved := wps[from]
	wps = slices.Delete(wps, from, from+1)
	wps = slices.Insert(wps, to, moved)
	s.waypoints = renumber(wps)
	return true
}

// ClearWaypoints empties the draft.
func (s *Store) ClearWaypoints() {
	s.mu.Lock()
	s.waypoints = nil
	s.mu.Unlock()
}

// Waypoints returns the draft in seq order.
func (s *Store) Waypoints() []models.Waypoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.waypoints)
}

func renumber(wps []models.Waypoint) []models.Waypoint {
	for i := range wps {
		wps[i].Seq = i
	}
	return wps
}
