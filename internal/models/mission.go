package models

import "time"

// MissionStatus is the lifecycle status of a mission.
type MissionStatus string

const (
	MissionPlanned    MissionStatus = "planned"
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
)

// Waypoint is one step of a mission route. Seq is 0-based and contiguous
// within its mission.
type Waypoint struct {
	ID      string  `json:"id"`
	Seq     int     `json:"seq"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Alt     float64 `json:"alt"`
	Type    string  `json:"type,omitempty"`
	Command string  `json:"command,omitempty"`
}

// WaypointPatch carries the fields to change on a draft waypoint.
type WaypointPatch struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Alt     *float64 `json:"alt,omitempty"`
	Type    *string  `json:"type,omitempty"`
	Command *string  `json:"command,omitempty"`
}

// Apply returns wp with the patch applied.
func (p WaypointPatch) Apply(wp Waypoint) Waypoint {
	if p.Lat != nil {
		wp.Lat = *p.Lat
	}
	if p.Lng != nil {
		wp.Lng = *p.Lng
	}
	if p.Alt != nil {
		wp.Alt = *p.Alt
	}
	if p.Type != nil {
		wp.Type = *p.Type
	}
	if p.Command != nil {
		wp.Command = *p.Command
	}
	return wp
}

// Assignment binds a vehicle to a mission. Inactive assignments are kept as
// history.
type Assignment struct {
	MissionID       string  `json:"mission_id,omitempty"`
	VehicleID       string  `json:"vehicle_id"`
	Active          bool    `json:"active"`
	Status          string  `json:"status,omitempty"`
	Progress        float64 `json:"progress"`
	CurrentWaypoint int     `json:"current_waypoint"`
}

// AssignmentUpdate is a streamed partial update of one assignment. Nil fields
// are left untouched.
type AssignmentUpdate struct {
	MissionID string   `json:"mission_id"`
	VehicleID string   `json:"vehicle_id"`
	Active    *bool    `json:"active,omitempty"`
	Status    *string  `json:"status,omitempty"`
	Progress  *float64 `json:"progress,omitempty"`

	CurrentWaypoint *int `json:"current_waypoint,omitempty"`
}

// Apply merges the update into a.
func (u AssignmentUpdate) Apply(a Assignment) Assignment {
	if u.Active != nil {
		a.Active = *u.Active
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.Progress != nil {
		a.Progress = *u.Progress
	}
	if u.CurrentWaypoint != nil {
		a.CurrentWaypoint = *u.CurrentWaypoint
	}
	return a
}

// Mission represents a planned or running mission.
type Mission struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Type               string        `json:"type"`
	Status             MissionStatus `json:"status"`
	Progress           float64       `json:"progress"`
	Waypoints          []Waypoint    `json:"waypoints"`
	Assignments        []Assignment  `json:"assignments"`
	AssignedVehicleIDs []string      `json:"assigned_vehicle_ids"`
	CreatedAt          *time.Time    `json:"created_at,omitempty"`
}

// RecomputeAssigned rebuilds AssignedVehicleIDs as the vehicles with an
// active assignment, in assignment order.
func (m *Mission) RecomputeAssigned() {
	ids := make([]string, 0, len(m.Assignments))
	for _, a := range m.Assignments {
		if a.Active {
			ids = append(ids, a.VehicleID)
		}
	}
	m.AssignedVehicleIDs = ids
}

// Clone returns a deep copy of the mission's slices.
func (m Mission) Clone() Mission {
	m.Waypoints = append([]Waypoint(nil), m.Waypoints...)
	m.Assignments = append([]Assignment(nil), m.Assignments...)
	m.AssignedVehicleIDs = append([]string(nil), m.AssignedVehicleIDs...)
	return m
}

// AssignRequest binds vehicles to a mission.
type AssignRequest struct {
	VehicleIDs      []string `json:"vehicle_ids"`
	ReplaceExisting bool     `json:"replace_existing"`
}

// UnassignRequest releases vehicles from a mission.
type UnassignRequest struct {
	VehicleIDs []string `json:"vehicle_ids"`
}
