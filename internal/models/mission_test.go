package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMission_RecomputeAssigned(t *testing.T) {
	m := Mission{
		Assignments: []Assignment{
			{VehicleID: "v1", Active: false},
			{VehicleID: "v2", Active: true},
			{VehicleID: "v3", Active: true},
		},
		AssignedVehicleIDs: []string{"v1"},
	}

	m.RecomputeAssigned()

	assert.Equal(t, []string{"v2", "v3"}, m.AssignedVehicleIDs)
}

func TestAssignmentUpdate_Apply(t *testing.T) {
	progress := 42.0
	status := "running"
	a := Assignment{VehicleID: "v1", Active: true, Status: "ready", Progress: 0}

	got := AssignmentUpdate{Status: &status, Progress: &progress}.Apply(a)

	assert.True(t, got.Active, "nil fields must be left untouched")
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, 42.0, got.Progress)
}

func TestWaypointPatch_Apply(t *testing.T) {
	alt := 80.0
	wp := Waypoint{ID: "w1", Seq: 2, Lat: 1, Lng: 2, Alt: 100}

	got := WaypointPatch{Alt: &alt}.Apply(wp)

	assert.Equal(t, 80.0, got.Alt)
	assert.Equal(t, 2, got.Seq)
	assert.Equal(t, 1.0, got.Lat)
}

func TestMission_CloneIsIndependent(t *testing.T) {
	m := Mission{ID: "m1", Waypoints: []Waypoint{{ID: "w1"}}}
	c := m.Clone()
	c.Waypoints[0].ID = "changed"
	assert.Equal(t, "w1", m.Waypoints[0].ID)
}

func TestSample_Float(t *testing.T) {
	s := Sample{"battery": 70.0, "mode": "MISSION", "sats": 12}

	v, ok := s.Float("battery")
	assert.True(t, ok)
	assert.Equal(t, 70.0, v)

	v, ok = s.Float("sats")
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)

	_, ok = s.Float("mode")
	assert.False(t, ok)
}
