package source

import (
	"time"

	"github.com/ukydev/aero-console/internal/models"
)

// DemoOrgID is the organization of the demo data set.
const DemoOrgID = "org-demo"

// Demo credentials accepted by the mock backend.
const (
	DemoEmail    = "admin@aerocommand.io"
	DemoPassword = "admin123"
)

// DemoUser is the operator signed in by the mock backend.
var DemoUser = models.User{
	ID:             "1",
	Name:           "Admin Operator",
	Email:          DemoEmail,
	Role:           models.RoleSuperAdmin,
	OrganizationID: DemoOrgID,
	Organization:   "AeroCommand HQ",
}

func pos(lat, lng, alt float64) models.Position {
	return models.Position{Lat: lat, Lng: lng, Alt: alt}
}

// DemoVehicles returns the demo fleet.
func DemoVehicles() []models.Vehicle {
	return []models.Vehicle{
		{ID: "v1", Name: "Eagle-01", Callsign: "EGL01", Type: models.TypeQuadcopter, Status: models.VehicleInFlight, FleetID: "f1",
			Firmware: "PX4 1.14.3", Position: pos(36.8065, 10.1815, 120), Battery: 78, Mode: "MISSION", Armed: true},
		{ID: "v2", Name: "Falcon-02", Callsign: "FLC02", Type: models.TypeHexacopter, Status: models.VehicleArmed, FleetID: "f1",
			Firmware: "PX4 1.14.3", Position: pos(36.8120, 10.1700, 0), Battery: 95, Mode: "STABILIZED", Armed: true},
		{ID: "v3", Name: "Hawk-03", Callsign: "HWK03", Type: models.TypeFixedWing, Status: models.VehicleInFlight, FleetID: "f1",
			Firmware: "ArduPlane 4.4", Position: pos(36.7900, 10.2000, 250), Battery: 62, Mode: "MISSION", Armed: true},
		{ID: "v4", Name: "Rover-Alpha", Callsign: "RVA01", Type: models.TypeRover, Status: models.VehicleOnline, FleetID: "f2",
			Firmware: "ArduRover 4.4", Position: pos(36.8200, 10.1600, 0), Battery: 88, Mode: "MANUAL"},
		{ID: "v5", Name: "Shadow-05", Callsign: "SHD05", Type: models.TypeVTOL, Status: models.VehicleMaintenance, FleetID: "f1",
			Firmware: "PX4 1.14.3", Position: pos(36.8000, 10.1900, 0), Battery: 45, Mode: "MANUAL"},
		{ID: "v6", Name: "Phoenix-06", Callsign: "PHX06", Type: models.TypeQuadcopter, Status: models.VehicleOffline, FleetID: "f2",
			Firmware: "PX4 1.13.3", Position: pos(36.8150, 10.1750, 0), Battery: 0, Mode: "MANUAL"},
		{ID: "v7", Name: "Osprey-07", Callsign: "OSP07", Type: models.TypeQuadcopter, Status: models.VehicleInFlight, FleetID: "f1",
			Firmware: "PX4 1.14.3", Position: pos(36.7980, 10.1680, 85), Battery: 54, Mode: "LOITER", Armed: true},
		{ID: "v8", Name: "Condor-08", Callsign: "CND08", Type: models.TypeHexacopter, Status: models.VehicleCharging, FleetID: "f2",
			Firmware: "PX4 1.14.3", Position: pos(36.8100, 10.1850, 0), Battery: 32, Mode: "MANUAL"},
	}
}

// DemoFleets returns the demo fleet groups.
func DemoFleets() []models.Fleet {
	return []models.Fleet{
		{ID: "f1", Name: "Alpha Squadron", Description: "Primary surveillance fleet", VehicleCount: 5, OnlineCount: 3},
		{ID: "f2", Name: "Bravo Team", Description: "Ground operations unit", VehicleCount: 3, OnlineCount: 1},
	}
}

func wp(id string, seq int, lat, lng, alt float64, typ, cmd string) models.Waypoint {
	return models.Waypoint{ID: id, Seq: seq, Lat: lat, Lng: lng, Alt: alt, Type: typ, Command: cmd}
}

// DemoMissions returns the demo missions.
func DemoMissions() []models.Mission {
	at := func(s string) *time.Time {
		t, _ := time.Parse(time.RFC3339, s)
		return &t
	}
	return []models.Mission{
		{
			ID: "m1", Name: "Perimeter Survey Alpha", Type: "survey", Status: models.MissionInProgress, Progress: 67,
			Waypoints: []models.Waypoint{
				wp("w1", 0, 36.8065, 10.1815, 120, "waypoint", "NAV_WAYPOINT"),
				wp("w2", 1, 36.8100, 10.1850, 120, "waypoint", "NAV_WAYPOINT"),
				wp("w3", 2, 36.8130, 10.1800, 100, "waypoint", "NAV_WAYPOINT"),
				wp("w4", 3, 36.8100, 10.1750, 100, "waypoint", "NAV_WAYPOINT"),
				wp("w5", 4, 36.8065, 10.1815, 50, "rtl", "NAV_RETURN_TO_LAUNCH"),
			},
			Assignments:        []models.Assignment{{MissionID: "m1", VehicleID: "v1", Active: true, Status: "in_progress", Progress: 67, CurrentWaypoint: 3}},
			AssignedVehicleIDs: []string{"v1"},
			CreatedAt:          at("2026-02-07T08:30:00Z"),
		},
		{
			ID: "m2", Name: "Sector 7 Mapping", Type: "mapping", Status: models.MissionPlanned,
			Waypoints: []models.Waypoint{
				wp("w6", 0, 36.7950, 10.1900, 150, "waypoint", "NAV_WAYPOINT"),
				wp("w7", 1, 36.8000, 10.2000, 150, "waypoint", "NAV_WAYPOINT"),
			},
			CreatedAt: at("2026-02-06T14:00:00Z"),
		},
		{
			ID: "m3", Name: "Coastal Patrol", Type: "patrol", Status: models.MissionCompleted, Progress: 100,
			Waypoints:   []models.Waypoint{},
			Assignments: []models.Assignment{{MissionID: "m3", VehicleID: "v3", Active: false, Status: "completed", Progress: 100}},
			CreatedAt:   at("2026-02-05T06:00:00Z"),
		},
	}
}

// DemoAlerts returns the demo alerts, newest first, relative to now.
func DemoAlerts(now time.Time) []models.Alert {
	vid := func(s string) *string { return &s }
	ago := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }
	return []models.Alert{
		{ID: "a1", Severity: models.SeverityCritical, Message: "Osprey-07 battery below 30% threshold", VehicleID: vid("v7"), Timestamp: ago(time.Minute)},
		{ID: "a2", Severity: models.SeverityWarning, Message: "Hawk-03 GPS signal degraded to 2D fix", VehicleID: vid("v3"), Timestamp: ago(2 * time.Minute)},
		{ID: "a3", Severity: models.SeverityInfo, Message: "Eagle-01 mission waypoint 4/5 reached", VehicleID: vid("v1"), Timestamp: ago(5 * time.Minute), Acknowledged: true},
		{ID: "a4", Severity: models.SeverityWarning, Message: "Condor-08 charging slower than expected", VehicleID: vid("v8"), Timestamp: ago(10 * time.Minute)},
		{ID: "a5", Severity: models.SeverityCritical, Message: "Shadow-05 requires firmware update", VehicleID: vid("v5"), Timestamp: ago(15 * time.Minute)},
	}
}
