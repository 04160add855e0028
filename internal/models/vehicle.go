package models

import "time"

// VehicleStatus is the last-known operational status reported by the backend.
type VehicleStatus string

const (
	VehicleOnline      VehicleStatus = "online"
	VehicleOffline     VehicleStatus = "offline"
	VehicleArmed       VehicleStatus = "armed"
	VehicleDisarmed    VehicleStatus = "disarmed"
	VehicleInFlight    VehicleStatus = "in_flight"
	VehicleLanding     VehicleStatus = "landing"
	VehicleEmergency   VehicleStatus = "emergency"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleCharging    VehicleStatus = "charging"
)

// Vehicle types known to the console.
const (
	TypeQuadcopter = "quadcopter"
	TypeHexacopter = "hexacopter"
	TypeOctocopter = "octocopter"
	TypeFixedWing  = "fixed_wing"
	TypeVTOL       = "vtol"
	TypeRover      = "rover"
	TypeSubmarine  = "submarine"
)

// Vehicle represents a fleet vehicle. The operational fields (status, armed,
// mode, position, battery) are a last-known snapshot that live telemetry
// supersedes for the rest of the session.
type Vehicle struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Callsign  string        `json:"callsign"`
	Type      string        `json:"type"`
	Status    VehicleStatus `json:"status"`
	FleetID   string        `json:"fleet_id,omitempty"`
	Firmware  string        `json:"firmware,omitempty"`
	Armed     bool          `json:"armed"`
	Mode      string        `json:"mode,omitempty"`
	Position  Position      `json:"position"`
	Battery   float64       `json:"battery"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
}

// Fleet represents a named group of vehicles.
type Fleet struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	VehicleCount int        `json:"vehicle_count"`
	OnlineCount  int        `json:"online_count"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// Vehicle commands.
const (
	CommandArm           = "arm"
	CommandDisarm        = "disarm"
	CommandTakeoff       = "takeoff"
	CommandLand          = "land"
	CommandRTL           = "rtl"
	CommandHold          = "hold"
	CommandSetMode       = "set_mode"
	CommandGoto          = "goto"
	CommandSetSpeed      = "set_speed"
	CommandSetAltitude   = "set_altitude"
	CommandEmergencyStop = "emergency_stop"
	CommandReboot        = "reboot"
	CommandMissionStart  = "mission_start"
	CommandMissionPause  = "mission_pause"
	CommandMissionResume = "mission_resume"
)

// Commands lists every vehicle command in display order.
var Commands = []string{
	CommandArm, CommandDisarm, CommandTakeoff, CommandLand, CommandRTL, CommandHold,
	CommandSetMode, CommandGoto, CommandSetSpeed, CommandSetAltitude,
	CommandEmergencyStop, CommandReboot,
	CommandMissionStart, CommandMissionPause, CommandMissionResume,
}

// CommandRequest is the body of a REST command dispatch.
type CommandRequest struct {
	VehicleID string         `json:"vehicle_id,omitempty"`
	Command   string         `json:"command"`
	Params    map[string]any `json:"params,omitempty"`
}

// CommandResult is the backend's acknowledgement of a dispatched command.
type CommandResult struct {
	ID        string `json:"id,omitempty"`
	VehicleID string `json:"vehicle_id,omitempty"`
	Command   string `json:"command,omitempty"`
	Status    string `json:"status,omitempty"`
}
