package actions

import "github.com/ukydev/aero-console/internal/models"

type entry struct {
	id, name, description, tooltip string
	risk                            models.RiskLevel
	role                            models.Role
	confirm                         bool
	style                           string
	prompt                          string
	audit                           bool
	color                           string
	safety                          string
	reversible                      string
}

func (s entry) metadata() models.ActionMetadata {
	m := models.ActionMetadata{
		ActionID:     s.id,
		Name:         s.name,
		Description:  s.description,
		Tooltip:      s.tooltip,
		RiskLevel:    s.risk,
		SafetyClass:  s.safety,
		Reversible:   s.reversible,
		Confirmation: models.ActionConfirmation{Required: s.confirm, Style: s.style, Prompt: s.prompt},
		Logging: models.ActionLogging{
			Required:   s.audit,
			Level:      "info",
			AuditTrail: s.audit,
		},
		ColorSemantics: s.color,
	}
	if s.role != "" {
		m.PermissionsRequired = []models.Role{s.role}
	}
	if m.Confirmation.Required && m.Confirmation.Style == "" {
		m.Confirmation.Style = models.ConfirmStandard
	}
	if m.SafetyClass == "" {
		m.SafetyClass = "operational"
	}
	if m.Reversible == "" {
		m.Reversible = "reversible"
	}
	return m
}

func builtins() []models.ActionMetadata {
	entries := []entry{
		{
			id: "nav.goto.dashboard", name: "Open Dashboard",
			description: "Navigate to the operations dashboard view.", tooltip: "Go to Dashboard",
			risk: models.RiskLow, role: models.RoleViewer, color: VariantGhost, safety: "none",
		},

		// vehicle commands
		{
			id: CommandActionID(models.CommandArm), name: "Arm",
			description: "Arm the vehicle motors.", tooltip: "Arm motors",
			risk: models.RiskHigh, role: models.RolePilot, confirm: true, style: models.ConfirmDanger,
			prompt: "Arm the vehicle? Propellers may spin.", audit: true, color: VariantWarning, safety: "flight_safety",
		},
		{
			id: CommandActionID(models.CommandDisarm), name: "Disarm",
			description: "Disarm the vehicle motors.", tooltip: "Disarm motors",
			risk: models.RiskHigh, role: models.RolePilot, confirm: true, style: models.ConfirmDanger,
			prompt: "Disarm the vehicle? An airborne vehicle will fall.", audit: true, color: VariantWarning, safety: "flight_safety",
		},
		{
			id: CommandActionID(models.CommandTakeoff), name: "Takeoff",
			description: "Climb to the takeoff altitude.", risk: models.RiskHigh, role: models.RolePilot,
			confirm: true, audit: true, safety: "flight_safety",
		},
		{
			id: CommandActionID(models.CommandLand), name: "Land",
			description: "Land at the current position.", risk: models.RiskMedium, role: models.RolePilot,
			confirm: true, audit: true,
		},
		{
			id: CommandActionID(models.CommandRTL), name: "Return to Launch",
			description: "Fly back to the launch point and land.", tooltip: "Return to launch",
			risk: models.RiskMedium, role: models.RolePilot, confirm: true, audit: true, color: VariantSecondary,
		},
		{
			id: CommandActionID(models.CommandHold), name: "Hold",
			description: "Hold the current position.", risk: models.RiskLow, role: models.RolePilot,
			audit: true, color: VariantSecondary,
		},
		{
			id: CommandActionID(models.CommandSetMode), name: "Set Mode",
			description: "Change the flight mode.", risk: models.RiskMedium, role: models.RolePilot,
			confirm: true, audit: true,
		},
		{
			id: CommandActionID(models.CommandGoto), name: "Go To",
			description: "Fly to a target position.", risk: models.RiskMedium, role: models.RolePilot,
			confirm: true, audit: true,
		},
		{
			id: CommandActionID(models.CommandSetSpeed), name: "Set Speed",
			description: "Change the target ground speed.", risk: models.RiskLow, role: models.RolePilot,
			audit: true,
		},
		{
			id: CommandActionID(models.CommandSetAltitude), name: "Set Altitude",
			description: "Change the target altitude.", risk: models.RiskLow, role: models.RolePilot,
			audit: true,
		},
		{
			id: CommandActionID(models.CommandEmergencyStop), name: "Emergency Stop",
			description: "Immediately stop vehicle actuation (failsafe / kill).", tooltip: "Emergency Stop (kill)",
			risk: models.RiskCritical, role: models.RolePilot, confirm: true, style: models.ConfirmDanger,
			prompt: "EMERGENCY STOP? Use only to prevent harm.", audit: true, color: VariantDanger,
			safety: "life_safety", reversible: "irreversible",
		},
		{
			id: CommandActionID(models.CommandReboot), name: "Reboot",
			description: "Reboot the flight controller.", risk: models.RiskHigh, role: models.RoleAdmin,
			confirm: true, style: models.ConfirmDanger, prompt: "Reboot the flight controller? Telemetry will drop.",
			audit: true, color: VariantDanger,
		},
		{
			id: CommandActionID(models.CommandMissionStart), name: "Start Mission",
			description: "Start the uploaded mission.", risk: models.RiskMedium, role: models.RolePilot,
			confirm: true, audit: true, color: VariantSuccess,
		},
		{
			id: CommandActionID(models.CommandMissionPause), name: "Pause Mission",
			description: "Pause the running mission.", risk: models.RiskLow, role: models.RolePilot,
			audit: true, color: VariantSecondary,
		},
		{
			id: CommandActionID(models.CommandMissionResume), name: "Resume Mission",
			description: "Resume a paused mission.", risk: models.RiskLow, role: models.RolePilot,
			audit: true, color: VariantSecondary,
		},

		// missions
		{
			id: "mission.create", name: "Create Mission", description: "Create a new mission from the draft.",
			risk: models.RiskLow, role: models.RoleOperator, audit: true,
		},
		{
			id: "mission.update", name: "Update Mission", description: "Save changes to a mission.",
			risk: models.RiskLow, role: models.RoleOperator, audit: true, color: VariantGhost,
		},
		{
			id: "mission.assign", name: "Assign Mission", description: "Assign vehicles to a mission.",
			risk: models.RiskMedium, role: models.RoleOperator, confirm: true, audit: true, color: VariantGhost,
		},
		{
			id: "mission.unassign", name: "Unassign Mission", description: "Release vehicles from a mission.",
			risk: models.RiskMedium, role: models.RoleOperator, confirm: true, audit: true, color: VariantGhost,
		},
		{
			id: "mission.delete", name: "Delete Mission", description: "Permanently delete a mission.",
			risk: models.RiskHigh, role: models.RoleOperator, confirm: true, style: models.ConfirmDanger,
			prompt: "Delete this mission? This cannot be undone.", audit: true, color: VariantDanger,
			reversible: "irreversible",
		},
		{
			id: "mission.draft.clear", name: "Clear Waypoints", description: "Remove every waypoint from the draft.",
			risk: models.RiskLow, role: models.RoleOperator, color: VariantGhost, safety: "none",
		},

		// fleet
		{
			id: "vehicle.delete", name: "Delete Vehicle", description: "Remove a vehicle from the fleet.",
			risk: models.RiskHigh, role: models.RoleAdmin, confirm: true, style: models.ConfirmDanger,
			prompt: "Delete this vehicle? Its history will be kept.", audit: true, color: VariantDanger,
			reversible: "irreversible",
		},
		{
			id: "fleet.delete", name: "Delete Fleet", description: "Delete a fleet group.",
			risk: models.RiskHigh, role: models.RoleAdmin, confirm: true, style: models.ConfirmDanger,
			prompt: "Delete this fleet? Vehicles stay registered.", audit: true, color: VariantDanger,
			reversible: "irreversible",
		},

		// alerts
		{
			id: "alert.acknowledge", name: "Acknowledge Alert", description: "Mark an alert as seen.",
			risk: models.RiskLow, role: models.RoleOperator, audit: true, color: VariantSecondary, safety: "advisory",
		},
		{
			id: "alert.dismiss", name: "Dismiss Alert", description: "Remove an alert from the log.",
			risk: models.RiskLow, role: models.RoleOperator, audit: true, color: VariantGhost, safety: "advisory",
		},

		// users
		{
			id: "user.deactivate", name: "Deactivate User", description: "Revoke a user's access.",
			risk: models.RiskHigh, role: models.RoleAdmin, confirm: true, style: models.ConfirmDanger,
			prompt: "Deactivate this user?", audit: true, color: VariantDanger, safety: "none",
		},
	}

	out := make([]models.ActionMetadata, 0, len(entries))
	for _, s := range entries {
		out = append(out, s.metadata())
	}
	return out
}
