package stream

import "strings"

// Logical channel kinds.
const (
	KindVehicle = "vehicle"
	KindOrg     = "org"
	KindAlerts  = "alerts"
)

// VehicleChannel names the telemetry channel of one vehicle.
func VehicleChannel(vehicleID string) string { return KindVehicle + ":" + vehicleID }

// OrgChannel names the organization-wide telemetry channel.
func OrgChannel(orgID string) string { return KindOrg + ":" + orgID }

// AlertsChannel names the alert channel of an organization.
func AlertsChannel(orgID string) string { return KindAlerts + ":" + orgID }

// ParseChannel splits "kind:id". Names without a separator have an empty id.
func ParseChannel(channel string) (kind, id string) {
	kind, id, _ = strings.Cut(channel, ":")
	return kind, id
}
