package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ukydev/aero-console/internal/models"
)

// Auth

// Login exchanges credentials for a token pair and the signed-in user.
func (c *Client) Login(ctx context.Context, creds models.LoginRequest) (models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: creds, anonymous: true}, &resp)
	return resp, err
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout"}, nil)
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &u)
	return u, err
}

// Vehicles

// ListVehicles returns vehicles matching query.
func (c *Client) ListVehicles(ctx context.Context, query url.Values) ([]models.Vehicle, error) {
	return listOf[models.Vehicle](ctx, c, "/fleet/vehicles", query)
}

// GetVehicle returns one vehicle.
func (c *Client) GetVehicle(ctx context.Context, id string) (models.Vehicle, error) {
	var v models.Vehicle
	err := c.do(ctx, request{method: http.MethodGet, path: "/fleet/vehicles/" + url.PathEscape(id)}, &v)
	return v, err
}

// CreateVehicle registers a vehicle.
func (c *Client) CreateVehicle(ctx context.Context, v models.Vehicle) (models.Vehicle, error) {
	var out models.Vehicle
	err := c.do(ctx, request{method: http.MethodPost, path: "/fleet/vehicles", body: v}, &out)
	return out, err
}

// UpdateVehicle patches a vehicle.
func (c *Client) UpdateVehicle(ctx context.Context, id string, updates map[string]any) (models.Vehicle, error) {
	var out models.Vehicle
	err := c.do(ctx, request{method: http.MethodPatch, path: "/fleet/vehicles/" + url.PathEscape(id), body: updates}, &out)
	return out, err
}

// DeleteVehicle removes a vehicle.
func (c *Client) DeleteVehicle(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/fleet/vehicles/" + url.PathEscape(id)}, nil)
}

// SendCommand dispatches a command to one vehicle.
func (c *Client) SendCommand(ctx context.Context, vehicleID string, cmd models.CommandRequest) (models.CommandResult, error) {
	cmd.VehicleID = vehicleID
	var out models.CommandResult
	err := c.do(ctx, request{method: http.MethodPost, path: "/commands", body: cmd}, &out)
	return out, err
}

// Fleets

// ListFleets returns fleets matching query.
func (c *Client) ListFleets(ctx context.Context, query url.Values) ([]models.Fleet, error) {
	return listOf[models.Fleet](ctx, c, "/fleet/fleets", query)
}

// CreateFleet creates a fleet.
func (c *Client) CreateFleet(ctx context.Context, f models.Fleet) (models.Fleet, error) {
	var out models.Fleet
	err := c.do(ctx, request{method: http.MethodPost, path: "/fleet/fleets", body: f}, &out)
	return out, err
}

// UpdateFleet replaces a fleet's editable fields.
func (c *Client) UpdateFleet(ctx context.Context, id string, updates map[string]any) (models.Fleet, error) {
	var out models.Fleet
	err := c.do(ctx, request{method: http.MethodPut, path: "/fleet/fleets/" + url.PathEscape(id), body: updates}, &out)
	return out, err
}

// DeleteFleet removes a fleet.
func (c *Client) DeleteFleet(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/fleet/fleets/" + url.PathEscape(id)}, nil)
}

// SendGroupCommand dispatches a command to every vehicle in a fleet.
func (c *Client) SendGroupCommand(ctx context.Context, fleetID string, cmd models.CommandRequest) (models.CommandResult, error) {
	var out models.CommandResult
	err := c.do(ctx, request{method: http.MethodPost, path: "/fleet/fleets/" + url.PathEscape(fleetID) + "/command", body: cmd}, &out)
	return out, err
}

// Missions

// ListMissions returns missions matching query.
func (c *Client) ListMissions(ctx context.Context, query url.Values) ([]models.Mission, error) {
	return listOf[models.Mission](ctx, c, "/missions", query)
}

// GetMission returns one mission with its waypoints and assignments.
func (c *Client) GetMission(ctx context.Context, id string) (models.Mission, error) {
	var m models.Mission
	err := c.do(ctx, request{method: http.MethodGet, path: "/missions/" + url.PathEscape(id)}, &m)
	return m, err
}

// CreateMission creates a mission.
func (c *Client) CreateMission(ctx context.Context, m models.Mission) (models.Mission, error) {
	var out models.Mission
	err := c.do(ctx, request{method: http.MethodPost, path: "/missions", body: m}, &out)
	return out, err
}

// UpdateMission patches a mission.
func (c *Client) UpdateMission(ctx context.Context, id string, updates map[string]any) (models.Mission, error) {
	var out models.Mission
	err := c.do(ctx, request{method: http.MethodPatch, path: "/missions/" + url.PathEscape(id), body: updates}, &out)
	return out, err
}

// DeleteMission removes a mission.
func (c *Client) DeleteMission(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/missions/" + url.PathEscape(id)}, nil)
}

// AssignMission binds vehicles to a mission and returns the new assignments.
func (c *Client) AssignMission(ctx context.Context, id string, req models.AssignRequest) ([]models.Assignment, error) {
	var out []models.Assignment
	err := c.do(ctx, request{method: http.MethodPost, path: "/missions/" + url.PathEscape(id) + "/assign", body: req}, &out)
	return out, err
}

// UnassignMission releases vehicles from a mission and returns how many
// assignments were deactivated.
func (c *Client) UnassignMission(ctx context.Context, id string, req models.UnassignRequest) (int, error) {
	var out struct {
		Unassigned int `json:"unassigned"`
	}
	err := c.do(ctx, request{method: http.MethodPost, path: "/missions/" + url.PathEscape(id) + "/unassign", body: req}, &out)
	return out.Unassigned, err
}

// Actions

// PostAudit records an action audit event. The response body is ignored.
func (c *Client) PostAudit(ctx context.Context, ev models.AuditEvent) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/actions/audit", body: ev}, nil)
}

// FetchRegistry returns the server's action registry.
func (c *Client) FetchRegistry(ctx context.Context) (models.ActionRegistry, error) {
	var reg models.ActionRegistry
	err := c.do(ctx, request{method: http.MethodGet, path: "/actions/registry"}, &reg)
	return reg, err
}
