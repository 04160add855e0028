package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/api"
	"github.com/ukydev/aero-console/internal/middleware"
	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/source"
)

// Backend is the data set served over REST.
type Backend interface {
	source.API
	GetVehicle(ctx context.Context, id string) (models.Vehicle, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// APIHandler serves the console's REST surface from a Backend.
type APIHandler struct {
	backend Backend
	roleOf  func(token string) models.Role
	log     log.FieldLogger
}

// NewAPIHandler creates an APIHandler. When roleOf is non-nil, commands and
// writes are checked against the role behind the request token.
func NewAPIHandler(backend Backend, roleOf func(token string) models.Role, logger log.FieldLogger) *APIHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &APIHandler{backend: backend, roleOf: roleOf, log: logger}
}

// Register mounts every route under prefix, for example /api/v1.
func (h *APIHandler) Register(mux *http.ServeMux, prefix string) {
	route := func(pattern string, fn http.HandlerFunc, roles ...models.Role) {
		var handler http.Handler = fn
		if h.roleOf != nil && len(roles) > 0 {
			handler = middleware.RequireRole(h.roleOf, roles...)(handler)
		}
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+prefix+path, handler)
	}

	route("POST /auth/login", h.Login)
	route("POST /auth/refresh", h.Refresh)
	route("POST /auth/logout", h.Logout)
	route("GET /auth/me", h.Me)

	route("GET /fleet/vehicles", h.ListVehicles)
	route("POST /fleet/vehicles", h.CreateVehicle, models.RoleAdmin)
	route("GET /fleet/vehicles/{id}", h.GetVehicle)
	route("PATCH /fleet/vehicles/{id}", h.UpdateVehicle, models.RoleAdmin)
	route("DELETE /fleet/vehicles/{id}", h.DeleteVehicle, models.RoleAdmin)
	route("POST /commands", h.SendCommand, models.RolePilot)

	route("GET /fleet/fleets", h.ListFleets)
	route("POST /fleet/fleets", h.CreateFleet, models.RoleAdmin)
	route("PUT /fleet/fleets/{id}", h.UpdateFleet, models.RoleAdmin)
	route("DELETE /fleet/fleets/{id}", h.DeleteFleet, models.RoleAdmin)
	route("POST /fleet/fleets/{id}/command", h.SendGroupCommand, models.RolePilot)

	route("GET /missions", h.ListMissions)
	route("POST /missions", h.CreateMission, models.RoleOperator)
	route("GET /missions/{id}", h.GetMission)
	route("PATCH /missions/{id}", h.UpdateMission, models.RoleOperator)
	route("DELETE /missions/{id}", h.DeleteMission, models.RoleOperator)
	route("POST /missions/{id}/assign", h.AssignMission, models.RoleOperator)
	route("POST /missions/{id}/unassign", h.UnassignMission, models.RoleOperator)

	route("POST /actions/audit", h.PostAudit)
	route("GET /actions/registry", h.Registry)
}

// Auth

func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	resp, err := h.backend.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.WithField("user", resp.User.Email).Info("User signed in")
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	pair, err := h.backend.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Logout(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.backend.Me(r.Context())
	h.respond(w, r, u, err)
}

// Vehicles

func (h *APIHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vs, err := h.backend.ListVehicles(r.Context(), r.URL.Query())
	h.respondList(w, r, vs, err)
}

func (h *APIHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.backend.GetVehicle(r.Context(), r.PathValue("id"))
	h.respond(w, r, v, err)
}

func (h *APIHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var v models.Vehicle
	if !h.decode(w, r, &v) {
		return
	}
	out, err := h.backend.CreateVehicle(r.Context(), v)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *APIHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if !h.decode(w, r, &updates) {
		return
	}
	v, err := h.backend.UpdateVehicle(r.Context(), r.PathValue("id"), updates)
	h.respond(w, r, v, err)
}

func (h *APIHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	h.respondEmpty(w, r, h.backend.DeleteVehicle(r.Context(), r.PathValue("id")))
}

func (h *APIHandler) SendCommand(w http.ResponseWriter, r *http.Request) {
	var cmd models.CommandRequest
	if !h.decode(w, r, &cmd) {
		return
	}
	if cmd.VehicleID == "" || cmd.Command == "" {
		middleware.WriteError(w, http.StatusBadRequest, "vehicle_id and command are required")
		return
	}
	res, err := h.backend.SendCommand(r.Context(), cmd.VehicleID, cmd)
	if err == nil {
		h.log.WithFields(log.Fields{"vehicle_id": cmd.VehicleID, "command": cmd.Command}).Info("Command accepted")
	}
	h.respond(w, r, res, err)
}

// Fleets

func (h *APIHandler) ListFleets(w http.ResponseWriter, r *http.Request) {
	fs, err := h.backend.ListFleets(r.Context(), r.URL.Query())
	h.respondList(w, r, fs, err)
}

func (h *APIHandler) CreateFleet(w http.ResponseWriter, r *http.Request) {
	var f models.Fleet
	if !h.decode(w, r, &f) {
		return
	}
	out, err := h.backend.CreateFleet(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *APIHandler) UpdateFleet(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if !h.decode(w, r, &updates) {
		return
	}
	f, err := h.backend.UpdateFleet(r.Context(), r.PathValue("id"), updates)
	h.respond(w, r, f, err)
}

func (h *APIHandler) DeleteFleet(w http.ResponseWriter, r *http.Request) {
	h.respondEmpty(w, r, h.backend.DeleteFleet(r.Context(), r.PathValue("id")))
}

func (h *APIHandler) SendGroupCommand(w http.ResponseWriter, r *http.Request) {
	var cmd models.CommandRequest
	if !h.decode(w, r, &cmd) {
		return
	}
	res, err := h.backend.SendGroupCommand(r.Context(), r.PathValue("id"), cmd)
	h.respond(w, r, res, err)
}

// Missions

func (h *APIHandler) ListMissions(w http.ResponseWriter, r *http.Request) {
	ms, err := h.backend.ListMissions(r.Context(), r.URL.Query())
	h.respondList(w, r, ms, err)
}

func (h *APIHandler) GetMission(w http.ResponseWriter, r *http.Request) {
	m, err := h.backend.GetMission(r.Context(), r.PathValue("id"))
	h.respond(w, r, m, err)
}

func (h *APIHandler) CreateMission(w http.ResponseWriter, r *http.Request) {
	var m models.Mission
	if !h.decode(w, r, &m) {
		return
	}
	out, err := h.backend.CreateMission(r.Context(), m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *APIHandler) UpdateMission(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if !h.decode(w, r, &updates) {
		return
	}
	if raw, ok := updates["waypoints"]; ok {
		wps, err := reencode[[]models.Waypoint](raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid waypoints")
			return
		}
		updates["waypoints"] = wps
	}
	m, err := h.backend.UpdateMission(r.Context(), r.PathValue("id"), updates)
	h.respond(w, r, m, err)
}

func (h *APIHandler) DeleteMission(w http.ResponseWriter, r *http.Request) {
	h.respondEmpty(w, r, h.backend.DeleteMission(r.Context(), r.PathValue("id")))
}

func (h *APIHandler) AssignMission(w http.ResponseWriter, r *http.Request) {
	var req models.AssignRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.VehicleIDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "vehicle_ids is required")
		return
	}
	out, err := h.backend.AssignMission(r.Context(), r.PathValue("id"), req)
	if out == nil {
		out = []models.Assignment{}
	}
	h.respond(w, r, out, err)
}

func (h *APIHandler) UnassignMission(w http.ResponseWriter, r *http.Request) {
	var req models.UnassignRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.backend.UnassignMission(r.Context(), r.PathValue("id"), req)
	h.respond(w, r, map[string]int{"unassigned": n}, err)
}

// Actions

func (h *APIHandler) PostAudit(w http.ResponseWriter, r *http.Request) {
	var ev models.AuditEvent
	if !h.decode(w, r, &ev) {
		return
	}
	if ev.ActionID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "action_id is required")
		return
	}
	if err := h.backend.PostAudit(r.Context(), ev); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (h *APIHandler) Registry(w http.ResponseWriter, r *http.Request) {
	reg, err := h.backend.FetchRegistry(r.Context())
	h.respond(w, r, reg, err)
}

// helpers

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// fail maps backend errors onto HTTP statuses; *api.Error keeps its own.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		middleware.WriteError(w, apiErr.Status, apiErr.Detail)
		return
	}
	h.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
}

func (h *APIHandler) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *APIHandler) respondEmpty(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondList wraps items in a page object.
func (h *APIHandler) respondList(w http.ResponseWriter, r *http.Request, items any, err error) {
	h.respond(w, r, map[string]any{"items": items}, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func reencode[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}
