package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/aero-console/internal/api"
	"github.com/ukydev/aero-console/internal/auth"
	"github.com/ukydev/aero-console/internal/middleware"
	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/source"
)

const viewerToken = "viewer-token"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func roleOf(token string) models.Role {
	switch token {
	case source.MockToken:
		return models.RoleSuperAdmin
	case viewerToken:
		return models.RoleViewer
	}
	return ""
}

// newServer serves mock behind token auth the way the simulator does and
// returns a console API client pointed at it.
func newServer(t *testing.T, mock *source.Mock, session *auth.Session) *api.Client {
	t.Helper()
	mux := http.NewServeMux()
	NewAPIHandler(mock, roleOf, quietLogger()).Register(mux, "/api/v1")
	authn := middleware.NewTokenAuth(func(tok string) bool { return roleOf(tok) != "" },
		"/api/v1/auth/login", "/api/v1/auth/refresh")
	srv := httptest.NewServer(authn.Authenticate(mux))
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL+"/api/v1", session, api.WithLogger(quietLogger()))
}

func login(t *testing.T, c *api.Client, s *auth.Session) {
	t.Helper()
	resp, err := c.Login(context.Background(), models.LoginRequest{Email: source.DemoEmail, Password: source.DemoPassword})
	require.NoError(t, err)
	s.SignIn(resp)
}

func TestAPI_Login(t *testing.T) {
	s := auth.NewSession()
	c := newServer(t, source.NewMock(), s)
	ctx := context.Background()

	_, err := c.Login(ctx, models.LoginRequest{Email: source.DemoEmail, Password: "wrong"})
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "Invalid credentials", api.ErrorMessage(err, ""))

	_, err = c.Login(ctx, models.LoginRequest{Email: source.DemoEmail})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	login(t, c, s)
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, source.DemoEmail, me.Email)
	assert.NoError(t, c.Logout(ctx))
}

func TestAPI_RequiresToken(t *testing.T) {
	s := auth.NewSession()
	c := newServer(t, source.NewMock(), s)

	_, err := c.ListVehicles(context.Background(), nil)
	assert.ErrorIs(t, err, api.ErrNoRefreshToken)
}

func TestAPI_RefreshesStaleToken(t *testing.T) {
	s := auth.NewSession()
	c := newServer(t, source.NewMock(), s)
	s.Set(models.TokenPair{AccessToken: "stale", RefreshToken: source.MockRefreshToken})

	vs, err := c.ListVehicles(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, vs, 8)
	assert.Equal(t, source.MockToken, s.AccessToken())
}

func TestAPI_Vehicles(t *testing.T) {
	s := auth.NewSession()
	mock := source.NewMock()
	c := newServer(t, mock, s)
	login(t, c, s)
	ctx := context.Background()

	vs, err := c.ListVehicles(ctx, url.Values{"fleet_id": {"f2"}})
	require.NoError(t, err)
	assert.Len(t, vs, 3)

	v, err := c.GetVehicle(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Eagle-01", v.Name)

	_, err = c.GetVehicle(ctx, "ghost")
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
	assert.Equal(t, "Vehicle not found", api.ErrorMessage(err, ""))

	created, err := c.CreateVehicle(ctx, models.Vehicle{Name: "Kite-09", Type: models.TypeQuadcopter})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	updated, err := c.UpdateVehicle(ctx, created.ID, map[string]any{"name": "Kite-9"})
	require.NoError(t, err)
	assert.Equal(t, "Kite-9", updated.Name)

	require.NoError(t, c.DeleteVehicle(ctx, created.ID))
	_, err = c.GetVehicle(ctx, created.ID)
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestAPI_Commands(t *testing.T) {
	s := auth.NewSession()
	mock := source.NewMock()
	c := newServer(t, mock, s)
	login(t, c, s)
	ctx := context.Background()

	res, err := c.SendCommand(ctx, "v1", models.CommandRequest{Command: models.CommandSetMode, Params: map[string]any{"mode": "LOITER"}})
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Status)
	sample, _ := mock.Sim().Sample("v1")
	mode, _ := sample.String("mode")
	assert.Equal(t, "LOITER", mode)

	_, err = c.SendGroupCommand(ctx, "f1", models.CommandRequest{Command: models.CommandHold})
	assert.NoError(t, err)

	_, err = c.SendGroupCommand(ctx, "ghost", models.CommandRequest{Command: models.CommandHold})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestAPI_RoleGuard(t *testing.T) {
	s := auth.NewSession()
	c := newServer(t, source.NewMock(), s)
	s.Set(models.TokenPair{AccessToken: viewerToken})
	ctx := context.Background()

	_, err := c.ListVehicles(ctx, nil)
	assert.NoError(t, err, "reads are open to every role")

	_, err = c.SendCommand(ctx, "v1", models.CommandRequest{Command: models.CommandArm})
	assert.True(t, api.IsStatus(err, http.StatusForbidden))
	assert.Equal(t, "Insufficient permissions", api.ErrorMessage(err, ""))

	_, err = c.AssignMission(ctx, "m2", models.AssignRequest{VehicleIDs: []string{"v4"}})
	assert.True(t, api.IsStatus(err, http.StatusForbidden))
}

func TestAPI_Missions(t *testing.T) {
	s := auth.NewSession()
	mock := source.NewMock()
	c := newServer(t, mock, s)
	login(t, c, s)
	ctx := context.Background()

	ms, err := c.ListMissions(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, ms, 3)

	assigned, err := c.AssignMission(ctx, "m2", models.AssignRequest{VehicleIDs: []string{"v4", "v6"}, ReplaceExisting: true})
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	m, err := c.GetMission(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, []string{"v4", "v6"}, m.AssignedVehicleIDs)

	n, err := c.UnassignMission(ctx, "m2", models.UnassignRequest{VehicleIDs: []string{"v6"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	updated, err := c.UpdateMission(ctx, "m2", map[string]any{
		"name":      "Sector 7 Mapping (revised)",
		"waypoints": []models.Waypoint{{ID: "w9", Seq: 0, Lat: 36.8, Lng: 10.2, Alt: 120}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sector 7 Mapping (revised)", updated.Name)
	require.Len(t, updated.Waypoints, 1)
	assert.Equal(t, "w9", updated.Waypoints[0].ID)

	created, err := c.CreateMission(ctx, models.Mission{Name: "Night Watch", Type: "patrol"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteMission(ctx, created.ID))
	_, err = c.GetMission(ctx, created.ID)
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestAPI_FleetsAuditAndRegistry(t *testing.T) {
	s := auth.NewSession()
	mock := source.NewMock()
	c := newServer(t, mock, s)
	login(t, c, s)
	ctx := context.Background()

	fs, err := c.ListFleets(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, fs, 2)

	f, err := c.CreateFleet(ctx, models.Fleet{Name: "Charlie"})
	require.NoError(t, err)
	f, err = c.UpdateFleet(ctx, f.ID, map[string]any{"name": "Charlie Wing"})
	require.NoError(t, err)
	assert.Equal(t, "Charlie Wing", f.Name)
	require.NoError(t, c.DeleteFleet(ctx, f.ID))

	require.NoError(t, c.PostAudit(ctx, models.AuditEvent{ActionID: "vehicle.arm", Outcome: models.OutcomeSuccess}))
	require.Len(t, mock.Audits(), 1)
	assert.Equal(t, "vehicle.arm", mock.Audits()[0].ActionID)

	err = c.PostAudit(ctx, models.AuditEvent{})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))

	reg, err := c.FetchRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Version)
	assert.NotEmpty(t, reg.Actions)
}

func TestAPI_InvalidJSON(t *testing.T) {
	mux := http.NewServeMux()
	NewAPIHandler(source.NewMock(), nil, quietLogger()).Register(mux, "/api/v1")

	req := httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader("{"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Invalid JSON"}`, w.Body.String())
}
