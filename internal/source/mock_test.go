package source

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/aero-console/internal/api"
	"github.com/ukydev/aero-console/internal/models"
)

func TestMock_Login(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	_, err := m.Login(ctx, models.LoginRequest{Email: DemoEmail, Password: "wrong"})
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))

	resp, err := m.Login(ctx, models.LoginRequest{Email: DemoEmail, Password: DemoPassword})
	require.NoError(t, err)
	assert.Equal(t, MockToken, resp.AccessToken)
	assert.Equal(t, models.RoleSuperAdmin, resp.User.Role)
}

func TestMock_ListVehiclesFilters(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	all, err := m.ListVehicles(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 8)

	bravo, err := m.ListVehicles(ctx, url.Values{"fleet_id": {"f2"}})
	require.NoError(t, err)
	assert.Len(t, bravo, 3)

	quads, err := m.ListVehicles(ctx, url.Values{"type": {models.TypeQuadcopter}, "status": {string(models.VehicleInFlight)}})
	require.NoError(t, err)
	require.Len(t, quads, 2)
	assert.Equal(t, "v1", quads[0].ID)
}

func TestMock_VehicleCRUD(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	v, err := m.CreateVehicle(ctx, models.Vehicle{Name: "Kite-09", Type: models.TypeVTOL})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, models.VehicleOffline, v.Status)

	v, err = m.UpdateVehicle(ctx, v.ID, map[string]any{"name": "Kite-10"})
	require.NoError(t, err)
	assert.Equal(t, "Kite-10", v.Name)

	require.NoError(t, m.DeleteVehicle(ctx, v.ID))
	assert.True(t, api.IsStatus(m.DeleteVehicle(ctx, v.ID), http.StatusNotFound))
}

func TestMock_SendCommandDrivesSim(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	res, err := m.SendCommand(ctx, "v4", models.CommandRequest{Command: models.CommandArm})
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Status)
	s, _ := m.Sim().Sample("v4")
	armed, _ := s.Bool("armed")
	assert.True(t, armed)

	_, err = m.SendCommand(ctx, "v6", models.CommandRequest{Command: models.CommandArm})
	assert.True(t, api.IsStatus(err, http.StatusConflict))
}

func TestMock_AssignSkipsAlreadyActive(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	created, err := m.AssignMission(ctx, "m1", models.AssignRequest{VehicleIDs: []string{"v1", "v2"}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "v2", created[0].VehicleID)
	assert.Equal(t, "ready", created[0].Status)

	ms, err := m.GetMission(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, ms.AssignedVehicleIDs)
}

func TestMock_AssignReplaceExisting(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	created, err := m.AssignMission(ctx, "m2", models.AssignRequest{VehicleIDs: []string{"v1"}, ReplaceExisting: true})
	require.NoError(t, err)
	require.Len(t, created, 1)

	m1, _ := m.GetMission(ctx, "m1")
	m2, _ := m.GetMission(ctx, "m2")
	assert.Empty(t, m1.AssignedVehicleIDs)
	assert.Equal(t, []string{"v1"}, m2.AssignedVehicleIDs)
}

func TestMock_AssignUnknownVehicle(t *testing.T) {
	m := NewMock()
	_, err := m.AssignMission(context.Background(), "m2", models.AssignRequest{VehicleIDs: []string{"v1", "ghost"}})

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "One or more vehicles not found", apiErr.Detail)
}

func TestMock_Unassign(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	n, err := m.UnassignMission(ctx, "m1", models.UnassignRequest{VehicleIDs: []string{"v1", "v2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ms, _ := m.GetMission(ctx, "m1")
	assert.Empty(t, ms.AssignedVehicleIDs)
	require.Len(t, ms.Assignments, 1)
	assert.False(t, ms.Assignments[0].Active)
}

func TestMock_AdvanceMissions(t *testing.T) {
	m := NewMock()

	updates := m.AdvanceMissions(10)
	require.Len(t, updates, 1)
	u := updates[0]
	assert.Equal(t, "m1", u.MissionID)
	assert.Equal(t, "v1", u.VehicleID)
	assert.InDelta(t, 77, *u.Progress, 0.001)
	assert.True(t, *u.Active)

	m.AdvanceMissions(30)
	ms, _ := m.GetMission(context.Background(), "m1")
	assert.Equal(t, "completed", ms.Assignments[0].Status)
	assert.Empty(t, ms.AssignedVehicleIDs)
	assert.Empty(t, m.AdvanceMissions(10))
}

func TestMock_AuditsAndRegistry(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	require.NoError(t, m.PostAudit(ctx, models.AuditEvent{ActionID: "control.command.arm", Outcome: models.OutcomeSuccess}))
	require.Len(t, m.Audits(), 1)

	reg, err := m.FetchRegistry(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Actions)
}
