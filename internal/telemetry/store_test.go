package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/aero-console/internal/models"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestStore_UpdateVehicleTelemetry_BatterySequence(t *testing.T) {
	s := NewStore(WithClock(fixedClock()))

	for _, b := range []float64{80, 75, 70} {
		s.UpdateVehicleTelemetry("v1", models.Sample{"battery": b})
	}

	rec, ok := s.Vehicle("v1")
	require.True(t, ok)
	battery, ok := rec.Battery()
	require.True(t, ok)
	assert.Equal(t, 70.0, battery)
	require.Len(t, rec.History, 3)
	for i, want := range []float64{80, 75, 70} {
		got, _ := rec.History[i].Sample.Float("battery")
		assert.Equal(t, want, got)
	}
	assert.Equal(t, rec.History[2].Timestamp, rec.LastUpdate)
}

func TestStore_UpdateVehicleTelemetry_MergesTopLevelFields(t *testing.T) {
	s := NewStore()

	s.UpdateVehicleTelemetry("v1", models.Sample{"battery": 90.0, "mode": "GUIDED"})
	s.UpdateVehicleTelemetry("v1", models.Sample{"battery": 89.0, "position": map[string]any{"lat": 1.0}})

	rec, _ := s.Vehicle("v1")
	mode, _ := rec.Fields.String("mode")
	assert.Equal(t, "GUIDED", mode)
	assert.Equal(t, map[string]any{"lat": 1.0}, rec.Fields["position"])
}

func TestStore_HistoryBound(t *testing.T) {
	s := NewStore()
	total := HistoryLimit + 57

	for i := 0; i < total; i++ {
		s.UpdateVehicleTelemetry("v1", models.Sample{"seq": i})
		rec, _ := s.Vehicle("v1")
		require.LessOrEqual(t, len(rec.History), HistoryLimit)
	}

	rec, _ := s.Vehicle("v1")
	require.Len(t, rec.History, HistoryLimit)
	for i, p := range rec.History {
		assert.Equal(t, total-HistoryLimit+i, p.Sample["seq"], "position %d", i)
	}
}

func TestStore_VehiclesAreIndependent(t *testing.T) {
	s := NewStore()
	s.UpdateVehicleTelemetry("v1", models.Sample{"battery": 50.0})
	s.UpdateVehicleTelemetry("v2", models.Sample{"battery": 20.0})

	v1, _ := s.Vehicle("v1")
	v2, _ := s.Vehicle("v2")
	assert.Len(t, v1.History, 1)
	assert.Len(t, v2.History, 1)

	_, ok := s.Vehicle("v3")
	assert.False(t, ok)
}

func TestStore_ConnectionStatus(t *testing.T) {
	s := NewStore()
	assert.Equal(t, models.StatusDisconnected, s.ConnectionStatus("v1"))

	s.SetConnectionStatus("v1", models.StatusConnected)
	assert.Equal(t, models.StatusConnected, s.ConnectionStatus("v1"))
}

func TestStore_AddAlert(t *testing.T) {
	s := NewStore()

	first := s.AddAlert(models.Alert{Severity: models.SeverityWarning, Message: "low battery"})
	second := s.AddAlert(models.Alert{ID: "a2", Severity: models.SeverityCritical, Message: "link lost"})

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "a2", second.ID)
	alerts := s.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "a2", alerts[0].ID, "newest first")
	assert.Equal(t, 2, s.UnreadAlertCount())
}

func TestStore_AlertLogIsCapped(t *testing.T) {
	s := NewStore()
	for i := 0; i < AlertLimit+10; i++ {
		s.AddAlert(models.Alert{ID: fmt.Sprintf("a%d", i), Severity: models.SeverityInfo})
	}

	alerts := s.Alerts()
	require.Len(t, alerts, AlertLimit)
	assert.Equal(t, fmt.Sprintf("a%d", AlertLimit+9), alerts[0].ID)
	assert.Equal(t, "a10", alerts[AlertLimit-1].ID)
	assert.Equal(t, AlertLimit+10, s.UnreadAlertCount())
}

func TestStore_AcknowledgeAlert(t *testing.T) {
	tests := []struct {
		name       string
		ops        func(s *Store)
		wantUnread int
	}{
		{
			name: "acknowledge decrements",
			ops: func(s *Store) {
				s.AcknowledgeAlert("a1")
			},
			wantUnread: 1,
		},
		{
			name: "double acknowledge decrements once",
			ops: func(s *Store) {
				s.AcknowledgeAlert("a1")
				s.AcknowledgeAlert("a1")
			},
			wantUnread: 1,
		},
		{
			name: "unknown id is a no-op",
			ops: func(s *Store) {
				s.AcknowledgeAlert("missing")
			},
			wantUnread: 2,
		},
		{
			name: "never below zero after mark all read",
			ops: func(s *Store) {
				s.MarkAllRead()
				s.AcknowledgeAlert("a1")
				s.AcknowledgeAlert("a2")
			},
			wantUnread: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.AddAlert(models.Alert{ID: "a1"})
			s.AddAlert(models.Alert{ID: "a2"})

			tt.ops(s)

			assert.Equal(t, tt.wantUnread, s.UnreadAlertCount())
			assert.GreaterOrEqual(t, s.UnreadAlertCount(), 0)
		})
	}
}

func TestStore_UnreadNeverNegative(t *testing.T) {
	s := NewStore()
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("a%d", i%7)
		if i%3 == 0 {
			s.AddAlert(models.Alert{ID: id})
		} else {
			s.AcknowledgeAlert(id)
		}
		if i%11 == 0 {
			s.MarkAllRead()
		}
		require.GreaterOrEqual(t, s.UnreadAlertCount(), 0)
	}
}

func TestStore_DismissAndClear(t *testing.T) {
	s := NewStore()
	s.AddAlert(models.Alert{ID: "a1", Severity: models.SeverityCritical})
	s.AddAlert(models.Alert{ID: "a2", Severity: models.SeverityCritical})
	s.AddAlert(models.Alert{ID: "a3", Severity: models.SeverityInfo})
	s.AcknowledgeAlert("a2")

	critical := s.CriticalAlerts()
	require.Len(t, critical, 1)
	assert.Equal(t, "a1", critical[0].ID)

	assert.True(t, s.DismissAlert("a2"))
	assert.False(t, s.DismissAlert("a2"))
	assert.Len(t, s.Alerts(), 2)
	assert.Equal(t, 2, s.UnreadAlertCount(), "dismissal does not touch the unread tally")

	s.MarkAllRead()
	assert.Len(t, s.Alerts(), 2)
	assert.Equal(t, 0, s.UnreadAlertCount())

	s.AddAlert(models.Alert{ID: "a4"})
	s.ClearAllAlerts()
	assert.Empty(t, s.Alerts())
	assert.Equal(t, 0, s.UnreadAlertCount())
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.UpdateVehicleTelemetry("v1", models.Sample{"battery": 1.0})
	s.SetConnectionStatus("v1", models.StatusConnected)
	s.AddAlert(models.Alert{ID: "a1"})

	s.Reset()

	_, ok := s.Vehicle("v1")
	assert.False(t, ok)
	assert.Equal(t, models.StatusDisconnected, s.ConnectionStatus("v1"))
	assert.Empty(t, s.Alerts())
	assert.Zero(t, s.UnreadAlertCount())
}
