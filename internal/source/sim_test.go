package source

import (
	"encoding/json"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/aero-console/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestHaversineKm(t *testing.T) {
	a := models.Position{Lat: 36.8065, Lng: 10.1815}
	assert.InDelta(t, 0, haversineKm(a, a), 1e-9)

	// One degree of latitude is about 111 km.
	b := models.Position{Lat: 37.8065, Lng: 10.1815}
	assert.InDelta(t, 111.2, haversineKm(a, b), 0.5)
}

func TestJitterPositionStaysWithinRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := models.Position{Lat: 36.8, Lng: 10.18, Alt: 100}
	for range 100 {
		p := jitterPosition(rng, base, 50)
		// Corner of the jitter square is sqrt(2)*50m.
		assert.LessOrEqual(t, haversineKm(base, p), 0.0708)
		assert.Equal(t, base.Alt, p.Alt)
	}
}

func TestSim_StepMovesArmedVehiclesOnly(t *testing.T) {
	sim := NewSim(DemoVehicles(), 7)
	before1, _ := sim.Sample("v1")
	before4, _ := sim.Sample("v4")

	sim.Step(time.Second)

	after1, _ := sim.Sample("v1")
	after4, _ := sim.Sample("v4")
	assert.NotEqual(t, before1["position"], after1["position"], "armed v1 should move")
	assert.Equal(t, before4["position"], after4["position"], "disarmed v4 should hold")

	b0, _ := before1.Float("battery")
	b1, _ := after1.Float("battery")
	assert.Less(t, b1, b0)
}

func TestSim_DrainedVehicleLands(t *testing.T) {
	v := DemoVehicles()[0]
	v.Battery = 0
	sim := NewSim([]models.Vehicle{v}, 3)

	sim.Step(10 * time.Second)

	s, ok := sim.Sample(v.ID)
	require.True(t, ok)
	armed, _ := s.Bool("armed")
	status, _ := s.String("status")
	assert.False(t, armed)
	assert.Equal(t, string(models.VehicleLanding), status)
}

func TestSim_EnvelopesSkipIdleVehicles(t *testing.T) {
	sim := NewSim(DemoVehicles(), 1)

	envs := sim.Envelopes()
	ids := make([]string, 0, len(envs))
	for _, e := range envs {
		assert.Equal(t, models.EnvelopeTelemetry, e.Type)
		ids = append(ids, e.VehicleID)
	}
	assert.NotContains(t, ids, "v5", "maintenance")
	assert.NotContains(t, ids, "v6", "offline")
	assert.Len(t, ids, 6)

	one := sim.Envelopes("v2")
	require.Len(t, one, 1)
	var sample models.Sample
	require.NoError(t, json.Unmarshal(one[0].Data, &sample))
	battery, ok := sample.Float("battery")
	require.True(t, ok)
	assert.InDelta(t, 95, battery, 0.001)
}

func TestSim_Apply(t *testing.T) {
	sim := NewSim(DemoVehicles(), 1)

	assert.False(t, sim.Apply("v6", models.CommandArm, nil), "offline vehicle")
	assert.False(t, sim.Apply("nope", models.CommandArm, nil))

	require.True(t, sim.Apply("v4", models.CommandTakeoff, map[string]any{"altitude": 45.0}))
	s, _ := sim.Sample("v4")
	alt, _ := s.Float("altitude")
	mode, _ := s.String("mode")
	assert.Equal(t, 45.0, alt)
	assert.Equal(t, "TAKEOFF", mode)

	require.True(t, sim.Apply("v4", models.CommandSetMode, map[string]any{"mode": "GUIDED"}))
	s, _ = sim.Sample("v4")
	mode, _ = s.String("mode")
	assert.Equal(t, "GUIDED", mode)

	require.True(t, sim.Apply("v4", models.CommandEmergencyStop, nil))
	s, _ = sim.Sample("v4")
	armed, _ := s.Bool("armed")
	assert.False(t, armed)
}
