package source

import (
	"encoding/json"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/ukydev/aero-console/internal/models"
)

const earthRadiusKm = 6371.0

func haversineKm(a, b models.Position) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

func jitterPosition(rng *rand.Rand, base models.Position, meters float64) models.Position {
	latMetersPerDeg := 111320.0
	lngMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	base.Lat += (rng.Float64()*2 - 1) * (meters / latMetersPerDeg)
	base.Lng += (rng.Float64()*2 - 1) * (meters / lngMetersPerDeg)
	return base
}

// vehicleState is the simulated live state of one vehicle.
type vehicleState struct {
	id          string
	status      models.VehicleStatus
	home        models.Position
	position    models.Position
	battery     float64
	armed       bool
	mode        string
	heading     float64
	groundspeed float64
	satellites  int
}

func (v *vehicleState) idle() bool {
	return v.status == models.VehicleOffline || v.status == models.VehicleMaintenance
}

// Sim advances a set of vehicles with a jitter-and-drain movement model.
// Armed vehicles wander around their position and drain battery by distance
// flown; disarmed vehicles hold still.
type Sim struct {
	mu       sync.Mutex
	rng      *rand.Rand
	vehicles map[string]*vehicleState
	order    []string
}

// NewSim seeds a simulation from static vehicle records.
func NewSim(vehicles []models.Vehicle, seed int64) *Sim {
	s := &Sim{
		rng:      rand.New(rand.NewSource(seed)),
		vehicles: make(map[string]*vehicleState, len(vehicles)),
	}
	for _, v := range vehicles {
		s.vehicles[v.ID] = &vehicleState{
			id:          v.ID,
			status:      v.Status,
			home:        v.Position,
			position:    v.Position,
			battery:     v.Battery,
			armed:       v.Armed,
			mode:        v.Mode,
			groundspeed: 10 + s.rng.Float64()*10,
			satellites:  8 + s.rng.Intn(10),
		}
		s.order = append(s.order, v.ID)
	}
	return s
}

// VehicleIDs returns the simulated vehicles in seed order.
func (s *Sim) VehicleIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Step advances every vehicle by dt.
func (s *Sim) Step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		v := s.vehicles[id]
		if v.idle() || !v.armed {
			continue
		}
		next := jitterPosition(s.rng, v.position, v.groundspeed*dt.Seconds())
		next.Alt = v.position.Alt + (s.rng.Float64()-0.5)*2
		km := haversineKm(v.position, next)
		v.position = next
		v.heading = math.Mod(v.heading+(s.rng.Float64()-0.5)*5+360, 360)
		v.battery = math.Max(0, v.battery-km*0.8-s.rng.Float64()*0.05)
		if v.battery == 0 {
			v.armed = false
			v.status = models.VehicleLanding
		}
	}
}

// Sample returns the current telemetry of a vehicle.
func (s *Sim) Sample(id string) (models.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, false
	}
	return s.sampleLocked(v), true
}

func (s *Sim) sampleLocked(v *vehicleState) models.Sample {
	speed := 0.0
	throttle := 0.0
	current := 0.1
	if v.armed {
		speed = v.groundspeed + (s.rng.Float64()-0.5)*2
		throttle = 50 + s.rng.Float64()*15
		current = 10 + s.rng.Float64()*5
	}
	return models.Sample{
		"position":    map[string]any{"lat": v.position.Lat, "lng": v.position.Lng, "alt": v.position.Alt},
		"altitude":    v.position.Alt,
		"battery":     v.battery,
		"voltage":     22.4 - (100-v.battery)*0.06,
		"current":     current,
		"armed":       v.armed,
		"mode":        v.mode,
		"status":      string(v.status),
		"heading":     v.heading,
		"groundspeed": speed,
		"airspeed":    speed,
		"throttle":    throttle,
		"satellites":  v.satellites,
		"timestamp":   time.Now().UnixMilli(),
	}
}

// Envelopes returns one telemetry envelope per active vehicle in ids, or for
// every vehicle when ids is empty.
func (s *Sim) Envelopes(ids ...string) []models.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		ids = s.order
	}
	out := make([]models.Envelope, 0, len(ids))
	for _, id := range ids {
		v, ok := s.vehicles[id]
		if !ok || v.idle() {
			continue
		}
		data, err := json.Marshal(s.sampleLocked(v))
		if err != nil {
			continue
		}
		out = append(out, models.Envelope{Type: models.EnvelopeTelemetry, VehicleID: id, Data: data})
	}
	return out
}

// Apply executes a command against a simulated vehicle. It reports whether
// the vehicle exists and can take commands.
func (s *Sim) Apply(vehicleID, command string, params map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[vehicleID]
	if !ok || v.idle() {
		return false
	}
	switch command {
	case models.CommandArm:
		v.armed = true
		v.status = models.VehicleArmed
	case models.CommandDisarm, models.CommandEmergencyStop:
		v.armed = false
		v.status = models.VehicleDisarmed
	case models.CommandTakeoff:
		v.armed = true
		v.status = models.VehicleInFlight
		v.mode = "TAKEOFF"
		alt := 30.0
		if a, ok := models.Sample(params).Float("altitude"); ok {
			alt = a
		}
		v.position.Alt = alt
	case models.CommandLand:
		v.mode = "LAND"
		v.status = models.VehicleLanding
		v.position.Alt = 0
	case models.CommandRTL:
		v.mode = "RTL"
		v.position = v.home
	case models.CommandHold:
		v.mode = "LOITER"
	case models.CommandSetMode:
		if m, ok := models.Sample(params).String("mode"); ok {
			v.mode = m
		}
	case models.CommandSetSpeed:
		if sp, ok := models.Sample(params).Float("speed"); ok {
			v.groundspeed = sp
		}
	case models.CommandSetAltitude:
		if a, ok := models.Sample(params).Float("altitude"); ok {
			v.position.Alt = a
		}
	case models.CommandGoto:
		lat, okLat := models.Sample(params).Float("lat")
		lng, okLng := models.Sample(params).Float("lng")
		if okLat && okLng {
			v.position.Lat, v.position.Lng = lat, lng
		}
		v.mode = "GUIDED"
	case models.CommandMissionStart, models.CommandMissionResume:
		v.mode = "MISSION"
		v.status = models.VehicleInFlight
	case models.CommandMissionPause:
		v.mode = "LOITER"
	case models.CommandReboot:
		v.armed = false
		v.status = models.VehicleOnline
		v.mode = "MANUAL"
	}
	return true
}
