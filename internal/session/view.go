package session

import (
	"github.com/ukydev/aero-console/internal/models"
)

// VehicleView returns the vehicle's static record with its live telemetry
// laid over it. Neither store is modified.
func (a *App) VehicleView(id string) (models.Vehicle, bool) {
	v, ok := a.Fleet.Vehicle(id)
	if !ok {
		return models.Vehicle{}, false
	}
	rec, ok := a.Telemetry.Vehicle(id)
	if !ok {
		return v, true
	}
	live := rec.Fields
	if b, ok := live.Float("battery"); ok {
		v.Battery = b
	}
	if armed, ok := live.Bool("armed"); ok {
		v.Armed = armed
	}
	if mode, ok := live.String("mode"); ok {
		v.Mode = mode
	}
	if status, ok := live.String("status"); ok {
		v.Status = models.VehicleStatus(status)
	}
	if pos, ok := live["position"].(map[string]any); ok {
		p := models.Sample(pos)
		if lat, ok := p.Float("lat"); ok {
			v.Position.Lat = lat
		}
		if lng, ok := p.Float("lng"); ok {
			v.Position.Lng = lng
		}
		if alt, ok := p.Float("alt"); ok {
			v.Position.Alt = alt
		}
	}
	return v, true
}

// VehicleViews returns VehicleView for every vehicle in the fleet store.
func (a *App) VehicleViews() []models.Vehicle {
	vehicles := a.Fleet.Vehicles()
	out := make([]models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if view, ok := a.VehicleView(v.ID); ok {
			out = append(out, view)
		}
	}
	return out
}
