package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/stream"
)

// DefaultTick is the synthetic stream's update period.
const DefaultTick = time.Second

// lowBatteryThreshold triggers a synthetic battery alert.
const lowBatteryThreshold = 20.0

type subscriber struct {
	kind string
	id   string
	pipe *pipeConn
}

// Synthetic is a stream.Dialer that serves envelopes generated from a Mock
// backend. A single ticker drives the simulation while at least one
// connection is open.
type Synthetic struct {
	mock *Mock
	tick time.Duration
	log  log.FieldLogger
	now  func() time.Time

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	stop    context.CancelFunc
	alerted map[string]bool
}

// NewSynthetic creates a synthetic dialer over mock. A non-positive tick
// means DefaultTick.
func NewSynthetic(mock *Mock, tick time.Duration, logger log.FieldLogger) *Synthetic {
	if tick <= 0 {
		tick = DefaultTick
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Synthetic{
		mock:    mock,
		tick:    tick,
		log:     logger,
		now:     time.Now,
		subs:    make(map[*subscriber]struct{}),
		alerted: make(map[string]bool),
	}
}

// Dial opens a synthetic connection for the channel named in target's
// channels query parameter.
func (s *Synthetic) Dial(ctx context.Context, target string) (stream.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("synthetic dial: %w", err)
	}
	kind, id := stream.ParseChannel(u.Query().Get("channels"))
	switch kind {
	case stream.KindVehicle:
		if _, ok := s.mock.Sim().Sample(id); !ok {
			return nil, fmt.Errorf("synthetic dial: unknown vehicle %q", id)
		}
	case stream.KindOrg, stream.KindAlerts:
	default:
		return nil, fmt.Errorf("synthetic dial: unsupported channel %q", kind)
	}

	sub := &subscriber{kind: kind, id: id}
	sub.pipe = newPipe(func(cmd models.CommandEnvelope) {
		s.command(sub, cmd)
	}, func() {
		s.remove(sub)
	})

	if kind == stream.KindAlerts {
		for _, a := range DemoAlerts(s.now()) {
			sub.pipe.pushEnvelope(alertEnvelope(a))
		}
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	if s.stop == nil {
		runCtx, cancel := context.WithCancel(context.Background())
		s.stop = cancel
		go s.run(runCtx)
	}
	s.mu.Unlock()
	return sub.pipe, nil
}

func (s *Synthetic) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
	if len(s.subs) == 0 && s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

func (s *Synthetic) command(sub *subscriber, cmd models.CommandEnvelope) {
	entry := s.log.WithFields(log.Fields{"vehicle_id": sub.id, "command": cmd.Command})
	if sub.kind != stream.KindVehicle {
		entry.Debug("Ignoring command on non-vehicle channel")
		return
	}
	if !s.mock.Sim().Apply(sub.id, cmd.Command, cmd.Params) {
		entry.Warn("Synthetic vehicle rejected command")
		return
	}
	entry.Info("Synthetic vehicle accepted command")
}

func (s *Synthetic) run(ctx context.Context) {
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.step()
		}
	}
}

// step advances the simulation once and fans the results out.
func (s *Synthetic) step() {
	sim := s.mock.Sim()
	sim.Step(s.tick)
	telemetry := sim.Envelopes()
	updates := s.mock.AdvanceMissions(0.5)
	alerts := s.batteryAlerts()

	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		switch sub.kind {
		case stream.KindVehicle:
			for _, env := range telemetry {
				if env.VehicleID == sub.id {
					sub.pipe.pushEnvelope(env)
				}
			}
			for _, u := range updates {
				if u.VehicleID == sub.id {
					sub.pipe.pushEnvelope(missionEnvelope(u))
				}
			}
		case stream.KindOrg:
			for _, env := range telemetry {
				sub.pipe.pushEnvelope(env)
			}
			for _, u := range updates {
				sub.pipe.pushEnvelope(missionEnvelope(u))
			}
		case stream.KindAlerts:
			for _, a := range alerts {
				sub.pipe.pushEnvelope(alertEnvelope(a))
			}
		}
	}
}

// batteryAlerts raises one critical alert per vehicle when its battery first
// drops below the threshold.
func (s *Synthetic) batteryAlerts() []models.Alert {
	sim := s.mock.Sim()
	var out []models.Alert
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sim.VehicleIDs() {
		sample, ok := sim.Sample(id)
		if !ok {
			continue
		}
		armed, _ := sample.Bool("armed")
		battery, _ := sample.Float("battery")
		if !armed || battery >= lowBatteryThreshold || s.alerted[id] {
			continue
		}
		s.alerted[id] = true
		vid := id
		out = append(out, models.Alert{
			ID:        uuid.NewString(),
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("%s battery below %.0f%% threshold", id, lowBatteryThreshold),
			VehicleID: &vid,
			Timestamp: s.now().UnixMilli(),
		})
	}
	return out
}

func alertEnvelope(a models.Alert) models.Envelope {
	data, _ := json.Marshal(a)
	env := models.Envelope{Type: models.EnvelopeAlert, Data: data}
	if a.VehicleID != nil {
		env.VehicleID = *a.VehicleID
	}
	return env
}

func missionEnvelope(u models.AssignmentUpdate) models.Envelope {
	data, _ := json.Marshal(u)
	return models.Envelope{Type: models.EnvelopeMission, VehicleID: u.VehicleID, Data: data}
}
