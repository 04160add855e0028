package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/stream"
)

// TopicPrefix is the root of every broker topic.
const TopicPrefix = "aerocommand"

// Topic domains.
const (
	DomainTelemetry = "telemetry"
	DomainCommand   = "command"
	DomainMission   = "mission"
	DomainAlert     = "alert"
	DomainStatus    = "status"
)

var (
	ErrNoOrganization = errors.New("mqtt: organization is required")
	ErrConnectTimeout = errors.New("mqtt: connect timed out")
)

// Topic builds aerocommand/{org}/{domain}/{vehicle}/{sub}.
func Topic(org, domain, vehicleID, sub string) string {
	return strings.Join([]string{TopicPrefix, org, domain, vehicleID, sub}, "/")
}

// CommandTopic is where commands for a vehicle are published.
func CommandTopic(org, vehicleID string) string {
	return Topic(org, DomainCommand, vehicleID, "request")
}

// TopicsForChannel maps a logical stream channel onto topic filters.
func TopicsForChannel(org, channel string) ([]string, error) {
	kind, id := stream.ParseChannel(channel)
	if id == "" {
		return nil, fmt.Errorf("mqtt: channel %q has no id", channel)
	}
	switch kind {
	case stream.KindVehicle:
		if org == "" {
			return nil, ErrNoOrganization
		}
		return []string{TopicPrefix + "/" + org + "/+/" + id + "/#"}, nil
	case stream.KindOrg:
		return []string{
			Topic(id, DomainTelemetry, "+", "raw"),
			Topic(id, DomainMission, "+", "progress"),
			Topic(id, DomainMission, "+", "status"),
		}, nil
	case stream.KindAlerts:
		return []string{TopicPrefix + "/" + id + "/" + DomainAlert + "/#"}, nil
	default:
		return nil, fmt.Errorf("mqtt: unsupported channel %q", channel)
	}
}

// EnvelopeFromMessage converts a broker message into a stream envelope.
// Payloads that already carry an envelope shape pass through; other JSON
// payloads are wrapped according to the topic domain. Heartbeats, command
// requests and non-JSON payloads are dropped.
func EnvelopeFromMessage(topic string, payload []byte) (models.Envelope, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix {
		return models.Envelope{}, false
	}
	domain, vehicleID, sub := parts[2], parts[3], parts[4]
	if !json.Valid(payload) {
		return models.Envelope{}, false
	}

	var env models.Envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Type != "" && len(env.Data) > 0 {
		if env.VehicleID == "" {
			env.VehicleID = vehicleID
		}
		return env, true
	}

	env = models.Envelope{VehicleID: vehicleID, Data: json.RawMessage(payload)}
	switch domain {
	case DomainTelemetry:
		if sub == "heartbeat" {
			return models.Envelope{}, false
		}
		env.Type = models.EnvelopeTelemetry
	case DomainMission:
		env.Type = models.EnvelopeMission
	case DomainAlert:
		env.Type = models.EnvelopeAlert
	case DomainStatus:
		env.Type = DomainStatus
	case DomainCommand:
		if sub == "request" {
			return models.Envelope{}, false
		}
		env.Type = models.EnvelopeCommand
	default:
		return models.Envelope{}, false
	}
	return env, true
}

// MQTTDialer is a stream.Dialer that serves logical channels from an MQTT
// broker. Each connection owns one broker client; losing the broker link ends
// the connection abnormally so the stream manager retries it.
type MQTTDialer struct {
	BrokerURL      string
	ConnectTimeout time.Duration
	// Org supplies the organization used for vehicle channels.
	Org func() string
	Log log.FieldLogger

	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func (d *MQTTDialer) logger() log.FieldLogger {
	if d.Log == nil {
		return log.StandardLogger()
	}
	return d.Log
}

// Dial connects to the broker and subscribes to the topics of the channel in
// target's channels query parameter.
func (d *MQTTDialer) Dial(ctx context.Context, target string) (stream.Conn, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("mqtt dial: %w", err)
	}
	channel := u.Query().Get("channels")
	org := ""
	if d.Org != nil {
		org = d.Org()
	}
	topics, err := TopicsForChannel(org, channel)
	if err != nil {
		return nil, err
	}
	_, vehicleID := stream.ParseChannel(channel)
	entry := d.logger().WithFields(log.Fields{"broker": d.BrokerURL, "channel": channel})

	var pipe *pipeConn
	opts := mqtt.NewClientOptions().
		AddBroker(d.BrokerURL).
		SetClientID("aero-console-" + uuid.NewString()[:8]).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			entry.WithError(err).Warn("MQTT connection lost")
			pipe.fail(err)
		})
	if token := u.Query().Get("token"); token != "" {
		opts.SetUsername("jwt").SetPassword(token)
	}
	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts.SetConnectTimeout(timeout)

	newClient := d.newClient
	if newClient == nil {
		newClient = mqtt.NewClient
	}
	client := newClient(opts)

	pipe = newPipe(func(cmd models.CommandEnvelope) {
		if vehicleID == "" || org == "" {
			entry.Debug("Dropping command without a vehicle topic")
			return
		}
		data, err := json.Marshal(cmd)
		if err != nil {
			return
		}
		client.Publish(CommandTopic(org, vehicleID), 1, false, data)
	}, func() {
		client.Disconnect(250)
	})

	if err := wait(ctx, client.Connect(), timeout); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", d.BrokerURL, err)
	}

	filters := make(map[string]byte, len(topics))
	for _, t := range topics {
		filters[t] = 1
	}
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		env, ok := EnvelopeFromMessage(msg.Topic(), msg.Payload())
		if !ok {
			entry.WithField("topic", msg.Topic()).Debug("Ignoring broker message")
			return
		}
		pipe.pushEnvelope(env)
	}
	if err := wait(ctx, client.SubscribeMultiple(filters, handler), timeout); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt subscribe %v: %w", topics, err)
	}
	entry.WithField("topics", topics).Info("MQTT channel subscribed")
	return pipe, nil
}

func wait(ctx context.Context, tok mqtt.Token, timeout time.Duration) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return ErrConnectTimeout
	}
}
