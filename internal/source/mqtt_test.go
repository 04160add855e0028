package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/aero-console/internal/models"
)

func TestTopicsForChannel(t *testing.T) {
	tests := []struct {
		name    string
		org     string
		channel string
		want    []string
		wantErr bool
	}{
		{"vehicle", "o1", "vehicle:v1", []string{"aerocommand/o1/+/v1/#"}, false},
		{"vehicle without org", "", "vehicle:v1", nil, true},
		{"org", "", "org:o1", []string{
			"aerocommand/o1/telemetry/+/raw",
			"aerocommand/o1/mission/+/progress",
			"aerocommand/o1/mission/+/status",
		}, false},
		{"alerts", "", "alerts:o1", []string{"aerocommand/o1/alert/#"}, false},
		{"missing id", "o1", "vehicle", nil, true},
		{"unknown kind", "o1", "weather:o1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TopicsForChannel(tt.org, tt.channel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvelopeFromMessage(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		payload  string
		wantOK   bool
		wantType string
	}{
		{"raw telemetry", "aerocommand/o1/telemetry/v1/raw", `{"battery":50}`, true, models.EnvelopeTelemetry},
		{"heartbeat dropped", "aerocommand/o1/telemetry/v1/heartbeat", `{}`, false, ""},
		{"mission progress", "aerocommand/o1/mission/v1/progress", `{"mission_id":"m1","progress":10}`, true, models.EnvelopeMission},
		{"alert", "aerocommand/o1/alert/v1/battery", `{"severity":"critical","message":"low"}`, true, models.EnvelopeAlert},
		{"status", "aerocommand/o1/status/v1/online", `{"online":true}`, true, DomainStatus},
		{"command ack", "aerocommand/o1/command/v1/ack", `{"command":"arm"}`, true, models.EnvelopeCommand},
		{"own command echo dropped", "aerocommand/o1/command/v1/request", `{"command":"arm"}`, false, ""},
		{"envelope passthrough", "aerocommand/o1/telemetry/v1/processed", `{"type":"telemetry","data":{"mode":"RTL"}}`, true, models.EnvelopeTelemetry},
		{"not json", "aerocommand/o1/telemetry/v1/raw", `battery=50`, false, ""},
		{"foreign topic", "other/o1/telemetry/v1/raw", `{}`, false, ""},
		{"short topic", "aerocommand/o1/telemetry", `{}`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, ok := EnvelopeFromMessage(tt.topic, []byte(tt.payload))
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantType, env.Type)
			assert.Equal(t, "v1", env.VehicleID)
		})
	}
}

func TestCommandTopic(t *testing.T) {
	assert.Equal(t, "aerocommand/o1/command/v9/request", CommandTopic("o1", "v9"))
}

type fakeToken struct {
	mqtt.Token
	err error
}

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t fakeToken) Error() error { return t.err }

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

type publication struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mqtt.Client
	opts       *mqtt.ClientOptions
	connectErr error

	mu           sync.Mutex
	filters      map[string]byte
	handler      mqtt.MessageHandler
	published    []publication
	disconnected bool
}

func (c *fakeClient) Connect() mqtt.Token { return fakeToken{err: c.connectErr} }

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, h mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = filters
	c.handler = h
	return fakeToken{}
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publication{topic: topic, payload: payload.([]byte)})
	return fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) deliver(topic, payload string) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	h(c, fakeMessage{topic: topic, payload: []byte(payload)})
}

func newFakeDialer(fc *fakeClient) *MQTTDialer {
	return &MQTTDialer{
		BrokerURL:      "tcp://broker:1883",
		ConnectTimeout: time.Second,
		Org:            func() string { return "o1" },
		Log:            quietLogger(),
		newClient: func(o *mqtt.ClientOptions) mqtt.Client {
			fc.opts = o
			return fc
		},
	}
}

func target(channel string) string {
	return "ws://unused/ws?" + url.Values{"channels": {channel}, "token": {"tok"}}.Encode()
}

func TestMQTTDialer_VehicleChannel(t *testing.T) {
	fc := &fakeClient{}
	conn, err := newFakeDialer(fc).Dial(context.Background(), target("vehicle:v1"))
	require.NoError(t, err)

	assert.Equal(t, map[string]byte{"aerocommand/o1/+/v1/#": 1}, fc.filters)
	assert.Equal(t, "jwt", fc.opts.Username)
	assert.Equal(t, "tok", fc.opts.Password)
	assert.False(t, fc.opts.AutoReconnect)

	fc.deliver("aerocommand/o1/telemetry/v1/raw", `{"battery":42}`)
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env models.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, models.EnvelopeTelemetry, env.Type)
	assert.Equal(t, "v1", env.VehicleID)

	cmd, _ := json.Marshal(models.NewCommandEnvelope("arm", nil))
	require.NoError(t, conn.WriteMessage(1, cmd))
	require.Len(t, fc.published, 1)
	assert.Equal(t, "aerocommand/o1/command/v1/request", fc.published[0].topic)

	require.NoError(t, conn.Close())
	assert.True(t, fc.disconnected)
}

func TestMQTTDialer_ConnectionLostIsAbnormal(t *testing.T) {
	fc := &fakeClient{}
	conn, err := newFakeDialer(fc).Dial(context.Background(), target("org:o1"))
	require.NoError(t, err)

	lost := errors.New("broker went away")
	fc.opts.OnConnectionLost(fc, lost)

	_, _, err = conn.ReadMessage()
	assert.ErrorIs(t, err, lost)
}

func TestMQTTDialer_ConnectFailure(t *testing.T) {
	fc := &fakeClient{connectErr: errors.New("refused")}
	_, err := newFakeDialer(fc).Dial(context.Background(), target("alerts:o1"))
	assert.ErrorContains(t, err, "refused")
}
