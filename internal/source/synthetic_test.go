package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/stream"
)

const testTick = 10 * time.Millisecond

func channelURL(channel string) string {
	return mockStreamURL + "?" + url.Values{"channels": {channel}}.Encode()
}

func readEnvelope(t *testing.T, conn stream.Conn) models.Envelope {
	t.Helper()
	type frame struct {
		data []byte
		err  error
	}
	ch := make(chan frame, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		ch <- frame{data, err}
	}()
	select {
	case f := <-ch:
		require.NoError(t, f.err)
		var env models.Envelope
		require.NoError(t, json.Unmarshal(f.data, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return models.Envelope{}
	}
}

func TestSynthetic_VehicleChannel(t *testing.T) {
	s := NewSynthetic(NewMock(), testTick, quietLogger())
	conn, err := s.Dial(context.Background(), channelURL(stream.VehicleChannel("v2")))
	require.NoError(t, err)
	defer conn.Close()

	env := readEnvelope(t, conn)
	assert.Equal(t, models.EnvelopeTelemetry, env.Type)
	assert.Equal(t, "v2", env.VehicleID)
}

func TestSynthetic_OrgChannelCarriesMissionProgress(t *testing.T) {
	s := NewSynthetic(NewMock(), testTick, quietLogger())
	conn, err := s.Dial(context.Background(), channelURL(stream.OrgChannel(DemoOrgID)))
	require.NoError(t, err)
	defer conn.Close()

	seen := map[string]bool{}
	for len(seen) < 2 {
		env := readEnvelope(t, conn)
		seen[env.Type] = true
		if env.Type == models.EnvelopeMission {
			var u models.AssignmentUpdate
			require.NoError(t, json.Unmarshal(env.Data, &u))
			assert.Equal(t, "m1", u.MissionID)
			assert.Equal(t, "v1", u.VehicleID)
		}
	}
	assert.True(t, seen[models.EnvelopeTelemetry])
	assert.True(t, seen[models.EnvelopeMission])
}

func TestSynthetic_AlertsChannelStartsWithBacklog(t *testing.T) {
	s := NewSynthetic(NewMock(), time.Hour, quietLogger())
	conn, err := s.Dial(context.Background(), channelURL(stream.AlertsChannel(DemoOrgID)))
	require.NoError(t, err)
	defer conn.Close()

	for _, want := range DemoAlerts(time.Now()) {
		env := readEnvelope(t, conn)
		require.Equal(t, models.EnvelopeAlert, env.Type)
		var a models.Alert
		require.NoError(t, json.Unmarshal(env.Data, &a))
		assert.Equal(t, want.ID, a.ID)
	}
}

func TestSynthetic_CommandsDriveSim(t *testing.T) {
	mock := NewMock()
	s := NewSynthetic(mock, time.Hour, quietLogger())
	conn, err := s.Dial(context.Background(), channelURL(stream.VehicleChannel("v4")))
	require.NoError(t, err)
	defer conn.Close()

	data, _ := json.Marshal(models.NewCommandEnvelope(models.CommandArm, nil))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	sample, _ := mock.Sim().Sample("v4")
	armed, _ := sample.Bool("armed")
	assert.True(t, armed)
}

func TestSynthetic_DialErrors(t *testing.T) {
	s := NewSynthetic(NewMock(), testTick, quietLogger())

	_, err := s.Dial(context.Background(), channelURL("vehicle:ghost"))
	assert.ErrorContains(t, err, "unknown vehicle")

	_, err = s.Dial(context.Background(), channelURL("weather:x"))
	assert.ErrorContains(t, err, "unsupported channel")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Dial(ctx, channelURL("org:x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynthetic_CloseStopsTicker(t *testing.T) {
	s := NewSynthetic(NewMock(), testTick, quietLogger())
	conn, err := s.Dial(context.Background(), channelURL("org:x"))
	require.NoError(t, err)

	require.NoError(t, conn.Close())

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.subs)
	assert.Nil(t, s.stop)
}

func TestPipe_RemoteEndings(t *testing.T) {
	p := newPipe(nil, nil)
	p.fail(nil)
	_, _, err := p.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseNormalClosure, ce.Code)
	assert.False(t, p.push([]byte("{}")))

	boom := errors.New("boom")
	p = newPipe(nil, nil)
	p.fail(boom)
	_, _, err = p.ReadMessage()
	assert.ErrorIs(t, err, boom)
	assert.Error(t, p.WriteMessage(websocket.TextMessage, []byte("{}")))
}
