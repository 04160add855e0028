package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/metrics"
	"github.com/ukydev/aero-console/internal/models"
)

// ErrNotStarted is returned by Connect before Init or after Shutdown.
var ErrNotStarted = errors.New("stream manager not started")

// State is the readiness of a channel's underlying connection.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosing      State = "closing"
	StateDisconnected State = "disconnected"
	StateUnknown      State = "unknown"
)

// EventType identifies a channel event.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventMessage      EventType = "message"
	EventDisconnected EventType = "disconnected"
	EventError        EventType = "error"
)

// Close codes.
const (
	CloseNormal   = websocket.CloseNormalClosure
	CloseAbnormal = websocket.CloseAbnormalClosure
)

// Event is delivered to subscribers of a channel.
type Event struct {
	Channel string
	Type    EventType
	Message models.Envelope
	Code    int
	Reason  string
	Err     error
}

// CloseEvent describes how a connection ended.
type CloseEvent struct {
	Code     int
	Reason   string
	WasClean bool
}

// Options are the per-connection callbacks passed to Connect.
type Options struct {
	OnOpen    func()
	OnMessage func(models.Envelope)
	OnClose   func(CloseEvent)
	OnError   func(error)
}

// Handler receives channel events.
type Handler func(Event)

// Config controls the target endpoint and the reconnect policy.
type Config struct {
	BaseURL     string
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultConfig returns the production reconnect policy for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 10,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for reconnect timers.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithTokenSource sets the function that supplies the bearer token encoded
// into each connection target. It is called on every (re)connect.
func WithTokenSource(f func() string) Option {
	return func(m *Manager) { m.token = f }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

type subKey struct {
	channel string
	event   EventType
}

type connection struct {
	channel string
	opts    Options

	// guarded by Manager.mu
	state      State
	conn       Conn
	closing    bool
	superseded bool

	writeMu sync.Mutex
}

// Manager maintains logical channels over reconnecting streaming connections.
// One Manager is created per application session.
type Manager struct {
	cfg    Config
	dialer Dialer
	clock  Clock
	token  func() string
	log    log.FieldLogger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	conns    map[string]*connection
	timers   map[string]Timer
	attempts map[string]int
	subs     map[subKey]map[uint64]Handler
	nextSub  uint64
}

// NewManager creates a Manager. Call Init before Connect.
func NewManager(cfg Config, dialer Dialer, opts ...Option) *Manager {
	def := DefaultConfig(cfg.BaseURL)
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	m := &Manager{
		cfg:      cfg,
		dialer:   dialer,
		clock:    realClock{},
		token:    func() string { return "" },
		conns:    make(map[string]*connection),
		timers:   make(map[string]Timer),
		attempts: make(map[string]int),
		subs:     make(map[subKey]map[uint64]Handler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = log.StandardLogger()
	}
	return m
}

// Init starts the manager. Connections opened afterwards live until
// Disconnect, Shutdown, or cancellation of ctx.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	return nil
}

// Shutdown disconnects every channel and refuses further connects.
func (m *Manager) Shutdown() {
	m.DisconnectAll()
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = nil, nil
	m.mu.Unlock()
}

// Connect opens channel. It returns immediately; the dial and the read loop
// run in the background and report through opts and subscribers. Connecting
// an already connected channel is a no-op.
func (m *Manager) Connect(channel string, opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return ErrNotStarted
	}
	if existing := m.conns[channel]; existing != nil {
		if existing.state == StateConnected {
			return nil
		}
		existing.superseded = true
		m.closeLocked(existing)
	}
	m.stopTimerLocked(channel)
	m.attempts[channel] = 0
	m.openLocked(channel, opts)
	return nil
}

// Disconnect closes channel with a normal closure and cancels any pending
// reconnect. It is a no-op for unknown channels.
func (m *Manager) Disconnect(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked(channel)
	delete(m.attempts, channel)
	if c := m.conns[channel]; c != nil {
		m.closeLocked(c)
	}
}

// DisconnectAll disconnects every channel.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	channels := make([]string, 0, len(m.conns)+len(m.timers))
	for ch := range m.conns {
		channels = append(channels, ch)
	}
	for ch := range m.timers {
		if _, ok := m.conns[ch]; !ok {
			channels = append(channels, ch)
		}
	}
	m.mu.Unlock()
	for _, ch := range channels {
		m.Disconnect(ch)
	}
}

// Send marshals v and writes it on channel. It returns false without
// queueing when the channel is not connected or the write fails.
func (m *Manager) Send(channel string, v any) bool {
	m.mu.Lock()
	c := m.conns[channel]
	if c == nil || c.state != StateConnected || c.conn == nil {
		m.mu.Unlock()
		return false
	}
	conn := c.conn
	m.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		m.log.WithError(err).WithField("channel", channel).Warn("Failed to encode outbound message")
		return false
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		m.log.WithError(err).WithField("channel", channel).Debug("Failed to send message")
		return false
	}
	return true
}

// Subscribe registers h for events of type ev on channel and returns a
// function that removes it.
func (m *Manager) Subscribe(channel string, ev EventType, h Handler) func() {
	key := subKey{channel: channel, event: ev}
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	if m.subs[key] == nil {
		m.subs[key] = make(map[uint64]Handler)
	}
	m.subs[key][id] = h
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[key], id)
			if len(m.subs[key]) == 0 {
				delete(m.subs, key)
			}
			m.mu.Unlock()
		})
	}
}

// State reports the readiness of channel.
func (m *Manager) State(channel string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.conns[channel]
	if c == nil {
		return StateDisconnected
	}
	switch c.state {
	case StateConnecting, StateConnected, StateClosing, StateDisconnected:
		return c.state
	default:
		return StateUnknown
	}
}

// Channels lists channels that currently have a connection entry.
func (m *Manager) Channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.conns))
	for ch := range m.conns {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) openLocked(channel string, opts Options) {
	target, err := BuildURL(m.cfg.BaseURL, channel, m.token())
	c := &connection{channel: channel, opts: opts, state: StateConnecting}
	m.conns[channel] = c
	go m.run(m.ctx, c, target, err)
}

// closeLocked marks c as caller-closed. Entries without a live socket are
// removed at once; otherwise the read loop removes it once the socket ends.
func (m *Manager) closeLocked(c *connection) {
	if c.closing {
		return
	}
	c.closing = true
	if c.conn == nil || c.state == StateDisconnected {
		c.state = StateDisconnected
		if m.conns[c.channel] == c {
			delete(m.conns, c.channel)
		}
		return
	}
	c.state = StateClosing
	go c.shutdown()
}

func (c *connection) shutdown() {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(CloseNormal, "Client disconnect"),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}

func (m *Manager) stopTimerLocked(channel string) {
	if t, ok := m.timers[channel]; ok {
		t.Stop()
		delete(m.timers, channel)
	}
}

func (m *Manager) run(ctx context.Context, c *connection, target string, buildErr error) {
	var conn Conn
	err := buildErr
	if err == nil {
		conn, err = m.dialer.Dial(ctx, target)
	}

	m.mu.Lock()
	if c.closing {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		m.finish(c, CloseEvent{Code: CloseNormal, Reason: "Client disconnect", WasClean: true})
		return
	}
	if err != nil {
		c.state = StateDisconnected
		m.mu.Unlock()
		m.log.WithError(err).WithField("channel", c.channel).Warn("Stream connection failed")
		m.fail(c, err)
		m.finish(c, CloseEvent{Code: CloseAbnormal, Reason: err.Error()})
		return
	}
	c.conn = conn
	c.state = StateConnected
	m.attempts[c.channel] = 0
	m.mu.Unlock()

	metrics.StreamConnected.WithLabelValues(c.channel).Set(1)
	m.log.WithField("channel", c.channel).Info("Stream connected")
	m.notify(Event{Channel: c.channel, Type: EventConnected})
	if c.opts.OnOpen != nil {
		m.safeCall(c.channel, "on_open", c.opts.OnOpen)
	}

	m.finish(c, m.readLoop(c, conn))
}

func (m *Manager) readLoop(c *connection, conn Conn) CloseEvent {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return m.closeEvent(c, err)
		}
		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			metrics.StreamParseErrorsTotal.WithLabelValues(c.channel).Inc()
			m.log.WithError(err).WithField("channel", c.channel).Warn("Dropping malformed stream message")
			continue
		}
		metrics.StreamMessagesTotal.WithLabelValues(c.channel, env.Type).Inc()
		m.notify(Event{Channel: c.channel, Type: EventMessage, Message: env})
		if c.opts.OnMessage != nil {
			m.safeCall(c.channel, "on_message", func() { c.opts.OnMessage(env) })
		}
	}
}

func (m *Manager) closeEvent(c *connection, err error) CloseEvent {
	m.mu.Lock()
	closing := c.closing
	m.mu.Unlock()
	if closing {
		return CloseEvent{Code: CloseNormal, Reason: "Client disconnect", WasClean: true}
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return CloseEvent{Code: ce.Code, Reason: ce.Text, WasClean: ce.Code == CloseNormal}
	}
	m.fail(c, err)
	return CloseEvent{Code: CloseAbnormal, Reason: err.Error()}
}

func (m *Manager) fail(c *connection, err error) {
	m.mu.Lock()
	superseded := c.superseded
	m.mu.Unlock()
	if superseded {
		return
	}
	m.notify(Event{Channel: c.channel, Type: EventError, Err: err})
	if c.opts.OnError != nil {
		m.safeCall(c.channel, "on_error", func() { c.opts.OnError(err) })
	}
}

// finish reports the end of c and schedules a retry for abnormal closes.
func (m *Manager) finish(c *connection, ev CloseEvent) {
	m.mu.Lock()
	current := m.conns[c.channel] == c
	superseded := c.superseded
	c.state = StateDisconnected
	if current && c.closing {
		delete(m.conns, c.channel)
	}
	m.mu.Unlock()

	if superseded {
		return
	}
	metrics.StreamConnected.WithLabelValues(c.channel).Set(0)
	m.notify(Event{Channel: c.channel, Type: EventDisconnected, Code: ev.Code, Reason: ev.Reason})
	if c.opts.OnClose != nil {
		m.safeCall(c.channel, "on_close", func() { c.opts.OnClose(ev) })
	}
	if !ev.WasClean && current {
		m.scheduleReconnect(c)
	}
}

func (m *Manager) scheduleReconnect(c *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil || m.conns[c.channel] != c || c.closing {
		return
	}
	attempt := m.attempts[c.channel]
	entry := m.log.WithField("channel", c.channel)
	if attempt >= m.cfg.MaxAttempts {
		entry.WithField("attempts", attempt).Warn("Reconnect attempts exhausted")
		return
	}
	delay := Backoff(m.cfg.BaseDelay, m.cfg.MaxDelay, attempt)
	entry.WithFields(log.Fields{"attempt": attempt + 1, "delay": delay}).Info("Scheduling reconnect")
	metrics.StreamReconnectsTotal.WithLabelValues(c.channel).Inc()
	m.stopTimerLocked(c.channel)
	m.timers[c.channel] = m.clock.AfterFunc(delay, func() { m.reconnect(c) })
}

func (m *Manager) reconnect(prev *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil || m.conns[prev.channel] != prev {
		return
	}
	delete(m.timers, prev.channel)
	m.attempts[prev.channel]++
	m.openLocked(prev.channel, prev.opts)
}

func (m *Manager) notify(ev Event) {
	key := subKey{channel: ev.Channel, event: ev.Type}
	m.mu.Lock()
	ids := make([]uint64, 0, len(m.subs[key]))
	for id := range m.subs[key] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, m.subs[key][id])
	}
	m.mu.Unlock()

	for _, h := range handlers {
		m.safeCall(ev.Channel, string(ev.Type), func() { h(ev) })
	}
}

func (m *Manager) safeCall(channel, what string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithFields(log.Fields{
				"channel": channel,
				"handler": what,
				"panic":   r,
			}).Error("Stream subscriber panicked")
		}
	}()
	f()
}
