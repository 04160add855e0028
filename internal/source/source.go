// Package source selects where the console's data comes from: the live REST
// API and websocket stream, an in-memory demo backend, or an MQTT broker.
package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/api"
	"github.com/ukydev/aero-console/internal/config"
	"github.com/ukydev/aero-console/internal/fleet"
	"github.com/ukydev/aero-console/internal/mission"
	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/stream"
)

// mockStreamURL is the nominal endpoint handed to the synthetic dialer.
const mockStreamURL = "mock://localhost/telemetry/ws"

// API is every REST endpoint the console consumes.
type API interface {
	fleet.API
	mission.API

	Login(ctx context.Context, creds models.LoginRequest) (models.LoginResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (models.User, error)
	PostAudit(ctx context.Context, ev models.AuditEvent) error
	FetchRegistry(ctx context.Context) (models.ActionRegistry, error)
}

var (
	_ API = (*api.Client)(nil)
	_ API = (*Mock)(nil)
)

// Backend bundles the REST endpoints and stream dialer of one data source.
type Backend struct {
	Name      string
	API       API
	Dialer    stream.Dialer
	StreamURL string
	// Mock is set only for the mock source.
	Mock *Mock
}

// Options carries the collaborators a backend may need.
type Options struct {
	Tokens        api.TokenStore
	Org           func() string
	OnAuthFailure func(error)
	Logger        log.FieldLogger
}

// New builds the backend named by cfg.DataSource.
func New(cfg config.Config, opts Options) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	switch cfg.DataSource {
	case config.SourceMock:
		return NewMockBackend(opts.Logger), nil
	case config.SourceLive, "":
		return &Backend{
			Name:      config.SourceLive,
			API:       liveClient(cfg, opts),
			Dialer:    stream.WebsocketDialer{Dialer: &websocket.Dialer{HandshakeTimeout: cfg.HTTPTimeout}},
			StreamURL: cfg.WSBaseURL,
		}, nil
	case config.SourceMQTT:
		return &Backend{
			Name: config.SourceMQTT,
			API:  liveClient(cfg, opts),
			Dialer: &MQTTDialer{
				BrokerURL:      cfg.MQTTBrokerURL,
				ConnectTimeout: cfg.HTTPTimeout,
				Org:            opts.Org,
				Log:            opts.Logger,
			},
			StreamURL: cfg.WSBaseURL,
		}, nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}

// NewMockBackend builds an in-memory backend over the demo data set.
func NewMockBackend(logger log.FieldLogger) *Backend {
	mock := NewMock()
	return &Backend{
		Name:      config.SourceMock,
		API:       mock,
		Dialer:    NewSynthetic(mock, DefaultTick, logger),
		StreamURL: mockStreamURL,
		Mock:      mock,
	}
}

func liveClient(cfg config.Config, opts Options) *api.Client {
	clientOpts := []api.ClientOption{
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLogger(opts.Logger),
	}
	if opts.OnAuthFailure != nil {
		clientOpts = append(clientOpts, api.WithAuthFailureHandler(opts.OnAuthFailure))
	}
	return api.NewClient(cfg.APIBaseURL, opts.Tokens, clientOpts...)
}
