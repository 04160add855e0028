// Package session wires the stores, the streaming transport and the action
// pipeline into one console session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ukydev/aero-console/internal/actions"
	"github.com/ukydev/aero-console/internal/auth"
	"github.com/ukydev/aero-console/internal/config"
	"github.com/ukydev/aero-console/internal/confirm"
	"github.com/ukydev/aero-console/internal/db"
	"github.com/ukydev/aero-console/internal/fleet"
	"github.com/ukydev/aero-console/internal/mission"
	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/persist"
	"github.com/ukydev/aero-console/internal/source"
	"github.com/ukydev/aero-console/internal/stream"
	"github.com/ukydev/aero-console/internal/telemetry"
	"github.com/ukydev/aero-console/internal/ui"
)

// ErrNotSignedIn is returned by operations that need an authenticated
// session.
var ErrNotSignedIn = errors.New("not signed in")

// Option configures an App.
type Option func(*App)

// WithBackend replaces the data source selected from configuration.
func WithBackend(b *source.Backend) Option {
	return func(a *App) { a.Backend = b }
}

// WithPersister sets where session and UI state are kept between runs.
func WithPersister(p *persist.Persister) Option {
	return func(a *App) { a.persister = p }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(a *App) { a.log = l }
}

// App is one operator session: the stores, the stream manager and the
// confirmation pipeline sharing a single auth session.
type App struct {
	Backend   *source.Backend
	Session   *auth.Session
	UI        *ui.Store
	Telemetry *telemetry.Store
	Fleet     *fleet.Store
	Missions  *mission.Store
	Registry  *actions.Registry
	Pipeline  *confirm.Pipeline
	Stream    *stream.Manager

	cfg       config.Config
	log       log.FieldLogger
	persister *persist.Persister

	mu      sync.Mutex
	watches map[string]*watch
}

// New assembles an App from cfg. Without WithBackend the data source named
// by cfg is built, switching to the mock source when the persisted mock-mode
// flag is on.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		watches: make(map[string]*watch),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = log.StandardLogger()
	}

	a.Session = auth.NewSession(auth.WithDefaultOrganization(cfg.OrgID))
	a.UI = ui.NewStore()
	a.Telemetry = telemetry.NewStore(telemetry.WithLogger(a.log))
	a.Registry = actions.DefaultRegistry()

	if a.Backend == nil {
		if a.persister != nil && a.persister.MockMode(ctx) {
			cfg.DataSource = config.SourceMock
		}
		b, err := source.New(cfg, source.Options{
			Tokens:        a.Session,
			Org:           a.Session.OrganizationID,
			OnAuthFailure: a.authFailed,
			Logger:        a.log,
		})
		if err != nil {
			return nil, err
		}
		a.Backend = b
	}

	a.Fleet = fleet.NewStore(a.Backend.API, a.log)
	a.Missions = mission.NewStore(a.Backend.API, a.log)
	a.Pipeline = confirm.New(a.Registry, a.Session,
		confirm.WithAuditor(a.Backend.API),
		confirm.WithNotifier(a.UI),
		confirm.WithCommander(a.Fleet),
		confirm.WithLogger(a.log),
	)
	a.Stream = stream.NewManager(stream.Config{
		BaseURL:     a.Backend.StreamURL,
		BaseDelay:   cfg.ReconnectBase,
		MaxDelay:    cfg.ReconnectMax,
		MaxAttempts: cfg.ReconnectAttempts,
	}, a.Backend.Dialer,
		stream.WithTokenSource(a.Session.AccessToken),
		stream.WithLogger(a.log),
	)
	return a, nil
}

// OpenPersister builds the persister described by cfg: a Mongo collection
// when MongoURI is set, otherwise a state directory. The returned close
// function releases the Mongo client.
func OpenPersister(ctx context.Context, cfg config.Config, logger log.FieldLogger) (*persist.Persister, func(), error) {
	sealer := persist.NewSealer(cfg.StateSecret)
	if cfg.MongoURI == "" {
		return persist.New(persist.FileBackend{Dir: cfg.StateDir}, sealer, logger), func() {}, nil
	}
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}
	return persist.New(db.NewStateCollection(client, cfg.MongoDB), sealer, logger), closeFn, nil
}

// Init restores persisted state and starts the stream manager. When the
// restored session is still valid the server's action registry is merged in.
func (a *App) Init(ctx context.Context) error {
	if a.persister != nil {
		if err := a.persister.LoadSession(ctx, a.Session); err != nil {
			a.log.WithError(err).Warn("Discarding unreadable saved session")
		}
		if err := a.persister.LoadUI(ctx, a.UI); err != nil {
			a.log.WithError(err).Warn("Discarding unreadable UI preferences")
		}
		a.persister.Bind(ctx, a.Session)
	}
	if err := a.Stream.Init(ctx); err != nil {
		return err
	}
	if a.Session.Authenticated() && !a.Session.Expired() {
		a.loadRegistry(ctx)
	}
	a.log.WithField("source", a.Backend.Name).Info("Console session started")
	return nil
}

// Shutdown closes every channel, drains in-flight audits and saves the UI
// preferences.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	a.watches = make(map[string]*watch)
	a.mu.Unlock()
	a.Stream.Shutdown()
	a.Pipeline.Wait()
	if a.persister != nil {
		if err := a.persister.SaveUI(ctx, a.UI.Snapshot()); err != nil {
			a.log.WithError(err).Warn("Failed to persist UI preferences")
		}
	}
}

// Login signs in and loads the server's action registry.
func (a *App) Login(ctx context.Context, email, password string) (models.User, error) {
	resp, err := a.Backend.API.Login(ctx, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return models.User{}, err
	}
	a.Session.SignIn(resp)
	a.log.WithFields(log.Fields{"user": resp.User.Email, "role": resp.User.Role}).Info("Signed in")
	a.loadRegistry(ctx)
	return resp.User, nil
}

// Logout ends the session locally even when the server call fails.
func (a *App) Logout(ctx context.Context) {
	if a.Session.Authenticated() {
		if err := a.Backend.API.Logout(ctx); err != nil {
			a.log.WithError(err).Warn("Server logout failed")
		}
	}
	a.resetSession()
}

func (a *App) authFailed(err error) {
	a.log.WithError(err).Warn("Session expired")
	a.resetSession()
}

func (a *App) resetSession() {
	a.Session.Clear()
	a.mu.Lock()
	a.watches = make(map[string]*watch)
	a.mu.Unlock()
	a.Stream.DisconnectAll()
	a.Telemetry.Reset()
}

func (a *App) loadRegistry(ctx context.Context) {
	reg, err := a.Backend.API.FetchRegistry(ctx)
	if err != nil {
		a.log.WithError(err).Warn("Using built-in action registry")
		return
	}
	a.Registry.Merge(reg.Actions)
	a.log.WithFields(log.Fields{"version": reg.Version, "actions": len(reg.Actions)}).Debug("Merged server action registry")
}

// Refresh reloads vehicles, fleets and missions concurrently. Each store
// keeps its previous data on failure, and one failed fetch does not cancel
// the others.
func (a *App) Refresh(ctx context.Context) error {
	if !a.Session.Authenticated() {
		return ErrNotSignedIn
	}
	var g errgroup.Group
	g.Go(func() error { return a.Fleet.FetchVehicles(ctx, nil) })
	g.Go(func() error { return a.Fleet.FetchFleets(ctx, nil) })
	g.Go(func() error { return a.Missions.FetchMissions(ctx, nil) })
	return g.Wait()
}

// SetMockMode persists the mock-mode flag for the next start.
func (a *App) SetMockMode(ctx context.Context, on bool) error {
	if a.persister == nil {
		return errors.New("no state store configured")
	}
	return a.persister.SetMockMode(ctx, on)
}
