package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/handlers"
	"github.com/ukydev/aero-console/internal/middleware"
	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/source"
	"github.com/ukydev/aero-console/internal/stream"
)

// APIPrefix is the root of the REST surface served by the simulator.
const APIPrefix = "/api/v1"

// StreamPath is the websocket endpoint served by the simulator.
const StreamPath = APIPrefix + "/telemetry/ws"

// streamRateLimit bounds websocket upgrades per client per minute.
const streamRateLimit = 120

// server exposes the demo fleet over REST and bridges websocket clients onto
// its synthetic channels.
type server struct {
	mock     *source.Mock
	dialer   stream.Dialer
	token    string
	upgrader websocket.Upgrader
	limiter  *middleware.RateLimiter
	log      log.FieldLogger
}

// newServer creates a server. Clients authenticate with the token issued by
// the REST login, or with token when it is non-empty.
func newServer(mock *source.Mock, tick time.Duration, token string, logger log.FieldLogger) *server {
	return &server{
		mock:   mock,
		dialer: source.NewSynthetic(mock, tick, logger),
		token:  token,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		limiter: middleware.NewRateLimiter(streamRateLimit, time.Minute),
		log:     logger,
	}
}

func (s *server) validToken(tok string) bool {
	return s.roleOf(tok) != ""
}

func (s *server) roleOf(tok string) models.Role {
	if s.token != "" && tok == s.token {
		return source.DemoUser.Role
	}
	return s.mock.Role(tok)
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	handlers.NewAPIHandler(s.mock, s.roleOf, s.log).Register(mux, APIPrefix)
	mux.Handle("GET "+StreamPath, s.limiter.Limit(http.HandlerFunc(s.handleStream)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authn := middleware.NewTokenAuth(s.validToken, APIPrefix+"/auth/login", APIPrefix+"/auth/refresh", "/healthz")
	return authn.Authenticate(mux)
}

func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channels")
	if channel == "" {
		middleware.WriteError(w, http.StatusBadRequest, "channels is required")
		return
	}
	src, err := s.dialer.Dial(r.Context(), r.URL.String())
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		src.Close()
		s.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	s.log.WithFields(log.Fields{"channel": channel, "remote": r.RemoteAddr}).Info("Client subscribed")
	s.bridge(ws, src, channel)
}

// bridge pumps source frames to the client and client commands to the
// source until either side ends.
func (s *server) bridge(ws *websocket.Conn, src stream.Conn, channel string) {
	entry := s.log.WithField("channel", channel)
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var cmd models.CommandEnvelope
			if err := json.Unmarshal(data, &cmd); err == nil && cmd.Type == models.EnvelopeCommand {
				entry.WithFields(log.Fields{"command": cmd.Command, "params": cmd.Params}).Info("Received command")
			}
			if err := src.WriteMessage(websocket.TextMessage, data); err != nil {
				entry.WithError(err).Debug("Dropping client frame")
			}
		}
	}()
	go func() {
		<-clientGone
		src.Close()
	}()

	for {
		_, data, err := src.ReadMessage()
		if err != nil {
			break
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	src.Close()
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"),
		time.Now().Add(time.Second))
	ws.Close()
	entry.Info("Client unsubscribed")
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	interval := envDuration("SIM_TICK_SECONDS", time.Second)
	token := os.Getenv("SIM_AUTH_TOKEN")

	mock := source.NewMock()
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newServer(mock, interval, token, log.StandardLogger()).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.WithFields(log.Fields{
		"addr":     srv.Addr,
		"api":      APIPrefix,
		"stream":   StreamPath,
		"interval": interval,
		"vehicles": len(mock.Sim().VehicleIDs()),
	}).Info("Starting fleet simulator")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Simulator stopped")
	}
}
