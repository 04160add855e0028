package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/aero-console/internal/auth"
	"github.com/ukydev/aero-console/internal/ui"
)

// Persisted keys.
const (
	KeyAuth     = "aero-auth-store"
	KeyUI       = "aero-ui-store"
	KeyMockMode = "aero_mock_mode"
)

// Persister moves store snapshots in and out of a Backend. Stores never
// touch storage themselves.
type Persister struct {
	backend Backend
	sealer  *Sealer
	log     log.FieldLogger
}

// New creates a Persister. A nil sealer stores session tokens in the clear.
func New(backend Backend, sealer *Sealer, logger log.FieldLogger) *Persister {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Persister{backend: backend, sealer: sealer, log: logger}
}

// LoadSession restores s from storage. Nothing saved is not an error.
func (p *Persister) LoadSession(ctx context.Context, s *auth.Session) error {
	data, err := p.backend.Load(ctx, KeyAuth)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if p.sealer != nil {
		if data, err = p.sealer.Open(data); err != nil {
			return fmt.Errorf("load session: %w", err)
		}
	}
	var snap auth.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	s.Restore(snap)
	return nil
}

// SaveSession writes snap, or deletes the stored session when snap holds no
// tokens.
func (p *Persister) SaveSession(ctx context.Context, snap auth.Snapshot) error {
	if snap.Tokens.AccessToken == "" && snap.Tokens.RefreshToken == "" {
		return p.backend.Delete(ctx, KeyAuth)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if p.sealer != nil {
		if data, err = p.sealer.Seal(data); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return p.backend.Save(ctx, KeyAuth, data)
}

// LoadUI restores the UI preferences.
func (p *Persister) LoadUI(ctx context.Context, s *ui.Store) error {
	data, err := p.backend.Load(ctx, KeyUI)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ui: %w", err)
	}
	var snap ui.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("load ui: %w", err)
	}
	s.Restore(snap)
	return nil
}

func (p *Persister) SaveUI(ctx context.Context, snap ui.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("save ui: %w", err)
	}
	return p.backend.Save(ctx, KeyUI, data)
}

// MockMode reports the persisted mock-mode flag. Unset or unreadable values
// count as false.
func (p *Persister) MockMode(ctx context.Context) bool {
	data, err := p.backend.Load(ctx, KeyMockMode)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.log.WithError(err).Warn("Failed to read mock mode flag")
		}
		return false
	}
	on, err := strconv.ParseBool(string(data))
	return err == nil && on
}

func (p *Persister) SetMockMode(ctx context.Context, on bool) error {
	return p.backend.Save(ctx, KeyMockMode, []byte(strconv.FormatBool(on)))
}

// Bind saves the session every time it changes. Failures are logged.
func (p *Persister) Bind(ctx context.Context, s *auth.Session) {
	s.OnChange(func(snap auth.Snapshot) {
		if err := p.SaveSession(ctx, snap); err != nil {
			p.log.WithError(err).Warn("Failed to persist session")
		}
	})
}
