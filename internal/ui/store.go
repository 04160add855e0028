package ui

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration is how long a toast stays up when none is given.
const DefaultToastDuration = 5 * time.Second

// Theme values.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// ToastType is a toast's severity.
type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastWarning ToastType = "warning"
	ToastInfo    ToastType = "info"
)

// Toast is a transient operator notification.
type Toast struct {
	ID        string        `json:"id"`
	Type      ToastType     `json:"type"`
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

func (t Toast) expired(now time.Time) bool {
	return !now.Before(t.CreatedAt.Add(t.Duration))
}

// Snapshot is the persisted part of the UI state. Toasts are never
// persisted.
type Snapshot struct {
	SidebarCollapsed bool   `json:"sidebar_collapsed"`
	Theme            string `json:"theme,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for toast expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store holds UI preferences and pending toasts.
type Store struct {
	now func() time.Time

	mu               sync.Mutex
	sidebarCollapsed bool
	theme            string
	toasts           []Toast
}

// NewStore creates a Store with the sidebar expanded and the dark theme.
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now, theme: ThemeDark}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) SidebarCollapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebarCollapsed
}

// ToggleSidebar flips the sidebar and returns the new collapsed state.
func (s *Store) ToggleSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarCollapsed = !s.sidebarCollapsed
	return s.sidebarCollapsed
}

func (s *Store) SetSidebarCollapsed(collapsed bool) {
	s.mu.Lock()
	s.sidebarCollapsed = collapsed
	s.mu.Unlock()
}

func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *Store) SetTheme(theme string) {
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
}

// AddToast queues t and returns its id. A zero duration means
// DefaultToastDuration.
func (s *Store) AddToast(t Toast) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Duration <= 0 {
		t.Duration = DefaultToastDuration
	}
	t.CreatedAt = s.now()
	s.toasts = append(slices.Clip(s.toasts), t)
	return t.ID
}

func (s *Store) Success(title, message string) string {
	return s.AddToast(Toast{Type: ToastSuccess, Title: title, Message: message})
}

func (s *Store) Error(title, message string) string {
	return s.AddToast(Toast{Type: ToastError, Title: title, Message: message})
}

func (s *Store) Warning(title, message string) string {
	return s.AddToast(Toast{Type: ToastWarning, Title: title, Message: message})
}

func (s *Store) Info(title, message string) string {
	return s.AddToast(Toast{Type: ToastInfo, Title: title, Message: message})
}

// RemoveToast dismisses a toast before it expires.
func (s *Store) RemoveToast(id string) {
	s.mu.Lock()
	s.toasts = slices.DeleteFunc(slices.Clone(s.toasts), func(t Toast) bool { return t.ID == id })
	s.mu.Unlock()
}

// Toasts returns the unexpired toasts, oldest first, and drops the rest.
func (s *Store) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.toasts = slices.DeleteFunc(slices.Clone(s.toasts), func(t Toast) bool { return t.expired(now) })
	return slices.Clone(s.toasts)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{SidebarCollapsed: s.sidebarCollapsed, Theme: s.theme}
}

// Restore applies a persisted snapshot. An empty theme keeps the current
// one.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarCollapsed = snap.SidebarCollapsed
	if snap.Theme != "" {
		s.theme = snap.Theme
	}
}
