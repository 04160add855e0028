package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Sidebar(t *testing.T) {
	s := NewStore()
	assert.False(t, s.SidebarCollapsed())
	assert.True(t, s.ToggleSidebar())
	assert.False(t, s.ToggleSidebar())
	s.SetSidebarCollapsed(true)
	assert.True(t, s.SidebarCollapsed())
}

func TestStore_ToastExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return now }))

	short := s.AddToast(Toast{Type: ToastInfo, Title: "Short", Duration: time.Second})
	long := s.Success("Command Sent", "Arm sent to Alpha")

	require.Len(t, s.Toasts(), 2)

	now = now.Add(time.Second)
	toasts := s.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, long, toasts[0].ID)
	assert.Equal(t, DefaultToastDuration, toasts[0].Duration)
	assert.NotEqual(t, short, long)

	now = now.Add(DefaultToastDuration)
	assert.Empty(t, s.Toasts())
}

func TestStore_RemoveToast(t *testing.T) {
	s := NewStore()
	id := s.Error("Command Failed", "Vehicle busy")
	s.Warning("Low battery", "")
	s.RemoveToast(id)

	toasts := s.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastWarning, toasts[0].Type)
}

func TestStore_SnapshotRestore(t *testing.T) {
	s := NewStore()
	s.ToggleSidebar()
	s.SetTheme(ThemeLight)
	s.Info("not persisted", "")

	restored := NewStore()
	restored.Restore(s.Snapshot())
	assert.True(t, restored.SidebarCollapsed())
	assert.Equal(t, ThemeLight, restored.Theme())
	assert.Empty(t, restored.Toasts())

	restored.Restore(Snapshot{})
	assert.Equal(t, ThemeLight, restored.Theme(), "empty theme keeps the current one")
	assert.False(t, restored.SidebarCollapsed())
}
