package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubvault/internal/domain"
)

func TestQuotaSessionNotice(t *testing.T) {
	session := NewQuotaSession()
	clubA, clubB := uuid.New(), uuid.New()

	assert.Equal(t, domain.QuotaAlertNone, session.Notice(clubA, domain.QuotaAlertNone))
	assert.Equal(t, domain.QuotaAlertWarning, session.Notice(clubA, domain.QuotaAlertWarning))
	assert.Equal(t, domain.QuotaAlertNone, session.Notice(clubA, domain.QuotaAlertWarning))

	// Другой клуб не подавляется
	assert.Equal(t, domain.QuotaAlertWarning, session.Notice(clubB, domain.QuotaAlertWarning))

	assert.Equal(t, domain.QuotaAlertHardLimit, session.Notice(clubA, domain.QuotaAlertHardLimit))
	assert.Equal(t, domain.QuotaAlertNone, session.Notice(clubA, domain.QuotaAlertHardLimit))

	session.Reset()
	assert.Equal(t, domain.QuotaAlertWarning, session.Notice(clubA, domain.QuotaAlertWarning))
}

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry(time.Hour)

	session := registry.Start("coach")
	require.NotEmpty(t, session.ID)
	assert.Equal(t, "coach", session.Owner)

	got, ok := registry.Get(session.ID, "coach")
	require.True(t, ok)
	assert.Same(t, session, got)

	assert.True(t, registry.End(session.ID, "coach"))
	assert.False(t, registry.End(session.ID, "coach"))

	_, ok = registry.Get(session.ID, "coach")
	assert.False(t, ok)
}

func TestSessionRegistryHidesForeignSessions(t *testing.T) {
	registry := NewSessionRegistry(time.Hour)
	session := registry.Start("coach")

	_, ok := registry.Get(session.ID, "parent")
	assert.False(t, ok)
	assert.False(t, registry.End(session.ID, "parent"))
	assert.Equal(t, 1, registry.Len())

	_, ok = registry.Get(session.ID, "coach")
	assert.True(t, ok)
}

func TestSessionRegistryDropsIdleSessions(t *testing.T) {
	registry := NewSessionRegistry(time.Hour)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	idle := registry.Start("coach")
	now = now.Add(30 * time.Minute)
	active := registry.Start("coach")

	now = now.Add(45 * time.Minute)
	_, ok := registry.Get(active.ID, "coach")
	require.True(t, ok)

	_, ok = registry.Get(idle.ID, "coach")
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Len())
}
