package invitation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiredBoundary(t *testing.T) {
	expiry := time.Date(2026, 5, 8, 12, 0, 0, 0, time.UTC)
	inv := Invitation{ExpiresAt: expiry}

	assert.False(t, inv.Expired(expiry.Add(-time.Second)))
	// The exact expiry instant already counts as expired.
	assert.True(t, inv.Expired(expiry))
	assert.True(t, inv.Expired(expiry.Add(time.Second)))
}

func TestLive(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	assert.True(t, Invitation{Status: StatusInvited, ExpiresAt: future}.Live(now))
	assert.False(t, Invitation{Status: StatusInvited, ExpiresAt: past}.Live(now))
	assert.False(t, Invitation{Status: StatusDeclined, ExpiresAt: future}.Live(now))
	assert.False(t, Invitation{Status: StatusAccepted, ExpiresAt: future}.Live(now))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "dev@example.com", NormalizeEmail("  Dev@Example.COM "))
	assert.Equal(t, "dev@example.com", NormalizeEmail("dev@example.com"))
	assert.Equal(t, "", NormalizeEmail("   "))
}
