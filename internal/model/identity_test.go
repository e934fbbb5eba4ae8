package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestIdentityExpired(t *testing.T) {
	id := Identity{Principal: "p", ExpiresAt: mustTime("2024-01-01T12:00:00Z")}

	assert.False(t, id.Expired(mustTime("2024-01-01T11:59:59Z")))
	assert.True(t, id.Expired(mustTime("2024-01-01T12:00:00Z")))

	// Zero expiry never expires
	assert.False(t, Identity{Principal: "p"}.Expired(mustTime("2030-01-01T00:00:00Z")))
}

func TestDelegationIdentity(t *testing.T) {
	d := &Delegation{
		SessionID:    "sid-1",
		Principal:    "alice",
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    mustTime("2024-01-01T12:00:00Z"),
	}

	id := d.Identity()
	assert.Equal(t, Principal("alice"), id.Principal)
	assert.Equal(t, "at", id.AccessToken)
	assert.Equal(t, d.ExpiresAt, id.ExpiresAt)
}
