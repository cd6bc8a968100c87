package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleStaff.Valid())
	assert.False(t, Role("owner").Valid())
	assert.False(t, Role("").Valid())
}

func TestAssetStatus_Valid(t *testing.T) {
	for _, s := range AssetStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, AssetStatus("Lost").Valid())
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	token := "abc"
	exp := time.Now()
	u := &User{ID: 1, Username: "alice", PasswordHash: "$2a$10$x", VerificationToken: &token, VerificationTokenExpires: &exp, Role: RoleStaff}

	b, err := json.Marshal(u)
	require.NoError(t, err)
	s := string(b)
	assert.NotContains(t, s, "$2a$10$x")
	assert.NotContains(t, s, "abc")
	assert.Contains(t, s, `"username":"alice"`)
	assert.Contains(t, s, `"role":"staff"`)
}

func TestUser_LockoutState(t *testing.T) {
	until := time.Date(2025, 1, 1, 0, 15, 0, 0, time.UTC)
	u := &User{FailedLoginAttempts: 5, LockedUntil: &until}
	assert.Equal(t, LockoutState{FailedAttempts: 5, LockedUntil: &until}, u.LockoutState())
}
