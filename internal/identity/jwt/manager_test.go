package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelflow/travelflow-backend/pkg/config"
	"github.com/travelflow/travelflow-backend/pkg/errors"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

func newTestManager() *Manager {
	return NewManager(&config.JWTConfig{
		Secret:        "unit-test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "travelflow",
	})
}

var testUser = &UserInfo{
	ID:             "user-1",
	Email:          "maria@example.com",
	Name:           "Maria Keller",
	OrganizationID: "org-1",
	Roles:          []string{permissions.RoleManager, permissions.RoleUser},
}

func TestManager_AuthenticateRoundTrip(t *testing.T) {
	m := newTestManager()

	pair, err := m.GenerateTokenPair(testUser)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	a, err := m.Authenticate(pair.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, "user-1", a.ID)
	assert.Equal(t, "org-1", a.OrganizationID)
	assert.Equal(t, "Maria Keller", a.FullName)
	assert.True(t, a.CanApproveTravel())
	assert.True(t, a.CanApproveReports())
	assert.False(t, a.CanManagePolicy())
}

func TestManager_RefreshTokenIsNotAnAccessToken(t *testing.T) {
	m := newTestManager()

	pair, err := m.GenerateTokenPair(testUser)
	require.NoError(t, err)

	_, err = m.Authenticate(pair.RefreshToken)
	assert.Equal(t, "TOKEN_INVALID", errors.CodeOf(err))

	claims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.Equal(t, "TOKEN_INVALID", errors.CodeOf(err))
}

func TestManager_ExpiredToken(t *testing.T) {
	m := NewManager(&config.JWTConfig{
		Secret:        "unit-test-secret",
		AccessExpiry:  -time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "travelflow",
	})

	pair, err := m.GenerateTokenPair(testUser)
	require.NoError(t, err)

	_, err = m.Authenticate(pair.AccessToken)
	assert.Equal(t, "TOKEN_EXPIRED", errors.CodeOf(err))
}

func TestManager_WrongSecretOrIssuer(t *testing.T) {
	pair, err := newTestManager().GenerateTokenPair(testUser)
	require.NoError(t, err)

	other := NewManager(&config.JWTConfig{Secret: "another-secret", Issuer: "travelflow"})
	_, err = other.Authenticate(pair.AccessToken)
	assert.Equal(t, "TOKEN_INVALID", errors.CodeOf(err))

	foreign := NewManager(&config.JWTConfig{Secret: "unit-test-secret", Issuer: "someone-else"})
	_, err = foreign.Authenticate(pair.AccessToken)
	assert.Equal(t, "TOKEN_INVALID", errors.CodeOf(err))

	_, err = newTestManager().Authenticate("not-a-token")
	assert.Equal(t, "TOKEN_INVALID", errors.CodeOf(err))
}
