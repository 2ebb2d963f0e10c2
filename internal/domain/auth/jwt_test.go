package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "retailpos/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken(Actor{
		UserID:   "cashier-1",
		Name:     "Front Till",
		Roles:    []string{appctx.RoleCashier},
		DeviceID: "till-01",
	})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cashier-1", user.UserID)
	assert.Equal(t, "Front Till", user.Name)
	assert.Equal(t, []string{appctx.RoleCashier}, user.Roles)
	assert.Equal(t, "till-01", user.DeviceID)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := issuer.GenerateAccessToken(Actor{UserID: "m-1", Roles: []string{appctx.RoleManager}})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService(JWTConfig{Secret: "s", Issuer: "retailpos", AccessTokenTTL: time.Minute})
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.GenerateAccessToken(Actor{UserID: "c-1", Roles: []string{appctx.RoleCashier}})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsUnknownRoleAndMissingActor(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("s"))

	_, _, err := svc.GenerateAccessToken(Actor{UserID: "x", Roles: []string{"admin"}})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, _, err = svc.GenerateAccessToken(Actor{Roles: []string{appctx.RoleCashier}})
	assert.ErrorIs(t, err, ErrMissingActor)
}
