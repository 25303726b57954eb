package services

import (
	"testing"
	"time"

	"faculty-ranker-api/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", 2)
	user := &models.User{UserID: "u1", Email: "alice@kku.ac.th", Role: models.RoleAdmin}

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice@kku.ac.th", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "u1", claims.Subject)
}

func TestTokenParseRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", 1)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return base }

	token, err := issuer.Issue(&models.User{UserID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other-secret", 1).Parse(token)
	assert.Error(t, err, "wrong secret")

	issuer.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.Error(t, err)

	empty, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(empty)
	assert.Error(t, err, "claims without user id")
}

func TestOAuthState(t *testing.T) {
	issuer := NewTokenIssuer("secret", 1)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return base }

	state, err := issuer.IssueState()
	require.NoError(t, err)
	require.NoError(t, issuer.VerifyState(state))

	// An access token is not a valid state.
	access, err := issuer.Issue(&models.User{UserID: "u1"})
	require.NoError(t, err)
	assert.ErrorIs(t, issuer.VerifyState(access), ErrInvalidState)

	issuer.now = func() time.Time { return base.Add(oauthStateTTL + time.Second) }
	assert.ErrorIs(t, issuer.VerifyState(state), ErrInvalidState)
}
