package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/design-coach/internal/config"
)

const testSecret = "test-secret-key-for-session-signing"

func newTestJWTService(expirationHours int) *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:          testSecret,
		ExpirationHours: expirationHours,
		Issuer:          "design-coach",
	})
}

func TestJWTService_NewSession(t *testing.T) {
	service := newTestJWTService(24)

	session, err := service.NewSession()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.SessionID)
	assert.Len(t, strings.Split(session.Token, "."), 3)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)

	claims, err := service.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, claims.SessionID)
	assert.Equal(t, session.SessionID.String(), claims.Subject)
}

func TestJWTService_UniqueTokens(t *testing.T) {
	service := newTestJWTService(24)
	id := uuid.New()

	a, _, err := service.GenerateToken(id)
	require.NoError(t, err)
	b, _, err := service.GenerateToken(id)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "token IDs differ")
}

func TestJWTService_Expired(t *testing.T) {
	service := newTestJWTService(1)
	token, _, err := service.GenerateToken(uuid.New())
	require.NoError(t, err)

	service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestJWTService_RejectsBadTokens(t *testing.T) {
	service := newTestJWTService(24)
	good, _, err := service.GenerateToken(uuid.New())
	require.NoError(t, err)

	other := NewJWTService(&config.JWTConfig{Secret: "another-secret-key-entirely", ExpirationHours: 24, Issuer: "design-coach"})
	forged, _, err := other.GenerateToken(uuid.New())
	require.NoError(t, err)

	foreign := NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 24, Issuer: "someone-else"})
	wrongIssuer, _, err := foreign.GenerateToken(uuid.New())
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{SessionID: uuid.New()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	nilSession, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "design-coach"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr string
	}{
		{name: "empty", token: "", wantErr: "empty"},
		{name: "garbage", token: "not.a.jwt", wantErr: "malformed"},
		{name: "wrong key", token: forged, wantErr: "signature"},
		{name: "wrong issuer", token: wrongIssuer, wantErr: "failed to parse"},
		{name: "alg none", token: noneToken, wantErr: "invalid token signature"},
		{name: "no session", token: nilSession, wantErr: "no session"},
		{name: "tampered", token: good[:len(good)-2] + "xx", wantErr: "signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := newTestJWTService(24)
	session, err := service.NewSession()
	require.NoError(t, err)

	got, err := service.AsTokenValidator().ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, got.GetSessionID())

	_, err = service.AsTokenValidator().ValidateToken("bad")
	assert.Error(t, err)
}
