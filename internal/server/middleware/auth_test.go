package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator map[string]uuid.UUID

func (v fakeValidator) ValidateToken(token string) (SessionIDGetter, error) {
	id, ok := v[token]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return fakeClaims(id), nil
}

type fakeClaims uuid.UUID

func (c fakeClaims) GetSessionID() uuid.UUID { return uuid.UUID(c) }

func serve(t *testing.T, validator TokenValidator, header string) (*httptest.ResponseRecorder, uuid.UUID) {
	t.Helper()
	var seen uuid.UUID
	handler := RequireSession(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetSessionID(r)
		require.NoError(t, err)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/drafts/design-a-chat-app", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireSession_ValidToken(t *testing.T) {
	sessionID := uuid.New()
	validator := fakeValidator{"good-token": sessionID}

	for _, header := range []string{"Bearer good-token", "bearer good-token", "BEARER   good-token"} {
		t.Run(header, func(t *testing.T) {
			rec, seen := serve(t, validator, header)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, sessionID, seen)
		})
	}
}

func TestRequireSession_Rejects(t *testing.T) {
	validator := fakeValidator{"good-token": uuid.New(), "nil-session": uuid.Nil}

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic good-token"},
		{name: "no token", header: "Bearer"},
		{name: "extra parts", header: "Bearer good-token extra"},
		{name: "unknown token", header: "Bearer other"},
		{name: "nil session", header: "Bearer nil-session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serve(t, validator, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	_, ok = BearerToken("abc.def")
	assert.False(t, ok)
}

func TestGetSessionID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetSessionID(req)
	assert.Error(t, err)

	req = req.WithContext(context.WithValue(req.Context(), sessionIDKey, "not-a-uuid"))
	_, err = GetSessionID(req)
	assert.Error(t, err)

	id := uuid.New()
	req = req.WithContext(WithSessionID(context.Background(), id))
	got, err := GetSessionID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
