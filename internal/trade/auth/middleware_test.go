package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	const secret = "test-secret"
	userID := uuid.New()
	valid, err := GenerateToken(userID.String(), secret, DefaultTokenTTL)
	require.NoError(t, err)

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := HTTPMiddleware(next, secret)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantUser   uuid.UUID
	}{
		{name: "valid token", path: "/v1/orders", header: "Bearer " + valid, wantStatus: http.StatusOK, wantUser: userID},
		{name: "missing header", path: "/v1/orders", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/v1/orders", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad signature", path: "/v1/orders", header: "Bearer " + signToken(userID.String(), "other", time.Now().Add(time.Hour)), wantStatus: http.StatusUnauthorized},
		{name: "health is public", path: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics is public", path: "/metrics", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, seen)
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "unauthenticated", body["error"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken("user-1", "secret", time.Minute)
	require.NoError(t, err)

	claims, err := validateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, issuer, claims["iss"])

	expired, err := GenerateToken("user-1", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = validateToken(expired, "secret")
	assert.Error(t, err)
}
