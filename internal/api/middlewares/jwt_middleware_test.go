package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserID(r.Context())
		_, _ = w.Write([]byte(id + "|" + Role(r.Context())))
	})
}

func TestJWTMiddleware(t *testing.T) {
	valid := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	expired := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := sign(t, "other", jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1"})
	noUser := sign(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{"role": "user"})

	tests := []struct {
		name   string
		method string
		target string
		header string
		status int
		body   string
	}{
		{"bearer", http.MethodPost, "/", "Bearer " + valid, http.StatusOK, "u1|admin"},
		{"query token on GET", http.MethodGet, "/?access_token=" + valid, "", http.StatusOK, "u1|admin"},
		{"query token on POST", http.MethodPost, "/?access_token=" + valid, "", http.StatusUnauthorized, ""},
		{"missing", http.MethodGet, "/", "", http.StatusUnauthorized, ""},
		{"expired", http.MethodGet, "/", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong key", http.MethodGet, "/", "Bearer " + wrongKey, http.StatusUnauthorized, ""},
		{"no user claim", http.MethodGet, "/", "Bearer " + noUser, http.StatusUnauthorized, ""},
	}
	h := JWTMiddleware(secret)(echoUser())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithUser(req.Context(), "u1", "user")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithUser(req.Context(), "u2", "admin")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2|admin", rec.Body.String())
}
