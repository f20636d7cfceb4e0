package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	middleware "github.com/markdave123-py/Alttexta/internal/api/middlewares"
	"github.com/markdave123-py/Alttexta/internal/core"
)

func TestWriteError_Status(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.InputValidationError("bad", nil), http.StatusBadRequest},
		{core.UnauthorizedError("who", nil), http.StatusUnauthorized},
		{core.BudgetExceededError("spent", nil), http.StatusPaymentRequired},
		{core.NotFoundError("gone", nil), http.StatusNotFound},
		{core.ConflictError("busy", nil), http.StatusConflict},
		{core.RenderError("broken page", nil), http.StatusUnprocessableEntity},
		{core.ServiceError("upstream", nil), http.StatusBadGateway},
		{fmt.Errorf("wrapped: %w", core.NotFoundError("gone", nil)), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteError_HidesUntypedDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("dial tcp 10.0.0.3:5432: refused"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal error", body["error"])
	assert.Empty(t, body["type"])
}

func TestRequireUser(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := requireUser(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "u1", "user"))
	id, ok := requireUser(httptest.NewRecorder(), req)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}
