package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	middleware "github.com/markdave123-py/Alttexta/internal/api/middlewares"
	"github.com/markdave123-py/Alttexta/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(t core.ErrorType) int {
	switch t {
	case core.ErrorTypeInputValidation:
		return http.StatusBadRequest
	case core.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case core.ErrorTypeBudgetExceeded:
		return http.StatusPaymentRequired
	case core.ErrorTypeNotFound:
		return http.StatusNotFound
	case core.ErrorTypeConflict:
		return http.StatusConflict
	case core.ErrorTypeRender:
		return http.StatusUnprocessableEntity
	case core.ErrorTypeService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to status codes. Untyped errors are logged
// and reported without their details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	t := core.TypeOf(err)
	status := statusFor(t)
	msg := core.UserMessage(err)
	if t == "" {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		msg = "internal error"
	} else if status >= 500 {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("upstream failure")
	}
	writeJSON(w, status, map[string]string{"error": msg, "type": string(t)})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.InputValidationError("invalid request body", err)
	}
	return nil
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, r, core.UnauthorizedError("not signed in", nil))
	}
	return id, ok
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, core.InputValidationError(name+" must be an integer", err)
	}
	return n, nil
}
