package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Alttexta/internal/services"
)

// AdminHandler serves user management. Routes are mounted behind RequireAdmin.
type AdminHandler struct {
	users *services.UserService
	usage *services.UsageService
}

func NewAdminHandler(users *services.UserService, usage *services.UsageService) *AdminHandler {
	return &AdminHandler{users: users, usage: usage}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.NewUser
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) SetTokenCap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenCap int64 `json:"token_cap"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.users.SetTokenCap(r.Context(), chi.URLParam(r, "userID"), req.TokenCap); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.users.ResetUsage(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UsageLogs lists logs of every user, or of ?user_id= only.
func (h *AdminHandler) UsageLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.usage.Logs(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
