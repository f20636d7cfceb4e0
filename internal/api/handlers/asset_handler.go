package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/assets"
	"github.com/markdave123-py/Alttexta/internal/core/session"
	"github.com/markdave123-py/Alttexta/internal/services"
)

// AssetHandler edits the asset collection of a session. Edits addressing an
// asset that no longer exists succeed without effect.
type AssetHandler struct {
	sessions *services.SessionService
}

func NewAssetHandler(sessions *services.SessionService) *AssetHandler {
	return &AssetHandler{sessions: sessions}
}

func writeAsset(w http.ResponseWriter, sess *session.Session, id string) {
	if a, ok := sess.Asset(id); ok {
		writeJSON(w, http.StatusOK, a)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req struct {
		Field assets.Field `json:"field"`
		Value any          `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "assetID")
	if err := sess.UpdateAsset(id, req.Field, req.Value); err != nil {
		writeError(w, r, err)
		return
	}
	writeAsset(w, sess, id)
}

func (h *AssetHandler) AddKeyword(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req struct {
		Keyword string `json:"keyword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "assetID")
	sess.AddKeyword(id, req.Keyword)
	writeAsset(w, sess, id)
}

func (h *AssetHandler) RemoveKeyword(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	index, err := intParam(r, "index")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "assetID")
	sess.RemoveKeyword(id, index)
	writeAsset(w, sess, id)
}

func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	sess.DeleteAsset(chi.URLParam(r, "assetID"))
	w.WriteHeader(http.StatusNoContent)
}

// Regenerate starts a background alt text regeneration; the result arrives as an assets event.
func (h *AssetHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	id := chi.URLParam(r, "assetID")
	started, err := sess.Regenerate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !started {
		writeError(w, r, core.NotFoundError("asset not found", nil))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"asset_id": id, "status": "regenerating"})
}

// Select highlights an asset and returns where the viewer should scroll.
func (h *AssetHandler) Select(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	target := sess.SelectAsset(chi.URLParam(r, "assetID"))
	if target == nil {
		writeError(w, r, core.NotFoundError("asset not found", nil))
		return
	}
	writeJSON(w, http.StatusOK, target)
}
