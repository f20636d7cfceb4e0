package handlers

import (
	"net/http"

	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/core/selection"
	"github.com/markdave123-py/Alttexta/internal/services"
)

type SelectionHandler struct {
	sessions *services.SessionService
}

func NewSelectionHandler(sessions *services.SessionService) *SelectionHandler {
	return &SelectionHandler{sessions: sessions}
}

type pointerRequest struct {
	PageIndex int            `json:"page_index"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	PageRect  *geometry.Rect `json:"page_rect,omitempty"`
}

func (p pointerRequest) point() geometry.Point { return geometry.Point{X: p.X, Y: p.Y} }

func writeSnapshot(w http.ResponseWriter, r *http.Request, snap selection.Snapshot, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SelectionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	snap, err := sess.ToggleSelection()
	writeSnapshot(w, r, snap, err)
}

// PointerDown starts a drag. page_rect is the page container in the same
// coordinate space as x and y; when omitted the server's page layout is used.
func (h *SelectionHandler) PointerDown(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := sess.PointerDown(req.PageIndex, req.point(), req.PageRect)
	writeSnapshot(w, r, snap, err)
}

func (h *SelectionHandler) PointerMove(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := sess.PointerMove(req.point())
	writeSnapshot(w, r, snap, err)
}

func (h *SelectionHandler) PointerUp(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := sess.PointerUp(req.point())
	writeSnapshot(w, r, snap, err)
}

func (h *SelectionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	snap, err := sess.CancelSelection()
	writeSnapshot(w, r, snap, err)
}

// Confirm generates metadata for the proposed rectangle and returns the new asset.
func (h *SelectionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	a, err := sess.ConfirmSelection(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
