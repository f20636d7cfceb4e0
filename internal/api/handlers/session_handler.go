package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/core/renderer"
	"github.com/markdave123-py/Alttexta/internal/core/session"
	"github.com/markdave123-py/Alttexta/internal/services"
)

// multipart bodies carry form fields besides the file.
const formOverhead = 1 << 20

type SessionHandler struct {
	sessions  *services.SessionService
	documents *services.DocumentService
	maxUpload int64
}

func NewSessionHandler(sessions *services.SessionService, documents *services.DocumentService, maxUpload int64) *SessionHandler {
	return &SessionHandler{sessions: sessions, documents: documents, maxUpload: maxUpload}
}

func lookupSession(w http.ResponseWriter, r *http.Request, svc *services.SessionService) (*session.Session, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	sess, err := svc.Get(userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

// readSource accepts multipart (file, url or document_id field) or JSON
// {"url", "document_id", "viewport_width"}.
func (h *SessionHandler) readSource(w http.ResponseWriter, r *http.Request) (services.SourceInput, float64, error) {
	var in services.SourceInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var body struct {
			URL           string  `json:"url"`
			DocumentID    string  `json:"document_id"`
			ViewportWidth float64 `json:"viewport_width"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return in, 0, err
		}
		in.URL = body.URL
		in.DocumentID = body.DocumentID
		return in, body.ViewportWidth, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return in, 0, core.InputValidationError(fmt.Sprintf("file exceeds the %d MB limit", h.maxUpload/(1024*1024)), nil)
		}
		return in, 0, core.InputValidationError("invalid multipart form", err)
	}

	var viewport float64
	if v := r.FormValue("viewport_width"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return in, 0, core.InputValidationError("viewport_width must be a number", err)
		}
		viewport = f
	}
	in.URL = r.FormValue("url")
	in.DocumentID = r.FormValue("document_id")

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, viewport, nil
	case err != nil:
		return in, 0, core.InputValidationError("invalid file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return in, 0, core.InputValidationError("could not read upload", err)
	}
	in.FileName = header.Filename
	in.ContentType = header.Header.Get("Content-Type")
	in.Size = header.Size
	in.Data = data
	return in, viewport, nil
}

// Create starts a session and queues extraction. When the budget is spent
// the session still exists and is returned alongside the 402.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	in, viewport, err := h.readSource(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.sessions.Create(r.Context(), userID, in, viewport)
	if err != nil {
		if sess != nil {
			writeJSON(w, statusFor(core.TypeOf(err)), map[string]any{
				"error":   core.UserMessage(err),
				"type":    core.TypeOf(err),
				"session": sess.View(),
			})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

// Load replaces the document of an existing session.
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	in, viewport, err := h.readSource(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.sessions.Load(r.Context(), userID, chi.URLParam(r, "sessionID"), in, viewport)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.List(userID))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (h *SessionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sess, err := h.sessions.Retry(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.View())
}

func (h *SessionHandler) CancelExtraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.sessions.CancelExtraction(userID, chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Delete(userID, chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type viewportRequest struct {
	ScrollTop float64 `json:"scroll_top"`
	Height    float64 `json:"height"`
}

// Viewport reports the visible window; pages near it start rendering.
func (h *SessionHandler) Viewport(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req viewportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	observed, err := sess.ViewportChanged(geometry.Viewport{ScrollTop: req.ScrollTop, Height: req.Height})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if observed == nil {
		observed = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"observed": observed})
}

func (h *SessionHandler) Resize(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	var req struct {
		ViewportWidth float64 `json:"viewport_width"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pages, err := sess.Resize(req.ViewportWidth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// PageImage serves a rendered page by 1-based page number. Pages still
// rendering answer 202 with their state; failed pages answer 422.
func (h *SessionHandler) PageImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	page, err := intParam(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	surface, err := sess.PageImage(page - 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch surface.State {
	case renderer.PageRendered:
		w.Header().Set("Content-Type", surface.Image.MIMEType)
		w.Header().Set("Cache-Control", "private, max-age=300")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(surface.Image.Data)
	case renderer.PageFailed:
		writeJSON(w, http.StatusUnprocessableEntity, surface)
	default:
		writeJSON(w, http.StatusAccepted, surface)
	}
}

// ExportCSV downloads the collection; ?archive=true also stores it in object storage.
func (h *SessionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	archive, _ := strconv.ParseBool(r.URL.Query().Get("archive"))
	out, err := h.sessions.ExportCSV(r.Context(), userID, chi.URLParam(r, "sessionID"), archive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out.ArchiveKey != "" {
		w.Header().Set("X-Archive-Key", out.ArchiveKey)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

func (h *SessionHandler) Notices(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	notices := sess.Notices()
	if notices == nil {
		notices = []session.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

// DismissNotice removes {noticeID}, or every notice when the route has none.
func (h *SessionHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	if !sess.DismissNotice(chi.URLParam(r, "noticeID")) {
		writeError(w, r, core.NotFoundError("notice not found", nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Documents lists the caller's previously submitted sources.
func (h *SessionHandler) Documents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	docs, err := h.documents.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// DeleteDocument removes one of the caller's sources and its archived copy.
func (h *SessionHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.documents.Delete(r.Context(), userID, chi.URLParam(r, "documentID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
