package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/services"
)

const keepAliveInterval = 15 * time.Second

type EventsHandler struct {
	sessions *services.SessionService
}

func NewEventsHandler(sessions *services.SessionService) *EventsHandler {
	return &EventsHandler{sessions: sessions}
}

func writeSSE(w http.ResponseWriter, id uint64, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if id > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// Stream sends a snapshot event with the full view, then every session
// event until the client goes away or the session closes.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	log := zerolog.Ctx(r.Context())
	if err := writeSSE(w, 0, "snapshot", sess.View()); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				_ = writeSSE(w, 0, "closed", map[string]string{"session_id": sess.ID()})
				flusher.Flush()
				return
			}
			if err := writeSSE(w, ev.Seq, string(ev.Type), ev); err != nil {
				log.Debug().Err(err).Msg("event stream write failed")
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
