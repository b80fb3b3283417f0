package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/teamchallenge/challenge-backend/internal/hub"
	"github.com/teamchallenge/challenge-backend/internal/room"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetEvent lets the join page probe whether an event ID exists before
// opening a socket. A shell room does not count: it has no event yet.
func GetEvent(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rm := lookupRoom(h, id)
		if rm == nil {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}

		reply := make(chan room.View, 1)
		rm.Inbox() <- room.GetView{Reply: reply}
		var view room.View
		select {
		case view = <-reply:
		case <-rm.Done():
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		if !view.HasEvent {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			EventID string `json:"eventId"`
			Name    string `json:"name"`
			Teams   int    `json:"teams"`
		}{
			EventID: view.Snapshot.Event.ID,
			Name:    view.Snapshot.Event.Name,
			Teams:   len(view.Snapshot.Teams),
		})
	}
}

// EventQR renders a PNG QR code pointing at the event's join page, for the
// admin view to put on the beamer.
func EventQR(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if lookupRoom(h, id) == nil {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		// We are at /events/{id}/qr; the join page lives at /join/{id}.
		path := strings.TrimSuffix(r.URL.Path, "/qr")
		path = strings.Replace(path, "/events/", "/join/", 1)
		url := scheme + "://" + r.Host + path

		png, err := qrcode.Encode(url, qrcode.Medium, 320)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func lookupRoom(h *hub.Hub, id string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.GetRoom{ID: id, Reply: reply}
	return <-reply
}
