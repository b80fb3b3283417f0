package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/teamchallenge/challenge-backend/internal/hub"
	"github.com/teamchallenge/challenge-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/events/{id}", GetEvent(h))
	r.Get("/events/{id}/qr", EventQR(h))
	r.Get("/ws", ws.Handler(h, log))

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(r)
}
