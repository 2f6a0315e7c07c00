package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mickey7hi/audience-arena-backend/internal/hub"
	"github.com/mickey7hi/audience-arena-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.SugaredLogger, originPatterns []string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/state", State(h))
	r.Get("/ws", ws.Handler(h, log, originPatterns))
	return r
}
