package httpapi

import (
	"net/http"

	"github.com/estatemarket/auction-service/internal/adapter/httpapi/middleware"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the public auction API. Reads are open; writes require a
// valid token, and settings additionally require the admin role.
func NewRouter(h *Handler, ws *WSHandler, jwtSecret string, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/auctions", func(r chi.Router) {
		r.Get("/{listingId}", h.HandleGetAuction)
		r.Get("/{listingId}/bids", h.HandleBidHistory)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtSecret))
			r.Post("/", h.HandleCreateAuction)
			r.Post("/{listingId}/bids", h.HandleSubmitBid)
			r.Delete("/{listingId}", h.HandleCloseAuction)
		})
	})

	r.Route("/api/admin/auction-settings", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret))
		r.Use(middleware.RequireAdmin)
		r.Get("/", h.HandleGetSettings)
		r.Put("/", h.HandleUpdateSettings)
	})

	r.Get("/ws/auctions", ws.ServeHTTP)

	return r
}
