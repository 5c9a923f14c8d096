package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/rewards-site/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сайта наград.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Middleware)

		r.Get("/", h.Home)

		r.Route("/api", func(r chi.Router) {
			r.Get("/session", h.GetSession)
			r.Post("/session/connect", h.Connect)
			r.Post("/session/register", h.Register)
			r.Put("/session/balance", h.UpdateBalance)

			r.Post("/winners/refresh", h.RefreshWinners)

			r.Get("/alerts", h.GetAlerts)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
