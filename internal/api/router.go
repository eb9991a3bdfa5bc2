package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (a *API) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(a.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.Health)
	r.Get("/metrics", a.Metrics)
	r.Get("/ws", a.hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", a.Status)
		r.Get("/session", a.Session)
		r.Get("/burden/history", a.History)
		r.Post("/reset", a.Reset)
	})
	return r
}
