package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"unwrapped/internal/render"
)

// Handler builds the router with middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(clientIP(s.proxies))
	r.Use(s.requestContext)
	r.Use(middleware.Recoverer)

	if len(s.cors) > 0 {
		c := corslib.New(corslib.Options{
			AllowedOrigins:   s.cors,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
			AllowCredentials: false,
		})
		r.Use(c.Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.With(rateLimit(s.rps, s.burst, s.logger)).Post("/render", s.handleRender)
		r.Post("/progress", s.handleProgress)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(s.token))
			r.Get("/status", s.handleStatus)
			r.Get("/jobs", s.handleJobs)
			r.Get("/jobs/{id}", s.handleJob)
		})
	})

	if s.outputDir != "" {
		videos := http.StripPrefix(render.VideoRoute, http.FileServer(http.Dir(s.outputDir)))
		r.Method(http.MethodGet, render.VideoRoute+"*", videos)
		r.Method(http.MethodHead, render.VideoRoute+"*", videos)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
