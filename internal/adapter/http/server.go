package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ependal/vidgate/internal/adapter/http/middleware"
	"github.com/ependal/vidgate/internal/service"
)

type Server struct {
	mux      *http.ServeMux
	handlers *Handlers
	auth     middleware.TokenValidator
	verifier middleware.URLVerifier
}

func NewServer(handlers *Handlers, auth middleware.TokenValidator, verifier middleware.URLVerifier) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		handlers: handlers,
		auth:     auth,
		verifier: verifier,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	bearer := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.Bearer(s.auth, next)
	}
	signed := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.Signed(s.verifier, next)
	}

	h := s.handlers

	s.mux.HandleFunc("POST /api/videos", bearer(h.Upload()))
	s.mux.HandleFunc("GET /api/videos", bearer(h.List()))
	s.mux.HandleFunc("GET /api/videos/{id}", bearer(h.Get()))
	s.mux.HandleFunc("PATCH /api/videos/{id}", bearer(h.Patch()))
	s.mux.HandleFunc("DELETE /api/videos/{id}", bearer(h.Delete()))

	s.mux.HandleFunc("GET /api/videos/status/{id}", bearer(h.Status()))
	s.mux.HandleFunc("GET /api/videos/duration/{id}", bearer(h.Duration()))

	s.mux.HandleFunc("PATCH /api/videos/thumb/custom/{id}", bearer(h.ReplaceThumb()))
	s.mux.HandleFunc("GET /api/videos/thumb/static/{id}", bearer(h.ServeThumb(service.ThumbStatic)))
	s.mux.HandleFunc("GET /api/videos/thumb/animated/{id}", bearer(h.ServeThumb(service.ThumbAnimated)))
	s.mux.HandleFunc("GET /api/videos/thumb/signed/{id}", signed(h.ServeThumb(service.ThumbStatic)))

	s.mux.HandleFunc("GET /api/videos/stream/{id}", signed(h.Stream()))
	s.mux.HandleFunc("GET /api/videos/stream/{id}/{file}", signed(h.Stream()))

	s.mux.HandleFunc("GET /api/videos/download/{id}", bearer(h.Download()))

	s.mux.HandleFunc("POST /api/videos/{id}/signed-url", bearer(h.IssueSignedURL()))
	s.mux.HandleFunc("POST /api/videos/{id}/refresh-token", bearer(h.RefreshSignedURL()))

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	middleware.SecurityHeaders(s.mux).ServeHTTP(w, r)
}
