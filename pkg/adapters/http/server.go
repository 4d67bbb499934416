// Package http serves read-only diagnostics for conduit: health, the known graph
// definitions as JSON or Mermaid, and Prometheus metrics.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/internal/presentation/graph"
	"github.com/aretw0/conduit/pkg/model"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrNotFound is returned by a Catalog for an unknown definition name.
var ErrNotFound = errors.New("definition not found")

// Catalog resolves graph definitions by name.
type Catalog interface {
	Names() []string
	Definition(name string) (*model.Definition, error)
}

// Server holds the handler dependencies.
type Server struct {
	Catalog  Catalog
	Gatherer prometheus.Gatherer
	Version  string
	Logger   *slog.Logger
}

// NewHandler creates the diagnostics router. A nil gatherer serves the default registry.
func NewHandler(s *Server) http.Handler {
	if s.Gatherer == nil {
		s.Gatherer = prometheus.DefaultGatherer
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.health)
	r.Get("/definitions", s.listDefinitions)
	r.Get("/definitions/{name}", s.getDefinition)
	r.Get("/definitions/{name}/mermaid", s.getMermaid)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrNotFound) {
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(s.Version),
	})
}

func (s *Server) listDefinitions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Catalog.Names())
}

func (s *Server) definition(r *http.Request) (*model.Definition, error) {
	return s.Catalog.Definition(chi.URLParam(r, "name"))
}

func (s *Server) getDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.definition(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

func (s *Server) getMermaid(w http.ResponseWriter, r *http.Request) {
	def, err := s.definition(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(def, nil)))
}
