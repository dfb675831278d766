package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"text2phenotype.com/admitnote/pipeline"
)

const maxBodyBytes = 4 << 20

type Server struct {
	Pipeline pipeline.Pipeline
}

// Routes wires the REST endpoints. /render runs every configured output;
// the remaining POST endpoints render a single output directly.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/render", s.ProcessData)
	r.Post("/justification", handleJustification)
	r.Post("/revised-hpi", handleRevisedHPI)
	r.Post("/compact-summary", handleCompactSummary)
	return r
}
