// Package server exposes the enrichment pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"provenance-enricher/internal/models"
	"provenance-enricher/internal/scoring"
	"provenance-enricher/pkg/logger"
)

const (
	maxBatch      = 500
	maxBodyBytes  = 4 << 20
	entityTimeout = 2 * time.Minute
)

// Enricher produces the record of one entity.
type Enricher interface {
	Enrich(ctx context.Context, ent models.Entity) models.Record
}

type Deps struct {
	Enricher Enricher
	Engine   *scoring.Engine
	Gatherer prometheus.Gatherer
	Log      *logger.Logger
	// BatchConcurrency bounds the entities of one batch processed at once.
	BatchConcurrency int
}

type entityReq struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Address    string            `json:"address"`
	Website    string            `json:"website"`
	Types      []string          `json:"types"`
	Attributes map[string]string `json:"attributes"`
}

func (e entityReq) entity(row int) models.Entity {
	return models.Entity{
		Row:        row,
		ID:         e.ID,
		Name:       e.Name,
		Address:    e.Address,
		Website:    e.Website,
		Types:      e.Types,
		Attributes: e.Attributes,
	}
}

type batchReq struct {
	Entities []entityReq `json:"entities"`
}

type scoreReq struct {
	Text string `json:"text"`
}

type handlers struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.BatchConcurrency < 1 {
		d.BatchConcurrency = 1
	}
	h := &handlers{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequest(d.Log))

	r.Get("/health", h.health)
	r.Post("/enrich", h.enrich)
	r.Post("/enrich/batch", h.enrichBatch)
	r.Post("/score", h.score)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /enrich  {"id": "...", "website": "https://..."}
func (h *handlers) enrich(w http.ResponseWriter, r *http.Request) {
	var req entityReq
	if err := decode(w, r, &req); err != nil || (req.ID == "" && req.Website == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), entityTimeout)
	defer cancel()
	writeJSON(w, http.StatusOK, h.Enricher.Enrich(ctx, req.entity(0)))
}

// POST /enrich/batch  {"entities": [{...}, ...]}
func (h *handlers) enrichBatch(w http.ResponseWriter, r *http.Request) {
	var req batchReq
	if err := decode(w, r, &req); err != nil || len(req.Entities) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if len(req.Entities) > maxBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "too many entities"})
		return
	}

	results := make([]models.Record, len(req.Entities))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(h.BatchConcurrency)
	for i, e := range req.Entities {
		i, e := i, e
		g.Go(func() error {
			ectx, cancel := context.WithTimeout(ctx, entityTimeout)
			defer cancel()
			results[i] = h.Enricher.Enrich(ectx, e.entity(i))
			return nil
		})
	}
	_ = g.Wait()
	writeJSON(w, http.StatusOK, results)
}

// POST /score  {"text": "..."}
func (h *handlers) score(w http.ResponseWriter, r *http.Request) {
	var req scoreReq
	if err := decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, h.Engine.Score(req.Text))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func logRequest(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			l.Infof("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
