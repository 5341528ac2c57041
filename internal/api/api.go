// Package api exposes the import engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/favalepink/traincrm/internal/audit"
	"github.com/favalepink/traincrm/internal/importer"
	"github.com/favalepink/traincrm/internal/lead"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Handler serves the import API.
type Handler struct {
	importer *importer.Importer
	recorder audit.Recorder
}

// NewRouter builds the chi router with CORS and rate limiting applied.
func NewRouter(imp *importer.Importer, recorder audit.Recorder, opts Options) http.Handler {
	h := &Handler{importer: imp, recorder: recorder}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)))
	}

	r.Get("/health", h.health)
	r.Post("/api/leads/import", h.importLeads)
	r.Get("/api/imports", h.listImports)

	return r
}

// rateLimit rejects requests above the configured rate with 429. One shared
// limiter is enough here; the import endpoint is operator-facing, not public.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// importRequest is the batch import payload.
type importRequest struct {
	ActorID string           `json:"actor_id"`
	Leads   []lead.RawRecord `json:"leads"`
}

// importLeads runs a batch import. Validation and per-record write failures
// come back inside the result; only a dedup-baseline fetch failure maps to an
// error status, with no partial counts.
func (h *Handler) importLeads(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Leads) == 0 {
		writeError(w, http.StatusBadRequest, "leads list is required")
		return
	}

	result, err := h.importer.Run(r.Context(), req.ActorID, req.Leads)
	if err != nil {
		if errors.Is(err, importer.ErrEmptyImport) {
			writeError(w, http.StatusBadRequest, "leads list is required")
			return
		}
		zap.L().Error("import request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not read existing leads; import aborted")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// listImports returns recent batch import audit entries.
func (h *Handler) listImports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 200")
			return
		}
		limit = n
	}

	events, err := h.recorder.ListRecent(r.Context(), audit.EventLeadBatchImport, limit)
	if err != nil {
		zap.L().Error("list imports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list imports")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": events})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
