// Package chi is the HTTP transport for the hand retrieval API.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
	logpkg "github.com/sidepot-cloud/handex/internal/logger"
	"github.com/sidepot-cloud/handex/internal/repository/handstore"
	extractuc "github.com/sidepot-cloud/handex/internal/usecase/extract"
	healthuc "github.com/sidepot-cloud/handex/internal/usecase/health"
	ingestuc "github.com/sidepot-cloud/handex/internal/usecase/ingest"
	searchuc "github.com/sidepot-cloud/handex/internal/usecase/search"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest             = "bad_request"
	codeValidationFailed       = "validation_failed"
	codeHandNotFound           = "hand_not_found"
	codeExtractionFailed       = "extraction_failed"
	codeEmbeddingQuota         = "embedding_quota_exceeded"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeInternalError          = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services to HTTP handlers.
type Server struct {
	search        *searchuc.Service
	ingest        *ingestuc.Service
	extract       *extractuc.Service
	hands         handstore.Store
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. extract may be nil when no chat
// model is configured; the transcripts endpoint then returns 501.
func NewServer(
	search *searchuc.Service,
	ingest *ingestuc.Service,
	extract *extractuc.Service,
	hands handstore.Store,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		ingest:  ingest,
		extract: extract,
		hands:   hands,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrHandNotFound, http.StatusNotFound, codeHandNotFound),
		sentinelHandler(domain.ErrMalformedHand, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnknownStrategy, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNegativeWeight, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusUnprocessableEntity, codeExtractionFailed),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeEmbeddingQuota),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// RegisterRoutes mounts all API routes on the router.
func (s *Server) RegisterRoutes(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/search", s.SearchHands)
		r.Post("/transcripts", s.ExtractTranscript)
		r.Route("/hands/{id}", func(r chirouter.Router) {
			r.Put("/", s.UpsertHand)
			r.Get("/", s.GetHand)
			r.Delete("/", s.DeleteHand)
		})
	})
}

// searchRequest is the POST /api/v1/search body. use_reranker defaults to
// true; it only takes effect when a reranker is configured.
type searchRequest struct {
	Query        string             `json:"query"`
	Strategy     string             `json:"strategy,omitempty"`
	NResults     int                `json:"n_results,omitempty"`
	UseReranker  *bool              `json:"use_reranker,omitempty"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	IncludeHands bool               `json:"include_hands,omitempty"`
}

type searchResponse struct {
	Results []searchuc.Result     `json:"results"`
	Hands   []searchuc.HandResult `json:"hands,omitempty"`
	Count   int                   `json:"count"`
}

// SearchHands handles POST /api/v1/search.
func (s *Server) SearchHands(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	opts := searchuc.Options{
		NResults:    req.NResults,
		UseReranker: req.UseReranker == nil || *req.UseReranker,
	}
	if req.Strategy != "" {
		strategy, err := chunk.ParseStrategy(req.Strategy)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		opts.Strategy = strategy
	}
	if len(req.Weights) > 0 {
		weights := make(chunk.Weights, len(req.Weights))
		for k, v := range req.Weights {
			weights[chunk.Type(k)] = v
		}
		opts.Weights = weights
	}

	results, err := s.search.Search(r.Context(), req.Query, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := searchResponse{Results: results, Count: len(results)}
	if resp.Results == nil {
		resp.Results = []searchuc.Result{}
	}
	if req.IncludeHands {
		resp.Hands = s.search.Hydrate(r.Context(), results)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpsertHand handles PUT /api/v1/hands/{id}. The path ID wins over any ID
// in the body.
func (s *Server) UpsertHand(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	var rec hand.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	rec.ID = id

	_, getErr := s.hands.GetRecord(r.Context(), id)
	created := errors.Is(getErr, domain.ErrHandNotFound)

	if err := s.ingest.Ingest(r.Context(), rec); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/v1/hands/"+id)
	}
	writeJSON(w, status, rec)
}

// GetHand handles GET /api/v1/hands/{id}.
func (s *Server) GetHand(w http.ResponseWriter, r *http.Request) {
	rec, err := s.hands.GetRecord(r.Context(), chirouter.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteHand handles DELETE /api/v1/hands/{id}.
func (s *Server) DeleteHand(w http.ResponseWriter, r *http.Request) {
	if err := s.hands.Delete(r.Context(), chirouter.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transcriptRequest is the POST /api/v1/transcripts body.
type transcriptRequest struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript"`
}

// ExtractTranscript handles POST /api/v1/transcripts: extract a structured
// record from the transcript and ingest it.
func (s *Server) ExtractTranscript(w http.ResponseWriter, r *http.Request) {
	if s.extract == nil {
		writeError(w, http.StatusNotImplemented, codeBadRequest, "transcript extraction is not configured")
		return
	}

	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "id is required")
		return
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "transcript is required")
		return
	}

	rec, err := s.extract.Extract(r.Context(), req.ID, req.Transcript)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.ingest.Ingest(r.Context(), rec); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/hands/"+req.ID)
	writeJSON(w, http.StatusCreated, rec)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrHandNotFound,
		domain.ErrMalformedHand,
		domain.ErrUnknownStrategy,
		domain.ErrNegativeWeight,
		domain.ErrExtractionFailed,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
