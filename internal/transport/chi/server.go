// Package chi is the HTTP API layer: hand-written handlers on a chi router,
// JSON in and out, domain sentinel errors mapped to status codes.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/domain"
	healthuc "github.com/tsurugi-io/kensaku/internal/usecase/health"
	ingestuc "github.com/tsurugi-io/kensaku/internal/usecase/ingest"
	retrievaluc "github.com/tsurugi-io/kensaku/internal/usecase/retrieval"
)

const maxBatchSize = 100

// ErrorCode is the machine-readable error discriminator in error responses.
type ErrorCode string

const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeDocumentNotFound       ErrorCode = "document_not_found"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeQuotaExceeded          ErrorCode = "quota_exceeded"
	CodeRetrievalFailed        ErrorCode = "retrieval_failed"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body for all error statuses.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the retrieval and ingest services over HTTP.
type Server struct {
	retrieval     *retrievaluc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		ingest:    ingest,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, CodeQuotaExceeded),
		sentinelHandler(domain.ErrRetrievalFailed, http.StatusBadGateway, CodeRetrievalFailed),
	}
	return s
}

// Routes mounts all API handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/search", s.Search)
	r.Post("/api/v1/query/analyze", s.AnalyzeQuery)
	r.Put("/api/v1/documents/{id}", s.UpsertDocument)
	r.Post("/api/v1/documents/batch", s.BatchUpsert)
	r.Delete("/api/v1/documents/{id}", s.DeleteDocument)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be non-negative")
		return
	}
	if (req.SparseWeight != nil && *req.SparseWeight < 0) ||
		(req.DenseWeight != nil && *req.DenseWeight < 0) {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "weights must be non-negative")
		return
	}

	results, err := s.retrieval.Retrieve(r.Context(), req.Query, retrievaluc.Options{
		Limit:        req.Limit,
		SparseWeight: req.SparseWeight,
		DenseWeight:  req.DenseWeight,
		Debug:        req.Debug,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := SearchResponse{
		Query: req.Query,
		Items: make([]SearchResultItem, len(results)),
		Total: len(results),
	}
	for i := range results {
		resp.Items[i] = resultToItem(&results[i])
	}
	if req.Debug {
		info := queryInfoFromResult(s.retrieval.Process(req.Query))
		resp.QueryInfo = &info
	}

	writeJSON(w, http.StatusOK, resp)
}

// AnalyzeQuery handles POST /api/v1/query/analyze. It runs only the query
// processing step, for debugging the keyword and synonym pipeline.
func (s *Server) AnalyzeQuery(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	writeJSON(w, http.StatusOK, queryInfoFromResult(s.retrieval.Process(req.Query)))
}

// UpsertDocument handles PUT /api/v1/documents/{id}.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpsertDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "title is required")
		return
	}

	doc := documentFromUpsert(id, req)
	if err := s.ingest.Index(r.Context(), doc); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpsertDocumentResponse{ID: id, Title: req.Title})
}

// BatchUpsert handles POST /api/v1/documents/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	var req BatchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 || len(req.Documents) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"documents count must be between 1 and "+strconv.Itoa(maxBatchSize))
		return
	}

	docs := make([]domain.Document, 0, len(req.Documents))
	for _, item := range req.Documents {
		if item.Title == "" {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				"document "+strconv.Itoa(item.ID)+" has no title")
			return
		}
		docs = append(docs, documentFromUpsert(item.ID, item))
	}

	if err := s.ingest.IndexBatch(r.Context(), docs); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BatchUpsertResponse{Indexed: len(docs)})
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.ingest.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "document id must be an integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmptyQuery,
		domain.ErrEmbeddingProviderError,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrRetrievalFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
