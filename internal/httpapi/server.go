// Package httpapi exposes the sidecar's inbound JSON-over-HTTP surface:
// tokenize, query tokenize, document ingestion, result enhancement, and
// health.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thai-tokenizer/sidecar/internal/batch"
	"github.com/thai-tokenizer/sidecar/internal/document"
	"github.com/thai-tokenizer/sidecar/internal/enhance"
	"github.com/thai-tokenizer/sidecar/internal/metrics"
	"github.com/thai-tokenizer/sidecar/internal/query"
	"github.com/thai-tokenizer/sidecar/internal/searchengine"
	"github.com/thai-tokenizer/sidecar/internal/segment"
	"github.com/thai-tokenizer/sidecar/internal/settings"
)

// Server bundles everything the HTTP handlers need: the pipeline
// components built from config plus an outbound search-engine client.
// Follows the Go 1.22+ ServeMux method+pattern routing style.
type Server struct {
	engines      *segment.Engines
	batch        *batch.Engine
	queryProc    *query.Processor
	enhancer     *enhance.Enhancer
	searchEngine *searchengine.Client
	counters     *metrics.Counters
	mux          *http.ServeMux
}

// NewServer wires the handlers onto a fresh ServeMux.
func NewServer(engines *segment.Engines, batchEngine *batch.Engine, queryProc *query.Processor, enhancer *enhance.Enhancer, se *searchengine.Client) *Server {
	s := &Server{
		engines:      engines,
		batch:        batchEngine,
		queryProc:    queryProc,
		enhancer:     enhancer,
		searchEngine: se,
		counters:     &metrics.Counters{},
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/tokenize", s.handleTokenize)
	s.mux.HandleFunc("POST /api/v1/tokenize/query", s.handleTokenizeQuery)
	s.mux.HandleFunc("POST /api/v1/documents", s.handleDocuments)
	s.mux.HandleFunc("POST /api/v1/search/enhance", s.handleSearchEnhance)
	s.mux.HandleFunc("GET /api/v1/settings", s.handleSettingsShow)
	s.mux.HandleFunc("POST /api/v1/settings/apply", s.handleSettingsApply)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)
}

// ServeHTTP lets Server be dropped straight into http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type tokenizeRequest struct {
	Text               string `json:"text"`
	Engine             string `json:"engine,omitempty"`
	CompoundProcessing bool   `json:"compound_processing,omitempty"`
}

type tokenizeResponse struct {
	Tokens           []string `json:"tokens"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var result *segment.SegmentationResult
	var err error
	if req.CompoundProcessing {
		result, err = s.engines.Segmenter.SegmentCompound(r.Context(), req.Text, segment.Options{}, s.engines.ByName)
	} else {
		result, err = s.engines.Segmenter.Segment(r.Context(), req.Text, segment.Options{})
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "tokenize_failed", err.Error())
		return
	}
	if result.FallbackUsed {
		s.counters.IncSegmenterFallback()
	}

	surfaces := make([]string, 0, len(result.Tokens))
	for _, t := range result.Tokens {
		surfaces = append(surfaces, t.Surface)
	}
	writeJSON(w, http.StatusOK, tokenizeResponse{Tokens: surfaces, ProcessingTimeMs: result.ElapsedMs})
}

type tokenizeQueryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleTokenizeQuery(w http.ResponseWriter, r *http.Request) {
	var req tokenizeQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.queryProc.Process(r.Context(), req.Query, query.Options{ExpandVariants: true, AllowPartialMatch: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query_tokenize_failed", err.Error())
		return
	}
	s.counters.RecordQueryCache(result.CacheHit)
	writeJSON(w, http.StatusOK, result)
}

type documentsRequest struct {
	Index            string           `json:"index"`
	Documents        []map[string]any `json:"documents"`
	PreserveOriginal bool             `json:"preserve_original,omitempty"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	var req documentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "documents must not be empty")
		return
	}

	inputs := make([]document.Input, 0, len(req.Documents))
	for _, d := range req.Documents {
		id, _ := d["id"].(string)
		inputs = append(inputs, document.Input{ID: id, Fields: d})
	}

	result := s.batch.Run(r.Context(), inputs, batch.Options{
		DocumentOptions: document.Options{HandleCompounds: true},
	})
	s.counters.IncBatchesRun()
	s.counters.AddDocumentsProcessed(result.Completed)
	writeJSON(w, http.StatusOK, result)
}

type searchEnhanceRequest struct {
	Query   string        `json:"query"`
	Results []enhance.Hit `json:"results"`
}

func (s *Server) handleSearchEnhance(w http.ResponseWriter, r *http.Request) {
	var req searchEnhanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	qr, err := s.queryProc.Process(r.Context(), req.Query, query.Options{ExpandVariants: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query_tokenize_failed", err.Error())
		return
	}

	enhanced := s.enhancer.EnhanceAll(r.Context(), req.Results, qr.Tokens, true)
	writeJSON(w, http.StatusOK, map[string]any{"results": enhanced})
}

func (s *Server) handleSettingsShow(w http.ResponseWriter, r *http.Request) {
	built := settings.NewBuilder().Build()
	writeJSON(w, http.StatusOK, built)
}

type settingsApplyResponse struct {
	TaskUID int `json:"task_uid"`
}

func (s *Server) handleSettingsApply(w http.ResponseWriter, r *http.Request) {
	if s.searchEngine == nil {
		writeError(w, http.StatusServiceUnavailable, "search_engine_unavailable", "no search engine client configured")
		return
	}

	built := settings.NewBuilder().Build()
	if errs := settings.Validate(built); len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Error())
		}
		writeError(w, http.StatusBadRequest, "settings_validation_failed", strings.Join(messages, "; "))
		return
	}

	taskUID, err := s.searchEngine.ReplaceSettings(r.Context(), built)
	if err != nil {
		writeError(w, http.StatusBadGateway, "settings_apply_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settingsApplyResponse{TaskUID: taskUID})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.counters.WriteText(w); err != nil {
		slog.Error("httpapi_metrics_write_failed", slog.String("error", err.Error()))
	}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := map[string]string{}
	overall := "healthy"

	if s.searchEngine != nil {
		if _, err := s.searchEngine.Health(ctx); err != nil {
			deps["search_engine"] = "unhealthy"
			overall = "unhealthy"
		} else {
			deps["search_engine"] = "healthy"
		}
	} else {
		deps["search_engine"] = "unknown"
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: overall, Dependencies: deps})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("httpapi_encode_failed", slog.String("error", err.Error()))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
