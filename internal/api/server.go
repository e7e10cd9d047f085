package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okontny/kindling/internal/models"
	"github.com/okontny/kindling/internal/review"
	"github.com/okontny/kindling/internal/store"
)

// Server provides the HTTP API for kindling.
type Server struct {
	service *Service
	addr    string
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string, logger *slog.Logger) *Server {
	return &Server{
		service: service,
		addr:    addr,
		logger:  logger,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Idea endpoints
	mux.HandleFunc("/ideas", s.handleIdeas)
	mux.HandleFunc("/ideas/", s.handleIdeaByID)

	// Review endpoints
	mux.HandleFunc("/review", s.handleReview)
	mux.HandleFunc("/review/", s.handleReviewByID)

	// Pipeline endpoints
	mux.HandleFunc("/process", s.handleProcess)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/logs", s.handleLogs)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.routes(),
		ReadTimeout: 10 * time.Second,
		// No write timeout: POST /process blocks for whole batch runs,
		// which legitimately take minutes with a local model.
	}

	s.logger.Info("http api listening", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleIdeas handles POST /ideas and GET /ideas
func (s *Server) handleIdeas(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createIdea(w, r)
	case http.MethodGet:
		s.listIdeas(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleIdeaByID handles GET and DELETE on /ideas/{id}
func (s *Server) handleIdeaByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ideas/")
	parts := strings.Split(path, "/")

	if parts[0] == "" || len(parts) > 1 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	ideaID := parts[0]

	switch r.Method {
	case http.MethodGet:
		s.getIdea(w, r, ideaID)
	case http.MethodDelete:
		s.deleteIdea(w, r, ideaID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleReview handles GET /review
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.listReview(w, r)
}

// handleReviewByID handles /review/{id}, /review/{id}/approve and
// /review/{id}/reject
func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/review/")
	parts := strings.Split(path, "/")

	if parts[0] == "" {
		http.Error(w, "artifact id required", http.StatusBadRequest)
		return
	}

	artifactID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getArtifact(w, r, artifactID)
	case action == "approve" && r.Method == http.MethodPost:
		s.approveArtifact(w, r, artifactID)
	case action == "reject" && r.Method == http.MethodPost:
		s.rejectArtifact(w, r, artifactID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// --- Idea Handlers ---

type createIdeaRequest struct {
	Text        string `json:"text"`
	ContextRefs string `json:"context_refs"`
}

func (s *Server) createIdea(w http.ResponseWriter, r *http.Request) {
	var req createIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	idea, err := s.service.AddIdea(r.Context(), req.Text, req.ContextRefs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrEmptyIdea) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(idea)
}

func (s *Server) listIdeas(w http.ResponseWriter, r *http.Request) {
	var status models.IdeaStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseIdeaStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = parsed
	}

	ideas, err := s.service.ListIdeas(r.Context(), status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if ideas == nil {
		ideas = []models.Idea{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ideas)
}

func (s *Server) getIdea(w http.ResponseWriter, r *http.Request, ideaID string) {
	idea, err := s.service.GetIdea(r.Context(), ideaID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if idea == nil {
		http.Error(w, "idea not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(idea)
}

func (s *Server) deleteIdea(w http.ResponseWriter, r *http.Request, ideaID string) {
	if err := s.service.DeleteIdea(r.Context(), ideaID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrIdeaNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Review Handlers ---

func (s *Server) listReview(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.service.ListReview(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if artifacts == nil {
		artifacts = []models.Artifact{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifacts)
}

func (s *Server) getArtifact(w http.ResponseWriter, r *http.Request, artifactID string) {
	artifact, err := s.service.GetArtifact(r.Context(), artifactID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if artifact == nil {
		http.Error(w, "artifact not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifact)
}

func (s *Server) approveArtifact(w http.ResponseWriter, r *http.Request, artifactID string) {
	if err := s.service.Approve(r.Context(), artifactID); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, review.ErrArtifactNotFound):
			status = http.StatusNotFound
		case errors.Is(err, review.ErrPublishFailed):
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"approved"}`))
}

type rejectRequest struct {
	CorrectionText string `json:"correction_text"`
	CorrectionRefs string `json:"correction_refs"`
}

func (s *Server) rejectArtifact(w http.ResponseWriter, r *http.Request, artifactID string) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	idea, err := s.service.Reject(r.Context(), artifactID, req.CorrectionText, req.CorrectionRefs)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, review.ErrArtifactNotFound):
			status = http.StatusNotFound
		case errors.Is(err, review.ErrIdeaDangling):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(idea)
}

// --- Pipeline Handlers ---

type processRequest struct {
	Rounds          int `json:"rounds"`
	BatchSize       int `json:"batch_size"`
	CooldownSeconds int `json:"cooldown_seconds"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// An empty body means "run with configured defaults".
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	summary, err := s.service.RunBatch(r.Context(), RunOverrides{
		Rounds:    req.Rounds,
		BatchSize: req.BatchSize,
		Cooldown:  time.Duration(req.CooldownSeconds) * time.Second,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrRunInFlight) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := s.service.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.service.Logs(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []models.LogEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := s.service.Health(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !resp.OK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}
