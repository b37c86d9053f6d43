// Package server exposes the scan pipeline and library cache over a
// small JSON HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/lookup"
	"github.com/depscout/depscout/pkg/scan"
	"github.com/depscout/depscout/pkg/store"
)

// Server bundles the pipeline entry points behind HTTP handlers.
type Server struct {
	scanner *scan.Scanner
	lookup  *lookup.Service
	store   store.Store
	logger  *log.Logger
}

// New creates a server. A nil logger falls back to the default logger.
func New(scanner *scan.Scanner, svc *lookup.Service, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{scanner: scanner, lookup: svc, store: st, logger: logger}
}

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scans", s.handleCreateScan)
		r.Get("/scans", s.handleListScans)
		r.Get("/scans/search", s.handleSearchScans)
		r.Get("/scans/{id}", s.handleGetScan)

		r.Get("/libraries", s.handleListLibraries)
		r.Get("/libraries/search", s.handleSearchLibraries)
		r.Get("/libraries/{id}", s.handleGetLibrary)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RepositoryURL string `json:"repository_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid request body"))
		return
	}

	report, err := s.scanner.ScanRepository(r.Context(), body.RepositoryURL)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, report)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListScans(r.Context(), queryLimit(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if records == nil {
		records = []store.ScanRecord{}
	}
	s.respond(w, http.StatusOK, records)
}

func (s *Server) handleSearchScans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "missing query parameter q"))
		return
	}
	records, err := s.store.SearchScans(r.Context(), q, queryLimit(r))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if records == nil {
		records = []store.ScanRecord{}
	}
	s.respond(w, http.StatusOK, records)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetScan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, rec)
}

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if records == nil {
		records = []store.LibraryRecord{}
	}
	s.respond(w, http.StatusOK, records)
}

// handleSearchLibraries runs the two-tier search: store first, then
// the discovery protocol, with write-back.
func (s *Server) handleSearchLibraries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "missing query parameter q"))
		return
	}
	result, err := s.lookup.Search(r.Context(), q)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if result.Results == nil {
		result.Results = []store.LibraryRecord{}
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, rec)
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response failed", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= 500 {
		s.logger.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  string(apperrors.GetCode(err)),
		"error": apperrors.UserMessage(err),
	})
}

func statusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidPackage,
		apperrors.ErrCodeInvalidManifest, apperrors.ErrCodeInvalidRepoURL:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound, apperrors.ErrCodePackageNotFound,
		apperrors.ErrCodeScanNotFound, apperrors.ErrCodeLibraryNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeCloneFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
