// Package api exposes the scraper over HTTP: article reads, manual
// scrape triggers, and scheduler control.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dawnscraper/internal/metrics"
	"dawnscraper/internal/news"
	"dawnscraper/internal/query"
	"dawnscraper/internal/scheduler"
)

// Defaults supplies trigger and scheduler fallbacks from configuration.
type Defaults struct {
	MaxArticles          int
	SchedulerInterval    time.Duration
	SchedulerMaxArticles int
}

// Server wires the HTTP routes to the query service, the pipeline, and
// the scheduler.
type Server struct {
	queries   *query.Service
	runner    scheduler.Runner
	scheduler *scheduler.Scheduler
	defaults  Defaults
	logger    *zap.Logger
	router    chi.Router
}

// New constructs the Server and mounts all routes.
func New(queries *query.Service, runner scheduler.Runner, sched *scheduler.Scheduler, defaults Defaults, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.MaxArticles <= 0 {
		defaults.MaxArticles = 10
	}
	if defaults.SchedulerInterval <= 0 {
		defaults.SchedulerInterval = 30 * time.Minute
	}
	if defaults.SchedulerMaxArticles <= 0 {
		defaults.SchedulerMaxArticles = defaults.MaxArticles
	}

	s := &Server{
		queries:   queries,
		runner:    runner,
		scheduler: sched,
		defaults:  defaults,
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.handleListArticles)
		// Registered before the id route so "search" is never parsed
		// as an article id.
		r.Get("/search", s.handleSearchArticles)
		r.Get("/category/{category}", s.handleListByCategory)
		r.Get("/{article_id}", s.handleGetArticle)
	})

	r.Get("/stats", s.handleStats)
	r.Post("/scrape", s.handleScrape)

	r.Route("/scheduler", func(r chi.Router) {
		r.Post("/start", s.handleSchedulerStart)
		r.Post("/stop", s.handleSchedulerStop)
		r.Get("/status", s.handleSchedulerStatus)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	list, err := s.queries.ListArticles(r.Context(), pageFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "article_id"), 10, 64)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("article_id must be an integer: %w", news.ErrInvalidArgument))
		return
	}
	article, err := s.queries.GetArticle(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleListByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	list, err := s.queries.ListByCategory(r.Context(), category, pageFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	list, err := s.queries.SearchArticles(r.Context(), term, pageFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleScrape runs one pipeline pass synchronously and returns its
// summary. A run with per-URL errors is still a 200; the summary
// carries the failures.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	maxArticles := s.defaults.MaxArticles
	if raw := r.URL.Query().Get("max_articles"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, fmt.Errorf("max_articles must be a positive integer: %w", news.ErrInvalidArgument))
			return
		}
		maxArticles = n
	}

	start := time.Now()
	run := s.runner.Run(r.Context(), maxArticles)
	metrics.ObserveRun("manual", time.Since(start))
	writeJSON(w, http.StatusOK, run)
}

type schedulerStartRequest struct {
	IntervalSeconds int `json:"interval_seconds"`
	MaxArticles     int `json:"max_articles"`
}

func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	req := schedulerStartRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, fmt.Errorf("malformed request body: %w", news.ErrInvalidArgument))
			return
		}
	}

	interval := s.defaults.SchedulerInterval
	if req.IntervalSeconds > 0 {
		interval = time.Duration(req.IntervalSeconds) * time.Second
	}
	maxArticles := s.defaults.SchedulerMaxArticles
	if req.MaxArticles > 0 {
		maxArticles = req.MaxArticles
	}

	status := s.scheduler.Start(interval, maxArticles)
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSchedulerStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Stop())
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

// pageFromQuery reads pagination params; out-of-range values are
// clamped downstream rather than rejected.
func pageFromQuery(r *http.Request) news.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return news.Page{Number: page, Size: size}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain sentinels onto HTTP status codes. Anything
// unrecognized is a 500 with a generic body; the detail goes to the log
// only.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, news.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, news.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "article not found"})
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
