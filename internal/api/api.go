// Package api exposes the review engine over HTTP: start a review for a
// pull request, inspect sessions and their per-file outcomes, and read
// aggregate statistics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/varunch/reviewbot/internal/github"
	"github.com/varunch/reviewbot/internal/models"
	"github.com/varunch/reviewbot/internal/store"
)

// Runner executes a full review pass for one pull request.
type Runner interface {
	ReviewPR(ctx context.Context, repository string, prNumber int) (*models.SessionSummary, error)
}

// Server provides the REST API handlers.
type Server struct {
	store  store.Store
	runner Runner
}

// NewServer creates a new API server.
func NewServer(s store.Store, runner Runner) *Server {
	return &Server{store: s, runner: runner}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reviews", s.createReview)
	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)

	mux.HandleFunc("GET /api/v1/stats", s.stats)
	mux.HandleFunc("GET /api/v1/health", s.health)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type createReviewRequest struct {
	PRURL      string `json:"pr_url"`
	Repository string `json:"repository"`
	PRNumber   int    `json:"pr_number"`
	Async      bool   `json:"async"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	repository, prNumber := req.Repository, req.PRNumber
	if req.PRURL != "" {
		var err error
		repository, prNumber, err = github.ParsePRURL(req.PRURL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if repository == "" || prNumber <= 0 {
		writeError(w, http.StatusBadRequest, "pr_url or repository and pr_number required")
		return
	}

	if req.Async {
		// Detached from the request context so the review outlives it.
		go func() {
			if _, err := s.runner.ReviewPR(context.Background(), repository, prNumber); err != nil {
				slog.Error("background review failed",
					"repository", repository, "pr", prNumber, "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"repository": repository,
			"pr_number":  prNumber,
			"status":     "accepted",
		})
		return
	}

	summary, err := s.runner.ReviewPR(r.Context(), repository, prNumber)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*models.ReviewSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type reviewDetail struct {
	*models.ReviewSession
	Outcomes []*models.FileOutcome `json:"outcomes"`
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	outcomes, err := s.store.ListOutcomes(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if outcomes == nil {
		outcomes = []*models.FileOutcome{}
	}

	writeJSON(w, http.StatusOK, reviewDetail{ReviewSession: sess, Outcomes: outcomes})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
