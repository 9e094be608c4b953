// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solecism/podium/internal/domain/types"
	"github.com/solecism/podium/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitScore records a submission and returns the stored score with
	// its write-path rank.
	SubmitScore(ctx context.Context, userID string, value float64) (types.Entry, error)

	// Leaderboard returns a top-n read and the provenance ("cache" or
	// "store") it was answered from.
	Leaderboard(ctx context.Context, n int) (string, []types.Entry, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	scoreHandler       *ScoreHandler
	leaderboardHandler *LeaderboardHandler
	healthHandler      *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, defaultLimit, maxLimit int) *Server {
	return &Server{
		scoreHandler:       NewScoreHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, defaultLimit, maxLimit),
		healthHandler:      NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(ctx context.Context, router *mux.Router) {
	router.HandleFunc("/score", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score")).Methods(http.MethodPost)
	router.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")).Methods(http.MethodGet)
	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// scoreRequest mirrors the submission body for POST /score. Value is a
// pointer so a missing field is distinguishable from zero.
type scoreRequest struct {
	UserID string   `json:"userId"`
	Value  *float64 `json:"value"`
}

func (r scoreRequest) validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return errors.New("missing userId")
	case r.Value == nil:
		return errors.New("value must be a number")
	}
	return nil
}

// leaderboardResponse is the read shape of GET /leaderboard.
type leaderboardResponse struct {
	Source      string  `json:"source"`
	Leaderboard []Entry `json:"leaderboard"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
