// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solecism/podium/internal/adapters/repository"
	"github.com/solecism/podium/internal/domain/types"
)

// ScoreDependencies defines the interface for score submission.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, userID string, value float64) (types.Entry, error)
}

// ScoreHandler handles score submissions.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandlePostScore handles POST /score requests.
//
// Malformed input is rejected before any store or cache is touched: no
// side effects, no broadcast.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", errors.Join(ErrInvalidInput, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", errors.Join(ErrInvalidInput, err))
		return
	}

	entry, err := h.deps.SubmitScore(r.Context(), req.UserID, *req.Value)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
