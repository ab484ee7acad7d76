package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "harmony/internal/errors"
	"harmony/internal/matching"
	"harmony/internal/middleware"
	"harmony/internal/service/match"
)

// MatchHandler serves candidate discovery and the match lifecycle.
type MatchHandler struct {
	matches *match.Service
}

// NewMatchHandler creates a match handler over the match service.
func NewMatchHandler(matches *match.Service) *MatchHandler {
	return &MatchHandler{matches: matches}
}

// Candidates handles GET /api/candidates.
func (h *MatchHandler) Candidates(c *gin.Context) {
	candidates, err := h.matches.Candidates(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// Accept handles POST /api/matches/accept.
func (h *MatchHandler) Accept(c *gin.Context) {
	var in struct {
		UserID uint64 `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.UserID == 0 {
		abortWithError(c, svcErr.Validation("user_id is required"))
		return
	}

	m, created, err := h.matches.Accept(c.Request.Context(), middleware.CurrentUserID(c), in.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"match_id":      m.ID,
		"matched":       true,
		"created":       created,
		"matched_at":    m.CreatedAt,
		"compatibility": m.CombinedScore,
	})
}

// Reject handles POST /api/matches/reject.
func (h *MatchHandler) Reject(c *gin.Context) {
	var in struct {
		UserID uint64 `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.UserID == 0 {
		abortWithError(c, svcErr.Validation("user_id is required"))
		return
	}

	if err := h.matches.Reject(c.Request.Context(), middleware.CurrentUserID(c), in.UserID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /api/matches.
func (h *MatchHandler) List(c *gin.Context) {
	summaries, err := h.matches.ListMatches(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": summaries})
}

// Count handles GET /api/matches/count.
func (h *MatchHandler) Count(c *gin.Context) {
	count, err := h.matches.CountMatches(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetWeights handles GET /api/settings/match-weights.
func (h *MatchHandler) GetWeights(c *gin.Context) {
	weights, err := h.matches.ScoringWeights(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, weights)
}

// PutWeights handles PUT /api/settings/match-weights.
func (h *MatchHandler) PutWeights(c *gin.Context) {
	var in matching.Weights
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, svcErr.Validation("invalid request body"))
		return
	}

	if err := h.matches.SetScoringWeights(c.Request.Context(), middleware.CurrentUserID(c), in); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, in)
}
