package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "harmony/internal/errors"
	"harmony/internal/matching"
	"harmony/internal/middleware"
	"harmony/internal/repository"
	"harmony/internal/service/user"
)

// ProfileHandler serves the caller's own profile and music preferences.
type ProfileHandler struct {
	users *user.Service
	prefs *repository.PreferenceRepository
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(users *user.Service, prefs *repository.PreferenceRepository) *ProfileHandler {
	return &ProfileHandler{users: users, prefs: prefs}
}

// Me handles GET /api/users/me.
func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.users.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateMe handles PATCH /api/users/me.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	var in user.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, svcErr.Validation("invalid request body"))
		return
	}

	profile, err := h.users.Update(c.Request.Context(), middleware.CurrentUserID(c), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// preference weights are richer than scoring weights: [1,10] per item.
const (
	minPreferenceWeight = 1.0
	maxPreferenceWeight = 10.0
)

func category(c *gin.Context) (matching.Category, bool) {
	cat := matching.Category(c.Param("category"))
	if !cat.Valid() {
		abortWithError(c, svcErr.Validation("category must be genre, artist or song"))
		return "", false
	}
	return cat, true
}

// ListPreferences handles GET /api/preferences/:category.
func (h *ProfileHandler) ListPreferences(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}

	prefs, err := h.prefs.ListByCategory(c.Request.Context(), middleware.CurrentUserID(c), cat)
	if err != nil {
		abortWithError(c, svcErr.Map(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat, "preferences": prefs})
}

// PutPreference handles PUT /api/preferences/:category/:itemID.
func (h *ProfileHandler) PutPreference(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}
	itemID := pathID(c, "itemID")
	if itemID == 0 {
		abortWithError(c, svcErr.Validation("invalid item id"))
		return
	}

	var in struct {
		Weight float64 `json:"weight"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, svcErr.Validation("invalid request body"))
		return
	}
	if in.Weight < minPreferenceWeight || in.Weight > maxPreferenceWeight {
		abortWithError(c, svcErr.Validation("weight must be between 1 and 10"))
		return
	}

	ctx := c.Request.Context()
	exists, err := h.prefs.ItemExists(ctx, cat, itemID)
	if err != nil {
		abortWithError(c, svcErr.Map(err))
		return
	}
	if !exists {
		abortWithError(c, svcErr.NotFound("unknown catalog item"))
		return
	}

	if err := h.prefs.Upsert(ctx, middleware.CurrentUserID(c), cat, itemID, in.Weight); err != nil {
		abortWithError(c, svcErr.Map(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat, "item_id": itemID, "weight": in.Weight})
}

// DeletePreference handles DELETE /api/preferences/:category/:itemID.
func (h *ProfileHandler) DeletePreference(c *gin.Context) {
	cat, ok := category(c)
	if !ok {
		return
	}

	err := h.prefs.Delete(c.Request.Context(), middleware.CurrentUserID(c), cat, pathID(c, "itemID"))
	if err != nil {
		abortWithError(c, svcErr.Map(err))
		return
	}
	c.Status(http.StatusNoContent)
}
