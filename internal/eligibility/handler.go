package eligibility

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"partner-onboarding/internal/shared/server/respond"
	"partner-onboarding/internal/verification"
)

type Handler struct {
	Gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{Gate: gate}
}

// RegisterInternalRoutes attaches the delivery-matching lookup.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.GET("/partners/:userId/eligibility", h.eligibility)
}

func (h *Handler) eligibility(c *gin.Context) {
	userID := c.Param("userId")
	eligible, status, err := h.Gate.Check(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "partner not found", nil)
		case errors.Is(err, verification.ErrValidation):
			respond.Error(c, http.StatusBadRequest, "validation_error", "user id is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check eligibility", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"userId":             userID,
		"eligible":           eligible,
		"verificationStatus": status,
	})
}
