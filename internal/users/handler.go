package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"partner-onboarding/internal/shared/server/middleware"
	"partner-onboarding/internal/shared/server/respond"
	"partner-onboarding/internal/verification"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.profile)
}

// RegisterInternalRoutes attaches the account-creation hook called by the identity service.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.POST("/users", h.register)
}

type registerRequest struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

func (h *Handler) profile(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	p, err := h.Svc.Profile(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	p, err := h.Svc.Register(c.Request.Context(), User{ID: req.ID, Email: req.Email, FullName: req.FullName})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, verification.ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, verification.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
	}
}

type profileResponse struct {
	ID                    string                                                  `json:"id"`
	Email                 string                                                  `json:"email"`
	FullName              string                                                  `json:"fullName"`
	VerificationStatus    verification.AggregateStatus                            `json:"verificationStatus"`
	VerificationDocuments map[verification.DocumentType]verification.SlotResponse `json:"verificationDocuments"`
}

func toProfileResponse(p Profile) profileResponse {
	return profileResponse{
		ID:                    p.User.ID,
		Email:                 p.User.Email,
		FullName:              p.User.FullName,
		VerificationStatus:    p.Record.Status,
		VerificationDocuments: verification.DocumentsResponse(p.Record),
	}
}
