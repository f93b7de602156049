package verification

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"partner-onboarding/internal/docinspect"
	"partner-onboarding/internal/shared/server/middleware"
	"partner-onboarding/internal/shared/server/respond"
	"partner-onboarding/internal/shared/storage/object"
)

// multipart framing allowance on top of the file itself
const formOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches partner-facing routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/verification-document", h.submit)
	rg.DELETE("/verification-document/:docType", h.remove)
	rg.GET("/verification-status", h.status)
}

// RegisterInternalRoutes attaches reviewer routes. The group must already require a service or admin role.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.PUT("/verification/:userId/:docType/review", h.review)
}

func (h *Handler) submit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, object.MaxObjectBytes+formOverhead)

	if err := c.Request.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds the 5 MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form body is required", nil)
		return
	}

	docType := strings.TrimSpace(c.PostForm("docType"))
	c.Set("docType", docType)
	if _, err := ParseDocumentType(docType); err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, object.MaxObjectBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	if int64(len(data)) > object.MaxObjectBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds the 5 MB limit", nil)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || strings.EqualFold(contentType, "application/octet-stream") {
		contentType = docinspect.Detect(data)
	}

	previous := h.previousStatus(c, userID)
	rec, err := h.Svc.SubmitDocument(c.Request.Context(), SubmitInput{
		UserID:      userID,
		DocType:     docType,
		Data:        data,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	markTransition(c, previous, rec.Status)

	respond.JSON(c, http.StatusOK, toMutationResponse("Document uploaded successfully", rec))
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	docType := c.Param("docType")
	c.Set("docType", docType)

	previous := h.previousStatus(c, userID)
	rec, err := h.Svc.DeleteDocument(c.Request.Context(), userID, docType)
	if err != nil {
		respondError(c, err)
		return
	}
	markTransition(c, previous, rec.Status)

	respond.JSON(c, http.StatusOK, toMutationResponse("Document deleted successfully", rec))
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	rec, err := h.Svc.GetRecord(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, StatusResponse{
		VerificationStatus: rec.Status,
		Eligible:           rec.Status == StatusApproved,
	})
}

func (h *Handler) review(c *gin.Context) {
	userID := c.Param("userId")
	docType := c.Param("docType")
	c.Set("docType", docType)

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	previous := h.previousStatus(c, userID)
	rec, err := h.Svc.ReviewDocument(c.Request.Context(), userID, docType, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	markTransition(c, previous, rec.Status)

	respond.JSON(c, http.StatusOK, toMutationResponse("Review recorded", rec))
}

// previousStatus is only used to annotate the request log.
func (h *Handler) previousStatus(c *gin.Context, userID string) AggregateStatus {
	rec, err := h.Svc.GetRecord(c.Request.Context(), userID)
	if err != nil {
		return ""
	}
	return rec.Status
}

func markTransition(c *gin.Context, from, to AggregateStatus) {
	if from != "" && from != to {
		c.Set("statusTransition", string(from)+"->"+string(to))
	}
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", message(err, ErrValidation), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", message(err, ErrNotFound), nil)
	case errors.Is(err, ErrStorage):
		respond.Error(c, http.StatusInternalServerError, "storage_error", "document storage failed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

// message strips the sentinel prefix from a wrapped error ("not found: no document to delete").
func message(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
