package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"partner-onboarding/internal/shared/auth"
	"partner-onboarding/internal/shared/server/middleware"
	"partner-onboarding/internal/shared/server/respond"
	"partner-onboarding/internal/shared/storage/object"
)

// registerFileRoutes serves objects from the local blob store. Partners may only read
// their own files; service and admin tokens may read any.
func registerFileRoutes(rg *gin.RouterGroup, store object.BlobStore) {
	rg.GET("/files/*ref", func(c *gin.Context) {
		ref, err := object.CleanRef(strings.TrimPrefix(c.Param("ref"), "/"))
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file path", nil)
			return
		}
		if !canRead(c, ref) {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}

		rc, err := store.Open(c.Request.Context(), ref)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to read file", nil)
			return
		}
		defer rc.Close()

		contentType := mime.TypeByExtension(path.Ext(ref))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Type", contentType)
		c.Header("Cache-Control", "private, max-age=300")
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, rc)
	})
}

func canRead(c *gin.Context, ref string) bool {
	switch middleware.UserRoleFromContext(c) {
	case auth.RoleAdmin, auth.RoleService:
		return true
	}
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		return false
	}
	return strings.HasPrefix(ref, object.HashUserKey(userID)+"/")
}
