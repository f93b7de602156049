package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	})
	h := NewHandler(svc)
	h.RegisterRoutes(&router.RouterGroup)
	h.RegisterInternalRoutes(router.Group("/internal"))
	return router
}

func TestProfileIncludesVerificationSnapshot(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), User{ID: "u1", Email: "rider@example.com", FullName: "Ada Rider"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newTestRouter(svc, "u1").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		ID                    string `json:"id"`
		Email                 string `json:"email"`
		FullName              string `json:"fullName"`
		VerificationStatus    string `json:"verificationStatus"`
		VerificationDocuments map[string]struct {
			Path       *string `json:"path"`
			UploadedAt *string `json:"uploadedAt"`
			Status     string  `json:"status"`
		} `json:"verificationDocuments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.ID)
	assert.Equal(t, "Ada Rider", body.FullName)
	assert.Equal(t, "not_submitted", body.VerificationStatus)
	require.Len(t, body.VerificationDocuments, 4)
	for docType, slot := range body.VerificationDocuments {
		assert.Nil(t, slot.Path, docType)
		assert.Nil(t, slot.UploadedAt, docType)
		assert.Equal(t, "not_submitted", slot.Status, docType)
	}
}

func TestProfileUnknownUser(t *testing.T) {
	svc, _ := newTestService()
	rec := httptest.NewRecorder()
	newTestRouter(svc, "ghost").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterRoute(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc, "svc-identity")

	req := httptest.NewRequest(http.MethodPost, "/internal/users", strings.NewReader(`{"id":"u9","email":"new@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/internal/users", strings.NewReader(`{"id":"u9"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterRouteConflict(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc, "svc-identity")

	for i, body := range []string{`{"id":"u1","email":"dup@example.com"}`, `{"id":"u2","email":"dup@example.com"}`} {
		req := httptest.NewRequest(http.MethodPost, "/internal/users", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if i == 0 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusConflict, rec.Code)
	}
}
