package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-onboarding/internal/shared/auth"
	"partner-onboarding/internal/shared/server/middleware"
)

func meRouter(t *testing.T) (*gin.Engine, *auth.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, err := auth.NewVerifier("me-test", "dev")
	require.NoError(t, err)
	router := gin.New()
	router.Use(middleware.Auth(v))
	registerMeRoutes(&router.RouterGroup)
	return router, v
}

func TestMeEchoesTokenIdentity(t *testing.T) {
	router, v := meRouter(t)
	token, err := v.Sign(auth.Claims{
		Email:            "rider@example.com",
		Name:             "Ada Rider",
		Role:             auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "partner-7"},
	}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"userId": "partner-7",
		"email":  "rider@example.com",
		"name":   "Ada Rider",
		"role":   auth.RoleAdmin,
	}, body)
}

func TestMeOmitsMissingClaims(t *testing.T) {
	router, v := meRouter(t)
	token, err := v.Sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "partner-8"}}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"userId": "partner-8"}, body)
}

func TestMeWithoutIdentityIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerMeRoutes(&router.RouterGroup)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
