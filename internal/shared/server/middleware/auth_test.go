package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"partner-onboarding/internal/shared/auth"
)

func testVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier("middleware-test", "dev")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func bearer(t *testing.T, v *auth.Verifier, sub, role string) string {
	t.Helper()
	token, err := v.Sign(auth.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
	}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testVerifier(t)))
	router.OPTIONS("/verification-document", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/verification-document", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(testVerifier(t), "/health"))
	router.GET("/profile", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected public path to pass, got %d", resp.Code)
	}
}

func TestAuthSetsIdentityAndRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := testVerifier(t)
	router := gin.New()
	router.Use(Auth(v))
	router.GET("/internal/thing", RequireRole(auth.RoleAdmin, auth.RoleService), func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/internal/thing", nil)
	req.Header.Set("Authorization", bearer(t, v, "svc-matching", auth.RoleService))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "svc-matching" {
		t.Fatalf("expected 200 svc-matching, got %d %q", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/internal/thing", nil)
	req.Header.Set("Authorization", bearer(t, v, "partner-1", ""))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for partner token, got %d", resp.Code)
	}
}
