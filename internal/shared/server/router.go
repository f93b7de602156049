package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"partner-onboarding/internal/eligibility"
	"partner-onboarding/internal/services/health"
	"partner-onboarding/internal/shared/auth"
	"partner-onboarding/internal/shared/config"
	"partner-onboarding/internal/shared/metrics"
	"partner-onboarding/internal/shared/server/middleware"
	"partner-onboarding/internal/shared/server/respond"
	"partner-onboarding/internal/shared/storage/object"
	"partner-onboarding/internal/users"
	"partner-onboarding/internal/verification"
)

// RouterDeps holds the handlers and shared services the router mounts.
type RouterDeps struct {
	Config              config.Config
	Verifier            middleware.TokenVerifier
	Metrics             *metrics.Metrics
	Health              *health.Service
	Files               object.BlobStore // nil unless the local store is active
	VerificationHandler *verification.Handler
	EligibilityHandler  *eligibility.Handler
	UserHandler         *users.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier, "/health", "/metrics"),
	)

	r.GET("/health", func(c *gin.Context) {
		payload, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})
	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics.Handler())
	}

	api := &r.RouterGroup
	registerMeRoutes(api)
	if deps.Files != nil {
		registerFileRoutes(api, deps.Files)
	}
	if deps.VerificationHandler != nil {
		deps.VerificationHandler.RegisterRoutes(api)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}

	internal := r.Group("/internal", middleware.RequireRole(auth.RoleAdmin, auth.RoleService))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterInternalRoutes(internal)
	}
	if deps.EligibilityHandler != nil {
		deps.EligibilityHandler.RegisterInternalRoutes(internal)
	}
	if deps.VerificationHandler != nil {
		deps.VerificationHandler.RegisterInternalRoutes(internal)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
