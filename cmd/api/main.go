package main

import (
	"log"

	"partner-onboarding/internal/bootstrap"
	"partner-onboarding/internal/shared/config"
	"partner-onboarding/internal/shared/server"
	"partner-onboarding/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer telemetry.Sync()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	if app.DB != nil {
		defer app.DB.Close()
	}

	addr := server.Addr(cfg.Port)
	telemetry.Info("api.starting", map[string]any{
		"addr":     addr,
		"env":      cfg.Env,
		"store":    cfg.ObjectStoreType,
		"resolver": cfg.ResolverMode,
		"policy":   cfg.ApprovalPolicy,
	})

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
