package main

// Watch a partner's verification status until approved or timeout:
//   go run ./cmd/statuswatch -token "$PARTNER_TOKEN"

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"partner-onboarding/internal/shared/config"
	"partner-onboarding/internal/shared/telemetry"
	"partner-onboarding/internal/statuspoll"
	"partner-onboarding/internal/verification"
)

func main() {
	cfg := config.Load()

	apiURL := flag.String("api", cfg.PublicBaseURL, "API base URL")
	token := flag.String("token", os.Getenv("PARTNER_TOKEN"), "Partner bearer token")
	interval := flag.Duration("interval", statuspoll.DefaultInterval, "Polling interval")
	timeout := flag.Duration("timeout", statuspoll.DefaultTimeout, "Give up after this long")
	flag.Parse()

	if strings.TrimSpace(*token) == "" {
		exitErr("token is required (flag -token or PARTNER_TOKEN)")
	}
	if err := telemetry.Init(cfg.LogLevel); err != nil {
		exitErr(fmt.Sprintf("logger init: %v", err))
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := statuspoll.NewHTTPFetcher(*apiURL, *token)
	task := statuspoll.Task{
		Interval: *interval,
		Timeout:  *timeout,
		Fetch:    fetcher.Fetch,
		OnStatus: func(s verification.AggregateStatus) {
			fmt.Println(s)
		},
	}
	poll, err := task.Start(ctx)
	if err != nil {
		exitErr(err.Error())
	}
	telemetry.Info("statuswatch.started", map[string]any{
		"api":      *apiURL,
		"interval": interval.String(),
		"deadline": poll.Deadline,
	})

	res := poll.Wait()
	fields := map[string]any{
		"outcome":     string(res.Outcome),
		"last_status": string(res.LastStatus),
		"attempts":    res.Attempts,
		"errors":      res.Errors,
		"elapsed_ms":  res.Elapsed.Milliseconds(),
	}
	if res.LastErr != nil {
		fields["last_error"] = res.LastErr.Error()
	}
	telemetry.Info("statuswatch.finished", fields)

	if res.Outcome != statuspoll.OutcomeApproved {
		os.Exit(1)
	}
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
