package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"partner-onboarding/internal/bootstrap"
	"partner-onboarding/internal/shared/config"
	"partner-onboarding/internal/shared/telemetry"
	"partner-onboarding/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel); err != nil {
		log.Printf("logger init: %v", err)
	}
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, app.Cleaner, event), nil
}

type processor interface {
	HandleMessage(ctx context.Context, body string) (workerproc.Outcome, error)
}

// processBatch reports only retryable failures; unrecoverable messages are dropped.
func processBatch(ctx context.Context, proc processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		outcome, err := proc.HandleMessage(ctx, record.Body)
		fields := map[string]any{"sqs_message_id": record.MessageId}
		if err != nil {
			fields["error"] = err.Error()
			if workerproc.Unrecoverable(err) {
				telemetry.Error("lambda_worker.orphan.unrecoverable", fields)
				continue
			}
			telemetry.Error("lambda_worker.orphan.failed", fields)
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			continue
		}
		fields["outcome"] = string(outcome)
		telemetry.Info("lambda_worker.orphan.completed", fields)
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
