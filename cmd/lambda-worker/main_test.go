package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"partner-onboarding/internal/workerproc"
)

type scriptedProcessor map[string]error

func (p scriptedProcessor) HandleMessage(ctx context.Context, body string) (workerproc.Outcome, error) {
	if err := p[body]; err != nil {
		return "", err
	}
	return workerproc.OutcomeDeleted, nil
}

func TestProcessBatchReportsOnlyRetryableFailures(t *testing.T) {
	proc := scriptedProcessor{
		"retry": workerproc.ErrProcess{Ref: "a/b.png", Err: errors.New("s3 unavailable")},
		"bad":   workerproc.ErrDecode{Err: errors.New("invalid json")},
	}
	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "1", Body: "ok"},
		{MessageId: "2", Body: "retry"},
		{MessageId: "3", Body: "bad"},
	}}

	resp := processBatch(context.Background(), proc, event)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "2" {
		t.Fatalf("unexpected failures %+v", resp.BatchItemFailures)
	}
}
