package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"partner-onboarding/internal/bootstrap"
	"partner-onboarding/internal/shared/config"
	"partner-onboarding/internal/shared/metrics"
	"partner-onboarding/internal/shared/telemetry"
	"partner-onboarding/internal/workerproc"
)

const (
	defaultVisibilitySeconds  = 300
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
	defaultReceiveBackoff     = time.Second
	maxReceiveBackoff         = 30 * time.Second
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel); err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer telemetry.Sync()

	queueURL := strings.TrimSpace(cfg.OrphanQueueURL)
	if queueURL == "" {
		log.Fatal("ORPHAN_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibilitySeconds := envInt("ORPHAN_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	concurrency := envInt("ORPHAN_WORKER_CONCURRENCY", defaultWorkerConcurrency)
	shutdownTimeout := time.Duration(envInt("ORPHAN_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region(cfg)))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	w := &worker{
		client:   sqs.NewFromConfig(awsCfg),
		queueURL: queueURL,
		proc:     app.Cleaner,
		metrics:  app.Metrics,
	}

	if addr := strings.TrimSpace(os.Getenv("WORKER_METRICS_ADDR")); addr != "" {
		go serveMetrics(addr, app.Metrics)
	}

	telemetry.Info("worker.started", map[string]any{
		"queue":       queueURL,
		"concurrency": concurrency,
		"visibility":  visibilitySeconds,
	})

	done := make(chan struct{})
	go func() {
		w.run(ctx, max(1, concurrency), int32(visibilitySeconds))
		close(done)
	}()

	<-ctx.Done()
	telemetry.Info("worker.shutdown_requested", map[string]any{"timeout": shutdownTimeout.String()})
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

func region(cfg config.Config) string {
	if strings.TrimSpace(cfg.AWSRegion) != "" {
		return cfg.AWSRegion
	}
	return "us-east-1"
}

func serveMetrics(addr string, m *metrics.Metrics) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/metrics", m.Handler())
	if err := r.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		telemetry.Error("worker.metrics_server_failed", map[string]any{"error": err})
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type processor interface {
	HandleMessage(ctx context.Context, body string) (workerproc.Outcome, error)
}

type worker struct {
	client   sqsAPI
	queueURL string
	proc     processor
	metrics  *metrics.Metrics
	// backoff is the first wait after a failed receive; it doubles up to maxReceiveBackoff.
	backoff time.Duration
}

// run long-polls the queue until ctx is cancelled, then waits for in-flight messages.
func (w *worker) run(ctx context.Context, concurrency int, visibility int32) {
	var g errgroup.Group
	g.SetLimit(concurrency)

	failures := 0
	for ctx.Err() == nil {
		resp, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   visibility,
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			failures++
			wait := w.receiveBackoff(failures)
			telemetry.Error("worker.receive_failed", map[string]any{
				"error":    err,
				"failures": failures,
				"retry_in": wait.String(),
			})
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		failures = 0

		for _, msg := range resp.Messages {
			if ctx.Err() != nil {
				break
			}
			w.metrics.IncOrphanJob("received")
			g.Go(func() error {
				// In-flight deletes finish even after shutdown starts.
				w.handleMessage(context.WithoutCancel(ctx), msg)
				return nil
			})
		}
	}

	_ = g.Wait()
}

func (w *worker) receiveBackoff(failures int) time.Duration {
	wait := w.backoff
	if wait <= 0 {
		wait = defaultReceiveBackoff
	}
	for i := 1; i < failures && wait < maxReceiveBackoff; i++ {
		wait *= 2
	}
	return min(wait, maxReceiveBackoff)
}

func (w *worker) handleMessage(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		if e, ok := err.(workerproc.ErrMissingRef); ok {
			fields["request_id"] = e.RequestID
		}
		telemetry.Error("worker.orphan.invalid_message", fields)
		if w.deleteMessage(ctx, msg, "", "") {
			w.metrics.IncOrphanJob("unrecoverable")
		}
		return
	}

	fields := baseFields(msg, decoded.Ref, decoded.RequestID)
	fields["reason"] = decoded.Reason
	telemetry.Info("worker.orphan.received", fields)

	outcome, err := w.proc.HandleMessage(workerproc.WithParsedMessage(ctx, decoded), body)
	if err != nil {
		fields["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.orphan.unrecoverable", fields)
			if w.deleteMessage(ctx, msg, decoded.Ref, decoded.RequestID) {
				w.metrics.IncOrphanJob("unrecoverable")
			}
			return
		}
		// Left on the queue; SQS redelivers after the visibility timeout.
		telemetry.Error("worker.orphan.failed", fields)
		w.metrics.IncOrphanJob("failed")
		return
	}

	if w.deleteMessage(ctx, msg, decoded.Ref, decoded.RequestID) {
		fields["outcome"] = string(outcome)
		telemetry.Info("worker.orphan.completed", fields)
		w.metrics.IncOrphanJob(string(outcome))
	}
}

func (w *worker) deleteMessage(ctx context.Context, msg sqstypes.Message, ref, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, ref, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.orphan.delete_failed", fields)
		return false
	}
	if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, ref, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.orphan.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, ref, requestID string) map[string]any {
	fields := map[string]any{
		"ref":            ref,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
