package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"partner-onboarding/internal/eligibility"
	"partner-onboarding/internal/queue"
	"partner-onboarding/internal/services/health"
	"partner-onboarding/internal/shared/auth"
	"partner-onboarding/internal/shared/config"
	"partner-onboarding/internal/shared/metrics"
	"partner-onboarding/internal/shared/server"
	"partner-onboarding/internal/shared/storage/db"
	"partner-onboarding/internal/shared/storage/object"
	localstore "partner-onboarding/internal/shared/storage/object/local"
	s3store "partner-onboarding/internal/shared/storage/object/s3"
	"partner-onboarding/internal/shared/telemetry"
	"partner-onboarding/internal/users"
	"partner-onboarding/internal/verification"
	"partner-onboarding/internal/workerproc"
)

const defaultRegion = "us-east-1"

// App holds shared dependencies for the API server and the workers.
type App struct {
	Config              config.Config
	Router              *gin.Engine
	DB                  *sql.DB
	Store               object.BlobStore
	Queue               queue.Client
	Metrics             *metrics.Metrics
	Verifier            *auth.Verifier
	VerificationRepo    verification.Repo
	UsersRepo           users.Repo
	VerificationService *verification.Service
	UsersService        *users.Service
	Gate                *eligibility.Gate
	Cleaner             *workerproc.Cleaner
}

// Options lets callers replace infrastructure, mainly for tests.
type Options struct {
	Store object.BlobStore
	Queue queue.Client
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, Options{})
}

// BuildWith is Build with injected infrastructure.
func BuildWith(cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.AWSRegion) == "" {
		cfg.AWSRegion = defaultRegion
	}
	ctx := context.Background()

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		store, err = buildStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	queueClient := opts.Queue
	if queueClient == nil {
		queueClient, err = buildQueue(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Metrics:  metrics.New(),
		Verifier: verifier,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	var files object.BlobStore
	if cfg.ObjectStoreType == "local" {
		files = app.Store
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:              app.Config,
		Verifier:            app.Verifier,
		Metrics:             app.Metrics,
		Health:              health.NewService(app.DB),
		Files:               files,
		VerificationHandler: verification.NewHandler(app.VerificationService),
		EligibilityHandler:  eligibility.NewHandler(app.Gate),
		UserHandler:         users.NewHandler(app.UsersService),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.BlobStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Options{
			Region:        cfg.AWSRegion,
			Bucket:        cfg.S3Bucket,
			Prefix:        cfg.S3Prefix,
			KMSKeyID:      cfg.SSEKMSKeyID,
			PublicBaseURL: s3PublicBase(cfg),
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	}
}

// s3PublicBase only applies PUBLIC_BASE_URL to S3 when it points somewhere other than the API itself.
func s3PublicBase(cfg config.Config) string {
	if strings.Contains(cfg.PublicBaseURL, "localhost") {
		return ""
	}
	return cfg.PublicBaseURL
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.OrphanQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.OrphanQueueURL)
}

func buildServices(app *App) error {
	var verificationRepo verification.Repo
	var userRepo users.Repo

	if app.DB != nil {
		verificationRepo = &verification.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		verificationRepo = verification.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	verificationSvc := &verification.Service{
		Store:   app.Store,
		Repo:    verificationRepo,
		Policy:  verification.PolicyFor(app.Config.ApprovalPolicy),
		Resolve: verification.ResolverFor(app.Config.ResolverMode),
		Metrics: app.Metrics,
	}
	if app.Queue != nil {
		verificationSvc.Orphans = queue.NewReporter(app.Queue)
	}

	app.VerificationRepo = verificationRepo
	app.UsersRepo = userRepo
	app.VerificationService = verificationSvc
	app.UsersService = users.NewService(userRepo, verificationSvc)
	app.Gate = eligibility.NewGate(verificationSvc)
	app.Cleaner = &workerproc.Cleaner{Store: app.Store, Records: verificationSvc}

	if app.VerificationService == nil || app.UsersService == nil || app.Gate == nil {
		return errors.New("failed to initialize services")
	}
	return nil
}
