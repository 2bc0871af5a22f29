package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bryanwahyu/ingredient-copilot/internal/application"
	appanalysis "github.com/bryanwahyu/ingredient-copilot/internal/application/analysis"
	appchat "github.com/bryanwahyu/ingredient-copilot/internal/application/chat"
	appusers "github.com/bryanwahyu/ingredient-copilot/internal/application/users"
	"github.com/bryanwahyu/ingredient-copilot/internal/config"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	domanalysis "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
	aiopenai "github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/openai"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/response"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/ingredient-copilot/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/ingredient-copilot/internal/infra/db/postgres"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/ingredient-copilot/internal/infra/storage"
	"github.com/bryanwahyu/ingredient-copilot/internal/middleware"
)

// repositories is the storage collaborator picked by database.driver.
type repositories struct {
	analyses      domanalysis.Repository
	conversations conversation.Repository
	users         users.Repository
	health        middleware.HealthChecker
	close         func() error
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage init error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer func() { _ = repos.close() }()

	checks := map[string]middleware.HealthChecker{"database": repos.health}

	// init minio (optional)
	var images domanalysis.ImageStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:   cfg.Minio.Endpoint,
			Region:     cfg.Minio.Region,
			Bucket:     cfg.Minio.BucketName,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			UseSSL:     cfg.Minio.UseSSL,
			PresignTTL: cfg.Minio.PresignTTL,
		})
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		images = store
		checks["storage"] = store
	}

	// AI + OCR collaborators
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("openai.apiKey is empty, AI calls will fail")
	}
	aiClient := aiopenai.NewClient(aiopenai.Options{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	}, logger.Named("openai"))
	visionClient := aiClient
	if cfg.OpenAI.VisionModel != cfg.OpenAI.Model {
		visionClient = aiopenai.NewClient(aiopenai.Options{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.VisionModel,
			Timeout: cfg.OpenAI.Timeout,
		}, logger.Named("openai-vision"))
	}
	parser := response.NewParser(cfg.Analysis.RepairJSON, logger.Named("parser"))
	clock := application.SystemClock{}

	// init services
	behavior := appanalysis.NewBehaviorRecorder(repos.users, logger.Named("behavior"))
	intent := appanalysis.NewIntentInferencer(aiClient, parser, clock,
		ai.GenerateOptions{Temperature: cfg.OpenAI.Temperature.Intent, MaxTokens: 512}, logger.Named("intent"))
	analysisSvc := &appanalysis.Service{
		Repo:     repos.analyses,
		Images:   images,
		OCR:      aiopenai.NewVisionOCR(visionClient, parser),
		AI:       aiClient,
		Parser:   parser,
		Context:  appanalysis.NewUserContextAssembler(repos.users, repos.analyses, logger.Named("usercontext")),
		Intent:   intent,
		Behavior: behavior,
		Clock:    clock,
		Metrics:  appanalysis.DefaultMetrics(),
		Config: appanalysis.Config{
			MinTextLength: cfg.Analysis.MinTextLength,
			MaxImageBytes: cfg.Analysis.MaxImageBytes,
			Risk: appanalysis.RiskThresholds{
				Low:    cfg.Analysis.RiskThresholds.Low,
				Medium: cfg.Analysis.RiskThresholds.Medium,
			},
			Generate: ai.GenerateOptions{Temperature: cfg.OpenAI.Temperature.Analysis, MaxTokens: cfg.OpenAI.MaxTokens},
		},
		Logger: logger.Named("analysis"),
	}

	tracker := appchat.NewTracker(aiClient, parser, clock,
		ai.GenerateOptions{Temperature: cfg.OpenAI.Temperature.Chat, MaxTokens: 1024}, logger.Named("chat"))
	tracker.Window = cfg.Analysis.HistoryWindow
	chatSvc := &appchat.Service{
		Conversations: repos.conversations,
		Analyses:      repos.analyses,
		Tracker:       tracker,
		Clock:         clock,
		Logger:        logger.Named("chat"),
	}
	usersSvc := &appusers.Service{Repo: repos.users, Logger: logger.Named("users")}

	// init router
	handler := httpserver.NewRouter(httpserver.Deps{
		Analysis:       analysisSvc,
		Chat:           chatSvc,
		Users:          usersSvc,
		APIKeys:        cfg.Auth.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		Checks: checks,
		Logger: logger.Named("http"),
	})
	if len(cfg.Auth.APIKeys) == 0 {
		logger.Warn("auth.apiKeys is empty, trusting X-User-ID header")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	// tunggu update behavior yang masih antri
	behavior.Close()
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		logger.Warn("using in-memory storage, data is lost on restart")
		return &repositories{
			analyses:      store.Analyses,
			conversations: store.Conversations,
			users:         store.Users,
			health:        store,
			close:         func() error { return nil },
		}, nil

	case config.DriverPostgres:
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := pgp.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return sqlRepositories(db,
			pgp.NewAnalysisRepository(db),
			pgp.NewConversationRepository(db),
			pgp.NewUserRepository(db)), nil

	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := mysqlp.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return sqlRepositories(db,
			mysqlp.NewAnalysisRepository(db),
			mysqlp.NewConversationRepository(db),
			mysqlp.NewUserRepository(db)), nil
	}
}

func sqlRepositories(db *sql.DB, a domanalysis.Repository, c conversation.Repository, u users.Repository) *repositories {
	return &repositories{
		analyses:      a,
		conversations: c,
		users:         u,
		health:        &middleware.DatabaseHealthChecker{DB: db},
		close:         db.Close,
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
