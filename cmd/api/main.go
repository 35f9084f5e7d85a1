package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mentorlane/insights/config"
	"github.com/mentorlane/insights/pkg/api/handlers"
	custommw "github.com/mentorlane/insights/pkg/api/middleware"
	"github.com/mentorlane/insights/pkg/cache"
	"github.com/mentorlane/insights/pkg/email"
	"github.com/mentorlane/insights/pkg/enrichment"
	"github.com/mentorlane/insights/pkg/export"
	"github.com/mentorlane/insights/pkg/jobs"
	"github.com/mentorlane/insights/pkg/logger"
	"github.com/mentorlane/insights/pkg/metrics"
	"github.com/mentorlane/insights/pkg/pipeline"
	"github.com/mentorlane/insights/pkg/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	appLog := logger.New(cfg.LogLevel)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Snapshot store
	st, err := store.Open(cfg.SnapshotDriver, cfg.SnapshotDSN)
	if err != nil {
		log.Fatalf("❌ Failed to connect to snapshot store: %v", err)
	}
	defer st.Close()

	// Redis is only an enrichment cache here, so a missing instance
	// degrades the run instead of blocking startup.
	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, enrichment cache disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Pipeline wiring
	writer, err := export.NewWriter(cfg.OutputDir)
	if err != nil {
		log.Fatalf("❌ Failed to prepare output directory: %v", err)
	}

	enricher := enrichment.New(
		enrichment.NewOpenAIClient(enrichment.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}),
		redisClient,
		enrichment.Options{
			MaxRows:   cfg.MaxLLMRows,
			RateEvery: llmInterval(cfg),
		},
		appLog,
	)

	opts := []pipeline.Option{
		pipeline.WithWriter(writer),
		pipeline.WithEnricher(enricher),
		pipeline.WithMetrics(prometheusMetrics),
	}

	registry := &pipeline.Registry{}
	opts = append(opts, pipeline.WithRegistry(registry))

	if cfg.SendGridAPIKey != "" && len(cfg.ReportEmailTo) > 0 {
		opts = append(opts, pipeline.WithMailer(
			email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.SendGridAPIKey, appLog),
		))
	}

	if cfg.S3Bucket != "" {
		uploader, err := export.NewS3Uploader(context.Background(), export.S3Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          "insights",
		})
		if err != nil {
			log.Printf("⚠️  S3 uploader unavailable: %v", err)
		} else {
			opts = append(opts, pipeline.WithUploader(uploader))
		}
	}

	runner := pipeline.NewRunner(cfg, st, appLog, opts...)

	// First run in the background so the API comes up immediately;
	// until it finishes the table endpoints answer 503.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := runner.Run(ctx); err != nil {
			appLog.Error("initial pipeline run failed", "error", err)
			sentry.CaptureException(err)
		}
	}()

	cronManager := jobs.NewCronManager(runner, appLog)
	if err := cronManager.SetupJobs(cfg.PipelineSchedule); err != nil {
		log.Fatalf("❌ Failed to schedule pipeline: %v", err)
	}
	cronManager.Start()
	log.Printf("✅ Pipeline scheduled (%s)", cfg.PipelineSchedule)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORS())
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))

	tablesHandler := handlers.NewTablesHandler(registry)

	// Public endpoints
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "Mentorlane Insights API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})
	e.GET("/health", tablesHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes (JWT protected)
	v1 := e.Group("/api/v1")
	v1.Use(custommw.JWTMiddleware(cfg.JWTSecret))
	v1.GET("/tables", tablesHandler.ListTables)
	v1.GET("/tables/:name", tablesHandler.GetTable)
	v1.GET("/runs/latest", tablesHandler.LatestRun)

	// Start server
	go func() {
		addr := cfg.APIHost + ":" + cfg.APIPort
		log.Printf("🚀 Starting API server on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("🛑 Shutting down...")

	cronManager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Shutdown error: %v", err)
	}
	log.Printf("👋 Server stopped")
}

// llmInterval spreads each enrichment batch over its sleep window.
func llmInterval(cfg *config.Config) time.Duration {
	if cfg.LLMBatchSize <= 0 || cfg.LLMBatchSleepSeconds <= 0 {
		return time.Second
	}
	return time.Duration(cfg.LLMBatchSleepSeconds) * time.Second / time.Duration(cfg.LLMBatchSize)
}
