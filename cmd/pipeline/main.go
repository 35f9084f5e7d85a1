package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mentorlane/insights/config"
	"github.com/mentorlane/insights/pkg/cache"
	"github.com/mentorlane/insights/pkg/email"
	"github.com/mentorlane/insights/pkg/enrichment"
	"github.com/mentorlane/insights/pkg/export"
	"github.com/mentorlane/insights/pkg/logger"
	"github.com/mentorlane/insights/pkg/pipeline"
	"github.com/mentorlane/insights/pkg/store"
)

// One-shot pipeline run: load the snapshot, build every table, write
// the artifacts and exit. The API binary runs the same pipeline on a
// schedule; this one exists for cron-less environments and backfills.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	appLog := logger.New(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			AttachStacktrace: true,
		}); err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	st, err := store.Open(cfg.SnapshotDriver, cfg.SnapshotDSN)
	if err != nil {
		log.Fatalf("❌ Failed to connect to snapshot store: %v", err)
	}
	defer st.Close()

	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL)
		if err != nil {
			appLog.Warn("redis unavailable, enrichment cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

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
	}

	if cfg.SendGridAPIKey != "" && len(cfg.ReportEmailTo) > 0 {
		opts = append(opts, pipeline.WithMailer(
			email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.SendGridAPIKey, appLog),
		))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if cfg.S3Bucket != "" {
		uploader, err := export.NewS3Uploader(ctx, export.S3Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          "insights",
		})
		if err != nil {
			appLog.Warn("s3 uploader unavailable", "error", err)
		} else {
			opts = append(opts, pipeline.WithUploader(uploader))
		}
	}

	runner := pipeline.NewRunner(cfg, st, appLog, opts...)
	res, err := runner.Run(ctx)
	if err != nil {
		sentry.CaptureException(err)
		sentry.Flush(2 * time.Second)
		log.Fatalf("❌ Pipeline run failed: %v", err)
	}
	appLog.Info("artifacts written", "dir", writer.Dir(), "tables", len(res.Tables))
}

// llmInterval spreads each enrichment batch over its sleep window.
func llmInterval(cfg *config.Config) time.Duration {
	if cfg.LLMBatchSize <= 0 || cfg.LLMBatchSleepSeconds <= 0 {
		return time.Second
	}
	return time.Duration(cfg.LLMBatchSleepSeconds) * time.Second / time.Duration(cfg.LLMBatchSize)
}
