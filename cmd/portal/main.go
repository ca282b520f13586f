// cmd/portal/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"student-portal/internal/api"
	"student-portal/internal/common/aws"
	"student-portal/internal/common/config"
	"student-portal/internal/common/database"
	"student-portal/internal/common/logger"
	"student-portal/internal/identity"
	"student-portal/internal/notify"
	"student-portal/internal/search"
	"student-portal/internal/services/applications"
	"student-portal/internal/services/draftsync"
	"student-portal/internal/store/blobs"
	"student-portal/internal/store/cache"
	"student-portal/internal/store/documents"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting student portal...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	docStore := documents.NewPostgresStore(pg.GetDB())
	if err := docStore.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("document store schema setup failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	draftCache := cache.NewDraftCache(rdb.GetClient())

	// --- Init S3 blob store ---
	s3Client, err := aws.NewS3Client(ctx, cfg.Storage.S3.Region)
	if err != nil {
		zapLog.Fatal("s3 client init failed", zap.Error(err))
	}
	blobStore := blobs.NewS3Store(s3Client, cfg.Storage.S3)
	zapLog.Info("S3 blob store initialized", zap.String("bucket", cfg.Storage.S3.Bucket))

	// --- Init submission hooks (best-effort collaborators) ---
	var hooks []applications.SubmissionHook

	// Each channel gets its client only when enabled; either one alone
	// is enough to stand up the notification service.
	var notifySvc *notify.Service
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var emailSender notify.EmailSender
		if cfg.Notifications.Email.Enabled {
			sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client init failed", zap.Error(err))
			}
			emailSender = sesClient
		}
		var smsSender notify.SMSSender
		if cfg.Notifications.SMS.Enabled {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
			smsSender = snsClient
		}
		notifySvc = notify.NewService(cfg.Notifications, emailSender, smsSender, log)
		hooks = append(hooks, notifySvc)
		zapLog.Info("notification hooks registered")
	}

	var searchIndexer *search.Indexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			// Search indexing is best-effort; the portal runs without it.
			zapLog.Warn("elasticsearch unavailable, search indexing disabled", zap.Error(err))
		} else {
			searchIndexer = search.NewIndexer(esClient.Client, log)
			hooks = append(hooks, searchIndexer)
			zapLog.Info("search indexing hook registered")
		}
	}

	// --- Assemble services ---
	appService := applications.NewService(applications.ServiceDependencies{
		Store:  docStore,
		Logger: log,
		Hooks:  hooks,
	}, applications.DefaultConfig())

	draftService := draftsync.NewService(draftsync.ServiceDependencies{
		Cache:    draftCache,
		Store:    docStore,
		Blobs:    blobStore,
		Upserter: appService,
		Logger:   log,
	})

	serverDeps := api.ServerDependencies{
		Auth:         identity.NewJWTProvider(cfg.Auth),
		Drafts:       draftService,
		Applications: appService,
		Logger:       log,
	}
	// Assigned only when built, so the routes stay unmounted otherwise.
	if notifySvc != nil {
		serverDeps.Notify = notifySvc
	}
	if searchIndexer != nil {
		serverDeps.Search = searchIndexer
	}
	server := api.NewServer(cfg.Server, serverDeps)

	// --- Graceful shutdown ---
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Listen(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()
	zapLog.Info("student portal started", zap.String("address", cfg.Server.Address))

	<-done
	zapLog.Info("Shutting down...")
	if err := server.Shutdown(); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
