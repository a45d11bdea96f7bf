package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"modelgw/internal/config"
	"modelgw/internal/logging"
	"modelgw/internal/middleware"
	"modelgw/internal/providers"
	"modelgw/internal/queue"
	"modelgw/internal/registry"
	"modelgw/internal/routing"
	"modelgw/internal/storage"
	"modelgw/internal/usage"
	"modelgw/internal/utils"
)

// Dependencies aggregates everything the HTTP layer owns so the
// process can shut it down in order
type Dependencies struct {
	DB          *storage.DB
	UsageWorker *storage.UsageQueueWorker
	UsageQueue  queue.Queue
	UsageDLQ    queue.DeadLetterQueue
	Poller      *providers.Poller
	Sink        logging.Sink
}

// Close stops background workers and releases connections
func (d *Dependencies) Close() error {
	if d.Poller != nil {
		d.Poller.Stop()
	}
	if d.UsageWorker != nil {
		_ = d.UsageWorker.Stop()
	}
	if d.UsageQueue != nil {
		_ = d.UsageQueue.Close()
	}
	if d.UsageDLQ != nil {
		_ = d.UsageDLQ.Close()
	}
	if closer, ok := d.Sink.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// NewRouter wires storage, alias resolution, usage metering and the
// HTTP handlers together
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	logger := utils.NewLogger("router")

	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,

		AliasCacheSize:       cfg.Cache.AliasCacheSize,
		AliasCacheTTL:        cfg.Cache.AliasCacheTTL,
		ProviderKeyCacheSize: cfg.Cache.ProviderKeyCacheSize,
		ProviderKeyCacheTTL:  cfg.Cache.ProviderKeyCacheTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	encryption, err := storage.NewEncryption(cfg.EncryptionKey)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	accountRepo := db.NewAccountRepository()
	providerKeyRepo := db.NewProviderKeyRepository()
	aliasRepo := db.NewAliasRepository()
	usageRepo := db.NewUsageRepository()
	catalogRepo := db.NewProviderModelRepository()

	// usage metering queue: Redis when configured, in-memory otherwise
	queueCfg := queue.DefaultConfig("usage")
	queueCfg.UseRedis = cfg.Queue.UseRedis
	queueCfg.BatchSize = cfg.Queue.BatchSize
	queueCfg.BatchTimeout = cfg.Queue.BatchTimeout
	queueCfg.MaxRetries = cfg.Queue.MaxRetries
	queueCfg.RetryBackoff = cfg.Queue.RetryBackoff

	var usageQueue queue.Queue
	var usageDLQ queue.DeadLetterQueue
	if cfg.Queue.UseRedis {
		queueCfg.RedisAddr = cfg.Queue.RedisAddress
		queueCfg.RedisPassword = cfg.Queue.RedisPassword
		queueCfg.RedisDB = cfg.Queue.RedisDB

		usageQueue, err = queue.NewRedisQueue(queueCfg)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create usage queue: %w", err)
		}
		usageDLQ, err = queue.NewRedisDeadLetterQueue(queueCfg)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create usage DLQ: %w", err)
		}
	} else {
		usageQueue = queue.NewMemoryQueue(queueCfg)
		usageDLQ = queue.NewMemoryDeadLetterQueue()
	}

	usageWorker := storage.NewUsageQueueWorker(usageQueue, usageDLQ, db, queueCfg)
	usageWorker.Start(context.Background())

	recorder := usage.NewRecorder(usageWorker, usageRepo, nil)
	reg := registry.NewRegistry(aliasRepo, providerKeyRepo, nil)
	engine := routing.NewEngine(aliasRepo, providerKeyRepo, nil)

	// request log archive
	var sink logging.Sink = logging.NewNoopSink()
	if cfg.LoggingSink.Enabled && cfg.LoggingSink.S3Bucket != "" {
		writer, err := logging.NewS3Writer(context.Background(),
			cfg.LoggingSink.S3Bucket,
			cfg.LoggingSink.S3Region,
			cfg.LoggingSink.S3Prefix,
			cfg.LoggingSink.Instance)
		if err != nil {
			logger.Warn("failed to initialize S3 log writer, logging disabled", "error", err.Error())
		} else {
			sink = logging.NewBufferedSink(writer, cfg.LoggingSink.FlushSize, cfg.LoggingSink.FlushInterval)
		}
	}

	var poller *providers.Poller
	if cfg.Poller.Enabled {
		poller = providers.NewPoller(providerKeyRepo, catalogRepo, encryption, cfg.Poller.Interval, nil)
		poller.Start(context.Background())
	}

	deps := &Dependencies{
		DB:          db,
		UsageWorker: usageWorker,
		UsageQueue:  usageQueue,
		UsageDLQ:    usageDLQ,
		Poller:      poller,
		Sink:        sink,
	}

	authHandler := NewAuthHandler(accountRepo, cfg.JWTSecret)
	providersHandler := NewProvidersHandler(providerKeyRepo, catalogRepo, encryption)
	aliasesHandler := NewAliasesHandler(reg)
	usageHandler := NewUsageHandler(recorder)
	proxyHandler := NewProxyHandler(engine, encryption, recorder, sink)

	bearer := middleware.BearerAuthMiddleware(cfg.JWTSecret)

	mux := http.NewServeMux()

	mux.HandleFunc("/auth/signup", authHandler.Signup)
	mux.HandleFunc("/auth/login", authHandler.Login)
	mux.Handle("/auth/me", bearer(http.HandlerFunc(authHandler.Me)))
	mux.Handle("/auth/key", bearer(http.HandlerFunc(authHandler.Keys)))

	mux.Handle("/manage/providers", bearer(http.HandlerFunc(providersHandler.Keys)))
	mux.Handle("/manage/providers/", bearer(http.HandlerFunc(providersHandler.KeyModels)))
	mux.Handle("/manage/models", bearer(http.HandlerFunc(providersHandler.Catalog)))
	mux.Handle("/manage/aliases", bearer(http.HandlerFunc(aliasesHandler.Collection)))
	mux.Handle("/manage/aliases/", bearer(http.HandlerFunc(aliasesHandler.Item)))
	mux.Handle("/manage/usage", bearer(http.HandlerFunc(usageHandler.List)))

	mux.Handle("/v1/chat/completions", bearer(http.HandlerFunc(proxyHandler.ChatCompletions)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		// A growing queue depth means the usage worker is not keeping up
		depth, err := usageWorker.QueueLength(r.Context())
		if err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "usage queue unavailable")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":            "ok",
			"usage_queue_depth": depth,
		})
	})

	return mux, deps, nil
}
