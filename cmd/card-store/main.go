package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-board/api"
	"kanban-board/config"
	"kanban-board/domain"
	"kanban-board/storage"
	"kanban-board/telemetry"
	"kanban-board/web"
)

const serviceName = "card-store"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		logger.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	policy := domain.Lenient
	if cfg.StrictCardFields {
		policy = domain.Strict
	}
	router := api.NewRouter(store, logger, api.WithFieldPolicy(policy))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))
	e.Use(api.GzipRequestMiddleware())

	if cfg.ServeBoard {
		layout, err := web.LoadLayout(cfg.BoardLayoutFile)
		if err != nil {
			log.Fatalf("board: %v", err)
		}
		if err := web.Register(e, layout, web.Options{AssetsDir: cfg.BoardAssetsDir}); err != nil {
			log.Fatalf("board: %v", err)
		}
	}
	api.Register(e, router, logger, api.WithBodyLimit(cfg.RequestBodyLimit))

	logger.WithFields(log.Fields{
		"backend": cfg.Backend,
		"policy":  policy.String(),
		"cache":   cfg.RedisConnectionString != "",
		"feed":    cfg.ChangesQueue != "",
	}).Info("card store starting")

	go func() {
		if err := e.Start(cfg.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Errorf("tracing shutdown: %v", err)
	}
}

// newStore builds the configured backend and stacks the optional change
// feed, tracing and cache decorators on top of it.
func newStore(ctx context.Context, cfg config.Config, logger *log.Logger) (storage.Backend, error) {
	var store storage.Backend
	switch cfg.Backend {
	case config.BackendTables:
		tables, err := storage.NewTables(cfg.StorageConnectionString, cfg.CardsTable, cfg.CardsPartition)
		if err != nil {
			return nil, err
		}
		store = tables
	case config.BackendDynamoDB:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, err
		}
		dynamo := storage.NewDynamo(&awsCfg, cfg.DynamoTable, storage.WithConsistentReads(cfg.DynamoConsistentReads))
		if err := dynamo.Connect(); err != nil {
			return nil, err
		}
		if err := dynamo.Init(ctx, cfg.DynamoSkipSchemaValidation); err != nil {
			return nil, err
		}
		store = dynamo
	default:
		logger.Warn("using in-memory card store, cards are lost on restart")
		store = storage.NewMemory()
	}

	if cfg.ChangesQueue != "" {
		feed, err := storage.NewFeed(store, cfg.StorageConnectionString, cfg.ChangesQueue, logger)
		if err != nil {
			return nil, err
		}
		store = feed
	}

	store = storage.NewTraced(store, nil)

	if cfg.RedisConnectionString != "" {
		redisOpts, err := config.ParseRedisConnectionString(cfg.RedisConnectionString)
		if err != nil {
			return nil, err
		}
		store = storage.NewCache(store, redis.NewClient(redisOpts), cfg.CacheTTL)
	}
	return store, nil
}
