package bootstrap

import (
	"context"
	"fmt"

	"notebook-sources-be/internal/cache"
	"notebook-sources-be/internal/config"
	"notebook-sources-be/internal/controller"
	"notebook-sources-be/internal/generation"
	"notebook-sources-be/internal/handler"
	"notebook-sources-be/internal/pkg/logger"
	"notebook-sources-be/internal/reconciler"
	"notebook-sources-be/internal/repository/contract"
	"notebook-sources-be/internal/repository/implementation"
	"notebook-sources-be/internal/repository/memory"
	"notebook-sources-be/internal/service"
	"notebook-sources-be/internal/websocket"
	"notebook-sources-be/pkg/feed"
	"notebook-sources-be/pkg/jobs"

	pktNats "notebook-sources-be/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SourceController   controller.ISourceController
	NotebookController controller.INotebookController

	// WebSockets
	SourceStreamHandler *handler.SourceStreamHandler
	WebSocketHub        *websocket.Hub

	Reconciler *reconciler.Reconciler
	Logger     logger.ILogger

	closers []func()
}

// changeFeed is both halves of the feed: repositories publish, the
// reconciler subscribes.
type changeFeed interface {
	contract.ChangeFeed
	contract.ChangePublisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	rtLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	c.Logger = sysLogger
	c.closers = append(c.closers, func() {
		_ = rtLogger.Sync()
		_ = sysLogger.Sync()
	})

	// 2. Change feed
	sourceFeed, err := newChangeFeed(cfg.Feed, sysLogger, rtLogger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, sourceFeed.close)

	// 3. Redis (cross-instance notifications)
	rdb := newRedisClient(context.Background(), cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. Repositories
	sourceRepo := implementation.NewSourceRepository(db, sourceFeed, sysLogger)
	notebookRepo := implementation.NewNotebookRepository(db)
	statusCache := memory.NewNotebookStatusCache(notebookRepo, cfg.Cache.NotebookTTL)

	// 5. Generation
	tokenSource := jobs.NewTokenSource(jobs.TokenSourceConfig{
		StaticToken:  cfg.Generation.JobToken,
		TokenURL:     cfg.Generation.JobTokenURL,
		ClientID:     cfg.Generation.JobClientID,
		ClientSecret: cfg.Generation.JobClientSecret,
	})
	invoker := jobs.NewHTTPInvoker(cfg.Generation.JobURL, tokenSource, cfg.Generation.JobTimeout)

	wsHub := websocket.NewHub(rdb, rtLogger)

	generationService := service.NewGenerationService(
		generation.NewGuard(),
		invoker,
		statusCache,
		wsHub, // Hub implements NotificationDelivery
		service.GenerationOptions{
			JobName:       cfg.Generation.JobName,
			TriggerOnFeed: cfg.Generation.TriggerOnFeed,
		},
		sysLogger,
	)

	// 6. Realtime cache
	sourceCache := cache.NewSourceCache(rtLogger)
	rec := reconciler.New(sourceFeed, sourceRepo, sourceCache, rtLogger, wsHub, generationService)

	// 7. Services
	sourceService := service.NewSourceService(sourceRepo, notebookRepo, sourceCache, generationService, sysLogger)
	notebookService := service.NewNotebookService(notebookRepo, generationService, sysLogger)

	c.WebSocketHub = wsHub
	c.Reconciler = rec
	c.SourceStreamHandler = handler.NewSourceStreamHandler(wsHub, rec, notebookService, cfg.Auth.JwtSecret, rtLogger)
	c.SourceController = controller.NewSourceController(sourceService)
	c.NotebookController = controller.NewNotebookController(notebookService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

type closableFeed struct {
	changeFeed
	close func()
}

// newRedisClient returns nil when Redis is unreachable; the hub then only
// serves local connections.
func newRedisClient(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis, notifications stay local", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newChangeFeed(cfg config.FeedConfig, sysLog, log logger.ILogger) (*closableFeed, error) {
	switch cfg.Driver {
	case "memory":
		f := feed.NewGoChannelFeed(log)
		return &closableFeed{changeFeed: f, close: func() { _ = f.Close() }}, nil

	case "nats":
		pub, err := pktNats.NewPublisher(cfg.NatsURL, cfg.StreamName, sysLog)
		if err != nil {
			return nil, fmt.Errorf("nats publisher: %w", err)
		}
		sub, err := pktNats.NewSubscriber(cfg.NatsURL, cfg.StreamName, log)
		if err != nil {
			pub.Close()
			return nil, fmt.Errorf("nats subscriber: %w", err)
		}
		return &closableFeed{
			changeFeed: struct {
				contract.ChangeFeed
				contract.ChangePublisher
			}{sub, pub},
			close: func() {
				sub.Close()
				pub.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown FEED_DRIVER %q", cfg.Driver)
	}
}
