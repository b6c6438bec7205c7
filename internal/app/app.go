package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/estatemarket/auction-service/internal/adapter/httpapi"
	natsadapter "github.com/estatemarket/auction-service/internal/adapter/messaging/nats"
	"github.com/estatemarket/auction-service/internal/adapter/repository/cache"
	"github.com/estatemarket/auction-service/internal/adapter/repository/mongodb"
	"github.com/estatemarket/auction-service/internal/auction"
	"github.com/estatemarket/auction-service/internal/config"
	"github.com/estatemarket/auction-service/internal/domain"
	"github.com/estatemarket/auction-service/internal/platform/logger"
	"github.com/estatemarket/auction-service/internal/platform/metrics"
	"github.com/estatemarket/auction-service/internal/platform/tracer"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "auction-service"

type App struct {
	cfg *config.Config
	log logger.Logger

	mongoClient *mongo.Client
	redisClient *redis.Client
	publisher   *natsadapter.Publisher
	listener    *natsadapter.Listener
	tracerProv  *sdktrace.TracerProvider

	processor *auction.Processor
	hub       *auction.Hub
	ticks     *auction.TickPublisher
	sweeper   *auction.Sweeper

	httpServer    *http.Server
	metricsServer *metrics.Server

	sweepCancel context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.Config{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s", cfg.Env, cfg.HTTPServer.Port)

	var tracerProv *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tracerProv, err = tracer.Init(ctx, serviceName, cfg.Tracing.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		appLogger.Info("Tracer initialized")
	}

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongodb.NewClient(ctx, mongodb.Config{
		URI:            cfg.MongoDB.URI,
		Username:       cfg.MongoDB.User,
		Password:       cfg.MongoDB.Password,
		Database:       cfg.MongoDB.Database,
		ConnectTimeout: cfg.MongoDB.ConnectTimeout,
		MinPoolSize:    cfg.MongoDB.MinPoolSize,
		MaxPoolSize:    cfg.MongoDB.MaxPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("MongoDB client initialized successfully")

	appLogger.Info("Initializing Redis client...")
	redisClient, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized successfully")

	db := mongoClient.Database(cfg.MongoDB.Database)
	auctionRepo := mongodb.NewAuctionRepository(db)
	bidLedger := mongodb.NewBidLedgerRepository(db)
	if err := bidLedger.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bid indexes: %w", err)
	}

	defaults, err := settingsDefaults(cfg.Auction)
	if err != nil {
		return nil, err
	}
	settingsRepo := mongodb.NewSettingsRepository(db, defaults)

	publisher, err := natsadapter.NewPublisher(natsadapter.Config{URL: cfg.NATS.URL}, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	appLogger.Info("NATS publisher initialized")

	metricsManager := metrics.NewManager(serviceName)
	hub := auction.NewHub(appLogger, metricsManager)
	snapshots := cache.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL, appLogger)

	processor := auction.NewProcessor(
		auctionRepo,
		bidLedger,
		settingsRepo,
		auction.MultiSink{hub, publisher, snapshots},
		appLogger,
		metricsManager,
		auction.ProcessorConfig{LockTimeout: cfg.Auction.LockTimeout},
	)

	ticks := auction.NewTickPublisher(hub, processor, cfg.Auction.TickInterval, appLogger)
	hub.SetLifecycleHooks(ticks.Start, ticks.Stop)

	sweeper := auction.NewSweeper(processor, cfg.Auction.SweepInterval, appLogger)
	listener := natsadapter.NewListener(publisher.Conn(), processor, appLogger)

	handler := httpapi.NewHandler(processor, settingsRepo, appLogger)
	wsHandler := httpapi.NewWSHandler(hub, appLogger)
	router := httpapi.NewRouter(handler, wsHandler, cfg.JWTSecret, appLogger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, metricsManager.Registry, appLogger)
	}

	return &App{
		cfg:           cfg,
		log:           appLogger,
		mongoClient:   mongoClient,
		redisClient:   redisClient,
		publisher:     publisher,
		listener:      listener,
		tracerProv:    tracerProv,
		processor:     processor,
		hub:           hub,
		ticks:         ticks,
		sweeper:       sweeper,
		httpServer:    httpServer,
		metricsServer: metricsServer,
	}, nil
}

// settingsDefaults turns the config strings into engine defaults. They apply
// until an admin stores overrides in Mongo.
func settingsDefaults(cfg config.AuctionConfig) (domain.Settings, error) {
	commission, err := decimal.NewFromString(cfg.CommissionRate)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("invalid commission rate %q: %w", cfg.CommissionRate, err)
	}
	deposit, err := decimal.NewFromString(cfg.DefaultDepositAmount)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("invalid default deposit %q: %w", cfg.DefaultDepositAmount, err)
	}
	return domain.Settings{
		AntiSnipingWindow:    cfg.AntiSnipingWindow,
		AntiSnipingExtension: cfg.AntiSnipingExtension,
		CommissionRate:       commission,
		DefaultDepositAmount: deposit,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := a.processor.Recover(startupCtx); err != nil {
		a.log.Errorf("Recovery failed, continuing with empty state: %v", err)
	}
	cancelStartup()

	if err := a.listener.Start(); err != nil {
		a.log.Fatalf("Failed to start NATS listener: %v", err)
	}
	a.log.Info("NATS listener started")

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	a.sweepCancel = cancelSweep
	go a.sweeper.Run(sweepCtx)
	a.log.Info("Auction sweeper started")

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorf("Metrics server error: %v", err)
			}
		}()
		a.log.Infof("Metrics server started on port %s", a.cfg.Metrics.Port)
	}

	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	a.shutdown()
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	} else {
		a.log.Info("HTTP server stopped successfully")
	}

	if a.sweepCancel != nil {
		a.sweepCancel()
	}
	a.listener.Stop()
	a.ticks.StopAll()
	a.hub.Close()

	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(shutdownCtx); err != nil {
			a.log.Errorf("Error stopping metrics server: %v", err)
		}
	}

	a.publisher.Close()

	a.log.Info("Closing database connections...")
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("Disconnected from MongoDB")
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed")
		}
	}

	if a.tracerProv != nil {
		if err := a.tracerProv.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down tracer provider: %v", err)
		}
	}

	a.log.Info("Application shut down gracefully")
	_ = a.log.Sync()
}
