package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/fuel-control/internal/adapter/cache"
	"github.com/seu-repo/fuel-control/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/fuel-control/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/fuel-control/internal/adapter/queue"
	"github.com/seu-repo/fuel-control/internal/adapter/sequence"
	"github.com/seu-repo/fuel-control/internal/adapter/storage/postgres"
	"github.com/seu-repo/fuel-control/internal/adapter/vault"
	wsAdapter "github.com/seu-repo/fuel-control/internal/adapter/websocket"
	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/observability/telemetry"
	"github.com/seu-repo/fuel-control/internal/ports"
	"github.com/seu-repo/fuel-control/internal/service/auth"
	"github.com/seu-repo/fuel-control/internal/service/dashboard"
	"github.com/seu-repo/fuel-control/internal/service/events"
	"github.com/seu-repo/fuel-control/internal/service/health"
	"github.com/seu-repo/fuel-control/internal/service/intake"
	"github.com/seu-repo/fuel-control/internal/service/notification"
	"github.com/seu-repo/fuel-control/internal/service/refueling"
	"github.com/seu-repo/fuel-control/internal/service/report"
	"github.com/seu-repo/fuel-control/internal/service/tank"
	"github.com/seu-repo/fuel-control/pkg/config"
)

const (
	serviceName    = "fuel-control"
	serviceVersion = "v1.0.0"
)

// queueDriver is what the server needs from the event bus adapters.
type queueDriver interface {
	ports.MessageQueue
	health.Pinger
}

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	version := cfg.App.Version
	if version == "" {
		version = serviceVersion
	}
	logger.Info("Starting fuel control service",
		zap.String("service", serviceName),
		zap.String("version", version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry, version)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 4. Secrets
	if cfg.Vault.Enabled {
		loadSecrets(cfg, logger)
	}

	// 5. Initialize PostgreSQL Connection Pool
	db, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// 6. Cache and sequence generator: redis when reachable, otherwise
	// in-process cache and the database sequence table.
	var (
		appCache  ports.Cache
		sequencer ports.SequenceGenerator
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to local cache", zap.Error(err))
		} else {
			appCache = cache.NewRedisCache(redisClient, logger)
			sequencer = sequence.NewRedisSequence(redisClient, logger)
		}
	}
	if appCache == nil {
		appCache = cache.NewLocalCache(cache.LocalConfig{
			MaxEntries: cfg.Cache.LocalMaxEntries,
			Sweep:      cfg.Cache.LocalSweep,
		}, logger)
		sequencer = postgres.NewSequenceRepository(db, logger)
	}
	defer appCache.Close()

	// 7. Initialize Message Queue
	messageQueue, err := newQueue(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message queue", zap.Error(err))
	}
	defer messageQueue.Close()

	// 8. Initialize Repositories
	transactor := postgres.NewTransactor(db, logger)
	tankRepo := postgres.NewTankRepository(db, logger)
	refuelingRepo := postgres.NewRefuelingRepository(db, logger)
	intakeRepo := postgres.NewIntakeRepository(db, logger)
	vehicleRepo := postgres.NewVehicleRepository(db, logger)
	driverRepo := postgres.NewDriverRepository(db, logger)
	userRepo := postgres.NewUserRepository(db, logger)
	auditRepo := postgres.NewAuditRepository(db, logger)
	attachmentRepo := postgres.NewAttachmentRepository(db, logger)

	// 9. Initialize Services (Business Logic Layer)
	location := cfg.Fuel.Location()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	wsHub := wsAdapter.NewHub(logger)
	go wsHub.Run(ctx)

	tankService := tank.NewService(tankRepo, auditRepo, transactor, tank.Config{
		Name:     cfg.Fuel.TankName,
		Capacity: cfg.Fuel.TankCapacity,
		Thresholds: domain.LevelThresholds{
			NormalAbove: cfg.Fuel.NormalAbove,
			WarningFrom: cfg.Fuel.WarningFrom,
		},
	}, logger)

	dashboardService := dashboard.NewService(dashboard.Params{
		Tanks:      tankService,
		Refuelings: refuelingRepo,
		Vehicles:   vehicleRepo,
		Users:      userRepo,
		Cache:      appCache,
		Config: dashboard.Config{
			TTL:          cfg.Cache.DashboardTTL,
			AnomalyRatio: cfg.Fuel.AnomalyRatio,
			AnomalyTopN:  cfg.Fuel.AnomalyTopN,
			Location:     location,
		},
		Log: logger,
	})

	dispatcher := events.NewDispatcher(messageQueue, wsHub, dashboardService, logger)

	emailProvider := notification.NewProvider(cfg.Notification.Email, cfg.CircuitBreaker, logger)
	notifier := notification.NewLowStockNotifier(emailProvider, messageQueue, cfg.Notification.Email.Recipients, logger)

	refuelingService := refueling.NewService(refueling.Params{
		Repo:        refuelingRepo,
		Tanks:       tankService,
		Vehicles:    vehicleRepo,
		Drivers:     driverRepo,
		Attachments: attachmentRepo,
		Audit:       auditRepo,
		Sequence:    sequencer,
		Tx:          transactor,
		Events:      dispatcher,
		Notifier:    notifier,
		Config:      refueling.Config{Code: cfg.Fuel.RefuelingCode, Location: location},
		Log:         logger,
	})

	intakeService := intake.NewService(intake.Params{
		Repo:     intakeRepo,
		Tanks:    tankService,
		Audit:    auditRepo,
		Sequence: sequencer,
		Tx:       transactor,
		Events:   dispatcher,
		Config:   intake.Config{Code: cfg.Fuel.IntakeCode, Location: location},
		Log:      logger,
	})

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenDuration, appCache, logger)
	authService := auth.NewService(userRepo, jwtService, logger)
	if cfg.Bootstrap.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			logger.Fatal("Failed to create bootstrap administrator", zap.Error(err))
		}
	}

	reportService := report.NewService(refuelingRepo, vehicleRepo, location, logger)

	healthService := health.NewService(&health.Config{
		Version: version,
		DB:      sqlDB,
		Ledger:  tankRepo,
		Cache:   appCache,
		Queue:   messageQueue,
	}, logger)

	// Make sure the ledger row exists and the gauges reflect it.
	if t, err := tankService.GetOrCreateDefault(ctx); err != nil {
		logger.Warn("Could not initialize default tank", zap.Error(err))
	} else {
		telemetry.RecordTank(t.Name, t.CurrentStock, t.FillPercentage)
	}

	// 10. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		BodyLimit:             cfg.Limits.MaxBodySize,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS, logger))
	}
	if cfg.CircuitBreaker.Enabled {
		app.Use(middleware.CircuitBreaker(cfg.CircuitBreaker, logger))
	}

	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	handlers.RegisterRoutes(app, authService, handlers.Routes{
		Auth:          handlers.NewAuthHandler(authService, logger),
		Tank:          handlers.NewTankHandler(tankService, dispatcher, logger),
		Refuelings:    handlers.NewRefuelingHandler(refuelingService, reportService, location, cfg.Limits.MaxReceiptSize, logger),
		Intakes:       handlers.NewIntakeHandler(intakeService, location, logger),
		Dashboard:     handlers.NewDashboardHandler(dashboardService, location, logger),
		LiveDashboard: wsHub.Handler(),
	})

	// 11. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 12. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging.level %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// loadSecrets overrides the database URL and SendGrid key from vault. A
// missing key keeps the configured value.
func loadSecrets(cfg *config.Config, logger *zap.Logger) {
	secrets, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token, cfg.Vault.SecretPath)
	if err != nil {
		logger.Fatal("Failed to create vault client", zap.Error(err))
	}

	if url, err := secrets.GetDatabaseURL(); err != nil {
		logger.Warn("Database URL not read from vault", zap.Error(err))
	} else {
		cfg.Database.URL = url
	}

	if key, err := secrets.GetSendGridAPIKey(); err == nil {
		cfg.Notification.Email.APIKey = key
	}
}

func newQueue(cfg *config.Config, logger *zap.Logger) (queueDriver, error) {
	switch cfg.Queue.Driver {
	case "nats":
		return queue.NewNATSQueue(cfg.NATS, logger)
	case "rabbitmq":
		return queue.NewRabbitMQQueue(cfg.RabbitMQ, logger)
	case "log", "":
		return queue.NewLogQueue(logger), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}
