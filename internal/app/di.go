// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/allisson/publishq/internal/auth"
	"github.com/allisson/publishq/internal/config"
	"github.com/allisson/publishq/internal/database"
	"github.com/allisson/publishq/internal/http"
	jobHTTP "github.com/allisson/publishq/internal/job/http"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
	"github.com/allisson/publishq/internal/lock"
	"github.com/allisson/publishq/internal/metrics"
	publishHTTP "github.com/allisson/publishq/internal/publish/http"
	publishService "github.com/allisson/publishq/internal/publish/service"
	publishUseCase "github.com/allisson/publishq/internal/publish/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	redisClient     *redis.Client
	locker          lock.Locker
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	queueMetrics    metrics.QueueMetrics
	txManager       database.TxManager

	// Queue
	jobRepository     jobUseCase.JobRepository
	claimer           *jobUseCase.SerializedClaimer
	registry          *jobUseCase.Registry
	processor         *jobUseCase.Processor
	queueUseCase      jobUseCase.QueueUseCase
	sweeper           *jobUseCase.Sweeper
	jobHandler        *jobHTTP.JobHandler
	alertNotifier     jobUseCase.AlertNotifier
	alertNotifierInit sync.Once

	// Publishing
	publishRequestRepository publishUseCase.PublishRequestRepository
	platformRegistry         *publishService.PlatformRegistry
	accountResolver          publishService.AccountResolver
	tokenKeeper              publishService.Keeper
	signatureVerifier        publishService.SignatureVerifier
	publishUseCase           publishUseCase.PublishUseCase
	publishJobHandler        *publishUseCase.PublishHandler
	reconciler               *publishUseCase.Reconciler
	reconcileUseCase         publishUseCase.ReconcileUseCase
	publishHandler           *publishHTTP.PublishHandler
	callbackHandler          *publishHTTP.CallbackHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                           sync.Mutex
	loggerInit                   sync.Once
	dbInit                       sync.Once
	redisClientInit              sync.Once
	lockerInit                   sync.Once
	metricsProviderInit          sync.Once
	businessMetricsInit          sync.Once
	queueMetricsInit             sync.Once
	txManagerInit                sync.Once
	jobRepositoryInit            sync.Once
	claimerInit                  sync.Once
	registryInit                 sync.Once
	processorInit                sync.Once
	queueUseCaseInit             sync.Once
	sweeperInit                  sync.Once
	jobHandlerInit               sync.Once
	publishRequestRepositoryInit sync.Once
	platformRegistryInit         sync.Once
	accountResolverInit          sync.Once
	tokenKeeperInit              sync.Once
	signatureVerifierInit        sync.Once
	publishUseCaseInit           sync.Once
	publishJobHandlerInit        sync.Once
	reconcilerInit               sync.Once
	reconcileUseCaseInit         sync.Once
	publishHandlerInit           sync.Once
	callbackHandlerInit          sync.Once
	httpServerInit               sync.Once
	metricsServerInit            sync.Once
	initErrors                   map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.setInitError("db", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("db"); storedErr != nil {
		return nil, storedErr
	}
	return c.db, nil
}

// RedisClient returns the redis client, or nil when REDIS_ADDRESS is empty.
func (c *Container) RedisClient() *redis.Client {
	c.redisClientInit.Do(func() {
		if c.config.RedisAddress == "" {
			return
		}
		c.redisClient = redis.NewClient(&redis.Options{
			Addr:     c.config.RedisAddress,
			Password: c.config.RedisPassword,
			DB:       c.config.RedisDB,
		})
	})
	return c.redisClient
}

// Locker returns a redislock-backed locker when redis is configured and an
// in-process locker otherwise. It is never nil.
func (c *Container) Locker() lock.Locker {
	c.lockerInit.Do(func() {
		if client := c.RedisClient(); client != nil {
			c.locker = lock.NewRedisLocker(redislock.New(client), 0)
			return
		}
		c.locker = lock.NewMemoryLocker()
	})
	return c.locker
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.setInitError("txManager", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("txManager"); storedErr != nil {
		return nil, storedErr
	}
	return c.txManager, nil
}

// HTTPServer returns the API server with its router configured.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer(ctx)
		if err != nil {
			c.setInitError("httpServer", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("httpServer"); storedErr != nil {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.setInitError("metricsServer", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("metricsServer"); storedErr != nil {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource. It is safe to call more than once.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
		c.httpServer = nil
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
		c.metricsServer = nil
	}

	if c.claimer != nil {
		c.claimer.Close()
		c.claimer = nil
	}

	if c.tokenKeeper != nil {
		if err := c.tokenKeeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("kms keeper close: %w", err))
		}
		c.tokenKeeper = nil
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
		c.metricsProvider = nil
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
		c.redisClient = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
		c.db = nil
	}

	return errors.Join(shutdownErrors...)
}

func (c *Container) setInitError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

func (c *Container) initError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	jobHandler, err := c.JobHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get job handler for http server: %w", err)
	}

	publishHandler, err := c.PublishHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get publish handler for http server: %w", err)
	}

	callbackHandler, err := c.CallbackHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get callback handler for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(
		ctx,
		c.config,
		jobHandler,
		publishHandler,
		callbackHandler,
		auth.NewTokenVerifier(c.config.APIToken, c.config.APITokenHash),
		metricsProvider,
	)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if metricsProvider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), metricsProvider), nil
}
