// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/classhub/internal/config"
	"github.com/allisson/classhub/internal/database"
	"github.com/allisson/classhub/internal/events"
	groupHTTP "github.com/allisson/classhub/internal/group/http"
	groupUsecase "github.com/allisson/classhub/internal/group/usecase"
	"github.com/allisson/classhub/internal/http"
	"github.com/allisson/classhub/internal/metrics"
	outboxHTTP "github.com/allisson/classhub/internal/outbox/http"
	outboxUsecase "github.com/allisson/classhub/internal/outbox/usecase"
	"github.com/allisson/classhub/internal/tenant"
	userHTTP "github.com/allisson/classhub/internal/user/http"
	userUsecase "github.com/allisson/classhub/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider

	// Managers
	txManager    database.TxManager
	tenantRunner tenant.Runner

	// Events
	registry        *events.Registry
	bus             events.Bus
	businessMetrics metrics.BusinessMetrics

	// Outbox
	outboxRepo    outboxUsecase.EnvelopeRepository
	outboxMetrics metrics.OutboxMetrics
	publisher     outboxUsecase.Publisher
	dispatcher    *outboxUsecase.Dispatcher
	outboxHandler *outboxHTTP.OutboxHandler

	// Users
	userRepo    userUsecase.UserRepository
	userUseCase userUsecase.UseCase
	userHandler *userHTTP.UserHandler

	// Groups
	groupRepo    groupUsecase.GroupRepository
	groupUseCase groupUsecase.UseCase
	groupHandler *groupHTTP.GroupHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	metricsProviderInit sync.Once
	txManagerInit       sync.Once
	tenantRunnerInit    sync.Once
	registryInit        sync.Once
	busInit             sync.Once
	businessMetricsInit sync.Once
	outboxRepoInit      sync.Once
	outboxMetricsInit   sync.Once
	publisherInit       sync.Once
	dispatcherInit      sync.Once
	outboxHandlerInit   sync.Once
	userRepoInit        sync.Once
	userUseCaseInit     sync.Once
	userHandlerInit     sync.Once
	groupRepoInit       sync.Once
	groupUseCaseInit    sync.Once
	groupHandlerInit    sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
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
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// TenantRunner returns the tenant runner.
func (c *Container) TenantRunner() (tenant.Runner, error) {
	var err error
	c.tenantRunnerInit.Do(func() {
		var db *sql.DB
		db, err = c.DB()
		if err != nil {
			c.initErrors["tenantRunner"] = err
			return
		}
		c.tenantRunner = tenant.NewSQLRunner(db)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantRunner"]; exists {
		return nil, storedErr
	}
	return c.tenantRunner, nil
}

// HTTPServer returns the API HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server instance, or nil when metrics
// are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
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

// initHTTPServer creates the API HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	userHandler, err := c.UserHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get user handler for http server: %w", err)
	}

	groupHandler, err := c.GroupHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get group handler for http server: %w", err)
	}

	outboxHandler, err := c.OutboxHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox handler for http server: %w", err)
	}

	return http.NewServer(
		c.config,
		c.Logger(),
		userHandler,
		groupHandler,
		outboxHandler,
	), nil
}
