package app

import (
	"fmt"

	"github.com/allisson/classhub/internal/metrics"
	outboxHTTP "github.com/allisson/classhub/internal/outbox/http"
	outboxRepository "github.com/allisson/classhub/internal/outbox/repository"
	outboxUsecase "github.com/allisson/classhub/internal/outbox/usecase"
)

// OutboxRepository returns the outbox envelope repository based on database driver.
func (c *Container) OutboxRepository() (outboxUsecase.EnvelopeRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// OutboxMetrics returns the outbox metrics recorder, or nil when metrics are
// disabled.
func (c *Container) OutboxMetrics() (metrics.OutboxMetrics, error) {
	var err error
	c.outboxMetricsInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["outboxMetrics"] = err
			return
		}
		if provider == nil {
			return
		}
		c.outboxMetrics, err = metrics.NewOutboxMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["outboxMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxMetrics"]; exists {
		return nil, storedErr
	}
	return c.outboxMetrics, nil
}

// Publisher returns the event publisher selected by PublisherMode.
func (c *Container) Publisher() (outboxUsecase.Publisher, error) {
	var err error
	c.publisherInit.Do(func() {
		c.publisher, err = c.initPublisher()
		if err != nil {
			c.initErrors["publisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publisher"]; exists {
		return nil, storedErr
	}
	return c.publisher, nil
}

// Dispatcher returns the outbox dispatcher.
func (c *Container) Dispatcher() (*outboxUsecase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// OutboxHandler returns the admin HTTP handler for outbox envelopes.
func (c *Container) OutboxHandler() (*outboxHTTP.OutboxHandler, error) {
	var err error
	c.outboxHandlerInit.Do(func() {
		var outboxRepo outboxUsecase.EnvelopeRepository
		outboxRepo, err = c.OutboxRepository()
		if err != nil {
			c.initErrors["outboxHandler"] = err
			return
		}
		c.outboxHandler = outboxHTTP.NewOutboxHandler(outboxRepo, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxHandler"]; exists {
		return nil, storedErr
	}
	return c.outboxHandler, nil
}

// initOutboxRepository creates the outbox repository based on the database driver.
func (c *Container) initOutboxRepository() (outboxUsecase.EnvelopeRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxRepository(db, c.config.DispatcherMaxAttempts, c.Logger()), nil
	case "mysql":
		return outboxRepository.NewMySQLOutboxRepository(db, c.config.DispatcherMaxAttempts, c.Logger()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPublisher creates the publisher selected by PublisherMode. Which
// implementation business code receives is decided here, once; nothing
// downstream branches on the mode again.
func (c *Container) initPublisher() (outboxUsecase.Publisher, error) {
	switch c.config.PublisherMode {
	case "outbox":
		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get outbox repository for publisher: %w", err)
		}
		return outboxUsecase.NewTransactionalPublisher(c.Registry(), outboxRepo, c.Logger()), nil
	case "immediate":
		bus, err := c.Bus()
		if err != nil {
			return nil, fmt.Errorf("failed to get bus for publisher: %w", err)
		}
		return outboxUsecase.NewImmediatePublisher(bus), nil
	default:
		return nil, fmt.Errorf("unsupported publisher mode: %s", c.config.PublisherMode)
	}
}

// initDispatcher creates the dispatcher with all its dependencies.
func (c *Container) initDispatcher() (*outboxUsecase.Dispatcher, error) {
	tenantRunner, err := c.TenantRunner()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant runner for dispatcher: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for dispatcher: %w", err)
	}

	bus, err := c.Bus()
	if err != nil {
		return nil, fmt.Errorf("failed to get bus for dispatcher: %w", err)
	}

	outboxMetrics, err := c.OutboxMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox metrics for dispatcher: %w", err)
	}

	dispatcherConfig := outboxUsecase.Config{
		Interval:    c.config.DispatcherInterval,
		MaxAttempts: c.config.DispatcherMaxAttempts,
	}

	return outboxUsecase.NewDispatcher(
		dispatcherConfig,
		tenantRunner,
		outboxRepo,
		c.Registry(),
		bus,
		outboxMetrics,
		c.Logger(),
	), nil
}
