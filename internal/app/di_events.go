package app

import (
	"fmt"

	"github.com/allisson/classhub/internal/events"
	"github.com/allisson/classhub/internal/metrics"
	"github.com/allisson/classhub/internal/notification"
)

// Registry returns the event registry.
func (c *Container) Registry() *events.Registry {
	c.registryInit.Do(func() {
		c.registry = events.NewRegistry()
	})
	return c.registry
}

// Bus returns the in-process event bus with all subscribers registered.
func (c *Container) Bus() (events.Bus, error) {
	var err error
	c.busInit.Do(func() {
		c.bus, err = c.initBus()
		if err != nil {
			c.initErrors["bus"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bus"]; exists {
		return nil, storedErr
	}
	return c.bus, nil
}

// BusinessMetrics returns the business metrics recorder, or nil when metrics
// are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// initBus creates the bus and subscribes the notification handlers.
func (c *Container) initBus() (events.Bus, error) {
	logger := c.Logger()

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for bus: %w", err)
	}

	bus := events.NewInMemoryBus(logger)

	notification.RegisterHandlers(
		bus,
		c.Registry(),
		notification.NewEmailNotifier(logger),
		notification.NewStatsRecorder(businessMetrics),
	)

	return bus, nil
}
