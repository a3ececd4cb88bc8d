package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/classhub/internal/app"
	"github.com/allisson/classhub/internal/config"
)

// RunCreateTenant provisions a new tenant. The subdomain must be unique; the
// generated tenant id is printed so operators can hand it to API clients for
// the X-Tenant-Id header.
func RunCreateTenant(ctx context.Context, name, subdomain string, active bool) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	name = strings.TrimSpace(name)
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if name == "" || subdomain == "" {
		return fmt.Errorf("name and subdomain are required")
	}

	db, err := container.DB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	tenantID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate tenant id: %w", err)
	}

	var query string
	switch cfg.DBDriver {
	case "postgres":
		query = `INSERT INTO tenants (id, name, subdomain, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())`
	case "mysql":
		query = `INSERT INTO tenants (id, name, subdomain, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, NOW(6), NOW(6))`
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	if _, err := db.ExecContext(ctx, query, tenantID, name, subdomain, active); err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	logger.Info("tenant created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("name", name),
		slog.String("subdomain", subdomain),
		slog.Bool("active", active),
	)

	fmt.Printf("tenant created: %s\n", tenantID)
	return nil
}
