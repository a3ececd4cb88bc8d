// Package http provides the HTTP servers, routing and middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/classhub/internal/errors"
	"github.com/allisson/classhub/internal/httputil"
	"github.com/allisson/classhub/internal/tenant"
)

// TenantHeader carries the tenant id on every API request.
const TenantHeader = "X-Tenant-Id"

// CustomLoggerMiddleware logs HTTP requests with structured logging.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if logger != nil {
			logger.Info("http request",
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.Int("status", c.Writer.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("client_ip", c.ClientIP()),
				slog.String("request_id", requestid.Get(c)),
			)
		}
	}
}

// TenantMiddleware scopes the request context to the tenant named in the
// X-Tenant-Id header. Requests without a valid tenant id are rejected before
// reaching any handler, so downstream code can rely on the scope being set.
func TenantMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TenantHeader)
		if raw == "" {
			httputil.HandleErrorGin(c, apperrors.ErrTenantNotScoped, logger)
			c.Abort()
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			httputil.HandleErrorGin(
				c,
				apperrors.Wrap(apperrors.ErrTenantNotScoped, fmt.Sprintf("invalid tenant id %q", raw)),
				logger,
			)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(tenant.NewContext(c.Request.Context(), tenantID))
		c.Next()
	}
}

// adminRateLimiterStore holds per-IP rate limiters with automatic cleanup.
type adminRateLimiterStore struct {
	limiters sync.Map // map[string]*adminRateLimiterEntry (IP -> limiter)
	rps      float64
	burst    int
}

// adminRateLimiterEntry holds a rate limiter and last access time for cleanup.
type adminRateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// AdminRateLimitMiddleware enforces per-IP rate limiting on the admin
// endpoints. Uses a token bucket per client IP; each IP gets an independent
// limiter so one noisy operator cannot starve the others.
//
// Returns 429 Too Many Requests with a Retry-After header when the limit is
// exceeded.
func AdminRateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &adminRateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	// Cleanup goroutine for stale limiters (every 5 minutes)
	go store.cleanupStale(context.Background(), 5*time.Minute)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := store.getLimiter(clientIP)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()

			if logger != nil {
				logger.Debug("admin rate limit exceeded",
					slog.String("client_ip", clientIP),
					slog.Int("retry_after", retryAfter))
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many admin requests from this IP. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// getLimiter retrieves or creates a rate limiter for an IP address.
func (s *adminRateLimiterStore) getLimiter(ip string) *rate.Limiter {
	if val, ok := s.limiters.Load(ip); ok {
		entry := val.(*adminRateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(s.rps), s.burst)
	entry := &adminRateLimiterEntry{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	s.limiters.Store(ip, entry)
	return limiter
}

// cleanupStale removes rate limiters that haven't been accessed recently.
// Runs periodically to prevent unbounded memory growth from IP address churn.
func (s *adminRateLimiterStore) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold := time.Now().Add(-1 * time.Hour)
			s.limiters.Range(func(key, value interface{}) bool {
				entry := value.(*adminRateLimiterEntry)
				entry.mu.Lock()
				shouldDelete := entry.lastAccess.Before(threshold)
				entry.mu.Unlock()

				if shouldDelete {
					s.limiters.Delete(key)
				}
				return true
			})
		}
	}
}
