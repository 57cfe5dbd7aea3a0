package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	Logger *logrus.Logger
	// Skip logging for specific paths
	SkipPaths []string
	// Only log responses with status >= 400
	ErrorsOnly bool
}

// DefaultLogConfig returns a default configuration for the logging middleware
func DefaultLogConfig(logger *logrus.Logger) LogConfig {
	return LogConfig{
		Logger:    logger,
		SkipPaths: []string{"/health"},
	}
}

// LoggingMiddleware logs one structured entry per request.
func LoggingMiddleware(cfg LogConfig) fiber.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *fiber.Ctx) error {
		if skip[c.Path()] {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		if cfg.ErrorsOnly && status < 400 {
			return err
		}

		fields := logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
			"user_agent": c.Get(fiber.HeaderUserAgent),
		}
		if id := c.Get("X-Request-ID"); id != "" {
			fields["request_id"] = id
		}
		if profile, ok := CurrentProfile(c); ok {
			fields["uid"] = profile.ID
			fields["role"] = profile.Role
		}

		entry := cfg.Logger.WithFields(fields)
		switch {
		case err != nil:
			entry.WithError(err).Error("request failed")
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
		return err
	}
}
