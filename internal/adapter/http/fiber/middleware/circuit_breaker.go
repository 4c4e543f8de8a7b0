package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/pkg/config"
)

var errServerFailure = errors.New("server failure")

// CircuitBreaker opens after repeated 5xx answers so a failing database is
// not hammered by retries.
func CircuitBreaker(cfg config.CircuitBreakerConfig, log *zap.Logger) fiber.Handler {
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	maxRequests := uint32(3)
	if cfg.MaxRequests > 0 {
		maxRequests = uint32(cfg.MaxRequests)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fuel-api",
		MaxRequests: maxRequests,
		Interval:    orDefault(cfg.Interval, time.Minute),
		Timeout:     orDefault(cfg.Timeout, 30*time.Second),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return func(c *fiber.Ctx) error {
		var handlerErr error
		_, err := cb.Execute(func() (interface{}, error) {
			handlerErr = c.Next()
			if handlerErr != nil {
				if code, _ := classify(handlerErr); code >= fiber.StatusInternalServerError {
					return nil, handlerErr
				}
				return nil, nil
			}
			if c.Response().StatusCode() >= fiber.StatusInternalServerError {
				return nil, errServerFailure
			}
			return nil, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
			})
		}

		return handlerErr
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
