package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/ports"
	"github.com/seu-repo/fuel-control/pkg/config"
)

// LogProvider only logs the message. Used when no e-mail API key is set.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log}
}

func (p *LogProvider) Send(ctx context.Context, to []string, subject, body string) error {
	p.log.Info("E-mail notification",
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// BreakerProvider stops calling a failing provider for a while.
type BreakerProvider struct {
	inner ports.EmailProvider
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerProvider(inner ports.EmailProvider, cfg config.CircuitBreakerConfig, log *zap.Logger) *BreakerProvider {
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = 0.6
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "email",
		MaxRequests: uint32(maxRequests),
		Interval:    cfg.Interval,
		Timeout:     timeout,
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
	return &BreakerProvider{inner: inner, cb: cb}
}

func (p *BreakerProvider) Send(ctx context.Context, to []string, subject, body string) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.inner.Send(ctx, to, subject, body)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("e-mail provider unavailable: %w", err)
	}
	return err
}

// NewProvider picks SendGrid when an API key is configured.
func NewProvider(cfg config.EmailConfig, breaker config.CircuitBreakerConfig, log *zap.Logger) ports.EmailProvider {
	if cfg.Provider == "sendgrid" && cfg.APIKey != "" {
		log.Info("SendGrid e-mail provider enabled", zap.String("from", cfg.From))
		return NewBreakerProvider(NewSendGridProvider(cfg.APIKey, cfg.From, cfg.FromName), breaker, log)
	}
	log.Info("E-mail notifications will only be logged")
	return NewLogProvider(log)
}
