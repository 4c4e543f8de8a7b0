package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ReadyResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// ContextPinger is satisfied by *sql.DB.
type ContextPinger interface {
	PingContext(ctx context.Context) error
}

// Pinger is satisfied by the cache and queue adapters.
type Pinger interface {
	Ping() error
}

// LedgerProbe finds the tank the service books against.
type LedgerProbe interface {
	FindDefault(ctx context.Context) (*domain.Tank, error)
}

// Config lists the dependencies probed by Ready. Nil ones are skipped.
// Only the database and the ledger can make the service unready.
type Config struct {
	Version string
	DB      ContextPinger
	Ledger  LedgerProbe
	Cache   Pinger
	Queue   Pinger
	Timeout time.Duration
}

type check struct {
	name     string
	severity Status
	run      func(ctx context.Context) (string, error)
}

type Service struct {
	started time.Time
	version string
	timeout time.Duration
	checks  []check
	log     *zap.Logger
}

func NewService(cfg *Config, log *zap.Logger) *Service {
	s := &Service{
		started: time.Now(),
		version: cfg.Version,
		timeout: cfg.Timeout,
		log:     log,
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}

	if cfg.DB != nil {
		db := cfg.DB
		s.add("database", StatusUnhealthy, func(ctx context.Context) (string, error) {
			return "connection ok", db.PingContext(ctx)
		})
	}
	if cfg.Ledger != nil {
		ledger := cfg.Ledger
		s.add("ledger", StatusUnhealthy, func(ctx context.Context) (string, error) {
			tank, err := ledger.FindDefault(ctx)
			if err != nil {
				return "", err
			}
			if tank == nil {
				return "no tank yet; it is created on first access", nil
			}
			return fmt.Sprintf("%s: %.2f L (%s)", tank.Name, tank.CurrentStock, tank.Status), nil
		})
	}
	if cfg.Cache != nil {
		cache := cfg.Cache
		s.add("cache", StatusDegraded, func(context.Context) (string, error) {
			return "connection ok", cache.Ping()
		})
	}
	if cfg.Queue != nil {
		queue := cfg.Queue
		s.add("queue", StatusDegraded, func(context.Context) (string, error) {
			return "connection ok", queue.Ping()
		})
	}
	return s
}

func (s *Service) add(name string, severity Status, run func(ctx context.Context) (string, error)) {
	s.checks = append(s.checks, check{name: name, severity: severity, run: run})
}

// Health is the liveness probe; it never touches dependencies.
func (s *Service) Health(ctx context.Context) *HealthResponse {
	return &HealthResponse{
		Status:    StatusHealthy,
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Ready probes every dependency concurrently, each under its own timeout.
func (s *Service) Ready(ctx context.Context) *ReadyResponse {
	results := make([]CheckResult, len(s.checks))
	var wg sync.WaitGroup
	for i, c := range s.checks {
		wg.Add(1)
		go func(i int, c check) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = s.run(checkCtx, c)
		}(i, c)
	}
	wg.Wait()

	resp := &ReadyResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(results)),
	}
	for _, r := range results {
		resp.Checks[r.Name] = r
		switch r.Status {
		case StatusUnhealthy:
			resp.Ready = false
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

func (s *Service) run(ctx context.Context, c check) CheckResult {
	start := time.Now()
	msg, err := c.run(ctx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   msg,
		Duration:  time.Since(start),
		Timestamp: start,
	}
	if err != nil {
		result.Status = c.severity
		result.Message = fmt.Sprintf("check failed: %v", err)
		s.log.Warn("Health check failed", zap.String("check", c.name), zap.Error(err))
	}
	return result
}
