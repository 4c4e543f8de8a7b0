// Package tank keeps the fuel stock ledger. Stock is never stored as an
// independent counter: every read that matters recomputes it from the
// confirmed intakes and dispensed refuelings.
package tank

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/observability/telemetry"
	"github.com/seu-repo/fuel-control/internal/ports"
)

type Config struct {
	Name       string
	Capacity   float64
	Thresholds domain.LevelThresholds
}

func DefaultConfig() Config {
	return Config{
		Name:       domain.DefaultTankName,
		Capacity:   domain.DefaultTankCapacity,
		Thresholds: domain.DefaultLevelThresholds(),
	}
}

type Service struct {
	repo  ports.TankRepository
	audit ports.AuditRepository
	tx    ports.Transactor
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

func NewService(repo ports.TankRepository, audit ports.AuditRepository, tx ports.Transactor, cfg Config, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		audit: audit,
		tx:    tx,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) GetOrCreateDefault(ctx context.Context) (*domain.Tank, error) {
	t, err := s.repo.FindDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("find default tank: %w", err)
	}
	if t == nil {
		t = &domain.Tank{
			Name:     s.cfg.Name,
			Capacity: s.cfg.Capacity,
			Active:   true,
			Status:   s.cfg.Thresholds.Classify(0),
		}
		if err := s.repo.Create(ctx, t); err != nil {
			return nil, fmt.Errorf("create default tank: %w", err)
		}
		s.log.Info("Default tank created",
			zap.Uint("tank_id", t.ID),
			zap.Float64("capacity", t.Capacity),
		)
	}

	if err := s.refresh(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Recompute derives the stock from the full confirmed history and persists
// the snapshot. Calling it twice yields the same figures.
func (s *Service) Recompute(ctx context.Context, tankID uint) (*domain.Tank, error) {
	ctx, span := telemetry.Tracer("tank").Start(ctx, "Tank.Recompute")
	defer span.End()

	t, err := s.repo.FindByID(ctx, tankID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, t); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save tank snapshot: %w", err)
	}

	telemetry.RecordTank(t.Name, t.CurrentStock, t.FillPercentage)
	span.SetAttributes(
		attribute.Float64("tank.stock", t.CurrentStock),
		attribute.String("tank.status", string(t.Status)),
	)
	return t, nil
}

// Lock takes the row lock on the tank for the surrounding transaction and
// returns a fresh snapshot. Must be called with a transactional ctx.
func (s *Service) Lock(ctx context.Context, tankID uint) (*domain.Tank, error) {
	t, err := s.repo.LockByID(ctx, tankID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns a freshly recomputed snapshot without persisting it.
func (s *Service) Get(ctx context.Context, tankID uint) (*domain.Tank, error) {
	return s.load(ctx, tankID)
}

func (s *Service) HasAvailable(ctx context.Context, tankID uint, quantity float64) (bool, error) {
	t, err := s.load(ctx, tankID)
	if err != nil {
		return false, err
	}
	return t.HasAvailable(quantity), nil
}

// Reserve validates an outflow against the current stock. The stock itself
// only moves once the refueling is confirmed and the tank recomputed.
func (s *Service) Reserve(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error) {
	t, err := s.load(ctx, tankID)
	if err != nil {
		return nil, err
	}
	if err := t.CheckReserve(quantity); err != nil {
		return nil, err
	}

	now := s.now()
	t.LastOutflowAt = &now
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save tank: %w", err)
	}
	return t, nil
}

// Receive validates an inflow against the remaining capacity.
func (s *Service) Receive(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error) {
	t, err := s.load(ctx, tankID)
	if err != nil {
		return nil, err
	}
	if err := t.CheckReceive(quantity); err != nil {
		return nil, err
	}

	now := s.now()
	t.LastInflowAt = &now
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save tank: %w", err)
	}
	return t, nil
}

// AdjustBaseline sets the operator-entered stock offset. Admin only. The
// baseline itself may be negative, as AbsorbOutflow leaves it, but the
// resulting stock may not.
func (s *Service) AdjustBaseline(ctx context.Context, actor *domain.User, tankID uint, baseline float64) (*domain.Tank, error) {
	if !actor.IsAdmin() {
		return nil, &domain.AuthorizationError{Action: "tank.adjust_baseline"}
	}

	var result *domain.Tank
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := s.Lock(ctx, tankID)
		if err != nil {
			return err
		}
		before := t.CurrentStock

		t.ManualBaseline = baseline
		if err := s.refresh(ctx, t); err != nil {
			return err
		}
		if t.CurrentStock < 0 {
			v := &domain.ValidationError{}
			v.Add("manual_baseline", fmt.Sprintf("would leave a stock of %.2f L", t.CurrentStock))
			return v
		}
		if err := s.repo.Save(ctx, t); err != nil {
			return fmt.Errorf("save tank: %w", err)
		}

		note := &domain.AuditNote{
			Entity:   domain.AuditEntityTank,
			EntityID: t.ID,
			AuthorID: actor.ID,
			Body: fmt.Sprintf("Manual baseline set to %.2f L; stock %.2f L -> %.2f L",
				baseline, before, t.CurrentStock),
		}
		if err := s.audit.Append(ctx, note); err != nil {
			return fmt.Errorf("append audit note: %w", err)
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordTank(result.Name, result.CurrentStock, result.FillPercentage)
	s.log.Info("Tank baseline adjusted",
		zap.Uint("tank_id", tankID),
		zap.Uint("actor_id", actor.ID),
		zap.Float64("baseline", baseline),
		zap.Float64("stock", result.CurrentStock),
	)
	return result, nil
}

// AbsorbOutflow lowers the baseline by quantity so that removing a
// dispensed record from the history leaves the stock where it was. Must run
// inside the caller's transaction.
func (s *Service) AbsorbOutflow(ctx context.Context, actor *domain.User, tankID uint, quantity float64, reason string) (*domain.Tank, error) {
	t, err := s.Lock(ctx, tankID)
	if err != nil {
		return nil, err
	}

	t.ManualBaseline -= quantity
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save tank: %w", err)
	}

	note := &domain.AuditNote{
		Entity:   domain.AuditEntityTank,
		EntityID: t.ID,
		AuthorID: actor.ID,
		Body:     fmt.Sprintf("Baseline lowered by %.2f L: %s", quantity, reason),
	}
	if err := s.audit.Append(ctx, note); err != nil {
		return nil, fmt.Errorf("append audit note: %w", err)
	}
	return t, nil
}

func (s *Service) load(ctx context.Context, tankID uint) (*domain.Tank, error) {
	t, err := s.repo.FindByID(ctx, tankID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) refresh(ctx context.Context, t *domain.Tank) error {
	inflow, outflow, err := s.repo.SumMovements(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("sum tank movements: %w", err)
	}
	t.ApplyTotals(inflow, outflow, s.cfg.Thresholds)
	return nil
}
