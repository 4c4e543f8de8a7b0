package intake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/observability/telemetry"
	"github.com/seu-repo/fuel-control/internal/ports"
)

type Config struct {
	// Code prefixes generated references, e.g. INT/2026/00007.
	Code     string
	Location *time.Location
}

type Params struct {
	Repo     ports.IntakeRepository
	Tanks    ports.TankService
	Audit    ports.AuditRepository
	Sequence ports.SequenceGenerator
	Tx       ports.Transactor
	Events   ports.EventDispatcher
	Config   Config
	Log      *zap.Logger
}

type Service struct {
	repo   ports.IntakeRepository
	tanks  ports.TankService
	audit  ports.AuditRepository
	seq    ports.SequenceGenerator
	tx     ports.Transactor
	events ports.EventDispatcher
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

func NewService(p Params) *Service {
	cfg := p.Config
	if cfg.Code == "" {
		cfg.Code = "INT"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		repo:   p.Repo,
		tanks:  p.Tanks,
		audit:  p.Audit,
		seq:    p.Sequence,
		tx:     p.Tx,
		events: p.Events,
		cfg:    cfg,
		log:    p.Log,
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor *domain.User, in ports.IntakeInput) (*domain.Intake, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, &domain.AuthorizationError{Action: "intake.create"}
	}

	i := &domain.Intake{
		Reference:     strings.TrimSpace(in.Reference),
		Timestamp:     s.now(),
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		Supplier:      in.Supplier,
		InvoiceNumber: in.InvoiceNumber,
		Notes:         in.Notes,
		RecorderID:    actor.ID,
		State:         domain.StateDraft,
	}
	if in.Timestamp != nil {
		i.Timestamp = *in.Timestamp
	}

	i.ComputeTotal()
	if err := i.Validate(); err != nil {
		return nil, err
	}

	if in.TankID != nil {
		t, err := s.tanks.Get(ctx, *in.TankID)
		if errors.Is(err, domain.ErrNotFound) {
			ve := &domain.ValidationError{}
			ve.Add("tank_id", "unknown tank")
			return nil, ve
		}
		if err != nil {
			return nil, err
		}
		i.TankID = t.ID
	} else {
		t, err := s.tanks.GetOrCreateDefault(ctx)
		if err != nil {
			return nil, err
		}
		i.TankID = t.ID
	}

	if i.Reference == "" {
		year := i.Timestamp.In(s.cfg.Location).Year()
		n, err := s.seq.Next(ctx, domain.SequenceKey(s.cfg.Code, year))
		if err != nil {
			return nil, err
		}
		i.Reference = domain.FormatSequence(s.cfg.Code, year, n)
	}

	if err := s.repo.Create(ctx, i); err != nil {
		return nil, fmt.Errorf("create intake: %w", err)
	}

	s.log.Info("Intake recorded",
		zap.Uint("id", i.ID),
		zap.String("reference", i.Reference),
		zap.Float64("quantity", i.Quantity),
	)
	return i, nil
}

// Update edits an intake. Confirmed intakes may only be edited by an
// administrator, and the new quantity must still fit the tank.
func (s *Service) Update(ctx context.Context, actor *domain.User, id uint, patch ports.IntakePatch) (*domain.Intake, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, &domain.AuthorizationError{Action: "intake.update"}
	}

	var (
		result *domain.Intake
		after  *domain.Tank
		delta  float64
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		i, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if i.State.Locked() && !actor.IsAdmin() {
			return &domain.AuthorizationError{Action: "intake.update"}
		}

		confirmed := i.State == domain.StateConfirmed
		var locked *domain.Tank
		if confirmed {
			if locked, err = s.tanks.Lock(ctx, i.TankID); err != nil {
				return err
			}
			if i, err = s.repo.FindByID(ctx, id); err != nil {
				return err
			}
		}

		oldQty := i.Quantity
		applyPatch(i, patch)
		i.ComputeTotal()
		if err := i.Validate(); err != nil {
			return err
		}

		delta = i.Quantity - oldQty
		if confirmed {
			switch {
			case delta > 0:
				if _, err := s.tanks.Receive(ctx, i.TankID, delta); err != nil {
					return err
				}
			case delta < 0:
				// Lowering an intake takes stock back out of the tank without
				// being an outflow.
				if err := locked.CheckReserve(-delta); err != nil {
					return err
				}
			}
		}

		if err := s.repo.Save(ctx, i); err != nil {
			return fmt.Errorf("save intake: %w", err)
		}

		if confirmed {
			body := fmt.Sprintf("Confirmed intake edited by administrator: quantity %.2f L -> %.2f L", oldQty, i.Quantity)
			if err := s.note(ctx, i, actor, body); err != nil {
				return err
			}
			if after, err = s.tanks.Recompute(ctx, i.TankID); err != nil {
				return err
			}
		}
		result = i
		return nil
	})
	if err != nil {
		return nil, err
	}

	if after != nil && s.events != nil {
		s.events.Dispatch(ctx, domain.NewStockEvent(domain.SubjectTankRecomputed, after, delta, actor.ID, result.ID))
	}
	return result, nil
}

// Delete removes a non-confirmed intake. Confirmed intakes are a conflict
// whatever the caller's role.
func (s *Service) Delete(ctx context.Context, actor *domain.User, id uint) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		i, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if i.State == domain.StateConfirmed {
			return &domain.ConflictError{Message: "confirmed intakes cannot be deleted"}
		}
		if !actor.HasRole(domain.UserRoleOperator) {
			return &domain.AuthorizationError{Action: "intake.delete"}
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("Intake deleted", zap.Uint("id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

// Confirm books each draft intake into its tank under the tank row lock.
func (s *Service) Confirm(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error) {
	ctx, span := telemetry.Tracer("intake").Start(ctx, "Intake.Confirm")
	defer span.End()
	span.SetAttributes(attribute.Int("intake.batch_size", len(ids)))

	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, s.reject("confirm", &domain.AuthorizationError{Action: "intake.confirm"})
	}
	if len(ids) == 0 {
		return nil, noIDs()
	}

	var (
		res      *domain.IntakeResult
		touched  map[uint]bool
		after    []*domain.Tank
		received float64
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res = &domain.IntakeResult{}
		touched = make(map[uint]bool)
		received = 0

		for _, id := range ids {
			i, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if i.State != domain.StateDraft {
				res.Skipped = append(res.Skipped, id)
				continue
			}
			if i.TankID == 0 {
				return &domain.ConfigurationError{Message: fmt.Sprintf("intake %s has no tank; configure a tank before confirming", i.Reference)}
			}

			if _, err := s.tanks.Lock(ctx, i.TankID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.ConfigurationError{Message: fmt.Sprintf("tank %d of intake %s does not exist", i.TankID, i.Reference)}
				}
				return err
			}
			touched[i.TankID] = true

			if i, err = s.repo.FindByID(ctx, id); err != nil {
				return err
			}
			if i.State != domain.StateDraft {
				res.Skipped = append(res.Skipped, id)
				continue
			}

			if _, err := s.tanks.Receive(ctx, i.TankID, i.Quantity); err != nil {
				return err
			}

			i.State = domain.StateConfirmed
			if err := s.repo.Save(ctx, i); err != nil {
				return fmt.Errorf("save intake: %w", err)
			}
			if err := s.note(ctx, i, actor, fmt.Sprintf("Intake confirmed: %.2f L", i.Quantity)); err != nil {
				return err
			}

			res.Processed = append(res.Processed, i)
			received += i.Quantity
		}

		var err error
		after, err = s.recomputeTanks(ctx, touched)
		if len(after) > 0 {
			res.Tank = after[len(after)-1]
		}
		return err
	})
	if err != nil {
		return nil, s.reject("confirm", err)
	}

	telemetry.WorkflowTransitionsTotal.WithLabelValues("intake", "confirm").Add(float64(len(res.Processed)))
	telemetry.LitersReceivedTotal.Add(received)
	if len(res.Processed) > 0 && s.events != nil {
		s.events.Dispatch(ctx, domain.NewStockEvent(domain.SubjectIntakeConfirmed, res.Tank, received, actor.ID, intakeIDs(res.Processed)...))
	}

	s.log.Info("Intakes confirmed",
		zap.Int("confirmed", len(res.Processed)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Float64("liters", received),
		zap.Uint("actor_id", actor.ID),
	)
	return res, nil
}

// Cancel moves drafts to cancelled. Confirmed intakes are permanent.
func (s *Service) Cancel(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, s.reject("cancel", &domain.AuthorizationError{Action: "intake.cancel"})
	}
	if len(ids) == 0 {
		return nil, noIDs()
	}

	var res *domain.IntakeResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res = &domain.IntakeResult{}
		for _, id := range ids {
			i, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			switch i.State {
			case domain.StateConfirmed:
				return &domain.ConflictError{Message: fmt.Sprintf("intake %s is confirmed and cannot be cancelled", i.Reference)}
			case domain.StateDraft:
				i.State = domain.StateCancelled
				if err := s.repo.Save(ctx, i); err != nil {
					return fmt.Errorf("save intake: %w", err)
				}
				if err := s.note(ctx, i, actor, "Intake cancelled"); err != nil {
					return err
				}
				res.Processed = append(res.Processed, i)
			default:
				res.Skipped = append(res.Skipped, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.reject("cancel", err)
	}

	telemetry.WorkflowTransitionsTotal.WithLabelValues("intake", "cancel").Add(float64(len(res.Processed)))
	if len(res.Processed) > 0 && s.events != nil {
		s.events.Dispatch(ctx, domain.NewStockEvent(domain.SubjectIntakeCancelled, nil, 0, actor.ID, intakeIDs(res.Processed)...))
	}
	return res, nil
}

func (s *Service) Reopen(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, s.reject("reopen", &domain.AuthorizationError{Action: "intake.reopen"})
	}
	if len(ids) == 0 {
		return nil, noIDs()
	}

	var res *domain.IntakeResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res = &domain.IntakeResult{}
		for _, id := range ids {
			i, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if i.State != domain.StateCancelled {
				res.Skipped = append(res.Skipped, id)
				continue
			}
			i.State = domain.StateDraft
			if err := s.repo.Save(ctx, i); err != nil {
				return fmt.Errorf("save intake: %w", err)
			}
			if err := s.note(ctx, i, actor, "Intake reopened"); err != nil {
				return err
			}
			res.Processed = append(res.Processed, i)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject("reopen", err)
	}

	telemetry.WorkflowTransitionsTotal.WithLabelValues("intake", "reopen").Add(float64(len(res.Processed)))
	return res, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*domain.Intake, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error) {
	return s.repo.List(ctx, filter)
}

func applyPatch(i *domain.Intake, p ports.IntakePatch) {
	if p.Timestamp != nil {
		i.Timestamp = *p.Timestamp
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		i.UnitPrice = *p.UnitPrice
	}
	if p.Supplier != nil {
		i.Supplier = *p.Supplier
	}
	if p.InvoiceNumber != nil {
		i.InvoiceNumber = *p.InvoiceNumber
	}
	if p.Notes != nil {
		i.Notes = *p.Notes
	}
}

func (s *Service) recomputeTanks(ctx context.Context, touched map[uint]bool) ([]*domain.Tank, error) {
	ids := make([]uint, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*domain.Tank, 0, len(ids))
	for _, id := range ids {
		t, err := s.tanks.Recompute(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) note(ctx context.Context, i *domain.Intake, actor *domain.User, body string) error {
	err := s.audit.Append(ctx, &domain.AuditNote{
		Entity:   domain.AuditEntityIntake,
		EntityID: i.ID,
		AuthorID: actor.ID,
		Body:     body,
	})
	if err != nil {
		return fmt.Errorf("append audit note: %w", err)
	}
	return nil
}

func (s *Service) reject(action string, err error) error {
	telemetry.WorkflowRejectionsTotal.WithLabelValues("intake", domain.Reason(err)).Inc()
	s.log.Info("Intake action rejected",
		zap.String("action", action),
		zap.String("reason", domain.Reason(err)),
		zap.Error(err),
	)
	return err
}

func intakeIDs(items []*domain.Intake) []uint {
	ids := make([]uint, 0, len(items))
	for _, i := range items {
		ids = append(ids, i.ID)
	}
	return ids
}

func noIDs() error {
	v := &domain.ValidationError{}
	v.Add("ids", "at least one id is required")
	return v
}
