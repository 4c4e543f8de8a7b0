package refueling

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
	// Code prefixes generated sequence numbers, e.g. REF/2026/00042.
	Code     string
	Location *time.Location
}

type Params struct {
	Repo        ports.RefuelingRepository
	Tanks       ports.TankService
	Vehicles    ports.VehicleRepository
	Drivers     ports.DriverRepository
	Attachments ports.AttachmentRepository
	Audit       ports.AuditRepository
	Sequence    ports.SequenceGenerator
	Tx          ports.Transactor
	Events      ports.EventDispatcher
	Notifier    ports.StockNotifier
	Config      Config
	Log         *zap.Logger
}

type Service struct {
	repo        ports.RefuelingRepository
	tanks       ports.TankService
	vehicles    ports.VehicleRepository
	drivers     ports.DriverRepository
	attachments ports.AttachmentRepository
	audit       ports.AuditRepository
	seq         ports.SequenceGenerator
	tx          ports.Transactor
	events      ports.EventDispatcher
	notifier    ports.StockNotifier
	cfg         Config
	log         *zap.Logger
	now         func() time.Time
}

func NewService(p Params) *Service {
	cfg := p.Config
	if cfg.Code == "" {
		cfg.Code = "REF"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		repo:        p.Repo,
		tanks:       p.Tanks,
		vehicles:    p.Vehicles,
		drivers:     p.Drivers,
		attachments: p.Attachments,
		audit:       p.Audit,
		seq:         p.Sequence,
		tx:          p.Tx,
		events:      p.Events,
		notifier:    p.Notifier,
		cfg:         cfg,
		log:         p.Log,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor *domain.User, in ports.RefuelingInput) (*domain.Refueling, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, &domain.AuthorizationError{Action: "refueling.create"}
	}

	r := &domain.Refueling{
		SequenceNumber: strings.TrimSpace(in.SequenceNumber),
		Timestamp:      s.now(),
		VehicleID:      in.VehicleID,
		DriverID:       in.DriverID,
		RecorderID:     actor.ID,
		GaugeReading:   in.GaugeReading,
		ReadingKind:    in.ReadingKind,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		Notes:          in.Notes,
		State:          domain.StateDraft,
	}
	if in.Timestamp != nil {
		r.Timestamp = *in.Timestamp
	}
	if r.ReadingKind == "" {
		r.ReadingKind = domain.ReadingOdometer
	}

	r.ComputeTotal()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.resolveVehicle(ctx, r, true); err != nil {
		return nil, err
	}
	if err := s.resolveDriver(ctx, r); err != nil {
		return nil, err
	}
	if err := s.resolveTank(ctx, r, in.TankID); err != nil {
		return nil, err
	}

	if r.SequenceNumber == "" {
		year := r.Timestamp.In(s.cfg.Location).Year()
		n, err := s.seq.Next(ctx, domain.SequenceKey(s.cfg.Code, year))
		if err != nil {
			return nil, err
		}
		r.SequenceNumber = domain.FormatSequence(s.cfg.Code, year, n)
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create refueling: %w", err)
	}

	s.log.Info("Refueling recorded",
		zap.Uint("id", r.ID),
		zap.String("sequence", r.SequenceNumber),
		zap.Uint("vehicle_id", r.VehicleID),
		zap.Float64("quantity", r.Quantity),
	)
	return r, nil
}

func (s *Service) Update(ctx context.Context, actor *domain.User, id uint, patch ports.RefuelingPatch) (*domain.Refueling, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, &domain.AuthorizationError{Action: "refueling.update"}
	}

	var (
		result *domain.Refueling
		after  *domain.Tank
		delta  float64
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if r.State.Locked() && !actor.IsAdmin() {
			return &domain.AuthorizationError{Action: "refueling.update"}
		}

		if r.DispensedAt != nil {
			if _, err := s.tanks.Lock(ctx, r.TankID); err != nil {
				return err
			}
			if r, err = s.repo.FindByID(ctx, id); err != nil {
				return err
			}
		}

		oldQty := r.Quantity
		if err := s.applyPatch(ctx, r, patch); err != nil {
			return err
		}
		r.ComputeTotal()
		if err := r.Validate(); err != nil {
			return err
		}

		delta = r.Quantity - oldQty
		if r.DispensedAt != nil && delta > 0 {
			if _, err := s.tanks.Reserve(ctx, r.TankID, delta); err != nil {
				return err
			}
		}
		if r.State == domain.StateConfirmed {
			if err := s.recomputeEfficiency(ctx, r); err != nil {
				return err
			}
		}

		if err := s.repo.Save(ctx, r); err != nil {
			return fmt.Errorf("save refueling: %w", err)
		}

		if r.DispensedAt != nil {
			if err := s.note(ctx, r, actor, fmt.Sprintf("Dispensed refueling edited by administrator: quantity %.2f L -> %.2f L", oldQty, r.Quantity)); err != nil {
				return err
			}
			if after, err = s.tanks.Recompute(ctx, r.TankID); err != nil {
				return err
			}
		}
		result = r
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

// Delete removes a record that never reached the ledger. Confirmed records
// are a conflict whatever the caller's role.
func (s *Service) Delete(ctx context.Context, actor *domain.User, id uint) error {
	var after *domain.Tank
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if r.State == domain.StateConfirmed {
			return &domain.ConflictError{Message: "confirmed refuelings cannot be deleted"}
		}
		if !actor.HasRole(domain.UserRoleOperator) {
			return &domain.AuthorizationError{Action: "refueling.delete"}
		}

		if r.DispensedAt != nil {
			if !actor.IsAdmin() {
				return &domain.AuthorizationError{Action: "refueling.delete_dispensed"}
			}
			reason := fmt.Sprintf("refueling %s deleted after dispensing", r.SequenceNumber)
			if _, err := s.tanks.AbsorbOutflow(ctx, actor, r.TankID, r.Quantity, reason); err != nil {
				return err
			}
		}

		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}

		if r.DispensedAt != nil {
			if after, err = s.tanks.Recompute(ctx, r.TankID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if after != nil && s.events != nil {
		s.events.Dispatch(ctx, domain.NewStockEvent(domain.SubjectTankRecomputed, after, 0, actor.ID, id))
	}
	s.log.Info("Refueling deleted", zap.Uint("id", id), zap.Uint("actor_id", actor.ID))
	return nil
}

// Confirm draws each draft record from its tank under the tank row lock.
// Records not in draft are skipped. Any failure rolls the whole batch back.
func (s *Service) Confirm(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
	ctx, span := telemetry.Tracer("refueling").Start(ctx, "Refueling.Confirm")
	defer span.End()
	span.SetAttributes(attribute.Int("refueling.batch_size", len(ids)))

	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, s.reject("confirm", &domain.AuthorizationError{Action: "refueling.confirm"})
	}
	if len(ids) == 0 {
		return nil, noIDs()
	}

	var (
		res       *domain.RefuelingResult
		before    map[uint]*domain.Tank
		after     map[uint]*domain.Tank
		dispensed float64
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res = &domain.RefuelingResult{}
		before = make(map[uint]*domain.Tank)
		dispensed = 0

		for _, id := range ids {
			r, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if r.State != domain.StateDraft {
				res.Skipped = append(res.Skipped, id)
				continue
			}
			if r.TankID == 0 {
				return &domain.ConfigurationError{Message: fmt.Sprintf("refueling %s has no tank; configure a tank before confirming", r.SequenceNumber)}
			}

			locked, err := s.tanks.Lock(ctx, r.TankID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.ConfigurationError{Message: fmt.Sprintf("tank %d of refueling %s does not exist", r.TankID, r.SequenceNumber)}
				}
				return err
			}
			if _, seen := before[r.TankID]; !seen {
				snapshot := *locked
				before[r.TankID] = &snapshot
			}

			// Re-read under the lock: a concurrent confirm may have won.
			if r, err = s.repo.FindByID(ctx, id); err != nil {
				return err
			}
			if r.State != domain.StateDraft {
				res.Skipped = append(res.Skipped, id)
				continue
			}

			if _, err := s.tanks.Reserve(ctx, r.TankID, r.Quantity); err != nil {
				return err
			}

			now := s.now()
			r.State = domain.StateConfirmed
			r.DispensedAt = &now
			if err := s.recomputeEfficiency(ctx, r); err != nil {
				return err
			}
			if err := s.repo.Save(ctx, r); err != nil {
				return fmt.Errorf("save refueling: %w", err)
			}
			if err := s.note(ctx, r, actor, fmt.Sprintf("Refueling confirmed: %.2f L", r.Quantity)); err != nil {
				return err
			}

			res.Processed = append(res.Processed, r)
			dispensed += r.Quantity
		}

		var err error
		after, res.Tank, err = s.recomputeTanks(ctx, before)
		return err
	})
	if err != nil {
		return nil, s.reject("confirm", err)
	}

	telemetry.WorkflowTransitionsTotal.WithLabelValues("refueling", "confirm").Add(float64(len(res.Processed)))
	telemetry.LitersDispensedTotal.Add(dispensed)
	s.afterCommit(ctx, actor, domain.SubjectRefuelingConfirmed, res.Processed, dispensed, before, after)

	s.log.Info("Refuelings confirmed",
		zap.Int("confirmed", len(res.Processed)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Float64("liters", dispensed),
		zap.Uint("actor_id", actor.ID),
	)
	return res, nil
}

// Cancel moves records to cancelled. Cancelling a confirmed record needs an
// administrator and does not put the fuel back in the tank.
func (s *Service) Cancel(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, s.reject("cancel", &domain.AuthorizationError{Action: "refueling.cancel"})
	}
	if len(ids) == 0 {
		return nil, noIDs()
	}

	var (
		res    *domain.RefuelingResult
		before map[uint]*domain.Tank
		after  map[uint]*domain.Tank
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res = &domain.RefuelingResult{}
		before = make(map[uint]*domain.Tank)

		for _, id := range ids {
			r, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}

			switch r.State {
			case domain.StateDraft:
				r.State = domain.StateCancelled
				if err := s.repo.Save(ctx, r); err != nil {
					return fmt.Errorf("save refueling: %w", err)
				}
				if err := s.note(ctx, r, actor, "Refueling cancelled"); err != nil {
					return err
				}
			case domain.StateConfirmed:
				if !actor.IsAdmin() {
					return &domain.AuthorizationError{Action: "refueling.cancel_confirmed"}
				}
				locked, err := s.tanks.Lock(ctx, r.TankID)
				if err != nil {
					return err
				}
				if _, seen := before[r.TankID]; !seen {
					snapshot := *locked
					before[r.TankID] = &snapshot
				}

				r.State = domain.StateCancelled
				r.ApplyEfficiency(nil)
				if err := s.repo.Save(ctx, r); err != nil {
					return fmt.Errorf("save refueling: %w", err)
				}
				body := fmt.Sprintf("Confirmed refueling cancelled by administrator. Stock was NOT reversed: %.2f L remain counted as dispensed. Adjust the tank baseline manually if the fuel did not leave the tank.", r.Quantity)
				if err := s.note(ctx, r, actor, body); err != nil {
					return err
				}
				s.log.Warn("Confirmed refueling cancelled without stock reversal",
					zap.Uint("id", r.ID),
					zap.Float64("quantity", r.Quantity),
					zap.Uint("actor_id", actor.ID),
				)
			default:
				res.Skipped = append(res.Skipped, id)
				continue
			}
			res.Processed = append(res.Processed, r)
		}

		var err error
		after, res.Tank, err = s.recomputeTanks(ctx, before)
		return err
	})
	if err != nil {
		return nil, s.reject("cancel", err)
	}

	telemetry.WorkflowTransitionsTotal.WithLabelValues("refueling", "cancel").Add(float64(len(res.Processed)))
	s.afterCommit(ctx, actor, domain.SubjectRefuelingCancelled, res.Processed, 0, before, after)
	return res, nil
}

// Reopen returns cancelled records to draft. A record whose fuel was
// dispensed is released from the ledger, which only an administrator may do.
func (s *Service) Reopen(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, s.reject("reopen", &domain.AuthorizationError{Action: "refueling.reopen"})
	}
	if len(ids) == 0 {
		return nil, noIDs()
	}

	var (
		res    *domain.RefuelingResult
		before map[uint]*domain.Tank
		after  map[uint]*domain.Tank
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res = &domain.RefuelingResult{}
		before = make(map[uint]*domain.Tank)

		for _, id := range ids {
			r, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if r.State != domain.StateCancelled {
				res.Skipped = append(res.Skipped, id)
				continue
			}

			body := "Refueling reopened"
			if r.DispensedAt != nil {
				if !actor.IsAdmin() {
					return &domain.AuthorizationError{Action: "refueling.reopen_dispensed"}
				}
				locked, err := s.tanks.Lock(ctx, r.TankID)
				if err != nil {
					return err
				}
				if _, seen := before[r.TankID]; !seen {
					snapshot := *locked
					before[r.TankID] = &snapshot
				}
				r.DispensedAt = nil
				body = fmt.Sprintf("Refueling reopened: %.2f L released from the tank until confirmed again", r.Quantity)
			}

			r.State = domain.StateDraft
			if err := s.repo.Save(ctx, r); err != nil {
				return fmt.Errorf("save refueling: %w", err)
			}
			if err := s.note(ctx, r, actor, body); err != nil {
				return err
			}
			res.Processed = append(res.Processed, r)
		}

		var err error
		after, res.Tank, err = s.recomputeTanks(ctx, before)
		return err
	})
	if err != nil {
		return nil, s.reject("reopen", err)
	}

	telemetry.WorkflowTransitionsTotal.WithLabelValues("refueling", "reopen").Add(float64(len(res.Processed)))
	if len(after) > 0 {
		s.afterCommit(ctx, actor, domain.SubjectTankRecomputed, res.Processed, 0, before, after)
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*domain.Refueling, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error) {
	return s.repo.List(ctx, filter)
}

// AttachReceipt stores the receipt image and links it to the record.
func (s *Service) AttachReceipt(ctx context.Context, actor *domain.User, id uint, filename, contentType string, data []byte) (*domain.Refueling, error) {
	if !actor.HasRole(domain.UserRoleOperator) {
		return nil, &domain.AuthorizationError{Action: "refueling.attach_receipt"}
	}

	v := &domain.ValidationError{}
	if len(data) == 0 {
		v.Add("file", "is empty")
	}
	if !strings.HasPrefix(contentType, "image/") && contentType != "application/pdf" {
		v.Add("file", "must be an image or a PDF")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var result *domain.Refueling
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if r.State.Locked() && !actor.IsAdmin() {
			return &domain.AuthorizationError{Action: "refueling.attach_receipt"}
		}

		a := &domain.Attachment{Filename: filename, ContentType: contentType, Data: data}
		if err := s.attachments.Save(ctx, a); err != nil {
			return fmt.Errorf("save attachment: %w", err)
		}
		r.AttachmentID = &a.ID
		if err := s.repo.Save(ctx, r); err != nil {
			return fmt.Errorf("save refueling: %w", err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) applyPatch(ctx context.Context, r *domain.Refueling, p ports.RefuelingPatch) error {
	if p.Timestamp != nil {
		r.Timestamp = *p.Timestamp
	}
	if p.GaugeReading != nil {
		r.GaugeReading = *p.GaugeReading
	}
	if p.ReadingKind != nil {
		r.ReadingKind = *p.ReadingKind
	}
	if p.Quantity != nil {
		r.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		r.UnitPrice = *p.UnitPrice
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.DriverID != nil {
		id := *p.DriverID
		r.DriverID = &id
		if err := s.resolveDriver(ctx, r); err != nil {
			return err
		}
	}
	if p.VehicleID != nil && *p.VehicleID != r.VehicleID {
		r.VehicleID = *p.VehicleID
		if err := s.resolveVehicle(ctx, r, p.DriverID == nil); err != nil {
			return err
		}
	}
	return nil
}

// resolveVehicle copies the plate from the fleet directory and, when asked,
// fills the driver from the vehicle's default.
func (s *Service) resolveVehicle(ctx context.Context, r *domain.Refueling, defaultDriver bool) error {
	v, err := s.vehicles.FindByID(ctx, r.VehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		ve := &domain.ValidationError{}
		ve.Add("vehicle_id", "unknown vehicle")
		return ve
	}
	if err != nil {
		return err
	}

	r.LicensePlate = v.LicensePlate
	if defaultDriver && r.DriverID == nil && v.DefaultDriverID != nil {
		id := *v.DefaultDriverID
		r.DriverID = &id
	}
	return nil
}

func (s *Service) resolveDriver(ctx context.Context, r *domain.Refueling) error {
	if r.DriverID == nil || s.drivers == nil {
		return nil
	}
	_, err := s.drivers.FindByID(ctx, *r.DriverID)
	if errors.Is(err, domain.ErrNotFound) {
		ve := &domain.ValidationError{}
		ve.Add("driver_id", "unknown driver")
		return ve
	}
	return err
}

func (s *Service) resolveTank(ctx context.Context, r *domain.Refueling, tankID *uint) error {
	if tankID != nil {
		t, err := s.tanks.Get(ctx, *tankID)
		if errors.Is(err, domain.ErrNotFound) {
			ve := &domain.ValidationError{}
			ve.Add("tank_id", "unknown tank")
			return ve
		}
		if err != nil {
			return err
		}
		r.TankID = t.ID
		return nil
	}

	t, err := s.tanks.GetOrCreateDefault(ctx)
	if err != nil {
		return err
	}
	r.TankID = t.ID
	return nil
}

func (s *Service) recomputeEfficiency(ctx context.Context, r *domain.Refueling) error {
	prev, err := s.repo.FindPreviousConfirmed(ctx, r.VehicleID, r.ReadingKind, r.ID)
	if err != nil {
		return fmt.Errorf("find previous refueling: %w", err)
	}
	r.ApplyEfficiency(prev)
	return nil
}

// recomputeTanks refreshes every touched tank in id order and returns the
// new snapshots plus the last one for the response.
func (s *Service) recomputeTanks(ctx context.Context, touched map[uint]*domain.Tank) (map[uint]*domain.Tank, *domain.Tank, error) {
	ids := make([]uint, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	after := make(map[uint]*domain.Tank, len(ids))
	var last *domain.Tank
	for _, id := range ids {
		t, err := s.tanks.Recompute(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		after[id] = t
		last = t
	}
	return after, last, nil
}

func (s *Service) note(ctx context.Context, r *domain.Refueling, actor *domain.User, body string) error {
	err := s.audit.Append(ctx, &domain.AuditNote{
		Entity:   domain.AuditEntityRefueling,
		EntityID: r.ID,
		AuthorID: actor.ID,
		Body:     body,
	})
	if err != nil {
		return fmt.Errorf("append audit note: %w", err)
	}
	return nil
}

func (s *Service) afterCommit(ctx context.Context, actor *domain.User, subject string, processed []*domain.Refueling, liters float64, before, after map[uint]*domain.Tank) {
	if len(processed) == 0 {
		return
	}

	ids := make([]uint, 0, len(processed))
	for _, r := range processed {
		ids = append(ids, r.ID)
	}

	var tank *domain.Tank
	for _, t := range after {
		tank = t
	}
	if s.events != nil {
		s.events.Dispatch(ctx, domain.NewStockEvent(subject, tank, liters, actor.ID, ids...))
	}

	if s.notifier == nil {
		return
	}
	for id, t := range after {
		if err := s.notifier.NotifyIfCritical(ctx, before[id], t); err != nil {
			s.log.Warn("Low stock notification failed", zap.Uint("tank_id", id), zap.Error(err))
		}
	}
}

func (s *Service) reject(action string, err error) error {
	telemetry.WorkflowRejectionsTotal.WithLabelValues("refueling", domain.Reason(err)).Inc()
	s.log.Info("Refueling action rejected",
		zap.String("action", action),
		zap.String("reason", domain.Reason(err)),
		zap.Error(err),
	)
	return err
}

func noIDs() error {
	v := &domain.ValidationError{}
	v.Add("ids", "at least one id is required")
	return v
}
