package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/observability/telemetry"
	"github.com/seu-repo/fuel-control/internal/ports"
)

const generationKey = "fuel:dashboard:generation"

type Config struct {
	TTL          time.Duration
	AnomalyRatio float64
	AnomalyTopN  int
	Location     *time.Location
}

func DefaultConfig() Config {
	return Config{
		TTL:          5 * time.Minute,
		AnomalyRatio: 0.8,
		AnomalyTopN:  3,
		Location:     time.Local,
	}
}

type Params struct {
	Tanks      ports.TankService
	Refuelings ports.RefuelingRepository
	Vehicles   ports.VehicleRepository
	Users      ports.UserRepository
	Cache      ports.Cache
	Config     Config
	Log        *zap.Logger
}

// Service builds the managerial summary. Summaries are cached under a
// generation token that Invalidate replaces, so stale entries simply age out.
type Service struct {
	tanks      ports.TankService
	refuelings ports.RefuelingRepository
	vehicles   ports.VehicleRepository
	users      ports.UserRepository
	cache      ports.Cache
	cfg        Config
	log        *zap.Logger
	now        func() time.Time
}

func NewService(p Params) *Service {
	cfg := p.Config
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.AnomalyRatio <= 0 {
		cfg.AnomalyRatio = 0.8
	}
	if cfg.AnomalyTopN <= 0 {
		cfg.AnomalyTopN = 3
	}
	return &Service{
		tanks:      p.Tanks,
		refuelings: p.Refuelings,
		vehicles:   p.Vehicles,
		users:      p.Users,
		cache:      p.Cache,
		cfg:        cfg,
		log:        p.Log,
		now:        time.Now,
	}
}

func (s *Service) Summary(ctx context.Context, query domain.DashboardQuery) (*domain.DashboardSummary, error) {
	ctx, span := telemetry.Tracer("dashboard").Start(ctx, "Dashboard.Summary")
	defer span.End()

	start := time.Now()
	defer func() {
		telemetry.DashboardLatency.Observe(time.Since(start).Seconds())
	}()

	query = s.normalize(query)

	key := s.cacheKey(ctx, query)
	if key != "" {
		if cached, ok := s.fromCache(ctx, key); ok {
			return cached, nil
		}
	}

	summary, err := s.build(ctx, query)
	if err != nil {
		return nil, err
	}

	if key != "" {
		s.store(ctx, key, summary)
	}
	return summary, nil
}

// Invalidate retires every cached summary by rotating the generation token.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Set(ctx, generationKey, uuid.NewString(), 0); err != nil {
		return fmt.Errorf("rotate dashboard generation: %w", err)
	}
	return nil
}

func (s *Service) normalize(q domain.DashboardQuery) domain.DashboardQuery {
	now := s.now().In(s.cfg.Location)
	first, last := MonthRange(now)
	if q.From.IsZero() {
		q.From = first
	}
	if q.To.IsZero() {
		q.To = last
	}
	return q
}

func (s *Service) build(ctx context.Context, q domain.DashboardQuery) (*domain.DashboardSummary, error) {
	now := s.now().In(s.cfg.Location)

	tank, err := s.tanks.GetOrCreateDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tank: %w", err)
	}

	from, to := q.From, q.To
	records, err := s.refuelings.List(ctx, domain.RefuelingFilter{
		From:      &from,
		To:        &to,
		VehicleID: q.VehicleID,
		DriverID:  q.DriverID,
		State:     domain.StateConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("list refuelings: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
	weekFrom := today.AddDate(0, 0, -6)
	weekTo := today.AddDate(0, 0, 1).Add(-time.Nanosecond)
	week, err := s.refuelings.List(ctx, domain.RefuelingFilter{
		From:      &weekFrom,
		To:        &weekTo,
		VehicleID: q.VehicleID,
		DriverID:  q.DriverID,
		State:     domain.StateConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("list daily refuelings: %w", err)
	}

	vehicles, err := s.vehicleIndex(ctx, records)
	if err != nil {
		return nil, err
	}

	totals := Totals(records)
	summary := &domain.DashboardSummary{
		Tank:        Gauge(tank),
		Totals:      totals,
		Projection:  Project(totals.Liters, tank.CurrentStock, DaysElapsed(q.From, q.To, now)),
		Anomalies:   DetectAnomalies(records, vehicles, s.cfg.AnomalyRatio, s.cfg.AnomalyTopN),
		Daily:       DailySeries(week, now, totals),
		PeriodLabel: PeriodLabel(q.From.In(s.cfg.Location)),
		GeneratedAt: now,
		Filter:      q,
	}

	last, err := s.lastRefueling(ctx)
	if err != nil {
		return nil, err
	}
	summary.LastRefueling = last
	return summary, nil
}

func (s *Service) vehicleIndex(ctx context.Context, records []domain.Refueling) (map[uint]domain.Vehicle, error) {
	seen := make(map[uint]bool)
	ids := make([]uint, 0)
	for _, r := range records {
		if !seen[r.VehicleID] {
			seen[r.VehicleID] = true
			ids = append(ids, r.VehicleID)
		}
	}
	index := make(map[uint]domain.Vehicle, len(ids))
	if len(ids) == 0 {
		return index, nil
	}

	list, err := s.vehicles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}
	for _, v := range list {
		index[v.ID] = v
	}
	return index, nil
}

func (s *Service) lastRefueling(ctx context.Context) (*domain.LastRefueling, error) {
	r, err := s.refuelings.FindLastConfirmed(ctx)
	if err != nil {
		return nil, fmt.Errorf("find last refueling: %w", err)
	}
	if r == nil {
		return nil, nil
	}

	last := &domain.LastRefueling{
		ID:             r.ID,
		SequenceNumber: r.SequenceNumber,
		Timestamp:      r.Timestamp,
		VehicleID:      r.VehicleID,
		LicensePlate:   r.LicensePlate,
		Quantity:       r.Quantity,
		RecorderID:     r.RecorderID,
	}
	if v, err := s.vehicles.FindByID(ctx, r.VehicleID); err == nil {
		last.VehicleName = v.Name
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if s.users != nil {
		if u, err := s.users.FindByID(ctx, r.RecorderID); err == nil {
			last.RecorderName = u.Name
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return last, nil
}

func (s *Service) cacheKey(ctx context.Context, q domain.DashboardQuery) string {
	if s.cache == nil || s.cfg.TTL <= 0 {
		return ""
	}

	gen, err := s.cache.Get(ctx, generationKey)
	if errors.Is(err, ports.ErrCacheMiss) {
		gen = uuid.NewString()
		if err := s.cache.Set(ctx, generationKey, gen, 0); err != nil {
			s.log.Warn("Failed to seed dashboard generation", zap.Error(err))
			return ""
		}
	} else if err != nil {
		telemetry.DashboardCacheTotal.WithLabelValues("error").Inc()
		s.log.Warn("Dashboard cache unavailable", zap.Error(err))
		return ""
	}

	return fmt.Sprintf("fuel:dashboard:%s:%d:%d:%s:%s",
		gen, q.From.Unix(), q.To.Unix(), optionalID(q.VehicleID), optionalID(q.DriverID))
}

func (s *Service) fromCache(ctx context.Context, key string) (*domain.DashboardSummary, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			telemetry.DashboardCacheTotal.WithLabelValues("error").Inc()
			s.log.Warn("Dashboard cache read failed", zap.Error(err))
			return nil, false
		}
		telemetry.DashboardCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		telemetry.DashboardCacheTotal.WithLabelValues("error").Inc()
		s.log.Warn("Discarding unreadable dashboard cache entry", zap.Error(err))
		return nil, false
	}
	telemetry.DashboardCacheTotal.WithLabelValues("hit").Inc()
	return &summary, true
}

func (s *Service) store(ctx context.Context, key string, summary *domain.DashboardSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		s.log.Warn("Failed to encode dashboard summary", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), s.cfg.TTL); err != nil {
		s.log.Warn("Failed to cache dashboard summary", zap.Error(err))
	}
}

func optionalID(id *uint) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}
