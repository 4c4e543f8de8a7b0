package tank

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// fakeLedger backs the tank repository mock with fixed movement sums.
func fakeLedger(tank *domain.Tank, inflow, outflow float64) *mocks.MockTankRepository {
	return &mocks.MockTankRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Tank, error) {
			if id != tank.ID {
				return nil, domain.ErrNotFound
			}
			cp := *tank
			return &cp, nil
		},
		SumMovementsFunc: func(ctx context.Context, tankID uint) (float64, float64, error) {
			return inflow, outflow, nil
		},
		SaveFunc: func(ctx context.Context, t *domain.Tank) error {
			*tank = *t
			return nil
		},
	}
}

func TestGetOrCreateDefault_CreatesOnFirstAccess(t *testing.T) {
	// Arrange
	ctx := context.Background()
	var created *domain.Tank

	repo := &mocks.MockTankRepository{
		FindDefaultFunc: func(ctx context.Context) (*domain.Tank, error) {
			return nil, nil
		},
		CreateFunc: func(ctx context.Context, tank *domain.Tank) error {
			tank.ID = 1
			created = tank
			return nil
		},
	}
	service := NewService(repo, &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	// Act
	tank, err := service.GetOrCreateDefault(ctx)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created == nil {
		t.Fatal("expected tank to be created")
	}
	if tank.Capacity != 6000 || tank.Name != "Main Tank" {
		t.Errorf("unexpected defaults: %+v", tank)
	}
	if tank.Status != domain.TankStatusCritical {
		t.Errorf("empty tank should be critical, got %s", tank.Status)
	}
}

func TestGetOrCreateDefault_ReturnsExisting(t *testing.T) {
	ctx := context.Background()
	existing := &domain.Tank{ID: 7, Name: "Yard", Capacity: 1000}

	repo := &mocks.MockTankRepository{
		FindDefaultFunc: func(ctx context.Context) (*domain.Tank, error) {
			return existing, nil
		},
		CreateFunc: func(ctx context.Context, tank *domain.Tank) error {
			t.Fatal("must not create a second tank")
			return nil
		},
		SumMovementsFunc: func(ctx context.Context, tankID uint) (float64, float64, error) {
			return 800, 100, nil
		},
	}
	service := NewService(repo, &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	tank, err := service.GetOrCreateDefault(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tank.ID != 7 || tank.CurrentStock != 700 {
		t.Errorf("unexpected tank: %+v", tank)
	}
}

func TestRecompute_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Name: "Main Tank", Capacity: 6000, ManualBaseline: 100}
	service := NewService(fakeLedger(stored, 5000, 2000), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	first, err := service.Recompute(ctx, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := service.Recompute(ctx, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if first.CurrentStock != 3100 || second.CurrentStock != 3100 {
		t.Errorf("expected stock 3100 twice, got %v and %v", first.CurrentStock, second.CurrentStock)
	}
	if first.Status != second.Status || first.FillPercentage != second.FillPercentage {
		t.Errorf("recompute not idempotent: %+v vs %+v", first, second)
	}
	if stored.CurrentStock != 3100 {
		t.Errorf("snapshot should be persisted, got %v", stored.CurrentStock)
	}
}

func TestReserve_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	service := NewService(fakeLedger(stored, 5000, 0), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	_, err := service.Reserve(ctx, 1, 6000)

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 5000 || stockErr.Requested != 6000 {
		t.Errorf("unexpected figures: %+v", stockErr)
	}
	if stored.LastOutflowAt != nil {
		t.Error("failed reserve must not touch the tank")
	}
}

func TestReserve_RecordsOutflowTime(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	service := NewService(fakeLedger(stored, 5000, 0), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	tank, err := service.Reserve(ctx, 1, 2000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tank.CurrentStock != 5000 {
		t.Errorf("reserve must not mutate stock, got %v", tank.CurrentStock)
	}
	if stored.LastOutflowAt == nil {
		t.Error("expected last outflow time to be recorded")
	}
}

func TestReceive_CapacityExceeded(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	service := NewService(fakeLedger(stored, 5000, 0), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	_, err := service.Receive(ctx, 1, 1500)

	var capErr *domain.CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	if capErr.Current != 5000 || capErr.Requested != 1500 {
		t.Errorf("unexpected figures: %+v", capErr)
	}

	if _, err := service.Receive(ctx, 1, 1000); err != nil {
		t.Errorf("filling to capacity should succeed, got %v", err)
	}
}

func TestHasAvailable(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	service := NewService(fakeLedger(stored, 300, 100), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	ok, err := service.HasAvailable(ctx, 1, 200)
	if err != nil || !ok {
		t.Errorf("expected 200 L to be available, got %v (%v)", ok, err)
	}
	ok, _ = service.HasAvailable(ctx, 1, 200.5)
	if ok {
		t.Error("expected 200.5 L to be unavailable")
	}
}

func TestAdjustBaseline_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	service := NewService(fakeLedger(stored, 0, 0), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())

	operator := &domain.User{ID: 2, Roles: "operator"}
	_, err := service.AdjustBaseline(ctx, operator, 1, 1000)

	var authErr *domain.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestAdjustBaseline_WritesAuditNote(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	audit := &mocks.MockAuditRepository{}
	tx := &mocks.MockTransactor{}
	service := NewService(fakeLedger(stored, 1000, 0), audit, tx, DefaultConfig(), newTestLogger())

	admin := &domain.User{ID: 1, Roles: "admin"}
	tank, err := service.AdjustBaseline(ctx, admin, 1, 2500)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if tank.CurrentStock != 3500 {
		t.Errorf("expected stock 3500, got %v", tank.CurrentStock)
	}
	if tx.Calls != 1 {
		t.Errorf("expected one transaction, got %d", tx.Calls)
	}
	if len(audit.Notes) != 1 || audit.Notes[0].Entity != domain.AuditEntityTank {
		t.Errorf("expected one tank audit note, got %+v", audit.Notes)
	}
}

func TestAdjustBaseline_NegativeOffsetAllowedWhileStockHolds(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	service := NewService(fakeLedger(stored, 5000, 3000), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())
	admin := &domain.User{ID: 1, Roles: "admin"}

	tank, err := service.AdjustBaseline(ctx, admin, 1, -1500)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tank.ManualBaseline != -1500 || tank.CurrentStock != 500 {
		t.Errorf("expected baseline -1500 and stock 500, got %v and %v", tank.ManualBaseline, tank.CurrentStock)
	}

	_, err = service.AdjustBaseline(ctx, admin, 1, -2500)
	var v *domain.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if stored.ManualBaseline != -1500 {
		t.Errorf("rejected baseline must not be saved, got %v", stored.ManualBaseline)
	}
}

func TestAbsorbOutflow_BaselineRoundTripsThroughAdjust(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 6000}
	ledger := fakeLedger(stored, 5000, 2000)
	service := NewService(ledger, &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, DefaultConfig(), newTestLogger())
	admin := &domain.User{ID: 1, Roles: "admin"}

	// The dispensed record leaves the history; the baseline takes its place.
	if _, err := service.AbsorbOutflow(ctx, admin, 1, 2000, "record deleted"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	ledger.SumMovementsFunc = func(ctx context.Context, tankID uint) (float64, float64, error) {
		return 5000, 0, nil
	}

	tank, err := service.AdjustBaseline(ctx, admin, 1, stored.ManualBaseline)
	if err != nil {
		t.Fatalf("re-entering the current baseline must succeed, got %v", err)
	}
	if tank.CurrentStock != 3000 {
		t.Errorf("expected stock 3000, got %v", tank.CurrentStock)
	}
}

func TestThresholdsFromConfig(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Tank{ID: 1, Capacity: 1000}
	cfg := DefaultConfig()
	cfg.Thresholds = domain.LevelThresholds{NormalAbove: 70, WarningFrom: 40}
	service := NewService(fakeLedger(stored, 600, 0), &mocks.MockAuditRepository{}, &mocks.MockTransactor{}, cfg, newTestLogger())

	tank, err := service.Recompute(ctx, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tank.Status != domain.TankStatusWarning {
		t.Errorf("60%% with 70/40 thresholds should be warning, got %s", tank.Status)
	}
}
