package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/mocks"
	"github.com/seu-repo/fuel-control/internal/ports"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newMockService(repo *mocks.MockIntakeRepository, tanks *mocks.MockTankService, dispatcher *mocks.MockEventDispatcher) *Service {
	return NewService(Params{
		Repo:     repo,
		Tanks:    tanks,
		Audit:    &mocks.MockAuditRepository{},
		Sequence: &mocks.MockSequenceGenerator{},
		Tx:       &mocks.MockTransactor{},
		Events:   dispatcher,
		Config:   Config{Code: "INT", Location: time.UTC},
		Log:      newTestLogger(),
	})
}

func TestCreate_AssignsReference(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service := newMockService(&mocks.MockIntakeRepository{}, &mocks.MockTankService{}, &mocks.MockEventDispatcher{})
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Act
	i, err := service.Create(ctx, &domain.User{ID: 2, Roles: "operator"}, ports.IntakeInput{
		Timestamp: &ts,
		Quantity:  5000,
		UnitPrice: 5.1,
		Supplier:  "Petro Distribuidora",
	})

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if i.Reference != "INT/2026/00001" {
		t.Errorf("unexpected reference %q", i.Reference)
	}
	if i.State != domain.StateDraft {
		t.Errorf("expected draft, got %s", i.State)
	}
	if i.TankID != 1 {
		t.Errorf("expected default tank, got %d", i.TankID)
	}
	if i.TotalAmount != 25500 {
		t.Errorf("expected total 25500, got %v", i.TotalAmount)
	}
}

func TestCreate_RejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	service := newMockService(&mocks.MockIntakeRepository{}, &mocks.MockTankService{}, &mocks.MockEventDispatcher{})

	_, err := service.Create(ctx, &domain.User{ID: 2, Roles: "operator"}, ports.IntakeInput{Quantity: 0, UnitPrice: 5})

	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestConfirm_CapacityExceededLeavesDraft(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Intake{ID: 7, Reference: "INT/2026/00007", TankID: 1, Quantity: 2000, State: domain.StateDraft}
	repo := &mocks.MockIntakeRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Intake, error) {
			cp := *stored
			return &cp, nil
		},
		SaveFunc: func(ctx context.Context, i *domain.Intake) error {
			t.Fatal("rejected intake must not be saved")
			return nil
		},
	}
	tanks := &mocks.MockTankService{
		ReceiveFunc: func(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error) {
			return nil, &domain.CapacityExceededError{Capacity: 6000, Current: 5000, Requested: quantity}
		},
	}
	dispatcher := &mocks.MockEventDispatcher{}
	service := newMockService(repo, tanks, dispatcher)

	_, err := service.Confirm(ctx, &domain.User{ID: 2, Roles: "operator"}, 7)

	var capErr *domain.CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}
	if len(dispatcher.Events) != 0 {
		t.Errorf("no event expected, got %v", dispatcher.Subjects())
	}
}

func TestConfirm_PublishesIntakeConfirmed(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.MockIntakeRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Intake, error) {
			return &domain.Intake{ID: id, TankID: 1, Quantity: 1500, State: domain.StateDraft}, nil
		},
	}
	tanks := &mocks.MockTankService{
		RecomputeFunc: func(ctx context.Context, tankID uint) (*domain.Tank, error) {
			return &domain.Tank{ID: tankID, CurrentStock: 1500}, nil
		},
	}
	dispatcher := &mocks.MockEventDispatcher{}
	service := newMockService(repo, tanks, dispatcher)

	res, err := service.Confirm(ctx, &domain.User{ID: 2, Roles: "operator"}, 3)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Processed) != 1 || res.Processed[0].State != domain.StateConfirmed {
		t.Fatalf("expected one confirmed intake, got %+v", res)
	}
	if res.Tank == nil || res.Tank.CurrentStock != 1500 {
		t.Errorf("expected recomputed tank, got %+v", res.Tank)
	}
	subjects := dispatcher.Subjects()
	if len(subjects) != 1 || subjects[0] != domain.SubjectIntakeConfirmed {
		t.Errorf("expected intake.confirmed, got %v", subjects)
	}
	if dispatcher.Events[0].Quantity != 1500 {
		t.Errorf("expected 1500 L in event, got %v", dispatcher.Events[0].Quantity)
	}
}

func TestCancel_ConfirmedIsConflict(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.MockIntakeRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Intake, error) {
			return &domain.Intake{ID: id, State: domain.StateConfirmed}, nil
		},
	}
	service := newMockService(repo, &mocks.MockTankService{}, &mocks.MockEventDispatcher{})

	for _, actor := range []*domain.User{{ID: 1, Roles: "admin"}, {ID: 2, Roles: "operator"}} {
		_, err := service.Cancel(ctx, actor, 1)
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("expected ConflictError for %s, got %v", actor.Roles, err)
		}
	}
}

func TestDelete_ConfirmedIsConflict(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.MockIntakeRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Intake, error) {
			return &domain.Intake{ID: id, State: domain.StateConfirmed}, nil
		},
	}
	service := newMockService(repo, &mocks.MockTankService{}, &mocks.MockEventDispatcher{})

	err := service.Delete(ctx, &domain.User{ID: 1, Roles: "admin"}, 1)

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestDelete_AnalystChecksStateFirst(t *testing.T) {
	// Arrange
	ctx := context.Background()
	states := map[uint]domain.DocumentState{1: domain.StateConfirmed, 2: domain.StateCancelled}
	repo := &mocks.MockIntakeRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Intake, error) {
			return &domain.Intake{ID: id, State: states[id]}, nil
		},
		DeleteFunc: func(ctx context.Context, id uint) error {
			t.Fatal("analyst must not delete intakes")
			return nil
		},
	}
	service := newMockService(repo, &mocks.MockTankService{}, &mocks.MockEventDispatcher{})
	analyst := &domain.User{ID: 3, Roles: "analyst"}

	// Act
	confirmedErr := service.Delete(ctx, analyst, 1)
	cancelledErr := service.Delete(ctx, analyst, 2)

	// Assert
	var conflict *domain.ConflictError
	if !errors.As(confirmedErr, &conflict) {
		t.Errorf("expected ConflictError for a confirmed intake, got %v", confirmedErr)
	}
	var authErr *domain.AuthorizationError
	if !errors.As(cancelledErr, &authErr) {
		t.Errorf("expected AuthorizationError for a cancelled intake, got %v", cancelledErr)
	}
}

func TestReopen_OnlyCancelled(t *testing.T) {
	ctx := context.Background()
	states := map[uint]domain.DocumentState{1: domain.StateCancelled, 2: domain.StateDraft}
	repo := &mocks.MockIntakeRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Intake, error) {
			return &domain.Intake{ID: id, State: states[id]}, nil
		},
	}
	service := newMockService(repo, &mocks.MockTankService{}, &mocks.MockEventDispatcher{})

	res, err := service.Reopen(ctx, &domain.User{ID: 2, Roles: "operator"}, 1, 2)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Processed) != 1 || res.Processed[0].ID != 1 {
		t.Errorf("expected intake 1 reopened, got %+v", res.Processed)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != 2 {
		t.Errorf("expected intake 2 skipped, got %v", res.Skipped)
	}
}

func TestUpdate_ConfirmedQuantityRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.MockIntakeRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.Intake, error) {
			return &domain.Intake{ID: id, TankID: 1, Quantity: 1000, UnitPrice: 5, State: domain.StateConfirmed}, nil
		},
	}
	var received float64
	tanks := &mocks.MockTankService{
		ReceiveFunc: func(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error) {
			received = quantity
			return &domain.Tank{ID: tankID}, nil
		},
	}
	dispatcher := &mocks.MockEventDispatcher{}
	service := newMockService(repo, tanks, dispatcher)
	qty := 1200.0

	_, err := service.Update(ctx, &domain.User{ID: 2, Roles: "operator"}, 1, ports.IntakePatch{Quantity: &qty})
	var authErr *domain.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}

	i, err := service.Update(ctx, &domain.User{ID: 1, Roles: "admin"}, 1, ports.IntakePatch{Quantity: &qty})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if received != 200 {
		t.Errorf("expected capacity check for the 200 L increase, got %v", received)
	}
	if i.TotalAmount != 6000 {
		t.Errorf("expected total 6000, got %v", i.TotalAmount)
	}
	if len(dispatcher.Events) != 1 || dispatcher.Events[0].Subject != domain.SubjectTankRecomputed {
		t.Errorf("expected tank.recomputed, got %v", dispatcher.Subjects())
	}
}
