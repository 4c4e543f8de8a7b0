package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

// MockTankService is a mock implementation of TankService interface
type MockTankService struct {
	GetOrCreateDefaultFunc func(ctx context.Context) (*domain.Tank, error)
	GetFunc                func(ctx context.Context, tankID uint) (*domain.Tank, error)
	RecomputeFunc          func(ctx context.Context, tankID uint) (*domain.Tank, error)
	HasAvailableFunc       func(ctx context.Context, tankID uint, quantity float64) (bool, error)
	ReserveFunc            func(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error)
	ReceiveFunc            func(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error)
	LockFunc               func(ctx context.Context, tankID uint) (*domain.Tank, error)
	AdjustBaselineFunc     func(ctx context.Context, actor *domain.User, tankID uint, baseline float64) (*domain.Tank, error)
	AbsorbOutflowFunc      func(ctx context.Context, actor *domain.User, tankID uint, quantity float64, reason string) (*domain.Tank, error)
}

func (m *MockTankService) GetOrCreateDefault(ctx context.Context) (*domain.Tank, error) {
	if m.GetOrCreateDefaultFunc != nil {
		return m.GetOrCreateDefaultFunc(ctx)
	}
	return &domain.Tank{ID: 1, Name: domain.DefaultTankName, Capacity: domain.DefaultTankCapacity}, nil
}

func (m *MockTankService) Get(ctx context.Context, tankID uint) (*domain.Tank, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, tankID)
	}
	return &domain.Tank{ID: tankID, Capacity: domain.DefaultTankCapacity}, nil
}

func (m *MockTankService) Recompute(ctx context.Context, tankID uint) (*domain.Tank, error) {
	if m.RecomputeFunc != nil {
		return m.RecomputeFunc(ctx, tankID)
	}
	return &domain.Tank{ID: tankID, Capacity: domain.DefaultTankCapacity}, nil
}

func (m *MockTankService) HasAvailable(ctx context.Context, tankID uint, quantity float64) (bool, error) {
	if m.HasAvailableFunc != nil {
		return m.HasAvailableFunc(ctx, tankID, quantity)
	}
	return true, nil
}

func (m *MockTankService) Reserve(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error) {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, tankID, quantity)
	}
	return &domain.Tank{ID: tankID}, nil
}

func (m *MockTankService) Receive(ctx context.Context, tankID uint, quantity float64) (*domain.Tank, error) {
	if m.ReceiveFunc != nil {
		return m.ReceiveFunc(ctx, tankID, quantity)
	}
	return &domain.Tank{ID: tankID}, nil
}

func (m *MockTankService) Lock(ctx context.Context, tankID uint) (*domain.Tank, error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, tankID)
	}
	return &domain.Tank{ID: tankID}, nil
}

func (m *MockTankService) AdjustBaseline(ctx context.Context, actor *domain.User, tankID uint, baseline float64) (*domain.Tank, error) {
	if m.AdjustBaselineFunc != nil {
		return m.AdjustBaselineFunc(ctx, actor, tankID, baseline)
	}
	return &domain.Tank{ID: tankID, ManualBaseline: baseline}, nil
}

func (m *MockTankService) AbsorbOutflow(ctx context.Context, actor *domain.User, tankID uint, quantity float64, reason string) (*domain.Tank, error) {
	if m.AbsorbOutflowFunc != nil {
		return m.AbsorbOutflowFunc(ctx, actor, tankID, quantity, reason)
	}
	return &domain.Tank{ID: tankID}, nil
}

// MockEventDispatcher records dispatched events.
type MockEventDispatcher struct {
	mu     sync.Mutex
	Events []domain.StockEvent
}

func (m *MockEventDispatcher) Dispatch(ctx context.Context, event domain.StockEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockEventDispatcher) Subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Subject)
	}
	return out
}

// MockStockNotifier records level transitions it was asked about.
type MockStockNotifier struct {
	mu    sync.Mutex
	Calls []TankTransition
	Err   error
}

type TankTransition struct {
	Before *domain.Tank
	After  *domain.Tank
}

func (m *MockStockNotifier) NotifyIfCritical(ctx context.Context, before, after *domain.Tank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, TankTransition{Before: before, After: after})
	return m.Err
}

func (m *MockStockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockAuthService is a mock implementation of AuthService interface
type MockAuthService struct {
	LoginFunc         func(ctx context.Context, email, password string) (string, error)
	RegisterFunc      func(ctx context.Context, actor *domain.User, user *domain.User, password string) error
	ValidateTokenFunc func(ctx context.Context, token string) (*domain.User, error)
	LogoutFunc        func(ctx context.Context, token string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return "", nil
}

func (m *MockAuthService) Register(ctx context.Context, actor *domain.User, user *domain.User, password string) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, actor, user, password)
	}
	return nil
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, token)
	}
	return nil, nil
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

// MockDashboardService is a mock implementation of DashboardService interface
type MockDashboardService struct {
	SummaryFunc    func(ctx context.Context, query domain.DashboardQuery) (*domain.DashboardSummary, error)
	InvalidateFunc func(ctx context.Context) error
}

func (m *MockDashboardService) Summary(ctx context.Context, query domain.DashboardQuery) (*domain.DashboardSummary, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, query)
	}
	return &domain.DashboardSummary{Filter: query}, nil
}

func (m *MockDashboardService) Invalidate(ctx context.Context) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx)
	}
	return nil
}

// MockRefuelingService is a mock implementation of RefuelingService interface
type MockRefuelingService struct {
	CreateFunc        func(ctx context.Context, actor *domain.User, in ports.RefuelingInput) (*domain.Refueling, error)
	UpdateFunc        func(ctx context.Context, actor *domain.User, id uint, patch ports.RefuelingPatch) (*domain.Refueling, error)
	DeleteFunc        func(ctx context.Context, actor *domain.User, id uint) error
	ConfirmFunc       func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error)
	CancelFunc        func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error)
	ReopenFunc        func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error)
	GetFunc           func(ctx context.Context, id uint) (*domain.Refueling, error)
	ListFunc          func(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error)
	AttachReceiptFunc func(ctx context.Context, actor *domain.User, id uint, filename, contentType string, data []byte) (*domain.Refueling, error)
}

func (m *MockRefuelingService) Create(ctx context.Context, actor *domain.User, in ports.RefuelingInput) (*domain.Refueling, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, in)
	}
	return &domain.Refueling{ID: 1, VehicleID: in.VehicleID, Quantity: in.Quantity, State: domain.StateDraft}, nil
}

func (m *MockRefuelingService) Update(ctx context.Context, actor *domain.User, id uint, patch ports.RefuelingPatch) (*domain.Refueling, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, actor, id, patch)
	}
	return &domain.Refueling{ID: id}, nil
}

func (m *MockRefuelingService) Delete(ctx context.Context, actor *domain.User, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, actor, id)
	}
	return nil
}

func (m *MockRefuelingService) Confirm(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, actor, ids...)
	}
	return &domain.RefuelingResult{}, nil
}

func (m *MockRefuelingService) Cancel(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, actor, ids...)
	}
	return &domain.RefuelingResult{}, nil
}

func (m *MockRefuelingService) Reopen(ctx context.Context, actor *domain.User, ids ...uint) (*domain.RefuelingResult, error) {
	if m.ReopenFunc != nil {
		return m.ReopenFunc(ctx, actor, ids...)
	}
	return &domain.RefuelingResult{}, nil
}

func (m *MockRefuelingService) Get(ctx context.Context, id uint) (*domain.Refueling, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockRefuelingService) List(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockRefuelingService) AttachReceipt(ctx context.Context, actor *domain.User, id uint, filename, contentType string, data []byte) (*domain.Refueling, error) {
	if m.AttachReceiptFunc != nil {
		return m.AttachReceiptFunc(ctx, actor, id, filename, contentType, data)
	}
	return &domain.Refueling{ID: id}, nil
}

// MockIntakeService is a mock implementation of IntakeService interface
type MockIntakeService struct {
	CreateFunc  func(ctx context.Context, actor *domain.User, in ports.IntakeInput) (*domain.Intake, error)
	UpdateFunc  func(ctx context.Context, actor *domain.User, id uint, patch ports.IntakePatch) (*domain.Intake, error)
	DeleteFunc  func(ctx context.Context, actor *domain.User, id uint) error
	ConfirmFunc func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error)
	CancelFunc  func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error)
	ReopenFunc  func(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error)
	GetFunc     func(ctx context.Context, id uint) (*domain.Intake, error)
	ListFunc    func(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error)
}

func (m *MockIntakeService) Create(ctx context.Context, actor *domain.User, in ports.IntakeInput) (*domain.Intake, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, in)
	}
	return &domain.Intake{ID: 1, Quantity: in.Quantity, State: domain.StateDraft}, nil
}

func (m *MockIntakeService) Update(ctx context.Context, actor *domain.User, id uint, patch ports.IntakePatch) (*domain.Intake, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, actor, id, patch)
	}
	return &domain.Intake{ID: id}, nil
}

func (m *MockIntakeService) Delete(ctx context.Context, actor *domain.User, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, actor, id)
	}
	return nil
}

func (m *MockIntakeService) Confirm(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, actor, ids...)
	}
	return &domain.IntakeResult{}, nil
}

func (m *MockIntakeService) Cancel(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, actor, ids...)
	}
	return &domain.IntakeResult{}, nil
}

func (m *MockIntakeService) Reopen(ctx context.Context, actor *domain.User, ids ...uint) (*domain.IntakeResult, error) {
	if m.ReopenFunc != nil {
		return m.ReopenFunc(ctx, actor, ids...)
	}
	return &domain.IntakeResult{}, nil
}

func (m *MockIntakeService) Get(ctx context.Context, id uint) (*domain.Intake, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockIntakeService) List(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

// MockReportService is a mock implementation of ReportService interface
type MockReportService struct {
	RefuelingWorkbookFunc func(ctx context.Context, filter domain.RefuelingFilter) ([]byte, error)
}

func (m *MockReportService) RefuelingWorkbook(ctx context.Context, filter domain.RefuelingFilter) ([]byte, error) {
	if m.RefuelingWorkbookFunc != nil {
		return m.RefuelingWorkbookFunc(ctx, filter)
	}
	return []byte("xlsx"), nil
}

var (
	_ ports.TankService      = (*MockTankService)(nil)
	_ ports.EventDispatcher  = (*MockEventDispatcher)(nil)
	_ ports.StockNotifier    = (*MockStockNotifier)(nil)
	_ ports.AuthService      = (*MockAuthService)(nil)
	_ ports.DashboardService = (*MockDashboardService)(nil)
	_ ports.RefuelingService = (*MockRefuelingService)(nil)
	_ ports.IntakeService    = (*MockIntakeService)(nil)
	_ ports.ReportService    = (*MockReportService)(nil)
)
