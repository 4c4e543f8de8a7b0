package mocks

import (
	"context"

	"github.com/seu-repo/fuel-control/internal/domain"
)

// MockTransactor runs fn inline, without a database.
type MockTransactor struct {
	Calls int
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

// MockTankRepository is a mock implementation of TankRepository
type MockTankRepository struct {
	FindDefaultFunc  func(ctx context.Context) (*domain.Tank, error)
	FindByIDFunc     func(ctx context.Context, id uint) (*domain.Tank, error)
	LockByIDFunc     func(ctx context.Context, id uint) (*domain.Tank, error)
	CreateFunc       func(ctx context.Context, tank *domain.Tank) error
	SaveFunc         func(ctx context.Context, tank *domain.Tank) error
	SumMovementsFunc func(ctx context.Context, tankID uint) (float64, float64, error)
}

func (m *MockTankRepository) FindDefault(ctx context.Context) (*domain.Tank, error) {
	if m.FindDefaultFunc != nil {
		return m.FindDefaultFunc(ctx)
	}
	return nil, nil
}

func (m *MockTankRepository) FindByID(ctx context.Context, id uint) (*domain.Tank, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockTankRepository) LockByID(ctx context.Context, id uint) (*domain.Tank, error) {
	if m.LockByIDFunc != nil {
		return m.LockByIDFunc(ctx, id)
	}
	return m.FindByID(ctx, id)
}

func (m *MockTankRepository) Create(ctx context.Context, tank *domain.Tank) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tank)
	}
	return nil
}

func (m *MockTankRepository) Save(ctx context.Context, tank *domain.Tank) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tank)
	}
	return nil
}

func (m *MockTankRepository) SumMovements(ctx context.Context, tankID uint) (float64, float64, error) {
	if m.SumMovementsFunc != nil {
		return m.SumMovementsFunc(ctx, tankID)
	}
	return 0, 0, nil
}

// MockRefuelingRepository is a mock implementation of RefuelingRepository
type MockRefuelingRepository struct {
	CreateFunc                func(ctx context.Context, r *domain.Refueling) error
	SaveFunc                  func(ctx context.Context, r *domain.Refueling) error
	DeleteFunc                func(ctx context.Context, id uint) error
	FindByIDFunc              func(ctx context.Context, id uint) (*domain.Refueling, error)
	ListFunc                  func(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error)
	FindPreviousConfirmedFunc func(ctx context.Context, vehicleID uint, kind domain.ReadingKind, beforeID uint) (*domain.Refueling, error)
	FindLastConfirmedFunc     func(ctx context.Context) (*domain.Refueling, error)
}

func (m *MockRefuelingRepository) Create(ctx context.Context, r *domain.Refueling) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, r)
	}
	return nil
}

func (m *MockRefuelingRepository) Save(ctx context.Context, r *domain.Refueling) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, r)
	}
	return nil
}

func (m *MockRefuelingRepository) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockRefuelingRepository) FindByID(ctx context.Context, id uint) (*domain.Refueling, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockRefuelingRepository) List(ctx context.Context, filter domain.RefuelingFilter) ([]domain.Refueling, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockRefuelingRepository) FindPreviousConfirmed(ctx context.Context, vehicleID uint, kind domain.ReadingKind, beforeID uint) (*domain.Refueling, error) {
	if m.FindPreviousConfirmedFunc != nil {
		return m.FindPreviousConfirmedFunc(ctx, vehicleID, kind, beforeID)
	}
	return nil, nil
}

func (m *MockRefuelingRepository) FindLastConfirmed(ctx context.Context) (*domain.Refueling, error) {
	if m.FindLastConfirmedFunc != nil {
		return m.FindLastConfirmedFunc(ctx)
	}
	return nil, nil
}

// MockIntakeRepository is a mock implementation of IntakeRepository
type MockIntakeRepository struct {
	CreateFunc   func(ctx context.Context, i *domain.Intake) error
	SaveFunc     func(ctx context.Context, i *domain.Intake) error
	DeleteFunc   func(ctx context.Context, id uint) error
	FindByIDFunc func(ctx context.Context, id uint) (*domain.Intake, error)
	ListFunc     func(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error)
}

func (m *MockIntakeRepository) Create(ctx context.Context, i *domain.Intake) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, i)
	}
	return nil
}

func (m *MockIntakeRepository) Save(ctx context.Context, i *domain.Intake) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, i)
	}
	return nil
}

func (m *MockIntakeRepository) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockIntakeRepository) FindByID(ctx context.Context, id uint) (*domain.Intake, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockIntakeRepository) List(ctx context.Context, filter domain.IntakeFilter) ([]domain.Intake, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

// MockVehicleRepository is a mock implementation of VehicleRepository
type MockVehicleRepository struct {
	SaveFunc      func(ctx context.Context, v *domain.Vehicle) error
	FindByIDFunc  func(ctx context.Context, id uint) (*domain.Vehicle, error)
	FindByIDsFunc func(ctx context.Context, ids []uint) ([]domain.Vehicle, error)
}

func (m *MockVehicleRepository) Save(ctx context.Context, v *domain.Vehicle) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, v)
	}
	return nil
}

func (m *MockVehicleRepository) FindByID(ctx context.Context, id uint) (*domain.Vehicle, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockVehicleRepository) FindByIDs(ctx context.Context, ids []uint) ([]domain.Vehicle, error) {
	if m.FindByIDsFunc != nil {
		return m.FindByIDsFunc(ctx, ids)
	}
	return nil, nil
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	SaveFunc        func(ctx context.Context, user *domain.User) error
	FindByIDFunc    func(ctx context.Context, id uint) (*domain.User, error)
	FindByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, nil
}

// MockAuditRepository records appended notes.
type MockAuditRepository struct {
	Notes      []domain.AuditNote
	AppendFunc func(ctx context.Context, note *domain.AuditNote) error
}

func (m *MockAuditRepository) Append(ctx context.Context, note *domain.AuditNote) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, note)
	}
	m.Notes = append(m.Notes, *note)
	return nil
}

func (m *MockAuditRepository) ListByEntity(ctx context.Context, entity domain.AuditEntity, id uint) ([]domain.AuditNote, error) {
	var out []domain.AuditNote
	for _, n := range m.Notes {
		if n.Entity == entity && n.EntityID == id {
			out = append(out, n)
		}
	}
	return out, nil
}

// MockSequenceGenerator counts per key in memory.
type MockSequenceGenerator struct {
	counters map[string]int64
	NextFunc func(ctx context.Context, key string) (int64, error)
}

func (m *MockSequenceGenerator) Next(ctx context.Context, key string) (int64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, key)
	}
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[key]++
	return m.counters[key], nil
}
